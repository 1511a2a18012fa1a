package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/quantaloop/gammabot/internal/trading"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func newQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to the given transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const insertTape = `
INSERT INTO tape (time, market_id, kind, payload)
VALUES ($1, $2, $3, $4)
`

type InsertTapeParams struct {
	Time     time.Time
	MarketID string
	Kind     string // "tob" or "trade"
	Payload  any    // stored as jsonb
}

// InsertTape appends one row to the market event tape.
func (q *Queries) InsertTape(ctx context.Context, p InsertTapeParams) error {
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return fmt.Errorf("couldn't encode tape payload: %w", err)
	}
	_, err = q.db.Exec(ctx, insertTape,
		pgtype.Timestamptz{Time: p.Time, Valid: true},
		p.MarketID,
		p.Kind,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert tape row: %w", err)
	}
	return nil
}

const upsertRuntimeStatus = `
INSERT INTO runtime_status (component, level, message, detail, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (component) DO UPDATE SET
	level = EXCLUDED.level,
	message = EXCLUDED.message,
	detail = EXCLUDED.detail,
	updated_at = EXCLUDED.updated_at
`

type UpsertRuntimeStatusParams struct {
	Component string
	Level     string // "ok" or "error"
	Message   string
	Detail    string
	Time      time.Time
}

// UpsertRuntimeStatus records component health, last write wins per component.
func (q *Queries) UpsertRuntimeStatus(ctx context.Context, p UpsertRuntimeStatusParams) error {
	_, err := q.db.Exec(ctx, upsertRuntimeStatus,
		p.Component,
		p.Level,
		p.Message,
		p.Detail,
		pgtype.Timestamptz{Time: p.Time, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("upsert runtime status %s: %w", p.Component, err)
	}
	return nil
}

const insertOrder = `
INSERT INTO orders (order_id, market_id, side, price, size, created_at, status, filled_size, meta)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

type InsertOrderParams struct {
	OrderID    string
	MarketID   string
	Side       trading.Side
	Price      float64
	Size       float64
	CreatedAt  time.Time
	Status     trading.OrderStatus
	FilledSize float64
	Meta       map[string]any
}

// InsertOrder records an order placed (or intended) by an execution backend.
func (q *Queries) InsertOrder(ctx context.Context, p InsertOrderParams) error {
	meta, err := json.Marshal(p.Meta)
	if err != nil {
		return fmt.Errorf("couldn't encode order meta: %w", err)
	}
	_, err = q.db.Exec(ctx, insertOrder,
		p.OrderID,
		p.MarketID,
		string(p.Side),
		p.Price,
		p.Size,
		pgtype.Timestamptz{Time: p.CreatedAt, Valid: true},
		string(p.Status),
		p.FilledSize,
		meta,
	)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", p.OrderID, err)
	}
	return nil
}
