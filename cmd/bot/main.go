package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/quantaloop/gammabot/internal/engine"
	"github.com/quantaloop/gammabot/internal/execution"
	"github.com/quantaloop/gammabot/internal/mirror"
	"github.com/quantaloop/gammabot/internal/polymarket/gamma"
	"github.com/quantaloop/gammabot/internal/store"
	"github.com/quantaloop/gammabot/internal/trading"
	"github.com/quantaloop/gammabot/pkg/hashset"
)

func main() {
	configPath := flag.String("config", "configs/bot/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := readConfig(configPath)
	if err != nil {
		log.Fatalf("Couldn't read config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := store.NewPool(ctx, store.PoolConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		PoolSize: cfg.Database.PoolSize,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatalf("Couldn't connect to database: %v", err)
	}
	st := store.New(pool)
	defer st.Close()

	log.Println("Connected to database")

	feed := gamma.NewPollStream(gamma.Config{
		BaseURL:      cfg.Feed.GammaURL,
		PollInterval: cfg.Feed.PollInterval.Duration(),
		Limit:        cfg.Feed.SnapshotLimit,
	}, st, logger)

	// Market selection lives outside the feed; here it is just the deduped
	// configured list.
	ids := dedupeIDs(cfg.Feed.MarketIDs)
	provider := trading.MarketIDsProvider(func() []string { return ids })

	events := feed.Events(ctx, provider)

	if cfg.Redis.Addr != "" {
		streams := engine.Fan(ctx, logger, events, 2)
		events = streams[0]

		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		go mirror.New(rdb, logger).Run(ctx, streams[1])
	}

	broker := execution.NewShadowBroker(st, logger)
	engine.NewPump(broker, logger).Run(ctx, events)
}

// dedupeIDs drops blank and repeated market ids, keeping first-seen order.
func dedupeIDs(raw []string) []string {
	seen := hashset.NewSet[string]()
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" || seen.Has(id) {
			continue
		}
		seen.Set(id)
		ids = append(ids, id)
	}
	return ids
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
