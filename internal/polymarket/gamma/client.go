// Package gamma consumes Polymarket gamma endpoints and turns the market
// listing into a change-detected feed of top-of-book and trade events.
package gamma

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/quantaloop/gammabot/pkg/httpclient"
)

// requestTimeout bounds one whole listing request, connect through body.
const requestTimeout = 20 * time.Second

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// ListMarkets fetches one page of active, open markets.
func (c *Client) ListMarkets(ctx context.Context, limit int) ([]Record, error) {
	endpoint := fmt.Sprintf("/markets?active=true&closed=false&limit=%d&offset=0", limit)
	records, err := httpclient.GetResource[[]Record](ctx, c.httpClient, c.baseURL, endpoint, []int{200})
	if err != nil {
		return nil, fmt.Errorf("couldn't list markets: %w", err)
	}
	return records, nil
}
