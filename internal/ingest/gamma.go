// Package ingest acquires market and trade data from Polymarket and
// normalizes it into store records. Malformed upstream rows are skipped
// with a logged warning rather than failing the batch.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultGammaURL is the Polymarket Gamma API endpoint for market data
	DefaultGammaURL = "https://gamma-api.polymarket.com/markets"
	// gammaPageSize is the number of markets requested per page
	gammaPageSize = 100

	gammaTimeout = 10 * time.Second
)

// gammaMarket mirrors the subset of the Gamma API market payload we consume.
// Numeric fields arrive as strings or numbers depending on the endpoint
// version, so everything is kept as raw text and parsed defensively.
type gammaMarket struct {
	ConditionID   string  `json:"conditionId"`
	Question      string  `json:"question"`
	Category      string  `json:"category"`
	Volume24h     string  `json:"volume24hr"`
	Liquidity     string  `json:"liquidity"`
	OutcomePrices string  `json:"outcomePrices"` // JSON array as string
	EndDate       string  `json:"endDate"`
	CreatedAt     string  `json:"createdAt"`
	Creator       string  `json:"creator"` // absent on older payloads
	VolumeNum     float64 `json:"volumeNum"`
	Active        bool    `json:"active"`
	Closed        bool    `json:"closed"`
}

// GammaClient fetches active markets from the Gamma REST API.
type GammaClient struct {
	baseURL string
	client  *http.Client
}

// NewGammaClient creates a client for the given endpoint. An empty URL
// falls back to the public Gamma API.
func NewGammaClient(baseURL string) *GammaClient {
	if baseURL == "" {
		baseURL = DefaultGammaURL
	}
	return &GammaClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: gammaTimeout},
	}
}

// FetchActiveMarkets pages through active markets up to limit and returns
// normalized snapshots. Rows missing a condition ID or question are skipped.
func (c *GammaClient) FetchActiveMarkets(ctx context.Context, limit int) ([]MarketRow, error) {
	var rows []MarketRow
	skipped := 0

	for offset := 0; len(rows) < limit; offset += gammaPageSize {
		page, err := c.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, gm := range page {
			if len(rows) >= limit {
				break
			}
			row, ok := normalizeMarket(gm)
			if !ok {
				skipped++
				continue
			}
			rows = append(rows, row)
		}
	}

	slog.Info("fetched_active_markets", "market_count", len(rows), "skipped", skipped)
	return rows, nil
}

// fetchPage retrieves one page of active, open markets.
func (c *GammaClient) fetchPage(ctx context.Context, offset int) ([]gammaMarket, error) {
	q := url.Values{}
	q.Set("active", "true")
	q.Set("closed", "false")
	q.Set("limit", strconv.Itoa(gammaPageSize))
	q.Set("offset", strconv.Itoa(offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var page []gammaMarket
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}
	return page, nil
}

// MarketRow is a normalized Gamma market with its creator, ready to be
// recorded as a snapshot.
type MarketRow struct {
	ConditionID    string
	Question       string
	Category       string
	Creator        string
	Volume24h      float64
	Liquidity      float64
	YesProbability float64
	EndDate        time.Time
	CreatedAt      time.Time
}

// normalizeMarket converts a raw Gamma row into a MarketRow, substituting
// defaults for absent fields. Rows without an identity are rejected.
func normalizeMarket(gm gammaMarket) (MarketRow, bool) {
	if gm.ConditionID == "" || gm.Question == "" {
		slog.Warn("market_row_skipped", "condition_id", gm.ConditionID, "reason", "missing identity fields")
		return MarketRow{}, false
	}

	row := MarketRow{
		ConditionID:    gm.ConditionID,
		Question:       gm.Question,
		Category:       gm.Category,
		Creator:        gm.Creator,
		Volume24h:      parseFloat(gm.Volume24h),
		Liquidity:      parseFloat(gm.Liquidity),
		YesProbability: yesProbability(gm.OutcomePrices),
		EndDate:        parseDate(gm.EndDate),
		CreatedAt:      parseDate(gm.CreatedAt),
	}

	if row.Category == "" {
		row.Category = "Uncategorized"
	}
	if row.Volume24h == 0 && gm.VolumeNum > 0 {
		row.Volume24h = gm.VolumeNum
	}
	return row, true
}

// yesProbability extracts the first outcome price from the JSON-string
// array the API returns. Absent or unparseable prices default to 0.5.
func yesProbability(outcomePrices string) float64 {
	if outcomePrices == "" {
		return 0.5
	}

	var prices []string
	if err := json.Unmarshal([]byte(outcomePrices), &prices); err != nil || len(prices) == 0 {
		slog.Debug("outcome_prices_unparseable", "raw", outcomePrices)
		return 0.5
	}

	p := parseFloat(prices[0])
	if p <= 0 || p >= 1 {
		return 0.5
	}
	return p
}

// parseDate parses the timestamp formats the Gamma API emits. A zero time
// is returned when nothing parses.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
