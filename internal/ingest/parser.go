package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/polysentinel/engine/internal/store"
)

// wsEnvelope is the base structure of a WebSocket message.
type wsEnvelope struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// wsTrade is trade data from the Polymarket WebSocket. Field names vary
// between payload versions, so duplicates are coalesced during conversion.
type wsTrade struct {
	ID           string `json:"id"`
	TradeID      string `json:"trade_id"`
	Market       string `json:"market"`
	AssetID      string `json:"asset_id"`
	Maker        string `json:"maker"`
	Taker        string `json:"taker"`
	MakerAddress string `json:"maker_address"`
	TakerAddress string `json:"taker_address"`
	Side         string `json:"side"`
	Size         string `json:"size"`
	Price        string `json:"price"`
	Outcome      string `json:"outcome"`
	OutcomeIndex *int   `json:"outcome_index"`
	Timestamp    string `json:"timestamp"`
	MatchTime    string `json:"match_time"`
}

// wsTradeEvent wraps trade data in the event structure.
type wsTradeEvent struct {
	Trades []wsTrade `json:"trades"`
	// Single trade format
	wsTrade
}

// ParseTrades parses a raw WebSocket message and returns any wallet trades
// it carries, plus the message type for logging.
func ParseTrades(data []byte) ([]store.WalletTrade, string, error) {
	// Polymarket sends bare arrays of trades as well as typed envelopes.
	var array []wsTrade
	if err := json.Unmarshal(data, &array); err == nil && len(array) > 0 {
		return convertTrades(array), "trade_array", nil
	}

	var msg wsEnvelope
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, "", fmt.Errorf("unmarshal message: %w", err)
	}

	if msg.Type != "trade" || len(msg.Data) == 0 {
		return nil, msg.Type, nil
	}

	var event wsTradeEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return nil, msg.Type, fmt.Errorf("parse trade event: %w", err)
	}

	if len(event.Trades) > 0 {
		return convertTrades(event.Trades), msg.Type, nil
	}
	if event.wsTrade.Market != "" || event.wsTrade.ID != "" || event.wsTrade.TradeID != "" {
		return convertTrades([]wsTrade{event.wsTrade}), msg.Type, nil
	}
	return nil, msg.Type, nil
}

// convertTrades normalizes raw trades, dropping rows missing a wallet,
// market, or positive size.
func convertTrades(raw []wsTrade) []store.WalletTrade {
	trades := make([]store.WalletTrade, 0, len(raw))

	for _, wt := range raw {
		wallet := coalesce(wt.TakerAddress, wt.Taker, wt.MakerAddress, wt.Maker)
		amount := tradeValueUSD(wt.Size, wt.Price)
		if wallet == "" || wt.Market == "" || amount <= 0 {
			continue
		}

		trades = append(trades, store.WalletTrade{
			WalletAddress: wallet,
			ConditionID:   wt.Market,
			Amount:        amount,
			TradeType:     normalizeSide(wt.Side),
			OutcomeIndex:  outcomeIndex(wt),
			Timestamp:     parseTimestamp(wt.Timestamp, wt.MatchTime),
		})
	}

	return trades
}

// normalizeSide maps the upstream side field onto BUY/SELL, defaulting to BUY.
func normalizeSide(side string) string {
	if strings.EqualFold(side, store.SideSell) {
		return store.SideSell
	}
	return store.SideBuy
}

// outcomeIndex resolves the traded outcome token, preferring the explicit
// index over the outcome label.
func outcomeIndex(wt wsTrade) int {
	if wt.OutcomeIndex != nil {
		return *wt.OutcomeIndex
	}
	if strings.EqualFold(wt.Outcome, "no") {
		return 1
	}
	return 0
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseFloat safely parses a string to float64.
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// tradeValueUSD computes the USD size of a trade. Raw USDC amounts carry
// six decimals and are scaled down.
func tradeValueUSD(sizeStr string, priceStr string) float64 {
	size := parseFloat(sizeStr)
	if size == 0 {
		return 0
	}
	if size > 1e6 {
		size = size / 1e6
	}

	price := parseFloat(priceStr)
	if price > 0 && price <= 1 {
		return size * price
	}
	return size
}

// parseTimestamp tries Unix epochs then the common wire formats, falling
// back to the current time.
func parseTimestamp(values ...string) time.Time {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}

	for _, v := range values {
		if v == "" {
			continue
		}

		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			if ts > 1e12 {
				// Milliseconds
				return time.UnixMilli(ts)
			}
			return time.Unix(ts, 0)
		}

		for _, format := range formats {
			if t, err := time.Parse(format, v); err == nil {
				return t
			}
		}
	}

	return time.Now()
}
