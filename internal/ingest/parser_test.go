package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polysentinel/engine/internal/store"
)

func TestParseTradesEnvelope(t *testing.T) {
	payload := []byte(`{
		"type": "trade",
		"data": {
			"trades": [
				{
					"market": "0xcondition",
					"taker_address": "0xtaker",
					"side": "BUY",
					"size": "150.5",
					"price": "0.40",
					"outcome": "Yes",
					"timestamp": "1717243200"
				}
			]
		}
	}`)

	trades, msgType, err := ParseTrades(payload)
	require.NoError(t, err)
	assert.Equal(t, "trade", msgType)
	require.Len(t, trades, 1)

	trade := trades[0]
	assert.Equal(t, "0xtaker", trade.WalletAddress)
	assert.Equal(t, "0xcondition", trade.ConditionID)
	assert.InDelta(t, 60.2, trade.Amount, 0.001)
	assert.Equal(t, store.SideBuy, trade.TradeType)
	assert.Equal(t, 0, trade.OutcomeIndex)
	assert.Equal(t, time.Unix(1717243200, 0), trade.Timestamp)
}

func TestParseTradesBareArray(t *testing.T) {
	payload := []byte(`[
		{"market": "0xm", "taker": "0xa", "side": "sell", "size": "10", "price": "0.5", "outcome": "No"},
		{"market": "0xm", "maker": "0xb", "size": "20", "price": "0.25"}
	]`)

	trades, msgType, err := ParseTrades(payload)
	require.NoError(t, err)
	assert.Equal(t, "trade_array", msgType)
	require.Len(t, trades, 2)

	assert.Equal(t, store.SideSell, trades[0].TradeType)
	assert.Equal(t, 1, trades[0].OutcomeIndex)
	assert.Equal(t, "0xb", trades[1].WalletAddress)
	assert.Equal(t, store.SideBuy, trades[1].TradeType)
}

func TestParseTradesDropsIncompleteRows(t *testing.T) {
	payload := []byte(`{
		"type": "trade",
		"data": {
			"trades": [
				{"market": "", "taker": "0xa", "size": "10", "price": "0.5"},
				{"market": "0xm", "size": "10", "price": "0.5"},
				{"market": "0xm", "taker": "0xa", "size": "0", "price": "0.5"},
				{"market": "0xm", "taker": "0xa", "size": "10", "price": "0.5"}
			]
		}
	}`)

	trades, _, err := ParseTrades(payload)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "0xa", trades[0].WalletAddress)
}

func TestParseTradesNonTradeMessage(t *testing.T) {
	trades, msgType, err := ParseTrades([]byte(`{"type": "book", "channel": "market"}`))

	require.NoError(t, err)
	assert.Equal(t, "book", msgType)
	assert.Empty(t, trades)
}

func TestParseTradesMalformed(t *testing.T) {
	_, _, err := ParseTrades([]byte(`{not json`))
	assert.Error(t, err)
}

func TestTradeValueUSDScalesRawUSDC(t *testing.T) {
	// 150,000,000 raw units is $150 at 6 decimals; price scales it further
	assert.InDelta(t, 75, tradeValueUSD("150000000", "0.5"), 0.001)
	assert.InDelta(t, 30, tradeValueUSD("60", "0.5"), 0.001)
	assert.Equal(t, 0.0, tradeValueUSD("", "0.5"))
}

func TestParseTimestampFormats(t *testing.T) {
	assert.Equal(t, time.Unix(1717243200, 0), parseTimestamp("1717243200"))
	assert.Equal(t, time.UnixMilli(1717243200123), parseTimestamp("1717243200123"))

	rfc := parseTimestamp("2025-06-01T12:00:00Z")
	assert.Equal(t, 2025, rfc.Year())
	assert.Equal(t, time.June, rfc.Month())

	// First parseable value wins
	fallback := parseTimestamp("", "1717243200")
	assert.Equal(t, time.Unix(1717243200, 0), fallback)
}
