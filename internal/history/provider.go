// Package history provides read-only access to historical market, wallet,
// and creation data for the scoring engine, plus an in-memory implementation
// with JSON file persistence.
package history

import (
	"time"

	"github.com/polysentinel/engine/internal/store"
)

// Provider supplies ordered historical samples and trade records on request.
// The scoring engine treats every method as read-only; implementations may
// be backed by memory, a database, or a remote service. A failing provider
// surfaces an error for the affected entity only; batch scans continue.
type Provider interface {
	// VolumeHistory returns volume samples for a market within the window.
	VolumeHistory(conditionID string, window time.Duration) ([]store.VolumeSample, error)

	// PriceHistory returns price samples for a market within the window.
	PriceHistory(conditionID string, window time.Duration) ([]store.PriceSample, error)

	// WalletTrades returns a wallet's trades within the window.
	WalletTrades(wallet string, window time.Duration) ([]store.WalletTrade, error)

	// TradeOutcomes returns all matched entry/exit outcomes for a wallet.
	TradeOutcomes(wallet string) ([]store.TradeOutcome, error)

	// CreationHistory returns all creation records for a creator.
	CreationHistory(creator string) ([]store.CreationRecord, error)

	// MarketTrades returns all trades in a market within the window.
	MarketTrades(conditionID string, window time.Duration) ([]store.WalletTrade, error)

	// Market returns the latest snapshot for a market, if known.
	Market(conditionID string) (store.MarketSnapshot, bool)

	// Markets returns the latest snapshot of every known market.
	Markets() []store.MarketSnapshot
}
