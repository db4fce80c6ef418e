package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polysentinel/engine/internal/config"
	"github.com/polysentinel/engine/internal/detector"
	"github.com/polysentinel/engine/internal/metrics"
	"github.com/polysentinel/engine/internal/store"
)

// fakeProvider serves canned histories and can fail per market.
type fakeProvider struct {
	volumes   map[string][]store.VolumeSample
	prices    map[string][]store.PriceSample
	trades    map[string][]store.WalletTrade
	outcomes  map[string][]store.TradeOutcome
	creations map[string][]store.CreationRecord
	markets   map[string]store.MarketSnapshot
	failFor   map[string]bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		volumes:   map[string][]store.VolumeSample{},
		prices:    map[string][]store.PriceSample{},
		trades:    map[string][]store.WalletTrade{},
		outcomes:  map[string][]store.TradeOutcome{},
		creations: map[string][]store.CreationRecord{},
		markets:   map[string]store.MarketSnapshot{},
		failFor:   map[string]bool{},
	}
}

func (f *fakeProvider) VolumeHistory(id string, _ time.Duration) ([]store.VolumeSample, error) {
	if f.failFor[id] {
		return nil, errors.New("backend unavailable")
	}
	return f.volumes[id], nil
}

func (f *fakeProvider) PriceHistory(id string, _ time.Duration) ([]store.PriceSample, error) {
	if f.failFor[id] {
		return nil, errors.New("backend unavailable")
	}
	return f.prices[id], nil
}

func (f *fakeProvider) WalletTrades(wallet string, _ time.Duration) ([]store.WalletTrade, error) {
	if f.failFor[wallet] {
		return nil, errors.New("backend unavailable")
	}
	return f.trades[wallet], nil
}

func (f *fakeProvider) TradeOutcomes(wallet string) ([]store.TradeOutcome, error) {
	if f.failFor[wallet] {
		return nil, errors.New("backend unavailable")
	}
	return f.outcomes[wallet], nil
}

func (f *fakeProvider) CreationHistory(creator string) ([]store.CreationRecord, error) {
	if f.failFor[creator] {
		return nil, errors.New("backend unavailable")
	}
	return f.creations[creator], nil
}

func (f *fakeProvider) MarketTrades(id string, _ time.Duration) ([]store.WalletTrade, error) {
	if f.failFor[id] {
		return nil, errors.New("backend unavailable")
	}
	return f.trades[id], nil
}

func (f *fakeProvider) Market(id string) (store.MarketSnapshot, bool) {
	snap, ok := f.markets[id]
	return snap, ok
}

func (f *fakeProvider) Markets() []store.MarketSnapshot {
	var out []store.MarketSnapshot
	for _, snap := range f.markets {
		out = append(out, snap)
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		MinVolumeUSD:     10000,
		MinAlertScore:    30,
		MinOutcomes:      10,
		VolumeWindowDays: 30,
		PriceWindowDays:  1,
		WalletWindowDays: 7,
		WorkerCount:      4,
	}
}

func newTestScanner(provider *fakeProvider) (*Scanner, *metrics.Tracker) {
	tracker := metrics.NewTracker()
	scorer := detector.NewMarketScorer(detector.DefaultWeights())
	return New(testConfig(), provider, scorer, tracker), tracker
}

func spikeSamples(baseline float64, n int) []store.VolumeSample {
	base := time.Now().Add(-time.Duration(n) * time.Hour)
	samples := make([]store.VolumeSample, n)
	for i := range samples {
		v := baseline
		if i%2 == 0 {
			v = baseline * 1.02
		}
		samples[i] = store.VolumeSample{Value: v, Timestamp: base.Add(time.Duration(i) * time.Hour)}
	}
	return samples
}

func TestScanMarketsFiltersAndSorts(t *testing.T) {
	provider := newFakeProvider()

	hot := store.MarketSnapshot{ConditionID: "0xhot", Volume24h: 80000, Liquidity: 500, YesProbability: 0.9}
	quiet := store.MarketSnapshot{ConditionID: "0xquiet", Volume24h: 15000, Liquidity: 50000, YesProbability: 0.5}
	tiny := store.MarketSnapshot{ConditionID: "0xtiny", Volume24h: 100, Liquidity: 100}

	provider.markets[hot.ConditionID] = hot
	provider.markets[quiet.ConditionID] = quiet
	provider.markets[tiny.ConditionID] = tiny

	provider.volumes["0xhot"] = spikeSamples(10000, 10)
	provider.prices["0xhot"] = []store.PriceSample{
		{Value: 0.50, Timestamp: time.Now().Add(-2 * time.Hour)},
		{Value: 0.52, Timestamp: time.Now().Add(-1 * time.Hour)},
	}
	provider.volumes["0xquiet"] = spikeSamples(15000, 10)

	scanner, tracker := newTestScanner(provider)

	alerts := scanner.ScanMarkets(context.Background(), []store.MarketSnapshot{quiet, hot, tiny})

	// Only the hot market clears the alert threshold; the tiny market is
	// below the volume floor and never scored.
	require.Len(t, alerts, 1)
	assert.Equal(t, "0xhot", alerts[0].SubjectID)
	assert.Greater(t, alerts[0].Score, 30.0)

	snap := tracker.Snapshot()
	assert.Equal(t, int64(2), snap.EntitiesScanned)
}

func TestScanMarketsContinuesPastFailures(t *testing.T) {
	provider := newFakeProvider()

	bad := store.MarketSnapshot{ConditionID: "0xbad", Volume24h: 80000, Liquidity: 500, YesProbability: 0.9}
	good := store.MarketSnapshot{ConditionID: "0xgood", Volume24h: 80000, Liquidity: 500, YesProbability: 0.9}

	provider.failFor["0xbad"] = true
	provider.volumes["0xgood"] = spikeSamples(10000, 10)

	scanner, tracker := newTestScanner(provider)

	alerts := scanner.ScanMarkets(context.Background(), []store.MarketSnapshot{bad, good})

	require.Len(t, alerts, 1)
	assert.Equal(t, "0xgood", alerts[0].SubjectID)

	snap := tracker.Snapshot()
	assert.Equal(t, int64(1), snap.EntitiesSkipped)
}

func TestScanWallets(t *testing.T) {
	provider := newFakeProvider()
	end := time.Now().Add(30 * 24 * time.Hour)
	provider.markets["0xm"] = store.MarketSnapshot{ConditionID: "0xm", Liquidity: 10000, EndDate: end}

	// A consistently profitable quick-flipping wallet
	for i := 0; i < 12; i++ {
		provider.outcomes["0xsharp"] = append(provider.outcomes["0xsharp"], store.TradeOutcome{
			WalletAddress:     "0xsharp",
			ConditionID:       "0xm",
			Amount:            15000,
			ProfitLoss:        2000,
			EntryTime:         time.Now().Add(-48 * time.Hour),
			HoldDurationHours: 1,
		})
	}
	provider.trades["0xsharp"] = []store.WalletTrade{
		{WalletAddress: "0xsharp", ConditionID: "0xm", Amount: 5000, Timestamp: time.Now()},
	}

	scanner, _ := newTestScanner(provider)

	alerts := scanner.ScanWallets(context.Background(), []string{"0xsharp", "0xdull"})

	require.Len(t, alerts, 1)
	assert.Equal(t, "0xsharp", alerts[0].SubjectID)
	assert.Equal(t, store.SubjectWallet, alerts[0].SubjectType)
	assert.Greater(t, alerts[0].Score, 30.0)
}

func TestScanCreations(t *testing.T) {
	provider := newFakeProvider()

	created := time.Date(2025, 6, 14, 3, 0, 0, 0, time.UTC)
	rec := store.CreationRecord{
		ConditionID:       "0xnew",
		CreatorAddress:    "0xcreator",
		Question:          "Will the urgent acquisition close exactly within 48 hours before Monday, guaranteed?",
		CreationTimestamp: created,
		EndDate:           created.Add(48 * time.Hour),
		InitialLiquidity:  100,
	}
	provider.creations["0xcreator"] = []store.CreationRecord{rec}

	scanner, _ := newTestScanner(provider)

	alerts := scanner.ScanCreations(context.Background(), []store.CreationRecord{rec})

	require.Len(t, alerts, 1)
	assert.Equal(t, "0xnew", alerts[0].SubjectID)
	assert.Equal(t, store.SubjectCreation, alerts[0].SubjectType)
}

func TestScanRespectsCancellation(t *testing.T) {
	provider := newFakeProvider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var markets []store.MarketSnapshot
	for i := 0; i < 100; i++ {
		markets = append(markets, store.MarketSnapshot{ConditionID: "0xm", Volume24h: 20000})
	}

	scanner, _ := newTestScanner(provider)
	alerts := scanner.ScanMarkets(ctx, markets)

	assert.Empty(t, alerts)
}
