package detector

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polysentinel/engine/internal/store"
)

const testWallet = "0xabc123def456abc123def456abc123def456abcd"

// highRiskOutcomes builds 12 closed trades: 10 wins of $2000 (8 held under a
// day), 2 losses of $1000, largest position $15000. Every profitability
// sub-score fires.
func highRiskOutcomes() []store.TradeOutcome {
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	var outcomes []store.TradeOutcome
	for i := 0; i < 10; i++ {
		hold := 5.0
		if i >= 8 {
			hold = 48.0
		}
		amount := 2000.0
		if i == 0 {
			amount = 15000.0
		}
		outcomes = append(outcomes, store.TradeOutcome{
			WalletAddress:     testWallet,
			ConditionID:       "0xmarket1",
			Amount:            amount,
			ProfitLoss:        2000,
			EntryTime:         base.Add(time.Duration(i) * 24 * time.Hour),
			HoldDurationHours: hold,
		})
	}
	for i := 0; i < 2; i++ {
		outcomes = append(outcomes, store.TradeOutcome{
			WalletAddress:     testWallet,
			ConditionID:       "0xmarket2",
			Amount:            500,
			ProfitLoss:        -1000,
			EntryTime:         base,
			HoldDurationHours: 48,
		})
	}
	return outcomes
}

func TestWalletProfileEmptyOutcomes(t *testing.T) {
	p := NewWalletProfiler(DefaultWeights())

	profile := p.Profile(testWallet, nil)

	assert.Equal(t, testWallet, profile.WalletAddress)
	assert.Equal(t, 0, profile.TotalTrades)
	assert.Equal(t, 0.0, profile.InsiderScore)
}

func TestWalletProfileAllSubScoresFire(t *testing.T) {
	p := NewWalletProfiler(DefaultWeights())

	profile := p.Profile(testWallet, highRiskOutcomes())

	assert.Equal(t, 12, profile.TotalTrades)
	assert.InDelta(t, 0.833, profile.WinRate, 0.001)
	assert.InDelta(t, 10.0, profile.ProfitFactor, 0.001)
	assert.InDelta(t, 1500, profile.AvgProfit, 0.001)
	assert.InDelta(t, 0.8, profile.QuickFlipRatio, 0.001)
	assert.Equal(t, 15000.0, profile.LargestTrade)
	assert.Equal(t, 100.0, profile.InsiderScore)
}

func TestWalletProfilePureWinnerProfitFactor(t *testing.T) {
	p := NewWalletProfiler(DefaultWeights())

	outcomes := []store.TradeOutcome{
		{WalletAddress: testWallet, ProfitLoss: 500, HoldDurationHours: 3},
		{WalletAddress: testWallet, ProfitLoss: 300, HoldDurationHours: 5},
	}
	profile := p.Profile(testWallet, outcomes)

	assert.True(t, math.IsInf(profile.ProfitFactor, 1))
	assert.Equal(t, 1.0, profile.WinRate)
}

func TestTimingAnomalies(t *testing.T) {
	p := NewWalletProfiler(DefaultWeights())
	end := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	markets := map[string]store.MarketSnapshot{
		"0xm": {ConditionID: "0xm", EndDate: end},
	}

	outcomes := []store.TradeOutcome{
		// 3 hours before resolution: last-minute, high severity
		{ConditionID: "0xm", EntryTime: end.Add(-3 * time.Hour), HoldDurationHours: 10},
		// 18 hours before resolution: last-minute, medium severity
		{ConditionID: "0xm", EntryTime: end.Add(-18 * time.Hour), HoldDurationHours: 10},
		// closed in 1 hour: quick flip
		{ConditionID: "0xm", EntryTime: end.Add(-200 * time.Hour), HoldDurationHours: 1},
		// entered after resolution: no timing anomaly
		{ConditionID: "0xm", EntryTime: end.Add(2 * time.Hour), HoldDurationHours: 10},
	}

	anomalies := p.TimingAnomalies(testWallet, outcomes, markets)
	require.Len(t, anomalies, 3)

	assert.Equal(t, store.AnomalyLastMinuteTrading, anomalies[0].Type)
	assert.Equal(t, store.SeverityHigh, anomalies[0].Severity)
	assert.Equal(t, store.AnomalyLastMinuteTrading, anomalies[1].Type)
	assert.Equal(t, store.SeverityMedium, anomalies[1].Severity)
	assert.Equal(t, store.AnomalyQuickFlip, anomalies[2].Type)
	assert.Equal(t, store.SeverityMedium, anomalies[2].Severity)
}

func TestMarketImpactLiquidityFallback(t *testing.T) {
	p := NewWalletProfiler(DefaultWeights())
	markets := map[string]store.MarketSnapshot{
		// No liquidity recorded: effective liquidity is 10% of 24h volume
		"0xm": {ConditionID: "0xm", Liquidity: 0, Volume24h: 50000},
	}

	trades := []store.WalletTrade{
		{ConditionID: "0xm", Amount: 2000}, // ratio 0.4
	}

	impact := p.MarketImpact(trades, markets)

	assert.InDelta(t, 0.4, impact.MaxImpact, 0.001)
	assert.Equal(t, 1, impact.LargeImpactTrades)
	// avg > 0.05 and max > 0.2 fire; count needs more than 3 large trades
	assert.Equal(t, 50.0, impact.ManipulationScore)
}

func TestMarketImpactUnknownMarketsSkipped(t *testing.T) {
	p := NewWalletProfiler(DefaultWeights())

	trades := []store.WalletTrade{{ConditionID: "0xmissing", Amount: 5000}}
	impact := p.MarketImpact(trades, map[string]store.MarketSnapshot{})

	assert.Equal(t, 0.0, impact.ManipulationScore)
	assert.Equal(t, 0, impact.LargeImpactTrades)
}

func TestMarketAnomalies(t *testing.T) {
	p := NewWalletProfiler(DefaultWeights())

	concentrated := "0xconcentrated"
	repeat := "0xrepeat"
	quiet := "0xquiet"

	var trades []store.WalletTrade
	// $12000 across 3 trades: high concentration
	for i := 0; i < 3; i++ {
		trades = append(trades, store.WalletTrade{WalletAddress: concentrated, Amount: 4000})
	}
	// 4 trades above $1000, spread thin enough to avoid the concentration flag
	for i := 0; i < 4; i++ {
		trades = append(trades, store.WalletTrade{WalletAddress: repeat, Amount: 1500})
	}
	trades = append(trades, store.WalletTrade{WalletAddress: quiet, Amount: 50})

	anomalies := p.MarketAnomalies(trades)
	require.Len(t, anomalies, 3)

	byWallet := map[string][]string{}
	for _, a := range anomalies {
		byWallet[a.WalletAddress] = append(byWallet[a.WalletAddress], a.Type)
	}

	assert.ElementsMatch(t, []string{store.AnomalyHighConcentration, store.AnomalyLargeTrades}, byWallet[concentrated])
	assert.ElementsMatch(t, []string{store.AnomalyLargeTrades}, byWallet[repeat])
	assert.Empty(t, byWallet[quiet])
}

func TestWalletReportComposite(t *testing.T) {
	p := NewWalletProfiler(DefaultWeights())
	end := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	markets := map[string]store.MarketSnapshot{
		"0xmarket1": {ConditionID: "0xmarket1", Liquidity: 10000, EndDate: end},
		"0xmarket2": {ConditionID: "0xmarket2", Liquidity: 10000, EndDate: end},
	}

	report := p.Report(testWallet, nil, highRiskOutcomes(), markets)

	assert.Equal(t, testWallet, report.WalletAddress)
	assert.Equal(t, 100.0, report.Profile.InsiderScore)
	assert.GreaterOrEqual(t, report.RiskScore, 0.0)
	assert.LessOrEqual(t, report.RiskScore, 100.0)
	// 0.4 * 100 profitability alone puts the wallet at routine monitoring
	assert.GreaterOrEqual(t, report.RiskScore, 40.0)
	assert.NotEmpty(t, report.Recommendation)
}

func TestWalletReportRecommendationLevels(t *testing.T) {
	p := NewWalletProfiler(DefaultWeights())

	// No outcomes, no trades: nothing to flag
	report := p.Report(testWallet, nil, nil, nil)

	assert.Equal(t, 0.0, report.RiskScore)
	assert.Equal(t, store.SeverityNormal, report.RiskLevel)
	assert.Equal(t, RecommendNone, report.Recommendation)
}
