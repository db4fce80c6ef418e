package detector

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/polysentinel/engine/internal/store"
)

// Recommendation strings per wallet risk level
const (
	RecommendImmediate = "IMMEDIATE INVESTIGATION REQUIRED"
	RecommendClose     = "CLOSE MONITORING ADVISED"
	RecommendRoutine   = "ROUTINE MONITORING"
	RecommendNone      = "NO CONCERN"
)

// WalletProfiler aggregates a wallet's trade history into concentration,
// size, profitability, timing, and market-impact signals, and fuses them into
// an insider-likelihood risk score.
type WalletProfiler struct {
	weights Weights
}

// NewWalletProfiler creates a WalletProfiler with the given weights.
func NewWalletProfiler(w Weights) *WalletProfiler {
	return &WalletProfiler{weights: w}
}

// Profile computes profitability statistics and the insider sub-score from a
// wallet's matched trade outcomes. Zero outcomes yield a zero profile.
func (p *WalletProfiler) Profile(wallet string, outcomes []store.TradeOutcome) store.WalletProfile {
	profile := store.WalletProfile{WalletAddress: wallet}
	if len(outcomes) == 0 {
		return profile
	}

	var totalProfit, totalProfits, totalLosses, totalHold float64
	var profitable, quickProfits, heldCount int
	for _, o := range outcomes {
		totalProfit += o.ProfitLoss
		if o.ProfitLoss > 0 {
			profitable++
			totalProfits += o.ProfitLoss
			if o.HoldDurationHours > 0 && o.HoldDurationHours < p.weights.QuickProfitHours {
				quickProfits++
			}
		} else if o.ProfitLoss < 0 {
			totalLosses += -o.ProfitLoss
		}
		if o.HoldDurationHours > 0 {
			totalHold += o.HoldDurationHours
			heldCount++
		}
		if o.ProfitLoss > profile.MaxProfit {
			profile.MaxProfit = o.ProfitLoss
		}
		if o.Amount > profile.LargestTrade {
			profile.LargestTrade = o.Amount
		}
	}

	profile.TotalTrades = len(outcomes)
	profile.WinRate = float64(profitable) / float64(len(outcomes))
	profile.AvgProfit = totalProfit / float64(len(outcomes))
	if heldCount > 0 {
		profile.AvgHoldHours = totalHold / float64(heldCount)
	}
	if profitable > 0 {
		profile.QuickFlipRatio = float64(quickProfits) / float64(profitable)
	}

	// Profit factor: gains over losses, +Inf for pure winners, 0 otherwise.
	switch {
	case totalLosses > 0:
		profile.ProfitFactor = totalProfits / totalLosses
	case totalProfits > 0:
		profile.ProfitFactor = math.Inf(1)
	}

	w := p.weights
	var score float64
	if profile.WinRate > w.WinRateThreshold && profile.TotalTrades >= w.WinRateMinTrades {
		score += w.WinRatePoints
	}
	if profile.ProfitFactor > w.ProfitFactorMin {
		score += w.ProfitFactorPoints
	}
	if profile.AvgProfit > w.AvgProfitMin {
		score += w.AvgProfitPoints
	}
	if profile.QuickFlipRatio > w.QuickFlipRatioMin {
		score += w.QuickFlipPoints
	}
	if profile.LargestTrade > w.LargestTradeMin {
		score += w.LargestTradePoints
	}
	profile.InsiderScore = clamp(score)

	return profile
}

// TimingAnomalies flags outcomes entered shortly before market resolution and
// positions closed unusually fast. Markets missing from the lookup are skipped.
func (p *WalletProfiler) TimingAnomalies(wallet string, outcomes []store.TradeOutcome, markets map[string]store.MarketSnapshot) []store.WalletAnomaly {
	var anomalies []store.WalletAnomaly

	for _, o := range outcomes {
		market, ok := markets[o.ConditionID]
		if ok && !market.EndDate.IsZero() {
			hours := market.EndDate.Sub(o.EntryTime).Hours()
			if hours > 0 && hours < p.weights.LastMinuteHours {
				severity := store.SeverityMedium
				if hours < p.weights.LastMinuteHighHours {
					severity = store.SeverityHigh
				}
				anomalies = append(anomalies, store.WalletAnomaly{
					Type:          store.AnomalyLastMinuteTrading,
					WalletAddress: wallet,
					ConditionID:   o.ConditionID,
					Description:   fmt.Sprintf("Trade placed %.1f hours before market resolution", hours),
					Severity:      severity,
				})
			}
		}

		if o.HoldDurationHours > 0 && o.HoldDurationHours < p.weights.QuickFlipHoldHours {
			anomalies = append(anomalies, store.WalletAnomaly{
				Type:          store.AnomalyQuickFlip,
				WalletAddress: wallet,
				ConditionID:   o.ConditionID,
				Description:   fmt.Sprintf("Position closed in %.1f hours", o.HoldDurationHours),
				Severity:      store.SeverityMedium,
			})
		}
	}

	return anomalies
}

// MarketImpact measures a wallet's trade sizes relative to the liquidity of
// the markets it traded. Markets with no recorded liquidity fall back to a
// fraction of their 24h volume as the effective liquidity.
func (p *WalletProfiler) MarketImpact(trades []store.WalletTrade, markets map[string]store.MarketSnapshot) store.ImpactProfile {
	var impact store.ImpactProfile
	var ratios []float64

	for _, t := range trades {
		market, ok := markets[t.ConditionID]
		if !ok {
			continue
		}

		effective := market.Liquidity
		if effective <= 0 {
			effective = market.Volume24h * p.weights.LiquidityVolumeFactor
		}

		var ratio float64
		if effective > 0 {
			ratio = t.Amount / effective
		}
		ratios = append(ratios, ratio)

		if ratio > p.weights.ImpactLargeRatio {
			impact.LargeImpactTrades++
		}
		if ratio > impact.MaxImpact {
			impact.MaxImpact = ratio
		}
	}

	if len(ratios) == 0 {
		return impact
	}
	impact.AvgImpact = mean(ratios)

	w := p.weights
	var score float64
	if impact.AvgImpact > w.ImpactAvgMin {
		score += w.ImpactAvgPoints
	}
	if impact.LargeImpactTrades > w.ImpactCountMin {
		score += w.ImpactCountPoints
	}
	if impact.MaxImpact > w.ImpactMaxMin {
		score += w.ImpactMaxPoints
	}
	impact.ManipulationScore = clamp(score)

	return impact
}

// MarketAnomalies groups a single market's recent trades by wallet and flags
// concentrated positions and repeated large trades. The result feeds the
// market-level composite scorer.
func (p *WalletProfiler) MarketAnomalies(trades []store.WalletTrade) []store.WalletAnomaly {
	type walletStats struct {
		totalVolume float64
		tradeCount  int
		largeTrades int
	}

	stats := make(map[string]*walletStats)
	var order []string
	for _, t := range trades {
		s, ok := stats[t.WalletAddress]
		if !ok {
			s = &walletStats{}
			stats[t.WalletAddress] = s
			order = append(order, t.WalletAddress)
		}
		s.totalVolume += t.Amount
		s.tradeCount++
		if t.Amount > p.weights.LargeTradeUSD {
			s.largeTrades++
		}
	}
	sort.Strings(order)

	w := p.weights
	var anomalies []store.WalletAnomaly
	for _, addr := range order {
		s := stats[addr]

		if s.totalVolume > w.ConcentrationVolume && s.tradeCount <= w.ConcentrationMaxTrades {
			anomalies = append(anomalies, store.WalletAnomaly{
				Type:          store.AnomalyHighConcentration,
				WalletAddress: addr,
				Description: fmt.Sprintf("Wallet %s concentrated $%.0f in %d trades",
					shortAddress(addr), s.totalVolume, s.tradeCount),
				Severity: store.SeverityHigh,
			})
		}

		if s.largeTrades >= w.LargeTradeCount {
			anomalies = append(anomalies, store.WalletAnomaly{
				Type:          store.AnomalyLargeTrades,
				WalletAddress: addr,
				Description: fmt.Sprintf("Wallet %s made %d trades above $%.0f",
					shortAddress(addr), s.largeTrades, w.LargeTradeUSD),
				Severity: store.SeverityMedium,
			})
		}
	}

	return anomalies
}

// Report fuses the profitability, impact, and timing signals into the
// wallet's composite risk score with a fixed recommendation per level.
func (p *WalletProfiler) Report(wallet string, trades []store.WalletTrade, outcomes []store.TradeOutcome, markets map[string]store.MarketSnapshot) store.WalletReport {
	profile := p.Profile(wallet, outcomes)
	timing := p.TimingAnomalies(wallet, outcomes, markets)
	impact := p.MarketImpact(trades, markets)

	w := p.weights
	timingScore := math.Min(100, float64(len(timing))*w.TimingAnomalyUnit)
	risk := clamp(profile.InsiderScore*w.WalletProfitWeight +
		impact.ManipulationScore*w.WalletImpactWeight +
		timingScore*w.WalletTimingWeight)

	var level store.Severity
	var recommendation string
	switch {
	case risk >= w.TierExtremeScore:
		level = store.SeverityHigh
		recommendation = RecommendImmediate
	case risk >= w.TierHighScore:
		level = store.SeverityMedium
		recommendation = RecommendClose
	case risk >= w.TierModerateScore:
		level = store.SeverityLow
		recommendation = RecommendRoutine
	default:
		level = store.SeverityNormal
		recommendation = RecommendNone
	}

	return store.WalletReport{
		WalletAddress:   wallet,
		RiskScore:       risk,
		RiskLevel:       level,
		Recommendation:  recommendation,
		Profile:         profile,
		Impact:          impact,
		TimingAnomalies: timing,
		GeneratedAt:     time.Now().UTC(),
	}
}

// shortAddress truncates a wallet address for display.
func shortAddress(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:8] + "..."
}
