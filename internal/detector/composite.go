package detector

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/polysentinel/engine/internal/store"
)

// Component score names used in AlertReport.ComponentScores
const (
	ComponentVolume        = "volume"
	ComponentPrice         = "price_volatility"
	ComponentWallet        = "wallet_activity"
	ComponentLiquidity     = "liquidity_mismatch"
	ComponentProfitability = "profitability"
	ComponentImpact        = "market_impact"
	ComponentTiming        = "timing"
	ComponentFraming       = "framing"
	ComponentCreator       = "creator"
)

// MarketScorer fuses the per-signal detector outputs into a single market
// alert report. Volume contributes up to 40 points, price volatility up to
// 25, wallet anomalies up to 25, and a liquidity/volume mismatch adds 10.
// Contributions are additive and the sum is clamped to [0,100].
type MarketScorer struct {
	weights    Weights
	volume     *VolumeDetector
	volatility *VolatilityAnalyzer
	profiler   *WalletProfiler
	creation   *CreationAnalyzer
}

// NewMarketScorer creates a MarketScorer and its component detectors.
func NewMarketScorer(w Weights) *MarketScorer {
	return &MarketScorer{
		weights:    w,
		volume:     NewVolumeDetector(w),
		volatility: NewVolatilityAnalyzer(w),
		profiler:   NewWalletProfiler(w),
		creation:   NewCreationAnalyzer(w),
	}
}

// Volume exposes the underlying volume detector.
func (s *MarketScorer) Volume() *VolumeDetector { return s.volume }

// Volatility exposes the underlying volatility analyzer.
func (s *MarketScorer) Volatility() *VolatilityAnalyzer { return s.volatility }

// Profiler exposes the underlying wallet profiler.
func (s *MarketScorer) Profiler() *WalletProfiler { return s.profiler }

// Creation exposes the underlying creation analyzer.
func (s *MarketScorer) Creation() *CreationAnalyzer { return s.creation }

// ScoreMarket scores one market snapshot against its volume history, price
// history, and recent trades. All inputs are materialized by the caller; the
// scorer performs no I/O and the same inputs always produce the same score.
func (s *MarketScorer) ScoreMarket(snap store.MarketSnapshot, volumes []store.VolumeSample, prices []store.PriceSample, trades []store.WalletTrade) store.AlertReport {
	w := s.weights

	vres := s.volume.Score(snap.Volume24h, volumes)
	pres := s.volatility.Score(snap.YesProbability, prices)
	anomalies := s.profiler.MarketAnomalies(trades)

	var score float64
	var reasons []string
	components := map[string]float64{
		ComponentVolume:    0,
		ComponentPrice:     0,
		ComponentWallet:    0,
		ComponentLiquidity: 0,
	}

	if vres.ZScore > w.VolumeZHigh {
		score += w.MarketVolumeHigh
		components[ComponentVolume] = w.MarketVolumeHigh
		reasons = append(reasons, vres.Rationale)
	} else if vres.ZScore > w.VolumeZModerate {
		score += w.MarketVolumeModerate
		components[ComponentVolume] = w.MarketVolumeModerate
		reasons = append(reasons, vres.Rationale)
	}

	if pres.Ratio > w.VolatilityHigh {
		score += w.MarketPriceHigh
		components[ComponentPrice] = w.MarketPriceHigh
		reasons = append(reasons, pres.Rationale)
	} else if pres.Ratio > w.VolatilityModerate {
		score += w.MarketPriceModerate
		components[ComponentPrice] = w.MarketPriceModerate
		reasons = append(reasons, pres.Rationale)
	}

	// Highest-severity bucket present decides the wallet contribution.
	var high, medium []store.WalletAnomaly
	for _, a := range anomalies {
		switch a.Severity {
		case store.SeverityHigh:
			high = append(high, a)
		case store.SeverityMedium:
			medium = append(medium, a)
		}
	}
	if len(high) > 0 {
		score += w.MarketWalletHigh
		components[ComponentWallet] = w.MarketWalletHigh
		for _, a := range high {
			reasons = append(reasons, a.Description)
		}
	} else if len(medium) > 0 {
		score += w.MarketWalletMedium
		components[ComponentWallet] = w.MarketWalletMedium
		for _, a := range medium {
			reasons = append(reasons, a.Description)
		}
	}

	if snap.Liquidity < w.MismatchMaxLiquidity && snap.Volume24h > w.MismatchMinVolume {
		score += w.LiquidityMismatchBonus
		components[ComponentLiquidity] = w.LiquidityMismatchBonus
		reasons = append(reasons, "High volume in low liquidity market")
	}

	score = clamp(score)

	return store.AlertReport{
		ID:              uuid.NewString(),
		SubjectID:       snap.ConditionID,
		SubjectType:     store.SubjectMarket,
		Score:           score,
		Tier:            w.ClassifyTier(score),
		Reasons:         reasons,
		ComponentScores: components,
		GeneratedAt:     time.Now().UTC(),
	}
}

// WalletAlert converts a wallet report into the common alert report shape.
func (s *MarketScorer) WalletAlert(report store.WalletReport) store.AlertReport {
	timingScore := math.Min(100, float64(len(report.TimingAnomalies))*s.weights.TimingAnomalyUnit)

	reasons := []string{
		fmt.Sprintf("Win rate %.0f%% over %d closed trades", report.Profile.WinRate*100, report.Profile.TotalTrades),
	}
	if report.Profile.InsiderScore > 0 {
		reasons = append(reasons, fmt.Sprintf("Profitability pattern score %.0f/100", report.Profile.InsiderScore))
	}
	if report.Impact.ManipulationScore > 0 {
		reasons = append(reasons, fmt.Sprintf("Market impact score %.0f/100 (max impact %.0f%% of liquidity)",
			report.Impact.ManipulationScore, report.Impact.MaxImpact*100))
	}
	for _, a := range report.TimingAnomalies {
		reasons = append(reasons, a.Description)
	}
	reasons = append(reasons, report.Recommendation)

	return store.AlertReport{
		ID:          uuid.NewString(),
		SubjectID:   report.WalletAddress,
		SubjectType: store.SubjectWallet,
		Score:       report.RiskScore,
		Tier:        s.weights.ClassifyTier(report.RiskScore),
		Reasons:     reasons,
		ComponentScores: map[string]float64{
			ComponentProfitability: report.Profile.InsiderScore,
			ComponentImpact:        report.Impact.ManipulationScore,
			ComponentTiming:        timingScore,
		},
		GeneratedAt: report.GeneratedAt,
	}
}

// CreationAlert converts a creation report into the common alert report shape.
func (s *MarketScorer) CreationAlert(report store.CreationReport) store.AlertReport {
	return store.AlertReport{
		ID:          uuid.NewString(),
		SubjectID:   report.ConditionID,
		SubjectType: store.SubjectCreation,
		Score:       report.Score,
		Tier:        s.weights.ClassifyTier(report.Score),
		Reasons:     append([]string{}, append(report.Reasons, report.Recommendation)...),
		ComponentScores: map[string]float64{
			ComponentFraming:   report.FramingScore,
			ComponentTiming:    report.TimingScore,
			ComponentCreator:   report.CreatorScore,
			ComponentLiquidity: report.LiquidityScore,
		},
		GeneratedAt: report.GeneratedAt,
	}
}
