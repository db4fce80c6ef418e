// Package detector implements the anomaly-scoring components: volume spike
// detection, price volatility analysis, wallet behavior profiling, market
// creation analysis, and the composite scorer that fuses them into a single
// 0-100 risk rating.
//
// All detectors are stateless and constructed with a Weights value; scoring
// methods are pure functions over fully materialized inputs, so batch scans
// can run one goroutine per entity with no shared state.
package detector

import "github.com/polysentinel/engine/internal/store"

// Weights centralizes every threshold and weight used across the detectors.
// Classification cut-offs are defined here once rather than duplicated per
// signal.
type Weights struct {
	// Volume z-score tiers
	VolumeMinSamples int
	VolumeZModerate  float64
	VolumeZHigh      float64
	VolumeZExtreme   float64

	// Price volatility ratio tiers
	PriceMinSamples    int
	VolatilityModerate float64
	VolatilityHigh     float64

	// Market composite fusion points
	MarketVolumeHigh       float64
	MarketVolumeModerate   float64
	MarketPriceHigh        float64
	MarketPriceModerate    float64
	MarketWalletHigh       float64
	MarketWalletMedium     float64
	LiquidityMismatchBonus float64

	// Liquidity/volume mismatch condition
	MismatchMaxLiquidity float64
	MismatchMinVolume    float64

	// Per-market wallet anomaly thresholds
	ConcentrationVolume    float64
	ConcentrationMaxTrades int
	LargeTradeUSD          float64
	LargeTradeCount        int

	// Wallet profitability sub-scores
	WinRateThreshold   float64
	WinRateMinTrades   int
	WinRatePoints      float64
	ProfitFactorMin    float64
	ProfitFactorPoints float64
	AvgProfitMin       float64
	AvgProfitPoints    float64
	QuickFlipRatioMin  float64
	QuickFlipPoints    float64
	LargestTradeMin    float64
	LargestTradePoints float64
	QuickProfitHours   float64

	// Wallet timing anomalies
	LastMinuteHours     float64
	LastMinuteHighHours float64
	QuickFlipHoldHours  float64

	// Wallet market impact
	ImpactLargeRatio      float64
	ImpactAvgMin          float64
	ImpactAvgPoints       float64
	ImpactCountMin        int
	ImpactCountPoints     float64
	ImpactMaxMin          float64
	ImpactMaxPoints       float64
	LiquidityVolumeFactor float64

	// Wallet composite weights and per-anomaly points
	WalletProfitWeight float64
	WalletImpactWeight float64
	WalletTimingWeight float64
	TimingAnomalyUnit  float64

	// Creation framing
	UrgencyWordPoints     float64
	UrgencyCap            float64
	SpecificityWordPoints float64
	SpecificityCap        float64
	LengthWordThreshold   int
	LengthPointsPerWord   float64
	LengthCap             float64

	// Creation timing
	NearResolutionDays    float64
	NearResolutionPoints  float64
	CloseResolutionDays   float64
	CloseResolutionPoints float64
	OffHoursStart         int
	OffHoursEnd           int
	OffHoursPoints        float64
	WeekendPoints         float64
	CreationTimingCap     float64

	// Creator history
	UrgencyTendencyMin    float64
	UrgencyTendencyPoints float64
	InsiderTendencyMin    float64
	InsiderTendencyPoints float64
	ProlificCreatorCount  int
	ProlificCreatorPoints float64
	ActiveCreatorCount    int
	ActiveCreatorPoints   float64
	LowAvgLiquidity       float64
	LowAvgLiquidityPoints float64

	// Creation initial liquidity
	VeryLowLiquidity       float64
	VeryLowLiquidityPoints float64
	LowLiquidity           float64
	LowLiquidityPoints     float64

	// Creation composite weights
	FramingWeight   float64
	TimingWeight    float64
	CreatorWeight   float64
	LiquidityWeight float64

	// Shared tier cut-offs
	TierExtremeScore  float64
	TierHighScore     float64
	TierModerateScore float64
}

// DefaultWeights returns the production weight set.
func DefaultWeights() Weights {
	return Weights{
		VolumeMinSamples: 5,
		VolumeZModerate:  2,
		VolumeZHigh:      3,
		VolumeZExtreme:   4,

		PriceMinSamples:    2,
		VolatilityModerate: 2,
		VolatilityHigh:     3,

		MarketVolumeHigh:       40,
		MarketVolumeModerate:   25,
		MarketPriceHigh:        25,
		MarketPriceModerate:    15,
		MarketWalletHigh:       25,
		MarketWalletMedium:     15,
		LiquidityMismatchBonus: 10,

		MismatchMaxLiquidity: 1000,
		MismatchMinVolume:    5000,

		ConcentrationVolume:    10000,
		ConcentrationMaxTrades: 5,
		LargeTradeUSD:          1000,
		LargeTradeCount:        3,

		WinRateThreshold:   0.8,
		WinRateMinTrades:   10,
		WinRatePoints:      30,
		ProfitFactorMin:    3,
		ProfitFactorPoints: 25,
		AvgProfitMin:       1000,
		AvgProfitPoints:    20,
		QuickFlipRatioMin:  0.7,
		QuickFlipPoints:    15,
		LargestTradeMin:    10000,
		LargestTradePoints: 10,
		QuickProfitHours:   24,

		LastMinuteHours:     24,
		LastMinuteHighHours: 6,
		QuickFlipHoldHours:  2,

		ImpactLargeRatio:      0.1,
		ImpactAvgMin:          0.05,
		ImpactAvgPoints:       30,
		ImpactCountMin:        3,
		ImpactCountPoints:     25,
		ImpactMaxMin:          0.2,
		ImpactMaxPoints:       20,
		LiquidityVolumeFactor: 0.1,

		WalletProfitWeight: 0.4,
		WalletImpactWeight: 0.3,
		WalletTimingWeight: 0.3,
		TimingAnomalyUnit:  10,

		UrgencyWordPoints:     10,
		UrgencyCap:            50,
		SpecificityWordPoints: 15,
		SpecificityCap:        45,
		LengthWordThreshold:   20,
		LengthPointsPerWord:   2,
		LengthCap:             30,

		NearResolutionDays:    7,
		NearResolutionPoints:  30,
		CloseResolutionDays:   30,
		CloseResolutionPoints: 15,
		OffHoursStart:         6,
		OffHoursEnd:           22,
		OffHoursPoints:        20,
		WeekendPoints:         10,
		CreationTimingCap:     50,

		UrgencyTendencyMin:    30,
		UrgencyTendencyPoints: 25,
		InsiderTendencyMin:    40,
		InsiderTendencyPoints: 35,
		ProlificCreatorCount:  50,
		ProlificCreatorPoints: 20,
		ActiveCreatorCount:    20,
		ActiveCreatorPoints:   10,
		LowAvgLiquidity:       1000,
		LowAvgLiquidityPoints: 15,

		VeryLowLiquidity:       500,
		VeryLowLiquidityPoints: 20,
		LowLiquidity:           1000,
		LowLiquidityPoints:     10,

		FramingWeight:   0.3,
		TimingWeight:    0.25,
		CreatorWeight:   0.25,
		LiquidityWeight: 0.2,

		TierExtremeScore:  70,
		TierHighScore:     50,
		TierModerateScore: 30,
	}
}

// ClassifyTier buckets a 0-100 score into an alert tier.
func (w Weights) ClassifyTier(score float64) store.Tier {
	switch {
	case score >= w.TierExtremeScore:
		return store.TierExtreme
	case score >= w.TierHighScore:
		return store.TierHigh
	case score >= w.TierModerateScore:
		return store.TierModerate
	default:
		return store.TierLow
	}
}

// clamp bounds a score to [0, 100].
func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
