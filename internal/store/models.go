// Package store provides the data model shared by the scoring engine,
// ingestion, and history storage.
package store

import "time"

// MarketSnapshot is a point-in-time view of a single market. Snapshots are
// immutable once handed to the scoring engine; missing upstream fields are
// substituted at the ingestion boundary (volume/liquidity 0,
// probability 0.5, category "Uncategorized").
type MarketSnapshot struct {
	// ConditionID is the unique market identifier
	ConditionID string

	// Question is the market's question text
	Question string

	// Category groups related markets (e.g. Politics, Sports)
	Category string

	// Volume24h is the trailing 24h trade volume in USD
	Volume24h float64

	// Liquidity is the capital available to absorb trades
	Liquidity float64

	// YesProbability is the market-implied probability of YES, in [0,1]
	YesProbability float64

	// EndDate is the scheduled resolution time
	EndDate time.Time

	// CreatedAt is when the market was created (or first seen)
	CreatedAt time.Time
}

// Trade sides
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// WalletTrade is a single observed trade attributed to a wallet.
type WalletTrade struct {
	// WalletAddress is the trading wallet
	WalletAddress string

	// ConditionID is the market traded
	ConditionID string

	// Amount is the USD size of the trade, always positive
	Amount float64

	// TradeType is BUY or SELL
	TradeType string

	// OutcomeIndex is the outcome token index traded (0 = YES)
	OutcomeIndex int

	// Timestamp is when the trade executed
	Timestamp time.Time
}

// TradeOutcome is a matched entry/exit pair for a wallet position. Pairing
// entries to exits is an upstream concern; outcomes arrive pre-matched.
type TradeOutcome struct {
	WalletAddress string
	ConditionID   string
	EntryPrice    float64
	ExitPrice     float64
	Amount        float64
	ProfitLoss    float64
	EntryTime     time.Time
	ExitTime      time.Time

	// HoldDurationHours is the position hold time, never negative
	HoldDurationHours float64
}

// VolumeSample is one historical 24h-volume observation for a market.
type VolumeSample struct {
	Value     float64
	Timestamp time.Time
}

// PriceSample is one historical YES-probability observation for a market.
type PriceSample struct {
	Value     float64
	Timestamp time.Time
}

// CreationRecord captures how and when a market was created.
type CreationRecord struct {
	ConditionID       string
	CreatorAddress    string
	Question          string
	CreationTimestamp time.Time
	EndDate           time.Time
	InitialLiquidity  float64
}

// SubjectType identifies what an alert report scores.
type SubjectType string

const (
	SubjectMarket   SubjectType = "MARKET"
	SubjectWallet   SubjectType = "WALLET"
	SubjectCreation SubjectType = "CREATION"
)

// Tier buckets a 0-100 risk score.
type Tier string

const (
	TierLow      Tier = "LOW"
	TierModerate Tier = "MODERATE"
	TierHigh     Tier = "HIGH"
	TierExtreme  Tier = "EXTREME"
)

// Severity grades an individual anomaly or signal.
type Severity string

const (
	SeverityNormal   Severity = "NORMAL"
	SeverityLow      Severity = "LOW"
	SeverityModerate Severity = "MODERATE"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityExtreme  Severity = "EXTREME"
)

// Anomaly types emitted by the wallet profiler
const (
	AnomalyHighConcentration = "HIGH_CONCENTRATION"
	AnomalyLargeTrades       = "LARGE_TRADES"
	AnomalyLastMinuteTrading = "LAST_MINUTE_TRADING"
	AnomalyQuickFlip         = "QUICK_FLIP"
)

// WalletAnomaly is a single flagged behavior pattern for a wallet.
type WalletAnomaly struct {
	Type          string
	WalletAddress string
	ConditionID   string
	Description   string
	Severity      Severity
}

// WalletProfile aggregates a wallet's closed trades. Recomputed per request,
// never persisted.
type WalletProfile struct {
	WalletAddress  string
	TotalTrades    int
	WinRate        float64
	AvgProfit      float64
	MaxProfit      float64
	AvgHoldHours   float64
	ProfitFactor   float64
	QuickFlipRatio float64
	LargestTrade   float64
	InsiderScore   float64
}

// ImpactProfile summarizes a wallet's footprint relative to market liquidity.
type ImpactProfile struct {
	AvgImpact         float64
	MaxImpact         float64
	LargeImpactTrades int
	ManipulationScore float64
}

// WalletReport is the full behavioral assessment of one wallet.
type WalletReport struct {
	WalletAddress   string
	RiskScore       float64
	RiskLevel       Severity
	Recommendation  string
	Profile         WalletProfile
	Impact          ImpactProfile
	TimingAnomalies []WalletAnomaly
	GeneratedAt     time.Time
}

// CreationReport is the assessment of a single market-creation event.
type CreationReport struct {
	ConditionID      string
	CreatorAddress   string
	Score            float64
	Level            Severity
	Recommendation   string
	FramingScore     float64
	TimingScore      float64
	CreatorScore     float64
	LiquidityScore   float64
	HasSpecificDates bool
	HasNumbers       bool
	Reasons          []string
	GeneratedAt      time.Time
}

// AlertReport is the engine's output for one scored entity. Exported
// serializations (CSV/JSON) mirror this field set verbatim.
type AlertReport struct {
	ID              string             `json:"id"`
	SubjectID       string             `json:"subject_id"`
	SubjectType     SubjectType        `json:"subject_type"`
	Score           float64            `json:"score"`
	Tier            Tier               `json:"tier"`
	Reasons         []string           `json:"reasons"`
	ComponentScores map[string]float64 `json:"component_scores"`
	GeneratedAt     time.Time          `json:"generated_at"`
}
