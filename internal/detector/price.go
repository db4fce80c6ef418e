package detector

import (
	"fmt"
	"math"
	"sort"

	"github.com/polysentinel/engine/internal/store"
)

// PriceResult is the outcome of comparing the latest price movement against
// the market's mean historical movement magnitude.
type PriceResult struct {
	// Ratio is current movement divided by mean historical movement
	Ratio float64

	// Level classifies the movement (NORMAL, MODERATE, HIGH)
	Level store.Severity

	// Rationale is the human-readable explanation
	Rationale string
}

// VolatilityAnalyzer compares the latest price move against the mean absolute
// consecutive-change magnitude of the history window.
type VolatilityAnalyzer struct {
	weights Weights
}

// NewVolatilityAnalyzer creates a VolatilityAnalyzer with the given weights.
func NewVolatilityAnalyzer(w Weights) *VolatilityAnalyzer {
	return &VolatilityAnalyzer{weights: w}
}

// Score computes the volatility ratio of current against history. History may
// arrive oldest-first or newest-first; samples are ordered by timestamp before
// differencing, and "latest" always means the most recent timestamp.
func (a *VolatilityAnalyzer) Score(current float64, history []store.PriceSample) PriceResult {
	if len(history) < a.weights.PriceMinSamples {
		return PriceResult{
			Level:     store.SeverityNormal,
			Rationale: "Insufficient price history",
		}
	}

	ordered := make([]store.PriceSample, len(history))
	copy(ordered, history)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	changes := make([]float64, 0, len(ordered)-1)
	for i := 1; i < len(ordered); i++ {
		changes = append(changes, math.Abs(ordered[i].Value-ordered[i-1].Value))
	}

	avgChange := mean(changes)
	if avgChange == 0 {
		return PriceResult{
			Level:     store.SeverityNormal,
			Rationale: "No price changes detected",
		}
	}

	currentChange := math.Abs(current - ordered[len(ordered)-1].Value)
	ratio := currentChange / avgChange

	var level store.Severity
	var rationale string
	switch {
	case ratio > a.weights.VolatilityHigh:
		level = store.SeverityHigh
		rationale = fmt.Sprintf("Price move %.1fx above normal volatility", ratio)
	case ratio > a.weights.VolatilityModerate:
		level = store.SeverityModerate
		rationale = fmt.Sprintf("Price move %.1fx above normal volatility", ratio)
	default:
		level = store.SeverityNormal
		rationale = "Normal price movement"
	}

	return PriceResult{Ratio: ratio, Level: level, Rationale: rationale}
}
