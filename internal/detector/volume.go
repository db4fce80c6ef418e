package detector

import (
	"fmt"
	"math"

	"github.com/polysentinel/engine/internal/store"
)

// VolumeResult is the outcome of scoring one market's current volume against
// its historical baseline.
type VolumeResult struct {
	// ZScore is the one-sided z-score, never negative
	ZScore float64

	// Level classifies the spike (NORMAL, MODERATE, HIGH, EXTREME)
	Level store.Severity

	// Rationale is the human-readable explanation
	Rationale string
}

// VolumeDetector scores volume spikes with a one-sided z-score against a
// historical baseline. Volume collapses (negative deviations) always score
// zero; only spikes carry signal here.
type VolumeDetector struct {
	weights Weights
}

// NewVolumeDetector creates a VolumeDetector with the given weights.
func NewVolumeDetector(w Weights) *VolumeDetector {
	return &VolumeDetector{weights: w}
}

// Score computes the z-score of current against history. With fewer than the
// minimum samples, or zero variance, it returns a zero score with an explicit
// rationale rather than a zero that reads as "normal".
func (d *VolumeDetector) Score(current float64, history []store.VolumeSample) VolumeResult {
	if len(history) < d.weights.VolumeMinSamples {
		return VolumeResult{
			Level:     store.SeverityNormal,
			Rationale: "Insufficient historical data",
		}
	}

	values := make([]float64, len(history))
	for i, s := range history {
		values[i] = s.Value
	}

	mu := mean(values)
	sigma := populationStdDev(values, mu)
	if sigma == 0 {
		return VolumeResult{
			Level:     store.SeverityNormal,
			Rationale: "No variance in historical volume",
		}
	}

	z := math.Max(0, (current-mu)/sigma)

	var level store.Severity
	var rationale string
	switch {
	case z > d.weights.VolumeZExtreme:
		level = store.SeverityExtreme
		rationale = fmt.Sprintf("Volume spike %.1fσ above normal (extremely unusual)", z)
	case z > d.weights.VolumeZHigh:
		level = store.SeverityHigh
		rationale = fmt.Sprintf("Volume spike %.1fσ above normal (highly unusual)", z)
	case z > d.weights.VolumeZModerate:
		level = store.SeverityModerate
		rationale = fmt.Sprintf("Volume spike %.1fσ above normal (unusual)", z)
	default:
		level = store.SeverityNormal
		rationale = "Normal trading volume"
	}

	return VolumeResult{ZScore: z, Level: level, Rationale: rationale}
}

// mean returns the arithmetic mean of values; zero for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// populationStdDev returns the population standard deviation around mu.
func populationStdDev(values []float64, mu float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mu
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
