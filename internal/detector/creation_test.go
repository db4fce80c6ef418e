package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/polysentinel/engine/internal/store"
)

func TestAnalyzeFramingNeutralQuestion(t *testing.T) {
	a := NewCreationAnalyzer(DefaultWeights())

	res := a.AnalyzeFraming("Who wins the championship?")

	assert.Equal(t, 0.0, res.UrgencyScore)
	assert.Equal(t, 0.0, res.SpecificityScore)
	assert.Equal(t, 0.0, res.LengthScore)
	assert.Equal(t, 0.0, res.TotalScore)
}

func TestAnalyzeFramingUrgentAndSpecific(t *testing.T) {
	a := NewCreationAnalyzer(DefaultWeights())

	res := a.AnalyzeFraming("Will the deal close before Friday, specifically within 48 hours?")

	// "before" and "within" are urgency words
	assert.Equal(t, 20.0, res.UrgencyScore)
	// "specifically" and "will" are specificity words
	assert.Equal(t, 30.0, res.SpecificityScore)
	assert.True(t, res.HasNumbers)
}

func TestAnalyzeFramingWholeWordsOnly(t *testing.T) {
	a := NewCreationAnalyzer(DefaultWeights())

	// "nearby" contains "by" and "willing" contains "will" as substrings only
	res := a.AnalyzeFraming("Is anyone willing to buy the nearby stadium?")

	assert.Equal(t, 0.0, res.UrgencyScore)
	assert.Equal(t, 0.0, res.SpecificityScore)
}

func TestAnalyzeFramingLengthBonus(t *testing.T) {
	a := NewCreationAnalyzer(DefaultWeights())

	// 25 words: 5 over the threshold at 2 points each
	words := make([]string, 25)
	for i := range words {
		words[i] = "token"
	}
	res := a.AnalyzeFraming(joinWords(words))

	assert.Equal(t, 10.0, res.LengthScore)
}

func joinWords(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w
	}
	return out
}

func TestAnalyzeFramingUrgencyCap(t *testing.T) {
	a := NewCreationAnalyzer(DefaultWeights())

	// 6 urgency words at 10 points each, capped at 50
	res := a.AnalyzeFraming("urgent immediate soon within before asap")

	assert.Equal(t, 50.0, res.UrgencyScore)
}

func TestAnalyzeTiming(t *testing.T) {
	a := NewCreationAnalyzer(DefaultWeights())

	// Tuesday 14:00, resolving in 3 days
	created := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	res := a.AnalyzeTiming(created, created.Add(72*time.Hour))

	assert.InDelta(t, 3, res.DaysToResolution, 0.001)
	assert.False(t, res.Weekend)
	assert.Equal(t, 30.0, res.Score)
	assert.Contains(t, res.Reasons, "Created very close to resolution date")
}

func TestAnalyzeTimingCapped(t *testing.T) {
	a := NewCreationAnalyzer(DefaultWeights())

	// Saturday 03:00, resolving in 2 days: 30 + 20 + 10 capped at 50
	created := time.Date(2025, 6, 14, 3, 0, 0, 0, time.UTC)
	res := a.AnalyzeTiming(created, created.Add(48*time.Hour))

	assert.True(t, res.Weekend)
	assert.Equal(t, 50.0, res.Score)
	assert.Len(t, res.Reasons, 3)
}

func TestAnalyzeCreatorEmptyHistory(t *testing.T) {
	a := NewCreationAnalyzer(DefaultWeights())

	res := a.AnalyzeCreator(nil)

	assert.Equal(t, 0, res.TotalMarkets)
	assert.Equal(t, 0.0, res.Score)
}

func TestAnalyzeCreatorLowLiquidityTendency(t *testing.T) {
	a := NewCreationAnalyzer(DefaultWeights())
	created := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	history := []store.CreationRecord{
		{
			ConditionID:       "0xc1",
			Question:          "Who wins the game?",
			CreationTimestamp: created,
			EndDate:           created.Add(90 * 24 * time.Hour),
			InitialLiquidity:  400,
		},
		{
			ConditionID:       "0xc2",
			Question:          "Who wins the rematch?",
			CreationTimestamp: created,
			EndDate:           created.Add(90 * 24 * time.Hour),
			InitialLiquidity:  600,
		},
	}

	res := a.AnalyzeCreator(history)

	assert.Equal(t, 2, res.TotalMarkets)
	assert.InDelta(t, 500, res.AvgLiquidity, 0.001)
	// Average liquidity under $1000 is the only tendency that fires
	assert.Equal(t, 15.0, res.Score)
}

func TestAnalyzeExcludesRecordFromHistory(t *testing.T) {
	a := NewCreationAnalyzer(DefaultWeights())
	created := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)

	rec := store.CreationRecord{
		ConditionID:       "0xself",
		CreatorAddress:    "0xcreator",
		Question:          "Who wins?",
		CreationTimestamp: created,
		EndDate:           created.Add(90 * 24 * time.Hour),
		InitialLiquidity:  5000,
	}

	withSelf := a.Analyze(rec, []store.CreationRecord{rec})
	alone := a.Analyze(rec, nil)

	assert.Equal(t, alone.CreatorScore, withSelf.CreatorScore)
	assert.Equal(t, alone.Score, withSelf.Score)
}

func TestAnalyzeHighRiskCreation(t *testing.T) {
	a := NewCreationAnalyzer(DefaultWeights())

	// Saturday 03:00, resolves in 2 days, urgent framing, $100 liquidity
	created := time.Date(2025, 6, 14, 3, 0, 0, 0, time.UTC)
	rec := store.CreationRecord{
		ConditionID:       "0xhot",
		CreatorAddress:    "0xcreator",
		Question:          "Will the urgent acquisition close within 48 hours before Monday?",
		CreationTimestamp: created,
		EndDate:           created.Add(48 * time.Hour),
		InitialLiquidity:  100,
	}

	report := a.Analyze(rec, nil)

	assert.Greater(t, report.Score, 0.0)
	assert.LessOrEqual(t, report.Score, 100.0)
	assert.Greater(t, report.FramingScore, 0.0)
	assert.Equal(t, 50.0, report.TimingScore)
	assert.Equal(t, 20.0, report.LiquidityScore)
	assert.NotEmpty(t, report.Reasons)
}

func TestScoreLiquidityBands(t *testing.T) {
	a := NewCreationAnalyzer(DefaultWeights())

	assert.Equal(t, 20.0, a.scoreLiquidity(100))
	assert.Equal(t, 10.0, a.scoreLiquidity(700))
	assert.Equal(t, 0.0, a.scoreLiquidity(5000))
}
