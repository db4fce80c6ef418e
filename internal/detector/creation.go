package detector

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/polysentinel/engine/internal/store"
)

// Creation recommendation strings
const (
	RecommendCreationImmediate = "IMMEDIATE INVESTIGATION"
	RecommendCreationPriority  = "PRIORITY MONITORING"
)

var (
	urgencyWords = []string{"urgent", "immediate", "soon", "within", "before", "by", "asap", "quickly"}

	specificityWords = []string{
		"exactly", "precisely", "specifically", "particular",
		"certain", "definite", "guaranteed", "will", "shall",
	}

	datePattern   = regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec|\d{1,2}/\d{1,2}|\d{4})\b`)
	numberPattern = regexp.MustCompile(`\b\d+\b`)
	wordPattern   = regexp.MustCompile(`[a-z]+`)
)

// FramingResult breaks down a question's wording signals.
type FramingResult struct {
	UrgencyScore     float64
	SpecificityScore float64
	LengthScore      float64
	TotalScore       float64
	HasSpecificDates bool
	HasNumbers       bool
}

// TimingResult breaks down a creation event's timing signals.
type TimingResult struct {
	DaysToResolution float64
	CreationHour     int
	Weekend          bool
	Score            float64
	Reasons          []string
}

// CreatorResult summarizes a creator's historical tendencies.
type CreatorResult struct {
	TotalMarkets    int
	AvgLiquidity    float64
	UrgencyTendency float64
	InsiderTendency float64
	Score           float64
}

// CreationAnalyzer scores market-creation events on question framing,
// creation timing relative to resolution, the creator's historical tendency,
// and initial liquidity.
type CreationAnalyzer struct {
	weights Weights
}

// NewCreationAnalyzer creates a CreationAnalyzer with the given weights.
func NewCreationAnalyzer(w Weights) *CreationAnalyzer {
	return &CreationAnalyzer{weights: w}
}

// AnalyzeFraming scores a question's wording: urgency words, specificity
// words, and a length bonus for questions over the word threshold. Date and
// number presence are flagged but not scored.
func (a *CreationAnalyzer) AnalyzeFraming(question string) FramingResult {
	lower := strings.ToLower(question)
	w := a.weights

	var urgencyCount int
	for _, word := range urgencyWords {
		if containsWord(lower, word) {
			urgencyCount++
		}
	}
	urgencyScore := math.Min(float64(urgencyCount)*w.UrgencyWordPoints, w.UrgencyCap)

	var specificityCount int
	for _, word := range specificityWords {
		if containsWord(lower, word) {
			specificityCount++
		}
	}
	specificityScore := math.Min(float64(specificityCount)*w.SpecificityWordPoints, w.SpecificityCap)

	var lengthScore float64
	if words := len(strings.Fields(question)); words > w.LengthWordThreshold {
		lengthScore = math.Min(float64(words-w.LengthWordThreshold)*w.LengthPointsPerWord, w.LengthCap)
	}

	return FramingResult{
		UrgencyScore:     urgencyScore,
		SpecificityScore: specificityScore,
		LengthScore:      lengthScore,
		TotalScore:       urgencyScore + specificityScore + lengthScore,
		HasSpecificDates: datePattern.MatchString(lower),
		HasNumbers:       numberPattern.MatchString(question),
	}
}

// AnalyzeTiming scores when a market was created relative to its resolution
// date, plus off-hours and weekend creation.
func (a *CreationAnalyzer) AnalyzeTiming(createdAt, endDate time.Time) TimingResult {
	w := a.weights

	result := TimingResult{
		DaysToResolution: endDate.Sub(createdAt).Hours() / 24,
		CreationHour:     createdAt.Hour(),
		Weekend:          createdAt.Weekday() == time.Saturday || createdAt.Weekday() == time.Sunday,
	}

	var score float64
	if result.DaysToResolution < w.NearResolutionDays {
		score += w.NearResolutionPoints
		result.Reasons = append(result.Reasons, "Created very close to resolution date")
	} else if result.DaysToResolution < w.CloseResolutionDays {
		score += w.CloseResolutionPoints
		result.Reasons = append(result.Reasons, "Created relatively close to resolution")
	}

	if result.CreationHour < w.OffHoursStart || result.CreationHour > w.OffHoursEnd {
		score += w.OffHoursPoints
		result.Reasons = append(result.Reasons, fmt.Sprintf("Created at unusual hour: %d:00", result.CreationHour))
	}

	if result.Weekend {
		score += w.WeekendPoints
		result.Reasons = append(result.Reasons, "Created on weekend")
	}

	result.Score = math.Min(score, w.CreationTimingCap)
	return result
}

// AnalyzeCreator scores a creator's historical creation records. Tendencies
// are recomputed from the raw records: urgency from each stored question,
// and the insider tendency from each record's framing, timing, and liquidity
// components (the creator term is omitted to avoid recursion).
func (a *CreationAnalyzer) AnalyzeCreator(history []store.CreationRecord) CreatorResult {
	result := CreatorResult{TotalMarkets: len(history)}
	if len(history) == 0 {
		return result
	}

	var urgencySum, insiderSum, liquiditySum float64
	var liquidityCount int
	for _, rec := range history {
		framing := a.AnalyzeFraming(rec.Question)
		timing := a.AnalyzeTiming(rec.CreationTimestamp, rec.EndDate)
		liquidity := a.scoreLiquidity(rec.InitialLiquidity)

		urgencySum += framing.UrgencyScore
		insiderSum += framing.TotalScore*a.weights.FramingWeight +
			timing.Score*a.weights.TimingWeight +
			liquidity*a.weights.LiquidityWeight

		if rec.InitialLiquidity > 0 {
			liquiditySum += rec.InitialLiquidity
			liquidityCount++
		}
	}

	result.UrgencyTendency = urgencySum / float64(len(history))
	result.InsiderTendency = insiderSum / float64(len(history))
	if liquidityCount > 0 {
		result.AvgLiquidity = liquiditySum / float64(liquidityCount)
	}

	w := a.weights
	var score float64
	if result.UrgencyTendency > w.UrgencyTendencyMin {
		score += w.UrgencyTendencyPoints
	}
	if result.InsiderTendency > w.InsiderTendencyMin {
		score += w.InsiderTendencyPoints
	}
	if result.TotalMarkets > w.ProlificCreatorCount {
		score += w.ProlificCreatorPoints
	} else if result.TotalMarkets > w.ActiveCreatorCount {
		score += w.ActiveCreatorPoints
	}
	if result.AvgLiquidity < w.LowAvgLiquidity {
		score += w.LowAvgLiquidityPoints
	}
	result.Score = math.Min(score, 100)

	return result
}

// Analyze produces the full creation report for one record, using the
// creator's prior records (excluding the record itself) as history.
func (a *CreationAnalyzer) Analyze(rec store.CreationRecord, history []store.CreationRecord) store.CreationReport {
	prior := make([]store.CreationRecord, 0, len(history))
	for _, h := range history {
		if h.ConditionID != rec.ConditionID {
			prior = append(prior, h)
		}
	}

	framing := a.AnalyzeFraming(rec.Question)
	timing := a.AnalyzeTiming(rec.CreationTimestamp, rec.EndDate)
	creator := a.AnalyzeCreator(prior)
	liquidityScore := a.scoreLiquidity(rec.InitialLiquidity)

	w := a.weights
	score := clamp(framing.TotalScore*w.FramingWeight +
		timing.Score*w.TimingWeight +
		creator.Score*w.CreatorWeight +
		liquidityScore*w.LiquidityWeight)

	var level store.Severity
	var recommendation string
	switch {
	case score >= w.TierExtremeScore:
		level = store.SeverityExtreme
		recommendation = RecommendCreationImmediate
	case score >= w.TierHighScore:
		level = store.SeverityHigh
		recommendation = RecommendCreationPriority
	case score >= w.TierModerateScore:
		level = store.SeverityModerate
		recommendation = RecommendRoutine
	default:
		level = store.SeverityLow
		recommendation = RecommendNone
	}

	reasons := make([]string, 0, len(timing.Reasons)+3)
	if framing.UrgencyScore > 0 {
		reasons = append(reasons, fmt.Sprintf("Urgent question framing (%.0f pts)", framing.UrgencyScore))
	}
	if framing.SpecificityScore > 0 {
		reasons = append(reasons, fmt.Sprintf("Unusually specific question framing (%.0f pts)", framing.SpecificityScore))
	}
	reasons = append(reasons, timing.Reasons...)
	if liquidityScore > 0 {
		reasons = append(reasons, fmt.Sprintf("Low initial liquidity ($%.0f)", rec.InitialLiquidity))
	}

	return store.CreationReport{
		ConditionID:      rec.ConditionID,
		CreatorAddress:   rec.CreatorAddress,
		Score:            score,
		Level:            level,
		Recommendation:   recommendation,
		FramingScore:     framing.TotalScore,
		TimingScore:      timing.Score,
		CreatorScore:     creator.Score,
		LiquidityScore:   liquidityScore,
		HasSpecificDates: framing.HasSpecificDates,
		HasNumbers:       framing.HasNumbers,
		Reasons:          reasons,
		GeneratedAt:      time.Now().UTC(),
	}
}

// scoreLiquidity grades a market's initial liquidity.
func (a *CreationAnalyzer) scoreLiquidity(liquidity float64) float64 {
	switch {
	case liquidity < a.weights.VeryLowLiquidity:
		return a.weights.VeryLowLiquidityPoints
	case liquidity < a.weights.LowLiquidity:
		return a.weights.LowLiquidityPoints
	default:
		return 0
	}
}

// containsWord reports whether lower contains word as a whole word.
func containsWord(lower, word string) bool {
	for _, match := range wordPattern.FindAllString(lower, -1) {
		if match == word {
			return true
		}
	}
	return false
}
