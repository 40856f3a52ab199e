package srs

import (
	"math"
	"time"

	"github.com/phrazzld/scry-engine/internal/domain"
)

// Bounds for the adjusted strategy's multipliers.
const (
	minTimeMultiplier = 0.5
	maxTimeMultiplier = 1.5
)

// calculateNewEaseFactor applies the SM-2 ease update for a recall quality.
//
// A successful recall (quality >= 3) adds 0.1 - (5-q)*(0.08 + (5-q)*0.02),
// which is +0.1 for a perfect answer and -0.14 for a barely passing one.
// A failed recall subtracts params.FailurePenalty. The result is always
// clamped to [params.MinEaseFactor, params.MaxEaseFactor].
func calculateNewEaseFactor(currentEF float64, quality int, params *Params) float64 {
	var newEF float64
	if quality >= domain.PassingQuality {
		d := float64(domain.MaxQuality - quality)
		newEF = currentEF + (0.1 - d*(0.08+d*0.02))
	} else {
		newEF = currentEF - params.FailurePenalty
	}

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}
	if newEF > params.MaxEaseFactor {
		newEF = params.MaxEaseFactor
	}
	return newEF
}

// calculateNewInterval returns the interval in days for the repetition count
// the card has after the review.
//
//   - repetitions 0 (a failed recall): 1 day
//   - repetitions 1: params.FirstInterval
//   - repetitions 2: params.SecondInterval
//   - otherwise: the previous interval scaled by the new ease, rounded
func calculateNewInterval(prevInterval, newRepetitions int, newEF float64, params *Params) int {
	switch {
	case newRepetitions == 0:
		return 1
	case newRepetitions == 1:
		return params.FirstInterval
	case newRepetitions == 2:
		return params.SecondInterval
	}

	interval := int(math.Round(float64(prevInterval) * newEF))
	if interval < 1 {
		interval = 1
	}
	return interval
}

// adjustInterval scales a successful interval by how confident and how fast
// the response was. Returns interval unchanged when either signal is missing.
//
// The confidence multiplier is 0.8 + 0.4*confidence, in [0.8, 1.2].
// The time multiplier is target/timeSpent clamped to [0.5, 1.5], so slow
// answers shrink the interval and quick ones grow it.
func adjustInterval(interval int, grade domain.Grade, params *Params) int {
	if grade.TimeSpent == nil || grade.Confidence == nil {
		return interval
	}

	confidenceMultiplier := 0.8 + 0.4**grade.Confidence

	timeMultiplier := maxTimeMultiplier
	if spent := *grade.TimeSpent; spent > 0 {
		timeMultiplier = params.TargetResponseTime.Seconds() / spent.Seconds()
	}
	timeMultiplier = math.Max(minTimeMultiplier, math.Min(maxTimeMultiplier, timeMultiplier))

	adjusted := int(math.Round(float64(interval) * confidenceMultiplier * timeMultiplier))
	if adjusted < 1 {
		adjusted = 1
	}
	return adjusted
}

// calculateNextCard returns a new card with the schedule that results from
// grading card at now. The input card is not modified.
func calculateNextCard(card *domain.Card, grade domain.Grade, now time.Time, params *Params) *domain.Card {
	next := card.Clone()
	now = now.UTC()

	next.EaseFactor = calculateNewEaseFactor(card.EaseFactor, grade.Quality, params)

	if grade.IsSuccess() {
		next.Repetitions = card.Repetitions + 1
	} else {
		next.Repetitions = 0
	}

	next.IntervalDays = calculateNewInterval(card.IntervalDays, next.Repetitions, next.EaseFactor, params)
	if grade.IsSuccess() && params.Strategy == StrategySM2Adjusted {
		next.IntervalDays = adjustInterval(next.IntervalDays, grade, params)
	}

	next.NextReviewAt = now.AddDate(0, 0, next.IntervalDays)
	next.LastReviewedAt = &now
	next.UpdatedAt = now

	if params.MasteryIntervalDays > 0 && next.IntervalDays >= params.MasteryIntervalDays {
		next.Active = false
	}

	return next
}
