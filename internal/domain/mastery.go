package domain

import "fmt"

// MasteryLevel is a coarse progress label derived from a card's schedule.
type MasteryLevel string

// Mastery levels in order of progress.
const (
	MasteryLearning  MasteryLevel = "learning"
	MasteryReviewing MasteryLevel = "reviewing"
	MasteryMastered  MasteryLevel = "mastered"
)

// Thresholds for ClassifyMastery.
const (
	learningRepetitions  = 3
	reviewingRepetitions = 10
	reviewingInterval    = 30
)

// ClassifyMastery labels a card as learning, reviewing or mastered.
func ClassifyMastery(c *Card) MasteryLevel {
	switch {
	case c.Repetitions < learningRepetitions:
		return MasteryLearning
	case c.Repetitions < reviewingRepetitions && c.IntervalDays < reviewingInterval:
		return MasteryReviewing
	default:
		return MasteryMastered
	}
}

// ParseMasteryLevel converts a string to a MasteryLevel.
func ParseMasteryLevel(s string) (MasteryLevel, error) {
	switch MasteryLevel(s) {
	case MasteryLearning, MasteryReviewing, MasteryMastered:
		return MasteryLevel(s), nil
	default:
		return "", fmt.Errorf("%w: unknown mastery level %q", ErrValidation, s)
	}
}
