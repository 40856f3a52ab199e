package domain

import "time"

const (
	// MinQuality is the lowest recall quality (complete blackout).
	MinQuality = 0

	// MaxQuality is the highest recall quality (perfect response).
	MaxQuality = 5

	// PassingQuality is the lowest quality counted as a successful recall.
	PassingQuality = 3
)

// Grade is the recall signal supplied for one review. TimeSpent and
// Confidence are optional and only used by adjusted scheduling strategies.
type Grade struct {
	Quality    int            `json:"quality"`
	TimeSpent  *time.Duration `json:"time_spent,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
}

// Validate checks the grade is within range.
func (g Grade) Validate() error {
	if g.Quality < MinQuality || g.Quality > MaxQuality {
		return ErrInvalidQuality
	}
	if g.Confidence != nil && (*g.Confidence < 0 || *g.Confidence > 1) {
		return ErrInvalidConfidence
	}
	if g.TimeSpent != nil && *g.TimeSpent < 0 {
		return ErrInvalidTimeSpent
	}
	return nil
}

// IsSuccess reports whether the grade counts as a successful recall.
func (g Grade) IsSuccess() bool {
	return g.Quality >= PassingQuality
}
