package domain

import (
	"testing"
	"time"
)

func TestGradeValidate(t *testing.T) {
	t.Parallel()
	conf := func(v float64) *float64 { return &v }
	dur := func(d time.Duration) *time.Duration { return &d }

	tests := []struct {
		name  string
		grade Grade
		want  error
	}{
		{"lowest quality", Grade{Quality: 0}, nil},
		{"highest quality", Grade{Quality: 5}, nil},
		{"quality too low", Grade{Quality: -1}, ErrInvalidQuality},
		{"quality too high", Grade{Quality: 6}, ErrInvalidQuality},
		{"confidence in range", Grade{Quality: 4, Confidence: conf(0.5)}, nil},
		{"confidence above one", Grade{Quality: 4, Confidence: conf(1.1)}, ErrInvalidConfidence},
		{"negative time", Grade{Quality: 4, TimeSpent: dur(-time.Second)}, ErrInvalidTimeSpent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.grade.Validate(); err != tt.want {
				t.Errorf("Expected error %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGradeIsSuccess(t *testing.T) {
	t.Parallel()
	for q := MinQuality; q <= MaxQuality; q++ {
		if got, want := (Grade{Quality: q}).IsSuccess(), q >= 3; got != want {
			t.Errorf("quality %d: expected success=%v, got %v", q, want, got)
		}
	}
}
