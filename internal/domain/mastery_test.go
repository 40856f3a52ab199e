package domain

import "testing"

func TestClassifyMastery(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		reps     int
		interval int
		want     MasteryLevel
	}{
		{"new card", 0, 1, MasteryLearning},
		{"two reps", 2, 6, MasteryLearning},
		{"third rep", 3, 15, MasteryReviewing},
		{"nine reps short interval", 9, 29, MasteryReviewing},
		{"long interval", 4, 30, MasteryMastered},
		{"ten reps", 10, 12, MasteryMastered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ClassifyMastery(&Card{Repetitions: tt.reps, IntervalDays: tt.interval})
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseMasteryLevel(t *testing.T) {
	t.Parallel()
	if lvl, err := ParseMasteryLevel("mastered"); err != nil || lvl != MasteryMastered {
		t.Errorf("Expected mastered, got %q (%v)", lvl, err)
	}
	if _, err := ParseMasteryLevel("expert"); err == nil {
		t.Error("Expected error for unknown level")
	}
}
