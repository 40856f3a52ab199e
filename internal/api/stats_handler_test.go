package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsHandler(t *testing.T) {
	t.Parallel()

	t.Run("summary uses default window", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)
		a.stats.SummaryValue = &service.StatsSummary{StreakDays: 4, DueToday: 7}

		rec := a.do(t, http.MethodGet, "/api/stats", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeBody[service.StatsSummary](t, rec)
		assert.Equal(t, 4, got.StreakDays)
		assert.Equal(t, 7, got.DueToday)
		assert.Equal(t, DefaultRetentionWindowDays, a.stats.LastWindowDays)
	})

	t.Run("retention window", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)
		a.stats.Retention = service.Retention{WindowDays: 7, Total: 4, Successful: 3, Rate: 0.75}

		rec := a.do(t, http.MethodGet, "/api/stats/retention?window_days=7", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, a.stats.Retention, decodeBody[service.Retention](t, rec))
		assert.Equal(t, 7, a.stats.LastWindowDays)

		rec = a.do(t, http.MethodGet, "/api/stats/retention?window_days=-1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("mastery", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)
		a.stats.Distribution = service.MasteryDistribution{Learning: 1, Reviewing: 2, Mastered: 3}

		rec := a.do(t, http.MethodGet, "/api/stats/mastery", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, a.stats.Distribution, decodeBody[service.MasteryDistribution](t, rec))
	})

	t.Run("mastery level filter", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)
		a.stats.Distribution = service.MasteryDistribution{Learning: 1, Reviewing: 2, Mastered: 3}

		tests := []struct {
			query      string
			wantStatus int
			want       MasteryLevelResponse
		}{
			{"learning", http.StatusOK, MasteryLevelResponse{Level: domain.MasteryLearning, Count: 1}},
			{"reviewing", http.StatusOK, MasteryLevelResponse{Level: domain.MasteryReviewing, Count: 2}},
			{"mastered", http.StatusOK, MasteryLevelResponse{Level: domain.MasteryMastered, Count: 3}},
			{"expert", http.StatusBadRequest, MasteryLevelResponse{}},
			{"Mastered", http.StatusBadRequest, MasteryLevelResponse{}},
		}
		for _, tc := range tests {
			rec := a.do(t, http.MethodGet, "/api/stats/mastery?level="+tc.query, nil)
			require.Equal(t, tc.wantStatus, rec.Code, tc.query)
			if tc.wantStatus == http.StatusOK {
				assert.Equal(t, tc.want, decodeBody[MasteryLevelResponse](t, rec))
			}
		}
	})

	t.Run("streak and due", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)
		a.stats.StreakDays = 9
		a.stats.DueCount = 5
		a.stats.OverdueCount = 2

		rec := a.do(t, http.MethodGet, "/api/stats/streak", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, StreakResponse{StreakDays: 9}, decodeBody[StreakResponse](t, rec))

		rec = a.do(t, http.MethodGet, "/api/stats/due", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, DueResponse{DueToday: 5, Overdue: 2}, decodeBody[DueResponse](t, rec))
	})

	t.Run("failure", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)
		a.stats.Err = errors.New("boom")

		rec := a.do(t, http.MethodGet, "/api/stats/streak", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
