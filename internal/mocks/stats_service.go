package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/service"
)

// MockStatsService implements service.StatsService with canned values.
type MockStatsService struct {
	Retention    service.Retention
	Distribution service.MasteryDistribution
	StreakDays   int
	DueCount     int
	OverdueCount int
	SummaryValue *service.StatsSummary

	// Err is returned by every method when set
	Err error

	// LastWindowDays records the window passed to RetentionRate or Summary
	LastWindowDays int
}

var _ service.StatsService = (*MockStatsService)(nil)

// RetentionRate implements service.StatsService
func (m *MockStatsService) RetentionRate(_ context.Context, _ uuid.UUID, windowDays int) (service.Retention, error) {
	m.LastWindowDays = windowDays
	return m.Retention, m.Err
}

// MasteryDistribution implements service.StatsService
func (m *MockStatsService) MasteryDistribution(context.Context, uuid.UUID) (service.MasteryDistribution, error) {
	return m.Distribution, m.Err
}

// Streak implements service.StatsService
func (m *MockStatsService) Streak(context.Context, uuid.UUID) (int, error) {
	return m.StreakDays, m.Err
}

// DueToday implements service.StatsService
func (m *MockStatsService) DueToday(context.Context, uuid.UUID) (int, error) {
	return m.DueCount, m.Err
}

// Overdue implements service.StatsService
func (m *MockStatsService) Overdue(context.Context, uuid.UUID) (int, error) {
	return m.OverdueCount, m.Err
}

// Summary implements service.StatsService
func (m *MockStatsService) Summary(_ context.Context, _ uuid.UUID, windowDays int) (*service.StatsSummary, error) {
	m.LastWindowDays = windowDays
	if m.Err != nil {
		return nil, m.Err
	}
	return m.SummaryValue, nil
}
