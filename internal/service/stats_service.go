package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/platform/logger"
	"github.com/phrazzld/scry-engine/internal/store"
)

// DefaultStreakLookbackDays bounds how far back Streak scans reviews.
const DefaultStreakLookbackDays = 365

// Retention is the share of successful reviews in a trailing window.
type Retention struct {
	WindowDays int     `json:"window_days"`
	Total      int     `json:"total"`
	Successful int     `json:"successful"`
	Rate       float64 `json:"rate"`
}

// MasteryDistribution counts active cards per mastery level.
type MasteryDistribution struct {
	Learning  int `json:"learning"`
	Reviewing int `json:"reviewing"`
	Mastered  int `json:"mastered"`
}

// Total returns the number of classified cards.
func (d MasteryDistribution) Total() int {
	return d.Learning + d.Reviewing + d.Mastered
}

// Count returns the number of cards at level.
func (d MasteryDistribution) Count(level domain.MasteryLevel) int {
	switch level {
	case domain.MasteryLearning:
		return d.Learning
	case domain.MasteryReviewing:
		return d.Reviewing
	case domain.MasteryMastered:
		return d.Mastered
	default:
		return 0
	}
}

// StatsSummary bundles every statistic for a dashboard.
type StatsSummary struct {
	Retention   Retention           `json:"retention"`
	Mastery     MasteryDistribution `json:"mastery"`
	StreakDays  int                 `json:"streak_days"`
	DueToday    int                 `json:"due_today"`
	Overdue     int                 `json:"overdue"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// StatsService answers read-only questions about an owner's progress.
type StatsService interface {
	// RetentionRate reports successful/total reviews over the last windowDays days.
	// With no reviews the rate is 0.
	RetentionRate(ctx context.Context, ownerID uuid.UUID, windowDays int) (Retention, error)

	// MasteryDistribution classifies the owner's active cards.
	MasteryDistribution(ctx context.Context, ownerID uuid.UUID) (MasteryDistribution, error)

	// Streak counts consecutive calendar days with at least one review,
	// ending today or yesterday.
	Streak(ctx context.Context, ownerID uuid.UUID) (int, error)

	// DueToday counts active cards due before the end of today.
	DueToday(ctx context.Context, ownerID uuid.UUID) (int, error)

	// Overdue counts active cards due before the start of today.
	Overdue(ctx context.Context, ownerID uuid.UUID) (int, error)

	// Summary computes all of the above, using windowDays for retention.
	Summary(ctx context.Context, ownerID uuid.UUID, windowDays int) (*StatsSummary, error)
}

// StatsOptions tunes a StatsService.
type StatsOptions struct {
	// Location defines calendar days. Defaults to UTC.
	Location *time.Location

	// StreakLookbackDays bounds the streak scan. Defaults to DefaultStreakLookbackDays.
	StreakLookbackDays int

	// StoreTimeout bounds each review history query. Card queries use the
	// repository's own timeout. Zero means no bound.
	StoreTimeout time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

type statsServiceImpl struct {
	cards    CardRepository
	reviews  store.ReviewStore
	loc      *time.Location
	lookback int
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

var _ StatsService = (*statsServiceImpl)(nil)

// NewStatsService creates a StatsService reading cards through the
// repository and review history from reviews.
func NewStatsService(
	cards CardRepository,
	reviews store.ReviewStore,
	opts StatsOptions,
	logger *slog.Logger,
) (StatsService, error) {
	if cards == nil {
		return nil, fmt.Errorf("%w: cards cannot be nil", domain.ErrValidation)
	}
	if reviews == nil {
		return nil, fmt.Errorf("%w: reviews cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.StreakLookbackDays <= 0 {
		opts.StreakLookbackDays = DefaultStreakLookbackDays
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &statsServiceImpl{
		cards:    cards,
		reviews:  reviews,
		loc:      opts.Location,
		lookback: opts.StreakLookbackDays,
		timeout:  opts.StoreTimeout,
		now:      opts.Now,
		logger:   logger.With(slog.String("component", "stats_service")),
	}, nil
}

func (s *statsServiceImpl) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// wrap tags review store errors raised after the deadline as timeouts.
func (s *statsServiceImpl) wrap(ctx context.Context, op, message string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, store.ErrStoreTimeout) {
		err = fmt.Errorf("%w: %v", store.ErrStoreTimeout, err)
	}
	return NewServiceError(op, message, err)
}

// startOfDay returns local midnight of t's calendar day.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// RetentionRate implements StatsService.RetentionRate
func (s *statsServiceImpl) RetentionRate(ctx context.Context, ownerID uuid.UUID, windowDays int) (Retention, error) {
	if windowDays < 1 {
		return Retention{}, fmt.Errorf("%w: window must be at least 1 day", domain.ErrValidation)
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	since := s.now().UTC().AddDate(0, 0, -windowDays)
	counts, err := s.reviews.CountSince(ctx, ownerID, since)
	if err != nil {
		return Retention{}, s.wrap(ctx, "retention_rate", "failed to count reviews", err)
	}

	r := Retention{WindowDays: windowDays, Total: counts.Total, Successful: counts.Successful}
	if counts.Total > 0 {
		r.Rate = float64(counts.Successful) / float64(counts.Total)
	}
	return r, nil
}

// MasteryDistribution implements StatsService.MasteryDistribution
func (s *statsServiceImpl) MasteryDistribution(ctx context.Context, ownerID uuid.UUID) (MasteryDistribution, error) {
	cards, err := s.cards.ListActive(ctx, ownerID)
	if err != nil {
		return MasteryDistribution{}, err
	}

	var d MasteryDistribution
	for _, c := range cards {
		switch domain.ClassifyMastery(c) {
		case domain.MasteryLearning:
			d.Learning++
		case domain.MasteryReviewing:
			d.Reviewing++
		case domain.MasteryMastered:
			d.Mastered++
		}
	}
	return d, nil
}

// Streak implements StatsService.Streak
func (s *statsServiceImpl) Streak(ctx context.Context, ownerID uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	today := startOfDay(s.now(), s.loc)
	since := today.AddDate(0, 0, -s.lookback)
	times, err := s.reviews.GradedTimesSince(ctx, ownerID, since.UTC())
	if err != nil {
		return 0, s.wrap(ctx, "streak", "failed to load review history", err)
	}

	days := make(map[time.Time]struct{}, len(times))
	for _, t := range times {
		days[startOfDay(t, s.loc)] = struct{}{}
	}

	day := today
	if _, ok := days[day]; !ok {
		// A streak stays alive until a full day passes without reviews.
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for {
		if _, ok := days[day]; !ok {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}

	log.Debug("computed streak",
		slog.String("owner_id", ownerID.String()),
		slog.Int("streak_days", streak))
	return streak, nil
}

// DueToday implements StatsService.DueToday
func (s *statsServiceImpl) DueToday(ctx context.Context, ownerID uuid.UUID) (int, error) {
	tomorrow := startOfDay(s.now(), s.loc).AddDate(0, 0, 1)
	return s.cards.CountDue(ctx, ownerID, tomorrow)
}

// Overdue implements StatsService.Overdue
func (s *statsServiceImpl) Overdue(ctx context.Context, ownerID uuid.UUID) (int, error) {
	return s.cards.CountDue(ctx, ownerID, startOfDay(s.now(), s.loc))
}

// Summary implements StatsService.Summary
func (s *statsServiceImpl) Summary(ctx context.Context, ownerID uuid.UUID, windowDays int) (*StatsSummary, error) {
	retention, err := s.RetentionRate(ctx, ownerID, windowDays)
	if err != nil {
		return nil, err
	}
	mastery, err := s.MasteryDistribution(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	streak, err := s.Streak(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	dueToday, err := s.DueToday(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	overdue, err := s.Overdue(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return &StatsSummary{
		Retention:   retention,
		Mastery:     mastery,
		StreakDays:  streak,
		DueToday:    dueToday,
		Overdue:     overdue,
		GeneratedAt: s.now().UTC(),
	}, nil
}
