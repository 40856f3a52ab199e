package review_session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/domain/srs"
	"github.com/phrazzld/scry-engine/internal/events"
	"github.com/phrazzld/scry-engine/internal/platform/logger"
	"github.com/phrazzld/scry-engine/internal/service"
	"github.com/phrazzld/scry-engine/internal/store"
	"github.com/sethvargo/go-retry"
)

// Defaults for Options fields left at zero.
const (
	DefaultSessionSize    = 50
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = 50 * time.Millisecond
)

// Manager runs one review session per owner.
type Manager interface {
	// Start snapshots the owner's due cards and presents the first one.
	// Returns ErrNoCardsDue if nothing is due and ErrSessionInProgress if a
	// session is already reviewing.
	Start(ctx context.Context, ownerID uuid.UUID) (*Snapshot, error)

	// Current returns the owner's session as it stands.
	Current(ctx context.Context, ownerID uuid.UUID) (*Snapshot, error)

	// Answer grades the current card and advances the session. cardID must
	// be the current card, otherwise ErrOutOfOrder.
	Answer(ctx context.Context, ownerID, cardID uuid.UUID, grade domain.Grade) (*AnswerResult, error)

	// Skip drops the current card from the session without grading it.
	Skip(ctx context.Context, ownerID, cardID uuid.UUID) (*Snapshot, error)

	// Complete ends the session. Unless force is set the queue must be empty.
	// Completing an already complete session returns its summary again.
	Complete(ctx context.Context, ownerID uuid.UUID, force bool) (*Summary, error)

	// Abandon ends the session early, keeping every grade already applied.
	Abandon(ctx context.Context, ownerID uuid.UUID) (*Summary, error)

	// State reports the owner's session state.
	State(ownerID uuid.UUID) State
}

// Options tunes a Manager.
type Options struct {
	// SessionSize caps how many due cards a session snapshots.
	SessionSize int
	// MaxAttempts bounds how often a transient grading failure is tried.
	MaxAttempts int
	// RetryBaseDelay is the first backoff delay; later delays double.
	RetryBaseDelay time.Duration
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// entry pairs a session with the lock serialising its owner's calls.
type entry struct {
	mu      sync.Mutex
	session *session
}

type manager struct {
	repo      service.CardRepository
	scheduler srs.Service
	items     ItemSource
	emitter   events.EventEmitter
	opts      Options
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry
}

var _ Manager = (*manager)(nil)

// NewManager creates a Manager. items and emitter may be nil.
// It panics if repo or scheduler is nil.
func NewManager(
	repo service.CardRepository,
	scheduler srs.Service,
	items ItemSource,
	emitter events.EventEmitter,
	opts Options,
	logger *slog.Logger,
) Manager {
	if repo == nil {
		panic("repo cannot be nil")
	}
	if scheduler == nil {
		panic("scheduler cannot be nil")
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SessionSize <= 0 {
		opts.SessionSize = DefaultSessionSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &manager{
		repo:      repo,
		scheduler: scheduler,
		items:     items,
		emitter:   emitter,
		opts:      opts,
		logger:    logger.With(slog.String("component", "review_session")),
		sessions:  make(map[uuid.UUID]*entry),
	}
}

func (m *manager) now() time.Time {
	return m.opts.Now().UTC().Truncate(time.Microsecond)
}

// lookup returns the owner's entry, creating it if create is set.
func (m *manager) lookup(ownerID uuid.UUID, create bool) *entry {
	m.mu.RLock()
	e, ok := m.sessions[ownerID]
	m.mu.RUnlock()
	if ok || !create {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[ownerID]; ok {
		return e
	}
	e = &entry{session: &session{ownerID: ownerID, state: StateIdle}}
	m.sessions[ownerID] = e
	return e
}

// reviewing locks the owner's entry and checks it is reviewing. On success
// the caller must unlock e.mu.
func (m *manager) reviewing(ownerID uuid.UUID) (*entry, error) {
	e := m.lookup(ownerID, false)
	if e == nil {
		return nil, ErrNoActiveSession
	}
	e.mu.Lock()
	if e.session.state != StateReviewing {
		e.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	return e, nil
}

// present adds the current item to snap when an item source is configured.
func (m *manager) present(ctx context.Context, snap *Snapshot) *Snapshot {
	if m.items == nil || snap.Current == nil {
		return snap
	}
	item, err := m.items.GetItem(ctx, snap.Current.ItemID)
	if err != nil {
		logger.FromContextOrDefault(ctx, m.logger).Warn("failed to resolve item",
			slog.String("error", err.Error()),
			slog.String("item_id", snap.Current.ItemID))
		return snap
	}
	snap.Item = item
	return snap
}

// emit publishes an event; failures are logged and never fail the caller.
func (m *manager) emit(ctx context.Context, eventType string, ownerID uuid.UUID, payload any) {
	log := logger.FromContextOrDefault(ctx, m.logger)

	event, err := events.NewEvent(eventType, ownerID, payload)
	if err != nil {
		log.Error("failed to build event",
			slog.String("error", err.Error()),
			slog.String("event_type", eventType))
		return
	}
	if err := m.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("event handler failed",
			slog.String("error", err.Error()),
			slog.String("event_type", eventType))
	}
}

func (m *manager) completed(ctx context.Context, summary *Summary) {
	m.emit(ctx, events.TypeSessionCompleted, summary.OwnerID, events.SessionCompleted{
		SessionID: summary.SessionID,
		Correct:   summary.Correct,
		Incorrect: summary.Incorrect,
		Skipped:   summary.Skipped,
		Discarded: summary.Discarded,
		Forced:    summary.Forced,
	})
}

// Start implements Manager.Start
func (m *manager) Start(ctx context.Context, ownerID uuid.UUID) (*Snapshot, error) {
	log := logger.FromContextOrDefault(ctx, m.logger)

	e := m.lookup(ownerID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.state == StateReviewing {
		return nil, ErrSessionInProgress
	}

	now := m.now()
	due, err := m.repo.FetchDue(ctx, ownerID, now, m.opts.SessionSize)
	if err != nil {
		log.Error("failed to load due cards",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, NewStartError("failed to load due cards", err)
	}
	if len(due) == 0 {
		return nil, ErrNoCardsDue
	}

	s := &session{
		id:        uuid.New(),
		ownerID:   ownerID,
		state:     StateLoaded,
		queue:     due,
		startedAt: now,
	}
	s.state = StateReviewing
	e.session = s

	log.Info("review session started",
		slog.String("owner_id", ownerID.String()),
		slog.String("session_id", s.id.String()),
		slog.Int("card_count", len(due)))

	return m.present(ctx, s.snapshot()), nil
}

// Current implements Manager.Current
func (m *manager) Current(ctx context.Context, ownerID uuid.UUID) (*Snapshot, error) {
	e := m.lookup(ownerID, false)
	if e == nil {
		return nil, ErrNoActiveSession
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.state == StateIdle {
		return nil, ErrNoActiveSession
	}
	return m.present(ctx, e.session.snapshot()), nil
}

// gradeFunc schedules a card with grade at now.
func (m *manager) gradeFunc(grade domain.Grade, now time.Time) service.GradeFunc {
	return func(card *domain.Card) (*domain.Card, *domain.ReviewResult, error) {
		next, err := m.scheduler.Grade(card, grade, now)
		if err != nil {
			return nil, nil, err
		}
		return next, domain.NewReviewResult(card, next, grade, now), nil
	}
}

// Answer implements Manager.Answer
func (m *manager) Answer(ctx context.Context, ownerID, cardID uuid.UUID, grade domain.Grade) (*AnswerResult, error) {
	log := logger.FromContextOrDefault(ctx, m.logger)

	if err := grade.Validate(); err != nil {
		return nil, err
	}

	e, err := m.reviewing(ownerID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	s := e.session

	if head := s.head(); head == nil || head.ID != cardID {
		return nil, ErrOutOfOrder
	}

	now := m.now()
	backoff := retry.WithMaxRetries(uint64(m.opts.MaxAttempts-1), retry.NewExponential(m.opts.RetryBaseDelay))

	var (
		card     *domain.Card
		result   *domain.ReviewResult
		attempts int
	)
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		var err error
		card, result, err = m.repo.ApplyGrade(ctx, ownerID, cardID, m.gradeFunc(grade, now))
		if store.IsTransientError(err) {
			log.Warn("transient failure grading card, retrying",
				slog.String("error", err.Error()),
				slog.String("card_id", cardID.String()),
				slog.Int("attempt", attempts))
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuality) ||
			errors.Is(err, service.ErrCardNotFound) ||
			errors.Is(err, service.ErrCardNotOwned) ||
			errors.Is(err, service.ErrCardInactive) {
			return nil, err
		}
		log.Error("failed to record answer",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()),
			slog.Int("attempts", attempts))
		return nil, NewAnswerError("failed to record answer", err)
	}

	s.queue = s.queue[1:]
	if result.IsSuccess {
		s.correct++
	} else {
		s.incorrect++
	}

	m.emit(ctx, events.TypeCardGraded, ownerID, events.CardGraded{
		SessionID:       s.id,
		CardID:          card.ID,
		ItemID:          card.ItemID,
		Quality:         grade.Quality,
		IntervalDays:    card.IntervalDays,
		EaseFactor:      card.EaseFactor,
		NextReviewAt:    card.NextReviewAt,
		Deactivated:     !card.Active,
		RetriedAttempts: attempts - 1,
	})

	out := &AnswerResult{Card: card, Result: result, Attempts: attempts}
	if len(s.queue) == 0 {
		out.Summary = s.finish(false, m.now())
		log.Info("review session complete",
			slog.String("session_id", s.id.String()),
			slog.Int("total", out.Summary.Total))
		m.completed(ctx, out.Summary)
	}
	out.Next = m.present(ctx, s.snapshot())
	return out, nil
}

// Skip implements Manager.Skip
func (m *manager) Skip(ctx context.Context, ownerID, cardID uuid.UUID) (*Snapshot, error) {
	e, err := m.reviewing(ownerID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	s := e.session

	if head := s.head(); head == nil || head.ID != cardID {
		return nil, ErrOutOfOrder
	}

	s.queue = s.queue[1:]
	s.skipped++
	if len(s.queue) == 0 {
		m.completed(ctx, s.finish(false, m.now()))
	}
	return m.present(ctx, s.snapshot()), nil
}

// Complete implements Manager.Complete
func (m *manager) Complete(ctx context.Context, ownerID uuid.UUID, force bool) (*Summary, error) {
	log := logger.FromContextOrDefault(ctx, m.logger)

	e := m.lookup(ownerID, false)
	if e == nil {
		return nil, ErrNoActiveSession
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session

	switch s.state {
	case StateComplete:
		return s.summary, nil
	case StateReviewing:
	default:
		return nil, ErrNoActiveSession
	}

	if len(s.queue) > 0 && !force {
		return nil, ErrSessionNotFinished
	}

	summary := s.finish(len(s.queue) > 0, m.now())
	log.Info("review session complete",
		slog.String("session_id", s.id.String()),
		slog.Int("total", summary.Total),
		slog.Int("discarded", summary.Discarded))
	m.completed(ctx, summary)
	return summary, nil
}

// Abandon implements Manager.Abandon
func (m *manager) Abandon(ctx context.Context, ownerID uuid.UUID) (*Summary, error) {
	return m.Complete(ctx, ownerID, true)
}

// State implements Manager.State
func (m *manager) State(ownerID uuid.UUID) State {
	e := m.lookup(ownerID, false)
	if e == nil {
		return StateIdle
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.state
}
