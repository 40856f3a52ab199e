package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/domain/srs"
	"github.com/phrazzld/scry-engine/internal/platform/logger"
	"github.com/phrazzld/scry-engine/internal/store"
)

// DefaultDueLimit caps FetchDue when the caller passes a non-positive limit.
const DefaultDueLimit = 50

// GradeFunc computes the next state of a card read inside ApplyGrade's
// transaction. It must not modify card and must return a review result
// describing the transition.
type GradeFunc func(card *domain.Card) (*domain.Card, *domain.ReviewResult, error)

// CardRepository is the only component that changes stored cards.
type CardRepository interface {
	// Create enrolls a single item for an owner.
	// Returns ErrDuplicateCard if the owner already has a card for itemID.
	Create(ctx context.Context, ownerID uuid.UUID, itemID string) (*domain.Card, error)

	// BulkCreate enrolls several items in one transaction. Any duplicate,
	// stored or repeated within itemIDs, aborts the whole batch.
	BulkCreate(ctx context.Context, ownerID uuid.UUID, itemIDs []string) ([]*domain.Card, error)

	// GetByID returns a card the owner owns.
	// Returns ErrCardNotFound or ErrCardNotOwned.
	GetByID(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error)

	// GetByItem returns the owner's card for an item, active or not.
	GetByItem(ctx context.Context, ownerID uuid.UUID, itemID string) (*domain.Card, error)

	// FetchDue returns active cards due at now, oldest first, at most limit.
	FetchDue(ctx context.Context, ownerID uuid.UUID, now time.Time, limit int) ([]*domain.Card, error)

	// ApplyGrade reads the card under lock, lets fn compute its next state
	// and stores both the new state and the review result atomically.
	// A concurrent change to the card yields store.ErrConcurrentModification.
	ApplyGrade(ctx context.Context, ownerID, cardID uuid.UUID, fn GradeFunc) (*domain.Card, *domain.ReviewResult, error)

	// Suspend removes a card from review without touching its schedule.
	Suspend(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error)

	// Restore reactivates a suspended or archived card.
	Restore(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error)

	// Postpone moves a card's next review forward by days.
	Postpone(ctx context.Context, ownerID, cardID uuid.UUID, days int) (*domain.Card, error)

	// ArchiveMastered deactivates every active card whose interval reached
	// the mastery threshold and returns how many changed.
	ArchiveMastered(ctx context.Context, ownerID uuid.UUID) (int, error)

	// CountDue counts active cards due strictly before the given time.
	CountDue(ctx context.Context, ownerID uuid.UUID, before time.Time) (int, error)

	// ListActive returns all active cards of an owner.
	ListActive(ctx context.Context, ownerID uuid.UUID) ([]*domain.Card, error)
}

// RepositoryOptions tunes a CardRepository.
type RepositoryOptions struct {
	// StoreTimeout bounds each persistence call. Zero means no bound.
	StoreTimeout time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// cardRepositoryImpl implements CardRepository on top of the store ports.
type cardRepositoryImpl struct {
	db          *sql.DB
	cardStore   store.CardStore
	reviewStore store.ReviewStore
	scheduler   srs.Service
	timeout     time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

var _ CardRepository = (*cardRepositoryImpl)(nil)

// NewCardRepository creates a CardRepository.
// It returns an error if any of the required dependencies are nil.
func NewCardRepository(
	db *sql.DB,
	cardStore store.CardStore,
	reviewStore store.ReviewStore,
	scheduler srs.Service,
	opts RepositoryOptions,
	logger *slog.Logger,
) (CardRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: db cannot be nil", domain.ErrValidation)
	}
	if cardStore == nil {
		return nil, fmt.Errorf("%w: cardStore cannot be nil", domain.ErrValidation)
	}
	if reviewStore == nil {
		return nil, fmt.Errorf("%w: reviewStore cannot be nil", domain.ErrValidation)
	}
	if scheduler == nil {
		return nil, fmt.Errorf("%w: scheduler cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &cardRepositoryImpl{
		db:          db,
		cardStore:   cardStore,
		reviewStore: reviewStore,
		scheduler:   scheduler,
		timeout:     opts.StoreTimeout,
		now:         func() time.Time { return now().UTC().Truncate(time.Microsecond) },
		logger:      logger.With(slog.String("component", "card_repository")),
	}, nil
}

// bounded applies the store timeout to ctx.
func (r *cardRepositoryImpl) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// wrap translates store errors into service errors for operation op.
func (r *cardRepositoryImpl) wrap(ctx context.Context, op, message string, err error) error {
	switch {
	case errors.Is(err, store.ErrCardNotFound):
		return ErrCardNotFound
	case errors.Is(err, store.ErrCardExists):
		return fmt.Errorf("%w: %v", ErrDuplicateCard, err)
	case errors.Is(err, ErrCardNotFound),
		errors.Is(err, ErrCardNotOwned),
		errors.Is(err, ErrCardInactive),
		errors.Is(err, ErrDuplicateCard):
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, store.ErrStoreTimeout) {
		err = fmt.Errorf("%w: %v", store.ErrStoreTimeout, err)
	}
	return NewServiceError(op, message, err)
}

// owned loads a card through cards and checks its owner.
func owned(ctx context.Context, cards store.CardStore, ownerID, cardID uuid.UUID, forUpdate bool) (*domain.Card, error) {
	var (
		card *domain.Card
		err  error
	)
	if forUpdate {
		card, err = cards.GetByIDForUpdate(ctx, cardID)
	} else {
		card, err = cards.GetByID(ctx, cardID)
	}
	if err != nil {
		return nil, err
	}
	if card.OwnerID != ownerID {
		return nil, ErrCardNotOwned
	}
	return card, nil
}

// Create implements CardRepository.Create
func (r *cardRepositoryImpl) Create(ctx context.Context, ownerID uuid.UUID, itemID string) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	card, err := domain.NewCard(ownerID, itemID, r.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	if err := r.cardStore.Create(ctx, card); err != nil {
		if !errors.Is(err, store.ErrCardExists) {
			log.Error("failed to create card",
				slog.String("error", err.Error()),
				slog.String("owner_id", ownerID.String()))
		}
		return nil, r.wrap(ctx, "create_card", "failed to save card", err)
	}

	log.Debug("card created",
		slog.String("card_id", card.ID.String()),
		slog.String("owner_id", ownerID.String()))
	return card, nil
}

// BulkCreate implements CardRepository.BulkCreate
func (r *cardRepositoryImpl) BulkCreate(ctx context.Context, ownerID uuid.UUID, itemIDs []string) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if len(itemIDs) == 0 {
		return []*domain.Card{}, nil
	}

	now := r.now()
	seen := make(map[string]struct{}, len(itemIDs))
	cards := make([]*domain.Card, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		if _, dup := seen[itemID]; dup {
			return nil, fmt.Errorf("%w: item %q repeated in batch", ErrDuplicateCard, itemID)
		}
		seen[itemID] = struct{}{}

		card, err := domain.NewCard(ownerID, itemID, now)
		if err != nil {
			return nil, fmt.Errorf("%w: item %q: %w", domain.ErrValidation, itemID, err)
		}
		cards = append(cards, card)
	}

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	err := store.RunInTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		return r.cardStore.WithTx(tx).CreateMultiple(ctx, cards)
	})
	if err != nil {
		log.Warn("bulk enrollment rolled back",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()),
			slog.Int("card_count", len(cards)))
		return nil, r.wrap(ctx, "bulk_create", "failed to save cards", err)
	}

	log.Info("cards enrolled",
		slog.String("owner_id", ownerID.String()),
		slog.Int("card_count", len(cards)))
	return cards, nil
}

// GetByID implements CardRepository.GetByID
func (r *cardRepositoryImpl) GetByID(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	card, err := owned(ctx, r.cardStore, ownerID, cardID, false)
	if err != nil {
		return nil, r.wrap(ctx, "get_card", "failed to retrieve card", err)
	}
	return card, nil
}

// FetchDue implements CardRepository.FetchDue
func (r *cardRepositoryImpl) FetchDue(ctx context.Context, ownerID uuid.UUID, now time.Time, limit int) ([]*domain.Card, error) {
	if limit <= 0 {
		limit = DefaultDueLimit
	}

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	cards, err := r.cardStore.FindDue(ctx, ownerID, now.UTC(), limit)
	if err != nil {
		return nil, r.wrap(ctx, "fetch_due", "failed to query due cards", err)
	}
	if cards == nil {
		cards = []*domain.Card{}
	}
	return cards, nil
}

// ApplyGrade implements CardRepository.ApplyGrade
func (r *cardRepositoryImpl) ApplyGrade(
	ctx context.Context,
	ownerID, cardID uuid.UUID,
	fn GradeFunc,
) (*domain.Card, *domain.ReviewResult, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	var (
		next   *domain.Card
		result *domain.ReviewResult
	)
	err := store.RunInTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		cards := r.cardStore.WithTx(tx)

		card, err := owned(ctx, cards, ownerID, cardID, true)
		if err != nil {
			return err
		}
		if !card.Active {
			return ErrCardInactive
		}

		expected := card.Version
		next, result, err = fn(card)
		if err != nil {
			return err
		}
		next.Version = expected

		if err := cards.Update(ctx, next); err != nil {
			return err
		}
		return r.reviewStore.WithTx(tx).Create(ctx, result)
	})
	if err != nil {
		if store.IsTransientError(err) {
			log.Warn("grade not applied",
				slog.String("error", err.Error()),
				slog.String("card_id", cardID.String()))
		}
		return nil, nil, r.wrap(ctx, "apply_grade", "failed to apply grade", err)
	}

	log.Debug("grade applied",
		slog.String("card_id", cardID.String()),
		slog.Int("quality", result.Quality),
		slog.Int("interval", next.IntervalDays),
		slog.Time("next_review_at", next.NextReviewAt))
	return next, result, nil
}

// setActive loads, checks and toggles a card's active flag.
func (r *cardRepositoryImpl) setActive(ctx context.Context, op string, ownerID, cardID uuid.UUID, active bool) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	var updated *domain.Card
	err := store.RunInTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		cards := r.cardStore.WithTx(tx)
		if _, err := owned(ctx, cards, ownerID, cardID, true); err != nil {
			return err
		}
		var err error
		updated, err = cards.SetActive(ctx, cardID, active, r.now())
		return err
	})
	if err != nil {
		return nil, r.wrap(ctx, op, "failed to change card state", err)
	}

	log.Info("card state changed",
		slog.String("card_id", cardID.String()),
		slog.Bool("active", active))
	return updated, nil
}

// Suspend implements CardRepository.Suspend
func (r *cardRepositoryImpl) Suspend(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error) {
	return r.setActive(ctx, "suspend_card", ownerID, cardID, false)
}

// Restore implements CardRepository.Restore
func (r *cardRepositoryImpl) Restore(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error) {
	return r.setActive(ctx, "restore_card", ownerID, cardID, true)
}

// Postpone implements CardRepository.Postpone
func (r *cardRepositoryImpl) Postpone(ctx context.Context, ownerID, cardID uuid.UUID, days int) (*domain.Card, error) {
	if days < 1 {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, srs.ErrInvalidDays)
	}

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	var next *domain.Card
	err := store.RunInTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		cards := r.cardStore.WithTx(tx)
		card, err := owned(ctx, cards, ownerID, cardID, true)
		if err != nil {
			return err
		}
		next, err = r.scheduler.Postpone(card, days, r.now())
		if err != nil {
			return err
		}
		return cards.Update(ctx, next)
	})
	if err != nil {
		return nil, r.wrap(ctx, "postpone_card", "failed to postpone card", err)
	}
	return next, nil
}

// ArchiveMastered implements CardRepository.ArchiveMastered
func (r *cardRepositoryImpl) ArchiveMastered(ctx context.Context, ownerID uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	threshold := r.scheduler.Params().MasteryIntervalDays
	if threshold <= 0 {
		return 0, nil
	}

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	n, err := r.cardStore.DeactivateMastered(ctx, ownerID, threshold, r.now())
	if err != nil {
		return 0, r.wrap(ctx, "archive_mastered", "failed to archive mastered cards", err)
	}
	if n > 0 {
		log.Info("archived mastered cards",
			slog.String("owner_id", ownerID.String()),
			slog.Int("count", n))
	}
	return n, nil
}

// GetByItem implements CardRepository.GetByItem
func (r *cardRepositoryImpl) GetByItem(ctx context.Context, ownerID uuid.UUID, itemID string) (*domain.Card, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	card, err := r.cardStore.GetByOwnerAndItem(ctx, ownerID, itemID)
	if err != nil {
		return nil, r.wrap(ctx, "get_card_by_item", "failed to retrieve card", err)
	}
	return card, nil
}

// CountDue implements CardRepository.CountDue
func (r *cardRepositoryImpl) CountDue(ctx context.Context, ownerID uuid.UUID, before time.Time) (int, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	n, err := r.cardStore.CountDue(ctx, ownerID, before.UTC())
	if err != nil {
		return 0, r.wrap(ctx, "count_due", "failed to count due cards", err)
	}
	return n, nil
}

// ListActive implements CardRepository.ListActive
func (r *cardRepositoryImpl) ListActive(ctx context.Context, ownerID uuid.UUID) ([]*domain.Card, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	cards, err := r.cardStore.ListActive(ctx, ownerID)
	if err != nil {
		return nil, r.wrap(ctx, "list_active", "failed to list cards", err)
	}
	return cards, nil
}
