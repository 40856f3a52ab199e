package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/scry-engine/internal/domain"
)

// Common errors
var (
	ErrNilCard      = errors.New("card cannot be nil")
	ErrInvalidGrade = errors.New("invalid grade")
	ErrInvalidDays  = errors.New("postpone days must be at least 1")
)

// Service defines the interface for SRS algorithm operations.
// Implementations are pure: identical inputs always give identical outputs
// and the input card is never modified.
type Service interface {
	// Grade computes the card's next schedule after a review at now.
	Grade(card *domain.Card, grade domain.Grade, now time.Time) (*domain.Card, error)

	// Postpone pushes the next review time forward by a number of days
	// without changing the learning state.
	Postpone(card *domain.Card, days int, now time.Time) (*domain.Card, error)

	// Params returns the parameters the service schedules with.
	Params() Params
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new SRS service with custom parameters
func NewServiceWithParams(params *Params) (Service, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: params cannot be nil", domain.ErrValidation)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	p := *params
	return &defaultService{params: &p}, nil
}

// Grade implements Service.
func (s *defaultService) Grade(card *domain.Card, grade domain.Grade, now time.Time) (*domain.Card, error) {
	if card == nil {
		return nil, ErrNilCard
	}
	if err := grade.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGrade, err)
	}

	return calculateNextCard(card, grade, now, s.params), nil
}

// Postpone implements Service.
func (s *defaultService) Postpone(card *domain.Card, days int, now time.Time) (*domain.Card, error) {
	if card == nil {
		return nil, ErrNilCard
	}
	if days < 1 {
		return nil, ErrInvalidDays
	}

	next := card.Clone()
	next.NextReviewAt = card.NextReviewAt.AddDate(0, 0, days)
	next.UpdatedAt = now.UTC()
	return next, nil
}

// Params implements Service.
func (s *defaultService) Params() Params {
	return *s.params
}
