package srs

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/phrazzld/scry-engine/internal/domain"
)

// Strategy names an interval calculation variant.
type Strategy string

const (
	// StrategySM2 is the base SM-2 algorithm.
	StrategySM2 Strategy = "sm2"

	// StrategySM2Adjusted scales successful intervals by response time and
	// self-reported confidence when both are supplied with the grade.
	StrategySM2Adjusted Strategy = "sm2_adjusted"
)

// ErrUnknownStrategy is returned by ParseStrategy for unrecognised names.
var ErrUnknownStrategy = errors.New("unknown scheduling strategy")

// ParseStrategy converts a configuration string into a Strategy.
// The empty string selects StrategySM2.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategySM2:
		return StrategySM2, nil
	case StrategySM2Adjusted:
		return StrategySM2Adjusted, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Default parameter values.
const (
	DefaultMaxEaseFactor       = 5.0
	DefaultMasteryIntervalDays = 365
	DefaultTargetResponseTime  = 20 * time.Second
	DefaultFirstInterval       = 1
	DefaultSecondInterval      = 6
	DefaultFailurePenalty      = 0.2
)

// Params defines all configurable parameters for the SRS algorithm
type Params struct {
	// MinEaseFactor is fixed at domain.MinEaseFactor and not configurable.
	MinEaseFactor float64
	// MaxEaseFactor caps the ease. math.Inf(1) leaves it unbounded.
	MaxEaseFactor float64

	// Intervals for the first and second consecutive successful reviews.
	FirstInterval  int
	SecondInterval int

	// FailurePenalty is subtracted from the ease on a failed recall.
	FailurePenalty float64

	// MasteryIntervalDays deactivates cards whose interval reaches it.
	// Zero disables automatic deactivation.
	MasteryIntervalDays int

	// TargetResponseTime is the response time at which the adjusted
	// strategy leaves the interval unscaled.
	TargetResponseTime time.Duration

	Strategy Strategy
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the default.
type ParamsConfig struct {
	MaxEaseFactor       float64
	UnboundedEaseFactor bool
	FirstInterval       int
	SecondInterval      int
	FailurePenalty      float64
	MasteryIntervalDays int
	DisableMastery      bool
	TargetResponseTime  time.Duration
	Strategy            Strategy
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor:       domain.MinEaseFactor,
		MaxEaseFactor:       DefaultMaxEaseFactor,
		FirstInterval:       DefaultFirstInterval,
		SecondInterval:      DefaultSecondInterval,
		FailurePenalty:      DefaultFailurePenalty,
		MasteryIntervalDays: DefaultMasteryIntervalDays,
		TargetResponseTime:  DefaultTargetResponseTime,
		Strategy:            StrategySM2,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) (*Params, error) {
	params := NewDefaultParams()

	if config.UnboundedEaseFactor {
		params.MaxEaseFactor = math.Inf(1)
	} else if config.MaxEaseFactor > 0 {
		params.MaxEaseFactor = config.MaxEaseFactor
	}
	if config.FirstInterval > 0 {
		params.FirstInterval = config.FirstInterval
	}
	if config.SecondInterval > 0 {
		params.SecondInterval = config.SecondInterval
	}
	if config.FailurePenalty > 0 {
		params.FailurePenalty = config.FailurePenalty
	}
	if config.DisableMastery {
		params.MasteryIntervalDays = 0
	} else if config.MasteryIntervalDays > 0 {
		params.MasteryIntervalDays = config.MasteryIntervalDays
	}
	if config.TargetResponseTime > 0 {
		params.TargetResponseTime = config.TargetResponseTime
	}
	if config.Strategy != "" {
		params.Strategy = config.Strategy
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// Validate checks the parameters are internally consistent.
func (p *Params) Validate() error {
	if p.MinEaseFactor != domain.MinEaseFactor {
		return fmt.Errorf("%w: minimum ease factor is fixed at %.1f", domain.ErrValidation, domain.MinEaseFactor)
	}
	if p.MaxEaseFactor < p.MinEaseFactor {
		return fmt.Errorf("%w: maximum ease factor %.2f is below the minimum", domain.ErrValidation, p.MaxEaseFactor)
	}
	if p.FirstInterval < 1 || p.SecondInterval < 1 {
		return fmt.Errorf("%w: initial intervals must be at least 1 day", domain.ErrValidation)
	}
	if p.MasteryIntervalDays < 0 {
		return fmt.Errorf("%w: mastery interval cannot be negative", domain.ErrValidation)
	}
	if p.TargetResponseTime <= 0 {
		return fmt.Errorf("%w: target response time must be positive", domain.ErrValidation)
	}
	if _, err := ParseStrategy(string(p.Strategy)); err != nil {
		return err
	}
	return nil
}

// EaseCeilingUnbounded reports whether the ease factor has no upper limit.
func (p *Params) EaseCeilingUnbounded() bool {
	return math.IsInf(p.MaxEaseFactor, 1)
}
