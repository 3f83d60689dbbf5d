package forgetting

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bigramdict/model"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("forgetting: invalid config")

// Config parametrises the forgetting curve.
type Config struct {
	// MaxEncoded is the highest level. Defaults to 15.
	MaxEncoded model.Probability
	// MinValid is the lowest level that survives a sweep. Defaults to 3.
	MinValid model.Probability
	// Step is the level change per observation and per sweep. Defaults to 1.
	Step model.Probability
}

// DefaultConfig returns the default curve.
func DefaultConfig() Config {
	return Config{
		MaxEncoded: 15,
		MinValid:   3,
		Step:       1,
	}
}

// Validate checks that 0 < MinValid <= MaxEncoded and 0 < Step <= MaxEncoded.
func (c Config) Validate() error {
	if c.MaxEncoded <= 0 {
		return fmt.Errorf("%w: MaxEncoded must be positive, got %d", ErrInvalidConfig, c.MaxEncoded)
	}
	if c.MinValid <= 0 || c.MinValid > c.MaxEncoded {
		return fmt.Errorf("%w: MinValid must be in (0, %d], got %d", ErrInvalidConfig, c.MaxEncoded, c.MinValid)
	}
	if c.Step <= 0 || c.Step > c.MaxEncoded {
		return fmt.Errorf("%w: Step must be in (0, %d], got %d", ErrInvalidConfig, c.MaxEncoded, c.Step)
	}
	return nil
}

// Curve is a step-wise forgetting curve over encoded levels.
type Curve struct {
	cfg Config
}

// New creates a curve. Zero fields of cfg take their defaults.
func New(cfg Config) *Curve {
	def := DefaultConfig()
	if cfg.MaxEncoded == 0 {
		cfg.MaxEncoded = def.MaxEncoded
	}
	if cfg.MinValid == 0 {
		cfg.MinValid = def.MinValid
	}
	if cfg.Step == 0 {
		cfg.Step = def.Step
	}
	return &Curve{cfg: cfg}
}

// Config returns the effective configuration.
func (c *Curve) Config() Config {
	return c.cfg
}

// Merge combines the stored level prior with a new observation.
// Either argument may be model.NotAProbability.
func (c *Curve) Merge(prior, observed model.Probability) model.Probability {
	observedSet := observed != model.NotAProbability
	if prior == model.NotAProbability {
		if !observedSet {
			return 0
		}
		return c.cfg.MinValid
	}
	if observedSet && prior < c.cfg.MinValid {
		return c.cfg.MinValid
	}
	return min(prior+c.cfg.Step, c.cfg.MaxEncoded)
}

// Decay lowers p by one step, clamped to [0, MaxEncoded].
func (c *Curve) Decay(p model.Probability) model.Probability {
	return max(min(p, c.cfg.MaxEncoded)-c.cfg.Step, 0)
}

// IsValid reports whether p is still remembered.
func (c *Curve) IsValid(p model.Probability) bool {
	return p >= c.cfg.MinValid
}
