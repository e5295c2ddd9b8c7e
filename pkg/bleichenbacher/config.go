package bleichenbacher

import "io"

const (
	// DefaultMaxRatioSteps bounds how many values of r the single-interval
	// search tries before giving up.
	DefaultMaxRatioSteps = 1 << 20

	// DefaultProgressEvery is the number of iterations between progress lines.
	DefaultProgressEvery = 50
)

// Config configures an attack run.
type Config struct {
	// MaxRatioSteps limits the r values tried by one single-interval search
	// (0 = DefaultMaxRatioSteps)
	MaxRatioSteps int

	// MaxQueries limits the total number of oracle queries (0 = unbounded).
	// Queries a parallel scanner sends above the accepted multiplier count too.
	MaxQueries int64

	// ProgressEvery controls how often a progress line is written
	// (0 = DefaultProgressEvery)
	ProgressEvery int

	// Progress receives progress lines (nil = discarded)
	Progress io.Writer

	// OnIteration, if set, is called after every interval update
	OnIteration func(Progress)
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxRatioSteps: DefaultMaxRatioSteps,
		ProgressEvery: DefaultProgressEvery,
		Progress:      io.Discard,
	}
}

// withDefaults fills in zero fields.
func (c Config) withDefaults() Config {
	if c.MaxRatioSteps <= 0 {
		c.MaxRatioSteps = DefaultMaxRatioSteps
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = DefaultProgressEvery
	}
	if c.Progress == nil {
		c.Progress = io.Discard
	}
	return c
}
