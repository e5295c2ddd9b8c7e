package bleichenbacher

import (
	"context"
	"math/big"

	"github.com/mahdiidarabi/rsa-pkcs1-oracle/internal/scan"
)

// Predicate reports whether a trial multiplier s is accepted by the oracle.
type Predicate func(s *big.Int) (bool, error)

// Scanner defines how a range of trial multipliers is searched.
// Implementations must return the smallest accepted s in [lo, hi], or nil
// when none is accepted; the interval update relies on it.
type Scanner interface {
	// Scan returns the smallest s in [lo, hi] for which accept is true.
	// The context can be used for cancellation.
	Scan(ctx context.Context, lo, hi *big.Int, accept Predicate) (*big.Int, error)

	// Name returns a human-readable name for this scanner.
	Name() string
}

// SequentialScanner tests one candidate at a time in increasing order.
type SequentialScanner struct{}

// NewSequentialScanner creates the default scanner.
func NewSequentialScanner() *SequentialScanner {
	return &SequentialScanner{}
}

// Scan implements the Scanner interface.
func (s *SequentialScanner) Scan(ctx context.Context, lo, hi *big.Int, accept Predicate) (*big.Int, error) {
	return scan.Sequential(ctx, lo, hi, scan.Predicate(accept))
}

// Name returns the name of this scanner.
func (s *SequentialScanner) Name() string {
	return "Sequential"
}

// ParallelScanner queries the oracle concurrently over windows of
// consecutive candidates. It may issue queries above the accepted value
// within a window, but always returns the smallest accepted one.
type ParallelScanner struct {
	// NumWorkers controls parallelization (0 = auto-detect)
	NumWorkers int

	// Window is the number of candidates per window (0 = 4 per worker)
	Window int
}

// NewParallelScanner creates a parallel scanner with the given worker count.
func NewParallelScanner(numWorkers int) *ParallelScanner {
	return &ParallelScanner{NumWorkers: numWorkers}
}

// Scan implements the Scanner interface.
func (s *ParallelScanner) Scan(ctx context.Context, lo, hi *big.Int, accept Predicate) (*big.Int, error) {
	return scan.Parallel(ctx, lo, hi, scan.Predicate(accept), s.NumWorkers, s.Window)
}

// Name returns the name of this scanner.
func (s *ParallelScanner) Name() string {
	return "Parallel"
}
