package bleichenbacher

import (
	"bytes"
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/mahdiidarabi/rsa-pkcs1-oracle/pkg/rsapkcs1"
)

func TestEngine_SearchInitial_FindsTarget(t *testing.T) {
	target := loadTestTarget(t, "initial search")
	pub := target.priv.Public()
	c := new(big.Int).SetBytes(target.ciphertext)

	e, err := newEngine(target.ciphertext, pub, nil, NewSequentialScanner(), DefaultConfig())
	if err != nil {
		t.Fatalf("newEngine failed: %v", err)
	}

	// Accept only the target itself and c⋅s0ᵉ.
	start := ceilDiv(pub.N, e.threeB)
	s0 := new(big.Int).Add(start, big.NewInt(37))
	accepted := new(big.Int).Exp(s0, pub.E, pub.N)
	accepted.Mul(accepted, c)
	accepted.Mod(accepted, pub.N)

	e.oracle = rsapkcs1.OracleFunc(func(ciphertext []byte) bool {
		x := new(big.Int).SetBytes(ciphertext)
		return x.Cmp(c) == 0 || x.Cmp(accepted) == 0
	})

	got, err := e.searchInitial(context.Background())
	if err != nil {
		t.Fatalf("searchInitial failed: %v", err)
	}
	if got.Cmp(s0) != 0 {
		t.Errorf("Expected s1 = %s, got %s", s0, got)
	}
	if e.queries != 38 {
		t.Errorf("Expected 38 queries starting from ceil(n/3B), got %d", e.queries)
	}
}

func TestEngine_Initialization(t *testing.T) {
	target := loadTestTarget(t, "init")
	e, err := newEngine(target.ciphertext, target.priv.Public(), nil, NewSequentialScanner(), Config{})
	if err != nil {
		t.Fatalf("newEngine failed: %v", err)
	}

	b := new(big.Int).Lsh(big.NewInt(1), uint(8*(e.k-2)))
	if e.k != testBits/8 {
		t.Errorf("Expected k = %d, got %d", testBits/8, e.k)
	}
	if len(e.m) != 1 || e.m[0].A.Cmp(new(big.Int).Mul(two, b)) != 0 ||
		e.m[0].B.Cmp(new(big.Int).Sub(new(big.Int).Mul(three, b), one)) != 0 {
		t.Errorf("Unexpected initial intervals %s", e.m)
	}
	if e.s.Cmp(one) != 0 || e.i != 1 {
		t.Errorf("Expected s = 1 and i = 1, got s = %s, i = %d", e.s, e.i)
	}
	if !e.m.Contains(target.padded) {
		t.Error("Initial interval does not contain the plaintext")
	}
	if e.config.MaxRatioSteps != DefaultMaxRatioSteps || e.config.ProgressEvery != DefaultProgressEvery {
		t.Errorf("Zero config was not defaulted: %+v", e.config)
	}
}

func TestEngine_Narrow_KeepsPlaintext(t *testing.T) {
	target := loadTestTarget(t, "narrow")
	pub := target.priv.Public()
	e, err := newEngine(target.ciphertext, pub, prefixOracle(t, target.priv), NewSequentialScanner(), DefaultConfig())
	if err != nil {
		t.Fatalf("newEngine failed: %v", err)
	}

	s, err := e.searchInitial(context.Background())
	if err != nil {
		t.Fatalf("searchInitial failed: %v", err)
	}

	// m⋅s mod n must be conforming for the accepted s.
	ms := new(big.Int).Mul(target.padded, s)
	ms.Mod(ms, pub.N)
	if ms.Cmp(e.twoB) < 0 || ms.Cmp(e.threeB) >= 0 {
		t.Fatalf("Accepted s=%s maps the plaintext outside [2B, 3B)", s)
	}

	next := e.narrow(s)
	if !next.Contains(target.padded) {
		t.Fatalf("Narrowed set %s lost the plaintext", next)
	}
	if next.Mass().Cmp(e.m.Mass()) > 0 {
		t.Errorf("Narrowing grew the candidate mass")
	}
	for _, iv := range next {
		if iv.A.Cmp(iv.B) > 0 || iv.A.Cmp(e.twoB) < 0 || iv.B.Cmp(e.threeBMinus1) > 0 {
			t.Errorf("Interval %s outside [2B, 3B-1]", iv)
		}
	}
}

func TestEngine_Finish_InvariantViolation(t *testing.T) {
	target := loadTestTarget(t, "finish")
	e, err := newEngine(target.ciphertext, target.priv.Public(), nil, NewSequentialScanner(), DefaultConfig())
	if err != nil {
		t.Fatalf("newEngine failed: %v", err)
	}

	// 0x02 followed by nonzero bytes only: inside [2B, 3B-1] but no separator.
	block := append([]byte{0x02}, bytes.Repeat([]byte{0xff}, e.k-2)...)
	x := new(big.Int).SetBytes(block)
	e.m = IntervalSet{NewInterval(x, x)}

	_, err = e.finish()
	if !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("Expected ErrInvariantViolation, got %v", err)
	}
	if !errors.Is(err, rsapkcs1.ErrInvalidPadding) {
		t.Errorf("Expected the padding error to be wrapped, got %v", err)
	}
	if errors.Is(err, ErrPrecondition) {
		t.Error("Invariant violation must be distinct from a rejected target")
	}
}

func TestEngine_Finish_Success(t *testing.T) {
	target := loadTestTarget(t, "attack at dawn")
	e, err := newEngine(target.ciphertext, target.priv.Public(), nil, NewSequentialScanner(), DefaultConfig())
	if err != nil {
		t.Fatalf("newEngine failed: %v", err)
	}
	e.m = IntervalSet{NewInterval(target.padded, target.padded)}

	result, err := e.finish()
	if err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if !bytes.Equal(result.Plaintext, target.message) {
		t.Errorf("Got %q, want %q", result.Plaintext, target.message)
	}
}

func TestCeilFloorDiv(t *testing.T) {
	tests := []struct {
		x, y        int64
		ceil, floor int64
	}{
		{10, 3, 4, 3},
		{9, 3, 3, 3},
		{0, 5, 0, 0},
		{-10, 3, -3, -4},
		{-9, 3, -3, -3},
		{1, 7, 1, 0},
	}

	for _, tt := range tests {
		x, y := big.NewInt(tt.x), big.NewInt(tt.y)
		if got := ceilDiv(x, y); got.Int64() != tt.ceil {
			t.Errorf("ceilDiv(%d, %d) = %s, want %d", tt.x, tt.y, got, tt.ceil)
		}
		if got := floorDiv(x, y); got.Int64() != tt.floor {
			t.Errorf("floorDiv(%d, %d) = %s, want %d", tt.x, tt.y, got, tt.floor)
		}
		if x.Int64() != tt.x {
			t.Errorf("Division modified its argument")
		}
	}
}

// scanCall is one Scan invocation seen by recordingScanner.
type scanCall struct {
	lo, hi   *big.Int
	tested   []*big.Int
	accepted []bool
}

// recordingScanner scans sequentially and records every range and candidate.
type recordingScanner struct {
	calls []*scanCall
}

func (r *recordingScanner) Scan(ctx context.Context, lo, hi *big.Int, accept Predicate) (*big.Int, error) {
	call := &scanCall{lo: new(big.Int).Set(lo), hi: new(big.Int).Set(hi)}
	r.calls = append(r.calls, call)
	return NewSequentialScanner().Scan(ctx, lo, hi, func(s *big.Int) (bool, error) {
		ok, err := accept(s)
		call.tested = append(call.tested, new(big.Int).Set(s))
		call.accepted = append(call.accepted, ok)
		return ok, err
	})
}

func (r *recordingScanner) Name() string {
	return "Recording"
}

// ratioRange returns [⌈(2B + r⋅n) / b⌉, ⌊(3B + r⋅n) / a⌋].
func ratioRange(e *engine, iv Interval, r *big.Int) (*big.Int, *big.Int) {
	rn := new(big.Int).Mul(r, e.n)
	lo := ceilDiv(new(big.Int).Add(e.twoB, rn), iv.B)
	hi := floorDiv(new(big.Int).Add(e.threeB, rn), iv.A)
	return lo, hi
}

// firstRatio returns ⌈2(b⋅s - 2B) / n⌉.
func firstRatio(e *engine, iv Interval) *big.Int {
	r := new(big.Int).Mul(iv.B, e.s)
	r.Sub(r, e.twoB)
	r.Mul(r, two)
	return ceilDiv(r, e.n)
}

func TestEngine_SearchOne_StaysInBounds(t *testing.T) {
	target := loadTestTarget(t, "single interval")
	rec := &recordingScanner{}
	e, err := newEngine(target.ciphertext, target.priv.Public(), prefixOracle(t, target.priv), rec, DefaultConfig())
	if err != nil {
		t.Fatalf("newEngine failed: %v", err)
	}

	iv := NewInterval(target.padded, new(big.Int).Add(target.padded, one))
	e.m = IntervalSet{iv}
	e.i = 2

	// Pick a previous s whose first range of multipliers is empty, so the
	// search has to move on to the next r.
	found := false
	for s := int64(2); s < 1<<16 && !found; s++ {
		e.s = big.NewInt(s)
		lo, hi := ratioRange(e, iv, firstRatio(e, iv))
		found = lo.Cmp(hi) > 0
	}
	if !found {
		t.Fatal("No previous s gives an empty first range")
	}
	r := firstRatio(e, iv)

	got, err := e.searchOne(context.Background(), iv)
	if err != nil {
		t.Fatalf("searchOne failed: %v", err)
	}

	if len(rec.calls) < 2 {
		t.Fatalf("Expected the search to advance r past an empty range, got %d ranges", len(rec.calls))
	}
	if len(rec.calls[0].tested) != 0 {
		t.Errorf("Empty range [%s, %s] issued %d queries", rec.calls[0].lo, rec.calls[0].hi, len(rec.calls[0].tested))
	}

	for j, call := range rec.calls {
		lo, hi := ratioRange(e, iv, r)
		if call.lo.Cmp(lo) != 0 || call.hi.Cmp(hi) != 0 {
			t.Errorf("Range %d is [%s, %s], want [%s, %s] for r=%s", j, call.lo, call.hi, lo, hi, r)
		}
		for k, s := range call.tested {
			if s.Cmp(lo) < 0 || s.Cmp(hi) > 0 {
				t.Errorf("Queried s=%s outside [%s, %s]", s, lo, hi)
			}
			last := j == len(rec.calls)-1 && k == len(call.tested)-1
			if call.accepted[k] != last {
				t.Errorf("s=%s accepted=%v, only the returned multiplier may be accepted", s, call.accepted[k])
			}
			if last && s.Cmp(got) != 0 {
				t.Errorf("Returned s=%s, last accepted %s", got, s)
			}
		}
		r.Add(r, one)
	}

	ms := new(big.Int).Mul(target.padded, got)
	ms.Mod(ms, e.n)
	if ms.Cmp(e.twoB) < 0 || ms.Cmp(e.threeB) >= 0 {
		t.Errorf("Accepted s=%s maps the plaintext outside [2B, 3B)", got)
	}
}

func TestEngine_SearchOne_Exhausted(t *testing.T) {
	target := loadTestTarget(t, "ratio steps")
	rec := &recordingScanner{}
	never := rsapkcs1.OracleFunc(func([]byte) bool { return false })

	e, err := newEngine(target.ciphertext, target.priv.Public(), never, rec, Config{MaxRatioSteps: 3})
	if err != nil {
		t.Fatalf("newEngine failed: %v", err)
	}
	iv := NewInterval(target.padded, new(big.Int).Add(target.padded, one))
	e.m = IntervalSet{iv}
	e.s = big.NewInt(2)
	e.i = 2

	_, err = e.searchOne(context.Background(), iv)
	if !errors.Is(err, ErrSearchExhausted) {
		t.Fatalf("Expected ErrSearchExhausted, got %v", err)
	}
	if len(rec.calls) != 3 {
		t.Errorf("Expected 3 values of r, got %d", len(rec.calls))
	}
}

func TestEngine_Run_EmptyIntervalSet(t *testing.T) {
	target := loadTestTarget(t, "inconsistent")
	pub := target.priv.Public()
	c := new(big.Int).SetBytes(target.ciphertext)

	e, err := newEngine(target.ciphertext, pub, nil, NewSequentialScanner(), DefaultConfig())
	if err != nil {
		t.Fatalf("newEngine failed: %v", err)
	}
	e.m = IntervalSet{NewInterval(e.twoB, e.twoB), NewInterval(e.threeBMinus1, e.threeBMinus1)}
	e.s = big.NewInt(1)
	e.i = 2

	// The first multiplier that rules out both candidates.
	bad := big.NewInt(2)
	for len(e.narrow(bad)) != 0 {
		bad.Add(bad, one)
	}
	accepted := new(big.Int).Exp(bad, pub.E, pub.N)
	accepted.Mul(accepted, c)
	accepted.Mod(accepted, pub.N)

	e.oracle = rsapkcs1.OracleFunc(func(ciphertext []byte) bool {
		x := new(big.Int).SetBytes(ciphertext)
		return x.Cmp(c) == 0 || x.Cmp(accepted) == 0
	})

	_, err = e.run(context.Background())
	if !errors.Is(err, ErrEmptyIntervalSet) {
		t.Errorf("Expected ErrEmptyIntervalSet, got %v", err)
	}
}

func TestEngine_QueryBudget_ParallelMatchesSequential(t *testing.T) {
	target := loadTestTarget(t, "budget")
	pub := target.priv.Public()
	c := new(big.Int).SetBytes(target.ciphertext)

	scanners := []Scanner{
		NewSequentialScanner(),
		&ParallelScanner{NumWorkers: 4, Window: 32},
	}
	for _, scanner := range scanners {
		t.Run(scanner.Name(), func(t *testing.T) {
			e, err := newEngine(target.ciphertext, pub, nil, scanner, Config{MaxQueries: 3})
			if err != nil {
				t.Fatalf("newEngine failed: %v", err)
			}

			// The second candidate is accepted, slowly, with one query left
			// after it.
			s0 := new(big.Int).Add(ceilDiv(pub.N, e.threeB), one)
			accepted := new(big.Int).Exp(s0, pub.E, pub.N)
			accepted.Mul(accepted, c)
			accepted.Mod(accepted, pub.N)
			e.oracle = rsapkcs1.OracleFunc(func(ciphertext []byte) bool {
				x := new(big.Int).SetBytes(ciphertext)
				if x.Cmp(accepted) == 0 {
					time.Sleep(5 * time.Millisecond)
					return true
				}
				return x.Cmp(c) == 0
			})

			if ok, err := e.conforming(one); err != nil || !ok {
				t.Fatalf("Precondition query: %v, %v", ok, err)
			}
			got, err := e.searchInitial(context.Background())
			if err != nil {
				t.Fatalf("searchInitial failed: %v", err)
			}
			if got.Cmp(s0) != 0 {
				t.Errorf("Expected s1 = %s, got %s", s0, got)
			}
			if e.queries > 3 {
				t.Errorf("Spent %d queries with a budget of 3", e.queries)
			}
		})
	}
}
