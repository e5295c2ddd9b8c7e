package bleichenbacher

import (
	"fmt"
	"math/big"
	"strings"
)

// Interval is the closed range [A, B] of candidate plaintext integers. Its
// bounds are never modified once the interval is built.
type Interval struct {
	A *big.Int // lower bound, inclusive
	B *big.Int // upper bound, inclusive
}

// NewInterval returns [a, b] holding copies of the bounds.
func NewInterval(a, b *big.Int) Interval {
	return Interval{A: new(big.Int).Set(a), B: new(big.Int).Set(b)}
}

// Size returns b-a+1.
func (iv Interval) Size() *big.Int {
	size := new(big.Int).Sub(iv.B, iv.A)
	return size.Add(size, one)
}

// Contains reports whether a ≤ x ≤ b.
func (iv Interval) Contains(x *big.Int) bool {
	return iv.A.Cmp(x) <= 0 && x.Cmp(iv.B) <= 0
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%x, %x]", iv.A, iv.B)
}

// IntervalSet is the set M of intervals still consistent with every oracle
// answer. It is rebuilt each iteration; members of one set are disjoint.
type IntervalSet []Interval

// Mass returns the total number of candidates Σ(b-a+1).
func (m IntervalSet) Mass() *big.Int {
	mass := new(big.Int)
	for _, iv := range m {
		mass.Add(mass, iv.Size())
	}
	return mass
}

// Contains reports whether any interval contains x.
func (m IntervalSet) Contains(x *big.Int) bool {
	for _, iv := range m {
		if iv.Contains(x) {
			return true
		}
	}
	return false
}

// Value returns the only remaining candidate when the set has narrowed to a
// single interval with a == b.
func (m IntervalSet) Value() (*big.Int, bool) {
	if len(m) != 1 || m[0].A.Cmp(m[0].B) != 0 {
		return nil, false
	}
	return m[0].A, true
}

func (m IntervalSet) String() string {
	parts := make([]string, len(m))
	for i, iv := range m {
		parts[i] = iv.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
