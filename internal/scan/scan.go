// Package scan finds the smallest integer in a closed range accepted by a
// predicate. Both scanners test candidates in increasing order of preference
// and never report a larger candidate while a smaller accepted one exists.
package scan

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
)

var one = big.NewInt(1)

// Predicate reports whether candidate is accepted. A non-nil error aborts the
// scan.
type Predicate func(candidate *big.Int) (bool, error)

// Sequential tests lo, lo+1, ..., hi in order and returns the first accepted
// candidate, or nil if none is accepted. The returned value is a fresh copy.
func Sequential(ctx context.Context, lo, hi *big.Int, accept Predicate) (*big.Int, error) {
	if lo.Cmp(hi) > 0 {
		return nil, nil
	}

	s := new(big.Int).Set(lo)
	for ; s.Cmp(hi) <= 0; s.Add(s, one) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "scan cancelled")
		}
		ok, err := accept(new(big.Int).Set(s))
		if err != nil {
			return nil, err
		}
		if ok {
			return s, nil
		}
	}
	return nil, nil
}
