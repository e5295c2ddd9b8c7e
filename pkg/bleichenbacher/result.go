package bleichenbacher

import "math/big"

// Result contains the result of a successful attack.
type Result struct {
	Plaintext  []byte   // Recovered message, padding removed
	Padded     *big.Int // Padded plaintext integer the intervals converged to
	S          *big.Int // Last accepted trial multiplier
	Iterations int      // Final value of the iteration counter
	Queries    int64    // Oracle queries issued, including the precondition check
}

// Progress is a snapshot taken after every interval update. It is
// informational only.
type Progress struct {
	Iteration int
	S         *big.Int
	Intervals IntervalSet
	Mass      *big.Int
	Queries   int64
}
