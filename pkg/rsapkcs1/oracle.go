package rsapkcs1

import "sync/atomic"

// Oracle reports whether a ciphertext decrypts to a validly padded block. It
// is the only information an attacker gets.
type Oracle interface {
	Query(ciphertext []byte) bool
}

// OracleFunc adapts an ordinary function to the Oracle interface.
type OracleFunc func(ciphertext []byte) bool

// Query calls f(ciphertext).
func (f OracleFunc) Query(ciphertext []byte) bool {
	return f(ciphertext)
}

// NewPaddingOracle returns an oracle that decrypts with priv and reports
// whether unpadding succeeded. The plaintext is never exposed.
func NewPaddingOracle(priv *PrivateKey) Oracle {
	return OracleFunc(func(ciphertext []byte) bool {
		_, err := Decrypt(priv, ciphertext)
		return err == nil
	})
}

// CountingOracle counts the queries forwarded to the wrapped oracle. It is
// safe for concurrent use.
type CountingOracle struct {
	Oracle Oracle

	queries int64
}

// Query forwards to the wrapped oracle.
func (o *CountingOracle) Query(ciphertext []byte) bool {
	atomic.AddInt64(&o.queries, 1)
	return o.Oracle.Query(ciphertext)
}

// Queries returns the number of queries so far.
func (o *CountingOracle) Queries() int64 {
	return atomic.LoadInt64(&o.queries)
}
