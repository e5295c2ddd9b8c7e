package rsapkcs1

import (
	"math/big"

	"github.com/pkg/errors"
)

// ErrNotPerfectPower is returned when a ciphertext is not an exact e-th power,
// i.e. the message was padded or large enough to wrap around the modulus.
var ErrNotPerfectPower = errors.New("ciphertext is not a perfect power of the exponent")

// Root returns the integer e-th root of x, rounded down, using Newton's
// method from an initial guess above the root. e must be positive.
func Root(x *big.Int, e int) *big.Int {
	if x.Sign() <= 0 {
		return new(big.Int)
	}
	if e == 1 {
		return new(big.Int).Set(x)
	}

	eBig := big.NewInt(int64(e))
	eMinus1 := big.NewInt(int64(e - 1))

	guess := new(big.Int).Lsh(one, uint(x.BitLen()/e+1))
	t := new(big.Int)
	for {
		// next = ((e-1)*guess + x / guess^(e-1)) / e
		t.Exp(guess, eMinus1, nil)
		t.Quo(x, t)
		next := new(big.Int).Mul(guess, eMinus1)
		next.Add(next, t)
		next.Quo(next, eBig)
		if next.Cmp(guess) >= 0 {
			return guess
		}
		guess = next
	}
}

// exactRoot returns the e-th root of x or ErrNotPerfectPower.
func exactRoot(x *big.Int, e *big.Int) (*big.Int, error) {
	if e.Cmp(two) < 0 {
		return nil, errors.Errorf("public exponent %s invalid for root extraction", e)
	}
	if !e.IsInt64() || e.Int64() > 1<<16 {
		return nil, errors.Errorf("public exponent %s too large for root extraction", e)
	}
	r := Root(x, int(e.Int64()))
	if new(big.Int).Exp(r, e, nil).Cmp(x) != 0 {
		return nil, ErrNotPerfectPower
	}
	return r, nil
}

// RecoverLowExponent recovers an unpadded message m from c = mᵉ mod n when
// mᵉ < n, in which case the modular reduction never happened and c is an
// exact e-th power.
func RecoverLowExponent(pub *PublicKey, ciphertext []byte) ([]byte, error) {
	c := new(big.Int).SetBytes(ciphertext)
	if c.Cmp(pub.N) >= 0 {
		return nil, ErrCiphertextTooLarge
	}
	m, err := exactRoot(c, pub.E)
	if err != nil {
		return nil, err
	}
	return m.Bytes(), nil
}

// RecoverBroadcast recovers a message sent unpadded to e recipients sharing
// the public exponent e. The ciphertexts are combined with the Chinese
// remainder theorem into mᵉ mod n₁⋯nₑ, which equals mᵉ since m < nᵢ.
func RecoverBroadcast(pubs []*PublicKey, ciphertexts [][]byte) ([]byte, error) {
	if len(pubs) == 0 || len(pubs) != len(ciphertexts) {
		return nil, errors.Errorf("need matching keys and ciphertexts, got %d and %d", len(pubs), len(ciphertexts))
	}
	e := pubs[0].E
	if !e.IsInt64() || int64(len(pubs)) < e.Int64() {
		return nil, errors.Errorf("need at least %s ciphertexts, got %d", e, len(pubs))
	}

	product := big.NewInt(1)
	for i, pub := range pubs {
		if pub.E.Cmp(e) != 0 {
			return nil, errors.Errorf("key %d has exponent %s, want %s", i, pub.E, e)
		}
		product.Mul(product, pub.N)
	}

	sum := new(big.Int)
	for i, pub := range pubs {
		c := new(big.Int).SetBytes(ciphertexts[i])
		rest := new(big.Int).Quo(product, pub.N)
		inv := new(big.Int).ModInverse(rest, pub.N)
		if inv == nil {
			return nil, errors.Errorf("modulus %d is not coprime to the others", i)
		}
		term := new(big.Int).Mul(c, rest)
		term.Mul(term, inv)
		sum.Add(sum, term)
	}
	sum.Mod(sum, product)

	m, err := exactRoot(sum, e)
	if err != nil {
		return nil, err
	}
	return m.Bytes(), nil
}
