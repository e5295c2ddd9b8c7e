package rsapkcs1

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// PublicKey is an RSA public key (e, n).
type PublicKey struct {
	N *big.Int // modulus
	E *big.Int // public exponent
}

// PrivateKey is an RSA key pair with its factorization.
type PrivateKey struct {
	PublicKey
	D *big.Int // private exponent
	P *big.Int
	Q *big.Int

	crt *crtModulus
}

// Size returns the modulus length k in bytes.
func (pub *PublicKey) Size() int {
	return (pub.N.BitLen() + 7) / 8
}

// Validate checks that the public key is usable for PKCS#1 v1.5 encryption.
func (pub *PublicKey) Validate() error {
	if pub == nil || pub.N == nil || pub.E == nil {
		return errors.New("missing public modulus or exponent")
	}
	if pub.E.Cmp(two) <= 0 {
		return errors.Errorf("public exponent too small: %s", pub.E)
	}
	// 0x00 0x02, eight bytes of padding, separator
	if pub.Size() < 11 {
		return errors.Errorf("modulus too small: %d bits", pub.N.BitLen())
	}
	return nil
}

// Public returns the public part of the key pair.
func (priv *PrivateKey) Public() *PublicKey {
	return &priv.PublicKey
}

// Precompute caches the CRT values. It is called by GenerateKey and
// LoadPrivateKey; keys built by hand must call it before Decrypt.
func (priv *PrivateKey) Precompute() {
	if priv.P == nil || priv.Q == nil {
		return
	}
	priv.crt = newCRTModulus(priv.P, priv.Q, priv.D)
}

// Validate checks that the key pair is consistent.
func (priv *PrivateKey) Validate() error {
	if err := priv.PublicKey.Validate(); err != nil {
		return err
	}
	if priv.D == nil || priv.D.Sign() <= 0 {
		return errors.New("missing private exponent")
	}
	if priv.P == nil || priv.Q == nil {
		return errors.New("missing prime factors")
	}
	if new(big.Int).Mul(priv.P, priv.Q).Cmp(priv.N) != 0 {
		return errors.New("invalid modulus: n != p*q")
	}

	// d*e ≡ 1 mod (p-1) and mod (q-1)
	de := new(big.Int).Mul(priv.D, priv.E)
	for _, prime := range []*big.Int{priv.P, priv.Q} {
		pMinus1 := new(big.Int).Sub(prime, one)
		if new(big.Int).Mod(de, pMinus1).Cmp(one) != 0 {
			return errors.New("invalid exponents")
		}
	}
	return nil
}

// GenerateKey generates an RSA key pair whose modulus has exactly bits bits
// and whose public exponent is e.
func GenerateKey(random io.Reader, bits, e int) (*PrivateKey, error) {
	if random == nil {
		random = rand.Reader
	}
	exponent := big.NewInt(int64(e))
	if e < 3 || !exponent.ProbablyPrime(20) {
		return nil, errors.Errorf("invalid public exponent %d", e)
	}
	if bits < 88 || bits%2 != 0 {
		return nil, errors.Errorf("invalid modulus size %d", bits)
	}

	for {
		p, err := rand.Prime(random, bits/2)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate prime")
		}
		q, err := rand.Prime(random, bits/2)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate prime")
		}
		if p.Cmp(q) == 0 {
			continue
		}

		pMinus1 := new(big.Int).Sub(p, one)
		qMinus1 := new(big.Int).Sub(q, one)
		totient := new(big.Int).Mul(pMinus1, qMinus1)

		d := new(big.Int).ModInverse(exponent, totient)
		if d == nil {
			continue
		}

		n := new(big.Int).Mul(p, q)
		if n.BitLen() != bits {
			continue
		}

		priv := &PrivateKey{
			PublicKey: PublicKey{N: n, E: exponent},
			D:         d,
			P:         p,
			Q:         q,
		}
		priv.Precompute()
		return priv, nil
	}
}
