package rsapkcs1

import (
	"io"
	"math/big"

	"github.com/pkg/errors"
)

var (
	// ErrMessageTooLarge is returned when the integer to encrypt is not
	// smaller than the modulus.
	ErrMessageTooLarge = errors.New("message integer not smaller than modulus")

	// ErrCiphertextTooLarge is returned when the ciphertext integer is not
	// smaller than the modulus.
	ErrCiphertextTooLarge = errors.New("ciphertext integer not smaller than modulus")
)

// EncryptRaw computes xᵉ mod n.
func EncryptRaw(pub *PublicKey, x *big.Int) (*big.Int, error) {
	if x.Sign() < 0 || x.Cmp(pub.N) >= 0 {
		return nil, ErrMessageTooLarge
	}
	return new(big.Int).Exp(x, pub.E, pub.N), nil
}

// DecryptRaw computes cᵈ mod n.
func DecryptRaw(priv *PrivateKey, c *big.Int) (*big.Int, error) {
	if c.Sign() < 0 || c.Cmp(priv.N) >= 0 {
		return nil, ErrCiphertextTooLarge
	}
	if priv.crt == nil {
		return new(big.Int).Exp(c, priv.D, priv.N), nil
	}
	return priv.crt.exp(c), nil
}

// Encrypt pads message to the modulus length and encrypts it. The ciphertext
// is k bytes long.
func Encrypt(random io.Reader, pub *PublicKey, message []byte) ([]byte, error) {
	k := pub.Size()
	block, err := Pad(random, message, k)
	if err != nil {
		return nil, err
	}

	m := new(big.Int).SetBytes(block)
	c, err := EncryptRaw(pub, m)
	if err != nil {
		return nil, errors.Wrap(err, "key and message size mismatch")
	}
	return c.FillBytes(make([]byte, k)), nil
}

// Decrypt decrypts ciphertext and removes the PKCS#1 v1.5 padding. It
// returns ErrInvalidPadding when the decrypted block is malformed.
func Decrypt(priv *PrivateKey, ciphertext []byte) ([]byte, error) {
	c := new(big.Int).SetBytes(ciphertext)
	m, err := DecryptRaw(priv, c)
	if err != nil {
		return nil, err
	}
	return Unpad(m.Bytes(), priv.Size())
}
