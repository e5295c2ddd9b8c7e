package bleichenbacher

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/mahdiidarabi/rsa-pkcs1-oracle/pkg/rsapkcs1"
)

const (
	testBits     = 256
	testExponent = 3
)

// testTarget is a key pair with one padded message encrypted under it.
type testTarget struct {
	priv       *rsapkcs1.PrivateKey
	message    []byte
	padded     *big.Int // the plaintext integer the attack must converge to
	ciphertext []byte
}

// loadTestTarget generates a fresh key and encrypts message under it.
func loadTestTarget(t *testing.T, message string) *testTarget {
	t.Helper()

	priv, err := rsapkcs1.GenerateKey(rand.Reader, testBits, testExponent)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	return encryptTestTarget(t, priv, message)
}

func encryptTestTarget(t *testing.T, priv *rsapkcs1.PrivateKey, message string) *testTarget {
	t.Helper()

	k := priv.Size()
	block, err := rsapkcs1.Pad(rand.Reader, []byte(message), k)
	if err != nil {
		t.Fatalf("Failed to pad message: %v", err)
	}
	padded := new(big.Int).SetBytes(block)
	c, err := rsapkcs1.EncryptRaw(priv.Public(), padded)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	return &testTarget{
		priv:       priv,
		message:    []byte(message),
		padded:     padded,
		ciphertext: c.FillBytes(make([]byte, k)),
	}
}

// prefixOracle accepts any ciphertext whose plaintext starts with 0x00 0x02.
// It is weaker than the full padding check, so the attack needs fewer
// queries, and it is still sound for the interval math.
func prefixOracle(t *testing.T, priv *rsapkcs1.PrivateKey) rsapkcs1.Oracle {
	k := priv.Size()
	return rsapkcs1.OracleFunc(func(ciphertext []byte) bool {
		m, err := rsapkcs1.DecryptRaw(priv, new(big.Int).SetBytes(ciphertext))
		if err != nil {
			t.Errorf("Oracle got an out-of-range ciphertext: %v", err)
			return false
		}
		block := m.FillBytes(make([]byte, k))
		return block[0] == 0x00 && block[1] == 0x02
	})
}
