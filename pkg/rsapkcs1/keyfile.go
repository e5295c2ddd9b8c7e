package rsapkcs1

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/mahdiidarabi/rsa-pkcs1-oracle/internal/parser"
)

func hexText(z *big.Int) string {
	return "0x" + z.Text(16)
}

// SavePrivateKey writes the key pair to a JSON file.
func SavePrivateKey(path string, priv *PrivateKey) error {
	return parser.WriteKeyFile(path, &parser.KeyRecord{
		N: hexText(priv.N),
		E: hexText(priv.E),
		D: hexText(priv.D),
		P: hexText(priv.P),
		Q: hexText(priv.Q),
	})
}

// SavePublicKey writes only the public part of a key to a JSON file.
func SavePublicKey(path string, pub *PublicKey) error {
	return parser.WriteKeyFile(path, &parser.KeyRecord{
		N: hexText(pub.N),
		E: hexText(pub.E),
	})
}

// LoadPublicKey reads the public part of a key file. Private fields, if
// present, are ignored.
func LoadPublicKey(path string) (*PublicKey, error) {
	rec, err := parser.ReadKeyFile(path)
	if err != nil {
		return nil, err
	}
	pub, err := publicFromRecord(rec)
	if err != nil {
		return nil, err
	}
	if err := pub.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid public key")
	}
	return pub, nil
}

// LoadPrivateKey reads and validates a key pair from a JSON file.
func LoadPrivateKey(path string) (*PrivateKey, error) {
	rec, err := parser.ReadKeyFile(path)
	if err != nil {
		return nil, err
	}
	if rec.D == "" || rec.P == "" || rec.Q == "" {
		return nil, errors.New("key file has no private part")
	}
	pub, err := publicFromRecord(rec)
	if err != nil {
		return nil, err
	}

	priv := &PrivateKey{PublicKey: *pub}
	for _, f := range []struct {
		dst **big.Int
		src string
	}{{&priv.D, rec.D}, {&priv.P, rec.P}, {&priv.Q, rec.Q}} {
		z, err := parser.ParseBigInt(f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = z
	}

	if err := priv.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}
	priv.Precompute()
	return priv, nil
}

func publicFromRecord(rec *parser.KeyRecord) (*PublicKey, error) {
	n, err := parser.ParseBigInt(rec.N)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse n")
	}
	e, err := parser.ParseBigInt(rec.E)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse e")
	}
	return &PublicKey{N: n, E: e}, nil
}
