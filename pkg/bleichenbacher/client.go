package bleichenbacher

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/mahdiidarabi/rsa-pkcs1-oracle/pkg/rsapkcs1"
)

// Client provides a high-level API for padding oracle attacks.
type Client struct {
	scanner Scanner
	config  Config
}

// NewClient creates a new client with default settings.
func NewClient() *Client {
	return &Client{
		scanner: NewSequentialScanner(),
		config:  DefaultConfig(),
	}
}

// WithScanner sets a custom scanner.
func (c *Client) WithScanner(scanner Scanner) *Client {
	c.scanner = scanner
	return c
}

// WithConfig sets the attack configuration.
func (c *Client) WithConfig(config Config) *Client {
	c.config = config
	return c
}

// WithProgress sets the writer that receives progress lines.
func (c *Client) WithProgress(w io.Writer) *Client {
	c.config.Progress = w
	return c
}

// Recover decrypts ciphertext using only the public key and the padding
// oracle.
//
// Args:
//   - ctx: Context for cancellation.
//   - ciphertext: Big-endian ciphertext, at most k bytes.
//   - pub: Public key the ciphertext was encrypted under.
//   - oracle: Reports whether a ciphertext decrypts to a conforming block.
//
// Returns:
//   - Result with the unpadded plaintext if successful, error otherwise.
func (c *Client) Recover(ctx context.Context, ciphertext []byte, pub *rsapkcs1.PublicKey, oracle rsapkcs1.Oracle) (*Result, error) {
	if oracle == nil {
		return nil, errors.New("oracle is required")
	}
	e, err := newEngine(ciphertext, pub, oracle, c.scanner, c.config)
	if err != nil {
		return nil, err
	}
	return e.run(ctx)
}

// RecoverBatch runs Recover on each ciphertext in turn and stops at the first
// failure.
func (c *Client) RecoverBatch(ctx context.Context, ciphertexts [][]byte, pub *rsapkcs1.PublicKey, oracle rsapkcs1.Oracle) ([]*Result, error) {
	results := make([]*Result, 0, len(ciphertexts))
	for i, ciphertext := range ciphertexts {
		result, err := c.Recover(ctx, ciphertext, pub, oracle)
		if err != nil {
			return results, errors.Wrapf(err, "ciphertext %d", i)
		}
		results = append(results, result)
	}
	return results, nil
}

// Attack recovers the plaintext of ciphertext with default settings.
func Attack(ctx context.Context, ciphertext []byte, pub *rsapkcs1.PublicKey, oracle rsapkcs1.Oracle) ([]byte, error) {
	result, err := NewClient().Recover(ctx, ciphertext, pub, oracle)
	if err != nil {
		return nil, err
	}
	return result.Plaintext, nil
}
