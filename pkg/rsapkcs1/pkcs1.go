package rsapkcs1

import (
	"bytes"
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidPadding is returned when a block is not a PKCS#1 v1.5 type 2
	// encryption block.
	ErrInvalidPadding = errors.New("invalid PKCS#1 v1.5 padding")

	// ErrMessageTooLong is returned when a message does not fit in a block.
	ErrMessageTooLong = errors.New("message too long for block size")
)

// Pad returns the size-byte block 0x00 || 0x02 || PS || 0x00 || message where
// PS is size-3-len(message) nonzero random bytes.
func Pad(random io.Reader, message []byte, size int) ([]byte, error) {
	if len(message) > size-3 {
		return nil, errors.Wrapf(ErrMessageTooLong, "%d bytes into %d-byte block", len(message), size)
	}
	if random == nil {
		random = rand.Reader
	}

	block := make([]byte, size)
	block[1] = 0x02
	ps := block[2 : size-len(message)-1]
	if err := fillNonZeroBytes(random, ps); err != nil {
		return nil, errors.Wrap(err, "failed to generate padding")
	}
	copy(block[size-len(message):], message)
	return block, nil
}

// Unpad strips the padding from a block of a size-byte modulus. The block is
// the minimal big-endian encoding of the padded integer, so the leading 0x00
// is already gone: it must be size-1 bytes long and start with 0x02. The
// message is everything after the first zero byte following the marker.
func Unpad(block []byte, size int) ([]byte, error) {
	if len(block) != size-1 || len(block) < 2 || block[0] != 0x02 {
		return nil, ErrInvalidPadding
	}
	sep := bytes.IndexByte(block[1:], 0x00)
	if sep < 0 {
		return nil, ErrInvalidPadding
	}
	return block[sep+2:], nil
}

func fillNonZeroBytes(random io.Reader, buf []byte) error {
	if _, err := io.ReadFull(random, buf); err != nil {
		return err
	}
	for i := range buf {
		for buf[i] == 0 {
			if _, err := io.ReadFull(random, buf[i:i+1]); err != nil {
				return err
			}
		}
	}
	return nil
}
