package parser

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// KeyRecord is the on-disk form of an RSA key. Private fields are empty for
// public-only files.
type KeyRecord struct {
	N string `json:"n"`
	E string `json:"e"`
	D string `json:"d,omitempty"`
	P string `json:"p,omitempty"`
	Q string `json:"q,omitempty"`
}

// ReadKeyFile reads a key record from a JSON file.
//
// Expected format:
//
//	{"n": "0x...", "e": "3", "d": "0x...", "p": "0x...", "q": "0x..."}
//
// Numbers may also be given as bare JSON numbers.
func ReadKeyFile(path string) (*KeyRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read key file")
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.UseNumber() // Preserve large numbers as json.Number instead of float64

	var raw map[string]interface{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse key JSON")
	}

	rec := &KeyRecord{}
	fields := map[string]*string{"n": &rec.N, "e": &rec.E, "d": &rec.D, "p": &rec.P, "q": &rec.Q}
	for name, dst := range fields {
		val, ok := raw[name]
		if !ok {
			continue
		}
		z, err := ParseBigInt(val)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", name)
		}
		*dst = "0x" + z.Text(16)
	}

	if rec.N == "" || rec.E == "" {
		return nil, errors.New("key file must contain n and e")
	}
	return rec, nil
}

// WriteKeyFile writes a key record as indented JSON with mode 0600.
func WriteKeyFile(path string, rec *KeyRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode key")
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to write key file")
	}
	return nil
}

// ParseCiphertextsFromJSON parses ciphertexts from a JSON file.
//
// Expected format:
//
//	[
//	  {"ciphertext": "0x..."},
//	  "0a1b..."
//	]
func ParseCiphertextsFromJSON(jsonFile, field string) ([][]byte, error) {
	file, err := os.Open(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	defer file.Close()

	if field == "" {
		field = "ciphertext"
	}

	var items []interface{}
	if err := json.NewDecoder(file).Decode(&items); err != nil {
		return nil, errors.Wrap(err, "failed to parse JSON")
	}

	ciphertexts := make([][]byte, 0, len(items))
	for i, item := range items {
		var text string
		switch v := item.(type) {
		case string:
			text = v
		case map[string]interface{}:
			s, ok := v[field].(string)
			if !ok {
				return nil, errors.Errorf("item %d: missing %s field", i, field)
			}
			text = s
		default:
			return nil, errors.Errorf("item %d: unsupported type %T", i, item)
		}
		c, err := DecodeHex(text)
		if err != nil {
			return nil, errors.Wrapf(err, "item %d", i)
		}
		ciphertexts = append(ciphertexts, c)
	}

	return ciphertexts, nil
}

// ParseCiphertextsFromCSV parses ciphertexts from the named column of a CSV
// file with a header row.
func ParseCiphertextsFromCSV(csvFile, column string) ([][]byte, error) {
	file, err := os.Open(csvFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	if column == "" {
		column = "ciphertext"
	}

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}

	idx := -1
	for i, col := range header {
		if col == column {
			idx = i
		}
	}
	if idx == -1 {
		return nil, errors.Errorf("missing required column: %s", column)
	}

	ciphertexts := make([][]byte, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read record")
		}
		if idx >= len(record) {
			return nil, errors.Errorf("%s column index out of range", column)
		}
		c, err := DecodeHex(record[idx])
		if err != nil {
			return nil, err
		}
		ciphertexts = append(ciphertexts, c)
	}

	return ciphertexts, nil
}

// DecodeHex decodes a hex string, handling a 0x prefix and odd length.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "invalid hex")
	}
	return b, nil
}

// ParseBigInt parses a big integer from various formats (0x-prefixed hex,
// decimal string, JSON number). A string without the 0x prefix is always
// decimal, so "10" is ten and "ff" is rejected.
func ParseBigInt(val interface{}) (*big.Int, error) {
	switch v := val.(type) {
	case string:
		s := strings.TrimSpace(v)
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			z, ok := new(big.Int).SetString(s[2:], 16)
			if !ok {
				return nil, errors.Errorf("invalid number format: %s", v)
			}
			return z, nil
		}

		z, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, errors.Errorf("invalid number format: %s", v)
		}
		return z, nil

	case json.Number:
		z, ok := new(big.Int).SetString(string(v), 10)
		if !ok {
			return nil, errors.Errorf("invalid number format: %s", v)
		}
		return z, nil

	case float64:
		z, ok := new(big.Int).SetString(big.NewFloat(v).Text('f', 0), 10)
		if !ok {
			return nil, errors.Errorf("invalid number format: %v", v)
		}
		return z, nil

	case int64:
		return big.NewInt(v), nil

	case int:
		return big.NewInt(int64(v)), nil

	default:
		return nil, errors.Errorf("unsupported type: %T", val)
	}
}
