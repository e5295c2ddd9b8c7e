package parser

import (
	"bytes"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestParseBigInt(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want int64
	}{
		{"decimal string", "65537", 65537},
		{"prefixed hex", "0x10001", 65537},
		{"upper prefix", "0X10001", 65537},
		{"bare digits are decimal", "10", 10},
		{"json number", json.Number("3"), 3},
		{"float", float64(17), 17},
		{"int64", int64(42), 42},
		{"int", 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBigInt(tt.in)
			if err != nil {
				t.Fatalf("ParseBigInt(%v) failed: %v", tt.in, err)
			}
			if got.Cmp(big.NewInt(tt.want)) != 0 {
				t.Errorf("ParseBigInt(%v) = %s, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseBigInt_Invalid(t *testing.T) {
	for _, in := range []interface{}{"0xzz", "12x", "ff", "1a", []byte{1}} {
		if _, err := ParseBigInt(in); err == nil {
			t.Errorf("ParseBigInt(%v) should fail", in)
		}
	}
}

func TestKeyFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	want := &KeyRecord{N: "0xc5", E: "0x3", D: "0x7b", P: "0xb", Q: "0x11"}

	if err := WriteKeyFile(path, want); err != nil {
		t.Fatalf("WriteKeyFile failed: %v", err)
	}

	got, err := ReadKeyFile(path)
	if err != nil {
		t.Fatalf("ReadKeyFile failed: %v", err)
	}
	if *got != *want {
		t.Errorf("Key record mismatch. Got: %+v, Expected: %+v", got, want)
	}
}

func TestReadKeyFile_NumbersAndMissingFields(t *testing.T) {
	path := writeTemp(t, "pub.json", `{"n": 197, "e": 3}`)
	rec, err := ReadKeyFile(path)
	if err != nil {
		t.Fatalf("ReadKeyFile failed: %v", err)
	}
	if rec.N != "0xc5" || rec.E != "0x3" || rec.D != "" {
		t.Errorf("Unexpected record: %+v", rec)
	}

	path = writeTemp(t, "bad.json", `{"e": 3}`)
	if _, err := ReadKeyFile(path); err == nil {
		t.Error("ReadKeyFile should fail without n")
	}
}

func TestParseCiphertextsFromJSON(t *testing.T) {
	path := writeTemp(t, "c.json", `[{"ciphertext": "0x0102"}, "abc", {"ct": "ff"}]`)
	if _, err := ParseCiphertextsFromJSON(path, ""); err == nil {
		t.Fatal("Expected error for item without ciphertext field")
	}

	path = writeTemp(t, "c.json", `[{"ciphertext": "0x0102"}, "abc"]`)
	got, err := ParseCiphertextsFromJSON(path, "")
	if err != nil {
		t.Fatalf("ParseCiphertextsFromJSON failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 ciphertexts, got %d", len(got))
	}
	if !bytes.Equal(got[0], []byte{0x01, 0x02}) || !bytes.Equal(got[1], []byte{0x0a, 0xbc}) {
		t.Errorf("Unexpected ciphertexts: %x", got)
	}
}

func TestParseCiphertextsFromCSV(t *testing.T) {
	path := writeTemp(t, "c.csv", "id,ciphertext\n1, 0a0b\n2,0x0c\n")
	got, err := ParseCiphertextsFromCSV(path, "")
	if err != nil {
		t.Fatalf("ParseCiphertextsFromCSV failed: %v", err)
	}
	if len(got) != 2 || !bytes.Equal(got[0], []byte{0x0a, 0x0b}) || !bytes.Equal(got[1], []byte{0x0c}) {
		t.Errorf("Unexpected ciphertexts: %x", got)
	}

	path = writeTemp(t, "bad.csv", "id,value\n1,00\n")
	if _, err := ParseCiphertextsFromCSV(path, ""); err == nil {
		t.Error("Expected error for missing column")
	}
}
