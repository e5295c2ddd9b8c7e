package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"

	"github.com/mahdiidarabi/rsa-pkcs1-oracle/internal/parser"
	"github.com/mahdiidarabi/rsa-pkcs1-oracle/pkg/bleichenbacher"
	"github.com/mahdiidarabi/rsa-pkcs1-oracle/pkg/rsapkcs1"
)

func main() {
	var (
		keyFile     = flag.String("key", "", "Path to key file (JSON with n, e and optionally d, p, q)")
		keygen      = flag.Bool("keygen", false, "Generate a new key pair and write it to --key")
		bits        = flag.Int("bits", 1024, "Modulus size in bits for --keygen")
		exponent    = flag.Int("e", 65537, "Public exponent for --keygen")
		encrypt     = flag.String("encrypt", "", "Message to encrypt under the key")
		decrypt     = flag.String("decrypt", "", "Ciphertext in hex to decrypt with the private key")
		raw         = flag.Bool("raw", false, "Skip PKCS#1 padding for --encrypt/--decrypt")
		attack      = flag.String("attack", "", "Ciphertext in hex to recover through the padding oracle")
		root        = flag.String("root", "", "Ciphertext in hex to recover by taking the e-th root")
		ciphertexts = flag.String("ciphertexts", "", "Path to ciphertexts file (JSON or CSV) for a batch attack")
		format      = flag.String("format", "json", "Ciphertexts file format (json or csv)")
		numWorkers  = flag.Int("workers", 1, "Number of parallel oracle workers (0 = auto-detect based on CPU cores)")
		maxQueries  = flag.Int64("max-queries", 0, "Maximum oracle queries per ciphertext (0 = unbounded)")
		verbose     = flag.Bool("verbose", false, "Print attack progress to stderr")
	)
	flag.Parse()

	if *keyFile == "" {
		fmt.Fprintf(os.Stderr, "Error: --key is required\n")
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	config := bleichenbacher.DefaultConfig()
	config.MaxQueries = *maxQueries
	if *verbose {
		config.Progress = os.Stderr
	}
	client := bleichenbacher.NewClient().WithConfig(config)
	if *numWorkers != 1 {
		client = client.WithScanner(bleichenbacher.NewParallelScanner(*numWorkers))
	}

	switch {
	case *keygen:
		fmt.Printf("Generating %d-bit key with e=%d...\n", *bits, *exponent)
		priv, err := rsapkcs1.GenerateKey(rand.Reader, *bits, *exponent)
		if err != nil {
			fail(err)
		}
		if err := rsapkcs1.SavePrivateKey(*keyFile, priv); err != nil {
			fail(err)
		}
		fmt.Printf("[+] Wrote key to %s\n", *keyFile)
		fmt.Printf("    n: %x\n", priv.N)

	case *encrypt != "":
		pub, err := rsapkcs1.LoadPublicKey(*keyFile)
		if err != nil {
			fail(err)
		}
		if *raw {
			c, err := rsapkcs1.EncryptRaw(pub, new(big.Int).SetBytes([]byte(*encrypt)))
			if err != nil {
				fail(err)
			}
			fmt.Println(hex.EncodeToString(c.FillBytes(make([]byte, pub.Size()))))
			return
		}
		ciphertext, err := rsapkcs1.Encrypt(rand.Reader, pub, []byte(*encrypt))
		if err != nil {
			fail(err)
		}
		fmt.Println(hex.EncodeToString(ciphertext))

	case *decrypt != "":
		priv, err := rsapkcs1.LoadPrivateKey(*keyFile)
		if err != nil {
			fail(err)
		}
		ciphertext := decodeCiphertext(*decrypt)
		if *raw {
			m, err := rsapkcs1.DecryptRaw(priv, new(big.Int).SetBytes(ciphertext))
			if err != nil {
				fail(err)
			}
			fmt.Printf("%x\n", m)
			return
		}
		message, err := rsapkcs1.Decrypt(priv, ciphertext)
		if err != nil {
			fail(err)
		}
		fmt.Printf("%s\n", message)

	case *attack != "":
		priv, err := rsapkcs1.LoadPrivateKey(*keyFile)
		if err != nil {
			fail(err)
		}
		oracle := &rsapkcs1.CountingOracle{Oracle: rsapkcs1.NewPaddingOracle(priv)}

		fmt.Printf("Attacking %d-byte ciphertext with %s scanner...\n", priv.Size(), scannerName(*numWorkers))
		result, err := client.Recover(ctx, decodeCiphertext(*attack), priv.Public(), oracle)
		if err != nil {
			fail(err)
		}
		printResult(result)

	case *root != "":
		pub, err := rsapkcs1.LoadPublicKey(*keyFile)
		if err != nil {
			fail(err)
		}
		message, err := rsapkcs1.RecoverLowExponent(pub, decodeCiphertext(*root))
		if err != nil {
			fail(err)
		}
		fmt.Printf("\n[+] Recovered message by %s-th root:\n", pub.E)
		fmt.Printf("    %q\n", message)

	case *ciphertexts != "":
		priv, err := rsapkcs1.LoadPrivateKey(*keyFile)
		if err != nil {
			fail(err)
		}

		fmt.Printf("Loading ciphertexts from %s...\n", *ciphertexts)
		var batch [][]byte
		if *format == "json" {
			batch, err = parser.ParseCiphertextsFromJSON(*ciphertexts, "ciphertext")
		} else {
			batch, err = parser.ParseCiphertextsFromCSV(*ciphertexts, "ciphertext")
		}
		if err != nil {
			fail(err)
		}
		fmt.Printf("Loaded %d ciphertexts\n", len(batch))

		oracle := &rsapkcs1.CountingOracle{Oracle: rsapkcs1.NewPaddingOracle(priv)}
		results, err := client.RecoverBatch(ctx, batch, priv.Public(), oracle)
		for _, result := range results {
			printResult(result)
		}
		if err != nil {
			fail(err)
		}
		fmt.Printf("\nTotal oracle queries: %d\n", oracle.Queries())

	default:
		fmt.Fprintf(os.Stderr, "Error: Must specify --keygen, --encrypt, --decrypt, --attack, --root, or --ciphertexts\n")
		flag.Usage()
		os.Exit(1)
	}
}

func printResult(result *bleichenbacher.Result) {
	fmt.Printf("\n[+] Recovered plaintext!\n")
	fmt.Printf("    Message: %q\n", result.Plaintext)
	fmt.Printf("    Padded: %x\n", result.Padded)
	fmt.Printf("    Iterations: %d\n", result.Iterations)
	fmt.Printf("    Oracle queries: %d\n", result.Queries)
}

func decodeCiphertext(s string) []byte {
	ciphertext, err := parser.DecodeHex(s)
	if err != nil {
		fail(err)
	}
	return ciphertext
}

func scannerName(numWorkers int) string {
	if numWorkers == 1 {
		return bleichenbacher.NewSequentialScanner().Name()
	}
	return bleichenbacher.NewParallelScanner(numWorkers).Name()
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
