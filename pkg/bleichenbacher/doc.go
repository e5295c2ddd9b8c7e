// Package bleichenbacher recovers RSA PKCS#1 v1.5 plaintexts from a padding
// oracle, following Bleichenbacher's adaptive chosen-ciphertext attack
// ("Chosen Ciphertext Attacks Against Protocols Based on the RSA Encryption
// Standard PKCS #1", CRYPTO '98).
//
// # Quick Start
//
//	import "github.com/mahdiidarabi/rsa-pkcs1-oracle/pkg/bleichenbacher"
//
//	// oracle reports whether a ciphertext decrypts to a conforming block
//	plaintext, err := bleichenbacher.Attack(ctx, ciphertext, pub, oracle)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # How It Works
//
// With k the modulus length in bytes and B = 2^(8(k-2)), every conforming
// plaintext lies in [2B, 3B-1]. The attack multiplies the ciphertext by sᵉ;
// whenever the oracle accepts c⋅sᵉ, m⋅s mod n also lies in [2B, 3B-1], which
// cuts down the set of intervals that can still contain m. Three searches
// pick the next s:
//
//   - the first iteration scans upward from ⌈n / 3B⌉;
//   - with several intervals left, it scans upward from the previous s;
//   - with one interval [a, b] left, it only tests s consistent with its bounds.
//
// The loop ends when one interval of width one is left.
//
// # Customization
//
//	client := bleichenbacher.NewClient().
//	    WithScanner(bleichenbacher.NewParallelScanner(8)).
//	    WithConfig(bleichenbacher.Config{
//	        MaxQueries: 5_000_000,
//	        Progress:   os.Stderr,
//	    })
//
//	result, err := client.Recover(ctx, ciphertext, pub, oracle)
//
// The parallel scanner issues concurrent oracle queries; the oracle must be
// safe for concurrent use.
package bleichenbacher
