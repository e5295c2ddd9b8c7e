// Package rsapkcs1 implements textbook RSA with PKCS#1 v1.5 type 2 padding,
// the padding oracle that leaks whether a ciphertext is well formed, and the
// classic low-public-exponent attacks.
//
// # Quick Start
//
//	priv, err := rsapkcs1.GenerateKey(rand.Reader, 512, 3)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ciphertext, err := rsapkcs1.Encrypt(rand.Reader, priv.Public(), []byte("attack at dawn"))
//	plaintext, err := rsapkcs1.Decrypt(priv, ciphertext)
//
// # Oracles
//
// An Oracle answers a single question: does this ciphertext decrypt to a
// validly padded block? NewPaddingOracle builds one from a private key; any
// function with the right signature can be used through OracleFunc:
//
//	oracle := rsapkcs1.OracleFunc(func(c []byte) bool {
//	    _, err := rsapkcs1.Decrypt(priv, c)
//	    return err == nil
//	})
//
// # Low Exponent
//
// When an unpadded message satisfies mᵉ < n, RecoverLowExponent takes the
// integer e-th root of the ciphertext. RecoverBroadcast handles the same
// message sent to e different moduli.
//
// Block layout is 0x00 || 0x02 || PS || 0x00 || M. Decoding the block as a
// big-endian integer drops the leading zero, which is why Unpad expects
// blocks of k-1 bytes.
package rsapkcs1
