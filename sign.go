// sign.go - RSA key loading and ACID signing
package main

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
)

var oidRSAEncryption = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}

// pkcs1PrivateKey mirrors the PKCS#1 RSAPrivateKey ASN.1 sequence. Only
// the modulus, the exponents and the two primes are used; the trailing CRT
// values are recomputed from scratch.
type pkcs1PrivateKey struct {
	Version int
	N       *big.Int
	E       *big.Int
	D       *big.Int
	P       *big.Int
	Q       *big.Int
	Dp      *big.Int
	Dq      *big.Int
	Qinv    *big.Int
}

// pkcs8Container is the outer PKCS#8 wrapper some PEM files carry around
// the PKCS#1 key.
type pkcs8Container struct {
	Version    int
	Algorithm  pkix.AlgorithmIdentifier
	PrivateKey []byte
}

// loadPrivateKey parses a PEM file into an RSA private key. The file may
// hold a bare PKCS#1 key ("RSA PRIVATE KEY") or a PKCS#8 wrapper
// ("PRIVATE KEY") around one. The rebuilt key is validated algebraically
// before use; any failure is a KeyError and is never retried.
func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &KeyError{Path: path, Err: err}
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, keyError(path, "no PEM block found")
	}

	der := block.Bytes
	if block.Type == "PRIVATE KEY" {
		var outer pkcs8Container
		rest, err := asn1.Unmarshal(der, &outer)
		if err != nil {
			return nil, keyError(path, "bad PKCS#8 structure: %v", err)
		}
		if len(rest) != 0 {
			return nil, keyError(path, "trailing data after PKCS#8 structure")
		}
		if !outer.Algorithm.Algorithm.Equal(oidRSAEncryption) {
			return nil, keyError(path, "not an RSA key (algorithm %v)", outer.Algorithm.Algorithm)
		}
		der = outer.PrivateKey
	}

	var pk pkcs1PrivateKey
	rest, err := asn1.Unmarshal(der, &pk)
	if err != nil {
		return nil, keyError(path, "bad PKCS#1 structure: %v", err)
	}
	if len(rest) != 0 {
		return nil, keyError(path, "trailing data after PKCS#1 structure")
	}
	if !pk.E.IsInt64() || pk.E.Int64() <= 0 {
		return nil, keyError(path, "public exponent out of range")
	}

	key := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: pk.N, E: int(pk.E.Int64())},
		D:         pk.D,
		Primes:    []*big.Int{pk.P, pk.Q},
	}
	if err := key.Validate(); err != nil {
		return nil, keyError(path, "key validation failed: %v", err)
	}
	key.Precompute()
	return key, nil
}

// signACID signs the unsigned declaration container bytes: SHA-256 digest,
// then RSA-PSS with SHA-256 for both the digest and the mask generation
// function, default salt length. The result is exactly one signature block.
// Any other length is an internal invariant violation, not an input error.
func signACID(key *rsa.PrivateKey, acidContent []byte) ([]byte, error) {
	digest := calculateSHA256(acidContent)
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "Signing %d bytes of ACID content (sha256 %x)\n", len(acidContent), digest)
	}
	sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return nil, fmt.Errorf("signing failed: %w", err)
	}
	if len(sig) != acidSignatureSize {
		panic(fmt.Sprintf("signature of wrong length generated: %d bytes instead of %d", len(sig), acidSignatureSize))
	}
	return sig, nil
}
