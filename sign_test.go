package main

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate test key: %v", err)
	}
	return key
}

func writePEM(t *testing.T, blockType string, der []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "key.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}
	return path
}

// TestLoadPKCS1Key verifies loading a bare RSA PRIVATE KEY block
func TestLoadPKCS1Key(t *testing.T) {
	key := generateTestKey(t)
	path := writePEM(t, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key))

	loaded, err := loadPrivateKey(path)
	if err != nil {
		t.Fatalf("loadPrivateKey failed: %v", err)
	}
	if loaded.N.Cmp(key.N) != 0 || loaded.D.Cmp(key.D) != 0 {
		t.Errorf("Loaded key does not match the generated key")
	}
}

// TestLoadPKCS8Key verifies unwrapping the PRIVATE KEY container
func TestLoadPKCS8Key(t *testing.T) {
	key := generateTestKey(t)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("Failed to marshal PKCS#8: %v", err)
	}
	path := writePEM(t, "PRIVATE KEY", der)

	loaded, err := loadPrivateKey(path)
	if err != nil {
		t.Fatalf("loadPrivateKey failed: %v", err)
	}
	if loaded.N.Cmp(key.N) != 0 {
		t.Errorf("Loaded key does not match the generated key")
	}
}

// TestLoadBadKeyFile verifies that unusable key material is reported as a
// KeyError carrying the file path
func TestLoadBadKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pem")
	if err := os.WriteFile(path, []byte("not a key at all"), 0o600); err != nil {
		t.Fatalf("Failed to write garbage file: %v", err)
	}

	var ke *KeyError
	if _, err := loadPrivateKey(path); !errors.As(err, &ke) {
		t.Fatalf("Expected KeyError, got %v", err)
	}
	if ke.Path != path {
		t.Errorf("Expected path %q in the error, got %q", path, ke.Path)
	}

	if _, err := loadPrivateKey(filepath.Join(t.TempDir(), "missing.pem")); !errors.As(err, &ke) {
		t.Fatalf("Expected KeyError for a missing file, got %v", err)
	}
}

// TestSignACIDLength verifies the signature is exactly one signature block
func TestSignACIDLength(t *testing.T) {
	key := generateTestKey(t)
	sig, err := signACID(key, []byte("content"))
	if err != nil {
		t.Fatalf("signACID failed: %v", err)
	}
	if len(sig) != acidSignatureSize {
		t.Errorf("Expected %d signature bytes, got %d", acidSignatureSize, len(sig))
	}
}

// TestSignedBlobVerifies builds a signed blob and checks the signature
// against the declaration container bytes it covers
func TestSignedBlobVerifies(t *testing.T) {
	key := generateTestKey(t)
	path := writePEM(t, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key))

	var buf bytes.Buffer
	if err := testNpdm(t).WriteNpdm(&buf, AcidBehavior{PemPath: path}); err != nil {
		t.Fatalf("WriteNpdm failed: %v", err)
	}
	data := buf.Bytes()

	var meta metaHeader
	if err := readStruct(bytes.NewReader(data), &meta); err != nil {
		t.Fatalf("Failed to read META header: %v", err)
	}
	sig := data[meta.AcidOffset:][:acidSignatureSize]
	content := data[meta.AcidOffset+acidSignatureSize : meta.AcidOffset+meta.AcidSize]

	digest := calculateSHA256(content)
	err := rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, digest, sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		t.Errorf("Signature does not verify: %v", err)
	}
}
