// Package envelope implements the cryptographic primitives of the payment
// wire format: per-envelope session keys, authenticated symmetric encryption,
// RSA key wrapping, detached signatures and content digests.
//
// Every function is pure and safe for concurrent use. Every failure collapses
// to ErrCrypto: callers (and through them, remote parties) must not be able
// to distinguish a bad padding from a bad signature.
package envelope

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"io"
)

// ErrCrypto is the single opaque failure for all cryptographic operations.
var ErrCrypto = errors.New("cryptographic operation failed")

const (
	// KeySize is the AES-256 session key length in bytes.
	KeySize = 32
	// IVSize is the GCM nonce length in bytes.
	IVSize = 12
)

// GenerateSessionKey produces a fresh symmetric key and IV. A session key
// must never be reused across envelopes.
func GenerateSessionKey() (key, iv []byte, err error) {
	key = make([]byte, KeySize)
	iv = make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, nil, ErrCrypto
	}
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, ErrCrypto
	}
	return key, iv, nil
}

// Encrypt seals plaintext with AES-256-GCM under the given key and IV.
func Encrypt(plaintext, key, iv []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, ErrCrypto
	}
	if len(iv) != aead.NonceSize() {
		return nil, ErrCrypto
	}
	return aead.Seal(nil, iv, plaintext, nil), nil
}

// Decrypt opens an AES-256-GCM ciphertext. Tampered input or a wrong key/IV
// fails the authentication tag check.
func Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, ErrCrypto
	}
	if len(iv) != aead.NonceSize() {
		return nil, ErrCrypto
	}
	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrCrypto
	}
	return plaintext, nil
}

// WrapKey protects a session key for the recipient using RSA-OAEP.
func WrapKey(key []byte, recipient *rsa.PublicKey) ([]byte, error) {
	if recipient == nil {
		return nil, ErrCrypto
	}
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, recipient, key, nil)
	if err != nil {
		return nil, ErrCrypto
	}
	return wrapped, nil
}

// UnwrapKey recovers a session key with the recipient's private key.
func UnwrapKey(wrapped []byte, recipient *rsa.PrivateKey) ([]byte, error) {
	if recipient == nil {
		return nil, ErrCrypto
	}
	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, recipient, wrapped, nil)
	if err != nil {
		return nil, ErrCrypto
	}
	return key, nil
}

// Sign produces an RSA-PSS signature over the SHA-256 digest of plaintext.
// The signature covers the plaintext before symmetric encryption so a party
// holding only the public key and the decrypted plaintext can verify
// authorship.
func Sign(plaintext []byte, signer *rsa.PrivateKey) ([]byte, error) {
	if signer == nil {
		return nil, ErrCrypto
	}
	digest := sha256.Sum256(plaintext)
	sig, err := rsa.SignPSS(rand.Reader, signer, crypto.SHA256, digest[:], nil)
	if err != nil {
		return nil, ErrCrypto
	}
	return sig, nil
}

// Verify reports whether signature is a valid signature of plaintext under
// the sender's public key.
func Verify(plaintext, signature []byte, sender *rsa.PublicKey) bool {
	if sender == nil {
		return false
	}
	digest := sha256.Sum256(plaintext)
	return rsa.VerifyPSS(sender, crypto.SHA256, digest[:], signature, nil) == nil
}

// Hash returns the lowercase hex SHA-256 digest used for signed-state
// tamper checks.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrCrypto
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// ParsePrivateKey decodes a PEM-encoded PKCS#8 or PKCS#1 RSA private key.
func ParsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, ErrCrypto
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, ErrCrypto
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrCrypto
	}
	return key, nil
}

// ParsePublicKey decodes a PEM-encoded PKIX or PKCS#1 RSA public key.
func ParsePublicKey(pemData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, ErrCrypto
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, ErrCrypto
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, ErrCrypto
	}
	return key, nil
}

// EncodePrivateKey renders a private key as PKCS#8 PEM.
func EncodePrivateKey(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, ErrCrypto
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// EncodePublicKey renders a public key as PKIX PEM.
func EncodePublicKey(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, ErrCrypto
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
