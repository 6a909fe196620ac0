// Package crypto collects the small set of cryptographic primitives the
// core shares across components: constant-time comparison for token
// secrets and HMAC signatures, SHA-256 hashing helpers, and an Ed25519
// signer used to bind signature certificates to a signer identity.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// ConstantTimeEqual reports whether a and b are equal, taking time
// independent of where they first differ. Unequal lengths are rejected
// up front (in constant time relative to the shorter input) rather than
// short-circuiting on a byte compare.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// ConstantTimeEqualString is the string convenience form of
// ConstantTimeEqual, used for hex-encoded secrets and signatures.
func ConstantTimeEqualString(a, b string) bool {
	return ConstantTimeEqual([]byte(a), []byte(b))
}

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// RandomHex returns n random bytes encoded as hex (2n characters).
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto: random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Signer signs and verifies small payloads with Ed25519, used to bind
// a SignatureCertificate to a signer identity.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewSigner generates a fresh Ed25519 key pair.
func NewSigner() (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate ed25519 key: %w", err)
	}
	return &Signer{priv: priv, pub: pub}, nil
}

// NewSignerFromSeed reconstructs a Signer from a 32-byte seed, so a
// signer's identity can be persisted and reloaded.
func NewSignerFromSeed(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("crypto: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

// Seed returns the 32-byte seed backing this signer's private key.
func (s *Signer) Seed() []byte {
	return s.priv.Seed()
}

// PublicKeyHex returns the signer's public key, hex-encoded.
func (s *Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.pub)
}

// Sign returns a hex-encoded Ed25519 signature over data.
func (s *Signer) Sign(data []byte) string {
	return hex.EncodeToString(ed25519.Sign(s.priv, data))
}

// Verify checks a hex-encoded Ed25519 signature against this signer's
// public key.
func (s *Signer) Verify(data []byte, sigHex string) bool {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	return ed25519.Verify(s.pub, data, sig)
}

// VerifyWithKey checks a hex-encoded Ed25519 signature against an
// arbitrary hex-encoded public key, for verifying certificates signed by
// a different process.
func VerifyWithKey(pubHex string, data []byte, sigHex string) bool {
	pub, err := hex.DecodeString(pubHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), data, sig)
}
