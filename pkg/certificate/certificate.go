package certificate

import (
	"time"

	"github.com/google/uuid"

	"github.com/sovereigndoc/sdc/pkg/canon"
	"github.com/sovereigndoc/sdc/pkg/crypto"
)

// Certificate is a self-hashed, signed attestation that a document was
// signed under a given SKU at a point in time.
type Certificate struct {
	CertificateID   string    `json:"certificateId"`
	SKU             string    `json:"sku"`
	DocumentID      string    `json:"documentId"`
	DocumentHash    string    `json:"documentHash"`
	Signer          string    `json:"signer"`
	SignerPublicKey string    `json:"signerPublicKey"`
	IssuedAt        time.Time `json:"issuedAt"`
	CertificateHash string    `json:"certificateHash"`
	Signature       string    `json:"signature"`
}

// body is the subset of fields the certificate hash and signature cover.
// CertificateID is excluded deliberately: it is assigned after hashing,
// and the hash must be reproducible from the signed content alone.
type body struct {
	SKU             string    `json:"sku"`
	DocumentID      string    `json:"documentId"`
	DocumentHash    string    `json:"documentHash"`
	Signer          string    `json:"signer"`
	SignerPublicKey string    `json:"signerPublicKey"`
	IssuedAt        time.Time `json:"issuedAt"`
}

// Issue builds and signs a Certificate for (sku, documentId, documentHash,
// signer) using signer's key pair. certificateHash is the SHA-256 of the
// deep-canonicalized body; Signature is an Ed25519 signature over the
// certificateHash bytes.
func Issue(sku SKU, documentID, documentHash, signerName string, signer *crypto.Signer, now time.Time) (Certificate, error) {
	b := body{
		SKU:             sku.String(),
		DocumentID:      documentID,
		DocumentHash:    documentHash,
		Signer:          signerName,
		SignerPublicKey: signer.PublicKeyHex(),
		IssuedAt:        now,
	}
	raw, err := canon.DeepCanonicalize(b)
	if err != nil {
		return Certificate{}, err
	}
	hash := crypto.SHA256Hex(raw)

	return Certificate{
		CertificateID:   uuid.New().String(),
		SKU:             b.SKU,
		DocumentID:      documentID,
		DocumentHash:    documentHash,
		Signer:          signerName,
		SignerPublicKey: b.SignerPublicKey,
		IssuedAt:        now,
		CertificateHash: hash,
		Signature:       signer.Sign([]byte(hash)),
	}, nil
}

// Verify recomputes the certificate hash from its body fields and checks
// both hash integrity and the Ed25519 signature against the embedded
// public key.
func Verify(c Certificate) bool {
	b := body{
		SKU:             c.SKU,
		DocumentID:      c.DocumentID,
		DocumentHash:    c.DocumentHash,
		Signer:          c.Signer,
		SignerPublicKey: c.SignerPublicKey,
		IssuedAt:        c.IssuedAt,
	}
	raw, err := canon.DeepCanonicalize(b)
	if err != nil {
		return false
	}
	if crypto.SHA256Hex(raw) != c.CertificateHash {
		return false
	}
	return crypto.VerifyWithKey(c.SignerPublicKey, []byte(c.CertificateHash), c.Signature)
}
