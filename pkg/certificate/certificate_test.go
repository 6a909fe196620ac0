package certificate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovereigndoc/sdc/pkg/certificate"
	"github.com/sovereigndoc/sdc/pkg/crypto"
)

func TestSKURoundTripsThroughString(t *testing.T) {
	sku, err := certificate.NewSKU("contract", "nda", "us", 2026, "1.2.0", "abcdef1234")
	require.NoError(t, err)

	rendered := sku.String()
	parsed, err := certificate.ParseSKU(rendered)
	require.NoError(t, err)

	assert.Equal(t, sku.DocType, parsed.DocType)
	assert.Equal(t, sku.SubType, parsed.SubType)
	assert.Equal(t, sku.Jurisdiction, parsed.Jurisdiction)
	assert.Equal(t, sku.Year, parsed.Year)
	assert.Equal(t, sku.Version.Major(), parsed.Version.Major())
	assert.Equal(t, sku.HashSuffix, parsed.HashSuffix)
}

func TestIssueProducesVerifiableCertificate(t *testing.T) {
	signer, err := crypto.NewSigner()
	require.NoError(t, err)

	sku, err := certificate.NewSKU("contract", "nda", "us", 2026, "1.0.0", "aa11bb22")
	require.NoError(t, err)

	cert, err := certificate.Issue(sku, "doc-1", "doc-hash-xyz", "Alice Signer", signer, time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.NotEmpty(t, cert.CertificateHash)
	assert.NotEmpty(t, cert.Signature)
	assert.True(t, certificate.Verify(cert))
}

func TestVerifyRejectsTamperedCertificate(t *testing.T) {
	signer, err := crypto.NewSigner()
	require.NoError(t, err)
	sku, _ := certificate.NewSKU("contract", "nda", "us", 2026, "1.0.0", "aa11bb22")
	cert, err := certificate.Issue(sku, "doc-1", "doc-hash-xyz", "Alice Signer", signer, time.Now().UTC())
	require.NoError(t, err)

	cert.DocumentHash = "tampered-hash"
	assert.False(t, certificate.Verify(cert))
}

func TestEncodeQRIsDeterministicAndFixedSize(t *testing.T) {
	signer, err := crypto.NewSigner()
	require.NoError(t, err)
	sku, _ := certificate.NewSKU("contract", "nda", "us", 2026, "1.0.0", "aa11bb22")
	cert, err := certificate.Issue(sku, "doc-1", "doc-hash-xyz", "Alice Signer", signer, time.Now().UTC())
	require.NoError(t, err)

	m1 := certificate.EncodeQR(cert)
	m2 := certificate.EncodeQR(cert)
	require.Len(t, m1, 33)
	require.Len(t, m1[0], 33)
	assert.Equal(t, m1, m2)
}
