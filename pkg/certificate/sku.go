// Package certificate implements SignatureCertificate issuance (C10):
// SKU identifiers, self-hashed certificate bodies, Ed25519 signing, and
// a deterministic pseudo-QR payload encoding for print/scan workflows.
package certificate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SKU is a parsed document-type stock keeping unit:
// {DOCTYPE}-{SUBTYPE}-{JURISDICTION}-{YEAR}-V{N}-{HASH4}.
type SKU struct {
	DocType      string
	SubType      string
	Jurisdiction string
	Year         int
	Version      *semver.Version
	HashSuffix   string
}

// NewSKU builds an SKU from its components, deriving HashSuffix from
// the first 4 characters of contentHash.
func NewSKU(docType, subType, jurisdiction string, year int, version string, contentHash string) (SKU, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		v, err = semver.NewVersion(version + ".0.0")
		if err != nil {
			return SKU{}, fmt.Errorf("certificate: invalid version %q: %w", version, err)
		}
	}
	suffix := contentHash
	if len(suffix) > 4 {
		suffix = suffix[:4]
	}
	return SKU{
		DocType:      strings.ToUpper(docType),
		SubType:      strings.ToUpper(subType),
		Jurisdiction: strings.ToUpper(jurisdiction),
		Year:         year,
		Version:      v,
		HashSuffix:   strings.ToUpper(suffix),
	}, nil
}

// String renders the canonical SKU form.
func (s SKU) String() string {
	return fmt.Sprintf("%s-%s-%s-%d-V%d-%s", s.DocType, s.SubType, s.Jurisdiction, s.Year, s.Version.Major(), s.HashSuffix)
}

// ParseSKU parses a rendered SKU string back into its components. The
// trailing fields are read from the end, so a sub-type containing
// hyphens is kept whole.
func ParseSKU(raw string) (SKU, error) {
	parts := strings.Split(raw, "-")
	n := len(parts)
	if n < 6 {
		return SKU{}, fmt.Errorf("certificate: malformed sku %q", raw)
	}
	year, err := strconv.Atoi(parts[n-3])
	if err != nil {
		return SKU{}, fmt.Errorf("certificate: malformed sku year %q: %w", parts[n-3], err)
	}
	versionPart := strings.TrimPrefix(parts[n-2], "V")
	major, err := strconv.Atoi(versionPart)
	if err != nil {
		return SKU{}, fmt.Errorf("certificate: malformed sku version %q: %w", parts[n-2], err)
	}
	v, err := semver.NewVersion(fmt.Sprintf("%d.0.0", major))
	if err != nil {
		return SKU{}, fmt.Errorf("certificate: building version: %w", err)
	}
	return SKU{
		DocType:      parts[0],
		SubType:      strings.Join(parts[1:n-4], "-"),
		Jurisdiction: parts[n-4],
		Year:         year,
		Version:      v,
		HashSuffix:   parts[n-1],
	}, nil
}
