// Package canon implements the canonicalizer (C1): it reduces a
// document.Object to a byte-exact canonical form that hashes identically
// on every replay, across platforms, and despite irrelevant field
// perturbations such as timestamps or whitespace. It composes
// pkg/canonicalize (RFC 8785 JSON serialization) and pkg/merkle (sorted
// folding) rather than reimplementing either.
package canon

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/sovereigndoc/sdc/pkg/canonicalize"
	"github.com/sovereigndoc/sdc/pkg/document"
	"github.com/sovereigndoc/sdc/pkg/merkle"
)

// volatileFields are stripped by name wherever they appear in the
// document's generic (map-shaped) rendering, before hashing.
var volatileFields = map[string]bool{
	"ingestedAt":        true,
	"timestamp":         true,
	"createdAt":         true,
	"updatedAt":         true,
	"lastAccessed":      true,
	"signedAt":          true,
	"anchoredAt":        true,
	"pushedAt":          true,
	"reviewedAt":        true,
	"finalizedAt":       true,
	"completedAt":       true,
	"registeredAt":      true,
	"deviceFingerprint": true,
	"ipAddress":         true,
	"platform":          true,
}

// randomIDFields are stripped by normalizeValue on both the document path
// (Canonicalize) and the generic path (DeepCanonicalize). document.Object
// has no fields by these names, so for documents the stripping has no
// effect and structural section ids ("id") are kept.
var randomIDFields = map[string]bool{
	"signatureId":            true,
	"sequence":               true,
	"previousSignatureHash":  true,
}

// Fingerprint is the CanonicalFingerprint data model.
type Fingerprint struct {
	CanonicalHash      string `json:"canonicalHash"`
	CanonicalMerkleRoot string `json:"canonicalMerkleRoot"`
	SectionCount       int    `json:"sectionCount"`
	ComponentCount     int    `json:"componentCount"`
	CanonicalSize      int    `json:"canonicalSize"`
}

// Canonicalize produces the canonical byte form of a document.Object:
// strip volatile fields, normalize whitespace and numbers, sort object
// keys deeply (preserving section array order), and serialize as
// minified UTF-8 JSON via pkg/canonicalize's RFC 8785 encoder.
func Canonicalize(doc document.Object) ([]byte, error) {
	generic := toGeneric(doc)
	normalized := normalizeValue(generic, true)
	return canonicalize.JCS(normalized)
}

// CanonicalHash returns canonicalHash(doc) = SHA256(canonicalize(doc)).
func CanonicalHash(doc document.Object) (string, error) {
	b, err := Canonicalize(doc)
	if err != nil {
		return "", err
	}
	return canonicalize.HashBytes(b), nil
}

// CanonicalMerkleRoot flattens the section tree, sorts leaves by section
// id ascending, hashes each leaf over (id, type, depth, normalized
// label, normalized content), and folds with sorted concatenation.
func CanonicalMerkleRoot(doc document.Object) string {
	flat := doc.Flatten()
	leaves := make([]merkle.Leaf, 0, len(flat))
	for _, s := range flat {
		leafBody := map[string]interface{}{
			"id":      s.ID,
			"type":    string(s.Type),
			"depth":   s.Depth,
			"label":   normalizeString(s.Label),
			"content": normalizeString(s.Content),
		}
		b, err := canonicalize.JCS(leafBody)
		if err != nil {
			continue
		}
		leaves = append(leaves, merkle.Leaf{ID: s.ID, Hash: canonicalize.HashBytes(b)})
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].ID < leaves[j].ID })
	return merkle.FoldSorted(leaves).Root
}

// ComputeFingerprint computes the full CanonicalFingerprint for a document.
func ComputeFingerprint(doc document.Object) (Fingerprint, error) {
	b, err := Canonicalize(doc)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{
		CanonicalHash:       canonicalize.HashBytes(b),
		CanonicalMerkleRoot: CanonicalMerkleRoot(doc),
		SectionCount:        len(doc.Flatten()),
		ComponentCount:      len(doc.Components),
		CanonicalSize:       len(b),
	}, nil
}

// ReplayResult reports the outcome of comparing two canonical forms.
type ReplayResult struct {
	Match        bool
	DivergesAt   int
	ContextA     string
	ContextB     string
}

// VerifyReplay computes both canonical forms and, on mismatch, reports
// the first diverging byte offset with +-50 bytes of context.
func VerifyReplay(a, b document.Object) (ReplayResult, error) {
	ca, err := Canonicalize(a)
	if err != nil {
		return ReplayResult{}, err
	}
	cb, err := Canonicalize(b)
	if err != nil {
		return ReplayResult{}, err
	}
	n := len(ca)
	if len(cb) < n {
		n = len(cb)
	}
	for i := 0; i < n; i++ {
		if ca[i] != cb[i] {
			return ReplayResult{
				Match:      false,
				DivergesAt: i,
				ContextA:   byteWindow(ca, i, 50),
				ContextB:   byteWindow(cb, i, 50),
			}, nil
		}
	}
	if len(ca) != len(cb) {
		return ReplayResult{Match: false, DivergesAt: n, ContextA: byteWindow(ca, n, 50), ContextB: byteWindow(cb, n, 50)}, nil
	}
	return ReplayResult{Match: true}, nil
}

func byteWindow(b []byte, at, radius int) string {
	lo := at - radius
	if lo < 0 {
		lo = 0
	}
	hi := at + radius
	if hi > len(b) {
		hi = len(b)
	}
	return string(b[lo:hi])
}

// StabilityResult reports the outcome of runHashStabilityTest.
type StabilityResult struct {
	Stable        bool
	DivergedAtRound int // 0 if Stable
}

// RunHashStabilityTest hashes the same document `rounds` times and
// reports the first round where the hash diverges from the first
// round's. A correct implementation always reports Stable=true.
func RunHashStabilityTest(doc document.Object, rounds int) (StabilityResult, error) {
	first, err := CanonicalHash(doc)
	if err != nil {
		return StabilityResult{}, err
	}
	for i := 2; i <= rounds; i++ {
		h, err := CanonicalHash(doc)
		if err != nil {
			return StabilityResult{}, err
		}
		if h != first {
			return StabilityResult{Stable: false, DivergedAtRound: i}, nil
		}
	}
	return StabilityResult{Stable: true}, nil
}

// --- generic value normalization, used by both the document path and the
// standalone deep canonicalizer exposed for non-document payloads. ---

func toGeneric(doc document.Object) interface{} {
	b, _ := json.Marshal(doc)
	var v interface{}
	_ = json.Unmarshal(b, &v)
	return v
}

// normalizeValue applies volatile/random-id stripping and whitespace and
// number normalization; key sorting happens later in the JCS encoder.
// Array element order is always kept as given: preserveArrayOrder is
// passed through unchanged and does not alter the result, so component
// arrays and semantic tag lists are not sorted.
func normalizeValue(v interface{}, preserveArrayOrder bool) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if volatileFields[k] || randomIDFields[k] {
				continue
			}
			out[k] = normalizeValue(val, preserveArrayOrder)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val, preserveArrayOrder)
		}
		return out
	case string:
		return normalizeString(t)
	case float64:
		return normalizeNumber(t)
	default:
		return v
	}
}

func normalizeString(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func normalizeNumber(f float64) float64 {
	if f == math.Trunc(f) {
		return f
	}
	return math.Round(f*10000) / 10000
}

// DeepCanonicalize applies the generic canonicalizer (volatile + random-id
// stripping, string/number normalization, deep key sort) to any JSON-like
// value, for non-document payloads such as signature certificates.
func DeepCanonicalize(v interface{}) ([]byte, error) {
	b, err := canonicalize.JCS(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	normalized := normalizeValue(generic, true)
	return canonicalize.JCS(normalized)
}
