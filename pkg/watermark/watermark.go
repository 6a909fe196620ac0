// Package watermark implements the WatermarkEngine (C5): per-recipient
// visible and forensic watermark artifact generation, deterministic from
// a watermarkHash so any rendered copy can be traced back to the
// recipient it was issued to.
package watermark

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sovereigndoc/sdc/pkg/canonicalize"
)

// Policy is the watermark stacking level.
type Policy string

const (
	PolicyNone     Policy = "NONE"
	PolicyStandard Policy = "STANDARD"
	PolicyForensic Policy = "FORENSIC"
	PolicyMaximum  Policy = "MAXIMUM"
)

// zeroWidthAlphabet is the 5-character alphabet used to encode base-5
// digits as zero-width Unicode scalars.
var zeroWidthAlphabet = []rune{'​', '‌', '‍', '⁠', '﻿'}

// Result is the WatermarkPayload data model (C5).
type Result struct {
	WatermarkID      string    `json:"watermarkId"`
	DocumentID       string    `json:"documentId"`
	Recipient        string    `json:"recipient"`
	WatermarkHash    string    `json:"watermarkHash"`
	VisibleText      string    `json:"visibleText,omitempty"`
	FooterHash       string    `json:"footerHash,omitempty"`
	Policy           Policy    `json:"policy"`
	InvisibleMarkers string    `json:"invisibleMarkers,omitempty"`
	SpacingPattern   []float64 `json:"spacingPattern,omitempty"`
}

// Request carries the parameters for Generate.
type Request struct {
	DocumentID string
	Title      string
	Name       string
	Email      string
	IP         string
	Policy     Policy
	Notice     string
	Now        time.Time
}

// Generate produces a WatermarkResult bundle deterministically from
// watermarkHash = SHA256(watermarkId || documentId || email || ip || timestamp).
func Generate(req Request) Result {
	if req.Now.IsZero() {
		req.Now = time.Now().UTC()
	}
	watermarkID := uuid.New().String()
	ts := req.Now.Format(time.RFC3339Nano)
	hashInput := watermarkID + "|" + req.DocumentID + "|" + req.Email + "|" + req.IP + "|" + ts
	watermarkHash := canonicalize.HashBytes([]byte(hashInput))

	result := Result{
		WatermarkID:   watermarkID,
		DocumentID:    req.DocumentID,
		Recipient:     req.Email,
		WatermarkHash: watermarkHash,
		Policy:        req.Policy,
	}
	if req.Policy == PolicyNone {
		return result
	}

	result.VisibleText = fmt.Sprintf("CONFIDENTIAL — %s — %s — %s",
		req.Name, req.Email, req.Now.Format("2006-01-02 15:04:05"))
	docPrefix := req.DocumentID
	if len(docPrefix) > 8 {
		docPrefix = docPrefix[:8]
	}
	result.FooterHash = fmt.Sprintf("SDC-%s-%s", firstHexPrefix(watermarkHash, 8), docPrefix)

	if req.Policy == PolicyStandard {
		return result
	}

	markers := GenerateInvisibleMarkers(watermarkHash)
	result.InvisibleMarkers = markers
	if req.Policy == PolicyForensic {
		return result
	}

	// MAXIMUM: bytes 16..48 of the hex hash parsed as 16 bytes, each byte
	// mapping to a letter-spacing deviation in ±0.03em.
	raw, _ := hex.DecodeString(padHex(watermarkHash))
	start := 16
	if start > len(raw) {
		start = len(raw)
	}
	end := start + 16
	if end > len(raw) {
		end = len(raw)
	}
	pattern := make([]float64, 0, 16)
	for _, b := range raw[start:end] {
		deviation := math.Round((float64(b)/255.0*0.06-0.03)*10000) / 10000
		pattern = append(pattern, deviation)
	}
	result.SpacingPattern = pattern
	return result
}

// firstHexPrefix returns the first n hex characters of s.
func firstHexPrefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

// padHex extends a hex string (by repeating it) so callers can always
// safely slice at least 48 bytes' worth of hex out of it, matching the
// generous byte range §4.5 describes for the spacing pattern.
func padHex(s string) string {
	for len(s) < 100 {
		s += s
	}
	return s
}

// GenerateInvisibleMarkers encodes the first 16 hex chars of
// watermarkHash using the 5-character zero-width alphabet: each hex
// digit (0-15) maps to two base-5 digits, each digit to one code point.
func GenerateInvisibleMarkers(watermarkHash string) string {
	prefix := firstHexPrefix(watermarkHash, 16)
	var sb strings.Builder
	for _, c := range prefix {
		nibble := hexNibbleValue(c)
		d1, d2 := nibble/5, nibble%5
		sb.WriteRune(zeroWidthAlphabet[d1])
		sb.WriteRune(zeroWidthAlphabet[d2])
	}
	return sb.String()
}

func hexNibbleValue(c rune) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return 0
	}
}

var zeroWidthIndex = func() map[rune]int {
	m := make(map[rune]int, len(zeroWidthAlphabet))
	for i, r := range zeroWidthAlphabet {
		m[r] = i
	}
	return m
}()

// DecodeInvisibleMarkers scans text (by Unicode scalar value, never by
// byte) for the zero-width alphabet, pairs adjacent matches into hex
// digits, and returns the reconstructed hex prefix.
func DecodeInvisibleMarkers(text string) string {
	var digits []int
	for _, r := range text {
		if idx, ok := zeroWidthIndex[r]; ok {
			digits = append(digits, idx)
		}
	}
	var sb strings.Builder
	for i := 0; i+1 < len(digits); i += 2 {
		nibble := digits[i]*5 + digits[i+1]
		if nibble > 15 {
			continue
		}
		sb.WriteString(fmt.Sprintf("%x", nibble))
	}
	return sb.String()
}

// InjectInvisibleMarkers distributes the marker characters at
// approximately equal word-interval positions within text.
func InjectInvisibleMarkers(text, markers string) string {
	if markers == "" || text == "" {
		return text
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return text + markers
	}
	markerRunes := []rune(markers)
	interval := len(words) / len(markerRunes)
	if interval < 1 {
		interval = 1
	}

	var out strings.Builder
	markerIdx := 0
	for i, w := range words {
		if i > 0 {
			out.WriteByte(' ')
		}
		out.WriteString(w)
		if markerIdx < len(markerRunes) && (i+1)%interval == 0 {
			out.WriteRune(markerRunes[markerIdx])
			markerIdx++
		}
	}
	for markerIdx < len(markerRunes) {
		out.WriteRune(markerRunes[markerIdx])
		markerIdx++
	}
	return out.String()
}

// scalarLen returns the number of Unicode scalar values in s.
func scalarLen(s string) int {
	return utf8.RuneCountInString(s)
}
