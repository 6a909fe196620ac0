// Package webhook implements the WebhookValidator (C7): a composite
// risk-score gate for inbound callback requests, combining IP
// allowlisting and reputation, HMAC signature verification, nonce
// replay detection, and shape checks on the request itself.
package webhook

import (
	"encoding/json"
	"fmt"
	"hash"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/sovereigndoc/sdc/pkg/crypto"
)

// RiskFactor names one contribution to the composite risk score.
type RiskFactor string

const (
	RiskIPAllowlist       RiskFactor = "ip_allowlist"
	RiskIPReputation      RiskFactor = "ip_reputation"
	RiskMethod            RiskFactor = "method"
	RiskContentType       RiskFactor = "content_type"
	RiskBodySize          RiskFactor = "body_size"
	RiskJSONValidity      RiskFactor = "json_validity"
	RiskHMACSignature     RiskFactor = "hmac_signature"
	RiskSignatureMissing  RiskFactor = "signature_missing"
	RiskTimestampDrift    RiskFactor = "timestamp_drift"
	RiskUserAgent         RiskFactor = "user_agent"
)

// riskWeights is the exact contribution table from §4.7.
var riskWeights = map[RiskFactor]int{
	RiskIPAllowlist:      40,
	RiskIPReputation:     50,
	RiskMethod:           10,
	RiskContentType:      10,
	RiskBodySize:         15,
	RiskJSONValidity:     20,
	RiskHMACSignature:    30,
	RiskSignatureMissing: 20,
	RiskTimestampDrift:   15,
	RiskUserAgent:        10,
}

// criticalFactors fail the request outright regardless of the
// accumulated score once triggered.
var criticalFactors = map[RiskFactor]bool{
	RiskIPAllowlist:   true,
	RiskIPReputation:  true,
	RiskHMACSignature: true,
	RiskBodySize:      true,
}

const (
	maxBodyBytes      = 1 << 20 // 1 MiB
	scoreBlockThreshold = 60
	timestampDriftMax = 5 * time.Minute
)

// Request is the inbound callback context the validator inspects.
type Request struct {
	SourceIP           string
	Method             string
	Path               string
	UserAgent          string
	ContentType        string
	ContentLength       int
	RawBody            []byte
	Signature          string // hex HMAC-SHA256, empty if absent
	SignatureNonce     string
	// SignatureTimestampRaw is the exact timestamp string the sender
	// included out-of-band (e.g. an X-Timestamp header), in RFC3339
	// form. It is part of the signed payload (signed = ts + "." +
	// body) and also drives the drift check, so the raw string must be
	// carried verbatim rather than only a parsed time.Time.
	SignatureTimestampRaw string
	AllowedUserAgents     []string
}

// Result is the validator's verdict, with the contributing factors for
// audit.
type Result struct {
	Allowed     bool
	Score       int
	Factors     []RiskFactor
	Reason      string
	Reputation  ReputationTier
}

// Validator ties together IP allowlisting, reputation, nonce replay,
// and HMAC verification into one composite check.
type Validator struct {
	secret       string
	ipAllowlist  []string
	reputation   *Reputation
	nonces       *NonceTracker
	now          func() time.Time
}

// NewValidator builds a validator keyed on secret (the shared HMAC
// signing key configured for this webhook endpoint; empty means no
// signature is expected) and an IP allowlist of CIDR/exact entries.
func NewValidator(secret string, ipAllowlist []string) *Validator {
	return &Validator{
		secret:      secret,
		ipAllowlist: ipAllowlist,
		reputation:  NewReputation(),
		nonces:      NewNonceTracker(),
		now:         time.Now,
	}
}

// Validate scores req against every check and returns the composite
// verdict. A triggered critical factor blocks the request even if the
// accumulated score would otherwise pass.
func (v *Validator) Validate(req Request) Result {
	var factors []RiskFactor
	score := 0
	add := func(f RiskFactor) {
		factors = append(factors, f)
		score += riskWeights[f]
	}

	blocked := v.reputation.IsBlocked(req.SourceIP)
	if blocked {
		add(RiskIPReputation)
	}

	if len(v.ipAllowlist) > 0 && !MatchesCIDR(req.SourceIP, v.ipAllowlist) {
		add(RiskIPAllowlist)
	}

	if req.Method != "" && strings.ToUpper(req.Method) != "POST" {
		add(RiskMethod)
	}

	if req.ContentType != "" && !strings.HasPrefix(req.ContentType, "application/json") {
		add(RiskContentType)
	}

	if req.ContentLength > maxBodyBytes || len(req.RawBody) > maxBodyBytes {
		add(RiskBodySize)
	}

	if len(req.RawBody) > 0 && !json.Valid(req.RawBody) {
		add(RiskJSONValidity)
	}

	sigFailed := false
	if v.secret != "" {
		if req.Signature == "" {
			add(RiskSignatureMissing)
		} else if !v.verifySignature(req.SignatureTimestampRaw, req.RawBody, req.Signature) {
			add(RiskHMACSignature)
			sigFailed = true
		} else if req.SignatureNonce != "" && v.nonces.CheckAndRecord(req.SignatureNonce) {
			add(RiskHMACSignature)
			sigFailed = true
		}
	}

	if ts, ok := parseSignatureTimestamp(req.SignatureTimestampRaw); ok {
		drift := v.now().UTC().Sub(ts)
		if drift < 0 {
			drift = -drift
		}
		if drift > timestampDriftMax {
			add(RiskTimestampDrift)
		}
	}

	if len(req.AllowedUserAgents) > 0 && !containsString(req.AllowedUserAgents, req.UserAgent) {
		add(RiskUserAgent)
	}

	tier := v.reputation.RecordRequest(req.SourceIP, sigFailed || hasCritical(factors))

	result := Result{Score: score, Factors: factors, Reputation: tier}

	for _, f := range factors {
		if criticalFactors[f] {
			result.Allowed = false
			result.Reason = fmt.Sprintf("critical factor triggered: %s", f)
			return result
		}
	}
	if blocked {
		result.Allowed = false
		result.Reason = "source ip is currently blocked"
		return result
	}
	if score >= scoreBlockThreshold {
		result.Allowed = false
		result.Reason = fmt.Sprintf("composite risk score %d exceeds threshold", score)
		return result
	}

	result.Allowed = true
	return result
}

func hasCritical(factors []RiskFactor) bool {
	for _, f := range factors {
		if criticalFactors[f] {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// verifySignature recomputes HMAC-SHA256(secret, ts ‖ "." ‖ body) and
// compares it to sigHex in constant time.
func (v *Validator) verifySignature(ts string, body []byte, sigHex string) bool {
	expected := v.computeSignature(ts, body)
	return crypto.ConstantTimeEqualString(expected, strings.ToLower(sigHex))
}

func (v *Validator) computeSignature(ts string, body []byte) string {
	var mac hash.Hash = hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign is a convenience for producing the signature a caller would
// attach to an outbound request, using the same secret the validator
// checks against, over the same ts+"."+body payload Validate expects.
func (v *Validator) Sign(ts string, body []byte) string {
	return v.computeSignature(ts, body)
}

// parseSignatureTimestamp parses raw as RFC3339 (with or without
// fractional seconds). ok is false when raw is empty or unparseable,
// in which case no drift check is applied.
func parseSignatureTimestamp(raw string) (t time.Time, ok bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return parsed, true
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, true
	}
	return time.Time{}, false
}
