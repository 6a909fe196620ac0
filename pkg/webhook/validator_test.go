package webhook_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sovereigndoc/sdc/pkg/webhook"
)

func TestValidateAllowsWellFormedSignedRequest(t *testing.T) {
	v := webhook.NewValidator("shared-secret", []string{"10.0.0.0/8"})
	body := []byte(`{"event":"signed"}`)
	ts := time.Now().UTC().Format(time.RFC3339)
	sig := v.Sign(ts, body)

	result := v.Validate(webhook.Request{
		SourceIP:              "10.1.2.3",
		Method:                "POST",
		ContentType:           "application/json",
		RawBody:               body,
		Signature:             sig,
		SignatureNonce:        "nonce-1",
		SignatureTimestampRaw: ts,
	})

	assert.True(t, result.Allowed)
	assert.Equal(t, 0, result.Score)
}

// TestValidateAcceptsWorkedHMACVector mirrors the worked HMAC
// acceptance scenario: secret="shh", timestamp="2025-01-01T00:00:00Z",
// body={"a":1}. The signed payload is ts+"."+body, so a signature
// computed over the body alone must be rejected, and flipping the
// final nibble of a correct signature must also be rejected.
func TestValidateAcceptsWorkedHMACVector(t *testing.T) {
	v := webhook.NewValidator("shh", nil)
	ts := "2025-01-01T00:00:00Z"
	body := []byte(`{"a":1}`)

	correct := v.Sign(ts, body)
	result := v.Validate(webhook.Request{
		SourceIP: "198.51.100.9", Method: "POST", ContentType: "application/json",
		RawBody: body, Signature: correct, SignatureTimestampRaw: ts,
	})
	assert.True(t, result.Allowed)
	assert.NotContains(t, result.Factors, webhook.RiskHMACSignature)

	bodyOnlySig := v.Sign("", body)
	rejected := v.Validate(webhook.Request{
		SourceIP: "198.51.100.10", Method: "POST", ContentType: "application/json",
		RawBody: body, Signature: bodyOnlySig, SignatureTimestampRaw: ts,
	})
	assert.False(t, rejected.Allowed)
	assert.Contains(t, rejected.Factors, webhook.RiskHMACSignature)

	flipped := flipLastNibble(correct)
	tampered := v.Validate(webhook.Request{
		SourceIP: "198.51.100.11", Method: "POST", ContentType: "application/json",
		RawBody: body, Signature: flipped, SignatureTimestampRaw: ts,
	})
	assert.False(t, tampered.Allowed)
	assert.Contains(t, tampered.Factors, webhook.RiskHMACSignature)
}

func flipLastNibble(hexStr string) string {
	if hexStr == "" {
		return hexStr
	}
	b := []byte(hexStr)
	last := b[len(b)-1]
	if last == '0' {
		b[len(b)-1] = '1'
	} else {
		b[len(b)-1] = '0'
	}
	return string(b)
}

func TestValidateRejectsIPOutsideAllowlist(t *testing.T) {
	v := webhook.NewValidator("", []string{"10.0.0.0/8"})
	result := v.Validate(webhook.Request{SourceIP: "203.0.113.5", Method: "POST", RawBody: []byte(`{}`)})
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Factors, webhook.RiskIPAllowlist)
}

func TestValidateRejectsBadSignature(t *testing.T) {
	v := webhook.NewValidator("shared-secret", nil)
	result := v.Validate(webhook.Request{
		SourceIP:    "198.51.100.1",
		Method:      "POST",
		ContentType: "application/json",
		RawBody:     []byte(`{"event":"x"}`),
		Signature:   "deadbeef",
	})
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Factors, webhook.RiskHMACSignature)
}

func TestValidateDetectsNonceReplay(t *testing.T) {
	v := webhook.NewValidator("shared-secret", nil)
	body := []byte(`{"event":"replay"}`)
	ts := "2025-01-01T00:00:00Z"
	sig := v.Sign(ts, body)

	first := v.Validate(webhook.Request{
		SourceIP: "198.51.100.2", Method: "POST", ContentType: "application/json",
		RawBody: body, Signature: sig, SignatureNonce: "dup-nonce", SignatureTimestampRaw: ts,
	})
	assert.True(t, first.Allowed)

	second := v.Validate(webhook.Request{
		SourceIP: "198.51.100.2", Method: "POST", ContentType: "application/json",
		RawBody: body, Signature: sig, SignatureNonce: "dup-nonce", SignatureTimestampRaw: ts,
	})
	assert.False(t, second.Allowed)
	assert.Contains(t, second.Factors, webhook.RiskHMACSignature)
}

func TestValidateFlagsMalformedJSON(t *testing.T) {
	v := webhook.NewValidator("", nil)
	result := v.Validate(webhook.Request{
		SourceIP: "198.51.100.3", Method: "POST", ContentType: "application/json",
		RawBody: []byte(`not-json`),
	})
	assert.Contains(t, result.Factors, webhook.RiskJSONValidity)
}

func TestReputationEscalatesAndAutoBlocks(t *testing.T) {
	v := webhook.NewValidator("shared-secret", nil)
	for i := 0; i < 10; i++ {
		v.Validate(webhook.Request{
			SourceIP: "192.0.2.9", Method: "POST", ContentType: "application/json",
			RawBody: []byte(`{}`), Signature: "bad",
		})
	}
	result := v.Validate(webhook.Request{
		SourceIP: "192.0.2.9", Method: "POST", ContentType: "application/json",
		RawBody: []byte(`{}`), Signature: "bad",
	})
	assert.False(t, result.Allowed)
	assert.Equal(t, webhook.ReputationCritical, result.Reputation)
}
