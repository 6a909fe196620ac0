// Package tokens implements the AccessTokenService (C4): issuance,
// ordered validation, binding-on-first-access, revocation, and stale
// expiry sweeps for per-recipient access tokens.
package tokens

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sovereigndoc/sdc/pkg/canonicalize"
	"github.com/sovereigndoc/sdc/pkg/crypto"
)

// Status is a token's lifecycle state.
type Status string

const (
	StatusActive  Status = "active"
	StatusUsed    Status = "used"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
	StatusLocked  Status = "locked"
)

// Recipient identifies who a token was issued to.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Org   string `json:"org,omitempty"`
}

// AccessLogEntry records one validation attempt against a token.
type AccessLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip,omitempty"`
	Device    string    `json:"device,omitempty"`
	Result    string    `json:"result"`
	Reason    string    `json:"reason,omitempty"`
}

// Token is the AccessToken data model (C4).
type Token struct {
	TokenID          string           `json:"tokenId"`
	TokenSecret      string           `json:"tokenSecret"`
	DocumentID       string           `json:"documentId"`
	IntakeID         string           `json:"intakeId"`
	Recipient        Recipient        `json:"recipient"`
	Status           Status           `json:"status"`
	RemainingUses    int              `json:"remainingUses"` // -1 = unbounded
	MaxUses          int              `json:"maxUses"`        // -1 = unbounded
	BoundIP          string           `json:"boundIp,omitempty"`
	BoundDevice      string           `json:"boundDevice,omitempty"`
	FirstAccessIP    string           `json:"firstAccessIp,omitempty"`
	FirstAccessDevice string          `json:"firstAccessDevice,omitempty"`
	OTPVerified      bool             `json:"otpVerified"`
	OTPRequired      bool             `json:"otpRequired"`
	CreatedAt        time.Time        `json:"createdAt"`
	ExpiresAt        time.Time        `json:"expiresAt"`
	LastAccessedAt   time.Time        `json:"lastAccessedAt,omitempty"`
	AccessCount      int              `json:"accessCount"`
	AccessLog        []AccessLogEntry `json:"accessLog"`
	TokenHash        string           `json:"tokenHash"`
}

// IssueRequest carries the parameters for Issue.
type IssueRequest struct {
	DocumentID   string
	IntakeID     string
	Recipient    Recipient
	MaxUses      int // 0 treated as unbounded (-1)
	ExpiryHours  int // 0 defaults to 168
	OTPRequired  bool
	BoundIP      string
	BoundDevice  string
}

// ValidateRequest carries the parameters for Validate.
type ValidateRequest struct {
	Secret           string
	IP               string
	DeviceFingerprint string
	OTPVerified      bool
}

// ValidateResult is Validate's structured outcome; requiresOTP is not a
// denial — the token is held pending OTP.
type ValidateResult struct {
	Valid                bool
	RequiresOTP          bool
	RequiresDeviceBinding bool
	Reason               string
	Token                *Token
}

// Service owns every token; mutations on a single token are serialized
// per-tokenSecret so concurrent validations cannot both decrement
// remainingUses past zero.
type Service struct {
	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	tokens map[string]*Token // by secret
	byDoc  map[string][]string
	clock  func() time.Time
}

// NewService builds an empty AccessTokenService.
func NewService() *Service {
	return &Service{
		locks:  make(map[string]*sync.Mutex),
		tokens: make(map[string]*Token),
		byDoc:  make(map[string][]string),
		clock:  time.Now,
	}
}

func (s *Service) lockFor(secret string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[secret]
	if !ok {
		l = &sync.Mutex{}
		s.locks[secret] = l
	}
	return l
}

// Issue creates a token with a random 32-byte secret and persists it.
func (s *Service) Issue(req IssueRequest) (*Token, error) {
	secret, err := crypto.RandomHex(32)
	if err != nil {
		return nil, fmt.Errorf("tokens: issue: %w", err)
	}

	expiryHours := req.ExpiryHours
	if expiryHours == 0 {
		expiryHours = 168
	}
	maxUses := req.MaxUses
	if maxUses == 0 {
		maxUses = -1
	}

	now := s.clock().UTC()
	t := &Token{
		TokenID:       uuid.New().String(),
		TokenSecret:   secret,
		DocumentID:    req.DocumentID,
		IntakeID:      req.IntakeID,
		Recipient:     req.Recipient,
		Status:        StatusActive,
		RemainingUses: maxUses,
		MaxUses:       maxUses,
		BoundIP:       req.BoundIP,
		BoundDevice:   req.BoundDevice,
		OTPRequired:   req.OTPRequired,
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Duration(expiryHours) * time.Hour),
	}
	t.TokenHash = computeTokenHash(t)

	s.mu.Lock()
	s.tokens[secret] = t
	s.byDoc[req.DocumentID] = append(s.byDoc[req.DocumentID], secret)
	s.mu.Unlock()

	return cloneToken(t), nil
}

// Validate runs the ordered checks in §4.4, each failure logged and
// returned immediately.
func (s *Service) Validate(req ValidateRequest) ValidateResult {
	lock := s.lockFor(req.Secret)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	t, ok := s.tokens[req.Secret]
	s.mu.Unlock()
	if !ok {
		return ValidateResult{Valid: false, Reason: "Token not found"}
	}

	now := s.clock().UTC()

	if t.Status != StatusActive {
		reason := "Token is " + string(t.Status)
		s.logAccess(t, req, "denied", reason)
		return ValidateResult{Valid: false, Reason: reason, Token: cloneToken(t)}
	}
	if !now.Before(t.ExpiresAt) {
		t.Status = StatusExpired
		s.logAccess(t, req, "denied", "Token has expired")
		return ValidateResult{Valid: false, Reason: "Token has expired", Token: cloneToken(t)}
	}
	if t.RemainingUses == 0 {
		t.Status = StatusUsed
		s.logAccess(t, req, "denied", "Token has no remaining uses")
		return ValidateResult{Valid: false, Reason: "Token has no remaining uses", Token: cloneToken(t)}
	}
	if t.BoundIP != "" && req.IP != t.BoundIP {
		s.logAccess(t, req, "denied", "IP mismatch")
		return ValidateResult{Valid: false, Reason: "IP mismatch", Token: cloneToken(t)}
	}
	if t.BoundDevice != "" && req.DeviceFingerprint != t.BoundDevice {
		s.logAccess(t, req, "denied", "Device mismatch")
		return ValidateResult{Valid: false, Reason: "Device mismatch", Token: cloneToken(t)}
	}
	if t.OTPRequired && !t.OTPVerified && !req.OTPVerified {
		s.logAccess(t, req, "held", "OTP required")
		return ValidateResult{Valid: false, RequiresOTP: true, Token: cloneToken(t)}
	}
	if req.OTPVerified {
		t.OTPVerified = true
	}

	firstAccess := t.FirstAccessIP == ""
	if firstAccess {
		t.FirstAccessIP = req.IP
		t.FirstAccessDevice = req.DeviceFingerprint
	}
	t.AccessCount++
	if t.RemainingUses > 0 {
		t.RemainingUses--
	}
	t.LastAccessedAt = now
	s.logAccess(t, req, "granted", "")

	return ValidateResult{
		Valid:                 true,
		RequiresDeviceBinding: firstAccess && t.BoundDevice == "",
		Token:                 cloneToken(t),
	}
}

func (s *Service) logAccess(t *Token, req ValidateRequest, result, reason string) {
	t.AccessLog = append(t.AccessLog, AccessLogEntry{
		Timestamp: s.clock().UTC(), IP: req.IP, Device: req.DeviceFingerprint, Result: result, Reason: reason,
	})
}

// Revoke transitions a token to revoked.
func (s *Service) Revoke(secret string) error {
	s.mu.Lock()
	t, ok := s.tokens[secret]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("tokens: revoke: unknown token")
	}
	lock := s.lockFor(secret)
	lock.Lock()
	defer lock.Unlock()
	t.Status = StatusRevoked
	return nil
}

// RevokeAllForDocument revokes every active token issued for a document.
func (s *Service) RevokeAllForDocument(documentID string) int {
	s.mu.Lock()
	secrets := append([]string(nil), s.byDoc[documentID]...)
	s.mu.Unlock()

	count := 0
	for _, secret := range secrets {
		s.mu.Lock()
		t := s.tokens[secret]
		s.mu.Unlock()
		if t == nil {
			continue
		}
		lock := s.lockFor(secret)
		lock.Lock()
		if t.Status == StatusActive {
			t.Status = StatusRevoked
			count++
		}
		lock.Unlock()
	}
	return count
}

// ExpireStale sweeps every active token and transitions any past
// expiresAt to expired.
func (s *Service) ExpireStale() int {
	s.mu.Lock()
	all := make([]*Token, 0, len(s.tokens))
	for _, t := range s.tokens {
		all = append(all, t)
	}
	s.mu.Unlock()

	now := s.clock().UTC()
	count := 0
	for _, t := range all {
		lock := s.lockFor(t.TokenSecret)
		lock.Lock()
		if t.Status == StatusActive && !now.Before(t.ExpiresAt) {
			t.Status = StatusExpired
			count++
		}
		lock.Unlock()
	}
	return count
}

func computeTokenHash(t *Token) string {
	input := t.TokenID + "|" + t.DocumentID + "|" + t.Recipient.Email + "|" + t.CreatedAt.Format(time.RFC3339Nano)
	return canonicalize.HashBytes([]byte(input))
}

func cloneToken(t *Token) *Token {
	c := *t
	c.AccessLog = append([]AccessLogEntry(nil), t.AccessLog...)
	return &c
}
