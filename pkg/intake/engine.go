package intake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sovereigndoc/sdc/pkg/authz"
	"github.com/sovereigndoc/sdc/pkg/canon"
	"github.com/sovereigndoc/sdc/pkg/canonicalize"
	"github.com/sovereigndoc/sdc/pkg/document"
)

// Record is the IntakeRecord data model (C3).
type Record struct {
	IntakeID        string          `json:"intakeId"`
	DocumentID      string          `json:"documentId"`
	DocumentHash    string          `json:"documentHash"`
	SKU             string          `json:"sku,omitempty"`
	Classification  Classification  `json:"classification"`
	RiskTier        RiskTier        `json:"riskTier"`
	ModeBinding     ModeBinding     `json:"modeBinding"`
	Owner           string          `json:"owner"`
	AccessPolicy    AccessPolicy    `json:"accessPolicy"`
	WatermarkPolicy WatermarkPolicy `json:"watermarkPolicy"`
	ExportPolicy    ExportPolicy    `json:"exportPolicy"`
	State           State           `json:"state"`
	StateHistory    []Transition    `json:"stateHistory"`
	IntakeHash      string          `json:"intakeHash"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Engine owns every IntakeRecord and serializes state transitions
// per-document (linearizable per documentId, per spec.md §5).
type Engine struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	records map[string]*Record // by intakeId
	byDoc   map[string]string  // documentId -> intakeId
	authz   *authz.Engine
	clock   func() time.Time
	idgen   func() string
}

// NewEngine builds an IntakeEngine backed by the given ReBAC engine for
// isAuthorized's role/entity checks.
func NewEngine(az *authz.Engine) *Engine {
	return &Engine{
		locks:   make(map[string]*sync.Mutex),
		records: make(map[string]*Record),
		byDoc:   make(map[string]string),
		authz:   az,
		clock:   time.Now,
		idgen:   func() string { return uuid.New().String() },
	}
}

func (e *Engine) lockFor(documentID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[documentID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[documentID] = l
	}
	return l
}

// Intake classifies the document, binds default+override policy, and
// creates a new Record in state DRAFT. Nothing enters the system without
// passing through here.
func (e *Engine) Intake(doc document.Object, documentID, rawText, owner string, override AccessPolicy, watermarkOverride *WatermarkPolicy, exportOverride *ExportPolicy) (*Record, error) {
	lock := e.lockFor(documentID)
	lock.Lock()
	defer lock.Unlock()

	docHash, err := canon.CanonicalHash(doc)
	if err != nil {
		return nil, fmt.Errorf("intake: canonical hash: %w", err)
	}

	rule := Classify(doc.Metadata.Title, rawText)
	policy := MergeOverride(DefaultPolicy(rule.RiskTier), override)

	watermarkPolicy := rule.WatermarkPolicy
	if watermarkOverride != nil {
		watermarkPolicy = *watermarkOverride
	}
	exportPolicy := rule.ExportPolicy
	if exportOverride != nil {
		exportPolicy = *exportOverride
	}

	now := e.clock().UTC()
	rec := &Record{
		IntakeID:        e.idgen(),
		DocumentID:      documentID,
		DocumentHash:    docHash,
		Classification:  rule.Classification,
		RiskTier:        rule.RiskTier,
		ModeBinding:     rule.ModeBinding,
		Owner:           owner,
		AccessPolicy:    policy,
		WatermarkPolicy: watermarkPolicy,
		ExportPolicy:    exportPolicy,
		State:           StateDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	rec.IntakeHash = e.computeIntakeHash(rec)

	e.mu.Lock()
	e.records[rec.IntakeID] = rec
	e.byDoc[documentID] = rec.IntakeID
	e.mu.Unlock()

	return cloneRecord(rec), nil
}

// Advance attempts a state transition. Disallowed transitions are
// rejected with no state change, per the table in state.go.
func (e *Engine) Advance(documentID string, to State, actor, reason string) (*Record, error) {
	lock := e.lockFor(documentID)
	lock.Lock()
	defer lock.Unlock()

	e.mu.Lock()
	intakeID, ok := e.byDoc[documentID]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("intake: no record for document %q", documentID)
	}
	rec := e.records[intakeID]
	e.mu.Unlock()

	if !CanTransition(rec.State, to) {
		return nil, fmt.Errorf("intake: transition %s -> %s not permitted", rec.State, to)
	}

	now := e.clock().UTC()
	from := rec.State
	rec.State = to
	rec.StateHistory = append(rec.StateHistory, Transition{
		From: from, To: to, Timestamp: now.Format(time.RFC3339Nano), Actor: actor, Reason: reason,
	})
	rec.UpdatedAt = now
	rec.IntakeHash = e.computeIntakeHash(rec)

	return cloneRecord(rec), nil
}

// Revoke is always permitted from any non-terminal state.
func (e *Engine) Revoke(documentID, actor, reason string) (*Record, error) {
	return e.Advance(documentID, StateRevoked, actor, reason)
}

// Get returns the current record for a document.
func (e *Engine) Get(documentID string) (*Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	intakeID, ok := e.byDoc[documentID]
	if !ok {
		return nil, false
	}
	return cloneRecord(e.records[intakeID]), true
}

// AuthorizationResult is isAuthorized's structured outcome.
type AuthorizationResult struct {
	Authorized bool
	Reason     string
}

// IsAuthorized implements §4.3's isAuthorized check: rejects on missing
// record, terminal/draft state, no role or entity match, or an IP not on
// a configured allowlist.
func (e *Engine) IsAuthorized(ctx context.Context, documentID, recipientID string, roles []string, ip string) AuthorizationResult {
	rec, ok := e.Get(documentID)
	if !ok {
		return AuthorizationResult{false, "no intake record for document"}
	}
	if rec.State == StateRevoked || rec.State == StateDraft {
		return AuthorizationResult{false, fmt.Sprintf("document is in state %s", rec.State)}
	}

	roleMatch := false
	for _, allowed := range rec.AccessPolicy.Roles {
		for _, r := range roles {
			if r == allowed {
				roleMatch = true
			}
		}
	}
	entityMatch := false
	for _, ent := range rec.AccessPolicy.AllowedEntities {
		if ent == recipientID {
			entityMatch = true
		}
	}
	if e.authz != nil && !roleMatch && !entityMatch {
		if ok, _ := e.authz.Check(ctx, "document:"+documentID, "viewer", "user:"+recipientID); ok {
			entityMatch = true
		}
	}
	if !roleMatch && !entityMatch {
		return AuthorizationResult{false, "recipient has no matching role or entity grant"}
	}

	if len(rec.AccessPolicy.IPAllowlist) > 0 {
		found := false
		for _, allowed := range rec.AccessPolicy.IPAllowlist {
			if allowed == ip {
				found = true
			}
		}
		if !found {
			return AuthorizationResult{false, "ip not on allowlist"}
		}
	}

	return AuthorizationResult{true, "authorized"}
}

func (e *Engine) computeIntakeHash(rec *Record) string {
	snapshot := map[string]interface{}{
		"intakeId":       rec.IntakeID,
		"documentId":     rec.DocumentID,
		"documentHash":   rec.DocumentHash,
		"classification": rec.Classification,
		"riskTier":       rec.RiskTier,
		"state":          rec.State,
		"stateHistoryLen": len(rec.StateHistory),
	}
	b, err := canonicalize.JCS(snapshot)
	if err != nil {
		return ""
	}
	return canonicalize.HashBytes(b)
}

func cloneRecord(r *Record) *Record {
	c := *r
	c.StateHistory = append([]Transition(nil), r.StateHistory...)
	return &c
}
