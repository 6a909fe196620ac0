// Package orchestrator implements the Orchestrator (C12): the single
// entry point that composes intake, canonicalization, tokens,
// watermarking, export policy, diffing, certification, and ledger
// anchoring into the end-to-end document lifecycle. Mutation-step
// failures abort and surface to the caller without rolling back prior
// ledger appends; pure steps may be retried freely.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/sovereigndoc/sdc/pkg/anchor"
	"github.com/sovereigndoc/sdc/pkg/authz"
	"github.com/sovereigndoc/sdc/pkg/canon"
	"github.com/sovereigndoc/sdc/pkg/canonicalize"
	"github.com/sovereigndoc/sdc/pkg/certificate"
	"github.com/sovereigndoc/sdc/pkg/crypto"
	"github.com/sovereigndoc/sdc/pkg/docdiff"
	"github.com/sovereigndoc/sdc/pkg/document"
	"github.com/sovereigndoc/sdc/pkg/exportpolicy"
	"github.com/sovereigndoc/sdc/pkg/intake"
	"github.com/sovereigndoc/sdc/pkg/ledger"
	"github.com/sovereigndoc/sdc/pkg/ratelimit"
	"github.com/sovereigndoc/sdc/pkg/tokens"
	"github.com/sovereigndoc/sdc/pkg/util/resiliency"
	"github.com/sovereigndoc/sdc/pkg/watermark"
)

// Orchestrator wires every core component behind the operations a
// caller (CLI, API handler) actually invokes.
type Orchestrator struct {
	Intake      *intake.Engine
	Tokens      *tokens.Service
	Limiter     *ratelimit.Limiter
	Anchors     *anchor.Registry
	AccessLedger *ledger.Store
	Signer      *crypto.Signer
	breaker     *resiliency.CircuitBreaker
}

// New builds an Orchestrator from its component dependencies. accessLedger
// may be nil if the caller does not need durable audit persistence (e.g.
// in tests exercising a single component in isolation).
func New(az *authz.Engine, signer *crypto.Signer, accessLedger *ledger.Store) *Orchestrator {
	return &Orchestrator{
		Intake:       intake.NewEngine(az),
		Tokens:       tokens.NewService(),
		Limiter:      ratelimit.New(),
		Anchors:      anchor.NewRegistry(),
		AccessLedger: accessLedger,
		Signer:       signer,
		breaker:      resiliency.NewCircuitBreaker("anchor", 5, 10*time.Second),
	}
}

// IngestResult bundles what the caller needs from a single ingest call.
type IngestResult struct {
	IntakeRecord *intake.Record
	Fingerprint  canon.Fingerprint
}

// Ingest canonicalizes doc, runs it through intake classification and
// policy binding, and records an ingest event on the access ledger if
// one is configured. A canonicalization or intake failure aborts before
// any ledger write.
func (o *Orchestrator) Ingest(doc document.Object, documentID, rawText, owner string) (IngestResult, error) {
	if err := doc.Validate(); err != nil {
		return IngestResult{}, fmt.Errorf("orchestrator: invalid document: %w", err)
	}

	fingerprint, err := canon.ComputeFingerprint(doc)
	if err != nil {
		return IngestResult{}, fmt.Errorf("orchestrator: fingerprint: %w", err)
	}

	rec, err := o.Intake.Intake(doc, documentID, rawText, owner, intake.AccessPolicy{}, nil, nil)
	if err != nil {
		return IngestResult{}, fmt.Errorf("orchestrator: intake: %w", err)
	}

	if o.AccessLedger != nil {
		payload := map[string]interface{}{
			"documentId":     documentID,
			"intakeId":       rec.IntakeID,
			"classification": rec.Classification,
			"riskTier":       rec.RiskTier,
		}
		// Bind a content-addressed preview of the raw text to the ingest
		// event, so an auditor can spot-check what was ingested without
		// needing the full document body.
		if artifact, err := canonicalize.Canonicalize("document.rawText", rawText); err == nil {
			payload["contentDigest"] = artifact.Digest
			payload["contentPreview"] = artifact.Preview
		}
		if _, err := o.AccessLedger.Append("document.ingested", "info", payload); err != nil {
			return IngestResult{}, fmt.Errorf("orchestrator: ledger append: %w", err)
		}
	}

	return IngestResult{IntakeRecord: rec, Fingerprint: fingerprint}, nil
}

// IssueAccess checks the caller's recipient rate limit, then issues an
// access token for documentID.
func (o *Orchestrator) IssueAccess(req tokens.IssueRequest) (*tokens.Token, error) {
	if !o.Limiter.Check(ratelimit.KindEndpoint, req.Recipient.Email, "/view") {
		return nil, fmt.Errorf("orchestrator: rate limit exceeded for recipient %s", req.Recipient.Email)
	}
	token, err := o.Tokens.Issue(req)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: issue token: %w", err)
	}
	if o.AccessLedger != nil {
		if _, err := o.AccessLedger.Append("token.issued", "info", map[string]interface{}{
			"documentId": req.DocumentID,
			"tokenId":    token.TokenID,
			"actor":      req.Recipient.Email,
		}); err != nil {
			return nil, fmt.Errorf("orchestrator: ledger append: %w", err)
		}
	}
	return token, nil
}

// Access validates a token, checks intake authorization, and — on
// success — generates a watermark bound to the recipient, all gated by
// the token rate-limit bucket keyed on the presented token secret.
func (o *Orchestrator) Access(ctx context.Context, req tokens.ValidateRequest, wmPolicy watermark.Policy, name string) (tokens.ValidateResult, watermark.Result, error) {
	if !o.Limiter.Check(ratelimit.KindToken, req.Secret, "") {
		return tokens.ValidateResult{}, watermark.Result{}, fmt.Errorf("orchestrator: rate limit exceeded for token")
	}

	result := o.Tokens.Validate(req)
	if !result.Valid {
		return result, watermark.Result{}, nil
	}

	auth := o.Intake.IsAuthorized(ctx, result.Token.DocumentID, result.Token.Recipient.Email, []string{}, req.IP)
	if !auth.Authorized {
		return tokens.ValidateResult{Valid: false, Reason: auth.Reason}, watermark.Result{}, nil
	}

	wm := watermark.Generate(watermark.Request{
		DocumentID: result.Token.DocumentID,
		Name:       name,
		Email:      result.Token.Recipient.Email,
		IP:         req.IP,
		Policy:     wmPolicy,
	})

	if o.AccessLedger != nil {
		if _, err := o.AccessLedger.Append("document.accessed", "info", map[string]interface{}{
			"documentId": result.Token.DocumentID,
			"actor":      result.Token.Recipient.Email,
			"watermarkId": wm.WatermarkID,
		}); err != nil {
			return result, wm, fmt.Errorf("orchestrator: ledger append: %w", err)
		}
	}

	return result, wm, nil
}

// Export checks the document's export policy and, if allowed, renders
// the watermarked output via exportpolicy.ProcessExport.
func (o *Orchestrator) Export(req exportpolicy.Request) (exportpolicy.Record, string, error) {
	rec, output, err := exportpolicy.ProcessExport(req)
	if err != nil {
		return rec, output, fmt.Errorf("orchestrator: export: %w", err)
	}
	if o.AccessLedger != nil && rec.Decision != exportpolicy.DecisionDeny {
		if _, err := o.AccessLedger.Append("document.exported", "info", map[string]interface{}{
			"documentId": req.DocumentID,
			"format":     req.Format,
			"decision":   rec.Decision,
		}); err != nil {
			return rec, output, fmt.Errorf("orchestrator: ledger append: %w", err)
		}
	}
	return rec, output, nil
}

// Diff runs DocumentDiff between two revisions; a pure step, safe to
// retry freely.
func (o *Orchestrator) Diff(a, b document.Object) docdiff.Result {
	return docdiff.Diff(a, b)
}

// Certify issues a SignatureCertificate over documentHash under sku.
func (o *Orchestrator) Certify(sku certificate.SKU, documentID, documentHash, signerName string) (certificate.Certificate, error) {
	return certificate.Issue(sku, documentID, documentHash, signerName, o.Signer, time.Now().UTC())
}

// Anchor commits a ledger root to the configured chain, retried at most
// once (per the ≤30s suspension-point policy) and gated by a circuit
// breaker so a persistently failing chain stops absorbing retries.
func (o *Orchestrator) Anchor(ctx context.Context, payload anchor.AnchorPayload, chain anchor.Chain) (anchor.LedgerReceipt, error) {
	if !o.breaker.Allow() {
		return anchor.LedgerReceipt{}, fmt.Errorf("orchestrator: anchor circuit breaker open for chain %s", chain)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	receipt, err := o.Anchors.AnchorTo(ctx, payload, chain)
	if err != nil {
		receipt, err = o.Anchors.AnchorTo(ctx, payload, chain)
	}
	if err != nil {
		o.breaker.Failure()
		return anchor.LedgerReceipt{}, fmt.Errorf("orchestrator: anchor: %w", err)
	}
	o.breaker.Success()
	return receipt, nil
}
