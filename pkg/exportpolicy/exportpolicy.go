// Package exportpolicy implements the ExportPolicyEngine (C6): gates
// export requests by the policy×format table, invokes watermarking,
// computes the export fingerprint, and records an ExportRecord.
package exportpolicy

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sovereigndoc/sdc/pkg/canonicalize"
	"github.com/sovereigndoc/sdc/pkg/intake"
	"github.com/sovereigndoc/sdc/pkg/watermark"
)

// Format is the requested export format.
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatJSON Format = "json"
)

// Decision is checkPolicy's outcome for one (policy, format) pair.
type Decision string

const (
	DecisionDeny            Decision = "deny"
	DecisionAllow            Decision = "allow"
	DecisionAllowPassword    Decision = "allow_password_protected"
	DecisionAllowReadOnly    Decision = "allow_read_only"
)

// policyTable is the exact table from §4.6.
var policyTable = map[intake.ExportPolicy]map[Format]Decision{
	intake.ExportNone: {
		FormatHTML: DecisionDeny, FormatPDF: DecisionDeny, FormatDOCX: DecisionDeny, FormatJSON: DecisionDeny,
	},
	intake.ExportViewOnly: {
		FormatHTML: DecisionAllow, FormatPDF: DecisionDeny, FormatDOCX: DecisionDeny, FormatJSON: DecisionDeny,
	},
	intake.ExportPDFOnly: {
		FormatHTML: DecisionAllow, FormatPDF: DecisionAllow, FormatDOCX: DecisionDeny, FormatJSON: DecisionDeny,
	},
	intake.ExportPDFPassword: {
		FormatHTML: DecisionAllow, FormatPDF: DecisionAllowPassword, FormatDOCX: DecisionDeny, FormatJSON: DecisionDeny,
	},
	intake.ExportDOCXRestricted: {
		FormatHTML: DecisionAllow, FormatPDF: DecisionAllow, FormatDOCX: DecisionAllowReadOnly, FormatJSON: DecisionDeny,
	},
	intake.ExportFull: {
		FormatHTML: DecisionAllow, FormatPDF: DecisionAllow, FormatDOCX: DecisionAllow, FormatJSON: DecisionAllow,
	},
}

// CheckPolicy returns the decision for a given export policy and format.
func CheckPolicy(policy intake.ExportPolicy, format Format) Decision {
	row, ok := policyTable[policy]
	if !ok {
		return DecisionDeny
	}
	d, ok := row[format]
	if !ok {
		return DecisionDeny
	}
	return d
}

// Record is the ExportRecord data model.
type Record struct {
	ExportID          string    `json:"exportId"`
	DocumentID        string    `json:"documentId"`
	Format            Format    `json:"format"`
	Policy            intake.ExportPolicy `json:"policy"`
	Decision          Decision  `json:"decision"`
	ExportHash        string    `json:"exportHash,omitempty"`
	WatermarkID       string    `json:"watermarkId,omitempty"`
	OutputPath        string    `json:"outputPath,omitempty"`
	PasswordProtected bool      `json:"passwordProtected,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Request carries the parameters for ProcessExport.
type Request struct {
	DocumentID string
	Title      string
	Format     Format
	Policy     intake.ExportPolicy
	WatermarkPolicy watermark.Policy
	Recipient  watermark.Request // DocumentID/Title/Policy fields overridden internally
	Content    string            // rendered document body, pre-watermark
}

// ProcessExport implements §4.6 end to end.
func ProcessExport(req Request) (Record, string, error) {
	now := time.Now().UTC()
	rec := Record{
		ExportID:  uuid.New().String(),
		DocumentID: req.DocumentID,
		Format:    req.Format,
		Policy:    req.Policy,
		Timestamp: now,
	}

	decision := CheckPolicy(req.Policy, req.Format)
	rec.Decision = decision
	if decision == DecisionDeny {
		return rec, "", nil
	}

	var wmResult watermark.Result
	if req.WatermarkPolicy != watermark.PolicyNone {
		wmReq := req.Recipient
		wmReq.DocumentID = req.DocumentID
		wmReq.Title = req.Title
		wmReq.Policy = req.WatermarkPolicy
		wmReq.Now = now
		wmResult = watermark.Generate(wmReq)
		rec.WatermarkID = wmResult.WatermarkID
	}

	output := buildOutput(req.Format, req.Content, wmResult)

	if decision == DecisionAllowPassword {
		password := generatePassword(req.Recipient.Email, req.DocumentID, now)
		_ = password // not returned or stored; the record carries only the flag
		rec.PasswordProtected = true
	}

	rec.ExportHash = canonicalize.HashBytes([]byte(output))
	rec.OutputPath = buildOutputPath(req.Title, req.Recipient.Email, rec.ExportID)

	return rec, output, nil
}

func buildOutput(format Format, content string, wm watermark.Result) string {
	switch format {
	case FormatHTML:
		return fmt.Sprintf("<div class=\"watermarked\">%s<div class=\"watermark\">%s</div></div>", content, wm.VisibleText)
	case FormatPDF:
		return fmt.Sprintf("%s\n\n%s", content, wm.VisibleText)
	case FormatDOCX:
		return fmt.Sprintf("%s\n[read-only]\n%s", content, wm.VisibleText)
	case FormatJSON:
		return fmt.Sprintf(`{"content":%q,"watermark":%q}`, content, wm.VisibleText)
	default:
		return content
	}
}

// generatePassword produces a deterministic readable password from
// SHA256("sdc-password:" || email || documentId || now): the first 16
// hex chars grouped XXXX-XXXX-XXXX-XXXX, uppercase.
func generatePassword(email, documentID string, now time.Time) string {
	input := "sdc-password:" + email + documentID + now.Format(time.RFC3339Nano)
	h := canonicalize.HashBytes([]byte(input))
	prefix := strings.ToUpper(h[:16])
	return fmt.Sprintf("%s-%s-%s-%s", prefix[0:4], prefix[4:8], prefix[8:12], prefix[12:16])
}

func buildOutputPath(title, email, exportID string) string {
	sanitize := func(s string) string {
		s = strings.ToLower(s)
		var sb strings.Builder
		for _, r := range s {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				sb.WriteRune(r)
			} else {
				sb.WriteByte('-')
			}
		}
		return strings.Trim(sb.String(), "-")
	}
	idPrefix := exportID
	if len(idPrefix) > 8 {
		idPrefix = idPrefix[:8]
	}
	return fmt.Sprintf("%s-%s-%s", sanitize(title), sanitize(email), idPrefix)
}
