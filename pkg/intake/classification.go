// Package intake implements the IntakeEngine (C3): it gates every
// document into the system with a classification, risk tier, and policy
// bundle, and owns the IntakeRecord lifecycle state machine. Nothing
// downstream touches a document that has not been through Intake.
package intake

import "strings"

// Classification is the document's assigned category.
type Classification string

const (
	ClassLegal         Classification = "legal"
	ClassFinancial     Classification = "financial"
	ClassCompliance    Classification = "compliance"
	ClassIP            Classification = "ip"
	ClassOperational   Classification = "operational"
	ClassGovernance    Classification = "governance"
	ClassResearch      Classification = "research"
	ClassCustody       Classification = "custody"
	ClassIssuance      Classification = "issuance"
	ClassVenue         Classification = "venue"
	ClassTreasury      Classification = "treasury"
	ClassRisk          Classification = "risk"
	ClassCounterparty  Classification = "counterparty"
	ClassPublic        Classification = "public"
)

// RiskTier drives the entire policy bundle.
type RiskTier string

const (
	RiskLow      RiskTier = "LOW"
	RiskHigh     RiskTier = "HIGH"
	RiskCritical RiskTier = "CRITICAL"
)

// ModeBinding scopes which operational mode a document belongs to.
type ModeBinding string

const (
	ModeInfra     ModeBinding = "INFRA"
	ModeIssuer    ModeBinding = "ISSUER"
	ModeVenue     ModeBinding = "VENUE"
	ModeCrossMode ModeBinding = "CROSS-MODE"
)

// WatermarkPolicy selects the watermark stacking level (mirrors C5).
type WatermarkPolicy string

const (
	WatermarkNone     WatermarkPolicy = "NONE"
	WatermarkStandard WatermarkPolicy = "STANDARD"
	WatermarkForensic WatermarkPolicy = "FORENSIC"
	WatermarkMaximum  WatermarkPolicy = "MAXIMUM"
)

// ExportPolicy selects the export format gate (mirrors C6).
type ExportPolicy string

const (
	ExportNone            ExportPolicy = "NONE"
	ExportViewOnly        ExportPolicy = "VIEW_ONLY"
	ExportPDFOnly         ExportPolicy = "PDF_ONLY"
	ExportPDFPassword     ExportPolicy = "PDF_PASSWORD"
	ExportDOCXRestricted  ExportPolicy = "DOCX_RESTRICTED"
	ExportFull            ExportPolicy = "FULL"
)

// ClassificationRule is one scored keyword rule evaluated in declaration
// order; the highest non-zero score wins, ties broken by declaration
// order (the first-declared rule with the max score).
type ClassificationRule struct {
	Classification Classification
	RiskTier       RiskTier
	ModeBinding    ModeBinding
	WatermarkPolicy WatermarkPolicy
	ExportPolicy   ExportPolicy
	Keywords       []string
}

// defaultRules is the ~13-entry table driving auto-classification.
var defaultRules = []ClassificationRule{
	{ClassLegal, RiskHigh, ModeCrossMode, WatermarkForensic, ExportPDFPassword,
		[]string{"agreement", "contract", "covenant", "indemnif", "liability", "jurisdiction"}},
	{ClassFinancial, RiskHigh, ModeIssuer, WatermarkForensic, ExportPDFPassword,
		[]string{"financial statement", "balance sheet", "income statement", "audited", "revenue"}},
	{ClassCompliance, RiskCritical, ModeCrossMode, WatermarkMaximum, ExportPDFPassword,
		[]string{"compliance", "regulatory", "kyc", "aml", "sanctions", "audit finding"}},
	{ClassIP, RiskCritical, ModeCrossMode, WatermarkMaximum, ExportPDFPassword,
		[]string{"patent", "trade secret", "proprietary", "intellectual property", "confidential invention"}},
	{ClassGovernance, RiskHigh, ModeInfra, WatermarkForensic, ExportPDFOnly,
		[]string{"board resolution", "bylaws", "governance", "charter", "voting rights"}},
	{ClassResearch, RiskLow, ModeCrossMode, WatermarkStandard, ExportPDFOnly,
		[]string{"research", "whitepaper", "analysis", "methodology", "findings"}},
	{ClassCustody, RiskCritical, ModeIssuer, WatermarkMaximum, ExportPDFPassword,
		[]string{"custody", "custodian", "safekeeping", "asset control", "wallet"}},
	{ClassIssuance, RiskHigh, ModeIssuer, WatermarkForensic, ExportPDFPassword,
		[]string{"issuance", "offering memorandum", "subscription agreement", "prospectus"}},
	{ClassVenue, RiskHigh, ModeVenue, WatermarkForensic, ExportPDFOnly,
		[]string{"venue", "exchange rules", "listing standard", "market maker"}},
	{ClassTreasury, RiskCritical, ModeIssuer, WatermarkMaximum, ExportPDFPassword,
		[]string{"treasury", "reserve", "collateral", "liquidity facility"}},
	{ClassRisk, RiskHigh, ModeCrossMode, WatermarkForensic, ExportPDFOnly,
		[]string{"risk assessment", "risk register", "exposure limit", "stress test"}},
	{ClassCounterparty, RiskHigh, ModeCrossMode, WatermarkForensic, ExportPDFOnly,
		[]string{"counterparty", "due diligence", "onboarding questionnaire"}},
	{ClassPublic, RiskLow, ModeCrossMode, WatermarkNone, ExportFull,
		[]string{"press release", "public announcement", "marketing", "brochure"}},
}

// defaultRule is the fallback when no rule scores above zero.
var defaultRule = ClassificationRule{
	Classification: ClassOperational, RiskTier: RiskLow, ModeBinding: ModeCrossMode,
	WatermarkPolicy: WatermarkStandard, ExportPolicy: ExportPDFOnly,
}

// Classify scores each rule by case-insensitive keyword hit count against
// title ‖ rawText, and returns the winning rule (first-declared on ties).
func Classify(title, rawText string) ClassificationRule {
	haystack := strings.ToLower(title + " " + rawText)

	best := defaultRule
	bestScore := 0
	for _, rule := range defaultRules {
		score := 0
		for _, kw := range rule.Keywords {
			score += strings.Count(haystack, strings.ToLower(kw))
		}
		if score > bestScore {
			bestScore = score
			best = rule
		}
	}
	return best
}
