// Package observability provides sovereign-document-control instrumentation
// helpers layered on top of OpenTelemetry and log/slog.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Semantic convention attribute keys used across the pipeline's spans.
var (
	AttrDocumentID   = attribute.Key("sdc.document.id")
	AttrIntakeID     = attribute.Key("sdc.intake.id")
	AttrRiskTier     = attribute.Key("sdc.intake.risk_tier")
	AttrDocState     = attribute.Key("sdc.intake.state")

	AttrLedgerKind = attribute.Key("sdc.ledger.kind")
	AttrLedgerSeq  = attribute.Key("sdc.ledger.sequence")

	AttrTokenID   = attribute.Key("sdc.token.id")
	AttrTokenUses = attribute.Key("sdc.token.remaining_uses")

	AttrWatermarkID     = attribute.Key("sdc.watermark.id")
	AttrWatermarkPolicy = attribute.Key("sdc.watermark.policy")

	AttrExportFormat = attribute.Key("sdc.export.format")
	AttrExportPolicy = attribute.Key("sdc.export.policy")

	AttrWebhookValid = attribute.Key("sdc.webhook.valid")
	AttrRateLimitKey = attribute.Key("sdc.ratelimit.key")

	AttrAnchorAdapter = attribute.Key("sdc.anchor.adapter")
)

// IntakeOperation builds attributes describing an intake classification.
func IntakeOperation(intakeID, documentID, riskTier, state string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrIntakeID.String(intakeID),
		AttrDocumentID.String(documentID),
		AttrRiskTier.String(riskTier),
		AttrDocState.String(state),
	}
}

// LedgerAppend builds attributes describing a ledger append event.
func LedgerAppend(kind string, sequence uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrLedgerKind.String(kind),
		AttrLedgerSeq.Int64(int64(sequence)),
	}
}

// TokenOperation builds attributes describing an access-token operation.
func TokenOperation(tokenID string, remainingUses int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrTokenID.String(tokenID),
		AttrTokenUses.Int(remainingUses),
	}
}

// WatermarkOperation builds attributes describing a watermark generation.
func WatermarkOperation(watermarkID, policy string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrWatermarkID.String(watermarkID),
		AttrWatermarkPolicy.String(policy),
	}
}

// ExportOperation builds attributes describing an export decision.
func ExportOperation(format, policy string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrExportFormat.String(format),
		AttrExportPolicy.String(policy),
	}
}

// AnchorOperation builds attributes describing a ledger-anchor attempt.
func AnchorOperation(adapter string) []attribute.KeyValue {
	return []attribute.KeyValue{AttrAnchorAdapter.String(adapter)}
}

// SpanFromContext extracts the active span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds a named event with attributes to the active span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus records an error on the active span, if any.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
	}
}
