// Package observability provides OpenTelemetry tracing and metrics for the
// document-control platform, following cloud-native best practices.
//
// # Tracing
//
// Initialize at application startup:
//
//	p, err := observability.New(ctx, observability.Config{
//		ServiceName:  "sdc-core",
//		OTLPEndpoint: "otel-collector:4317",
//		SampleRate:   0.1, // 10% sampling in production
//	})
//	defer p.Shutdown(ctx)
//
// Create spans manually around pipeline stages:
//
//	ctx, span := p.StartSpan(ctx, "intake.classify")
//	defer span.End()
//
// # Metrics
//
// The provider exposes request/error counters and a duration histogram,
// tagged by the caller with the sdc.* semantic conventions in semconv.go.
// No pipeline package in this module imports observability; stages are
// measured only where a caller wraps them.
package observability
