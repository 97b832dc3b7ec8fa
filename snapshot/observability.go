package snapshot

import (
	"context"
	"time"
)

// Logger interface for operational logging, warnings, and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger interface for context-aware logging with automatic trace
// correlation. It follows the same dependency-free pattern as
// MetricsCollector, so any logging backend that supports context-based
// correlation can be plugged in without this package importing it.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MetricsCollector interface for collecting performance and operational
// metrics of export, filter, and import operations.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// SpanContext represents an active tracing span that can be finished and
// updated with attributes.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector interface for collecting distributed tracing information
// from engine operations. Dependency-free so users can integrate any
// tracing backend by implementing it.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

// Metric and span names emitted by the engine.
const (
	MetricExportDuration = "biot_snapshot_export_duration"
	MetricImportDuration = "biot_snapshot_import_duration"
	MetricEntitiesPosted = "biot_snapshot_entities_posted"
	MetricPendingPatches = "biot_snapshot_pending_patches"
	MetricWarnings       = "biot_snapshot_warnings"

	spanExport = "snapshot.export"
	spanImport = "snapshot.import"
)

const (
	labelTemplate  = "template"
	labelOperation = "operation"
	labelOutcome   = "outcome"

	outcomeOK      = "ok"
	outcomePartial = "partial"
	outcomeError   = "error"
)
