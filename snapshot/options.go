package snapshot

import (
	"context"
	"errors"
	"time"
)

// config collects the optional collaborators and tuning knobs shared by the
// engine components. Each constructor starts from defaultConfig and applies
// the supplied options; an option irrelevant to a component is simply
// unused by it.
type config struct {
	graph       ReferenceGraph
	order       DependencyOrder
	templates   []TemplateName
	since       time.Time
	clock       func() time.Time
	concurrency int

	logger           Logger
	contextualLogger ContextualLogger
	metrics          MetricsCollector
	tracing          TracingCollector
}

func defaultConfig() config {
	return config{
		graph:       DefaultReferenceGraph(),
		order:       DefaultPostOrder(),
		templates:   DefaultConfigurationTemplates(),
		since:       DefaultExportSince(),
		clock:       time.Now,
		concurrency: 1,
	}
}

// DefaultExportSince returns the default creation-time lower bound for
// exports, the rollout date of the configuration schema. Entities created
// before it predate the schema and are never part of a snapshot.
func DefaultExportSince() time.Time {
	return time.Date(2024, time.May, 1, 9, 3, 33, 0, time.UTC)
}

// Option defines a functional option for configuring engine components.
type Option func(*config) error

// WithReferenceGraph replaces the canonical reference graph, enabling
// per-test overrides and non-default schemas.
func WithReferenceGraph(graph ReferenceGraph) Option {
	return func(c *config) error {
		c.graph = graph
		return nil
	}
}

// WithDependencyOrder replaces the canonical post order.
// The order is trusted as supplied; call DependencyOrder.Validate against
// the reference graph to catch drift between the two.
func WithDependencyOrder(order DependencyOrder) Option {
	return func(c *config) error {
		c.order = order
		return nil
	}
}

// WithConfigurationTemplates replaces the canonical set of configuration
// template names used by full-configuration exports.
func WithConfigurationTemplates(templates ...TemplateName) Option {
	return func(c *config) error {
		if len(templates) == 0 {
			return errors.New("at least one configuration template must be supplied")
		}
		for _, templateName := range templates {
			if templateName == "" {
				return ErrEmptyTemplateName
			}
		}

		c.templates = templates

		return nil
	}
}

// WithDefaultSince replaces the default creation-time lower bound used when
// an export is requested without one.
func WithDefaultSince(since time.Time) Option {
	return func(c *config) error {
		c.since = since
		return nil
	}
}

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(c *config) error {
		if clock == nil {
			return errors.New("nil clock supplied")
		}

		c.clock = clock

		return nil
	}
}

// WithPostConcurrency bounds concurrent posting of entities within one
// template. Entities of the same template share a dependency level and hold
// no mutual references, so posting them in parallel preserves the
// forward-reference resolution guarantee. The default of 1 keeps the import
// strictly sequential.
func WithPostConcurrency(limit int) Option {
	return func(c *config) error {
		if limit < 1 {
			return errors.New("post concurrency limit must be at least 1")
		}

		c.concurrency = limit

		return nil
	}
}

// WithLogger sets the logger.
//
// Debug level: per-entity posting and rewriting detail (development use)
// Info level: entity counts and durations (production-safe)
// Warn level: unresolved references and unknown template positions
// Error level: upstream failures that abort or truncate an operation.
func WithLogger(logger Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger. When both a Logger and
// a ContextualLogger are configured, the contextual one wins for operations
// that carry a context.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(c *config) error {
		c.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector, which receives operation
// durations, posted-entity counts, pending-patch counts, and warning
// counts.
func WithMetrics(collector MetricsCollector) Option {
	return func(c *config) error {
		c.metrics = collector
		return nil
	}
}

// WithTracing sets the tracing collector, which receives one span per
// export and import operation.
func WithTracing(collector TracingCollector) Option {
	return func(c *config) error {
		c.tracing = collector
		return nil
	}
}

// instrumentation bundles the optional observability collaborators and
// keeps the nil checks out of the engine code paths. The contextual logger
// wins over the plain one when both are configured.
type instrumentation struct {
	logger           Logger
	contextualLogger ContextualLogger
	metrics          MetricsCollector
	tracing          TracingCollector
}

func instrumentationFromConfig(c config) instrumentation {
	return instrumentation{
		logger:           c.logger,
		contextualLogger: c.contextualLogger,
		metrics:          c.metrics,
		tracing:          c.tracing,
	}
}

func (in instrumentation) debug(ctx context.Context, msg string, args ...any) {
	if in.contextualLogger != nil {
		in.contextualLogger.DebugContext(ctx, msg, args...)
		return
	}
	if in.logger != nil {
		in.logger.Debug(msg, args...)
	}
}

func (in instrumentation) info(ctx context.Context, msg string, args ...any) {
	if in.contextualLogger != nil {
		in.contextualLogger.InfoContext(ctx, msg, args...)
		return
	}
	if in.logger != nil {
		in.logger.Info(msg, args...)
	}
}

func (in instrumentation) warn(ctx context.Context, msg string, args ...any) {
	if in.contextualLogger != nil {
		in.contextualLogger.WarnContext(ctx, msg, args...)
		return
	}
	if in.logger != nil {
		in.logger.Warn(msg, args...)
	}
}

func (in instrumentation) error(ctx context.Context, msg string, args ...any) {
	if in.contextualLogger != nil {
		in.contextualLogger.ErrorContext(ctx, msg, args...)
		return
	}
	if in.logger != nil {
		in.logger.Error(msg, args...)
	}
}

func (in instrumentation) recordDuration(metric string, duration time.Duration, labels map[string]string) {
	if in.metrics != nil {
		in.metrics.RecordDuration(metric, duration, labels)
	}
}

func (in instrumentation) incrementCounter(metric string, labels map[string]string) {
	if in.metrics != nil {
		in.metrics.IncrementCounter(metric, labels)
	}
}

func (in instrumentation) recordValue(metric string, value float64, labels map[string]string) {
	if in.metrics != nil {
		in.metrics.RecordValue(metric, value, labels)
	}
}

func (in instrumentation) startSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext) {
	if in.tracing == nil {
		return ctx, nil
	}

	return in.tracing.StartSpan(ctx, name, attrs)
}

func (in instrumentation) finishSpan(spanCtx SpanContext, status string, attrs map[string]string) {
	if in.tracing != nil && spanCtx != nil {
		in.tracing.FinishSpan(spanCtx, status, attrs)
	}
}

func (in instrumentation) warnAll(ctx context.Context, warnings []Warning) {
	for _, w := range warnings {
		in.warn(ctx, w.Warning())
	}
	if len(warnings) > 0 {
		in.recordValue(MetricWarnings, float64(len(warnings)), nil)
	}
}
