package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/biotmed/biot-sdk-go/snapshot"
)

// LoggerSpy captures log calls so tests can assert on operational logging.
type LoggerSpy struct {
	mu      sync.Mutex
	entries []LogEntry
}

// LogEntry is one captured log call.
type LogEntry struct {
	Level string
	Msg   string
	Args  []any
}

func NewLoggerSpy() *LoggerSpy {
	return &LoggerSpy{}
}

func (s *LoggerSpy) Debug(msg string, args ...any) { s.record("debug", msg, args) }
func (s *LoggerSpy) Info(msg string, args ...any)  { s.record("info", msg, args) }
func (s *LoggerSpy) Warn(msg string, args ...any)  { s.record("warn", msg, args) }
func (s *LoggerSpy) Error(msg string, args ...any) { s.record("error", msg, args) }

func (s *LoggerSpy) record(level string, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

// Entries returns a copy of all captured log calls.
func (s *LoggerSpy) Entries() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]LogEntry, len(s.entries))
	copy(entries, s.entries)

	return entries
}

// MessagesAt returns the messages logged at one level, in order.
func (s *LoggerSpy) MessagesAt(level string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var messages []string
	for _, entry := range s.entries {
		if entry.Level == level {
			messages = append(messages, entry.Msg)
		}
	}

	return messages
}

// MetricsCollectorSpy captures metrics calls for inspection in tests.
type MetricsCollectorSpy struct {
	mu        sync.Mutex
	durations []DurationRecord
	counters  []CounterRecord
	values    []ValueRecord
}

// DurationRecord is one captured RecordDuration call.
type DurationRecord struct {
	Metric   string
	Duration time.Duration
	Labels   map[string]string
}

// CounterRecord is one captured IncrementCounter call.
type CounterRecord struct {
	Metric string
	Labels map[string]string
}

// ValueRecord is one captured RecordValue call.
type ValueRecord struct {
	Metric string
	Value  float64
	Labels map[string]string
}

func NewMetricsCollectorSpy() *MetricsCollectorSpy {
	return &MetricsCollectorSpy{}
}

func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.durations = append(s.durations, DurationRecord{Metric: metric, Duration: duration, Labels: copyLabels(labels)})
}

func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters = append(s.counters, CounterRecord{Metric: metric, Labels: copyLabels(labels)})
}

func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = append(s.values, ValueRecord{Metric: metric, Value: value, Labels: copyLabels(labels)})
}

// Durations returns a copy of all captured duration records.
func (s *MetricsCollectorSpy) Durations() []DurationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]DurationRecord, len(s.durations))
	copy(records, s.durations)

	return records
}

// CounterTotal returns how many times one counter metric was incremented,
// across all label sets.
func (s *MetricsCollectorSpy) CounterTotal(metric string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, record := range s.counters {
		if record.Metric == metric {
			total++
		}
	}

	return total
}

// Values returns a copy of all captured value records for one metric.
func (s *MetricsCollectorSpy) Values(metric string) []ValueRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []ValueRecord
	for _, record := range s.values {
		if record.Metric == metric {
			records = append(records, record)
		}
	}

	return records
}

func copyLabels(labels map[string]string) map[string]string {
	copied := make(map[string]string, len(labels))
	for k, v := range labels {
		copied[k] = v
	}

	return copied
}

// SpanSpy is a SpanContext double recording status and attributes.
type SpanSpy struct {
	mu         sync.Mutex
	Name       string
	Status     string
	Attributes map[string]string
	Finished   bool
}

func (s *SpanSpy) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Status = status
}

func (s *SpanSpy) AddAttribute(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Attributes[key] = value
}

// TracingCollectorSpy captures spans started and finished by the engine.
type TracingCollectorSpy struct {
	mu    sync.Mutex
	spans []*SpanSpy
}

func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{}
}

func (s *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, snapshot.SpanContext) {
	span := &SpanSpy{Name: name, Attributes: copyLabels(attrs)}

	s.mu.Lock()
	s.spans = append(s.spans, span)
	s.mu.Unlock()

	return ctx, span
}

func (s *TracingCollectorSpy) FinishSpan(spanCtx snapshot.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*SpanSpy)
	if !ok {
		return
	}

	span.mu.Lock()
	span.Status = status
	for k, v := range attrs {
		span.Attributes[k] = v
	}
	span.Finished = true
	span.mu.Unlock()
}

// Spans returns all spans started so far.
func (s *TracingCollectorSpy) Spans() []*SpanSpy {
	s.mu.Lock()
	defer s.mu.Unlock()

	spans := make([]*SpanSpy, len(s.spans))
	copy(spans, s.spans)

	return spans
}
