package snapshot

import (
	"context"
	"errors"
	"time"
)

// Exporter assembles a Report by querying the entity store for every
// requested template. Export is all-or-nothing: a single failed fetch
// discards everything fetched before it, because callers must never operate
// on an incomplete configuration snapshot.
type Exporter struct {
	store     EntityStore
	templates []TemplateName
	clock     func() time.Time
	obs       instrumentation
}

// NewExporter creates an Exporter with optional configuration.
func NewExporter(store EntityStore, options ...Option) (Exporter, error) {
	if store == nil {
		return Exporter{}, ErrNilEntityStore
	}

	cfg := defaultConfig()
	for _, option := range options {
		if err := option(&cfg); err != nil {
			return Exporter{}, err
		}
	}

	return Exporter{
		store:     store,
		templates: cfg.templates,
		clock:     cfg.clock,
		obs:       instrumentationFromConfig(cfg),
	}, nil
}

// Export fetches all entities of the requested templates created at or
// after since and assembles them into a named Report. With includeDevices,
// device records are fetched and attached as well.
//
// Any failed fetch aborts the export with ErrUpstreamFetchFailed; no
// partially populated report is returned.
func (ex Exporter) Export(
	ctx context.Context,
	name string,
	templateNames []TemplateName,
	since time.Time,
	includeDevices bool,
) (Report, error) {

	if name == "" {
		return Report{}, ErrEmptyReportName
	}

	spanCtx, span := ex.obs.startSpan(ctx, spanExport, map[string]string{"report": name})
	ctx = spanCtx

	start := ex.clock()
	entities := make(map[TemplateName]Entities, len(templateNames))

	for _, templateName := range templateNames {
		if templateName == "" {
			ex.obs.finishSpan(span, outcomeError, nil)
			return Report{}, ErrEmptyTemplateName
		}

		group, fetchErr := ex.store.FetchEntities(ctx, templateName, since)
		if fetchErr != nil {
			ex.obs.error(ctx, "export aborted, fetching a template failed",
				"template", templateName, "error", fetchErr.Error())
			ex.obs.finishSpan(span, outcomeError, map[string]string{labelTemplate: templateName})

			return Report{}, errors.Join(ErrUpstreamFetchFailed, fetchErr)
		}

		entities[templateName] = group
		ex.obs.debug(ctx, "template fetched", "template", templateName, "entity_count", len(group))
	}

	var devices Entities
	if includeDevices {
		var fetchErr error
		devices, fetchErr = ex.store.FetchDevices(ctx, since)
		if fetchErr != nil {
			ex.obs.error(ctx, "export aborted, fetching devices failed", "error", fetchErr.Error())
			ex.obs.finishSpan(span, outcomeError, nil)

			return Report{}, errors.Join(ErrUpstreamFetchFailed, fetchErr)
		}
	}

	report, buildErr := BuildReport(name, ex.clock(), entities, devices)
	if buildErr != nil {
		ex.obs.finishSpan(span, outcomeError, nil)
		return Report{}, buildErr
	}

	ex.obs.recordDuration(MetricExportDuration, ex.clock().Sub(start), map[string]string{labelOutcome: outcomeOK})
	ex.obs.info(ctx, "snapshot exported",
		"report", name, "entity_count", report.EntityCount(), "device_count", len(devices))
	ex.obs.finishSpan(span, outcomeOK, nil)

	return report, nil
}

// ExportFullConfiguration exports the complete canonical set of
// configuration templates, devices included.
func (ex Exporter) ExportFullConfiguration(ctx context.Context, name string, since time.Time) (Report, error) {
	return ex.Export(ctx, name, ex.templates, since, true)
}
