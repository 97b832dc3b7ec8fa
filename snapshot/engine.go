package snapshot

import (
	"context"
	"time"
)

// Engine ties the exporter, filter, and importer together behind the
// operations automation callers consume: export a full configuration
// snapshot into a report store, retrieve a stored report by name, import
// one, and transfer a configuration between organizations.
type Engine struct {
	entities EntityStore
	reports  ReportStore
	exporter Exporter
	importer Importer
	since    time.Time
	obs      instrumentation
}

// NewEngine creates an Engine over an entity store and a report store with
// optional configuration.
func NewEngine(entities EntityStore, reports ReportStore, options ...Option) (Engine, error) {
	if entities == nil {
		return Engine{}, ErrNilEntityStore
	}
	if reports == nil {
		return Engine{}, ErrNilReportStore
	}

	cfg := defaultConfig()
	for _, option := range options {
		if err := option(&cfg); err != nil {
			return Engine{}, err
		}
	}

	exporter, err := NewExporter(entities, options...)
	if err != nil {
		return Engine{}, err
	}

	importer, err := NewImporter(entities, options...)
	if err != nil {
		return Engine{}, err
	}

	return Engine{
		entities: entities,
		reports:  reports,
		exporter: exporter,
		importer: importer,
		since:    cfg.since,
		obs:      instrumentationFromConfig(cfg),
	}, nil
}

// ExportFullConfigurationSnapshot exports the complete canonical
// configuration, devices included, and persists the report under the given
// name. Returns the storage id of the saved report.
func (en Engine) ExportFullConfigurationSnapshot(ctx context.Context, name string) (string, error) {
	return en.ExportConfigurationSnapshotSince(ctx, name, en.since)
}

// ExportConfigurationSnapshotSince is ExportFullConfigurationSnapshot with
// an explicit creation-time lower bound.
func (en Engine) ExportConfigurationSnapshotSince(ctx context.Context, name string, since time.Time) (string, error) {
	report, exportErr := en.exporter.ExportFullConfiguration(ctx, name, since)
	if exportErr != nil {
		return "", exportErr
	}

	reportID, saveErr := en.reports.SaveReport(ctx, report)
	if saveErr != nil {
		return "", saveErr
	}

	en.obs.info(ctx, "configuration snapshot saved", "report", name, "report_id", reportID)

	return reportID, nil
}

// GetReportFileByName retrieves a stored report by name.
func (en Engine) GetReportFileByName(ctx context.Context, name string) (Report, error) {
	if name == "" {
		return Report{}, ErrEmptyReportName
	}

	return en.reports.GetReportByName(ctx, name)
}

// ImportConfigurationSnapshot posts a report's entities into the target
// organization. See Importer.Import for the partial-failure contract.
func (en Engine) ImportConfigurationSnapshot(ctx context.Context, report Report, targetOrg OrgID) (ImportResult, error) {
	return en.importer.Import(ctx, report, targetOrg)
}

// TransferOrgConfiguration retrieves a stored report by name and carries
// its entities from the source organization into the destination. With
// rootIDs supplied, only the copy closure of those root assets is
// transferred.
func (en Engine) TransferOrgConfiguration(
	ctx context.Context,
	srcOrg OrgID,
	dstOrg OrgID,
	reportName string,
	rootIDs map[TemplateName][]EntityID,
) (ImportResult, error) {

	report, getErr := en.GetReportFileByName(ctx, reportName)
	if getErr != nil {
		return ImportResult{Lookup: NewLookupTable()}, getErr
	}

	return en.importer.Transfer(ctx, srcOrg, dstOrg, report, rootIDs)
}
