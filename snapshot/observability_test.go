package snapshot_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biotmed/biot-sdk-go/snapshot"
	"github.com/biotmed/biot-sdk-go/testutil"
)

func Test_Exporter_Export_RecordsMetricsAndSpan(t *testing.T) {
	// setup
	store := testutil.GivenPopulatedFakeStore(t)
	metrics := testutil.NewMetricsCollectorSpy()
	tracing := testutil.NewTracingCollectorSpy()

	exporter, err := snapshot.NewExporter(store,
		snapshot.WithMetrics(metrics),
		snapshot.WithTracing(tracing),
	)
	require.NoError(t, err)

	// act
	_, err = exporter.ExportFullConfiguration(context.Background(), "obs report", snapshot.DefaultExportSince())

	// assert
	require.NoError(t, err)

	durations := metrics.Durations()
	require.Len(t, durations, 1)
	assert.Equal(t, snapshot.MetricExportDuration, durations[0].Metric)
	assert.Equal(t, "ok", durations[0].Labels["outcome"])

	spans := tracing.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, "snapshot.export", spans[0].Name)
	assert.Equal(t, "ok", spans[0].Status)
	assert.True(t, spans[0].Finished)
	assert.Equal(t, "obs report", spans[0].Attributes["report"])
}

func Test_Importer_Import_RecordsMetricsAndSpan(t *testing.T) {
	// setup
	store := testutil.NewFakeEntityStore()
	metrics := testutil.NewMetricsCollectorSpy()
	tracing := testutil.NewTracingCollectorSpy()
	logger := testutil.NewLoggerSpy()

	importer, err := snapshot.NewImporter(store,
		snapshot.WithMetrics(metrics),
		snapshot.WithTracing(tracing),
		snapshot.WithLogger(logger),
	)
	require.NoError(t, err)

	report := testutil.GivenConfigurationReport(t, "obs report")

	// act
	_, err = importer.Import(context.Background(), report, testutil.FixtureTargetOrg)

	// assert
	require.NoError(t, err)

	assert.Equal(t, 5, metrics.CounterTotal(snapshot.MetricEntitiesPosted))

	durations := metrics.Durations()
	require.Len(t, durations, 1)
	assert.Equal(t, snapshot.MetricImportDuration, durations[0].Metric)
	assert.Equal(t, "ok", durations[0].Labels["outcome"])

	spans := tracing.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, "snapshot.import", spans[0].Name)
	assert.Equal(t, "ok", spans[0].Status)
	assert.True(t, spans[0].Finished)
}

func Test_Importer_Import_When_ReferenceIsDangling_ReportsWarningMetrics(t *testing.T) {
	// setup
	store := testutil.NewFakeEntityStore()
	metrics := testutil.NewMetricsCollectorSpy()
	logger := testutil.NewLoggerSpy()

	importer, err := snapshot.NewImporter(store,
		snapshot.WithMetrics(metrics),
		snapshot.WithLogger(logger),
	)
	require.NoError(t, err)

	montage := testutil.GivenEntity(t, "montage-1", snapshot.TemplateMontageConfiguration,
		map[string]any{"patch": map[string]any{"id": "patch-gone"}})
	report := testutil.GivenReport(t, "dangling report", map[snapshot.TemplateName]snapshot.Entities{
		snapshot.TemplateMontageConfiguration: {montage},
	})

	// act
	result, err := importer.Import(context.Background(), report, testutil.FixtureTargetOrg)

	// assert
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings)

	warningValues := metrics.Values(snapshot.MetricWarnings)
	require.NotEmpty(t, warningValues)
	assert.GreaterOrEqual(t, warningValues[0].Value, 1.0)

	assert.NotEmpty(t, logger.MessagesAt("warn"), "dangling references are logged as warnings")
}
