package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biotmed/biot-sdk-go/snapshot"
)

// FixtureSourceOrg and FixtureTargetOrg are the org ids used by the
// standard fixtures.
const (
	FixtureSourceOrg snapshot.OrgID = "org-src"
	FixtureTargetOrg snapshot.OrgID = "org-dst"
)

// FixtureCreatedAt is the creation instant stamped onto fixture reports.
var FixtureCreatedAt = time.Date(2025, time.March, 12, 10, 30, 0, 0, time.UTC)

// GivenEntity builds a valid entity owned by FixtureSourceOrg.
func GivenEntity(t testing.TB, id snapshot.EntityID, templateName snapshot.TemplateName, data map[string]any) snapshot.Entity {
	t.Helper()

	entity, err := snapshot.BuildEntity(id, templateName, data)
	require.NoError(t, err, "fixture entity should build")
	entity.Name = "fixture " + id
	entity.OwnerOrg = FixtureSourceOrg

	return entity
}

// GivenReport builds a valid report from the supplied template groups.
func GivenReport(t testing.TB, name string, groups map[snapshot.TemplateName]snapshot.Entities) snapshot.Report {
	t.Helper()

	report, err := snapshot.BuildReport(name, FixtureCreatedAt, groups, nil)
	require.NoError(t, err, "fixture report should build")

	return report
}

// GivenConfigurationReport builds the canonical fixture used by the ordering
// and transfer tests: one sensor, one patch, one montage configuration
// referencing the patch, and one channel plus one calibration step each
// referencing the montage configuration.
func GivenConfigurationReport(t testing.TB, name string) snapshot.Report {
	t.Helper()

	groups := map[snapshot.TemplateName]snapshot.Entities{
		snapshot.TemplateSensor: {
			GivenEntity(t, "sensor-1", snapshot.TemplateSensor, map[string]any{
				"serial": "SN-001",
				"device": map[string]any{"id": "device-1"},
			}),
		},
		snapshot.TemplatePatch: {
			GivenEntity(t, "patch-1", snapshot.TemplatePatch, map[string]any{
				"revision": float64(3),
			}),
		},
		snapshot.TemplateMontageConfiguration: {
			GivenEntity(t, "montage-1", snapshot.TemplateMontageConfiguration, map[string]any{
				"patch": map[string]any{"id": "patch-1"},
			}),
		},
		snapshot.TemplateChannel: {
			GivenEntity(t, "channel-1", snapshot.TemplateChannel, map[string]any{
				"montage_configuration": map[string]any{"id": "montage-1"},
			}),
		},
		snapshot.TemplateCalibrationStep: {
			GivenEntity(t, "calibration-1", snapshot.TemplateCalibrationStep, map[string]any{
				"montage_calibraterd": map[string]any{"id": "montage-1"},
			}),
		},
	}

	return GivenReport(t, name, groups)
}

// GivenPopulatedFakeStore returns a fake store whose fetch responses mirror
// GivenConfigurationReport, so an export of the default configuration
// templates reproduces the canonical fixture.
func GivenPopulatedFakeStore(t testing.TB) *FakeEntityStore {
	t.Helper()

	report := GivenConfigurationReport(t, "seed")
	store := NewFakeEntityStore()
	for templateName, entities := range report.Entities {
		store.FetchResponses[templateName] = entities
	}

	return store
}

// AssertResolvesTo asserts that the lookup table maps the given source id
// to the given destination id.
func AssertResolvesTo(t testing.TB, lookup *snapshot.LookupTable, templateName snapshot.TemplateName, sourceID, wantID snapshot.EntityID) {
	t.Helper()

	gotID, ok := lookup.Resolve(templateName, sourceID)
	require.True(t, ok, "lookup should contain %s/%s", templateName, sourceID)
	assert.Equal(t, wantID, gotID, "lookup entry for %s/%s", templateName, sourceID)
}
