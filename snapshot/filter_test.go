package snapshot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biotmed/biot-sdk-go/snapshot"
	"github.com/biotmed/biot-sdk-go/testutil"
)

func Test_FilterForCopy_PullsInCopyCompanions(t *testing.T) {
	// arrange
	report := testutil.GivenConfigurationReport(t, "copy")
	filter, err := snapshot.NewFilter(snapshot.DefaultReferenceGraph())
	require.NoError(t, err)

	// act: request only the channel, its montage must travel along
	filtered, warnings := filter.FilterForCopy(report, map[snapshot.TemplateName][]snapshot.EntityID{
		snapshot.TemplateChannel: {"channel-1"},
	})

	// assert
	assert.Empty(t, warnings)
	assert.Equal(t, []snapshot.TemplateName{
		snapshot.TemplateChannel,
		snapshot.TemplateMontageConfiguration,
	}, filtered.Templates())

	assert.NotContains(t, filtered.Entities, snapshot.TemplatePatch,
		"the montage to patch reference is not a copy companion")
	assert.NotContains(t, filtered.Entities, snapshot.TemplateSensor)
}

func Test_FilterForCopy_IsIdempotent(t *testing.T) {
	// arrange
	report := testutil.GivenConfigurationReport(t, "fixed-point")
	filter, err := snapshot.NewFilter(snapshot.DefaultReferenceGraph())
	require.NoError(t, err)

	roots := map[snapshot.TemplateName][]snapshot.EntityID{
		snapshot.TemplateCalibrationStep: {"calibration-1"},
	}

	// act
	once, _ := filter.FilterForCopy(report, roots)
	twice, _ := filter.FilterForCopy(once, roots)

	// assert
	assert.Equal(t, once.Templates(), twice.Templates())
	assert.Equal(t, once.EntityCount(), twice.EntityCount())
}

func Test_FilterForCopy_When_ARootIsAbsentFromTheReport(t *testing.T) {
	// arrange
	report := testutil.GivenConfigurationReport(t, "missing-root")
	filter, err := snapshot.NewFilter(snapshot.DefaultReferenceGraph())
	require.NoError(t, err)

	// act
	filtered, warnings := filter.FilterForCopy(report, map[snapshot.TemplateName][]snapshot.EntityID{
		snapshot.TemplateChannel: {"channel-missing"},
	})

	// assert
	assert.True(t, filtered.IsEmpty())

	require.Len(t, warnings, 1)
	warning, ok := warnings[0].(snapshot.UnresolvedReferenceWarning)
	require.True(t, ok)
	assert.Equal(t, snapshot.TemplateChannel, warning.TemplateName)
	assert.Equal(t, "channel-missing", warning.ReferenceID)
}

func Test_FilterForCopy_When_ACompanionIsAbsentFromTheReport(t *testing.T) {
	// arrange
	report := testutil.GivenReport(t, "missing-companion", map[snapshot.TemplateName]snapshot.Entities{
		snapshot.TemplateChannel: {
			testutil.GivenEntity(t, "channel-1", snapshot.TemplateChannel, map[string]any{
				"montage_configuration": map[string]any{"id": "montage-gone"},
			}),
		},
	})
	filter, err := snapshot.NewFilter(snapshot.DefaultReferenceGraph())
	require.NoError(t, err)

	// act
	filtered, warnings := filter.FilterForCopy(report, map[snapshot.TemplateName][]snapshot.EntityID{
		snapshot.TemplateChannel: {"channel-1"},
	})

	// assert
	assert.Equal(t, 1, filtered.EntityCount(), "the root itself is still retained")

	require.Len(t, warnings, 1)
	warning, ok := warnings[0].(snapshot.UnresolvedReferenceWarning)
	require.True(t, ok)
	assert.Equal(t, "montage_configuration", warning.Field)
	assert.Equal(t, "montage-gone", warning.ReferenceID)
}

func Test_FilterForCopy_When_ReportCarriesDevices(t *testing.T) {
	// arrange
	report := testutil.GivenConfigurationReport(t, "with-devices")
	report.Devices = snapshot.Entities{testutil.GivenEntity(t, "device-1", "device", nil)}
	filter, err := snapshot.NewFilter(snapshot.DefaultReferenceGraph())
	require.NoError(t, err)

	// act
	filtered, warnings := filter.FilterForCopy(report, map[snapshot.TemplateName][]snapshot.EntityID{
		snapshot.TemplateSensor: {"sensor-1"},
	})

	// assert
	assert.Empty(t, filtered.Devices)
	require.Len(t, warnings, 1)
	assert.IsType(t, snapshot.DevicesDroppedWarning{}, warnings[0])
}

func Test_FilterForCopy_PreservesGroupOrder(t *testing.T) {
	// arrange
	report := testutil.GivenReport(t, "ordering", map[snapshot.TemplateName]snapshot.Entities{
		snapshot.TemplatePatch: {
			testutil.GivenEntity(t, "patch-1", snapshot.TemplatePatch, nil),
			testutil.GivenEntity(t, "patch-2", snapshot.TemplatePatch, nil),
			testutil.GivenEntity(t, "patch-3", snapshot.TemplatePatch, nil),
		},
	})
	filter, err := snapshot.NewFilter(snapshot.DefaultReferenceGraph())
	require.NoError(t, err)

	// act: roots named out of group order
	filtered, warnings := filter.FilterForCopy(report, map[snapshot.TemplateName][]snapshot.EntityID{
		snapshot.TemplatePatch: {"patch-3", "patch-1"},
	})

	// assert
	assert.Empty(t, warnings)

	patches := filtered.Entities[snapshot.TemplatePatch]
	require.Len(t, patches, 2)
	assert.Equal(t, "patch-1", patches[0].ID, "group order of the source report is preserved")
	assert.Equal(t, "patch-3", patches[1].ID)
}
