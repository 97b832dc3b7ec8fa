package snapshot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biotmed/biot-sdk-go/snapshot"
	"github.com/biotmed/biot-sdk-go/testutil"
)

func Test_BuildDependencyOrder_When_ATemplateNameIsEmpty(t *testing.T) {
	// act
	_, err := snapshot.BuildDependencyOrder("sensor", "")

	// assert
	assert.ErrorIs(t, err, snapshot.ErrEmptyTemplateName)
}

func Test_BuildDependencyOrder_When_ATemplateAppearsTwice(t *testing.T) {
	// act
	_, err := snapshot.BuildDependencyOrder("sensor", "patch", "sensor")

	// assert
	assert.Error(t, err)
}

func Test_DependencyOrder_OrderFor_When_ReportHoldsASubsetOfTemplates(t *testing.T) {
	// arrange
	order := snapshot.DefaultPostOrder()
	report := testutil.GivenReport(t, "subset", map[snapshot.TemplateName]snapshot.Entities{
		snapshot.TemplateChannel: {testutil.GivenEntity(t, "c-1", snapshot.TemplateChannel, nil)},
		snapshot.TemplatePatch:   {testutil.GivenEntity(t, "p-1", snapshot.TemplatePatch, nil)},
	})

	// act
	ordered, warnings := order.OrderFor(report)

	// assert
	assert.Equal(t, []snapshot.TemplateName{snapshot.TemplatePatch, snapshot.TemplateChannel}, ordered,
		"relative order of the declared post order is preserved")
	assert.Empty(t, warnings)
}

func Test_DependencyOrder_OrderFor_IsIdempotent(t *testing.T) {
	// arrange
	order := snapshot.DefaultPostOrder()
	report := testutil.GivenConfigurationReport(t, "full")

	// act
	first, _ := order.OrderFor(report)
	second, _ := order.OrderFor(report)

	// assert
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot.DefaultConfigurationTemplates(), first)
}

func Test_DependencyOrder_OrderFor_When_ReportHoldsAnUndeclaredTemplate(t *testing.T) {
	// arrange
	order := snapshot.DefaultPostOrder()
	report := testutil.GivenReport(t, "extra", map[snapshot.TemplateName]snapshot.Entities{
		snapshot.TemplateSensor: {testutil.GivenEntity(t, "s-1", snapshot.TemplateSensor, nil)},
		"annotation":            {testutil.GivenEntity(t, "a-1", "annotation", nil)},
	})

	// act
	ordered, warnings := order.OrderFor(report)

	// assert
	assert.Equal(t, []snapshot.TemplateName{snapshot.TemplateSensor, "annotation"}, ordered,
		"undeclared templates are appended after every ordered one")

	require.Len(t, warnings, 1)
	warning, ok := warnings[0].(snapshot.UnknownTemplateOrderWarning)
	require.True(t, ok)
	assert.Equal(t, snapshot.TemplateName("annotation"), warning.TemplateName)
	assert.NotEmpty(t, warning.Warning())
}

func Test_DependencyOrder_Validate_When_OrderMatchesTheGraph(t *testing.T) {
	// act
	err := snapshot.DefaultPostOrder().Validate(snapshot.DefaultReferenceGraph())

	// assert
	assert.NoError(t, err)
}

func Test_DependencyOrder_Validate_When_ADependentIsPostedBeforeItsTarget(t *testing.T) {
	// arrange
	order, err := snapshot.BuildDependencyOrder(
		snapshot.TemplateChannel,
		snapshot.TemplateMontageConfiguration,
	)
	require.NoError(t, err)

	graph, err := snapshot.BuildReferenceGraph(map[snapshot.TemplateName]snapshot.TemplateSpec{
		snapshot.TemplateChannel: {
			ReferenceFields: []snapshot.ReferenceField{
				{Name: "montage_configuration", TargetTemplate: snapshot.TemplateMontageConfiguration},
			},
		},
		snapshot.TemplateMontageConfiguration: {},
	})
	require.NoError(t, err)

	// act + assert
	assert.Error(t, order.Validate(graph))
}

func Test_DependencyOrder_Validate_When_AGraphTemplateHasNoPosition(t *testing.T) {
	// arrange
	order, err := snapshot.BuildDependencyOrder(snapshot.TemplateSensor)
	require.NoError(t, err)

	// act + assert
	assert.Error(t, order.Validate(snapshot.DefaultReferenceGraph()))
}

func Test_DependencyOrder_Validate_When_ATemplateReferencesItself(t *testing.T) {
	// arrange
	order, err := snapshot.BuildDependencyOrder("folder")
	require.NoError(t, err)

	graph, err := snapshot.BuildReferenceGraph(map[snapshot.TemplateName]snapshot.TemplateSpec{
		"folder": {
			ReferenceFields: []snapshot.ReferenceField{{Name: "parent", TargetTemplate: "folder"}},
		},
	})
	require.NoError(t, err)

	// act + assert
	assert.NoError(t, order.Validate(graph), "self-references resolve through the pending-patch pass")
}
