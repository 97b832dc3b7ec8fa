package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_BuildEntity_When_TemplateNameIsEmpty(t *testing.T) {
	// act
	_, err := BuildEntity("id-1", "", nil)

	// assert
	assert.ErrorIs(t, err, ErrEmptyTemplateName)
}

func Test_Entity_Clone_When_NestedDataIsMutated(t *testing.T) {
	// arrange
	original, err := BuildEntity("id-1", "sensor", map[string]any{
		"nested": map[string]any{"id": "ref-1"},
		"items":  []any{"a", map[string]any{"k": "v"}},
	})
	require.NoError(t, err)

	// act
	clone := original.Clone()
	clone.Data["nested"].(map[string]any)["id"] = "changed"
	clone.Data["items"].([]any)[0] = "changed"

	// assert
	assert.Equal(t, "ref-1", original.Data["nested"].(map[string]any)["id"])
	assert.Equal(t, "a", original.Data["items"].([]any)[0])
}

func Test_ReferenceIDs_When_ValueIsABareString(t *testing.T) {
	assert.Equal(t, []EntityID{"ref-1"}, referenceIDs("ref-1"))
	assert.Nil(t, referenceIDs(""))
}

func Test_ReferenceIDs_When_ValueIsAnObjectWithID(t *testing.T) {
	assert.Equal(t, []EntityID{"ref-1"}, referenceIDs(map[string]any{"id": "ref-1", "name": "x"}))
	assert.Nil(t, referenceIDs(map[string]any{"name": "x"}))
}

func Test_ReferenceIDs_When_ValueIsASequence(t *testing.T) {
	// arrange
	value := []any{"ref-1", map[string]any{"id": "ref-2"}, map[string]any{"name": "no id"}}

	// act + assert
	assert.Equal(t, []EntityID{"ref-1", "ref-2"}, referenceIDs(value))
}

func Test_ReferenceIDs_When_ValueIsNotAReferenceShape(t *testing.T) {
	assert.Nil(t, referenceIDs(42))
	assert.Nil(t, referenceIDs(nil))
}

func Test_RewriteReferenceValue_When_EveryIDResolves(t *testing.T) {
	// arrange
	resolve := func(id EntityID) (EntityID, bool) {
		return "new-" + id, true
	}

	// act
	rewrittenString, unresolvedString := rewriteReferenceValue("ref-1", resolve)
	rewrittenObject, unresolvedObject := rewriteReferenceValue(map[string]any{"id": "ref-2", "name": "x"}, resolve)

	// assert
	assert.Equal(t, "new-ref-1", rewrittenString)
	assert.Empty(t, unresolvedString)
	assert.Equal(t, map[string]any{"id": "new-ref-2", "name": "x"}, rewrittenObject)
	assert.Empty(t, unresolvedObject)
}

func Test_RewriteReferenceValue_When_AnIDDoesNotResolve(t *testing.T) {
	// arrange
	resolve := func(id EntityID) (EntityID, bool) {
		if id == "known" {
			return "new-known", true
		}
		return "", false
	}
	value := []any{"known", "unknown"}

	// act
	rewritten, unresolved := rewriteReferenceValue(value, resolve)

	// assert
	assert.Equal(t, []any{"new-known", "unknown"}, rewritten, "unresolved ids keep their original value")
	assert.Equal(t, []EntityID{"unknown"}, unresolved)
}

func Test_RewriteReferenceValue_When_ObjectRewriteDoesNotMutateInput(t *testing.T) {
	// arrange
	value := map[string]any{"id": "ref-1"}

	// act
	rewritten, unresolved := rewriteReferenceValue(value, func(EntityID) (EntityID, bool) {
		return "new-ref-1", true
	})

	// assert
	require.Empty(t, unresolved)
	assert.Equal(t, "new-ref-1", rewritten.(map[string]any)["id"])
	assert.Equal(t, "ref-1", value["id"], "input value stays untouched")
}
