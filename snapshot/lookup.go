package snapshot

// LookupKey identifies a source-organization entity within one import.
type LookupKey struct {
	TemplateName TemplateName
	SourceID     EntityID
}

// LookupTable maps source-organization entity ids to the ids assigned by
// the destination organization. It is built incrementally while an import
// posts entities in dependency order and is owned exclusively by that one
// import invocation.
//
// The table is append-only: recording the same (template, source id) pair
// twice is a defect and returns ErrDuplicateLookupEntry.
type LookupTable struct {
	entries map[LookupKey]EntityID
	keys    []LookupKey
}

// NewLookupTable creates an empty LookupTable.
func NewLookupTable() *LookupTable {
	return &LookupTable{
		entries: make(map[LookupKey]EntityID),
	}
}

// Record adds a source-to-destination id mapping.
func (t *LookupTable) Record(templateName TemplateName, sourceID EntityID, destinationID EntityID) error {
	key := LookupKey{TemplateName: templateName, SourceID: sourceID}

	if _, exists := t.entries[key]; exists {
		return ErrDuplicateLookupEntry
	}

	t.entries[key] = destinationID
	t.keys = append(t.keys, key)

	return nil
}

// Resolve returns the destination id recorded for a source entity.
func (t *LookupTable) Resolve(templateName TemplateName, sourceID EntityID) (EntityID, bool) {
	destinationID, ok := t.entries[LookupKey{TemplateName: templateName, SourceID: sourceID}]

	return destinationID, ok
}

// Len returns the number of recorded mappings.
func (t *LookupTable) Len() int {
	return len(t.entries)
}

// Keys returns the recorded source keys in insertion order, which is the
// order entities were posted.
func (t *LookupTable) Keys() []LookupKey {
	out := make([]LookupKey, len(t.keys))
	copy(out, t.keys)

	return out
}

// Entries returns a copy of the full mapping.
func (t *LookupTable) Entries() map[LookupKey]EntityID {
	out := make(map[LookupKey]EntityID, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}

	return out
}
