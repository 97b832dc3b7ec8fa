package snapshot

type TemplateName = string
type EntityID = string
type OrgID = string

// Entities is an alias type for a slice of Entity.
type Entities = []Entity

// Entity is a schema-flexible record typed by a template name.
//
// It is a DTO built on scalars and plain maps so the engine stays agnostic
// of the per-template schemas defined on the platform. Data holds the
// template-specific fields; values may be scalars, nested mappings, or
// reference values (see below).
//
// The ID is assigned by the entity store on creation. It is unique within
// one organization only and must never be assumed portable across
// organizations; carrying entities to another organization is exactly what
// the import engine's LookupTable exists for.
type Entity struct {
	ID           EntityID       `json:"id"`
	TemplateName TemplateName   `json:"templateName"`
	Name         string         `json:"name,omitempty"`
	OwnerOrg     OrgID          `json:"ownerOrganization,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

// BuildEntity is a factory method for Entity.
// Returns an error if the template name is empty.
func BuildEntity(id EntityID, templateName TemplateName, data map[string]any) (Entity, error) {
	if templateName == "" {
		return Entity{}, ErrEmptyTemplateName
	}

	return Entity{
		ID:           id,
		TemplateName: templateName,
		Data:         data,
	}, nil
}

// Clone returns a deep copy of the entity.
// Import and filter operations work on clones so a Report is never mutated.
func (e Entity) Clone() Entity {
	clone := e
	clone.Data = cloneValueMap(e.Data)

	return clone
}

func cloneValueMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}

	return out
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return cloneValueMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// A reference value is a field value denoting a pointer to another entity.
// The platform emits them either as a bare id string, as an object carrying
// an "id" key, or as a sequence of either form. Rewriting preserves the
// original shape.

const referenceIDKey = "id"

// referenceIDs extracts every entity id held by a reference value.
// Returns nil when the value carries no id at all.
func referenceIDs(v any) []EntityID {
	switch tv := v.(type) {
	case string:
		if tv == "" {
			return nil
		}
		return []EntityID{tv}

	case map[string]any:
		if id, ok := tv[referenceIDKey].(string); ok && id != "" {
			return []EntityID{id}
		}
		return nil

	case []any:
		var ids []EntityID
		for _, item := range tv {
			ids = append(ids, referenceIDs(item)...)
		}
		return ids

	default:
		return nil
	}
}

// rewriteReferenceValue replaces every resolvable id inside a reference
// value using the supplied resolver, preserving the value's shape.
// Ids the resolver cannot map are left as they are and returned so the
// caller can record a pending-patch obligation or emit a warning.
func rewriteReferenceValue(v any, resolve func(EntityID) (EntityID, bool)) (rewritten any, unresolved []EntityID) {
	switch tv := v.(type) {
	case string:
		if tv == "" {
			return tv, nil
		}
		if dst, ok := resolve(tv); ok {
			return dst, nil
		}
		return tv, []EntityID{tv}

	case map[string]any:
		id, ok := tv[referenceIDKey].(string)
		if !ok || id == "" {
			return tv, nil
		}
		dst, resolved := resolve(id)
		if !resolved {
			return tv, []EntityID{id}
		}
		out := cloneValueMap(tv)
		out[referenceIDKey] = dst
		return out, nil

	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			var itemUnresolved []EntityID
			out[i], itemUnresolved = rewriteReferenceValue(item, resolve)
			unresolved = append(unresolved, itemUnresolved...)
		}
		return out, unresolved

	default:
		return v, nil
	}
}
