package snapshot

import "fmt"

// Warning is a non-fatal finding surfaced to the caller. The engine never
// swallows one: every warning is collected into the operation result and
// mirrored to the configured Logger at warn level.
type Warning interface {
	Warning() string
}

// UnresolvedReferenceWarning reports a reference field value that could not
// be rewritten to a destination-organization id. The field keeps the
// original source-organization id; the engine does not fabricate or null
// out references.
type UnresolvedReferenceWarning struct {
	TemplateName TemplateName
	EntityID     EntityID
	Field        string
	ReferenceID  EntityID
}

func (w UnresolvedReferenceWarning) Warning() string {
	return fmt.Sprintf(
		"reference %q on %s entity %q could not be resolved, field keeps source id %q",
		w.Field, w.TemplateName, w.EntityID, w.ReferenceID,
	)
}

// UnknownTemplateOrderWarning reports a template present in a report but
// absent from the declared post order. Its entities are posted after all
// ordered templates; there is no declared safe position for them.
type UnknownTemplateOrderWarning struct {
	TemplateName TemplateName
}

func (w UnknownTemplateOrderWarning) Warning() string {
	return fmt.Sprintf("template %q has no declared post order, its entities are posted last", w.TemplateName)
}

// DevicesDroppedWarning reports device records excluded from a copy or
// cross-org transfer. Device identity is bound to its organization, so copy
// semantics for devices are undefined and the records are dropped rather
// than silently carried.
type DevicesDroppedWarning struct {
	Count int
}

func (w DevicesDroppedWarning) Warning() string {
	return fmt.Sprintf("%d device records dropped, device copy across organizations is not supported", w.Count)
}
