package snapshot

import (
	"fmt"
	"slices"
)

// ReferenceField declares that a field on a template holds reference values
// pointing at entities of TargetTemplate.
//
// CopyClosure marks the target as a mandatory companion: when a subset of
// entities is copied, the entities this field points at must be carried
// along to preserve referential integrity.
type ReferenceField struct {
	Name           string
	TargetTemplate TemplateName
	CopyClosure    bool
}

// TemplateSpec is the per-template configuration consumed by the filter and
// the importer.
//
// NonPortableFields lists fields whose values are bound to the owning
// organization (device bindings, org-scoped unique codes, generated
// artifacts). They are stripped before an entity is posted elsewhere.
type TemplateSpec struct {
	ReferenceFields   []ReferenceField
	NonPortableFields []string
}

// ReferenceGraph describes, per template, which fields are references to
// other entities and which of those references are mandatory companions on
// copy. It is immutable configuration: built once at startup and passed by
// reference into the filter and the importer, never mutated at runtime.
type ReferenceGraph struct {
	templates map[TemplateName]TemplateSpec
}

// BuildReferenceGraph is a factory method for ReferenceGraph.
// It deep-copies the supplied specs so later mutation of the input cannot
// leak into the graph. Returns an error if a template name or a reference
// field declaration is incomplete.
func BuildReferenceGraph(specs map[TemplateName]TemplateSpec) (ReferenceGraph, error) {
	templates := make(map[TemplateName]TemplateSpec, len(specs))

	for templateName, spec := range specs {
		if templateName == "" {
			return ReferenceGraph{}, ErrEmptyTemplateName
		}

		for _, field := range spec.ReferenceFields {
			if field.Name == "" || field.TargetTemplate == "" {
				return ReferenceGraph{}, fmt.Errorf(
					"reference field on template %q must declare a name and a target template", templateName)
			}
		}

		templates[templateName] = TemplateSpec{
			ReferenceFields:   slices.Clone(spec.ReferenceFields),
			NonPortableFields: slices.Clone(spec.NonPortableFields),
		}
	}

	return ReferenceGraph{templates: templates}, nil
}

// ReferenceFieldsOf returns the declared reference fields of a template.
func (g ReferenceGraph) ReferenceFieldsOf(templateName TemplateName) []ReferenceField {
	return slices.Clone(g.templates[templateName].ReferenceFields)
}

// CopyClosureOf returns the templates that must accompany an entity of the
// given template when copying a subset of entities.
func (g ReferenceGraph) CopyClosureOf(templateName TemplateName) []TemplateName {
	var companions []TemplateName

	for _, field := range g.templates[templateName].ReferenceFields {
		if field.CopyClosure && !slices.Contains(companions, field.TargetTemplate) {
			companions = append(companions, field.TargetTemplate)
		}
	}

	return companions
}

// NonPortableFieldsOf returns the fields stripped from entities of the
// given template before posting them to another organization.
func (g ReferenceGraph) NonPortableFieldsOf(templateName TemplateName) []string {
	return slices.Clone(g.templates[templateName].NonPortableFields)
}

// Templates returns the sorted template names the graph declares.
func (g ReferenceGraph) Templates() []TemplateName {
	names := make([]TemplateName, 0, len(g.templates))
	for name := range g.templates {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}
