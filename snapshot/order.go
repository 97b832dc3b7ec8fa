package snapshot

import (
	"fmt"
	"slices"
)

// DependencyOrder is the canonical creation order of templates: if entities
// of template B reference entities of template A, A precedes B.
//
// The order is fixed and externally defined, not derived from the
// ReferenceGraph at runtime. Validate cross-checks the two so drift between
// them is caught at configuration-load time instead of surfacing later as
// references that never resolve.
type DependencyOrder struct {
	postOrder []TemplateName
}

// BuildDependencyOrder is a factory method for DependencyOrder.
// Returns an error on empty or duplicate template names.
func BuildDependencyOrder(postOrder ...TemplateName) (DependencyOrder, error) {
	seen := make(map[TemplateName]struct{}, len(postOrder))

	for _, templateName := range postOrder {
		if templateName == "" {
			return DependencyOrder{}, ErrEmptyTemplateName
		}
		if _, dup := seen[templateName]; dup {
			return DependencyOrder{}, fmt.Errorf("template %q appears twice in the post order", templateName)
		}
		seen[templateName] = struct{}{}
	}

	return DependencyOrder{postOrder: slices.Clone(postOrder)}, nil
}

// PostOrder returns the full declared creation order.
func (o DependencyOrder) PostOrder() []TemplateName {
	return slices.Clone(o.postOrder)
}

// OrderFor filters the post order down to the templates actually present in
// the report, preserving relative order. Templates present in the report
// but absent from the post order are appended at the end, each reported
// with an UnknownTemplateOrderWarning: such templates have no declared safe
// position.
func (o DependencyOrder) OrderFor(report Report) ([]TemplateName, []Warning) {
	var ordered []TemplateName
	var warnings []Warning

	for _, templateName := range o.postOrder {
		if _, present := report.Entities[templateName]; present {
			ordered = append(ordered, templateName)
		}
	}

	for _, templateName := range report.Templates() {
		if !slices.Contains(o.postOrder, templateName) {
			ordered = append(ordered, templateName)
			warnings = append(warnings, UnknownTemplateOrderWarning{TemplateName: templateName})
		}
	}

	return ordered, warnings
}

// Validate cross-checks the post order against a reference graph: every
// reference target declared by the graph must precede its dependent in the
// post order, and every template the graph declares must have a position.
// Self-references are allowed, they resolve through the pending-patch pass.
func (o DependencyOrder) Validate(graph ReferenceGraph) error {
	position := make(map[TemplateName]int, len(o.postOrder))
	for i, templateName := range o.postOrder {
		position[templateName] = i
	}

	for _, templateName := range graph.Templates() {
		dependentPos, known := position[templateName]
		if !known {
			return fmt.Errorf("template %q is declared in the reference graph but has no post order position", templateName)
		}

		for _, field := range graph.ReferenceFieldsOf(templateName) {
			if field.TargetTemplate == templateName {
				continue
			}

			targetPos, targetKnown := position[field.TargetTemplate]
			if !targetKnown {
				return fmt.Errorf(
					"reference target %q of template %q has no post order position",
					field.TargetTemplate, templateName)
			}
			if targetPos > dependentPos {
				return fmt.Errorf(
					"post order is inconsistent with the reference graph: %q references %q but is posted first",
					templateName, field.TargetTemplate)
			}
		}
	}

	return nil
}
