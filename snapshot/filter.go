package snapshot

import "context"

// Filter computes the subset of a report that must accompany a requested
// set of root entities so the copy stays referentially intact.
type Filter struct {
	graph ReferenceGraph
	obs   instrumentation
}

// NewFilter creates a Filter over the given reference graph.
func NewFilter(graph ReferenceGraph, options ...Option) (Filter, error) {
	cfg := defaultConfig()
	cfg.graph = graph
	for _, option := range options {
		if err := option(&cfg); err != nil {
			return Filter{}, err
		}
	}

	return Filter{graph: cfg.graph, obs: instrumentationFromConfig(cfg)}, nil
}

// FilterForCopy computes the closure of entities that must accompany the
// requested roots: starting from the root ids, every entity referenced
// through a copy-closure field of a retained entity is pulled in as well,
// repeated until no new entities are added. The entity set is finite, so
// the expansion reaches a fixed point; applying the filter twice with the
// same roots yields the same report as applying it once.
//
// The result is a new report containing only the retained entities, with
// template grouping and relative order preserved. Referenced entities
// absent from the source report are reported as
// UnresolvedReferenceWarning, not a hard failure: the importer tolerates
// missing optional companions. Device records never survive a copy, which
// is reported through a DevicesDroppedWarning.
func (f Filter) FilterForCopy(report Report, rootIDs map[TemplateName][]EntityID) (Report, []Warning) {
	var warnings []Warning

	index := make(map[LookupKey]Entity, report.EntityCount())
	for templateName, group := range report.Entities {
		for _, entity := range group {
			index[LookupKey{TemplateName: templateName, SourceID: entity.ID}] = entity
		}
	}

	retained := make(map[LookupKey]struct{})
	var worklist []LookupKey

	retain := func(key LookupKey) {
		if _, done := retained[key]; done {
			return
		}
		retained[key] = struct{}{}
		worklist = append(worklist, key)
	}

	for templateName, ids := range rootIDs {
		for _, id := range ids {
			key := LookupKey{TemplateName: templateName, SourceID: id}
			if _, present := index[key]; !present {
				warnings = append(warnings, UnresolvedReferenceWarning{
					TemplateName: templateName,
					EntityID:     id,
					Field:        "",
					ReferenceID:  id,
				})
				continue
			}
			retain(key)
		}
	}

	for len(worklist) > 0 {
		key := worklist[0]
		worklist = worklist[1:]
		entity := index[key]

		for _, field := range f.graph.ReferenceFieldsOf(key.TemplateName) {
			if !field.CopyClosure {
				continue
			}

			for _, refID := range referenceIDs(entity.Data[field.Name]) {
				refKey := LookupKey{TemplateName: field.TargetTemplate, SourceID: refID}
				if _, present := index[refKey]; !present {
					warnings = append(warnings, UnresolvedReferenceWarning{
						TemplateName: key.TemplateName,
						EntityID:     key.SourceID,
						Field:        field.Name,
						ReferenceID:  refID,
					})
					continue
				}
				retain(refKey)
			}
		}
	}

	filtered := Report{
		Name:      report.Name,
		CreatedAt: report.CreatedAt,
		Entities:  make(map[TemplateName]Entities),
	}

	for templateName, group := range report.Entities {
		var kept Entities
		for _, entity := range group {
			if _, keep := retained[LookupKey{TemplateName: templateName, SourceID: entity.ID}]; keep {
				kept = append(kept, entity.Clone())
			}
		}
		if len(kept) > 0 {
			filtered.Entities[templateName] = kept
		}
	}

	if len(report.Devices) > 0 {
		warnings = append(warnings, DevicesDroppedWarning{Count: len(report.Devices)})
	}

	f.obs.warnAll(context.Background(), warnings)

	return filtered, warnings
}
