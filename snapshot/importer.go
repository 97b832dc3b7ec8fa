package snapshot

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Importer posts a Report's entities into a target organization in
// dependency order, building a LookupTable as it goes and rewriting
// references so the imported graph is self-consistent under the new ids.
//
// Forward references (a reference to an entity of a later template, or one
// missing from the report) are handled by a two-pass algorithm: the entity
// is posted with the field untouched and a pending-patch obligation is
// recorded; after every template is posted, the obligations are resolved
// with a PATCH per entity. An obligation that still cannot resolve leaves
// the field pointing at the original source-organization id and surfaces as
// an UnresolvedReferenceWarning.
type Importer struct {
	store       EntityStore
	graph       ReferenceGraph
	order       DependencyOrder
	concurrency int
	obs         instrumentation
}

// NewImporter creates an Importer with optional configuration.
// The canonical reference graph and post order are used unless overridden.
func NewImporter(store EntityStore, options ...Option) (Importer, error) {
	if store == nil {
		return Importer{}, ErrNilEntityStore
	}

	cfg := defaultConfig()
	for _, option := range options {
		if err := option(&cfg); err != nil {
			return Importer{}, err
		}
	}

	return Importer{
		store:       store,
		graph:       cfg.graph,
		order:       cfg.order,
		concurrency: cfg.concurrency,
		obs:         instrumentationFromConfig(cfg),
	}, nil
}

// ImportResult carries the outcome of an import: the source-to-destination
// id mapping and every non-fatal finding collected along the way.
type ImportResult struct {
	Lookup   *LookupTable
	Warnings []Warning
}

// pendingPatch is one recorded obligation of the second pass: a posted
// entity whose reference field still holds source-organization ids.
type pendingPatch struct {
	templateName   TemplateName
	sourceID       EntityID
	newID          EntityID
	field          string
	targetTemplate TemplateName
	value          any
}

// resolverFunc maps a source-organization entity id to its destination id.
type resolverFunc func(targetTemplate TemplateName, id EntityID) (EntityID, bool)

// Import posts the report into the target organization.
//
// Device records are posted first, then each template group in dependency
// order. A failed post aborts everything not yet posted; entities already
// created are never rolled back, and the error is a *PartialImportError
// carrying the LookupTable accumulated so far. The import may be cancelled
// through the context between entity posts, with the same partial-result
// contract.
func (im Importer) Import(ctx context.Context, report Report, targetOrg OrgID) (ImportResult, error) {
	lookup := NewLookupTable()
	result := ImportResult{Lookup: lookup}

	spanCtx, span := im.obs.startSpan(ctx, spanImport, map[string]string{
		"report": report.Name, "target_org": targetOrg,
	})
	ctx = spanCtx
	start := time.Now()

	postOrder, orderWarnings := im.order.OrderFor(report)
	result.Warnings = append(result.Warnings, orderWarnings...)
	im.obs.warnAll(ctx, orderWarnings)

	if postErr := im.postDevices(ctx, report.Devices, targetOrg, lookup); postErr != nil {
		im.obs.finishSpan(span, outcomePartial, nil)
		return result, &PartialImportError{Lookup: lookup, Causes: []error{postErr}}
	}

	var pending []pendingPatch
	for _, templateName := range postOrder {
		batchPending, batchErr := im.postTemplateBatch(ctx, templateName, report.Entities[templateName], targetOrg, lookup)
		pending = append(pending, batchPending...)

		if batchErr != nil {
			im.obs.error(ctx, "import aborted, posting a template batch failed",
				"template", templateName, "error", batchErr.Error())
			im.obs.recordDuration(MetricImportDuration, time.Since(start), map[string]string{labelOutcome: outcomePartial})
			im.obs.finishSpan(span, outcomePartial, map[string]string{labelTemplate: templateName})

			return result, &PartialImportError{Lookup: lookup, Causes: []error{batchErr}}
		}
	}

	patchWarnings, patchErrs := im.resolvePending(ctx, pending, lookup)
	result.Warnings = append(result.Warnings, patchWarnings...)
	im.obs.warnAll(ctx, patchWarnings)

	if len(patchErrs) > 0 {
		im.obs.recordDuration(MetricImportDuration, time.Since(start), map[string]string{labelOutcome: outcomePartial})
		im.obs.finishSpan(span, outcomePartial, nil)

		return result, &PartialImportError{Lookup: lookup, Causes: patchErrs}
	}

	im.obs.recordDuration(MetricImportDuration, time.Since(start), map[string]string{labelOutcome: outcomeOK})
	im.obs.info(ctx, "snapshot imported",
		"report", report.Name,
		"target_org", targetOrg,
		"entities_posted", lookup.Len(),
		"pending_patches", len(pending),
		"warnings", len(result.Warnings))
	im.obs.finishSpan(span, outcomeOK, map[string]string{
		"entities_posted": strconv.Itoa(lookup.Len()),
	})

	return result, nil
}

// Transfer carries a report exported from one organization into another:
// entities are re-owned from source to destination, optionally narrowed to
// the copy closure of the requested root assets, then imported.
func (im Importer) Transfer(
	ctx context.Context,
	srcOrg OrgID,
	dstOrg OrgID,
	report Report,
	rootIDs map[TemplateName][]EntityID,
) (ImportResult, error) {

	reowned, reownWarnings := ReassignOwnership(report, srcOrg, dstOrg)
	im.obs.warnAll(ctx, reownWarnings)

	priorWarnings := reownWarnings

	if len(rootIDs) > 0 {
		filter, filterErr := NewFilter(im.graph)
		if filterErr != nil {
			return ImportResult{Lookup: NewLookupTable(), Warnings: priorWarnings}, filterErr
		}

		var filterWarnings []Warning
		reowned, filterWarnings = filter.FilterForCopy(reowned, rootIDs)
		priorWarnings = append(priorWarnings, filterWarnings...)
	}

	result, importErr := im.Import(ctx, reowned, dstOrg)
	result.Warnings = append(priorWarnings, result.Warnings...)

	return result, importErr
}

func (im Importer) postDevices(ctx context.Context, devices Entities, targetOrg OrgID, lookup *LookupTable) error {
	for _, device := range devices {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(ErrImportCancelled, ctxErr)
		}

		prepared := device.Clone()
		prepared.OwnerOrg = targetOrg

		newID, postErr := im.store.CreateDevice(ctx, targetOrg, prepared)
		if postErr != nil {
			return errors.Join(ErrUpstreamPostFailed, postErr)
		}

		if recordErr := lookup.Record(DeviceGroupKey, device.ID, newID); recordErr != nil {
			return recordErr
		}
	}

	return nil
}

func (im Importer) postTemplateBatch(
	ctx context.Context,
	templateName TemplateName,
	group Entities,
	targetOrg OrgID,
	lookup *LookupTable,
) ([]pendingPatch, error) {

	if im.concurrency > 1 {
		return im.postTemplateBatchConcurrent(ctx, templateName, group, targetOrg, lookup)
	}

	refFields := im.graph.ReferenceFieldsOf(templateName)
	nonPortable := im.graph.NonPortableFieldsOf(templateName)
	var pending []pendingPatch

	for _, source := range group {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return pending, errors.Join(ErrImportCancelled, ctxErr)
		}

		prepared, entityPending := im.prepareEntity(source, targetOrg, refFields, nonPortable, lookup.Resolve)

		newID, postErr := im.store.CreateEntity(ctx, targetOrg, prepared)
		if postErr != nil {
			return pending, errors.Join(ErrUpstreamPostFailed, postErr)
		}

		if recordErr := lookup.Record(templateName, source.ID, newID); recordErr != nil {
			return pending, recordErr
		}

		for i := range entityPending {
			entityPending[i].newID = newID
		}
		pending = append(pending, entityPending...)

		im.obs.debug(ctx, "entity posted",
			"template", templateName, "source_id", source.ID, "new_id", newID)
	}

	im.obs.incrementCounter(MetricEntitiesPosted, map[string]string{labelTemplate: templateName})

	return pending, nil
}

// postTemplateBatchConcurrent posts one template's entities in parallel,
// bounded by the configured limit. Entities of one template share a
// dependency level, so references between batch members cannot be resolved
// mid-batch; the resolver works from a snapshot of the lookup taken before
// the batch starts and self-references fall through to the pending-patch
// pass.
func (im Importer) postTemplateBatchConcurrent(
	ctx context.Context,
	templateName TemplateName,
	group Entities,
	targetOrg OrgID,
	lookup *LookupTable,
) ([]pendingPatch, error) {

	refFields := im.graph.ReferenceFieldsOf(templateName)
	nonPortable := im.graph.NonPortableFieldsOf(templateName)

	frozen := lookup.Entries()
	resolveFrozen := func(targetTemplate TemplateName, id EntityID) (EntityID, bool) {
		dst, ok := frozen[LookupKey{TemplateName: targetTemplate, SourceID: id}]
		return dst, ok
	}

	var mu sync.Mutex
	var pending []pendingPatch

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)

	for _, source := range group {
		g.Go(func() error {
			if ctxErr := gctx.Err(); ctxErr != nil {
				return errors.Join(ErrImportCancelled, ctxErr)
			}

			prepared, entityPending := im.prepareEntity(source, targetOrg, refFields, nonPortable, resolveFrozen)

			newID, postErr := im.store.CreateEntity(gctx, targetOrg, prepared)
			if postErr != nil {
				return errors.Join(ErrUpstreamPostFailed, postErr)
			}

			mu.Lock()
			defer mu.Unlock()

			if recordErr := lookup.Record(templateName, source.ID, newID); recordErr != nil {
				return recordErr
			}
			for i := range entityPending {
				entityPending[i].newID = newID
			}
			pending = append(pending, entityPending...)

			return nil
		})
	}

	if waitErr := g.Wait(); waitErr != nil {
		return pending, waitErr
	}

	im.obs.incrementCounter(MetricEntitiesPosted, map[string]string{labelTemplate: templateName})

	return pending, nil
}

// prepareEntity clones a source entity for posting: ownership moves to the
// target organization, non-portable fields are stripped, and every
// reference field whose targets are all resolvable is rewritten in place.
// A field with any unresolvable id keeps its original value and becomes a
// pending-patch obligation.
func (im Importer) prepareEntity(
	source Entity,
	targetOrg OrgID,
	refFields []ReferenceField,
	nonPortable []string,
	resolve resolverFunc,
) (Entity, []pendingPatch) {

	entity := source.Clone()
	entity.ID = "" // assigned by the store on creation
	entity.OwnerOrg = targetOrg

	for _, fieldName := range nonPortable {
		delete(entity.Data, fieldName)
	}

	var pending []pendingPatch

	for _, field := range refFields {
		value, present := entity.Data[field.Name]
		if !present || value == nil {
			continue
		}

		rewritten, unresolved := rewriteReferenceValue(value, func(id EntityID) (EntityID, bool) {
			return resolve(field.TargetTemplate, id)
		})

		if len(unresolved) > 0 {
			pending = append(pending, pendingPatch{
				templateName:   source.TemplateName,
				sourceID:       source.ID,
				field:          field.Name,
				targetTemplate: field.TargetTemplate,
				value:          cloneValue(value),
			})
			continue
		}

		entity.Data[field.Name] = rewritten
	}

	return entity, pending
}

// resolvePending is the second pass: every recorded obligation is rewritten
// against the now-complete LookupTable and patched upstream. Obligations
// whose ids still do not resolve stay on the original source id and surface
// as warnings; a failed patch is collected and the pass continues, write
// failures are recoverable at entity granularity.
func (im Importer) resolvePending(ctx context.Context, pending []pendingPatch, lookup *LookupTable) ([]Warning, []error) {
	var warnings []Warning
	var errs []error

	im.obs.recordValue(MetricPendingPatches, float64(len(pending)), nil)

	for _, patch := range pending {
		if ctxErr := ctx.Err(); ctxErr != nil {
			errs = append(errs, errors.Join(ErrImportCancelled, ctxErr))
			return warnings, errs
		}

		rewritten, unresolved := rewriteReferenceValue(patch.value, func(id EntityID) (EntityID, bool) {
			return lookup.Resolve(patch.targetTemplate, id)
		})

		for _, refID := range unresolved {
			warnings = append(warnings, UnresolvedReferenceWarning{
				TemplateName: patch.templateName,
				EntityID:     patch.sourceID,
				Field:        patch.field,
				ReferenceID:  refID,
			})
		}

		if len(unresolved) == len(referenceIDs(patch.value)) {
			continue // nothing resolved, leave the posted field untouched
		}

		patchErr := im.store.UpdateEntity(ctx, patch.templateName, patch.newID, map[string]any{patch.field: rewritten})
		if patchErr != nil {
			errs = append(errs, errors.Join(ErrUpstreamPatchFailed, patchErr))
			continue
		}

		im.obs.debug(ctx, "pending reference patched",
			"template", patch.templateName, "entity_id", patch.newID, "field", patch.field)
	}

	return warnings, errs
}
