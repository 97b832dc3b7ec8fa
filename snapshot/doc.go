// Package snapshot implements the Bio-T configuration snapshot transfer
// engine: exporting a consistent snapshot of interrelated generic entities
// into a Report, re-importing it (possibly into a different organization),
// and rewriting cross-entity references so the imported graph is
// self-consistent under the identifiers assigned by the target organization.
//
// The package is built on scalars and plain maps to stay agnostic of the
// per-template schemas defined on the Bio-T platform. Template-specific
// behavior (which fields are references, which fields are not portable
// across organizations) lives in an immutable ReferenceGraph constructed at
// startup, not in per-template types.
//
// Key types:
//   - Entity: a tagged value type, typed by template name
//   - Report: a named snapshot, the unit of transfer
//   - ReferenceGraph / DependencyOrder: static configuration
//   - LookupTable: the source-id to destination-id map built during import
//
// Common usage pattern:
//
//	engine, err := snapshot.NewEngine(entities, reports,
//		snapshot.WithLogger(logger),
//	)
//	if err != nil {
//		// handle error
//	}
//
//	reportID, err := engine.ExportFullConfigurationSnapshot(ctx, "golden-config")
//	if err != nil {
//		// handle error
//	}
//
//	result, err := engine.TransferOrgConfiguration(ctx, srcOrg, dstOrg, "golden-config", nil)
//	for _, w := range result.Warnings {
//		// inspect unresolved references
//	}
//
// All network calls go through the EntityStore collaborator; the engine
// itself is a sequential pipeline and holds no long-lived locks.
package snapshot
