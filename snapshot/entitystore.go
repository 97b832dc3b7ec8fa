package snapshot

import (
	"context"
	"time"
)

// EntityStore is the collaborator contract the engine consumes: a remote
// service exposing reads and writes for generic entities and devices,
// filterable by template and creation time.
//
// Implementations return *UpstreamError (possibly wrapped) for every
// non-2xx response so the engine can distinguish upstream failures from
// its own. All calls are blocking; timeouts are the implementation's
// concern via the supplied context.
type EntityStore interface {
	// FetchEntities returns all entities of one template created at or
	// after since.
	FetchEntities(ctx context.Context, templateName TemplateName, since time.Time) (Entities, error)

	// FetchDevices returns all device records created at or after since.
	FetchDevices(ctx context.Context, since time.Time) (Entities, error)

	// CreateEntity posts an entity into the given organization and returns
	// the id assigned by the store.
	CreateEntity(ctx context.Context, org OrgID, entity Entity) (EntityID, error)

	// CreateDevice posts a device record into the given organization and
	// returns the id assigned by the store.
	CreateDevice(ctx context.Context, org OrgID, device Entity) (EntityID, error)

	// UpdateEntity patches selected fields of an existing entity.
	UpdateEntity(ctx context.Context, templateName TemplateName, id EntityID, partial map[string]any) error
}

// ReportStore persists portable report documents. The engine saves the
// report produced by an export and retrieves it by name for import or
// transfer; any medium works as long as the document round-trips
// losslessly.
//
// Saving under a taken name returns ErrReportExists. Retrieval returns
// ErrReportNotFound when no document carries the name and
// ErrAmbiguousReportName when more than one does.
type ReportStore interface {
	// SaveReport persists a report and returns its storage id.
	SaveReport(ctx context.Context, report Report) (string, error)

	// GetReportByName retrieves a report by its name.
	GetReportByName(ctx context.Context, name string) (Report, error)
}
