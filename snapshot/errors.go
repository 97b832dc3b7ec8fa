package snapshot

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyTemplateName is returned when an entity or configuration entry carries no template name.
	ErrEmptyTemplateName = errors.New("template name must not be empty")

	// ErrEmptyReportName is returned when a report is built or requested without a name.
	ErrEmptyReportName = errors.New("report name must not be empty")

	// ErrInvalidReportJSON is returned when a report document is malformed or invalid.
	ErrInvalidReportJSON = errors.New("report json is not valid")

	// ErrNilEntityStore is returned when a component is constructed without an entity store.
	ErrNilEntityStore = errors.New("nil entity store supplied")

	// ErrNilReportStore is returned when the engine is constructed without a report store.
	ErrNilReportStore = errors.New("nil report store supplied")

	// ErrUpstreamFetchFailed is returned when an export-time read from the entity store fails.
	// Export is all-or-nothing: no partial report is ever returned.
	ErrUpstreamFetchFailed = errors.New("fetching entities from the entity store failed")

	// ErrUpstreamPostFailed is returned when an import-time write to the entity store fails.
	ErrUpstreamPostFailed = errors.New("posting entity to the entity store failed")

	// ErrUpstreamPatchFailed is returned when resolving a pending reference patch fails.
	ErrUpstreamPatchFailed = errors.New("patching entity reference in the entity store failed")

	// ErrDuplicateLookupEntry is returned when a (template, source id) pair is recorded twice.
	// Re-posting a logical entity within one import is a defect, not an idempotent no-op.
	ErrDuplicateLookupEntry = errors.New("lookup table entry already exists for this source entity")

	// ErrReportNotFound is returned by report stores when no report carries the requested name.
	ErrReportNotFound = errors.New("no report with this name")

	// ErrReportExists is returned by report stores on an attempt to save under a taken name.
	ErrReportExists = errors.New("report with this name already exists")

	// ErrAmbiguousReportName is returned when more than one stored report carries the requested name.
	ErrAmbiguousReportName = errors.New("more than one report with this name")

	// ErrImportCancelled is returned when an import is cancelled between entity posts.
	ErrImportCancelled = errors.New("import cancelled between entity posts")
)

// UpstreamError carries the HTTP-level detail of a failed entity store call.
// Entity store implementations return it for every non-2xx response.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream request failed with status %d: %s", e.StatusCode, e.Body)
}

// PartialImportError reports an import that stopped before posting every
// entity of the report. It carries the LookupTable accumulated up to the
// failure so the caller can resume or clean up; entities already posted are
// never rolled back.
type PartialImportError struct {
	Lookup *LookupTable
	Causes []error
}

func (e *PartialImportError) Error() string {
	msgs := make([]string, len(e.Causes))
	for i, cause := range e.Causes {
		msgs[i] = cause.Error()
	}

	return fmt.Sprintf("import completed partially, %d entities posted: %s", e.Lookup.Len(), strings.Join(msgs, "; "))
}

// Unwrap exposes the underlying causes to errors.Is and errors.As.
func (e *PartialImportError) Unwrap() []error {
	return e.Causes
}
