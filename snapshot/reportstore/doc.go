// Package reportstore provides snapshot.ReportStore implementations over
// different storage media: an in-memory store for tests and ephemeral use,
// a filesystem store, and an S3-backed store.
//
// All stores persist the portable report document produced by
// Report.MarshalDocument and share the same contract: saving under a taken
// name fails with snapshot.ErrReportExists, and retrieval of an unknown
// name fails with snapshot.ErrReportNotFound.
package reportstore
