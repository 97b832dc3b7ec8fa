// Package pgreportstore provides a Postgres-backed snapshot.ReportStore
// for teams that archive configuration snapshots in their operational
// database instead of a file or object store.
//
// The store works against a single table holding one row per report:
//
//	CREATE TABLE configuration_reports (
//	    id         UUID PRIMARY KEY,
//	    name       TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    document   JSONB NOT NULL
//	);
//	CREATE INDEX idx_configuration_reports_name ON configuration_reports (name);
//
// Three database access libraries are supported through a thin adapter
// layer: pgx pools, sqlx, and database/sql. Pick the factory matching the
// connection type your application already manages:
//
//	store, err := pgreportstore.NewReportStoreFromPGXPool(pool)
//	store, err := pgreportstore.NewReportStoreFromSQLX(db)
//	store, err := pgreportstore.NewReportStoreFromSQLDB(db)
package pgreportstore
