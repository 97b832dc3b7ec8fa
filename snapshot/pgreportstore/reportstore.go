package pgreportstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/biotmed/biot-sdk-go/snapshot"
	"github.com/biotmed/biot-sdk-go/snapshot/pgreportstore/internal/adapters"
)

const (
	defaultReportTableName = "configuration_reports"

	dialectPostgres = "postgres"

	colID        = "id"
	colName      = "name"
	colCreatedAt = "created_at"
	colDocument  = "document"

	castJsonb = "?::jsonb"

	logMsgBuildQueryFailed = "failed to build report store query"
	logMsgDBQueryFailed    = "report store query execution failed"
	logMsgDBExecFailed     = "report store execution failed during save"
	logMsgScanRowFailed    = "failed to scan report row"
	logMsgReportSaved      = "report saved"
	logAttrError           = "error"
	logAttrReportName      = "report_name"
)

var (
	// ErrNilDatabaseConnection is returned when a factory receives a nil connection.
	ErrNilDatabaseConnection = errors.New("nil database connection supplied")

	// ErrEmptyReportTableName is returned when WithTableName receives an empty name.
	ErrEmptyReportTableName = errors.New("report table name must not be empty")
)

// ReportStore is a Postgres-backed snapshot.ReportStore. It persists the
// portable report document as a JSONB column, one row per report.
type ReportStore struct {
	db        adapters.DBAdapter
	tableName string
	logger    snapshot.Logger
}

// NewReportStoreFromPGXPool creates a ReportStore using a pgx pool.
func NewReportStoreFromPGXPool(pool *pgxpool.Pool, options ...Option) (ReportStore, error) {
	if pool == nil {
		return ReportStore{}, ErrNilDatabaseConnection
	}

	return newReportStore(adapters.NewPGXAdapter(pool), options...)
}

// NewReportStoreFromSQLDB creates a ReportStore using a sql.DB.
func NewReportStoreFromSQLDB(db *sql.DB, options ...Option) (ReportStore, error) {
	if db == nil {
		return ReportStore{}, ErrNilDatabaseConnection
	}

	return newReportStore(adapters.NewSQLAdapter(db), options...)
}

// NewReportStoreFromSQLX creates a ReportStore using a sqlx.DB.
func NewReportStoreFromSQLX(db *sqlx.DB, options ...Option) (ReportStore, error) {
	if db == nil {
		return ReportStore{}, ErrNilDatabaseConnection
	}

	return newReportStore(adapters.NewSQLXAdapter(db), options...)
}

func newReportStore(db adapters.DBAdapter, options ...Option) (ReportStore, error) {
	store := ReportStore{
		db:        db,
		tableName: defaultReportTableName,
	}

	for _, option := range options {
		if err := option(&store); err != nil {
			return ReportStore{}, err
		}
	}

	return store, nil
}

// SaveReport inserts the report document under a fresh id. Uniqueness of
// the name is enforced in the statement itself: the insert only happens
// when no row with this name exists, and zero affected rows surfaces as
// snapshot.ErrReportExists.
func (s ReportStore) SaveReport(ctx context.Context, report snapshot.Report) (string, error) {
	document, err := report.MarshalDocument()
	if err != nil {
		return "", err
	}

	reportID := uuid.NewString()

	nameTaken := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(goqu.V(1)).
		Where(goqu.Ex{colName: report.Name})

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(s.tableName).
		Cols(colID, colName, colCreatedAt, colDocument).
		FromQuery(goqu.Dialect(dialectPostgres).
			Select(
				goqu.V(reportID),
				goqu.V(report.Name),
				goqu.V(report.CreatedAt.UTC()),
				goqu.L(castJsonb, string(document)),
			).
			Where(goqu.L("NOT EXISTS ?", nameTaken)))

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return "", toSQLErr
	}

	result, execErr := s.db.Exec(ctx, sqlQuery)
	if execErr != nil {
		s.logError(logMsgDBExecFailed, logAttrError, execErr.Error())
		return "", execErr
	}

	rowsAffected, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return "", rowsErr
	}
	if rowsAffected == 0 {
		return "", snapshot.ErrReportExists
	}

	s.logDebug(logMsgReportSaved, logAttrReportName, report.Name)

	return reportID, nil
}

// GetReportByName retrieves a stored report by name.
func (s ReportStore) GetReportByName(ctx context.Context, name string) (snapshot.Report, error) {
	if name == "" {
		return snapshot.Report{}, snapshot.ErrEmptyReportName
	}

	selectStmt := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(colDocument).
		Where(goqu.Ex{colName: name}).
		Order(goqu.I(colCreatedAt).Asc())

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return snapshot.Report{}, toSQLErr
	}

	rows, queryErr := s.db.Query(ctx, sqlQuery)
	if queryErr != nil {
		s.logError(logMsgDBQueryFailed, logAttrError, queryErr.Error())
		return snapshot.Report{}, queryErr
	}
	defer func() { _ = rows.Close() }()

	var documents [][]byte
	for rows.Next() {
		var document []byte
		if scanErr := rows.Scan(&document); scanErr != nil {
			s.logError(logMsgScanRowFailed, logAttrError, scanErr.Error())
			return snapshot.Report{}, scanErr
		}
		documents = append(documents, document)
	}

	switch len(documents) {
	case 0:
		return snapshot.Report{}, snapshot.ErrReportNotFound
	case 1:
		return snapshot.UnmarshalReport(documents[0])
	default:
		return snapshot.Report{}, snapshot.ErrAmbiguousReportName
	}
}

func (s ReportStore) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s ReportStore) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}

var _ snapshot.ReportStore = ReportStore{}
