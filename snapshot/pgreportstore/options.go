package pgreportstore

import "github.com/biotmed/biot-sdk-go/snapshot"

// Option defines a functional option for configuring ReportStore.
type Option func(*ReportStore) error

// WithTableName sets the table the reports are stored in.
func WithTableName(tableName string) Option {
	return func(s *ReportStore) error {
		if tableName == "" {
			return ErrEmptyReportTableName
		}

		s.tableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the ReportStore.
//
// Debug level: confirmations of successful saves
// Error level: query building and execution failures.
func WithLogger(logger snapshot.Logger) Option {
	return func(s *ReportStore) error {
		s.logger = logger
		return nil
	}
}
