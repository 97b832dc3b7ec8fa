// Package adapters wraps the supported database access libraries behind a
// single minimal interface so the report store itself stays free of any
// driver-specific code.
package adapters
