package lending

import (
	"errors"
)

var (
	// ErrNilDatabaseConnection is returned when an engine is constructed without a database connection.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTableName is returned when an empty table name is supplied via an option.
	ErrEmptyTableName = errors.New("empty table name supplied")

	// ErrBeginTxFailed is returned when opening a database transaction fails.
	ErrBeginTxFailed = errors.New("beginning database transaction failed")

	// ErrCommitFailed is returned when committing a database transaction fails.
	ErrCommitFailed = errors.New("committing database transaction failed")

	// ErrBuildingQueryFailed is returned when building a SQL query fails.
	ErrBuildingQueryFailed = errors.New("building sql query failed")

	// ErrQueryFailed is returned when executing a read query fails.
	ErrQueryFailed = errors.New("database query execution failed")

	// ErrExecFailed is returned when executing a write statement fails.
	ErrExecFailed = errors.New("database statement execution failed")

	// ErrScanningDBRowFailed is returned when scanning a database row fails.
	ErrScanningDBRowFailed = errors.New("scanning database row failed")

	// ErrGettingRowsAffectedFailed is returned when the affected row count cannot be read.
	ErrGettingRowsAffectedFailed = errors.New("getting rows affected count failed")
)
