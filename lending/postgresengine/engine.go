package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/library-lending-core-go/lending"
	"github.com/AntonStoeckl/library-lending-core-go/lending/cachestore"
	"github.com/AntonStoeckl/library-lending-core-go/lending/postgresengine/internal/adapters"
)

const (
	defaultBooksTableName      = "books"
	defaultUsersTableName      = "users"
	defaultBorrowingsTableName = "borrowings"

	dialectPostgres = "postgres"

	colBookID          = "book_id"
	colTitle           = "title"
	colAuthor          = "author"
	colISBN            = "isbn"
	colPublisher       = "publisher"
	colPublicationYear = "publication_year"
	colGenre           = "genre"
	colTotalCopies     = "total_copies"
	colAvailableCopies = "available_copies"
	colDescription     = "description"
	colUserID          = "user_id"
	colFirstName       = "first_name"
	colLastName        = "last_name"
	colEmail           = "email"
	colIsActive        = "is_active"
	colRole            = "role"
	colPasswordHash    = "password_hash"
	colMembershipDate  = "membership_date"
	colBorrowingID     = "borrowing_id"
	colBorrowDate      = "borrow_date"
	colDueDate         = "due_date"
	colReturnDate      = "return_date"
	colIsReturned      = "is_returned"
	colLateFee         = "late_fee"
	colNotes           = "notes"
	colCreatedAt       = "created_at"
	colUpdatedAt       = "updated_at"

	logMsgBuildQueryFailed    = "failed to build sql query"
	logMsgDBQueryFailed       = "database query execution failed"
	logMsgDBExecFailed        = "database statement execution failed"
	logMsgCloseRowsFailed     = "failed to close database rows"
	logMsgScanRowFailed       = "failed to scan database row"
	logMsgRowsAffectedFailed  = "failed to get rows affected count"
	logMsgBeginTxFailed       = "failed to begin database transaction"
	logMsgCommitFailed        = "failed to commit database transaction"
	logMsgRollbackFailed      = "failed to roll back database transaction"
	logMsgSQLExecuted         = "executed sql for: "
	logMsgOperation           = "lending operation: "
	logMsgBookBorrowed        = "book borrowed"
	logMsgBookReturned        = "book returned"
	logMsgBorrowDenied        = "borrow denied"
	logMsgReturnDenied        = "return denied"
	logMsgBorrowingExtended   = "borrowing extended"
	logMsgBorrowingDeleted    = "borrowing deleted"
	logMsgCopiesConflict      = "conditional copies update affected no rows"
	logMsgCacheDecodeFailed   = "failed to decode cached value, evicting entry"
	logMsgCacheEncodeFailed   = "failed to encode value for caching"
	logMsgInvalidationFailure = "cache invalidation failed"

	logAttrError       = "error"
	logAttrQuery       = "query"
	logAttrDurationMS  = "duration_ms"
	logAttrUserID      = "user_id"
	logAttrBookID      = "book_id"
	logAttrBorrowingID = "borrowing_id"
	logAttrDenialCode  = "denial_code"
	logAttrLateFee     = "late_fee"
	logAttrCacheKey    = "cache_key"

	metricOperationDuration = "lending_operation_duration"
	metricBorrowTotal       = "lending_borrow_total"
	metricReturnTotal       = "lending_return_total"
	metricCacheLookupTotal  = "lending_cache_lookup_total"
	metricCacheEntries      = "lending_cache_entries"

	labelOperation = "operation"
	labelOutcome   = "outcome"
	labelCode      = "code"
	labelResult    = "result"

	outcomeSuccess = "success"
	outcomeDenied  = "denied"
	outcomeError   = "error"
)

type (
	sqlQueryString    = string
	rowsAffectedInt64 = int64
)

// TableNames holds the table names the engine reads and writes.
type TableNames struct {
	Books      string
	Users      string
	Borrowings string
}

// LendingEngine is the borrowing transaction engine. It is a value type;
// all configuration happens at construction time and the engine is safe
// for concurrent use by multiple goroutines.
type LendingEngine struct {
	db               adapters.DBAdapter
	tables           TableNames
	policy           lending.Policy
	cacheStore       *cachestore.Store
	logger           lending.Logger
	contextualLogger lending.ContextualLogger
	metrics          lending.MetricsCollector
	clock            func() time.Time
}

func newLendingEngine(db adapters.DBAdapter, options ...Option) (LendingEngine, error) {
	engine := LendingEngine{
		db: db,
		tables: TableNames{
			Books:      defaultBooksTableName,
			Users:      defaultUsersTableName,
			Borrowings: defaultBorrowingsTableName,
		},
		policy: lending.DefaultPolicy(),
		clock:  time.Now,
	}

	for _, option := range options {
		if err := option(&engine); err != nil {
			return LendingEngine{}, err
		}
	}

	return engine, nil
}

// NewLendingEngineFromPGXPool creates a new LendingEngine using a pgx pool with optional configuration.
func NewLendingEngineFromPGXPool(pool *pgxpool.Pool, options ...Option) (LendingEngine, error) {
	if pool == nil {
		return LendingEngine{}, lending.ErrNilDatabaseConnection
	}

	return newLendingEngine(adapters.NewPGXAdapter(pool), options...)
}

// NewLendingEngineFromSQLDB creates a new LendingEngine using a sql.DB with optional configuration.
func NewLendingEngineFromSQLDB(db *sql.DB, options ...Option) (LendingEngine, error) {
	if db == nil {
		return LendingEngine{}, lending.ErrNilDatabaseConnection
	}

	return newLendingEngine(adapters.NewSQLAdapter(db), options...)
}

// NewLendingEngineFromSQLX creates a new LendingEngine using a sqlx.DB with optional configuration.
func NewLendingEngineFromSQLX(db *sqlx.DB, options ...Option) (LendingEngine, error) {
	if db == nil {
		return LendingEngine{}, lending.ErrNilDatabaseConnection
	}

	return newLendingEngine(adapters.NewSQLXAdapter(db), options...)
}

// Policy returns the lending policy the engine was configured with.
func (e LendingEngine) Policy() lending.Policy {
	return e.policy
}

func (e LendingEngine) now() time.Time {
	return e.clock()
}

func (e LendingEngine) builder() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

// runQuery executes a read query with timing and debug logging.
func (e LendingEngine) runQuery(ctx context.Context, q adapters.Querier, sqlQuery sqlQueryString) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := q.Query(ctx, sqlQuery)
	e.logDebug(ctx, logMsgSQLExecuted+"query", logAttrDurationMS, durationToMilliseconds(time.Since(start)), logAttrQuery, sqlQuery)

	if queryErr != nil {
		e.logError(ctx, logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		return nil, errors.Join(lending.ErrQueryFailed, queryErr)
	}

	return rows, nil
}

// execStatement executes a write statement with timing and debug logging
// and returns the number of affected rows.
func (e LendingEngine) execStatement(ctx context.Context, q adapters.Querier, sqlQuery sqlQueryString) (rowsAffectedInt64, error) {
	start := time.Now()
	result, execErr := q.Exec(ctx, sqlQuery)
	e.logDebug(ctx, logMsgSQLExecuted+"exec", logAttrDurationMS, durationToMilliseconds(time.Since(start)), logAttrQuery, sqlQuery)

	if execErr != nil {
		e.logError(ctx, logMsgDBExecFailed, logAttrError, execErr.Error(), logAttrQuery, sqlQuery)
		return 0, errors.Join(lending.ErrExecFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		e.logError(ctx, logMsgRowsAffectedFailed, logAttrError, rowsAffectedErr.Error())
		return 0, errors.Join(lending.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

// closeRows safely closes database rows and logs any errors.
func (e LendingEngine) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		e.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

// rollbackIfOpen rolls back a transaction whose commit never happened.
// Rolling back after a successful commit is a no-op at the driver level,
// so this is safe to defer unconditionally.
func (e LendingEngine) rollbackIfOpen(ctx context.Context, tx adapters.DBTx, committed *bool) {
	if *committed {
		return
	}

	if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
		e.logWarn(ctx, logMsgRollbackFailed, logAttrError, rollbackErr.Error())
	}
}

func (e LendingEngine) logDebug(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.DebugContext(ctx, msg, args...)
		return
	}
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e LendingEngine) logInfo(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, msg, args...)
		return
	}
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

func (e LendingEngine) logWarn(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.WarnContext(ctx, msg, args...)
		return
	}
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

func (e LendingEngine) logError(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, msg, args...)
		return
	}
	if e.logger != nil {
		e.logger.Error(msg, args...)
	}
}

func (e LendingEngine) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if e.metrics == nil {
		return
	}

	if contextual, ok := e.metrics.(lending.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	e.metrics.IncrementCounter(metric, labels)
}

func (e LendingEngine) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if e.metrics == nil {
		return
	}

	if contextual, ok := e.metrics.(lending.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	e.metrics.RecordDuration(metric, duration, labels)
}

func (e LendingEngine) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if e.metrics == nil {
		return
	}

	if contextual, ok := e.metrics.(lending.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metric, value, labels)
		return
	}

	e.metrics.RecordValue(metric, value, labels)
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
