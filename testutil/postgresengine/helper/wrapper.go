package helper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-lending-core-go/lending/postgresengine"
	"github.com/AntonStoeckl/library-lending-core-go/testutil/postgresengine/config"
)

// Engine type constants
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

// Wrapper abstracts over the different database adapter types, so every
// integration test can run against pgxpool, sql.DB and sqlx.DB unchanged.
type Wrapper interface {
	GetEngine() postgresengine.LendingEngine
	Exec(t testing.TB, query string, args ...any)
	QueryRowScan(t testing.TB, query string, dest any, args ...any)
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	pool   *pgxpool.Pool
	engine postgresengine.LendingEngine
}

func (w *PGXPoolWrapper) GetEngine() postgresengine.LendingEngine {
	return w.engine
}

func (w *PGXPoolWrapper) Exec(t testing.TB, query string, args ...any) {
	_, err := w.pool.Exec(context.Background(), query, args...)
	assert.NoError(t, err, "error in arranging test data")
}

func (w *PGXPoolWrapper) QueryRowScan(t testing.TB, query string, dest any, args ...any) {
	err := w.pool.QueryRow(context.Background(), query, args...).Scan(dest)
	assert.NoError(t, err, "error in arranging test data")
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing
type SQLDBWrapper struct {
	db     *sql.DB
	engine postgresengine.LendingEngine
}

func (w *SQLDBWrapper) GetEngine() postgresengine.LendingEngine {
	return w.engine
}

func (w *SQLDBWrapper) Exec(t testing.TB, query string, args ...any) {
	_, err := w.db.Exec(query, args...)
	assert.NoError(t, err, "error in arranging test data")
}

func (w *SQLDBWrapper) QueryRowScan(t testing.TB, query string, dest any, args ...any) {
	err := w.db.QueryRow(query, args...).Scan(dest)
	assert.NoError(t, err, "error in arranging test data")
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing
type SQLXWrapper struct {
	db     *sqlx.DB
	engine postgresengine.LendingEngine
}

func (w *SQLXWrapper) GetEngine() postgresengine.LendingEngine {
	return w.engine
}

func (w *SQLXWrapper) Exec(t testing.TB, query string, args ...any) {
	_, err := w.db.Exec(query, args...)
	assert.NoError(t, err, "error in arranging test data")
}

func (w *SQLXWrapper) QueryRowScan(t testing.TB, query string, dest any, args ...any) {
	err := w.db.QueryRow(query, args...).Scan(dest)
	assert.NoError(t, err, "error in arranging test data")
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// CreateWrapperWithTestConfig creates the appropriate wrapper based on the
// ADAPTER_TYPE environment variable, defaulting to pgxpool.
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	engineTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch engineTypeFromEnv {
	case typePGXPool, "":
		connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
		assert.NoError(t, err, "error connecting to DB pool in test setup")

		engine, err := postgresengine.NewLendingEngineFromPGXPool(connPool, options...)
		assert.NoError(t, err, "error creating lending engine")

		return &PGXPoolWrapper{pool: connPool, engine: engine}

	case typeSQLDB:
		db := config.PostgresSQLDBTestConfig()

		engine, err := postgresengine.NewLendingEngineFromSQLDB(db, options...)
		assert.NoError(t, err, "error creating lending engine")

		return &SQLDBWrapper{db: db, engine: engine}

	case typeSQLXDB:
		db := config.PostgresSQLXTestConfig()

		engine, err := postgresengine.NewLendingEngineFromSQLX(db, options...)
		assert.NoError(t, err, "error creating lending engine")

		return &SQLXWrapper{db: db, engine: engine}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", engineTypeFromEnv))
	}
}

// TryCreateEngineWithTableNames tries to create an engine with the given table
// names and returns the error, for testing configuration error cases.
func TryCreateEngineWithTableNames(t testing.TB, tables postgresengine.TableNames) error {
	connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
	assert.NoError(t, err, "error connecting to DB pool in test setup")
	defer connPool.Close()

	_, err = postgresengine.NewLendingEngineFromPGXPool(connPool, postgresengine.WithTableNames(tables))

	return err
}
