package adapters

import "context"

// Querier defines the query operations shared by a connection and an open transaction.
type Querier interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
}

// DBAdapter defines the interface for database operations needed by the lending engine.
type DBAdapter interface {
	Querier
	BeginTx(ctx context.Context) (DBTx, error)
}

// DBTx defines an open database transaction. Commit and Rollback terminate it;
// rolling back an already-committed transaction must be harmless for the caller.
type DBTx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
