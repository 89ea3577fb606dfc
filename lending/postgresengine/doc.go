// Package postgresengine implements the borrowing transaction engine on PostgreSQL.
//
// The engine orchestrates the borrow and return state transitions as single
// database transactions: eligibility is re-verified inside the transaction,
// the borrowing row and the book's available-copies counter are written
// together, and the copies counter is only ever changed through a conditional
// update so the database itself enforces 0 <= available_copies. A conditional
// update that affects zero rows is surfaced as a typed denial ("no longer
// available", "already returned"), never as a generic failure.
//
// Reads are cache-aside against an optional cachestore.Store: the cache is
// checked first, populated on miss, and only ever evicted on writes - strictly
// after the transaction commits. Invalidation is best-effort; a failure there
// is logged and swallowed because the database transaction is already durable.
//
// The engine works with pgxpool.Pool, sql.DB, or sqlx.DB through the internal
// adapters package, mirroring the multi-driver construction pattern:
//
//	engine, err := postgresengine.NewLendingEngineFromPGXPool(pool,
//		postgresengine.WithPolicy(policy),
//		postgresengine.WithCacheStore(store),
//		postgresengine.WithLogger(logger),
//	)
package postgresengine
