package postgresengine

import (
	"time"

	"github.com/AntonStoeckl/library-lending-core-go/lending"
	"github.com/AntonStoeckl/library-lending-core-go/lending/cachestore"
)

// Option defines a functional option for configuring a LendingEngine.
type Option func(*LendingEngine) error

// WithTableNames sets the table names for the LendingEngine.
func WithTableNames(tables TableNames) Option {
	return func(e *LendingEngine) error {
		if tables.Books == "" || tables.Users == "" || tables.Borrowings == "" {
			return lending.ErrEmptyTableName
		}

		e.tables = tables

		return nil
	}
}

// WithPolicy sets the lending policy for the LendingEngine.
// The policy is validated once here and treated as immutable afterwards.
func WithPolicy(policy lending.Policy) Option {
	return func(e *LendingEngine) error {
		if err := policy.Validate(); err != nil {
			return err
		}

		e.policy = policy

		return nil
	}
}

// WithCacheStore sets the cache store for cache-aside reads and write-time
// eviction. Without a store every read goes straight to the database.
func WithCacheStore(store *cachestore.Store) Option {
	return func(e *LendingEngine) error {
		e.cacheStore = store
		return nil
	}
}

// WithLogger sets the logger for the LendingEngine.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: operation outcomes, denials, durations (production-safe)
// Warn level: non-critical issues like cache invalidation failures
// Error level: critical failures that cause operation failures.
func WithLogger(logger lending.Logger) Option {
	return func(e *LendingEngine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the LendingEngine.
// The contextual logger receives log messages with context information,
// including automatic trace/span correlation when tracing is enabled.
// When both loggers are configured the contextual one wins.
func WithContextualLogger(logger lending.ContextualLogger) Option {
	return func(e *LendingEngine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the LendingEngine.
// The collector receives operation durations, borrow/return outcome counters,
// and cache hit/miss counters.
func WithMetrics(collector lending.MetricsCollector) Option {
	return func(e *LendingEngine) error {
		e.metrics = collector
		return nil
	}
}

// WithClock sets the time source, used by tests to control borrow dates,
// due dates and late-fee reference times.
func WithClock(clock func() time.Time) Option {
	return func(e *LendingEngine) error {
		e.clock = clock
		return nil
	}
}
