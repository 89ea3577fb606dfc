package postgresengine_test

import (
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending-core-go/lending/cachestore"
	"github.com/AntonStoeckl/library-lending-core-go/lending/postgresengine"
	. "github.com/AntonStoeckl/library-lending-core-go/testutil/postgresengine/helper"
)

func Test_GetBook_ServesTheSecondReadFromTheCache(t *testing.T) {
	// setup
	ctx := testContext(t)
	store := cachestore.NewStore()
	defer store.Close()
	wrapper := setupWrapper(t, postgresengine.WithCacheStore(store))
	engine := wrapper.GetEngine()

	// arrange
	book := GivenBook(t, wrapper, 3, 3)
	first, err := engine.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.NotNil(t, first)

	// act: change the row behind the cache's back
	wrapper.Exec(t, "UPDATE books SET title = 'changed behind the cache' WHERE book_id = $1", book.ID)
	second, err := engine.GetBook(ctx, book.ID)

	// assert: the cached copy is served, the sneaky update is invisible
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, book.Title, second.Title)
}

func Test_BorrowBook_EvictsStaleBookReads(t *testing.T) {
	// setup
	ctx := testContext(t)
	store := cachestore.NewStore()
	defer store.Close()
	wrapper := setupWrapper(t, postgresengine.WithCacheStore(store))
	engine := wrapper.GetEngine()

	// arrange: warm the cache with the pre-borrow availability
	user := GivenActiveUser(t, wrapper)
	book := GivenBook(t, wrapper, 2, 2)
	cached, err := engine.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 2, cached.AvailableCopies)

	// act
	_, err = engine.BorrowBook(ctx, user.ID, book.ID, 0, "")
	require.NoError(t, err)

	// assert: the next read reflects the committed decrement
	fresh, err := engine.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.AvailableCopies)
}

func Test_ReturnBook_EvictsStaleBorrowingReads(t *testing.T) {
	// setup
	ctx := testContext(t)
	fakeClock := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	store := cachestore.NewStore()
	defer store.Close()
	wrapper := setupWrapper(t,
		postgresengine.WithCacheStore(store),
		postgresengine.WithClock(func() time.Time { return fakeClock }),
	)
	engine := wrapper.GetEngine()

	// arrange: warm the cache with the active borrowing
	user := GivenActiveUser(t, wrapper)
	book := GivenBook(t, wrapper, 1, 0)
	borrowing := GivenActiveBorrowing(t, wrapper, user.ID, book.ID, fakeClock.AddDate(0, 0, -7), fakeClock.AddDate(0, 0, 7))

	cached, err := engine.GetBorrowing(ctx, borrowing.ID)
	require.NoError(t, err)
	require.False(t, cached.IsReturned)

	// act
	_, err = engine.ReturnBook(ctx, borrowing.ID, "")
	require.NoError(t, err)

	// assert
	fresh, err := engine.GetBorrowing(ctx, borrowing.ID)
	require.NoError(t, err)
	assert.True(t, fresh.IsReturned)
}

func Test_ReturnBook_EvictsTheStatisticsRollup(t *testing.T) {
	// setup
	ctx := testContext(t)
	fakeClock := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	store := cachestore.NewStore()
	defer store.Close()
	wrapper := setupWrapper(t,
		postgresengine.WithCacheStore(store),
		postgresengine.WithClock(func() time.Time { return fakeClock }),
	)
	engine := wrapper.GetEngine()

	// arrange: warm the statistics cache while the borrowing is still active
	user := GivenActiveUser(t, wrapper)
	book := GivenBook(t, wrapper, 1, 0)
	borrowing := GivenActiveBorrowing(t, wrapper, user.ID, book.ID, fakeClock.AddDate(0, 0, -7), fakeClock.AddDate(0, 0, 7))

	before, err := engine.GetBorrowingStatistics(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, before.ActiveBorrowings)

	// act
	_, err = engine.ReturnBook(ctx, borrowing.ID, "")
	require.NoError(t, err)

	// assert: the rollup was rebuilt, not served stale
	after, err := engine.GetBorrowingStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, after.ActiveBorrowings)
	assert.Equal(t, 1, after.ReturnedBorrowings)
}

func Test_BorrowBook_EvictsCachedSearchResults(t *testing.T) {
	// setup
	ctx := testContext(t)
	store := cachestore.NewStore()
	defer store.Close()
	wrapper := setupWrapper(t, postgresengine.WithCacheStore(store))
	engine := wrapper.GetEngine()

	// arrange: warm the search cache with the pre-borrow availability
	user := GivenActiveUser(t, wrapper)
	book := GivenBook(t, wrapper, 1, 1)

	cached, err := engine.SearchBooks(ctx, book.ISBN)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	require.Equal(t, 1, cached[0].AvailableCopies)

	// act
	_, err = engine.BorrowBook(ctx, user.ID, book.ID, 0, "")
	require.NoError(t, err)

	// assert: the search tag was swept, the next search sees the decrement
	fresh, err := engine.SearchBooks(ctx, book.ISBN)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, 0, fresh[0].AvailableCopies)
}

func Test_Invalidation_RecordsTheCacheEntriesGauge(t *testing.T) {
	// setup
	ctx := testContext(t)
	store := cachestore.NewStore()
	defer store.Close()
	metricsSpy := NewMetricsCollectorSpy(true)
	wrapper := setupWrapper(t,
		postgresengine.WithCacheStore(store),
		postgresengine.WithMetrics(metricsSpy),
	)
	engine := wrapper.GetEngine()

	// arrange
	user := GivenActiveUser(t, wrapper)
	book := GivenBook(t, wrapper, 1, 1)

	// act
	_, err := engine.BorrowBook(ctx, user.ID, book.ID, 0, "")

	// assert: every post-commit eviction reports the remaining entry count
	require.NoError(t, err)
	assert.True(t, metricsSpy.HasValueRecordForMetric("lending_cache_entries").Assert())
	assert.GreaterOrEqual(t, metricsSpy.GetValueRecordCount(), 1)
}

func Test_BorrowBook_EmitsLogsAndMetrics(t *testing.T) {
	// setup
	ctx := testContext(t)
	logSpy := NewLogHandlerSpy(false)
	metricsSpy := NewMetricsCollectorSpy(true)
	wrapper := setupWrapper(t,
		postgresengine.WithLogger(slog.New(logSpy)),
		postgresengine.WithMetrics(metricsSpy),
	)
	engine := wrapper.GetEngine()

	// arrange
	user := GivenActiveUser(t, wrapper)
	book := GivenBook(t, wrapper, 1, 1)

	// act
	_, err := engine.BorrowBook(ctx, user.ID, book.ID, 0, "")

	// assert
	require.NoError(t, err)

	assert.True(t, logSpy.
		HasInfoLogWithMessage("book borrowed").
		WithAttr("user_id", strconv.FormatInt(user.ID, 10)).
		WithAttr("book_id", strconv.FormatInt(book.ID, 10)).
		Assert())

	assert.True(t, metricsSpy.
		HasDurationRecordForMetric("lending_operation_duration").
		WithLabel("operation", "borrow_book").
		Assert())
	assert.True(t, metricsSpy.
		HasCounterRecordForMetric("lending_borrow_total").
		WithLabel("outcome", "success").
		Assert())
}

func Test_BorrowBook_When_Denied_EmitsDenialObservability(t *testing.T) {
	// setup
	ctx := testContext(t)
	logSpy := NewLogHandlerSpy(false)
	metricsSpy := NewMetricsCollectorSpy(true)
	wrapper := setupWrapper(t,
		postgresengine.WithLogger(slog.New(logSpy)),
		postgresengine.WithMetrics(metricsSpy),
	)
	engine := wrapper.GetEngine()

	// arrange
	user := GivenInactiveUser(t, wrapper)
	book := GivenBook(t, wrapper, 1, 1)

	// act
	_, err := engine.BorrowBook(ctx, user.ID, book.ID, 0, "")

	// assert
	require.Error(t, err)

	assert.True(t, logSpy.
		HasInfoLogWithMessage("borrow denied").
		WithAttr("denial_code", "USER_INACTIVE").
		Assert())

	assert.Equal(t, 1,
		metricsSpy.CountCounterRecordsForMetricWithLabel("lending_borrow_total", "outcome", "denied"))
}

func Test_Queries_EmitDebugLogsWithDuration(t *testing.T) {
	// setup
	ctx := testContext(t)
	logSpy := NewLogHandlerSpy(false)
	wrapper := setupWrapper(t, postgresengine.WithLogger(slog.New(logSpy)))
	engine := wrapper.GetEngine()

	// arrange
	book := GivenBook(t, wrapper, 1, 1)

	// act
	_, err := engine.GetBook(ctx, book.ID)

	// assert
	require.NoError(t, err)
	assert.True(t, logSpy.
		HasDebugLogWithMessage("executed sql for: query").
		WithDurationMS().
		Assert())
}
