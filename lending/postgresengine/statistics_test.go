package postgresengine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-lending-core-go/lending/postgresengine"
	. "github.com/AntonStoeckl/library-lending-core-go/testutil/postgresengine/helper"
)

func Test_GetBorrowingStatistics(t *testing.T) {
	// setup
	ctx := testContext(t)
	fakeClock := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	wrapper := setupWrapper(t, postgresengine.WithClock(func() time.Time { return fakeClock }))
	engine := wrapper.GetEngine()

	// arrange: one active, one overdue, one recently returned with a fee,
	// and one returned long before the rolling 30-day window
	user := GivenActiveUser(t, wrapper)
	bookOne := GivenBook(t, wrapper, 1, 0)
	bookTwo := GivenBook(t, wrapper, 1, 0)
	bookThree := GivenBook(t, wrapper, 1, 1)
	bookFour := GivenBook(t, wrapper, 1, 1)

	GivenActiveBorrowing(t, wrapper, user.ID, bookOne.ID, fakeClock.AddDate(0, 0, -5), fakeClock.AddDate(0, 0, 9))
	GivenActiveBorrowing(t, wrapper, user.ID, bookTwo.ID, fakeClock.AddDate(0, 0, -20), fakeClock.AddDate(0, 0, -6))

	recentBorrow := fakeClock.AddDate(0, 0, -18)
	GivenReturnedBorrowing(t, wrapper, user.ID, bookThree.ID,
		recentBorrow, recentBorrow.AddDate(0, 0, 14), recentBorrow.AddDate(0, 0, 16), 2.00)

	oldBorrow := fakeClock.AddDate(0, 0, -90)
	GivenReturnedBorrowing(t, wrapper, user.ID, bookFour.ID,
		oldBorrow, oldBorrow.AddDate(0, 0, 14), oldBorrow.AddDate(0, 0, 10), 0)

	// act
	statistics, err := engine.GetBorrowingStatistics(ctx)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 4, statistics.TotalBorrowings)
	assert.Equal(t, 2, statistics.ActiveBorrowings)
	assert.Equal(t, 1, statistics.OverdueBorrowings)
	assert.Equal(t, 2, statistics.ReturnedBorrowings)
	assert.Equal(t, 2.00, statistics.TotalLateFees)
	assert.InDelta(t, 13.0, statistics.AverageBorrowingPeriod, 0.01, "(16 + 10) / 2 days over the returned borrowings")
	assert.Equal(t, 3, statistics.BorrowingsThisMonth)
	assert.Equal(t, 1, statistics.ReturnsThisMonth)
}

func Test_GetBorrowingStatistics_When_NoBorrowingsExist(t *testing.T) {
	// setup
	ctx := testContext(t)
	wrapper := setupWrapper(t)
	engine := wrapper.GetEngine()

	// act
	statistics, err := engine.GetBorrowingStatistics(ctx)

	// assert: all zero, no NULL scan trouble from the empty aggregates
	require.NoError(t, err)
	assert.Equal(t, 0, statistics.TotalBorrowings)
	assert.Equal(t, 0.0, statistics.TotalLateFees)
	assert.Equal(t, 0.0, statistics.AverageBorrowingPeriod)
}

func Test_GetMostBorrowedBooks(t *testing.T) {
	// setup
	ctx := testContext(t)
	fakeClock := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	wrapper := setupWrapper(t, postgresengine.WithClock(func() time.Time { return fakeClock }))
	engine := wrapper.GetEngine()

	// arrange: popular has three borrowings (one still active), runner-up has one
	userOne := GivenActiveUser(t, wrapper)
	userTwo := GivenActiveUser(t, wrapper)
	popular := GivenBook(t, wrapper, 2, 1)
	runnerUp := GivenBook(t, wrapper, 1, 1)

	past := fakeClock.AddDate(0, 0, -40)
	GivenReturnedBorrowing(t, wrapper, userOne.ID, popular.ID, past, past.AddDate(0, 0, 14), past.AddDate(0, 0, 10), 0)
	GivenReturnedBorrowing(t, wrapper, userTwo.ID, popular.ID, past, past.AddDate(0, 0, 14), past.AddDate(0, 0, 12), 0)
	GivenActiveBorrowing(t, wrapper, userOne.ID, popular.ID, fakeClock.AddDate(0, 0, -3), fakeClock.AddDate(0, 0, 11))
	GivenReturnedBorrowing(t, wrapper, userTwo.ID, runnerUp.ID, past, past.AddDate(0, 0, 14), past.AddDate(0, 0, 7), 0)

	// act
	ranking, err := engine.GetMostBorrowedBooks(ctx, 10)

	// assert
	require.NoError(t, err)
	require.Len(t, ranking, 2)
	assert.Equal(t, popular.ID, ranking[0].BookID)
	assert.Equal(t, popular.Title, ranking[0].Title)
	assert.Equal(t, 3, ranking[0].BorrowCount)
	assert.Equal(t, 1, ranking[0].CurrentActiveBorrowings)
	assert.Equal(t, runnerUp.ID, ranking[1].BookID)
	assert.Equal(t, 1, ranking[1].BorrowCount)
}

func Test_GetMostBorrowedBooks_RespectsTheLimit(t *testing.T) {
	// setup
	ctx := testContext(t)
	fakeClock := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	wrapper := setupWrapper(t, postgresengine.WithClock(func() time.Time { return fakeClock }))
	engine := wrapper.GetEngine()

	// arrange
	user := GivenActiveUser(t, wrapper)
	for i := 0; i < 3; i++ {
		book := GivenBook(t, wrapper, 1, 0)
		GivenActiveBorrowing(t, wrapper, user.ID, book.ID, fakeClock.AddDate(0, 0, -1), fakeClock.AddDate(0, 0, 13))
	}

	// act
	ranking, err := engine.GetMostBorrowedBooks(ctx, 2)

	// assert
	require.NoError(t, err)
	assert.Len(t, ranking, 2)
}

func Test_GetMostActiveUsers(t *testing.T) {
	// setup
	ctx := testContext(t)
	fakeClock := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	wrapper := setupWrapper(t, postgresengine.WithClock(func() time.Time { return fakeClock }))
	engine := wrapper.GetEngine()

	// arrange: the busy user holds one overdue and one returned borrowing
	busy := GivenActiveUser(t, wrapper)
	casual := GivenActiveUser(t, wrapper)
	bookOne := GivenBook(t, wrapper, 1, 0)
	bookTwo := GivenBook(t, wrapper, 1, 1)
	bookThree := GivenBook(t, wrapper, 1, 0)

	GivenActiveBorrowing(t, wrapper, busy.ID, bookOne.ID, fakeClock.AddDate(0, 0, -20), fakeClock.AddDate(0, 0, -6))
	past := fakeClock.AddDate(0, 0, -50)
	GivenReturnedBorrowing(t, wrapper, busy.ID, bookTwo.ID, past, past.AddDate(0, 0, 14), past.AddDate(0, 0, 9), 0)
	GivenActiveBorrowing(t, wrapper, casual.ID, bookThree.ID, fakeClock.AddDate(0, 0, -2), fakeClock.AddDate(0, 0, 12))

	// act
	ranking, err := engine.GetMostActiveUsers(ctx, 10)

	// assert
	require.NoError(t, err)
	require.Len(t, ranking, 2)
	assert.Equal(t, busy.ID, ranking[0].UserID)
	assert.Equal(t, busy.FirstName+" "+busy.LastName, ranking[0].FullName)
	assert.Equal(t, 2, ranking[0].TotalBorrowings)
	assert.Equal(t, 1, ranking[0].CurrentActiveBorrowings)
	assert.Equal(t, 1, ranking[0].OverdueBooks)
	assert.Equal(t, casual.ID, ranking[1].UserID)
	assert.Equal(t, 1, ranking[1].TotalBorrowings)
}
