package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/library-lending-core-go/lending"
	"github.com/AntonStoeckl/library-lending-core-go/lending/cachestore"
)

const thisMonthDays = 30

// GetBorrowingStatistics returns the dashboard rollup over all borrowings.
//
// The whole rollup is computed in a single aggregate query with conditional
// sums, cached under the statistics tag and rebuilt lazily after the next
// mutation evicts it. "This month" is a rolling 30-day window, not a
// calendar month.
func (e LendingEngine) GetBorrowingStatistics(ctx context.Context) (lending.BorrowingStatistics, error) {
	start := time.Now()
	defer func() {
		e.recordDuration(ctx, metricOperationDuration, time.Since(start), map[string]string{labelOperation: operationStatistics})
	}()

	var cached lending.BorrowingStatistics
	if e.cacheGet(ctx, keyStatisticsBorrowings, &cached) {
		return cached, nil
	}

	now := e.now()
	monthAgo := now.AddDate(0, 0, -thisMonthDays)

	stmt := e.builder().
		From(e.tables.Borrowings).
		Select(
			goqu.COUNT(goqu.Star()).As("total_borrowings"),
			goqu.L("COALESCE(SUM(CASE WHEN ? = FALSE THEN 1 ELSE 0 END), 0)", goqu.C(colIsReturned)).As("active_borrowings"),
			goqu.L("COALESCE(SUM(CASE WHEN ? = FALSE AND ? < ? THEN 1 ELSE 0 END), 0)", goqu.C(colIsReturned), goqu.C(colDueDate), now).As("overdue_borrowings"),
			goqu.L("COALESCE(SUM(CASE WHEN ? = TRUE THEN 1 ELSE 0 END), 0)", goqu.C(colIsReturned)).As("returned_borrowings"),
			goqu.L("COALESCE(SUM(?), 0)", goqu.C(colLateFee)).As("total_late_fees"),
			goqu.L("COALESCE(AVG(CASE WHEN ? = TRUE THEN EXTRACT(EPOCH FROM (? - ?)) / 86400.0 END), 0)",
				goqu.C(colIsReturned), goqu.C(colReturnDate), goqu.C(colBorrowDate)).As("average_borrowing_period"),
			goqu.L("COALESCE(SUM(CASE WHEN ? >= ? THEN 1 ELSE 0 END), 0)", goqu.C(colBorrowDate), monthAgo).As("borrowings_this_month"),
			goqu.L("COALESCE(SUM(CASE WHEN ? IS NOT NULL AND ? >= ? THEN 1 ELSE 0 END), 0)",
				goqu.C(colReturnDate), goqu.C(colReturnDate), monthAgo).As("returns_this_month"),
		)

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return lending.BorrowingStatistics{}, errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := e.runQuery(ctx, e.db, sqlQuery)
	if queryErr != nil {
		return lending.BorrowingStatistics{}, queryErr
	}
	defer e.closeRows(ctx, rows)

	var statistics lending.BorrowingStatistics

	if !rows.Next() {
		return statistics, nil
	}

	scanErr := rows.Scan(
		&statistics.TotalBorrowings, &statistics.ActiveBorrowings, &statistics.OverdueBorrowings,
		&statistics.ReturnedBorrowings, &statistics.TotalLateFees, &statistics.AverageBorrowingPeriod,
		&statistics.BorrowingsThisMonth, &statistics.ReturnsThisMonth,
	)
	if scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
		return lending.BorrowingStatistics{}, errors.Join(lending.ErrScanningDBRowFailed, scanErr)
	}

	statistics.TotalLateFees = lending.RoundToCents(statistics.TotalLateFees)

	e.cacheSet(ctx, keyStatisticsBorrowings, statistics, cachestore.StatisticsOptions())

	return statistics, nil
}

// GetMostBorrowedBooks returns the top limit books ranked by how often they
// have ever been borrowed, with the count of copies currently out.
func (e LendingEngine) GetMostBorrowedBooks(ctx context.Context, limit uint) ([]lending.MostBorrowedBook, error) {
	start := time.Now()
	defer func() {
		e.recordDuration(ctx, metricOperationDuration, time.Since(start), map[string]string{labelOperation: operationStatistics})
	}()

	key := fmt.Sprintf("%s:%d", keyStatisticsMostBorrowed, limit)

	var cached []lending.MostBorrowedBook
	if e.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	booksCol := func(name string) exp.IdentifierExpression {
		return goqu.T(e.tables.Books).Col(name)
	}
	borrowingsCol := func(name string) exp.IdentifierExpression {
		return goqu.T(e.tables.Borrowings).Col(name)
	}

	stmt := e.builder().
		From(e.tables.Books).
		InnerJoin(
			goqu.T(e.tables.Borrowings),
			goqu.On(booksCol(colBookID).Eq(borrowingsCol(colBookID))),
		).
		Select(
			booksCol(colBookID),
			booksCol(colTitle),
			booksCol(colAuthor),
			booksCol(colISBN),
			goqu.COUNT(borrowingsCol(colBorrowingID)).As("borrow_count"),
			goqu.L("COALESCE(SUM(CASE WHEN ? = FALSE THEN 1 ELSE 0 END), 0)", borrowingsCol(colIsReturned)).As("active_count"),
		).
		GroupBy(booksCol(colBookID), booksCol(colTitle), booksCol(colAuthor), booksCol(colISBN)).
		Order(goqu.C("borrow_count").Desc(), booksCol(colTitle).Asc()).
		Limit(limit)

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return nil, errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := e.runQuery(ctx, e.db, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer e.closeRows(ctx, rows)

	books := make([]lending.MostBorrowedBook, 0, limit)

	for rows.Next() {
		var book lending.MostBorrowedBook

		scanErr := rows.Scan(
			&book.BookID, &book.Title, &book.Author, &book.ISBN,
			&book.BorrowCount, &book.CurrentActiveBorrowings,
		)
		if scanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
			return nil, errors.Join(lending.ErrScanningDBRowFailed, scanErr)
		}

		books = append(books, book)
	}

	e.cacheSet(ctx, key, books, cachestore.StatisticsOptions())

	return books, nil
}

// GetMostActiveUsers returns the top limit users ranked by how many
// borrowings they have ever made, with their current active and overdue counts.
func (e LendingEngine) GetMostActiveUsers(ctx context.Context, limit uint) ([]lending.MostActiveUser, error) {
	start := time.Now()
	defer func() {
		e.recordDuration(ctx, metricOperationDuration, time.Since(start), map[string]string{labelOperation: operationStatistics})
	}()

	key := fmt.Sprintf("%s:%d", keyStatisticsMostActive, limit)

	var cached []lending.MostActiveUser
	if e.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	usersCol := func(name string) exp.IdentifierExpression {
		return goqu.T(e.tables.Users).Col(name)
	}
	borrowingsCol := func(name string) exp.IdentifierExpression {
		return goqu.T(e.tables.Borrowings).Col(name)
	}

	now := e.now()

	stmt := e.builder().
		From(e.tables.Users).
		InnerJoin(
			goqu.T(e.tables.Borrowings),
			goqu.On(usersCol(colUserID).Eq(borrowingsCol(colUserID))),
		).
		Select(
			usersCol(colUserID),
			goqu.L("? || ' ' || ?", usersCol(colFirstName), usersCol(colLastName)).As("full_name"),
			usersCol(colEmail),
			goqu.COUNT(borrowingsCol(colBorrowingID)).As("borrow_count"),
			goqu.L("COALESCE(SUM(CASE WHEN ? = FALSE THEN 1 ELSE 0 END), 0)", borrowingsCol(colIsReturned)).As("active_count"),
			goqu.L("COALESCE(SUM(CASE WHEN ? = FALSE AND ? < ? THEN 1 ELSE 0 END), 0)",
				borrowingsCol(colIsReturned), borrowingsCol(colDueDate), now).As("overdue_count"),
		).
		GroupBy(usersCol(colUserID), usersCol(colFirstName), usersCol(colLastName), usersCol(colEmail)).
		Order(goqu.C("borrow_count").Desc(), usersCol(colEmail).Asc()).
		Limit(limit)

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return nil, errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := e.runQuery(ctx, e.db, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer e.closeRows(ctx, rows)

	users := make([]lending.MostActiveUser, 0, limit)

	for rows.Next() {
		var user lending.MostActiveUser

		scanErr := rows.Scan(
			&user.UserID, &user.FullName, &user.Email,
			&user.TotalBorrowings, &user.CurrentActiveBorrowings, &user.OverdueBooks,
		)
		if scanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
			return nil, errors.Join(lending.ErrScanningDBRowFailed, scanErr)
		}

		users = append(users, user)
	}

	e.cacheSet(ctx, key, users, cachestore.StatisticsOptions())

	return users, nil
}
