package postgresengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-lending-core-go/lending"
	"github.com/AntonStoeckl/library-lending-core-go/lending/cachestore"
	"github.com/AntonStoeckl/library-lending-core-go/lending/postgresengine/internal/adapters"
)

// GetBorrowing returns the borrowing with the given id via the cache-aside path,
// or nil when it does not exist.
func (e LendingEngine) GetBorrowing(ctx context.Context, borrowingID int64) (*lending.Borrowing, error) {
	key := keyBorrowingByID(borrowingID)

	var cached lending.Borrowing
	if e.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	borrowing, err := e.fetchBorrowing(ctx, e.db, borrowingID)
	if err != nil || borrowing == nil {
		return nil, err
	}

	e.cacheSet(ctx, key, borrowing, cachestore.BorrowingsOptions())

	return borrowing, nil
}

// GetUserBorrowings returns the complete borrowing history of a user,
// newest first, via the cache-aside path.
func (e LendingEngine) GetUserBorrowings(ctx context.Context, userID int64) ([]lending.Borrowing, error) {
	key := keyBorrowingsByUser(userID)

	var cached []lending.Borrowing
	if e.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	stmt := e.builder().
		From(e.tables.Borrowings).
		Select(borrowingColumns()...).
		Where(goqu.C(colUserID).Eq(userID)).
		Order(goqu.I(colBorrowDate).Desc())

	borrowings, err := e.fetchBorrowings(ctx, e.db, stmt)
	if err != nil {
		return nil, err
	}

	e.cacheSet(ctx, key, borrowings, cachestore.BorrowingsOptions())

	return borrowings, nil
}

// GetActiveUserBorrowings returns the user's unreturned borrowings via the cache-aside path.
func (e LendingEngine) GetActiveUserBorrowings(ctx context.Context, userID int64) ([]lending.Borrowing, error) {
	key := keyActiveBorrowingsByUser(userID)

	var cached []lending.Borrowing
	if e.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	borrowings, err := e.fetchActiveUserBorrowings(ctx, e.db, userID)
	if err != nil {
		return nil, err
	}

	e.cacheSet(ctx, key, borrowings, cachestore.BorrowingsOptions())

	return borrowings, nil
}

// GetOverdueBorrowings returns every active borrowing whose due date has passed,
// most overdue first, via the cache-aside path.
func (e LendingEngine) GetOverdueBorrowings(ctx context.Context) ([]lending.Borrowing, error) {
	var cached []lending.Borrowing
	if e.cacheGet(ctx, keyBorrowingsOverdue, &cached) {
		return cached, nil
	}

	stmt := e.builder().
		From(e.tables.Borrowings).
		Select(borrowingColumns()...).
		Where(
			goqu.C(colIsReturned).IsFalse(),
			goqu.C(colDueDate).Lt(e.now()),
		).
		Order(goqu.I(colDueDate).Asc())

	borrowings, err := e.fetchBorrowings(ctx, e.db, stmt)
	if err != nil {
		return nil, err
	}

	e.cacheSet(ctx, keyBorrowingsOverdue, borrowings, cachestore.BorrowingsOptions())

	return borrowings, nil
}

func borrowingColumns() []any {
	return []any{
		colBorrowingID, colUserID, colBookID, colBorrowDate, colDueDate, colReturnDate,
		colIsReturned, colLateFee, colNotes, colCreatedAt, colUpdatedAt,
	}
}

func (e LendingEngine) fetchBorrowing(ctx context.Context, q adapters.Querier, borrowingID int64) (*lending.Borrowing, error) {
	stmt := e.builder().
		From(e.tables.Borrowings).
		Select(borrowingColumns()...).
		Where(goqu.C(colBorrowingID).Eq(borrowingID))

	borrowings, err := e.fetchBorrowings(ctx, q, stmt)
	if err != nil || len(borrowings) == 0 {
		return nil, err
	}

	return &borrowings[0], nil
}

func (e LendingEngine) fetchActiveUserBorrowings(ctx context.Context, q adapters.Querier, userID int64) ([]lending.Borrowing, error) {
	stmt := e.builder().
		From(e.tables.Borrowings).
		Select(borrowingColumns()...).
		Where(
			goqu.C(colUserID).Eq(userID),
			goqu.C(colIsReturned).IsFalse(),
		).
		Order(goqu.I(colBorrowDate).Asc())

	return e.fetchBorrowings(ctx, q, stmt)
}

func (e LendingEngine) fetchBorrowings(ctx context.Context, q adapters.Querier, stmt *goqu.SelectDataset) ([]lending.Borrowing, error) {
	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return nil, errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := e.runQuery(ctx, q, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer e.closeRows(ctx, rows)

	borrowings := make([]lending.Borrowing, 0)

	for rows.Next() {
		var borrowing lending.Borrowing

		scanErr := rows.Scan(
			&borrowing.ID, &borrowing.UserID, &borrowing.BookID, &borrowing.BorrowDate, &borrowing.DueDate,
			&borrowing.ReturnDate, &borrowing.IsReturned, &borrowing.LateFee, &borrowing.Notes,
			&borrowing.CreatedAt, &borrowing.UpdatedAt,
		)
		if scanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
			return nil, errors.Join(lending.ErrScanningDBRowFailed, scanErr)
		}

		borrowings = append(borrowings, borrowing)
	}

	return borrowings, nil
}

// insertBorrowing writes a new active borrowing row and returns its generated id.
func (e LendingEngine) insertBorrowing(
	ctx context.Context,
	q adapters.Querier,
	userID int64,
	bookID int64,
	borrowDate time.Time,
	dueDate time.Time,
	notes string,
) (int64, error) {
	stmt := e.builder().
		Insert(e.tables.Borrowings).
		Rows(goqu.Record{
			colUserID:     userID,
			colBookID:     bookID,
			colBorrowDate: borrowDate,
			colDueDate:    dueDate,
			colIsReturned: false,
			colLateFee:    0,
			colNotes:      notes,
			colCreatedAt:  borrowDate,
			colUpdatedAt:  borrowDate,
		}).
		Returning(goqu.C(colBorrowingID))

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return 0, errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := e.runQuery(ctx, q, sqlQuery)
	if queryErr != nil {
		return 0, queryErr
	}
	defer e.closeRows(ctx, rows)

	var borrowingID int64

	if !rows.Next() {
		return 0, lending.ErrExecFailed
	}

	if scanErr := rows.Scan(&borrowingID); scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
		return 0, errors.Join(lending.ErrScanningDBRowFailed, scanErr)
	}

	return borrowingID, nil
}
