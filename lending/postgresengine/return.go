package postgresengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-lending-core-go/lending"
)

// A borrowing overdue by more than this many days can no longer be extended
// or renewed; it has to be returned and the fee settled.
const maxOverdueDaysForExtension = 7

// ReturnBook atomically closes an active borrowing: it finalizes the late fee,
// marks the record returned and increments the book's available copies.
// Non-empty notes replace the borrowing's notes; empty notes leave the
// borrow-time notes untouched.
//
// The guarded update makes the operation race-safe: two concurrent returns of
// the same borrowing produce one success and one ALREADY_RETURNED denial, and
// the copies counter is incremented exactly once.
func (e LendingEngine) ReturnBook(ctx context.Context, borrowingID int64, notes string) (*lending.Borrowing, error) {
	start := time.Now()

	borrowing, err := e.returnBook(ctx, borrowingID, notes)

	duration := time.Since(start)
	e.recordDuration(ctx, metricOperationDuration, duration, map[string]string{labelOperation: operationReturnBook})

	switch {
	case err == nil:
		e.incrementCounter(ctx, metricReturnTotal, map[string]string{labelOutcome: outcomeSuccess})
		e.logInfo(ctx, logMsgBookReturned,
			logAttrBorrowingID, borrowingID,
			logAttrLateFee, borrowing.LateFee,
			logAttrDurationMS, durationToMilliseconds(duration))
	default:
		if denial, isDenial := lending.AsDenial(err); isDenial {
			e.incrementCounter(ctx, metricReturnTotal, map[string]string{labelOutcome: outcomeDenied, labelCode: denial.Code})
			e.logInfo(ctx, logMsgReturnDenied,
				logAttrBorrowingID, borrowingID,
				logAttrDenialCode, denial.Code)
		} else {
			e.incrementCounter(ctx, metricReturnTotal, map[string]string{labelOutcome: outcomeError})
		}
	}

	return borrowing, err
}

func (e LendingEngine) returnBook(ctx context.Context, borrowingID int64, notes string) (*lending.Borrowing, error) {
	tx, beginErr := e.db.BeginTx(ctx)
	if beginErr != nil {
		e.logError(ctx, logMsgBeginTxFailed, logAttrError, beginErr.Error())
		return nil, errors.Join(lending.ErrBeginTxFailed, beginErr)
	}

	committed := false
	defer e.rollbackIfOpen(ctx, tx, &committed)

	borrowing, fetchErr := e.fetchBorrowing(ctx, tx, borrowingID)
	if fetchErr != nil {
		return nil, fetchErr
	}

	if borrowing == nil {
		return nil, lending.NewBorrowingNotFoundDenial(borrowingID)
	}

	if borrowing.IsReturned {
		return nil, lending.NewAlreadyReturnedDenial(borrowingID)
	}

	now := e.now()
	fee := lending.LateFee(borrowing.DueDate, now, e.policy.GraceDays, e.policy.LateFeePerDay)

	record := goqu.Record{
		colReturnDate: now,
		colIsReturned: true,
		colLateFee:    fee,
		colUpdatedAt:  now,
	}
	if notes != "" {
		record[colNotes] = notes
	}

	stmt := e.builder().
		Update(e.tables.Borrowings).
		Set(record).
		Where(
			goqu.C(colBorrowingID).Eq(borrowingID),
			goqu.C(colIsReturned).IsFalse(),
		)

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return nil, errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, updateErr := e.execStatement(ctx, tx, sqlQuery)
	if updateErr != nil {
		return nil, updateErr
	}

	if rowsAffected == 0 {
		// a concurrent return closed the borrowing after the read above
		return nil, lending.NewAlreadyReturnedDenial(borrowingID)
	}

	incremented, incrementErr := e.adjustAvailableCopies(ctx, tx, borrowing.BookID, 1)
	if incrementErr != nil {
		return nil, incrementErr
	}

	if !incremented {
		e.logWarn(ctx, logMsgCopiesConflict, logAttrBookID, borrowing.BookID)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		e.logError(ctx, logMsgCommitFailed, logAttrError, commitErr.Error())
		return nil, errors.Join(lending.ErrCommitFailed, commitErr)
	}

	committed = true

	e.invalidateBorrowingCache(ctx, borrowingID, borrowing.UserID, borrowing.BookID)
	e.invalidateBookCache(ctx, borrowing.BookID, "")

	borrowing.ReturnDate = &now
	borrowing.IsReturned = true
	borrowing.LateFee = fee
	borrowing.UpdatedAt = now
	if notes != "" {
		borrowing.Notes = notes
	}

	return borrowing, nil
}

// CalculateLateFee returns the fee a borrowing would cost if settled now.
//
// For a returned borrowing the stored fee is final and returned unchanged;
// for an active borrowing the fee is projected against the current time and
// nothing is persisted.
func (e LendingEngine) CalculateLateFee(ctx context.Context, borrowingID int64) (float64, error) {
	start := time.Now()
	defer func() {
		e.recordDuration(ctx, metricOperationDuration, time.Since(start), map[string]string{labelOperation: operationCalculateLateFee})
	}()

	borrowing, err := e.GetBorrowing(ctx, borrowingID)
	if err != nil {
		return 0, err
	}

	if borrowing == nil {
		return 0, lending.NewBorrowingNotFoundDenial(borrowingID)
	}

	if borrowing.IsReturned {
		return borrowing.LateFee, nil
	}

	return lending.LateFee(borrowing.DueDate, e.now(), e.policy.GraceDays, e.policy.LateFeePerDay), nil
}

// ExtendBorrowing pushes an active borrowing's due date out by extraDays
// (policy renewal days when extraDays is zero or less), counted from the
// current due date. A borrowing overdue by more than a week is not extendable.
func (e LendingEngine) ExtendBorrowing(ctx context.Context, borrowingID int64, extraDays int) (*lending.Borrowing, error) {
	start := time.Now()
	defer func() {
		e.recordDuration(ctx, metricOperationDuration, time.Since(start), map[string]string{labelOperation: operationExtendBorrowing})
	}()

	if extraDays <= 0 {
		extraDays = e.policy.RenewalDays
	}

	return e.moveDueDate(ctx, borrowingID, func(borrowing *lending.Borrowing, _ time.Time) time.Time {
		return borrowing.DueDate.AddDate(0, 0, extraDays)
	})
}

// RenewBorrowing restarts an active borrowing's loan period: the new due date
// is the policy renewal window counted from now. The same overdue cap applies
// as for ExtendBorrowing.
func (e LendingEngine) RenewBorrowing(ctx context.Context, borrowingID int64) (*lending.Borrowing, error) {
	start := time.Now()
	defer func() {
		e.recordDuration(ctx, metricOperationDuration, time.Since(start), map[string]string{labelOperation: operationRenewBorrowing})
	}()

	return e.moveDueDate(ctx, borrowingID, func(_ *lending.Borrowing, now time.Time) time.Time {
		return now.AddDate(0, 0, e.policy.RenewalDays)
	})
}

func (e LendingEngine) moveDueDate(
	ctx context.Context,
	borrowingID int64,
	newDueDate func(borrowing *lending.Borrowing, now time.Time) time.Time,
) (*lending.Borrowing, error) {
	tx, beginErr := e.db.BeginTx(ctx)
	if beginErr != nil {
		e.logError(ctx, logMsgBeginTxFailed, logAttrError, beginErr.Error())
		return nil, errors.Join(lending.ErrBeginTxFailed, beginErr)
	}

	committed := false
	defer e.rollbackIfOpen(ctx, tx, &committed)

	borrowing, fetchErr := e.fetchBorrowing(ctx, tx, borrowingID)
	if fetchErr != nil {
		return nil, fetchErr
	}

	if borrowing == nil {
		return nil, lending.NewBorrowingNotFoundDenial(borrowingID)
	}

	if borrowing.IsReturned {
		return nil, lending.NewAlreadyReturnedDenial(borrowingID)
	}

	now := e.now()

	if daysOverdue := wholeDaysOverdue(borrowing.DueDate, now); daysOverdue > maxOverdueDaysForExtension {
		return nil, lending.NewRenewalNotAllowedDenial(borrowingID, daysOverdue)
	}

	dueDate := newDueDate(borrowing, now)

	stmt := e.builder().
		Update(e.tables.Borrowings).
		Set(goqu.Record{
			colDueDate:   dueDate,
			colUpdatedAt: now,
		}).
		Where(
			goqu.C(colBorrowingID).Eq(borrowingID),
			goqu.C(colIsReturned).IsFalse(),
		)

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return nil, errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, updateErr := e.execStatement(ctx, tx, sqlQuery)
	if updateErr != nil {
		return nil, updateErr
	}

	if rowsAffected == 0 {
		return nil, lending.NewAlreadyReturnedDenial(borrowingID)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		e.logError(ctx, logMsgCommitFailed, logAttrError, commitErr.Error())
		return nil, errors.Join(lending.ErrCommitFailed, commitErr)
	}

	committed = true

	e.invalidateBorrowingCache(ctx, borrowingID, borrowing.UserID, borrowing.BookID)

	e.logInfo(ctx, logMsgBorrowingExtended,
		logAttrBorrowingID, borrowingID,
		logAttrUserID, borrowing.UserID,
		logAttrBookID, borrowing.BookID)

	borrowing.DueDate = dueDate
	borrowing.UpdatedAt = now

	return borrowing, nil
}

// DeleteBorrowing removes a returned borrowing record. Active borrowings are
// protected; they have to be returned first so the copies counter stays
// consistent.
func (e LendingEngine) DeleteBorrowing(ctx context.Context, borrowingID int64) error {
	start := time.Now()
	defer func() {
		e.recordDuration(ctx, metricOperationDuration, time.Since(start), map[string]string{labelOperation: operationDeleteBorrowing})
	}()

	tx, beginErr := e.db.BeginTx(ctx)
	if beginErr != nil {
		e.logError(ctx, logMsgBeginTxFailed, logAttrError, beginErr.Error())
		return errors.Join(lending.ErrBeginTxFailed, beginErr)
	}

	committed := false
	defer e.rollbackIfOpen(ctx, tx, &committed)

	borrowing, fetchErr := e.fetchBorrowing(ctx, tx, borrowingID)
	if fetchErr != nil {
		return fetchErr
	}

	if borrowing == nil {
		return lending.NewBorrowingNotFoundDenial(borrowingID)
	}

	if !borrowing.IsReturned {
		return lending.NewBorrowingStillActiveDenial(borrowingID)
	}

	stmt := e.builder().
		Delete(e.tables.Borrowings).
		Where(
			goqu.C(colBorrowingID).Eq(borrowingID),
			goqu.C(colIsReturned).IsTrue(),
		)

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, deleteErr := e.execStatement(ctx, tx, sqlQuery)
	if deleteErr != nil {
		return deleteErr
	}

	if rowsAffected == 0 {
		return lending.NewBorrowingNotFoundDenial(borrowingID)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		e.logError(ctx, logMsgCommitFailed, logAttrError, commitErr.Error())
		return errors.Join(lending.ErrCommitFailed, commitErr)
	}

	committed = true

	e.invalidateBorrowingCache(ctx, borrowingID, borrowing.UserID, borrowing.BookID)

	e.logInfo(ctx, logMsgBorrowingDeleted,
		logAttrBorrowingID, borrowingID,
		logAttrUserID, borrowing.UserID,
		logAttrBookID, borrowing.BookID)

	return nil
}

func wholeDaysOverdue(dueDate time.Time, now time.Time) int {
	overdueFor := now.Sub(dueDate)
	if overdueFor <= 0 {
		return 0
	}

	return int(overdueFor.Hours() / 24)
}
