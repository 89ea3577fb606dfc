package postgresengine

import (
	"context"
	"errors"
	"time"

	"github.com/AntonStoeckl/library-lending-core-go/lending"
	"github.com/AntonStoeckl/library-lending-core-go/lending/postgresengine/internal/adapters"
)

const (
	operationEvaluateEligibility = "evaluate_eligibility"
	operationBorrowBook          = "borrow_book"
	operationReturnBook          = "return_book"
	operationCalculateLateFee    = "calculate_late_fee"
	operationExtendBorrowing     = "extend_borrowing"
	operationRenewBorrowing      = "renew_borrowing"
	operationDeleteBorrowing     = "delete_borrowing"
	operationStatistics          = "statistics"
)

// EvaluateEligibility runs the advisory borrow pre-check against current state.
//
// The snapshot is loaded through the cache-aside read path, so the answer can
// be marginally stale; BorrowBook re-evaluates the same rules inside its
// transaction before any row changes. The result is for display, never a
// reservation.
func (e LendingEngine) EvaluateEligibility(ctx context.Context, userID int64, bookID int64) (lending.EligibilityResult, error) {
	start := time.Now()
	defer func() {
		e.recordDuration(ctx, metricOperationDuration, time.Since(start), map[string]string{labelOperation: operationEvaluateEligibility})
	}()

	user, userErr := e.GetUser(ctx, userID)
	if userErr != nil {
		return lending.EligibilityResult{}, userErr
	}

	book, bookErr := e.GetBook(ctx, bookID)
	if bookErr != nil {
		return lending.EligibilityResult{}, bookErr
	}

	activeBorrowings, borrowingsErr := e.GetActiveUserBorrowings(ctx, userID)
	if borrowingsErr != nil {
		return lending.EligibilityResult{}, borrowingsErr
	}

	snapshot := lending.EligibilitySnapshot{
		User:             user,
		Book:             book,
		ActiveBorrowings: activeBorrowings,
	}

	return lending.EvaluateEligibility(userID, bookID, snapshot, e.policy, e.now()), nil
}

// BorrowBook atomically creates an active borrowing and decrements the book's
// available copies. loanDays of zero or less falls back to the policy default.
//
// All precondition rules are re-evaluated inside the transaction; a failing
// rule or a lost race for the last copy rolls everything back and surfaces as
// a typed denial in the error chain, not as a fault.
func (e LendingEngine) BorrowBook(ctx context.Context, userID int64, bookID int64, loanDays int, notes string) (*lending.Borrowing, error) {
	start := time.Now()

	borrowing, err := e.borrowBook(ctx, userID, bookID, loanDays, notes)

	duration := time.Since(start)
	e.recordDuration(ctx, metricOperationDuration, duration, map[string]string{labelOperation: operationBorrowBook})

	switch {
	case err == nil:
		e.incrementCounter(ctx, metricBorrowTotal, map[string]string{labelOutcome: outcomeSuccess})
		e.logInfo(ctx, logMsgBookBorrowed,
			logAttrBorrowingID, borrowing.ID,
			logAttrUserID, userID,
			logAttrBookID, bookID,
			logAttrDurationMS, durationToMilliseconds(duration))
	default:
		if denial, isDenial := lending.AsDenial(err); isDenial {
			e.incrementCounter(ctx, metricBorrowTotal, map[string]string{labelOutcome: outcomeDenied, labelCode: denial.Code})
			e.logInfo(ctx, logMsgBorrowDenied,
				logAttrUserID, userID,
				logAttrBookID, bookID,
				logAttrDenialCode, denial.Code)
		} else {
			e.incrementCounter(ctx, metricBorrowTotal, map[string]string{labelOutcome: outcomeError})
		}
	}

	return borrowing, err
}

func (e LendingEngine) borrowBook(ctx context.Context, userID int64, bookID int64, loanDays int, notes string) (*lending.Borrowing, error) {
	if loanDays <= 0 {
		loanDays = e.policy.DefaultBorrowingDays
	}

	tx, beginErr := e.db.BeginTx(ctx)
	if beginErr != nil {
		e.logError(ctx, logMsgBeginTxFailed, logAttrError, beginErr.Error())
		return nil, errors.Join(lending.ErrBeginTxFailed, beginErr)
	}

	committed := false
	defer e.rollbackIfOpen(ctx, tx, &committed)

	now := e.now()

	snapshot, snapshotErr := e.loadEligibilitySnapshot(ctx, tx, userID, bookID)
	if snapshotErr != nil {
		return nil, snapshotErr
	}

	if result := lending.EvaluateEligibility(userID, bookID, snapshot, e.policy, now); !result.CanBorrow {
		return nil, result.Denial()
	}

	dueDate := now.AddDate(0, 0, loanDays)

	borrowingID, insertErr := e.insertBorrowing(ctx, tx, userID, bookID, now, dueDate, notes)
	if insertErr != nil {
		return nil, insertErr
	}

	decremented, decrementErr := e.adjustAvailableCopies(ctx, tx, bookID, -1)
	if decrementErr != nil {
		return nil, decrementErr
	}

	if !decremented {
		// a concurrent transaction took the last copy between the re-check and here
		e.logInfo(ctx, logMsgCopiesConflict, logAttrBookID, bookID)
		return nil, lending.NewBookNotAvailableDenial(bookID)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		e.logError(ctx, logMsgCommitFailed, logAttrError, commitErr.Error())
		return nil, errors.Join(lending.ErrCommitFailed, commitErr)
	}

	committed = true

	e.invalidateBorrowingCache(ctx, borrowingID, userID, bookID)
	e.invalidateBookCache(ctx, bookID, snapshot.Book.ISBN)

	return &lending.Borrowing{
		ID:         borrowingID,
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: now,
		DueDate:    dueDate,
		IsReturned: false,
		Notes:      notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// loadEligibilitySnapshot reads the rule inputs through the given querier.
// Inside a transaction this bypasses the cache so the authoritative re-check
// sees exactly the rows the transaction will modify.
func (e LendingEngine) loadEligibilitySnapshot(ctx context.Context, q adapters.Querier, userID int64, bookID int64) (lending.EligibilitySnapshot, error) {
	user, userErr := e.fetchUser(ctx, q, userID)
	if userErr != nil {
		return lending.EligibilitySnapshot{}, userErr
	}

	book, bookErr := e.fetchBook(ctx, q, bookID)
	if bookErr != nil {
		return lending.EligibilitySnapshot{}, bookErr
	}

	activeBorrowings, borrowingsErr := e.fetchActiveUserBorrowings(ctx, q, userID)
	if borrowingsErr != nil {
		return lending.EligibilitySnapshot{}, borrowingsErr
	}

	return lending.EligibilitySnapshot{
		User:             user,
		Book:             book,
		ActiveBorrowings: activeBorrowings,
	}, nil
}
