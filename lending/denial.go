package lending

import (
	"errors"
	"fmt"
)

// Denial is an expected business outcome, not a fault: the caller asked for
// something the rules do not allow. It carries a machine-readable code and a
// human-readable reason and is never logged as an error.
//
// A conditional update that affected zero rows (a race lost at the database
// level) is also surfaced as a Denial, so callers can distinguish "you can't
// do this" from "try again".
type Denial struct {
	Code   string
	Reason string
}

// Error implements the error interface so denials travel on the normal error path.
func (d *Denial) Error() string {
	return fmt.Sprintf("[%s] %s", d.Code, d.Reason)
}

// Denial codes surfaced by the borrowing core.
const (
	DenialCodeInvalidIdentifiers    = "INVALID_IDENTIFIERS"
	DenialCodeUserNotFound          = "USER_NOT_FOUND"
	DenialCodeUserInactive          = "USER_INACTIVE"
	DenialCodeBookNotFound          = "BOOK_NOT_FOUND"
	DenialCodeBookNotAvailable      = "BOOK_NOT_AVAILABLE"
	DenialCodeAlreadyBorrowed       = "ALREADY_BORROWED"
	DenialCodeBorrowingLimitReached = "BORROWING_LIMIT_REACHED"
	DenialCodeOverdueBooks          = "OVERDUE_BOOKS"
	DenialCodeBorrowingNotFound     = "BORROWING_NOT_FOUND"
	DenialCodeAlreadyReturned       = "ALREADY_RETURNED"
	DenialCodeBorrowingStillActive  = "BORROWING_STILL_ACTIVE"
	DenialCodeRenewalNotAllowed     = "RENEWAL_NOT_ALLOWED"
)

// AsDenial extracts a Denial from an error chain, if one is present.
func AsDenial(err error) (*Denial, bool) {
	var denial *Denial
	if errors.As(err, &denial) {
		return denial, true
	}

	return nil, false
}

// NewInvalidIdentifiersDenial is returned when a caller supplies non-positive ids.
func NewInvalidIdentifiersDenial() *Denial {
	return &Denial{
		Code:   DenialCodeInvalidIdentifiers,
		Reason: "invalid identifiers: user id and book id must be positive",
	}
}

// NewUserNotFoundDenial is returned when the borrowing user does not exist.
func NewUserNotFoundDenial(userID int64) *Denial {
	return &Denial{
		Code:   DenialCodeUserNotFound,
		Reason: fmt.Sprintf("user %d was not found", userID),
	}
}

// NewUserInactiveDenial is returned when the borrowing user exists but is deactivated.
func NewUserInactiveDenial(userID int64) *Denial {
	return &Denial{
		Code:   DenialCodeUserInactive,
		Reason: fmt.Sprintf("user %d is not active", userID),
	}
}

// NewBookNotFoundDenial is returned when the requested book does not exist.
func NewBookNotFoundDenial(bookID int64) *Denial {
	return &Denial{
		Code:   DenialCodeBookNotFound,
		Reason: fmt.Sprintf("book %d was not found", bookID),
	}
}

// NewBookNotAvailableDenial is returned when no copy of the book is left to lend,
// including when a concurrent borrow won the race for the last copy.
func NewBookNotAvailableDenial(bookID int64) *Denial {
	return &Denial{
		Code:   DenialCodeBookNotAvailable,
		Reason: fmt.Sprintf("book %d is no longer available", bookID),
	}
}

// NewAlreadyBorrowedDenial is returned when the user already holds an active borrowing of the same book.
func NewAlreadyBorrowedDenial(bookID int64) *Denial {
	return &Denial{
		Code:   DenialCodeAlreadyBorrowed,
		Reason: fmt.Sprintf("book %d is already borrowed by this user", bookID),
	}
}

// NewBorrowingLimitDenial is returned when the user is at the configured concurrent borrowing limit.
func NewBorrowingLimitDenial(current int, limit int) *Denial {
	return &Denial{
		Code:   DenialCodeBorrowingLimitReached,
		Reason: fmt.Sprintf("maximum borrowing limit reached (%d of %d books)", current, limit),
	}
}

// NewOverdueBooksDenial is returned when the user holds overdue borrowings.
func NewOverdueBooksDenial(overdueCount int) *Denial {
	return &Denial{
		Code:   DenialCodeOverdueBooks,
		Reason: fmt.Sprintf("user has %d overdue book(s) that must be returned first", overdueCount),
	}
}

// NewBorrowingNotFoundDenial is returned when the referenced borrowing does not exist.
func NewBorrowingNotFoundDenial(borrowingID int64) *Denial {
	return &Denial{
		Code:   DenialCodeBorrowingNotFound,
		Reason: fmt.Sprintf("borrowing %d was not found", borrowingID),
	}
}

// NewAlreadyReturnedDenial is returned when a return is attempted on a returned borrowing.
func NewAlreadyReturnedDenial(borrowingID int64) *Denial {
	return &Denial{
		Code:   DenialCodeAlreadyReturned,
		Reason: fmt.Sprintf("borrowing %d was already returned", borrowingID),
	}
}

// NewBorrowingStillActiveDenial is returned when deletion is attempted on an active borrowing.
func NewBorrowingStillActiveDenial(borrowingID int64) *Denial {
	return &Denial{
		Code:   DenialCodeBorrowingStillActive,
		Reason: fmt.Sprintf("borrowing %d is still active and cannot be deleted", borrowingID),
	}
}

// NewRenewalNotAllowedDenial is returned when a borrowing is too far overdue to be extended.
func NewRenewalNotAllowedDenial(borrowingID int64, daysOverdue int) *Denial {
	return &Denial{
		Code:   DenialCodeRenewalNotAllowed,
		Reason: fmt.Sprintf("borrowing %d is %d day(s) overdue and can no longer be extended", borrowingID, daysOverdue),
	}
}
