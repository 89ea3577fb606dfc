package lending

import "time"

// Borrowing represents one loan of one book to one user.
//
// A borrowing is created active (IsReturned = false, ReturnDate = nil) and
// transitions exactly once to returned (IsReturned = true, ReturnDate set,
// LateFee finalized). It never changes which user or book it refers to,
// and a returned record accepts no further mutation besides administrative
// deletion.
type Borrowing struct {
	ID         int64
	UserID     int64
	BookID     int64
	BorrowDate time.Time
	DueDate    time.Time
	ReturnDate *time.Time
	IsReturned bool
	LateFee    float64
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsOverdue reports whether the borrowing is active and past its due date at the given time.
func (b Borrowing) IsOverdue(now time.Time) bool {
	return !b.IsReturned && b.DueDate.Before(now)
}

// CountOverdue returns how many of the given borrowings are overdue at the given time.
func CountOverdue(borrowings []Borrowing, now time.Time) int {
	count := 0

	for _, borrowing := range borrowings {
		if borrowing.IsOverdue(now) {
			count++
		}
	}

	return count
}
