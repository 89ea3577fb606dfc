package lending

import "time"

// Book represents a title in the catalog together with its physical copy counts.
//
// The committed state of every book satisfies 0 <= AvailableCopies <= TotalCopies;
// the engine enforces the lower bound with a conditional update so the invariant
// holds even when concurrent borrow attempts race for the last copy.
type Book struct {
	ID              int64
	Title           string
	Author          string
	ISBN            string
	Publisher       string
	PublicationYear int
	Genre           string
	TotalCopies     int
	AvailableCopies int
	Description     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsAvailable reports whether at least one copy is currently not on loan.
func (b Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}
