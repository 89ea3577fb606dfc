package lending

import "time"

// EligibilityResult is the transient outcome of the borrow precondition rules.
// It is recomputed on every request and never persisted.
//
// A positive result carries zero-valued diagnostics; a negative result carries
// the counters the failing rule observed, for UI display.
type EligibilityResult struct {
	CanBorrow            bool
	Reason               string
	CurrentBorrowedBooks int
	MaxBorrowingLimit    int
	OverdueBooks         int
	IsBookAvailable      bool
	IsUserActive         bool

	denial *Denial
}

// Denial returns the typed denial behind a negative result, or nil when borrowing is allowed.
func (r EligibilityResult) Denial() *Denial {
	return r.denial
}

// Eligible creates a positive result.
func Eligible() EligibilityResult {
	return EligibilityResult{CanBorrow: true}
}

// NotEligible creates a negative result carrying the given denial.
func NotEligible(denial *Denial) EligibilityResult {
	return EligibilityResult{
		CanBorrow: false,
		Reason:    denial.Reason,
		denial:    denial,
	}
}

// EligibilitySnapshot is the current state the rules are evaluated against.
// User and Book are nil when the respective row does not exist.
// ActiveBorrowings holds the user's unreturned borrowings.
type EligibilitySnapshot struct {
	User             *User
	Book             *Book
	ActiveBorrowings []Borrowing
}

type eligibilityInput struct {
	userID   int64
	bookID   int64
	snapshot EligibilitySnapshot
	policy   Policy
	now      time.Time
}

// An eligibilityRule returns a denial when it fails, nil when it passes.
// Rules run in a fixed order and the first failing rule terminates the
// evaluation, so a failure is never masked by a later rule.
type eligibilityRule struct {
	name  string
	check func(in eligibilityInput) *Denial
}

// borrowingRules is the single authoritative rule table; the pre-check and
// the in-transaction re-check both walk exactly this slice.
var borrowingRules = []eligibilityRule{
	{
		name: "identifiers-are-positive",
		check: func(in eligibilityInput) *Denial {
			if in.userID <= 0 || in.bookID <= 0 {
				return NewInvalidIdentifiersDenial()
			}
			return nil
		},
	},
	{
		name: "user-exists-and-is-active",
		check: func(in eligibilityInput) *Denial {
			if in.snapshot.User == nil {
				return NewUserNotFoundDenial(in.userID)
			}
			if !in.snapshot.User.IsActive {
				return NewUserInactiveDenial(in.userID)
			}
			return nil
		},
	},
	{
		name: "book-exists-and-has-copies",
		check: func(in eligibilityInput) *Denial {
			if in.snapshot.Book == nil {
				return NewBookNotFoundDenial(in.bookID)
			}
			if !in.snapshot.Book.IsAvailable() {
				return NewBookNotAvailableDenial(in.bookID)
			}
			return nil
		},
	},
	{
		name: "no-duplicate-active-borrowing",
		check: func(in eligibilityInput) *Denial {
			for _, borrowing := range in.snapshot.ActiveBorrowings {
				if borrowing.BookID == in.bookID {
					return NewAlreadyBorrowedDenial(in.bookID)
				}
			}
			return nil
		},
	},
	{
		name: "below-borrowing-limit",
		check: func(in eligibilityInput) *Denial {
			if len(in.snapshot.ActiveBorrowings) >= in.policy.MaxBooksPerUser {
				return NewBorrowingLimitDenial(len(in.snapshot.ActiveBorrowings), in.policy.MaxBooksPerUser)
			}
			return nil
		},
	},
	{
		name: "no-overdue-borrowings",
		check: func(in eligibilityInput) *Denial {
			if overdue := CountOverdue(in.snapshot.ActiveBorrowings, in.now); overdue > 0 {
				return NewOverdueBooksDenial(overdue)
			}
			return nil
		},
	},
}

// EvaluateEligibility runs the ordered borrow rules against the given state.
//
// It is pure with respect to its inputs: callers load the snapshot (through
// the cache for the advisory pre-check, through the open transaction for the
// authoritative re-check) and the function only decides. The first failing
// rule short-circuits the evaluation.
func EvaluateEligibility(userID int64, bookID int64, snapshot EligibilitySnapshot, policy Policy, now time.Time) EligibilityResult {
	in := eligibilityInput{
		userID:   userID,
		bookID:   bookID,
		snapshot: snapshot,
		policy:   policy,
		now:      now,
	}

	for _, rule := range borrowingRules {
		if denial := rule.check(in); denial != nil {
			result := NotEligible(denial)
			result.MaxBorrowingLimit = policy.MaxBooksPerUser
			result.CurrentBorrowedBooks = len(snapshot.ActiveBorrowings)
			result.OverdueBooks = CountOverdue(snapshot.ActiveBorrowings, now)
			result.IsBookAvailable = snapshot.Book != nil && snapshot.Book.IsAvailable()
			result.IsUserActive = snapshot.User != nil && snapshot.User.IsActive

			return result
		}
	}

	return Eligible()
}
