// Package lending provides the core domain types and pure business rules
// for a library borrowing system.
//
// This package is free of I/O: it defines the Book, User and Borrowing
// models, the immutable lending Policy, the ordered eligibility rule set,
// and the late-fee calculation. Persistence and caching live in the
// engine packages which consume these types.
//
// Key types:
//   - Policy: configured lending limits, passed explicitly to every consumer
//   - EligibilityResult: outcome of the ordered borrow precondition rules
//   - Denial: a typed, expected business outcome distinct from infrastructure faults
//
// Common usage pattern:
//
//	snapshot := lending.EligibilitySnapshot{User: user, Book: book, ActiveBorrowings: active}
//	result := lending.EvaluateEligibility(userID, bookID, snapshot, policy, time.Now())
//	if denial := result.Denial(); denial != nil {
//		// surface denial.Code / denial.Reason to the caller
//	}
package lending
