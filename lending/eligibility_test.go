package lending_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-lending-core-go/lending"
)

func anActiveUser(id int64) *lending.User {
	return &lending.User{ID: id, FirstName: "Eric", LastName: "Evans", IsActive: true, Role: lending.RoleMember}
}

func anAvailableBook(id int64) *lending.Book {
	return &lending.Book{ID: id, Title: "Domain-Driven Design", TotalCopies: 3, AvailableCopies: 2}
}

func Test_EvaluateEligibility_When_AllRulesPass(t *testing.T) {
	// arrange
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	snapshot := lending.EligibilitySnapshot{
		User: anActiveUser(1),
		Book: anAvailableBook(2),
	}

	// act
	result := lending.EvaluateEligibility(1, 2, snapshot, lending.DefaultPolicy(), now)

	// assert
	assert.True(t, result.CanBorrow)
	assert.Nil(t, result.Denial())
	assert.Empty(t, result.Reason)
}

func Test_EvaluateEligibility_When_IdentifiersAreNotPositive(t *testing.T) {
	// arrange
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	// act
	result := lending.EvaluateEligibility(0, -1, lending.EligibilitySnapshot{}, lending.DefaultPolicy(), now)

	// assert
	assert.False(t, result.CanBorrow)
	assert.Equal(t, lending.DenialCodeInvalidIdentifiers, result.Denial().Code)
}

func Test_EvaluateEligibility_When_UserDoesNotExist(t *testing.T) {
	// arrange
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	snapshot := lending.EligibilitySnapshot{Book: anAvailableBook(2)}

	// act
	result := lending.EvaluateEligibility(1, 2, snapshot, lending.DefaultPolicy(), now)

	// assert
	assert.False(t, result.CanBorrow)
	assert.Equal(t, lending.DenialCodeUserNotFound, result.Denial().Code)
	assert.False(t, result.IsUserActive)
	assert.True(t, result.IsBookAvailable)
}

func Test_EvaluateEligibility_When_UserIsInactive(t *testing.T) {
	// arrange
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	user := anActiveUser(1)
	user.IsActive = false
	snapshot := lending.EligibilitySnapshot{User: user, Book: anAvailableBook(2)}

	// act
	result := lending.EvaluateEligibility(1, 2, snapshot, lending.DefaultPolicy(), now)

	// assert
	assert.False(t, result.CanBorrow)
	assert.Equal(t, lending.DenialCodeUserInactive, result.Denial().Code)
}

func Test_EvaluateEligibility_When_BookDoesNotExist(t *testing.T) {
	// arrange
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	snapshot := lending.EligibilitySnapshot{User: anActiveUser(1)}

	// act
	result := lending.EvaluateEligibility(1, 2, snapshot, lending.DefaultPolicy(), now)

	// assert
	assert.False(t, result.CanBorrow)
	assert.Equal(t, lending.DenialCodeBookNotFound, result.Denial().Code)
}

func Test_EvaluateEligibility_When_NoCopyIsAvailable(t *testing.T) {
	// arrange
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	book := anAvailableBook(2)
	book.AvailableCopies = 0
	snapshot := lending.EligibilitySnapshot{User: anActiveUser(1), Book: book}

	// act
	result := lending.EvaluateEligibility(1, 2, snapshot, lending.DefaultPolicy(), now)

	// assert
	assert.False(t, result.CanBorrow)
	assert.Equal(t, lending.DenialCodeBookNotAvailable, result.Denial().Code)
	assert.False(t, result.IsBookAvailable)
}

func Test_EvaluateEligibility_When_UserAlreadyHoldsTheBook(t *testing.T) {
	// arrange
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	snapshot := lending.EligibilitySnapshot{
		User: anActiveUser(1),
		Book: anAvailableBook(2),
		ActiveBorrowings: []lending.Borrowing{
			{ID: 10, UserID: 1, BookID: 2, DueDate: now.AddDate(0, 0, 7)},
		},
	}

	// act
	result := lending.EvaluateEligibility(1, 2, snapshot, lending.DefaultPolicy(), now)

	// assert
	assert.False(t, result.CanBorrow)
	assert.Equal(t, lending.DenialCodeAlreadyBorrowed, result.Denial().Code)
	assert.Equal(t, 1, result.CurrentBorrowedBooks)
}

func Test_EvaluateEligibility_When_BorrowingLimitIsReached(t *testing.T) {
	// arrange
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	policy := lending.DefaultPolicy()
	policy.MaxBooksPerUser = 2

	snapshot := lending.EligibilitySnapshot{
		User: anActiveUser(1),
		Book: anAvailableBook(2),
		ActiveBorrowings: []lending.Borrowing{
			{ID: 10, UserID: 1, BookID: 3, DueDate: now.AddDate(0, 0, 7)},
			{ID: 11, UserID: 1, BookID: 4, DueDate: now.AddDate(0, 0, 7)},
		},
	}

	// act
	result := lending.EvaluateEligibility(1, 2, snapshot, policy, now)

	// assert
	assert.False(t, result.CanBorrow)
	assert.Equal(t, lending.DenialCodeBorrowingLimitReached, result.Denial().Code)
	assert.Equal(t, 2, result.CurrentBorrowedBooks)
	assert.Equal(t, 2, result.MaxBorrowingLimit)
}

func Test_EvaluateEligibility_When_UserHasOverdueBorrowings(t *testing.T) {
	// arrange
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	snapshot := lending.EligibilitySnapshot{
		User: anActiveUser(1),
		Book: anAvailableBook(2),
		ActiveBorrowings: []lending.Borrowing{
			{ID: 10, UserID: 1, BookID: 3, DueDate: now.AddDate(0, 0, -1)},
		},
	}

	// act
	result := lending.EvaluateEligibility(1, 2, snapshot, lending.DefaultPolicy(), now)

	// assert
	assert.False(t, result.CanBorrow)
	assert.Equal(t, lending.DenialCodeOverdueBooks, result.Denial().Code)
	assert.Equal(t, 1, result.OverdueBooks)
}

func Test_EvaluateEligibility_RuleOrder_FirstFailureWins(t *testing.T) {
	// arrange: inactive user AND unavailable book AND overdue borrowings,
	// the user rule fires before the book and overdue rules
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	user := anActiveUser(1)
	user.IsActive = false
	book := anAvailableBook(2)
	book.AvailableCopies = 0

	snapshot := lending.EligibilitySnapshot{
		User: user,
		Book: book,
		ActiveBorrowings: []lending.Borrowing{
			{ID: 10, UserID: 1, BookID: 3, DueDate: now.AddDate(0, 0, -5)},
		},
	}

	// act
	result := lending.EvaluateEligibility(1, 2, snapshot, lending.DefaultPolicy(), now)

	// assert
	assert.Equal(t, lending.DenialCodeUserInactive, result.Denial().Code)
}

func Test_AsDenial_ExtractsDenial_FromErrorChain(t *testing.T) {
	// arrange
	var err error = lending.NewBookNotAvailableDenial(42)

	// act
	denial, ok := lending.AsDenial(err)

	// assert
	assert.True(t, ok)
	assert.Equal(t, lending.DenialCodeBookNotAvailable, denial.Code)

	_, ok = lending.AsDenial(lending.ErrQueryFailed)
	assert.False(t, ok, "an infrastructure error is not a denial")
}
