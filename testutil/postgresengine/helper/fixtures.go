package helper

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-lending-core-go/lending"
)

// GivenActiveUser inserts an active member with a unique email and returns it.
func GivenActiveUser(t testing.TB, wrapper Wrapper) lending.User {
	return insertUser(t, wrapper, true)
}

// GivenInactiveUser inserts a deactivated member with a unique email and returns it.
func GivenInactiveUser(t testing.TB, wrapper Wrapper) lending.User {
	return insertUser(t, wrapper, false)
}

func insertUser(t testing.TB, wrapper Wrapper, isActive bool) lending.User {
	user := lending.User{
		FirstName: "Vlad",
		LastName:  "Khononov",
		Email:     uuid.NewString() + "@example.com",
		IsActive:  isActive,
		Role:      lending.RoleMember,
	}

	wrapper.QueryRowScan(t,
		`INSERT INTO users (first_name, last_name, email, is_active, role)
		 VALUES ($1, $2, $3, $4, $5) RETURNING user_id`,
		&user.ID,
		user.FirstName, user.LastName, user.Email, user.IsActive, string(user.Role),
	)

	return user
}

// GivenBook inserts a book with a unique ISBN and the given copy counts and returns it.
func GivenBook(t testing.TB, wrapper Wrapper, totalCopies int, availableCopies int) lending.Book {
	book := lending.Book{
		Title:           "Learning Domain-Driven Design",
		Author:          "Vlad Khononov",
		ISBN:            uuid.NewString(),
		Publisher:       "O'Reilly Media, Inc.",
		PublicationYear: 2021,
		Genre:           "Software Engineering",
		TotalCopies:     totalCopies,
		AvailableCopies: availableCopies,
	}

	wrapper.QueryRowScan(t,
		`INSERT INTO books (title, author, isbn, publisher, publication_year, genre, total_copies, available_copies)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING book_id`,
		&book.ID,
		book.Title, book.Author, book.ISBN, book.Publisher, book.PublicationYear,
		book.Genre, book.TotalCopies, book.AvailableCopies,
	)

	return book
}

// GivenActiveBorrowing inserts an unreturned borrowing with the given dates and returns it.
// It does not touch the book's available copies; pass the desired counter to GivenBook.
func GivenActiveBorrowing(
	t testing.TB,
	wrapper Wrapper,
	userID int64,
	bookID int64,
	borrowDate time.Time,
	dueDate time.Time,
) lending.Borrowing {

	borrowing := lending.Borrowing{
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: borrowDate,
		DueDate:    dueDate,
	}

	wrapper.QueryRowScan(t,
		`INSERT INTO borrowings (user_id, book_id, borrow_date, due_date, is_returned)
		 VALUES ($1, $2, $3, $4, FALSE) RETURNING borrowing_id`,
		&borrowing.ID,
		borrowing.UserID, borrowing.BookID, borrowing.BorrowDate, borrowing.DueDate,
	)

	return borrowing
}

// GivenReturnedBorrowing inserts a closed borrowing with a finalized fee and returns it.
func GivenReturnedBorrowing(
	t testing.TB,
	wrapper Wrapper,
	userID int64,
	bookID int64,
	borrowDate time.Time,
	dueDate time.Time,
	returnDate time.Time,
	lateFee float64,
) lending.Borrowing {

	borrowing := lending.Borrowing{
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: borrowDate,
		DueDate:    dueDate,
		ReturnDate: &returnDate,
		IsReturned: true,
		LateFee:    lateFee,
	}

	wrapper.QueryRowScan(t,
		`INSERT INTO borrowings (user_id, book_id, borrow_date, due_date, return_date, is_returned, late_fee)
		 VALUES ($1, $2, $3, $4, $5, TRUE, $6) RETURNING borrowing_id`,
		&borrowing.ID,
		borrowing.UserID, borrowing.BookID, borrowing.BorrowDate, borrowing.DueDate,
		returnDate, borrowing.LateFee,
	)

	return borrowing
}

// CountActiveBorrowings reads the number of unreturned borrowings for a user straight from the table.
func CountActiveBorrowings(t testing.TB, wrapper Wrapper, userID int64) int {
	var count int
	wrapper.QueryRowScan(t,
		`SELECT count(*) FROM borrowings WHERE user_id = $1 AND is_returned = FALSE`,
		&count, userID,
	)

	return count
}

// ReadAvailableCopies reads a book's available copies counter straight from the table.
func ReadAvailableCopies(t testing.TB, wrapper Wrapper, bookID int64) int {
	var copies int
	wrapper.QueryRowScan(t,
		`SELECT available_copies FROM books WHERE book_id = $1`,
		&copies, bookID,
	)

	return copies
}
