package postgresengine

import (
	"context"
	"errors"
	"strings"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-lending-core-go/lending"
	"github.com/AntonStoeckl/library-lending-core-go/lending/cachestore"
	"github.com/AntonStoeckl/library-lending-core-go/lending/postgresengine/internal/adapters"
)

// GetBook returns the book with the given id via the cache-aside path,
// or nil when it does not exist.
func (e LendingEngine) GetBook(ctx context.Context, bookID int64) (*lending.Book, error) {
	key := keyBookByID(bookID)

	var cached lending.Book
	if e.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	book, err := e.fetchBook(ctx, e.db, bookID)
	if err != nil || book == nil {
		return nil, err
	}

	e.cacheSet(ctx, key, book, cachestore.BooksOptions())

	return book, nil
}

// GetBookByISBN returns the book with the given ISBN via the cache-aside path,
// or nil when it does not exist.
func (e LendingEngine) GetBookByISBN(ctx context.Context, isbn string) (*lending.Book, error) {
	key := keyBookByISBN(isbn)

	var cached lending.Book
	if e.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	book, err := e.fetchOneBook(ctx, e.db, goqu.C(colISBN).Eq(isbn))
	if err != nil || book == nil {
		return nil, err
	}

	e.cacheSet(ctx, key, book, cachestore.BooksOptions())

	return book, nil
}

// GetAvailableBooks returns every book with at least one copy not on loan,
// ordered by title, via the cache-aside path.
func (e LendingEngine) GetAvailableBooks(ctx context.Context) ([]lending.Book, error) {
	var cached []lending.Book
	if e.cacheGet(ctx, keyBooksAvailable, &cached) {
		return cached, nil
	}

	stmt := e.builder().
		From(e.tables.Books).
		Select(bookColumns()...).
		Where(goqu.C(colAvailableCopies).Gt(0)).
		Order(goqu.I(colTitle).Asc())

	books, err := e.fetchBooks(ctx, e.db, stmt)
	if err != nil {
		return nil, err
	}

	e.cacheSet(ctx, keyBooksAvailable, books, cachestore.BooksOptions())

	return books, nil
}

// SearchBooks returns every book whose title, author or ISBN contains the
// query, case-insensitively, ordered by title, via the cache-aside path.
// Results are cached under the search tag, which every book mutation sweeps.
func (e LendingEngine) SearchBooks(ctx context.Context, query string) ([]lending.Book, error) {
	key := keySearchBooks(query)

	var cached []lending.Book
	if e.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	pattern := "%" + strings.TrimSpace(query) + "%"

	stmt := e.builder().
		From(e.tables.Books).
		Select(bookColumns()...).
		Where(goqu.Or(
			goqu.C(colTitle).ILike(pattern),
			goqu.C(colAuthor).ILike(pattern),
			goqu.C(colISBN).ILike(pattern),
		)).
		Order(goqu.I(colTitle).Asc())

	books, err := e.fetchBooks(ctx, e.db, stmt)
	if err != nil {
		return nil, err
	}

	e.cacheSet(ctx, key, books, cachestore.SearchOptions())

	return books, nil
}

func bookColumns() []any {
	return []any{
		colBookID, colTitle, colAuthor, colISBN, colPublisher, colPublicationYear,
		colGenre, colTotalCopies, colAvailableCopies, colDescription, colCreatedAt, colUpdatedAt,
	}
}

func (e LendingEngine) fetchBook(ctx context.Context, q adapters.Querier, bookID int64) (*lending.Book, error) {
	return e.fetchOneBook(ctx, q, goqu.C(colBookID).Eq(bookID))
}

func (e LendingEngine) fetchOneBook(ctx context.Context, q adapters.Querier, where goqu.Expression) (*lending.Book, error) {
	stmt := e.builder().
		From(e.tables.Books).
		Select(bookColumns()...).
		Where(where)

	books, err := e.fetchBooks(ctx, q, stmt)
	if err != nil || len(books) == 0 {
		return nil, err
	}

	return &books[0], nil
}

func (e LendingEngine) fetchBooks(ctx context.Context, q adapters.Querier, stmt *goqu.SelectDataset) ([]lending.Book, error) {
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

	books := make([]lending.Book, 0)

	for rows.Next() {
		var book lending.Book

		scanErr := rows.Scan(
			&book.ID, &book.Title, &book.Author, &book.ISBN, &book.Publisher, &book.PublicationYear,
			&book.Genre, &book.TotalCopies, &book.AvailableCopies, &book.Description, &book.CreatedAt, &book.UpdatedAt,
		)
		if scanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
			return nil, errors.Join(lending.ErrScanningDBRowFailed, scanErr)
		}

		books = append(books, book)
	}

	return books, nil
}

// adjustAvailableCopies changes a book's available-copies counter by delta
// with the non-negative invariant enforced in the statement itself:
// the update only succeeds when available_copies + delta >= 0. It reports
// whether a row was affected; zero affected rows on a decrement means a
// concurrent transaction took the last copy.
func (e LendingEngine) adjustAvailableCopies(ctx context.Context, q adapters.Querier, bookID int64, delta int) (bool, error) {
	stmt := e.builder().
		Update(e.tables.Books).
		Set(goqu.Record{
			colAvailableCopies: goqu.L("? + ?", goqu.C(colAvailableCopies), delta),
			colUpdatedAt:       e.now(),
		}).
		Where(
			goqu.C(colBookID).Eq(bookID),
			goqu.L("? + ? >= 0", goqu.C(colAvailableCopies), delta),
		)

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return false, errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, execErr := e.execStatement(ctx, q, sqlQuery)
	if execErr != nil {
		return false, execErr
	}

	return rowsAffected > 0, nil
}
