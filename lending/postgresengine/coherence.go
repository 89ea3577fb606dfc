package postgresengine

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/library-lending-core-go/lending/cachestore"
)

// Cache keys for single entities and aggregates. All cache access in the
// engine goes through the helpers in this file, so the mutation-to-eviction
// mapping lives in exactly one place.
const (
	keyBooksAll               = "books:all"
	keyBooksAvailable         = "books:available"
	keyUsersAll               = "users:all"
	keyUsersActive            = "users:active"
	keyBorrowingsAll          = "borrowings:all"
	keyBorrowingsActive       = "borrowings:active"
	keyBorrowingsOverdue      = "borrowings:overdue"
	keyStatisticsBorrowings   = "statistics:borrowings"
	keyStatisticsMostBorrowed = "statistics:most-borrowed"
	keyStatisticsMostActive   = "statistics:most-active"
)

func keyBookByID(bookID int64) string {
	return fmt.Sprintf("books:id:%d", bookID)
}

func keyBookByISBN(isbn string) string {
	return fmt.Sprintf("books:isbn:%s", strings.ToLower(isbn))
}

func keySearchBooks(query string) string {
	return fmt.Sprintf("books:search:%s", strings.ToLower(strings.TrimSpace(query)))
}

func keyUserByID(userID int64) string {
	return fmt.Sprintf("users:id:%d", userID)
}

func keyUserByEmail(email string) string {
	return fmt.Sprintf("users:email:%s", strings.ToLower(email))
}

func keyBorrowingByID(borrowingID int64) string {
	return fmt.Sprintf("borrowings:id:%d", borrowingID)
}

func keyBorrowingsByUser(userID int64) string {
	return fmt.Sprintf("borrowings:user:%d", userID)
}

func keyBorrowingsByBook(bookID int64) string {
	return fmt.Sprintf("borrowings:book:%d", bookID)
}

func keyActiveBorrowingsByUser(userID int64) string {
	return fmt.Sprintf("borrowings:active:user:%d", userID)
}

// cacheGet reads a cached value into dest and reports a hit. Values round-trip
// through JSON so cache hits return copies, never pointers shared with other
// goroutines. An undecodable entry is evicted and treated as a miss.
func (e LendingEngine) cacheGet(ctx context.Context, key string, dest any) bool {
	if e.cacheStore == nil {
		return false
	}

	raw, ok := e.cacheStore.Get(key)
	if !ok {
		e.incrementCounter(ctx, metricCacheLookupTotal, map[string]string{labelResult: "miss"})
		return false
	}

	data, ok := raw.([]byte)
	if !ok {
		e.cacheStore.Remove(key)
		return false
	}

	if err := jsoniter.ConfigFastest.Unmarshal(data, dest); err != nil {
		e.logWarn(ctx, logMsgCacheDecodeFailed, logAttrCacheKey, key, logAttrError, err.Error())
		e.cacheStore.Remove(key)

		return false
	}

	e.incrementCounter(ctx, metricCacheLookupTotal, map[string]string{labelResult: "hit"})

	return true
}

// cacheSet stores a value for cache-aside reads. Encoding failures are logged
// and swallowed; serving from the database is always possible.
func (e LendingEngine) cacheSet(ctx context.Context, key string, value any, options cachestore.Options) {
	if e.cacheStore == nil {
		return
	}

	data, err := jsoniter.ConfigFastest.Marshal(value)
	if err != nil {
		e.logWarn(ctx, logMsgCacheEncodeFailed, logAttrCacheKey, key, logAttrError, err.Error())
		return
	}

	e.cacheStore.Set(key, data, options)
}

// invalidateBookCache drops every cached read a book mutation can have gone stale:
// the single-entity keys, the catalog aggregates, and the books/search/statistics tags.
// Called strictly after the owning transaction has committed.
func (e LendingEngine) invalidateBookCache(ctx context.Context, bookID int64, isbn string) {
	if e.cacheStore == nil {
		return
	}
	defer e.recoverInvalidationFailure(ctx)

	e.cacheStore.Remove(keyBookByID(bookID))
	if isbn != "" {
		e.cacheStore.Remove(keyBookByISBN(isbn))
	}
	e.cacheStore.Remove(keyBooksAll)
	e.cacheStore.Remove(keyBooksAvailable)

	e.cacheStore.RemoveByTag(cachestore.TagBooks)
	e.cacheStore.RemoveByTag(cachestore.TagSearch)
	e.cacheStore.RemoveByTag(cachestore.TagStatistics)

	e.recordValue(ctx, metricCacheEntries, float64(e.cacheStore.Len()), nil)
}

// invalidateUserCache drops every cached read a user mutation can have gone stale.
func (e LendingEngine) invalidateUserCache(ctx context.Context, userID int64, email string) {
	if e.cacheStore == nil {
		return
	}
	defer e.recoverInvalidationFailure(ctx)

	e.cacheStore.Remove(keyUserByID(userID))
	if email != "" {
		e.cacheStore.Remove(keyUserByEmail(email))
	}
	e.cacheStore.Remove(keyUsersAll)
	e.cacheStore.Remove(keyUsersActive)

	e.cacheStore.RemoveByTag(cachestore.TagUsers)
	e.cacheStore.RemoveByTag(cachestore.TagStatistics)

	e.recordValue(ctx, metricCacheEntries, float64(e.cacheStore.Len()), nil)
}

// invalidateBorrowingCache drops every cached read a borrowing mutation can have
// gone stale, including the affected book's availability aggregate (borrowing
// state changes book availability transitively).
func (e LendingEngine) invalidateBorrowingCache(ctx context.Context, borrowingID int64, userID int64, bookID int64) {
	if e.cacheStore == nil {
		return
	}
	defer e.recoverInvalidationFailure(ctx)

	e.cacheStore.Remove(keyBorrowingByID(borrowingID))
	e.cacheStore.Remove(keyBorrowingsByUser(userID))
	e.cacheStore.Remove(keyBorrowingsByBook(bookID))
	e.cacheStore.Remove(keyActiveBorrowingsByUser(userID))
	e.cacheStore.Remove(keyBorrowingsActive)
	e.cacheStore.Remove(keyBorrowingsOverdue)
	e.cacheStore.Remove(keyBorrowingsAll)
	e.cacheStore.Remove(keyBooksAvailable)

	e.cacheStore.RemoveByTag(cachestore.TagBorrowings)
	e.cacheStore.RemoveByTag(cachestore.TagStatistics)

	e.recordValue(ctx, metricCacheEntries, float64(e.cacheStore.Len()), nil)
}

// recoverInvalidationFailure keeps a failure while walking the cache from
// unwinding into the caller: the database transaction is already committed,
// so a stale entry is a transient-availability issue bounded by the entry's
// own expiration, not a correctness issue.
func (e LendingEngine) recoverInvalidationFailure(ctx context.Context) {
	if r := recover(); r != nil {
		e.logWarn(ctx, logMsgInvalidationFailure, logAttrError, fmt.Sprintf("%v", r))
	}
}
