package cachestore

import "time"

// Tags used by the borrowing core's coherence layer.
const (
	TagBooks      = "books"
	TagUsers      = "users"
	TagBorrowings = "borrowings"
	TagSearch     = "search"
	TagStatistics = "statistics"
)

// BooksOptions is the entry policy for cached book reads.
func BooksOptions() Options {
	return Options{
		TTL:               30 * time.Minute,
		SlidingExpiration: 10 * time.Minute,
		Priority:          PriorityHigh,
		Tags:              []string{TagBooks},
	}
}

// UsersOptions is the entry policy for cached user reads.
func UsersOptions() Options {
	return Options{
		TTL:               20 * time.Minute,
		SlidingExpiration: 5 * time.Minute,
		Priority:          PriorityNormal,
		Tags:              []string{TagUsers},
	}
}

// BorrowingsOptions is the entry policy for cached borrowing reads.
func BorrowingsOptions() Options {
	return Options{
		TTL:               15 * time.Minute,
		SlidingExpiration: 3 * time.Minute,
		Priority:          PriorityNormal,
		Tags:              []string{TagBorrowings},
	}
}

// SearchOptions is the entry policy for cached search results.
func SearchOptions() Options {
	return Options{
		TTL:      10 * time.Minute,
		Priority: PriorityLow,
		Tags:     []string{TagSearch},
	}
}

// StatisticsOptions is the entry policy for cached rollups and rankings.
func StatisticsOptions() Options {
	return Options{
		TTL:               60 * time.Minute,
		SlidingExpiration: 15 * time.Minute,
		Priority:          PriorityHigh,
		Tags:              []string{TagStatistics},
	}
}
