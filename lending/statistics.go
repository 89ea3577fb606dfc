package lending

// BorrowingStatistics is the read-only rollup over all borrowings,
// consumed by dashboards. Rebuilt lazily on the next read after any
// mutation that evicted the statistics cache tag.
type BorrowingStatistics struct {
	TotalBorrowings        int
	ActiveBorrowings       int
	OverdueBorrowings      int
	ReturnedBorrowings     int
	TotalLateFees          float64
	AverageBorrowingPeriod float64 // in days, over returned borrowings
	BorrowingsThisMonth    int
	ReturnsThisMonth       int
}

// MostBorrowedBook is one entry of the most-borrowed ranking.
type MostBorrowedBook struct {
	BookID                  int64
	Title                   string
	Author                  string
	ISBN                    string
	BorrowCount             int
	CurrentActiveBorrowings int
}

// MostActiveUser is one entry of the most-active ranking.
type MostActiveUser struct {
	UserID                  int64
	FullName                string
	Email                   string
	TotalBorrowings         int
	CurrentActiveBorrowings int
	OverdueBooks            int
}
