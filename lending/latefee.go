package lending

import (
	"math"
	"time"
)

const hoursPerDay = 24

// LateFee computes the fee owed for returning a borrowing at referenceTime.
//
// Whole days late beyond the grace period are charged at feePerDay; a return
// within dueDate + graceDays costs nothing. The result is rounded to currency
// precision (two decimal places) and is never negative.
//
// For an already-returned borrowing the stored fee is final and authoritative;
// callers must not invoke this again for such records.
func LateFee(dueDate time.Time, referenceTime time.Time, graceDays int, feePerDay float64) float64 {
	daysLate := wholeDaysBetween(dueDate, referenceTime) - graceDays
	if daysLate <= 0 {
		return 0
	}

	return RoundToCents(float64(daysLate) * feePerDay)
}

// wholeDaysBetween returns the count of full 24-hour days from dueDate to referenceTime,
// clamped at zero for reference times before the due date.
func wholeDaysBetween(dueDate time.Time, referenceTime time.Time) int {
	elapsed := referenceTime.Sub(dueDate)
	if elapsed <= 0 {
		return 0
	}

	return int(elapsed.Hours() / hoursPerDay)
}

// RoundToCents rounds a currency amount to two decimal places.
func RoundToCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
