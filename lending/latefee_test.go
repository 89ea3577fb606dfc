package lending_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-lending-core-go/lending"
)

func Test_LateFee_When_Returned_BeforeDueDate(t *testing.T) {
	// arrange
	dueDate := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	returnedAt := dueDate.AddDate(0, 0, -2)

	// act
	fee := lending.LateFee(dueDate, returnedAt, 0, 1.00)

	// assert
	assert.Equal(t, 0.0, fee, "a return before the due date must cost nothing")
}

func Test_LateFee_When_Returned_OnTheDueDate(t *testing.T) {
	// arrange
	dueDate := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	// act
	fee := lending.LateFee(dueDate, dueDate, 0, 1.00)

	// assert
	assert.Equal(t, 0.0, fee)
}

func Test_LateFee_When_Returned_SixDaysLate(t *testing.T) {
	// arrange
	borrowDate := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	dueDate := borrowDate.AddDate(0, 0, 20)
	returnedAt := dueDate.AddDate(0, 0, 6)

	// act
	fee := lending.LateFee(dueDate, returnedAt, 0, 1.00)

	// assert
	assert.Equal(t, 6.00, fee, "six whole days late at 1.00 per day must cost 6.00")
}

func Test_LateFee_When_PartialDayLate(t *testing.T) {
	// arrange
	dueDate := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	returnedAt := dueDate.Add(23 * time.Hour)

	// act
	fee := lending.LateFee(dueDate, returnedAt, 0, 1.00)

	// assert
	assert.Equal(t, 0.0, fee, "less than one whole day late must cost nothing")
}

func Test_LateFee_When_GraceDays_CoverTheDelay(t *testing.T) {
	// arrange
	dueDate := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	returnedAt := dueDate.AddDate(0, 0, 3)

	// act
	fee := lending.LateFee(dueDate, returnedAt, 3, 1.00)

	// assert
	assert.Equal(t, 0.0, fee)
}

func Test_LateFee_When_GraceDays_CoverPartOfTheDelay(t *testing.T) {
	// arrange
	dueDate := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	returnedAt := dueDate.AddDate(0, 0, 5)

	// act
	fee := lending.LateFee(dueDate, returnedAt, 2, 0.50)

	// assert
	assert.Equal(t, 1.50, fee, "grace days reduce the chargeable days, not the rate")
}

func Test_LateFee_IsRoundedToCents(t *testing.T) {
	// arrange
	dueDate := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	returnedAt := dueDate.AddDate(0, 0, 3)

	// act
	fee := lending.LateFee(dueDate, returnedAt, 0, 0.333)

	// assert
	assert.Equal(t, 1.00, fee)
}

func Test_RoundToCents(t *testing.T) {
	assert.Equal(t, 1.23, lending.RoundToCents(1.2349))
	assert.Equal(t, 1.24, lending.RoundToCents(1.236))
	assert.Equal(t, 0.0, lending.RoundToCents(0))
}
