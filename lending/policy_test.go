package lending_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-lending-core-go/lending"
)

func Test_PolicyFromYAML_When_DocumentIsPartial(t *testing.T) {
	// arrange
	yamlDoc := []byte("max_books_per_user: 3\nlate_fee_per_day: 0.50\n")

	// act
	policy, err := lending.PolicyFromYAML(yamlDoc)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 3, policy.MaxBooksPerUser)
	assert.Equal(t, 0.50, policy.LateFeePerDay)
	assert.Equal(t, 14, policy.DefaultBorrowingDays, "unnamed limits keep their defaults")
	assert.Equal(t, 0, policy.GraceDays)
}

func Test_PolicyFromYAML_When_DocumentIsInvalidYAML(t *testing.T) {
	// act
	_, err := lending.PolicyFromYAML([]byte("max_books_per_user: [broken"))

	// assert
	assert.ErrorIs(t, err, lending.ErrInvalidPolicy)
}

func Test_PolicyFromYAML_When_LimitsAreInconsistent(t *testing.T) {
	// act
	_, err := lending.PolicyFromYAML([]byte("max_books_per_user: 0\n"))

	// assert
	assert.ErrorIs(t, err, lending.ErrInvalidPolicy)
}

func Test_PolicyValidate_RejectsNegativeFee(t *testing.T) {
	// arrange
	policy := lending.DefaultPolicy()
	policy.LateFeePerDay = -0.01

	// act
	err := policy.Validate()

	// assert
	assert.ErrorIs(t, err, lending.ErrInvalidPolicy)
}

func Test_DefaultPolicy_IsValid(t *testing.T) {
	assert.NoError(t, lending.DefaultPolicy().Validate())
}
