package lending

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var ErrInvalidPolicy = errors.New("invalid lending policy")

// Policy holds the configured lending limits.
//
// It is immutable at runtime and passed explicitly into the eligibility
// evaluation, the late-fee calculation and the engine, so tests can vary
// it per case. Changing the policy does not retroactively affect fees
// that were already finalized on returned borrowings.
type Policy struct {
	MaxBooksPerUser      int     `yaml:"max_books_per_user"`
	DefaultBorrowingDays int     `yaml:"default_borrowing_days"`
	LateFeePerDay        float64 `yaml:"late_fee_per_day"`
	GraceDays            int     `yaml:"grace_days"`
	MaxRenewalCount      int     `yaml:"max_renewal_count"`
	RenewalDays          int     `yaml:"renewal_days"`
}

// DefaultPolicy returns the stock library policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxBooksPerUser:      5,
		DefaultBorrowingDays: 14,
		LateFeePerDay:        1.00,
		GraceDays:            0,
		MaxRenewalCount:      2,
		RenewalDays:          14,
	}
}

// PolicyFromYAML unmarshals a policy over the defaults, so a partial
// document only overrides the limits it names.
func PolicyFromYAML(data []byte) (Policy, error) {
	policy := DefaultPolicy()

	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, errors.Join(ErrInvalidPolicy, err)
	}

	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}

	return policy, nil
}

// Validate checks the numeric limits for internal consistency.
func (p Policy) Validate() error {
	if p.MaxBooksPerUser <= 0 {
		return fmt.Errorf("%w: max_books_per_user must be positive, got %d", ErrInvalidPolicy, p.MaxBooksPerUser)
	}

	if p.DefaultBorrowingDays <= 0 {
		return fmt.Errorf("%w: default_borrowing_days must be positive, got %d", ErrInvalidPolicy, p.DefaultBorrowingDays)
	}

	if p.LateFeePerDay < 0 {
		return fmt.Errorf("%w: late_fee_per_day must not be negative, got %v", ErrInvalidPolicy, p.LateFeePerDay)
	}

	if p.GraceDays < 0 {
		return fmt.Errorf("%w: grace_days must not be negative, got %d", ErrInvalidPolicy, p.GraceDays)
	}

	if p.MaxRenewalCount < 0 {
		return fmt.Errorf("%w: max_renewal_count must not be negative, got %d", ErrInvalidPolicy, p.MaxRenewalCount)
	}

	if p.RenewalDays <= 0 {
		return fmt.Errorf("%w: renewal_days must be positive, got %d", ErrInvalidPolicy, p.RenewalDays)
	}

	return nil
}
