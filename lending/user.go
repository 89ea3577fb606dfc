package lending

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role classifies what a user may do outside the borrowing core.
type Role string

const (
	RoleMember    Role = "member"
	RoleLibrarian Role = "librarian"
	RoleAdmin     Role = "admin"
)

// User represents a library member. Only active users may borrow.
type User struct {
	ID             int64
	FirstName      string
	LastName       string
	Email          string
	IsActive       bool
	Role           Role
	PasswordHash   string
	MembershipDate time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FullName returns the display name used by rankings and diagnostics.
func (u User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// HashPassword derives a bcrypt hash for storage in User.PasswordHash.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyPassword reports whether plain matches the stored credential hash.
func (u User) VerifyPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}
