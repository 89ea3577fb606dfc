package lending_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-lending-core-go/lending"
)

func Test_HashPassword_And_VerifyPassword(t *testing.T) {
	// arrange
	hash, err := lending.HashPassword("correct horse battery staple")
	assert.NoError(t, err)

	user := lending.User{PasswordHash: hash}

	// assert
	assert.True(t, user.VerifyPassword("correct horse battery staple"))
	assert.False(t, user.VerifyPassword("wrong password"))
	assert.NotEqual(t, "correct horse battery staple", hash)
}

func Test_FullName(t *testing.T) {
	assert.Equal(t, "Eric Evans", lending.User{FirstName: "Eric", LastName: "Evans"}.FullName())
	assert.Equal(t, "Eric", lending.User{FirstName: "Eric"}.FullName())
	assert.Equal(t, "Evans", lending.User{LastName: "Evans"}.FullName())
}
