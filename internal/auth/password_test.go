package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func Test_BcryptPasswordEncrypter(t *testing.T) {
	ctx := context.Background()
	encrypter := NewBcryptPasswordEncrypter(bcrypt.MinCost)

	_, err := encrypter.Encrypt(ctx, "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := encrypter.Encrypt(ctx, "correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", hash)

	ok, err := encrypter.ComparePassword(ctx, hash, "correct-horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = encrypter.ComparePassword(ctx, hash, "wrong-horse")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = encrypter.ComparePassword(ctx, "not-a-hash", "correct-horse")
	assert.Error(t, err)
}

func Test_NewBcryptPasswordEncrypter_defaultsInvalidCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptPasswordEncrypter(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptPasswordEncrypter(bcrypt.MaxCost+1).cost)
	assert.Equal(t, bcrypt.MinCost, NewBcryptPasswordEncrypter(bcrypt.MinCost).cost)
}

func Test_GeneratePassword(t *testing.T) {
	seen := map[string]struct{}{}
	for range 50 {
		password, err := GeneratePassword()
		require.NoError(t, err)

		assert.GreaterOrEqual(t, len(password), MinPasswordLength)
		assert.LessOrEqual(t, len(password), MaxPasswordLength)
		assert.True(t, hasEveryCharClass(password), password)

		_, dup := seen[password]
		assert.False(t, dup)
		seen[password] = struct{}{}
	}
}
