package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBcryptHasher(t *testing.T) {
	hasher := &BcryptHasher{Cost: 4} // minimum cost keeps the test fast

	t.Run("hash and verify", func(t *testing.T) {
		hash, err := hasher.Hash("correct horse battery staple")
		require.NoError(t, err)
		require.NotEmpty(t, hash)
		require.NotContains(t, hash, "correct horse")

		require.True(t, hasher.Verify("correct horse battery staple", hash))
		require.False(t, hasher.Verify("wrong password", hash))
	})

	t.Run("same password hashes differently", func(t *testing.T) {
		h1, err := hasher.Hash("password123!")
		require.NoError(t, err)
		h2, err := hasher.Hash("password123!")
		require.NoError(t, err)
		require.NotEqual(t, h1, h2)
	})

	t.Run("rejects an empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
	})

	t.Run("rejects a password over the bcrypt limit", func(t *testing.T) {
		_, err := hasher.Hash(strings.Repeat("a", 73))
		require.Error(t, err)
	})

	t.Run("verify tolerates garbage hashes", func(t *testing.T) {
		require.False(t, hasher.Verify("anything", "not-a-bcrypt-hash"))
	})
}
