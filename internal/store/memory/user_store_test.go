package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ascendhq/fieldcrm/internal/models"
	"github.com/ascendhq/fieldcrm/internal/store"
)

func TestUserStore_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns an id and normalizes the email", func(t *testing.T) {
		st := NewUserStore()

		user := &models.User{Email: "  Alice@Example.COM ", IsActive: true}
		require.NoError(t, st.Create(ctx, user))
		require.Equal(t, int64(1), user.ID)
		require.Equal(t, "alice@example.com", user.Email)
		require.False(t, user.CreatedAt.IsZero())
	})

	t.Run("duplicate email returns error", func(t *testing.T) {
		st := NewUserStore()

		require.NoError(t, st.Create(ctx, &models.User{Email: "alice@example.com"}))

		err := st.Create(ctx, &models.User{Email: "ALICE@example.com"})
		require.ErrorIs(t, err, store.ErrUserAlreadyExists)
	})

	t.Run("ids are sequential", func(t *testing.T) {
		st := NewUserStore()

		a := &models.User{Email: "a@example.com"}
		b := &models.User{Email: "b@example.com"}
		require.NoError(t, st.Create(ctx, a))
		require.NoError(t, st.Create(ctx, b))
		require.Equal(t, int64(1), a.ID)
		require.Equal(t, int64(2), b.ID)
	})
}

func TestUserStore_Get(t *testing.T) {
	ctx := context.Background()
	st := NewUserStore()

	user := &models.User{Email: "alice@example.com", IsActive: true, IsSuperadmin: true}
	require.NoError(t, st.Create(ctx, user))

	t.Run("by id", func(t *testing.T) {
		got, err := st.Get(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, user.Email, got.Email)
		require.True(t, got.IsSuperadmin)
	})

	t.Run("by email is case-insensitive", func(t *testing.T) {
		got, err := st.GetByEmail(ctx, "ALICE@EXAMPLE.COM")
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := st.Get(ctx, 999)
		require.ErrorIs(t, err, store.ErrUserNotFound)

		_, err = st.GetByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("returned value is a copy", func(t *testing.T) {
		got, err := st.Get(ctx, user.ID)
		require.NoError(t, err)
		got.Email = "mutated@example.com"

		again, err := st.Get(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", again.Email)
	})
}
