package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ascendhq/fieldcrm/internal/models"
	memorystore "github.com/ascendhq/fieldcrm/internal/store/memory"
)

func TestGate_CheckAccess(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Gate, *memorystore.UserStore, *memorystore.MembershipStore) {
		t.Helper()
		users := memorystore.NewUserStore()
		memberships := memorystore.NewMembershipStore()
		return NewGate(users, memberships), users, memberships
	}

	t.Run("member is allowed", func(t *testing.T) {
		gate, users, memberships := setup(t)

		user := &models.User{Email: "tech@example.com", IsActive: true}
		require.NoError(t, users.Create(ctx, user))
		require.NoError(t, memberships.Put(ctx, &models.Membership{
			UserID:     user.ID,
			LocationID: 10,
			Role:       models.RoleTech,
		}))

		require.NoError(t, gate.CheckAccess(ctx, user.ID, 10))
	})

	t.Run("non-member is forbidden", func(t *testing.T) {
		gate, users, memberships := setup(t)

		user := &models.User{Email: "tech@example.com", IsActive: true}
		require.NoError(t, users.Create(ctx, user))
		require.NoError(t, memberships.Put(ctx, &models.Membership{
			UserID:     user.ID,
			LocationID: 10,
			Role:       models.RoleTech,
		}))

		// member of location 10, not 11
		require.ErrorIs(t, gate.CheckAccess(ctx, user.ID, 11), ErrForbidden)
	})

	t.Run("unknown user is unauthenticated", func(t *testing.T) {
		gate, _, _ := setup(t)

		require.ErrorIs(t, gate.CheckAccess(ctx, 999, 10), ErrUnauthenticated)
	})

	t.Run("superadmin is allowed everywhere", func(t *testing.T) {
		gate, users, _ := setup(t)

		admin := &models.User{Email: "admin@example.com", IsActive: true, IsSuperadmin: true}
		require.NoError(t, users.Create(ctx, admin))

		require.NoError(t, gate.CheckAccess(ctx, admin.ID, 10))
		require.NoError(t, gate.CheckAccess(ctx, admin.ID, 99))
	})

	t.Run("revoked membership denies immediately", func(t *testing.T) {
		gate, users, memberships := setup(t)

		user := &models.User{Email: "tech@example.com", IsActive: true}
		require.NoError(t, users.Create(ctx, user))
		require.NoError(t, memberships.Put(ctx, &models.Membership{
			UserID:     user.ID,
			LocationID: 10,
			Role:       models.RoleTech,
		}))
		require.NoError(t, gate.CheckAccess(ctx, user.ID, 10))

		require.NoError(t, memberships.Delete(ctx, user.ID, 10))

		// any token hints the user still holds are irrelevant
		require.ErrorIs(t, gate.CheckAccess(ctx, user.ID, 10), ErrForbidden)
	})

	t.Run("repeated put keeps a single grant", func(t *testing.T) {
		gate, users, memberships := setup(t)

		user := &models.User{Email: "tech@example.com", IsActive: true}
		require.NoError(t, users.Create(ctx, user))

		require.NoError(t, memberships.Put(ctx, &models.Membership{
			UserID: user.ID, LocationID: 10, Role: models.RoleTech,
		}))
		require.NoError(t, memberships.Put(ctx, &models.Membership{
			UserID: user.ID, LocationID: 10, Role: models.RoleManager,
		}))

		m, err := memberships.Get(ctx, user.ID, 10)
		require.NoError(t, err)
		require.Equal(t, models.RoleManager, m.Role)

		require.NoError(t, gate.CheckAccess(ctx, user.ID, 10))

		// one delete fully revokes
		require.NoError(t, memberships.Delete(ctx, user.ID, 10))
		require.ErrorIs(t, gate.CheckAccess(ctx, user.ID, 10), ErrForbidden)
	})
}
