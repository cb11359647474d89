//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ascendhq/fieldcrm/internal/models"
	"github.com/ascendhq/fieldcrm/internal/sequence"
	"github.com/ascendhq/fieldcrm/internal/store"
)

func setupPostgresPool(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connString := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	pool, err := NewPool(ctx, &PoolConfig{ConnString: connString})
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return pool, cleanup
}

func createOrgWithLocation(t *testing.T, ctx context.Context, pool *pgxpool.Pool) (*models.Organization, *models.Location) {
	t.Helper()

	org := &models.Organization{Name: "Desert Plumbing"}
	require.NoError(t, NewOrganizationStore(pool).Create(ctx, org))

	loc := &models.Location{OrganizationID: org.ID, Name: "Phoenix"}
	require.NoError(t, NewLocationStore(pool).Create(ctx, loc))

	return org, loc
}

func TestIntegration_UserStore(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgresPool(t, ctx)
	defer cleanup()

	users := NewUserStore(pool)

	t.Run("create and fetch", func(t *testing.T) {
		user := &models.User{
			Email:        "Alice@Example.com",
			PasswordHash: "x",
			FullName:     "Alice",
			IsActive:     true,
		}
		require.NoError(t, users.Create(ctx, user))
		require.NotZero(t, user.ID)
		require.Equal(t, "alice@example.com", user.Email)

		got, err := users.GetByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := users.Create(ctx, &models.User{Email: "alice@example.com", PasswordHash: "x"})
		require.ErrorIs(t, err, store.ErrUserAlreadyExists)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := users.Get(ctx, 99999)
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})
}

func TestIntegration_MembershipStore(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgresPool(t, ctx)
	defer cleanup()

	users := NewUserStore(pool)
	memberships := NewMembershipStore(pool)
	_, loc := createOrgWithLocation(t, ctx, pool)

	user := &models.User{Email: "tech@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, users.Create(ctx, user))

	t.Run("put is an upsert", func(t *testing.T) {
		require.NoError(t, memberships.Put(ctx, &models.Membership{
			UserID: user.ID, LocationID: loc.ID, Role: models.RoleTech,
		}))
		require.NoError(t, memberships.Put(ctx, &models.Membership{
			UserID: user.ID, LocationID: loc.ID, Role: models.RoleManager,
		}))

		m, err := memberships.Get(ctx, user.ID, loc.ID)
		require.NoError(t, err)
		require.Equal(t, models.RoleManager, m.Role)

		all, err := memberships.ListByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, all, 1)
	})

	t.Run("delete revokes", func(t *testing.T) {
		require.NoError(t, memberships.Delete(ctx, user.ID, loc.ID))

		_, err := memberships.Get(ctx, user.ID, loc.ID)
		require.ErrorIs(t, err, store.ErrMembershipNotFound)
	})
}

func TestIntegration_SequenceStore(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgresPool(t, ctx)
	defer cleanup()

	seq := NewSequenceStore(pool)
	org, _ := createOrgWithLocation(t, ctx, pool)

	t.Run("values start at one and increment", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			got, err := seq.NextValue(ctx, org.ID)
			require.NoError(t, err)
			require.Equal(t, want, got)
		}
	})

	t.Run("concurrent reservations are unique", func(t *testing.T) {
		const workers = 20
		results := make([]int64, workers)

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				n, err := seq.NextValue(ctx, org.ID)
				require.NoError(t, err)
				results[i] = n
			}(i)
		}
		wg.Wait()

		unique := make(map[int64]struct{}, workers)
		for _, n := range results {
			unique[n] = struct{}{}
		}
		require.Len(t, unique, workers)
	})
}

func TestIntegration_Backfill(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgresPool(t, ctx)
	defer cleanup()

	customers := NewCustomerStore(pool)
	seq := NewSequenceStore(pool)
	org, loc := createOrgWithLocation(t, ctx, pool)

	// rows that predate uid allocation
	legacyIDs := make([]int64, 0, 3)
	for i := 0; i < 3; i++ {
		c := &models.Customer{
			LocationID: loc.ID,
			FirstName:  fmt.Sprintf("Legacy%d", i),
			LastName:   "Customer",
		}
		require.NoError(t, customers.Create(ctx, c))
		legacyIDs = append(legacyIDs, c.ID)
	}

	assigned, err := seq.Backfill(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, assigned)

	t.Run("uids assigned in id order", func(t *testing.T) {
		for i, id := range legacyIDs {
			c, err := customers.Get(ctx, id)
			require.NoError(t, err)
			require.Equal(t, sequence.FormatUID(int64(i+1)), c.CustomerUID)
		}
	})

	t.Run("counter continues past the backfill", func(t *testing.T) {
		n, err := seq.NextValue(ctx, org.ID)
		require.NoError(t, err)
		require.Equal(t, int64(4), n)
	})

	t.Run("re-running assigns nothing", func(t *testing.T) {
		assigned, err := seq.Backfill(ctx)
		require.NoError(t, err)
		require.Zero(t, assigned)
	})
}

func TestIntegration_CustomerStore(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgresPool(t, ctx)
	defer cleanup()

	customers := NewCustomerStore(pool)
	_, loc := createOrgWithLocation(t, ctx, pool)

	ada := &models.Customer{
		LocationID:  loc.ID,
		CustomerUID: "CUS-000001",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "ada@example.com",
		Phone:       "602-555-0101",
	}
	require.NoError(t, customers.Create(ctx, ada))

	t.Run("get round trips nullable fields", func(t *testing.T) {
		got, err := customers.Get(ctx, ada.ID)
		require.NoError(t, err)
		require.Equal(t, "ada@example.com", got.Email)
		require.Equal(t, "602-555-0101", got.Phone)
		require.False(t, got.IsArchived)
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		found, err := customers.ListByLocation(ctx, loc.ID, "LOVELACE")
		require.NoError(t, err)
		require.Len(t, found, 1)
	})

	t.Run("archive", func(t *testing.T) {
		require.NoError(t, customers.SetArchived(ctx, ada.ID, true))

		got, err := customers.Get(ctx, ada.ID)
		require.NoError(t, err)
		require.True(t, got.IsArchived)
	})
}
