package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ascendhq/fieldcrm/internal/auth"
	"github.com/ascendhq/fieldcrm/internal/models"
	"github.com/ascendhq/fieldcrm/internal/sequence"
	"github.com/ascendhq/fieldcrm/internal/store"
	memorystore "github.com/ascendhq/fieldcrm/internal/store/memory"
)

type customerFixture struct {
	service     *CustomerService
	users       *memorystore.UserStore
	locations   *memorystore.LocationStore
	memberships *memorystore.MembershipStore

	member   *models.User
	outsider *models.User
	admin    *models.User
	location *models.Location
	foreign  *models.Location
}

func newCustomerFixture(t *testing.T) *customerFixture {
	t.Helper()
	ctx := context.Background()

	f := &customerFixture{
		users:       memorystore.NewUserStore(),
		locations:   memorystore.NewLocationStore(),
		memberships: memorystore.NewMembershipStore(),
	}

	customers := memorystore.NewCustomerStore()
	gate := auth.NewGate(f.users, f.memberships)
	allocator := sequence.NewAllocator(memorystore.NewSequenceStore())
	f.service = NewCustomerService(customers, f.locations, gate, allocator)

	f.member = &models.User{Email: "member@example.com", IsActive: true}
	require.NoError(t, f.users.Create(ctx, f.member))
	f.outsider = &models.User{Email: "outsider@example.com", IsActive: true}
	require.NoError(t, f.users.Create(ctx, f.outsider))
	f.admin = &models.User{Email: "admin@example.com", IsActive: true, IsSuperadmin: true}
	require.NoError(t, f.users.Create(ctx, f.admin))

	f.location = &models.Location{OrganizationID: 1, Name: "Phoenix"}
	require.NoError(t, f.locations.Create(ctx, f.location))
	f.foreign = &models.Location{OrganizationID: 2, Name: "Elsewhere"}
	require.NoError(t, f.locations.Create(ctx, f.foreign))

	require.NoError(t, f.memberships.Put(ctx, &models.Membership{
		UserID:     f.member.ID,
		LocationID: f.location.ID,
		Role:       models.RoleTech,
	}))

	return f
}

func TestCustomerService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("member creates with a sequential uid", func(t *testing.T) {
		f := newCustomerFixture(t)

		first, err := f.service.Create(ctx, f.member.ID, CreateCustomerParams{
			LocationID: f.location.ID,
			FirstName:  "Ada",
			LastName:   "Lovelace",
		})
		require.NoError(t, err)
		require.Equal(t, "CUS-000001", first.CustomerUID)

		second, err := f.service.Create(ctx, f.member.ID, CreateCustomerParams{
			LocationID: f.location.ID,
			FirstName:  "Grace",
			LastName:   "Hopper",
		})
		require.NoError(t, err)
		require.Equal(t, "CUS-000002", second.CustomerUID)
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		f := newCustomerFixture(t)

		_, err := f.service.Create(ctx, f.outsider.ID, CreateCustomerParams{
			LocationID: f.location.ID,
			FirstName:  "Ada",
		})
		require.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("superadmin may create anywhere", func(t *testing.T) {
		f := newCustomerFixture(t)

		c, err := f.service.Create(ctx, f.admin.ID, CreateCustomerParams{
			LocationID: f.foreign.ID,
			FirstName:  "Alan",
		})
		require.NoError(t, err)
		require.Equal(t, f.foreign.ID, c.LocationID)
	})

	t.Run("unknown location", func(t *testing.T) {
		f := newCustomerFixture(t)

		_, err := f.service.Create(ctx, f.member.ID, CreateCustomerParams{
			LocationID: 999,
			FirstName:  "Ada",
		})
		require.ErrorIs(t, err, store.ErrLocationNotFound)
	})

	t.Run("nameless customer is rejected", func(t *testing.T) {
		f := newCustomerFixture(t)

		_, err := f.service.Create(ctx, f.member.ID, CreateCustomerParams{
			LocationID: f.location.ID,
		})
		require.Error(t, err)
	})
}

func TestCustomerService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("member reads own tenant", func(t *testing.T) {
		f := newCustomerFixture(t)

		created, err := f.service.Create(ctx, f.member.ID, CreateCustomerParams{
			LocationID: f.location.ID,
			FirstName:  "Ada",
		})
		require.NoError(t, err)

		got, err := f.service.Get(ctx, f.member.ID, created.ID)
		require.NoError(t, err)
		require.Equal(t, created.CustomerUID, got.CustomerUID)
	})

	t.Run("foreign tenant id is forbidden, not hidden", func(t *testing.T) {
		f := newCustomerFixture(t)

		created, err := f.service.Create(ctx, f.admin.ID, CreateCustomerParams{
			LocationID: f.foreign.ID,
			FirstName:  "Alan",
		})
		require.NoError(t, err)

		_, err = f.service.Get(ctx, f.member.ID, created.ID)
		require.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newCustomerFixture(t)

		_, err := f.service.Get(ctx, f.member.ID, 999)
		require.ErrorIs(t, err, store.ErrCustomerNotFound)
	})
}

func TestCustomerService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("search stays inside the location", func(t *testing.T) {
		f := newCustomerFixture(t)

		_, err := f.service.Create(ctx, f.member.ID, CreateCustomerParams{
			LocationID: f.location.ID,
			FirstName:  "Ada",
			LastName:   "Lovelace",
		})
		require.NoError(t, err)
		_, err = f.service.Create(ctx, f.admin.ID, CreateCustomerParams{
			LocationID: f.foreign.ID,
			FirstName:  "Ada",
			LastName:   "Foreign",
		})
		require.NoError(t, err)

		customers, err := f.service.List(ctx, f.member.ID, f.location.ID, "ada")
		require.NoError(t, err)
		require.Len(t, customers, 1)
		require.Equal(t, "Lovelace", customers[0].LastName)
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		f := newCustomerFixture(t)

		_, err := f.service.List(ctx, f.outsider.ID, f.location.ID, "")
		require.ErrorIs(t, err, auth.ErrForbidden)
	})
}

func TestCustomerService_SetArchived(t *testing.T) {
	ctx := context.Background()

	t.Run("archive and restore", func(t *testing.T) {
		f := newCustomerFixture(t)

		created, err := f.service.Create(ctx, f.member.ID, CreateCustomerParams{
			LocationID: f.location.ID,
			FirstName:  "Ada",
		})
		require.NoError(t, err)

		archived, err := f.service.SetArchived(ctx, f.member.ID, created.ID, true)
		require.NoError(t, err)
		require.True(t, archived.IsArchived)

		restored, err := f.service.SetArchived(ctx, f.member.ID, created.ID, false)
		require.NoError(t, err)
		require.False(t, restored.IsArchived)
	})

	t.Run("outsider cannot archive", func(t *testing.T) {
		f := newCustomerFixture(t)

		created, err := f.service.Create(ctx, f.member.ID, CreateCustomerParams{
			LocationID: f.location.ID,
			FirstName:  "Ada",
		})
		require.NoError(t, err)

		_, err = f.service.SetArchived(ctx, f.outsider.ID, created.ID, true)
		require.ErrorIs(t, err, auth.ErrForbidden)
	})
}
