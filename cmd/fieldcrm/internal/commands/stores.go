package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ascendhq/fieldcrm/internal/store"
	memorystore "github.com/ascendhq/fieldcrm/internal/store/memory"
	postgresstore "github.com/ascendhq/fieldcrm/internal/store/postgres"
)

// PostgresFlags is the shared PostgreSQL configuration block, embedded by
// every command that touches the database.
type PostgresFlags struct {
	ConnString string `help:"PostgreSQL connection string" env:"FIELDCRM_POSTGRES_CONN_STRING"`

	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"FIELDCRM_POSTGRES_AUTO_MIGRATE"`
}

func (f *PostgresFlags) poolConfig() *postgresstore.PoolConfig {
	return &postgresstore.PoolConfig{
		ConnString:      f.ConnString,
		MaxConns:        f.MaxConns,
		MinConns:        f.MinConns,
		MaxConnLifetime: f.MaxConnLifetime,
		MaxConnIdleTime: f.MaxConnIdleTime,
	}
}

// connect opens the pool and optionally runs migrations.
func (f *PostgresFlags) connect(ctx context.Context) (*pgxpool.Pool, error) {
	if f.ConnString == "" {
		return nil, errors.New("PostgreSQL connection string is required (--postgres-conn-string or FIELDCRM_POSTGRES_CONN_STRING)")
	}

	pool, err := postgresstore.NewPool(ctx, f.poolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if f.AutoMigrate {
		if err := postgresstore.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return pool, nil
}

// storeSet bundles every store interface behind one build step so the
// memory and postgres paths stay symmetrical.
type storeSet struct {
	Users       store.UserStore
	Orgs        store.OrganizationStore
	Locations   store.LocationStore
	Memberships store.MembershipStore
	Customers   store.CustomerStore
	Sequences   store.SequenceStore

	pool *pgxpool.Pool
}

func (s *storeSet) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func buildStores(ctx context.Context, storeType string, pg *PostgresFlags) (*storeSet, error) {
	switch storeType {
	case "postgres":
		pool, err := pg.connect(ctx)
		if err != nil {
			return nil, err
		}
		return &storeSet{
			Users:       postgresstore.NewUserStore(pool),
			Orgs:        postgresstore.NewOrganizationStore(pool),
			Locations:   postgresstore.NewLocationStore(pool),
			Memberships: postgresstore.NewMembershipStore(pool),
			Customers:   postgresstore.NewCustomerStore(pool),
			Sequences:   postgresstore.NewSequenceStore(pool),
			pool:        pool,
		}, nil

	default:
		return &storeSet{
			Users:       memorystore.NewUserStore(),
			Orgs:        memorystore.NewOrganizationStore(),
			Locations:   memorystore.NewLocationStore(),
			Memberships: memorystore.NewMembershipStore(),
			Customers:   memorystore.NewCustomerStore(),
			Sequences:   memorystore.NewSequenceStore(),
		}, nil
	}
}
