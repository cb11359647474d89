package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ascendhq/fieldcrm/internal/auth"
	"github.com/ascendhq/fieldcrm/internal/logger"
	"github.com/ascendhq/fieldcrm/internal/models"
	"github.com/ascendhq/fieldcrm/internal/store"
	postgresstore "github.com/ascendhq/fieldcrm/internal/store/postgres"
)

type SeedCmd struct {
	Admin    SeedAdminCmd    `cmd:"" help:"Create a superadmin user"`
	Fixtures SeedFixturesCmd `cmd:"" help:"Load organizations, locations and users from a YAML file"`
}

type SeedAdminCmd struct {
	Email    string `help:"admin email address" required:""`
	Password string `help:"admin password" required:""`
	FullName string `help:"admin display name" default:"Administrator"`

	PostgresStore PostgresFlags `embed:"" prefix:"postgres-"`
}

// Run creates the superadmin if absent. Re-running with the same email is a
// no-op, not an error.
func (c *SeedAdminCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	pool, err := c.PostgresStore.connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	hasher := &auth.BcryptHasher{}
	hash, err := hasher.Hash(c.Password)
	if err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}

	users := postgresstore.NewUserStore(pool)
	user := &models.User{
		Email:        c.Email,
		PasswordHash: hash,
		FullName:     c.FullName,
		IsActive:     true,
		IsSuperadmin: true,
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			log.Info().Str("email", c.Email).Msg("Admin user already exists, nothing to do")
			return nil
		}
		return err
	}

	log.Info().Int64("user_id", user.ID).Str("email", user.Email).Msg("Created admin user")
	return nil
}

type SeedFixturesCmd struct {
	File string `help:"path to the fixtures YAML file" required:"" type:"existingfile"`

	PostgresStore PostgresFlags `embed:"" prefix:"postgres-"`
}

// fixtureFile is the on-disk seed format. Members reference users by email
// so fixtures stay readable.
type fixtureFile struct {
	Users []struct {
		Email      string `yaml:"email"`
		Password   string `yaml:"password"`
		FullName   string `yaml:"full_name"`
		Superadmin bool   `yaml:"superadmin"`
	} `yaml:"users"`
	Organizations []struct {
		Name      string `yaml:"name"`
		Locations []struct {
			Name     string `yaml:"name"`
			Timezone string `yaml:"timezone"`
			Members  []struct {
				Email string `yaml:"email"`
				Role  string `yaml:"role"`
			} `yaml:"members"`
		} `yaml:"locations"`
	} `yaml:"organizations"`
}

func (c *SeedFixturesCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read fixtures file: %w", err)
	}

	var fixtures fixtureFile
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("failed to parse fixtures file: %w", err)
	}

	pool, err := c.PostgresStore.connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := postgresstore.NewUserStore(pool)
	orgs := postgresstore.NewOrganizationStore(pool)
	locations := postgresstore.NewLocationStore(pool)
	memberships := postgresstore.NewMembershipStore(pool)
	hasher := &auth.BcryptHasher{}

	userIDs := make(map[string]int64)
	for _, u := range fixtures.Users {
		hash, err := hasher.Hash(u.Password)
		if err != nil {
			return fmt.Errorf("invalid password for %s: %w", u.Email, err)
		}
		user := &models.User{
			Email:        u.Email,
			PasswordHash: hash,
			FullName:     u.FullName,
			IsActive:     true,
			IsSuperadmin: u.Superadmin,
		}
		if err := users.Create(ctx, user); err != nil {
			if errors.Is(err, store.ErrUserAlreadyExists) {
				existing, err := users.GetByEmail(ctx, u.Email)
				if err != nil {
					return err
				}
				userIDs[existing.Email] = existing.ID
				continue
			}
			return err
		}
		userIDs[user.Email] = user.ID
	}

	for _, o := range fixtures.Organizations {
		org := &models.Organization{Name: o.Name}
		if err := orgs.Create(ctx, org); err != nil {
			return err
		}

		for _, l := range o.Locations {
			loc := &models.Location{
				OrganizationID: org.ID,
				Name:           l.Name,
				Timezone:       l.Timezone,
			}
			if err := locations.Create(ctx, loc); err != nil {
				return err
			}

			for _, m := range l.Members {
				userID, ok := userIDs[m.Email]
				if !ok {
					return fmt.Errorf("location %q references unknown user %q", l.Name, m.Email)
				}
				role := m.Role
				if role == "" {
					role = models.RoleTech
				}
				if err := memberships.Put(ctx, &models.Membership{
					UserID:     userID,
					LocationID: loc.ID,
					Role:       role,
				}); err != nil {
					return err
				}
			}
		}
	}

	log.Info().
		Int("users", len(fixtures.Users)).
		Int("organizations", len(fixtures.Organizations)).
		Msg("Fixtures loaded")
	return nil
}
