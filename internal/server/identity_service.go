package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ascendhq/fieldcrm/internal/auth"
	"github.com/ascendhq/fieldcrm/internal/models"
	"github.com/ascendhq/fieldcrm/internal/store"
	"github.com/ascendhq/fieldcrm/internal/telemetry"
	"github.com/ascendhq/fieldcrm/internal/token"
)

// ErrEmailInUse is returned by Signup when the email already has an account.
var ErrEmailInUse = errors.New("email already in use")

// IdentityService owns signup and login. It is the only place tokens are
// minted; everything downstream goes through the verifier and the gate.
type IdentityService struct {
	users       store.UserStore
	orgs        store.OrganizationStore
	locations   store.LocationStore
	memberships store.MembershipStore
	issuer      *token.TokenIssuer
	hasher      auth.PasswordHasher
}

// NewIdentityService creates an identity service over the given stores.
func NewIdentityService(
	users store.UserStore,
	orgs store.OrganizationStore,
	locations store.LocationStore,
	memberships store.MembershipStore,
	issuer *token.TokenIssuer,
	hasher auth.PasswordHasher,
) *IdentityService {
	return &IdentityService{
		users:       users,
		orgs:        orgs,
		locations:   locations,
		memberships: memberships,
		issuer:      issuer,
		hasher:      hasher,
	}
}

// SignupParams are the inputs for creating a new account with its first
// organization and location.
type SignupParams struct {
	Email             string
	Password          string
	FullName          string
	OrganizationName  string
	FirstLocationName string
}

// Session is an issued credential plus the user it names.
type Session struct {
	Token string
	User  *models.User
}

// Signup creates a user, their organization, the first location and an
// owner membership, then issues a session token scoped to that location.
func (s *IdentityService) Signup(ctx context.Context, p SignupParams) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return nil, errors.New("email is required")
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     p.FullName,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	org := &models.Organization{Name: p.OrganizationName}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	loc := &models.Location{OrganizationID: org.ID, Name: p.FirstLocationName}
	if err := s.locations.Create(ctx, loc); err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}

	membership := &models.Membership{UserID: user.ID, LocationID: loc.ID, Role: models.RoleOwner}
	if err := s.memberships.Put(ctx, membership); err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	tok, err := s.issueFor(user, &token.TenantHints{
		OrganizationID: org.ID,
		LocationID:     loc.ID,
		Role:           models.RoleOwner,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("user_id", user.ID).
		Int64("organization_id", org.ID).
		Int64("location_id", loc.ID).
		Msg("Signed up new account")

	return &Session{Token: tok, User: user}, nil
}

// Login authenticates an email/password pair and issues a session token.
// Unknown email, deactivated account and wrong password are all the same
// auth.ErrUnauthenticated; nothing distinguishes them externally.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, auth.ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.IsActive || !s.hasher.Verify(password, user.PasswordHash) {
		return nil, auth.ErrUnauthenticated
	}

	tok, err := s.issueFor(user, s.loginHints(ctx, user.ID))
	if err != nil {
		return nil, err
	}

	return &Session{Token: tok, User: user}, nil
}

// loginHints captures the user's first membership as advisory tenant
// context for the token. Best effort: a user with no memberships simply
// gets a token without hints.
func (s *IdentityService) loginHints(ctx context.Context, userID int64) *token.TenantHints {
	memberships, err := s.memberships.ListByUser(ctx, userID)
	if err != nil || len(memberships) == 0 {
		return nil
	}

	first := memberships[0]
	loc, err := s.locations.Get(ctx, first.LocationID)
	if err != nil {
		return nil
	}

	return &token.TenantHints{
		OrganizationID: loc.OrganizationID,
		LocationID:     loc.ID,
		Role:           first.Role,
	}
}

func (s *IdentityService) issueFor(user *models.User, hints *token.TenantHints) (string, error) {
	tok, err := s.issuer.Issue(user.ID, 0, hints)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	telemetry.GetMetrics().TokensIssuedTotal.Add(context.Background(), 1)

	return tok, nil
}

// Profile describes the authenticated user and the locations they can act
// on, for UI bootstrapping.
type Profile struct {
	User      *models.User
	Locations []*models.Location
}

// Me returns the profile for an authenticated user id.
func (s *IdentityService) Me(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, auth.ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	memberships, err := s.memberships.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	profile := &Profile{User: user}
	for _, m := range memberships {
		loc, err := s.locations.Get(ctx, m.LocationID)
		if err != nil {
			if errors.Is(err, store.ErrLocationNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load location: %w", err)
		}
		profile.Locations = append(profile.Locations, loc)
	}

	return profile, nil
}
