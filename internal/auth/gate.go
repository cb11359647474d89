package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ascendhq/fieldcrm/internal/store"
	"github.com/ascendhq/fieldcrm/internal/telemetry"
)

// Gate is the authorization boundary protecting tenant-scoped data. Every
// read or write of a location-scoped entity must pass CheckAccess first,
// including fetches by primary key, which resolve the owning location and
// then check it. The decision is made against current membership state;
// tenant hints embedded in a token are never consulted.
type Gate struct {
	users       store.UserStore
	memberships store.MembershipStore
}

// NewGate creates an access gate over the given stores.
func NewGate(users store.UserStore, memberships store.MembershipStore) *Gate {
	return &Gate{users: users, memberships: memberships}
}

// CheckAccess returns nil when the user may act on the location. A user
// that no longer exists is ErrUnauthenticated. Superadmins are allowed
// unconditionally; everyone else needs a membership row for the exact
// (user, location) pair, otherwise ErrForbidden.
func (g *Gate) CheckAccess(ctx context.Context, userID, locationID int64) error {
	metrics := telemetry.GetMetrics()

	user, err := g.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			metrics.AccessDeniedTotal.Add(ctx, 1)
			return ErrUnauthenticated
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	if user.IsSuperadmin {
		metrics.AccessAllowedTotal.Add(ctx, 1)
		return nil
	}

	_, err = g.memberships.Get(ctx, userID, locationID)
	if err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			log.Debug().
				Int64("user_id", userID).
				Int64("location_id", locationID).
				Msg("access denied, no membership")
			metrics.AccessDeniedTotal.Add(ctx, 1)
			return ErrForbidden
		}
		return fmt.Errorf("failed to load membership: %w", err)
	}

	metrics.AccessAllowedTotal.Add(ctx, 1)
	return nil
}
