package token

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the token lifetime applied when the caller does not specify
// one. Long-lived UI sessions re-authenticate weekly.
const DefaultTTL = 7 * 24 * time.Hour

// Issuer identifies tokens minted by this service.
const Issuer = "fieldcrm"

// TenantHints are advisory tenant claims embedded at issuance. They record
// the tenant context the user logged in under; they do not grant access.
type TenantHints struct {
	OrganizationID int64
	LocationID     int64
	Role           string
}

// TokenIssuer builds claim sets for authenticated users and signs them via
// the codec. Pure construction, no I/O.
type TokenIssuer struct {
	codec      *Codec
	defaultTTL time.Duration
}

// NewIssuer creates an issuer. A non-positive defaultTTL falls back to
// DefaultTTL.
func NewIssuer(codec *Codec, defaultTTL time.Duration) *TokenIssuer {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &TokenIssuer{codec: codec, defaultTTL: defaultTTL}
}

// Issue creates a signed token for the user, expiring after ttl. A
// non-positive ttl uses the issuer default. hints may be nil.
func (i *TokenIssuer) Issue(userID int64, ttl time.Duration, hints *TenantHints) (string, error) {
	if ttl <= 0 {
		ttl = i.defaultTTL
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	}

	if hints != nil {
		claims.OrganizationID = hints.OrganizationID
		claims.LocationID = hints.LocationID
		claims.Role = hints.Role
	}

	return i.codec.Encode(claims)
}
