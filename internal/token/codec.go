package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSignature means the token signature does not verify under
	// the configured secret, or the token names a different algorithm.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrMalformed means the token cannot be parsed into the expected
	// structure at all.
	ErrMalformed = errors.New("malformed token")

	// ErrExpired means the token parsed and verified but its expiry claim
	// is in the past.
	ErrExpired = errors.New("token expired")
)

// Claims is the claim set carried by an access token. The tenant fields are
// hints captured at issuance for UI defaulting; authorization re-checks live
// membership and never trusts them.
type Claims struct {
	jwt.RegisteredClaims
	UserID         int64  `json:"user_id"`
	OrganizationID int64  `json:"org_id,omitempty"`
	LocationID     int64  `json:"location_id,omitempty"`
	Role           string `json:"role,omitempty"`
}

// Codec signs and parses access tokens with HMAC-SHA256. Decode rejects any
// token whose header names another algorithm, regardless of whether its
// signature would verify, so a token cannot downgrade its own verification.
type Codec struct {
	secret []byte
}

// NewCodec creates a codec for the given signing secret.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret is required")
	}
	return &Codec{secret: secret}, nil
}

// Encode signs the claim set and returns the compact token string.
func (c *Codec) Encode(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode parses and verifies a token string. Expiry is validated when an
// exp claim is present; tokens without one are accepted here and it is the
// caller's policy whether to require it.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
	}

	if !parsed.Valid {
		return nil, ErrInvalidSignature
	}

	return claims, nil
}
