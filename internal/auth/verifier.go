package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ascendhq/fieldcrm/internal/token"
)

// Verifier recovers a user id from a presented credential. It tries the
// JWT format first, then the legacy signed blob, and fails closed. Every
// rejected credential yields ErrUnauthenticated so callers cannot probe
// which check failed.
type Verifier struct {
	codecs []*token.Codec
	legacy []*token.LegacyCodec
}

// VerifierOption configures optional verifier behavior.
type VerifierOption func(*verifierOptions)

type verifierOptions struct {
	secondarySecret []byte
	legacyMaxAge    time.Duration
}

// WithSecondarySecret accepts tokens signed with a previous secret during a
// rotation window. New tokens are always signed with the primary.
func WithSecondarySecret(secret []byte) VerifierOption {
	return func(o *verifierOptions) {
		o.secondarySecret = secret
	}
}

// WithLegacyMaxAge overrides the server-side lifetime cap applied to legacy
// blob tokens.
func WithLegacyMaxAge(maxAge time.Duration) VerifierOption {
	return func(o *verifierOptions) {
		o.legacyMaxAge = maxAge
	}
}

// NewVerifier creates a verifier for the given primary secret.
func NewVerifier(secret []byte, opts ...VerifierOption) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: missing signing secret", ErrNotConfigured)
	}

	options := &verifierOptions{}
	for _, opt := range opts {
		opt(options)
	}

	v := &Verifier{}

	codec, err := token.NewCodec(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	v.codecs = append(v.codecs, codec)
	v.legacy = append(v.legacy, token.NewLegacyCodec(secret, options.legacyMaxAge))

	if len(options.secondarySecret) > 0 {
		secondary, err := token.NewCodec(options.secondarySecret)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
		}
		v.codecs = append(v.codecs, secondary)
		v.legacy = append(v.legacy, token.NewLegacyCodec(options.secondarySecret, options.legacyMaxAge))
	}

	return v, nil
}

// Verify validates a credential string and returns the user id it names.
// The claimed user is not checked for existence here; that is the caller's
// responsibility before any authorization decision.
func (v *Verifier) Verify(tokenStr string) (int64, error) {
	if tokenStr == "" {
		return 0, ErrUnauthenticated
	}

	for _, codec := range v.codecs {
		claims, err := codec.Decode(tokenStr)
		if err != nil {
			log.Debug().Err(err).Msg("token decode failed")
			continue
		}
		userID, err := userIDFromClaims(claims)
		if err != nil {
			log.Debug().Err(err).Msg("token carries no usable subject")
			continue
		}
		return userID, nil
	}

	now := time.Now()
	for _, legacy := range v.legacy {
		userID, err := legacy.Decode(tokenStr, now)
		if err != nil {
			log.Debug().Err(err).Msg("legacy token decode failed")
			continue
		}
		return userID, nil
	}

	return 0, ErrUnauthenticated
}

// userIDFromClaims prefers the explicit user_id claim and falls back to
// parsing sub, which older tokens populated exclusively.
func userIDFromClaims(claims *token.Claims) (int64, error) {
	if claims.UserID != 0 {
		return claims.UserID, nil
	}
	if claims.Subject == "" {
		return 0, fmt.Errorf("missing subject claim")
	}
	return strconv.ParseInt(claims.Subject, 10, 64)
}
