package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	legacyVersion = "v1"

	// DefaultLegacyMaxAge bounds how far in the future a legacy token's
	// embedded expiry may sit. Legacy blobs carry no issuer metadata, so
	// the server caps their effective lifetime instead of trusting the
	// embedded value alone.
	DefaultLegacyMaxAge = 7 * 24 * time.Hour
)

// LegacyCodec handles the session-token format that predates the JWT
// format: base64url("v1:<user_id>:<exp_unix>:<sig>") where sig is the hex
// HMAC-SHA256 of "<user_id>:<exp_unix>". Kept only so credentials issued
// before the cutover keep working until they expire.
type LegacyCodec struct {
	secret []byte
	maxAge time.Duration
}

// NewLegacyCodec creates a codec for the legacy blob format. A non-positive
// maxAge falls back to DefaultLegacyMaxAge.
func NewLegacyCodec(secret []byte, maxAge time.Duration) *LegacyCodec {
	if maxAge <= 0 {
		maxAge = DefaultLegacyMaxAge
	}
	return &LegacyCodec{secret: secret, maxAge: maxAge}
}

// Encode creates a signed legacy blob for the user, expiring at expiresAt.
// Only used by tests and the migration tooling; new credentials are JWTs.
func (l *LegacyCodec) Encode(userID int64, expiresAt time.Time) string {
	payload := fmt.Sprintf("%d:%d", userID, expiresAt.Unix())

	h := hmac.New(sha256.New, l.secret)
	h.Write([]byte(payload))
	sig := hex.EncodeToString(h.Sum(nil))

	signed := fmt.Sprintf("%s:%s:%s", legacyVersion, payload, sig)
	return base64.RawURLEncoding.EncodeToString([]byte(signed))
}

// Decode verifies a legacy blob and returns the embedded user id. The
// signature comparison is constant time. The embedded expiry is honored
// only within the server-side max-age window.
func (l *LegacyCodec) Decode(tokenStr string, now time.Time) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(tokenStr)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid encoding", ErrMalformed)
	}

	parts := strings.Split(string(raw), ":")
	if len(parts) != 4 {
		return 0, fmt.Errorf("%w: expected 4 parts, got %d", ErrMalformed, len(parts))
	}

	version, sub, expStr, providedSig := parts[0], parts[1], parts[2], parts[3]
	if version != legacyVersion {
		return 0, fmt.Errorf("%w: unsupported version %q", ErrMalformed, version)
	}

	payload := sub + ":" + expStr
	h := hmac.New(sha256.New, l.secret)
	h.Write([]byte(payload))
	expectedSig := hex.EncodeToString(h.Sum(nil))

	if !hmac.Equal([]byte(expectedSig), []byte(providedSig)) {
		return 0, ErrInvalidSignature
	}

	expUnix, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid expiry", ErrMalformed)
	}

	exp := time.Unix(expUnix, 0)
	if now.After(exp) {
		return 0, ErrExpired
	}
	if exp.Sub(now) > l.maxAge {
		return 0, ErrExpired
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid subject", ErrMalformed)
	}

	return userID, nil
}
