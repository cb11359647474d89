package token

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLegacyCodec_RoundTrip(t *testing.T) {
	codec := NewLegacyCodec(testSecret, 0)
	now := time.Now()

	tok := codec.Encode(42, now.Add(time.Hour))

	userID, err := codec.Decode(tok, now)
	require.NoError(t, err)
	require.Equal(t, int64(42), userID)
}

func TestLegacyCodec_Decode(t *testing.T) {
	codec := NewLegacyCodec(testSecret, 0)
	now := time.Now()

	t.Run("rejects an expired token", func(t *testing.T) {
		tok := codec.Encode(42, now.Add(-time.Minute))

		_, err := codec.Decode(tok, now)
		require.ErrorIs(t, err, ErrExpired)
	})

	t.Run("rejects an expiry beyond the max age", func(t *testing.T) {
		// embedded expiry far past the server-side cap
		tok := codec.Encode(42, now.Add(30*24*time.Hour))

		_, err := codec.Decode(tok, now)
		require.ErrorIs(t, err, ErrExpired)
	})

	t.Run("rejects a forged signature", func(t *testing.T) {
		other := NewLegacyCodec([]byte("another-secret-another-secret-32"), 0)
		tok := other.Encode(42, now.Add(time.Hour))

		_, err := codec.Decode(tok, now)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("rejects a tampered user id", func(t *testing.T) {
		tok := codec.Encode(42, now.Add(time.Hour))

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err)

		parts := strings.Split(string(raw), ":")
		require.Len(t, parts, 4)
		parts[1] = "43"
		tampered := base64.RawURLEncoding.EncodeToString([]byte(strings.Join(parts, ":")))

		_, err = codec.Decode(tampered, now)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("rejects an unsupported version", func(t *testing.T) {
		tok := codec.Encode(42, now.Add(time.Hour))

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err)

		parts := strings.Split(string(raw), ":")
		parts[0] = "v2"
		tampered := base64.RawURLEncoding.EncodeToString([]byte(strings.Join(parts, ":")))

		_, err = codec.Decode(tampered, now)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("rejects invalid base64", func(t *testing.T) {
		_, err := codec.Decode("%%%not-base64%%%", now)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("rejects the wrong number of parts", func(t *testing.T) {
		blob := base64.RawURLEncoding.EncodeToString([]byte("v1:42:123"))

		_, err := codec.Decode(blob, now)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("honors a custom max age", func(t *testing.T) {
		short := NewLegacyCodec(testSecret, time.Minute)

		tok := short.Encode(42, now.Add(time.Hour))
		_, err := short.Decode(tok, now)
		require.ErrorIs(t, err, ErrExpired)

		tok = short.Encode(42, now.Add(30*time.Second))
		userID, err := short.Decode(tok, now)
		require.NoError(t, err)
		require.Equal(t, int64(42), userID)
	})
}
