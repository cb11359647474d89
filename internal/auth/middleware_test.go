package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ascendhq/fieldcrm/internal/models"
	memorystore "github.com/ascendhq/fieldcrm/internal/store/memory"
	"github.com/ascendhq/fieldcrm/internal/token"
)

func TestTokenExtractor_FromRequest(t *testing.T) {
	extractor := &TokenExtractor{CookieName: "session"}

	t.Run("bearer header wins", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer abc123")
		r.AddCookie(&http.Cookie{Name: "session", Value: "cookie-token"})

		require.Equal(t, "abc123", extractor.FromRequest(r))
	})

	t.Run("scheme is case-insensitive", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "bearer abc123")

		require.Equal(t, "abc123", extractor.FromRequest(r))
	})

	t.Run("other schemes are ignored", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

		require.Empty(t, extractor.FromRequest(r))
	})

	t.Run("falls back to the cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "session", Value: "cookie-token"})

		require.Equal(t, "cookie-token", extractor.FromRequest(r))
	})

	t.Run("query parameter is off by default", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/?token=qp-token", nil)

		require.Empty(t, extractor.FromRequest(r))
	})

	t.Run("query parameter works when enabled", func(t *testing.T) {
		permissive := &TokenExtractor{AllowQueryParam: true}
		r := httptest.NewRequest(http.MethodGet, "/?token=qp-token", nil)

		require.Equal(t, "qp-token", permissive.FromRequest(r))
	})
}

func TestMiddleware(t *testing.T) {
	ctx := context.Background()
	secret := []byte("0123456789abcdef0123456789abcdef")

	codec, err := token.NewCodec(secret)
	require.NoError(t, err)
	issuer := token.NewIssuer(codec, 0)

	verifier, err := NewVerifier(secret)
	require.NoError(t, err)

	users := memorystore.NewUserStore()
	active := &models.User{Email: "active@example.com", IsActive: true}
	require.NoError(t, users.Create(ctx, active))
	inactive := &models.User{Email: "inactive@example.com", IsActive: false}
	require.NoError(t, users.Create(ctx, inactive))

	var seen *models.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(verifier, users, &TokenExtractor{})(next)

	do := func(t *testing.T, authorization string) *httptest.ResponseRecorder {
		t.Helper()
		seen = nil
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if authorization != "" {
			r.Header.Set("Authorization", authorization)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	t.Run("valid token passes and sets the user", func(t *testing.T) {
		tok, err := issuer.Issue(active.ID, time.Hour, nil)
		require.NoError(t, err)

		w := do(t, "Bearer "+tok)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, seen)
		require.Equal(t, active.ID, seen.ID)
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		w := do(t, "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
		require.Nil(t, seen)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		w := do(t, "Bearer not-a-token")
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Nil(t, seen)
	})

	t.Run("token for a deleted user is rejected", func(t *testing.T) {
		tok, err := issuer.Issue(999, time.Hour, nil)
		require.NoError(t, err)

		w := do(t, "Bearer "+tok)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Nil(t, seen)
	})

	t.Run("token for a deactivated user is rejected", func(t *testing.T) {
		tok, err := issuer.Issue(inactive.ID, time.Hour, nil)
		require.NoError(t, err)

		w := do(t, "Bearer "+tok)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Nil(t, seen)
	})
}
