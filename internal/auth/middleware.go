package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ascendhq/fieldcrm/internal/models"
	"github.com/ascendhq/fieldcrm/internal/store"
	"github.com/ascendhq/fieldcrm/internal/telemetry"
)

type contextKey int

const userContextKey contextKey = iota

// UserFromContext extracts the authenticated user from the request context.
// Returns nil if no user is present (unauthenticated request).
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

// TokenExtractor pulls the raw credential string out of a request. The
// Authorization header is the primary transport; a named cookie is the
// fallback for browser sessions. Query-parameter extraction is off unless
// explicitly enabled and exists only for test tooling.
type TokenExtractor struct {
	CookieName      string
	AllowQueryParam bool
}

// FromRequest returns the bearer string, or "" when none is present.
func (e *TokenExtractor) FromRequest(r *http.Request) string {
	if tok := extractBearerToken(r); tok != "" {
		return tok
	}

	if e.CookieName != "" {
		if cookie, err := r.Cookie(e.CookieName); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}

	if e.AllowQueryParam {
		if tok := r.URL.Query().Get("token"); tok != "" {
			return tok
		}
	}

	return ""
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, rest, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(rest)
}

// Middleware returns an HTTP middleware that authenticates every request.
// It verifies the presented credential, confirms the claimed user still
// exists and is active, and stores the user in the request context. All
// failures produce the same 401 response.
func Middleware(verifier *Verifier, users store.UserStore, extractor *TokenExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID, err := verifier.Verify(extractor.FromRequest(r))
			if err != nil {
				telemetry.GetMetrics().TokenVerifyFailuresTotal.Add(ctx, 1)
				unauthorized(w)
				return
			}

			user, err := users.Get(ctx, userID)
			if err != nil {
				if !errors.Is(err, store.ErrUserNotFound) {
					log.Error().Err(err).Int64("user_id", userID).Msg("failed to load user for request")
				}
				unauthorized(w)
				return
			}
			if !user.IsActive {
				unauthorized(w)
				return
			}

			ctx = context.WithValue(ctx, userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
