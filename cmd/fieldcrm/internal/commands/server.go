package commands

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mr-tron/base58"

	"github.com/ascendhq/fieldcrm/internal/auth"
	httpmiddleware "github.com/ascendhq/fieldcrm/internal/http"
	"github.com/ascendhq/fieldcrm/internal/logger"
	"github.com/ascendhq/fieldcrm/internal/sequence"
	"github.com/ascendhq/fieldcrm/internal/server"
	"github.com/ascendhq/fieldcrm/internal/telemetry"
	"github.com/ascendhq/fieldcrm/internal/token"
)

type ServerCmd struct {
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"FIELDCRM_LISTEN"`

	Auth AuthFlags `embed:""`

	CookieName    string `help:"session cookie name" default:"fieldcrm_token" env:"FIELDCRM_COOKIE_NAME"`
	SecureCookies bool   `help:"mark session cookies Secure" default:"true" negatable:"" env:"FIELDCRM_SECURE_COOKIES"`

	Tracing bool `help:"enable tracing" default:"false" env:"FIELDCRM_TRACING"`

	StoreType     string        `help:"store type (memory or postgres)" default:"memory" env:"FIELDCRM_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresFlags `embed:"" prefix:"postgres-"`
}

// AuthFlags configures token signing and verification.
type AuthFlags struct {
	SigningSecret   string        `help:"secret key for signing session tokens" env:"FIELDCRM_SIGNING_SECRET"`
	SecondarySecret string        `help:"previous signing secret accepted during rotation" env:"FIELDCRM_SECONDARY_SECRET"`
	TokenTTL        time.Duration `help:"session token TTL" default:"168h" env:"FIELDCRM_TOKEN_TTL"`
	LegacyMaxAge    time.Duration `help:"lifetime cap applied to legacy tokens" default:"168h" env:"FIELDCRM_LEGACY_MAX_AGE"`
}

func (f *AuthFlags) Validate() error {
	if f.SigningSecret == "" {
		return errors.New("signing secret is required (--auth-signing-secret or FIELDCRM_SIGNING_SECRET)")
	}
	if len(f.SigningSecret) < 32 {
		return errors.New("signing secret must be at least 32 bytes (256 bits) for HMAC-SHA256")
	}
	if f.SecondarySecret != "" && len(f.SecondarySecret) < 32 {
		return errors.New("secondary secret must be at least 32 bytes (256 bits) for HMAC-SHA256")
	}
	return nil
}

// fingerprint gives a loggable identifier for a secret without revealing it.
func fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base58.Encode(sum[:8])
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "fieldcrm-server", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	stores, err := buildStores(ctx, c.StoreType, &c.PostgresStore)
	if err != nil {
		return err
	}
	defer stores.Close()
	log.Info().Str("store", c.StoreType).Msg("Stores ready")

	codec, err := token.NewCodec([]byte(c.Auth.SigningSecret))
	if err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}
	issuer := token.NewIssuer(codec, c.Auth.TokenTTL)

	verifierOpts := []auth.VerifierOption{auth.WithLegacyMaxAge(c.Auth.LegacyMaxAge)}
	if c.Auth.SecondarySecret != "" {
		verifierOpts = append(verifierOpts, auth.WithSecondarySecret([]byte(c.Auth.SecondarySecret)))
		log.Info().
			Str("primary", fingerprint(c.Auth.SigningSecret)).
			Str("secondary", fingerprint(c.Auth.SecondarySecret)).
			Msg("Signing secret rotation window active")
	} else {
		log.Info().Str("primary", fingerprint(c.Auth.SigningSecret)).Msg("Signing secret loaded")
	}

	verifier, err := auth.NewVerifier([]byte(c.Auth.SigningSecret), verifierOpts...)
	if err != nil {
		return fmt.Errorf("failed to create verifier: %w", err)
	}

	gate := auth.NewGate(stores.Users, stores.Memberships)
	allocator := sequence.NewAllocator(stores.Sequences)
	hasher := &auth.BcryptHasher{}

	identity := server.NewIdentityService(stores.Users, stores.Orgs, stores.Locations, stores.Memberships, issuer, hasher)
	customers := server.NewCustomerService(stores.Customers, stores.Locations, gate, allocator)

	api := server.NewAPI(identity, customers, verifier, stores.Users, server.Config{
		CookieName:    c.CookieName,
		CookieTTL:     c.Auth.TokenTTL,
		SecureCookies: c.SecureCookies,
	})

	handler := api.Routes()
	handler = httpmiddleware.RequestLogger(log)(handler)
	handler = httpmiddleware.ClientIPMiddleware()(handler)
	handler = httpmiddleware.RequestIDMiddleware()(handler)

	srv := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Msg("Listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
	}

	return nil
}
