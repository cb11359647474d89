package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ascendhq/fieldcrm/internal/auth"
	"github.com/ascendhq/fieldcrm/internal/models"
	"github.com/ascendhq/fieldcrm/internal/store"
)

// Config carries the handler-level settings for the HTTP API.
type Config struct {
	// CookieName is the session cookie written by login and signup. Empty
	// disables the cookie; bearer tokens always work.
	CookieName string

	// CookieTTL bounds the session cookie lifetime. Should match the token
	// TTL so the cookie does not outlive the credential inside it.
	CookieTTL time.Duration

	// SecureCookies marks session cookies Secure. Off only for local dev.
	SecureCookies bool
}

// API is the HTTP surface of the service.
type API struct {
	identity  *IdentityService
	customers *CustomerService
	verifier  *auth.Verifier
	users     store.UserStore
	cfg       Config
}

// NewAPI creates the HTTP API.
func NewAPI(identity *IdentityService, customers *CustomerService, verifier *auth.Verifier, users store.UserStore, cfg Config) *API {
	return &API{
		identity:  identity,
		customers: customers,
		verifier:  verifier,
		users:     users,
		cfg:       cfg,
	}
}

// Routes builds the routed handler. Authenticated routes sit behind the
// token middleware; signup, login and health do not.
func (a *API) Routes() http.Handler {
	extractor := &auth.TokenExtractor{CookieName: a.cfg.CookieName}
	authn := auth.Middleware(a.verifier, a.users, extractor)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealth)
	mux.HandleFunc("POST /v1/auth/signup", a.handleSignup)
	mux.HandleFunc("POST /v1/auth/login", a.handleLogin)
	mux.HandleFunc("POST /v1/auth/logout", a.handleLogout)

	mux.Handle("GET /v1/me", authn(http.HandlerFunc(a.handleMe)))
	mux.Handle("GET /v1/locations/{id}/customers", authn(http.HandlerFunc(a.handleListCustomers)))
	mux.Handle("POST /v1/locations/{id}/customers", authn(http.HandlerFunc(a.handleCreateCustomer)))
	mux.Handle("GET /v1/customers/{id}", authn(http.HandlerFunc(a.handleGetCustomer)))
	mux.Handle("POST /v1/customers/{id}/archive", authn(http.HandlerFunc(a.handleArchiveCustomer)))
	mux.Handle("POST /v1/customers/{id}/restore", authn(http.HandlerFunc(a.handleRestoreCustomer)))

	return mux
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type signupRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FullName         string `json:"full_name"`
	OrganizationName string `json:"organization_name"`
	LocationName     string `json:"location_name"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	session, err := a.identity.Signup(r.Context(), SignupParams{
		Email:             req.Email,
		Password:          req.Password,
		FullName:          req.FullName,
		OrganizationName:  req.OrganizationName,
		FirstLocationName: req.LocationName,
	})
	if err != nil {
		if errors.Is(err, ErrEmailInUse) {
			writeError(w, http.StatusConflict, "email already in use")
			return
		}
		a.writeServiceError(w, r, err)
		return
	}

	a.setSessionCookie(w, session.Token)
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := a.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	a.setSessionCookie(w, session.Token)
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (a *API) handleLogout(w http.ResponseWriter, _ *http.Request) {
	if a.cfg.CookieName != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     a.cfg.CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   a.cfg.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type profileResponse struct {
	User      userResponse       `json:"user"`
	Locations []locationResponse `json:"locations"`
}

type locationResponse struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	Name           string `json:"name"`
	Timezone       string `json:"timezone"`
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	profile, err := a.identity.Me(r.Context(), user.ID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	resp := profileResponse{
		User:      toUserResponse(profile.User),
		Locations: []locationResponse{},
	}
	for _, loc := range profile.Locations {
		resp.Locations = append(resp.Locations, locationResponse{
			ID:             loc.ID,
			OrganizationID: loc.OrganizationID,
			Name:           loc.Name,
			Timezone:       loc.Timezone,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type createCustomerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type customerResponse struct {
	ID          int64  `json:"id"`
	CustomerUID string `json:"customer_uid"`
	LocationID  int64  `json:"location_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	IsArchived  bool   `json:"is_archived"`
}

func (a *API) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	locationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req createCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user := auth.UserFromContext(r.Context())
	customer, err := a.customers.Create(r.Context(), user.ID, CreateCustomerParams{
		LocationID: locationID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
	})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCustomerResponse(customer))
}

func (a *API) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	locationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	user := auth.UserFromContext(r.Context())
	customers, err := a.customers.List(r.Context(), user.ID, locationID, r.URL.Query().Get("search"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	resp := make([]customerResponse, 0, len(customers))
	for _, c := range customers {
		resp = append(resp, toCustomerResponse(c))
	}

	writeJSON(w, http.StatusOK, map[string]any{"customers": resp})
}

func (a *API) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	user := auth.UserFromContext(r.Context())
	customer, err := a.customers.Get(r.Context(), user.ID, customerID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

func (a *API) handleArchiveCustomer(w http.ResponseWriter, r *http.Request) {
	a.setCustomerArchived(w, r, true)
}

func (a *API) handleRestoreCustomer(w http.ResponseWriter, r *http.Request) {
	a.setCustomerArchived(w, r, false)
}

func (a *API) setCustomerArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	user := auth.UserFromContext(r.Context())
	customer, err := a.customers.SetArchived(r.Context(), user.ID, customerID, archived)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

// writeServiceError maps service errors onto the wire. A valid credential
// with the wrong tenant gets the same response as a missing resource, so a
// caller can never probe whether another tenant's id exists.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, auth.ErrForbidden),
		errors.Is(err, store.ErrCustomerNotFound),
		errors.Is(err, store.ErrLocationNotFound),
		errors.Is(err, store.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrAllocationConflict),
		errors.Is(err, store.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (a *API) setSessionCookie(w http.ResponseWriter, token string) {
	if a.cfg.CookieName == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.cfg.CookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func toSessionResponse(s *Session) sessionResponse {
	return sessionResponse{Token: s.Token, User: toUserResponse(s.User)}
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, FullName: u.FullName}
}

func toCustomerResponse(c *models.Customer) customerResponse {
	return customerResponse{
		ID:          c.ID,
		CustomerUID: c.CustomerUID,
		LocationID:  c.LocationID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		Phone:       c.Phone,
		IsArchived:  c.IsArchived,
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
