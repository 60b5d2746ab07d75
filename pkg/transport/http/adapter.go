package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/firestorm/stockmanagement/pkg/account"
	"github.com/firestorm/stockmanagement/pkg/api"
	"github.com/firestorm/stockmanagement/pkg/auth"
	"github.com/firestorm/stockmanagement/pkg/auth/jwt"
	"github.com/firestorm/stockmanagement/pkg/auth/password"
	"github.com/firestorm/stockmanagement/pkg/debug"
	"github.com/firestorm/stockmanagement/pkg/observability"
	"github.com/firestorm/stockmanagement/pkg/storage"
	"github.com/firestorm/stockmanagement/pkg/transport"
)

// tokenType is the scheme clients put in front of the token.
const tokenType = "Bearer"

// LoginVerifier checks a username and password pair.
// *credentials.Authenticator satisfies it.
type LoginVerifier interface {
	Authenticate(ctx context.Context, username, password string) (*auth.Principal, error)
}

// HealthChecker reports whether the credential store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the collaborators the adapter dispatches to.
type Deps struct {
	Accounts *account.Service
	Logins   LoginVerifier
	Codec    *jwt.Codec
	Health   HealthChecker

	// Chain resolves the request identity. Usually a single bearer
	// token authenticator.
	Chain *auth.AuthChain
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64

	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 1 << 20,
		MetricsPath: "/metrics",
	}
}

// Adapter serves the account and authentication API over HTTP. Every
// route declares its authorization requirement at registration.
type Adapter struct {
	deps   Deps
	mux    *http.ServeMux
	config Config
}

// NewAdapter creates an HTTP adapter and registers all routes.
func NewAdapter(deps Deps, cfg Config) *Adapter {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		deps:   deps,
		mux:    http.NewServeMux(),
		config: cfg,
	}

	admin := auth.HasRole(auth.RoleAdmin)

	a.handle("POST /api/v1/auth/register", auth.Public, a.handleRegister)
	a.handle("POST /api/v1/auth/login", auth.Public, a.handleLogin)
	a.handle("GET /api/v1/auth/me", auth.Authenticated(), a.handleMe)

	a.handle("GET /api/v1/users/me", auth.Authenticated(), a.handleGetSelf)
	a.handle("PUT /api/v1/users/me", auth.Authenticated(), a.handleUpdateProfile)
	a.handle("PUT /api/v1/users/me/password", auth.Authenticated(), a.handleChangePassword)

	a.handle("GET /api/v1/users", admin, a.handleListUsers)
	a.handle("GET /api/v1/users/{username}", admin, a.handleGetUser)
	a.handle("DELETE /api/v1/users/{username}", admin, a.handleDeleteUser)
	a.handle("PUT /api/v1/users/{username}/roles", admin, a.handleSetRoles)
	a.handle("PUT /api/v1/users/{username}/enabled", admin, a.handleSetEnabled)

	a.mux.HandleFunc("GET /healthz", a.handleHealthz)
	a.mux.HandleFunc("GET /readyz", a.handleReadyz)
	if cfg.MetricsPath != "" {
		a.mux.Handle("GET "+cfg.MetricsPath, promhttp.Handler())
	}

	return a
}

// handle registers h behind an authorization gate.
func (a *Adapter) handle(pattern string, q auth.Requirement, h http.HandlerFunc) {
	a.mux.Handle(pattern, auth.Require(q, nil)(h))
}

// Handler returns the http.Handler for this adapter, with request
// identity resolution in front of the routes.
func (a *Adapter) Handler() http.Handler {
	bypass := []string{"/healthz", "/readyz"}
	if a.config.MetricsPath != "" {
		bypass = append(bypass, a.config.MetricsPath)
	}

	chain := a.deps.Chain
	if chain == nil {
		chain = auth.NewAuthChain()
	}
	return auth.Middleware(chain, bypass)(a.mux)
}

// handleRegister handles POST /api/v1/auth/register.
func (a *Adapter) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !a.decode(w, r, &req) {
		return
	}

	p, err := a.deps.Accounts.Register(r.Context(), account.Registration{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Gender:   req.Gender,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	transport.WriteJSON(w, http.StatusCreated, api.RegisterResponse{
		Message:  "user registered successfully",
		Username: p.Username,
	})
}

// handleLogin handles POST /api/v1/auth/login. Every credential failure
// gets the same 401 body.
func (a *Adapter) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !a.decode(w, r, &req) {
		return
	}

	p, err := a.deps.Logins.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			observability.LoginAttemptsTotal.WithLabelValues("failure").Inc()
			slog.Info("login failed", "request_id", transport.RequestIDFromContext(r.Context()))
			transport.WriteErrorResponse(w,
				api.NewUnauthorizedError("invalid username or password").WithCode("invalid_credentials"),
				http.StatusUnauthorized,
			)
			return
		}
		observability.LoginAttemptsTotal.WithLabelValues("error").Inc()
		a.writeError(w, r, err)
		return
	}

	token, expiresAt, err := a.deps.Codec.Issue(p.Username, req.RememberMe)
	if err != nil {
		observability.LoginAttemptsTotal.WithLabelValues("error").Inc()
		a.writeError(w, r, err)
		return
	}
	observability.LoginAttemptsTotal.WithLabelValues("success").Inc()
	debug.Log("auth", "login succeeded", "subject", p.Username, "remember_me", req.RememberMe)

	transport.WriteJSON(w, http.StatusOK, api.AuthResponse{
		Token:     token,
		Type:      tokenType,
		Subject:   p.Username,
		Email:     p.Email,
		Roles:     auth.RoleNames(p.Roles),
		ExpiresAt: expiresAt.UTC(),
	})
}

// handleMe handles GET /api/v1/auth/me.
func (a *Adapter) handleMe(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	transport.WriteJSON(w, http.StatusOK, api.IdentityResponse{
		Subject: id.Subject,
		Email:   id.Email,
		Roles:   auth.RoleNames(id.Roles),
	})
}

// handleGetSelf handles GET /api/v1/users/me.
func (a *Adapter) handleGetSelf(w http.ResponseWriter, r *http.Request) {
	p, err := a.deps.Accounts.Get(r.Context(), subject(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, toUserResponse(p))
}

// handleUpdateProfile handles PUT /api/v1/users/me.
func (a *Adapter) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateProfileRequest
	if !a.decode(w, r, &req) {
		return
	}

	p, err := a.deps.Accounts.UpdateProfile(r.Context(), subject(r), req.Email, req.Gender)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, toUserResponse(p))
}

// handleChangePassword handles PUT /api/v1/users/me/password.
func (a *Adapter) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req api.ChangePasswordRequest
	if !a.decode(w, r, &req) {
		return
	}

	if err := a.deps.Accounts.ChangePassword(r.Context(), subject(r), req.CurrentPassword, req.NewPassword); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListUsers handles GET /api/v1/users.
func (a *Adapter) handleListUsers(w http.ResponseWriter, r *http.Request) {
	all, err := a.deps.Accounts.List(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	list := api.UserList{Object: "list", Data: make([]api.UserResponse, 0, len(all))}
	for _, p := range all {
		list.Data = append(list.Data, toUserResponse(p))
	}
	transport.WriteJSON(w, http.StatusOK, list)
}

// handleGetUser handles GET /api/v1/users/{username}.
func (a *Adapter) handleGetUser(w http.ResponseWriter, r *http.Request) {
	p, err := a.deps.Accounts.Get(r.Context(), r.PathValue("username"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, toUserResponse(p))
}

// handleDeleteUser handles DELETE /api/v1/users/{username}.
func (a *Adapter) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.Accounts.Delete(r.Context(), r.PathValue("username")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetRoles handles PUT /api/v1/users/{username}/roles.
func (a *Adapter) handleSetRoles(w http.ResponseWriter, r *http.Request) {
	var req api.SetRolesRequest
	if !a.decode(w, r, &req) {
		return
	}

	p, err := a.deps.Accounts.SetRoles(r.Context(), r.PathValue("username"), req.Roles)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, toUserResponse(p))
}

// handleSetEnabled handles PUT /api/v1/users/{username}/enabled.
func (a *Adapter) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	var req api.SetEnabledRequest
	if !a.decode(w, r, &req) {
		return
	}

	p, err := a.deps.Accounts.SetEnabled(r.Context(), r.PathValue("username"), req.Enabled)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, toUserResponse(p))
}

func (a *Adapter) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports 503 while the credential store is unreachable.
func (a *Adapter) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.deps.Health != nil {
		if err := a.deps.Health.HealthCheck(r.Context()); err != nil {
			slog.Warn("readiness check failed", "error", err)
			transport.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// decode reads a JSON body into v and validates it. On failure it writes
// the error response and returns false.
func (a *Adapter) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return false
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return false
	}

	if apiErr := api.ValidateRequest(v); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return false
	}
	return true
}

// writeError maps a domain error to an API error. Unclassified errors are
// logged and reported as a generic 500.
func (a *Adapter) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, storage.ErrNotFound):
		apiErr = api.NewNotFoundError("account not found")
	case errors.Is(err, account.ErrUsernameTaken):
		apiErr = api.NewInvalidRequestError("username", "username is already taken").WithCode("username_taken")
	case errors.Is(err, account.ErrEmailTaken):
		apiErr = api.NewInvalidRequestError("email", "email is already in use").WithCode("email_taken")
	case errors.Is(err, account.ErrInvalidUsername):
		apiErr = api.NewInvalidRequestError("username", err.Error())
	case errors.Is(err, account.ErrIncorrectPassword):
		apiErr = api.NewInvalidRequestError("current_password", "password is incorrect").WithCode("incorrect_password")
	case errors.Is(err, password.ErrWeakPassword):
		apiErr = api.NewInvalidRequestError("password", err.Error()).WithCode("weak_password")
	case errors.Is(err, account.ErrNoRoles), errors.Is(err, auth.ErrUnknownRole):
		apiErr = api.NewInvalidRequestError("roles", err.Error())
	default:
		slog.Error("request failed",
			"request_id", transport.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		apiErr = api.NewServerError("internal server error")
	}
	transport.WriteAPIError(w, apiErr)
}

// subject returns the username of the bound identity. Only called behind
// an Authenticated gate.
func subject(r *http.Request) string {
	sub, _ := auth.SubjectFromContext(r.Context())
	return sub
}

func toUserResponse(p *auth.Principal) api.UserResponse {
	return api.UserResponse{
		ID:        p.ID,
		Username:  p.Username,
		Email:     p.Email,
		Gender:    p.Gender,
		Roles:     auth.RoleNames(p.Roles),
		Enabled:   p.Enabled,
		CreatedAt: p.CreatedAt,
	}
}
