package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"tasktrack.org/internal/auth"
	"tasktrack.org/internal/obs"
	"tasktrack.org/internal/tracker"
)

const serviceName = "tasktrack-api"

// ReadyProbe is a readiness check. A nil DB means the in-memory store, which
// is always ready.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// Options wires the API to its collaborators.
type Options struct {
	Service        *tracker.Service
	Auth           *auth.Authenticator
	Ready          readinessChecker
	Version        string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies are CIDRs or addresses allowed to set X-Forwarded-For.
	TrustedProxies []string
}

// API is the HTTP layer.
type API struct {
	router  *mux.Router
	svc     *tracker.Service
	auth    *auth.Authenticator
	ready   readinessChecker
	version string
	origins []string
	limiter *rateLimiter
}

func New(opts Options) (*API, error) {
	if opts.Service == nil {
		return nil, errors.New("httpapi: tracker service is required")
	}
	if opts.Auth == nil {
		return nil, errors.New("httpapi: authenticator is required")
	}
	if opts.Ready == nil {
		opts.Ready = ReadyProbe{}
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 20
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 40
	}
	trusted, err := ParseTrustedProxies(opts.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("httpapi: %w", err)
	}
	limiter := newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	limiter.trusted = trusted
	a := &API{
		router:  mux.NewRouter(),
		svc:     opts.Service,
		auth:    opts.Auth,
		ready:   opts.Ready,
		version: opts.Version,
		origins: opts.CORSOrigins,
		limiter: limiter,
	}
	obs.Init()
	a.routes()
	return a, nil
}

func (a *API) routes() {
	r := a.router
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/healthz", a.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.Ready).Methods(http.MethodGet)
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/auth/login", a.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/profile", a.handleProfile).Methods(http.MethodGet)

	r.HandleFunc("/tasks", a.handleListTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks", a.handleCreateTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}", a.handleUpdateTask).Methods(http.MethodPut)
	r.HandleFunc("/tasks/{id}", a.handleDeleteTask).Methods(http.MethodDelete)

	r.HandleFunc("/organizations", a.handleListOrganizations).Methods(http.MethodGet)
	r.HandleFunc("/organizations", a.handleCreateOrganization).Methods(http.MethodPost)
	r.HandleFunc("/organizations/{id}", a.handleDeleteOrganization).Methods(http.MethodDelete)

	r.HandleFunc("/users", a.handleListUsers).Methods(http.MethodGet)
	r.HandleFunc("/users", a.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/role", a.handlePromote).Methods(http.MethodPatch)
}

// Handler returns the router wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = a.withAuth(h)
	h = obs.Instrument(h)
	h = a.limiter.Middleware(h)
	h = CORS(h, a.origins)
	h = SecurityHeaders(h)
	h = MaxBodyBytes(h, maxBodyBytes)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.ready.Check(ctx); err != nil {
		obs.Logger().Warn().Err(err).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  "dependency unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
