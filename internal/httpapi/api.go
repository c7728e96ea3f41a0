// Package httpapi is the HTTP boundary: routing, authentication, and the
// JSON handlers for prediction, log access, and user administration.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"phishguard.org/internal/auth"
	"phishguard.org/internal/classifier"
	"phishguard.org/internal/features"
	"phishguard.org/internal/logstore"
	"phishguard.org/internal/obs"
)

// ReadyProbe reports whether the backing database answers. A nil DB (memory
// mode) is always ready.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries everything the HTTP layer depends on.
type Options struct {
	Users      *auth.Service
	Tokens     *auth.TokenService
	Logs       logstore.Store
	Models     *classifier.Registry
	Extractor  *features.Extractor
	ReadyProbe ReadyProbe

	// AdminToken is the legacy shared secret; empty disables the header path.
	AdminToken   string
	TokenTTL     time.Duration
	MaxURLLength int
	Version      string

	// RateBurst/RatePerSecond enable per-IP throttling when both positive.
	RateBurst     int
	RatePerSecond int
}

// API is the HTTP layer.
type API struct {
	router *mux.Router
	opts   Options
}

func New(opts Options) *API {
	a := &API{
		router: mux.NewRouter(),
		opts:   opts,
	}

	a.router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	a.router.HandleFunc("/features/schema", a.handleFeaturesSchema).Methods(http.MethodGet)
	a.router.HandleFunc("/predict", a.handlePredict).Methods(http.MethodPost)

	a.router.HandleFunc("/auth/register", a.handleRegister).Methods(http.MethodPost)
	a.router.HandleFunc("/auth/login", a.handleLogin).Methods(http.MethodPost)
	a.router.HandleFunc("/auth/me", a.handleMe).Methods(http.MethodGet)

	a.router.HandleFunc("/logs", a.handleListLogs).Methods(http.MethodGet)
	a.router.HandleFunc("/logs", a.handleDeleteLogs).Methods(http.MethodDelete)
	a.router.HandleFunc("/logs/mine", a.handleDeleteMyLogs).Methods(http.MethodDelete)

	a.router.HandleFunc("/admin/users", a.handleAdminUsers).
		Methods(http.MethodGet, http.MethodPost)
	a.router.HandleFunc("/admin/users/{ref}/role", a.handleAdminSetRole).Methods(http.MethodPost)
	a.router.HandleFunc("/admin/users/{ref}/password", a.handleAdminSetPassword).Methods(http.MethodPost)
	a.router.HandleFunc("/admin/users/{ref}/permissions", a.handleAdminSetPermissions).Methods(http.MethodPost)

	a.router.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	a.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	a.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the full middleware chain around the router.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = MaxBodyBytes(h, 1<<20)
	if a.opts.RateBurst > 0 && a.opts.RatePerSecond > 0 {
		h = RateLimit(h, a.opts.RateBurst, a.opts.RatePerSecond)
	}
	h = LoggingJSON(h)
	h = RequestID(h)
	h = SecurityHeaders(h)
	return obs.Instrument(h)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := a.opts.ReadyProbe.Check(r.Context()); err != nil {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        status,
		"service":       "phishguard-api",
		"version":       a.opts.Version,
		"model_loaded":  a.opts.Models.Ready(),
		"model_version": a.opts.Models.Version(),
	})
}

func (a *API) handleFeaturesSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, features.Schema())
}
