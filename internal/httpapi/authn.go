package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"phishguard.org/internal/auth"
	"phishguard.org/internal/obs"
)

const (
	authHeader       = "Authorization"
	bearerPrefix     = "Bearer "
	adminTokenHeader = "X-ADMIN-TOKEN"
)

var errNoCredential = errors.New("missing bearer token")

// authenticate extracts and validates the bearer token. It returns
// errNoCredential when no Authorization header is present, and the token
// service's sentinel errors otherwise.
func (a *API) authenticate(r *http.Request) (auth.Identity, error) {
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header == "" {
		return auth.Identity{}, errNoCredential
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerPrefix)) {
		return auth.Identity{}, errNoCredential
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return auth.Identity{}, errNoCredential
	}
	claims, err := a.opts.Tokens.Validate(token)
	if err != nil {
		return auth.Identity{}, err
	}
	return auth.IdentityFromClaims(claims), nil
}

// requireAuth authenticates the request and, when minRole is non-empty,
// enforces it. No credential or a bad token is 401; a valid identity with
// the wrong role is 403. The distinction is contractual: clients render
// "log in" for the former and "no permission" for the latter.
func (a *API) requireAuth(w http.ResponseWriter, r *http.Request, minRole string) (auth.Identity, bool) {
	id, err := a.authenticate(r)
	if err != nil {
		switch {
		case errors.Is(err, errNoCredential):
			obs.ObserveAuthFailure("missing")
			writeError(w, r, http.StatusUnauthorized, "authentication required")
		case errors.Is(err, auth.ErrTokenExpired):
			obs.ObserveAuthFailure("expired")
			writeError(w, r, http.StatusUnauthorized, "token expired, please log in again")
		default:
			obs.ObserveAuthFailure("invalid")
			writeError(w, r, http.StatusUnauthorized, "invalid token")
		}
		return auth.Identity{}, false
	}
	if minRole != "" && minRole != id.Role && !id.IsAdmin() {
		obs.ObserveAuthFailure("forbidden")
		writeError(w, r, http.StatusForbidden, "insufficient role")
		return auth.Identity{}, false
	}
	return id, true
}

// hasLegacyAdminToken reports whether the request carries the shared admin
// secret. The comparison is constant-time; an unset secret disables the path.
func (a *API) hasLegacyAdminToken(r *http.Request) bool {
	if a.opts.AdminToken == "" {
		return false
	}
	presented := r.Header.Get(adminTokenHeader)
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(a.opts.AdminToken)) == 1
}

// requireAdmin passes callers holding either the legacy shared secret or an
// admin bearer token. Legacy callers act without a user identity; ok
// reports success and id.UserID is zero for the legacy path.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	if a.hasLegacyAdminToken(r) {
		return auth.Identity{Role: auth.RoleAdmin}, true
	}
	if r.Header.Get(adminTokenHeader) != "" && r.Header.Get(authHeader) == "" {
		// A wrong shared secret is rejected outright, never falls through
		// to an anonymous 401 that hints at the bearer path.
		obs.ObserveAuthFailure("invalid")
		writeError(w, r, http.StatusUnauthorized, "invalid admin token")
		return auth.Identity{}, false
	}
	return a.requireAuth(w, r, auth.RoleAdmin)
}
