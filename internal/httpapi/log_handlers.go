package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"phishguard.org/internal/audit"
	"phishguard.org/internal/auth"
	"phishguard.org/internal/logstore"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

func parseLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return defaultLogLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if n > maxLogLimit {
		n = maxLogLimit
	}
	return n, nil
}

// aliasesFor returns the caller's legacy aliases from the store when the
// account still resolves, falling back to the token claims.
func (a *API) aliasesFor(r *http.Request, id auth.Identity) []string {
	user, err := a.opts.Users.Resolve(r.Context(), auth.ByID(id.UserID))
	if err == nil {
		return auth.LegacyAliases(user)
	}
	return auth.LegacyAliases(&auth.User{Email: id.Email, Username: id.Username})
}

// scopeFromQuery builds the admin-requested scope from user_id/username
// query params; both absent means the full stream.
func (a *API) scopeFromQuery(r *http.Request) (logstore.Scope, error) {
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("user_id")); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			return logstore.Scope{}, errors.New("user_id must be a positive integer")
		}
		var aliases []string
		if user, err := a.opts.Users.Resolve(r.Context(), auth.ByID(userID)); err == nil {
			aliases = auth.LegacyAliases(user)
		}
		return logstore.ForUser(userID, aliases), nil
	}
	if alias := strings.TrimSpace(q.Get("username")); alias != "" {
		return logstore.ForAlias(alias), nil
	}
	return logstore.All(), nil
}

func (a *API) handleListLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := a.requireAuth(w, r, "")
	if !ok {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var scope logstore.Scope
	q := r.URL.Query()
	filtered := q.Get("user_id") != "" || q.Get("username") != ""
	switch {
	case id.IsAdmin():
		scope, err = a.scopeFromQuery(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	case filtered:
		writeError(w, r, http.StatusForbidden, "only admins may view other users' logs")
		return
	default:
		scope = logstore.ForUser(id.UserID, a.aliasesFor(r, id))
	}

	entries, err := a.opts.Logs.ListRecent(r.Context(), scope, limit)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "log store unavailable")
		return
	}
	if entries == nil {
		entries = []*logstore.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":  entries,
		"count": len(entries),
		"scope": scope.String(),
	})
}

func (a *API) handleDeleteLogs(w http.ResponseWriter, r *http.Request) {
	admin, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	scope, err := a.scopeFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	deleted, err := a.opts.Logs.DeleteScoped(r.Context(), scope)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "log store unavailable")
		return
	}
	_ = audit.LogEvent(r.Context(), "logs.delete", map[string]any{
		"scope":    scope.String(),
		"deleted":  deleted,
		"admin_id": admin.UserID,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": deleted,
		"scope":   scope.String(),
	})
}

func (a *API) handleDeleteMyLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := a.requireAuth(w, r, "")
	if !ok {
		return
	}
	// Admins implicitly hold delegation; everyone else needs the stored
	// grant flipped on by an admin first.
	if !id.IsAdmin() {
		allowed, err := a.opts.Users.GetDelegation(r.Context(), auth.ByID(id.UserID))
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				writeError(w, r, http.StatusUnauthorized, "account no longer exists")
				return
			}
			writeError(w, r, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		if !allowed {
			writeError(w, r, http.StatusForbidden, "deleting your own logs has not been enabled for this account")
			return
		}
	}
	scope := logstore.ForUser(id.UserID, a.aliasesFor(r, id))
	deleted, err := a.opts.Logs.DeleteScoped(r.Context(), scope)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "log store unavailable")
		return
	}
	_ = audit.LogEvent(r.Context(), "logs.delete_own", map[string]any{
		"user_id": id.UserID,
		"deleted": deleted,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": deleted,
	})
}
