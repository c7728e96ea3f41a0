package httpapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"phishguard.org/internal/audit"
	"phishguard.org/internal/auth"
)

type adminCreateUserRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

type setPasswordRequest struct {
	Password string `json:"password"`
}

type setPermissionsRequest struct {
	CanDeleteOwnLogs bool `json:"can_delete_own_logs"`
}

func userView(u *auth.User) map[string]any {
	return map[string]any{
		"user_id":             u.ID,
		"email":               u.Email,
		"username":            u.Username,
		"role":                u.Role,
		"can_delete_own_logs": u.CanDeleteOwnLogs,
		"last_login_ip":       u.LastLoginIP,
		"last_login_device":   u.LastLoginDevice,
		"created_at":          u.CreatedAt,
		"last_login_at":       u.LastLoginAt,
	}
}

// refFromRequest parses the {ref} path segment into an id/email/username
// reference.
func refFromRequest(r *http.Request) (auth.Ref, error) {
	return auth.ParseRef(mux.Vars(r)["ref"])
}

func (a *API) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		users, err := a.opts.Users.ListUsers(r.Context())
		if err != nil {
			writeError(w, r, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		views := make([]map[string]any, 0, len(users))
		for _, u := range users {
			views = append(views, userView(u))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"users": views,
			"count": len(views),
		})
	case http.MethodPost:
		var req adminCreateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.opts.Users.CreateUser(r.Context(), req.Email, req.Username, req.Password, req.Role)
		if err != nil {
			handleUserError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.user.create", map[string]any{
			"user_id":  user.ID,
			"email":    user.Email,
			"role":     user.Role,
			"admin_id": caller.UserID,
		})
		writeJSON(w, http.StatusOK, userView(user))
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAdminSetRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	ref, err := refFromRequest(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "user reference is required")
		return
	}
	var req setRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.opts.Users.SetRole(r.Context(), ref, req.Role)
	if err != nil {
		handleUserError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.user.set_role", map[string]any{
		"user_id":  user.ID,
		"role":     user.Role,
		"admin_id": caller.UserID,
	})
	writeJSON(w, http.StatusOK, userView(user))
}

func (a *API) handleAdminSetPassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	ref, err := refFromRequest(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "user reference is required")
		return
	}
	var req setPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "password is required")
		return
	}
	user, err := a.opts.Users.SetPassword(r.Context(), ref, req.Password)
	if err != nil {
		handleUserError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.user.set_password", map[string]any{
		"user_id":  user.ID,
		"admin_id": caller.UserID,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": user.ID,
		"status":  "password updated",
	})
}

func (a *API) handleAdminSetPermissions(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	ref, err := refFromRequest(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "user reference is required")
		return
	}
	var req setPermissionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.opts.Users.SetDelegation(r.Context(), ref, req.CanDeleteOwnLogs)
	if err != nil {
		handleUserError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.user.set_permissions", map[string]any{
		"user_id":             user.ID,
		"can_delete_own_logs": user.CanDeleteOwnLogs,
		"admin_id":            caller.UserID,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":             user.ID,
		"can_delete_own_logs": user.CanDeleteOwnLogs,
	})
}

func handleUserError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusServiceUnavailable, "store unavailable")
	}
}
