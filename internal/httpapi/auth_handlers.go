package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"phishguard.org/internal/audit"
	"phishguard.org/internal/auth"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Device     string `json:"device"`
}

type loginResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	ExpiresIn int64  `json:"expires_in"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.opts.Users.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrConflict):
			writeError(w, r, http.StatusConflict, "email or username already registered")
		case errors.Is(err, auth.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, err.Error())
		default:
			writeError(w, r, http.StatusServiceUnavailable, "store unavailable")
		}
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"user_id":  user.ID,
		"email":    user.Email,
		"username": user.Username,
		"role":     user.Role,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" {
		identifier = strings.TrimSpace(req.Username)
	}
	if identifier == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "identifier and password are required")
		return
	}

	user, err := a.opts.Users.Login(r.Context(), identifier, req.Password, clientIP(r), req.Device)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, auth.ErrUnauthorized):
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		default:
			writeError(w, r, http.StatusServiceUnavailable, "store unavailable")
		}
		return
	}

	token, _, err := a.opts.Tokens.Issue(user)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id":    user.ID,
		"identifier": identifier,
		"ip":         clientIP(r),
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		Role:      user.Role,
		UserID:    user.ID,
		Email:     user.Email,
		Username:  user.Username,
		ExpiresIn: int64(a.opts.TokenTTL.Seconds()),
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := a.requireAuth(w, r, "")
	if !ok {
		return
	}
	user, err := a.opts.Users.Resolve(r.Context(), auth.ByID(id.UserID))
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			// Token outlived the account.
			writeError(w, r, http.StatusUnauthorized, "account no longer exists")
			return
		}
		writeError(w, r, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":             user.ID,
		"email":               user.Email,
		"username":            user.Username,
		"role":                user.Role,
		"can_delete_own_logs": user.CanDeleteOwnLogs || user.Role == auth.RoleAdmin,
		"last_login_at":       user.LastLoginAt,
	})
}
