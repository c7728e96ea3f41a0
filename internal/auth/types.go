package auth

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// User is an identity record. Email and Username are each globally unique;
// Username defaults to the email when unset at registration.
type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	Username         string    `json:"username"`
	PasswordHash     string    `json:"-"`
	Role             string    `json:"role"`
	CanDeleteOwnLogs bool      `json:"can_delete_own_logs"`
	LastLoginIP      string    `json:"last_login_ip,omitempty"`
	LastLoginDevice  string    `json:"last_login_device,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	LastLoginAt      time.Time `json:"last_login_at,omitempty"`
}

// LegacyAliases returns the string identifiers this user may have been
// logged under before numeric ids existed: email first, then username,
// deduplicated.
func LegacyAliases(u *User) []string {
	if u == nil {
		return nil
	}
	aliases := make([]string, 0, 2)
	if u.Email != "" {
		aliases = append(aliases, u.Email)
	}
	if u.Username != "" && u.Username != u.Email {
		aliases = append(aliases, u.Username)
	}
	return aliases
}
