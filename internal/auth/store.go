package auth

import (
	"context"
	"time"
)

// UserStore describes persistence operations for identity records and the
// alias-keyed delegation mirror. Implementations ensure their schema lazily
// on first use and bootstrap default accounts into an empty table exactly
// once.
type UserStore interface {
	// CreateUser inserts u and assigns its durable id. Returns ErrConflict
	// when the email or username is already taken.
	CreateUser(ctx context.Context, u *User) error

	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)

	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	UpdateRole(ctx context.Context, userID int64, role string) error
	RecordLogin(ctx context.Context, userID int64, ip, device string, at time.Time) error

	// SetDelegation writes the can_delete_own_logs flag to the user record
	// and upserts the same value into the alias-keyed mirror in a single
	// transaction. The user record is the source of truth; the mirror only
	// serves lookups for pure-legacy aliases.
	SetDelegation(ctx context.Context, userID int64, alias string, allowed bool) error

	// DelegationByAlias reads the mirror. Returns ErrNotFound when the
	// alias has no row.
	DelegationByAlias(ctx context.Context, alias string) (bool, error)
}
