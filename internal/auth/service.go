package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

const minPasswordLength = 8

// Service provides high level identity operations: registration, login with
// hash migration, reference resolution and permission delegation.
type Service struct {
	store UserStore
}

// NewService constructs a Service over the given store.
func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// Register creates a standard user account. Username defaults to the email
// when empty. All-digit usernames are rejected so free-text references can
// never be mistaken for numeric ids.
func (s *Service) Register(ctx context.Context, email, username, password string) (*User, error) {
	return s.createUser(ctx, email, username, password, RoleUser)
}

// CreateUser provisions an account with an explicit role (admin surface).
// The role is written with the insert itself, never as a follow-up update.
func (s *Service) CreateUser(ctx context.Context, email, username, password, role string) (*User, error) {
	if !ValidRole(role) {
		return nil, fmt.Errorf("%w: role must be %q or %q", ErrInvalidInput, RoleUser, RoleAdmin)
	}
	return s.createUser(ctx, email, username, password, role)
}

func (s *Service) createUser(ctx context.Context, email, username, password, role string) (*User, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = email
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login authenticates the identifier/password pair, transparently upgrades
// legacy password hashes and refreshes last-login metadata. Both upgrades
// are best-effort and never block a successful authentication.
func (s *Service) Login(ctx context.Context, identifier, password, ip, device string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, fmt.Errorf("%w: identifier and password are required", ErrInvalidInput)
	}
	ref, err := ParseRef(identifier)
	if err != nil {
		return nil, ErrUnauthorized
	}
	u, err := s.Resolve(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		return nil, ErrUnauthorized
	}
	if NeedsRehash(u.PasswordHash) {
		if hash, err := HashPassword(password); err == nil {
			_ = s.store.UpdatePassword(ctx, u.ID, hash)
		}
	}
	_ = s.store.RecordLogin(ctx, u.ID, ip, device, time.Now())
	return u, nil
}

// Resolve maps a reference onto the canonical user record. Dispatch follows
// the ref's shape; there is no trial-and-error across lookups.
func (s *Service) Resolve(ctx context.Context, ref Ref) (*User, error) {
	switch ref.kind {
	case refByID:
		return s.store.FindByID(ctx, ref.id)
	case refByEmail:
		return s.store.FindByEmail(ctx, ref.value)
	case refByUsername:
		return s.store.FindByUsername(ctx, ref.value)
	default:
		return nil, ErrInvalidInput
	}
}

// ListUsers returns all identity records ordered by id.
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.store.ListUsers(ctx)
}

// SetRole changes a user's role.
func (s *Service) SetRole(ctx context.Context, ref Ref, role string) (*User, error) {
	if !ValidRole(role) {
		return nil, fmt.Errorf("%w: role must be %q or %q", ErrInvalidInput, RoleUser, RoleAdmin)
	}
	u, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateRole(ctx, u.ID, role); err != nil {
		return nil, err
	}
	u.Role = role
	return u, nil
}

// SetPassword resets a user's password to a fresh bcrypt hash.
func (s *Service) SetPassword(ctx context.Context, ref Ref, password string) (*User, error) {
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	u, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdatePassword(ctx, u.ID, hash); err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	return u, nil
}

// SetDelegation grants or revokes the right to delete one's own log
// history. The user record and the alias-keyed mirror are committed
// together by the store.
func (s *Service) SetDelegation(ctx context.Context, ref Ref, allowed bool) (*User, error) {
	u, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	alias := u.Email
	if alias == "" {
		alias = u.Username
	}
	if err := s.store.SetDelegation(ctx, u.ID, alias, allowed); err != nil {
		return nil, err
	}
	u.CanDeleteOwnLogs = allowed
	return u, nil
}

// GetDelegation reads the stored delegation flag. The user record wins when
// the ref resolves; the mirror serves only pure-legacy aliases with no
// account. The admin role's implicit delegation is an authorization-layer
// override and is not reflected here.
func (s *Service) GetDelegation(ctx context.Context, ref Ref) (bool, error) {
	u, err := s.Resolve(ctx, ref)
	if err == nil {
		return u.CanDeleteOwnLogs, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if ref.kind == refByID {
		return false, ErrNotFound
	}
	allowed, err := s.store.DelegationByAlias(ctx, ref.value)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return allowed, nil
}

func validateEmail(email string) error {
	if len(email) < 3 || !strings.Contains(email, "@") || strings.ContainsAny(email, " \t") {
		return fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return nil
}

func validateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	allDigits := true
	for _, r := range username {
		if !unicode.IsDigit(r) {
			allDigits = false
			break
		}
	}
	if allDigits {
		return fmt.Errorf("%w: username must not be all digits", ErrInvalidInput)
	}
	return nil
}
