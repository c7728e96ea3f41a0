package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"testing"
)

func defaultBootstrap() []BootstrapUser {
	return []BootstrapUser{
		{Email: "admin@phishguard.local", Username: "admin", Password: "admin123", Role: RoleAdmin},
		{Email: "user@phishguard.local", Username: "user", Password: "user123", Role: RoleUser},
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	u, err := svc.Register(ctx, "New@X.com", "", "longenough1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "new@x.com" {
		t.Fatalf("email not normalized: %s", u.Email)
	}
	if u.Username != "new@x.com" {
		t.Fatalf("username should default to email, got %s", u.Username)
	}
	if u.Role != RoleUser {
		t.Fatalf("fresh registration must be a standard user, got %s", u.Role)
	}
	if u.CanDeleteOwnLogs {
		t.Fatal("fresh user must not have delegation")
	}

	got, err := svc.Login(ctx, "new@x.com", "longenough1", "1.2.3.4", "test-agent")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("login resolved wrong user: %d != %d", got.ID, u.ID)
	}

	fresh, err := svc.Resolve(ctx, ByID(u.ID))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if fresh.LastLoginIP != "1.2.3.4" || fresh.LastLoginDevice != "test-agent" {
		t.Fatalf("last-login metadata not refreshed: %+v", fresh)
	}
	if fresh.LastLoginAt.IsZero() {
		t.Fatal("last_login_at not set")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	cases := []struct {
		name                      string
		email, username, password string
	}{
		{"bad email", "not-an-email", "", "longenough1"},
		{"short password", "a@x.com", "", "short"},
		{"all digit username", "b@x.com", "12345", "longenough1"},
	}
	for _, tc := range cases {
		if _, err := svc.Register(ctx, tc.email, tc.username, tc.password); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}

	if _, err := svc.Register(ctx, "dup@x.com", "dup", "longenough1"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, "dup@x.com", "other", "longenough1"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}
}

func TestLoginUpgradesLegacyHash(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	sum := sha256.Sum256([]byte("oldpassword"))
	legacy := &User{
		Email:        "legacy@x.com",
		Username:     "legacy",
		PasswordHash: hex.EncodeToString(sum[:]),
		Role:         RoleUser,
	}
	if err := store.CreateUser(ctx, legacy); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if _, err := svc.Login(ctx, "legacy@x.com", "oldpassword", "", ""); err != nil {
		t.Fatalf("legacy login: %v", err)
	}
	upgraded, err := store.FindByID(ctx, legacy.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if NeedsRehash(upgraded.PasswordHash) {
		t.Fatal("hash was not upgraded on verify")
	}
	// New scheme, same password.
	if _, err := svc.Login(ctx, "legacy@x.com", "oldpassword", "", ""); err != nil {
		t.Fatalf("post-upgrade login: %v", err)
	}
}

func TestLoginRejectsUnknownAndWrongPassword(t *testing.T) {
	svc := NewService(NewMemoryStore(defaultBootstrap()...))
	ctx := context.Background()

	if _, err := svc.Login(ctx, "ghost@x.com", "whatever1", "", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown user, got %v", err)
	}
	if _, err := svc.Login(ctx, "admin", "not-the-password", "", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong password, got %v", err)
	}
	if _, err := svc.Login(ctx, "", "", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank credentials, got %v", err)
	}
}

func TestBootstrapIdempotentUnderConcurrency(t *testing.T) {
	store := NewMemoryStore(defaultBootstrap()...)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.ListUsers(ctx)
		}()
	}
	wg.Wait()

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected exactly 2 bootstrap users, got %d", len(users))
	}
	var admins, standard int
	for _, u := range users {
		switch u.Role {
		case RoleAdmin:
			admins++
		case RoleUser:
			standard++
		}
	}
	if admins != 1 || standard != 1 {
		t.Fatalf("expected one admin and one user, got %d/%d", admins, standard)
	}
}

func TestDelegationLifecycle(t *testing.T) {
	store := NewMemoryStore(defaultBootstrap()...)
	svc := NewService(store)
	ctx := context.Background()

	u, err := svc.Resolve(ctx, ByUsername("user"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got, err := svc.GetDelegation(ctx, ByID(u.ID)); err != nil || got {
		t.Fatalf("expected default delegation false, got %v err=%v", got, err)
	}

	if _, err := svc.SetDelegation(ctx, ByUsername("user"), true); err != nil {
		t.Fatalf("SetDelegation: %v", err)
	}
	if got, err := svc.GetDelegation(ctx, ByID(u.ID)); err != nil || !got {
		t.Fatalf("expected delegation true, got %v err=%v", got, err)
	}

	// Mirror converges with the user record on every write.
	if allowed, err := store.DelegationByAlias(ctx, u.Email); err != nil || !allowed {
		t.Fatalf("mirror did not converge: %v err=%v", allowed, err)
	}

	if _, err := svc.SetDelegation(ctx, ByUsername("nobody"), true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetDelegationLegacyAliasFallback(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	// A pure-legacy alias has a mirror row but no account.
	if err := func() error {
		store.mu.Lock()
		defer store.mu.Unlock()
		store.mirror["ghost@legacy.com"] = true
		return nil
	}(); err != nil {
		t.Fatal(err)
	}

	if got, err := svc.GetDelegation(ctx, ByEmail("ghost@legacy.com")); err != nil || !got {
		t.Fatalf("expected mirror fallback true, got %v err=%v", got, err)
	}
	if got, err := svc.GetDelegation(ctx, ByEmail("never-seen@x.com")); err != nil || got {
		t.Fatalf("expected false for unknown alias, got %v err=%v", got, err)
	}
}

func TestSetRoleAndPassword(t *testing.T) {
	store := NewMemoryStore(defaultBootstrap()...)
	svc := NewService(store)
	ctx := context.Background()

	u, err := svc.SetRole(ctx, ByUsername("user"), RoleAdmin)
	if err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if u.Role != RoleAdmin {
		t.Fatalf("role not updated: %s", u.Role)
	}
	if _, err := svc.SetRole(ctx, ByUsername("user"), "owner"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}

	if _, err := svc.SetPassword(ctx, ByUsername("user"), "rotated-pass-1"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if _, err := svc.Login(ctx, "user", "rotated-pass-1", "", ""); err != nil {
		t.Fatalf("login with rotated password: %v", err)
	}
	if _, err := svc.SetPassword(ctx, ByUsername("user"), "short"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for short password, got %v", err)
	}
}

func TestCreateUserWithRole(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	admin, err := svc.CreateUser(ctx, "ops@x.com", "ops", "longenough1", RoleAdmin)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if admin.Role != RoleAdmin {
		t.Fatalf("expected admin role, got %s", admin.Role)
	}
	if _, err := svc.CreateUser(ctx, "x@x.com", "x", "longenough1", "root"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// brokenRoleUpdateStore rejects role updates, so an account can only end up
// as admin if the role was part of the insert itself.
type brokenRoleUpdateStore struct {
	UserStore
}

func (s brokenRoleUpdateStore) UpdateRole(ctx context.Context, id int64, role string) error {
	return errors.New("role update unavailable")
}

func TestCreateUserSetsRoleOnInsert(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(brokenRoleUpdateStore{UserStore: store})
	ctx := context.Background()

	admin, err := svc.CreateUser(ctx, "ops@x.com", "ops", "longenough1", RoleAdmin)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	persisted, err := store.FindByID(ctx, admin.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if persisted.Role != RoleAdmin {
		t.Fatalf("expected persisted admin role, got %s", persisted.Role)
	}
}
