package auth

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ UserStore = (*MemoryStore)(nil)

// MemoryStore implements UserStore in process memory. It backs tests and
// store-less development runs; semantics mirror PGStore, including the
// at-most-once bootstrap of default accounts.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[int64]*User
	mirror    map[string]bool
	nextID    int64
	bootstrap []BootstrapUser
	seeded    bool
}

// NewMemoryStore constructs an empty MemoryStore with optional bootstrap
// accounts.
func NewMemoryStore(bootstrap ...BootstrapUser) *MemoryStore {
	return &MemoryStore{
		users:     make(map[int64]*User),
		mirror:    make(map[string]bool),
		nextID:    1,
		bootstrap: bootstrap,
	}
}

func (s *MemoryStore) ensure() error {
	if s.seeded {
		return nil
	}
	s.seeded = true
	if len(s.users) > 0 {
		return nil
	}
	for _, b := range s.bootstrap {
		hash, err := HashPassword(b.Password)
		if err != nil {
			return err
		}
		u := &User{
			Email:        NormalizeEmail(b.Email),
			Username:     b.Username,
			PasswordHash: hash,
			Role:         b.Role,
			CreatedAt:    time.Now().UTC(),
		}
		s.insertLocked(u)
	}
	return nil
}

func (s *MemoryStore) insertLocked(u *User) {
	u.ID = s.nextID
	s.nextID++
	s.users[u.ID] = u
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(); err != nil {
		return err
	}
	for _, existing := range s.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return ErrConflict
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	clone := *u
	s.insertLocked(&clone)
	u.ID = clone.ID
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id int64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findBy(func(u *User) bool { return u.Email == NormalizeEmail(email) })
}

func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return s.findBy(func(u *User) bool { return u.Username == username })
}

func (s *MemoryStore) findBy(match func(*User) bool) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(); err != nil {
		return nil, err
	}
	for _, u := range s.users {
		if match(u) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(); err != nil {
		return nil, err
	}
	users := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		clone := *u
		users = append(users, &clone)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *MemoryStore) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	return s.update(userID, func(u *User) { u.PasswordHash = passwordHash })
}

func (s *MemoryStore) UpdateRole(ctx context.Context, userID int64, role string) error {
	return s.update(userID, func(u *User) { u.Role = role })
}

func (s *MemoryStore) RecordLogin(ctx context.Context, userID int64, ip, device string, at time.Time) error {
	return s.update(userID, func(u *User) {
		u.LastLoginIP = ip
		u.LastLoginDevice = device
		u.LastLoginAt = at.UTC()
	})
}

func (s *MemoryStore) SetDelegation(ctx context.Context, userID int64, alias string, allowed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(); err != nil {
		return err
	}
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	// Both writes happen under one lock, matching the transactional
	// boundary of the SQL store.
	u.CanDeleteOwnLogs = allowed
	s.mirror[alias] = allowed
	return nil
}

func (s *MemoryStore) DelegationByAlias(ctx context.Context, alias string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(); err != nil {
		return false, err
	}
	allowed, ok := s.mirror[alias]
	if !ok {
		return false, ErrNotFound
	}
	return allowed, nil
}

func (s *MemoryStore) update(userID int64, fn func(*User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(); err != nil {
		return err
	}
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	fn(u)
	return nil
}
