package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ UserStore = (*PGStore)(nil)

// BootstrapUser is a default account created when the user table is empty.
type BootstrapUser struct {
	Email    string
	Username string
	Password string
	Role     string
}

// PGStore implements UserStore using PostgreSQL. Schema creation and
// bootstrap run lazily on first use, guarded by a flag plus a mutex so
// concurrent startup executes them at most once in-process; the SQL itself
// is idempotent so concurrent processes converge too.
type PGStore struct {
	db        *sql.DB
	bootstrap []BootstrapUser

	initMu sync.Mutex
	ready  atomic.Bool
}

// NewPGStore constructs a PGStore. The bootstrap accounts are created only
// if the user table turns out to be empty.
func NewPGStore(db *sql.DB, bootstrap []BootstrapUser) *PGStore {
	return &PGStore{db: db, bootstrap: bootstrap}
}

const usersDDL = `
create table if not exists users (
	id bigserial primary key,
	email text not null unique,
	username text not null unique,
	password_hash text not null,
	role text not null default 'user',
	can_delete_own_logs boolean not null default false,
	last_login_ip text not null default '',
	last_login_device text not null default '',
	created_at timestamptz not null default now(),
	last_login_at timestamptz
)`

const permissionsDDL = `
create table if not exists user_permissions (
	owner_alias text primary key,
	can_delete_own_logs boolean not null,
	updated_at timestamptz not null default now()
)`

func (s *PGStore) ensure(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.ready.Load() {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, usersDDL); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, permissionsDDL); err != nil {
		return fmt.Errorf("create user_permissions table: %w", err)
	}
	if err := s.seedDefaults(ctx); err != nil {
		return err
	}
	s.ready.Store(true)
	return nil
}

// seedDefaults inserts the bootstrap accounts when the table is empty, so a
// fresh deployment is never left without an administrator.
func (s *PGStore) seedDefaults(ctx context.Context) error {
	if len(s.bootstrap) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, `select count(*) from users`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return tx.Commit()
	}
	for _, b := range s.bootstrap {
		hash, err := HashPassword(b.Password)
		if err != nil {
			return fmt.Errorf("hash bootstrap password: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`insert into users(email, username, password_hash, role)
			 values($1,$2,$3,$4) on conflict do nothing`,
			NormalizeEmail(b.Email), b.Username, hash, b.Role,
		)
		if err != nil {
			return fmt.Errorf("bootstrap user %s: %w", b.Username, err)
		}
	}
	return tx.Commit()
}

func (s *PGStore) CreateUser(ctx context.Context, u *User) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	row := s.db.QueryRowContext(ctx,
		`insert into users(email, username, password_hash, role, can_delete_own_logs)
		 values($1,$2,$3,$4,$5) returning id, created_at`,
		u.Email, u.Username, u.PasswordHash, u.Role, u.CanDeleteOwnLogs,
	)
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

const userColumns = `id, email, username, password_hash, role, can_delete_own_logs,
	last_login_ip, last_login_device, created_at, last_login_at`

func (s *PGStore) FindByID(ctx context.Context, id int64) (*User, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, NormalizeEmail(email))
	return scanUser(row)
}

func (s *PGStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where username=$1`, username)
	return scanUser(row)
}

func (s *PGStore) ListUsers(ctx context.Context) ([]*User, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users order by id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PGStore) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	return s.execOne(ctx,
		`update users set password_hash=$1 where id=$2`, passwordHash, userID)
}

func (s *PGStore) UpdateRole(ctx context.Context, userID int64, role string) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	return s.execOne(ctx,
		`update users set role=$1 where id=$2`, role, userID)
}

func (s *PGStore) RecordLogin(ctx context.Context, userID int64, ip, device string, at time.Time) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	return s.execOne(ctx,
		`update users set last_login_ip=$1, last_login_device=$2, last_login_at=$3 where id=$4`,
		ip, device, at.UTC(), userID)
}

// SetDelegation commits the user record and the alias-keyed mirror
// together; a partial write is an invariant violation.
func (s *PGStore) SetDelegation(ctx context.Context, userID int64, alias string, allowed bool) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`update users set can_delete_own_logs=$1 where id=$2`, allowed, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	_, err = tx.ExecContext(ctx,
		`insert into user_permissions(owner_alias, can_delete_own_logs, updated_at)
		 values($1,$2,$3)
		 on conflict (owner_alias) do update
		 set can_delete_own_logs=excluded.can_delete_own_logs, updated_at=excluded.updated_at`,
		alias, allowed, time.Now().UTC())
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PGStore) DelegationByAlias(ctx context.Context, alias string) (bool, error) {
	if err := s.ensure(ctx); err != nil {
		return false, err
	}
	var allowed bool
	err := s.db.QueryRowContext(ctx,
		`select can_delete_own_logs from user_permissions where owner_alias=$1`, alias).
		Scan(&allowed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return allowed, nil
}

func (s *PGStore) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u         User
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role,
		&u.CanDeleteOwnLogs, &u.LastLoginIP, &u.LastLoginDevice, &u.CreatedAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		u.LastLoginAt = lastLogin.Time
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
