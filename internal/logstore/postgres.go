package logstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

const logsDDL = `
create table if not exists prediction_logs (
	id bigserial primary key,
	owner_user_id bigint,
	owner_alias text not null default 'anonymous',
	url text not null,
	masked_url text not null default '',
	features_json text not null default '{}',
	prediction integer not null,
	probability double precision not null default 0,
	device text not null default '',
	ip text not null default '',
	metadata_json text not null default '{}',
	model_version text not null default '',
	created_unix bigint not null
)`

const logsOwnerIdxDDL = `create index if not exists prediction_logs_owner_idx on prediction_logs (owner_user_id)`

const logsAliasIdxDDL = `create index if not exists prediction_logs_alias_idx on prediction_logs (owner_alias)`

const entryColumns = `id, owner_user_id, owner_alias, url, masked_url, features_json, prediction, probability, device, ip, metadata_json, model_version, created_unix`

// PGStore keeps prediction logs in PostgreSQL. Schema setup is lazy so the
// service can come up before the database does.
type PGStore struct {
	db          *sql.DB
	logFullURLs bool

	initMu sync.Mutex
	ready  atomic.Bool
}

// NewPGStore wraps db. When logFullURLs is false the url column stores the
// masked form only.
func NewPGStore(db *sql.DB, logFullURLs bool) *PGStore {
	return &PGStore{db: db, logFullURLs: logFullURLs}
}

func (s *PGStore) ensure(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.ready.Load() {
		return nil
	}
	for _, ddl := range []string{logsDDL, logsOwnerIdxDDL, logsAliasIdxDDL} {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("logstore: ensure schema: %w", err)
		}
	}
	s.ready.Store(true)
	return nil
}

func (s *PGStore) Insert(ctx context.Context, e *Entry) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	e.applyDefaults()
	e.MaskedURL = MaskURL(e.URL)
	stored := e.URL
	if !s.logFullURLs {
		stored = e.MaskedURL
	}
	featuresJSON, err := json.Marshal(e.Features)
	if err != nil {
		return fmt.Errorf("logstore: encode features: %w", err)
	}
	metaJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("logstore: encode metadata: %w", err)
	}
	var ownerID sql.NullInt64
	if e.OwnerUserID != nil {
		ownerID = sql.NullInt64{Int64: *e.OwnerUserID, Valid: true}
	}
	row := s.db.QueryRowContext(ctx, `
		insert into prediction_logs (owner_user_id, owner_alias, url, masked_url, features_json, prediction, probability, device, ip, metadata_json, model_version, created_unix)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		returning id`,
		ownerID, e.OwnerAlias, stored, e.MaskedURL, string(featuresJSON),
		e.Prediction, e.Probability, e.Device, e.IP, string(metaJSON),
		e.ModelVersion, e.Timestamp,
	)
	if err := row.Scan(&e.ID); err != nil {
		return fmt.Errorf("logstore: insert: %w", err)
	}
	return nil
}

// scopeWhere renders the scope as a where clause with 1-based placeholders.
// A user scope matches the numeric id or any legacy alias in one pass.
func scopeWhere(scope Scope) (string, []any, error) {
	switch scope.kind {
	case scopeAll:
		return "", nil, nil
	case scopeUser:
		conds := []string{"owner_user_id = $1"}
		args := []any{scope.userID}
		for _, alias := range scope.aliases {
			args = append(args, alias)
			conds = append(conds, fmt.Sprintf("owner_alias = $%d", len(args)))
		}
		return "where (" + strings.Join(conds, " or ") + ")", args, nil
	case scopeAlias:
		return "where owner_alias = $1", []any{scope.alias}, nil
	default:
		return "", nil, ErrInvalidScope
	}
}

func (s *PGStore) ListRecent(ctx context.Context, scope Scope, limit int) ([]*Entry, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	where, args, err := scopeWhere(scope)
	if err != nil {
		return nil, err
	}
	args = append(args, limit)
	q := fmt.Sprintf("select %s from prediction_logs %s order by id desc limit $%d",
		entryColumns, where, len(args))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("logstore: list: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("logstore: list: %w", err)
	}
	return out, nil
}

func (s *PGStore) DeleteScoped(ctx context.Context, scope Scope) (int64, error) {
	if err := s.ensure(ctx); err != nil {
		return 0, err
	}
	where, args, err := scopeWhere(scope)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, "delete from prediction_logs "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("logstore: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("logstore: delete: %w", err)
	}
	return n, nil
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	var (
		e            Entry
		ownerID      sql.NullInt64
		featuresJSON string
		metaJSON     string
	)
	if err := rows.Scan(
		&e.ID, &ownerID, &e.OwnerAlias, &e.URL, &e.MaskedURL, &featuresJSON,
		&e.Prediction, &e.Probability, &e.Device, &e.IP, &metaJSON,
		&e.ModelVersion, &e.Timestamp,
	); err != nil {
		return nil, fmt.Errorf("logstore: scan: %w", err)
	}
	if ownerID.Valid {
		id := ownerID.Int64
		e.OwnerUserID = &id
	}
	if err := json.Unmarshal([]byte(featuresJSON), &e.Features); err != nil {
		e.Features = map[string]any{}
	}
	if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
		e.Metadata = map[string]any{}
	}
	return &e, nil
}
