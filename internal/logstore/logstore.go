// Package logstore persists prediction events tagged with both a durable
// numeric owner id and a legacy owner alias string, and serves scoped reads
// and deletes over that dual-key ownership model.
package logstore

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

// AnonymousAlias tags entries written by unauthenticated callers and by
// legacy rows that predate accounts.
const AnonymousAlias = "anonymous"

// NoModelPrediction marks an entry logged while no classifier was loaded.
const NoModelPrediction = -1

var (
	ErrInvalidScope = errors.New("logstore: invalid scope")
	ErrInvalidLimit = errors.New("logstore: invalid limit")
)

// Entry is an append-only prediction event. Exactly one of OwnerUserID set
// or OwnerAlias == AnonymousAlias is the effective ownership signal; rows
// written before numeric ids existed carry only the alias.
type Entry struct {
	ID           int64          `json:"id"`
	OwnerUserID  *int64         `json:"owner_user_id,omitempty"`
	OwnerAlias   string         `json:"owner_alias"`
	URL          string         `json:"url"`
	MaskedURL    string         `json:"masked_url"`
	Features     map[string]any `json:"features"`
	Prediction   int            `json:"prediction"`
	Probability  float64        `json:"probability"`
	Device       string         `json:"device"`
	IP           string         `json:"ip"`
	Metadata     map[string]any `json:"metadata"`
	ModelVersion string         `json:"model_version"`
	Timestamp    int64          `json:"timestamp"`
}

type scopeKind int

const (
	scopeAll scopeKind = iota + 1
	scopeUser
	scopeAlias
)

// Scope selects which log rows a read or delete affects. Construct it once
// at the boundary; "mine" collapses to ForUser with the caller's identity.
type Scope struct {
	kind    scopeKind
	userID  int64
	aliases []string
	alias   string
}

// All selects every row. Callers must gate this on admin privileges.
func All() Scope { return Scope{kind: scopeAll} }

// ForUser selects rows owned by the numeric id or by any of the user's
// legacy aliases, so pre- and post-migration history reads as one stream.
func ForUser(userID int64, legacyAliases []string) Scope {
	return Scope{kind: scopeUser, userID: userID, aliases: legacyAliases}
}

// ForAlias selects rows by the bare alias string only.
func ForAlias(alias string) Scope { return Scope{kind: scopeAlias, alias: alias} }

// String renders the scope for responses and audit events.
func (s Scope) String() string {
	switch s.kind {
	case scopeAll:
		return "all"
	case scopeUser:
		return "user"
	case scopeAlias:
		return "alias"
	default:
		return "unset"
	}
}

// Store describes persistence for prediction events. Implementations do not
// cap the limit; callers impose one.
type Store interface {
	// Insert appends the entry and assigns its id. OwnerAlias defaults to
	// AnonymousAlias and Timestamp to the current time when unset.
	Insert(ctx context.Context, e *Entry) error

	// ListRecent returns up to limit entries in scope, newest first.
	ListRecent(ctx context.Context, scope Scope, limit int) ([]*Entry, error)

	// DeleteScoped removes every entry in scope and reports the count.
	DeleteScoped(ctx context.Context, scope Scope) (int64, error)
}

// MaskURL reduces a URL to its scheme and a host prefix for storage. Full
// URLs are only retained when the operator explicitly enables it.
func MaskURL(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		if len(raw) > 50 {
			return raw[:40] + "... (masked)"
		}
		return raw
	}
	scheme := ""
	if parsed.Scheme != "" {
		scheme = parsed.Scheme + "://"
	}
	host := parsed.Host
	if host == "" {
		host = parsed.Path
	}
	if len(host) > 40 {
		host = host[:40]
	}
	return scheme + host + "... (masked)"
}

func (e *Entry) applyDefaults() {
	if strings.TrimSpace(e.OwnerAlias) == "" {
		e.OwnerAlias = AnonymousAlias
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().Unix()
	}
	if e.Features == nil {
		e.Features = map[string]any{}
	}
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
}
