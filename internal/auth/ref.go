package auth

import (
	"strconv"
	"strings"
)

type refKind int

const (
	refByID refKind = iota + 1
	refByEmail
	refByUsername
)

// Ref is a caller-supplied user reference, resolved once at the boundary.
// The shape decides the lookup: all digits is a numeric id, a string with
// '@' is an email, anything else a bare username. An all-digit username is
// therefore unreachable through free-text refs; registration rejects such
// usernames so existing data never depends on the ambiguity.
type Ref struct {
	kind  refKind
	id    int64
	value string
}

func ByID(id int64) Ref          { return Ref{kind: refByID, id: id} }
func ByEmail(email string) Ref   { return Ref{kind: refByEmail, value: NormalizeEmail(email)} }
func ByUsername(name string) Ref { return Ref{kind: refByUsername, value: strings.TrimSpace(name)} }

// ParseRef classifies a raw reference string by shape.
func ParseRef(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, ErrInvalidInput
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ByID(id), nil
	}
	if strings.Contains(raw, "@") {
		return ByEmail(raw), nil
	}
	return ByUsername(raw), nil
}

// IsZero reports whether the ref was never constructed.
func (r Ref) IsZero() bool { return r.kind == 0 }

// String renders the ref for logs and error messages.
func (r Ref) String() string {
	switch r.kind {
	case refByID:
		return "id:" + strconv.FormatInt(r.id, 10)
	case refByEmail:
		return "email:" + r.value
	case refByUsername:
		return "username:" + r.value
	default:
		return "ref:unset"
	}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
