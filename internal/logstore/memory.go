package logstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used when no database is configured and
// in tests. It mirrors PGStore semantics, including URL masking on insert.
type MemoryStore struct {
	mu          sync.Mutex
	entries     []*Entry
	nextID      int64
	logFullURLs bool
}

func NewMemoryStore(logFullURLs bool) *MemoryStore {
	return &MemoryStore{nextID: 1, logFullURLs: logFullURLs}
}

func (s *MemoryStore) Insert(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.applyDefaults()
	e.MaskedURL = MaskURL(e.URL)
	if !s.logFullURLs {
		e.URL = e.MaskedURL
	}
	e.ID = s.nextID
	s.nextID++
	s.entries = append(s.entries, cloneEntry(e))
	return nil
}

func (s *MemoryStore) ListRecent(_ context.Context, scope Scope, limit int) ([]*Entry, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Entry
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.entries[i]
		ok, err := scope.matches(e)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, cloneEntry(e))
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteScoped(_ context.Context, scope Scope) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []*Entry
	var removed int64
	for _, e := range s.entries {
		ok, err := scope.matches(e)
		if err != nil {
			return 0, err
		}
		if ok {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed, nil
}

func (s Scope) matches(e *Entry) (bool, error) {
	switch s.kind {
	case scopeAll:
		return true, nil
	case scopeUser:
		if e.OwnerUserID != nil && *e.OwnerUserID == s.userID {
			return true, nil
		}
		for _, alias := range s.aliases {
			if e.OwnerAlias == alias {
				return true, nil
			}
		}
		return false, nil
	case scopeAlias:
		return e.OwnerAlias == s.alias, nil
	default:
		return false, ErrInvalidScope
	}
}

func cloneEntry(e *Entry) *Entry {
	c := *e
	if e.OwnerUserID != nil {
		id := *e.OwnerUserID
		c.OwnerUserID = &id
	}
	c.Features = make(map[string]any, len(e.Features))
	for k, v := range e.Features {
		c.Features[k] = v
	}
	c.Metadata = make(map[string]any, len(e.Metadata))
	for k, v := range e.Metadata {
		c.Metadata[k] = v
	}
	return &c
}
