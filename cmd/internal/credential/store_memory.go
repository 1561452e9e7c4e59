package credential

import (
	"context"
	"strings"
	"sync"
	"time"

	"brandhub/cmd/internal/principal"
)

// MemoryStore is an in-process Store for development mode and tests.
// A single mutex serializes every operation, which makes Rotate atomic.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	byHash  map[string]string
	links   map[string]link
}

// link stands in for the auth_id column of the principal tables.
type link struct {
	p      principal.Principal
	active bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		byHash:  make(map[string]string),
		links:   make(map[string]link),
	}
}

// Link associates a record with the active principal that owns it.
func (s *MemoryStore) Link(authID string, p principal.Principal) error {
	const op = "credential.Link"
	if !p.Kind.Valid() {
		return OpError{Op: op, Kind: ErrInvalidInput}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[authID]; !ok {
		return notFound(op)
	}
	if _, ok := s.links[authID]; ok {
		return OpError{Op: op, Kind: ErrConflict}
	}
	s.links[authID] = link{p: p, active: true}
	return nil
}

// SetLinkActive mirrors the owning principal's is_active flag. Rotate refuses
// records whose principal is inactive.
func (s *MemoryStore) SetLinkActive(authID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.links[authID]
	if !ok {
		return notFound("credential.SetLinkActive")
	}
	l.active = active
	s.links[authID] = l
	return nil
}

func (s *MemoryStore) Create(_ context.Context, rec Record) error {
	const op = "credential.Create"
	if strings.TrimSpace(rec.ID) == "" || rec.Verifier == "" {
		return OpError{Op: op, Kind: ErrInvalidInput}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return OpError{Op: op, Kind: ErrConflict}
	}
	if rec.RefreshTokenHash != nil {
		if _, taken := s.byHash[*rec.RefreshTokenHash]; taken {
			return OpError{Op: op, Kind: ErrConflict}
		}
		s.byHash[*rec.RefreshTokenHash] = rec.ID
	}
	s.records[rec.ID] = rec.clone()
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, notFound("credential.GetByID")
	}
	return rec.clone(), nil
}

func (s *MemoryStore) FindActiveByRefreshHash(_ context.Context, hash string, now time.Time) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.activeLocked(hash, now)
	if !ok {
		return Record{}, notFound("credential.FindActiveByRefreshHash")
	}
	return rec.clone(), nil
}

func (s *MemoryStore) SetRefresh(_ context.Context, id string, st RefreshState, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return notFound("credential.SetRefresh")
	}
	if owner, taken := s.byHash[st.Hash]; taken && owner != id {
		return OpError{Op: "credential.SetRefresh", Kind: ErrConflict}
	}
	s.writeRefreshLocked(rec, st, now)
	return nil
}

func (s *MemoryStore) RevokeByRefreshHash(_ context.Context, hash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byHash[hash]
	if !ok {
		return notFound("credential.RevokeByRefreshHash")
	}
	rec := s.records[id]
	delete(s.byHash, hash)
	rec.RefreshTokenHash = nil
	rec.RefreshTokenExpiresAt = nil
	rec.RefreshTokenRevoked = true
	rec.UpdatedAt = now
	s.records[id] = rec
	return nil
}

func (s *MemoryStore) Rotate(_ context.Context, kind principal.Kind, hash string, now time.Time, issue IssueFunc) error {
	const op = "credential.Rotate"

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.activeLocked(hash, now)
	if !ok {
		return notFound(op)
	}
	l, ok := s.links[rec.ID]
	if !ok || !l.active || l.p.Kind != kind {
		return notFound(op)
	}

	st, err := issue(rec.clone(), l.p)
	if err != nil {
		return err
	}
	if owner, taken := s.byHash[st.Hash]; taken && owner != rec.ID {
		return OpError{Op: op, Kind: ErrConflict}
	}
	s.writeRefreshLocked(rec, st, now)
	return nil
}

func (s *MemoryStore) activeLocked(hash string, now time.Time) (Record, bool) {
	id, ok := s.byHash[hash]
	if !ok {
		return Record{}, false
	}
	rec := s.records[id]
	if !rec.ActiveAt(now) {
		return Record{}, false
	}
	return rec, true
}

func (s *MemoryStore) writeRefreshLocked(rec Record, st RefreshState, now time.Time) {
	if rec.RefreshTokenHash != nil {
		delete(s.byHash, *rec.RefreshTokenHash)
	}
	hash := st.Hash
	exp := st.ExpiresAt
	rec.RefreshTokenHash = &hash
	rec.RefreshTokenExpiresAt = &exp
	rec.RefreshTokenRevoked = false
	rec.UpdatedAt = now
	s.records[rec.ID] = rec
	s.byHash[hash] = rec.ID
}

func (r Record) clone() Record {
	out := r
	if r.OTP != nil {
		v := *r.OTP
		out.OTP = &v
	}
	if r.RefreshTokenHash != nil {
		v := *r.RefreshTokenHash
		out.RefreshTokenHash = &v
	}
	if r.RefreshTokenExpiresAt != nil {
		v := *r.RefreshTokenExpiresAt
		out.RefreshTokenExpiresAt = &v
	}
	return out
}
