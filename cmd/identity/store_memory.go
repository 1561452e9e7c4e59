package identity

import (
	"context"
	"fmt"
	"sync"

	"brandhub/cmd/identity/ids"
	"brandhub/cmd/internal/credential"
	"brandhub/cmd/internal/principal"

	"github.com/google/uuid"
)

// MemoryStore keeps principals in process for development mode and tests.
// Authentication records live in the shared credential.MemoryStore.
type MemoryStore struct {
	mu       sync.Mutex
	creds    *credential.MemoryStore
	accounts map[principal.Kind]map[uuid.UUID]Account
}

// NewMemoryStore returns an empty store writing records to creds.
func NewMemoryStore(creds *credential.MemoryStore) *MemoryStore {
	return &MemoryStore{
		creds: creds,
		accounts: map[principal.Kind]map[uuid.UUID]Account{
			principal.KindCustomer: {},
			principal.KindUser:     {},
		},
	}
}

func (s *MemoryStore) Register(ctx context.Context, in RegisterInput) (Account, error) {
	const op = "identity.Register"

	in, err := in.validate(op)
	if err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range s.accounts[in.Kind] {
		if in.Identifier.Email != "" && acc.Email != nil && *acc.Email == in.Identifier.Email {
			return Account{}, conflict(op, "email")
		}
		if in.Identifier.Phone != "" && acc.Phone != nil && acc.CountryCode != nil &&
			*acc.Phone == in.Identifier.Phone && *acc.CountryCode == in.Identifier.CountryCode {
			return Account{}, conflict(op, "phone")
		}
	}

	authID, err := ids.NewULID(in.Now)
	if err != nil {
		return Account{}, err
	}
	rowID, err := ids.NewULID(in.Now)
	if err != nil {
		return Account{}, err
	}
	ref, err := ids.NewRef()
	if err != nil {
		return Account{}, err
	}

	p := principal.Principal{Kind: in.Kind, Ref: ref}
	if err := s.creds.Create(ctx, credential.Record{ID: authID, Verifier: in.Verifier, CreatedAt: in.Now, UpdatedAt: in.Now}); err != nil {
		return Account{}, err
	}
	if err := s.creds.Link(authID, p); err != nil {
		return Account{}, err
	}

	acc := Account{
		ID:          rowID,
		Principal:   p,
		AuthID:      authID,
		Name:        in.Name,
		Email:       nilIfEmpty(in.Identifier.Email),
		CountryCode: nilIfEmpty(in.Identifier.CountryCode),
		Phone:       nilIfEmpty(in.Identifier.Phone),
		Role:        in.Role,
		IsActive:    true,
		CreatedAt:   in.Now,
	}
	s.accounts[in.Kind][ref] = acc
	return acc, nil
}

func (s *MemoryStore) FindForLogin(_ context.Context, kind principal.Kind, id Identifier) (Account, error) {
	const op = "identity.FindForLogin"

	if !kind.Valid() {
		return Account{}, invalid(op, "unknown principal kind")
	}
	id, ok := id.Normalize()
	if !ok {
		return Account{}, invalid(op, "incomplete identifier")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range s.accounts[kind] {
		if !acc.IsActive || acc.AuthID == "" {
			continue
		}
		if id.Email != "" && acc.Email != nil && *acc.Email == id.Email {
			return acc, nil
		}
		if id.Email == "" && acc.Phone != nil && acc.CountryCode != nil &&
			*acc.Phone == id.Phone && *acc.CountryCode == id.CountryCode {
			return acc, nil
		}
	}
	return Account{}, notFound(op)
}

func (s *MemoryStore) GetByRef(_ context.Context, p principal.Principal) (Account, error) {
	const op = "identity.GetByRef"

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[p.Kind][p.Ref]
	if !ok {
		return Account{}, notFound(op)
	}
	return acc, nil
}

func (s *MemoryStore) SetActive(_ context.Context, p principal.Principal, active bool) error {
	const op = "identity.SetActive"

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[p.Kind][p.Ref]
	if !ok {
		return notFound(op)
	}
	if acc.AuthID != "" {
		if err := s.creds.SetLinkActive(acc.AuthID, active); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	acc.IsActive = active
	s.accounts[p.Kind][p.Ref] = acc
	return nil
}
