package credstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/codelayer/gitbridge/pkg/gitservice"
)

// MemoryStore is a concurrency-safe in-memory Store, used in tests and by
// processes that receive credentials from an external secrets manager at
// startup.
type MemoryStore struct {
	mu     sync.RWMutex
	byUser map[string]map[gitservice.ProviderKind]entry
}

type entry struct {
	id   string
	cred gitservice.Credential
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUser: make(map[string]map[gitservice.ProviderKind]entry)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, userID string, kind gitservice.ProviderKind) (gitservice.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.byUser[userID][kind]; ok {
		return e.cred, nil
	}
	return gitservice.Credential{}, fmt.Errorf("%w: user %q provider %q", errNotFound, userID, kind)
}

// Set implements Store. Replacing a credential keeps its integration ID.
func (s *MemoryStore) Set(_ context.Context, cred gitservice.Credential) error {
	if err := validate(cred); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creds, ok := s.byUser[cred.UserID]
	if !ok {
		creds = make(map[gitservice.ProviderKind]entry)
		s.byUser[cred.UserID] = creds
	}
	id := uuid.NewString()
	if existing, ok := creds[cred.Provider]; ok {
		id = existing.id
	}
	creds[cred.Provider] = entry{id: id, cred: cred}
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, userID string, kind gitservice.ProviderKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byUser[userID], kind)
	return nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, userID string) ([]Integration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	integrations := make([]Integration, 0, len(s.byUser[userID]))
	for _, kind := range gitservice.Kinds() {
		e, ok := s.byUser[userID][kind]
		if !ok {
			continue
		}
		integrations = append(integrations, Integration{
			ID:           e.id,
			ProviderType: kind,
			Name:         string(kind),
			Host:         e.cred.Host,
			HasToken:     !e.cred.Token.IsEmpty(),
			UserID:       userID,
		})
	}
	return integrations, nil
}

// Store is implemented by MemoryStore.
var _ Store = (*MemoryStore)(nil)
