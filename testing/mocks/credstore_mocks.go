package mocks

import (
	"context"
	"sync"

	"github.com/codelayer/gitbridge/pkg/credstore"
	"github.com/codelayer/gitbridge/pkg/gitservice"
)

// MethodCall represents a tracked method call with its parameters.
type MethodCall struct {
	Method string
	Args   map[string]any
}

// CredentialStore is a mock credstore.Store with call tracking.
type CredentialStore struct {
	mu    sync.Mutex
	calls []MethodCall

	// Configurable responses
	GetResponse  gitservice.Credential
	GetError     error
	SetError     error
	DeleteError  error
	ListResponse []credstore.Integration
	ListError    error
}

// NewCredentialStore creates a new mock credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{calls: make([]MethodCall, 0)}
}

// Get implements credstore.Store.
func (m *CredentialStore) Get(_ context.Context, userID string, kind gitservice.ProviderKind) (gitservice.Credential, error) {
	m.trackCall("Get", map[string]any{"userID": userID, "kind": kind})
	return m.GetResponse, m.GetError
}

// Set implements credstore.Store.
func (m *CredentialStore) Set(_ context.Context, cred gitservice.Credential) error {
	m.trackCall("Set", map[string]any{"userID": cred.UserID, "kind": cred.Provider})
	return m.SetError
}

// Delete implements credstore.Store.
func (m *CredentialStore) Delete(_ context.Context, userID string, kind gitservice.ProviderKind) error {
	m.trackCall("Delete", map[string]any{"userID": userID, "kind": kind})
	return m.DeleteError
}

// List implements credstore.Store.
func (m *CredentialStore) List(_ context.Context, userID string) ([]credstore.Integration, error) {
	m.trackCall("List", map[string]any{"userID": userID})
	return m.ListResponse, m.ListError
}

// GetCallCount returns the number of times a method was called.
func (m *CredentialStore) GetCallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, call := range m.calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

// GetLastCall returns the last call to the specified method, or nil.
func (m *CredentialStore) GetLastCall(method string) *MethodCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Method == method {
			return &m.calls[i]
		}
	}
	return nil
}

func (m *CredentialStore) trackCall(method string, args map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MethodCall{Method: method, Args: args})
}

// Store is implemented by CredentialStore.
var _ credstore.Store = (*CredentialStore)(nil)
