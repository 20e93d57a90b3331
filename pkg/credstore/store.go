// Package credstore defines the credential storage boundary the git
// services consume, plus reference in-memory and file-backed stores.
//
// The core only ever borrows credentials per call; everything about how
// they persist lives behind the [Store] interface. Raw tokens never leave
// the store: listings expose an [Integration] projection with a HasToken
// flag instead.
package credstore

import (
	"context"
	"errors"

	"github.com/codelayer/gitbridge/pkg/gitservice"
)

// Error definitions for credential stores.
var (
	errNotFound    = errors.New("no credential stored for user and provider")
	errEmptyUserID = errors.New("user id is required")
	errBadProvider = errors.New("unsupported git provider")

	// ErrNotFound is returned when no credential exists for a user/provider pair.
	ErrNotFound = errNotFound
	// ErrEmptyUserID is returned when a caller passes an empty user id.
	ErrEmptyUserID = errEmptyUserID
	// ErrBadProvider is returned when a credential names an unknown provider.
	ErrBadProvider = errBadProvider
)

// Integration is the settings-layer projection of a stored credential.
// HasToken is a boolean stand-in for the secret: once stored, the raw
// token is never returned through this shape.
type Integration struct {
	ID           string                  `json:"id" yaml:"id"`
	ProviderType gitservice.ProviderKind `json:"provider_type" yaml:"provider_type"`
	Name         string                  `json:"name" yaml:"name"`
	Host         string                  `json:"host,omitempty" yaml:"host,omitempty"`
	HasToken     bool                    `json:"has_token" yaml:"has_token"`
	UserID       string                  `json:"user_id" yaml:"user_id"`
}

// Store is the credential storage contract. Implementations must be safe
// for concurrent use.
type Store interface {
	// Get returns the credential for one user and provider, or ErrNotFound.
	Get(ctx context.Context, userID string, kind gitservice.ProviderKind) (gitservice.Credential, error)

	// Set stores or replaces a credential.
	Set(ctx context.Context, cred gitservice.Credential) error

	// Delete removes a credential; deleting a missing one is not an error.
	Delete(ctx context.Context, userID string, kind gitservice.ProviderKind) error

	// List returns the integrations configured for a user, tokens redacted.
	List(ctx context.Context, userID string) ([]Integration, error)
}

// validate checks the identifying fields of a credential before storage.
func validate(cred gitservice.Credential) error {
	if cred.UserID == "" {
		return errEmptyUserID
	}
	if !cred.Provider.Valid() {
		return errBadProvider
	}
	return nil
}
