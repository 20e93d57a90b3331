package credstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/codelayer/gitbridge/internal/security"
	"github.com/codelayer/gitbridge/pkg/gitservice"
)

// filePerm keeps the credentials file private to the owner.
const filePerm = 0o600

// FileStore persists credentials in a YAML file. Suitable for the CLI and
// single-node deployments; anything multi-tenant should sit behind a real
// secrets backend implementing Store.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// fileRecord is the on-disk credential shape. The token is written as a
// plain string deliberately: this is the one place the secret persists,
// and the file is owner-only.
type fileRecord struct {
	ID    string `yaml:"id"`
	Token string `yaml:"token"`
	Host  string `yaml:"host,omitempty"`
}

type fileLayout struct {
	Users map[string]map[gitservice.ProviderKind]fileRecord `yaml:"users"`
}

// NewFileStore builds a FileStore at path. The file is created lazily on
// the first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns the conventional credentials file location,
// ~/.config/gitbridge/credentials.yml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "gitbridge", "credentials.yml"), nil
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, userID string, kind gitservice.ProviderKind) (gitservice.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	layout, err := s.load()
	if err != nil {
		return gitservice.Credential{}, err
	}
	rec, ok := layout.Users[userID][kind]
	if !ok {
		return gitservice.Credential{}, fmt.Errorf("%w: user %q provider %q", errNotFound, userID, kind)
	}
	return gitservice.Credential{
		Provider: kind,
		Token:    security.NewSecureToken(rec.Token),
		Host:     rec.Host,
		UserID:   userID,
	}, nil
}

// Set implements Store. Replacing a credential keeps its integration ID.
func (s *FileStore) Set(_ context.Context, cred gitservice.Credential) error {
	if err := validate(cred); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	layout, err := s.load()
	if err != nil {
		return err
	}
	if layout.Users == nil {
		layout.Users = make(map[string]map[gitservice.ProviderKind]fileRecord)
	}
	records, ok := layout.Users[cred.UserID]
	if !ok {
		records = make(map[gitservice.ProviderKind]fileRecord)
		layout.Users[cred.UserID] = records
	}
	id := uuid.NewString()
	if existing, ok := records[cred.Provider]; ok {
		id = existing.ID
	}
	records[cred.Provider] = fileRecord{
		ID:    id,
		Token: cred.Token.Value(),
		Host:  cred.Host,
	}
	return s.save(layout)
}

// Delete implements Store.
func (s *FileStore) Delete(_ context.Context, userID string, kind gitservice.ProviderKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	layout, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := layout.Users[userID][kind]; !ok {
		return nil
	}
	delete(layout.Users[userID], kind)
	return s.save(layout)
}

// List implements Store.
func (s *FileStore) List(_ context.Context, userID string) ([]Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	layout, err := s.load()
	if err != nil {
		return nil, err
	}
	integrations := make([]Integration, 0, len(layout.Users[userID]))
	for _, kind := range gitservice.Kinds() {
		rec, ok := layout.Users[userID][kind]
		if !ok {
			continue
		}
		integrations = append(integrations, Integration{
			ID:           rec.ID,
			ProviderType: kind,
			Name:         string(kind),
			Host:         rec.Host,
			HasToken:     rec.Token != "",
			UserID:       userID,
		})
	}
	return integrations, nil
}

func (s *FileStore) load() (*fileLayout, error) {
	layout := &fileLayout{}

	// #nosec G304 -- the path is chosen by the operator, not an upstream.
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return layout, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	if err := yaml.Unmarshal(data, layout); err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}
	return layout, nil
}

func (s *FileStore) save(layout *fileLayout) error {
	data, err := yaml.Marshal(layout)
	if err != nil {
		return fmt.Errorf("encode credentials file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, filePerm); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	return nil
}

// Store is implemented by FileStore.
var _ Store = (*FileStore)(nil)
