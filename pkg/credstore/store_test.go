package credstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelayer/gitbridge/internal/security"
	"github.com/codelayer/gitbridge/pkg/credstore"
	"github.com/codelayer/gitbridge/pkg/gitservice"
)

func testCredential(userID string, kind gitservice.ProviderKind) gitservice.Credential {
	return gitservice.Credential{
		Provider: kind,
		Token:    security.NewSecureToken("t123"),
		Host:     "git.example.com",
		UserID:   userID,
	}
}

// storeUnderTest runs the shared Store contract against both implementations.
func storeUnderTest(t *testing.T, name string) credstore.Store {
	t.Helper()
	switch name {
	case "memory":
		return credstore.NewMemoryStore()
	default:
		return credstore.NewFileStore(filepath.Join(t.TempDir(), "credentials.yml"))
	}
}

func TestStore_Contract(t *testing.T) {
	for _, impl := range []string{"memory", "file"} {
		t.Run(impl, func(t *testing.T) {
			ctx := context.Background()
			store := storeUnderTest(t, impl)

			t.Run("get missing", func(t *testing.T) {
				_, err := store.Get(ctx, "u1", gitservice.KindGitHub)
				require.Error(t, err)
				assert.ErrorIs(t, err, credstore.ErrNotFound)
			})

			t.Run("set and get", func(t *testing.T) {
				require.NoError(t, store.Set(ctx, testCredential("u1", gitservice.KindGitHub)))

				cred, err := store.Get(ctx, "u1", gitservice.KindGitHub)
				require.NoError(t, err)
				assert.Equal(t, "t123", cred.Token.Value())
				assert.Equal(t, "git.example.com", cred.Host)
				assert.Equal(t, "u1", cred.UserID)
			})

			t.Run("list projects token to flag", func(t *testing.T) {
				require.NoError(t, store.Set(ctx, testCredential("u1", gitservice.KindGitLab)))

				integrations, err := store.List(ctx, "u1")
				require.NoError(t, err)
				require.Len(t, integrations, 2)
				// Declaration order of kinds, not insertion order.
				assert.Equal(t, gitservice.KindGitHub, integrations[0].ProviderType)
				assert.Equal(t, gitservice.KindGitLab, integrations[1].ProviderType)
				for _, integration := range integrations {
					assert.True(t, integration.HasToken)
					assert.NotEmpty(t, integration.ID)
					assert.Equal(t, "u1", integration.UserID)
				}
			})

			t.Run("replace keeps integration id", func(t *testing.T) {
				before, err := store.List(ctx, "u1")
				require.NoError(t, err)

				replaced := testCredential("u1", gitservice.KindGitHub)
				replaced.Token = security.NewSecureToken("rotated-token")
				require.NoError(t, store.Set(ctx, replaced))

				after, err := store.List(ctx, "u1")
				require.NoError(t, err)
				assert.Equal(t, before[0].ID, after[0].ID)

				cred, err := store.Get(ctx, "u1", gitservice.KindGitHub)
				require.NoError(t, err)
				assert.Equal(t, "rotated-token", cred.Token.Value())
			})

			t.Run("users are isolated", func(t *testing.T) {
				_, err := store.Get(ctx, "u2", gitservice.KindGitHub)
				assert.ErrorIs(t, err, credstore.ErrNotFound)
			})

			t.Run("delete", func(t *testing.T) {
				require.NoError(t, store.Delete(ctx, "u1", gitservice.KindGitLab))
				_, err := store.Get(ctx, "u1", gitservice.KindGitLab)
				assert.ErrorIs(t, err, credstore.ErrNotFound)

				// Deleting again is not an error.
				assert.NoError(t, store.Delete(ctx, "u1", gitservice.KindGitLab))
			})

			t.Run("validation", func(t *testing.T) {
				missing := testCredential("", gitservice.KindGitHub)
				assert.ErrorIs(t, store.Set(ctx, missing), credstore.ErrEmptyUserID)

				bad := testCredential("u1", "sourcehut")
				assert.ErrorIs(t, store.Set(ctx, bad), credstore.ErrBadProvider)
			})
		})
	}
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "credentials.yml")

	first := credstore.NewFileStore(path)
	require.NoError(t, first.Set(ctx, testCredential("u1", gitservice.KindGitea)))

	reopened := credstore.NewFileStore(path)
	cred, err := reopened.Get(ctx, "u1", gitservice.KindGitea)
	require.NoError(t, err)
	assert.Equal(t, "t123", cred.Token.Value())
}

func TestIntegration_NeverCarriesToken(t *testing.T) {
	ctx := context.Background()
	store := credstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, testCredential("u1", gitservice.KindGitHub)))

	integrations, err := store.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, integrations, 1)
	// The projection has no token field at all; HasToken is the only signal.
	assert.True(t, integrations[0].HasToken)
}
