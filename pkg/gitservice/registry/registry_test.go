package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelayer/gitbridge/internal/security"
	"github.com/codelayer/gitbridge/pkg/gitservice"
	"github.com/codelayer/gitbridge/pkg/gitservice/registry"
	"github.com/codelayer/gitbridge/testing/fixtures"
	"github.com/codelayer/gitbridge/testing/mocks"
)

func TestNew_AllKinds(t *testing.T) {
	for _, kind := range gitservice.Kinds() {
		svc, err := registry.New(kind)
		require.NoError(t, err, "kind %s", kind)
		assert.Equal(t, kind, svc.Kind())
	}
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := registry.New("sourcehut")
	require.Error(t, err)
	assert.ErrorIs(t, err, gitservice.ErrUnsupportedProvider)
	assert.True(t, gitservice.IsValidation(err))
}

func TestForCredential(t *testing.T) {
	svc, err := registry.ForCredential(fixtures.Credential(gitservice.KindGitLab))
	require.NoError(t, err)
	assert.Equal(t, gitservice.KindGitLab, svc.Kind())

	_, err = registry.ForCredential(gitservice.Credential{Provider: "unknown"})
	require.Error(t, err)
	assert.True(t, gitservice.IsValidation(err))
}

func TestNew_StatelessPerCall(t *testing.T) {
	a, err := registry.New(gitservice.KindGitea)
	require.NoError(t, err)
	b, err := registry.New(gitservice.KindGitea)
	require.NoError(t, err)
	// Two concurrent callers never share a service instance.
	assert.NotSame(t, a, b)
}

func TestDetectTokenKind(t *testing.T) {
	t.Run("second provider accepts", func(t *testing.T) {
		// The github probe is rejected; the gitlab probe succeeds.
		rt := mocks.NewRoundTripper(
			mocks.StatusWith(401, `{"message":"bad credentials"}`),
			mocks.OK(`{"id":3,"username":"dev"}`),
		)

		kind, err := registry.DetectTokenKind(context.Background(), security.NewSecureToken("glpat-abcdef123456"), "",
			gitservice.WithHTTPClient(rt.Client()))
		require.NoError(t, err)
		assert.Equal(t, gitservice.KindGitLab, kind)
		assert.Equal(t, 2, rt.CallCount())
	})

	t.Run("nothing accepts", func(t *testing.T) {
		rt := mocks.NewRoundTripper(mocks.StatusWith(401, `{"message":"bad token"}`))

		_, err := registry.DetectTokenKind(context.Background(), security.NewSecureToken("nope"), "",
			gitservice.WithHTTPClient(rt.Client()))
		require.Error(t, err)
		assert.True(t, gitservice.IsAuthentication(err))
		assert.Equal(t, len(gitservice.Kinds()), rt.CallCount())
	})
}
