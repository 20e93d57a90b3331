package forgejo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelayer/gitbridge/pkg/gitservice"
	"github.com/codelayer/gitbridge/pkg/gitservice/forgejo"
	"github.com/codelayer/gitbridge/testing/fixtures"
	"github.com/codelayer/gitbridge/testing/mocks"
)

func TestForgejo_Identity(t *testing.T) {
	spec := forgejo.Spec()
	assert.Equal(t, gitservice.KindForgejo, spec.Kind)
	assert.Equal(t, "https://codeberg.org/api/v1", spec.DefaultAPIBase)
}

func TestForgejo_StampsOwnKind(t *testing.T) {
	rt := mocks.NewRoundTripper(mocks.OK(fixtures.GiteaRepoArray))
	svc := forgejo.New(gitservice.WithHTTPClient(rt.Client()))

	pager, err := svc.ListRepositories(context.Background(), fixtures.Credential(gitservice.KindForgejo), gitservice.ListOptions{})
	require.NoError(t, err)
	repos, err := pager.Next(context.Background())
	require.NoError(t, err)

	require.Len(t, repos, 1)
	assert.Equal(t, gitservice.KindForgejo, repos[0].Provider)
	assert.Equal(t, "codeberg.org", rt.LastRequest().URL.Host)
}

func TestForgejo_CloneURL(t *testing.T) {
	svc := forgejo.New()
	url, err := svc.AuthenticatedCloneURL(gitservice.Repository{FullName: "a/b"}, fixtures.Credential(gitservice.KindForgejo))
	require.NoError(t, err)
	assert.Equal(t, "https://t123@codeberg.org/a/b.git", url)
}
