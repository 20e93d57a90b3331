package gitea_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelayer/gitbridge/pkg/gitservice"
	"github.com/codelayer/gitbridge/pkg/gitservice/gitea"
	"github.com/codelayer/gitbridge/testing/fixtures"
	"github.com/codelayer/gitbridge/testing/mocks"
)

func newService(rt *mocks.RoundTripper) *gitservice.Service {
	return gitea.New(gitservice.WithHTTPClient(rt.Client()))
}

func TestGitea_SelfHostedListing(t *testing.T) {
	rt := mocks.NewRoundTripper(mocks.OK(fixtures.GiteaRepoPageEnvelope))
	svc := newService(rt)

	pager, err := svc.ListRepositories(context.Background(), fixtures.SelfHostedCredential(gitservice.KindGitea), gitservice.ListOptions{})
	require.NoError(t, err)
	repos, err := pager.Next(context.Background())
	require.NoError(t, err)

	require.Len(t, repos, 1)
	assert.Equal(t, "a/b", repos[0].FullName)
	assert.Equal(t, 5, repos[0].StarCount)
	assert.Equal(t, gitservice.KindGitea, repos[0].Provider)

	req := rt.LastRequest()
	assert.Equal(t, "git.example.com", req.URL.Host)
	assert.Equal(t, "/api/v1/user/repos", req.URL.Path)
	assert.Equal(t, "token "+fixtures.TestToken, req.Header.Get("Authorization"))
}

func TestGitea_ListingShapes(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		rt := mocks.NewRoundTripper(mocks.OK(fixtures.GiteaRepoArray))
		svc := newService(rt)

		pager, err := svc.ListRepositories(context.Background(), fixtures.Credential(gitservice.KindGitea), gitservice.ListOptions{})
		require.NoError(t, err)
		repos, err := pager.Next(context.Background())
		require.NoError(t, err)
		require.Len(t, repos, 1)
		assert.Equal(t, "a/b", repos[0].FullName)
	})

	t.Run("data envelope", func(t *testing.T) {
		rt := mocks.NewRoundTripper(mocks.OK(fixtures.GiteaRepoPageEnvelope))
		svc := newService(rt)

		pager, err := svc.ListRepositories(context.Background(), fixtures.Credential(gitservice.KindGitea), gitservice.ListOptions{})
		require.NoError(t, err)
		repos, err := pager.Next(context.Background())
		require.NoError(t, err)
		require.Len(t, repos, 1)
		assert.Equal(t, 5, repos[0].StarCount)
	})
}

func TestGitea_SearchEnvelope(t *testing.T) {
	rt := mocks.NewRoundTripper(
		mocks.OK(`{"ok":true,"data":[{"id":2,"full_name":"a/search-hit","stars_count":1}]}`),
	)
	svc := newService(rt)

	pager, err := svc.SearchRepositories(context.Background(), fixtures.Credential(gitservice.KindGitea), "search", gitservice.ListOptions{})
	require.NoError(t, err)
	repos, err := pager.Next(context.Background())
	require.NoError(t, err)

	require.Len(t, repos, 1)
	assert.Equal(t, "a/search-hit", repos[0].FullName)
	assert.Equal(t, "/api/v1/repos/search", rt.LastRequest().URL.Path)
	assert.Contains(t, rt.LastRequest().URL.RawQuery, "q=search")
}

func TestGitea_PerPageCap(t *testing.T) {
	rt := mocks.NewRoundTripper(mocks.OK(`[]`))
	svc := newService(rt)

	pager, err := svc.ListRepositories(context.Background(), fixtures.Credential(gitservice.KindGitea),
		gitservice.ListOptions{PerPage: 500})
	require.NoError(t, err)
	_, err = pager.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "50", rt.LastRequest().URL.Query().Get("limit"))
}

func TestGitea_MergedPullRequest(t *testing.T) {
	rt := mocks.NewRoundTripper(mocks.StatusWith(201,
		`{"id":3,"number":3,"title":"t","state":"closed","merged":true,"head":{"ref":"f"},"base":{"ref":"main"}}`))
	svc := newService(rt)

	pr, err := svc.CreatePullRequest(context.Background(), fixtures.Credential(gitservice.KindGitea), "a/b",
		gitservice.CreatePullRequestParams{Title: "t", SourceBranch: "f", TargetBranch: "main"})
	require.NoError(t, err)
	assert.Equal(t, gitservice.PullRequestMerged, pr.State)
}
