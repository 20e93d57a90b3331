package github_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelayer/gitbridge/pkg/gitservice"
	"github.com/codelayer/gitbridge/pkg/gitservice/github"
	"github.com/codelayer/gitbridge/testing/fixtures"
	"github.com/codelayer/gitbridge/testing/mocks"
)

const repoPage = `[{"id":1,"full_name":"octo/widgets","private":false,"default_branch":"main","stargazers_count":12,"clone_url":"https://github.com/octo/widgets.git","owner":{"login":"octo"}}]`

func newService(rt *mocks.RoundTripper) *gitservice.Service {
	return github.New(gitservice.WithHTTPClient(rt.Client()))
}

func TestGitHub_AuthHeaders(t *testing.T) {
	rt := mocks.NewRoundTripper(mocks.OK(`{"id":1,"login":"octocat"}`))
	svc := newService(rt)

	_, err := svc.GetUser(context.Background(), fixtures.Credential(gitservice.KindGitHub))
	require.NoError(t, err)

	req := rt.LastRequest()
	assert.Equal(t, "Bearer "+fixtures.TestToken, req.Header.Get("Authorization"))
	assert.Equal(t, "application/vnd.github+json", req.Header.Get("Accept"))
	assert.Equal(t, "2022-11-28", req.Header.Get("X-Github-Api-Version"))
	assert.Equal(t, "https://api.github.com/user", req.URL.String())
}

func TestGitHub_EnterpriseBase(t *testing.T) {
	rt := mocks.NewRoundTripper(mocks.OK(`{"id":1,"login":"octocat"}`))
	svc := newService(rt)

	_, err := svc.GetUser(context.Background(), fixtures.SelfHostedCredential(gitservice.KindGitHub))
	require.NoError(t, err)
	assert.Equal(t, "https://git.example.com/api/v3/user", rt.LastRequest().URL.String())
}

func TestGitHub_LinkHeaderPagination(t *testing.T) {
	rt := mocks.NewRoundTripper(
		mocks.StatusWith(200, repoPage,
			"Link", `<https://api.github.com/user/repos?page=2&per_page=1>; rel="next"`),
		mocks.OK(repoPage),
	)
	svc := newService(rt)

	pager, err := svc.ListRepositories(context.Background(), fixtures.Credential(gitservice.KindGitHub), gitservice.ListOptions{PerPage: 1})
	require.NoError(t, err)
	repos, err := pager.All(context.Background())
	require.NoError(t, err)

	assert.Len(t, repos, 2)
	assert.Equal(t, 2, rt.CallCount())
	// The second request replays the provider's next link verbatim.
	assert.Equal(t, "https://api.github.com/user/repos?page=2&per_page=1", rt.LastRequest().URL.String())
}

func TestGitHub_CursorToken(t *testing.T) {
	next := "https://api.github.com/user/repos?page=2&per_page=1"
	rt := mocks.NewRoundTripper(
		mocks.StatusWith(200, repoPage, "Link", fmt.Sprintf(`<%s>; rel="next"`, next)),
	)
	svc := newService(rt)

	pager, err := svc.ListRepositories(context.Background(), fixtures.Credential(gitservice.KindGitHub), gitservice.ListOptions{PerPage: 1})
	require.NoError(t, err)
	_, err = pager.Next(context.Background())
	require.NoError(t, err)

	tok := pager.Token()
	assert.Equal(t, gitservice.KindGitHub, tok.Provider)
	assert.True(t, tok.HasNext)
	assert.Equal(t, next, tok.Value)

	// Resuming replays the cursor URL.
	rt2 := mocks.NewRoundTripper(mocks.OK(repoPage))
	svc2 := newService(rt2)
	resumed, err := svc2.ListRepositories(context.Background(), fixtures.Credential(gitservice.KindGitHub),
		gitservice.ListOptions{Resume: &tok})
	require.NoError(t, err)
	_, err = resumed.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, next, rt2.LastRequest().URL.String())
}

func TestGitHub_SecondaryRateLimit(t *testing.T) {
	t.Run("retry-after hint", func(t *testing.T) {
		rt := mocks.NewRoundTripper(
			mocks.StatusWith(http.StatusForbidden, `{"message":"You have exceeded a secondary rate limit"}`,
				"Retry-After", "30"),
		)
		svc := newService(rt)

		_, err := svc.GetUser(context.Background(), fixtures.Credential(gitservice.KindGitHub))
		require.Error(t, err)
		assert.True(t, gitservice.IsRateLimited(err))

		ce, ok := gitservice.AsClassified(err)
		require.True(t, ok)
		assert.Equal(t, 30, ce.RetryAfterSeconds)
	})

	t.Run("primary limit exhausted", func(t *testing.T) {
		reset := time.Now().Add(45 * time.Second).Unix()
		rt := mocks.NewRoundTripper(
			mocks.StatusWith(http.StatusForbidden, `{"message":"API rate limit exceeded"}`,
				"X-Ratelimit-Remaining", "0",
				"X-Ratelimit-Reset", fmt.Sprintf("%d", reset)),
		)
		svc := newService(rt)

		_, err := svc.GetUser(context.Background(), fixtures.Credential(gitservice.KindGitHub))
		require.Error(t, err)
		assert.True(t, gitservice.IsRateLimited(err))

		ce, _ := gitservice.AsClassified(err)
		assert.InDelta(t, 45, ce.RetryAfterSeconds, 2)
	})

	t.Run("retried within budget", func(t *testing.T) {
		// A secondary rate limit retries the same way a 429 does once the
		// hinted wait fits the retry budget.
		rt := mocks.NewRoundTripper(
			mocks.StatusWith(http.StatusForbidden, `{"message":"You have exceeded a secondary rate limit"}`,
				"Retry-After", "1",
				"X-Ratelimit-Remaining", "0"),
			mocks.OK(`{"id":1,"login":"octocat"}`),
		)
		svc := newService(rt)

		user, err := svc.GetUser(context.Background(), fixtures.Credential(gitservice.KindGitHub))
		require.NoError(t, err)
		assert.Equal(t, "octocat", user.Login)
		assert.Equal(t, 2, rt.CallCount())
	})

	t.Run("plain 403 stays authentication", func(t *testing.T) {
		rt := mocks.NewRoundTripper(
			mocks.StatusWith(http.StatusForbidden, `{"message":"Must have admin rights"}`,
				"X-Ratelimit-Remaining", "4999"),
		)
		svc := newService(rt)

		_, err := svc.GetUser(context.Background(), fixtures.Credential(gitservice.KindGitHub))
		require.Error(t, err)
		assert.True(t, gitservice.IsAuthentication(err))
	})
}

func TestGitHub_SearchPage(t *testing.T) {
	rt := mocks.NewRoundTripper(
		mocks.OK(`{"total_count":1,"items":[{"id":2,"full_name":"octo/search-hit","stargazers_count":3}]}`),
	)
	svc := newService(rt)

	pager, err := svc.SearchRepositories(context.Background(), fixtures.Credential(gitservice.KindGitHub), "widgets", gitservice.ListOptions{})
	require.NoError(t, err)
	repos, err := pager.Next(context.Background())
	require.NoError(t, err)

	require.Len(t, repos, 1)
	assert.Equal(t, "octo/search-hit", repos[0].FullName)
	assert.Equal(t, 3, repos[0].StarCount)
	assert.Equal(t, "/search/repositories", rt.LastRequest().URL.Path)
	assert.Contains(t, rt.LastRequest().URL.RawQuery, "q=widgets")
}

func TestGitHub_DecodePullRequestStates(t *testing.T) {
	tests := []struct {
		name string
		body string
		want gitservice.PullRequestState
	}{
		{"open", `{"number":1,"state":"open"}`, gitservice.PullRequestOpen},
		{"closed unmerged", `{"number":1,"state":"closed"}`, gitservice.PullRequestClosed},
		{"merged flag", `{"number":1,"state":"closed","merged":true}`, gitservice.PullRequestMerged},
		{"merged_at only", `{"number":1,"state":"closed","merged_at":"2026-01-02T15:04:05Z"}`, gitservice.PullRequestMerged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := mocks.NewRoundTripper(mocks.StatusWith(http.StatusCreated, tt.body))
			svc := newService(rt)

			pr, err := svc.CreatePullRequest(context.Background(), fixtures.Credential(gitservice.KindGitHub), "octo/widgets",
				gitservice.CreatePullRequestParams{Title: "t", SourceBranch: "f", TargetBranch: "main"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, pr.State)
		})
	}
}

func TestGitHub_IssueTasksSkipPullRequests(t *testing.T) {
	rt := mocks.NewRoundTripper(
		mocks.StatusWith(200, repoPage),
		mocks.OK(`[{"number":5,"title":"Real issue"},{"number":6,"title":"Actually a PR","pull_request":{"url":"https://api.github.com/repos/octo/widgets/pulls/6"}}]`),
		mocks.OK(`[]`),
	)
	svc := newService(rt)

	tasks, err := svc.GetSuggestedTasks(context.Background(), fixtures.Credential(gitservice.KindGitHub))
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, gitservice.TaskOpenIssue, tasks[0].Type)
	assert.Equal(t, 5, tasks[0].Number)
}

func TestGitHub_CloneURL(t *testing.T) {
	svc := newService(mocks.NewRoundTripper(mocks.OK(`{}`)))
	url, err := svc.AuthenticatedCloneURL(gitservice.Repository{FullName: "octo/widgets"}, fixtures.Credential(gitservice.KindGitHub))
	require.NoError(t, err)
	assert.Equal(t, "https://t123@github.com/octo/widgets.git", url)
}
