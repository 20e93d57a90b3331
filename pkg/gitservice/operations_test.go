package gitservice_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelayer/gitbridge/internal/security"
	"github.com/codelayer/gitbridge/pkg/gitservice"
	"github.com/codelayer/gitbridge/testing/fixtures"
	"github.com/codelayer/gitbridge/testing/mocks"
)

func TestService_GetUser(t *testing.T) {
	rt := mocks.NewRoundTripper(mocks.OK(fixtures.GiteaUserJSON))
	svc := newGiteaService(rt)

	user, err := svc.GetUser(context.Background(), fixtures.Credential(gitservice.KindGitea))
	require.NoError(t, err)
	assert.Equal(t, "testuser", user.Login)
	assert.Equal(t, "Test User", user.Name)
	assert.Equal(t, "7", user.ID)
}

func TestService_VerifyAccess(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		rt := mocks.NewRoundTripper(mocks.OK(fixtures.GiteaUserJSON))
		svc := newGiteaService(rt)
		assert.NoError(t, svc.VerifyAccess(context.Background(), fixtures.Credential(gitservice.KindGitea)))
	})

	t.Run("rejected token keeps classification", func(t *testing.T) {
		rt := mocks.NewRoundTripper(mocks.StatusWith(http.StatusUnauthorized, `{"message":"token required"}`))
		svc := newGiteaService(rt)
		err := svc.VerifyAccess(context.Background(), fixtures.Credential(gitservice.KindGitea))
		assert.True(t, gitservice.IsAuthentication(err))
	})
}

func TestService_GetRepository_StampsDefaults(t *testing.T) {
	// No clone_url and no owner object in the payload: the engine fills
	// both, and a missing star field normalizes to zero.
	rt := mocks.NewRoundTripper(mocks.OK(`{"id":9,"full_name":"a/b","private":true,"default_branch":"main"}`))
	svc := newGiteaService(rt)

	repo, err := svc.GetRepository(context.Background(), fixtures.SelfHostedCredential(gitservice.KindGitea), "a/b")
	require.NoError(t, err)
	assert.Equal(t, gitservice.KindGitea, repo.Provider)
	assert.Equal(t, "https://git.example.com/a/b.git", repo.CloneURL)
	assert.Equal(t, "a", repo.Owner)
	assert.Zero(t, repo.StarCount)
	assert.True(t, repo.Private)
	assert.Equal(t, "/api/v1/repos/a/b", rt.LastRequest().URL.Path)
}

func TestService_ListBranches_MarksDefault(t *testing.T) {
	rt := mocks.NewRoundTripper(
		mocks.OK(`{"id":9,"full_name":"a/b","default_branch":"main"}`),
		mocks.OK(`[{"name":"main","protected":true,"commit":{"id":"abc123"}},{"name":"feature-x","commit":{"id":"def456"}}]`),
	)
	svc := newGiteaService(rt)

	pager, err := svc.ListBranches(context.Background(), fixtures.Credential(gitservice.KindGitea), "a/b", gitservice.ListOptions{})
	require.NoError(t, err)
	branches, err := pager.All(context.Background())
	require.NoError(t, err)

	require.Len(t, branches, 2)
	assert.True(t, branches[0].Default)
	assert.True(t, branches[0].Protected)
	assert.Equal(t, "abc123", branches[0].LastCommitSHA)
	assert.False(t, branches[1].Default)
}

func TestService_CreatePullRequest(t *testing.T) {
	t.Run("requires branches", func(t *testing.T) {
		rt := mocks.NewRoundTripper(mocks.OK(`{}`))
		svc := newGiteaService(rt)

		_, err := svc.CreatePullRequest(context.Background(), fixtures.Credential(gitservice.KindGitea), "a/b",
			gitservice.CreatePullRequestParams{Title: "x"})
		require.Error(t, err)
		assert.True(t, gitservice.IsValidation(err))
		assert.Zero(t, rt.CallCount())
	})

	t.Run("posts and decodes", func(t *testing.T) {
		rt := mocks.NewRoundTripper(mocks.StatusWith(http.StatusCreated,
			`{"id":42,"number":42,"title":"Add feature","state":"open","head":{"ref":"feature-x"},"base":{"ref":"main"},"html_url":"https://gitea.com/a/b/pulls/42"}`))
		svc := newGiteaService(rt)

		pr, err := svc.CreatePullRequest(context.Background(), fixtures.Credential(gitservice.KindGitea), "a/b",
			gitservice.CreatePullRequestParams{Title: "Add feature", SourceBranch: "feature-x", TargetBranch: "main"})
		require.NoError(t, err)
		assert.Equal(t, 42, pr.Number)
		assert.Equal(t, gitservice.PullRequestOpen, pr.State)
		assert.Equal(t, "feature-x", pr.SourceBranch)

		req := rt.LastRequest()
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/api/v1/repos/a/b/pulls", req.URL.Path)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"head":"feature-x"`)
		assert.Contains(t, string(body), `"base":"main"`)
	})
}

func TestService_ListPullRequestComments(t *testing.T) {
	rt := mocks.NewRoundTripper(
		mocks.OK(`[{"id":1,"body":"looks good","user":{"login":"reviewer"},"created_at":"2026-01-02T15:04:05Z"}]`),
	)
	svc := newGiteaService(rt)

	pager, err := svc.ListPullRequestComments(context.Background(), fixtures.Credential(gitservice.KindGitea), "a/b", 42, gitservice.ListOptions{})
	require.NoError(t, err)
	comments, err := pager.All(context.Background())
	require.NoError(t, err)

	require.Len(t, comments, 1)
	assert.Equal(t, "reviewer", comments[0].Author)
	assert.Equal(t, "looks good", comments[0].Body)
	assert.Equal(t, "/api/v1/repos/a/b/issues/42/comments", rt.LastRequest().URL.Path)
}

func TestService_GetSuggestedTasks(t *testing.T) {
	rt := mocks.NewRoundTripper(
		mocks.StatusWith(200, `[{"id":1,"full_name":"a/b","stars_count":5}]`, "X-Total-Count", "1"),
		mocks.OK(`[{"number":7,"title":"Fix crash"}]`),
		mocks.OK(`[{"number":8,"title":"Add feature"},{"number":0,"title":"draft placeholder"}]`),
	)
	svc := newGiteaService(rt)

	tasks, err := svc.GetSuggestedTasks(context.Background(), fixtures.Credential(gitservice.KindGitea))
	require.NoError(t, err)

	require.Len(t, tasks, 2)
	assert.Equal(t, gitservice.TaskOpenIssue, tasks[0].Type)
	assert.Equal(t, 7, tasks[0].Number)
	assert.Equal(t, "a/b", tasks[0].Repo)
	assert.Equal(t, gitservice.KindGitea, tasks[0].Provider)
	assert.Equal(t, gitservice.TaskOpenPullRequest, tasks[1].Type)
	assert.Equal(t, "Add feature", tasks[1].Title)
}

func TestService_GetSuggestedTasks_SkipsFailingRepo(t *testing.T) {
	rt := mocks.NewRoundTripper(
		mocks.StatusWith(200, `[{"id":1,"full_name":"a/b","stars_count":5}]`, "X-Total-Count", "1"),
		mocks.StatusWith(http.StatusNotFound, `{"message":"issues disabled"}`),
		mocks.OK(`[{"number":8,"title":"Add feature"}]`),
	)
	svc := newGiteaService(rt)

	tasks, err := svc.GetSuggestedTasks(context.Background(), fixtures.Credential(gitservice.KindGitea))
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, gitservice.TaskOpenPullRequest, tasks[0].Type)
}

func TestService_AuthenticatedCloneURL(t *testing.T) {
	svc := newGiteaService(mocks.NewRoundTripper(mocks.OK(`{}`)))
	cred := fixtures.Credential(gitservice.KindGitea)

	t.Run("embeds token", func(t *testing.T) {
		url, err := svc.AuthenticatedCloneURL(gitservice.Repository{FullName: "a/b"}, cred)
		require.NoError(t, err)
		assert.Equal(t, "https://t123@gitea.com/a/b.git", url)
	})

	t.Run("self-hosted host", func(t *testing.T) {
		url, err := svc.AuthenticatedCloneURL(gitservice.Repository{FullName: "a/b"}, fixtures.SelfHostedCredential(gitservice.KindGitea))
		require.NoError(t, err)
		assert.Equal(t, "https://t123@git.example.com/a/b.git", url)
	})

	t.Run("token is url escaped", func(t *testing.T) {
		odd := cred
		odd.Token = security.NewSecureToken("to&ken")
		url, err := svc.AuthenticatedCloneURL(gitservice.Repository{FullName: "a/b"}, odd)
		require.NoError(t, err)
		assert.NotContains(t, url, "to&ken")
		assert.Contains(t, url, "to%26ken")
	})

	t.Run("requires full name", func(t *testing.T) {
		_, err := svc.AuthenticatedCloneURL(gitservice.Repository{}, cred)
		require.Error(t, err)
		assert.True(t, gitservice.IsValidation(err))
	})

	t.Run("requires token for token-in-url scheme", func(t *testing.T) {
		empty := cred
		empty.Token = security.NewSecureToken("")
		_, err := svc.AuthenticatedCloneURL(gitservice.Repository{FullName: "a/b"}, empty)
		require.Error(t, err)
		assert.True(t, gitservice.IsAuthentication(err))
	})
}

func TestService_AuthenticatedCloneURL_HeaderScheme(t *testing.T) {
	// A provider whose git endpoint authenticates out-of-band must never
	// leak the token into the URL.
	spec := gitservice.ProviderSpec{
		Kind:             "header-based",
		DefaultCloneHost: "git.internal",
		CloneURL: gitservice.CloneURLSpec{
			TokenInURL: false,
			Template:   "https://{host}/{path}.git",
		},
	}
	svc := gitservice.New(spec)

	cred := gitservice.Credential{Token: security.NewSecureToken("supersecret")}
	url, err := svc.AuthenticatedCloneURL(gitservice.Repository{FullName: "a/b"}, cred)
	require.NoError(t, err)
	assert.Equal(t, "https://git.internal/a/b.git", url)
	assert.NotContains(t, url, "supersecret")
}
