// Package fixtures provides common test data for gitbridge tests.
package fixtures

import (
	"github.com/codelayer/gitbridge/internal/security"
	"github.com/codelayer/gitbridge/pkg/gitservice"
)

// Test constants shared across suites.
const (
	// TestToken is a dummy provider token.
	TestToken = "t123"
	// TestUserID is a dummy platform user id.
	TestUserID = "user-1"
	// TestHost is a dummy self-hosted instance host.
	TestHost = "git.example.com"
	// TestFullName is a dummy repository full name.
	TestFullName = "a/b"
)

// Credential returns a valid credential for the given provider.
func Credential(kind gitservice.ProviderKind) gitservice.Credential {
	return gitservice.Credential{
		Provider: kind,
		Token:    security.NewSecureToken(TestToken),
		UserID:   TestUserID,
	}
}

// SelfHostedCredential returns a credential pointing at TestHost.
func SelfHostedCredential(kind gitservice.ProviderKind) gitservice.Credential {
	cred := Credential(kind)
	cred.Host = TestHost
	return cred
}

// ValidRepository returns a normalized repository for testing.
func ValidRepository() gitservice.Repository {
	return gitservice.Repository{
		ID:            "1",
		FullName:      TestFullName,
		Owner:         "a",
		Private:       false,
		DefaultBranch: "main",
		StarCount:     5,
		CloneURL:      "https://git.example.com/a/b.git",
		Provider:      gitservice.KindGitea,
	}
}

// ValidBranches returns a branch set with a marked default.
func ValidBranches() []gitservice.Branch {
	return []gitservice.Branch{
		{Name: "main", Default: true, Protected: true, LastCommitSHA: "abc123"},
		{Name: "feature-x", LastCommitSHA: "def456"},
	}
}

// ValidPullRequest returns a normalized pull request for testing.
func ValidPullRequest() gitservice.PullRequest {
	return gitservice.PullRequest{
		ID:           "42",
		Number:       42,
		Title:        "Add user authentication",
		State:        gitservice.PullRequestOpen,
		SourceBranch: "feature-x",
		TargetBranch: "main",
		URL:          "https://git.example.com/a/b/pulls/42",
	}
}

// ValidUser returns a normalized user for testing.
func ValidUser() gitservice.User {
	return gitservice.User{
		ID:    "7",
		Login: "testuser",
		Name:  "Test User",
		Email: "test@example.com",
	}
}

// JSON response bodies replayed by httptest upstreams.
const (
	// GiteaRepoPageEnvelope is a single-repository page wrapped in the
	// data envelope some Gitea endpoints use.
	GiteaRepoPageEnvelope = `{"data":[{"id":1,"full_name":"a/b","private":false,"default_branch":"main","stars_count":5,"clone_url":"https://git.example.com/a/b.git"}]}`

	// GiteaRepoArray is the same repository as a bare array page.
	GiteaRepoArray = `[{"id":1,"full_name":"a/b","private":false,"default_branch":"main","stars_count":5,"clone_url":"https://git.example.com/a/b.git"}]`

	// GiteaUserJSON is a minimal authenticated-user response.
	GiteaUserJSON = `{"id":7,"login":"testuser","full_name":"Test User","email":"test@example.com"}`

	// BitbucketRepoNoStars is a repository without any star field.
	BitbucketRepoNoStars = `{"uuid":"{u-1}","full_name":"a/b","is_private":true,"mainbranch":{"name":"main"}}`

	// RateLimitBody is a generic rate limit error payload.
	RateLimitBody = `{"message":"rate limit exceeded"}`
)
