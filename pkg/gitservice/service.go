package gitservice

import "context"

// GitService is the single contract every provider satisfies. All
// operations take the credential explicitly; implementations hold no
// per-user state and are safe for concurrent use.
//
// The concrete implementation is [Service]; the interface exists for the
// resolver and for test doubles.
type GitService interface {
	// Kind identifies the provider behind this service.
	Kind() ProviderKind

	// GetUser returns the authenticated user, doubling as a token check.
	GetUser(ctx context.Context, cred Credential) (User, error)

	// VerifyAccess reports whether the credential can reach the API.
	VerifyAccess(ctx context.Context, cred Credential) error

	// ListRepositories pages through the repositories the credential can see.
	ListRepositories(ctx context.Context, cred Credential, opts ListOptions) (*Pager[Repository], error)

	// SearchRepositories pages through repositories matching query.
	SearchRepositories(ctx context.Context, cred Credential, query string, opts ListOptions) (*Pager[Repository], error)

	// GetRepository fetches one repository by its "owner/repo" full name.
	GetRepository(ctx context.Context, cred Credential, fullName string) (Repository, error)

	// ListBranches pages through a repository's branches, marking the
	// default branch.
	ListBranches(ctx context.Context, cred Credential, fullName string, opts ListOptions) (*Pager[Branch], error)

	// CreatePullRequest opens a pull/merge request.
	CreatePullRequest(ctx context.Context, cred Credential, fullName string, params CreatePullRequestParams) (PullRequest, error)

	// ListPullRequestComments pages through the discussion of one pull request.
	ListPullRequestComments(ctx context.Context, cred Credential, fullName string, number int, opts ListOptions) (*Pager[Comment], error)

	// GetSuggestedTasks collects open issues and pull requests across the
	// user's most relevant repositories. Per-repository failures are
	// skipped, not fatal.
	GetSuggestedTasks(ctx context.Context, cred Credential) ([]SuggestedTask, error)

	// AuthenticatedCloneURL renders the clone URL for the provider's
	// accepted credential scheme. The result may embed the raw token and
	// must never be logged unredacted.
	AuthenticatedCloneURL(repo Repository, cred Credential) (string, error)
}

// Service implements GitService.
var _ GitService = (*Service)(nil)
