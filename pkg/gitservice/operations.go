package gitservice

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	// taskRepoLimit bounds how many repositories suggested-task discovery
	// inspects; the per-repo item cap lives in each provider's query table.
	taskRepoLimit = 10
	// taskFetchConcurrency bounds parallel per-repository lookups.
	taskFetchConcurrency = 4
)

// GetUser returns the authenticated user's profile.
func (s *Service) GetUser(ctx context.Context, cred Credential) (User, error) {
	resp, err := s.request(ctx, http.MethodGet, joinURL(s.spec.apiBase(cred), s.spec.Endpoints.GetUser, nil), nil, cred)
	if err != nil {
		return User{}, err
	}
	user, err := s.spec.Decode.User(resp.body)
	if err != nil {
		return User{}, fmt.Errorf("decode %s user: %w", s.spec.Kind, err)
	}
	return user, nil
}

// VerifyAccess probes the API with the credential. A nil return means the
// token is usable; classification of the failure is preserved otherwise.
func (s *Service) VerifyAccess(ctx context.Context, cred Credential) error {
	_, err := s.GetUser(ctx, cred)
	return err
}

// ListRepositories pages through the repositories visible to the credential.
func (s *Service) ListRepositories(_ context.Context, cred Credential, opts ListOptions) (*Pager[Repository], error) {
	return newPager(s, cred, s.spec.Endpoints.ListRepositories, s.spec.ListRepositoriesQuery,
		s.spec.Decode.RepositoryPage, s.stampRepository(cred), opts), nil
}

// SearchRepositories pages through repositories matching query.
func (s *Service) SearchRepositories(_ context.Context, cred Credential, query string, opts ListOptions) (*Pager[Repository], error) {
	decode := s.spec.Decode.SearchPage
	if decode == nil {
		decode = s.spec.Decode.RepositoryPage
	}
	return newPager(s, cred, s.spec.Endpoints.SearchRepositories, s.spec.SearchQuery(query),
		decode, s.stampRepository(cred), opts), nil
}

// GetRepository fetches one repository by full name.
func (s *Service) GetRepository(ctx context.Context, cred Credential, fullName string) (Repository, error) {
	path := expandPath(s.spec.Endpoints.GetRepository, pathVars(fullName))
	resp, err := s.request(ctx, http.MethodGet, joinURL(s.spec.apiBase(cred), path, nil), nil, cred)
	if err != nil {
		return Repository{}, err
	}
	repo, err := s.spec.Decode.Repository(resp.body)
	if err != nil {
		return Repository{}, fmt.Errorf("decode %s repository: %w", s.spec.Kind, err)
	}
	s.stampRepository(cred)(&repo)
	return repo, nil
}

// ListBranches pages through a repository's branches. The repository is
// fetched first so the default branch can be marked even on providers
// whose branch payloads don't carry that flag.
func (s *Service) ListBranches(ctx context.Context, cred Credential, fullName string, opts ListOptions) (*Pager[Branch], error) {
	repo, err := s.GetRepository(ctx, cred, fullName)
	if err != nil {
		return nil, err
	}
	path := expandPath(s.spec.Endpoints.ListBranches, pathVars(fullName))
	post := func(b *Branch) {
		if repo.DefaultBranch != "" && b.Name == repo.DefaultBranch {
			b.Default = true
		}
	}
	return newPager(s, cred, path, nil, s.spec.Decode.BranchPage, post, opts), nil
}

// CreatePullRequest opens a pull/merge request and returns its normalized form.
func (s *Service) CreatePullRequest(ctx context.Context, cred Credential, fullName string, params CreatePullRequestParams) (PullRequest, error) {
	if params.SourceBranch == "" || params.TargetBranch == "" {
		return PullRequest{}, validationError(fmt.Errorf("source and target branches are required"), "")
	}
	path := expandPath(s.spec.Endpoints.CreatePullRequest, pathVars(fullName))
	payload := s.spec.CreatePullRequestBody(params)
	resp, err := s.request(ctx, http.MethodPost, joinURL(s.spec.apiBase(cred), path, nil), payload, cred)
	if err != nil {
		return PullRequest{}, err
	}
	pr, err := s.spec.Decode.PullRequest(resp.body)
	if err != nil {
		return PullRequest{}, fmt.Errorf("decode %s pull request: %w", s.spec.Kind, err)
	}
	return pr, nil
}

// ListPullRequestComments pages through one pull request's comments.
func (s *Service) ListPullRequestComments(_ context.Context, cred Credential, fullName string, number int, opts ListOptions) (*Pager[Comment], error) {
	vars := pathVars(fullName)
	vars["number"] = fmt.Sprintf("%d", number)
	path := expandPath(s.spec.Endpoints.ListPullRequestComments, vars)
	return newPager(s, cred, path, nil, s.spec.Decode.CommentPage, nil, opts), nil
}

// GetSuggestedTasks surfaces open issues and pull requests across the
// user's most recently active repositories. Repositories that fail to
// answer are skipped so one flaky repo cannot sink the whole sweep.
func (s *Service) GetSuggestedTasks(ctx context.Context, cred Credential) ([]SuggestedTask, error) {
	pager, err := s.ListRepositories(ctx, cred, ListOptions{Limit: taskRepoLimit})
	if err != nil {
		return nil, err
	}
	repos, err := pager.All(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		tasks []SuggestedTask
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(taskFetchConcurrency)
	for _, repo := range repos {
		g.Go(func() error {
			found := s.tasksForRepo(gctx, cred, repo.FullName)
			if len(found) > 0 {
				mu.Lock()
				tasks = append(tasks, found...)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// tasksForRepo collects one repository's open issues and pull requests,
// swallowing failures.
func (s *Service) tasksForRepo(ctx context.Context, cred Credential, fullName string) []SuggestedTask {
	var tasks []SuggestedTask
	vars := pathVars(fullName)

	fetch := func(endpoint string, query url.Values, decode func([]byte) ([]SuggestedTask, error)) {
		if endpoint == "" || decode == nil {
			return
		}
		path := expandPath(endpoint, vars)
		resp, err := s.request(ctx, http.MethodGet, joinURL(s.spec.apiBase(cred), path, query), nil, cred)
		if err != nil {
			return
		}
		found, err := decode(resp.body)
		if err != nil {
			return
		}
		for i := range found {
			found[i].Provider = s.spec.Kind
			found[i].Repo = fullName
		}
		tasks = append(tasks, found...)
	}

	fetch(s.spec.Endpoints.ListIssues, s.spec.ListIssuesQuery, s.spec.Decode.IssuePage)
	fetch(s.spec.Endpoints.ListPullRequests, s.spec.ListPullRequestsQuery, s.spec.Decode.PullReqsPage)
	return tasks
}

// AuthenticatedCloneURL renders the provider's clone URL scheme for repo.
// Callers own redaction; internal/security.SanitizeString strips embedded
// tokens before anything reaches a log line.
func (s *Service) AuthenticatedCloneURL(repo Repository, cred Credential) (string, error) {
	if repo.FullName == "" {
		return "", validationError(fmt.Errorf("repository full name is required"), "")
	}
	if s.spec.CloneURL.TokenInURL && cred.Token.IsEmpty() {
		return "", &ClassifiedError{Kind: KindAuthentication, Err: errEmptyToken}
	}
	return s.spec.BuildCloneURL(repo, cred), nil
}

// stampRepository fills in the engine-owned repository fields after decode.
func (s *Service) stampRepository(cred Credential) func(*Repository) {
	host := s.spec.cloneHost(cred)
	return func(r *Repository) {
		r.Provider = s.spec.Kind
		if r.CloneURL == "" && r.FullName != "" {
			r.CloneURL = fmt.Sprintf("https://%s/%s.git", host, r.FullName)
		}
		if r.Owner == "" {
			owner, _ := splitFullName(r.FullName)
			r.Owner = owner
		}
	}
}
