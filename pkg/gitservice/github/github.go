// Package github binds the GitHub REST API (github.com and GitHub
// Enterprise) to the gitservice engine. Upstream payloads are decoded
// through google/go-github's types so field coverage tracks the API.
package github

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/go-github/v69/github"

	"github.com/codelayer/gitbridge/pkg/gitservice"
)

// DefaultHost is the public GitHub instance.
const DefaultHost = "github.com"

const (
	apiVersion = "2022-11-28"
	maxPerPage = 100
)

// New builds a GitHub service.
func New(opts ...gitservice.Option) *gitservice.Service {
	return gitservice.New(Spec(), opts...)
}

// Spec describes api.github.com; GitHub Enterprise hosts resolve through
// the credential to https://HOST/api/v3.
func Spec() gitservice.ProviderSpec {
	return gitservice.ProviderSpec{
		Kind:             gitservice.KindGitHub,
		DefaultAPIBase:   "https://api.github.com",
		SelfHostedPrefix: "/api/v3",
		DefaultCloneHost: DefaultHost,

		AuthHeaders: func(token string) http.Header {
			return http.Header{
				"Authorization":        {"Bearer " + token},
				"Accept":               {"application/vnd.github+json"},
				"X-Github-Api-Version": {apiVersion},
			}
		},

		Pagination: gitservice.PaginationSpec{
			Kind:           gitservice.PaginationCursor,
			PerPageParam:   "per_page",
			DefaultPerPage: 30,
			MaxPerPage:     maxPerPage,
			NextCursor: func(header http.Header, _ []byte) string {
				return gitservice.NextLinkHeader(header)
			},
		},

		Classifier: gitservice.ClassifierTable{
			// GitHub reports primary and secondary rate limits as 403 with
			// rate limit headers; without them a 403 is a real permission
			// failure.
			Special: func(status int, header http.Header, body []byte) (*gitservice.ClassifiedError, bool) {
				if status != http.StatusForbidden {
					return nil, false
				}
				if header.Get("Retry-After") == "" && header.Get("X-Ratelimit-Remaining") != "0" {
					return nil, false
				}
				return &gitservice.ClassifiedError{
					Kind:              gitservice.KindRateLimited,
					HTTPStatus:        status,
					RetryAfterSeconds: rateLimitDelay(header),
					ProviderMessage:   messageField(body),
				}, true
			},
		},

		CloneURL: gitservice.CloneURLSpec{
			TokenInURL: true,
			Template:   "https://{token}@{host}/{path}.git",
		},

		Endpoints: gitservice.Endpoints{
			GetUser:                 "/user",
			ListRepositories:        "/user/repos",
			SearchRepositories:      "/search/repositories",
			GetRepository:           "/repos/{owner}/{repo}",
			ListBranches:            "/repos/{owner}/{repo}/branches",
			CreatePullRequest:       "/repos/{owner}/{repo}/pulls",
			ListPullRequestComments: "/repos/{owner}/{repo}/issues/{number}/comments",
			ListIssues:              "/repos/{owner}/{repo}/issues",
			ListPullRequests:        "/repos/{owner}/{repo}/pulls",
		},

		Decode: gitservice.Decoders{
			User:           decodeUser,
			Repository:     decodeRepository,
			RepositoryPage: decodeRepositoryPage,
			SearchPage:     decodeSearchPage,
			BranchPage:     decodeBranchPage,
			PullRequest:    decodePullRequest,
			CommentPage:    decodeCommentPage,
			IssuePage:      decodeIssueTasks,
			PullReqsPage:   decodePullTasks,
		},

		ListRepositoriesQuery: url.Values{"sort": {"updated"}},
		SearchQuery: func(query string) url.Values {
			return url.Values{"q": {query}, "sort": {"updated"}}
		},
		CreatePullRequestBody: func(p gitservice.CreatePullRequestParams) any {
			return &github.NewPullRequest{
				Title: github.Ptr(p.Title),
				Head:  github.Ptr(p.SourceBranch),
				Base:  github.Ptr(p.TargetBranch),
				Body:  github.Ptr(p.Body),
				Draft: github.Ptr(p.Draft),
			}
		},
		ListIssuesQuery:       url.Values{"state": {"open"}, "per_page": {"5"}},
		ListPullRequestsQuery: url.Values{"state": {"open"}, "per_page": {"5"}},
	}
}

// rateLimitDelay derives the wait from Retry-After or the primary rate
// limit reset epoch.
func rateLimitDelay(header http.Header) int {
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return secs
		}
	}
	if v := header.Get("X-Ratelimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if delta := time.Until(time.Unix(epoch, 0)); delta > 0 {
				return int(delta.Round(time.Second) / time.Second)
			}
		}
	}
	return 0
}

func messageField(body []byte) string {
	var raw struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return ""
	}
	return raw.Message
}

func normalizeRepository(r *github.Repository) gitservice.Repository {
	return gitservice.Repository{
		ID:            strconv.FormatInt(r.GetID(), 10),
		FullName:      r.GetFullName(),
		Owner:         r.GetOwner().GetLogin(),
		Private:       r.GetPrivate(),
		DefaultBranch: r.GetDefaultBranch(),
		StarCount:     r.GetStargazersCount(),
		CloneURL:      r.GetCloneURL(),
	}
}

func decodeRepository(body []byte) (gitservice.Repository, error) {
	var repo github.Repository
	if err := json.Unmarshal(body, &repo); err != nil {
		return gitservice.Repository{}, err
	}
	return normalizeRepository(&repo), nil
}

func decodeRepositoryPage(body []byte) ([]gitservice.Repository, error) {
	var raw []*github.Repository
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	repos := make([]gitservice.Repository, len(raw))
	for i, r := range raw {
		repos[i] = normalizeRepository(r)
	}
	return repos, nil
}

func decodeSearchPage(body []byte) ([]gitservice.Repository, error) {
	var result github.RepositoriesSearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	repos := make([]gitservice.Repository, len(result.Repositories))
	for i, r := range result.Repositories {
		repos[i] = normalizeRepository(r)
	}
	return repos, nil
}

func decodeBranchPage(body []byte) ([]gitservice.Branch, error) {
	var raw []*github.Branch
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	branches := make([]gitservice.Branch, len(raw))
	for i, b := range raw {
		branches[i] = gitservice.Branch{
			Name:          b.GetName(),
			Protected:     b.GetProtected(),
			LastCommitSHA: b.GetCommit().GetSHA(),
		}
	}
	return branches, nil
}

func decodePullRequest(body []byte) (gitservice.PullRequest, error) {
	var pr github.PullRequest
	if err := json.Unmarshal(body, &pr); err != nil {
		return gitservice.PullRequest{}, err
	}

	state := gitservice.PullRequestOpen
	switch {
	case pr.GetMerged() || pr.MergedAt != nil:
		state = gitservice.PullRequestMerged
	case pr.GetState() == "closed":
		state = gitservice.PullRequestClosed
	}
	return gitservice.PullRequest{
		ID:           strconv.FormatInt(pr.GetID(), 10),
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		State:        state,
		SourceBranch: pr.GetHead().GetRef(),
		TargetBranch: pr.GetBase().GetRef(),
		URL:          pr.GetHTMLURL(),
	}, nil
}

func decodeCommentPage(body []byte) ([]gitservice.Comment, error) {
	var raw []*github.IssueComment
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	comments := make([]gitservice.Comment, len(raw))
	for i, c := range raw {
		comments[i] = gitservice.Comment{
			ID:        strconv.FormatInt(c.GetID(), 10),
			Author:    c.GetUser().GetLogin(),
			Body:      c.GetBody(),
			CreatedAt: c.GetCreatedAt().Time,
		}
	}
	return comments, nil
}

func decodeUser(body []byte) (gitservice.User, error) {
	var user github.User
	if err := json.Unmarshal(body, &user); err != nil {
		return gitservice.User{}, err
	}
	return gitservice.User{
		ID:        strconv.FormatInt(user.GetID(), 10),
		Login:     user.GetLogin(),
		Name:      user.GetName(),
		Email:     user.GetEmail(),
		AvatarURL: user.GetAvatarURL(),
		Company:   user.GetCompany(),
	}, nil
}

// decodeIssueTasks skips pull requests, which GitHub's issues endpoint
// also returns.
func decodeIssueTasks(body []byte) ([]gitservice.SuggestedTask, error) {
	var raw []*github.Issue
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	tasks := make([]gitservice.SuggestedTask, 0, len(raw))
	for _, issue := range raw {
		if issue.IsPullRequest() || issue.GetNumber() == 0 || issue.GetTitle() == "" {
			continue
		}
		tasks = append(tasks, gitservice.SuggestedTask{
			Type:   gitservice.TaskOpenIssue,
			Number: issue.GetNumber(),
			Title:  issue.GetTitle(),
		})
	}
	return tasks, nil
}

func decodePullTasks(body []byte) ([]gitservice.SuggestedTask, error) {
	var raw []*github.PullRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	tasks := make([]gitservice.SuggestedTask, 0, len(raw))
	for _, pr := range raw {
		if pr.GetNumber() == 0 || pr.GetTitle() == "" {
			continue
		}
		tasks = append(tasks, gitservice.SuggestedTask{
			Type:   gitservice.TaskOpenPullRequest,
			Number: pr.GetNumber(),
			Title:  pr.GetTitle(),
		})
	}
	return tasks, nil
}
