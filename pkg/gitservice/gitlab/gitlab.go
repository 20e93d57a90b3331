// Package gitlab binds the GitLab REST API (gitlab.com and self-managed)
// to the gitservice engine. Upstream payloads are decoded through
// gitlab-org/api/client-go's types so field coverage tracks the API.
package gitlab

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/codelayer/gitbridge/pkg/gitservice"
)

// DefaultHost is the public GitLab instance.
const DefaultHost = "gitlab.com"

const maxPerPage = 100

// New builds a GitLab service.
func New(opts ...gitservice.Option) *gitservice.Service {
	return gitservice.New(Spec(), opts...)
}

// Spec describes gitlab.com; self-managed hosts resolve through the
// credential to https://HOST/api/v4.
func Spec() gitservice.ProviderSpec {
	return gitservice.ProviderSpec{
		Kind:             gitservice.KindGitLab,
		DefaultAPIBase:   "https://gitlab.com/api/v4",
		SelfHostedPrefix: "/api/v4",
		DefaultCloneHost: DefaultHost,

		AuthHeaders: func(token string) http.Header {
			return http.Header{"Private-Token": {token}}
		},

		Pagination: gitservice.PaginationSpec{
			Kind:             gitservice.PaginationOffset,
			PageParam:        "page",
			PerPageParam:     "per_page",
			DefaultPerPage:   20,
			MaxPerPage:       maxPerPage,
			TotalCountHeader: "X-Total",
		},

		Classifier: gitservice.ClassifierTable{
			// GitLab sometimes reports rate limiting via RateLimit-Reset
			// on a 429 without Retry-After.
			Special: func(status int, header http.Header, body []byte) (*gitservice.ClassifiedError, bool) {
				if status != http.StatusTooManyRequests || header.Get("Retry-After") != "" {
					return nil, false
				}
				reset := header.Get("Ratelimit-Reset")
				if reset == "" {
					return nil, false
				}
				epoch, err := strconv.ParseInt(reset, 10, 64)
				if err != nil {
					return nil, false
				}
				delay := 0
				if delta := time.Until(time.Unix(epoch, 0)); delta > 0 {
					delay = int(delta.Round(time.Second) / time.Second)
				}
				return &gitservice.ClassifiedError{
					Kind:              gitservice.KindRateLimited,
					HTTPStatus:        status,
					RetryAfterSeconds: delay,
				}, true
			},
		},

		CloneURL: gitservice.CloneURLSpec{
			TokenInURL: true,
			Template:   "https://oauth2:{token}@{host}/{path}.git",
		},

		Endpoints: gitservice.Endpoints{
			GetUser:                 "/user",
			ListRepositories:        "/projects",
			SearchRepositories:      "/projects",
			GetRepository:           "/projects/{project}",
			ListBranches:            "/projects/{project}/repository/branches",
			CreatePullRequest:       "/projects/{project}/merge_requests",
			ListPullRequestComments: "/projects/{project}/merge_requests/{number}/notes",
			ListIssues:              "/projects/{project}/issues",
			ListPullRequests:        "/projects/{project}/merge_requests",
		},

		Decode: gitservice.Decoders{
			User:           decodeUser,
			Repository:     decodeProject,
			RepositoryPage: decodeProjectPage,
			BranchPage:     decodeBranchPage,
			PullRequest:    decodeMergeRequest,
			CommentPage:    decodeNotePage,
			IssuePage:      decodeIssueTasks,
			PullReqsPage:   decodeMergeRequestTasks,
		},

		ListRepositoriesQuery: url.Values{
			"membership": {"true"},
			"order_by":   {"last_activity_at"},
		},
		SearchQuery: func(query string) url.Values {
			return url.Values{
				"search":     {query},
				"membership": {"true"},
				"order_by":   {"last_activity_at"},
			}
		},
		CreatePullRequestBody: func(p gitservice.CreatePullRequestParams) any {
			opts := &gitlab.CreateMergeRequestOptions{
				Title:        gitlab.Ptr(p.Title),
				Description:  gitlab.Ptr(p.Body),
				SourceBranch: gitlab.Ptr(p.SourceBranch),
				TargetBranch: gitlab.Ptr(p.TargetBranch),
			}
			if len(p.Labels) > 0 {
				labels := gitlab.LabelOptions(p.Labels)
				opts.Labels = &labels
			}
			return opts
		},
		ListIssuesQuery:       url.Values{"state": {"opened"}, "per_page": {"5"}},
		ListPullRequestsQuery: url.Values{"state": {"opened"}, "per_page": {"5"}},
	}
}

func normalizeProject(p *gitlab.Project) gitservice.Repository {
	owner := ""
	if idx := strings.LastIndex(p.PathWithNamespace, "/"); idx > 0 {
		owner = p.PathWithNamespace[:idx]
	}
	return gitservice.Repository{
		ID:            strconv.Itoa(p.ID),
		FullName:      p.PathWithNamespace,
		Owner:         owner,
		Private:       p.Visibility != gitlab.PublicVisibility,
		DefaultBranch: p.DefaultBranch,
		StarCount:     p.StarCount,
		CloneURL:      p.HTTPURLToRepo,
	}
}

func decodeProject(body []byte) (gitservice.Repository, error) {
	var project gitlab.Project
	if err := json.Unmarshal(body, &project); err != nil {
		return gitservice.Repository{}, err
	}
	return normalizeProject(&project), nil
}

func decodeProjectPage(body []byte) ([]gitservice.Repository, error) {
	var raw []*gitlab.Project
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	repos := make([]gitservice.Repository, len(raw))
	for i, p := range raw {
		repos[i] = normalizeProject(p)
	}
	return repos, nil
}

func decodeBranchPage(body []byte) ([]gitservice.Branch, error) {
	var raw []*gitlab.Branch
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	branches := make([]gitservice.Branch, len(raw))
	for i, b := range raw {
		sha := ""
		if b.Commit != nil {
			sha = b.Commit.ID
		}
		branches[i] = gitservice.Branch{
			Name:          b.Name,
			Default:       b.Default,
			Protected:     b.Protected,
			LastCommitSHA: sha,
		}
	}
	return branches, nil
}

func decodeMergeRequest(body []byte) (gitservice.PullRequest, error) {
	var mr gitlab.MergeRequest
	if err := json.Unmarshal(body, &mr); err != nil {
		return gitservice.PullRequest{}, err
	}

	state := gitservice.PullRequestOpen
	switch mr.State {
	case "merged":
		state = gitservice.PullRequestMerged
	case "closed", "locked":
		state = gitservice.PullRequestClosed
	}
	return gitservice.PullRequest{
		ID:           strconv.Itoa(mr.ID),
		Number:       mr.IID,
		Title:        mr.Title,
		State:        state,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		URL:          mr.WebURL,
	}, nil
}

func decodeNotePage(body []byte) ([]gitservice.Comment, error) {
	var raw []*gitlab.Note
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	comments := make([]gitservice.Comment, len(raw))
	for i, n := range raw {
		created := time.Time{}
		if n.CreatedAt != nil {
			created = *n.CreatedAt
		}
		comments[i] = gitservice.Comment{
			ID:        strconv.Itoa(n.ID),
			Author:    n.Author.Username,
			Body:      n.Body,
			CreatedAt: created,
		}
	}
	return comments, nil
}

func decodeUser(body []byte) (gitservice.User, error) {
	var user gitlab.User
	if err := json.Unmarshal(body, &user); err != nil {
		return gitservice.User{}, err
	}
	return gitservice.User{
		ID:        strconv.Itoa(user.ID),
		Login:     user.Username,
		Name:      user.Name,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
		Company:   user.Organization,
	}, nil
}

func decodeIssueTasks(body []byte) ([]gitservice.SuggestedTask, error) {
	var raw []*gitlab.Issue
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	tasks := make([]gitservice.SuggestedTask, 0, len(raw))
	for _, issue := range raw {
		if issue.IID == 0 || issue.Title == "" {
			continue
		}
		tasks = append(tasks, gitservice.SuggestedTask{
			Type:   gitservice.TaskOpenIssue,
			Number: issue.IID,
			Title:  issue.Title,
		})
	}
	return tasks, nil
}

func decodeMergeRequestTasks(body []byte) ([]gitservice.SuggestedTask, error) {
	var raw []*gitlab.BasicMergeRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	tasks := make([]gitservice.SuggestedTask, 0, len(raw))
	for _, mr := range raw {
		if mr.IID == 0 || mr.Title == "" {
			continue
		}
		tasks = append(tasks, gitservice.SuggestedTask{
			Type:   gitservice.TaskOpenPullRequest,
			Number: mr.IID,
			Title:  mr.Title,
		})
	}
	return tasks, nil
}
