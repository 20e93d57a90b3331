// Package gitea binds the Gitea API to the gitservice engine. Forgejo
// reuses this binding since its API is a Gitea fork.
package gitea

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/codelayer/gitbridge/pkg/gitservice"
)

// DefaultHost is the public Gitea instance.
const DefaultHost = "gitea.com"

// maxPerPage is Gitea's documented page size cap.
const maxPerPage = 50

// New builds a Gitea service.
func New(opts ...gitservice.Option) *gitservice.Service {
	return gitservice.New(Spec(), opts...)
}

// Spec describes gitea.com.
func Spec() gitservice.ProviderSpec {
	return NewSpec(gitservice.KindGitea, DefaultHost)
}

// NewSpec builds a Gitea-family provider spec; the forgejo package calls
// it with its own kind and default host.
func NewSpec(kind gitservice.ProviderKind, defaultHost string) gitservice.ProviderSpec {
	return gitservice.ProviderSpec{
		Kind:             kind,
		DefaultAPIBase:   "https://" + defaultHost + "/api/v1",
		SelfHostedPrefix: "/api/v1",
		DefaultCloneHost: defaultHost,

		AuthHeaders: func(token string) http.Header {
			// Gitea accepts both "token" and "Bearer"; "token" matches the
			// scheme its own docs lead with.
			return http.Header{"Authorization": {"token " + token}}
		},

		Pagination: gitservice.PaginationSpec{
			Kind:             gitservice.PaginationOffset,
			PageParam:        "page",
			PerPageParam:     "limit",
			DefaultPerPage:   30,
			MaxPerPage:       maxPerPage,
			TotalCountHeader: "X-Total-Count",
		},

		Classifier: gitservice.ClassifierTable{},

		CloneURL: gitservice.CloneURLSpec{
			TokenInURL: true,
			Template:   "https://{token}@{host}/{path}.git",
		},

		Endpoints: gitservice.Endpoints{
			GetUser:                 "/user",
			ListRepositories:        "/user/repos",
			SearchRepositories:      "/repos/search",
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
			IssuePage:      taskPage(gitservice.TaskOpenIssue),
			PullReqsPage:   taskPage(gitservice.TaskOpenPullRequest),
		},

		ListRepositoriesQuery: url.Values{"sort": {"updated"}},
		SearchQuery: func(query string) url.Values {
			return url.Values{"q": {query}, "sort": {"updated"}, "order": {"desc"}}
		},
		CreatePullRequestBody: func(p gitservice.CreatePullRequestParams) any {
			return map[string]any{
				"title": p.Title,
				"body":  p.Body,
				"head":  p.SourceBranch,
				"base":  p.TargetBranch,
			}
		},
		ListIssuesQuery:       url.Values{"state": {"open"}, "type": {"issues"}, "limit": {"5"}},
		ListPullRequestsQuery: url.Values{"state": {"open"}, "limit": {"5"}},
	}
}

// repository is the Gitea repository payload, reduced to what normalizes.
type repository struct {
	ID            int64  `json:"id"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
	StarsCount    int    `json:"stars_count"`
	CloneURL      string `json:"clone_url"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

func (r repository) normalize() gitservice.Repository {
	return gitservice.Repository{
		ID:            strconv.FormatInt(r.ID, 10),
		FullName:      r.FullName,
		Owner:         r.Owner.Login,
		Private:       r.Private,
		DefaultBranch: r.DefaultBranch,
		StarCount:     r.StarsCount,
		CloneURL:      r.CloneURL,
	}
}

func decodeRepository(body []byte) (gitservice.Repository, error) {
	var repo repository
	if err := json.Unmarshal(body, &repo); err != nil {
		return gitservice.Repository{}, err
	}
	return repo.normalize(), nil
}

// decodeRepositoryPage accepts both shapes Gitea serves for listings: a
// bare array and a {"data": [...]} envelope.
func decodeRepositoryPage(body []byte) ([]gitservice.Repository, error) {
	var raw []repository
	if err := json.Unmarshal(body, &raw); err != nil {
		var envelope struct {
			Data []repository `json:"data"`
		}
		if envErr := json.Unmarshal(body, &envelope); envErr != nil {
			return nil, err
		}
		raw = envelope.Data
	}
	return normalizeRepos(raw), nil
}

// decodeSearchPage handles the /repos/search {"ok": true, "data": [...]}
// envelope.
func decodeSearchPage(body []byte) ([]gitservice.Repository, error) {
	var envelope struct {
		Data []repository `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	return normalizeRepos(envelope.Data), nil
}

func normalizeRepos(raw []repository) []gitservice.Repository {
	repos := make([]gitservice.Repository, len(raw))
	for i, r := range raw {
		repos[i] = r.normalize()
	}
	return repos
}

func decodeBranchPage(body []byte) ([]gitservice.Branch, error) {
	var raw []struct {
		Name      string `json:"name"`
		Protected bool   `json:"protected"`
		Commit    struct {
			ID string `json:"id"`
		} `json:"commit"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	branches := make([]gitservice.Branch, len(raw))
	for i, b := range raw {
		branches[i] = gitservice.Branch{
			Name:          b.Name,
			Protected:     b.Protected,
			LastCommitSHA: b.Commit.ID,
		}
	}
	return branches, nil
}

func decodePullRequest(body []byte) (gitservice.PullRequest, error) {
	var raw struct {
		ID     int64  `json:"id"`
		Number int    `json:"number"`
		Title  string `json:"title"`
		State  string `json:"state"`
		Merged bool   `json:"merged"`
		Head   struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return gitservice.PullRequest{}, err
	}

	state := gitservice.PullRequestOpen
	switch {
	case raw.Merged:
		state = gitservice.PullRequestMerged
	case raw.State == "closed":
		state = gitservice.PullRequestClosed
	}
	return gitservice.PullRequest{
		ID:           strconv.FormatInt(raw.ID, 10),
		Number:       raw.Number,
		Title:        raw.Title,
		State:        state,
		SourceBranch: raw.Head.Ref,
		TargetBranch: raw.Base.Ref,
		URL:          raw.HTMLURL,
	}, nil
}

func decodeCommentPage(body []byte) ([]gitservice.Comment, error) {
	var raw []struct {
		ID   int64  `json:"id"`
		Body string `json:"body"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
		CreatedAt time.Time `json:"created_at"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	comments := make([]gitservice.Comment, len(raw))
	for i, c := range raw {
		comments[i] = gitservice.Comment{
			ID:        strconv.FormatInt(c.ID, 10),
			Author:    c.User.Login,
			Body:      c.Body,
			CreatedAt: c.CreatedAt,
		}
	}
	return comments, nil
}

func decodeUser(body []byte) (gitservice.User, error) {
	var raw struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		FullName  string `json:"full_name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return gitservice.User{}, err
	}
	return gitservice.User{
		ID:        strconv.FormatInt(raw.ID, 10),
		Login:     raw.Login,
		Name:      raw.FullName,
		Email:     raw.Email,
		AvatarURL: raw.AvatarURL,
	}, nil
}

// taskPage decodes an issue or pull listing into suggested tasks; the
// engine stamps repo and provider.
func taskPage(taskType gitservice.TaskType) func([]byte) ([]gitservice.SuggestedTask, error) {
	return func(body []byte) ([]gitservice.SuggestedTask, error) {
		var raw []struct {
			Number int    `json:"number"`
			Title  string `json:"title"`
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, err
		}
		tasks := make([]gitservice.SuggestedTask, 0, len(raw))
		for _, item := range raw {
			if item.Number == 0 || item.Title == "" {
				continue
			}
			tasks = append(tasks, gitservice.SuggestedTask{
				Type:   taskType,
				Number: item.Number,
				Title:  item.Title,
			})
		}
		return tasks, nil
	}
}
