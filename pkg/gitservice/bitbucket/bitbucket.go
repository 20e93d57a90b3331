// Package bitbucket binds the Bitbucket Cloud 2.0 API to the gitservice
// engine. No maintained SDK covers the 2.0 API, so payloads are decoded
// through local DTOs.
package bitbucket

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/codelayer/gitbridge/pkg/gitservice"
)

// DefaultHost is the public Bitbucket Cloud instance.
const DefaultHost = "bitbucket.org"

const maxPerPage = 100

// New builds a Bitbucket service.
func New(opts ...gitservice.Option) *gitservice.Service {
	return gitservice.New(Spec(), opts...)
}

// Spec describes api.bitbucket.org.
func Spec() gitservice.ProviderSpec {
	return gitservice.ProviderSpec{
		Kind:             gitservice.KindBitbucket,
		DefaultAPIBase:   "https://api.bitbucket.org/2.0",
		SelfHostedPrefix: "/2.0",
		DefaultCloneHost: DefaultHost,

		// App passwords arrive as "user:password" and use Basic auth;
		// workspace/repository access tokens are plain Bearer tokens.
		AuthHeaders: func(token string) http.Header {
			if strings.Contains(token, ":") {
				encoded := base64.StdEncoding.EncodeToString([]byte(token))
				return http.Header{"Authorization": {"Basic " + encoded}}
			}
			return http.Header{"Authorization": {"Bearer " + token}}
		},

		Pagination: gitservice.PaginationSpec{
			Kind:           gitservice.PaginationCursor,
			PerPageParam:   "pagelen",
			DefaultPerPage: 10,
			MaxPerPage:     maxPerPage,
			NextCursor: func(_ http.Header, body []byte) string {
				var envelope struct {
					Next string `json:"next"`
				}
				if err := json.Unmarshal(body, &envelope); err != nil {
					return ""
				}
				return envelope.Next
			},
		},

		Classifier: gitservice.ClassifierTable{
			Message: func(body []byte) string {
				var envelope struct {
					Error struct {
						Message string `json:"message"`
					} `json:"error"`
				}
				if err := json.Unmarshal(body, &envelope); err != nil {
					return ""
				}
				return envelope.Error.Message
			},
		},

		CloneURL: gitservice.CloneURLSpec{
			TokenInURL: true,
			Template:   "https://x-token-auth:{token}@{host}/{path}.git",
		},

		Endpoints: gitservice.Endpoints{
			GetUser:                 "/user",
			ListRepositories:        "/repositories",
			SearchRepositories:      "/repositories",
			GetRepository:           "/repositories/{owner}/{repo}",
			ListBranches:            "/repositories/{owner}/{repo}/refs/branches",
			CreatePullRequest:       "/repositories/{owner}/{repo}/pullrequests",
			ListPullRequestComments: "/repositories/{owner}/{repo}/pullrequests/{number}/comments",
			ListPullRequests:        "/repositories/{owner}/{repo}/pullrequests",
		},

		Decode: gitservice.Decoders{
			User:           decodeUser,
			Repository:     decodeRepository,
			RepositoryPage: decodeRepositoryPage,
			BranchPage:     decodeBranchPage,
			PullRequest:    decodePullRequest,
			CommentPage:    decodeCommentPage,
			PullReqsPage:   decodePullTasks,
		},

		ListRepositoriesQuery: url.Values{"role": {"member"}, "sort": {"-updated_on"}},
		SearchQuery: func(query string) url.Values {
			return url.Values{
				"role": {"member"},
				"q":    {fmt.Sprintf("name~%q", query)},
			}
		},
		CreatePullRequestBody: func(p gitservice.CreatePullRequestParams) any {
			return map[string]any{
				"title":       p.Title,
				"description": p.Body,
				"source":      map[string]any{"branch": map[string]string{"name": p.SourceBranch}},
				"destination": map[string]any{"branch": map[string]string{"name": p.TargetBranch}},
			}
		},
		ListPullRequestsQuery: url.Values{"state": {"OPEN"}, "pagelen": {"5"}},
	}
}

// repository is the Bitbucket repository payload, reduced to what
// normalizes. Bitbucket has no star concept; StarCount stays 0.
type repository struct {
	UUID       string `json:"uuid"`
	FullName   string `json:"full_name"`
	IsPrivate  bool   `json:"is_private"`
	MainBranch struct {
		Name string `json:"name"`
	} `json:"mainbranch"`
	Owner struct {
		Username string `json:"username"`
	} `json:"owner"`
	Links struct {
		Clone []struct {
			Name string `json:"name"`
			Href string `json:"href"`
		} `json:"clone"`
	} `json:"links"`
}

func (r repository) normalize() gitservice.Repository {
	cloneURL := ""
	for _, link := range r.Links.Clone {
		if link.Name == "https" {
			cloneURL = stripUserinfo(link.Href)
			break
		}
	}
	return gitservice.Repository{
		ID:            r.UUID,
		FullName:      r.FullName,
		Owner:         r.Owner.Username,
		Private:       r.IsPrivate,
		DefaultBranch: r.MainBranch.Name,
		CloneURL:      cloneURL,
	}
}

// stripUserinfo removes the username Bitbucket embeds in its https clone
// links; the normalized CloneURL must be credential-free.
func stripUserinfo(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.User = nil
	return u.String()
}

func decodeRepository(body []byte) (gitservice.Repository, error) {
	var repo repository
	if err := json.Unmarshal(body, &repo); err != nil {
		return gitservice.Repository{}, err
	}
	return repo.normalize(), nil
}

func decodeRepositoryPage(body []byte) ([]gitservice.Repository, error) {
	var envelope struct {
		Values []repository `json:"values"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	repos := make([]gitservice.Repository, len(envelope.Values))
	for i, r := range envelope.Values {
		repos[i] = r.normalize()
	}
	return repos, nil
}

func decodeBranchPage(body []byte) ([]gitservice.Branch, error) {
	var envelope struct {
		Values []struct {
			Name   string `json:"name"`
			Target struct {
				Hash string `json:"hash"`
			} `json:"target"`
		} `json:"values"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	branches := make([]gitservice.Branch, len(envelope.Values))
	for i, b := range envelope.Values {
		branches[i] = gitservice.Branch{
			Name:          b.Name,
			LastCommitSHA: b.Target.Hash,
		}
	}
	return branches, nil
}

func decodePullRequest(body []byte) (gitservice.PullRequest, error) {
	var raw struct {
		ID     int    `json:"id"`
		Title  string `json:"title"`
		State  string `json:"state"`
		Source struct {
			Branch struct {
				Name string `json:"name"`
			} `json:"branch"`
		} `json:"source"`
		Destination struct {
			Branch struct {
				Name string `json:"name"`
			} `json:"branch"`
		} `json:"destination"`
		Links struct {
			HTML struct {
				Href string `json:"href"`
			} `json:"html"`
		} `json:"links"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return gitservice.PullRequest{}, err
	}

	state := gitservice.PullRequestOpen
	switch raw.State {
	case "MERGED":
		state = gitservice.PullRequestMerged
	case "DECLINED", "SUPERSEDED":
		state = gitservice.PullRequestClosed
	}
	return gitservice.PullRequest{
		ID:           fmt.Sprintf("%d", raw.ID),
		Number:       raw.ID,
		Title:        raw.Title,
		State:        state,
		SourceBranch: raw.Source.Branch.Name,
		TargetBranch: raw.Destination.Branch.Name,
		URL:          raw.Links.HTML.Href,
	}, nil
}

func decodeCommentPage(body []byte) ([]gitservice.Comment, error) {
	var envelope struct {
		Values []struct {
			ID   int `json:"id"`
			User struct {
				DisplayName string `json:"display_name"`
				Nickname    string `json:"nickname"`
			} `json:"user"`
			Content struct {
				Raw string `json:"raw"`
			} `json:"content"`
			CreatedOn time.Time `json:"created_on"`
		} `json:"values"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	comments := make([]gitservice.Comment, len(envelope.Values))
	for i, c := range envelope.Values {
		author := c.User.Nickname
		if author == "" {
			author = c.User.DisplayName
		}
		comments[i] = gitservice.Comment{
			ID:        fmt.Sprintf("%d", c.ID),
			Author:    author,
			Body:      c.Content.Raw,
			CreatedAt: c.CreatedOn,
		}
	}
	return comments, nil
}

func decodeUser(body []byte) (gitservice.User, error) {
	var raw struct {
		UUID        string `json:"uuid"`
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		Links       struct {
			Avatar struct {
				Href string `json:"href"`
			} `json:"avatar"`
		} `json:"links"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return gitservice.User{}, err
	}
	return gitservice.User{
		ID:        raw.UUID,
		Login:     raw.Username,
		Name:      raw.DisplayName,
		AvatarURL: raw.Links.Avatar.Href,
	}, nil
}

func decodePullTasks(body []byte) ([]gitservice.SuggestedTask, error) {
	var envelope struct {
		Values []struct {
			ID    int    `json:"id"`
			Title string `json:"title"`
		} `json:"values"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	tasks := make([]gitservice.SuggestedTask, 0, len(envelope.Values))
	for _, pr := range envelope.Values {
		if pr.ID == 0 || pr.Title == "" {
			continue
		}
		tasks = append(tasks, gitservice.SuggestedTask{
			Type:   gitservice.TaskOpenPullRequest,
			Number: pr.ID,
			Title:  pr.Title,
		})
	}
	return tasks, nil
}
