package gitservice

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/valyala/fasttemplate"
)

// Template delimiters for endpoint paths and clone URL templates.
const (
	templateStartTag = "{"
	templateEndTag   = "}"
)

// Endpoints holds one provider's REST paths. Paths are templates expanded
// with {owner}, {repo}, {project} (URL-escaped full name) and {number}.
type Endpoints struct {
	GetUser                 string
	ListRepositories        string
	SearchRepositories      string
	GetRepository           string
	ListBranches            string
	CreatePullRequest       string
	ListPullRequestComments string
	// ListIssues and ListPullRequests feed suggested-task discovery.
	ListIssues       string
	ListPullRequests string
}

// Decoders turns one provider's raw response bodies into normalized
// entities. Provider stamping (Repository.Provider, SuggestedTask fields)
// is done by the engine after decode.
type Decoders struct {
	User           func(body []byte) (User, error)
	Repository     func(body []byte) (Repository, error)
	RepositoryPage func(body []byte) ([]Repository, error)
	// SearchPage decodes search results when they differ in shape from a
	// plain listing (e.g. Gitea's {ok, data} envelope). Nil falls back to
	// RepositoryPage.
	SearchPage   func(body []byte) ([]Repository, error)
	BranchPage   func(body []byte) ([]Branch, error)
	PullRequest  func(body []byte) (PullRequest, error)
	CommentPage  func(body []byte) ([]Comment, error)
	IssuePage    func(body []byte) ([]SuggestedTask, error)
	PullReqsPage func(body []byte) ([]SuggestedTask, error)
}

// CloneURLSpec describes how a provider accepts credentials for git-over-HTTPS.
type CloneURLSpec struct {
	// TokenInURL is true for providers that accept the token embedded in
	// the clone URL. When false the template must not reference {token};
	// the credential travels out-of-band (e.g. a git credential helper)
	// and the returned URL is safe to display.
	TokenInURL bool
	// Template is expanded with {token}, {host} and {path} (owner/repo).
	Template string
}

// ProviderSpec is the full declarative description of one provider. It is
// pure data plus pure functions: all control flow lives in the engine.
// Specs are immutable after construction and safe to share across
// goroutines.
type ProviderSpec struct {
	Kind ProviderKind

	// DefaultAPIBase is the public API root, e.g. "https://api.github.com".
	DefaultAPIBase string
	// SelfHostedPrefix is appended to a credential-supplied host,
	// e.g. "/api/v3". Hosts without a scheme default to https.
	SelfHostedPrefix string
	// DefaultCloneHost is the public host clone URLs are built against.
	DefaultCloneHost string

	// AuthHeaders formats the credential into request headers. It must be
	// a pure function of the token.
	AuthHeaders func(token string) http.Header

	Pagination PaginationSpec
	Classifier ClassifierTable
	CloneURL   CloneURLSpec
	Endpoints  Endpoints
	Decode     Decoders

	// ListRepositoriesQuery holds fixed query parameters for the
	// repository listing (e.g. GitLab's membership=true).
	ListRepositoriesQuery url.Values
	// SearchQuery builds the query parameters for a repository search.
	SearchQuery func(query string) url.Values
	// CreatePullRequestBody builds the provider-shaped request payload.
	CreatePullRequestBody func(p CreatePullRequestParams) any
	// ListIssuesQuery / ListPullRequestsQuery hold the fixed filters for
	// suggested-task discovery (open state, small page).
	ListIssuesQuery       url.Values
	ListPullRequestsQuery url.Values
}

// apiBase resolves the API root for a credential: a credential-supplied
// host wins over the public default, supporting self-hosted instances.
func (s ProviderSpec) apiBase(cred Credential) string {
	if cred.Host == "" {
		return s.DefaultAPIBase
	}
	return ensureScheme(cred.Host) + s.SelfHostedPrefix
}

// cloneHost resolves the host clone URLs are built against.
func (s ProviderSpec) cloneHost(cred Credential) string {
	if cred.Host == "" {
		return s.DefaultCloneHost
	}
	return stripScheme(cred.Host)
}

// ensureScheme keeps an explicit http:// or https:// prefix and defaults
// bare hosts to https, matching how self-hosted instances are configured.
func ensureScheme(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return strings.TrimSuffix(host, "/")
	}
	return "https://" + strings.TrimSuffix(host, "/")
}

func stripScheme(host string) string {
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimSuffix(host, "/")
}

// expandPath fills an endpoint template with pre-escaped path variables.
func expandPath(template string, vars map[string]any) string {
	return fasttemplate.ExecuteString(template, templateStartTag, templateEndTag, vars)
}

// pathVars builds the template variables for an owner/repo pair. {project}
// carries the GitLab-style URL-escaped full path.
func pathVars(fullName string) map[string]any {
	owner, repo := splitFullName(fullName)
	return map[string]any{
		"owner":   url.PathEscape(owner),
		"repo":    url.PathEscape(repo),
		"project": url.PathEscape(fullName),
	}
}

// splitFullName splits "owner/repo" at the first slash; GitLab subgroup
// paths keep everything after it as the repo part.
func splitFullName(fullName string) (owner, repo string) {
	owner, repo, found := strings.Cut(fullName, "/")
	if !found {
		return "", fullName
	}
	return owner, repo
}

// BuildCloneURL expands the provider's clone URL scheme for a repository.
// The result embeds the raw token only when the provider accepts
// token-in-URL authentication; it must never be logged unredacted.
func (s ProviderSpec) BuildCloneURL(repo Repository, cred Credential) string {
	vars := map[string]any{
		"host":  s.cloneHost(cred),
		"path":  repo.FullName,
		"token": "",
	}
	if s.CloneURL.TokenInURL {
		vars["token"] = url.QueryEscape(cred.Token.Value())
	}
	return fasttemplate.ExecuteString(s.CloneURL.Template, templateStartTag, templateEndTag, vars)
}
