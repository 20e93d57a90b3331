// Package gitservice provides a unified client layer over Git hosting
// providers (GitHub, GitLab, Bitbucket, Gitea, Forgejo).
//
// Every provider is described declaratively by a [ProviderSpec] (default
// host, auth header formatting, pagination convention, error classifier
// table, endpoint paths and response decoders) and driven by one shared
// engine ([Service]) that owns retry, pagination and error normalization.
// Consumers only ever see the normalized model defined in this file.
//
// All operations take a [Credential] explicitly; the package holds no
// global state and never retains a token beyond the call that borrowed it.
package gitservice

import (
	"time"

	"github.com/codelayer/gitbridge/internal/security"
)

// ProviderKind identifies one supported Git hosting provider.
type ProviderKind string

// Supported provider kinds.
const (
	KindGitHub    ProviderKind = "github"
	KindGitLab    ProviderKind = "gitlab"
	KindBitbucket ProviderKind = "bitbucket"
	KindGitea     ProviderKind = "gitea"
	KindForgejo   ProviderKind = "forgejo"
)

// Kinds lists all supported provider kinds in a stable order.
func Kinds() []ProviderKind {
	return []ProviderKind{KindGitHub, KindGitLab, KindBitbucket, KindGitea, KindForgejo}
}

// Valid reports whether k names a supported provider.
func (k ProviderKind) Valid() bool {
	switch k {
	case KindGitHub, KindGitLab, KindBitbucket, KindGitea, KindForgejo:
		return true
	}
	return false
}

// Credential carries everything needed to call a provider on behalf of a
// user. It is borrowed per call and never persisted by this package.
type Credential struct {
	Provider ProviderKind
	Token    security.SecureToken
	// Host overrides the provider's public default for self-hosted
	// instances. A scheme-less host defaults to https.
	Host   string
	UserID string
}

// Repository is the provider-agnostic repository shape.
type Repository struct {
	ID            string
	FullName      string // "owner/repo" ("group/subgroup/project" on GitLab)
	Owner         string
	Private       bool
	DefaultBranch string
	// StarCount is always populated; an absent upstream field maps to 0.
	StarCount int
	CloneURL  string // plain https clone URL, no embedded credentials
	Provider  ProviderKind
}

// Branch is the provider-agnostic branch shape.
type Branch struct {
	Name          string
	Default       bool
	Protected     bool
	LastCommitSHA string
}

// PullRequestState is the normalized lifecycle state of a pull/merge request.
type PullRequestState string

// Normalized pull request states.
const (
	PullRequestOpen   PullRequestState = "open"
	PullRequestClosed PullRequestState = "closed"
	PullRequestMerged PullRequestState = "merged"
)

// PullRequest is the provider-agnostic pull/merge request shape.
type PullRequest struct {
	ID           string
	Number       int
	Title        string
	State        PullRequestState
	SourceBranch string
	TargetBranch string
	URL          string
}

// User is the provider-agnostic authenticated-user shape.
type User struct {
	ID        string
	Login     string
	Name      string
	Email     string
	AvatarURL string
	Company   string
}

// Comment is the provider-agnostic pull request comment shape.
type Comment struct {
	ID        string
	Author    string
	Body      string
	CreatedAt time.Time
}

// TaskType classifies a suggested task.
type TaskType string

// Suggested task types.
const (
	TaskOpenIssue       TaskType = "open_issue"
	TaskOpenPullRequest TaskType = "open_pull_request"
)

// SuggestedTask points an agent at an open issue or pull request the user
// may want to pick up.
type SuggestedTask struct {
	Provider ProviderKind
	Type     TaskType
	Repo     string
	Number   int
	Title    string
}

// PageToken is an opaque resumption cursor for a paginated listing. A token
// minted by one provider is only replayable against that same provider,
// credential and endpoint.
type PageToken struct {
	Provider ProviderKind
	Value    string
	HasNext  bool
}

// CreatePullRequestParams holds the inputs for opening a pull/merge request.
type CreatePullRequestParams struct {
	Title        string
	Body         string
	SourceBranch string
	TargetBranch string
	Draft        bool
	Labels       []string
}

// ListOptions tunes paginated listings. The zero value asks for the
// provider defaults.
type ListOptions struct {
	// Page is the 1-based page to start from (offset-family providers only).
	Page int
	// PerPage is the requested page size, capped per provider.
	PerPage int
	// Limit stops the listing after this many items. 0 means no limit.
	Limit int
	// MaxPages bounds the total pages fetched before the pagination loop
	// guard trips. 0 means DefaultMaxPages.
	MaxPages int
	// Resume restarts a listing from a previously returned PageToken.
	Resume *PageToken
}

// DefaultMaxPages is the pagination loop guard applied when
// ListOptions.MaxPages is zero.
const DefaultMaxPages = 1000
