// Package remote inspects a local git checkout: its origin URL, branches
// and last commit. The CLI uses it to infer which provider and repository
// a command targets without asking the user.
package remote

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/codelayer/gitbridge/internal/urlutil"
	"github.com/codelayer/gitbridge/pkg/gitservice"
)

// originRemote is the remote the inspector reads.
const originRemote = "origin"

// fullNameComponents is owner plus repository name.
const fullNameComponents = 2

// Error definitions for remote inspection.
var (
	errNoOriginURL     = errors.New("origin remote has no URL")
	errUnknownHost     = errors.New("remote host does not match a known provider")
	errDetachedHead    = errors.New("HEAD is not on a branch")
	errNoMainBranch    = errors.New("could not determine main branch")
	errMalformedRemote = errors.New("could not extract owner/repo from remote URL")

	// ErrNoOriginURL is returned when the origin remote has no configured URL.
	ErrNoOriginURL = errNoOriginURL
	// ErrUnknownHost is returned when the origin host matches no provider.
	ErrUnknownHost = errUnknownHost
	// ErrDetachedHead is returned when HEAD does not point at a branch.
	ErrDetachedHead = errDetachedHead
	// ErrNoMainBranch is returned when no default branch can be found.
	ErrNoMainBranch = errNoMainBranch
	// ErrMalformedRemote is returned when the remote URL has no owner/repo path.
	ErrMalformedRemote = errMalformedRemote
)

// wellKnownHosts maps SaaS hosts to their provider.
var wellKnownHosts = map[string]gitservice.ProviderKind{
	"github.com":    gitservice.KindGitHub,
	"gitlab.com":    gitservice.KindGitLab,
	"bitbucket.org": gitservice.KindBitbucket,
	"gitea.com":     gitservice.KindGitea,
	"codeberg.org":  gitservice.KindForgejo,
}

// Repository wraps a local checkout.
type Repository struct {
	repo *git.Repository
}

// Open opens the git repository at path.
func Open(path string) (*Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open git repository: %w", err)
	}
	return &Repository{repo: repo}, nil
}

// OriginURL returns the first URL of the origin remote.
func (r *Repository) OriginURL() (string, error) {
	remote, err := r.repo.Remote(originRemote)
	if err != nil {
		return "", fmt.Errorf("get origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errNoOriginURL
	}
	return urls[0], nil
}

// DetectProvider matches the origin host against the SaaS hosts and any
// extra host-to-provider mappings the caller supplies (typically the
// self-hosted hosts from stored credentials).
func (r *Repository) DetectProvider(extraHosts map[string]gitservice.ProviderKind) (gitservice.ProviderKind, error) {
	url, err := r.OriginURL()
	if err != nil {
		return "", err
	}
	host := urlutil.Host(url)
	if host == "" {
		return "", fmt.Errorf("%w: %s", errUnknownHost, url)
	}
	if kind, ok := extraHosts[host]; ok {
		return kind, nil
	}
	if kind, ok := wellKnownHosts[host]; ok {
		return kind, nil
	}
	return "", fmt.Errorf("%w: %s", errUnknownHost, host)
}

// FullName extracts "owner/repo" from the origin URL.
func (r *Repository) FullName() (string, error) {
	url, err := r.OriginURL()
	if err != nil {
		return "", err
	}
	url = strings.TrimSuffix(url, ".git")
	fullName := urlutil.ExtractPathComponents(url, fullNameComponents)
	owner, name, found := strings.Cut(fullName, "/")
	if !found || owner == "" || name == "" {
		return "", fmt.Errorf("%w: %s", errMalformedRemote, url)
	}
	return fullName, nil
}

// CurrentBranch returns the branch HEAD points at.
func (r *Repository) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("get HEAD reference: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", errDetachedHead
	}
	return head.Name().Short(), nil
}

// MainBranch resolves the default branch: the remote HEAD if available,
// otherwise the first of main/master that exists locally.
func (r *Repository) MainBranch() (string, error) {
	remote, err := r.repo.Remote(originRemote)
	if err != nil {
		return "", fmt.Errorf("get origin remote: %w", err)
	}

	refs, err := remote.List(&git.ListOptions{})
	if err == nil {
		for _, ref := range refs {
			if ref.Name() == plumbing.HEAD && ref.Target().IsBranch() {
				return ref.Target().Short(), nil
			}
		}
	}

	for _, name := range []string{"main", "master"} {
		if r.branchExists(name) {
			return name, nil
		}
	}
	return "", errNoMainBranch
}

func (r *Repository) branchExists(name string) bool {
	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	return err == nil
}

// LastCommitSummary returns the first line of the HEAD commit message,
// used as the default pull request title.
func (r *Repository) LastCommitSummary() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("get HEAD reference: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("get commit object: %w", err)
	}
	summary, _, _ := strings.Cut(commit.Message, "\n")
	return strings.TrimSpace(summary), nil
}
