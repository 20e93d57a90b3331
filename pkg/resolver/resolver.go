// Package resolver is the boundary the agent runtime talks to: it joins
// the credential store, the provider registry and the git services into
// user-level operations expressed purely in the normalized model.
package resolver

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codelayer/gitbridge/internal/logger"
	"github.com/codelayer/gitbridge/pkg/credstore"
	"github.com/codelayer/gitbridge/pkg/gitservice"
	"github.com/codelayer/gitbridge/pkg/gitservice/registry"
)

// providerFanout bounds concurrent provider sweeps in the cross-provider
// operations.
const providerFanout = 5

// branchContextLimit bounds how many branches RepositoryContext pulls for
// the agent prompt.
const branchContextLimit = 50

// Resolver resolves user-level requests to provider calls. It is
// stateless; every method re-reads the credential store so token rotation
// takes effect immediately.
type Resolver struct {
	store credstore.Store
	log   logger.Logger
	opts  []gitservice.Option
}

// New builds a Resolver. The options are forwarded to every service the
// resolver constructs (tests inject HTTP clients this way).
func New(store credstore.Store, log logger.Logger, opts ...gitservice.Option) *Resolver {
	return &Resolver{store: store, log: log, opts: opts}
}

// RepositoryContext is what the runtime needs to start working on a
// repository: its normalized record, the branch set, and a clone URL that
// authenticates as the user. The clone URL may embed the token and must
// never be logged unredacted.
type RepositoryContext struct {
	Repository gitservice.Repository
	Branches   []gitservice.Branch
	CloneURL   string
}

// service resolves the user's credential for a provider and builds the
// matching service.
func (r *Resolver) service(ctx context.Context, userID string, kind gitservice.ProviderKind) (gitservice.GitService, gitservice.Credential, error) {
	cred, err := r.store.Get(ctx, userID, kind)
	if err != nil {
		return nil, gitservice.Credential{}, fmt.Errorf("resolve %s credential: %w", kind, err)
	}
	svc, err := registry.ForCredential(cred, r.opts...)
	if err != nil {
		return nil, gitservice.Credential{}, err
	}
	return svc, cred, nil
}

// GetRepositoryContext fetches everything the runtime needs for one
// repository.
func (r *Resolver) GetRepositoryContext(ctx context.Context, userID string, kind gitservice.ProviderKind, fullName string) (*RepositoryContext, error) {
	svc, cred, err := r.service(ctx, userID, kind)
	if err != nil {
		return nil, err
	}

	repo, err := svc.GetRepository(ctx, cred, fullName)
	if err != nil {
		return nil, err
	}
	pager, err := svc.ListBranches(ctx, cred, fullName, gitservice.ListOptions{Limit: branchContextLimit})
	if err != nil {
		return nil, err
	}
	branches, err := pager.All(ctx)
	if err != nil {
		return nil, err
	}
	cloneURL, err := svc.AuthenticatedCloneURL(repo, cred)
	if err != nil {
		return nil, err
	}
	return &RepositoryContext{Repository: repo, Branches: branches, CloneURL: cloneURL}, nil
}

// ListAllRepositories sweeps every provider the user has a credential for,
// concurrently. Providers that fail are logged and skipped so one dead
// integration cannot blank the whole listing; if every provider fails the
// last error surfaces.
func (r *Resolver) ListAllRepositories(ctx context.Context, userID string, opts gitservice.ListOptions) ([]gitservice.Repository, error) {
	integrations, err := r.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	// A resume token is only replayable against the provider that minted
	// it; the sweep starts every provider from its first page.
	opts.Resume = nil

	var (
		mu      sync.Mutex
		repos   []gitservice.Repository
		lastErr error
		hits    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(providerFanout)
	for _, integration := range integrations {
		if !integration.HasToken {
			continue
		}
		kind := integration.ProviderType
		g.Go(func() error {
			found, err := r.listProvider(gctx, userID, kind, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.log.Warn("skipping provider in repository sweep", "provider", string(kind), "error", err.Error())
				lastErr = err
				return nil
			}
			hits++
			repos = append(repos, found...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if hits == 0 && lastErr != nil {
		return nil, lastErr
	}
	return repos, nil
}

func (r *Resolver) listProvider(ctx context.Context, userID string, kind gitservice.ProviderKind, opts gitservice.ListOptions) ([]gitservice.Repository, error) {
	svc, cred, err := r.service(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	pager, err := svc.ListRepositories(ctx, cred, opts)
	if err != nil {
		return nil, err
	}
	return pager.All(ctx)
}

// OpenPullRequest opens a pull/merge request as the user.
func (r *Resolver) OpenPullRequest(ctx context.Context, userID string, kind gitservice.ProviderKind, fullName string, params gitservice.CreatePullRequestParams) (gitservice.PullRequest, error) {
	svc, cred, err := r.service(ctx, userID, kind)
	if err != nil {
		return gitservice.PullRequest{}, err
	}
	return svc.CreatePullRequest(ctx, cred, fullName, params)
}

// AuthenticatedCloneURL builds a credentialed clone URL for runtime git
// operations. The result must never be logged unredacted.
func (r *Resolver) AuthenticatedCloneURL(ctx context.Context, userID string, kind gitservice.ProviderKind, fullName string) (string, error) {
	svc, cred, err := r.service(ctx, userID, kind)
	if err != nil {
		return "", err
	}
	return svc.AuthenticatedCloneURL(gitservice.Repository{FullName: fullName, Provider: kind}, cred)
}

// SuggestedTasks sweeps the user's providers for open issues and pull
// requests worth picking up. Provider failures are skipped like in
// ListAllRepositories.
func (r *Resolver) SuggestedTasks(ctx context.Context, userID string) ([]gitservice.SuggestedTask, error) {
	integrations, err := r.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		tasks []gitservice.SuggestedTask
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(providerFanout)
	for _, integration := range integrations {
		if !integration.HasToken {
			continue
		}
		kind := integration.ProviderType
		g.Go(func() error {
			svc, cred, err := r.service(gctx, userID, kind)
			if err != nil {
				return nil
			}
			found, err := svc.GetSuggestedTasks(gctx, cred)
			if err != nil {
				r.log.Warn("skipping provider in task sweep", "provider", string(kind), "error", err.Error())
				return nil
			}
			mu.Lock()
			tasks = append(tasks, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Integrations exposes the user's configured providers to the settings
// layer, tokens projected to HasToken.
func (r *Resolver) Integrations(ctx context.Context, userID string) ([]credstore.Integration, error) {
	return r.store.List(ctx, userID)
}
