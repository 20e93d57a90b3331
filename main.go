// Package main provides the entry point for the gitbridge CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codelayer/gitbridge/internal/logger"
	"github.com/codelayer/gitbridge/internal/security"
	"github.com/codelayer/gitbridge/internal/timeutil"
	"github.com/codelayer/gitbridge/internal/ui"
	"github.com/codelayer/gitbridge/pkg/credstore"
	"github.com/codelayer/gitbridge/pkg/gitservice"
	"github.com/codelayer/gitbridge/pkg/gitservice/registry"
	"github.com/codelayer/gitbridge/pkg/remote"
	"github.com/codelayer/gitbridge/pkg/resolver"
)

// localUser is the single user the CLI manages credentials for.
const localUser = "local"

const defaultListLimit = 30

var errNoProvider = errors.New("provider could not be determined; pass --provider")

var (
	logLevel     string
	providerFlag string
	hostFlag     string
	limitFlag    int

	prTitle  string
	prBody   string
	prTarget string
	prDraft  bool
	prLabels []string

	log logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gitbridge",
	Short: "Unified CLI for GitHub, GitLab, Bitbucket, Gitea and Forgejo",
	Long: `gitbridge talks to every supported git hosting provider through one
normalized interface: list and search repositories, inspect branches,
open pull requests and mint authenticated clone URLs.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		log = logger.NewLogger(logLevel)
	},
	SilenceUsage: true,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage provider credentials",
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a provider token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAuthSet(cmd.Context())
	},
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured providers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAuthList(cmd.Context())
	},
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a provider token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAuthRemove(cmd.Context())
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authenticated user for a provider",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWhoami(cmd.Context())
	},
}

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List and search repositories",
}

var reposListCmd = &cobra.Command{
	Use:   "list",
	Short: "List repositories across configured providers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runReposList(cmd.Context())
	},
}

var reposSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search repositories on one provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReposSearch(cmd.Context(), args[0])
	},
}

var branchesCmd = &cobra.Command{
	Use:   "branches [owner/repo]",
	Short: "List branches of a repository",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBranches(cmd.Context(), args)
	},
}

var prCmd = &cobra.Command{
	Use:   "pr",
	Short: "Work with pull requests",
}

var prCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a pull request from the current branch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPRCreate(cmd.Context())
	},
}

var cloneURLCmd = &cobra.Command{
	Use:   "clone-url [owner/repo]",
	Short: "Print an authenticated clone URL",
	Long: `Prints a clone URL carrying the stored credential. The output embeds
the raw token; treat it like the token itself.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCloneURL(cmd.Context(), args)
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Suggest open issues and pull requests to pick up",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runTasks(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info",
		"Set log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "",
		"Provider (github, gitlab, bitbucket, gitea, forgejo)")

	authSetCmd.Flags().StringVar(&hostFlag, "host", "", "Self-hosted instance host")
	reposListCmd.Flags().IntVar(&limitFlag, "limit", defaultListLimit, "Maximum repositories per provider")
	reposSearchCmd.Flags().IntVar(&limitFlag, "limit", defaultListLimit, "Maximum results")

	prCreateCmd.Flags().StringVar(&prTitle, "title", "", "Pull request title (defaults to the last commit summary)")
	prCreateCmd.Flags().StringVar(&prBody, "body", "", "Pull request description")
	prCreateCmd.Flags().StringVar(&prTarget, "target", "", "Target branch (defaults to the repository default branch)")
	prCreateCmd.Flags().BoolVar(&prDraft, "draft", false, "Open as draft")
	prCreateCmd.Flags().StringSliceVar(&prLabels, "label", nil, "Labels to apply")

	authCmd.AddCommand(authSetCmd, authListCmd, authRemoveCmd)
	reposCmd.AddCommand(reposListCmd, reposSearchCmd)
	prCmd.AddCommand(prCreateCmd)
	rootCmd.AddCommand(authCmd, whoamiCmd, reposCmd, branchesCmd, prCmd, cloneURLCmd, tasksCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", renderError(err))
		os.Exit(1)
	}
}

// renderError keeps provider failures readable and never leaks tokens.
func renderError(err error) string {
	var classified *gitservice.ClassifiedError
	if errors.As(err, &classified) {
		switch classified.Kind {
		case gitservice.KindRateLimited:
			return fmt.Sprintf("rate limited, retry in %s", timeutil.FormatRetryAfter(classified.RetryAfterSeconds))
		case gitservice.KindAuthentication:
			return "authentication failed; check the stored token with 'gitbridge auth set'"
		default:
		}
	}
	return security.SanitizeString(err.Error())
}

func openStore() (credstore.Store, error) {
	path, err := credstore.DefaultPath()
	if err != nil {
		return nil, err
	}
	return credstore.NewFileStore(path), nil
}

func newResolver() (*resolver.Resolver, credstore.Store, error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	return resolver.New(store, log), store, nil
}

// resolveKind turns the --provider flag into a kind, falling back to the
// origin remote of the current directory.
func resolveKind(ctx context.Context, store credstore.Store) (gitservice.ProviderKind, error) {
	if providerFlag != "" {
		kind := gitservice.ProviderKind(providerFlag)
		if !kind.Valid() {
			return "", fmt.Errorf("%w: %q", gitservice.ErrUnsupportedProvider, providerFlag)
		}
		return kind, nil
	}

	repo, err := remote.Open(".")
	if err != nil {
		return "", errNoProvider
	}
	kind, err := repo.DetectProvider(storedHosts(ctx, store))
	if err != nil {
		return "", fmt.Errorf("%w: %w", errNoProvider, err)
	}
	return kind, nil
}

// storedHosts maps self-hosted instance hosts from stored credentials to
// their provider so remote detection covers them.
func storedHosts(ctx context.Context, store credstore.Store) map[string]gitservice.ProviderKind {
	hosts := make(map[string]gitservice.ProviderKind)
	integrations, err := store.List(ctx, localUser)
	if err != nil {
		return hosts
	}
	for _, integration := range integrations {
		if integration.Host != "" {
			hosts[integration.Host] = integration.ProviderType
		}
	}
	return hosts
}

// resolveFullName takes the optional owner/repo argument, falling back to
// the origin remote of the current directory.
func resolveFullName(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	repo, err := remote.Open(".")
	if err != nil {
		return "", fmt.Errorf("not in a git repository; pass owner/repo explicitly: %w", err)
	}
	return repo.FullName()
}

func runAuthSet(ctx context.Context) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	rawToken, err := ui.Password("Provider token:")
	if err != nil {
		return err
	}
	token := security.NewSecureToken(strings.TrimSpace(rawToken))

	var kind gitservice.ProviderKind
	if providerFlag != "" {
		kind = gitservice.ProviderKind(providerFlag)
		if !kind.Valid() {
			return fmt.Errorf("%w: %q", gitservice.ErrUnsupportedProvider, providerFlag)
		}
	} else {
		log.Info("Detecting provider for token...")
		kind, err = registry.DetectTokenKind(ctx, token, hostFlag)
		if err != nil {
			return err
		}
		log.Info("Provider detected", "provider", string(kind))
	}

	cred := gitservice.Credential{
		Provider: kind,
		Token:    token,
		Host:     hostFlag,
		UserID:   localUser,
	}
	svc, err := registry.New(kind)
	if err != nil {
		return err
	}
	if err := svc.VerifyAccess(ctx, cred); err != nil {
		return fmt.Errorf("token verification failed: %w", err)
	}
	if err := store.Set(ctx, cred); err != nil {
		return err
	}
	log.Info("Credential stored", "provider", string(kind))
	return nil
}

func runAuthList(ctx context.Context) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	integrations, err := store.List(ctx, localUser)
	if err != nil {
		return err
	}
	if len(integrations) == 0 {
		fmt.Println("no providers configured; run 'gitbridge auth set'")
		return nil
	}
	for _, integration := range integrations {
		host := integration.Host
		if host == "" {
			host = "(default)"
		}
		token := "no token"
		if integration.HasToken {
			token = "token stored"
		}
		fmt.Printf("%-10s  %-30s  %s\n", integration.ProviderType, host, token)
	}
	return nil
}

func runAuthRemove(ctx context.Context) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	kind, err := resolveKind(ctx, store)
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, localUser, kind); err != nil {
		return err
	}
	log.Info("Credential removed", "provider", string(kind))
	return nil
}

func runWhoami(ctx context.Context) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	kind, err := resolveKind(ctx, store)
	if err != nil {
		return err
	}
	cred, err := store.Get(ctx, localUser, kind)
	if err != nil {
		return err
	}
	svc, err := registry.ForCredential(cred)
	if err != nil {
		return err
	}
	user, err := svc.GetUser(ctx, cred)
	if err != nil {
		return err
	}
	fmt.Printf("%s on %s", user.Login, kind)
	if user.Name != "" {
		fmt.Printf(" (%s)", user.Name)
	}
	fmt.Println()
	return nil
}

func runReposList(ctx context.Context) error {
	res, store, err := newResolver()
	if err != nil {
		return err
	}

	opts := gitservice.ListOptions{Limit: limitFlag}
	var repos []gitservice.Repository
	if providerFlag != "" {
		kind, err := resolveKind(ctx, store)
		if err != nil {
			return err
		}
		cred, err := store.Get(ctx, localUser, kind)
		if err != nil {
			return err
		}
		svc, err := registry.ForCredential(cred)
		if err != nil {
			return err
		}
		pager, err := svc.ListRepositories(ctx, cred, opts)
		if err != nil {
			return err
		}
		repos, err = pager.All(ctx)
		if err != nil {
			return err
		}
	} else {
		repos, err = res.ListAllRepositories(ctx, localUser, opts)
		if err != nil {
			return err
		}
	}
	printRepos(repos)
	return nil
}

func runReposSearch(ctx context.Context, query string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	kind, err := resolveKind(ctx, store)
	if err != nil {
		return err
	}
	cred, err := store.Get(ctx, localUser, kind)
	if err != nil {
		return err
	}
	svc, err := registry.ForCredential(cred)
	if err != nil {
		return err
	}
	pager, err := svc.SearchRepositories(ctx, cred, query, gitservice.ListOptions{Limit: limitFlag})
	if err != nil {
		return err
	}
	repos, err := pager.All(ctx)
	if err != nil {
		return err
	}
	printRepos(repos)
	return nil
}

func printRepos(repos []gitservice.Repository) {
	for _, repo := range repos {
		visibility := "public"
		if repo.Private {
			visibility = "private"
		}
		fmt.Printf("%-10s  %-50s  %-7s  %d stars\n", repo.Provider, repo.FullName, visibility, repo.StarCount)
	}
}

func runBranches(ctx context.Context, args []string) error {
	res, store, err := newResolver()
	if err != nil {
		return err
	}
	kind, err := resolveKind(ctx, store)
	if err != nil {
		return err
	}
	fullName, err := resolveFullName(args)
	if err != nil {
		return err
	}

	repoCtx, err := res.GetRepositoryContext(ctx, localUser, kind, fullName)
	if err != nil {
		return err
	}
	for _, branch := range repoCtx.Branches {
		marker := " "
		if branch.Default {
			marker = "*"
		}
		fmt.Printf("%s %-40s %s\n", marker, branch.Name, branch.LastCommitSHA)
	}
	return nil
}

func runPRCreate(ctx context.Context) error {
	res, store, err := newResolver()
	if err != nil {
		return err
	}

	repo, err := remote.Open(".")
	if err != nil {
		return fmt.Errorf("pr create must run inside a git repository: %w", err)
	}
	kind, err := resolveKind(ctx, store)
	if err != nil {
		return err
	}
	fullName, err := repo.FullName()
	if err != nil {
		return err
	}
	sourceBranch, err := repo.CurrentBranch()
	if err != nil {
		return err
	}

	targetBranch := prTarget
	if targetBranch == "" {
		targetBranch, err = repo.MainBranch()
		if err != nil {
			return err
		}
	}
	if sourceBranch == targetBranch {
		return fmt.Errorf("current branch %q is the target branch; checkout a feature branch first", sourceBranch)
	}

	title := prTitle
	if title == "" {
		title, err = repo.LastCommitSummary()
		if err != nil {
			return err
		}
	}

	ok, err := ui.Confirm(fmt.Sprintf("Open pull request %q (%s -> %s) on %s?", title, sourceBranch, targetBranch, fullName), true)
	if err != nil {
		return err
	}
	if !ok {
		log.Info("Aborted")
		return nil
	}

	pr, err := res.OpenPullRequest(ctx, localUser, kind, fullName, gitservice.CreatePullRequestParams{
		Title:        title,
		Body:         prBody,
		SourceBranch: sourceBranch,
		TargetBranch: targetBranch,
		Draft:        prDraft,
		Labels:       prLabels,
	})
	if err != nil {
		return err
	}
	log.Info("Pull request created", "number", pr.Number)
	fmt.Println(pr.URL)
	return nil
}

func runCloneURL(ctx context.Context, args []string) error {
	res, store, err := newResolver()
	if err != nil {
		return err
	}
	kind, err := resolveKind(ctx, store)
	if err != nil {
		return err
	}
	fullName, err := resolveFullName(args)
	if err != nil {
		return err
	}
	url, err := res.AuthenticatedCloneURL(ctx, localUser, kind, fullName)
	if err != nil {
		return err
	}
	fmt.Println(url)
	return nil
}

func runTasks(ctx context.Context) error {
	res, _, err := newResolver()
	if err != nil {
		return err
	}
	tasks, err := res.SuggestedTasks(ctx, localUser)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("nothing to pick up")
		return nil
	}
	for _, task := range tasks {
		fmt.Printf("%-10s  %-12s  %s#%d  %s\n", task.Provider, task.Type, task.Repo, task.Number, task.Title)
	}
	return nil
}
