// Package registry routes a provider kind to its concrete service.
//
// Services are stateless: the registry may build a fresh instance per call
// and concurrent callers with different credentials never interfere.
package registry

import (
	"context"
	"fmt"

	"github.com/codelayer/gitbridge/internal/security"
	"github.com/codelayer/gitbridge/pkg/gitservice"
	"github.com/codelayer/gitbridge/pkg/gitservice/bitbucket"
	"github.com/codelayer/gitbridge/pkg/gitservice/forgejo"
	"github.com/codelayer/gitbridge/pkg/gitservice/gitea"
	"github.com/codelayer/gitbridge/pkg/gitservice/github"
	"github.com/codelayer/gitbridge/pkg/gitservice/gitlab"
)

// New returns the service for a provider kind. Unrecognized kinds fail
// with a validation-classified error.
//
//nolint:ireturn // Factory must return the interface to keep call sites provider-agnostic.
func New(kind gitservice.ProviderKind, opts ...gitservice.Option) (gitservice.GitService, error) {
	switch kind {
	case gitservice.KindGitHub:
		return github.New(opts...), nil
	case gitservice.KindGitLab:
		return gitlab.New(opts...), nil
	case gitservice.KindBitbucket:
		return bitbucket.New(opts...), nil
	case gitservice.KindGitea:
		return gitea.New(opts...), nil
	case gitservice.KindForgejo:
		return forgejo.New(opts...), nil
	default:
		return nil, &gitservice.ClassifiedError{
			Kind:            gitservice.KindValidation,
			ProviderMessage: fmt.Sprintf("unsupported git provider %q", kind),
			Err:             gitservice.ErrUnsupportedProvider,
		}
	}
}

// ForCredential routes a credential to its provider's service.
//
//nolint:ireturn // Factory must return the interface to keep call sites provider-agnostic.
func ForCredential(cred gitservice.Credential, opts ...gitservice.Option) (gitservice.GitService, error) {
	return New(cred.Provider, opts...)
}

// DetectTokenKind probes providers with a bare token and reports which one
// accepts it. Used by the settings layer to verify a pasted token before
// storing it. Kinds are probed in declaration order; the first success
// wins, and exhausting all kinds yields an authentication error.
func DetectTokenKind(ctx context.Context, token security.SecureToken, host string, opts ...gitservice.Option) (gitservice.ProviderKind, error) {
	for _, kind := range gitservice.Kinds() {
		svc, err := New(kind, opts...)
		if err != nil {
			return "", err
		}
		cred := gitservice.Credential{Provider: kind, Token: token, Host: host}
		if err := svc.VerifyAccess(ctx, cred); err == nil {
			return kind, nil
		} else if ctx.Err() != nil {
			return "", err
		}
	}
	return "", &gitservice.ClassifiedError{
		Kind:            gitservice.KindAuthentication,
		ProviderMessage: "token was not accepted by any supported provider",
	}
}
