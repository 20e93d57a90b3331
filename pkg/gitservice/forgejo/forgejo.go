// Package forgejo binds Forgejo instances (Codeberg by default) to the
// gitservice engine. Forgejo is a Gitea fork with a compatible API, so the
// binding derives from the gitea package and only swaps the identity.
package forgejo

import (
	"github.com/codelayer/gitbridge/pkg/gitservice"
	"github.com/codelayer/gitbridge/pkg/gitservice/gitea"
)

// DefaultHost is the flagship public Forgejo instance.
const DefaultHost = "codeberg.org"

// New builds a Forgejo service.
func New(opts ...gitservice.Option) *gitservice.Service {
	return gitservice.New(Spec(), opts...)
}

// Spec describes codeberg.org; self-hosted instances override the host via
// the credential.
func Spec() gitservice.ProviderSpec {
	return gitea.NewSpec(gitservice.KindForgejo, DefaultHost)
}
