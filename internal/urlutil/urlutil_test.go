package urlutil_test

import (
	"testing"

	"github.com/codelayer/gitbridge/internal/urlutil"
)

func TestHost(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"https", "https://github.com/owner/repo", "github.com"},
		{"https with userinfo", "https://token@gitlab.com/group/app", "gitlab.com"},
		{"https with port", "https://git.example.com:8443/owner/repo", "git.example.com"},
		{"http", "http://git.internal/owner/repo", "git.internal"},
		{"ssh colon", "git@github.com:owner/repo", "github.com"},
		{"ssh protocol", "ssh://git@codeberg.org/owner/repo", "codeberg.org"},
		{"ssh protocol with port", "ssh://git@git.example.com:2222/owner/repo", "git.example.com"},
		{"garbage", "not-a-url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := urlutil.Host(tt.url); got != tt.want {
				t.Errorf("Host(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractPathComponents(t *testing.T) {
	tests := []struct {
		name string
		url  string
		n    int
		want string
	}{
		{"https", "https://github.com/owner/repo", 2, "owner/repo"},
		{"ssh colon", "git@github.com:owner/repo", 2, "owner/repo"},
		{"ssh protocol", "ssh://git@github.com/owner/repo", 2, "owner/repo"},
		{"subgroup", "https://gitlab.com/group/sub/app", 3, "group/sub/app"},
		{"too short", "repo", 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := urlutil.ExtractPathComponents(tt.url, tt.n); got != tt.want {
				t.Errorf("ExtractPathComponents(%q, %d) = %q, want %q", tt.url, tt.n, got, tt.want)
			}
		})
	}
}
