// Package urlutil provides parsing helpers for git remote URLs.
//
// Three remote formats are handled:
//   - HTTPS: https://github.com/owner/repo
//   - SSH colon: git@github.com:owner/repo
//   - SSH protocol: ssh://git@github.com/owner/repo
//
// Callers trim the .git suffix before calling into this package.
package urlutil

import "strings"

// minColonParts is the minimum split size for SSH colon format
// ("git@host:path" splits into ["git@host", "path"]).
const minColonParts = 2

// Host extracts the host part of a git remote URL, without userinfo or
// port. Returns "" when the URL cannot be parsed.
func Host(url string) string {
	switch {
	case strings.HasPrefix(url, "ssh://"):
		rest := strings.TrimPrefix(url, "ssh://")
		if at := strings.Index(rest, "@"); at >= 0 {
			rest = rest[at+1:]
		}
		if slash := strings.Index(rest, "/"); slash >= 0 {
			rest = rest[:slash]
		}
		return stripPort(rest)
	case strings.HasPrefix(url, "git@"):
		rest := strings.TrimPrefix(url, "git@")
		if colon := strings.Index(rest, ":"); colon >= 0 {
			return rest[:colon]
		}
		return rest
	case strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://"):
		rest := url[strings.Index(url, "://")+3:]
		if at := strings.Index(rest, "@"); at >= 0 {
			rest = rest[at+1:]
		}
		if slash := strings.Index(rest, "/"); slash >= 0 {
			rest = rest[:slash]
		}
		return stripPort(rest)
	}
	return ""
}

func stripPort(host string) string {
	if colon := strings.Index(host, ":"); colon >= 0 {
		return host[:colon]
	}
	return host
}

// ExtractPathComponents extracts the last N path components from a git
// remote URL, e.g. ("git@github.com:owner/repo", 2) -> "owner/repo".
// Returns "" when the URL doesn't contain enough components.
func ExtractPathComponents(url string, componentCount int) string {
	if strings.HasPrefix(url, "ssh://git@") {
		parts := strings.Split(url, "/")
		if len(parts) >= componentCount {
			return strings.Join(parts[len(parts)-componentCount:], "/")
		}
		return ""
	}

	if strings.HasPrefix(url, "git@") {
		parts := strings.Split(url, ":")
		if len(parts) >= minColonParts {
			return parts[len(parts)-1]
		}
		return ""
	}

	parts := strings.Split(url, "/")
	if len(parts) >= componentCount {
		return strings.Join(parts[len(parts)-componentCount:], "/")
	}
	return ""
}
