// Package security provides token wrapping and credential redaction for
// the provider clients. Nothing in this package ever logs.
package security

import "fmt"

const (
	// Tokens shorter than this are fully redacted; longer ones keep the
	// last four characters for debugging.
	minPartialMaskLen = 8
	maskTailChars     = 4
	maskEmpty         = "[empty]"
	maskRedacted      = "[redacted]"
)

// SecureToken wraps a provider token so it cannot leak through fmt
// formatting or logging. String and GoString both return a masked value;
// only Value hands out the secret.
type SecureToken struct {
	value string
}

// NewSecureToken wraps a raw token string.
func NewSecureToken(token string) SecureToken {
	return SecureToken{value: token}
}

// String implements fmt.Stringer with a masked representation.
func (t SecureToken) String() string {
	if t.value == "" {
		return maskEmpty
	}
	if len(t.value) < minPartialMaskLen {
		return maskRedacted
	}
	return fmt.Sprintf("[token:****%s]", t.value[len(t.value)-maskTailChars:])
}

// GoString implements fmt.GoStringer so %#v cannot leak either.
func (t SecureToken) GoString() string {
	return t.String()
}

// Value returns the raw token. Only call this to authenticate a request;
// never log or print the result.
func (t SecureToken) Value() string {
	return t.value
}

// IsEmpty reports whether no token is set.
func (t SecureToken) IsEmpty() bool {
	return t.value == ""
}

// MarshalText masks the token during any text/JSON/YAML serialization.
// Persisting the raw value is the credential store's job, done explicitly.
func (t SecureToken) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
