package gitservice

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// defaultRetryAfterSeconds is assumed when a 429 carries no usable
// Retry-After hint in either header or body.
const defaultRetryAfterSeconds = 60

// maxRawMessageLen caps how much of an unparseable upstream body is kept
// on a ClassifiedError.
const maxRawMessageLen = 512

// ClassifierTable maps one provider's raw HTTP responses into the shared
// error taxonomy. The zero value implements the common mapping; providers
// only fill in their quirks. The table is immutable after construction and
// safe for concurrent use.
type ClassifierTable struct {
	// Overrides replaces the default kind for specific status codes.
	Overrides map[int]ErrorKind
	// Special runs before any table lookup and may fully classify a
	// response (e.g. GitHub's 403 secondary rate limit).
	Special func(status int, header http.Header, body []byte) (*ClassifiedError, bool)
	// Message extracts a human-readable message from an error body.
	// Nil falls back to common JSON shapes.
	Message func(body []byte) string
	// RetryAfterBody extracts a rate limit delay from the body when the
	// Retry-After header is absent. Nil means no body fallback.
	RetryAfterBody func(body []byte) int
}

// Classify maps an upstream non-2xx response to a ClassifiedError. It is
// total: any status missing from the table falls back to KindUnknown
// rather than failing on an unexpected shape.
func (t ClassifierTable) Classify(status int, header http.Header, body []byte) *ClassifiedError {
	if t.Special != nil {
		if ce, ok := t.Special(status, header, body); ok {
			return ce
		}
	}

	kind, ok := t.Overrides[status]
	if !ok {
		kind = defaultKindFor(status)
	}

	ce := &ClassifiedError{
		Kind:            kind,
		HTTPStatus:      status,
		ProviderMessage: t.message(body),
	}
	if kind == KindRateLimited {
		ce.RetryAfterSeconds = t.retryAfter(header, body)
	}
	return ce
}

// ClassifyTransport maps a network-level failure (no HTTP response) into
// the taxonomy. Timeouts, resets and refused connections are transient;
// caller cancellation surfaces as-is so it is never retried.
func ClassifyTransport(err error) *ClassifiedError {
	kind := KindTransient
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = KindUnknown
	}
	return &ClassifiedError{Kind: kind, Err: err}
}

func defaultKindFor(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuthentication
	case status == http.StatusNotFound:
		return KindResourceNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= 500:
		return KindTransient
	default:
		return KindUnknown
	}
}

func (t ClassifierTable) message(body []byte) string {
	if t.Message != nil {
		if msg := t.Message(body); msg != "" {
			return msg
		}
	}
	return commonMessage(body)
}

// commonMessage tries the error body shapes shared by most providers:
// {"message": "..."}, {"error": "..."} and {"error": {"message": "..."}}.
func commonMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var envelope struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if len(envelope.Error) > 0 {
			var str string
			if json.Unmarshal(envelope.Error, &str) == nil && str != "" {
				return str
			}
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
		}
	}

	raw := strings.TrimSpace(string(body))
	if len(raw) > maxRawMessageLen {
		raw = raw[:maxRawMessageLen]
	}
	return raw
}

func (t ClassifierTable) retryAfter(header http.Header, body []byte) int {
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return secs
		}
		// Retry-After may also be an HTTP date.
		if at, err := http.ParseTime(v); err == nil {
			if d := time.Until(at); d > 0 {
				return int(d.Round(time.Second) / time.Second)
			}
			return 0
		}
	}
	if t.RetryAfterBody != nil {
		if secs := t.RetryAfterBody(body); secs > 0 {
			return secs
		}
	}
	return defaultRetryAfterSeconds
}
