package gitservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	// maxRetries is the number of retry attempts after the first call,
	// so a request issues at most maxRetries+1 calls.
	maxRetries = 2
	// retryWaitMin is the backoff base; successive waits double up to
	// retryWaitMax.
	retryWaitMin = 500 * time.Millisecond
	retryWaitMax = 4 * time.Second
	// retryBudget bounds the total time spent waiting between retries.
	// A Retry-After hint that would blow the budget aborts retrying and
	// surfaces the rate limit to the caller instead.
	retryBudget = 10 * time.Second

	userAgent = "gitbridge/1.0"
)

type contextKey int

const correlationIDKey contextKey = iota

// WithCorrelationID attaches a caller-supplied correlation ID that the
// engine echoes to providers as X-Request-ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the correlation ID carried by ctx, if any.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// Service drives one provider spec. It is stateless apart from immutable
// configuration: every operation borrows its credential from the caller,
// so one Service may serve many users concurrently.
type Service struct {
	spec       ProviderSpec
	httpClient *http.Client
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient swaps the underlying HTTP client, mainly for tests and
// for callers that need custom transports or timeouts.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// New builds a Service for the given provider spec.
func New(spec ProviderSpec, opts ...Option) *Service {
	s := &Service{
		spec:       spec,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind returns the provider this service talks to.
func (s *Service) Kind() ProviderKind {
	return s.spec.Kind
}

// rawResponse is the undecoded result of one successful upstream call.
type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

// request issues one HTTP call with the engine's retry policy and returns
// the raw body for the provider decoder. Failures come back as
// *ClassifiedError; Transient and RateLimited responses are retried up to
// maxRetries times within the retry budget, everything else surfaces
// immediately.
func (s *Service) request(ctx context.Context, method, fullURL string, payload any, cred Credential) (*rawResponse, error) {
	if cred.Token.IsEmpty() {
		return nil, &ClassifiedError{Kind: KindAuthentication, Err: errEmptyToken}
	}

	var body any
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, validationError(err, "encode request payload")
		}
		body = encoded
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, validationError(err, "build request")
	}
	s.setHeaders(ctx, req.Header, cred, payload != nil)

	resp, err := s.retryClient(time.Now()).Do(req)
	if resp == nil {
		if err == nil {
			err = fmt.Errorf("no response from %s", s.spec.Kind)
		}
		return nil, ClassifyTransport(err)
	}
	defer resp.Body.Close()

	// Cancellation mid-retry hands back both the last response and the
	// context error; the caller cancelled, so the response must not be
	// classified as a provider failure.
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil, ClassifyTransport(err)
	}

	data, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, ClassifyTransport(readErr)
	}
	if resp.StatusCode >= 400 {
		return nil, s.spec.Classifier.Classify(resp.StatusCode, resp.Header, data)
	}
	return &rawResponse{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

// retryClient builds a retryablehttp client wired to the engine's policy.
// One client per call keeps the retry budget request-scoped and avoids
// shared mutable state between concurrent operations.
func (s *Service) retryClient(start time.Time) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = s.httpClient
	rc.Logger = nil
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = retryWaitMin
	rc.RetryWaitMax = retryWaitMax
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		// Cancellation aborts mid-retry; the in-flight call is abandoned.
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			// Transport-level failure: transient.
			return true, nil
		}
		if resp.StatusCode < 400 {
			return false, nil
		}
		// The provider's classifier decides retryability, so quirks like
		// GitHub's 403 secondary rate limit retry the same way a plain
		// 429 does. The body is not readable here; every classifier
		// resolves kind and wait from status and headers alone.
		ce := s.spec.Classifier.Classify(resp.StatusCode, resp.Header, nil)
		if !ce.Retryable() {
			return false, nil
		}
		if ce.Kind == KindRateLimited {
			wait := time.Duration(ce.RetryAfterSeconds) * time.Second
			if time.Since(start)+wait > retryBudget {
				return false, nil
			}
		}
		return true, nil
	}

	rc.Backoff = func(minWait, maxWait time.Duration, attemptNum int, resp *http.Response) time.Duration {
		if resp != nil && resp.StatusCode >= 400 {
			ce := s.spec.Classifier.Classify(resp.StatusCode, resp.Header, nil)
			if ce.Kind == KindRateLimited && ce.RetryAfterSeconds > 0 {
				return time.Duration(ce.RetryAfterSeconds) * time.Second
			}
		}
		wait := minWait << uint(attemptNum)
		if wait > maxWait {
			wait = maxWait
		}
		return wait
	}

	return rc
}

func (s *Service) setHeaders(ctx context.Context, h http.Header, cred Credential, hasBody bool) {
	h.Set("Accept", "application/json")
	h.Set("User-Agent", userAgent)
	if hasBody {
		h.Set("Content-Type", "application/json")
	}
	if id := CorrelationID(ctx); id != "" {
		h.Set("X-Request-ID", id)
	}
	for name, values := range s.spec.AuthHeaders(cred.Token.Value()) {
		for _, v := range values {
			h.Set(name, v)
		}
	}
}

// joinURL glues an API base, endpoint path and query string together.
func joinURL(base, path string, query url.Values) string {
	full := base + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return full
}

// cloneValues deep-copies url.Values so shared spec tables stay immutable.
func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
