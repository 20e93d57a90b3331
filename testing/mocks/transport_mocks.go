// Package mocks provides test doubles with call tracking for gitbridge tests.
package mocks

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

// Exchange is one scripted transport outcome: either a response or an error.
type Exchange struct {
	Status int
	Body   string
	Header http.Header
	Err    error
}

// RoundTripper replays a scripted sequence of exchanges and records every
// request it sees. The last exchange repeats once the script runs out.
type RoundTripper struct {
	mu       sync.Mutex
	script   []Exchange
	requests []*http.Request
}

// NewRoundTripper creates a RoundTripper replaying the given exchanges.
func NewRoundTripper(script ...Exchange) *RoundTripper {
	return &RoundTripper{script: script}
}

// RoundTrip implements http.RoundTripper.
func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.requests = append(rt.requests, req.Clone(req.Context()))

	idx := len(rt.requests) - 1
	if idx >= len(rt.script) {
		idx = len(rt.script) - 1
	}
	ex := rt.script[idx]
	if ex.Err != nil {
		return nil, ex.Err
	}

	header := ex.Header
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: ex.Status,
		Header:     header.Clone(),
		Body:       io.NopCloser(bytes.NewBufferString(ex.Body)),
		Request:    req,
	}, nil
}

// Client wraps the RoundTripper in an http.Client.
func (rt *RoundTripper) Client() *http.Client {
	return &http.Client{Transport: rt}
}

// CallCount returns how many requests were made.
func (rt *RoundTripper) CallCount() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.requests)
}

// Requests returns the recorded requests in order.
func (rt *RoundTripper) Requests() []*http.Request {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]*http.Request{}, rt.requests...)
}

// LastRequest returns the most recent request, or nil.
func (rt *RoundTripper) LastRequest() *http.Request {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if len(rt.requests) == 0 {
		return nil
	}
	return rt.requests[len(rt.requests)-1]
}

// OK builds a 200 exchange with a JSON body.
func OK(body string) Exchange {
	return Exchange{Status: http.StatusOK, Body: body, Header: jsonHeader()}
}

// StatusWith builds an exchange with the given status, body and headers.
func StatusWith(status int, body string, kv ...string) Exchange {
	header := jsonHeader()
	for i := 0; i+1 < len(kv); i += 2 {
		header.Set(kv[i], kv[i+1])
	}
	return Exchange{Status: status, Body: body, Header: header}
}

// Fail builds a transport-level failure.
func Fail(err error) Exchange {
	return Exchange{Err: err}
}

func jsonHeader() http.Header {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return header
}
