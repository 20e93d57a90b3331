package gitservice

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Pager is a lazy, forward-only page iterator over a listing endpoint.
// Each call to Next issues exactly one upstream request; nothing is
// prefetched, so the consumer controls the pace. A Pager is not safe for
// concurrent use; run concurrent listings with separate Pagers.
type Pager[T any] struct {
	svc    *Service
	cred   Credential
	base   string // API base, resolved once per listing
	path   string
	query  url.Values
	decode func(body []byte) ([]T, error)
	post   func(item *T)

	state    pageState
	hasNext  bool
	pages    int
	maxPages int
	limit    int
	seen     int
	perPage  int
	err      error
}

// newPager wires a listing. The returned pager validates any resume token
// lazily on the first Next call via init errors stored in err.
func newPager[T any](s *Service, cred Credential, path string, query url.Values, decode func([]byte) ([]T, error), post func(*T), opts ListOptions) *Pager[T] {
	p := &Pager[T]{
		svc:      s,
		cred:     cred,
		base:     s.spec.apiBase(cred),
		path:     path,
		query:    cloneValues(query),
		decode:   decode,
		post:     post,
		hasNext:  true,
		maxPages: opts.MaxPages,
		limit:    opts.Limit,
		perPage:  s.spec.Pagination.perPageOrDefault(opts.PerPage),
	}
	if p.query == nil {
		p.query = url.Values{}
	}
	if p.maxPages <= 0 {
		p.maxPages = DefaultMaxPages
	}

	startPage := opts.Page
	if startPage <= 0 {
		startPage = 1
	}
	p.state.page = startPage - 1

	if tok := opts.Resume; tok != nil {
		if tok.Provider != s.spec.Kind {
			p.err = validationError(errTokenMismatch,
				fmt.Sprintf("token from %s replayed against %s", tok.Provider, s.spec.Kind))
			return p
		}
		if !tok.HasNext {
			p.hasNext = false
			return p
		}
		switch s.spec.Pagination.Kind {
		case PaginationCursor:
			p.state.cursorURL = tok.Value
		default:
			next, err := strconv.Atoi(tok.Value)
			if err != nil || next < 1 {
				p.err = validationError(errTokenMismatch, "malformed page token value")
				return p
			}
			p.state.page = next - 1
		}
	}
	return p
}

// HasNext reports whether another page may be available. It is true before
// the first fetch and turns false once the upstream is exhausted, the item
// limit is reached, or the pager has failed.
func (p *Pager[T]) HasNext() bool {
	return p.err == nil && p.hasNext
}

// Next fetches the next page. It returns a nil slice once the listing is
// exhausted. After an error the pager is poisoned and keeps returning the
// same error.
func (p *Pager[T]) Next(ctx context.Context) ([]T, error) {
	if p.err != nil {
		return nil, p.err
	}
	if !p.hasNext {
		return nil, nil
	}
	if p.pages >= p.maxPages {
		p.err = validationError(errPaginationLoop,
			fmt.Sprintf("%s listing aborted after %d pages", p.svc.spec.Kind, p.pages))
		return nil, p.err
	}

	resp, err := p.svc.request(ctx, http.MethodGet, p.pageURL(), nil, p.cred)
	if err != nil {
		p.err = err
		return nil, err
	}
	items, err := p.decode(resp.body)
	if err != nil {
		p.err = fmt.Errorf("decode %s page: %w", p.svc.spec.Kind, err)
		return nil, p.err
	}
	p.pages++
	if p.svc.spec.Pagination.Kind == PaginationOffset {
		p.state.page++
	}
	p.state, p.hasNext = p.svc.spec.Pagination.next(p.state, resp.header, resp.body, len(items), p.perPage)

	if p.post != nil {
		for i := range items {
			p.post(&items[i])
		}
	}
	if p.limit > 0 {
		remaining := p.limit - p.seen
		if len(items) >= remaining {
			items = items[:remaining]
			p.hasNext = false
		}
	}
	p.seen += len(items)
	return items, nil
}

// All drains the remaining pages, still honoring the item limit and the
// pagination loop guard.
func (p *Pager[T]) All(ctx context.Context) ([]T, error) {
	var all []T
	for p.HasNext() {
		items, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, p.err
}

// Token snapshots the pager position for a later resumption. Replaying the
// token is only valid against the same provider, credential and endpoint.
func (p *Pager[T]) Token() PageToken {
	tok := PageToken{Provider: p.svc.spec.Kind, HasNext: p.HasNext()}
	if p.svc.spec.Pagination.Kind == PaginationCursor {
		tok.Value = p.state.cursorURL
	} else {
		tok.Value = strconv.Itoa(p.state.page + 1)
	}
	return tok
}

// pageURL builds the URL of the page about to be fetched.
func (p *Pager[T]) pageURL() string {
	spec := p.svc.spec.Pagination
	if spec.Kind == PaginationCursor && p.state.cursorURL != "" {
		// Cursor URLs are replayed verbatim; the provider embedded every
		// parameter it needs.
		return p.state.cursorURL
	}
	query := cloneValues(p.query)
	if spec.PerPageParam != "" {
		query.Set(spec.PerPageParam, strconv.Itoa(p.perPage))
	}
	if spec.Kind == PaginationOffset && spec.PageParam != "" {
		query.Set(spec.PageParam, strconv.Itoa(p.state.page+1))
	}
	return joinURL(p.base, p.path, query)
}
