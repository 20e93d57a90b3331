package gitservice

import (
	"net/http"
	"strconv"
	"strings"
)

// PaginationKind names one of the two upstream pagination families.
type PaginationKind string

// Pagination families.
const (
	// PaginationOffset covers page-number conventions (page + per_page/limit).
	PaginationOffset PaginationKind = "offset"
	// PaginationCursor covers opaque next-link conventions (Link header or
	// a body field holding the next page URL).
	PaginationCursor PaginationKind = "cursor"
)

// PaginationSpec describes how one provider paginates list responses. The
// spec is immutable after construction; the engine consults it between
// pages and never mutates it.
type PaginationSpec struct {
	Kind PaginationKind

	// Offset family.
	PageParam      string // usually "page"
	PerPageParam   string // "per_page", "limit" or "pagelen"
	DefaultPerPage int
	MaxPerPage     int
	// TotalCountHeader names a response header carrying the exact total
	// item count (e.g. GitLab's X-Total, Gitea's X-Total-Count). When
	// present it is preferred over the full-page heuristic.
	TotalCountHeader string

	// Cursor family: NextCursor extracts the next page URL from the
	// response, or "" when the listing is exhausted.
	NextCursor func(header http.Header, body []byte) string
}

// pageState is the engine-side cursor between two pages of one listing.
// For the offset family page is the most recently fetched page number;
// for the cursor family cursorURL is the URL of the page to fetch next.
type pageState struct {
	page      int
	cursorURL string
}

// next computes the follow-up page state from the page just received.
// An empty page always terminates the listing regardless of family.
func (p PaginationSpec) next(state pageState, header http.Header, body []byte, itemCount, perPage int) (pageState, bool) {
	if itemCount == 0 {
		state.cursorURL = ""
		return state, false
	}

	if p.Kind == PaginationCursor {
		cursor := ""
		if p.NextCursor != nil {
			cursor = p.NextCursor(header, body)
		}
		state.cursorURL = cursor
		return state, cursor != ""
	}

	// Offset family: prefer the exact total when the provider reports one,
	// otherwise assume a short page means the listing is exhausted.
	hasNext := itemCount == perPage
	if p.TotalCountHeader != "" {
		if total, err := strconv.Atoi(header.Get(p.TotalCountHeader)); err == nil && total >= 0 {
			hasNext = state.page*perPage < total
		}
	}
	return state, hasNext
}

// perPageOrDefault resolves the effective page size for a request.
func (p PaginationSpec) perPageOrDefault(requested int) int {
	per := requested
	if per <= 0 {
		per = p.DefaultPerPage
	}
	if p.MaxPerPage > 0 && per > p.MaxPerPage {
		per = p.MaxPerPage
	}
	return per
}

// NextLinkHeader extracts the rel="next" target from an RFC 5988 Link
// header, as sent by GitHub, Gitea and Forgejo.
func NextLinkHeader(header http.Header) string {
	for _, link := range header.Values("Link") {
		for _, part := range strings.Split(link, ",") {
			section := strings.Split(part, ";")
			if len(section) < 2 {
				continue
			}
			target := strings.Trim(strings.TrimSpace(section[0]), "<>")
			for _, attr := range section[1:] {
				if strings.TrimSpace(attr) == `rel="next"` {
					return target
				}
			}
		}
	}
	return ""
}
