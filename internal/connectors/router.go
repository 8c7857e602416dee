package connectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Router implements the interface.
var _ driven.DocumentFetcher = (*Router)(nil)

// Router dispatches a locator to the fetcher registered for its scheme.
// Locators without a scheme go to the "file" fetcher.
type Router struct {
	fetchers map[string]driven.DocumentFetcher
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{fetchers: make(map[string]driven.DocumentFetcher)}
}

// Register binds fetcher to one or more schemes (e.g. "http", "https").
func (r *Router) Register(fetcher driven.DocumentFetcher, schemes ...string) *Router {
	for _, s := range schemes {
		r.fetchers[strings.ToLower(s)] = fetcher
	}
	return r
}

// Fetch resolves locator with the matching fetcher.
func (r *Router) Fetch(ctx context.Context, locator string) (*domain.RawDocument, error) {
	scheme := Scheme(locator)
	f, ok := r.fetchers[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported locator scheme %q", domain.ErrInvalidInput, scheme)
	}
	return f.Fetch(ctx, locator)
}

// Scheme returns the lower-case scheme of locator, or "file" for bare
// paths (including Windows drive paths).
func Scheme(locator string) string {
	i := strings.Index(locator, "://")
	if i <= 1 {
		return "file"
	}
	scheme := strings.ToLower(locator[:i])
	for _, c := range scheme {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.') {
			return "file"
		}
	}
	return scheme
}
