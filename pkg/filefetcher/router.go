package filefetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/ryanuber/go-glob"
)

// Router dispatches fetches to the fetcher registered for the URL scheme,
// refusing hosts that match none of the allowed domain patterns.
type Router struct {
	fetchers       map[string]Fetcher
	allowedDomains []string
}

var _ Fetcher = (*Router)(nil)

// NewRouter creates an empty router. An empty allowedDomains list allows
// every host.
func NewRouter(allowedDomains []string) *Router {
	return &Router{
		fetchers:       make(map[string]Fetcher),
		allowedDomains: allowedDomains,
	}
}

func (r *Router) Register(scheme string, fetcher Fetcher) *Router {
	r.fetchers[strings.ToLower(scheme)] = fetcher
	return r
}

func (r *Router) Fetch(ctx context.Context, rawURL string, sink io.Writer) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedURL, err)
	}

	fetcher, ok := r.fetchers[strings.ToLower(parsed.Scheme)]
	if !ok {
		return fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, parsed.Scheme)
	}

	if !r.isAllowedDomain(parsed.Hostname()) {
		return ErrDomainNotAllowed
	}

	return fetcher.Fetch(ctx, rawURL, sink)
}

func (r *Router) isAllowedDomain(domain string) bool {
	if len(r.allowedDomains) == 0 {
		return true
	}

	for _, allowedDomain := range r.allowedDomains {
		if glob.Glob(allowedDomain, domain) {
			return true
		}
	}

	return false
}

var (
	ErrUnsupportedURL   = errors.New("url is not supported by any fetcher")
	ErrDomainNotAllowed = errors.New("domain is not allowed")
)
