// Package web fetches documents over HTTP(S).
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Defaults.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxBytes  = int64(32 << 20)
	DefaultUserAgent = "docqa/1.0"
)

// Ensure Fetcher implements the interface.
var _ driven.DocumentFetcher = (*Fetcher)(nil)

// Config holds the web fetcher settings.
type Config struct {
	Timeout           time.Duration
	MaxBytes          int64
	RequestsPerSecond float64
	UserAgent         string
	HTTPClient        *http.Client
}

// Fetcher downloads documents from http:// and https:// locators.
type Fetcher struct {
	client    *http.Client
	limiter   *RateLimiter
	maxBytes  int64
	userAgent string
}

// New creates a web fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{
		client:    client,
		limiter:   NewRateLimiter(cfg.RequestsPerSecond),
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
	}
}

// Fetch downloads the document at locator.
func (f *Fetcher) Fetch(ctx context.Context, locator string) (*domain.RawDocument, error) {
	u, err := url.Parse(locator)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: not a web URL: %q", domain.ErrInvalidInput, locator)
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("web: create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("web: %s: %w", locator, domain.ErrProviderTimeout)
		}
		return nil, fmt.Errorf("web: %s: %w", locator, err)
	}
	defer resp.Body.Close()

	if pause := f.limiter.Observe(resp); pause > 0 {
		logger.Warn("web: %s asked to retry after %s", u.Host, pause)
	}
	if err := statusError(resp.StatusCode); err != nil {
		return nil, fmt.Errorf("web: %s: status %d: %w", locator, resp.StatusCode, err)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", domain.ErrInvalidInput, locator, resp.ContentLength, f.maxBytes)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("web: read %s: %w", locator, err)
	}
	if int64(len(content)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidInput, locator, f.maxBytes)
	}

	mimeType := ""
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if base, _, err := mime.ParseMediaType(ct); err == nil {
			mimeType = base
		}
	}
	return &domain.RawDocument{
		Locator:  locator,
		Filename: filename(u, resp.Header.Get("Content-Disposition")),
		MIMEType: mimeType,
		Content:  content,
	}, nil
}

func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return domain.ErrNotFound
	case code == http.StatusUnauthorized:
		return domain.ErrAuthInvalid
	case code == http.StatusForbidden:
		return domain.ErrForbidden
	case code == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return domain.ErrProviderTimeout
	}
	return errors.New(http.StatusText(code))
}

// filename prefers the Content-Disposition filename, then the last URL
// path segment.
func filename(u *url.URL, disposition string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
			return path.Base(params["filename"])
		}
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		return u.Host
	}
	return strings.TrimSpace(base)
}
