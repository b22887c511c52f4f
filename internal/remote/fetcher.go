// Package remote fetches environment definitions that a project references
// by locator instead of declaring inline.
package remote

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/specialistvlad/ptm/internal/buildinfo"
	"github.com/specialistvlad/ptm/internal/config"
	"github.com/specialistvlad/ptm/internal/ctxlog"
)

// DefaultTimeout bounds a single fetch.
const DefaultTimeout = 30 * time.Second

// Fetcher downloads a definition over HTTP and parses it with the loader
// matching the locator's extension: ".hcl" selects the HCL loader, anything
// else is parsed as TOML. A failed request is not retried.
type Fetcher struct {
	client *resty.Client
	toml   config.Loader
	hcl    config.Loader
}

var _ config.Fetcher = (*Fetcher)(nil)

// New creates a Fetcher. The caller must Close it.
func New(tomlLoader, hclLoader config.Loader, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "ptm/"+buildinfo.Version)
	return &Fetcher{client: c, toml: tomlLoader, hcl: hclLoader}
}

// Fetch retrieves and parses the definition at locator.
func (f *Fetcher) Fetch(ctx context.Context, locator string) (*config.Table, error) {
	logger := ctxlog.FromContext(ctx).With("locator", locator)

	u, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("invalid locator: %w", err)
	}
	loader := f.toml
	if strings.EqualFold(path.Ext(u.Path), ".hcl") {
		loader = f.hcl
	}

	switch u.Scheme {
	case "file":
		logger.Debug("Loading remote environment from file.")
		return loader.Load(ctx, u.Path)
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported locator scheme %q", u.Scheme)
	}

	logger.Debug("Fetching remote environment.")
	res, err := f.client.R().SetContext(ctx).Get(locator)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", locator, err)
	}
	if res.IsError() {
		return nil, &StatusError{Locator: locator, StatusCode: res.StatusCode(), Status: res.Status()}
	}
	logger.Debug("Remote environment fetched.", "status", res.StatusCode())
	return loader.Parse(ctx, locator, []byte(res.String()))
}

// Close releases the underlying HTTP client.
func (f *Fetcher) Close() error {
	return f.client.Close()
}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	Locator    string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %s", e.Locator, e.Status)
}
