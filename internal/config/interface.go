package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the configuration file at path and translates it into the
	// format-agnostic document.
	Load(ctx context.Context, path string) (*Table, error)

	// Parse translates an in-memory document. name is used in error messages.
	Parse(ctx context.Context, name string, src []byte) (*Table, error)
}

// Fetcher retrieves an environment definition that is referenced by a
// locator (usually a URL) instead of being written inline.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (*Table, error)
}
