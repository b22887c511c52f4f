package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/ptm/internal/ctxlog"
)

// Module is the interface that every driver package implements to register
// itself.
type Module interface {
	Register(ctx context.Context, r *Registry)
}

// Registry holds the drivers available to a single application instance.
type Registry struct {
	drivers map[string]Driver
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{drivers: make(map[string]Driver)}
}

// Load creates a Registry populated by the given modules.
func Load(ctx context.Context, modules ...Module) *Registry {
	r := New()
	for _, m := range modules {
		m.Register(ctx, r)
	}
	return r
}

// Register adds a driver under name. Registering the same name twice is a
// programming error and panics.
func (r *Registry) Register(ctx context.Context, name string, d Driver) {
	if _, exists := r.drivers[name]; exists {
		panic(fmt.Sprintf("driver with name '%s' already registered", name))
	}
	ctxlog.FromContext(ctx).Debug("Registering driver.", "name", name)
	r.drivers[name] = d
}

// Has reports whether a driver is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.drivers[name]
	return ok
}

// Get returns the driver registered under name.
func (r *Registry) Get(name string) (Driver, error) {
	d, ok := r.drivers[name]
	if !ok {
		return nil, fmt.Errorf("unknown driver %q (available: %v)", name, r.Names())
	}
	return d, nil
}

// Names lists the registered driver names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.drivers))
	for n := range r.drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
