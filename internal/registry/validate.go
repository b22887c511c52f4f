package registry

import (
	"context"

	"github.com/specialistvlad/ptm/internal/ctxlog"
	"github.com/specialistvlad/ptm/internal/matrix"
)

// ForConfig returns the driver selected by the configuration. An unknown
// name is reported as a configuration error.
func (r *Registry) ForConfig(ctx context.Context, cfg *matrix.Config) (Driver, error) {
	d, err := r.Get(cfg.Driver)
	if err != nil {
		return nil, &matrix.ConfigurationError{Path: "tool.ptm.driver", Err: err}
	}
	ctxlog.FromContext(ctx).Debug("Driver selected.", "driver", cfg.Driver)
	return d, nil
}
