package app

import "github.com/specialistvlad/ptm/internal/marker"

// SetProbe replaces the interpreter probe used to evaluate markers.
func SetProbe(a *App, p marker.Probe) {
	a.probe = p
}
