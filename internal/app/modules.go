package app

import (
	"github.com/specialistvlad/ptm/internal/registry"
	"github.com/specialistvlad/ptm/modules/uv"
)

// coreModules is the definitive list of drivers compiled into the ptm
// binary. Drivers that read project files are bound to projectDir.
func coreModules(projectDir string) []registry.Module {
	return []registry.Module{
		&uv.Module{ProjectDir: projectDir},
	}
}
