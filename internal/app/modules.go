package app

import (
	"io"

	"github.com/vk/pipegrid/internal/registry"
	"github.com/vk/pipegrid/modules/clean"
	"github.com/vk/pipegrid/modules/copy"
	"github.com/vk/pipegrid/modules/exec"
	"github.com/vk/pipegrid/modules/print"
	"github.com/vk/pipegrid/modules/zip"
)

// coreModules is the definitive list of all modules that are compiled into
// the pipegrid binary.
func coreModules(outW io.Writer) []registry.Module {
	return []registry.Module{
		&clean.Module{},
		&copy.Module{},
		&exec.Module{},
		&print.Module{Out: outW},
		&zip.Module{},
	}
}
