package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/cairn/pkg/adapters/file"
	"github.com/aretw0/cairn/pkg/adapters/loam"
	"github.com/aretw0/cairn/pkg/ports"
)

// ResolveSource maps a path onto a definition source: a directory
// becomes a loam repository (one document per node), a file becomes a
// single-file source in the format its extension names.
func ResolveSource(path string) (ports.Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("resolve definition source: %w", err)
	}
	if info.IsDir() {
		src, err := loam.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open definition repository: %w", err)
		}
		return src, nil
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".json", ".flow":
		return file.NewSource(path), nil
	}
	return nil, fmt.Errorf("unsupported definition file %q (want a directory or .yaml/.yml/.json/.flow)", path)
}
