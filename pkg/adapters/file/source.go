package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/cairn/internal/compiler"
	"github.com/aretw0/cairn/pkg/graph"
)

// debounce collapses the burst of filesystem events editors fire per
// save into one change notification.
const debounce = 200 * time.Millisecond

// Source implements ports.Source and ports.Watchable over a single
// definition file. The format follows the extension: .yaml/.yml and
// .json hold a graph definition document, .flow holds the compact
// transition list format.
type Source struct {
	path string
}

// NewSource creates a Source for the definition file at path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Path returns the watched file path.
func (s *Source) Path() string { return s.path }

// LoadDefinition reads and parses the file.
func (s *Source) LoadDefinition(ctx context.Context) (*graph.Definition, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("file: read definition: %w", err)
	}

	switch filepath.Ext(s.path) {
	case ".yaml", ".yml":
		var def graph.Definition
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("file: parse %s: %w", s.path, err)
		}
		return &def, nil
	case ".json":
		var def graph.Definition
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("file: parse %s: %w", s.path, err)
		}
		return &def, nil
	case ".flow":
		def, err := compiler.NewParser().Parse(data)
		if err != nil {
			return nil, fmt.Errorf("file: parse %s: %w", s.path, err)
		}
		return def, nil
	}
	return nil, fmt.Errorf("file: unsupported definition format %q", filepath.Ext(s.path))
}

// Watch implements ports.Watchable. The parent directory is watched
// rather than the file itself: editors replace files by rename, which
// would silently drop a watch on the file. Each received value is the
// definition path; the channel closes when ctx is cancelled.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("file: create watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("file: watch %s: %w", dir, err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		defer w.Close()

		var last time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != filepath.Clean(s.path) {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				now := time.Now()
				if now.Sub(last) < debounce {
					continue
				}
				last = now
				select {
				case ch <- s.path:
				case <-ctx.Done():
					return
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return ch, nil
}
