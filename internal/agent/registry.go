package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"aura/internal/aerr"
	"aura/internal/logging"
)

// Registry holds every loaded agent definition, watching its source
// directories for changes the way the teacher watches its agent config
// directory and reparses on write/create/remove events.
type Registry struct {
	mu    sync.RWMutex
	byName map[string]*Definition
	dirs  []string
	watcher *fsnotify.Watcher
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]*Definition{}}
}

// LoadDir parses every *.md file directly under dir and adds it to the
// registry, replacing any prior definition with the same name.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := r.loadFile(path); err != nil {
			logging.L().Error("agent: failed to load definition", "path", path, "error", err)
		}
	}
	r.mu.Lock()
	r.dirs = append(r.dirs, dir)
	r.mu.Unlock()
	return nil
}

func (r *Registry) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	def, err := ParseMarkdown(path, data)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.byName[def.Name] = def
	r.mu.Unlock()
	return nil
}

func (r *Registry) removeByPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, def := range r.byName {
		if def.SourcePath == path {
			delete(r.byName, name)
		}
	}
}

// Get returns the named agent definition.
func (r *Registry) Get(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byName[name]
	if !ok {
		return nil, aerr.ErrNotFound
	}
	return def, nil
}

// All returns every loaded definition.
func (r *Registry) All() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	return out
}

// Watch starts an fsnotify watch over every directory loaded so far,
// reparsing a file on write/create and evicting it on remove. It blocks
// until ctx is cancelled.
func (r *Registry) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	r.watcher = w
	defer w.Close()

	r.mu.RLock()
	dirs := append([]string(nil), r.dirs...)
	r.mu.RUnlock()
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			logging.L().Error("agent: watch failed", "dir", d, "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
				if err := r.loadFile(ev.Name); err != nil {
					logging.L().Error("agent: reload failed", "path", ev.Name, "error", err)
				}
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				r.removeByPath(ev.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logging.L().Error("agent: watch error", "error", err)
		}
	}
}
