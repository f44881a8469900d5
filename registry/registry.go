// Package registry is the process-wide table of mounted filesystems.
// ufs1.FileSystem itself holds no registry state; a mount is just a value,
// and naming/tracking mounts is this package's job instead.
package registry

import (
	"fmt"
	"sync"

	"github.com/ffsnfs/ffsnfs/ufs1"
)

// Registry maps a caller-chosen name to a mounted filesystem. The zero
// value is ready to use.
type Registry struct {
	mu     sync.RWMutex
	mounts map[string]*ufs1.FileSystem
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{mounts: make(map[string]*ufs1.FileSystem)}
}

// Register adds fs under name, failing if name is already in use.
func (r *Registry) Register(name string, fs *ufs1.FileSystem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.mounts[name]; exists {
		return fmt.Errorf("registry: %q is already mounted", name)
	}
	if r.mounts == nil {
		r.mounts = make(map[string]*ufs1.FileSystem)
	}
	r.mounts[name] = fs
	return nil
}

// Lookup returns the filesystem registered under name, if any.
func (r *Registry) Lookup(name string) (*ufs1.FileSystem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fs, ok := r.mounts[name]
	return fs, ok
}

// Unregister removes name from the registry. It is a no-op if name was
// never registered.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mounts, name)
}

// Names returns the currently registered mount names, in no particular
// order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.mounts))
	for n := range r.mounts {
		names = append(names, n)
	}
	return names
}
