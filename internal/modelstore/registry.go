package modelstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrNotLoaded is returned by Registry.Current before the first successful load.
var ErrNotLoaded = errors.New("model store not loaded")

// LoaderFunc produces a fresh store.
type LoaderFunc func(ctx context.Context) (*Store, error)

// Registry publishes the current Store. Readers never block; Reload swaps the
// pointer only after a complete successful load.
type Registry struct {
	current atomic.Pointer[Store]
	loader  LoaderFunc
	reload  sync.Mutex
}

func NewRegistry(loader LoaderFunc) *Registry {
	return &Registry{loader: loader}
}

// NewStaticRegistry wraps an already loaded store. Reload is unsupported.
func NewStaticRegistry(store *Store) *Registry {
	r := &Registry{}
	r.current.Store(store)
	return r
}

func (r *Registry) Current() (*Store, error) {
	s := r.current.Load()
	if s == nil {
		return nil, ErrNotLoaded
	}
	return s, nil
}

// Reload runs the loader and publishes its store. On failure the previous
// store stays in place.
func (r *Registry) Reload(ctx context.Context) (*Store, error) {
	if r.loader == nil {
		return nil, fmt.Errorf("registry has no loader")
	}

	r.reload.Lock()
	defer r.reload.Unlock()

	s, err := r.loader(ctx)
	if err != nil {
		return nil, err
	}
	r.current.Store(s)
	return s, nil
}
