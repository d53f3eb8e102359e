// Package registry keeps live instances keyed by id, generic over the
// instance type so game sessions and future composites share one
// store.
package registry

import (
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/google/uuid"

	"github.com/vladbarsukov/gameroom-server/internal/game"
)

var (
	// ErrDuplicateID is returned by Restore when the id is already live.
	ErrDuplicateID = errors.New("instance id already registered")
)

// Factory builds an instance for a freshly minted id.
type Factory[I any] func(id string, params game.Params) (I, error)

// Registry is a concurrent keyed store of live instances.
type Registry[I any] struct {
	factory Factory[I]

	mu        sync.RWMutex
	instances map[string]I
}

// New builds an empty registry around factory.
func New[I any](factory Factory[I]) *Registry[I] {
	return &Registry[I]{
		factory:   factory,
		instances: make(map[string]I),
	}
}

// Create mints a fresh id, builds the instance and stores it.
func (r *Registry[I]) Create(params game.Params) (string, I, error) {
	id := uuid.NewString()
	inst, err := r.factory(id, params)
	if err != nil {
		var zero I
		return "", zero, fmt.Errorf("create instance: %w", err)
	}

	r.mu.Lock()
	r.instances[id] = inst
	r.mu.Unlock()
	return id, inst, nil
}

// Get returns the live instance for id.
func (r *Registry[I]) Get(id string) (I, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	return inst, ok
}

// Restore reinserts an instance rebuilt from a persisted record under
// its original id, bypassing the creation path.
func (r *Registry[I]) Restore(id string, inst I) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.instances[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	r.instances[id] = inst
	return nil
}

// Len returns the number of live instances.
func (r *Registry[I]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// List returns a restartable sequence over a snapshot of the current
// instances. Order is unspecified.
func (r *Registry[I]) List() iter.Seq[I] {
	return func(yield func(I) bool) {
		r.mu.RLock()
		snapshot := make([]I, 0, len(r.instances))
		for _, inst := range r.instances {
			snapshot = append(snapshot, inst)
		}
		r.mu.RUnlock()

		for _, inst := range snapshot {
			if !yield(inst) {
				return
			}
		}
	}
}
