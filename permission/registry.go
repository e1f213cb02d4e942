package permission

import (
	"errors"
	"sync"
)

const maxBits = 64

// Registry maps permission names to bit positions within a [Flags] set.
type Registry struct {
	mu        sync.RWMutex
	nameToBit map[string]int
	bitToName map[int]string
	frozen    bool
}

// NewRegistry creates an empty permission registry.
func NewRegistry() *Registry {
	return &Registry{
		nameToBit: make(map[string]int),
		bitToName: make(map[int]string),
	}
}

// Register assigns the next available bit to the named permission and
// returns the assigned index. Must be called before [Registry.Freeze].
func (r *Registry) Register(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return -1, errors.New("registry frozen")
	}
	if name == "" {
		return -1, errors.New("permission name cannot be empty")
	}
	if _, exists := r.nameToBit[name]; exists {
		return -1, errors.New("permission already registered")
	}

	next := len(r.nameToBit)
	if next >= maxBits {
		return -1, errors.New("permission limit exceeded")
	}

	r.nameToBit[name] = next
	r.bitToName[next] = name
	return next, nil
}

// Bit returns the bit index for the named permission, or false if not
// registered.
func (r *Registry) Bit(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.nameToBit[name]
	return bit, ok
}

// Name returns the permission name for the given bit index, or false if
// the bit is unassigned.
func (r *Registry) Name(bit int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.bitToName[bit]
	return name, ok
}

// Freeze prevents further registrations. Called by the engine builder
// after all permissions are declared.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered permissions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nameToBit)
}
