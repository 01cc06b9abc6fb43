package permission

import (
	"errors"
	"sync"
)

// Operation names understood by the default catalog. Custom deployments may
// register additional operations before the registry is frozen.
const (
	OpCreate      = "create"
	OpRead        = "read"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpExport      = "export"
	OpImport      = "import"
	OpManageUsers = "manage_users"
)

const maxOperations = 64

// Registry maps operation names to bit positions within a [Mask64].
// Registration happens during engine build; after [Registry.Freeze] the
// mapping is immutable and may be read without coordination.
type Registry struct {
	mu        sync.RWMutex
	nameToBit map[string]int
	bitToName map[int]string
	frozen    bool
}

// NewRegistry creates an empty operation registry.
func NewRegistry() *Registry {
	return &Registry{
		nameToBit: make(map[string]int),
		bitToName: make(map[int]string),
	}
}

// Register assigns the next available bit to the named operation and returns
// the assigned bit index. Must be called before [Registry.Freeze].
func (r *Registry) Register(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return -1, errors.New("registry frozen")
	}
	if name == "" {
		return -1, errors.New("operation name cannot be empty")
	}
	if _, exists := r.nameToBit[name]; exists {
		return -1, errors.New("operation already registered")
	}

	nextBit := len(r.nameToBit)
	if nextBit >= maxOperations {
		return -1, errors.New("operation limit exceeded")
	}

	r.nameToBit[name] = nextBit
	r.bitToName[nextBit] = name

	return nextBit, nil
}

// Bit returns the bit index for the named operation, or false if not registered.
func (r *Registry) Bit(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.nameToBit[name]
	return bit, ok
}

// Name returns the operation name for the given bit index, or false if unassigned.
func (r *Registry) Name(bit int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.bitToName[bit]
	return name, ok
}

// Freeze prevents further registrations. Must be called before the registry
// is used for authorization.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered operations.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nameToBit)
}

// DefaultOperations returns the operation names of the default catalog in
// registration order.
func DefaultOperations() []string {
	return []string{OpCreate, OpRead, OpUpdate, OpDelete, OpExport, OpImport, OpManageUsers}
}
