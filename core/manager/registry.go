package manager

import (
	"sort"
	"sync"

	"github.com/codewandler/rsrc-go/core/resource"
)

// Method records how an instance was obtained; recovery re-resolves it
// accordingly.
type Method int8

const (
	MethodGet Method = iota
	MethodCreate
)

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "get"
	case MethodCreate:
		return "create"
	default:
		return "unknown"
	}
}

// handle binds a tracked instance to the key, declared type and method it
// was obtained with. Owned exclusively by the registry.
type handle struct {
	key      string
	rtype    resource.Type
	method   Method
	instance resource.Instance
}

// registry is the concurrent resource-id -> handle mapping: the source of
// truth for which instances this process is currently bound to.
type registry struct {
	mu      sync.RWMutex
	handles map[int64]*handle
}

func newRegistry() *registry {
	return &registry{handles: make(map[int64]*handle)}
}

func (r *registry) get(id int64) (*handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

// getOrInsert returns the handle for id, building and inserting one when
// absent. The build callback runs under the registry lock so exactly one
// handle is ever created per id, even under concurrent resolution. The
// returned bool is true when the handle was just inserted.
func (r *registry) getOrInsert(id int64, build func() (*handle, error)) (*handle, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[id]; ok {
		return h, false, nil
	}
	h, err := build()
	if err != nil {
		return nil, false, err
	}
	r.handles[id] = h
	return h, true, nil
}

// insert registers h unconditionally, replacing any previous handle at id.
func (r *registry) insert(id int64, h *handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[id] = h
}

// take removes and returns the handle with the lowest id, giving recovery
// a deterministic visit order. Removal-on-visit keeps a concurrently
// started duplicate cycle from double-processing an entry.
func (r *registry) take() (int64, *handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.handles) == 0 {
		return 0, nil, false
	}
	ids := make([]int64, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	id := ids[0]
	h := r.handles[id]
	delete(r.handles, id)
	return id, h, true
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
