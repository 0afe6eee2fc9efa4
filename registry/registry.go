package registry

import (
	"sync"

	"github.com/ngxial02/srt"
)

// Registry resolves group and link ids to their live objects and gates
// deletion on a group's busy counter. It implements srt.Registry.
type Registry struct {
	mu     sync.RWMutex
	groups map[srt.GroupID]*srt.Group
	links  map[srt.LinkID]srt.Link
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		groups: make(map[srt.GroupID]*srt.Group),
		links:  make(map[srt.LinkID]srt.Link),
	}
}

// LookupGroup implements srt.Registry.
func (r *Registry) LookupGroup(id srt.GroupID) (*srt.Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[id]
	return g, ok
}

// LookupLink implements srt.Registry.
func (r *Registry) LookupLink(id srt.LinkID) (srt.Link, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.links[id]
	return l, ok
}

// AddGroup registers g under its own id. It replaces any prior registration
// for the same id.
func (r *Registry) AddGroup(g *srt.Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[g.ID()] = g
}

// AddLink registers a link under the given id, as returned by its own ID().
func (r *Registry) AddLink(l srt.Link) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[l.ID()] = l
}

// RemoveLink drops a link's registration. Callers that also own a Group
// should call Group.RemoveMember first — this only affects future
// LookupLink calls.
func (r *Registry) RemoveLink(id srt.LinkID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.links, id)
}

// DeleteGroup removes g from the registry and returns an error instead of
// deleting if g still has an in-flight public operation (BusyCount() > 0).
// The registry lock is held for the whole check-then-delete so a concurrent
// AddGroup/LookupGroup can't interleave with it.
func (r *Registry) DeleteGroup(id srt.GroupID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[id]
	if !ok {
		return nil
	}
	if g.BusyCount() > 0 {
		return srt.ErrInternal
	}
	delete(r.groups, id)
	return nil
}

// Groups returns a snapshot of every registered group.
func (r *Registry) Groups() []*srt.Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*srt.Group, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	return out
}
