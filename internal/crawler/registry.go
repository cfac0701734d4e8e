package crawler

import "sync"

// Registry tracks which sites currently have a crawl job running.
// A site is present if and only if a job for it is active.
type Registry struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]struct{})}
}

// TryAcquire inserts the site if absent and reports whether it did.
// False means another job already owns the slot.
func (r *Registry) TryAcquire(site string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, running := r.active[site]; running {
		return false
	}
	r.active[site] = struct{}{}
	return true
}

// Release removes the site unconditionally.
func (r *Registry) Release(site string) {
	r.mu.Lock()
	delete(r.active, site)
	r.mu.Unlock()
}

// ActiveCount returns a snapshot of how many jobs are registered.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Active lists the registered sites in no particular order.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.active))
	for site := range r.active {
		out = append(out, site)
	}
	return out
}
