package intake

import "sync"

// Deduplicator is the process-wide set of already-handled event ids. Entries
// are only ever added, never evicted: the set lives for the process lifetime
// and is acceptable only for a single-instance deployment. A multi-replica
// deployment needs a TTL-bounded shared store behind the same CheckAndMark
// interface.
type Deduplicator struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDeduplicator creates an empty dedup set
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// CheckAndMark atomically tests membership and inserts the id. Returns true
// on first sighting. The mutex makes check-and-insert a single step so two
// concurrent deliveries of the same event cannot both pass the gate.
func (d *Deduplicator) CheckAndMark(eventID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[eventID]; ok {
		return false
	}
	d.seen[eventID] = struct{}{}
	return true
}

// Len returns the number of tracked event ids
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
