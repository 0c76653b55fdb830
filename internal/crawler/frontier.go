package crawler

// Entry represents an item in the BFS crawl frontier
type Entry struct {
	ProfileID string
	Depth     int
}

// Frontier is a FIFO queue with per-run deduplication. BFS order guarantees
// the first depth at which a profile is pushed is its minimum depth, so the
// first push wins and later discoveries of the same profile are dropped.
type Frontier struct {
	items []Entry
	seen  map[string]bool
}

// NewFrontier creates an empty crawl frontier
func NewFrontier() *Frontier {
	return &Frontier{
		seen: make(map[string]bool),
	}
}

// Push adds an entry unless the profile was already enqueued this run.
// Returns true if added, false if duplicate.
func (f *Frontier) Push(entry Entry) bool {
	if f.seen[entry.ProfileID] {
		return false
	}
	f.seen[entry.ProfileID] = true
	f.items = append(f.items, entry)
	return true
}

// Pop removes and returns the head of the frontier
func (f *Frontier) Pop() (Entry, bool) {
	if len(f.items) == 0 {
		return Entry{}, false
	}
	entry := f.items[0]
	f.items = f.items[1:]
	return entry, true
}

// Seen reports whether a profile was enqueued at any point this run
func (f *Frontier) Seen(profileID string) bool {
	return f.seen[profileID]
}

// Len returns the number of pending entries
func (f *Frontier) Len() int {
	return len(f.items)
}
