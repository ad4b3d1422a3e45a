package logging

import (
	"encoding/json"
	"sync"
	"time"
)

const defaultRecentCapacity = 1000

// Entry is one log line retained in the recent-log ring.
type Entry struct {
	Time      time.Time `json:"time"`
	Level     string    `json:"level"`
	Component string    `json:"component,omitempty"`
	ChannelID string    `json:"channel_id,omitempty"`
	Message   string    `json:"message"`
}

// recentBuffer keeps the most recent log entries in a fixed-size ring.
type recentBuffer struct {
	mu       sync.Mutex
	entries  []Entry
	next     int
	full     bool
	capacity int
}

var recent = newRecentBuffer(defaultRecentCapacity)

func newRecentBuffer(capacity int) *recentBuffer {
	if capacity <= 0 {
		capacity = defaultRecentCapacity
	}
	return &recentBuffer{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

func (r *recentBuffer) resize(capacity int) {
	if capacity <= 0 {
		capacity = defaultRecentCapacity
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if capacity == r.capacity {
		return
	}
	kept := r.snapshotLocked()
	if len(kept) > capacity {
		kept = kept[len(kept)-capacity:]
	}
	r.entries = make([]Entry, capacity)
	r.capacity = capacity
	r.next = copy(r.entries, kept)
	r.full = r.next == capacity
	if r.full {
		r.next = 0
	}
}

// Write decodes a zerolog JSON line and appends it to the ring.
func (r *recentBuffer) Write(p []byte) (int, error) {
	var entry Entry
	if err := json.Unmarshal(p, &entry); err != nil {
		// Not a JSON line; keep the raw text so nothing is silently lost.
		entry = Entry{Time: time.Now(), Message: string(p)}
	}

	r.mu.Lock()
	r.entries[r.next] = entry
	r.next = (r.next + 1) % r.capacity
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()
	return len(p), nil
}

func (r *recentBuffer) snapshotLocked() []Entry {
	if !r.full {
		out := make([]Entry, r.next)
		copy(out, r.entries[:r.next])
		return out
	}
	out := make([]Entry, 0, r.capacity)
	out = append(out, r.entries[r.next:]...)
	out = append(out, r.entries[:r.next]...)
	return out
}

func (r *recentBuffer) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make([]Entry, r.capacity)
	r.next = 0
	r.full = false
}

// Recent returns up to n of the most recent entries, oldest first.
// A non-empty component restricts the result to that component.
func Recent(component string, n int) []Entry {
	recent.mu.Lock()
	all := recent.snapshotLocked()
	recent.mu.Unlock()

	if component != "" {
		filtered := all[:0]
		for _, entry := range all {
			if entry.Component == component {
				filtered = append(filtered, entry)
			}
		}
		all = filtered
	}
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all
}

// ClearRecent empties the recent-log ring.
func ClearRecent() {
	recent.clear()
}
