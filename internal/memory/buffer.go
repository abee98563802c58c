// Package memory implements four memory backends: an in-process buffer and
// a Redis-backed buffer (both with Load/Append/Clear), core
// (always-in-context sections, with its own Read/Update/Append/Clear), and
// episodic (decayed, importance-scored events, with Store/Retrieve/Search/
// Consolidate). There is no single interface shared by all four. Grounded on codeready-toolchain-tarsy's
// pkg/session/manager.go (in-process map + RWMutex manager pattern) and
// original_source/app/handlers/{buffer,core_memory,episodic_memory}_handler.go
// for the per-backend semantics.
package memory

import (
	"sync"
	"time"

	"github.com/orbitflow/orbitflow/internal/agent"
)

// Item is one short-term memory entry.
type Item struct {
	Tool      string
	Params    map[string]any
	Result    any
	Timestamp time.Time
}

// DefaultWindow is the eviction window used when a caller doesn't specify
// one, matching the original handler's default.
const DefaultWindow = 6

// Buffer is an in-process, non-durable short-term memory store: a
// per-agent slice evicted by dropping the oldest entries once it exceeds
// window. Not safe to share across process restarts.
type Buffer struct {
	mu    sync.RWMutex
	items map[string][]Item
}

// NewBuffer creates an empty in-process Buffer.
func NewBuffer() *Buffer {
	return &Buffer{items: make(map[string][]Item)}
}

// Load returns the current buffer contents for agentID, oldest first.
func (b *Buffer) Load(agentID string) []Item {
	b.mu.RLock()
	defer b.mu.RUnlock()
	items := b.items[agentID]
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// AppendWithWindow appends item, then evicts from the front until the
// buffer is at most window entries long (eviction-by-append: the oldest
// entries are dropped, not the newest).
func (b *Buffer) AppendWithWindow(agentID string, item Item, window int) error {
	if window <= 0 {
		window = DefaultWindow
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	items := append(b.items[agentID], item)
	if len(items) > window {
		items = items[len(items)-window:]
	}
	b.items[agentID] = items
	return nil
}

// Append satisfies internal/agent.ShortTermStore using DefaultWindow.
func (b *Buffer) Append(agentID string, entry agent.ShortTermEntry) error {
	return b.AppendWithWindow(agentID, Item{Tool: entry.Tool, Params: entry.Params, Result: entry.Result}, DefaultWindow)
}

// Clear removes all buffered entries for agentID.
func (b *Buffer) Clear(agentID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.items, agentID)
	return nil
}
