package memory

import (
	"fmt"
	"sync"
)

// MaxSectionLength is the hard cap on a single core-memory section's
// content length, matching the handler's max_content_length.
const MaxSectionLength = 2000

// Core is the always-in-context memory store: a per-agent mapping from
// section name to content. Append concatenates with a newline; appending
// past MaxSectionLength leaves the section untouched and returns an error
// instead of truncating silently.
type Core struct {
	mu       sync.RWMutex
	sections map[string]map[string]string
}

// NewCore creates an empty Core store.
func NewCore() *Core {
	return &Core{sections: make(map[string]map[string]string)}
}

// Read returns the content of one section, or "" if it doesn't exist.
func (c *Core) Read(agentID, section string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sections[agentID][section]
}

// Update replaces a section's content outright.
func (c *Core) Update(agentID, section, content string) error {
	if len(content) > MaxSectionLength {
		return fmt.Errorf("section %q content exceeds %d characters", section, MaxSectionLength)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensure(agentID)
	c.sections[agentID][section] = content
	return nil
}

// Append concatenates content onto a section with a newline separator.
// If the result would exceed MaxSectionLength, the section is left
// unmodified and an error is returned.
func (c *Core) Append(agentID, section, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensure(agentID)

	existing := c.sections[agentID][section]
	merged := content
	if existing != "" {
		merged = existing + "\n" + content
	}
	if len(merged) > MaxSectionLength {
		return fmt.Errorf("appending to section %q would exceed %d characters", section, MaxSectionLength)
	}
	c.sections[agentID][section] = merged
	return nil
}

// Clear removes one section, or every section for agentID when section is
// empty.
func (c *Core) Clear(agentID, section string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if section == "" {
		delete(c.sections, agentID)
		return nil
	}
	delete(c.sections[agentID], section)
	return nil
}

func (c *Core) ensure(agentID string) {
	if c.sections[agentID] == nil {
		c.sections[agentID] = make(map[string]string)
	}
}
