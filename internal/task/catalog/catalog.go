// Package catalog maps free-text task descriptions to handlers.
package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Handler performs one task inside the sandbox and writes a single artifact.
type Handler interface {
	// Name identifies the handler kind, for logs.
	Name() string
	// Artifact is the sandbox-relative path the handler writes.
	Artifact() string
	Run(ctx context.Context) error
}

// Matcher decides whether a task description selects an entry.
type Matcher func(task string) bool

// ContainsAll matches when every keyword occurs in the task. Matching is case-sensitive.
func ContainsAll(keywords ...string) Matcher {
	return func(task string) bool {
		for _, k := range keywords {
			if !strings.Contains(task, k) {
				return false
			}
		}
		return len(keywords) > 0
	}
}

// ContainsAny matches when at least one keyword occurs in the task.
func ContainsAny(keywords ...string) Matcher {
	return func(task string) bool {
		for _, k := range keywords {
			if strings.Contains(task, k) {
				return true
			}
		}
		return false
	}
}

// Entry binds a matcher to a handler under a stable name.
type Entry struct {
	Name    string
	Match   Matcher
	Handler Handler
}

// Catalog is an ordered, immutable list of entries. The first entry whose matcher
// accepts a task wins, so more specific entries must be declared before generic ones.
type Catalog struct {
	entries []Entry
}

// New validates entries and builds a Catalog in declaration order.
func New(entries ...Entry) (*Catalog, error) {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("catalog entry %d has no name", i)
		}
		if _, ok := seen[e.Name]; ok {
			return nil, fmt.Errorf("duplicate catalog entry %q", e.Name)
		}
		if e.Match == nil {
			return nil, fmt.Errorf("catalog entry %q has no matcher", e.Name)
		}
		if e.Handler == nil {
			return nil, fmt.Errorf("catalog entry %q has no handler", e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	return &Catalog{entries: append([]Entry(nil), entries...)}, nil
}

// Match returns the first entry accepting task.
func (c *Catalog) Match(task string) (Entry, bool) {
	for _, e := range c.entries {
		if e.Match(task) {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns a copy of the entries in order.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Len reports the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}
