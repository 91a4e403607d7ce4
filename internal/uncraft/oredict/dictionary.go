// Package oredict keeps named alternative sets ("ore dictionary" entries):
// every stack registered under a name is an interchangeable recipe input.
package oredict

import (
	"sort"
	"strings"
	"sync"

	"decraft.ai/internal/uncraft/ingredient"
	"decraft.ai/internal/uncraft/item"
)

type Dictionary struct {
	mu      sync.RWMutex
	entries map[string][]item.Stack
}

func New() *Dictionary {
	return &Dictionary{entries: map[string][]item.Stack{}}
}

// Register appends s to the candidates of name, keeping registration order.
// Re-registering the same item variant is a no-op.
func (d *Dictionary) Register(name string, s item.Stack) {
	name = strings.TrimSpace(name)
	if name == "" || s.IsEmpty() {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, have := range d.entries[name] {
		if have.SameItem(s) {
			return
		}
	}
	d.entries[name] = append(d.entries[name], s.Copy())
}

// Set returns a live view of name. Unknown names give an empty set.
func (d *Dictionary) Set(name string) ingredient.AlternativeSet {
	return liveSet{d: d, name: name}
}

func (d *Dictionary) candidates(name string) []item.Stack {
	d.mu.RLock()
	defer d.mu.RUnlock()
	src := d.entries[name]
	out := make([]item.Stack, len(src))
	copy(out, src)
	return out
}

func (d *Dictionary) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.entries))
	for n := range d.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

type liveSet struct {
	d    *Dictionary
	name string
}

func (s liveSet) Name() string             { return s.name }
func (s liveSet) Candidates() []item.Stack { return s.d.candidates(s.name) }
