package item

import (
	"fmt"
	"strconv"
	"strings"
)

// WildcardMeta is the "any variant" marker recipes use for ingredient metadata.
// Stacks handed out of the core never carry it.
const WildcardMeta = 32767

// Stack is one ingredient slot: an item identity, a quantity and auxiliary data.
// The zero value is the empty slot.
type Stack struct {
	ID    string `json:"id,omitempty"`
	Count int    `json:"count,omitempty"`
	Meta  int    `json:"meta,omitempty"`
	Tag   Tag    `json:"tag,omitempty"`
}

func Empty() Stack { return Stack{} }

func New(id string, count, meta int) Stack {
	if count <= 0 {
		count = 1
	}
	return Stack{ID: id, Count: count, Meta: meta}
}

func (s Stack) IsEmpty() bool { return s.ID == "" }

// WithTag returns s carrying tag.
func (s Stack) WithTag(tag Tag) Stack {
	s.Tag = tag
	return s
}

// Copy returns a deep copy of s. Empty stacks copy to the canonical empty value.
func (s Stack) Copy() Stack {
	if s.IsEmpty() {
		return Stack{}
	}
	s.Tag = s.Tag.Clone()
	return s
}

// Normalized returns a copy with the wildcard metadata replaced by 0 and a
// positive count.
func (s Stack) Normalized() Stack {
	out := s.Copy()
	if out.IsEmpty() {
		return out
	}
	if out.Meta == WildcardMeta {
		out.Meta = 0
	}
	if out.Count <= 0 {
		out.Count = 1
	}
	return out
}

// SameItem reports whether both stacks name the same item variant, ignoring count and tag.
func (s Stack) SameItem(o Stack) bool {
	return s.ID == o.ID && s.Meta == o.Meta
}

func (s Stack) Equal(o Stack) bool {
	return s.ID == o.ID && s.Count == o.Count && s.Meta == o.Meta && s.Tag.Equal(o.Tag)
}

// Key is the "id" or "id:meta" form used by config lists and mapping tables.
func (s Stack) Key() string {
	if s.Meta == 0 {
		return s.ID
	}
	return s.ID + ":" + strconv.Itoa(s.Meta)
}

func (s Stack) String() string {
	if s.IsEmpty() {
		return "empty"
	}
	return fmt.Sprintf("%dx%s", s.Count, s.Key())
}

// ParseKey splits "modid:name[:meta]" into an item id and metadata.
func ParseKey(key string) (id string, meta int, ok bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", 0, false
	}
	i := strings.LastIndexByte(key, ':')
	if i < 0 {
		return key, 0, true
	}
	if n, err := strconv.Atoi(key[i+1:]); err == nil {
		return key[:i], n, key[:i] != ""
	}
	return key, 0, true
}

// FromTag decodes a stack stored inside another stack's tag data
// ({"id", "Count", "Damage", "tag"}).
func FromTag(t Tag) (Stack, bool) {
	id, ok := t.String("id")
	if !ok || id == "" {
		return Stack{}, false
	}
	count, ok := t.Int("Count")
	if !ok {
		count = 1
	}
	meta, _ := t.Int("Damage")
	s := New(id, count, meta)
	if sub, ok := t.Compound("tag"); ok {
		s.Tag = sub.Clone()
	}
	return s, true
}
