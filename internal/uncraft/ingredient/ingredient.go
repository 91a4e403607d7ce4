// Package ingredient resolves recipe slot entries, which may name a single
// stack or a set of interchangeable alternatives, to one concrete stack.
package ingredient

import (
	"errors"
	"fmt"

	"decraft.ai/internal/uncraft/item"
)

// ErrEmptyAlternativeSet means a slot declared an alternative set that has no
// registered candidates. The whole recipe is unrepresentable.
var ErrEmptyAlternativeSet = errors.New("ingredient: empty alternative set")

// AlternativeSet is "any one of these satisfies the slot". Candidates may
// change while the process runs (a live view), so resolution reads them at call time.
type AlternativeSet interface {
	Name() string
	Candidates() []item.Stack
}

// Entry is one recipe slot. It is concrete when Alternatives is nil; an
// empty concrete Stack is an empty slot.
type Entry struct {
	Stack        item.Stack
	Alternatives AlternativeSet
}

func Of(s item.Stack) Entry { return Entry{Stack: s} }

func OneOf(set AlternativeSet) Entry { return Entry{Alternatives: set} }

func (e Entry) IsAlternative() bool { return e.Alternatives != nil }

// Options is a fixed AlternativeSet.
type Options struct {
	name   string
	stacks []item.Stack
}

func NewOptions(name string, stacks ...item.Stack) Options {
	return Options{name: name, stacks: stacks}
}

func (o Options) Name() string             { return o.name }
func (o Options) Candidates() []item.Stack { return o.stacks }

// Resolve returns a normalized copy of the entry's canonical stack: the stack
// itself, or the first candidate of an alternative set.
func Resolve(e Entry) (item.Stack, error) {
	if e.Alternatives == nil {
		return e.Stack.Normalized(), nil
	}
	cands := e.Alternatives.Candidates()
	if len(cands) == 0 {
		return item.Stack{}, fmt.Errorf("%w: %q", ErrEmptyAlternativeSet, e.Alternatives.Name())
	}
	return cands[0].Normalized(), nil
}

// ResolveAll resolves every entry in order. A single empty alternative set
// fails the whole list and nothing is returned.
func ResolveAll(entries []Entry) ([]item.Stack, error) {
	out := make([]item.Stack, 0, len(entries))
	for i, e := range entries {
		s, err := Resolve(e)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CopyAll returns normalized deep copies of concrete stacks.
func CopyAll(stacks []item.Stack) []item.Stack {
	out := make([]item.Stack, len(stacks))
	for i, s := range stacks {
		out[i] = s.Normalized()
	}
	return out
}
