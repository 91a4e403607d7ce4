// Package handler turns recipe handles into crafting grids. One Handler
// serves one recipe family; the Registry picks it by the handle's Kind.
package handler

import (
	"errors"
	"fmt"

	"decraft.ai/internal/uncraft/grid"
	"decraft.ai/internal/uncraft/item"
	"decraft.ai/internal/uncraft/recipe"
)

// ErrUnsupported means the recipe cannot be turned into a grid. Callers treat
// it as "cannot uncraft"; every extraction failure wraps it.
var ErrUnsupported = errors.New("handler: unsupported recipe")

type Handler interface {
	CraftingGrid(r recipe.Handle) (grid.Grid, error)
}

// Sensitive handlers also depend on the concrete result stack being uncrafted.
// The input stack must be set right before the CraftingGrid call it is meant for.
type Sensitive interface {
	Handler
	SetInputStack(s item.Stack)
	InputStack() item.Stack
}

// Func adapts a plain function to Handler.
type Func func(r recipe.Handle) (grid.Grid, error)

func (f Func) CraftingGrid(r recipe.Handle) (grid.Grid, error) { return f(r) }

func IsSensitive(h Handler) bool {
	_, ok := h.(Sensitive)
	return ok
}

// Unsupported builds an ErrUnsupported for r with a reason.
func Unsupported(r recipe.Handle, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s: %s", ErrUnsupported, r.Kind(), r.ID(), fmt.Sprintf(format, args...))
}

// Wrap is Unsupported with an underlying cause that stays visible to errors.Is.
func Wrap(r recipe.Handle, cause error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrUnsupported, r.Kind(), r.ID(), cause)
}

// Extract runs h on r following the sensitivity calling convention: input is
// set before and cleared after the call. Panics from h become ErrUnsupported,
// and so does any other error it returns.
func Extract(h Handler, r recipe.Handle, input item.Stack) (g grid.Grid, err error) {
	defer func() {
		if p := recover(); p != nil {
			g = grid.Grid{}
			err = Unsupported(r, "handler panic: %v", p)
		}
	}()
	if s, ok := h.(Sensitive); ok {
		s.SetInputStack(input.Copy())
		defer s.SetInputStack(item.Empty())
	}
	g, err = h.CraftingGrid(r)
	if err != nil {
		if !errors.Is(err, ErrUnsupported) {
			err = fmt.Errorf("%w: %w", ErrUnsupported, err)
		}
		return grid.Grid{}, err
	}
	return g, nil
}
