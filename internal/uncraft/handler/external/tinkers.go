package external

import (
	"fmt"

	"decraft.ai/internal/uncraft/grid"
	"decraft.ai/internal/uncraft/handler"
	"decraft.ai/internal/uncraft/item"
	"decraft.ai/internal/uncraft/recipe"
)

// Mapping overrides grid cells for one crafted item.
type Mapping struct {
	ReplaceSlots []int `json:"replace_slots,omitempty"`
}

// MappingTable is the side-loaded item remapping table, keyed by crafted stack.
type MappingTable interface {
	Lookup(s item.Stack) (Mapping, bool)
}

type NoMappings struct{}

func (NoMappings) Lookup(item.Stack) (Mapping, bool) { return Mapping{}, false }

// Table serves Tinkers' Construct tables (part builder, stencil table, tool
// forge, tool station). The recipe is shaped-ore underneath; the block a table
// is built from sits in the crafted stack's "textureBlock" tag and replaces
// the cells its mapping lists. Without an input stack the base grid is returned.
type Table struct {
	p        parser
	mappings MappingTable
	input    item.Stack
}

func (t *Table) SetInputStack(s item.Stack) { t.input = s }
func (t *Table) InputStack() item.Stack     { return t.input }

func (t *Table) CraftingGrid(r recipe.Handle) (grid.Grid, error) {
	g, err := t.baseGrid(r)
	if err != nil {
		return grid.Grid{}, err
	}
	if t.input.IsEmpty() {
		return g, nil
	}
	m, ok := t.mappings.Lookup(t.input)
	if !ok || len(m.ReplaceSlots) == 0 {
		return g, nil
	}
	raw, ok := t.input.Tag.Compound("textureBlock")
	if !ok {
		return grid.Grid{}, handler.Unsupported(r, "table stack has no textureBlock tag")
	}
	texture, ok := item.FromTag(raw)
	if !ok {
		return grid.Grid{}, handler.Unsupported(r, "textureBlock is not a stack")
	}
	for _, slot := range m.ReplaceSlots {
		if slot < 0 || slot >= grid.Size {
			continue
		}
		g[slot] = texture.Normalized()
	}
	return g, nil
}

func (t *Table) baseGrid(r recipe.Handle) (grid.Grid, error) {
	pl, err := payloadOf(r)
	if err != nil {
		return grid.Grid{}, err
	}
	entries, err := t.p.entries(pl.Get("input"), false)
	if err != nil {
		return grid.Grid{}, handler.Wrap(r, err)
	}
	w, h, ok, err := dims(pl)
	if err != nil || !ok {
		return grid.Grid{}, handler.Wrap(r, fmt.Errorf("%w: table recipe needs width/height", errMalformed))
	}
	f := r.(recipe.Foreign)
	return handler.ShapedOreGridFor(r, recipe.ShapedOre{Base: f.Base, Width: w, Height: h, Inputs: entries})
}
