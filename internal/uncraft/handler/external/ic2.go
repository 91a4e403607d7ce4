package external

import (
	"fmt"

	"github.com/tidwall/gjson"

	"decraft.ai/internal/uncraft/grid"
	"decraft.ai/internal/uncraft/handler"
	"decraft.ai/internal/uncraft/ingredient"
	"decraft.ai/internal/uncraft/recipe"
)

// ShapedIC2 reads {"input":[...], "masks":[m, ...]}. Only masks[0] is used:
// its nine low bits mark the occupied cells, cell 0 being the highest bit,
// and input holds one entry per set bit in cell order.
type ShapedIC2 struct{ p parser }

func (h ShapedIC2) CraftingGrid(r recipe.Handle) (grid.Grid, error) {
	pl, err := payloadOf(r)
	if err != nil {
		return grid.Grid{}, err
	}
	mask := pl.Get("masks.0")
	if mask.Type != gjson.Number {
		return grid.Grid{}, handler.Wrap(r, fmt.Errorf("%w: masks", errMalformed))
	}
	entries, err := h.p.entries(pl.Get("input"), false)
	if err != nil {
		return grid.Grid{}, handler.Wrap(r, err)
	}
	items, err := ingredient.ResolveAll(entries)
	if err != nil {
		return grid.Grid{}, handler.Wrap(r, err)
	}
	g, err := grid.FromMask(uint16(mask.Int()&0x1ff), items)
	if err != nil {
		return grid.Grid{}, handler.Wrap(r, err)
	}
	return g, nil
}

// ShapelessIC2 reads {"input":[...]} of typed inputs, plain stacks or
// inline alternatives.
type ShapelessIC2 struct{ p parser }

func (h ShapelessIC2) CraftingGrid(r recipe.Handle) (grid.Grid, error) {
	pl, err := payloadOf(r)
	if err != nil {
		return grid.Grid{}, err
	}
	return flatGrid(r, h.p, pl.Get("input"))
}

func flatGrid(r recipe.Handle, p parser, input gjson.Result) (grid.Grid, error) {
	entries, err := p.entries(input, true)
	if err != nil {
		return grid.Grid{}, handler.Wrap(r, err)
	}
	items, err := ingredient.ResolveAll(entries)
	if err != nil {
		return grid.Grid{}, handler.Wrap(r, err)
	}
	g, err := grid.FromList(items)
	if err != nil {
		return grid.Grid{}, handler.Wrap(r, err)
	}
	return g, nil
}
