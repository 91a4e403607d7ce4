package external

import (
	"decraft.ai/internal/uncraft/grid"
	"decraft.ai/internal/uncraft/handler"
	"decraft.ai/internal/uncraft/ingredient"
	"decraft.ai/internal/uncraft/recipe"
)

// ShapedMekanism reads {"input":[9 slots], "width", "height"}. Without
// dimensions the input is already laid out as the full grid.
type ShapedMekanism struct{ p parser }

func (h ShapedMekanism) CraftingGrid(r recipe.Handle) (grid.Grid, error) {
	pl, err := payloadOf(r)
	if err != nil {
		return grid.Grid{}, err
	}
	entries, err := h.p.entries(pl.Get("input"), false)
	if err != nil {
		return grid.Grid{}, handler.Wrap(r, err)
	}
	items, err := ingredient.ResolveAll(entries)
	if err != nil {
		return grid.Grid{}, handler.Wrap(r, err)
	}
	w, hh, ok, err := dims(pl)
	if err != nil {
		return grid.Grid{}, handler.Wrap(r, err)
	}
	if ok {
		if w < 1 || w > grid.Width || hh < 1 || hh > grid.Width || len(items) != w*hh {
			return grid.Grid{}, handler.Unsupported(r, "%d items for %dx%d", len(items), w, hh)
		}
		return grid.Reshape(items, w, hh), nil
	}
	g, err := grid.FromList(items)
	if err != nil {
		return grid.Grid{}, handler.Wrap(r, err)
	}
	return g, nil
}

// ShapelessMekanism reads {"input":[...]}; null entries are dropped.
type ShapelessMekanism struct{ p parser }

func (h ShapelessMekanism) CraftingGrid(r recipe.Handle) (grid.Grid, error) {
	pl, err := payloadOf(r)
	if err != nil {
		return grid.Grid{}, err
	}
	return flatGrid(r, h.p, pl.Get("input"))
}
