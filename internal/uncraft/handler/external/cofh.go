package external

import (
	"decraft.ai/internal/uncraft/grid"
	"decraft.ai/internal/uncraft/handler"
	"decraft.ai/internal/uncraft/item"
	"decraft.ai/internal/uncraft/recipe"
)

// CoverBase is the plain cover item every Thermal Dynamics cover is made from.
const CoverBase = "thermaldynamics:thermaldynamics_48"

// Cover serves the single generic cover recipe. The block a cover is made of
// lives in the crafted stack's tag ("Block", "Meta"), so the input stack is required.
type Cover struct {
	input item.Stack
}

func (c *Cover) SetInputStack(s item.Stack) { c.input = s }
func (c *Cover) InputStack() item.Stack     { return c.input }

func (c *Cover) CraftingGrid(r recipe.Handle) (grid.Grid, error) {
	if c.input.IsEmpty() {
		return grid.Grid{}, handler.Unsupported(r, "cover needs the crafted stack")
	}
	block, ok := c.input.Tag.String("Block")
	if !ok || block == "" {
		return grid.Grid{}, handler.Unsupported(r, "cover stack has no Block tag")
	}
	meta, _ := c.input.Tag.Int("Meta")

	var g grid.Grid
	g[0] = item.New(CoverBase, 1, 0)
	g[1] = item.New(block, 1, meta).Normalized()
	return g, nil
}
