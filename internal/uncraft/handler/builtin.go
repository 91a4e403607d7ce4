package handler

import (
	"decraft.ai/internal/uncraft/grid"
	"decraft.ai/internal/uncraft/ingredient"
	"decraft.ai/internal/uncraft/recipe"
)

// Shaped handles built-in positional recipes.
type Shaped struct{}

func (Shaped) CraftingGrid(r recipe.Handle) (grid.Grid, error) {
	sr, ok := r.(recipe.Shaped)
	if !ok {
		return grid.Grid{}, Unsupported(r, "not a shaped recipe (%T)", r)
	}
	return ShapedGrid(sr)
}

// ShapedGrid copies and reshapes a built-in shaped recipe.
func ShapedGrid(sr recipe.Shaped) (grid.Grid, error) {
	if err := checkShape(sr, sr.Width, sr.Height, len(sr.Items)); err != nil {
		return grid.Grid{}, err
	}
	return grid.Reshape(ingredient.CopyAll(sr.Items), sr.Width, sr.Height), nil
}

// Shapeless handles built-in recipes without positions.
type Shapeless struct{}

func (Shapeless) CraftingGrid(r recipe.Handle) (grid.Grid, error) {
	sr, ok := r.(recipe.Shapeless)
	if !ok {
		return grid.Grid{}, Unsupported(r, "not a shapeless recipe (%T)", r)
	}
	g, err := grid.FromList(ingredient.CopyAll(sr.Items))
	if err != nil {
		return grid.Grid{}, Wrap(r, err)
	}
	return g, nil
}

// ShapedOre handles positional recipes with alternative-set slots.
type ShapedOre struct{}

func (ShapedOre) CraftingGrid(r recipe.Handle) (grid.Grid, error) {
	sr, ok := r.(recipe.ShapedOre)
	if !ok {
		return grid.Grid{}, Unsupported(r, "not a shaped ore recipe (%T)", r)
	}
	return ShapedOreGrid(sr)
}

// ShapedOreGrid resolves every slot and reshapes.
func ShapedOreGrid(sr recipe.ShapedOre) (grid.Grid, error) {
	return ShapedOreGridFor(sr, sr)
}

// ShapedOreGridFor is ShapedOreGrid for adapters whose recipes are shaped-ore
// underneath; failures are reported against r.
func ShapedOreGridFor(r recipe.Handle, sr recipe.ShapedOre) (grid.Grid, error) {
	if err := checkShape(r, sr.Width, sr.Height, len(sr.Inputs)); err != nil {
		return grid.Grid{}, err
	}
	items, err := ingredient.ResolveAll(sr.Inputs)
	if err != nil {
		return grid.Grid{}, Wrap(r, err)
	}
	return grid.Reshape(items, sr.Width, sr.Height), nil
}

// ShapelessOre handles unpositioned recipes with alternative-set slots.
type ShapelessOre struct{}

func (ShapelessOre) CraftingGrid(r recipe.Handle) (grid.Grid, error) {
	sr, ok := r.(recipe.ShapelessOre)
	if !ok {
		return grid.Grid{}, Unsupported(r, "not a shapeless ore recipe (%T)", r)
	}
	return ShapelessOreGrid(sr)
}

func ShapelessOreGrid(sr recipe.ShapelessOre) (grid.Grid, error) {
	items, err := ingredient.ResolveAll(sr.Inputs)
	if err != nil {
		return grid.Grid{}, Wrap(sr, err)
	}
	g, err := grid.FromList(items)
	if err != nil {
		return grid.Grid{}, Wrap(sr, err)
	}
	return g, nil
}

func checkShape(r recipe.Handle, w, h, n int) error {
	if w < 1 || w > grid.Width || h < 1 || h > grid.Width {
		return Unsupported(r, "bad dimensions %dx%d", w, h)
	}
	if n != w*h {
		return Unsupported(r, "%d ingredients for %dx%d", n, w, h)
	}
	return nil
}
