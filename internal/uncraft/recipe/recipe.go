// Package recipe holds the recipe handles the uncrafting core reads. The core
// never mutates a handle.
package recipe

import (
	"decraft.ai/internal/uncraft/ingredient"
	"decraft.ai/internal/uncraft/item"
)

// Kind is the runtime discriminator handlers are registered under. Third-party
// families use the owning system's recipe class name.
type Kind string

const (
	KindShaped       Kind = "minecraft:crafting_shaped"
	KindShapeless    Kind = "minecraft:crafting_shapeless"
	KindShapedOre    Kind = "forge:ore_shaped"
	KindShapelessOre Kind = "forge:ore_shapeless"
)

type Handle interface {
	Kind() Kind
	ID() string
	Output() item.Stack
}

// Base carries the fields every handle has.
type Base struct {
	RecipeID string
	Result   item.Stack
}

func (b Base) ID() string         { return b.RecipeID }
func (b Base) Output() item.Stack { return b.Result }

// Shaped is a built-in positional recipe; Items has Width*Height entries, row-major.
type Shaped struct {
	Base
	Width  int
	Height int
	Items  []item.Stack
}

func (Shaped) Kind() Kind { return KindShaped }

type Shapeless struct {
	Base
	Items []item.Stack
}

func (Shapeless) Kind() Kind { return KindShapeless }

// ShapedOre is a positional recipe whose slots may be alternative sets.
type ShapedOre struct {
	Base
	Width  int
	Height int
	Inputs []ingredient.Entry
}

func (ShapedOre) Kind() Kind { return KindShapedOre }

type ShapelessOre struct {
	Base
	Inputs []ingredient.Entry
}

func (ShapelessOre) Kind() Kind { return KindShapelessOre }

// Foreign is a recipe owned by a third-party system. Payload is that system's
// own representation as JSON; only the matching adapter knows its layout.
type Foreign struct {
	Base
	Family  Kind
	Payload []byte
}

func (f Foreign) Kind() Kind { return f.Family }
