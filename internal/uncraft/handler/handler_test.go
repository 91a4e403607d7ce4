package handler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"decraft.ai/internal/uncraft/grid"
	"decraft.ai/internal/uncraft/ingredient"
	"decraft.ai/internal/uncraft/item"
	"decraft.ai/internal/uncraft/recipe"
)

var (
	stick  = item.New("minecraft:stick", 1, 0)
	stone  = item.New("minecraft:stone", 1, 0)
	coal   = item.New("minecraft:coal", 1, 0)
	planks = item.New("minecraft:planks", 1, item.WildcardMeta)
	empty  = item.Empty()
)

func base(id string) recipe.Base {
	return recipe.Base{RecipeID: id, Result: item.New("minecraft:test_result", 1, 0)}
}

func TestShaped_TwoByTwo(t *testing.T) {
	reg := NewDefaultRegistry(nil)
	r := recipe.Shaped{Base: base("ladder"), Width: 2, Height: 2, Items: []item.Stack{stick, stick, stick, stone}}

	g, err := reg.Grid(r, item.Empty())
	require.NoError(t, err)
	assert.Equal(t, grid.Grid{stick, stick, empty, stick, stone, empty, empty, empty, empty}, g)
}

func TestShapeless_Coal(t *testing.T) {
	reg := NewDefaultRegistry(nil)
	r := recipe.Shapeless{Base: base("coal_block_part"), Items: []item.Stack{coal, coal, coal}}

	g, err := reg.Grid(r, item.Empty())
	require.NoError(t, err)
	assert.Equal(t, grid.Grid{coal, coal, coal, empty, empty, empty, empty, empty, empty}, g)
}

func TestShaped_BadDimensionsUnsupported(t *testing.T) {
	reg := NewDefaultRegistry(nil)
	r := recipe.Shaped{Base: base("broken"), Width: 4, Height: 1, Items: []item.Stack{stick, stick, stick, stick}}

	_, err := reg.Grid(r, item.Empty())
	require.ErrorIs(t, err, ErrUnsupported)

	r = recipe.Shaped{Base: base("short"), Width: 2, Height: 2, Items: []item.Stack{stick}}
	_, err = reg.Grid(r, item.Empty())
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestWildcardMetaNormalized_AllBuiltins(t *testing.T) {
	reg := NewDefaultRegistry(nil)
	recipes := []recipe.Handle{
		recipe.Shaped{Base: base("s"), Width: 1, Height: 1, Items: []item.Stack{planks}},
		recipe.Shapeless{Base: base("sl"), Items: []item.Stack{planks}},
		recipe.ShapedOre{Base: base("so"), Width: 1, Height: 1, Inputs: []ingredient.Entry{
			ingredient.OneOf(ingredient.NewOptions("plankWood", planks)),
		}},
		recipe.ShapelessOre{Base: base("slo"), Inputs: []ingredient.Entry{ingredient.Of(planks)}},
	}
	for _, r := range recipes {
		g, err := reg.Grid(r, item.Empty())
		require.NoError(t, err, r.Kind())
		assert.Equal(t, "minecraft:planks", g[0].ID, r.Kind())
		assert.Equal(t, 0, g[0].Meta, r.Kind())
	}
}

func TestShapedOre_EmptyAlternativeFailsWholeRecipe(t *testing.T) {
	reg := NewDefaultRegistry(nil)
	r := recipe.ShapedOre{Base: base("uranium_block"), Width: 3, Height: 1, Inputs: []ingredient.Entry{
		ingredient.Of(stone),
		ingredient.OneOf(ingredient.NewOptions("ingotUranium")),
		ingredient.Of(stone),
	}}

	g, err := reg.Grid(r, item.Empty())
	require.ErrorIs(t, err, ErrUnsupported)
	require.ErrorIs(t, err, ingredient.ErrEmptyAlternativeSet)
	assert.Equal(t, grid.Grid{}, g, "no partial grid")
}

func TestShapeless_OverflowKeepsCause(t *testing.T) {
	reg := NewDefaultRegistry(nil)
	items := make([]item.Stack, 10)
	for i := range items {
		items[i] = coal
	}
	_, err := reg.Grid(recipe.Shapeless{Base: base("too_many"), Items: items}, empty)
	require.ErrorIs(t, err, ErrUnsupported)
	require.ErrorIs(t, err, grid.ErrTooManyIngredients)
}

func TestShapedOreGridFor_ReportsOuterKind(t *testing.T) {
	outer := recipe.Foreign{Base: base("table"), Family: "some.mod.TableRecipe"}
	sr := recipe.ShapedOre{Base: outer.Base, Width: 1, Height: 1, Inputs: []ingredient.Entry{
		ingredient.OneOf(ingredient.NewOptions("plankNone")),
	}}
	_, err := ShapedOreGridFor(outer, sr)
	require.ErrorIs(t, err, ingredient.ErrEmptyAlternativeSet)
	assert.Contains(t, err.Error(), "some.mod.TableRecipe table")

	_, err = ShapedOreGridFor(outer, recipe.ShapedOre{Base: outer.Base, Width: 4, Height: 1})
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "some.mod.TableRecipe")
}

func TestShapelessOre_FirstCandidate(t *testing.T) {
	reg := NewDefaultRegistry(nil)
	a := item.New("mod:a", 1, 0)
	b := item.New("mod:b", 1, 0)
	r := recipe.ShapelessOre{Base: base("alt"), Inputs: []ingredient.Entry{
		ingredient.OneOf(ingredient.NewOptions("gemAny", a, b)),
		ingredient.Of(coal),
	}}
	for i := 0; i < 3; i++ {
		g, err := reg.Grid(r, item.Empty())
		require.NoError(t, err)
		assert.Equal(t, grid.Grid{a, coal}, g)
	}
}

func TestLookup_UnknownKind(t *testing.T) {
	reg := NewDefaultRegistry(nil)
	r := recipe.Foreign{Base: base("x"), Family: "some.mod.Recipe"}

	_, ok := reg.Lookup(r)
	assert.False(t, ok)
	_, err := reg.Grid(r, item.Empty())
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestRegisterOptional_AbsentSystemIsSilent(t *testing.T) {
	reg := NewDefaultRegistry(nil)
	ok := reg.RegisterOptional("mekanism", func() bool { return false }, "mekanism.Recipe", Shapeless{})
	assert.False(t, ok)
	assert.Equal(t, 4, reg.Len())

	ok = reg.RegisterOptional("nil-probe", nil, "other.Recipe", Shapeless{})
	assert.False(t, ok)

	r := recipe.Shapeless{Base: base("still_works"), Items: []item.Stack{coal}}
	_, err := reg.Grid(r, item.Empty())
	require.NoError(t, err)
}

func TestRegister_FirstWins(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	reg := NewRegistry(zap.New(core))

	first := Func(func(r recipe.Handle) (grid.Grid, error) { return grid.Grid{stone}, nil })
	second := Func(func(r recipe.Handle) (grid.Grid, error) { return grid.Grid{coal}, nil })
	require.True(t, reg.Register("family", first))
	require.False(t, reg.Register("family", second))
	assert.Equal(t, 1, logs.FilterMessage("duplicate recipe handler ignored").Len())

	g, err := reg.Grid(recipe.Foreign{Base: base("f"), Family: "family"}, item.Empty())
	require.NoError(t, err)
	assert.Equal(t, stone, g[0])
}

type panicky struct{}

func (panicky) CraftingGrid(recipe.Handle) (grid.Grid, error) {
	var tag item.Tag
	_ = tag["missing"].(string)
	return grid.Grid{}, nil
}

func TestExtract_PanicBecomesUnsupported(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register("broken", panicky{})
	_, err := reg.Grid(recipe.Foreign{Base: base("b"), Family: "broken"}, item.Empty())
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestExtract_WrapsPlainErrors(t *testing.T) {
	boom := errors.New("boom")
	h := Func(func(recipe.Handle) (grid.Grid, error) { return grid.Grid{stone}, boom })
	g, err := Extract(h, recipe.Foreign{Base: base("e"), Family: "e"}, item.Empty())
	require.ErrorIs(t, err, ErrUnsupported)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, grid.Grid{}, g)
}

type recorder struct {
	input item.Stack
	seen  item.Stack
}

func (r *recorder) SetInputStack(s item.Stack) { r.input = s }
func (r *recorder) InputStack() item.Stack     { return r.input }
func (r *recorder) CraftingGrid(recipe.Handle) (grid.Grid, error) {
	r.seen = r.input
	if r.input.IsEmpty() {
		return grid.Grid{}, ErrUnsupported
	}
	return grid.Grid{r.input}, nil
}

func TestExtract_SensitiveInputIsCallScoped(t *testing.T) {
	h := &recorder{}
	reg := NewRegistry(nil)
	reg.Register("cover", h)
	rec := recipe.Foreign{Base: base("cover"), Family: "cover"}
	in := item.New("thermaldynamics:cover", 1, 0)

	g, err := reg.Grid(rec, in)
	require.NoError(t, err)
	assert.Equal(t, in, g[0])
	assert.Equal(t, in, h.seen)
	assert.True(t, h.InputStack().IsEmpty(), "input must be cleared after the call")

	_, err = reg.Grid(rec, item.Empty())
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestKinds_RegistrationOrder(t *testing.T) {
	reg := NewDefaultRegistry(nil)
	assert.Equal(t, []recipe.Kind{
		recipe.KindShaped, recipe.KindShapeless, recipe.KindShapedOre, recipe.KindShapelessOre,
	}, reg.Kinds())
	assert.True(t, IsSensitive(&recorder{}))
	assert.False(t, IsSensitive(Shaped{}))
}
