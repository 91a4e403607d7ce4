// Package external adapts recipe families owned by third-party systems.
//
// Each adapter is registered only when its system is loaded, and reads the
// system's private recipe layout through payload.go. A layout it does not
// recognise yields handler.ErrUnsupported for that recipe alone.
package external

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"decraft.ai/internal/uncraft/handler"
	"decraft.ai/internal/uncraft/oredict"
	"decraft.ai/internal/uncraft/recipe"
)

// System ids as the host reports them when loaded.
const (
	SystemMekanism        = "mekanism"
	SystemIC2             = "ic2"
	SystemThermalDynamics = "thermaldynamics"
	SystemTinkers         = "tconstruct"
)

const (
	KindShapedMekanism    recipe.Kind = "mekanism.common.recipe.ShapedMekanismRecipe"
	KindShapelessMekanism recipe.Kind = "mekanism.common.recipe.ShapelessMekanismRecipe"
	KindShapedIC2         recipe.Kind = "ic2.core.AdvRecipe"
	KindShapelessIC2      recipe.Kind = "ic2.core.AdvShapelessRecipe"
	KindCover             recipe.Kind = "cofh.thermaldynamics.util.RecipeCover"
	KindTinkersTable      recipe.Kind = "slimeknights.tconstruct.tools.common.TableRecipe"
)

// Environment tells which external systems are present in the host.
type Environment interface {
	Loaded(system string) bool
}

// Mods is a fixed Environment.
type Mods map[string]struct{}

func NewMods(ids ...string) Mods {
	m := Mods{}
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			m[id] = struct{}{}
		}
	}
	return m
}

func (m Mods) Loaded(system string) bool {
	_, ok := m[strings.ToLower(system)]
	return ok
}

func (m Mods) List() []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Deps are the read-only collaborators adapters consult.
type Deps struct {
	Ores     *oredict.Dictionary
	Mappings MappingTable
}

// Adapter binds one handler to the recipe kind and system it serves.
type Adapter struct {
	System  string
	Kind    recipe.Kind
	Handler handler.Handler
}

// Adapters returns a fresh instance of every known adapter.
func Adapters(deps Deps) []Adapter {
	p := parser{ores: deps.Ores}
	mappings := deps.Mappings
	if mappings == nil {
		mappings = NoMappings{}
	}
	return []Adapter{
		{System: SystemMekanism, Kind: KindShapedMekanism, Handler: ShapedMekanism{p: p}},
		{System: SystemMekanism, Kind: KindShapelessMekanism, Handler: ShapelessMekanism{p: p}},
		{System: SystemIC2, Kind: KindShapedIC2, Handler: ShapedIC2{p: p}},
		{System: SystemIC2, Kind: KindShapelessIC2, Handler: ShapelessIC2{p: p}},
		{System: SystemThermalDynamics, Kind: KindCover, Handler: &Cover{}},
		{System: SystemTinkers, Kind: KindTinkersTable, Handler: &Table{p: p, mappings: mappings}},
	}
}

// Register adds every adapter whose system env reports loaded and returns
// how many were registered.
func Register(reg *handler.Registry, env Environment, deps Deps, logger *zap.Logger) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := 0
	for _, a := range Adapters(deps) {
		system := a.System
		if reg.RegisterOptional(system, func() bool { return env != nil && env.Loaded(system) }, a.Kind, a.Handler) {
			n++
		}
	}
	logger.Info("external recipe adapters registered", zap.Int("count", n))
	return n
}
