package handler

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"decraft.ai/internal/uncraft/grid"
	"decraft.ai/internal/uncraft/item"
	"decraft.ai/internal/uncraft/recipe"
)

// Probe reports whether the external system an adapter reads from is present.
type Probe func() bool

// Registry maps recipe kinds to handlers. It is filled once during startup
// and only read afterwards.
type Registry struct {
	log *zap.Logger

	byKind map[recipe.Kind]Handler
	order  []recipe.Kind

	// Sensitive handlers keep per-call state; one extraction at a time each.
	locks map[recipe.Kind]*sync.Mutex
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		log:    logger,
		byKind: map[recipe.Kind]Handler{},
		locks:  map[recipe.Kind]*sync.Mutex{},
	}
}

// NewDefaultRegistry returns a registry with the built-in families.
func NewDefaultRegistry(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(recipe.KindShaped, Shaped{})
	r.Register(recipe.KindShapeless, Shapeless{})
	r.Register(recipe.KindShapedOre, ShapedOre{})
	r.Register(recipe.KindShapelessOre, ShapelessOre{})
	return r
}

// Register binds h to kind. The first registration for a kind wins; later
// ones are logged and dropped.
func (r *Registry) Register(kind recipe.Kind, h Handler) bool {
	if kind == "" || h == nil {
		return false
	}
	if prev, ok := r.byKind[kind]; ok {
		r.log.Warn("duplicate recipe handler ignored",
			zap.String("kind", string(kind)),
			zap.String("kept", typeName(prev)),
			zap.String("dropped", typeName(h)))
		return false
	}
	r.byKind[kind] = h
	r.order = append(r.order, kind)
	if IsSensitive(h) {
		r.locks[kind] = &sync.Mutex{}
	}
	return true
}

// RegisterOptional registers h only when present reports the external system
// loaded. Absence is a normal condition, not an error.
func (r *Registry) RegisterOptional(system string, present Probe, kind recipe.Kind, h Handler) bool {
	if present == nil || !present() {
		r.log.Debug("recipe handler skipped; system not loaded",
			zap.String("system", system),
			zap.String("kind", string(kind)))
		return false
	}
	return r.Register(kind, h)
}

func (r *Registry) Lookup(rec recipe.Handle) (Handler, bool) {
	if rec == nil {
		return nil, false
	}
	h, ok := r.byKind[rec.Kind()]
	return h, ok
}

// Grid looks up the handler for rec and extracts with input as the result
// stack for sensitive handlers. A recipe with no handler is unsupported.
func (r *Registry) Grid(rec recipe.Handle, input item.Stack) (grid.Grid, error) {
	h, ok := r.Lookup(rec)
	if !ok {
		if rec == nil {
			return grid.Grid{}, ErrUnsupported
		}
		return grid.Grid{}, Unsupported(rec, "no handler registered")
	}
	if mu := r.locks[rec.Kind()]; mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	g, err := Extract(h, rec, input)
	if err != nil {
		r.log.Debug("recipe extraction failed",
			zap.String("kind", string(rec.Kind())),
			zap.String("recipe", rec.ID()),
			zap.Error(err))
	}
	return g, err
}

// Kinds lists registered kinds in registration order.
func (r *Registry) Kinds() []recipe.Kind {
	out := make([]recipe.Kind, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int { return len(r.byKind) }

// SortedKinds is Kinds in lexical order, for stable listings.
func (r *Registry) SortedKinds() []string {
	out := make([]string, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

func typeName(h Handler) string { return fmt.Sprintf("%T", h) }
