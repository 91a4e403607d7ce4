// Package service answers "what grid does this stack uncraft into" on top of
// the recipe catalog and the handler registry.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"decraft.ai/internal/sim/tuning"
	"decraft.ai/internal/uncraft/grid"
	"decraft.ai/internal/uncraft/handler"
	"decraft.ai/internal/uncraft/item"
	"decraft.ai/internal/uncraft/recipe"
)

var (
	ErrEmptyInput = errors.New("service: empty input stack")
	ErrExcluded   = errors.New("service: item excluded from uncrafting")
	ErrNoRecipe   = errors.New("service: no recipe produces item")
)

// Recipes indexes recipe handles by output item id.
type Recipes interface {
	ByOutput(itemID string) []recipe.Handle
}

// Resolution is one extraction attempt, as handed to sinks.
type Resolution struct {
	At       time.Time  `json:"at"`
	RecipeID string     `json:"recipe_id"`
	Kind     string     `json:"kind"`
	Output   item.Stack `json:"output"`
	Input    item.Stack `json:"input,omitempty"`
	Grid     *grid.Grid `json:"grid,omitempty"`
	Error    string     `json:"error,omitempty"`
	Cached   bool       `json:"cached,omitempty"`
}

func (r Resolution) OK() bool { return r.Error == "" }

// Sink receives resolutions. Implementations must not block for long.
type Sink interface {
	RecordResolution(Resolution)
}

type SinkFunc func(Resolution)

func (f SinkFunc) RecordResolution(r Resolution) { f(r) }

// Result is a successful uncraft.
type Result struct {
	Recipe recipe.Handle
	Grid   grid.Grid
	Cached bool
}

type Uncrafter struct {
	reg     *handler.Registry
	recipes Recipes
	cfg     *tuning.Store
	log     *zap.Logger
	sinks   []Sink

	cache *cache.Cache
	now   func() time.Time
}

type Option func(*Uncrafter)

func WithSinks(s ...Sink) Option {
	return func(u *Uncrafter) { u.sinks = append(u.sinks, s...) }
}

func WithClock(now func() time.Time) Option {
	return func(u *Uncrafter) { u.now = now }
}

func New(reg *handler.Registry, recipes Recipes, cfg *tuning.Store, logger *zap.Logger, opts ...Option) *Uncrafter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = tuning.NewStore(tuning.Defaults())
	}
	ttl := time.Duration(cfg.Get().CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	u := &Uncrafter{
		reg:     reg,
		recipes: recipes,
		cfg:     cfg,
		log:     logger.Named("uncraft"),
		cache:   cache.New(ttl, 2*ttl),
		now:     time.Now,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Uncraft finds the first recipe producing input that yields a grid. Recipes
// are tried in catalog order; unsupported ones are skipped.
func (u *Uncrafter) Uncraft(ctx context.Context, input item.Stack) (Result, error) {
	if input.IsEmpty() {
		return Result{}, ErrEmptyInput
	}
	if u.cfg.Get().Excluded(input) {
		u.log.Info("uncraft refused; item excluded", zap.String("item", input.Key()))
		return Result{}, fmt.Errorf("%w: %s", ErrExcluded, input.Key())
	}

	var lastErr error
	tried := 0
	for _, h := range u.recipes.ByOutput(input.ID) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if !producesItem(h.Output(), input) {
			continue
		}
		tried++
		g, cached, err := u.resolve(h, input)
		if err != nil {
			lastErr = err
			continue
		}
		return Result{Recipe: h, Grid: g, Cached: cached}, nil
	}
	if tried == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNoRecipe, input.Key())
	}
	u.log.Info("uncraft unsupported",
		zap.String("item", input.Key()),
		zap.Int("recipes", tried),
		zap.Error(lastErr))
	return Result{}, lastErr
}

// Resolve extracts the grid of one recipe. Scans use it with an empty input.
func (u *Uncrafter) Resolve(ctx context.Context, h recipe.Handle, input item.Stack) (grid.Grid, error) {
	if err := ctx.Err(); err != nil {
		return grid.Grid{}, err
	}
	g, _, err := u.resolve(h, input)
	return g, err
}

// Scan resolves every handle with an empty input and returns the number that
// produced a grid.
func (u *Uncrafter) Scan(ctx context.Context, handles []recipe.Handle) (int, error) {
	ok := 0
	for _, h := range handles {
		if _, err := u.Resolve(ctx, h, item.Empty()); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ok, ctxErr
			}
			continue
		}
		ok++
	}
	return ok, nil
}

func (u *Uncrafter) resolve(h recipe.Handle, input item.Stack) (grid.Grid, bool, error) {
	rh, found := u.reg.Lookup(h)
	cacheable := found && !handler.IsSensitive(rh)
	if cacheable {
		if v, ok := u.cache.Get(h.ID()); ok {
			g := copyGrid(v.(grid.Grid))
			u.record(h, input, &g, nil, true)
			return g, true, nil
		}
	}

	g, err := u.reg.Grid(h, input)
	if err != nil {
		u.record(h, input, nil, err, false)
		return grid.Grid{}, false, err
	}
	if cacheable {
		u.cache.SetDefault(h.ID(), copyGrid(g))
	}
	u.record(h, input, &g, nil, false)
	return g, false, nil
}

func (u *Uncrafter) record(h recipe.Handle, input item.Stack, g *grid.Grid, err error, cached bool) {
	if len(u.sinks) == 0 {
		return
	}
	r := Resolution{
		At:       u.now().UTC(),
		RecipeID: h.ID(),
		Kind:     string(h.Kind()),
		Output:   h.Output(),
		Input:    input,
		Cached:   cached,
	}
	if g != nil {
		cp := copyGrid(*g)
		r.Grid = &cp
	}
	if err != nil {
		r.Error = err.Error()
	}
	for _, s := range u.sinks {
		s.RecordResolution(r)
	}
}

// Purge drops cached grids, e.g. after a catalog or config reload.
func (u *Uncrafter) Purge() { u.cache.Flush() }

func (u *Uncrafter) CachedCount() int { return u.cache.ItemCount() }

func producesItem(out, input item.Stack) bool {
	if out.ID != input.ID {
		return false
	}
	return out.Meta == item.WildcardMeta || out.Normalized().Meta == input.Normalized().Meta
}

func copyGrid(g grid.Grid) grid.Grid {
	var out grid.Grid
	for i := range g {
		out[i] = g[i].Copy()
	}
	return out
}
