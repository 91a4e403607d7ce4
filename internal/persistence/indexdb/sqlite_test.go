package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"decraft.ai/internal/sim/catalogs"
	"decraft.ai/internal/sim/tuning"
	"decraft.ai/internal/uncraft/grid"
	"decraft.ai/internal/uncraft/item"
	"decraft.ai/internal/uncraft/service"
)

func TestSQLiteIndex_RecordResolution(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index", "decraft.sqlite")
	idx, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	at := time.Date(2026, 4, 5, 6, 7, 8, 0, time.UTC)
	g := grid.Grid{
		item.New("minecraft:coal", 1, 0),
		{},
		{},
		item.New("minecraft:stick", 1, 0).WithTag(item.Tag{"k": "v"}),
	}
	idx.RecordResolution(service.Resolution{At: at, RecipeID: "torch", Kind: "minecraft:crafting_shaped", Output: item.New("minecraft:torch", 4, 0), Grid: &g})
	idx.RecordResolution(service.Resolution{At: at, RecipeID: "torch2", Kind: "forge:ore_shaped", Output: item.New("minecraft:torch", 2, 0), Error: "handler: unsupported recipe"})
	idx.RecordResolution(service.Resolution{At: at, RecipeID: "cover", Output: item.New("thermaldynamics:cover", 1, 0), Input: item.New("thermaldynamics:cover", 1, 0), Grid: &g})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	st := idx.Stats()
	if st.Written != 2 || st.Skipped != 1 || st.Dropped != 0 {
		t.Fatalf("stats: %+v", st)
	}
	// Records after Close are ignored.
	idx.RecordResolution(service.Resolution{RecipeID: "late"})

	idx, err = OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	ctx := context.Background()

	rows, err := idx.RecipesFor(ctx, "minecraft:torch")
	if err != nil {
		t.Fatalf("recipes: %v", err)
	}
	if len(rows) != 2 || rows[0].RecipeID != "torch" || !rows[0].OK || rows[1].OK || rows[1].Error == "" {
		t.Fatalf("rows: %+v", rows)
	}
	if rows[0].Output.Count != 4 || rows[0].At != at.Format(time.RFC3339Nano) {
		t.Fatalf("row 0: %+v", rows[0])
	}

	got, ok, err := idx.Grid(ctx, "torch")
	if err != nil || !ok {
		t.Fatalf("grid: ok=%v err=%v", ok, err)
	}
	if got[0].ID != "minecraft:coal" || !got[1].IsEmpty() || got[3].Tag["k"] != "v" {
		t.Fatalf("grid: %v", got)
	}
	if _, ok, _ := idx.Grid(ctx, "torch2"); ok {
		t.Fatalf("failed recipe should have no grid")
	}
	if _, ok, _ := idx.Grid(ctx, "cover"); ok {
		t.Fatalf("input-specific resolution should not be indexed")
	}

	counts, err := idx.KindCounts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if kinds := SortedKinds(counts); len(kinds) != 2 || kinds[0] != "forge:ore_shaped" {
		t.Fatalf("kinds: %v", kinds)
	}
	if c := counts["minecraft:crafting_shaped"]; c != [2]int{1, 0} {
		t.Fatalf("shaped counts: %v", c)
	}
}

func TestSQLiteIndex_ReplacesGridOnRerun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "decraft.sqlite")
	idx, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	first := grid.Grid{item.New("a:x", 1, 0), item.New("a:y", 1, 0)}
	second := grid.Grid{item.New("a:z", 1, 0)}
	idx.RecordResolution(service.Resolution{RecipeID: "r", Kind: "k", Output: item.New("a:out", 1, 0), Grid: &first})
	idx.RecordResolution(service.Resolution{RecipeID: "r", Kind: "k", Output: item.New("a:out", 1, 0), Grid: &second})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx, err = OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	got, ok, err := idx.Grid(context.Background(), "r")
	if err != nil || !ok {
		t.Fatalf("grid: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(second, got); diff != "" {
		t.Fatalf("grid not replaced (-want +got):\n%s", diff)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan service.Resolution, 1)}
	s.RecordResolution(service.Resolution{RecipeID: "a"})
	s.RecordResolution(service.Resolution{RecipeID: "b"})
	s.RecordResolution(service.Resolution{RecipeID: "c", Input: item.New("x:y", 1, 0)})

	st := s.Stats()
	if st.Dropped != 1 || st.Skipped != 1 {
		t.Fatalf("stats: %+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	configDir := filepath.Join("..", "..", "..", "configs")
	cats, err := catalogs.Load(configDir)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	tune := tuning.Defaults()

	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "decraft.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	if err := idx.UpsertCatalogs(configDir, cats, tune); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Idempotent.
	if err := idx.UpsertCatalogs(configDir, cats, tune); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	got, err := idx.CatalogDigests(context.Background())
	if err != nil {
		t.Fatalf("digests: %v", err)
	}
	want := map[string]string{
		"items_defs":    cats.Items.DefsDigest,
		"items_palette": cats.Items.PaletteDigest,
		"recipes":       cats.Recipes.Digest,
		"oredict":       cats.Ores.Digest,
		"item_mappings": cats.Mappings.Digest,
		"tuning":        tune.Digest(),
	}
	if len(got) != len(want) {
		t.Fatalf("catalog rows: got %v", got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s digest: got %q want %q", k, got[k], v)
		}
	}
}
