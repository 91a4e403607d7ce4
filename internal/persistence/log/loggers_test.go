package log

import (
	"encoding/json"
	"testing"
	"time"

	"decraft.ai/internal/uncraft/grid"
	"decraft.ai/internal/uncraft/item"
	"decraft.ai/internal/uncraft/service"
)

func TestJSONLZstdWriter_RotatesByHour(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "x")
	now := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if err := w.Write(map[string]int{"i": i}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	now = now.Add(2 * time.Minute)
	if err := w.Write(map[string]int{"i": 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := Files(dir, "x")
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %v", files)
	}
	var got []int
	for _, p := range files {
		err := ReadJSONL(p, func(raw json.RawMessage) error {
			var v struct{ I int }
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			got = append(got, v.I)
			return nil
		})
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
	}
	if len(got) != 4 || got[0] != 0 || got[3] != 3 {
		t.Fatalf("lines: %v", got)
	}
	if w.Lines() != 4 {
		t.Fatalf("Lines() = %d", w.Lines())
	}
}

func TestJSONLZstdWriter_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		w := NewJSONLZstdWriter(dir, "x")
		w.now = func() time.Time { return at }
		if err := w.Write(i); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	files, _ := Files(dir, "x")
	if len(files) != 1 {
		t.Fatalf("files: %v", files)
	}
	n := 0
	if err := ReadJSONL(files[0], func(json.RawMessage) error { n++; return nil }); err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 lines across frames, got %d", n)
	}
}

func TestResolutionLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewResolutionLogger(dir, nil)

	g := grid.Grid{item.New("minecraft:coal", 1, 0)}
	l.RecordResolution(service.Resolution{
		At:       time.Now().UTC(),
		RecipeID: "torch",
		Kind:     "minecraft:crafting_shaped",
		Output:   item.New("minecraft:torch", 4, 0),
		Grid:     &g,
	})
	l.RecordResolution(service.Resolution{
		At:       time.Now().UTC(),
		RecipeID: "cover",
		Kind:     "cofh.thermaldynamics.util.RecipeCover",
		Output:   item.New("thermaldynamics:cover", 6, 0),
		Error:    "handler: unsupported recipe",
	})
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := ReadResolutions(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 resolutions, got %d", len(got))
	}
	if !got[0].OK() || got[0].Grid == nil || got[0].Grid[0].ID != "minecraft:coal" {
		t.Fatalf("first: %+v", got[0])
	}
	if got[1].OK() || got[1].Grid != nil {
		t.Fatalf("second: %+v", got[1])
	}
}
