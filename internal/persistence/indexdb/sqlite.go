package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"decraft.ai/internal/sim/catalogs"
	"decraft.ai/internal/sim/tuning"
	"decraft.ai/internal/uncraft/grid"
	"decraft.ai/internal/uncraft/item"
	"decraft.ai/internal/uncraft/service"
)

const schemaVersion = "1"

// SQLiteIndex is a queryable read model of extraction results. Writes go
// through a buffered queue and a single writer goroutine; when the queue is
// full, resolutions are dropped and counted.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan service.Resolution
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropped  atomic.Uint64
	skipped  atomic.Uint64
	written  atomic.Uint64
	failures atomic.Uint64
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	Written       uint64
	Dropped       uint64
	Skipped       uint64
	Failures      uint64
}

// RecipeRow is one indexed recipe and the outcome of its last extraction.
type RecipeRow struct {
	RecipeID string
	Kind     string
	Output   item.Stack
	OK       bool
	Error    string
	At       string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 16384)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan service.Resolution, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS recipes (
			recipe_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			output_id TEXT NOT NULL,
			output_meta INTEGER NOT NULL,
			output_count INTEGER NOT NULL,
			ok INTEGER NOT NULL,
			error TEXT,
			resolved_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_recipes_output ON recipes(output_id, output_meta);`,
		`CREATE INDEX IF NOT EXISTS idx_recipes_kind ON recipes(kind, ok);`,
		`CREATE TABLE IF NOT EXISTS grids (
			recipe_id TEXT NOT NULL REFERENCES recipes(recipe_id) ON DELETE CASCADE,
			slot INTEGER NOT NULL,
			item_id TEXT NOT NULL,
			meta INTEGER NOT NULL,
			count INTEGER NOT NULL,
			tag_json TEXT,
			PRIMARY KEY (recipe_id, slot)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_grids_item ON grids(item_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue, commits, and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordResolution queues r. Only catalog-wide results (no input stack) are
// indexed; input-specific grids are skipped.
func (s *SQLiteIndex) RecordResolution(r service.Resolution) {
	if s == nil || s.closed.Load() {
		return
	}
	if !r.Input.IsEmpty() {
		s.skipped.Add(1)
		return
	}
	select {
	case s.ch <- r:
	default:
		// The JSONL resolution log remains the source of truth.
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		Written:       s.written.Load(),
		Dropped:       s.dropped.Load(),
		Skipped:       s.skipped.Load(),
		Failures:      s.failures.Load(),
	}
}

// UpsertCatalogs stores the raw catalog files and the applied config, keyed
// by name with their digests.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	read := func(name, file, digest string) {
		if configDir == "" {
			return
		}
		b, err := os.ReadFile(filepath.Join(configDir, file))
		if err != nil || len(b) == 0 {
			return
		}
		rows = append(rows, kv{name: name, digest: digest, json: b})
	}
	if cats != nil {
		read("items_defs", "items.json", cats.Items.DefsDigest)
		read("recipes", "recipes.json", cats.Recipes.Digest)
		read("oredict", "oredict.json", cats.Ores.Digest)
		read("item_mappings", "item_mappings.json", cats.Mappings.Digest)
		if b, _ := json.Marshal(cats.Items.Palette); len(b) > 0 {
			rows = append(rows, kv{name: "items_palette", digest: cats.Items.PaletteDigest, json: b})
		}
	}
	if b, err := json.Marshal(tune); err == nil {
		rows = append(rows, kv{name: "tuning", digest: tune.Digest(), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version',?)`, schemaVersion); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CatalogDigests returns name → digest for every stored catalog.
func (s *SQLiteIndex) CatalogDigests(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, digest FROM catalogs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var name, digest string
		if err := rows.Scan(&name, &digest); err != nil {
			return nil, err
		}
		out[name] = digest
	}
	return out, rows.Err()
}

// RecipesFor lists indexed recipes producing itemID, ordered by recipe id.
func (s *SQLiteIndex) RecipesFor(ctx context.Context, itemID string) ([]RecipeRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recipe_id, kind, output_id, output_meta, output_count, ok, COALESCE(error,''), resolved_at
		FROM recipes WHERE output_id = ? ORDER BY recipe_id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RecipeRow
	for rows.Next() {
		var r RecipeRow
		var ok int
		if err := rows.Scan(&r.RecipeID, &r.Kind, &r.Output.ID, &r.Output.Meta, &r.Output.Count, &ok, &r.Error, &r.At); err != nil {
			return nil, err
		}
		r.OK = ok != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Grid returns the stored grid of recipeID. ok is false when the recipe is
// unknown or its extraction failed.
func (s *SQLiteIndex) Grid(ctx context.Context, recipeID string) (grid.Grid, bool, error) {
	var g grid.Grid
	var okFlag int
	err := s.db.QueryRowContext(ctx, `SELECT ok FROM recipes WHERE recipe_id = ?`, recipeID).Scan(&okFlag)
	if err == sql.ErrNoRows {
		return g, false, nil
	}
	if err != nil {
		return g, false, err
	}
	if okFlag == 0 {
		return g, false, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT slot, item_id, meta, count, COALESCE(tag_json,'') FROM grids WHERE recipe_id = ?`, recipeID)
	if err != nil {
		return g, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var slot int
		var st item.Stack
		var tagJSON string
		if err := rows.Scan(&slot, &st.ID, &st.Meta, &st.Count, &tagJSON); err != nil {
			return g, false, err
		}
		if slot < 0 || slot >= grid.Size {
			continue
		}
		if tagJSON != "" {
			var t item.Tag
			if err := json.Unmarshal([]byte(tagJSON), &t); err != nil {
				return g, false, fmt.Errorf("recipe %s slot %d: %w", recipeID, slot, err)
			}
			st.Tag = t
		}
		g[slot] = st
	}
	return g, true, rows.Err()
}

// KindCounts reports, per recipe kind, how many recipes resolved and failed.
func (s *SQLiteIndex) KindCounts(ctx context.Context) (map[string][2]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, ok, COUNT(*) FROM recipes GROUP BY kind, ok`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string][2]int{}
	for rows.Next() {
		var kind string
		var ok, n int
		if err := rows.Scan(&kind, &ok, &n); err != nil {
			return nil, err
		}
		c := out[kind]
		if ok != 0 {
			c[0] = n
		} else {
			c[1] = n
		}
		out[kind] = c
	}
	return out, rows.Err()
}

// SortedKinds returns the keys of a KindCounts result in order.
func SortedKinds(m map[string][2]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	upsertRecipe, _ := s.db.Prepare(`INSERT OR REPLACE INTO recipes(recipe_id,kind,output_id,output_meta,output_count,ok,error,resolved_at) VALUES(?,?,?,?,?,?,?,?)`)
	deleteGrid, _ := s.db.Prepare(`DELETE FROM grids WHERE recipe_id = ?`)
	insertSlot, _ := s.db.Prepare(`INSERT OR REPLACE INTO grids(recipe_id,slot,item_id,meta,count,tag_json) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{upsertRecipe, deleteGrid, insertSlot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()
	if upsertRecipe == nil || deleteGrid == nil || insertSlot == nil {
		for range s.ch {
			s.failures.Add(1)
		}
		return
	}

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.failures.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
		s.failures.Add(1)
	}

	write := func(r service.Resolution) error {
		ok := 0
		if r.OK() {
			ok = 1
		}
		var errText any
		if r.Error != "" {
			errText = r.Error
		}
		at := r.At
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := tx.Stmt(upsertRecipe).Exec(
			r.RecipeID, r.Kind, r.Output.ID, r.Output.Meta, r.Output.Count, ok, errText,
			at.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return err
		}
		if _, err := tx.Stmt(deleteGrid).Exec(r.RecipeID); err != nil {
			return err
		}
		opCount += 2
		if r.Grid == nil {
			return nil
		}
		for i, st := range r.Grid {
			if st.IsEmpty() {
				continue
			}
			var tagJSON any
			if len(st.Tag) > 0 {
				b, _ := json.Marshal(st.Tag)
				tagJSON = string(b)
			}
			if _, err := tx.Stmt(insertSlot).Exec(r.RecipeID, i, st.ID, st.Meta, st.Count, tagJSON); err != nil {
				return err
			}
			opCount++
		}
		return nil
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			s.failures.Add(1)
			continue
		}
		if err := write(r); err != nil {
			rollback()
			continue
		}
		s.written.Add(1)
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}
