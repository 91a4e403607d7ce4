package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"decraft.ai/internal/persistence/indexdb"
	persistlog "decraft.ai/internal/persistence/log"
	"decraft.ai/internal/persistence/snapshot"
	"decraft.ai/internal/uncraft/service"
)

var (
	scanOut   string
	scanNoDB  bool
	scanNoLog bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Resolve every catalog recipe and write the uncraft table",
	Long: `Runs every recipe in recipes.json through its handler with no input stack.
Results go to the uncraft table (readable with "decraft grid --table"), the
sqlite index under <data>/index and the JSONL resolution log under
<data>/resolutions.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	builder := snapshot.NewTableBuilder()
	sinks := []service.Sink{builder}

	var idx *indexdb.SQLiteIndex
	if !scanNoDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(dataDir, "index", "uncraft.sqlite"))
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(configDir, rt.cats, rt.tune); err != nil {
			return fmt.Errorf("index catalogs: %w", err)
		}
		sinks = append(sinks, idx)
	}
	if !scanNoLog {
		resLog := persistlog.NewResolutionLogger(dataDir, rt.log)
		defer resLog.Close()
		sinks = append(sinks, resLog)
	}

	handles := rt.cats.Recipes.Handles()
	ok, err := rt.uncrafter(sinks...).Scan(ctx, handles)
	if err != nil {
		return err
	}

	out := scanOut
	if out == "" {
		out = filepath.Join(dataDir, "uncraft.table.zst")
	}
	tbl := builder.Table(snapshot.Header{
		CatalogDigest: catalogDigest(rt.cats),
		TuningDigest:  rt.tune.Digest(),
		CreatedAt:     time.Now().UTC(),
	})
	if err := snapshot.WriteTable(out, tbl); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	rt.log.Info("scan complete", zap.Int("recipes", len(handles)), zap.Int("ok", ok), zap.String("table", out))

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "scanned %d recipes: %d ok, %d unsupported\n", len(handles), ok, len(handles)-ok)
	byKind := map[string][2]int{}
	for _, e := range tbl.Entries {
		c := byKind[e.Kind]
		if e.OK() {
			c[0]++
		} else {
			c[1]++
		}
		byKind[e.Kind] = c
	}
	for _, k := range indexdb.SortedKinds(byKind) {
		fmt.Fprintf(w, "  %-56s ok=%d failed=%d\n", k, byKind[k][0], byKind[k][1])
	}
	var failed []string
	for _, e := range tbl.Entries {
		if !e.OK() {
			failed = append(failed, e.RecipeID+": "+e.Error)
		}
	}
	sort.Strings(failed)
	for _, f := range failed {
		fmt.Fprintf(w, "  unsupported %s\n", f)
	}
	fmt.Fprintf(w, "table: %s\n", out)
	return nil
}
