package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	persistlog "decraft.ai/internal/persistence/log"
	"decraft.ai/internal/uncraft/grid"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-resolve the logged resolutions and check the grids still match",
	Long: `Reads every entry of the JSONL resolution log under <data>/resolutions and
resolves the same recipe with the same input stack against the current
catalogs. Reports entries whose grid or outcome changed; a recipe that no
longer exists counts as changed.`,
	Args: cobra.NoArgs,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	logged, err := persistlog.ReadResolutions(dataDir)
	if err != nil {
		return fmt.Errorf("read resolution log: %w", err)
	}
	if len(logged) == 0 {
		return fmt.Errorf("no resolutions logged under %s", dataDir)
	}
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	unc := rt.uncrafter()

	w := cmd.OutOrStdout()
	changed := 0
	for _, r := range logged {
		h, ok := rt.cats.Recipes.Handle(r.RecipeID)
		if !ok {
			fmt.Fprintf(w, "changed %s: recipe no longer in catalog\n", r.RecipeID)
			changed++
			continue
		}
		g, err := unc.Resolve(ctx, h, r.Input)
		switch {
		case err != nil && r.OK():
			fmt.Fprintf(w, "changed %s: now fails: %v\n", r.RecipeID, err)
			changed++
		case err == nil && !r.OK():
			fmt.Fprintf(w, "changed %s: now resolves (was %s)\n", r.RecipeID, r.Error)
			changed++
		case err == nil && r.Grid != nil && !sameGrid(g, *r.Grid):
			fmt.Fprintf(w, "changed %s: grid %s, logged %s\n", r.RecipeID, g, *r.Grid)
			changed++
		}
	}
	rt.log.Debug("replay done", zap.Int("entries", len(logged)), zap.Int("changed", changed))
	fmt.Fprintf(w, "replayed %d resolutions: %d changed\n", len(logged), changed)
	if changed > 0 {
		return fmt.Errorf("%d resolution(s) changed", changed)
	}
	return nil
}

func sameGrid(a, b grid.Grid) bool {
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
