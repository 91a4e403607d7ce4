package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"decraft.ai/internal/persistence/snapshot"
	"decraft.ai/internal/sim/catalogs"
	"decraft.ai/internal/uncraft/grid"
	"decraft.ai/internal/uncraft/item"
	"decraft.ai/internal/uncraft/service"
)

var (
	gridTable string
	gridTag   string
	gridDump  bool
)

var gridCmd = &cobra.Command{
	Use:   "grid <item[:meta]>",
	Short: "Print the crafting grid that produces an item",
	Long: `Looks up the recipes producing the item and prints the 3x3 grid of the first
one that can be uncrafted. Items whose grid depends on the crafted stack
(covers, tool tables) take that stack's tag data via --tag.

Example:
  decraft grid thermaldynamics:cover --tag '{"Block":"minecraft:wool","Meta":14}'`,
	Args: cobra.ExactArgs(1),
	RunE: runGrid,
}

func runGrid(cmd *cobra.Command, args []string) error {
	id, meta, ok := item.ParseKey(args[0])
	if !ok {
		return fmt.Errorf("bad item %q", args[0])
	}
	in := item.New(id, 1, meta)
	if gridTag != "" {
		var tag item.Tag
		if err := json.Unmarshal([]byte(gridTag), &tag); err != nil {
			return fmt.Errorf("--tag: %w", err)
		}
		in = in.WithTag(tag)
	}

	if gridTable != "" {
		return gridFromTable(cmd.OutOrStdout(), gridTable, in)
	}

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := rt.uncrafter().Uncraft(ctx, in)
	if err != nil {
		if errors.Is(err, service.ErrNoRecipe) {
			return withSuggestion(err, rt.cats, in.ID)
		}
		return err
	}
	rt.log.Debug("resolved", zap.String("item", in.Key()), zap.String("recipe", res.Recipe.ID()))

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "recipe %s (%s) -> %s\n", res.Recipe.ID(), res.Recipe.Kind(), res.Recipe.Output())
	printGrid(w, res.Grid)
	if gridDump {
		spew.Fdump(w, res.Recipe)
	}
	return nil
}

func gridFromTable(w io.Writer, path string, in item.Stack) error {
	tbl, err := snapshot.ReadTable(path)
	if err != nil {
		return err
	}
	var lastErr string
	for _, e := range tbl.ByOutput(in.ID) {
		if e.Output.Meta != item.WildcardMeta && e.Output.Meta != in.Meta {
			continue
		}
		if !e.OK() {
			lastErr = e.Error
			continue
		}
		fmt.Fprintf(w, "recipe %s (%s) -> %s [table %s]\n", e.RecipeID, e.Kind, e.Output.Stack(), shortDigest(tbl.Header.CatalogDigest))
		printGrid(w, e.Grid())
		if gridDump {
			spew.Fdump(w, e)
		}
		return nil
	}
	if lastErr != "" {
		return fmt.Errorf("%s: %s", in.Key(), lastErr)
	}
	err = fmt.Errorf("%w: %s", service.ErrNoRecipe, in.Key())
	if cats, cerr := catalogs.Load(configDir); cerr == nil {
		return withSuggestion(err, cats, in.ID)
	}
	return err
}

func withSuggestion(err error, cats *catalogs.Catalogs, id string) error {
	if cats.Items.Has(id) {
		return err
	}
	if s, ok := cats.Items.Suggest(id); ok {
		return fmt.Errorf("%w (did you mean %s?)", err, s)
	}
	return err
}

func printGrid(w io.Writer, g grid.Grid) {
	for row := 0; row < grid.Width; row++ {
		for col := 0; col < grid.Width; col++ {
			cell := "-"
			if s := g[row*grid.Width+col]; !s.IsEmpty() {
				cell = s.Key()
			}
			fmt.Fprintf(w, "  %-32s", cell)
		}
		fmt.Fprintln(w)
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
