package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"decraft.ai/internal/persistence/indexdb"
	"decraft.ai/internal/uncraft/grid"
)

var indexDB string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Query the sqlite read-model index written by scan and the server",
}

var indexDigestsCmd = &cobra.Command{
	Use:   "digests",
	Short: "Catalog and config digests stored in the index",
	Args:  cobra.NoArgs,
	RunE: withIndex(func(ctx context.Context, w io.Writer, idx *indexdb.SQLiteIndex, args []string) error {
		d, err := idx.CatalogDigests(ctx)
		if err != nil {
			return err
		}
		printJSON(w, d)
		return nil
	}),
}

var indexKindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "Resolved and failed recipe counts per recipe kind",
	Args:  cobra.NoArgs,
	RunE: withIndex(func(ctx context.Context, w io.Writer, idx *indexdb.SQLiteIndex, args []string) error {
		counts, err := idx.KindCounts(ctx)
		if err != nil {
			return err
		}
		for _, k := range indexdb.SortedKinds(counts) {
			printJSON(w, struct {
				Kind   string `json:"kind"`
				OK     int    `json:"ok"`
				Failed int    `json:"failed"`
			}{k, counts[k][0], counts[k][1]})
		}
		return nil
	}),
}

var indexRecipesCmd = &cobra.Command{
	Use:   "recipes <item>",
	Short: "Indexed recipes producing an item",
	Args:  cobra.ExactArgs(1),
	RunE: withIndex(func(ctx context.Context, w io.Writer, idx *indexdb.SQLiteIndex, args []string) error {
		rows, err := idx.RecipesFor(ctx, strings.TrimSpace(args[0]))
		if err != nil {
			return err
		}
		for _, r := range rows {
			printJSON(w, struct {
				RecipeID string `json:"recipe_id"`
				Kind     string `json:"kind"`
				Output   string `json:"output"`
				OK       bool   `json:"ok"`
				Error    string `json:"error,omitempty"`
				At       string `json:"resolved_at"`
			}{r.RecipeID, r.Kind, r.Output.String(), r.OK, r.Error, r.At})
		}
		return nil
	}),
}

var indexGridCmd = &cobra.Command{
	Use:   "grid <recipe_id>",
	Short: "The stored grid of one recipe",
	Args:  cobra.ExactArgs(1),
	RunE: withIndex(func(ctx context.Context, w io.Writer, idx *indexdb.SQLiteIndex, args []string) error {
		g, ok, err := idx.Grid(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no grid indexed for recipe %s", args[0])
		}
		slots := make([]string, grid.Size)
		for i, s := range g {
			slots[i] = s.Key()
		}
		printJSON(w, struct {
			RecipeID string   `json:"recipe_id"`
			Slots    []string `json:"slots"`
		}{args[0], slots})
		return nil
	}),
}

func init() {
	indexCmd.PersistentFlags().StringVar(&indexDB, "db", "", "sqlite db path (default: <data>/index/uncraft.sqlite)")
	indexCmd.AddCommand(indexDigestsCmd, indexKindsCmd, indexRecipesCmd, indexGridCmd)
	rootCmd.AddCommand(indexCmd)
}

func withIndex(fn func(ctx context.Context, w io.Writer, idx *indexdb.SQLiteIndex, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		path := strings.TrimSpace(indexDB)
		if path == "" {
			path = filepath.Join(dataDir, "index", "uncraft.sqlite")
		}
		idx, err := indexdb.OpenSQLite(path)
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return fn(ctx, cmd.OutOrStdout(), idx, args)
	}
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
