package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"decraft.ai/internal/uncraft/item"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the catalogs and uncrafting.yaml",
	Long: `Loads every catalog and the uncrafting config, then reports recipes with no
registered handler and excluded items that are not in items.json. Exits
non-zero when anything is reported.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	problems := 0

	for _, h := range rt.cats.Recipes.Handles() {
		if _, ok := rt.reg.Lookup(h); !ok {
			fmt.Fprintf(w, "recipe %s: no handler for %s\n", h.ID(), h.Kind())
			problems++
		}
		if out := h.Output(); !rt.cats.Items.Has(out.ID) {
			fmt.Fprintf(w, "recipe %s: output %s is not a known item\n", h.ID(), out.ID)
			problems++
		}
	}

	for _, key := range rt.tune.ExcludedItems {
		id, _, _ := item.ParseKey(key)
		if rt.cats.Items.Has(id) {
			continue
		}
		if s, ok := rt.cats.Items.Suggest(id); ok {
			fmt.Fprintf(w, "excluded_items: unknown item %s (did you mean %s?)\n", key, s)
		} else {
			fmt.Fprintf(w, "excluded_items: unknown item %s\n", key)
		}
		problems++
	}

	fmt.Fprintf(w, "%d items, %d recipes, %d ore names, %d handlers, mods %v\n",
		len(rt.cats.Items.Palette), len(rt.cats.Recipes.ByID), rt.cats.Ores.Dict.Len(), rt.reg.Len(), rt.tune.EnabledMods())
	if problems > 0 {
		return fmt.Errorf("%d problem(s) found", problems)
	}
	return nil
}
