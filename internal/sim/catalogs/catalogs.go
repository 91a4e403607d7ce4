package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"decraft.ai/internal/uncraft/handler/external"
	"decraft.ai/internal/uncraft/ingredient"
	"decraft.ai/internal/uncraft/item"
	"decraft.ai/internal/uncraft/oredict"
	"decraft.ai/internal/uncraft/recipe"
)

type Catalogs struct {
	Items    ItemCatalog
	Recipes  RecipeCatalog
	Ores     OreCatalog
	Mappings MappingCatalog
}

type ItemCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"` // "BLOCK","TOOL","MATERIAL","FOOD","MACHINE"
	Name      string `json:"name,omitempty"`
	MaxDamage int    `json:"max_damage,omitempty"`
}

type RecipeCatalog struct {
	ByID   map[string]RecipeDef
	Digest string

	handles  map[string]recipe.Handle
	byOutput map[string][]string
}

type RecipeDef struct {
	RecipeID string          `json:"recipe_id"`
	Type     string          `json:"type"`
	Output   item.Stack      `json:"output"`
	Width    int             `json:"width,omitempty"`
	Height   int             `json:"height,omitempty"`
	Inputs   []InputDef      `json:"inputs,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type OreCatalog struct {
	Dict   *oredict.Dictionary
	Digest string
}

type MappingCatalog struct {
	ByKey  map[string]external.Mapping
	Digest string
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadOres(filepath.Join(configDir, "oredict.json"), &c.Ores); err != nil {
		return nil, err
	}
	if err := loadRecipes(filepath.Join(configDir, "recipes.json"), c.Ores.Dict, &c.Recipes); err != nil {
		return nil, err
	}
	if err := loadMappings(filepath.Join(configDir, "item_mappings.json"), &c.Mappings); err != nil {
		return nil, err
	}

	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func (c ItemCatalog) Has(id string) bool {
	_, ok := c.Defs[id]
	return ok
}

// Suggest returns the closest known item id to id, if any is close enough to
// be a plausible typo.
func (c ItemCatalog) Suggest(id string) (string, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return "", false
	}
	best, bestDist := "", -1
	for _, cand := range c.Palette {
		d := levenshtein.ComputeDistance(id, strings.ToLower(cand))
		if d > suggestLimit(len(cand)) {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best, bestDist >= 0
}

func suggestLimit(n int) int {
	switch {
	case n <= 6:
		return 1
	case n <= 14:
		return 2
	default:
		return 3
	}
}

func loadOres(path string, out *OreCatalog) error {
	out.Dict = oredict.New()
	raw, err := os.ReadFile(path)
	if err != nil {
		// Optional: no ore dictionary means every ore slot is empty.
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var entries map[string][]item.Stack
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("oredict.json: %w", err)
	}
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, s := range entries[name] {
			if s.ID == "" {
				return fmt.Errorf("oredict.json: %s: stack without id", name)
			}
			out.Dict.Register(name, item.New(s.ID, s.Count, s.Meta).WithTag(s.Tag))
		}
	}
	return nil
}

func loadRecipes(path string, ores *oredict.Dictionary, out *RecipeCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	out.ByID = map[string]RecipeDef{}
	out.handles = map[string]recipe.Handle{}
	out.byOutput = map[string][]string{}
	for _, r := range defs {
		if r.RecipeID == "" {
			return fmt.Errorf("recipes.json: empty recipe_id")
		}
		if _, dup := out.ByID[r.RecipeID]; dup {
			return fmt.Errorf("recipes.json: duplicate recipe_id %s", r.RecipeID)
		}
		h, err := r.handle(ores)
		if err != nil {
			return fmt.Errorf("recipes.json: %s: %w", r.RecipeID, err)
		}
		out.ByID[r.RecipeID] = r
		out.handles[r.RecipeID] = h
		out.byOutput[r.Output.ID] = append(out.byOutput[r.Output.ID], r.RecipeID)
	}
	for _, ids := range out.byOutput {
		sort.Strings(ids)
	}
	return nil
}

func (d RecipeDef) handle(ores *oredict.Dictionary) (recipe.Handle, error) {
	if d.Output.ID == "" {
		return nil, fmt.Errorf("missing output")
	}
	base := recipe.Base{RecipeID: d.RecipeID, Result: item.New(d.Output.ID, d.Output.Count, d.Output.Meta).WithTag(d.Output.Tag)}

	switch recipe.Kind(d.Type) {
	case recipe.KindShaped:
		items, err := concrete(d.Inputs)
		if err != nil {
			return nil, err
		}
		return recipe.Shaped{Base: base, Width: d.Width, Height: d.Height, Items: items}, nil
	case recipe.KindShapeless:
		items, err := concrete(d.Inputs)
		if err != nil {
			return nil, err
		}
		return recipe.Shapeless{Base: base, Items: items}, nil
	case recipe.KindShapedOre:
		return recipe.ShapedOre{Base: base, Width: d.Width, Height: d.Height, Inputs: entries(d.Inputs, ores)}, nil
	case recipe.KindShapelessOre:
		return recipe.ShapelessOre{Base: base, Inputs: entries(d.Inputs, ores)}, nil
	case "":
		return nil, fmt.Errorf("missing type")
	}
	if len(d.Payload) == 0 {
		return nil, fmt.Errorf("%s recipe without payload", d.Type)
	}
	return recipe.Foreign{Base: base, Family: recipe.Kind(d.Type), Payload: []byte(d.Payload)}, nil
}

func concrete(in []InputDef) ([]item.Stack, error) {
	out := make([]item.Stack, len(in))
	for i, d := range in {
		if d.Ore != "" || d.Options != nil {
			return nil, fmt.Errorf("input %d: alternatives are not allowed in built-in recipes", i)
		}
		out[i] = d.Stack
	}
	return out, nil
}

func entries(in []InputDef, ores *oredict.Dictionary) []ingredient.Entry {
	out := make([]ingredient.Entry, len(in))
	for i, d := range in {
		switch {
		case d.Ore != "":
			out[i] = ingredient.OneOf(ores.Set(d.Ore))
		case d.Options != nil:
			out[i] = ingredient.OneOf(ingredient.NewOptions(fmt.Sprintf("inline#%d", i), d.Options...))
		default:
			out[i] = ingredient.Of(d.Stack)
		}
	}
	return out
}

// Handle returns the recipe handle built for id.
func (c RecipeCatalog) Handle(id string) (recipe.Handle, bool) {
	h, ok := c.handles[id]
	return h, ok
}

// Handles returns every recipe handle ordered by recipe id.
func (c RecipeCatalog) Handles() []recipe.Handle {
	ids := make([]string, 0, len(c.handles))
	for id := range c.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]recipe.Handle, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.handles[id])
	}
	return out
}

// ByOutput returns the recipes producing itemID, ordered by recipe id.
func (c RecipeCatalog) ByOutput(itemID string) []recipe.Handle {
	ids := c.byOutput[itemID]
	out := make([]recipe.Handle, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.handles[id])
	}
	return out
}
