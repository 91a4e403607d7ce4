package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"decraft.ai/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// asJSON round-trips v so the validator sees plain JSON values.
func asJSON(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(asJSON(t, v)); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	validate(compile(t, "hello.schema.json"), protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "jei-overlay",
	})

	validate(compile(t, "welcome.schema.json"), protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "0b6f3c5e-8f87-4f0e-9a53-7f5a6a1d1c11",
		RecipeKinds:     []string{"minecraft:crafting_shaped"},
		Catalogs: protocol.CatalogDigests{
			ItemPalette:    protocol.DigestRef{Digest: "deadbeef", Count: 28},
			RecipesDigest:  "deadbeef",
			OredictDigest:  "deadbeef",
			MappingsDigest: "deadbeef",
			TuningDigest:   "deadbeef",
		},
	})

	validate(compile(t, "config.schema.json"), protocol.ConfigMsg{
		Type:            protocol.TypeConfig,
		ProtocolVersion: protocol.Version,
		Digest:          "deadbeef",
		Config: protocol.ConfigData{
			StandardLevel:     5,
			MaxUsedLevel:      30,
			UncraftMethod:     1,
			UncraftMethodName: "xell75-zenen",
			ExcludedItems:     []string{"minecraft:bucket"},
		},
	})

	validate(compile(t, "uncraft.schema.json"), protocol.UncraftMsg{
		Type:            protocol.TypeUncraft,
		ProtocolVersion: protocol.Version,
		RequestID:       "r1",
		Item:            protocol.Stack{ID: "thermaldynamics:cover", Count: 6, Tag: map[string]any{"Block": "minecraft:wool", "Meta": 14}},
	})

	grid := protocol.GridMsg{
		Type:            protocol.TypeGrid,
		ProtocolVersion: protocol.Version,
		RecipeID:        "torch",
		Kind:            "minecraft:crafting_shaped",
		Output:          protocol.Stack{ID: "minecraft:torch", Count: 4},
	}
	grid.Slots[0] = &protocol.Stack{ID: "minecraft:coal", Count: 1}
	grid.Slots[3] = &protocol.Stack{ID: "minecraft:stick", Count: 1}
	validate(compile(t, "grid.schema.json"), grid)

	validate(compile(t, "error.schema.json"), protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            protocol.ErrNoRecipe,
		Message:         "no recipe produces minecraft:stik",
		Suggestion:      "minecraft:stick",
	})
}

func TestSchemas_RejectBadSamples(t *testing.T) {
	cases := []struct {
		schema string
		raw    string
	}{
		{"uncraft.schema.json", `{"type":"UNCRAFT","protocol_version":"1.0","item":{"count":1}}`},
		{"uncraft.schema.json", `{"type":"UNCRAFT","protocol_version":"1.0","item":{"id":"a:b","meta":-1}}`},
		{"grid.schema.json", `{"type":"GRID","protocol_version":"1.0","recipe_id":"r","kind":"k","output":{"id":"a:b"},"slots":[null,null]}`},
		{"error.schema.json", `{"type":"ERROR","protocol_version":"1.0","code":"E_NOPE","message":"x"}`},
		{"config.schema.json", `{"type":"CONFIG","protocol_version":"1.0","digest":"d","config":{"standard_level":99,"max_used_level":1,"uncraft_method":0,"uncraft_method_name":"jglrxavpok","excluded_items":[],"enabled_mods":[]}}`},
	}
	for _, tc := range cases {
		var v any
		if err := json.Unmarshal([]byte(tc.raw), &v); err != nil {
			t.Fatalf("bad fixture: %v", err)
		}
		if err := compile(t, tc.schema).Validate(v); err == nil {
			t.Fatalf("%s: expected validation error for %s", tc.schema, tc.raw)
		}
	}
}

func TestDecodeBase(t *testing.T) {
	m, err := protocol.DecodeBase([]byte(`{"type":"UNCRAFT","protocol_version":"1.0","item":{"id":"a:b"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != protocol.TypeUncraft || m.ProtocolVersion != protocol.Version {
		t.Fatalf("base: %+v", m)
	}
	if _, err := protocol.DecodeBase([]byte(`{`)); err == nil {
		t.Fatalf("expected error")
	}
}
