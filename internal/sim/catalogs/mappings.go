package catalogs

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"decraft.ai/internal/uncraft/handler/external"
	"decraft.ai/internal/uncraft/item"
)

const mappingsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["item"],
    "additionalProperties": false,
    "properties": {
      "item": {"type": "string", "minLength": 1},
      "replace_slots": {
        "type": "array",
        "items": {"type": "integer", "minimum": 0, "maximum": 8},
        "uniqueItems": true
      }
    }
  }
}`

var mappingsValidator = jsonschema.MustCompileString("item_mappings.schema.json", mappingsSchema)

type mappingDef struct {
	Item         string `json:"item"`
	ReplaceSlots []int  `json:"replace_slots,omitempty"`
}

func loadMappings(path string, out *MappingCatalog) error {
	out.ByKey = map[string]external.Mapping{}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("item_mappings.json: %w", err)
	}
	if err := mappingsValidator.Validate(doc); err != nil {
		return fmt.Errorf("item_mappings.json: %w", err)
	}
	var defs []mappingDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("item_mappings.json: %w", err)
	}
	for _, d := range defs {
		id, meta, ok := item.ParseKey(d.Item)
		if !ok {
			return fmt.Errorf("item_mappings.json: bad item %q", d.Item)
		}
		out.ByKey[item.New(id, 1, meta).Key()] = external.Mapping{ReplaceSlots: d.ReplaceSlots}
	}
	return nil
}

// Lookup finds the mapping for s by "id:meta", then by bare id.
func (c MappingCatalog) Lookup(s item.Stack) (external.Mapping, bool) {
	if s.IsEmpty() {
		return external.Mapping{}, false
	}
	if m, ok := c.ByKey[s.Key()]; ok {
		return m, true
	}
	m, ok := c.ByKey[strings.TrimSpace(s.ID)]
	return m, ok
}
