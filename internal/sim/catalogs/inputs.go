package catalogs

import (
	"bytes"
	"encoding/json"
	"fmt"

	"decraft.ai/internal/uncraft/item"
)

// InputDef is one recipe slot in recipes.json: null, a stack object,
// {"ore": name}, or an array of stacks (any one of them).
type InputDef struct {
	Stack   item.Stack
	Ore     string
	Options []item.Stack
}

func (d *InputDef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*d = InputDef{}
	switch {
	case bytes.Equal(b, []byte("null")):
		return nil
	case len(b) > 0 && b[0] == '[':
		var opts []item.Stack
		if err := json.Unmarshal(b, &opts); err != nil {
			return err
		}
		if opts == nil {
			opts = []item.Stack{}
		}
		d.Options = opts
		return nil
	case len(b) > 0 && b[0] == '{':
		var probe struct {
			Ore string `json:"ore"`
		}
		if err := json.Unmarshal(b, &probe); err != nil {
			return err
		}
		if probe.Ore != "" {
			d.Ore = probe.Ore
			return nil
		}
		if err := json.Unmarshal(b, &d.Stack); err != nil {
			return err
		}
		if d.Stack.ID == "" {
			return fmt.Errorf("input without id or ore: %s", b)
		}
		return nil
	}
	return fmt.Errorf("unexpected input %s", b)
}

func (d InputDef) MarshalJSON() ([]byte, error) {
	switch {
	case d.Ore != "":
		return json.Marshal(map[string]string{"ore": d.Ore})
	case d.Options != nil:
		return json.Marshal(d.Options)
	case d.Stack.IsEmpty():
		return []byte("null"), nil
	}
	return json.Marshal(d.Stack)
}
