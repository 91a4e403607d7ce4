package item

import (
	"encoding/json"
	"math"
	"reflect"
)

// Tag is free-form auxiliary data attached to a stack (NBT-like compound).
// Values are JSON shaped: string, float64/int, bool, []any, map[string]any.
type Tag map[string]any

func (t Tag) Clone() Tag {
	if t == nil {
		return nil
	}
	out := make(Tag, len(t))
	for k, v := range t {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case Tag:
		return x.Clone()
	case map[string]any:
		return map[string]any(Tag(x).Clone())
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	default:
		return v
	}
}

func (t Tag) Equal(o Tag) bool {
	if len(t) == 0 && len(o) == 0 {
		return true
	}
	return reflect.DeepEqual(t, o)
}

func (t Tag) String(key string) (string, bool) {
	s, ok := t[key].(string)
	return s, ok
}

func (t Tag) Int(key string) (int, bool) {
	switch x := t[key].(type) {
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func (t Tag) Compound(key string) (Tag, bool) {
	switch x := t[key].(type) {
	case Tag:
		return x, true
	case map[string]any:
		return Tag(x), true
	}
	return nil, false
}
