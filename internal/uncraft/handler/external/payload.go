package external

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"decraft.ai/internal/uncraft/handler"
	"decraft.ai/internal/uncraft/ingredient"
	"decraft.ai/internal/uncraft/item"
	"decraft.ai/internal/uncraft/oredict"
	"decraft.ai/internal/uncraft/recipe"
)

var errMalformed = errors.New("external: malformed payload")

// Payload slot values:
//
//	null                         empty slot
//	{"id","count","meta","tag"}  a stack
//	[stack, ...]                 inline alternatives; the first one is used
//	{"ore": "name"}              an ore dictionary entry
//	{"type":"item","input":stack} / {"type":"ore","ore":"name"}  typed inputs
type parser struct {
	ores *oredict.Dictionary
}

func payloadOf(r recipe.Handle) (gjson.Result, error) {
	f, ok := r.(recipe.Foreign)
	if !ok {
		return gjson.Result{}, handler.Unsupported(r, "not a foreign recipe (%T)", r)
	}
	if !gjson.ValidBytes(f.Payload) {
		return gjson.Result{}, handler.Wrap(r, fmt.Errorf("%w: invalid json", errMalformed))
	}
	p := gjson.ParseBytes(f.Payload)
	if !p.IsObject() {
		return gjson.Result{}, handler.Wrap(r, fmt.Errorf("%w: not an object", errMalformed))
	}
	return p, nil
}

func (p parser) entries(v gjson.Result, skipEmpty bool) ([]ingredient.Entry, error) {
	if !v.IsArray() {
		return nil, fmt.Errorf("%w: input is not an array", errMalformed)
	}
	var out []ingredient.Entry
	var err error
	v.ForEach(func(_, slot gjson.Result) bool {
		var e ingredient.Entry
		e, err = p.entry(slot)
		if err != nil {
			return false
		}
		if skipEmpty && !e.IsAlternative() && e.Stack.IsEmpty() {
			return true
		}
		out = append(out, e)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p parser) entry(v gjson.Result) (ingredient.Entry, error) {
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return ingredient.Of(item.Empty()), nil
	case v.IsArray():
		var stacks []item.Stack
		var err error
		v.ForEach(func(_, sv gjson.Result) bool {
			var s item.Stack
			s, err = stackOf(sv)
			if err != nil {
				return false
			}
			stacks = append(stacks, s)
			return true
		})
		if err != nil {
			return ingredient.Entry{}, err
		}
		return ingredient.OneOf(ingredient.NewOptions("inline", stacks...)), nil
	case v.IsObject():
		if t := v.Get("type"); t.Exists() {
			switch t.String() {
			case "item":
				s, err := stackOf(v.Get("input"))
				return ingredient.Of(s), err
			case "ore":
				return p.ore(v.Get("ore"))
			default:
				return ingredient.Entry{}, fmt.Errorf("%w: unknown input type %q", errMalformed, t.String())
			}
		}
		if ore := v.Get("ore"); ore.Exists() {
			return p.ore(ore)
		}
		s, err := stackOf(v)
		return ingredient.Of(s), err
	}
	return ingredient.Entry{}, fmt.Errorf("%w: unexpected slot %s", errMalformed, v.Raw)
}

func (p parser) ore(name gjson.Result) (ingredient.Entry, error) {
	if name.Type != gjson.String || name.String() == "" {
		return ingredient.Entry{}, fmt.Errorf("%w: bad ore name %s", errMalformed, name.Raw)
	}
	if p.ores == nil {
		return ingredient.OneOf(ingredient.NewOptions(name.String())), nil
	}
	return ingredient.OneOf(p.ores.Set(name.String())), nil
}

func stackOf(v gjson.Result) (item.Stack, error) {
	if !v.IsObject() {
		return item.Stack{}, fmt.Errorf("%w: stack is not an object", errMalformed)
	}
	id := v.Get("id")
	if id.Type != gjson.String || id.String() == "" {
		return item.Stack{}, fmt.Errorf("%w: stack without id", errMalformed)
	}
	count, err := intField(v, "count", 1)
	if err != nil {
		return item.Stack{}, err
	}
	meta, err := intField(v, "meta", 0)
	if err != nil {
		return item.Stack{}, err
	}
	s := item.New(id.String(), count, meta)
	if t := v.Get("tag"); t.Exists() {
		m, ok := t.Value().(map[string]any)
		if !ok {
			return item.Stack{}, fmt.Errorf("%w: tag is not an object", errMalformed)
		}
		s.Tag = item.Tag(m)
	}
	return s, nil
}

func intField(v gjson.Result, key string, def int) (int, error) {
	f := v.Get(key)
	if !f.Exists() {
		return def, nil
	}
	if f.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s is not a number", errMalformed, key)
	}
	return int(f.Int()), nil
}

// dims reads optional width/height. ok is false when neither is present.
func dims(p gjson.Result) (w, h int, ok bool, err error) {
	wv, hv := p.Get("width"), p.Get("height")
	if !wv.Exists() && !hv.Exists() {
		return 0, 0, false, nil
	}
	if wv.Type != gjson.Number || hv.Type != gjson.Number {
		return 0, 0, false, fmt.Errorf("%w: width/height", errMalformed)
	}
	return int(wv.Int()), int(hv.Int()), true, nil
}
