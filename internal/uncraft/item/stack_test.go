package item

import "testing"

func TestNormalized_RewritesWildcardMeta(t *testing.T) {
	in := New("minecraft:planks", 1, WildcardMeta)
	out := in.Normalized()
	if out.Meta != 0 {
		t.Fatalf("Meta=%d want 0", out.Meta)
	}
	if in.Meta != WildcardMeta {
		t.Fatalf("input mutated: Meta=%d", in.Meta)
	}
}

func TestNormalized_EmptyStaysEmpty(t *testing.T) {
	in := Stack{Meta: 4, Tag: Tag{"x": 1.0}}
	out := in.Normalized()
	if !out.IsEmpty() || out.Meta != 0 || out.Tag != nil {
		t.Fatalf("empty slot carried aux data: %+v", out)
	}
}

func TestCopy_DeepCopiesTag(t *testing.T) {
	in := New("thermaldynamics:cover", 1, 0).WithTag(Tag{
		"Block": "minecraft:stone",
		"nested": map[string]any{
			"list": []any{1.0, 2.0},
		},
	})
	out := in.Copy()
	out.Tag["Block"] = "minecraft:dirt"
	nested, _ := out.Tag.Compound("nested")
	nested["list"].([]any)[0] = 9.0

	if got, _ := in.Tag.String("Block"); got != "minecraft:stone" {
		t.Fatalf("Block=%q want minecraft:stone", got)
	}
	inNested, _ := in.Tag.Compound("nested")
	if inNested["list"].([]any)[0] != 1.0 {
		t.Fatalf("nested list aliased")
	}
}

func TestParseKey(t *testing.T) {
	cases := []struct {
		in   string
		id   string
		meta int
		ok   bool
	}{
		{in: "minecraft:stone", id: "minecraft:stone", meta: 0, ok: true},
		{in: "minecraft:wool:14", id: "minecraft:wool", meta: 14, ok: true},
		{in: "  minecraft:planks:2 ", id: "minecraft:planks", meta: 2, ok: true},
		{in: "", ok: false},
		{in: ":3", ok: false},
	}
	for _, c := range cases {
		id, meta, ok := ParseKey(c.in)
		if ok != c.ok || (ok && (id != c.id || meta != c.meta)) {
			t.Fatalf("ParseKey(%q)=(%q,%d,%v) want (%q,%d,%v)", c.in, id, meta, ok, c.id, c.meta, c.ok)
		}
	}
}

func TestFromTag(t *testing.T) {
	s, ok := FromTag(Tag{"id": "minecraft:log", "Count": 1.0, "Damage": 2.0})
	if !ok {
		t.Fatalf("expected stack")
	}
	if s.ID != "minecraft:log" || s.Count != 1 || s.Meta != 2 {
		t.Fatalf("got %+v", s)
	}
	if _, ok := FromTag(Tag{"Count": 1.0}); ok {
		t.Fatalf("expected missing id rejected")
	}
}

func TestKeyAndString(t *testing.T) {
	if got := New("minecraft:wool", 2, 14).String(); got != "2xminecraft:wool:14" {
		t.Fatalf("String()=%q", got)
	}
	if got := Empty().String(); got != "empty" {
		t.Fatalf("String()=%q", got)
	}
}
