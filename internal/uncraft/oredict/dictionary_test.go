package oredict

import (
	"errors"
	"testing"

	"decraft.ai/internal/uncraft/ingredient"
	"decraft.ai/internal/uncraft/item"
)

func TestSet_IsLiveView(t *testing.T) {
	d := New()
	e := ingredient.OneOf(d.Set("plankWood"))

	if _, err := ingredient.Resolve(e); !errors.Is(err, ingredient.ErrEmptyAlternativeSet) {
		t.Fatalf("err=%v want ErrEmptyAlternativeSet before registration", err)
	}

	d.Register("plankWood", item.New("minecraft:planks", 1, item.WildcardMeta))
	d.Register("plankWood", item.New("biomesoplenty:planks", 1, 0))

	got, err := ingredient.Resolve(e)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != "minecraft:planks" || got.Meta != 0 {
		t.Fatalf("got %v want minecraft:planks meta 0", got)
	}
}

func TestRegister_IgnoresDuplicatesAndBlanks(t *testing.T) {
	d := New()
	d.Register("ingotIron", item.New("minecraft:iron_ingot", 1, 0))
	d.Register("ingotIron", item.New("minecraft:iron_ingot", 4, 0))
	d.Register("", item.New("minecraft:gold_ingot", 1, 0))
	d.Register("ingotGold", item.Empty())

	if n := len(d.Set("ingotIron").Candidates()); n != 1 {
		t.Fatalf("ingotIron candidates=%d want 1", n)
	}
	if d.Len() != 1 {
		t.Fatalf("Len()=%d want 1 (%v)", d.Len(), d.Names())
	}
}
