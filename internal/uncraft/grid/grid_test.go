package grid

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"decraft.ai/internal/uncraft/item"
)

var (
	stick = item.New("minecraft:stick", 1, 0)
	stone = item.New("minecraft:stone", 1, 0)
	coal  = item.New("minecraft:coal", 1, 0)
	empty = item.Empty()
)

func TestReshape_TwoByTwo(t *testing.T) {
	got := Reshape([]item.Stack{stick, stick, stick, stone}, 2, 2)
	want := Grid{stick, stick, empty, stick, stone, empty, empty, empty, empty}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("grid mismatch (-want +got):\n%s", diff)
	}
}

func TestReshape_FootprintForEveryShape(t *testing.T) {
	for w := 1; w <= Width; w++ {
		for h := 1; h <= Width; h++ {
			items := make([]item.Stack, w*h)
			for i := range items {
				items[i] = item.New(fmt.Sprintf("test:item_%d", i), 1, 0)
			}
			g := Reshape(items, w, h)
			for idx, s := range g {
				row, col := idx/Width, idx%Width
				inside := row < h && col < w
				if inside {
					want := items[row*w+col]
					if !s.Equal(want) {
						t.Fatalf("%dx%d cell %d=%v want %v", w, h, idx, s, want)
					}
				} else if !s.IsEmpty() {
					t.Fatalf("%dx%d cell %d=%v want empty", w, h, idx, s)
				}
			}
		}
	}
}

func TestReshape_PanicsOnBadPrecondition(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	Reshape([]item.Stack{stick}, 2, 2)
}

func TestFromList_Shapeless(t *testing.T) {
	got, err := FromList([]item.Stack{coal, coal, coal})
	if err != nil {
		t.Fatalf("FromList: %v", err)
	}
	want := Grid{coal, coal, coal, empty, empty, empty, empty, empty, empty}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("grid mismatch (-want +got):\n%s", diff)
	}
}

func TestFromList_TooMany(t *testing.T) {
	items := make([]item.Stack, Size+1)
	if _, err := FromList(items); !errors.Is(err, ErrTooManyIngredients) {
		t.Fatalf("err=%v want ErrTooManyIngredients", err)
	}
}

func TestFromMask(t *testing.T) {
	// Corners and center.
	mask := MaskBit(0) | MaskBit(2) | MaskBit(4) | MaskBit(6) | MaskBit(8)
	if mask != 0b101010101 {
		t.Fatalf("mask=%b", mask)
	}
	got, err := FromMask(mask, []item.Stack{stone, stick, coal, stick, stone})
	if err != nil {
		t.Fatalf("FromMask: %v", err)
	}
	want := Grid{stone, empty, stick, empty, coal, empty, stick, empty, stone}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("grid mismatch (-want +got):\n%s", diff)
	}
	if _, err := FromMask(mask, []item.Stack{stone}); !errors.Is(err, ErrMaskMismatch) {
		t.Fatalf("err=%v want ErrMaskMismatch", err)
	}
}

func TestOccupied(t *testing.T) {
	g := Reshape([]item.Stack{stick, stone}, 1, 2)
	if diff := cmp.Diff([]int{0, 3}, g.Occupied()); diff != "" {
		t.Fatalf("occupied mismatch (-want +got):\n%s", diff)
	}
	if g.Count() != 2 {
		t.Fatalf("Count()=%d want 2", g.Count())
	}
}
