// Package grid lays recipe ingredients out on the 3x3 crafting grid.
// Cells are row-major: row 0 is 0..2, row 1 is 3..5, row 2 is 6..8.
package grid

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"decraft.ai/internal/uncraft/item"
)

const (
	Width = 3
	Size  = Width * Width
)

var (
	ErrTooManyIngredients = errors.New("grid: more than 9 ingredients")
	ErrMaskMismatch       = errors.New("grid: mask does not match ingredient count")
)

// Grid always has exactly Size cells; unused cells hold empty stacks.
type Grid [Size]item.Stack

// Reshape places a w*h shaped recipe top-left aligned: flat index row*w+col
// goes to cell row*3+col. Callers guarantee len(items) == w*h and 1 <= w,h <= 3.
func Reshape(items []item.Stack, w, h int) Grid {
	if w < 1 || w > Width || h < 1 || h > Width || len(items) != w*h {
		panic(fmt.Sprintf("grid: reshape %d items as %dx%d", len(items), w, h))
	}
	var g Grid
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			g[row*Width+col] = items[row*w+col]
		}
	}
	return g
}

// FromList fills cells 0..n-1 in order (shapeless layout).
func FromList(items []item.Stack) (Grid, error) {
	var g Grid
	if len(items) > Size {
		return g, fmt.Errorf("%w: %d", ErrTooManyIngredients, len(items))
	}
	copy(g[:], items)
	return g, nil
}

// MaskBit returns the mask bit for cell i; cell 0 is the highest of the nine bits.
func MaskBit(i int) uint16 { return 1 << uint(Size-1-i) }

// FromMask fills the cells whose mask bit is set, in cell order, with the
// next item. Only the low nine bits of mask are read.
func FromMask(mask uint16, items []item.Stack) (Grid, error) {
	var g Grid
	mask &= 1<<Size - 1
	if bits.OnesCount16(mask) != len(items) {
		return g, fmt.Errorf("%w: %d bits, %d items", ErrMaskMismatch, bits.OnesCount16(mask), len(items))
	}
	j := 0
	for i := 0; i < Size; i++ {
		if mask&MaskBit(i) == 0 {
			continue
		}
		g[i] = items[j]
		j++
	}
	return g, nil
}

// Occupied lists the indexes of non-empty cells.
func (g Grid) Occupied() []int {
	var out []int
	for i, s := range g {
		if !s.IsEmpty() {
			out = append(out, i)
		}
	}
	return out
}

func (g Grid) Count() int { return len(g.Occupied()) }

func (g Grid) String() string {
	var b strings.Builder
	for row := 0; row < Width; row++ {
		if row > 0 {
			b.WriteString(" / ")
		}
		for col := 0; col < Width; col++ {
			if col > 0 {
				b.WriteString(", ")
			}
			b.WriteString(g[row*Width+col].String())
		}
	}
	return b.String()
}
