package model

import "strings"

// Orientation is how a brick sits within its structure cell
type Orientation int

const (
	BrickEmpty      Orientation = 0
	BrickVertical   Orientation = 1
	BrickHorizontal Orientation = 2
)

// String returns a short name for the orientation
func (o Orientation) String() string {
	switch o {
	case BrickEmpty:
		return "empty"
	case BrickVertical:
		return "vertical"
	case BrickHorizontal:
		return "horizontal"
	default:
		return "unknown"
	}
}

// Layer is one row of a structure, ordered right to left
type Layer []Orientation

// HasVertical reports whether any cell in the layer holds a vertical brick
func (l Layer) HasVertical() bool {
	for _, o := range l {
		if o == BrickVertical {
			return true
		}
	}
	return false
}

// BrickCount returns the number of non-empty cells in the layer
func (l Layer) BrickCount() int {
	n := 0
	for _, o := range l {
		if o != BrickEmpty {
			n++
		}
	}
	return n
}

// Structure is an immutable brick layout. Layers run bottom to top.
type Structure struct {
	ID     int     `json:"id"`
	Layers []Layer `json:"layers"`
}

// NewStructure builds a structure from raw orientation codes
func NewStructure(id int, grid [][]int) Structure {
	layers := make([]Layer, len(grid))
	for i, row := range grid {
		layers[i] = make(Layer, len(row))
		for j, cell := range row {
			layers[i][j] = Orientation(cell)
		}
	}
	return Structure{ID: id, Layers: layers}
}

// LayerCount returns the number of layers
func (s Structure) LayerCount() int {
	return len(s.Layers)
}

// BrickCount returns the number of brick instances the structure produces
func (s Structure) BrickCount() int {
	n := 0
	for _, l := range s.Layers {
		n += l.BrickCount()
	}
	return n
}

// BricksBelow returns the number of bricks in all layers below the given layer index
func (s Structure) BricksBelow(layer int) int {
	n := 0
	for i := 0; i < layer && i < len(s.Layers); i++ {
		n += s.Layers[i].BrickCount()
	}
	return n
}

// Validate checks that every cell holds a known orientation and at least one brick exists
func (s Structure) Validate() error {
	for _, l := range s.Layers {
		for _, o := range l {
			if o < BrickEmpty || o > BrickHorizontal {
				return ErrInvalidStructure
			}
		}
	}
	if s.BrickCount() == 0 {
		return ErrInvalidStructure
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate catalog templates
func (s Structure) Clone() Structure {
	layers := make([]Layer, len(s.Layers))
	for i, l := range s.Layers {
		layers[i] = append(Layer(nil), l...)
	}
	return Structure{ID: s.ID, Layers: layers}
}

// Render draws the structure top layer first, rightmost cell last.
// '|' is a vertical brick, '=' a horizontal brick, '.' an empty cell.
func (s Structure) Render() string {
	var b strings.Builder
	for i := len(s.Layers) - 1; i >= 0; i-- {
		l := s.Layers[i]
		for j := len(l) - 1; j >= 0; j-- {
			switch l[j] {
			case BrickVertical:
				b.WriteByte('|')
			case BrickHorizontal:
				b.WriteByte('=')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// BrickRef tags a brick instance with its source cell
type BrickRef struct {
	Layer       int         `json:"layer"`
	Column      int         `json:"column"`
	Orientation Orientation `json:"orientation"`
}

// Bricks enumerates brick instances in flattened order (layer by layer, column by column)
func (s Structure) Bricks() []BrickRef {
	refs := make([]BrickRef, 0, s.BrickCount())
	for i, l := range s.Layers {
		for j, o := range l {
			if o != BrickEmpty {
				refs = append(refs, BrickRef{Layer: i, Column: j, Orientation: o})
			}
		}
	}
	return refs
}
