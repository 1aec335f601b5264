package physics

import "github.com/mcoot/topple/internal/model"

// BrickPlacement is the initial pose of one brick instance
type BrickPlacement struct {
	Ref    model.BrickRef
	Center model.Vec3
	Half   model.Vec3 // Half extents along each axis
}

// Layout places every brick of the structure. Columns run right to left from
// cfg.StructureX with a pitch of half a brick length, so a horizontal brick
// covers its own slot and the slot to its left.
func Layout(s model.Structure, cfg Config) []BrickPlacement {
	pitch := cfg.BrickHeight / 2
	placements := make([]BrickPlacement, 0, s.BrickCount())

	for _, ref := range s.Bricks() {
		var center, half model.Vec3
		switch ref.Orientation {
		case model.BrickVertical:
			half = model.Vec3{X: cfg.BrickWidth / 2, Y: cfg.BrickHeight / 2, Z: cfg.BrickDepth / 2}
			center.X = cfg.StructureX - float64(ref.Column)*pitch
			center.Y = columnHeight(s, ref.Layer, ref.Column, cfg) + half.Y
		case model.BrickHorizontal:
			half = model.Vec3{X: cfg.BrickHeight / 2, Y: cfg.BrickWidth / 2, Z: cfg.BrickDepth / 2}
			center.X = cfg.StructureX - (float64(ref.Column)+0.5)*pitch
			base := max(columnHeight(s, ref.Layer, ref.Column, cfg), columnHeight(s, ref.Layer, ref.Column+1, cfg))
			center.Y = base + half.Y
		}
		placements = append(placements, BrickPlacement{Ref: ref, Center: center, Half: half})
	}
	return placements
}

// columnHeight is the stacked height of everything below layer in the given column
func columnHeight(s model.Structure, layer, column int, cfg Config) float64 {
	height := 0.0
	for i := 0; i < layer && i < len(s.Layers); i++ {
		l := s.Layers[i]
		if cellAt(l, column) == model.BrickVertical {
			height += cfg.BrickHeight
		}
		if cellAt(l, column) == model.BrickHorizontal || cellAt(l, column-1) == model.BrickHorizontal {
			height += cfg.BrickWidth
		}
	}
	return height
}

func cellAt(l model.Layer, column int) model.Orientation {
	if column < 0 || column >= len(l) {
		return model.BrickEmpty
	}
	return l[column]
}
