package opponent

import "github.com/mcoot/topple/internal/model"

// Strategy decides which brick the opponent aims at
type Strategy interface {
	// Name identifies the strategy in logs and events
	Name() string
	// TargetIndex returns the index into the flattened brick list to aim at
	TargetIndex(structure model.Structure) int
}

// FoundationStrategy aims at the first brick of the structure
type FoundationStrategy struct{}

// Name returns "foundation"
func (FoundationStrategy) Name() string { return "foundation" }

// TargetIndex returns 0, the lowest rightmost brick
func (FoundationStrategy) TargetIndex(model.Structure) int { return 0 }

// CenterStrategy aims at the first brick of the middle layer
type CenterStrategy struct{}

// Name returns "center"
func (CenterStrategy) Name() string { return "center" }

// TargetIndex maps the middle layer (rounded down) to a flattened brick index
func (CenterStrategy) TargetIndex(structure model.Structure) int {
	centerLayer := (structure.LayerCount() - 1) / 2
	return structure.BricksBelow(centerLayer)
}

// IsTall reports whether the structure has at least minLayers layers and at
// least half of its layers hold a vertical brick
func IsTall(structure model.Structure, minLayers int) bool {
	layers := structure.LayerCount()
	if layers < minLayers {
		return false
	}
	vertical := 0
	for _, l := range structure.Layers {
		if l.HasVertical() {
			vertical++
		}
	}
	return float64(vertical) >= float64(layers)/2
}

// SelectStrategy returns the foundation strategy for tall structures and the
// center strategy otherwise
func SelectStrategy(structure model.Structure, minLayers int) Strategy {
	if IsTall(structure, minLayers) {
		return FoundationStrategy{}
	}
	return CenterStrategy{}
}
