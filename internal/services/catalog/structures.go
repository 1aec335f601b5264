package catalog

import "github.com/mcoot/topple/internal/model"

// Cell codes: 0 empty, 1 vertical, 2 horizontal. Layers run bottom to top,
// columns right to left.
var builtinGrids = [][][]int{
	{{1, 1, 1, 1}, {2, 0, 2, 0}, {0, 2, 0, 0}, {0, 1, 1, 0}, {0, 2, 0, 0}},
	{{1, 1}, {2, 0}, {1, 1}},
	{{2, 0, 2, 0}, {1, 1, 1, 1}, {0, 2, 0, 0}, {0, 1, 2, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}},
	{{1, 1}, {2, 0}, {1, 1}, {2, 0}, {1, 1}, {2, 0}},
	{{1, 1, 1}, {2, 0, 0}, {0, 1, 1}, {0, 2, 0}},
	{{2, 0, 2, 0}, {1, 1, 1, 1}, {2, 0, 2, 0}, {1, 1, 1, 1}, {0, 2, 0, 0}},
	{{1, 1, 1, 1}, {2, 0, 2, 0}, {1, 1, 1, 1}, {2, 0, 2, 0}},
	{{2, 0, 0}, {2, 0, 0}, {1, 1, 1}, {0, 2, 0}, {1, 0, 0}, {1, 0, 0}},
	{{1, 1, 1, 1, 1, 1}, {1, 2, 0, 2, 0, 1}, {0, 1, 2, 0, 1, 0}, {0, 0, 1, 1, 0, 0}, {0, 0, 2, 0, 0, 0}},
}

// Builtin returns the structures shipped with the game, numbered from 1
func Builtin() []model.Structure {
	structures := make([]model.Structure, len(builtinGrids))
	for i, grid := range builtinGrids {
		structures[i] = model.NewStructure(i+1, grid)
	}
	return structures
}
