package catalog

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/mcoot/topple/internal/dependencies/random"
	"github.com/mcoot/topple/internal/model"
)

// Catalog holds the immutable structure templates available to matches
type Catalog struct {
	structures map[int]model.Structure
	order      []int
}

// New creates a Catalog from the given templates. Every template must be valid
// and IDs must be unique.
func New(structures []model.Structure) (*Catalog, error) {
	if len(structures) == 0 {
		return nil, model.ErrEmptyCatalog
	}

	c := &Catalog{structures: make(map[int]model.Structure, len(structures))}
	for _, s := range structures {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("structure %d: %w", s.ID, err)
		}
		if _, exists := c.structures[s.ID]; exists {
			return nil, fmt.Errorf("structure %d: %w: duplicate id", s.ID, model.ErrInvalidStructure)
		}
		c.structures[s.ID] = s.Clone()
		c.order = append(c.order, s.ID)
	}
	sort.Ints(c.order)
	return c, nil
}

// NewDefault creates a Catalog of the built-in structures
func NewDefault() *Catalog {
	c, err := New(Builtin())
	if err != nil {
		panic(fmt.Sprintf("builtin structures are invalid: %v", err))
	}
	return c
}

// Get returns a copy of the structure with the given ID
func (c *Catalog) Get(id int) (model.Structure, error) {
	s, ok := c.structures[id]
	if !ok {
		return model.Structure{}, model.ErrStructureNotFound
	}
	return s.Clone(), nil
}

// All returns copies of every structure ordered by ID
func (c *Catalog) All() []model.Structure {
	result := make([]model.Structure, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, c.structures[id].Clone())
	}
	return result
}

// Len returns the number of templates
func (c *Catalog) Len() int {
	return len(c.order)
}

// Pool is the per-game set of not-yet-played structures. It is not safe for
// concurrent use; each Engine owns its own Pool.
type Pool struct {
	catalog   *Catalog
	random    random.Random
	logger    *slog.Logger
	remaining []int
	last      int
	hasLast   bool
}

// NewPool creates a full pool drawing from the catalog
func NewPool(c *Catalog, rng random.Random, logger *slog.Logger) *Pool {
	p := &Pool{
		catalog: c,
		random:  rng,
		logger:  logger.With(slog.String("component", "structure-pool")),
	}
	p.Reset()
	return p
}

// Reset refills the pool with every template and forgets the last draw
func (p *Pool) Reset() {
	p.remaining = append(p.remaining[:0], p.catalog.order...)
	p.hasLast = false
}

// Remaining returns how many structures can be drawn before the pool recycles
func (p *Pool) Remaining() int {
	return len(p.remaining)
}

// Draw removes and returns a random structure. An exhausted pool is refilled
// from the catalog, leaving out the structure drawn last so the same layout
// is never played twice in a row.
func (p *Pool) Draw() model.Structure {
	if len(p.remaining) == 0 {
		p.refill()
	}

	i := p.random.Intn(len(p.remaining))
	if i < 0 || i >= len(p.remaining) {
		i = 0
	}
	id := p.remaining[i]
	p.remaining = append(p.remaining[:i], p.remaining[i+1:]...)
	p.last, p.hasLast = id, true

	s, _ := p.catalog.Get(id)
	return s
}

func (p *Pool) refill() {
	for _, id := range p.catalog.order {
		if p.hasLast && id == p.last && p.catalog.Len() > 1 {
			continue
		}
		p.remaining = append(p.remaining, id)
	}
	p.logger.Debug("structure pool recycled", slog.Int("size", len(p.remaining)))
}
