package physics

import (
	"log/slog"
	"math"
	"sync"

	"github.com/mcoot/topple/internal/dependencies/clock"
	"github.com/mcoot/topple/internal/model"
)

const (
	// contactTolerance is how close a brick bottom must be to a supporting top to rest on it
	contactTolerance = 0.02
	// lostDepth is the height below which a falling brick is frozen and no longer simulated
	lostDepth = -1000.0
)

type brick struct {
	ref     model.BrickRef
	pos     model.Vec3
	vel     model.Vec3
	half    model.Vec3
	resting bool
	lost    bool
	lastHit float64
}

func (b *brick) bottom() float64 { return b.pos.Y - b.half.Y }
func (b *brick) top() float64    { return b.pos.Y + b.half.Y }

// overlapsX reports whether the horizontal extents of a and b intersect
func overlapsX(a, b *brick) bool {
	return a.pos.X-a.half.X < b.pos.X+b.half.X-1e-6 && b.pos.X-b.half.X < a.pos.X+a.half.X-1e-6
}

type projectile struct {
	pos      model.Vec3
	vel      model.Vec3
	launched bool
	grounded bool
	outside  bool
}

// SimWorld is a deterministic rigid body approximation of the game scene.
// It steps on the injected clock once Start is called, or manually via Step.
type SimWorld struct {
	mu     sync.Mutex
	cfg    Config
	clock  clock.Clock
	logger *slog.Logger

	stepper clock.Timer
	simTime float64

	bricks     []*brick
	projectile projectile

	handlers    map[int]CollisionHandler
	nextHandler int
}

// Ensure SimWorld implements World
var _ World = (*SimWorld)(nil)

// NewSimWorld creates an empty world with the projectile at its origin
func NewSimWorld(cfg Config, clk clock.Clock, logger *slog.Logger) *SimWorld {
	return &SimWorld{
		cfg:        cfg,
		clock:      clk,
		logger:     logger.With(slog.String("component", "sim-world")),
		projectile: projectile{pos: cfg.ProjectileOrigin},
		handlers:   make(map[int]CollisionHandler),
	}
}

// Start begins fixed-rate stepping on the clock. Calling Start twice is a no-op.
func (w *SimWorld) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stepper != nil {
		return
	}
	w.stepper = clock.Repeat(w.clock, w.cfg.Step, w.Step)
}

// Stop halts stepping
func (w *SimWorld) Stop() {
	w.mu.Lock()
	stepper := w.stepper
	w.stepper = nil
	w.mu.Unlock()
	if stepper != nil {
		stepper.Stop()
	}
}

// InitializeRound replaces all bricks with a fresh copy of the structure and parks the projectile
func (w *SimWorld) InitializeRound(structure model.Structure) {
	w.mu.Lock()
	defer w.mu.Unlock()

	placements := Layout(structure, w.cfg)
	w.bricks = make([]*brick, len(placements))
	for i, p := range placements {
		w.bricks[i] = &brick{ref: p.Ref, pos: p.Center, half: p.Half, resting: true, lastHit: math.Inf(-1)}
	}
	w.projectile = projectile{pos: w.cfg.ProjectileOrigin}

	w.logger.Debug("round initialized",
		slog.Int("structure_id", structure.ID),
		slog.Int("bricks", len(w.bricks)),
	)
}

// ApplyLaunchImpulse converts the impulse direction*power into projectile velocity
func (w *SimWorld) ApplyLaunchImpulse(direction model.Vec3, power float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.projectile = projectile{
		pos:      w.cfg.ProjectileOrigin,
		vel:      direction.Scale(power / w.cfg.ProjectileMass),
		launched: true,
	}
	for _, b := range w.bricks {
		b.lastHit = math.Inf(-1)
	}
}

// ProjectilePosition returns the projectile centre
func (w *SimWorld) ProjectilePosition() model.Vec3 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.projectile.pos
}

// BrickPositions returns every brick centre in flattened structure order
func (w *SimWorld) BrickPositions() []model.Vec3 {
	w.mu.Lock()
	defer w.mu.Unlock()
	positions := make([]model.Vec3, len(w.bricks))
	for i, b := range w.bricks {
		positions[i] = b.pos
	}
	return positions
}

// IsProjectileAtRest reports whether the projectile speed is below the rest epsilon
func (w *SimWorld) IsProjectileAtRest() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.projectile.launched || w.projectile.vel.Length() < w.cfg.RestEpsilon
}

// IsStructureAtRest reports whether every brick speed is below the rest epsilon
func (w *SimWorld) IsStructureAtRest() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, b := range w.bricks {
		if !b.lost && b.vel.Length() >= w.cfg.RestEpsilon {
			return false
		}
	}
	return true
}

// SubscribeCollisions registers a collision handler
func (w *SimWorld) SubscribeCollisions(h CollisionHandler) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextHandler
	w.nextHandler++
	w.handlers[id] = h
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.handlers, id)
	}
}

// Step advances the simulation by one fixed timestep and then notifies
// collision subscribers outside the lock
func (w *SimWorld) Step() {
	w.mu.Lock()
	dt := w.cfg.Step.Seconds()
	w.simTime += dt
	events := w.stepProjectile(dt)
	w.stepBricks(dt)
	handlers := make([]CollisionHandler, 0, len(w.handlers))
	for _, h := range w.handlers {
		handlers = append(handlers, h)
	}
	w.mu.Unlock()

	for _, ev := range events {
		for _, h := range handlers {
			h(ev)
		}
	}
}

func (w *SimWorld) onGround(x float64) bool {
	return math.Abs(x) <= w.cfg.GroundHalfWidth
}

func (w *SimWorld) stepProjectile(dt float64) []CollisionEvent {
	p := &w.projectile
	if !p.launched || p.outside {
		return nil
	}

	var events []CollisionEvent
	r := w.cfg.ProjectileRadius

	p.vel.Y -= w.cfg.Gravity * dt
	p.pos = p.pos.Add(p.vel.Scale(dt))

	if w.onGround(p.pos.X) && p.pos.Y-r <= 0 && p.vel.Y <= 0 {
		p.pos.Y = r
		p.vel.Y = 0
		p.vel.X = towardZero(p.vel.X, w.cfg.ProjectileDrag*dt)
		p.vel.Z = towardZero(p.vel.Z, w.cfg.ProjectileDrag*dt)
		if !p.grounded {
			p.grounded = true
			events = append(events, CollisionEvent{Subject: TagProjectile, Other: TagGround})
		}
	}

	for _, b := range w.bricks {
		if b.lost {
			continue
		}
		closest := model.Vec3{
			X: clamp(p.pos.X, b.pos.X-b.half.X, b.pos.X+b.half.X),
			Y: clamp(p.pos.Y, b.pos.Y-b.half.Y, b.pos.Y+b.half.Y),
		}
		offset := model.Vec3{X: p.pos.X - closest.X, Y: p.pos.Y - closest.Y}
		dist := offset.Length()
		if dist >= r {
			continue
		}

		normal, ok := offset.Normalize()
		if !ok {
			// Centre is inside the box: push back against the direction of travel
			normal, ok = p.vel.Scale(-1).Normalize()
			if !ok {
				normal = model.Vec3{X: -1}
			}
		}
		p.pos = closest.Add(normal.Scale(r))
		p.pos.Z = 0

		if w.simTime-b.lastHit < w.cfg.ProjectileCooldown {
			continue
		}
		approach := dot(p.vel.Sub(b.vel), normal)
		if approach >= 0 {
			continue
		}
		mp, mb := w.cfg.ProjectileMass, w.cfg.BrickMass
		j := -(1 + w.cfg.ProjectileBounce) * approach / (1/mp + 1/mb)
		p.vel = p.vel.Add(normal.Scale(j / mp))
		b.vel = b.vel.Sub(normal.Scale(j / mb))
		b.resting = false
		b.lastHit = w.simTime
		events = append(events, CollisionEvent{Subject: TagProjectile, Other: TagStructure})
	}

	if math.Abs(p.pos.X) > w.cfg.BoundaryX || p.pos.Y < w.cfg.BoundaryMinY {
		p.outside = true
		p.vel = model.Vec3{}
		events = append(events, CollisionEvent{Subject: TagProjectile, Other: TagBoundary})
	}

	return events
}

func (w *SimWorld) stepBricks(dt float64) {
	for _, b := range w.bricks {
		if b.lost {
			continue
		}
		if b.resting {
			if w.supportUnder(b, b.bottom()) == b.bottom() {
				continue
			}
			b.resting = false
		}

		prevBottom := b.bottom()
		b.vel.Y -= w.cfg.Gravity * dt
		b.pos = b.pos.Add(b.vel.Scale(dt))

		support := w.supportUnder(b, prevBottom)
		supported := false
		if !math.IsInf(support, -1) && b.bottom() <= support {
			b.pos.Y = support + b.half.Y
			if b.vel.Y < 0 {
				b.vel.Y = 0
			}
			b.vel.X = towardZero(b.vel.X, w.cfg.GroundFriction*dt)
			b.vel.Z = towardZero(b.vel.Z, w.cfg.GroundFriction*dt)
			supported = true
		}

		w.pushNeighbours(b)

		if b.pos.Y < lostDepth {
			b.lost = true
			b.vel = model.Vec3{}
			continue
		}
		if supported && b.vel.Length() < w.cfg.RestEpsilon/2 {
			b.vel = model.Vec3{}
			b.resting = true
		}
	}
}

// supportUnder returns the highest surface under b whose top is at or below
// limit (plus tolerance), or -Inf if b would fall freely
func (w *SimWorld) supportUnder(b *brick, limit float64) float64 {
	best := math.Inf(-1)
	if w.onGround(b.pos.X) && limit >= -contactTolerance {
		best = 0
	}
	for _, o := range w.bricks {
		if o == b || o.lost || !overlapsX(b, o) {
			continue
		}
		top := o.top()
		if top <= limit+contactTolerance && top > best {
			best = top
		}
	}
	if !math.IsInf(best, -1) && math.Abs(best-limit) <= contactTolerance {
		return limit
	}
	return best
}

// pushNeighbours hands half of b's horizontal momentum to any brick it runs into
func (w *SimWorld) pushNeighbours(b *brick) {
	if b.vel.X == 0 {
		return
	}
	for _, o := range w.bricks {
		if o == b || o.lost || !overlapsX(b, o) {
			continue
		}
		if b.bottom() >= o.top()-contactTolerance || o.bottom() >= b.top()-contactTolerance {
			continue
		}
		ahead := (o.pos.X - b.pos.X) * b.vel.X
		if ahead <= 0 {
			continue
		}
		share := b.vel.X / 2
		o.vel.X += share
		o.resting = false
		b.vel.X -= share

		// Separate along x so the pair does not re-collide next step
		gap := b.half.X + o.half.X - math.Abs(o.pos.X-b.pos.X)
		if share > 0 {
			b.pos.X -= gap
		} else {
			b.pos.X += gap
		}
	}
}

func dot(a, b model.Vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// towardZero reduces |v| by amount without crossing zero
func towardZero(v, amount float64) float64 {
	if v > 0 {
		return math.Max(0, v-amount)
	}
	return math.Min(0, v+amount)
}
