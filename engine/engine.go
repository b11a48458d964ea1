// Package engine provides the Tick() coordinator that wires together the
// interpreter, movement, statuses, groups and carrying into a single
// frame.
package engine

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/mobcore/config"
	"github.com/nathoo/mobcore/engine/actions"
	"github.com/nathoo/mobcore/engine/carry"
	"github.com/nathoo/mobcore/engine/fsm"
	"github.com/nathoo/mobcore/engine/group"
	"github.com/nathoo/mobcore/engine/mob"
	"github.com/nathoo/mobcore/engine/movement"
	"github.com/nathoo/mobcore/engine/pathnet"
	"github.com/nathoo/mobcore/engine/status"
	"github.com/nathoo/mobcore/logger"
	"github.com/nathoo/mobcore/types"
)

// CategoryTreasure is the category of mobs that can be carried from the
// moment they spawn.
const CategoryTreasure = "treasure"

// Engine holds the content, the session and the collaborators it was
// wired with.
type Engine struct {
	Defs    *types.Defs
	Config  config.Config
	Session *mob.Session
	Interp  *fsm.Interpreter
	Paths   *pathnet.Graph
	RNG     *RNG

	events []types.FiredEvent
}

// New creates an engine over loaded content and spawns its placements.
func New(defs *types.Defs, cfg config.Config) (*Engine, error) {
	e := &Engine{
		Defs:   defs,
		Config: cfg,
		Interp: fsm.New(),
		Paths:  pathnet.New(defs.PathStops),
		RNG:    NewRNG(cfg.Seed),
	}
	actions.Register(e.Interp)
	e.Interp.SetTrace(func(ev types.FiredEvent) {
		e.events = append(e.events, ev)
	})

	s := mob.NewSession(defs, cfg.Sim)
	s.Runner = e.Interp
	s.Planner = e.Paths
	s.Rand = e.RNG
	s.AddSeverer(group.Sever)
	s.AddSeverer(carry.Sever)
	s.RegisterArchetype(CategoryTreasure, func() mob.Archetype { return carry.Carriable{} })
	e.Session = s

	if err := e.place(); err != nil {
		return nil, err
	}
	return e, nil
}

// place spawns every placement, then links them once all exist.
func (e *Engine) place() error {
	placed := make([]*mob.Mob, len(e.Defs.Placements))
	for i, p := range e.Defs.Placements {
		m, err := e.Session.SpawnWithVars(p.Type, p.Pos, p.Angle, p.Vars)
		if err != nil {
			return fmt.Errorf("placement %d: %w", i+1, err)
		}
		placed[i] = m
	}
	for i, p := range e.Defs.Placements {
		for _, j := range p.Links {
			if j < 0 || j >= len(placed) {
				return fmt.Errorf("placement %d: link to unknown placement %d", i+1, j+1)
			}
			e.Session.Link(placed[i], placed[j])
		}
	}
	return nil
}

// RestoreRNG re-creates the RNG from seed and advances to the saved position.
func (e *Engine) RestoreRNG(seed int64, position int64) {
	e.RNG = RestoreRNG(seed, position)
	e.Session.Rand = e.RNG
}

// Tick advances the simulation by one frame and returns what happened.
// Events fired between frames by the driver are reported with the next
// frame.
func (e *Engine) Tick(dt float64) types.TickResult {
	s := e.Session

	// 1. Every mob that existed when the frame began, in list order.
	for _, m := range s.Mobs() {
		if m.Live() {
			e.tickMob(m, dt)
		}
	}

	// 2. End-of-frame deletion.
	deleted := s.Sweep()

	result := types.TickResult{
		Frame:   s.Frame,
		Events:  slices.Clone(e.events),
		Deleted: deleted,
	}
	e.events = e.events[:0]

	// 3. Advance the frame counter.
	s.Frame++
	return result
}

// tickMob runs the per-mob phases. A deletion flag raised by any phase
// skips the rest.
func (e *Engine) tickMob(m *mob.Mob, dt float64) {
	s := e.Session
	phases := []func(*mob.Mob, float64){
		func(m *mob.Mob, dt float64) { movement.TickBrain(s, m, dt) },
		func(m *mob.Mob, dt float64) { movement.TickPhysics(s, m, dt) },
		e.tickMisc,
		e.tickAnimation,
		e.tickScript,
	}
	for _, phase := range phases {
		phase(m, dt)
		if m.ToDelete {
			return
		}
	}
}

func (e *Engine) tickMisc(m *mob.Mob, dt float64) {
	s := e.Session
	if m.TimeAlive == 0 {
		s.Fire(m, types.EvOnReady, nil, nil)
		if m.ToDelete {
			return
		}
	}
	m.TimeAlive += dt

	status.Tick(s, m, dt)
	status.Sweep(s, m)
	carry.Tick(s, m)
	if m.Group != nil && len(m.Group.Members) > 0 {
		group.Tick(s, m, dt)
	}
}

func (e *Engine) tickAnimation(m *mob.Mob, dt float64) {
	if m.Anim.Frozen {
		return
	}
	m.Anim.Elapsed += dt
	if e.Session.Animator.Advance(m, dt) {
		e.Session.Fire(m, types.EvAnimationEnd, nil, nil)
	}
}

// tickScript raises the condition-driven events, then on_tick. Each check
// runs only while the mob is still live.
func (e *Engine) tickScript(m *mob.Mob, dt float64) {
	s := e.Session
	checks := []func(){
		func() { e.checkTimer(m, dt) },
		func() {
			if m.MaxHealth > 0 && m.Health <= 0 {
				s.Fire(m, types.EvZeroHealth, nil, nil)
			}
		},
		func() { e.checkFocus(m) },
		func() { e.checkItch(m, dt) },
		func() {
			if m.Type.HealthRegen > 0 && m.Health > 0 {
				s.SetHealth(m, m.Health+m.Type.HealthRegen*dt)
			}
		},
		func() { e.checkWhistle(m) },
		func() { e.checkSpot(m) },
		func() {
			if r := m.Type.TerritoryRadius; r > 0 && mob.Dist(m.Pos, m.Home) > r {
				s.Fire(m, types.EvFarFromHome, nil, nil)
			}
		},
		func() { s.Fire(m, types.EvOnTick, nil, nil) },
	}
	for _, check := range checks {
		check()
		if m.ToDelete {
			return
		}
	}
}

func (e *Engine) checkTimer(m *mob.Mob, dt float64) {
	if m.Timer.Left <= 0 {
		return
	}
	m.Timer.Left -= dt
	if m.Timer.Left <= 0 {
		m.Timer.Left = 0
		e.Session.Fire(m, types.EvTimer, nil, nil)
	}
}

func (e *Engine) checkFocus(m *mob.Mob) {
	s := e.Session
	f := s.Live(m.FocusID)
	if f == nil {
		return
	}
	switch {
	case f.MaxHealth > 0 && f.Health <= 0:
		s.Fire(m, types.EvFocusDied, f, nil)
	case m.Type.Reach > 0 && mob.Dist(m.Pos, f.Pos) > m.Type.Reach:
		s.Fire(m, types.EvFocusOffReach, f, nil)
	}
}

// checkItch raises on_itch once enough damage piled up over enough time.
func (e *Engine) checkItch(m *mob.Mob, dt float64) {
	if m.Type.ItchDamage <= 0 {
		return
	}
	m.ItchTime += dt
	if m.ItchDamage < m.Type.ItchDamage || m.ItchTime < m.Type.ItchTime {
		return
	}
	m.ItchDamage = 0
	m.ItchTime = 0
	e.Session.Fire(m, types.EvItch, nil, nil)
}

func (e *Engine) checkWhistle(m *mob.Mob) {
	s := e.Session
	w := s.Whistle
	if !w.Active || m.ID == w.LeaderID || mob.Dist(m.Pos, w.Center) > w.Radius {
		return
	}
	status.RemoveWhistleable(m)
	s.Fire(m, types.EvWhistled, s.Live(w.LeaderID), nil)
}

func (e *Engine) checkSpot(m *mob.Mob) {
	s := e.Session
	leader := s.Live(m.LeaderID)
	if leader == nil {
		return
	}
	p, ok := group.SpotPosition(s, leader, m.GroupSpot)
	if ok && mob.Dist(m.Pos, p) > s.Sim.SpotFarDist {
		s.Fire(m, types.EvSpotIsFar, p, nil)
	}
}

// History reports every mob's state history for postmortem diagnostics.
func (e *Engine) History() []string {
	var out []string
	for _, m := range e.Session.Mobs() {
		out = append(out, fmt.Sprintf("#%d %s: %s", m.ID, m.Type.Name, fsm.History(m)))
	}
	return out
}

// LogHistory writes the state history of every mob at warn, for crash
// reports.
func (e *Engine) LogHistory() {
	for _, m := range e.Session.Mobs() {
		logger.Log.WithFields(logrus.Fields{"mob": m.ID, "type": m.Type.Name}).Warn(fsm.History(m))
	}
}
