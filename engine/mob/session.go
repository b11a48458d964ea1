package mob

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/mobcore/config"
	"github.com/nathoo/mobcore/logger"
	"github.com/nathoo/mobcore/types"
)

// Whistle is the whistle input of the current frame.
type Whistle struct {
	Active   bool
	Center   types.Point
	Radius   float64
	LeaderID int
}

// Severer drops whatever a subsystem holds about a mob being removed.
type Severer func(s *Session, m *Mob)

// Session is the simulation context. Everything that would otherwise be
// process-wide lives here.
type Session struct {
	Defs     *types.Defs
	Sim      config.Sim
	Runner   Runner
	Planner  Planner
	Feedback Feedback
	Animator Animator
	Rand     Rand
	Whistle  Whistle
	Frame    int

	mobs       map[int]*Mob
	order      []int
	nextID     int
	severers   []Severer
	archetypes map[string]ArchetypeFactory
}

// NewSession creates an empty arena over the given content.
func NewSession(defs *types.Defs, sim config.Sim) *Session {
	if defs == nil {
		defs = &types.Defs{}
	}
	return &Session{
		Defs:       defs,
		Sim:        sim,
		Planner:    DirectPlanner{},
		Feedback:   NopFeedback{},
		Animator:   NopAnimator{},
		mobs:       map[int]*Mob{},
		archetypes: defaultArchetypes(),
	}
}

// AddSeverer registers a hook run by Delete before a mob leaves the arena.
func (s *Session) AddSeverer(f Severer) {
	s.severers = append(s.severers, f)
}

// Fire runs an event on a mob's script.
func (s *Session) Fire(m *Mob, ev types.EventType, data1, data2 any) {
	if s.Runner == nil || m == nil || m.removed {
		return
	}
	s.Runner.Run(s, m, ev, data1, data2)
}

// SetState changes a mob's state through the runner.
func (s *Session) SetState(m *Mob, idx int, data1, data2 any) bool {
	if s.Runner == nil {
		return false
	}
	return s.Runner.SetState(s, m, idx, data1, data2)
}

// Spawn creates a mob of the named type and enters its first state.
func (s *Session) Spawn(typeName string, pos types.Point, angle float64) (*Mob, error) {
	return s.SpawnWithVars(typeName, pos, angle, nil)
}

// SpawnWithVars is Spawn with extra script variables layered over the
// type's own before the first state is entered.
func (s *Session) SpawnWithVars(typeName string, pos types.Point, angle float64, vars map[string]string) (*Mob, error) {
	return s.spawn(typeName, pos, angle, vars, nil)
}

// SpawnChild spawns one of a mob's declared spawns relative to it.
func (s *Session) SpawnChild(parent *Mob, def types.SpawnDef) (*Mob, error) {
	pos := Add(parent.Pos, Rotate(def.Offset, parent.Angle))
	child, err := s.spawn(def.Type, pos, parent.Angle+def.Angle, nil, func(c *Mob) {
		switch def.Relation {
		case types.RelationChild:
			c.Parent = &ParentInfo{
				ID:             parent.ID,
				HandleEvents:   def.HandleEvents,
				RelayEvents:    def.RelayEvents,
				HandleStatuses: def.HandleStatuses,
				RelayStatuses:  def.RelayStatuses,
				HandleDamage:   def.HandleDamage,
				RelayDamage:    def.RelayDamage,
			}
		case types.RelationLink:
			s.Link(parent, c)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("spawn %q: %w", def.Name, err)
	}
	return child, nil
}

func (s *Session) spawn(typeName string, pos types.Point, angle float64, vars map[string]string, prepare func(*Mob)) (*Mob, error) {
	t, ok := s.Defs.MobTypes[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown mob type %q", typeName)
	}

	s.nextID++
	m := &Mob{
		ID:            s.nextID,
		Type:          t,
		Pos:           pos,
		Home:          pos,
		Angle:         angle,
		IntendedAngle: angle,
		Health:        t.MaxHealth,
		MaxHealth:     t.MaxHealth,
		Vars:          make(map[string]string, len(t.Vars)+len(vars)),
		FSM:           FSMState{Cur: types.StateInvalid},
		GroupSpot:     -1,
		CarrySpot:     -1,
	}
	for k, v := range t.Vars {
		m.Vars[k] = v
	}
	for k, v := range vars {
		m.Vars[k] = v
	}
	m.Archetype = s.archetypeFor(t.Category)

	s.mobs[m.ID] = m
	s.order = append(s.order, m.ID)

	if prepare != nil {
		prepare(m)
	}
	m.Archetype.OnSpawn(s, m)
	if s.Runner != nil {
		s.Runner.Start(s, m)
	}

	logger.Log.WithFields(logrus.Fields{"mob": m.ID, "type": t.Name}).Debug("spawned")
	return m, nil
}

// Get returns a mob by id, including one flagged for deletion.
func (s *Session) Get(id int) *Mob {
	if id == 0 {
		return nil
	}
	return s.mobs[id]
}

// Live returns a mob by id unless it is missing or flagged for deletion.
func (s *Session) Live(id int) *Mob {
	m := s.Get(id)
	if !m.Live() {
		return nil
	}
	return m
}

// Mobs returns every mob in arena order.
func (s *Session) Mobs() []*Mob {
	out := make([]*Mob, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.mobs[id])
	}
	return out
}

// IDs returns a copy of the arena order.
func (s *Session) IDs() []int {
	return slices.Clone(s.order)
}

// Len is the number of mobs in the arena.
func (s *Session) Len() int {
	return len(s.order)
}

// Delete removes a mob after severing every relation pointing at it.
func (s *Session) Delete(m *Mob) {
	if m == nil || m.removed {
		return
	}
	m.ToDelete = true

	for _, sever := range s.severers {
		sever(s, m)
	}

	for _, id := range s.IDs() {
		o := s.mobs[id]
		if o == nil || o == m {
			continue
		}
		if o.FocusID == m.ID {
			s.Fire(o, types.EvFocusedMobUnavailable, m, nil)
			s.Fire(o, types.EvFocusOffReach, m, nil)
			s.Fire(o, types.EvFocusDied, m, nil)
			o.FocusID = 0
		}
		if o.Parent != nil && o.Parent.ID == m.ID {
			o.ToDelete = true
		}
		o.Links = slices.DeleteFunc(o.Links, func(l int) bool { return l == m.ID })
		if o.Chase.Target.MobID == m.ID {
			o.Chase = ChaseInfo{}
			o.Path = nil
		}
		if o.Circle != nil && o.Circle.CenterMob == m.ID {
			o.Circle = nil
			o.Chase = ChaseInfo{}
		}
	}

	if holder := s.Get(m.HolderID); holder != nil {
		s.Release(holder, m)
	}
	for _, id := range slices.Clone(m.Holding) {
		if held := s.Get(id); held != nil {
			s.Release(m, held)
		}
	}

	if s.Runner != nil {
		s.Runner.Leave(s, m)
	}

	m.removed = true
	delete(s.mobs, m.ID)
	s.order = slices.DeleteFunc(s.order, func(id int) bool { return id == m.ID })
	logger.Log.WithFields(logrus.Fields{"mob": m.ID, "type": m.Type.Name}).Debug("deleted")
}

// Sweep deletes every mob flagged for deletion, in arena order, until
// none remain. It returns the removed ids.
func (s *Session) Sweep() []int {
	var deleted []int
	for {
		var flagged []*Mob
		for _, id := range s.order {
			if m := s.mobs[id]; m.ToDelete {
				flagged = append(flagged, m)
			}
		}
		if len(flagged) == 0 {
			return deleted
		}
		for _, m := range flagged {
			if m.removed {
				continue
			}
			s.Delete(m)
			deleted = append(deleted, m.ID)
		}
	}
}
