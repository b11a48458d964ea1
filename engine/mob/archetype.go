package mob

import "github.com/nathoo/mobcore/types"

// Archetype carries the per-category behavior a mob type cannot express
// through its script.
type Archetype interface {
	OnSpawn(s *Session, m *Mob)
	CanReceiveStatus(m *Mob, st *types.StatusTypeDef) bool
}

// ArchetypeFactory builds the archetype for one new mob.
type ArchetypeFactory func() Archetype

// Base is the default archetype. Statuses are accepted according to the
// category they list in their affects mask.
type Base struct {
	Affects types.StatusAffects
}

func (Base) OnSpawn(*Session, *Mob) {}

func (b Base) CanReceiveStatus(_ *Mob, st *types.StatusTypeDef) bool {
	if st.Affects == 0 {
		return true
	}
	mask := b.Affects
	if mask == 0 {
		mask = types.AffectsOthers
	}
	return st.Affects&mask != 0
}

// Leader is the archetype of mobs that lead a group.
type Leader struct{ Base }

func (Leader) OnSpawn(_ *Session, m *Mob) {
	if m.Group == nil {
		m.Group = &GroupInfo{Anchor: m.Pos}
	}
}

// RegisterArchetype binds a category name to an archetype factory.
func (s *Session) RegisterArchetype(category string, f ArchetypeFactory) {
	s.archetypes[category] = f
}

func (s *Session) archetypeFor(category string) Archetype {
	if f, ok := s.archetypes[category]; ok {
		return f()
	}
	return Base{}
}

func defaultArchetypes() map[string]ArchetypeFactory {
	return map[string]ArchetypeFactory{
		"leader":  func() Archetype { return Leader{Base{Affects: types.AffectsLeaders}} },
		"carrier": func() Archetype { return Base{Affects: types.AffectsCarriers} },
		"enemy":   func() Archetype { return Base{Affects: types.AffectsEnemies} },
	}
}
