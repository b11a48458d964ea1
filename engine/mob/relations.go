package mob

import (
	"math"
	"slices"

	"github.com/nathoo/mobcore/types"
)

// Focus makes target the mob's focus.
func (s *Session) Focus(m, target *Mob) {
	if target == nil {
		return
	}
	m.FocusID = target.ID
}

// Unfocus clears the mob's focus.
func (s *Session) Unfocus(m *Mob) {
	m.FocusID = 0
}

// Link adds a one-way link from m to target.
func (s *Session) Link(m, target *Mob) {
	if target == nil || target == m || slices.Contains(m.Links, target.ID) {
		return
	}
	m.Links = append(m.Links, target.ID)
}

// Hold makes holder carry m around. A mob is held by at most one holder.
func (s *Session) Hold(holder, m *Mob) {
	if m == nil || holder == m || m.HolderID == holder.ID {
		return
	}
	if prev := s.Get(m.HolderID); prev != nil {
		s.Release(prev, m)
	}
	m.HolderID = holder.ID
	holder.Holding = append(holder.Holding, m.ID)
	s.Fire(m, types.EvHeld, holder, nil)
}

// Release lets go of a held mob.
func (s *Session) Release(holder, m *Mob) {
	if m == nil || m.HolderID != holder.ID {
		return
	}
	holder.Holding = slices.DeleteFunc(holder.Holding, func(id int) bool { return id == m.ID })
	m.HolderID = 0
	s.Fire(m, types.EvReleased, holder, nil)
}

// Closest returns the nearest live mob other than from that satisfies
// pred. Ties go to the earlier mob in arena order.
func (s *Session) Closest(from *Mob, pred func(*Mob) bool) *Mob {
	var best *Mob
	bestDist := math.Inf(1)
	for _, id := range s.order {
		o := s.mobs[id]
		if o == from || !o.Live() || (pred != nil && !pred(o)) {
			continue
		}
		if d := Dist(from.Pos, o.Pos); d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}

// ClosestOfCategory returns the nearest live mob of a category.
func (s *Session) ClosestOfCategory(from *Mob, category string) *Mob {
	return s.Closest(from, func(o *Mob) bool { return o.Type.Category == category })
}

// Nearby returns the live mobs within radius of from, in arena order.
func (s *Session) Nearby(from *Mob, radius float64) []*Mob {
	var out []*Mob
	for _, id := range s.order {
		o := s.mobs[id]
		if o == from || !o.Live() {
			continue
		}
		if Dist(from.Pos, o.Pos) <= radius {
			out = append(out, o)
		}
	}
	return out
}

// SetHealth sets health, clamped to [0, max health] when the mob has one.
func (s *Session) SetHealth(m *Mob, h float64) {
	if h < 0 {
		h = 0
	}
	if m.MaxHealth > 0 && h > m.MaxHealth {
		h = m.MaxHealth
	}
	m.Health = h
}

// Damage takes health off a mob, honoring the parent damage relay. The
// amount also counts toward the itch threshold. It returns the mob that
// ended up taking the hit, or nil.
func (s *Session) Damage(m *Mob, amount float64) *Mob {
	var took *Mob
	if p := m.Parent; p != nil {
		if p.RelayDamage {
			if parent := s.Live(p.ID); parent != nil {
				took = s.Damage(parent, amount)
			}
			if !p.HandleDamage {
				return took
			}
		}
	}
	s.SetHealth(m, m.Health-amount)
	m.ItchDamage += amount
	return m
}
