// Package status applies, ticks and expires timed status effects.
package status

import (
	"github.com/sirupsen/logrus"

	"github.com/nathoo/mobcore/engine/mob"
	"github.com/nathoo/mobcore/logger"
	"github.com/nathoo/mobcore/types"
)

// Apply gives a status to a mob. Parent relay rules are honored first,
// children receive the status before the mob itself, and the type's
// vulnerability may swap it for another status.
func Apply(s *mob.Session, m *mob.Mob, st *types.StatusTypeDef, fromHazard bool) {
	apply(s, m, st, false, fromHazard)
}

func apply(s *mob.Session, m *mob.Mob, st *types.StatusTypeDef, byParent, fromHazard bool) {
	if st == nil || !m.Live() {
		return
	}
	if p := m.Parent; p != nil && !byParent {
		if p.RelayStatuses {
			if parent := s.Live(p.ID); parent != nil {
				apply(s, parent, st, false, fromHazard)
			}
			if !p.HandleStatuses {
				return
			}
		}
	}
	if !byParent && m.Archetype != nil && !m.Archetype.CanReceiveStatus(m, st) {
		return
	}

	for _, child := range s.Mobs() {
		if child.Parent != nil && child.Parent.ID == m.ID {
			apply(s, child, st, true, fromHazard)
		}
	}

	if v, ok := m.Type.Vulnerabilities[st.Name]; ok && v.StatusTo != "" {
		if sub, ok := s.Defs.Statuses[v.StatusTo]; ok && sub != st {
			apply(s, m, sub, byParent, fromHazard)
			return
		}
		logger.Log.WithFields(logrus.Fields{"mob": m.ID, "status": v.StatusTo}).Warn("unknown substitute status")
	}

	for _, cur := range m.Statuses {
		if cur.Type != st {
			continue
		}
		switch st.Reapply {
		case types.ReapplyResetTime:
			cur.TimeLeft = st.AutoRemoveTime
		case types.ReapplyAddTime:
			cur.TimeLeft += st.AutoRemoveTime
		}
		return
	}

	m.Statuses = append(m.Statuses, &mob.Status{
		Type:       st,
		TimeLeft:   st.AutoRemoveTime,
		FromHazard: fromHazard,
	})
	if st.FreezesAnimation {
		m.Anim.Frozen = true
	}
	logger.Log.WithFields(logrus.Fields{"mob": m.ID, "status": st.Name}).Debug("status applied")
}

// Remove flags the named status for removal at the next sweep.
func Remove(m *mob.Mob, name string) {
	for _, cur := range m.Statuses {
		if cur.Type.Name == name {
			cur.ToDelete = true
		}
	}
}

// RemoveWhistleable flags every status a whistle can cure.
func RemoveWhistleable(m *mob.Mob) {
	for _, cur := range m.Statuses {
		if cur.Type.RemovableWithWhistle {
			cur.ToDelete = true
		}
	}
}

// RemoveHazardous flags the statuses that end when the mob leaves the
// hazard that caused them.
func RemoveHazardous(m *mob.Mob) {
	for _, cur := range m.Statuses {
		if cur.FromHazard && cur.Type.RemoveOnHazardLeave {
			cur.ToDelete = true
		}
	}
}

// Has reports whether the mob carries a live instance of the status.
func Has(m *mob.Mob, name string) bool {
	for _, cur := range m.Statuses {
		if cur.Type.Name == name && !cur.ToDelete {
			return true
		}
	}
	return false
}

// Tick advances every status by dt and applies its health change.
func Tick(s *mob.Session, m *mob.Mob, dt float64) {
	for _, cur := range m.Statuses {
		st := cur.Type
		if st.AutoRemoveTime > 0 {
			cur.TimeLeft -= dt
			if cur.TimeLeft <= 0 {
				cur.ToDelete = true
			}
		}

		mult := Vulnerability(m.Type, st.Name)
		if st.HealthChange != 0 {
			s.SetHealth(m, m.Health+st.HealthChange*mult*dt)
		}
		if st.HealthChangeRatio != 0 {
			s.SetHealth(m, m.Health+st.HealthChangeRatio*m.MaxHealth*mult*dt)
		}
	}
}

// Sweep removes flagged statuses. Timed-out statuses with a replacement
// hand over to it, and a freezing replacement keeps the animation frozen.
func Sweep(s *mob.Session, m *mob.Mob) {
	type pending struct {
		st         *types.StatusTypeDef
		fromHazard bool
	}
	var replacements []pending
	unfreeze := false

	kept := m.Statuses[:0]
	for _, cur := range m.Statuses {
		if !cur.ToDelete {
			kept = append(kept, cur)
			continue
		}
		if cur.Type.FreezesAnimation {
			unfreeze = true
		}
		if cur.Type.Replacement != "" && cur.TimeLeft <= 0 {
			next, ok := s.Defs.Statuses[cur.Type.Replacement]
			if !ok {
				logger.Log.WithFields(logrus.Fields{"mob": m.ID, "status": cur.Type.Replacement}).
					Warn("unknown replacement status")
				continue
			}
			replacements = append(replacements, pending{next, cur.FromHazard})
			if next.FreezesAnimation {
				unfreeze = false
			}
		}
	}
	clear(m.Statuses[len(kept):])
	m.Statuses = kept

	for _, r := range replacements {
		Apply(s, m, r.st, r.fromHazard)
	}

	if unfreeze && !anyFreezes(m) {
		m.Anim.Frozen = false
	}
}

func anyFreezes(m *mob.Mob) bool {
	for _, cur := range m.Statuses {
		if cur.Type.FreezesAnimation {
			return true
		}
	}
	return false
}

// Vulnerability is the effect multiplier a type takes from a status.
func Vulnerability(t *types.MobTypeDef, name string) float64 {
	if v, ok := t.Vulnerabilities[name]; ok {
		return v.EffectMult
	}
	if t.DefaultVuln > 0 {
		return t.DefaultVuln
	}
	return 1
}

// SpeedMultiplier is the product of every live status' speed change,
// each scaled by the mob's vulnerability to it.
func SpeedMultiplier(m *mob.Mob) float64 {
	mult := 1.0
	for _, cur := range m.Statuses {
		if cur.ToDelete {
			continue
		}
		vuln := Vulnerability(m.Type, cur.Type.Name)
		mult *= (cur.Type.SpeedMultiplier-1)*vuln + 1
	}
	return mult
}
