// Package carry lets groups of carrier mobs haul another mob to a
// destination.
package carry

import (
	"math"
	"slices"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/mobcore/engine/mob"
	"github.com/nathoo/mobcore/engine/movement"
	"github.com/nathoo/mobcore/engine/status"
	"github.com/nathoo/mobcore/logger"
	"github.com/nathoo/mobcore/types"
)

// Categories of the mobs that receive deliveries.
const (
	CategoryShip = "ship"
	CategoryNest = "nest"
)

// DestinationTypeVar is the var a linked mob uses to say which carrier
// type it accepts.
const DestinationTypeVar = "carry_destination_type"

// Carriable is the archetype of mobs that can be carried from the start.
type Carriable struct{ mob.Base }

func (Carriable) OnSpawn(s *mob.Session, m *mob.Mob) {
	Enable(s, m)
}

// Enable makes a mob carriable. Spots are spread evenly around it.
func Enable(s *mob.Session, m *mob.Mob) *mob.CarryInfo {
	if m.Carry != nil {
		return m.Carry
	}
	n := m.Type.CarrySpots
	c := &mob.CarryInfo{
		Spots:       make([]mob.CarrySpot, n),
		Destination: m.Type.CarryDestination,
	}
	r := m.Type.Radius + s.Sim.StandardRadius
	for i := range c.Spots {
		c.Spots[i].Offset = mob.Polar(2*math.Pi/float64(n)*float64(i), r)
	}
	m.Carry = c
	return c
}

// IsEmpty reports whether no spot is reserved or used.
func IsEmpty(c *mob.CarryInfo) bool {
	for _, sp := range c.Spots {
		if sp.State != mob.SpotFree {
			return false
		}
	}
	return true
}

// IsFull reports whether every spot is reserved or used.
func IsFull(c *mob.CarryInfo) bool {
	for _, sp := range c.Spots {
		if sp.State == mob.SpotFree {
			return false
		}
	}
	return true
}

// Carriers returns the mobs in used spots, in spot order.
func Carriers(s *mob.Session, m *mob.Mob) []*mob.Mob {
	if m.Carry == nil {
		return nil
	}
	var out []*mob.Mob
	for _, sp := range m.Carry.Spots {
		if sp.State != mob.SpotUsed {
			continue
		}
		if c := s.Live(sp.CarrierID); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// SpotPosition is the world position of a carry spot.
func SpotPosition(m *mob.Mob, idx int) types.Point {
	return mob.Add(m.Pos, m.Carry.Spots[idx].Offset)
}

// Reserve claims the free spot closest to the carrier and sends the
// carrier toward it. It returns the spot index, or -1 when full.
func Reserve(s *mob.Session, m, carrier *mob.Mob) int {
	if m.Type.CarrySpots == 0 || carrier.CarryingID != 0 {
		return -1
	}
	c := Enable(s, m)

	best, bestDist := -1, math.Inf(1)
	for i, sp := range c.Spots {
		if sp.State != mob.SpotFree {
			continue
		}
		if d := mob.Dist(carrier.Pos, SpotPosition(m, i)); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return -1
	}

	c.Spots[best].State = mob.SpotReserved
	c.Spots[best].CarrierID = carrier.ID
	carrier.CarryingID = m.ID
	carrier.CarrySpot = best
	movement.Chase(carrier, mob.ChaseTarget{
		Point:  SpotPosition(m, best),
		MobID:  m.ID,
		Offset: c.Spots[best].Offset,
	}, s.Sim.ChaseTargetDist, movement.Default, movement.Default, mob.ChaseAnyAngle)
	return best
}

// Attach turns the carrier's reservation into a grip. A carrier without
// a reservation reserves first.
func Attach(s *mob.Session, m, carrier *mob.Mob) bool {
	if carrier.CarryingID != m.ID {
		if Reserve(s, m, carrier) < 0 {
			return false
		}
	}
	sp := &m.Carry.Spots[carrier.CarrySpot]
	if sp.State == mob.SpotUsed {
		return true
	}
	sp.State = mob.SpotUsed
	movement.Chase(carrier, mob.ChaseTarget{
		Point:  SpotPosition(m, carrier.CarrySpot),
		MobID:  m.ID,
		Offset: sp.Offset,
	}, 0, movement.Default, movement.Default, mob.ChaseTeleport|mob.ChaseTeleportsConstantly)

	logger.Log.WithFields(logrus.Fields{"mob": m.ID, "carrier": carrier.ID}).Debug("carrier added")
	s.Fire(m, types.EvCarrierAdded, carrier, nil)
	return true
}

// Detach frees the carrier's spot.
func Detach(s *mob.Session, m, carrier *mob.Mob) {
	if m.Carry == nil || carrier.CarryingID != m.ID {
		return
	}
	idx := carrier.CarrySpot
	wasUsed := false
	if idx >= 0 && idx < len(m.Carry.Spots) {
		wasUsed = m.Carry.Spots[idx].State == mob.SpotUsed
		m.Carry.Spots[idx] = mob.CarrySpot{Offset: m.Carry.Spots[idx].Offset}
	}
	carrier.CarryingID = 0
	carrier.CarrySpot = -1
	movement.StopChasing(carrier)
	if wasUsed {
		s.Fire(m, types.EvCarrierRemoved, carrier, nil)
	}
}

// Sever frees the spot a removed carrier held, and lets go of every
// carrier of a removed carried mob.
func Sever(s *mob.Session, m *mob.Mob) {
	if carried := s.Get(m.CarryingID); carried != nil {
		Detach(s, carried, m)
	}
	if m.Carry == nil {
		return
	}
	for i, sp := range m.Carry.Spots {
		if c := s.Get(sp.CarrierID); c != nil && c.CarryingID == m.ID {
			c.CarryingID = 0
			c.CarrySpot = -1
		}
		m.Carry.Spots[i] = mob.CarrySpot{Offset: sp.Offset}
	}
	m.Carry.Moving = false
}

// Strength is the combined carrying strength of the used spots.
func Strength(s *mob.Session, m *mob.Mob) float64 {
	total := 0.0
	for _, c := range Carriers(s, m) {
		total += c.Type.CarryStrength
	}
	return total
}

// Speed is how fast the carriers move the mob: their average speed,
// slowed by weight, scaled from a base fraction up to full speed as the
// spots fill.
func Speed(s *mob.Session, m *mob.Mob) float64 {
	carriers := Carriers(s, m)
	if len(carriers) == 0 {
		return 0
	}
	sim := s.Sim
	speed := 0.0
	for _, c := range carriers {
		speed += c.Type.MoveSpeed * status.SpeedMultiplier(c)
	}
	speed /= float64(len(carriers))
	speed *= max(1-sim.CarrySpeedWeightMult*m.Type.Weight, 0)
	speed *= sim.CarrySpeedMaxMult

	fill := float64(len(carriers)) / float64(len(m.Carry.Spots))
	return speed * (sim.CarrySpeedBaseMult + fill*(1-sim.CarrySpeedBaseMult))
}

// DecideType picks the carrier type the delivery goes for. The type
// with the most carriers wins. The mob's current intended type wins a
// tie; other ties, and the case with no eligible carrier at all, are
// settled at random.
func DecideType(s *mob.Session, m *mob.Mob, available []string) string {
	if len(available) == 0 {
		return ""
	}
	counts := map[string]int{}
	for _, c := range Carriers(s, m) {
		if slices.Contains(available, c.Type.Name) {
			counts[c.Type.Name]++
		}
	}

	var majority []string
	most := 0
	for _, name := range sortedKeys(counts) {
		switch n := counts[name]; {
		case n > most:
			most = n
			majority = []string{name}
		case n == most:
			majority = append(majority, name)
		}
	}

	forceRandom := false
	if len(majority) == 0 {
		forceRandom = true
		majority = slices.Clone(available)
		sort.Strings(majority)
	}
	if len(majority) == 1 {
		return majority[0]
	}
	if intended := m.Carry.IntendedType; intended != "" && !forceRandom && slices.Contains(majority, intended) {
		return intended
	}
	if s.Rand == nil {
		return majority[0]
	}
	return majority[s.Rand.Intn(len(majority))]
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Destination picks the mob the delivery goes to. It returns nil when
// nothing can receive it.
func Destination(s *mob.Session, m *mob.Mob) *mob.Mob {
	c := m.Carry
	switch c.Destination {
	case types.CarryToShip:
		return s.ClosestOfCategory(m, CategoryShip)
	case types.CarryToNest:
		return nest(s, m)
	case types.CarryToShipNoNest:
		if n := nest(s, m); n != nil {
			return n
		}
		return s.ClosestOfCategory(m, CategoryShip)
	case types.CarryToLinkedMob:
		return closestLink(s, m, nil)
	case types.CarryToLinkedMobMatchingType:
		var available []string
		for _, id := range m.Links {
			if l := s.Live(id); l != nil {
				if t := l.Var(DestinationTypeVar); t != "" && !slices.Contains(available, t) {
					available = append(available, t)
				}
			}
		}
		if len(available) == 0 {
			return nil
		}
		decided := DecideType(s, m, available)
		c.IntendedType = decided
		return closestLink(s, m, func(l *mob.Mob) bool { return l.Var(DestinationTypeVar) == decided })
	}
	return nil
}

func nest(s *mob.Session, m *mob.Mob) *mob.Mob {
	var available []string
	for _, o := range s.Mobs() {
		if !o.Live() || o.Type.Category != CategoryNest {
			continue
		}
		for _, t := range o.Type.NestTypes {
			if !slices.Contains(available, t) {
				available = append(available, t)
			}
		}
	}
	if len(available) == 0 {
		return nil
	}
	decided := DecideType(s, m, available)
	m.Carry.IntendedType = decided
	return s.Closest(m, func(o *mob.Mob) bool {
		return o.Type.Category == CategoryNest && slices.Contains(o.Type.NestTypes, decided)
	})
}

func closestLink(s *mob.Session, m *mob.Mob, pred func(*mob.Mob) bool) *mob.Mob {
	var best *mob.Mob
	bestDist := math.Inf(1)
	for _, id := range m.Links {
		l := s.Live(id)
		if l == nil || (pred != nil && !pred(l)) {
			continue
		}
		if d := mob.Dist(m.Pos, l.Pos); d < bestDist {
			best, bestDist = l, d
		}
	}
	return best
}

// Tick runs the carry lifecycle for one frame: carriers reaching their
// reserved spot grab on, the mob starts moving once strong enough
// carriers hold it, stops when they no longer do, and is delivered on
// arrival.
func Tick(s *mob.Session, m *mob.Mob) {
	c := m.Carry
	if c == nil || !m.Live() {
		return
	}

	// 1. Settle reservations and drop carriers that are gone.
	for i := range c.Spots {
		sp := &c.Spots[i]
		if sp.State == mob.SpotFree {
			continue
		}
		carrier := s.Live(sp.CarrierID)
		if carrier == nil || carrier.CarryingID != m.ID {
			wasUsed := sp.State == mob.SpotUsed
			*sp = mob.CarrySpot{Offset: sp.Offset}
			if wasUsed {
				s.Fire(m, types.EvCarrierRemoved, carrier, nil)
			}
			continue
		}
		if sp.State == mob.SpotReserved && mob.Dist(carrier.Pos, SpotPosition(m, i)) <= s.Sim.ChaseTargetDist {
			Attach(s, m, carrier)
		}
	}

	strong := len(Carriers(s, m)) > 0 && Strength(s, m) >= m.Type.Weight

	switch {
	case !c.Moving && strong:
		begin(s, m)
	case c.Moving && !strong:
		c.Moving = false
		c.TargetID = 0
		movement.StopFollowingPath(m)
		s.Fire(m, types.EvCarryStopMove, nil, nil)
	case c.Moving:
		target := s.Live(c.TargetID)
		if target == nil {
			// Destination vanished; pick a new one next frame.
			c.Moving = false
			c.TargetID = 0
			movement.StopFollowingPath(m)
			s.Fire(m, types.EvCarryStopMove, nil, nil)
			return
		}
		if speed := Speed(s, m); speed != c.Speed {
			c.Speed = speed
			m.Chase.MaxSpeed = speed
			if m.Path != nil {
				m.Path.Speed = speed
			}
		}
		if m.Path != nil && !m.Path.Blocked && m.Chase.State == mob.ChaseFinished {
			deliver(s, m, target)
		}
	}
}

func begin(s *mob.Session, m *mob.Mob) {
	c := m.Carry
	target := Destination(s, m)
	if target == nil {
		return
	}
	c.TargetID = target.ID
	c.Speed = Speed(s, m)
	if !movement.FollowPath(s, m, target.Pos, c.Speed, movement.Default) {
		logger.Log.WithFields(logrus.Fields{"mob": m.ID, "target": target.ID}).Warn("no route to carry destination")
		return
	}
	c.Moving = true
	s.Fire(m, types.EvCarryBeginMove, target, nil)
}

func deliver(s *mob.Session, m, target *mob.Mob) {
	carriers := Carriers(s, m)
	logger.Log.WithFields(logrus.Fields{"mob": m.ID, "target": target.ID, "carriers": len(carriers)}).Info("delivered")

	s.Fire(m, types.EvCarryDelivered, target, nil)
	for _, carrier := range carriers {
		s.Fire(carrier, types.EvCarryDelivered, m, target)
		carrier.CarryingID = 0
		carrier.CarrySpot = -1
		movement.StopChasing(carrier)
	}
	for i := range m.Carry.Spots {
		m.Carry.Spots[i] = mob.CarrySpot{Offset: m.Carry.Spots[i].Offset}
	}
	m.Carry.Moving = false
	movement.StopFollowingPath(m)
	m.ToDelete = true
}
