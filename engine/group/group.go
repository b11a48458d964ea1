// Package group keeps a leader's followers in formation.
package group

import (
	"math"
	"slices"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/mobcore/engine/mob"
	"github.com/nathoo/mobcore/logger"
	"github.com/nathoo/mobcore/types"
)

// NoSpot is the spot index of a mob outside any formation.
const NoSpot = -1

// Add makes member follow leader. A member of another group leaves it
// first. The joiner takes the last spot.
func Add(s *mob.Session, leader, member *mob.Mob) {
	if leader == member || member.LeaderID == leader.ID {
		return
	}
	if old := s.Get(member.LeaderID); old != nil {
		Remove(s, old, member)
	}
	if leader.Group == nil {
		leader.Group = &mob.GroupInfo{Anchor: leader.Pos}
	}
	g := leader.Group
	g.Members = append(g.Members, member.ID)
	member.LeaderID = leader.ID
	InitSpots(s, leader, member)

	logger.Log.WithFields(logrus.Fields{"leader": leader.ID, "mob": member.ID}).Debug("joined group")
}

// Remove takes member out of leader's group. The remaining members keep
// their order and close the gap.
func Remove(s *mob.Session, leader, member *mob.Mob) {
	g := leader.Group
	if g == nil || member.LeaderID != leader.ID {
		return
	}
	g.Members = slices.DeleteFunc(g.Members, func(id int) bool { return id == member.ID })
	member.LeaderID = 0
	InitSpots(s, leader, member)
	member.GroupSpot = NoSpot

	logger.Log.WithFields(logrus.Fields{"leader": leader.ID, "mob": member.ID}).Debug("left group")
}

// Sever drops every group relation of a mob about to be removed: it
// leaves its leader, and a group it leads is disbanded.
func Sever(s *mob.Session, m *mob.Mob) {
	if leader := s.Get(m.LeaderID); leader != nil {
		Remove(s, leader, m)
	}
	if m.Group == nil {
		return
	}
	for _, id := range m.Group.Members {
		if member := s.Get(id); member != nil {
			member.LeaderID = 0
			member.GroupSpot = NoSpot
		}
	}
	m.Group.Members = nil
	m.Group.Spots = nil
	m.Group.Radius = 0
}

// InitSpots rebuilds the formation for the current member count. Spots
// are laid out in wheels around a center spot, the rightmost first.
// affected is the mob whose joining or leaving triggered the rebuild.
func InitSpots(s *mob.Session, leader, affected *mob.Mob) {
	g := leader.Group
	n := len(g.Members)
	if n == 0 {
		g.Spots = nil
		g.Radius = 0
		return
	}

	old := make([]int, len(g.Spots))
	for i, sp := range g.Spots {
		old[i] = sp.MemberID
	}

	sim := s.Sim
	jitter := func() float64 {
		if s.Rand == nil || sim.GroupSpotMaxDeviation == 0 {
			return 0
		}
		return (s.Rand.Float64()*2 - 1) * sim.GroupSpotMaxDeviation
	}

	alpha := []types.Point{{}}
	radius := sim.StandardRadius
	for wheel := 1; len(alpha) < n; wheel++ {
		dist := sim.StandardRadius*float64(wheel) + sim.GroupSpotInterval*float64(wheel)
		diameter := sim.StandardRadius*2 + sim.GroupSpotInterval
		middle := math.Sqrt(dist*dist - diameter*0.5*diameter*0.5)
		angular := math.Atan2(diameter, middle*2) * 2
		count := int(math.Floor(2 * math.Pi / angular))
		if count < 1 {
			count = 1
		}
		step := 2 * math.Pi / float64(count)
		for i := 0; i < count; i++ {
			alpha = append(alpha, types.Point{
				X: dist*math.Cos(step*float64(i)) + jitter(),
				Y: dist*math.Sin(step*float64(i)) + jitter(),
			})
		}
		radius = dist
	}

	rightmost := types.Point{X: radius}
	sort.SliceStable(alpha, func(i, j int) bool {
		return mob.Dist(alpha[i], rightmost) < mob.Dist(alpha[j], rightmost)
	})

	g.Radius = radius
	g.Spots = make([]mob.GroupSpot, n)
	for i := range g.Spots {
		g.Spots[i] = mob.GroupSpot{Pos: types.Point{X: alpha[i].X - radius, Y: alpha[i].Y}}
	}

	assign := func(idx, id int) {
		g.Spots[idx].MemberID = id
		if m := s.Get(id); m != nil {
			m.GroupSpot = idx
		}
	}
	switch {
	case len(old) < n:
		for i, id := range old {
			assign(i, id)
		}
		if affected != nil {
			assign(len(old), affected.ID)
		}
	case len(old) > n:
		next := 0
		for _, id := range old {
			if affected != nil && id == affected.ID {
				affected.GroupSpot = NoSpot
				continue
			}
			if next < n {
				assign(next, id)
				next++
			}
		}
	default:
		for i, id := range old {
			assign(i, id)
		}
	}
}

// Reassign hands each spot, in order, to the closest member that has no
// spot yet.
func Reassign(s *mob.Session, leader *mob.Mob) {
	g := leader.Group
	if g == nil {
		return
	}
	taken := make(map[int]bool, len(g.Members))
	for i := range g.Spots {
		g.Spots[i].MemberID = 0
		spot, _ := SpotPosition(s, leader, i)

		var best *mob.Mob
		bestDist := math.Inf(1)
		for _, id := range g.Members {
			m := s.Get(id)
			if m == nil || taken[id] {
				continue
			}
			if d := mob.Dist(m.Pos, spot); d < bestDist {
				best, bestDist = m, d
			}
		}
		if best != nil {
			taken[best.ID] = true
			g.Spots[i].MemberID = best.ID
			best.GroupSpot = i
		}
	}
}

// AverageMemberPos is the mean position of the members.
func AverageMemberPos(s *mob.Session, leader *mob.Mob) types.Point {
	var sum types.Point
	n := 0
	for _, id := range leader.Group.Members {
		if m := s.Get(id); m != nil {
			sum = mob.Add(sum, m.Pos)
			n++
		}
	}
	if n == 0 {
		return leader.Pos
	}
	return types.Point{X: sum.X / float64(n), Y: sum.Y / float64(n)}
}

// Tick picks the formation mode for this frame and moves the anchor.
func Tick(s *mob.Session, leader *mob.Mob, dt float64) {
	g := leader.Group
	if g == nil || len(g.Members) == 0 {
		return
	}
	sim := s.Sim
	oldMode := g.Mode

	swarming := g.Swarming && g.SwarmMag != 0
	far := mob.Dist(AverageMemberPos(s, leader), leader.Pos) >
		sim.GroupShuffleDist+g.Radius+leader.Type.Radius
	switch {
	case swarming:
		g.Mode = mob.GroupSwarm
	case leader.IsHolding() || far:
		g.Mode = mob.GroupFollowBack
	default:
		g.Mode = mob.GroupShuffle
	}

	reach := leader.Type.Radius + sim.GroupSpotInterval*2
	switch g.Mode {
	case mob.GroupFollowBack:
		g.AnchorAngle = leader.Angle + math.Pi
		g.Anchor = mob.Add(leader.Pos, mob.Polar(g.AnchorAngle, reach))
	case mob.GroupShuffle:
		mid := mob.Add(g.Anchor, mob.Polar(g.AnchorAngle, g.Radius))
		d := mob.Dist(mid, leader.Pos)
		if limit := g.Radius + reach; d > limit {
			step := math.Min(leader.Type.MoveSpeed*dt, d-limit)
			g.Anchor = mob.Add(g.Anchor, mob.Polar(mob.AngleTo(mid, leader.Pos), step))
		}
	case mob.GroupSwarm:
		g.AnchorAngle = g.SwarmAngle
		g.Anchor = mob.Add(leader.Pos, mob.Polar(g.AnchorAngle, reach))
	}

	if oldMode != mob.GroupShuffle && g.Mode == mob.GroupShuffle {
		Reassign(s, leader)
	}
}

// SpotOffset is a spot's position relative to the anchor, after the
// formation transform of the current mode.
func SpotOffset(s *mob.Session, g *mob.GroupInfo, idx int) types.Point {
	p := g.Spots[idx].Pos
	if g.Mode == mob.GroupSwarm && g.Radius > 0 {
		p.X -= s.Sim.SwarmMargin
		p.X *= s.Sim.CursorMaxDist * g.SwarmMag / (g.Radius * 2)
		p.Y *= 1 - s.Sim.SwarmVerticalScale*g.SwarmMag
	}
	return mob.Rotate(p, g.AnchorAngle+math.Pi)
}

// SpotPosition is the world position of a spot in leader's group.
func SpotPosition(s *mob.Session, leader *mob.Mob, idx int) (types.Point, bool) {
	g := leader.Group
	if g == nil || idx < 0 || idx >= len(g.Spots) {
		return types.Point{}, false
	}
	return mob.Add(g.Anchor, SpotOffset(s, g, idx)), true
}
