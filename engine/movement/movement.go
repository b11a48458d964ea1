// Package movement turns chase, circling and path orders into motion.
// TickBrain decides where a mob heads; TickPhysics moves it there.
package movement

import (
	"math"

	"github.com/nathoo/mobcore/engine/group"
	"github.com/nathoo/mobcore/engine/mob"
	"github.com/nathoo/mobcore/engine/status"
	"github.com/nathoo/mobcore/types"
)

// Default asks Chase and FollowPath for the type's own speed or
// acceleration.
const Default = -1.0

// Chase gives the mob a movement goal. A negative speed or acceleration
// falls back to the type's value. Free-moving types always move at any
// angle.
func Chase(m *mob.Mob, target mob.ChaseTarget, dist, speed, accel float64, flags mob.ChaseFlags) {
	if m.Type.CanFreeMove {
		flags |= mob.ChaseAnyAngle
	}
	if speed < 0 {
		speed = m.Type.MoveSpeed
	}
	if accel < 0 {
		accel = m.Type.Acceleration
	}
	m.Chase.Target = target
	m.Chase.Dist = dist
	m.Chase.MaxSpeed = speed
	m.Chase.Accel = accel
	m.Chase.Flags = flags
	m.Chase.State = mob.ChaseChasing
}

// ChasePoint chases a fixed point.
func ChasePoint(m *mob.Mob, p types.Point, dist, speed float64) {
	Chase(m, mob.ChaseTarget{Point: p}, dist, speed, Default, 0)
}

// ChaseMob chases another mob's position plus an offset.
func ChaseMob(m, target *mob.Mob, offset types.Point, dist, speed float64) {
	Chase(m, mob.ChaseTarget{
		Point:  mob.Add(target.Pos, offset),
		MobID:  target.ID,
		Offset: offset,
	}, dist, speed, Default, 0)
}

// ChaseSpot chases the mob's own spot in its leader's group.
func ChaseSpot(s *mob.Session, m, leader *mob.Mob, dist, speed float64) {
	p, _ := group.SpotPosition(s, leader, m.GroupSpot)
	Chase(m, mob.ChaseTarget{Point: p, MobID: leader.ID, Spot: true}, dist, speed, Default, mob.ChaseAnyAngle)
}

// StopChasing ends the current chase.
func StopChasing(m *mob.Mob) {
	m.Chase.State = mob.ChaseNone
	m.Chase.Speed = 0
}

// Stop ends every movement order.
func Stop(m *mob.Mob) {
	StopChasing(m)
	StopFollowingPath(m)
	m.Circle = nil
	m.IntendedAngle = m.Angle
}

// Turn sets the angle the mob rotates toward.
func Turn(m *mob.Mob, angle float64) {
	m.IntendedAngle = angle
}

// Teleport moves the mob instantly.
func Teleport(m *mob.Mob, p types.Point) {
	m.Pos = p
}

// Target resolves where the current chase is heading. A tracked mob that
// is gone leaves the last known position in place.
func Target(s *mob.Session, m *mob.Mob) types.Point {
	t := &m.Chase.Target
	if t.MobID == 0 {
		return t.Point
	}
	o := s.Live(t.MobID)
	if o == nil {
		return t.Point
	}
	if t.Spot {
		if p, ok := group.SpotPosition(s, o, m.GroupSpot); ok {
			t.Point = p
		}
	} else {
		t.Point = mob.Add(o.Pos, t.Offset)
	}
	return t.Point
}

// Circle starts circling around a mob, or around a point when centerMob
// is nil.
func Circle(m *mob.Mob, centerMob *mob.Mob, center types.Point, radius, speed float64, clockwise bool) {
	c := &mob.CircleInfo{
		Center:      center,
		Radius:      radius,
		Speed:       speed,
		Clockwise:   clockwise,
		CanFreeMove: m.Type.CanFreeMove,
	}
	if centerMob != nil {
		c.CenterMob = centerMob.ID
		c.Center = centerMob.Pos
	}
	c.CurAngle = mob.AngleTo(c.Center, m.Pos)
	m.Circle = c
}

// StopCircling ends circling and the chase it drives.
func StopCircling(m *mob.Mob) {
	if m.Circle == nil {
		return
	}
	m.Circle = nil
	StopChasing(m)
}

// FollowPath plans a route to target and starts walking it. A blocked
// first link raises on_path_blocked before any chase is set up. It
// returns false when no route exists.
func FollowPath(s *mob.Session, m *mob.Mob, target types.Point, speed, accel float64) bool {
	if speed < 0 {
		speed = m.Type.MoveSpeed
	}
	if accel < 0 {
		accel = m.Type.Acceleration
	}

	plan := s.Planner.Plan(m.Pos, target)
	p := &mob.PathInfo{
		Target: target,
		Dist:   s.Sim.ChaseTargetDist,
		Plan:   plan,
		Speed:  speed,
		Accel:  accel,
	}
	m.Path = p

	if len(plan.Stops) >= 2 && s.Planner.Blocked(plan.Stops[0], plan.Stops[1]) {
		p.Blocked = true
		s.Fire(m, types.EvPathBlocked, nil, nil)
		if m.Path != p {
			// The script already reacted with a new order.
			return true
		}
	}

	switch {
	case plan.Direct:
		moveToPathEnd(m, speed, accel)
	case len(plan.Stops) > 0:
		Chase(m, mob.ChaseTarget{Point: s.Planner.StopPos(plan.Stops[p.Cur])},
			s.Sim.ChaseTargetDist, speed, accel, mob.ChaseAnyAngle)
	default:
		m.Path = nil
		return false
	}
	return true
}

// StopFollowingPath drops the path and its chase.
func StopFollowingPath(m *mob.Mob) {
	if m.Path == nil {
		return
	}
	m.Path = nil
	StopChasing(m)
}

func moveToPathEnd(m *mob.Mob, speed, accel float64) {
	if m.Path == nil {
		return
	}
	Chase(m, mob.ChaseTarget{Point: m.Path.Target}, m.Path.Dist, speed, accel, mob.ChaseAnyAngle)
}

// TickBrain advances circling and decides what a chasing mob does next.
// Reaching the final goal raises on_reach_destination once.
func TickBrain(s *mob.Session, m *mob.Mob, dt float64) {
	if c := m.Circle; c != nil {
		if o := s.Live(c.CenterMob); o != nil {
			c.Center = o.Pos
		}
		dir := -1.0
		if c.Clockwise {
			dir = 1
		}
		if c.Radius > 0 {
			c.CurAngle += c.Speed * dt / c.Radius * dir
		}
		var flags mob.ChaseFlags
		if c.CanFreeMove {
			flags = mob.ChaseAnyAngle
		}
		Chase(m, mob.ChaseTarget{Point: mob.Add(c.Center, mob.Polar(c.CurAngle, c.Radius))},
			s.Sim.ChaseTargetDist, c.Speed, Default, flags)
	}

	if m.Chase.State != mob.ChaseChasing || m.Chase.Flags&mob.ChaseTeleport != 0 || m.SpeedZ != 0 {
		return
	}

	target := Target(s, m)
	d := mob.Dist(m.Pos, target)
	if d > m.Chase.Dist {
		if !m.Type.CanFreeMove && d > 0 {
			Turn(m, mob.AngleTo(m.Pos, target))
		}
		return
	}

	p := m.Path
	if p != nil && !p.Plan.Direct && !p.Blocked {
		p.Cur++
		n := len(p.Plan.Stops)
		switch {
		case p.Cur < n:
			if s.Planner.Blocked(p.Plan.Stops[p.Cur-1], p.Plan.Stops[p.Cur]) {
				p.Blocked = true
				s.Fire(m, types.EvPathBlocked, nil, nil)
			} else {
				Chase(m, mob.ChaseTarget{Point: s.Planner.StopPos(p.Plan.Stops[p.Cur])},
					s.Sim.ChaseTargetDist, m.Chase.MaxSpeed, m.Chase.Accel, mob.ChaseAnyAngle)
			}
		case p.Cur == n:
			moveToPathEnd(m, m.Chase.MaxSpeed, m.Chase.Accel)
		default:
			m.Chase.State = mob.ChaseFinished
		}
	} else {
		m.Chase.State = mob.ChaseFinished
	}

	if m.Chase.State == mob.ChaseFinished {
		s.Fire(m, types.EvReachedDestination, nil, nil)
	}
}

// TickPhysics rotates and moves the mob for one frame.
func TickPhysics(s *mob.Session, m *mob.Mob, dt float64) {
	mult := status.SpeedMultiplier(m)

	// 1. Rotation.
	rotate(m, mult, dt)

	// 2. Held mobs ride along with their holder.
	if holder := s.Live(m.HolderID); holder != nil {
		m.Pos = holder.Pos
		m.Z = holder.Z
		m.SpeedZ = 0
		return
	}

	// 3. Chase movement.
	var move types.Point
	c := &m.Chase
	if c.State == mob.ChaseChasing {
		target := Target(s, m)
		if c.Flags&mob.ChaseTeleport != 0 {
			m.Pos = target
			if c.Flags&mob.ChaseTeleportsConstantly == 0 {
				c.State = mob.ChaseFinished
			}
		} else {
			if c.Accel <= 0 {
				c.Speed = c.MaxSpeed
			} else {
				c.Speed = math.Min(c.Speed+c.Accel*dt, c.MaxSpeed)
			}
			d := mob.Dist(m.Pos, target)
			if d > 0 && dt > 0 {
				amount := math.Min(d/dt, c.Speed*mult)
				angle := m.Angle
				if c.Flags&mob.ChaseAnyAngle != 0 || d <= s.Sim.FreeMoveThreshold {
					angle = mob.AngleTo(m.Pos, target)
				}
				move = mob.Polar(angle, amount)
			}
		}
	} else {
		c.Speed = 0
		c.MaxSpeed = 0
		c.Accel = 0
	}

	// 4. Integrate.
	m.Pos.X += (move.X + m.Velocity.X) * dt
	m.Pos.Y += (move.Y + m.Velocity.Y) * dt

	// 5. Gravity.
	if m.Z > 0 || m.SpeedZ != 0 {
		g := s.Sim.Gravity
		m.Z += m.SpeedZ*dt + 0.5*g*dt*dt
		m.SpeedZ += g * dt
		if m.Z <= 0 {
			m.Z = 0
			m.SpeedZ = 0
			m.Velocity = types.Point{}
			s.Fire(m, types.EvLanded, nil, nil)
		}
	}
}

func rotate(m *mob.Mob, mult, dt float64) {
	diff := mob.NormalizeAngle(m.IntendedAngle - m.Angle)
	if diff == 0 {
		return
	}
	step := m.Type.RotationSpeed * mult * dt
	if m.Type.RotationSpeed <= 0 || math.Abs(diff) <= step {
		m.Angle = m.IntendedAngle
		return
	}
	m.Angle = mob.NormalizeAngle(m.Angle + math.Copysign(step, diff))
}

// Knockback launches the mob away along angle. Strength scales both the
// horizontal and the vertical power.
func Knockback(s *mob.Session, m *mob.Mob, strength, angle float64) {
	if strength == 0 {
		return
	}
	StopChasing(m)
	m.Velocity = mob.Polar(angle, strength*s.Sim.KnockbackHPower)
	m.SpeedZ = strength * s.Sim.KnockbackVPower
}
