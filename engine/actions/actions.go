// Package actions implements the domain actions scripts can call. Every
// handler is one atomic operation on the session; control flow lives in
// the interpreter.
package actions

import (
	"math"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/mobcore/engine/carry"
	"github.com/nathoo/mobcore/engine/fsm"
	"github.com/nathoo/mobcore/engine/group"
	"github.com/nathoo/mobcore/engine/mob"
	"github.com/nathoo/mobcore/engine/movement"
	"github.com/nathoo/mobcore/engine/status"
	"github.com/nathoo/mobcore/logger"
	"github.com/nathoo/mobcore/types"
)

// Vars set on the receiver of a message before on_receive_message runs.
const (
	MessageVar = "message"
	SenderVar  = "sender"
)

// awayDist is how far move_to_target away_from_focus aims.
const awayDist = 2000

// Hit is the data of an attack, carried by the hitbox-touch event.
type Hit struct {
	Attacker *mob.Mob
	Damage   float64
}

// Register binds every domain action to the interpreter.
func Register(in *fsm.Interpreter) {
	handlers := map[types.ActionKind]fsm.Handler{
		types.ActSetTimer:             setTimer,
		types.ActSetHealth:            setHealth,
		types.ActAddHealth:            addHealth,
		types.ActMoveToAbsolute:       moveToAbsolute,
		types.ActMoveToRelative:       moveToRelative,
		types.ActMoveToTarget:         moveToTarget,
		types.ActFollowPathToAbsolute: followPathToAbsolute,
		types.ActCircle:               circle,
		types.ActStop:                 func(c *fsm.Call) { movement.Stop(c.Mob) },
		types.ActStopCircling:         func(c *fsm.Call) { movement.StopCircling(c.Mob) },
		types.ActTurnToAbsolute:       turnToAbsolute,
		types.ActTurnToTarget:         turnToTarget,
		types.ActTeleportToAbsolute:   teleportToAbsolute,
		types.ActFocus:                focus,
		types.ActUnfocus:              func(c *fsm.Call) { c.Session.Unfocus(c.Mob) },
		types.ActLinkWithFocus:        linkWithFocus,
		types.ActHoldFocus:            holdFocus,
		types.ActRelease:              release,
		types.ActSendMessageToFocus:   sendToFocus,
		types.ActSendMessageToLinks:   sendToLinks,
		types.ActSendMessageToNearby:  sendToNearby,
		types.ActReceiveStatus:        receiveStatus,
		types.ActRemoveStatus:         func(c *fsm.Call) { status.Remove(c.Mob, c.Args[0]) },
		types.ActSpawn:                spawn,
		types.ActPlaySound:            func(c *fsm.Call) { c.Session.Feedback.PlaySound(c.Mob, c.Args[0]) },
		types.ActStartParticles:       func(c *fsm.Call) { c.Session.Feedback.StartParticles(c.Mob, c.Args[0]) },
		types.ActDelete:               func(c *fsm.Call) { c.Mob.ToDelete = true },
		types.ActJoinFocusGroup:       joinFocusGroup,
		types.ActLeaveGroup:           leaveGroup,
		types.ActFollowGroupSpot:      followGroupSpot,
		types.ActCarryFocus:           carryFocus,
		types.ActStopCarrying:         stopCarrying,
		types.ActSetPathLinkBlocked:   setPathLinkBlocked,
		types.ActKnockback:            knockback,

		types.ActBeAttacked:     beAttacked,
		types.ActGoToDyingState: goToDyingState,
		types.ActFallDownPit:    func(c *fsm.Call) { c.Mob.ToDelete = true },
		types.ActTouchSpray:     func(c *fsm.Call) { touchStatus(c, false) },
		types.ActTouchHazard:    func(c *fsm.Call) { touchStatus(c, true) },
	}
	for kind, h := range handlers {
		in.Register(kind, h)
	}
}

func warn(c *fsm.Call, msg string) {
	logger.Log.WithFields(logrus.Fields{
		"mob":    c.Mob.ID,
		"state":  c.Mob.StateName(),
		"action": c.Action.Name,
	}).Warn(msg)
}

// num reads a numeric argument. Missing or non-numeric values read as 0.
func num(c *fsm.Call, i int) float64 {
	if i >= len(c.Args) {
		return 0
	}
	f, err := strconv.ParseFloat(c.Args[i], 64)
	if err != nil {
		warn(c, "argument "+strconv.Itoa(i+1)+" is not a number: "+c.Args[i])
		return 0
	}
	return f
}

func arg(c *fsm.Call, i int) string {
	if i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

func point(c *fsm.Call, i int) types.Point {
	return types.Point{X: num(c, i), Y: num(c, i+1)}
}

func degrees(d float64) float64 { return d * math.Pi / 180 }

func focusOf(c *fsm.Call) *mob.Mob {
	f := c.Session.Live(c.Mob.FocusID)
	if f == nil {
		warn(c, "no focused mob")
	}
	return f
}

func setTimer(c *fsm.Call) {
	d := num(c, 0)
	c.Mob.Timer = mob.Timer{Duration: d, Left: d}
}

func setHealth(c *fsm.Call) {
	c.Session.SetHealth(c.Mob, num(c, 0))
}

func addHealth(c *fsm.Call) {
	c.Session.SetHealth(c.Mob, c.Mob.Health+num(c, 0))
}

func moveToAbsolute(c *fsm.Call) {
	movement.ChasePoint(c.Mob, point(c, 0), c.Session.Sim.ChaseTargetDist, movement.Default)
}

// moveToRelative offsets are relative to the mob's facing.
func moveToRelative(c *fsm.Call) {
	p := mob.Add(c.Mob.Pos, mob.Rotate(point(c, 0), c.Mob.Angle))
	movement.ChasePoint(c.Mob, p, c.Session.Sim.ChaseTargetDist, movement.Default)
}

func moveToTarget(c *fsm.Call) {
	s, m := c.Session, c.Mob
	dist := s.Sim.ChaseTargetDist
	switch arg(c, 0) {
	case "focus":
		if f := focusOf(c); f != nil {
			movement.ChaseMob(m, f, types.Point{}, dist, movement.Default)
		}
	case "home":
		movement.ChasePoint(m, m.Home, dist, movement.Default)
	case "away_from_focus":
		if f := focusOf(c); f != nil {
			p := mob.Add(m.Pos, mob.Polar(mob.AngleTo(f.Pos, m.Pos), awayDist))
			movement.ChasePoint(m, p, dist, movement.Default)
		}
	case "linked_mob_average":
		var sum types.Point
		n := 0
		for _, id := range m.Links {
			if l := s.Live(id); l != nil {
				sum = mob.Add(sum, l.Pos)
				n++
			}
		}
		if n == 0 {
			warn(c, "no linked mobs")
			return
		}
		movement.ChasePoint(m, types.Point{X: sum.X / float64(n), Y: sum.Y / float64(n)}, dist, movement.Default)
	default:
		warn(c, "unknown target "+arg(c, 0))
	}
}

func followPathToAbsolute(c *fsm.Call) {
	if !movement.FollowPath(c.Session, c.Mob, point(c, 0), movement.Default, movement.Default) {
		warn(c, "no route")
	}
}

// circle takes a center (focus or home), a radius, a linear speed and an
// optional "clockwise" flag.
func circle(c *fsm.Call) {
	m := c.Mob
	radius, speed := num(c, 1), num(c, 2)
	clockwise := arg(c, 3) == "clockwise" || arg(c, 3) == "true"
	switch arg(c, 0) {
	case "focus":
		if f := focusOf(c); f != nil {
			movement.Circle(m, f, f.Pos, radius, speed, clockwise)
		}
	case "home":
		movement.Circle(m, nil, m.Home, radius, speed, clockwise)
	default:
		warn(c, "unknown circle center "+arg(c, 0))
	}
}

func turnToAbsolute(c *fsm.Call) {
	movement.Turn(c.Mob, degrees(num(c, 0)))
}

func turnToTarget(c *fsm.Call) {
	m := c.Mob
	switch arg(c, 0) {
	case "focus":
		if f := focusOf(c); f != nil {
			movement.Turn(m, mob.AngleTo(m.Pos, f.Pos))
		}
	case "home":
		movement.Turn(m, mob.AngleTo(m.Pos, m.Home))
	default:
		warn(c, "unknown target "+arg(c, 0))
	}
}

func teleportToAbsolute(c *fsm.Call) {
	movement.Teleport(c.Mob, point(c, 0))
}

// focus picks a new focus: the mob that triggered the event, the parent,
// a link by index, or the closest mob of a category.
func focus(c *fsm.Call) {
	s, m := c.Session, c.Mob
	var target *mob.Mob
	switch arg(c, 0) {
	case "trigger":
		if o, ok := c.Data1.(*mob.Mob); ok {
			target = o
		} else if h, ok := c.Data1.(Hit); ok {
			target = h.Attacker
		} else if o, ok := c.Data2.(*mob.Mob); ok {
			target = o
		}
	case "parent":
		if m.Parent != nil {
			target = s.Live(m.Parent.ID)
		}
	case "link":
		i := int(num(c, 1))
		if i >= 0 && i < len(m.Links) {
			target = s.Live(m.Links[i])
		}
	case "closest_of_category":
		target = s.ClosestOfCategory(m, arg(c, 1))
	default:
		warn(c, "unknown focus target "+arg(c, 0))
		return
	}
	if target == nil || !target.Live() {
		warn(c, "focus target not found")
		return
	}
	s.Focus(m, target)
}

func linkWithFocus(c *fsm.Call) {
	if f := focusOf(c); f != nil {
		c.Session.Link(c.Mob, f)
	}
}

func holdFocus(c *fsm.Call) {
	if f := focusOf(c); f != nil {
		c.Session.Hold(c.Mob, f)
	}
}

func release(c *fsm.Call) {
	for _, id := range append([]int(nil), c.Mob.Holding...) {
		if held := c.Session.Get(id); held != nil {
			c.Session.Release(c.Mob, held)
		}
	}
}

// Send delivers a message: the receiver's message and sender vars are set,
// then on_receive_message runs with the message and the sender as data.
func Send(s *mob.Session, from, to *mob.Mob, msg string) {
	if to == nil || !to.Live() {
		return
	}
	to.SetVar(MessageVar, msg)
	if from != nil {
		to.SetVar(SenderVar, strconv.Itoa(from.ID))
	}
	s.Fire(to, types.EvReceiveMessage, msg, from)
}

func sendToFocus(c *fsm.Call) {
	if f := focusOf(c); f != nil {
		Send(c.Session, c.Mob, f, c.Args[0])
	}
}

func sendToLinks(c *fsm.Call) {
	for _, id := range append([]int(nil), c.Mob.Links...) {
		Send(c.Session, c.Mob, c.Session.Live(id), c.Args[0])
	}
}

func sendToNearby(c *fsm.Call) {
	receivers := c.Session.Nearby(c.Mob, num(c, 0))
	if limit := c.Session.Sim.MessageNearbyLimit; limit > 0 && len(receivers) > limit {
		receivers = receivers[:limit]
	}
	for _, o := range receivers {
		Send(c.Session, c.Mob, o, arg(c, 1))
	}
}

func receiveStatus(c *fsm.Call) {
	st, ok := c.Session.Defs.Statuses[c.Args[0]]
	if !ok {
		warn(c, "unknown status "+c.Args[0])
		return
	}
	status.Apply(c.Session, c.Mob, st, false)
}

func spawn(c *fsm.Call) {
	name := c.Args[0]
	for _, def := range c.Mob.Type.Spawns {
		if def.Name != name {
			continue
		}
		if _, err := c.Session.SpawnChild(c.Mob, def); err != nil {
			warn(c, err.Error())
		}
		return
	}
	warn(c, "unknown spawn "+name)
}

func joinFocusGroup(c *fsm.Call) {
	f := focusOf(c)
	if f == nil {
		return
	}
	if f.Group == nil {
		warn(c, "focused mob does not lead a group")
		return
	}
	group.Add(c.Session, f, c.Mob)
}

func leaveGroup(c *fsm.Call) {
	leader := c.Session.Get(c.Mob.LeaderID)
	if leader == nil {
		return
	}
	group.Remove(c.Session, leader, c.Mob)
	if c.Mob.Chase.Target.Spot {
		movement.StopChasing(c.Mob)
	}
}

func followGroupSpot(c *fsm.Call) {
	leader := c.Session.Live(c.Mob.LeaderID)
	if leader == nil {
		warn(c, "not in a group")
		return
	}
	movement.ChaseSpot(c.Session, c.Mob, leader, c.Session.Sim.ChaseTargetDist, movement.Default)
}

func carryFocus(c *fsm.Call) {
	f := focusOf(c)
	if f == nil {
		return
	}
	if carry.Reserve(c.Session, f, c.Mob) < 0 {
		warn(c, "nothing to grab")
	}
}

func stopCarrying(c *fsm.Call) {
	if carried := c.Session.Get(c.Mob.CarryingID); carried != nil {
		carry.Detach(c.Session, carried, c.Mob)
	}
}

func setPathLinkBlocked(c *fsm.Call) {
	blocked, err := strconv.ParseBool(arg(c, 2))
	if err != nil {
		warn(c, "blocked flag is not a boolean: "+arg(c, 2))
		return
	}
	if !c.Session.Planner.SetLinkBlocked(c.Args[0], c.Args[1], blocked) {
		warn(c, "unknown path link "+c.Args[0]+" -> "+c.Args[1])
	}
}

// knockback launches the mob. Without an angle it flies away from the
// attacker, or backwards when there is none.
func knockback(c *fsm.Call) {
	m := c.Mob
	angle := m.Angle + math.Pi
	switch {
	case len(c.Args) > 1:
		angle = degrees(num(c, 1))
	default:
		if h, ok := c.Data1.(Hit); ok && h.Attacker != nil {
			angle = mob.AngleTo(h.Attacker.Pos, m.Pos)
		} else if o, ok := c.Data1.(*mob.Mob); ok && o != nil {
			angle = mob.AngleTo(o.Pos, m.Pos)
		}
	}
	movement.Knockback(c.Session, m, num(c, 0), angle)
}

// beAttacked applies the damage of a hit and raises on_damage on the mob
// that took it.
func beAttacked(c *fsm.Call) {
	h, ok := c.Data1.(Hit)
	if !ok {
		return
	}
	took := c.Session.Damage(c.Mob, h.Damage)
	if took != nil {
		c.Session.Fire(took, types.EvDamage, h, nil)
	}
}

func goToDyingState(c *fsm.Call) {
	c.Interp.SetState(c.Session, c.Mob, c.Action.State, c.Data1, c.Data2)
}

// touchStatus applies the status carried by a spray or hazard event.
func touchStatus(c *fsm.Call, fromHazard bool) {
	st, ok := c.Data1.(*types.StatusTypeDef)
	if !ok || st == nil {
		return
	}
	status.Apply(c.Session, c.Mob, st, fromHazard)
}
