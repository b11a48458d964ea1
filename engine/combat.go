package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/mobcore/engine/actions"
	"github.com/nathoo/mobcore/engine/mob"
	"github.com/nathoo/mobcore/engine/status"
	"github.com/nathoo/mobcore/logger"
	"github.com/nathoo/mobcore/types"
)

// Attack lands a hit on victim. The victim's script decides what the hit
// does; by default it takes the damage and raises on_damage.
func (e *Engine) Attack(attacker, victim *mob.Mob, damage float64) {
	if !victim.Live() {
		return
	}
	logger.Log.WithFields(logrus.Fields{"mob": victim.ID, "damage": damage}).Debug("attacked")
	e.Session.Fire(victim, types.EvHitboxTouchNA, actions.Hit{Attacker: attacker, Damage: damage}, nil)
}

// Whistle sets the whistle input. Mobs inside the circle lose their
// whistle-removable statuses and get on_whistled every frame it stays
// active.
func (e *Engine) Whistle(leader *mob.Mob, center types.Point, radius float64, active bool) {
	w := mob.Whistle{Active: active, Center: center, Radius: radius}
	if leader != nil {
		w.LeaderID = leader.ID
	}
	e.Session.Whistle = w
}

// Swarm points a leader's group toward angle. A zero magnitude ends the
// swarm.
func (e *Engine) Swarm(leader *mob.Mob, angle, magnitude float64) error {
	g := leader.Group
	if g == nil {
		return fmt.Errorf("mob %d does not lead a group", leader.ID)
	}
	g.Swarming = magnitude != 0
	g.SwarmAngle = angle
	g.SwarmMag = magnitude
	return nil
}

// Message delivers a message from the driver or from another mob.
func (e *Engine) Message(from, to *mob.Mob, msg string) {
	actions.Send(e.Session, from, to, msg)
}

// Spray hits a mob with a spray's status.
func (e *Engine) Spray(m *mob.Mob, statusName string) error {
	st, err := e.status(statusName)
	if err != nil {
		return err
	}
	e.Session.Fire(m, types.EvTouchedSpray, st, nil)
	return nil
}

// EnterHazard raises on_touch_hazard and applies the hazard's status.
func (e *Engine) EnterHazard(m *mob.Mob, statusName string) error {
	st, err := e.status(statusName)
	if err != nil {
		return err
	}
	e.Session.Fire(m, types.EvTouchHazard, st, nil)
	e.Session.Fire(m, types.EvTouchedHazard, st, nil)
	return nil
}

// LeaveHazard drops the statuses that only last while inside a hazard.
func (e *Engine) LeaveHazard(m *mob.Mob) {
	status.RemoveHazardous(m)
	e.Session.Fire(m, types.EvLeaveHazard, nil, nil)
}

// Pit reports that the mob fell off the world.
func (e *Engine) Pit(m *mob.Mob) {
	e.Session.Fire(m, types.EvBottomlessPit, nil, nil)
}

func (e *Engine) status(name string) (*types.StatusTypeDef, error) {
	st, ok := e.Defs.Statuses[name]
	if !ok {
		return nil, fmt.Errorf("unknown status %q", name)
	}
	return st, nil
}
