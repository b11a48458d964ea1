// Package mob holds the entity arena and the per-session context every
// runtime subsystem works against.
package mob

import "github.com/nathoo/mobcore/types"

// Mob is one live entity. Relations to other mobs are stored as ids and
// resolved through the session on every use.
type Mob struct {
	ID   int
	Type *types.MobTypeDef

	Pos           types.Point
	Z             float64
	SpeedZ        float64
	Velocity      types.Point // horizontal launch velocity, cleared on landing
	Angle         float64
	IntendedAngle float64
	Home          types.Point

	Health    float64
	MaxHealth float64

	Vars       map[string]string
	FSM        FSMState
	Statuses   []*Status
	TimeAlive  float64
	Timer      Timer
	ItchDamage float64
	ItchTime   float64
	ToDelete   bool

	FocusID  int
	Links    []int
	Parent   *ParentInfo
	HolderID int
	Holding  []int

	Chase  ChaseInfo
	Path   *PathInfo
	Circle *CircleInfo

	// A carriable mob has Carry; a carrier points back with CarryingID.
	Carry      *CarryInfo
	CarryingID int
	CarrySpot  int

	// A leader has Group; a member points back with LeaderID.
	Group     *GroupInfo
	LeaderID  int
	GroupSpot int

	Anim      Animation
	Archetype Archetype

	removed bool
}

// FSMState is the interpreter bookkeeping of one mob.
type FSMState struct {
	Cur  int
	Prev [3]string
}

// Timer raises on_timer once Left reaches zero.
type Timer struct {
	Duration float64
	Left     float64
}

// Animation is the slice of animation state the runtime cares about.
type Animation struct {
	Name    string
	Elapsed float64
	Frozen  bool
}

// ParentInfo ties a spawned child to the mob that owns it.
type ParentInfo struct {
	ID             int
	HandleEvents   bool
	RelayEvents    bool
	HandleStatuses bool
	RelayStatuses  bool
	HandleDamage   bool
	RelayDamage    bool
}

// Status is one active status effect.
type Status struct {
	Type       *types.StatusTypeDef
	TimeLeft   float64
	FromHazard bool
	ToDelete   bool
}

// ChaseState is the progress of a chase.
type ChaseState int

const (
	ChaseNone ChaseState = iota
	ChaseChasing
	ChaseFinished
)

// ChaseFlags tweak how a chase moves.
type ChaseFlags uint8

const (
	ChaseAnyAngle ChaseFlags = 1 << iota
	ChaseTeleport
	ChaseTeleportsConstantly
)

// ChaseTarget is what a chase is heading for. When MobID is set the
// target tracks that mob's position (or its group spot when Spot is
// set) plus Offset; Point is the fixed destination otherwise, and the
// last known position once the tracked mob is gone.
type ChaseTarget struct {
	Point  types.Point
	MobID  int
	Offset types.Point
	Spot   bool
}

// ChaseInfo is the movement goal of a mob.
type ChaseInfo struct {
	State    ChaseState
	Target   ChaseTarget
	Dist     float64
	MaxSpeed float64
	Speed    float64
	Accel    float64
	Flags    ChaseFlags
}

// Plan is a stop sequence returned by the path planner.
type Plan struct {
	Stops  []int
	Direct bool
}

// PathInfo is an active path follow.
type PathInfo struct {
	Target  types.Point
	Dist    float64
	Plan    Plan
	Cur     int
	Blocked bool
	Speed   float64
	Accel   float64
}

// CircleInfo is an active circling order.
type CircleInfo struct {
	CenterMob   int
	Center      types.Point
	Radius      float64
	Speed       float64
	CurAngle    float64
	Clockwise   bool
	CanFreeMove bool
}

// SpotState is the occupancy of a carry spot.
type SpotState int

const (
	SpotFree SpotState = iota
	SpotReserved
	SpotUsed
)

// CarrySpot is one place a carrier can grab.
type CarrySpot struct {
	State     SpotState
	Offset    types.Point
	CarrierID int
}

// CarryInfo is attached to a mob that can be carried.
type CarryInfo struct {
	Spots        []CarrySpot
	Destination  types.CarryDestination
	IntendedType string
	TargetID     int
	Moving       bool
	Speed        float64
}

// GroupMode is the formation behavior of a group.
type GroupMode int

const (
	GroupShuffle GroupMode = iota
	GroupFollowBack
	GroupSwarm
)

func (g GroupMode) String() string {
	switch g {
	case GroupFollowBack:
		return "follow_back"
	case GroupSwarm:
		return "swarm"
	}
	return "shuffle"
}

// GroupSpot is a formation slot relative to the group anchor.
type GroupSpot struct {
	Pos      types.Point
	MemberID int
}

// GroupInfo is attached to a mob that leads a group.
type GroupInfo struct {
	Members     []int
	Spots       []GroupSpot
	Radius      float64
	Anchor      types.Point
	AnchorAngle float64
	Mode        GroupMode
	Swarming    bool
	SwarmAngle  float64
	SwarmMag    float64
}

// Live reports whether the mob is still in play.
func (m *Mob) Live() bool {
	return m != nil && !m.ToDelete && !m.removed
}

// State returns the compiled current state, or nil before the first one.
func (m *Mob) State() *types.StateDef {
	if m.Type == nil || m.FSM.Cur < 0 || m.FSM.Cur >= len(m.Type.States) {
		return nil
	}
	return &m.Type.States[m.FSM.Cur]
}

// StateName returns the name of the current state.
func (m *Mob) StateName() string {
	if st := m.State(); st != nil {
		return st.Name
	}
	return ""
}

// Var reads a script variable.
func (m *Mob) Var(name string) string {
	return m.Vars[name]
}

// SetVar writes a script variable.
func (m *Mob) SetVar(name, value string) {
	if m.Vars == nil {
		m.Vars = map[string]string{}
	}
	m.Vars[name] = value
}

// IsHolding reports whether the mob holds anything.
func (m *Mob) IsHolding() bool {
	return len(m.Holding) > 0
}

// IsChasing reports whether a chase is in progress.
func (m *Mob) IsChasing() bool {
	return m.Chase.State == ChaseChasing
}
