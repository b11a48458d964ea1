// Package types defines the shared data structures for the mobcore runtime.
// This package contains only type definitions and constant tables, no logic.
package types

// Point is a position or offset on the horizontal plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EventType identifies a trigger recognized by the interpreter.
type EventType int

const (
	EvNone EventType = iota
	EvOnEnter
	EvOnLeave
	EvOnTick
	EvOnReady
	EvAnimationEnd
	EvDamage
	EvFarFromHome
	EvFocusOffReach
	EvHeld
	EvItch
	EvLanded
	EvObjectInReach
	EvOpponentInReach
	EvReceiveMessage
	EvReleased
	EvReachedDestination
	EvTimer
	EvTouchHazard
	EvLeaveHazard
	EvTouchObject
	EvTouchOpponent
	EvTouchWall
	EvWeightAdded
	EvWeightRemoved
	EvHitboxTouchNA
	EvPathBlocked
	EvFocusDied
	EvWhistled
	EvSpotIsFar
	EvCarrierAdded
	EvCarrierRemoved
	EvCarryBeginMove
	EvCarryStopMove
	EvCarryDelivered

	// Internal events. Authors cannot declare these; the compiler injects
	// default handlers for them.
	EvZeroHealth
	EvTouchedSpray
	EvTouchedHazard
	EvBottomlessPit
	EvFocusedMobUnavailable

	NumEvents
)

// EventNames maps author-facing event names to event types.
var EventNames = map[string]EventType{
	"on_enter":             EvOnEnter,
	"on_leave":             EvOnLeave,
	"on_tick":              EvOnTick,
	"on_ready":             EvOnReady,
	"on_animation_end":     EvAnimationEnd,
	"on_damage":            EvDamage,
	"on_far_from_home":     EvFarFromHome,
	"on_focus_off_reach":   EvFocusOffReach,
	"on_held":              EvHeld,
	"on_itch":              EvItch,
	"on_land":              EvLanded,
	"on_object_in_reach":   EvObjectInReach,
	"on_opponent_in_reach": EvOpponentInReach,
	"on_receive_message":   EvReceiveMessage,
	"on_released":          EvReleased,
	"on_reach_destination": EvReachedDestination,
	"on_timer":             EvTimer,
	"on_touch_hazard":      EvTouchHazard,
	"on_leave_hazard":      EvLeaveHazard,
	"on_touch_object":      EvTouchObject,
	"on_touch_opponent":    EvTouchOpponent,
	"on_touch_wall":        EvTouchWall,
	"on_weight_added":      EvWeightAdded,
	"on_weight_removed":    EvWeightRemoved,
	"on_hitbox_touch_n_a":  EvHitboxTouchNA,
	"on_path_blocked":      EvPathBlocked,
	"on_focus_died":        EvFocusDied,
	"on_whistled":          EvWhistled,
	"on_spot_is_far":       EvSpotIsFar,
	"on_carrier_added":     EvCarrierAdded,
	"on_carrier_removed":   EvCarrierRemoved,
	"on_carry_begin_move":  EvCarryBeginMove,
	"on_carry_stop_move":   EvCarryStopMove,
	"on_carry_delivered":   EvCarryDelivered,
}

// InternalEventNames labels the events that have no author-facing name.
var InternalEventNames = map[EventType]string{
	EvNone:                  "none",
	EvZeroHealth:            "zero_health",
	EvTouchedSpray:          "touched_spray",
	EvTouchedHazard:         "touched_hazard",
	EvBottomlessPit:         "bottomless_pit",
	EvFocusedMobUnavailable: "focused_mob_unavailable",
}

// ActionKind identifies a single instruction type.
type ActionKind int

const (
	ActNone ActionKind = iota

	// Control flow and variables, executed by the interpreter itself.
	ActSetState
	ActIf
	ActElse
	ActEndIf
	ActGoto
	ActLabel
	ActSetVar
	ActCalculate
	ActGetRandomInt
	ActGetRandomFloat
	ActPrint

	// Domain actions, dispatched to registered handlers.
	ActSetTimer
	ActSetHealth
	ActAddHealth
	ActMoveToAbsolute
	ActMoveToRelative
	ActMoveToTarget
	ActFollowPathToAbsolute
	ActCircle
	ActStop
	ActStopCircling
	ActTurnToAbsolute
	ActTurnToTarget
	ActTeleportToAbsolute
	ActFocus
	ActUnfocus
	ActLinkWithFocus
	ActHoldFocus
	ActRelease
	ActSendMessageToFocus
	ActSendMessageToLinks
	ActSendMessageToNearby
	ActReceiveStatus
	ActRemoveStatus
	ActSpawn
	ActPlaySound
	ActStartParticles
	ActDelete
	ActJoinFocusGroup
	ActLeaveGroup
	ActFollowGroupSpot
	ActCarryFocus
	ActStopCarrying
	ActSetPathLinkBlocked
	ActKnockback

	// Injected defaults. Not available to authors.
	ActBeAttacked
	ActGoToDyingState
	ActFallDownPit
	ActTouchSpray
	ActTouchHazard
)

// StateInvalid marks a state-change target that could not be resolved.
const StateInvalid = -1

// Arg is a positional action argument: a literal or a variable name.
type Arg struct {
	Value string `json:"value"`
	Var   bool   `json:"var,omitempty"`
}

// ActionCall is one compiled instruction.
type ActionCall struct {
	Kind  ActionKind `json:"kind"`
	Name  string     `json:"name"`
	Args  []Arg      `json:"args,omitempty"`
	State int        `json:"state,omitempty"` // resolved target for state changes
	Jump  int        `json:"jump,omitempty"`  // resolved index for if, else and goto
}

// EventDef is an event type plus its ordered instruction list.
type EventDef struct {
	Type    EventType
	Actions []ActionCall
}

// StateDef is one compiled FSM state.
type StateDef struct {
	Name   string
	ID     int
	Events map[EventType]*EventDef
}

// ReapplyRule decides what happens when a status is applied twice.
type ReapplyRule int

const (
	ReapplyKeepTime ReapplyRule = iota
	ReapplyResetTime
	ReapplyAddTime
)

// StatusAffects is a bitmask of mob categories a status can affect.
type StatusAffects uint8

const (
	AffectsCarriers StatusAffects = 1 << iota
	AffectsLeaders
	AffectsEnemies
	AffectsOthers
)

// StatusTypeDef describes a timed modifier.
type StatusTypeDef struct {
	Name                 string
	Reapply              ReapplyRule
	AutoRemoveTime       float64 // 0 means it never times out
	HealthChange         float64 // per second
	HealthChangeRatio    float64 // fraction of max health per second
	SpeedMultiplier      float64
	RemovableWithWhistle bool
	RemoveOnHazardLeave  bool
	FreezesAnimation     bool
	Replacement          string // status applied on timeout
	Affects              StatusAffects
}

// Vulnerability scales or substitutes a status for one mob type.
type Vulnerability struct {
	EffectMult float64
	StatusTo   string // replace the incoming status with this one
}

// CarryDestination is the generic kind of delivery target.
type CarryDestination int

const (
	CarryToShip CarryDestination = iota
	CarryToNest
	CarryToShipNoNest
	CarryToLinkedMob
	CarryToLinkedMobMatchingType
)

// SpawnRelation is how a spawned mob relates to its spawner.
type SpawnRelation int

const (
	RelationNone SpawnRelation = iota
	RelationLink
	RelationChild
)

// SpawnDef declares a mob that a type can spawn by name.
type SpawnDef struct {
	Name           string
	Type           string
	Offset         Point
	Angle          float64
	Relation       SpawnRelation
	HandleEvents   bool
	RelayEvents    bool
	HandleStatuses bool
	RelayStatuses  bool
	HandleDamage   bool
	RelayDamage    bool
}

// MobTypeDef is the immutable archetype shared by every instance.
type MobTypeDef struct {
	Name             string
	Category         string
	MaxHealth        float64
	HealthRegen      float64
	MoveSpeed        float64
	Acceleration     float64
	RotationSpeed    float64 // radians per second
	Radius           float64
	Weight           float64
	CarrySpots       int
	CarryStrength    float64
	CanFreeMove      bool
	TerritoryRadius  float64
	Reach            float64
	ItchDamage       float64
	ItchTime         float64
	CarryDestination CarryDestination
	NestTypes        []string
	SpraysStatus     string
	HazardStatus     string
	Spawns           []SpawnDef
	Vulnerabilities  map[string]Vulnerability
	DefaultVuln      float64
	Vars             map[string]string
	DyingState       string
	FirstState       int
	States           []StateDef
}

// PathStopDef is a node of the path network.
type PathStopDef struct {
	Name  string
	Pos   Point
	Links []PathLinkDef
}

// PathLinkDef is a one-way connection between two stops.
type PathLinkDef struct {
	To      string
	Blocked bool
}

// PlacementDef is a mob placed in the world when a session starts.
type PlacementDef struct {
	Type  string
	Pos   Point
	Angle float64
	Vars  map[string]string
	Links []int // indexes into the placement list
}

// Defs holds all loaded content.
type Defs struct {
	Title      string
	MobTypes   map[string]*MobTypeDef
	Statuses   map[string]*StatusTypeDef
	PathStops  []PathStopDef
	Placements []PlacementDef
	Warnings   []string
}

// FiredEvent records one event run for tracing.
type FiredEvent struct {
	Frame int       `json:"frame"`
	Mob   int       `json:"mob"`
	Type  EventType `json:"type"`
	State string    `json:"state"`
}

// TickResult is the output of a single coordinator frame.
type TickResult struct {
	Frame   int
	Events  []FiredEvent
	Deleted []int
}
