package mob

import "github.com/nathoo/mobcore/types"

// Runner executes scripts. The FSM interpreter implements it.
type Runner interface {
	Run(s *Session, m *Mob, ev types.EventType, data1, data2 any)
	SetState(s *Session, m *Mob, idx int, data1, data2 any) bool
	Start(s *Session, m *Mob)
	Leave(s *Session, m *Mob)
}

// Planner computes stop sequences over the path network.
type Planner interface {
	Plan(from, to types.Point) Plan
	StopPos(stop int) types.Point
	Blocked(from, to int) bool
	SetLinkBlocked(from, to string, blocked bool) bool
}

// Feedback receives presentation requests. Nothing in the runtime reads
// them back.
type Feedback interface {
	PlaySound(m *Mob, name string)
	StartParticles(m *Mob, name string)
}

// Animator advances animation playback and reports when the current
// animation finished.
type Animator interface {
	Advance(m *Mob, dt float64) bool
}

// Rand is the random source scripts and consensus draws read from.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NopFeedback discards every request.
type NopFeedback struct{}

func (NopFeedback) PlaySound(*Mob, string)      {}
func (NopFeedback) StartParticles(*Mob, string) {}

// NopAnimator never finishes an animation.
type NopAnimator struct{}

func (NopAnimator) Advance(*Mob, float64) bool { return false }

// DirectPlanner has no stops and sends every mob straight to its goal.
type DirectPlanner struct{}

func (DirectPlanner) Plan(types.Point, types.Point) Plan     { return Plan{Direct: true} }
func (DirectPlanner) StopPos(int) types.Point                { return types.Point{} }
func (DirectPlanner) Blocked(int, int) bool                  { return false }
func (DirectPlanner) SetLinkBlocked(string, string, bool) bool { return false }
