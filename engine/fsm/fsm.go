// Package fsm runs compiled mob scripts: event dispatch, control flow,
// variables and state transitions.
package fsm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/mobcore/engine/mob"
	"github.com/nathoo/mobcore/engine/script"
	"github.com/nathoo/mobcore/logger"
	"github.com/nathoo/mobcore/types"
)

// maxSteps bounds one event run so a backward goto cannot hang a frame.
const maxSteps = 10000

// Call is one domain action invocation handed to a Handler.
type Call struct {
	Session *mob.Session
	Mob     *mob.Mob
	Action  *types.ActionCall
	Args    []string
	Data1   any
	Data2   any
	Interp  *Interpreter
}

// Handler executes one domain action.
type Handler func(c *Call)

// Interpreter is the script runner. It implements mob.Runner.
type Interpreter struct {
	handlers map[types.ActionKind]Handler
	trace    func(types.FiredEvent)
}

// New creates an interpreter with no domain handlers.
func New() *Interpreter {
	return &Interpreter{handlers: map[types.ActionKind]Handler{}}
}

// Register binds a domain action kind to its handler.
func (in *Interpreter) Register(kind types.ActionKind, h Handler) {
	in.handlers[kind] = h
}

// Handles reports whether a domain action kind has a handler.
func (in *Interpreter) Handles(kind types.ActionKind) bool {
	_, ok := in.handlers[kind]
	return ok
}

// SetTrace installs an observer called for every event that runs.
func (in *Interpreter) SetTrace(f func(types.FiredEvent)) {
	in.trace = f
}

// Run dispatches an event to a mob, honoring its parent relay settings.
func (in *Interpreter) Run(s *mob.Session, m *mob.Mob, ev types.EventType, data1, data2 any) {
	if m == nil || m.Type == nil {
		return
	}
	if p := m.Parent; p != nil {
		if p.RelayEvents {
			if parent := s.Live(p.ID); parent != nil {
				in.Run(s, parent, ev, data1, data2)
			}
			if !p.HandleEvents {
				return
			}
		}
	}
	in.runOwn(s, m, ev, data1, data2)
}

// runOwn runs an event on the mob's current state only.
func (in *Interpreter) runOwn(s *mob.Session, m *mob.Mob, ev types.EventType, data1, data2 any) {
	st := m.State()
	if st == nil {
		return
	}
	e, ok := st.Events[ev]
	if !ok || e == nil {
		return
	}

	logger.Log.WithFields(logrus.Fields{
		"mob":   m.ID,
		"state": st.Name,
		"event": script.EventName(ev),
	}).Debug("event")
	if in.trace != nil {
		in.trace(types.FiredEvent{Frame: s.Frame, Mob: m.ID, Type: ev, State: st.Name})
	}

	in.exec(s, m, e.Actions, data1, data2)
}

func (in *Interpreter) exec(s *mob.Session, m *mob.Mob, actions []types.ActionCall, data1, data2 any) {
	steps := 0
	for i := 0; i < len(actions); i++ {
		steps++
		if steps > maxSteps {
			logger.Log.WithFields(logrus.Fields{"mob": m.ID, "state": m.StateName()}).
				Warn("script step limit reached, aborting event")
			return
		}

		a := &actions[i]
		switch a.Kind {
		case types.ActIf:
			if !in.condition(m, a) {
				i = a.Jump
			}
		case types.ActElse:
			// Reached by straight-line execution: the if branch ran.
			i = a.Jump
		case types.ActGoto:
			if a.Jump >= 0 {
				i = a.Jump
			}
		case types.ActEndIf, types.ActLabel, types.ActNone:
		case types.ActSetState:
			in.SetState(s, m, a.State, data1, data2)
			return
		case types.ActSetVar:
			args := resolve(m, a.Args)
			m.SetVar(args[0], strings.Join(args[1:], " "))
		case types.ActCalculate:
			in.calculate(m, a)
		case types.ActGetRandomInt:
			in.randomInt(s, m, a)
		case types.ActGetRandomFloat:
			in.randomFloat(s, m, a)
		case types.ActPrint:
			logger.Log.WithFields(logrus.Fields{"mob": m.ID, "state": m.StateName()}).
				Info(strings.Join(resolve(m, a.Args), " "))
		default:
			if h, ok := in.handlers[a.Kind]; ok {
				h(&Call{
					Session: s,
					Mob:     m,
					Action:  a,
					Args:    resolve(m, a.Args),
					Data1:   data1,
					Data2:   data2,
					Interp:  in,
				})
			}
			if script.SpecOf(a.Kind).ChangesState {
				return
			}
		}
	}
}

// SetState moves a mob to another state. An invalid target is logged and
// leaves the mob untouched.
func (in *Interpreter) SetState(s *mob.Session, m *mob.Mob, idx int, data1, data2 any) bool {
	if m.Type == nil || idx < 0 || idx >= len(m.Type.States) {
		logger.Log.WithFields(logrus.Fields{
			"mob":    m.ID,
			"state":  m.StateName(),
			"target": idx,
		}).Warn("invalid state transition ignored")
		return false
	}

	if old := m.State(); old != nil {
		m.FSM.Prev[2] = m.FSM.Prev[1]
		m.FSM.Prev[1] = m.FSM.Prev[0]
		m.FSM.Prev[0] = old.Name
		in.runOwn(s, m, types.EvOnLeave, data1, data2)
	}

	m.FSM.Cur = idx
	in.runOwn(s, m, types.EvOnEnter, data1, data2)
	return true
}

// Start enters the type's first state.
func (in *Interpreter) Start(s *mob.Session, m *mob.Mob) {
	in.SetState(s, m, m.Type.FirstState, nil, nil)
}

// Leave runs on_leave when a mob is destroyed.
func (in *Interpreter) Leave(s *mob.Session, m *mob.Mob) {
	in.runOwn(s, m, types.EvOnLeave, nil, nil)
}

// History describes the current and three previous states.
func History(m *mob.Mob) string {
	cur := m.StateName()
	if cur == "" {
		cur = "(none)"
	}
	return fmt.Sprintf("State history: %s, %s, %s, %s.",
		cur, orNone(m.FSM.Prev[0]), orNone(m.FSM.Prev[1]), orNone(m.FSM.Prev[2]))
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func resolve(m *mob.Mob, args []types.Arg) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a.Var {
			out[i] = m.Var(a.Value)
		} else {
			out[i] = a.Value
		}
	}
	return out
}

func (in *Interpreter) condition(m *mob.Mob, a *types.ActionCall) bool {
	args := resolve(m, a.Args)
	lhs, op, rhs := args[0], args[1], strings.Join(args[2:], " ")

	ln, lerr := strconv.ParseFloat(lhs, 64)
	rn, rerr := strconv.ParseFloat(rhs, 64)
	numeric := lerr == nil && rerr == nil

	switch op {
	case "=":
		if numeric {
			return ln == rn
		}
		return lhs == rhs
	case "!=":
		if numeric {
			return ln != rn
		}
		return lhs != rhs
	case "<":
		return ln < rn
	case ">":
		return ln > rn
	case "<=":
		return ln <= rn
	case ">=":
		return ln >= rn
	}
	logger.Log.WithFields(logrus.Fields{"mob": m.ID, "op": op}).Warn("unknown comparison operator")
	return false
}

func (in *Interpreter) calculate(m *mob.Mob, a *types.ActionCall) {
	args := resolve(m, a.Args)
	lhs := number(args[1])
	rhs := number(args[3])

	var result float64
	switch args[2] {
	case "+":
		result = lhs + rhs
	case "-":
		result = lhs - rhs
	case "*":
		result = lhs * rhs
	case "/":
		if rhs != 0 {
			result = lhs / rhs
		}
	case "%":
		if rhs != 0 {
			result = math.Mod(lhs, rhs)
		}
	case "^":
		result = math.Pow(lhs, rhs)
	default:
		logger.Log.WithFields(logrus.Fields{"mob": m.ID, "op": args[2]}).Warn("unknown calculation operator")
		return
	}
	m.SetVar(args[0], FormatNumber(result))
}

func (in *Interpreter) randomInt(s *mob.Session, m *mob.Mob, a *types.ActionCall) {
	args := resolve(m, a.Args)
	lo, hi := int(number(args[1])), int(number(args[2]))
	if hi < lo {
		lo, hi = hi, lo
	}
	v := lo
	if s.Rand != nil && hi > lo {
		v = lo + s.Rand.Intn(hi-lo+1)
	}
	m.SetVar(args[0], strconv.Itoa(v))
}

func (in *Interpreter) randomFloat(s *mob.Session, m *mob.Mob, a *types.ActionCall) {
	args := resolve(m, a.Args)
	lo, hi := number(args[1]), number(args[2])
	if hi < lo {
		lo, hi = hi, lo
	}
	v := lo
	if s.Rand != nil {
		v = lo + s.Rand.Float64()*(hi-lo)
	}
	m.SetVar(args[0], FormatNumber(v))
}

// number parses a script value, treating anything non-numeric as 0.
func number(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// FormatNumber renders a number the way script variables store it.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
