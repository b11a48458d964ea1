// Package script compiles authored state tables into the immutable,
// jump-resolved instruction lists the interpreter runs.
package script

import (
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/nathoo/mobcore/types"
)

// Flags are per-event load settings.
type Flags uint8

const (
	// GlobalActionsAfter puts the global event's actions after the
	// state's own actions instead of before them.
	GlobalActionsAfter Flags = 1 << iota
)

// EventSource is an authored event before merging.
type EventSource struct {
	Type    types.EventType
	Actions []types.ActionCall
	Flags   Flags
}

// StateSource is an authored state before merging.
type StateSource struct {
	Name   string
	Events []EventSource
}

// TypeSource is everything the compiler needs from one mob type.
type TypeSource struct {
	Type                 string
	States               []StateSource
	Global               []EventSource
	FirstState           string
	DyingState           string
	StatesIgnoringDeath  []string
	StatesIgnoringSpray  []string
	StatesIgnoringHazard []string
}

// Diagnostics collects load-time problems. None of them abort a load.
type Diagnostics []string

func (d *Diagnostics) add(format string, args ...any) {
	*d = append(*d, fmt.Sprintf(format, args...))
}

// Compile merges, injects defaults, and resolves every state of a type.
// It returns the state table, the index of the first state, and the
// diagnostics gathered along the way.
func Compile(src TypeSource) ([]types.StateDef, int, Diagnostics) {
	var diags Diagnostics

	// 1. Index state names.
	names := map[string]int{}
	for i, st := range src.States {
		if _, dup := names[st.Name]; dup {
			diags.add("type %q: duplicate state %q", src.Type, st.Name)
			continue
		}
		names[st.Name] = i
	}

	// 2. Merge and inject per state.
	states := make([]types.StateDef, len(src.States))
	for i, st := range src.States {
		merged := Merge(st.Events, src.Global)
		merged = InjectDefaults(merged, st.Name, src)
		states[i] = types.StateDef{
			Name:   st.Name,
			ID:     i,
			Events: map[types.EventType]*types.EventDef{},
		}
		for _, ev := range merged {
			states[i].Events[ev.Type] = &types.EventDef{
				Type:    ev.Type,
				Actions: slices.Clone(ev.Actions),
			}
		}
	}

	// 3. Resolve names and jumps.
	ResolveStates(src.Type, states, names, src.DyingState, &diags)
	for i := range states {
		for _, evType := range sortedEventTypes(states[i].Events) {
			ev := states[i].Events[evType]
			where := fmt.Sprintf("type %q state %q event %s", src.Type, states[i].Name, EventName(evType))
			for _, label := range ResolveJumps(ev.Actions) {
				diags.add("%s: goto %q has no matching label", where, label)
			}
			for _, msg := range checkReachability(ev.Actions) {
				diags.add("%s: %s", where, msg)
			}
		}
	}

	// 4. First state.
	first := 0
	if src.FirstState != "" {
		idx, ok := names[src.FirstState]
		if !ok {
			diags.add("type %q: first state %q does not exist", src.Type, src.FirstState)
		} else {
			first = idx
		}
	}

	return states, first, diags
}

// Merge folds the global events into a state's events. A shared event type
// gets both action lists, global ones first unless either side asks for
// GlobalActionsAfter. Global events the state lacks are appended as-is.
func Merge(events, global []EventSource) []EventSource {
	out := make([]EventSource, len(events))
	for i, ev := range events {
		out[i] = EventSource{Type: ev.Type, Flags: ev.Flags, Actions: slices.Clone(ev.Actions)}
	}

	for _, g := range global {
		merged := false
		for i := range out {
			if out[i].Type != g.Type {
				continue
			}
			if (g.Flags|out[i].Flags)&GlobalActionsAfter != 0 {
				out[i].Actions = append(out[i].Actions, g.Actions...)
			} else {
				out[i].Actions = append(slices.Clone(g.Actions), out[i].Actions...)
			}
			merged = true
			break
		}
		if !merged {
			out = append(out, EventSource{Type: g.Type, Flags: g.Flags, Actions: slices.Clone(g.Actions)})
		}
	}
	return out
}

// InjectDefaults adds the safety handlers every state needs when the merged
// table does not already cover them.
func InjectDefaults(events []EventSource, stateName string, src TypeSource) []EventSource {
	has := func(t types.EventType) bool {
		for _, ev := range events {
			if ev.Type == t {
				return true
			}
		}
		return false
	}
	inject := func(t types.EventType, kind types.ActionKind) {
		events = append(events, EventSource{Type: t, Actions: []types.ActionCall{internalCall(kind)}})
	}

	if !has(types.EvHitboxTouchNA) {
		inject(types.EvHitboxTouchNA, types.ActBeAttacked)
	}
	if src.DyingState != "" &&
		stateName != src.DyingState &&
		!slices.Contains(src.StatesIgnoringDeath, stateName) &&
		!has(types.EvZeroHealth) {
		inject(types.EvZeroHealth, types.ActGoToDyingState)
	}
	if !has(types.EvBottomlessPit) {
		inject(types.EvBottomlessPit, types.ActFallDownPit)
	}
	if !has(types.EvTouchedSpray) && !slices.Contains(src.StatesIgnoringSpray, stateName) {
		inject(types.EvTouchedSpray, types.ActTouchSpray)
	}
	if !has(types.EvTouchedHazard) && !slices.Contains(src.StatesIgnoringHazard, stateName) {
		inject(types.EvTouchedHazard, types.ActTouchHazard)
	}
	return events
}

// ResolveStates rewrites every state-change action to a numeric index.
// Unknown names become types.StateInvalid and are reported.
func ResolveStates(typeName string, states []types.StateDef, names map[string]int, dying string, diags *Diagnostics) {
	for i := range states {
		for _, evType := range sortedEventTypes(states[i].Events) {
			actions := states[i].Events[evType].Actions
			for a := range actions {
				switch actions[a].Kind {
				case types.ActSetState:
					actions[a].State = resolveState(typeName, states[i].Name, actions[a].Args[0], names, diags)
				case types.ActGoToDyingState:
					idx, ok := names[dying]
					if !ok {
						diags.add("type %q: dying state %q does not exist", typeName, dying)
						idx = types.StateInvalid
					}
					actions[a].State = idx
				}
			}
		}
	}
}

func resolveState(typeName, from string, arg types.Arg, names map[string]int, diags *Diagnostics) int {
	if arg.Var {
		diags.add("type %q state %q: set_state target cannot be a variable ($%s)", typeName, from, arg.Value)
		return types.StateInvalid
	}
	// Already numeric.
	if n, err := strconv.Atoi(arg.Value); err == nil {
		return n
	}
	if idx, ok := names[arg.Value]; ok {
		return idx
	}
	diags.add("type %q state %q: unknown state %q", typeName, from, arg.Value)
	return types.StateInvalid
}

// ResolveJumps fills in the jump target of every if, else and goto in an
// instruction list. It returns the labels of gotos with no match; those
// keep a jump of -1 and run as no-ops.
func ResolveJumps(actions []types.ActionCall) []string {
	var missing []string
	for i := range actions {
		switch actions[i].Kind {
		case types.ActIf:
			actions[i].Jump = matchForward(actions, i, true)
		case types.ActElse:
			actions[i].Jump = matchForward(actions, i, false)
		case types.ActGoto:
			actions[i].Jump = -1
			for j := range actions {
				if actions[j].Kind == types.ActLabel && actions[j].Args[0].Value == actions[i].Args[0].Value {
					actions[i].Jump = j
					break
				}
			}
			if actions[i].Jump == -1 {
				missing = append(missing, actions[i].Args[0].Value)
			}
		}
	}
	return missing
}

// matchForward finds the else (when stopAtElse) or end_if that closes the
// conditional at index from, skipping nested conditionals. It returns
// len(actions) when there is none.
func matchForward(actions []types.ActionCall, from int, stopAtElse bool) int {
	depth := 0
	for j := from + 1; j < len(actions); j++ {
		switch actions[j].Kind {
		case types.ActIf:
			depth++
		case types.ActElse:
			if stopAtElse && depth == 0 {
				return j
			}
		case types.ActEndIf:
			if depth == 0 {
				return j
			}
			depth--
		}
	}
	return len(actions)
}

// checkReachability reports actions that follow a state change with no
// else, end_if, or label in between.
func checkReachability(actions []types.ActionCall) []string {
	var msgs []string
	for i := 0; i+1 < len(actions); i++ {
		if !SpecOf(actions[i].Kind).ChangesState {
			continue
		}
		switch actions[i+1].Kind {
		case types.ActElse, types.ActEndIf, types.ActLabel:
		default:
			msgs = append(msgs, fmt.Sprintf("action %q after %q will never run",
				actions[i+1].Name, actions[i].Name))
		}
	}
	return msgs
}

func sortedEventTypes(m map[types.EventType]*types.EventDef) []types.EventType {
	keys := make([]types.EventType, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
