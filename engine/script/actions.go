package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nathoo/mobcore/types"
)

// Param is the expected shape of a positional argument.
type Param int

const (
	ParamAny Param = iota
	ParamNumber
)

// ActionSpec describes how an action kind is called from a script.
type ActionSpec struct {
	Kind         types.ActionKind
	Name         string
	Params       []Param
	Min          int  // required argument count
	Variadic     bool // extra arguments take the last param's shape
	ChangesState bool // a run ends right after this action
	Internal     bool // injected by the compiler only
}

var specList = []ActionSpec{
	{Kind: types.ActSetState, Name: "set_state", Params: []Param{ParamAny}, Min: 1, ChangesState: true},
	{Kind: types.ActIf, Name: "if", Params: []Param{ParamAny, ParamAny, ParamAny}, Min: 3, Variadic: true},
	{Kind: types.ActElse, Name: "else"},
	{Kind: types.ActEndIf, Name: "end_if"},
	{Kind: types.ActGoto, Name: "goto", Params: []Param{ParamAny}, Min: 1},
	{Kind: types.ActLabel, Name: "label", Params: []Param{ParamAny}, Min: 1},
	{Kind: types.ActSetVar, Name: "set_var", Params: []Param{ParamAny, ParamAny}, Min: 2},
	{Kind: types.ActCalculate, Name: "calculate", Params: []Param{ParamAny, ParamNumber, ParamAny, ParamNumber}, Min: 4},
	{Kind: types.ActGetRandomInt, Name: "get_random_int", Params: []Param{ParamAny, ParamNumber, ParamNumber}, Min: 3},
	{Kind: types.ActGetRandomFloat, Name: "get_random_float", Params: []Param{ParamAny, ParamNumber, ParamNumber}, Min: 3},
	{Kind: types.ActPrint, Name: "print", Params: []Param{ParamAny}, Variadic: true},

	{Kind: types.ActSetTimer, Name: "set_timer", Params: []Param{ParamNumber}, Min: 1},
	{Kind: types.ActSetHealth, Name: "set_health", Params: []Param{ParamNumber}, Min: 1},
	{Kind: types.ActAddHealth, Name: "add_health", Params: []Param{ParamNumber}, Min: 1},
	{Kind: types.ActMoveToAbsolute, Name: "move_to_absolute", Params: []Param{ParamNumber, ParamNumber}, Min: 2},
	{Kind: types.ActMoveToRelative, Name: "move_to_relative", Params: []Param{ParamNumber, ParamNumber}, Min: 2},
	{Kind: types.ActMoveToTarget, Name: "move_to_target", Params: []Param{ParamAny}, Min: 1},
	{Kind: types.ActFollowPathToAbsolute, Name: "follow_path_to_absolute", Params: []Param{ParamNumber, ParamNumber}, Min: 2},
	{Kind: types.ActCircle, Name: "circle", Params: []Param{ParamAny, ParamNumber, ParamNumber, ParamAny}, Min: 3},
	{Kind: types.ActStop, Name: "stop"},
	{Kind: types.ActStopCircling, Name: "stop_circling"},
	{Kind: types.ActTurnToAbsolute, Name: "turn_to_absolute", Params: []Param{ParamNumber}, Min: 1},
	{Kind: types.ActTurnToTarget, Name: "turn_to_target", Params: []Param{ParamAny}, Min: 1},
	{Kind: types.ActTeleportToAbsolute, Name: "teleport_to_absolute", Params: []Param{ParamNumber, ParamNumber}, Min: 2},
	{Kind: types.ActFocus, Name: "focus", Params: []Param{ParamAny, ParamAny}, Min: 1},
	{Kind: types.ActUnfocus, Name: "unfocus"},
	{Kind: types.ActLinkWithFocus, Name: "link_with_focus"},
	{Kind: types.ActHoldFocus, Name: "hold_focus"},
	{Kind: types.ActRelease, Name: "release"},
	{Kind: types.ActSendMessageToFocus, Name: "send_message_to_focus", Params: []Param{ParamAny}, Min: 1},
	{Kind: types.ActSendMessageToLinks, Name: "send_message_to_links", Params: []Param{ParamAny}, Min: 1},
	{Kind: types.ActSendMessageToNearby, Name: "send_message_to_nearby", Params: []Param{ParamNumber, ParamAny}, Min: 2},
	{Kind: types.ActReceiveStatus, Name: "receive_status", Params: []Param{ParamAny}, Min: 1},
	{Kind: types.ActRemoveStatus, Name: "remove_status", Params: []Param{ParamAny}, Min: 1},
	{Kind: types.ActSpawn, Name: "spawn", Params: []Param{ParamAny}, Min: 1},
	{Kind: types.ActPlaySound, Name: "play_sound", Params: []Param{ParamAny}, Min: 1},
	{Kind: types.ActStartParticles, Name: "start_particles", Params: []Param{ParamAny}, Min: 1},
	{Kind: types.ActDelete, Name: "delete"},
	{Kind: types.ActJoinFocusGroup, Name: "join_focus_group"},
	{Kind: types.ActLeaveGroup, Name: "leave_group"},
	{Kind: types.ActFollowGroupSpot, Name: "follow_group_spot"},
	{Kind: types.ActCarryFocus, Name: "carry_focus"},
	{Kind: types.ActStopCarrying, Name: "stop_carrying"},
	{Kind: types.ActSetPathLinkBlocked, Name: "set_path_link_blocked", Params: []Param{ParamAny, ParamAny, ParamAny}, Min: 3},
	{Kind: types.ActKnockback, Name: "knockback", Params: []Param{ParamNumber, ParamNumber}, Min: 1},

	{Kind: types.ActBeAttacked, Name: "be_attacked", Internal: true},
	{Kind: types.ActGoToDyingState, Name: "go_to_dying_state", Internal: true, ChangesState: true},
	{Kind: types.ActFallDownPit, Name: "fall_down_pit", Internal: true},
	{Kind: types.ActTouchSpray, Name: "touch_spray", Internal: true},
	{Kind: types.ActTouchHazard, Name: "touch_hazard", Internal: true},
}

var (
	specsByName = map[string]ActionSpec{}
	specsByKind = map[types.ActionKind]ActionSpec{}
)

func init() {
	for _, s := range specList {
		specsByName[s.Name] = s
		specsByKind[s.Kind] = s
	}
}

// Lookup returns the spec of an author-facing action name.
func Lookup(name string) (ActionSpec, bool) {
	s, ok := specsByName[name]
	if !ok || s.Internal {
		return ActionSpec{}, false
	}
	return s, true
}

// SpecOf returns the spec of an action kind.
func SpecOf(kind types.ActionKind) ActionSpec {
	return specsByKind[kind]
}

// Names returns every author-facing action name in declaration order.
func Names() []string {
	var names []string
	for _, s := range specList {
		if !s.Internal {
			names = append(names, s.Name)
		}
	}
	return names
}

// ParseArg turns a raw token into an argument. "$name" refers to a variable;
// "$$" escapes a literal leading "$".
func ParseArg(raw string) types.Arg {
	if strings.HasPrefix(raw, "$$") {
		return types.Arg{Value: raw[1:]}
	}
	if len(raw) > 1 && raw[0] == '$' {
		return types.Arg{Value: raw[1:], Var: true}
	}
	return types.Arg{Value: raw}
}

// NewCall builds an action call from its name and raw tokens, checking the
// argument count and numeric literals.
func NewCall(name string, raw []string) (types.ActionCall, error) {
	spec, ok := Lookup(name)
	if !ok {
		return types.ActionCall{}, fmt.Errorf("unknown action %q", name)
	}
	if len(raw) < spec.Min {
		return types.ActionCall{}, fmt.Errorf("action %q needs at least %d argument(s), got %d",
			name, spec.Min, len(raw))
	}
	if !spec.Variadic && len(raw) > len(spec.Params) {
		return types.ActionCall{}, fmt.Errorf("action %q takes at most %d argument(s), got %d",
			name, len(spec.Params), len(raw))
	}

	call := types.ActionCall{Kind: spec.Kind, Name: spec.Name}
	for i, r := range raw {
		arg := ParseArg(r)
		if !arg.Var && paramAt(spec, i) == ParamNumber {
			if _, err := strconv.ParseFloat(arg.Value, 64); err != nil {
				return types.ActionCall{}, fmt.Errorf("action %q argument %d: %q is not a number",
					name, i+1, arg.Value)
			}
		}
		call.Args = append(call.Args, arg)
	}
	return call, nil
}

// internalCall builds a compiler-injected action.
func internalCall(kind types.ActionKind) types.ActionCall {
	return types.ActionCall{Kind: kind, Name: SpecOf(kind).Name}
}

func paramAt(spec ActionSpec, i int) Param {
	if len(spec.Params) == 0 {
		return ParamAny
	}
	if i >= len(spec.Params) {
		return spec.Params[len(spec.Params)-1]
	}
	return spec.Params[i]
}

// EventName returns the printable name of an event type.
func EventName(ev types.EventType) string {
	if name, ok := types.InternalEventNames[ev]; ok {
		return name
	}
	for name, t := range types.EventNames {
		if t == ev {
			return name
		}
	}
	return fmt.Sprintf("event_%d", int(ev))
}
