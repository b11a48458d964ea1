package loader

import (
	"strings"

	"github.com/nathoo/mobcore/engine/script"
	lua "github.com/yuin/gopher-lua"
)

// flagGlobalActionsAfter is the marker GlobalActionsAfter() leaves in an
// event's action list.
const flagGlobalActionsAfter = "global_actions_after"

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerActionHelpers(L)
}

// curried registers a constructor of the form Name "id" { ... }.
func curried(L *lua.LState, name string, add func(id string, tbl *lua.LTable)) {
	L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			add(id, L.CheckTable(1))
			return 0
		}))
		return 1
	}))
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "..." }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	// MobType "name" { ... }
	curried(L, "MobType", func(id string, tbl *lua.LTable) {
		coll.mobTypes = append(coll.mobTypes, rawDef{id: id, table: tbl, order: coll.nextSourceOrder()})
	})

	// StatusType "name" { ... }
	curried(L, "StatusType", func(id string, tbl *lua.LTable) {
		coll.statuses = append(coll.statuses, rawDef{id: id, table: tbl, order: coll.nextSourceOrder()})
	})

	// PathStop "name" { pos = {x, y}, links = { ... } }
	curried(L, "PathStop", func(id string, tbl *lua.LTable) {
		coll.stops = append(coll.stops, rawDef{id: id, table: tbl, order: coll.nextSourceOrder()})
	})

	// Place "type" { id = "...", pos = {x, y}, ... }
	curried(L, "Place", func(id string, tbl *lua.LTable) {
		coll.places = append(coll.places, rawDef{id: id, table: tbl, order: coll.nextSourceOrder()})
	})

	// State "name" { on_enter = { ... } } is used inside a MobType's
	// states list, so it returns the tagged table instead of collecting it.
	L.SetGlobal("State", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			tbl.RawSetString("__state", lua.LString(name))
			L.Push(tbl)
			return 1
		}))
		return 1
	}))

	// GlobalActionsAfter() inside an event list puts the global actions
	// after the state's own.
	L.SetGlobal("GlobalActionsAfter", L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		t.RawSetString("flag", lua.LString(flagGlobalActionsAfter))
		L.Push(t)
		return 1
	}))

	// Var("hp") is shorthand for "$hp".
	L.SetGlobal("Var", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString("$" + L.CheckString(1)))
		return 1
	}))
}

// registerActionHelpers exposes one constructor per author-facing action:
// set_state becomes SetState(...), send_message_to_nearby becomes
// SendMessageToNearby(...). Each returns {action = name, args = {...}}
// with every argument turned into a string.
func registerActionHelpers(L *lua.LState) {
	for _, name := range script.Names() {
		action := name
		L.SetGlobal(helperName(action), L.NewFunction(func(L *lua.LState) int {
			t := L.NewTable()
			t.RawSetString("action", lua.LString(action))
			args := L.NewTable()
			for i := 1; i <= L.GetTop(); i++ {
				s, ok := argString(L.Get(i))
				if !ok {
					L.ArgError(i, "expected string, number or boolean")
					return 0
				}
				args.Append(lua.LString(s))
			}
			t.RawSetString("args", args)
			L.Push(t)
			return 1
		}))
	}
}

// helperName turns snake_case into CamelCase.
func helperName(action string) string {
	var b strings.Builder
	for _, part := range strings.Split(action, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

func argString(v lua.LValue) (string, bool) {
	switch val := v.(type) {
	case lua.LString:
		return string(val), true
	case lua.LNumber:
		return val.String(), true
	case lua.LBool:
		if val {
			return "true", true
		}
		return "false", true
	}
	return "", false
}
