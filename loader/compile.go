// Package loader loads Lua mob content into Go structs at load time.
// The Lua VM is discarded after loading; nothing runs Lua at simulation time.
package loader

import (
	"fmt"
	"math"
	"sort"

	"github.com/nathoo/mobcore/engine/script"
	"github.com/nathoo/mobcore/types"
	lua "github.com/yuin/gopher-lua"
)

const degToRad = math.Pi / 180

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getNumber returns a numeric field from a Lua table, or the default if missing.
func getNumber(tbl *lua.LTable, key string, def float64) float64 {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return def
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key, 0))
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// getPoint reads {x, y} or {x = .., y = ..}.
func getPoint(tbl *lua.LTable, key string) types.Point {
	t := getTable(tbl, key)
	if t == nil {
		return types.Point{}
	}
	if t.MaxN() >= 2 {
		x, _ := t.RawGetInt(1).(lua.LNumber)
		y, _ := t.RawGetInt(2).(lua.LNumber)
		return types.Point{X: float64(x), Y: float64(y)}
	}
	return types.Point{X: getNumber(t, "x", 0), Y: getNumber(t, "y", 0)}
}

// getStringList reads an array of strings, skipping anything else.
func getStringList(tbl *lua.LTable, key string) []string {
	t := getTable(tbl, key)
	if t == nil {
		return nil
	}
	var out []string
	for i := 1; i <= t.MaxN(); i++ {
		if s, ok := t.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// tableToStringMap converts a Lua table to a map[string]string. Numbers
// and booleans are stored in their script form.
func tableToStringMap(tbl *lua.LTable) map[string]string {
	if tbl == nil {
		return nil
	}
	m := map[string]string{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			if vs, ok := argString(v); ok {
				m[string(ks)] = vs
			}
		}
	})
	return m
}

// sortedKeys returns the string keys of a table in lexical order.
func sortedKeys(tbl *lua.LTable) []string {
	var keys []string
	tbl.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			keys = append(keys, string(ks))
		}
	})
	sort.Strings(keys)
	return keys
}

// compile converts collected Lua tables into typed Go structs.
func compile(coll *collector) (*types.Defs, error) {
	if coll.game == nil {
		return nil, fmt.Errorf("no Game{} definition found")
	}

	defs := &types.Defs{
		Title:    getString(coll.game, "title"),
		MobTypes: map[string]*types.MobTypeDef{},
		Statuses: map[string]*types.StatusTypeDef{},
	}

	for _, raw := range coll.statuses {
		if _, dup := defs.Statuses[raw.id]; dup {
			return nil, fmt.Errorf("duplicate status type %q", raw.id)
		}
		st, err := compileStatus(raw)
		if err != nil {
			return nil, fmt.Errorf("status type %q: %w", raw.id, err)
		}
		defs.Statuses[raw.id] = st
	}

	for _, raw := range coll.mobTypes {
		if _, dup := defs.MobTypes[raw.id]; dup {
			return nil, fmt.Errorf("duplicate mob type %q", raw.id)
		}
		mt, warnings, err := compileMobType(raw)
		if err != nil {
			return nil, fmt.Errorf("mob type %q: %w", raw.id, err)
		}
		defs.MobTypes[raw.id] = mt
		defs.Warnings = append(defs.Warnings, warnings...)
	}

	seen := map[string]bool{}
	for _, raw := range coll.stops {
		if seen[raw.id] {
			return nil, fmt.Errorf("duplicate path stop %q", raw.id)
		}
		seen[raw.id] = true
		defs.PathStops = append(defs.PathStops, compilePathStop(raw))
	}

	places, err := compilePlacements(coll.places)
	if err != nil {
		return nil, err
	}
	defs.Placements = places

	return defs, nil
}

func compileStatus(raw rawDef) (*types.StatusTypeDef, error) {
	tbl := raw.table
	st := &types.StatusTypeDef{
		Name:                 raw.id,
		AutoRemoveTime:       getNumber(tbl, "auto_remove_time", 0),
		HealthChange:         getNumber(tbl, "health_change", 0),
		HealthChangeRatio:    getNumber(tbl, "health_change_ratio", 0),
		SpeedMultiplier:      getNumber(tbl, "speed_multiplier", 1),
		RemovableWithWhistle: getBool(tbl, "removable_with_whistle", false),
		RemoveOnHazardLeave:  getBool(tbl, "remove_on_hazard_leave", false),
		FreezesAnimation:     getBool(tbl, "freezes_animation", false),
		Replacement:          getString(tbl, "replacement"),
	}

	switch r := getString(tbl, "reapply"); r {
	case "", "keep_time":
		st.Reapply = types.ReapplyKeepTime
	case "reset_time":
		st.Reapply = types.ReapplyResetTime
	case "add_time":
		st.Reapply = types.ReapplyAddTime
	default:
		return nil, fmt.Errorf("unknown reapply rule %q", r)
	}

	for _, a := range getStringList(tbl, "affects") {
		switch a {
		case "carriers":
			st.Affects |= types.AffectsCarriers
		case "leaders":
			st.Affects |= types.AffectsLeaders
		case "enemies":
			st.Affects |= types.AffectsEnemies
		case "others":
			st.Affects |= types.AffectsOthers
		default:
			return nil, fmt.Errorf("unknown affects category %q", a)
		}
	}
	return st, nil
}

var carryDestinations = map[string]types.CarryDestination{
	"ship":                     types.CarryToShip,
	"nest":                     types.CarryToNest,
	"ship_no_nest":             types.CarryToShipNoNest,
	"linked_mob":               types.CarryToLinkedMob,
	"linked_mob_matching_type": types.CarryToLinkedMobMatchingType,
}

var spawnRelations = map[string]types.SpawnRelation{
	"":      types.RelationNone,
	"none":  types.RelationNone,
	"link":  types.RelationLink,
	"child": types.RelationChild,
}

func compileMobType(raw rawDef) (*types.MobTypeDef, []string, error) {
	tbl := raw.table
	mt := &types.MobTypeDef{
		Name:            raw.id,
		Category:        getString(tbl, "category"),
		MaxHealth:       getNumber(tbl, "max_health", 0),
		HealthRegen:     getNumber(tbl, "health_regen", 0),
		MoveSpeed:       getNumber(tbl, "move_speed", 0),
		Acceleration:    getNumber(tbl, "acceleration", 0),
		RotationSpeed:   getNumber(tbl, "rotation_speed", 0) * degToRad,
		Radius:          getNumber(tbl, "radius", 0),
		Weight:          getNumber(tbl, "weight", 0),
		CarrySpots:      getInt(tbl, "carry_spots"),
		CarryStrength:   getNumber(tbl, "carry_strength", 1),
		CanFreeMove:     getBool(tbl, "can_free_move", false),
		TerritoryRadius: getNumber(tbl, "territory_radius", 0),
		Reach:           getNumber(tbl, "reach", 0),
		ItchDamage:      getNumber(tbl, "itch_damage", 0),
		ItchTime:        getNumber(tbl, "itch_time", 0),
		NestTypes:       getStringList(tbl, "nest_types"),
		SpraysStatus:    getString(tbl, "sprays_status"),
		HazardStatus:    getString(tbl, "hazard_status"),
		DefaultVuln:     getNumber(tbl, "default_vulnerability", 1),
		Vars:            tableToStringMap(getTable(tbl, "vars")),
		DyingState:      getString(tbl, "dying_state"),
	}

	dest := getString(tbl, "carry_destination")
	if dest != "" {
		d, ok := carryDestinations[dest]
		if !ok {
			return nil, nil, fmt.Errorf("unknown carry destination %q", dest)
		}
		mt.CarryDestination = d
	}

	if vt := getTable(tbl, "vulnerabilities"); vt != nil {
		mt.Vulnerabilities = map[string]types.Vulnerability{}
		for _, name := range sortedKeys(vt) {
			switch v := vt.RawGetString(name).(type) {
			case lua.LNumber:
				mt.Vulnerabilities[name] = types.Vulnerability{EffectMult: float64(v)}
			case *lua.LTable:
				mt.Vulnerabilities[name] = types.Vulnerability{
					EffectMult: getNumber(v, "mult", 1),
					StatusTo:   getString(v, "status_to"),
				}
			default:
				return nil, nil, fmt.Errorf("vulnerability %q must be a number or a table", name)
			}
		}
	}

	if sp := getTable(tbl, "spawns"); sp != nil {
		for i := 1; i <= sp.MaxN(); i++ {
			st, ok := sp.RawGetInt(i).(*lua.LTable)
			if !ok {
				return nil, nil, fmt.Errorf("spawns[%d] is not a table", i)
			}
			def, err := compileSpawn(st)
			if err != nil {
				return nil, nil, fmt.Errorf("spawns[%d]: %w", i, err)
			}
			mt.Spawns = append(mt.Spawns, def)
		}
	}

	// Scripts.
	var warnings []string
	src := script.TypeSource{
		Type:                 raw.id,
		FirstState:           getString(tbl, "first_state"),
		DyingState:           mt.DyingState,
		StatesIgnoringDeath:  getStringList(tbl, "states_ignoring_death"),
		StatesIgnoringSpray:  getStringList(tbl, "states_ignoring_spray"),
		StatesIgnoringHazard: getStringList(tbl, "states_ignoring_hazard"),
	}
	if g := getTable(tbl, "global"); g != nil {
		src.Global = compileEvents(g, fmt.Sprintf("type %q global", raw.id), &warnings)
	}
	if states := getTable(tbl, "states"); states != nil {
		for i := 1; i <= states.MaxN(); i++ {
			st, ok := states.RawGetInt(i).(*lua.LTable)
			if !ok {
				return nil, nil, fmt.Errorf("states[%d] is not a table", i)
			}
			name := getString(st, "__state")
			if name == "" {
				name = getString(st, "name")
			}
			if name == "" {
				return nil, nil, fmt.Errorf("states[%d] has no name; declare it with State \"name\" { ... }", i)
			}
			src.States = append(src.States, script.StateSource{
				Name:   name,
				Events: compileEvents(st, fmt.Sprintf("type %q state %q", raw.id, name), &warnings),
			})
		}
	}

	states, first, diags := script.Compile(src)
	mt.States = states
	mt.FirstState = first
	warnings = append(warnings, diags...)
	return mt, warnings, nil
}

func compileSpawn(tbl *lua.LTable) (types.SpawnDef, error) {
	rel := getString(tbl, "relation")
	r, ok := spawnRelations[rel]
	if !ok {
		return types.SpawnDef{}, fmt.Errorf("unknown relation %q", rel)
	}
	return types.SpawnDef{
		Name:           getString(tbl, "name"),
		Type:           getString(tbl, "type"),
		Offset:         getPoint(tbl, "offset"),
		Angle:          getNumber(tbl, "angle", 0) * degToRad,
		Relation:       r,
		HandleEvents:   getBool(tbl, "handle_events", false),
		RelayEvents:    getBool(tbl, "relay_events", false),
		HandleStatuses: getBool(tbl, "handle_statuses", false),
		RelayStatuses:  getBool(tbl, "relay_statuses", false),
		HandleDamage:   getBool(tbl, "handle_damage", false),
		RelayDamage:    getBool(tbl, "relay_damage", false),
	}, nil
}

// compileEvents reads every on_* key of a state (or global) table.
// Unknown events and malformed actions become warnings and are skipped.
func compileEvents(tbl *lua.LTable, where string, warnings *[]string) []script.EventSource {
	var out []script.EventSource
	for _, key := range sortedKeys(tbl) {
		if key == "__state" || key == "name" {
			continue
		}
		evType, ok := types.EventNames[key]
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("%s: unknown event %q", where, key))
			continue
		}
		list, ok := tbl.RawGetString(key).(*lua.LTable)
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("%s: event %q is not an action list", where, key))
			continue
		}
		actions, flags := compileActions(list, where+" event "+key, warnings)
		out = append(out, script.EventSource{Type: evType, Actions: actions, Flags: flags})
	}
	return out
}

func compileActions(list *lua.LTable, where string, warnings *[]string) ([]types.ActionCall, script.Flags) {
	var (
		actions []types.ActionCall
		flags   script.Flags
	)
	for i := 1; i <= list.MaxN(); i++ {
		item, ok := list.RawGetInt(i).(*lua.LTable)
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("%s: action %d is not a table", where, i))
			continue
		}
		if getString(item, "flag") == flagGlobalActionsAfter {
			flags |= script.GlobalActionsAfter
			continue
		}

		name := getString(item, "action")
		var args []string
		if at := getTable(item, "args"); at != nil {
			for j := 1; j <= at.MaxN(); j++ {
				s, _ := argString(at.RawGetInt(j))
				args = append(args, s)
			}
		}
		call, err := script.NewCall(name, args)
		if err != nil {
			*warnings = append(*warnings, fmt.Sprintf("%s: %v; action dropped", where, err))
			continue
		}
		actions = append(actions, call)
	}
	return actions, flags
}

func compilePathStop(raw rawDef) types.PathStopDef {
	stop := types.PathStopDef{
		Name: raw.id,
		Pos:  getPoint(raw.table, "pos"),
	}
	links := getTable(raw.table, "links")
	if links == nil {
		return stop
	}
	for i := 1; i <= links.MaxN(); i++ {
		switch l := links.RawGetInt(i).(type) {
		case lua.LString:
			stop.Links = append(stop.Links, types.PathLinkDef{To: string(l)})
		case *lua.LTable:
			stop.Links = append(stop.Links, types.PathLinkDef{
				To:      getString(l, "to"),
				Blocked: getBool(l, "blocked", false),
			})
		}
	}
	return stop
}

// compilePlacements resolves placement ids into list indexes.
func compilePlacements(raws []rawDef) ([]types.PlacementDef, error) {
	ids := map[string]int{}
	for i, raw := range raws {
		id := getString(raw.table, "id")
		if id == "" {
			continue
		}
		if _, dup := ids[id]; dup {
			return nil, fmt.Errorf("duplicate placement id %q", id)
		}
		ids[id] = i
	}

	out := make([]types.PlacementDef, 0, len(raws))
	for i, raw := range raws {
		p := types.PlacementDef{
			Type:  raw.id,
			Pos:   getPoint(raw.table, "pos"),
			Angle: getNumber(raw.table, "angle", 0) * degToRad,
			Vars:  tableToStringMap(getTable(raw.table, "vars")),
		}
		for _, to := range getStringList(raw.table, "links") {
			idx, ok := ids[to]
			if !ok {
				return nil, fmt.Errorf("placement %d (%s) links to unknown placement %q", i, raw.id, to)
			}
			p.Links = append(p.Links, idx)
		}
		out = append(out, p)
	}
	return out, nil
}

// sortedLuaFiles returns files with game.lua first, then alphabetical.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
