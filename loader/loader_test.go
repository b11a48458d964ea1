package loader

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/nathoo/mobcore/config"
	"github.com/nathoo/mobcore/engine"
	"github.com/nathoo/mobcore/types"
)

func TestLoad_MinimalContent(t *testing.T) {
	defs, err := Load("testdata/minimal")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if defs.Title != "Minimal Test World" {
		t.Errorf("Title = %q, want %q", defs.Title, "Minimal Test World")
	}
	rock, ok := defs.MobTypes["rock"]
	if !ok {
		t.Fatal("mob type 'rock' not found")
	}
	if rock.MaxHealth != 10 {
		t.Errorf("rock max health = %v, want 10", rock.MaxHealth)
	}
	if len(rock.States) != 1 || rock.States[0].Name != "idle" {
		t.Errorf("rock states = %+v, want [idle]", rock.States)
	}
	// Defaults a type does not declare.
	if rock.CarryStrength != 1 {
		t.Errorf("carry strength = %v, want 1", rock.CarryStrength)
	}
	if rock.DefaultVuln != 1 {
		t.Errorf("default vulnerability = %v, want 1", rock.DefaultVuln)
	}
}

func TestLoad_FullContent(t *testing.T) {
	defs, err := Load("testdata/full")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if defs.Title != "Full Test World" {
		t.Errorf("Title = %q", defs.Title)
	}
	if len(defs.MobTypes) != 4 {
		t.Errorf("expected 4 mob types, got %d", len(defs.MobTypes))
	}
	if len(defs.Statuses) != 3 {
		t.Errorf("expected 3 statuses, got %d", len(defs.Statuses))
	}
	if len(defs.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", defs.Warnings)
	}

	worker := defs.MobTypes["worker"]
	if worker.Category != "carrier" {
		t.Errorf("worker category = %q", worker.Category)
	}
	if math.Abs(worker.RotationSpeed-math.Pi) > 1e-9 {
		t.Errorf("rotation speed = %v, want pi (180 degrees)", worker.RotationSpeed)
	}
	if worker.HazardStatus != "burning" {
		t.Errorf("hazard status = %q", worker.HazardStatus)
	}
	if worker.Vars["mood"] != "calm" || worker.Vars["patience"] != "3" {
		t.Errorf("vars = %v", worker.Vars)
	}
	if worker.DyingState != "dying" {
		t.Errorf("dying state = %q", worker.DyingState)
	}
	if worker.FirstState != 0 {
		t.Errorf("first state = %d, want 0", worker.FirstState)
	}

	burning := worker.Vulnerabilities["burning"]
	if burning.EffectMult != 2 || burning.StatusTo != "scorched" {
		t.Errorf("burning vulnerability = %+v", burning)
	}
	if wet := worker.Vulnerabilities["wet"]; wet.EffectMult != 0.5 || wet.StatusTo != "" {
		t.Errorf("wet vulnerability = %+v", wet)
	}

	pellet := defs.MobTypes["pellet"]
	if pellet.CarrySpots != 4 || pellet.Weight != 2 {
		t.Errorf("pellet spots = %d weight = %v", pellet.CarrySpots, pellet.Weight)
	}
	if pellet.CarryDestination != types.CarryToNest {
		t.Errorf("pellet destination = %v, want nest", pellet.CarryDestination)
	}
	if len(pellet.NestTypes) != 1 || pellet.NestTypes[0] != "nest" {
		t.Errorf("nest types = %v", pellet.NestTypes)
	}
}

func TestLoad_StatusTypes(t *testing.T) {
	defs, err := Load("testdata/full")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	wet := defs.Statuses["wet"]
	if wet.Reapply != types.ReapplyResetTime {
		t.Errorf("wet reapply = %v, want reset time", wet.Reapply)
	}
	if wet.Affects != types.AffectsCarriers|types.AffectsEnemies {
		t.Errorf("wet affects = %b", wet.Affects)
	}
	if wet.SpeedMultiplier != 0.5 || !wet.RemovableWithWhistle {
		t.Errorf("wet = %+v", wet)
	}

	burning := defs.Statuses["burning"]
	if burning.Reapply != types.ReapplyAddTime {
		t.Errorf("burning reapply = %v, want add time", burning.Reapply)
	}
	if burning.HealthChange != -2 || burning.Replacement != "scorched" || !burning.RemoveOnHazardLeave {
		t.Errorf("burning = %+v", burning)
	}

	scorched := defs.Statuses["scorched"]
	if scorched.Reapply != types.ReapplyKeepTime {
		t.Errorf("scorched reapply = %v, want keep time", scorched.Reapply)
	}
	if scorched.SpeedMultiplier != 1 {
		t.Errorf("scorched speed multiplier = %v, want default 1", scorched.SpeedMultiplier)
	}
	if !scorched.FreezesAnimation {
		t.Error("scorched should freeze animation")
	}
}

func TestLoad_ScriptsMergedAndResolved(t *testing.T) {
	defs, err := Load("testdata/full")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	worker := defs.MobTypes["worker"]
	idle, walking, dying := worker.States[0], worker.States[1], worker.States[2]

	// Global actions go first by default.
	got := actionNames(idle.Events[types.EvReceiveMessage])
	want := []string{"if", "set_state", "end_if"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("idle on_receive_message = %v, want %v", got, want)
	}

	// GlobalActionsAfter puts them last.
	got = actionNames(walking.Events[types.EvReceiveMessage])
	want = []string{"print", "if", "set_state", "end_if"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("walking on_receive_message = %v, want %v", got, want)
	}

	// Var helper produces a variable reference.
	p := walking.Events[types.EvReceiveMessage].Actions[0]
	if len(p.Args) != 2 || !p.Args[1].Var || p.Args[1].Value != "message" {
		t.Errorf("print args = %+v", p.Args)
	}

	// State names resolved to indexes.
	timer := idle.Events[types.EvTimer].Actions
	if timer[len(timer)-1].State != 1 {
		t.Errorf("idle on_timer set_state target = %d, want 1", timer[len(timer)-1].State)
	}

	// Injected defaults.
	zero := idle.Events[types.EvZeroHealth]
	if zero == nil || zero.Actions[0].Kind != types.ActGoToDyingState || zero.Actions[0].State != 2 {
		t.Errorf("idle zero health = %+v, want go_to_dying_state -> 2", zero)
	}
	if _, ok := dying.Events[types.EvZeroHealth]; ok {
		t.Error("dying state should not get a zero health handler")
	}
	if _, ok := dying.Events[types.EvTouchedSpray]; ok {
		t.Error("dying ignores spray but got a touched spray handler")
	}
	if _, ok := idle.Events[types.EvHitboxTouchNA]; !ok {
		t.Error("idle should get the default be_attacked handler")
	}
}

func TestLoad_SpawnsAndWorld(t *testing.T) {
	defs, err := Load("testdata/full")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	beast := defs.MobTypes["beast"]
	if len(beast.Spawns) != 2 {
		t.Fatalf("expected 2 spawns, got %d", len(beast.Spawns))
	}
	egg := beast.Spawns[0]
	if egg.Type != "pellet" || egg.Relation != types.RelationLink {
		t.Errorf("egg spawn = %+v", egg)
	}
	if egg.Offset != (types.Point{X: 20, Y: 0}) {
		t.Errorf("egg offset = %+v", egg.Offset)
	}
	if math.Abs(egg.Angle-math.Pi/2) > 1e-9 {
		t.Errorf("egg angle = %v, want pi/2", egg.Angle)
	}
	tail := beast.Spawns[1]
	if tail.Relation != types.RelationChild || !tail.RelayDamage || !tail.HandleEvents {
		t.Errorf("tail spawn = %+v", tail)
	}

	if len(defs.PathStops) != 3 {
		t.Fatalf("expected 3 path stops, got %d", len(defs.PathStops))
	}
	b := defs.PathStops[1]
	if b.Name != "b" || len(b.Links) != 2 {
		t.Fatalf("stop b = %+v", b)
	}
	if b.Links[0].To != "a" || b.Links[0].Blocked {
		t.Errorf("b link 0 = %+v", b.Links[0])
	}
	if b.Links[1].To != "c" || !b.Links[1].Blocked {
		t.Errorf("b link 1 = %+v", b.Links[1])
	}
	if defs.PathStops[2].Pos != (types.Point{X: 100, Y: 100}) {
		t.Errorf("stop c pos = %+v", defs.PathStops[2].Pos)
	}

	if len(defs.Placements) != 3 {
		t.Fatalf("expected 3 placements, got %d", len(defs.Placements))
	}
	food := defs.Placements[1]
	if food.Type != "pellet" || food.Vars["kind"] != "big" {
		t.Errorf("food placement = %+v", food)
	}
	if len(food.Links) != 1 || food.Links[0] != 0 {
		t.Errorf("food links = %v, want [0]", food.Links)
	}
	if math.Abs(food.Angle-math.Pi) > 1e-9 {
		t.Errorf("food angle = %v, want pi", food.Angle)
	}
}

func TestLoad_ChildSpawnRunsOwnScript(t *testing.T) {
	defs, err := Load("testdata/child_spawn")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	kid := defs.MobTypes["queen"].Spawns[0]
	if kid.Relation != types.RelationChild || kid.HandleEvents || kid.RelayEvents {
		t.Fatalf("kid spawn = %+v, want a plain child", kid)
	}

	e, err := engine.New(defs, *config.Defaults())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if e.Session.Len() != 2 {
		t.Fatalf("Len = %d, want queen and larva", e.Session.Len())
	}
	larva := e.Session.Mobs()[1]
	if larva.Parent == nil {
		t.Fatal("larva has no parent")
	}
	if larva.Var("born") != "yes" {
		t.Error("child on_enter did not run")
	}
	e.Session.Fire(larva, types.EvTimer, nil, nil)
	if larva.Var("ticked") != "yes" {
		t.Error("child on_timer did not run")
	}
}

func TestLoad_Warnings(t *testing.T) {
	defs, err := Load("testdata/warnings")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	all := strings.Join(defs.Warnings, "\n")
	for _, want := range []string{
		`unknown event "on_teleport"`,
		`unknown state "missing"`,
		`goto "nowhere" has no matching label`,
		`is not a number`,
		`nest type "hive"`,
	} {
		if !strings.Contains(all, want) {
			t.Errorf("warnings missing %q; got:\n%s", want, all)
		}
	}

	// The malformed set_timer is dropped, the rest of the list stays.
	grub := defs.MobTypes["grub"]
	got := actionNames(grub.States[0].Events[types.EvTimer])
	if strings.Join(got, ",") != "goto,stop" {
		t.Errorf("on_timer actions = %v, want [goto stop]", got)
	}
	// An unresolved target is kept as invalid rather than failing the load.
	enter := grub.States[0].Events[types.EvOnEnter].Actions[0]
	if enter.State != types.StateInvalid {
		t.Errorf("set_state target = %d, want StateInvalid", enter.State)
	}
}

func TestLoad_InvalidRefs_Fails(t *testing.T) {
	_, err := Load("testdata/invalid_refs")
	if err == nil {
		t.Fatal("expected validation error")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	if len(ve.Errors) != 5 {
		t.Errorf("expected 5 errors, got %d:\n%s", len(ve.Errors), strings.Join(ve.Errors, "\n"))
	}
}

func TestLoad_NoStates_Fails(t *testing.T) {
	_, err := Load("testdata/no_states")
	if err == nil {
		t.Fatal("expected error for a mob type without states")
	}
	if !strings.Contains(err.Error(), `"ghost" has no states`) {
		t.Errorf("error = %v", err)
	}
}

func TestLoad_BadLuaSyntax_Fails(t *testing.T) {
	_, err := Load("testdata/bad_lua")
	if err == nil {
		t.Fatal("expected error for bad Lua syntax")
	}
}

func TestLoad_NoGameDef_Fails(t *testing.T) {
	_, err := Load("testdata/no_game")
	if err == nil {
		t.Fatal("expected error for missing Game{}")
	}
	if !strings.Contains(err.Error(), "no Game{} definition found") {
		t.Errorf("error = %v", err)
	}
}

func TestLoad_MissingDir_Fails(t *testing.T) {
	_, err := Load("testdata/does_not_exist")
	if err == nil {
		t.Fatal("expected error for a missing directory")
	}
}

func TestLoad_SandboxEnforced(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`os.execute("echo pwned")`); err == nil {
		t.Fatal("expected sandbox to block os.execute")
	}
	if err := L.DoString(`math.randomseed(42)`); err == nil {
		t.Fatal("expected sandbox to block math.randomseed")
	}
	if err := L.DoString(`dofile("x.lua")`); err == nil {
		t.Fatal("expected sandbox to block dofile")
	}
}

func TestLoad_FileOrdering(t *testing.T) {
	files := sortedLuaFiles([]string{"world.lua", "game.lua", "mobs.lua", "statuses.lua"})
	if files[0] != "game.lua" {
		t.Errorf("first file = %q, want game.lua", files[0])
	}
	if files[1] != "mobs.lua" {
		t.Errorf("second file = %q, want mobs.lua", files[1])
	}
	if files[3] != "world.lua" {
		t.Errorf("last file = %q, want world.lua", files[3])
	}
}

func actionNames(ev *types.EventDef) []string {
	if ev == nil {
		return nil
	}
	names := make([]string, len(ev.Actions))
	for i, a := range ev.Actions {
		names[i] = a.Name
	}
	return names
}
