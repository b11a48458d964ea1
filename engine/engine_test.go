package engine

import (
	"slices"
	"strings"
	"testing"

	"github.com/nathoo/mobcore/config"
	"github.com/nathoo/mobcore/engine/mob"
	"github.com/nathoo/mobcore/engine/script"
	"github.com/nathoo/mobcore/engine/status"
	"github.com/nathoo/mobcore/types"
)

const dt = 1.0 / 30

func call(t *testing.T, name string, args ...string) types.ActionCall {
	t.Helper()
	c, err := script.NewCall(name, args)
	if err != nil {
		t.Fatalf("NewCall(%q): %v", name, err)
	}
	return c
}

func on(ev types.EventType, actions ...types.ActionCall) script.EventSource {
	return script.EventSource{Type: ev, Actions: actions}
}

func state(name string, events ...script.EventSource) script.StateSource {
	return script.StateSource{Name: name, Events: events}
}

// mobType compiles a type whose first state is the first one given. A
// state named "dying" becomes the dying state.
func mobType(t *testing.T, name, category string, states ...script.StateSource) *types.MobTypeDef {
	t.Helper()
	if len(states) == 0 {
		states = []script.StateSource{state("idle")}
	}
	src := script.TypeSource{Type: name, States: states, FirstState: states[0].Name}
	for _, st := range states {
		if st.Name == "dying" {
			src.DyingState = "dying"
		}
	}
	compiled, first, diags := script.Compile(src)
	if len(diags) > 0 {
		t.Fatalf("compile %q: %v", name, diags)
	}
	return &types.MobTypeDef{
		Name: name, Category: category,
		MaxHealth: 10, MoveSpeed: 50, CarryStrength: 1,
		Vars:   map[string]string{},
		States: compiled, FirstState: first,
	}
}

func testDefs(typs ...*types.MobTypeDef) *types.Defs {
	defs := &types.Defs{
		Title:    "Test Garden",
		MobTypes: map[string]*types.MobTypeDef{},
		Statuses: map[string]*types.StatusTypeDef{
			"wet":   {Name: "wet", SpeedMultiplier: 1},
			"stuck": {Name: "stuck", SpeedMultiplier: 0, RemovableWithWhistle: true},
		},
	}
	for _, typ := range typs {
		defs.MobTypes[typ.Name] = typ
	}
	return defs
}

func testEngine(t *testing.T, defs *types.Defs) *Engine {
	t.Helper()
	e, err := New(defs, *config.Defaults())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func spawn(t *testing.T, e *Engine, typ string, x, y float64) *mob.Mob {
	t.Helper()
	m, err := e.Session.Spawn(typ, types.Point{X: x, Y: y}, 0)
	if err != nil {
		t.Fatalf("Spawn(%q): %v", typ, err)
	}
	return m
}

func run(e *Engine, frames int) []types.TickResult {
	var out []types.TickResult
	for range frames {
		out = append(out, e.Tick(dt))
	}
	return out
}

func TestNew_PlacesAndLinks(t *testing.T) {
	defs := testDefs(mobType(t, "grub", "enemy"), mobType(t, "ship", "ship"))
	defs.Placements = []types.PlacementDef{
		{Type: "grub", Pos: types.Point{X: 10}, Links: []int{1}},
		{Type: "ship", Pos: types.Point{X: 50}},
		{Type: "grub", Vars: map[string]string{"mood": "angry"}},
	}
	e := testEngine(t, defs)

	if e.Session.Len() != 3 {
		t.Fatalf("Len = %d, want 3", e.Session.Len())
	}
	mobs := e.Session.Mobs()
	if !slices.Equal(mobs[0].Links, []int{mobs[1].ID}) {
		t.Errorf("links = %v, want [%d]", mobs[0].Links, mobs[1].ID)
	}
	if mobs[2].Var("mood") != "angry" {
		t.Errorf("placement var = %q, want angry", mobs[2].Var("mood"))
	}
}

func TestNew_UnknownPlacementType(t *testing.T) {
	defs := testDefs()
	defs.Placements = []types.PlacementDef{{Type: "bulborb"}}
	if _, err := New(defs, *config.Defaults()); err == nil {
		t.Fatal("expected error for unknown placement type")
	}
}

func TestTick_ReadyOnceTickEveryFrame(t *testing.T) {
	grub := mobType(t, "grub", "enemy", state("idle",
		on(types.EvOnReady, call(t, "calculate", "ready", "$ready", "+", "1")),
		on(types.EvOnTick, call(t, "calculate", "ticks", "$ticks", "+", "1")),
	))
	grub.Vars = map[string]string{"ready": "0", "ticks": "0"}
	e := testEngine(t, testDefs(grub))
	m := spawn(t, e, "grub", 0, 0)

	res := run(e, 3)
	if m.Var("ready") != "1" {
		t.Errorf("ready = %q, want 1", m.Var("ready"))
	}
	if m.Var("ticks") != "3" {
		t.Errorf("ticks = %q, want 3", m.Var("ticks"))
	}
	if res[2].Frame != 2 {
		t.Errorf("frame = %d, want 2", res[2].Frame)
	}
	if len(res[0].Events) != 2 || len(res[1].Events) != 1 {
		t.Errorf("events per frame = %d, %d, want 2, 1", len(res[0].Events), len(res[1].Events))
	}
}

func TestTick_TimerChangesState(t *testing.T) {
	e := testEngine(t, testDefs(mobType(t, "grub", "enemy",
		state("idle",
			on(types.EvOnEnter, call(t, "set_timer", "0.1")),
			on(types.EvTimer, call(t, "set_state", "done")),
		),
		state("done"),
	)))
	m := spawn(t, e, "grub", 0, 0)

	run(e, 2)
	if m.StateName() != "idle" {
		t.Fatalf("state = %q before the timer ran out, want idle", m.StateName())
	}
	run(e, 3)
	if m.StateName() != "done" {
		t.Errorf("state = %q, want done", m.StateName())
	}
	if m.Timer.Left != 0 {
		t.Errorf("timer left = %v, want 0", m.Timer.Left)
	}
}

func TestTick_AttackKillsAndDyingStateDeletes(t *testing.T) {
	e := testEngine(t, testDefs(mobType(t, "grub", "enemy",
		state("idle"),
		state("dying", on(types.EvOnEnter, call(t, "delete"))),
	)))
	m := spawn(t, e, "grub", 0, 0)

	e.Attack(nil, m, 25)
	if m.Health != 0 {
		t.Fatalf("health = %v, want 0", m.Health)
	}
	res := e.Tick(dt)
	if !slices.Equal(res.Deleted, []int{m.ID}) {
		t.Errorf("deleted = %v, want [%d]", res.Deleted, m.ID)
	}
	if e.Session.Len() != 0 {
		t.Errorf("Len = %d, want 0", e.Session.Len())
	}
}

func TestTick_DeletionSkipsRemainingPhases(t *testing.T) {
	e := testEngine(t, testDefs(mobType(t, "grub", "enemy", state("idle",
		on(types.EvOnReady, call(t, "delete")),
		on(types.EvOnTick, call(t, "set_var", "ticked", "yes")),
	))))
	m := spawn(t, e, "grub", 0, 0)

	res := e.Tick(dt)
	if m.Var("ticked") != "" {
		t.Error("on_tick ran after the mob was flagged for deletion")
	}
	for _, ev := range res.Events {
		if ev.Type == types.EvOnTick {
			t.Errorf("unexpected on_tick event %+v", ev)
		}
	}
	if len(res.Deleted) != 1 {
		t.Errorf("deleted = %v, want one id", res.Deleted)
	}
}

func TestTick_SameSeedSameRun(t *testing.T) {
	build := func() *Engine {
		grub := mobType(t, "grub", "enemy", state("idle",
			on(types.EvOnTick,
				call(t, "get_random_int", "roll", "1", "100"),
				call(t, "set_var", "log", "$log", "$roll"),
			),
		))
		defs := testDefs(grub)
		defs.Placements = []types.PlacementDef{{Type: "grub"}}
		return testEngine(t, defs)
	}
	a, b := build(), build()
	run(a, 5)
	run(b, 5)

	got, want := a.Session.Mobs()[0].Var("log"), b.Session.Mobs()[0].Var("log")
	if got != want {
		t.Errorf("runs diverged: %q vs %q", got, want)
	}
	if a.RNG.Position() == 0 {
		t.Error("RNG position did not advance")
	}
}

func TestRestoreRNG_ResumesStream(t *testing.T) {
	e := testEngine(t, testDefs())
	e.RNG.Intn(10)
	e.RNG.Float64()
	pos := e.RNG.Position()
	want := e.RNG.Intn(1000)

	e.RestoreRNG(e.Config.Seed, pos)
	if got := e.Session.Rand.Intn(1000); got != want {
		t.Errorf("restored draw = %d, want %d", got, want)
	}
}

func TestTick_CarryToShip(t *testing.T) {
	pellet := mobType(t, "pellet", CategoryTreasure)
	pellet.CarrySpots = 1
	pellet.Weight = 1
	red := mobType(t, "red", "carrier", state("idle",
		on(types.EvOnReady,
			call(t, "focus", "closest_of_category", CategoryTreasure),
			call(t, "carry_focus"),
		),
		on(types.EvCarryDelivered, call(t, "set_var", "delivered", "yes")),
	))
	e := testEngine(t, testDefs(pellet, red, mobType(t, "ship", "ship")))
	p := spawn(t, e, "pellet", 0, 0)
	spawn(t, e, "ship", 60, 0)
	r := spawn(t, e, "red", 20, 0)

	var deleted []int
	for i := 0; i < 600 && len(deleted) == 0; i++ {
		deleted = e.Tick(dt).Deleted
	}
	if !slices.Equal(deleted, []int{p.ID}) {
		t.Fatalf("deleted = %v, want the pellet %d", deleted, p.ID)
	}
	if r.Var("delivered") != "yes" {
		t.Error("carrier did not get on_carry_delivered")
	}
	if r.CarryingID != 0 {
		t.Errorf("carrier still carrying %d", r.CarryingID)
	}
}

func TestWhistle_CuresAndFires(t *testing.T) {
	e := testEngine(t, testDefs(mobType(t, "red", "carrier", state("idle",
		on(types.EvWhistled, call(t, "set_var", "heard", "yes")),
	))))
	m := spawn(t, e, "red", 10, 0)
	status.Apply(e.Session, m, e.Defs.Statuses["stuck"], false)

	e.Whistle(nil, types.Point{}, 50, true)
	e.Tick(dt)
	if status.Has(m, "stuck") {
		t.Error("whistle should remove stuck")
	}
	if m.Var("heard") != "yes" {
		t.Error("on_whistled did not run")
	}

	e.Whistle(nil, types.Point{}, 50, false)
	m.SetVar("heard", "")
	e.Tick(dt)
	if m.Var("heard") != "" {
		t.Error("inactive whistle should not fire")
	}
}

func TestTick_FarFromHome(t *testing.T) {
	grub := mobType(t, "grub", "enemy", state("idle",
		on(types.EvFarFromHome, call(t, "set_var", "far", "yes")),
	))
	grub.TerritoryRadius = 10
	e := testEngine(t, testDefs(grub))
	m := spawn(t, e, "grub", 0, 0)

	e.Tick(dt)
	if m.Var("far") != "" {
		t.Fatal("mob at home reported far")
	}
	m.Pos = types.Point{X: 50}
	e.Tick(dt)
	if m.Var("far") != "yes" {
		t.Error("on_far_from_home did not run")
	}
}

func TestTick_ItchAfterEnoughDamage(t *testing.T) {
	grub := mobType(t, "grub", "enemy", state("idle",
		on(types.EvItch, call(t, "set_var", "itched", "yes")),
	))
	grub.ItchDamage = 3
	grub.ItchTime = 0.05
	e := testEngine(t, testDefs(grub))
	m := spawn(t, e, "grub", 0, 0)

	e.Attack(nil, m, 2)
	run(e, 3)
	if m.Var("itched") != "" {
		t.Fatal("itched below the damage threshold")
	}
	e.Attack(nil, m, 2)
	e.Tick(dt)
	if m.Var("itched") != "yes" {
		t.Error("on_itch did not run")
	}
	if m.ItchDamage != 0 {
		t.Errorf("itch damage = %v, want reset to 0", m.ItchDamage)
	}
}

func TestSwarm_RequiresLeader(t *testing.T) {
	e := testEngine(t, testDefs(mobType(t, "grub", "enemy"), mobType(t, "olimar", "leader")))
	if err := e.Swarm(spawn(t, e, "grub", 0, 0), 0, 1); err == nil {
		t.Error("expected error for a mob without a group")
	}
	leader := spawn(t, e, "olimar", 0, 0)
	if err := e.Swarm(leader, 1, 0.5); err != nil {
		t.Fatalf("Swarm: %v", err)
	}
	if !leader.Group.Swarming || leader.Group.SwarmMag != 0.5 {
		t.Errorf("group = %+v, want swarming at 0.5", leader.Group)
	}
}

func TestSprayAndHazard(t *testing.T) {
	e := testEngine(t, testDefs(mobType(t, "grub", "enemy")))
	m := spawn(t, e, "grub", 0, 0)

	if err := e.Spray(m, "wet"); err != nil {
		t.Fatalf("Spray: %v", err)
	}
	if !status.Has(m, "wet") {
		t.Error("spray status not applied")
	}
	if err := e.Spray(m, "lava"); err == nil {
		t.Error("expected error for unknown status")
	}

	e.Pit(m)
	if !m.ToDelete {
		t.Error("pit should flag the mob")
	}
}

func TestHistory_ListsEveryMob(t *testing.T) {
	e := testEngine(t, testDefs(mobType(t, "grub", "enemy",
		state("idle", on(types.EvOnReady, call(t, "set_state", "awake"))),
		state("awake"),
	)))
	spawn(t, e, "grub", 0, 0)
	e.Tick(dt)

	lines := e.History()
	if len(lines) != 1 {
		t.Fatalf("history lines = %d, want 1", len(lines))
	}
	if !strings.Contains(lines[0], "awake, idle") {
		t.Errorf("history = %q, want it to show awake then idle", lines[0])
	}
}
