package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nathoo/mobcore/config"
	"github.com/nathoo/mobcore/engine"
	"github.com/nathoo/mobcore/engine/script"
	"github.com/nathoo/mobcore/engine/snapshot"
	"github.com/nathoo/mobcore/types"
)

func compileType(t *testing.T, name string, states ...script.StateSource) *types.MobTypeDef {
	t.Helper()
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
		Name: name, Category: "enemy",
		MaxHealth: 10, MoveSpeed: 50, CarryStrength: 1,
		Vars:   map[string]string{},
		States: compiled, FirstState: first,
	}
}

// testDefs returns a grub that dies when its health runs out and a pellet.
func testDefs(t *testing.T) *types.Defs {
	t.Helper()
	del, err := script.NewCall("delete", nil)
	if err != nil {
		t.Fatal(err)
	}
	grub := compileType(t, "grub",
		script.StateSource{Name: "idle"},
		script.StateSource{Name: "dying", Events: []script.EventSource{
			{Type: types.EvOnEnter, Actions: []types.ActionCall{del}},
		}},
	)
	pellet := compileType(t, "pellet", script.StateSource{Name: "idle"})
	return &types.Defs{
		Title:    "Test Garden",
		MobTypes: map[string]*types.MobTypeDef{"grub": grub, "pellet": pellet},
		Statuses: map[string]*types.StatusTypeDef{
			"wet": {Name: "wet", SpeedMultiplier: 1, AutoRemoveTime: 5},
		},
		Placements: []types.PlacementDef{
			{Type: "grub"},
			{Type: "pellet", Pos: types.Point{X: 10}},
		},
	}
}

func newTestCLI(t *testing.T, input string) (*CLI, *bytes.Buffer) {
	t.Helper()
	eng, err := engine.New(testDefs(t), *config.Defaults())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	var out bytes.Buffer
	c := New(eng)
	c.In = strings.NewReader(input)
	c.Out = &out
	c.SnapshotDir = t.TempDir()
	return c, &out
}

func TestCLI_TitleAndPlacedMobs(t *testing.T) {
	c, out := newTestCLI(t, "")
	c.Run()

	got := out.String()
	if !strings.Contains(got, "Test Garden") {
		t.Errorf("expected title in output:\n%s", got)
	}
	if !strings.Contains(got, "#1") || !strings.Contains(got, "grub") || !strings.Contains(got, "pellet") {
		t.Errorf("expected placed mobs in output:\n%s", got)
	}
}

func TestCLI_TickAdvancesFrames(t *testing.T) {
	c, out := newTestCLI(t, "tick 5\n")
	c.Run()

	if !strings.Contains(out.String(), "Frame 5:") {
		t.Errorf("expected frame 5 summary:\n%s", out.String())
	}
	if c.Engine.Session.Frame != 5 {
		t.Errorf("Frame = %d, want 5", c.Engine.Session.Frame)
	}
}

func TestCLI_RunUsesTickRate(t *testing.T) {
	c, _ := newTestCLI(t, "run 1\n")
	c.Run()

	want := int(c.Engine.Config.TickRate)
	if c.Engine.Session.Frame != want {
		t.Errorf("Frame = %d, want %d", c.Engine.Session.Frame, want)
	}
}

func TestCLI_AttackThenTickDeletes(t *testing.T) {
	c, out := newTestCLI(t, "attack 0 1 25\ntick\n")
	c.Run()

	got := out.String()
	if !strings.Contains(got, "#1 is hit for 25.") {
		t.Errorf("expected hit confirmation:\n%s", got)
	}
	if !strings.Contains(got, "deleted [1]") {
		t.Errorf("expected grub deleted:\n%s", got)
	}
}

func TestCLI_InspectShowsStatus(t *testing.T) {
	c, out := newTestCLI(t, "spray 2 wet\ninspect 2\n")
	c.Run()

	if !strings.Contains(out.String(), "status wet") {
		t.Errorf("expected wet status in inspect output:\n%s", out.String())
	}
}

func TestCLI_Spawn(t *testing.T) {
	c, out := newTestCLI(t, "spawn grub 5 5 90\nspawn dragon 0 0\n")
	c.Run()

	if c.Engine.Session.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Engine.Session.Len())
	}
	if !strings.Contains(out.String(), "Spawned #3") {
		t.Errorf("expected spawn confirmation:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "dragon") {
		t.Errorf("expected error for unknown type:\n%s", out.String())
	}
}

func TestCLI_BadMobID(t *testing.T) {
	c, out := newTestCLI(t, "inspect 99\ninspect abc\n")
	c.Run()

	if !strings.Contains(out.String(), "no live mob #99") {
		t.Errorf("expected missing mob error:\n%s", out.String())
	}
	if !strings.Contains(out.String(), `bad mob id "abc"`) {
		t.Errorf("expected bad id error:\n%s", out.String())
	}
}

func TestCLI_SwarmWithoutGroup(t *testing.T) {
	c, out := newTestCLI(t, "swarm 1 90 1\n")
	c.Run()

	if !strings.Contains(out.String(), "does not lead a group") {
		t.Errorf("expected swarm error:\n%s", out.String())
	}
}

func TestCLI_MessageSetsVar(t *testing.T) {
	c, _ := newTestCLI(t, "message 1 come here\n")
	c.Run()

	if got := c.Engine.Session.Live(1).Var("message"); got != "come here" {
		t.Errorf("message var = %q, want %q", got, "come here")
	}
}

func TestCLI_HelpCommand(t *testing.T) {
	c, out := newTestCLI(t, "/help\n")
	c.Run()

	got := out.String()
	for _, want := range []string{"/snapshot", "/quit", "tick [frames]", "inspect <id>", "again (g)"} {
		if !strings.Contains(got, want) {
			t.Errorf("help missing %q", want)
		}
	}
}

func TestCLI_Snapshot(t *testing.T) {
	c, out := newTestCLI(t, "tick 3\n/snapshot test\n")
	c.Run()

	if !strings.Contains(out.String(), "Snapshot written to test.") {
		t.Fatalf("expected snapshot confirmation:\n%s", out.String())
	}
	data, err := os.ReadFile(filepath.Join(c.SnapshotDir, "test.json"))
	if err != nil {
		t.Fatalf("snapshot file not written: %v", err)
	}
	snap, err := snapshot.Load(data)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Frame != 3 || len(snap.Mobs) != 2 {
		t.Errorf("snapshot frame = %d mobs = %d, want 3 and 2", snap.Frame, len(snap.Mobs))
	}
}

func TestCLI_UnknownCommands(t *testing.T) {
	c, out := newTestCLI(t, "/foo\ndance\n")
	c.Run()

	if !strings.Contains(out.String(), "Unknown command: /foo") {
		t.Errorf("expected unknown meta command message:\n%s", out.String())
	}
	if !strings.Contains(out.String(), `Unknown command "dance"`) {
		t.Errorf("expected unknown command message:\n%s", out.String())
	}
}

func TestCLI_TraceToggle(t *testing.T) {
	c, out := newTestCLI(t, "/trace\nattack 0 1 25\ntick\n/trace\n")
	c.Run()

	got := out.String()
	if !strings.Contains(got, "Trace output enabled.") || !strings.Contains(got, "Trace output disabled.") {
		t.Errorf("expected trace toggles:\n%s", got)
	}
	if !strings.Contains(got, "[trace] frame 0 #1 idle: on_hitbox_touch_n_a") {
		t.Errorf("expected traced hit:\n%s", got)
	}
	if !strings.Contains(got, "#1 idle: zero_health") {
		t.Errorf("expected traced zero health:\n%s", got)
	}
}

func TestCLI_StateCommand(t *testing.T) {
	c, out := newTestCLI(t, "/state\n")
	c.Run()

	if !strings.Contains(out.String(), "[Mobs: 2]") {
		t.Errorf("expected mob count:\n%s", out.String())
	}
}

func TestCLI_QuitStopsLoop(t *testing.T) {
	c, out := newTestCLI(t, "/quit\ntick\n")
	c.Run()

	if !strings.Contains(out.String(), "Goodbye.") {
		t.Errorf("expected goodbye:\n%s", out.String())
	}
	if c.Engine.Session.Frame != 0 {
		t.Errorf("ticked after quit: frame %d", c.Engine.Session.Frame)
	}
}

func TestCLI_Again_RepeatsLastCommand(t *testing.T) {
	c, _ := newTestCLI(t, "tick 2\nagain\ng\n")
	c.Run()

	if c.Engine.Session.Frame != 6 {
		t.Errorf("Frame = %d, want 6", c.Engine.Session.Frame)
	}
}

func TestCLI_Again_NothingToRepeat(t *testing.T) {
	c, out := newTestCLI(t, "again\n")
	c.Run()

	if !strings.Contains(out.String(), "Nothing to repeat.") {
		t.Errorf("expected 'Nothing to repeat.':\n%s", out.String())
	}
}

func TestCLI_EchoInputAndComments(t *testing.T) {
	c, out := newTestCLI(t, "# a comment\ntick\n")
	c.EchoInput = true
	c.Run()

	if strings.Contains(out.String(), "a comment") {
		t.Errorf("comment line was echoed:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "> tick") {
		t.Errorf("expected echoed input:\n%s", out.String())
	}
}
