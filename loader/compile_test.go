package loader

import (
	"strings"
	"testing"

	"github.com/nathoo/mobcore/engine/script"
	"github.com/nathoo/mobcore/types"
	lua "github.com/yuin/gopher-lua"
)

// newTestVM creates a sandboxed Lua VM with the API registered and a fresh collector.
func newTestVM() (*lua.LState, *collector) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	coll := &collector{}
	registerAPI(L, coll)
	return L, coll
}

func TestHelperName(t *testing.T) {
	cases := map[string]string{
		"set_state":              "SetState",
		"if":                     "If",
		"end_if":                 "EndIf",
		"send_message_to_nearby": "SendMessageToNearby",
	}
	for in, want := range cases {
		if got := helperName(in); got != want {
			t.Errorf("helperName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestActionHelper_StringifiesArgs(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`return SetVar("speed", 1.5)`); err != nil {
		t.Fatal(err)
	}
	tbl := L.CheckTable(-1)
	if getString(tbl, "action") != "set_var" {
		t.Errorf("action = %q, want set_var", getString(tbl, "action"))
	}
	args := getTable(tbl, "args")
	if args.MaxN() != 2 {
		t.Fatalf("args = %d, want 2", args.MaxN())
	}
	if got := args.RawGetInt(2).String(); got != "1.5" {
		t.Errorf("arg 2 = %q, want 1.5", got)
	}
}

func TestActionHelper_RejectsTables(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`return SetVar("x", {})`); err == nil {
		t.Fatal("expected an error for a table argument")
	}
}

func TestCompileActions_FlagAndDrop(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		return {
			GlobalActionsAfter(),
			SetHealth("lots"),
			AddHealth(-5),
			{ action = "no_such_action" },
			"oops",
		}
	`); err != nil {
		t.Fatal(err)
	}

	var warnings []string
	actions, flags := compileActions(L.CheckTable(-1), "test", &warnings)

	if flags&script.GlobalActionsAfter == 0 {
		t.Error("expected GlobalActionsAfter flag")
	}
	if len(actions) != 1 || actions[0].Kind != types.ActAddHealth {
		t.Fatalf("actions = %+v, want [add_health]", actions)
	}
	if actions[0].Args[0].Value != "-5" {
		t.Errorf("add_health arg = %q, want -5", actions[0].Args[0].Value)
	}
	if len(warnings) != 3 {
		t.Errorf("expected 3 warnings, got %d: %v", len(warnings), warnings)
	}
}

func TestCompile_NoGame(t *testing.T) {
	_, err := compile(&collector{})
	if err == nil || !strings.Contains(err.Error(), "no Game{}") {
		t.Fatalf("err = %v", err)
	}
}

func TestCompile_DuplicateMobType(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		Game { title = "t" }
		MobType "a" { states = { State "idle" {} } }
		MobType "a" { states = { State "idle" {} } }
	`); err != nil {
		t.Fatal(err)
	}
	_, err := compile(coll)
	if err == nil || !strings.Contains(err.Error(), `duplicate mob type "a"`) {
		t.Fatalf("err = %v", err)
	}
}

func TestCompileStatus_BadReapply(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`StatusType "x" { reapply = "forever" }`); err != nil {
		t.Fatal(err)
	}
	if _, err := compileStatus(coll.statuses[0]); err == nil {
		t.Fatal("expected an error for an unknown reapply rule")
	}
}

func TestCompileMobType_BadCarryDestination(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`MobType "x" { carry_destination = "moon" }`); err != nil {
		t.Fatal(err)
	}
	if _, _, err := compileMobType(coll.mobTypes[0]); err == nil {
		t.Fatal("expected an error for an unknown carry destination")
	}
}

func TestCompileMobType_StateWithoutName(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`MobType "x" { states = { { on_enter = {} } } }`); err != nil {
		t.Fatal(err)
	}
	if _, _, err := compileMobType(coll.mobTypes[0]); err == nil {
		t.Fatal("expected an error for an unnamed state")
	}
}

func TestCompileMobType_UnknownFirstState(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		MobType "x" {
			first_state = "nap",
			states = { State "idle" {}, State "walk" {} },
		}
	`); err != nil {
		t.Fatal(err)
	}
	mt, warnings, err := compileMobType(coll.mobTypes[0])
	if err != nil {
		t.Fatal(err)
	}
	if mt.FirstState != 0 {
		t.Errorf("first state = %d, want fallback 0", mt.FirstState)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], `"nap"`) {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestCompilePlacements_UnknownLink(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`Place "rock" { id = "r", links = { "ghost" } }`); err != nil {
		t.Fatal(err)
	}
	if _, err := compilePlacements(coll.places); err == nil {
		t.Fatal("expected an error for an unknown placement link")
	}
}

func TestCompilePlacements_DuplicateID(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		Place "rock" { id = "r" }
		Place "rock" { id = "r" }
	`); err != nil {
		t.Fatal(err)
	}
	if _, err := compilePlacements(coll.places); err == nil {
		t.Fatal("expected an error for a duplicate placement id")
	}
}
