package snapshot

import (
	"encoding/json"
	"testing"

	"github.com/nathoo/mobcore/config"
	"github.com/nathoo/mobcore/engine"
	"github.com/nathoo/mobcore/engine/script"
	"github.com/nathoo/mobcore/engine/status"
	"github.com/nathoo/mobcore/types"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	setVar, err := script.NewCall("set_var", []string{"mood", "angry"})
	if err != nil {
		t.Fatalf("NewCall: %v", err)
	}
	states, first, _ := script.Compile(script.TypeSource{
		Type:       "grub",
		FirstState: "idle",
		States: []script.StateSource{{Name: "idle", Events: []script.EventSource{
			{Type: types.EvOnReady, Actions: []types.ActionCall{setVar}},
		}}},
	})
	defs := &types.Defs{
		Title: "Test Garden",
		MobTypes: map[string]*types.MobTypeDef{
			"grub": {Name: "grub", Category: "enemy", MaxHealth: 10, States: states, FirstState: first},
		},
		Statuses: map[string]*types.StatusTypeDef{
			"wet": {Name: "wet", AutoRemoveTime: 5, SpeedMultiplier: 1},
		},
		Placements: []types.PlacementDef{
			{Type: "grub", Pos: types.Point{X: 10, Y: 20}, Links: []int{1}},
			{Type: "grub"},
		},
	}
	e, err := engine.New(defs, *config.Defaults())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestRoundTrip(t *testing.T) {
	e := testEngine(t)
	first := e.Session.Mobs()[0]
	status.Apply(e.Session, first, e.Defs.Statuses["wet"], false)
	e.Tick(1.0 / 30)
	e.RNG.Intn(10)

	data, err := Save(e)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	snap, err := Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if snap.Title != "Test Garden" {
		t.Errorf("expected title 'Test Garden', got %q", snap.Title)
	}
	if snap.Frame != 1 {
		t.Errorf("expected frame 1, got %d", snap.Frame)
	}
	if snap.RNGSeed != e.Config.Seed || snap.RNGPosition != e.RNG.Position() {
		t.Errorf("rng = (%d, %d), want (%d, %d)", snap.RNGSeed, snap.RNGPosition, e.Config.Seed, e.RNG.Position())
	}
	if len(snap.Mobs) != 2 {
		t.Fatalf("expected 2 mobs, got %d", len(snap.Mobs))
	}

	d, ok := snap.Find(first.ID)
	if !ok {
		t.Fatalf("mob %d missing", first.ID)
	}
	if d.Type != "grub" || d.State != "idle" {
		t.Errorf("type/state = %s/%s, want grub/idle", d.Type, d.State)
	}
	if d.Pos != (types.Point{X: 10, Y: 20}) {
		t.Errorf("pos = %v, want (10, 20)", d.Pos)
	}
	if d.Vars["mood"] != "angry" {
		t.Errorf("expected mood=angry, got %v", d.Vars)
	}
	if len(d.Statuses) != 1 || d.Statuses[0].Name != "wet" || d.Statuses[0].TimeLeft >= 5 {
		t.Errorf("statuses = %+v, want wet with time running down", d.Statuses)
	}
	if len(d.Links) != 1 || d.Links[0] != e.Session.Mobs()[1].ID {
		t.Errorf("links = %v", d.Links)
	}
	if d.Chase != "none" {
		t.Errorf("chase = %q, want none", d.Chase)
	}
}

func TestSave_ProducesValidJSON(t *testing.T) {
	data, err := Save(testEngine(t))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !json.Valid(data) {
		t.Fatal("Save output is not valid JSON")
	}

	var raw map[string]any
	json.Unmarshal(data, &raw)
	if raw["title"] != "Test Garden" {
		t.Errorf("expected title 'Test Garden', got %v", raw["title"])
	}
	if _, ok := raw["mobs"].([]any); !ok {
		t.Errorf("expected a mobs array, got %T", raw["mobs"])
	}
}

func TestLoad_MissingOptionalFields(t *testing.T) {
	// Minimal JSON, only required fields.
	data := []byte(`{"title":"Test","frame":3,"mobs":[{"id":1,"type":"grub"}]}`)

	snap, err := Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	d := snap.Mobs[0]
	if d.Vars == nil {
		t.Error("expected non-nil vars")
	}
	if d.Statuses == nil {
		t.Error("expected non-nil statuses")
	}
	if d.Links == nil {
		t.Error("expected non-nil links")
	}
}

func TestLoad_Invalid(t *testing.T) {
	if _, err := Load([]byte(`{"mobs":`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}
