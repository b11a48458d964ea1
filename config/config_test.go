package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.TickRate != 30 {
		t.Errorf("TickRate = %v, want 30", cfg.TickRate)
	}
	if cfg.Seed != 1 {
		t.Errorf("Seed = %d, want 1", cfg.Seed)
	}
	if cfg.Sim.CarrySpeedBaseMult != 0.3 {
		t.Errorf("CarrySpeedBaseMult = %v, want 0.3", cfg.Sim.CarrySpeedBaseMult)
	}
	if cfg.Sim.GroupShuffleDist != 40 {
		t.Errorf("GroupShuffleDist = %v, want 40", cfg.Sim.GroupShuffleDist)
	}
	if cfg.Sim.ChaseTargetDist != 3 {
		t.Errorf("ChaseTargetDist = %v, want 3", cfg.Sim.ChaseTargetDist)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("MOBCORE_TICK_RATE", "60")
	t.Setenv("MOBCORE_SEED", "42")
	t.Setenv("MOBCORE_GROUP_SPOT_INTERVAL", "7.5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TickRate != 60 {
		t.Errorf("TickRate = %v, want 60", cfg.TickRate)
	}
	if cfg.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Seed)
	}
	if cfg.Sim.GroupSpotInterval != 7.5 {
		t.Errorf("GroupSpotInterval = %v, want 7.5", cfg.Sim.GroupSpotInterval)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if got := cfg.DeltaT(); got != 1.0/60 {
		t.Errorf("DeltaT = %v, want %v", got, 1.0/60)
	}
}

func TestLoad_BadTickRate(t *testing.T) {
	t.Setenv("MOBCORE_TICK_RATE", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero tick rate")
	}
}

func TestLoad_Malformed(t *testing.T) {
	t.Setenv("MOBCORE_SEED", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed seed")
	}
}
