// Package config loads runtime settings and simulation tuning constants
// from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the complete process configuration.
type Config struct {
	ContentDir string  `env:"MOBCORE_CONTENT_DIR"`
	TickRate   float64 `env:"MOBCORE_TICK_RATE" envDefault:"30"`
	Seed       int64   `env:"MOBCORE_SEED" envDefault:"1"`
	LogLevel   string  `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string  `env:"LOG_FORMAT" envDefault:"text"`
	Sim        Sim     `envPrefix:"MOBCORE_"`
}

// Sim holds the tuning constants shared by every session subsystem.
type Sim struct {
	// Carrying.
	CarrySpeedBaseMult   float64 `env:"CARRY_SPEED_BASE_MULT" envDefault:"0.3"`
	CarrySpeedMaxMult    float64 `env:"CARRY_SPEED_MAX_MULT" envDefault:"0.8"`
	CarrySpeedWeightMult float64 `env:"CARRY_SPEED_WEIGHT_MULT" envDefault:"0.0004"`
	StandardRadius       float64 `env:"STANDARD_RADIUS" envDefault:"5"`

	// Groups.
	GroupSpotInterval     float64 `env:"GROUP_SPOT_INTERVAL" envDefault:"5"`
	GroupSpotMaxDeviation float64 `env:"GROUP_SPOT_MAX_DEVIATION" envDefault:"3"`
	GroupShuffleDist      float64 `env:"GROUP_SHUFFLE_DIST" envDefault:"40"`
	SpotFarDist           float64 `env:"SPOT_FAR_DIST" envDefault:"5"`
	SwarmMargin           float64 `env:"SWARM_MARGIN" envDefault:"8"`
	SwarmVerticalScale    float64 `env:"SWARM_VERTICAL_SCALE" envDefault:"0.5"`
	CursorMaxDist         float64 `env:"CURSOR_MAX_DIST" envDefault:"200"`

	// Movement.
	ChaseTargetDist    float64 `env:"CHASE_TARGET_DIST" envDefault:"3"`
	FreeMoveThreshold  float64 `env:"FREE_MOVE_THRESHOLD" envDefault:"10"`
	Gravity            float64 `env:"GRAVITY" envDefault:"-2600"`
	KnockbackHPower    float64 `env:"KNOCKBACK_H_POWER" envDefault:"64"`
	KnockbackVPower    float64 `env:"KNOCKBACK_V_POWER" envDefault:"800"`
	MessageNearbyLimit int     `env:"MESSAGE_NEARBY_LIMIT" envDefault:"64"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TickRate <= 0 {
		return nil, fmt.Errorf("tick rate must be positive, got %v", cfg.TickRate)
	}
	return &cfg, nil
}

// Defaults returns the configuration with every default applied and no
// environment lookups.
func Defaults() *Config {
	var cfg Config
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
	return &cfg
}

// DefaultSim returns the default tuning constants.
func DefaultSim() Sim {
	return Defaults().Sim
}

// DeltaT returns the duration of one frame in seconds.
func (c *Config) DeltaT() float64 {
	return 1 / c.TickRate
}
