package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults for every tunable. Only Port is commonly overridden in deployment.
const (
	DefaultPort = 2567

	DefaultZapWindow       = 3000 * time.Millisecond
	DefaultZapPenaltyCards = 2

	DefaultTurnClockResolution = 1 * time.Second

	DefaultRoomTTL       = 30 * time.Minute
	DefaultSweepInterval = 60 * time.Second

	DefaultSendBufferSize   = 64
	DefaultVitalSendTimeout = 5 * time.Second
)

// Config carries all server tunables. Game rules knobs (ZAP window and
// penalty) live here so tests can shrink them without touching the engine.
type Config struct {
	Port int

	// ZapWindow is how long the challenge window stays open after a
	// foundation play. ZapPenaltyCards is how many cards the zapped player
	// returns from their discard to the bottom of their deck.
	ZapWindow       time.Duration
	ZapPenaltyCards int

	// TurnClockResolution is the accumulation interval of the per-player
	// turn clock.
	TurnClockResolution time.Duration

	// RoomTTL is how long a waiting room may sit with an empty guest seat
	// before the sweeper disposes it. SweepInterval is the sweeper period.
	RoomTTL       time.Duration
	SweepInterval time.Duration

	// SendBufferSize is the per-connection outbound frame buffer. When the
	// buffer is full, non-vital frames are dropped. VitalSendTimeout bounds
	// how long a vital frame (game_started, game_over) may block before the
	// connection is considered dead.
	SendBufferSize   int
	VitalSendTimeout time.Duration
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		Port:                DefaultPort,
		ZapWindow:           DefaultZapWindow,
		ZapPenaltyCards:     DefaultZapPenaltyCards,
		TurnClockResolution: DefaultTurnClockResolution,
		RoomTTL:             DefaultRoomTTL,
		SweepInterval:       DefaultSweepInterval,
		SendBufferSize:      DefaultSendBufferSize,
		VitalSendTimeout:    DefaultVitalSendTimeout,
	}
}

// Load builds a Config from the environment on top of the defaults.
// PORT is the only deployment-facing variable.
func Load() *Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil && port > 0 && port < 65536 {
			cfg.Port = port
		}
	}
	return cfg
}
