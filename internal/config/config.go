package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Session defaults
	Tempo         float64 // bpm
	Duration      int     // target composition length, seconds
	Scale         string
	Visualization string

	// Delayed transitions
	WarmUp time.Duration // generate -> first auto-play
	Settle time.Duration // run-with-new-parameters -> play

	// Transport
	BeatsPerMeasure int
	Lookahead       time.Duration // fire callbacks this much ahead of the note
	TempoRamp       time.Duration
	RevertAfter     time.Duration // visual highlight lifetime

	// Output
	SampleRate   int
	AudioBackend string // ebiten, oto, midi, none
	MIDIPort     string

	PanelAddr string // empty disables the HTTP control panel
	Seed      int64  // generator seed, 0 picks one from the clock

	LogLevel string
	LogJSON  bool
}

// LoadDotEnv reads .env files into the process environment if present.
// Existing variables win.
func LoadDotEnv(files ...string) error {
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Tempo:         envFloat("GENMUSIC_TEMPO", 100),
		Duration:      envInt("GENMUSIC_DURATION", 10),
		Scale:         envStr("GENMUSIC_SCALE", "major"),
		Visualization: envStr("GENMUSIC_VISUALIZATION", "circles"),

		WarmUp: envDuration("GENMUSIC_WARMUP", 3*time.Second),
		Settle: envDuration("GENMUSIC_SETTLE", 5*time.Second),

		BeatsPerMeasure: envInt("GENMUSIC_BEATS_PER_MEASURE", 4),
		Lookahead:       envDuration("GENMUSIC_LOOKAHEAD", 25*time.Millisecond),
		TempoRamp:       envDuration("GENMUSIC_TEMPO_RAMP", 100*time.Millisecond),
		RevertAfter:     envDuration("GENMUSIC_REVERT_AFTER", 500*time.Millisecond),

		SampleRate:   envInt("GENMUSIC_SAMPLE_RATE", 48000),
		AudioBackend: strings.ToLower(envStr("GENMUSIC_AUDIO", "ebiten")),
		MIDIPort:     envStr("GENMUSIC_MIDI_PORT", ""),

		PanelAddr: envStr("GENMUSIC_PANEL_ADDR", ""),
		Seed:      int64(envInt("GENMUSIC_SEED", 0)),

		LogLevel: envStr("GENMUSIC_LOG_LEVEL", "info"),
		LogJSON:  envStr("GENMUSIC_LOG_FORMAT", "text") == "json",
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envDuration accepts Go durations ("750ms") or bare seconds ("3").
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
		return time.Duration(f * float64(time.Second))
	}
	return fallback
}
