package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration. Both daemons
// (kioskd and forwarderd) read the same file and pick out their sections.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Media     MediaConfig     `yaml:"media"`
	Forwarder ForwarderConfig `yaml:"forwarder"`
}

// ServerConfig holds the kiosk backend server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	ButtonToken     string  `yaml:"button_token"`
}

// DatabaseConfig holds the frame manifest database configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "sqlite" or "postgres"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// MediaConfig holds the on-disk frame/video layout and the video build tuning.
type MediaConfig struct {
	FramesDir  string `yaml:"frames_dir"`
	VideosDir  string `yaml:"videos_dir"`
	FFmpegPath string `yaml:"ffmpeg_path"`

	// Playback speed ramps from RampMinFPS toward RampMaxFPS as the frame
	// count grows, reaching roughly the halfway point after RampHalfLifeFrames.
	RampMinFPS         float64 `yaml:"ramp_min_fps"`
	RampMaxFPS         float64 `yaml:"ramp_max_fps"`
	RampHalfLifeFrames int     `yaml:"ramp_half_life_frames"`
}

// ForwarderConfig holds the serial/GPIO command forwarder configuration.
type ForwarderConfig struct {
	BackendURL  string `yaml:"backend_url"`
	ButtonToken string `yaml:"button_token"`

	// Source selects where command tokens come from: "serial" reads
	// newline-delimited tokens from a serial device, "gpio" polls raw pin
	// levels through the debounce state machine.
	Source       string `yaml:"source"`
	SerialDevice string `yaml:"serial_device"`
	BaudRate     int    `yaml:"baud_rate"`

	ReconnectMinSeconds int `yaml:"reconnect_min_seconds"`
	ReconnectMaxSeconds int `yaml:"reconnect_max_seconds"`

	PollIntervalMicros int            `yaml:"poll_interval_micros"`
	DebounceMillis     int            `yaml:"debounce_millis"`
	Buttons            []ButtonConfig `yaml:"buttons"`

	// Direct mode drives the session controller in-process instead of
	// relaying button presses to the browser UI.
	Direct   bool   `yaml:"direct"`
	SpoolDir string `yaml:"spool_dir"`
}

// ButtonConfig binds one physical pin to a command token.
type ButtonConfig struct {
	Pin     string `yaml:"pin"`
	Command string `yaml:"command"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 2
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "kiosk.db"
	}

	if cfg.Media.FramesDir == "" {
		cfg.Media.FramesDir = "session_frames"
	}
	if cfg.Media.VideosDir == "" {
		cfg.Media.VideosDir = "videos"
	}
	if cfg.Media.RampMinFPS <= 0 {
		cfg.Media.RampMinFPS = 1.0
	}
	if cfg.Media.RampMaxFPS <= 0 {
		cfg.Media.RampMaxFPS = 8.0
	}
	if cfg.Media.RampHalfLifeFrames <= 0 {
		cfg.Media.RampHalfLifeFrames = 40
	}

	if cfg.Forwarder.BackendURL == "" {
		cfg.Forwarder.BackendURL = "http://localhost:8000"
	}
	if cfg.Forwarder.Source == "" {
		cfg.Forwarder.Source = "serial"
	}
	if cfg.Forwarder.SerialDevice == "" {
		cfg.Forwarder.SerialDevice = "/dev/ttyACM0"
	}
	if cfg.Forwarder.BaudRate <= 0 {
		cfg.Forwarder.BaudRate = 115200
	}
	if cfg.Forwarder.ReconnectMinSeconds <= 0 {
		cfg.Forwarder.ReconnectMinSeconds = 1
	}
	if cfg.Forwarder.ReconnectMaxSeconds <= 0 {
		cfg.Forwarder.ReconnectMaxSeconds = 30
	}
	if cfg.Forwarder.PollIntervalMicros <= 0 {
		cfg.Forwarder.PollIntervalMicros = 1000 // 1 kHz
	}
	if cfg.Forwarder.DebounceMillis <= 0 {
		cfg.Forwarder.DebounceMillis = 25
	}
	if cfg.Forwarder.Direct && cfg.Forwarder.SpoolDir == "" {
		log.Printf("forwarder.spool_dir is not set; direct capture will be unavailable")
	}

	return &cfg, nil
}

// PollInterval returns the configured debounce polling tick as a duration.
func (f *ForwarderConfig) PollInterval() time.Duration {
	return time.Duration(f.PollIntervalMicros) * time.Microsecond
}

// DebounceWindow returns the configured debounce window as a duration.
func (f *ForwarderConfig) DebounceWindow() time.Duration {
	return time.Duration(f.DebounceMillis) * time.Millisecond
}
