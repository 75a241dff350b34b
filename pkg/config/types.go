package config

import (
	"time"

	"github.com/openfroyo/gamecore/pkg/capability"
	"github.com/openfroyo/gamecore/pkg/telemetry"
)

// Config is the complete runtime configuration of the game host.
type Config struct {
	// TickRate is the number of scheduler ticks per second.
	TickRate int `yaml:"tick_rate" env:"GAMECORE_TICK_RATE" validate:"gte=1,lte=1000"`

	// LobbyScene is loaded after app setup and after every session exit.
	LobbyScene string `yaml:"lobby_scene" env:"GAMECORE_LOBBY_SCENE" validate:"required"`

	// SceneLoadTicks is how many ticks a scene load takes. Zero completes
	// loads immediately.
	SceneLoadTicks int `yaml:"scene_load_ticks" env:"GAMECORE_SCENE_LOAD_TICKS" validate:"gte=0"`

	// PreloadScenes are loaded additively during app setup.
	PreloadScenes []string `yaml:"preload_scenes" env:"GAMECORE_PRELOAD_SCENES" envSeparator:"," validate:"dive,required"`

	// DefaultProfile names the save created by game-enter when none exists.
	DefaultProfile string `yaml:"default_profile" env:"GAMECORE_DEFAULT_PROFILE" validate:"required"`

	// AppSystems are the app systems in setup order.
	AppSystems []SystemConfig `yaml:"app_systems" validate:"required,min=1,unique=Name,dive"`

	// SessionSystems are the session systems in setup order.
	SessionSystems []SystemConfig `yaml:"session_systems" validate:"unique=Name,dive"`

	Progression ProgressionConfig `yaml:"progression"`
	Saves       SavesConfig       `yaml:"saves"`
	Settings    SettingsConfig    `yaml:"settings"`
	Audio       AudioConfig       `yaml:"audio"`

	Telemetry telemetry.Config `yaml:"telemetry"`
}

// SystemConfig references a registered system by name and source kind.
type SystemConfig struct {
	Name   string                `yaml:"name" validate:"required"`
	Source capability.SourceKind `yaml:"source" validate:"required,oneof=behavior data"`
}

// ProgressionConfig locates the level catalog.
type ProgressionConfig struct {
	Path string `yaml:"path" env:"GAMECORE_PROGRESSION_PATH" validate:"required"`
}

// SavesConfig configures the save database.
type SavesConfig struct {
	// Path is the sqlite database file, or ":memory:".
	Path string `yaml:"path" env:"GAMECORE_SAVES_PATH" validate:"required"`

	MaxOpenConns    int           `yaml:"max_open_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" validate:"gte=0"`
}

// SettingsConfig configures the user settings file.
type SettingsConfig struct {
	Path string `yaml:"path" env:"GAMECORE_SETTINGS_PATH" validate:"required"`

	// Watch reloads the file when it is edited while running.
	Watch bool `yaml:"watch" env:"GAMECORE_SETTINGS_WATCH"`
}

// AudioConfig sizes the voice pool.
type AudioConfig struct {
	WarmCount int `yaml:"warm_count" validate:"gte=0"`
	Capacity  int `yaml:"capacity" validate:"gte=1,gtefield=WarmCount"`
}

// TickInterval returns the duration of one tick.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Default returns a runnable configuration.
func Default() *Config {
	return &Config{
		TickRate:       60,
		LobbyScene:     "lobby",
		SceneLoadTicks: 2,
		PreloadScenes:  []string{"ui_common", "audio_banks"},
		DefaultProfile: "player",
		AppSystems: []SystemConfig{
			{Name: "saves", Source: capability.SourceBehavior},
			{Name: "settings", Source: capability.SourceBehavior},
			{Name: "preloader", Source: capability.SourceBehavior},
			{Name: "audio", Source: capability.SourceBehavior},
			{Name: "pause", Source: capability.SourceBehavior},
			{Name: "session", Source: capability.SourceBehavior},
		},
		SessionSystems: []SystemConfig{
			{Name: "perf-overlay", Source: capability.SourceData},
		},
		Progression: ProgressionConfig{Path: "levels.yaml"},
		Saves:       SavesConfig{Path: "saves.db"},
		Settings:    SettingsConfig{Path: "settings.yaml"},
		Audio:       AudioConfig{WarmCount: 8, Capacity: 32},
		Telemetry:   *telemetry.DefaultConfig(),
	}
}
