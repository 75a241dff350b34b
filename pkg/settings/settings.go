package settings

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// FPSMode selects the frame pacing.
type FPSMode string

const (
	FPSModeVSync     FPSMode = "vsync"
	FPSMode30        FPSMode = "30"
	FPSMode60        FPSMode = "60"
	FPSMode120       FPSMode = "120"
	FPSModeUnlimited FPSMode = "unlimited"
)

// UserSettings is the player's persisted settings.
type UserSettings struct {
	// Volumes are normalized to [0, 1].
	MasterVolume float64 `yaml:"master_volume" validate:"gte=0,lte=1"`
	SFXVolume    float64 `yaml:"sfx_volume" validate:"gte=0,lte=1"`
	MusicVolume  float64 `yaml:"music_volume" validate:"gte=0,lte=1"`

	FPSMode FPSMode `yaml:"fps_mode" validate:"oneof=vsync 30 60 120 unlimited"`

	// Performance overlay modules.
	PerfUIFPS      bool `yaml:"perf_ui_fps"`
	PerfUIAudio    bool `yaml:"perf_ui_audio"`
	PerfUIRAM      bool `yaml:"perf_ui_ram"`
	PerfUIAdvanced bool `yaml:"perf_ui_advanced"`
}

// Defaults returns full volumes and vsync.
func Defaults() UserSettings {
	return UserSettings{
		MasterVolume: 1,
		SFXVolume:    1,
		MusicVolume:  1,
		FPSMode:      FPSModeVSync,
	}
}

// Normalize clamps volumes into range and fills an empty FPS mode.
func (s *UserSettings) Normalize() {
	s.MasterVolume = clamp01(s.MasterVolume)
	s.SFXVolume = clamp01(s.SFXVolume)
	s.MusicVolume = clamp01(s.MusicVolume)
	if s.FPSMode == "" {
		s.FPSMode = FPSModeVSync
	}
}

// EffectiveSFXVolume is the SFX volume scaled by the master volume.
func (s UserSettings) EffectiveSFXVolume() float64 {
	return s.MasterVolume * s.SFXVolume
}

// EffectiveMusicVolume is the music volume scaled by the master volume.
func (s UserSettings) EffectiveMusicVolume() float64 {
	return s.MasterVolume * s.MusicVolume
}

var validate = validator.New()

// Validate checks the settings after normalization.
func (s UserSettings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid user settings: %w", err)
	}
	return nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
