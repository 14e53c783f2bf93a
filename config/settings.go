package config

import (
	"fmt"
)

// Sensitivity scales the steering force
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// Multiplier returns the force scale; unknown values behave as medium
func (s Sensitivity) Multiplier() float64 {
	switch s {
	case SensitivityLow:
		return 0.5
	case SensitivityHigh:
		return 2.0
	default:
		return 1.0
	}
}

// Quality selects render detail
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// Settings are the player's persisted preferences
// JSON names match the stored record; YAML names seed the defaults from
// the config file
type Settings struct {
	Sensitivity      Sensitivity `json:"sensitivity" yaml:"sensitivity"`
	Quality          Quality     `json:"quality" yaml:"quality"`
	UseTouchControls bool        `json:"useTouchControls" yaml:"use_touch_controls"`
	MusicVolume      float64     `json:"musicVolume" yaml:"music_volume"`
	SfxVolume        float64     `json:"sfxVolume" yaml:"sfx_volume"`
}

// DefaultSettings returns medium sensitivity and quality, tilt controls,
// music at 0.8 and effects at full volume
func DefaultSettings() Settings {
	return Settings{
		Sensitivity:      SensitivityMedium,
		Quality:          QualityMedium,
		UseTouchControls: false,
		MusicVolume:      0.8,
		SfxVolume:        1.0,
	}
}

// Validate checks enum values and volume ranges
func (s Settings) Validate() error {
	switch s.Sensitivity {
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
	default:
		return fmt.Errorf("config: unknown sensitivity %q", s.Sensitivity)
	}
	switch s.Quality {
	case QualityLow, QualityMedium, QualityHigh:
	default:
		return fmt.Errorf("config: unknown quality %q", s.Quality)
	}
	if s.MusicVolume < 0 || s.MusicVolume > 1 {
		return fmt.Errorf("config: music volume %v outside [0,1]", s.MusicVolume)
	}
	if s.SfxVolume < 0 || s.SfxVolume > 1 {
		return fmt.Errorf("config: sfx volume %v outside [0,1]", s.SfxVolume)
	}
	return nil
}
