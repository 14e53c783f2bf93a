package audio

import (
	"fmt"
	"time"
)

// Config tunes audio output
type Config struct {
	Enabled     bool
	SampleRate  int           // output rate in Hz
	Buffer      time.Duration // speaker buffer length
	MusicVolume float64       // 0..1, ambient loops (rolling)
	SfxVolume   float64       // 0..1, one-shot effects
}

// DefaultConfig returns enabled audio at 44.1 kHz
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		SampleRate:  44100,
		Buffer:      100 * time.Millisecond,
		MusicVolume: 0.8,
		SfxVolume:   1.0,
	}
}

// Validate checks ranges
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("audio: sample rate %d must be positive", c.SampleRate)
	}
	if c.Buffer <= 0 {
		return fmt.Errorf("audio: buffer %v must be positive", c.Buffer)
	}
	if c.MusicVolume < 0 || c.MusicVolume > 1 {
		return fmt.Errorf("audio: music volume %v outside [0,1]", c.MusicVolume)
	}
	if c.SfxVolume < 0 || c.SfxVolume > 1 {
		return fmt.Errorf("audio: sfx volume %v outside [0,1]", c.SfxVolume)
	}
	return nil
}
