package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// WaveType defines oscillator wave shapes
type WaveType int

const (
	WaveSine WaveType = iota
	WaveSquare
	WaveSaw
	WaveNoise
)

// oscillator generates a fixed-length raw wave
type oscillator struct {
	freq     float64
	phase    float64
	duration int // samples; negative runs forever
	position int
	wave     WaveType
	rate     beep.SampleRate
	seed     uint32
}

func newOscillator(freq float64, duration time.Duration, wave WaveType, rate beep.SampleRate) *oscillator {
	n := -1
	if duration > 0 {
		n = rate.N(duration)
	}
	return &oscillator{freq: freq, duration: n, wave: wave, rate: rate, seed: 0x2545f491}
}

func (o *oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if o.duration >= 0 && o.position >= o.duration {
			return i, i > 0
		}

		var val float64
		switch o.wave {
		case WaveSine:
			val = math.Sin(2 * math.Pi * o.phase)
		case WaveSquare:
			if o.phase < 0.5 {
				val = 1
			} else {
				val = -1
			}
		case WaveSaw:
			val = 2 * (o.phase - 0.5)
		case WaveNoise:
			// xorshift keeps synthesized cues reproducible
			o.seed ^= o.seed << 13
			o.seed ^= o.seed >> 17
			o.seed ^= o.seed << 5
			val = float64(o.seed)/float64(math.MaxUint32)*2 - 1
		}

		samples[i][0] = val
		samples[i][1] = val

		o.phase += o.freq / float64(o.rate)
		o.phase -= math.Floor(o.phase)
		o.position++
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }

// decay shapes a stream with a short linear attack and exponential decay
type decay struct {
	streamer beep.Streamer
	position int
	attack   int
	rate     float64 // decay per second
	sr       beep.SampleRate
}

func newDecay(s beep.Streamer, attack time.Duration, perSecond float64, sr beep.SampleRate) beep.Streamer {
	return &decay{streamer: s, attack: sr.N(attack), rate: perSecond, sr: sr}
}

func (d *decay) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = d.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		vol := 1.0
		if d.position < d.attack && d.attack > 0 {
			vol = float64(d.position) / float64(d.attack)
		}
		t := float64(d.position) / float64(d.sr)
		vol *= math.Exp(-t * d.rate)

		samples[i][0] *= vol
		samples[i][1] *= vol
		d.position++
	}
	return n, ok
}

func (d *decay) Err() error { return d.streamer.Err() }

// newVolume maps a linear gain onto effects.Volume
// Log2(0) is -Inf, so zero gain is expressed as Silent
func newVolume(s beep.Streamer, gain float64) *effects.Volume {
	v := &effects.Volume{Streamer: s, Base: 2}
	setGain(v, gain)
	return v
}

func setGain(v *effects.Volume, gain float64) {
	if gain <= 0 {
		v.Volume, v.Silent = 0, true
		return
	}
	v.Volume, v.Silent = math.Log2(gain), false
}

// collisionSound is a low thud: damped sine plus a burst of noise
func collisionSound(sr beep.SampleRate) beep.Streamer {
	const length = 180 * time.Millisecond
	body := newDecay(newOscillator(90, length, WaveSine, sr), 2*time.Millisecond, 18, sr)
	click := newDecay(newOscillator(0, length, WaveNoise, sr), time.Millisecond, 60, sr)
	return beep.Mix(newVolume(body, 0.7), newVolume(click, 0.25))
}

// winSound is a rising major arpeggio
func winSound(sr beep.SampleRate) beep.Streamer {
	notes := []float64{523.25, 659.25, 783.99, 1046.50}
	parts := make([]beep.Streamer, 0, len(notes))
	for i, f := range notes {
		length := 120 * time.Millisecond
		if i == len(notes)-1 {
			length = 400 * time.Millisecond
		}
		tone := newDecay(newOscillator(f, length, WaveSine, sr), 5*time.Millisecond, 4, sr)
		parts = append(parts, newVolume(tone, 0.5))
	}
	return beep.Seq(parts...)
}

// rollSound is an endless low rumble
func rollSound(sr beep.SampleRate) beep.Streamer {
	rumble := newOscillator(55, 0, WaveSaw, sr)
	hiss := newOscillator(0, 0, WaveNoise, sr)
	return beep.Mix(newVolume(rumble, 0.2), newVolume(hiss, 0.05))
}
