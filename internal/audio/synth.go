package audio

import (
	"math"
	"time"
)

const (
	attackTime = 10 * time.Millisecond
	floorGain  = 0.01
)

// Tone describes the notification "ding": an exponential frequency sweep
// from StartHz to EndHz, then held, under a short attack and exponential
// decay envelope.
type Tone struct {
	StartHz    float64
	EndHz      float64
	Sweep      time.Duration
	Duration   time.Duration
	Peak       float64
	SampleRate int
}

// DefaultTone is the 800Hz to 600Hz ding.
func DefaultTone() Tone {
	return Tone{
		StartHz:    800,
		EndHz:      600,
		Sweep:      100 * time.Millisecond,
		Duration:   400 * time.Millisecond,
		Peak:       0.3,
		SampleRate: 44100,
	}
}

// FrequencyAt returns the oscillator frequency t into the tone.
func (t Tone) FrequencyAt(at time.Duration) float64 {
	switch {
	case at <= 0:
		return t.StartHz
	case t.Sweep <= 0 || at >= t.Sweep:
		return t.EndHz
	}
	ratio := at.Seconds() / t.Sweep.Seconds()
	return t.StartHz * math.Pow(t.EndHz/t.StartHz, ratio)
}

// GainAt returns the envelope gain t into the tone.
func (t Tone) GainAt(at time.Duration) float64 {
	if at <= 0 || at >= t.Duration {
		return 0
	}
	if at < attackTime {
		return t.Peak * at.Seconds() / attackTime.Seconds()
	}
	decay := t.Duration - attackTime
	if decay <= 0 {
		return t.Peak
	}
	ratio := (at - attackTime).Seconds() / decay.Seconds()
	return t.Peak * math.Pow(floorGain/t.Peak, ratio)
}

// Render produces mono samples in [-1, 1].
func (t Tone) Render() []float64 {
	rate := t.SampleRate
	if rate <= 0 {
		rate = 44100
	}
	n := int(t.Duration.Seconds() * float64(rate))
	samples := make([]float64, n)
	phase := 0.0
	step := 1.0 / float64(rate)
	for i := 0; i < n; i++ {
		at := time.Duration(float64(i) * step * float64(time.Second))
		phase += 2 * math.Pi * t.FrequencyAt(at) * step
		samples[i] = t.GainAt(at) * math.Sin(phase)
	}
	return samples
}
