// Package generator produces simulated multi-channel EEG-like windows for
// the CLI and tests. Given the same seed it emits the same sequence.
package generator

import (
	"math"
	"math/rand"

	"github.com/strrl/neuropipe/internal/signals"
)

// Band center frequencies in Hz, delta through gamma.
var bandFrequencies = [5]float64{2, 6, 10, 20, 40}

type Config struct {
	Channels   int
	SampleRate float64
	Baseline   float64
	Amplitude  float64
	Noise      float64
	Seed       int64
}

func DefaultConfig() Config {
	return Config{
		Channels:   8,
		SampleRate: 256,
		Baseline:   30,
		Amplitude:  8,
		Noise:      2,
		Seed:       1,
	}
}

type Generator struct {
	cfg   Config
	rng   *rand.Rand
	phase float64
}

func New(cfg Config) *Generator {
	if cfg.Channels <= 0 {
		cfg.Channels = DefaultConfig().Channels
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultConfig().SampleRate
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Window emits one raw buffer of n samples per channel: a mix of band-tuned
// sinusoids around the configured baseline plus gaussian noise.
func (g *Generator) Window(n int) *signals.SampleBuffer {
	buf := &signals.SampleBuffer{
		Channels:   make([][]float64, g.cfg.Channels),
		SampleRate: g.cfg.SampleRate,
	}

	for c := 0; c < g.cfg.Channels; c++ {
		ch := make([]float64, n)
		chGain := 0.8 + 0.4*g.rng.Float64()
		for i := 0; i < n; i++ {
			t := g.phase + float64(i)/g.cfg.SampleRate
			var v float64
			for b, freq := range bandFrequencies {
				// Slower bands carry more amplitude, as in resting EEG.
				gain := g.cfg.Amplitude / float64(b+1)
				v += gain * math.Sin(2*math.Pi*freq*t)
			}
			ch[i] = g.cfg.Baseline + chGain*v + g.cfg.Noise*g.rng.NormFloat64()
		}
		buf.Channels[c] = ch
	}

	g.phase += float64(n) / g.cfg.SampleRate
	return buf
}

// Series emits n scalar observations around the baseline, for feeding the
// validation engine.
func (g *Generator) Series(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = g.cfg.Baseline + g.cfg.Noise*g.rng.NormFloat64()
	}
	return out
}
