package parser

import "github.com/strrl/neuropipe/internal/signals"

// RecordedWindow is one line of a recorded JSONL capture: a window of raw
// samples plus its position in the session.
type RecordedWindow struct {
	SessionID  string
	Seq        uint64
	SampleRate float64
	Channels   [][]float64
}

// Buffer converts the recorded window into a submittable sample buffer.
func (w *RecordedWindow) Buffer() *signals.SampleBuffer {
	return &signals.SampleBuffer{
		Channels:   w.Channels,
		SampleRate: w.SampleRate,
	}
}
