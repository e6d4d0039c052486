package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/strrl/neuropipe/internal/aggregator"
	"github.com/strrl/neuropipe/internal/signals"
)

var (
	// ErrBackpressure signals a full queue. Nothing is lost; the caller
	// should retry after a delay.
	ErrBackpressure = errors.New("pipeline queue is full, retry later")

	// ErrOutOfOrder signals a window submitted outside sample-time order.
	// Windows are rejected rather than reordered.
	ErrOutOfOrder = errors.New("window submitted out of order")

	// ErrClosed signals a submission after the orchestrator shut down.
	ErrClosed = errors.New("orchestrator is closed")
)

type OrchestratorConfig struct {
	QueueDepth int

	// Water marks are fractions of queue occupancy. Above HighWater the
	// acceptance window widens (fewer, coarser windows); at or below
	// LowWater it narrows back toward the base size.
	HighWater float64
	LowWater  float64

	BaseWindowSize int
	MinWindowSize  int
	MaxWindowSize  int
}

func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		QueueDepth:     10,
		HighWater:      0.8,
		LowWater:       0.3,
		BaseWindowSize: 256,
		MinWindowSize:  64,
		MaxWindowSize:  2048,
	}
}

// SignalSink receives finished window results at the output gate. Sinks are
// registered by the caller; the orchestrator only depends on this interface,
// never on a concrete backend.
type SignalSink interface {
	SaveWindow(res signals.WindowResult) error
}

// Window is one submission: a sequence number and its buffer.
type Window struct {
	Seq    uint64
	Buffer *signals.SampleBuffer
}

type queuedWindow struct {
	seq        uint64
	normalized *signals.NormalizedBuffer
}

// Stats counts windows through the three gates.
type Stats struct {
	Submitted uint64
	Rejected  uint64
	Invalid   uint64
	Processed uint64
	SinkFails uint64
}

// Orchestrator sequences windows through the Input, Processing, and Output
// gates. Validation happens at admission, so a producer learns about a bad
// buffer immediately; extraction, classification, and KPI aggregation run on
// the consumer side, one window start-to-finish at a time.
type Orchestrator struct {
	pipe  *Pipeline
	agg   *aggregator.Aggregator
	cfg   OrchestratorConfig
	sinks []SignalSink

	queue chan queuedWindow

	mu         sync.Mutex
	nextSeq    uint64
	windowSize int
	closed     bool
	stats      Stats

	prevStage signals.LearningStage
}

func NewOrchestrator(cfg OrchestratorConfig, pipe *Pipeline, agg *aggregator.Aggregator, sinks ...SignalSink) *Orchestrator {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultOrchestratorConfig().QueueDepth
	}
	if cfg.BaseWindowSize <= 0 {
		cfg.BaseWindowSize = DefaultOrchestratorConfig().BaseWindowSize
	}
	if cfg.MinWindowSize <= 0 {
		cfg.MinWindowSize = cfg.BaseWindowSize
	}
	if cfg.MaxWindowSize < cfg.BaseWindowSize {
		cfg.MaxWindowSize = cfg.BaseWindowSize
	}
	return &Orchestrator{
		pipe:       pipe,
		agg:        agg,
		cfg:        cfg,
		sinks:      sinks,
		queue:      make(chan queuedWindow, cfg.QueueDepth),
		windowSize: cfg.BaseWindowSize,
	}
}

// AddSink registers an output-gate sink. Call before Run starts draining.
func (o *Orchestrator) AddSink(sink SignalSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sinks = append(o.sinks, sink)
}

// Submit admits one window at the input gate. It never blocks: a full queue
// returns ErrBackpressure, a gap in sequence numbers returns ErrOutOfOrder,
// and a malformed buffer returns an InvalidSignalError.
func (o *Orchestrator) Submit(ctx context.Context, w Window) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}
	if w.Seq != o.nextSeq {
		return ErrOutOfOrder
	}

	normalized, err := o.pipe.Ingest(w.Buffer)
	if err != nil {
		o.stats.Invalid++
		return err
	}

	select {
	case o.queue <- queuedWindow{seq: w.Seq, normalized: normalized}:
		o.nextSeq++
		o.stats.Submitted++
		o.adjustRateLocked()
		return nil
	default:
		o.stats.Rejected++
		o.adjustRateLocked()
		return ErrBackpressure
	}
}

// SubmitNext admits a buffer with the next expected sequence number.
func (o *Orchestrator) SubmitNext(ctx context.Context, buf *signals.SampleBuffer) (uint64, error) {
	o.mu.Lock()
	seq := o.nextSeq
	o.mu.Unlock()
	return seq, o.Submit(ctx, Window{Seq: seq, Buffer: buf})
}

// Run drains the queue until the context is canceled or the orchestrator is
// closed and empty. Each window completes processing and output before the
// next one starts; KPI updates therefore keep strict sample-time order.
func (o *Orchestrator) Run(ctx context.Context, emit func(signals.WindowResult) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case w, ok := <-o.queue:
			if !ok {
				return nil
			}
			res := o.process(w)
			o.output(res, emit)
		}
	}
}

func (o *Orchestrator) process(w queuedWindow) signals.WindowResult {
	fv, state := o.pipe.ProcessNormalized(w.normalized, o.prevStage)
	o.prevStage = state.Stage

	kpis := o.agg.Update(w.normalized.RawMean, fv, state)

	o.mu.Lock()
	o.stats.Processed++
	o.adjustRateLocked()
	o.mu.Unlock()

	return signals.WindowResult{
		Seq:         w.seq,
		RawMean:     w.normalized.RawMean,
		Features:    fv,
		State:       state,
		KPIs:        kpis,
		ProcessedAt: time.Now(),
	}
}

func (o *Orchestrator) output(res signals.WindowResult, emit func(signals.WindowResult) error) {
	for _, sink := range o.sinks {
		if err := sink.SaveWindow(res); err != nil {
			o.mu.Lock()
			o.stats.SinkFails++
			o.mu.Unlock()
		}
	}
	if emit != nil {
		if err := emit(res); err != nil {
			o.mu.Lock()
			o.stats.SinkFails++
			o.mu.Unlock()
		}
	}
}

// adjustRateLocked is the throttling policy hook: occupancy above the high
// water mark widens the acceptance window (trading temporal resolution for
// throughput); occupancy at or below the low water mark narrows it back
// toward the base size.
func (o *Orchestrator) adjustRateLocked() {
	occupancy := float64(len(o.queue)) / float64(cap(o.queue))
	switch {
	case occupancy >= o.cfg.HighWater:
		o.windowSize = min(o.windowSize*2, o.cfg.MaxWindowSize)
	case occupancy <= o.cfg.LowWater && o.windowSize > o.cfg.BaseWindowSize:
		o.windowSize = max(o.windowSize/2, o.cfg.BaseWindowSize)
	}
}

// AcceptanceWindowSize reports the sample count the orchestrator currently
// wants per buffer.
func (o *Orchestrator) AcceptanceWindowSize() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.windowSize
}

// Occupancy reports how many windows are waiting in the queue.
func (o *Orchestrator) Occupancy() int {
	return len(o.queue)
}

// KPIs returns the current session KPI snapshot.
func (o *Orchestrator) KPIs() signals.SessionKPIs {
	return o.agg.Snapshot()
}

// Stats returns a copy of the gate counters.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// Close stops admission. Queued windows still drain through Run.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	close(o.queue)
}
