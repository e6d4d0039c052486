package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/strrl/neuropipe/internal/aggregator"
	"github.com/strrl/neuropipe/internal/signals"
)

func newTestOrchestrator(cfg OrchestratorConfig, sinks ...SignalSink) *Orchestrator {
	return NewOrchestrator(cfg, New(DefaultConfig()), aggregator.New(), sinks...)
}

func TestSubmitBackpressureAtQueueDepth(t *testing.T) {
	cfg := DefaultOrchestratorConfig()
	cfg.QueueDepth = 10
	o := newTestOrchestrator(cfg)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := o.SubmitNext(ctx, sineBuffer(2, 64, 256)); err != nil {
			t.Fatalf("submission %d: unexpected error %v", i+1, err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := o.SubmitNext(ctx, sineBuffer(2, 64, 256)); !errors.Is(err, ErrBackpressure) {
			t.Fatalf("submission %d: expected ErrBackpressure, got %v", 11+i, err)
		}
	}

	stats := o.Stats()
	if stats.Submitted != 10 || stats.Rejected != 2 {
		t.Fatalf("expected 10 submitted and 2 rejected, got %+v", stats)
	}
}

func TestSubmitRejectsOutOfOrder(t *testing.T) {
	o := newTestOrchestrator(DefaultOrchestratorConfig())
	ctx := context.Background()

	if err := o.Submit(ctx, Window{Seq: 3, Buffer: sineBuffer(2, 64, 256)}); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder for gapped sequence, got %v", err)
	}
	if err := o.Submit(ctx, Window{Seq: 0, Buffer: sineBuffer(2, 64, 256)}); err != nil {
		t.Fatalf("unexpected error for in-order window: %v", err)
	}
	if err := o.Submit(ctx, Window{Seq: 0, Buffer: sineBuffer(2, 64, 256)}); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder for replayed sequence, got %v", err)
	}
}

func TestSubmitValidatesAtInputGate(t *testing.T) {
	o := newTestOrchestrator(DefaultOrchestratorConfig())
	ctx := context.Background()

	bad := &signals.SampleBuffer{Channels: [][]float64{{1, 2}, {1}}, SampleRate: 256}
	var sigErr *signals.InvalidSignalError
	if _, err := o.SubmitNext(ctx, bad); !errors.As(err, &sigErr) {
		t.Fatalf("expected InvalidSignalError at admission, got %v", err)
	}

	// A rejected buffer leaves the sequence untouched.
	if seq, err := o.SubmitNext(ctx, sineBuffer(2, 64, 256)); err != nil || seq != 0 {
		t.Fatalf("expected seq 0 after invalid submission, got seq %d err %v", seq, err)
	}
}

func TestRunProcessesInOrder(t *testing.T) {
	o := newTestOrchestrator(DefaultOrchestratorConfig())
	ctx := context.Background()

	const windows = 5
	for i := 0; i < windows; i++ {
		if _, err := o.SubmitNext(ctx, sineBuffer(4, 128, 256)); err != nil {
			t.Fatalf("unexpected submit error: %v", err)
		}
	}
	o.Close()

	var results []signals.WindowResult
	err := o.Run(ctx, func(res signals.WindowResult) error {
		results = append(results, res)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	if len(results) != windows {
		t.Fatalf("expected %d results, got %d", windows, len(results))
	}
	for i, res := range results {
		if res.Seq != uint64(i) {
			t.Fatalf("result %d: expected seq %d, got %d", i, i, res.Seq)
		}
		if res.KPIs.WindowCount != i+1 {
			t.Fatalf("result %d: expected %d KPI windows, got %d", i, i+1, res.KPIs.WindowCount)
		}
	}
	if results[0].State.Stage != signals.StageAcquisition {
		t.Fatalf("expected first window stage ACQUISITION, got %s", results[0].State.Stage)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	o := newTestOrchestrator(DefaultOrchestratorConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := o.Run(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	o := newTestOrchestrator(DefaultOrchestratorConfig())
	o.Close()

	if _, err := o.SubmitNext(context.Background(), sineBuffer(2, 64, 256)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestAdaptiveAcceptanceWindow(t *testing.T) {
	cfg := DefaultOrchestratorConfig()
	cfg.QueueDepth = 10
	cfg.BaseWindowSize = 256
	cfg.MaxWindowSize = 1024
	o := newTestOrchestrator(cfg)
	ctx := context.Background()

	if o.AcceptanceWindowSize() != 256 {
		t.Fatalf("expected base window size 256, got %d", o.AcceptanceWindowSize())
	}

	// Fill past the high water mark without draining.
	for i := 0; i < 10; i++ {
		if _, err := o.SubmitNext(ctx, sineBuffer(2, 64, 256)); err != nil {
			t.Fatalf("unexpected submit error: %v", err)
		}
	}
	widened := o.AcceptanceWindowSize()
	if widened <= 256 {
		t.Fatalf("expected widened acceptance window above high water, got %d", widened)
	}
	if widened > 1024 {
		t.Fatalf("acceptance window exceeded maximum: %d", widened)
	}

	// Draining below the low water mark narrows back toward base.
	o.Close()
	if err := o.Run(ctx, nil); err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	if got := o.AcceptanceWindowSize(); got != 256 {
		t.Fatalf("expected window size restored to 256 after drain, got %d", got)
	}
}

type countingSink struct {
	saved int
	fail  bool
}

func (c *countingSink) SaveWindow(signals.WindowResult) error {
	c.saved++
	if c.fail {
		return errors.New("sink unavailable")
	}
	return nil
}

func TestOutputGateSinks(t *testing.T) {
	good := &countingSink{}
	bad := &countingSink{fail: true}
	o := newTestOrchestrator(DefaultOrchestratorConfig(), good, bad)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := o.SubmitNext(ctx, sineBuffer(2, 64, 256)); err != nil {
			t.Fatalf("unexpected submit error: %v", err)
		}
	}
	o.Close()
	if err := o.Run(ctx, nil); err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	if good.saved != 3 || bad.saved != 3 {
		t.Fatalf("expected both sinks to see 3 windows, got %d and %d", good.saved, bad.saved)
	}
	stats := o.Stats()
	if stats.Processed != 3 {
		t.Fatalf("expected 3 processed, got %d", stats.Processed)
	}
	if stats.SinkFails != 3 {
		t.Fatalf("expected 3 sink failures recorded, got %d", stats.SinkFails)
	}
}
