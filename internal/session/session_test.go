package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/strrl/neuropipe/internal/generator"
	"github.com/strrl/neuropipe/internal/pipeline"
	"github.com/strrl/neuropipe/internal/signals"
)

func TestSessionEndToEnd(t *testing.T) {
	manager := NewManager()
	sess := manager.Start(DefaultConfig())
	if sess.ID == "" {
		t.Fatal("expected a session ID")
	}

	ctx := context.Background()
	done := make(chan error, 1)
	go func() {
		done <- sess.Run(ctx, nil)
	}()

	gen := generator.New(generator.DefaultConfig())
	const windows = 6
	for i := 0; i < windows; i++ {
		if err := submit(ctx, sess, gen.Window(256)); err != nil {
			t.Fatalf("window %d: unexpected error %v", i, err)
		}
	}
	sess.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not drain in time")
	}

	kpis := sess.KPIs()
	if kpis.WindowCount != windows {
		t.Fatalf("expected %d windows aggregated, got %d", windows, kpis.WindowCount)
	}
	for name, v := range map[string]float64{
		"engagement":          kpis.EngagementLevel,
		"learning efficiency": kpis.LearningEfficiency,
		"retention":           kpis.RetentionCorrelation,
		"adaptation":          kpis.AdaptationSpeed,
	} {
		if v < 0 || v > 1 {
			t.Fatalf("%s out of [0,1]: %v", name, v)
		}
	}
}

func submit(ctx context.Context, sess *Session, buf *signals.SampleBuffer) error {
	for {
		_, err := sess.Submit(ctx, buf)
		if !errors.Is(err, pipeline.ErrBackpressure) {
			return err
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	manager := NewManager()
	a := manager.Start(DefaultConfig())
	b := manager.Start(DefaultConfig())

	if a.ID == b.ID {
		t.Fatal("expected distinct session IDs")
	}
	if manager.Len() != 2 {
		t.Fatalf("expected 2 live sessions, got %d", manager.Len())
	}

	ctx := context.Background()
	gen := generator.New(generator.DefaultConfig())
	if _, err := a.Submit(ctx, gen.Window(256)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Session b saw nothing.
	if b.KPIs().WindowCount != 0 {
		t.Fatal("expected session b to be untouched")
	}
}

func TestManagerEnd(t *testing.T) {
	manager := NewManager()
	sess := manager.Start(DefaultConfig())

	kpis, err := manager.End(sess.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kpis.WindowCount != 0 {
		t.Fatalf("expected empty session KPIs, got %+v", kpis)
	}
	if _, ok := manager.Get(sess.ID); ok {
		t.Fatal("expected ended session to be removed")
	}
	if _, err := manager.End(sess.ID); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestHistoriesSnapshotDuringIngestion(t *testing.T) {
	manager := NewManager()
	sess := manager.Start(DefaultConfig())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- sess.Run(ctx, nil)
	}()

	gen := generator.New(generator.DefaultConfig())
	for i := 0; i < 4; i++ {
		if err := submit(ctx, sess, gen.Window(256)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	sess.Close()
	if err := <-done; err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}

	engagement, indicator, calibration := sess.Histories()
	if len(engagement) != 4 || len(indicator) != 4 || len(calibration) != 4 {
		t.Fatalf("expected 4 entries per history, got %d/%d/%d", len(engagement), len(indicator), len(calibration))
	}
}
