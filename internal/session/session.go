// Package session ties one pipeline, one KPI aggregator, and one
// orchestrator together under a session ID. Sessions are fully independent:
// nothing is shared between two sessions, so they may run in parallel.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/strrl/neuropipe/internal/aggregator"
	"github.com/strrl/neuropipe/internal/pipeline"
	"github.com/strrl/neuropipe/internal/signals"
)

type Config struct {
	Pipeline     pipeline.Config
	Orchestrator pipeline.OrchestratorConfig
}

func DefaultConfig() Config {
	return Config{
		Pipeline:     pipeline.DefaultConfig(),
		Orchestrator: pipeline.DefaultOrchestratorConfig(),
	}
}

type Session struct {
	ID        string
	StartedAt time.Time

	agg  *aggregator.Aggregator
	orch *pipeline.Orchestrator
}

func newSession(cfg Config, sinks ...pipeline.SignalSink) *Session {
	agg := aggregator.New()
	pipe := pipeline.New(cfg.Pipeline)
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		agg:       agg,
		orch:      pipeline.NewOrchestrator(cfg.Orchestrator, pipe, agg, sinks...),
	}
}

// AddSink registers an output sink for this session. Call before Run.
func (s *Session) AddSink(sink pipeline.SignalSink) {
	s.orch.AddSink(sink)
}

// Submit admits the next window of this session.
func (s *Session) Submit(ctx context.Context, buf *signals.SampleBuffer) (uint64, error) {
	return s.orch.SubmitNext(ctx, buf)
}

// Run drains the session's queue until the context ends or Close is called.
func (s *Session) Run(ctx context.Context, emit func(signals.WindowResult) error) error {
	return s.orch.Run(ctx, emit)
}

// KPIs returns the current KPI snapshot.
func (s *Session) KPIs() signals.SessionKPIs {
	return s.agg.Snapshot()
}

// Histories returns consistent copies of the session's tracked series for
// read-only consumers such as the validation engine.
func (s *Session) Histories() (engagement, indicator, calibration []float64) {
	return s.agg.Histories()
}

// StateCounts returns windows tallied per neural state.
func (s *Session) StateCounts() map[signals.NeuralState]int {
	return s.agg.StateCounts()
}

// Stats returns the orchestrator gate counters.
func (s *Session) Stats() pipeline.Stats {
	return s.orch.Stats()
}

// AcceptanceWindowSize reports the currently requested samples per window.
func (s *Session) AcceptanceWindowSize() int {
	return s.orch.AcceptanceWindowSize()
}

// Close stops admission; queued windows still drain through Run.
func (s *Session) Close() {
	s.orch.Close()
}

// Manager tracks live sessions by ID.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Start creates a new independent session.
func (m *Manager) Start(cfg Config, sinks ...pipeline.SignalSink) *Session {
	s := newSession(cfg, sinks...)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get looks up a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// End closes the session, removes it from the manager, and returns its final
// KPI snapshot. The session's histories are not persisted here; persistence
// is a registered sink's concern.
func (m *Manager) End(id string) (signals.SessionKPIs, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return signals.SessionKPIs{}, fmt.Errorf("unknown session %q", id)
	}
	s.Close()
	return s.KPIs(), nil
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
