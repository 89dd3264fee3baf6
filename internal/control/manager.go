// Package control keeps the preview sessions: zoom, template choice,
// snapshot forwarding, and the download control projected from pipeline
// state.
package control

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"resumekit/internal/notify"
	"resumekit/internal/pipeline"
)

var ErrSessionNotFound = errors.New("session not found")

// Deps are shared by every session of a Manager.
type Deps struct {
	Builder   pipeline.Builder
	Releaser  pipeline.Releaser
	Metrics   pipeline.Metrics
	Publisher notify.Publisher
	Recorder  Recorder
	Pipeline  pipeline.Options
	Logger    *slog.Logger
}

// sessionGauge is implemented by metrics that track open sessions.
type sessionGauge interface {
	SetSessions(n int)
}

// Manager owns sessions by id.
type Manager struct {
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{deps: deps, sessions: map[string]*Session{}}
}

// Create opens a session with a fresh id.
func (m *Manager) Create(ctx context.Context) *Session {
	id := uuid.NewString()
	opts := []pipeline.Option{
		pipeline.WithSessionID(id),
		pipeline.WithLogger(m.deps.Logger),
	}
	if m.deps.Releaser != nil {
		opts = append(opts, pipeline.WithReleaser(m.deps.Releaser))
	}
	if m.deps.Metrics != nil {
		opts = append(opts, pipeline.WithMetrics(m.deps.Metrics))
	}
	p := pipeline.New(m.deps.Builder, m.deps.Pipeline, opts...)
	s := newSession(id, p, m.deps.Publisher, m.deps.Recorder, m.deps.Logger)

	m.mu.Lock()
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()
	m.gauge(n)

	s.save(ctx)
	m.deps.Logger.Info("Control: session opened", slog.String("session_id", id))
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close cancels the session's build and releases its artifact.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	m.gauge(n)
	s.close()
	if m.deps.Recorder != nil {
		if err := m.deps.Recorder.DeleteSession(ctx, id); err != nil {
			m.deps.Logger.Warn("Control: delete session record failed", slog.String("session_id", id), slog.Any("error", err))
		}
	}
	m.deps.Logger.Info("Control: session closed", slog.String("session_id", id))
	return nil
}

func (m *Manager) gauge(n int) {
	if g, ok := m.deps.Metrics.(sessionGauge); ok {
		g.SetSessions(n)
	}
}

// Len is the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// EvictIdle closes sessions untouched for longer than ttl and returns how
// many were closed.
func (m *Manager) EvictIdle(ctx context.Context, ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	n := 0
	for _, id := range stale {
		if m.Close(ctx, id) == nil {
			n++
		}
	}
	return n
}

// RunEviction sweeps idle sessions every interval until ctx ends.
func (m *Manager) RunEviction(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.EvictIdle(ctx, ttl); n > 0 {
				m.deps.Logger.Info("Control: idle sessions evicted", slog.Int("count", n))
			}
		}
	}
}

// CloseAll closes every session.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		_ = m.Close(ctx, id)
	}
}
