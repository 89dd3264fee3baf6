package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"resumekit/internal/delivery"
	"resumekit/internal/notify"
	"resumekit/internal/pipeline"
	"resumekit/internal/resume"
	"resumekit/internal/templates"
)

var (
	ErrUnknownTemplate = errors.New("unknown template")
	ErrNoSnapshot      = errors.New("session has no résumé yet")
	ErrNotReady        = errors.New("document is not ready")
)

// Message is pushed to clients on every state change.
type Message struct {
	Type         string            `json:"type"`
	SessionID    string            `json:"session_id"`
	State        pipeline.State    `json:"state"`
	Generation   uint64            `json:"generation"`
	Attempts     int               `json:"attempts"`
	ErrorCode    int               `json:"error_code"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Retryable    bool              `json:"retryable,omitempty"`
	Download     Button            `json:"download"`
	Artifact     *pipeline.Summary `json:"artifact,omitempty"`
}

// NewMessage builds the client message of st.
func NewMessage(st pipeline.Status) Message {
	return Message{
		Type:         "status",
		SessionID:    st.SessionID,
		State:        st.State,
		Generation:   st.Generation,
		Attempts:     st.Attempts,
		ErrorCode:    st.ErrorCode,
		ErrorMessage: st.ErrorMsg,
		Retryable:    st.Fault != nil && st.Fault.Retryable(),
		Download:     DownloadButton(st),
		Artifact:     st.Artifact,
	}
}

// State is the persisted view of a session.
type State struct {
	ID        string
	Template  resume.TemplateID
	Snapshot  *resume.Snapshot
	View      View
	UpdatedAt time.Time
}

// Recorder persists sessions and their build history.
type Recorder interface {
	SaveSession(ctx context.Context, st State) error
	RecordStatus(ctx context.Context, st pipeline.Status) error
	DeleteSession(ctx context.Context, id string) error
}

// Session is one client's preview context. It owns one pipeline.
type Session struct {
	id       string
	pipeline *pipeline.Pipeline
	recorder Recorder
	logger   *slog.Logger

	mu       sync.Mutex
	template resume.TemplateID
	snap     *resume.Snapshot
	view     View
	touched  time.Time

	relayDone chan struct{}
}

func newSession(id string, p *pipeline.Pipeline, publisher notify.Publisher, recorder Recorder, logger *slog.Logger) *Session {
	s := &Session{
		id:        id,
		pipeline:  p,
		recorder:  recorder,
		logger:    logger.With(slog.String("session_id", id)),
		template:  resume.TemplateClassic,
		view:      View{Zoom: DefaultZoom, Autoscale: true},
		touched:   time.Now(),
		relayDone: make(chan struct{}),
	}
	updates, _ := p.Subscribe()
	go s.relay(updates, publisher)
	return s
}

func (s *Session) ID() string { return s.id }

// relay forwards every pipeline status to clients and the recorder, in
// order, until the pipeline closes.
func (s *Session) relay(updates <-chan pipeline.Status, publisher notify.Publisher) {
	defer close(s.relayDone)
	for st := range updates {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if publisher != nil {
			if err := publisher.Publish(ctx, notify.SessionChannel(s.id), NewMessage(st)); err != nil {
				s.logger.Warn("Control: publish status failed", slog.Any("error", err))
			}
		}
		if s.recorder != nil {
			if err := s.recorder.RecordStatus(ctx, st); err != nil {
				s.logger.Warn("Control: record status failed", slog.Any("error", err))
			}
		}
		cancel()
	}
}

func (s *Session) touch() { s.touched = time.Now() }

// UpdateSnapshot forwards a new résumé to the pipeline. A snapshot without a
// template keeps the session's current one.
func (s *Session) UpdateSnapshot(ctx context.Context, snap resume.Snapshot, correlationID string) uint64 {
	snap = snap.Clone()
	s.mu.Lock()
	if strings.TrimSpace(string(snap.Settings.SelectedTemplate)) == "" {
		snap.Settings.SelectedTemplate = s.template
	} else {
		s.template = templates.Resolve(snap.Settings.SelectedTemplate).ID
		snap.Settings.SelectedTemplate = s.template
	}
	s.snap = &snap
	s.touch()
	s.mu.Unlock()

	gen := s.pipeline.RequestCorrelated(snap, correlationID)
	s.save(ctx)
	return gen
}

// SelectTemplate switches the variant and rebuilds when a résumé is loaded.
func (s *Session) SelectTemplate(ctx context.Context, id resume.TemplateID) (uint64, error) {
	v, ok := templates.Lookup(id)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
	}
	s.mu.Lock()
	s.template = v.ID
	s.touch()
	var snap *resume.Snapshot
	if s.snap != nil {
		next := s.snap.Clone()
		next.Settings.SelectedTemplate = v.ID
		s.snap = &next
		snap = &next
	}
	s.mu.Unlock()

	gen := s.pipeline.Status().Generation
	if snap != nil {
		gen = s.pipeline.Request(*snap)
	}
	s.save(ctx)
	return gen, nil
}

// SetZoom clamps z and turns autoscale off.
func (s *Session) SetZoom(ctx context.Context, z float64) View {
	s.mu.Lock()
	s.view.Zoom = ClampZoom(z)
	s.view.Autoscale = false
	s.touch()
	v := s.view
	s.mu.Unlock()
	s.save(ctx)
	return v
}

// SetAutoscale toggles fitting; turning it on refits at once.
func (s *Session) SetAutoscale(ctx context.Context, on bool) View {
	s.mu.Lock()
	s.view.Autoscale = on
	if on {
		s.view.Zoom = FitZoom(s.view.Viewport, s.sizeLocked())
	}
	s.touch()
	v := s.view
	s.mu.Unlock()
	s.save(ctx)
	return v
}

// Resize records the viewport and refits when autoscale is on.
func (s *Session) Resize(ctx context.Context, vp Viewport) View {
	s.mu.Lock()
	s.view.Viewport = vp
	if s.view.Autoscale {
		s.view.Zoom = FitZoom(vp, s.sizeLocked())
	}
	s.touch()
	v := s.view
	s.mu.Unlock()
	s.save(ctx)
	return v
}

func (s *Session) sizeLocked() resume.DocumentSize {
	if s.snap == nil {
		return resume.DefaultSettings().DocumentSize
	}
	return s.snap.Settings.DocumentSize.Normalize()
}

// Retry rebuilds after a failure.
func (s *Session) Retry() (uint64, error) {
	gen, err := s.pipeline.Retry()
	if errors.Is(err, pipeline.ErrNothingToRetry) {
		return gen, ErrNoSnapshot
	}
	return gen, err
}

func (s *Session) Status() pipeline.Status { return s.pipeline.Status() }

func (s *Session) Subscribe() (<-chan pipeline.Status, func()) { return s.pipeline.Subscribe() }

// Await waits until the running build, if any, ends.
func (s *Session) Await(ctx context.Context) (pipeline.Status, error) {
	return s.pipeline.Await(ctx)
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Session) Template() resume.TemplateID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.template
}

// Snapshot returns a copy of the current résumé.
func (s *Session) Snapshot() (resume.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return resume.Snapshot{}, ErrNoSnapshot
	}
	return s.snap.Clone(), nil
}

// Download offers the READY document through d.
func (s *Session) Download(ctx context.Context, d *delivery.Deliverer) (*delivery.Offer, error) {
	art, err := s.pipeline.Artifact()
	if err != nil {
		return nil, ErrNotReady
	}
	name := ""
	if snap, err := s.Snapshot(); err == nil {
		name = snap.Resume.Profile.Name
	}
	s.mu.Lock()
	s.touch()
	s.mu.Unlock()
	return d.Deliver(ctx, delivery.Request{SessionID: s.id, Name: name, Artifact: art})
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

func (s *Session) state() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{ID: s.id, Template: s.template, View: s.view, UpdatedAt: s.touched}
	if s.snap != nil {
		snap := s.snap.Clone()
		st.Snapshot = &snap
	}
	return st
}

func (s *Session) save(ctx context.Context) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.SaveSession(ctx, s.state()); err != nil {
		s.logger.Warn("Control: save session failed", slog.Any("error", err))
	}
}

// close shuts the pipeline and waits for the relay to drain.
func (s *Session) close() {
	s.pipeline.Close()
	<-s.relayDone
}
