package control

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumekit/internal/delivery"
	"resumekit/internal/notify"
	"resumekit/internal/pipeline"
	"resumekit/internal/resume"
)

type builderFunc func(ctx context.Context, job pipeline.Job) (*pipeline.Artifact, error)

func (f builderFunc) Build(ctx context.Context, job pipeline.Job) (*pipeline.Artifact, error) {
	return f(ctx, job)
}

func okBuilder() pipeline.Builder {
	return builderFunc(func(_ context.Context, job pipeline.Job) (*pipeline.Artifact, error) {
		return &pipeline.Artifact{Data: []byte("%PDF-1.4"), Size: 8, Pages: 1, Template: job.Snapshot.Template()}, nil
	})
}

type fakeRecorder struct {
	mu       sync.Mutex
	saved    []State
	statuses []pipeline.Status
	deleted  []string
}

func (r *fakeRecorder) SaveSession(_ context.Context, st State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, st)
	return nil
}

func (r *fakeRecorder) RecordStatus(_ context.Context, st pipeline.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, st)
	return nil
}

func (r *fakeRecorder) DeleteSession(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return nil
}

func janeSnapshot() resume.Snapshot {
	s := resume.DefaultSettings()
	s.SelectedTemplate = resume.TemplateSidebarRight
	s.DocumentSize = resume.A4
	return resume.Snapshot{
		Resume:   resume.Record{Profile: resume.Profile{Name: "Jane Q. Public"}},
		Settings: s,
	}
}

func newManager(t *testing.T, b pipeline.Builder) (*Manager, *notify.Recorder, *fakeRecorder) {
	t.Helper()
	pub := notify.NewRecorder()
	rec := &fakeRecorder{}
	m := NewManager(Deps{
		Builder:   b,
		Publisher: pub,
		Recorder:  rec,
		Pipeline:  pipeline.Options{MaxAttempts: 1, Backoff: []time.Duration{0}, Timeout: time.Second},
	})
	t.Cleanup(func() { m.CloseAll(context.Background()) })
	return m, pub, rec
}

func TestDownloadButton(t *testing.T) {
	tests := []struct {
		state   pipeline.State
		label   string
		enabled bool
	}{
		{pipeline.Building, "Generating PDF...", false},
		{pipeline.Failed, "Error - Retry", true},
		{pipeline.Idle, "Preparing...", false},
		{pipeline.Ready, "Download Resume", true},
	}
	for _, tt := range tests {
		b := DownloadButton(pipeline.Status{State: tt.state})
		assert.Equal(t, tt.label, b.Label, tt.state.String())
		assert.Equal(t, tt.enabled, b.Enabled, tt.state.String())
	}
}

func TestZoomBounds(t *testing.T) {
	assert.Equal(t, 0.5, ClampZoom(0.1))
	assert.Equal(t, 1.5, ClampZoom(3))
	assert.Equal(t, 1.0, ClampZoom(1))
	assert.Equal(t, DefaultZoom, ClampZoom(nanValue()))
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}

func TestFitZoom(t *testing.T) {
	assert.Equal(t, 0.76, FitZoom(Viewport{Height: 1000}, resume.A4))
	assert.Equal(t, 0.8, FitZoom(Viewport{Height: 1000}, resume.Letter))
	assert.Equal(t, MinZoom, FitZoom(Viewport{Height: 300}, resume.A4))
	assert.Equal(t, MaxZoom, FitZoom(Viewport{Height: 5000}, resume.A4))
	assert.Equal(t, DefaultZoom, FitZoom(Viewport{}, resume.A4))
}

func TestSessionZoomControls(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t, okBuilder())
	s := m.Create(ctx)

	v := s.View()
	assert.Equal(t, DefaultZoom, v.Zoom)
	assert.True(t, v.Autoscale)

	v = s.Resize(ctx, Viewport{Width: 1400, Height: 1000})
	assert.Equal(t, 0.8, v.Zoom)

	v = s.SetZoom(ctx, 2)
	assert.Equal(t, 1.5, v.Zoom)
	assert.False(t, v.Autoscale)

	v = s.Resize(ctx, Viewport{Width: 1400, Height: 600})
	assert.Equal(t, 1.5, v.Zoom)

	v = s.SetAutoscale(ctx, true)
	assert.True(t, v.Autoscale)
	assert.Equal(t, 0.5, v.Zoom)
}

func TestSessionBuildsAndPublishes(t *testing.T) {
	ctx := context.Background()
	m, pub, rec := newManager(t, okBuilder())
	s := m.Create(ctx)

	s.UpdateSnapshot(ctx, janeSnapshot(), "corr-1")
	st, err := s.Await(ctx)
	require.NoError(t, err)
	require.Equal(t, pipeline.Ready, st.State)

	require.Eventually(t, func() bool {
		msgs := pub.Messages()
		if len(msgs) == 0 {
			return false
		}
		var last Message
		if err := json.Unmarshal(msgs[len(msgs)-1].Payload, &last); err != nil {
			return false
		}
		return last.State == pipeline.Ready && last.Download.Label == "Download Resume"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, notify.SessionChannel(s.ID()), pub.Messages()[0].Channel)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.NotEmpty(t, rec.saved)
	assert.NotEmpty(t, rec.statuses)
}

func TestSelectTemplate(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t, okBuilder())
	s := m.Create(ctx)

	_, err := s.SelectTemplate(ctx, "Z")
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	// before any résumé only the choice is kept
	gen, err := s.SelectTemplate(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), gen)
	assert.Equal(t, resume.TemplateSidebarLeft, s.Template())

	snap := janeSnapshot()
	snap.Settings.SelectedTemplate = ""
	s.UpdateSnapshot(ctx, snap, "")
	_, err = s.Await(ctx)
	require.NoError(t, err)
	got, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, resume.TemplateSidebarLeft, got.Settings.SelectedTemplate)

	before := s.Status().Generation
	gen, err = s.SelectTemplate(ctx, resume.TemplateSinglePage)
	require.NoError(t, err)
	assert.Greater(t, gen, before)
	st, err := s.Await(ctx)
	require.NoError(t, err)
	require.Equal(t, pipeline.Ready, st.State)
	assert.Equal(t, resume.TemplateSinglePage, st.Artifact.Template)
}

func TestSessionDownload(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t, okBuilder())
	s := m.Create(ctx)
	d := delivery.New(nil, delivery.Options{})

	_, err := s.Download(ctx, d)
	assert.ErrorIs(t, err, ErrNotReady)

	s.UpdateSnapshot(ctx, janeSnapshot(), "")
	_, err = s.Await(ctx)
	require.NoError(t, err)

	offer, err := s.Download(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "Jane_Q_Public-template-B.pdf", offer.FileName)
	assert.Equal(t, delivery.StrategyDirect, offer.Strategy)
}

func TestRetryWithoutSnapshot(t *testing.T) {
	m, _, _ := newManager(t, okBuilder())
	_, err := m.Create(context.Background()).Retry()
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	m, _, rec := newManager(t, okBuilder())

	s := m.Create(ctx)
	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Close(ctx, s.ID()))
	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Close(ctx, s.ID()), ErrSessionNotFound)

	rec.mu.Lock()
	assert.Equal(t, []string{s.ID()}, rec.deleted)
	rec.mu.Unlock()
}

func TestEvictIdle(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t, okBuilder())
	m.Create(ctx)
	m.Create(ctx)

	assert.Equal(t, 0, m.EvictIdle(ctx, time.Hour))
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 2, m.EvictIdle(ctx, time.Millisecond))
	assert.Equal(t, 0, m.Len())
}

type gaugeMetrics struct {
	mu       sync.Mutex
	sessions []int
}

func (g *gaugeMetrics) ObserveBuild(string, string, int, time.Duration) {}
func (g *gaugeMetrics) ObserveDiscard(string)                           {}

func (g *gaugeMetrics) SetSessions(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions = append(g.sessions, n)
}

func TestManagerReportsOpenSessions(t *testing.T) {
	g := &gaugeMetrics{}
	m := NewManager(Deps{
		Builder:  okBuilder(),
		Metrics:  g,
		Pipeline: pipeline.Options{MaxAttempts: 1, Backoff: []time.Duration{0}, Timeout: time.Second},
	})
	ctx := context.Background()

	a := m.Create(ctx)
	m.Create(ctx)
	require.NoError(t, m.Close(ctx, a.ID()))
	m.CloseAll(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Equal(t, []int{1, 2, 1, 0}, g.sessions)
}
