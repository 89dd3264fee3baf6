package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumekit/internal/control"
	"resumekit/internal/delivery"
	"resumekit/internal/errcode"
	"resumekit/internal/notify"
	"resumekit/internal/pipeline"
	"resumekit/internal/render"
	"resumekit/internal/resume"
	"resumekit/internal/storage"
)

type builderFunc func(ctx context.Context, job pipeline.Job) (*pipeline.Artifact, error)

func (f builderFunc) Build(ctx context.Context, job pipeline.Job) (*pipeline.Artifact, error) {
	return f(ctx, job)
}

type fakePreviewer struct{}

func (fakePreviewer) Preview(snap resume.Snapshot) (*render.Output, error) {
	return &render.Output{HTML: []byte("<html>" + snap.Resume.Profile.Name + "</html>"), Warnings: []string{"w1"}}, nil
}

var errBoom = errors.New("chrome crashed")

func okBuilder() pipeline.Builder {
	return builderFunc(func(_ context.Context, job pipeline.Job) (*pipeline.Artifact, error) {
		data := []byte("%PDF-1.4 api")
		return &pipeline.Artifact{Data: data, Size: int64(len(data)), Pages: 1, Template: job.Snapshot.Template()}, nil
	})
}

func failingBuilder() pipeline.Builder {
	return builderFunc(func(context.Context, pipeline.Job) (*pipeline.Artifact, error) {
		return nil, errBoom
	})
}

type testServer struct {
	router   *gin.Engine
	sessions *control.Manager
}

func newTestServer(t *testing.T, b pipeline.Builder) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sessions := control.NewManager(control.Deps{
		Builder:   b,
		Publisher: notify.NewRecorder(),
		Pipeline:  pipeline.Options{MaxAttempts: 1, Backoff: []time.Duration{0}, Timeout: time.Second},
		Logger:    logger,
	})
	t.Cleanup(func() { sessions.CloseAll(context.Background()) })

	deliverer := delivery.New(storage.NewMemory(), delivery.DefaultOptions(), delivery.WithLogger(logger))
	router := NewRouter(logger)
	RegisterRoutes(router, Handlers{
		Sessions:  NewSessionHandler(sessions, deliverer, fakePreviewer{}, nil, 2*time.Second),
		Templates: NewTemplateHandler(),
	})
	return &testServer{router: router, sessions: sessions}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) create(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	assert.Equal(t, pipeline.Idle, resp.Status.State)
	assert.False(t, resp.Download.Enabled)
	return resp.SessionID
}

func janeSnapshot() resume.Snapshot {
	s := resume.DefaultSettings()
	s.SelectedTemplate = resume.TemplateSidebarRight
	return resume.Snapshot{
		Resume:   resume.Record{Profile: resume.Profile{Name: "Jane Q. Public"}},
		Settings: s,
	}
}

func TestHealthAndCorrelationID(t *testing.T) {
	s := newTestServer(t, okBuilder())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get("X-Correlation-ID"))
}

func TestListTemplates(t *testing.T) {
	s := newTestServer(t, okBuilder())

	w := s.do(t, http.MethodGet, "/v1/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 5)
	assert.Equal(t, "A", items[0]["id"])

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/templates/c", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/templates/Z", nil).Code)
}

func TestSnapshotThenDownload(t *testing.T) {
	s := newTestServer(t, okBuilder())
	id := s.create(t)

	w := s.do(t, http.MethodPut, "/v1/sessions/"+id+"/snapshot", janeSnapshot())
	require.Equal(t, http.StatusAccepted, w.Code)
	var gen generationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gen))
	assert.Equal(t, uint64(1), gen.Generation)

	w = s.do(t, http.MethodGet, "/v1/sessions/"+id+"/download", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Jane_Q_Public-template-B.pdf")
	assert.Equal(t, delivery.StrategyDirect, w.Header().Get("X-Delivery-Strategy"))
	assert.Equal(t, "%PDF-1.4 api", w.Body.String())
}

func TestDownloadBeforeSnapshotConflicts(t *testing.T) {
	s := newTestServer(t, okBuilder())
	id := s.create(t)

	w := s.do(t, http.MethodGet, "/v1/sessions/"+id+"/download", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Preparing...")
}

func TestFailedBuildReportsFaultAndRetries(t *testing.T) {
	s := newTestServer(t, failingBuilder())
	id := s.create(t)

	require.Equal(t, http.StatusAccepted, s.do(t, http.MethodPut, "/v1/sessions/"+id+"/snapshot", janeSnapshot()).Code)

	w := s.do(t, http.MethodGet, "/v1/sessions/"+id+"/download", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, errcode.RenderFault, body["error_code"])
	assert.Equal(t, true, body["retryable"])

	w = s.do(t, http.MethodPost, "/v1/sessions/"+id+"/retry", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	var gen generationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gen))
	assert.Equal(t, uint64(2), gen.Generation)
}

func TestRetryWithoutFailureConflicts(t *testing.T) {
	s := newTestServer(t, okBuilder())
	id := s.create(t)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/v1/sessions/"+id+"/retry", nil).Code)
}

func TestViewControls(t *testing.T) {
	s := newTestServer(t, okBuilder())
	id := s.create(t)

	w := s.do(t, http.MethodPut, "/v1/sessions/"+id+"/zoom", gin.H{"zoom": 4})
	require.Equal(t, http.StatusOK, w.Code)
	var view control.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, control.MaxZoom, view.Zoom)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/v1/sessions/"+id+"/zoom", gin.H{}).Code)

	w = s.do(t, http.MethodPut, "/v1/sessions/"+id+"/viewport", control.Viewport{Width: 800, Height: 1000})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPut, "/v1/sessions/"+id+"/autoscale", gin.H{"enabled": true})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.True(t, view.Autoscale)
	assert.Equal(t, 0.8, view.Zoom)

	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPut, "/v1/sessions/"+id+"/viewport", control.Viewport{Width: -1}).Code)
}

func TestSelectTemplate(t *testing.T) {
	s := newTestServer(t, okBuilder())
	id := s.create(t)

	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPut, "/v1/sessions/"+id+"/template", gin.H{"template": "Z"}).Code)
	assert.Equal(t, http.StatusAccepted,
		s.do(t, http.MethodPut, "/v1/sessions/"+id+"/template", gin.H{"template": "D"}).Code)

	w := s.do(t, http.MethodGet, "/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, resume.TemplateID("D"), resp.Template)
}

func TestPreview(t *testing.T) {
	s := newTestServer(t, okBuilder())
	id := s.create(t)

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodGet, "/v1/sessions/"+id+"/preview", nil).Code)

	s.do(t, http.MethodPut, "/v1/sessions/"+id+"/snapshot", janeSnapshot())
	w := s.do(t, http.MethodGet, "/v1/sessions/"+id+"/preview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html>Jane Q. Public</html>", w.Body.String())
	assert.Equal(t, "w1", w.Header().Get("X-Render-Warning"))
}

func TestUnknownAndDeletedSessions(t *testing.T) {
	s := newTestServer(t, okBuilder())

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/sessions/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/sessions/missing/history", nil).Code)

	id := s.create(t)
	assert.Equal(t, 1, s.sessions.Len())
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/v1/sessions/"+id, nil).Code)
	assert.Equal(t, 0, s.sessions.Len())
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/v1/sessions/"+id, nil).Code)
}
