package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"resumekit/internal/api/middleware"
	"resumekit/internal/control"
	"resumekit/internal/database"
	"resumekit/internal/delivery"
	"resumekit/internal/pipeline"
	"resumekit/internal/render"
	"resumekit/internal/resume"
	"resumekit/internal/storage"
)

// Previewer renders the interactive HTML of a snapshot.
type Previewer interface {
	Preview(snap resume.Snapshot) (*render.Output, error)
}

// HistoryReader lists past builds of a session.
type HistoryReader interface {
	History(ctx context.Context, sessionID string, limit int) ([]database.Artifact, error)
}

// SessionHandler 负责预览会话相关的 API。
type SessionHandler struct {
	sessions  *control.Manager
	deliverer *delivery.Deliverer
	previewer Previewer
	history   HistoryReader
	// downloadWait bounds how long a download waits for a running build.
	downloadWait time.Duration
}

// NewSessionHandler wires the handler; history may be nil.
func NewSessionHandler(sessions *control.Manager, deliverer *delivery.Deliverer, previewer Previewer, history HistoryReader, downloadWait time.Duration) *SessionHandler {
	return &SessionHandler{
		sessions:     sessions,
		deliverer:    deliverer,
		previewer:    previewer,
		history:      history,
		downloadWait: downloadWait,
	}
}

type sessionResponse struct {
	SessionID string            `json:"session_id"`
	Template  resume.TemplateID `json:"template"`
	View      control.View      `json:"view"`
	Status    pipeline.Status   `json:"status"`
	Download  control.Button    `json:"download"`
}

func newSessionResponse(s *control.Session) sessionResponse {
	st := s.Status()
	return sessionResponse{
		SessionID: s.ID(),
		Template:  s.Template(),
		View:      s.View(),
		Status:    st,
		Download:  control.DownloadButton(st),
	}
}

type generationResponse struct {
	SessionID  string         `json:"session_id"`
	Generation uint64         `json:"generation"`
	Download   control.Button `json:"download"`
	Warnings   []string       `json:"warnings,omitempty"`
}

func (h *SessionHandler) session(c *gin.Context) (*control.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		NotFound(c, "session not found")
		return nil, false
	}
	return s, true
}

// POST /v1/sessions
// 可选地携带首个快照 {resume, settings}。
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var snap *resume.Snapshot
	if c.Request.ContentLength > 0 {
		snap = &resume.Snapshot{}
		if err := c.ShouldBindJSON(snap); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}

	s := h.sessions.Create(c.Request.Context())
	if snap != nil {
		s.UpdateSnapshot(c.Request.Context(), *snap, middleware.GetCorrelationID(c))
	}
	middleware.LoggerFromContext(c).Info("session created", "session_id", s.ID())
	c.JSON(http.StatusCreated, newSessionResponse(s))
}

// GET /v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(s))
}

// DELETE /v1/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Close(c.Request.Context(), c.Param("id")); err != nil {
		NotFound(c, "session not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /v1/sessions/:id/snapshot
// 快照到达即触发新一代构建；正在进行的旧构建会被取消。
func (h *SessionHandler) PutSnapshot(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var snap resume.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		BadRequest(c, err.Error())
		return
	}
	gen := s.UpdateSnapshot(c.Request.Context(), snap, middleware.GetCorrelationID(c))
	c.JSON(http.StatusAccepted, generationResponse{
		SessionID:  s.ID(),
		Generation: gen,
		Download:   control.DownloadButton(s.Status()),
		Warnings:   snap.Validate(),
	})
}

type templateRequest struct {
	Template resume.TemplateID `json:"template" binding:"required"`
}

// PUT /v1/sessions/:id/template
func (h *SessionHandler) PutTemplate(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	gen, err := s.SelectTemplate(c.Request.Context(), req.Template)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusAccepted, generationResponse{
		SessionID:  s.ID(),
		Generation: gen,
		Download:   control.DownloadButton(s.Status()),
	})
}

type zoomRequest struct {
	Zoom *float64 `json:"zoom" binding:"required"`
}

// PUT /v1/sessions/:id/zoom
func (h *SessionHandler) PutZoom(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req zoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, s.SetZoom(c.Request.Context(), *req.Zoom))
}

type autoscaleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// PUT /v1/sessions/:id/autoscale
func (h *SessionHandler) PutAutoscale(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req autoscaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, s.SetAutoscale(c.Request.Context(), *req.Enabled))
}

// PUT /v1/sessions/:id/viewport
func (h *SessionHandler) PutViewport(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var vp control.Viewport
	if err := c.ShouldBindJSON(&vp); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if vp.Width < 0 || vp.Height < 0 {
		BadRequest(c, "viewport must not be negative")
		return
	}
	c.JSON(http.StatusOK, s.Resize(c.Request.Context(), vp))
}

// POST /v1/sessions/:id/retry
func (h *SessionHandler) Retry(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	gen, err := s.Retry()
	if err != nil {
		Conflict(c, err.Error())
		return
	}
	c.JSON(http.StatusAccepted, generationResponse{
		SessionID:  s.ID(),
		Generation: gen,
		Download:   control.DownloadButton(s.Status()),
	})
}

// GET /v1/sessions/:id/download
// 默认等待进行中的构建（可用 ?wait=false 关闭）；成功时返回附件或 303 跳转到查看链接。
func (h *SessionHandler) Download(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	log := middleware.LoggerFromContext(c)

	st := s.Status()
	if st.State == pipeline.Building && c.DefaultQuery("wait", "true") != "false" && h.downloadWait > 0 {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.downloadWait)
		st, _ = s.Await(ctx)
		cancel()
	}
	switch st.State {
	case pipeline.Failed:
		if st.Fault != nil {
			Fault(c, http.StatusConflict, st.Fault)
			return
		}
		Conflict(c, st.ErrorMsg)
		return
	case pipeline.Ready:
	default:
		c.JSON(http.StatusConflict, gin.H{
			"error":    "document is not ready",
			"status":   st,
			"download": control.DownloadButton(st),
		})
		return
	}

	offer, err := s.Download(c.Request.Context(), h.deliverer)
	if err != nil {
		if errors.Is(err, control.ErrNotReady) {
			Conflict(c, err.Error())
			return
		}
		if f, ok := pipeline.AsFault(err); ok {
			log.Error("download failed", "error", err)
			Fault(c, http.StatusBadGateway, f)
			return
		}
		Internal(c, err.Error())
		return
	}

	if offer.URL != "" {
		c.Redirect(http.StatusSeeOther, offer.URL)
		return
	}
	c.Header("Content-Disposition", storage.ContentDisposition(offer.FileName, false))
	c.Header("X-Delivery-Strategy", offer.Strategy)
	c.Data(http.StatusOK, "application/pdf", offer.Data)
}

// GET /v1/sessions/:id/preview
func (h *SessionHandler) Preview(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := s.Snapshot()
	if err != nil {
		Conflict(c, err.Error())
		return
	}
	out, err := h.previewer.Preview(snap)
	if err != nil {
		Internal(c, err.Error())
		return
	}
	for _, w := range out.Warnings {
		c.Writer.Header().Add("X-Render-Warning", w)
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", out.HTML)
}

type historyItem struct {
	Generation   uint64    `json:"generation"`
	Status       string    `json:"status"`
	Template     string    `json:"template,omitempty"`
	Size         int64     `json:"size,omitempty"`
	Pages        int       `json:"pages,omitempty"`
	Attempts     int       `json:"attempts"`
	ErrorCode    int       `json:"error_code"`
	ErrorMessage string    `json:"error_message,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GET /v1/sessions/:id/history
func (h *SessionHandler) History(c *gin.Context) {
	if h.history == nil {
		NotFound(c, "history is not recorded")
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	rows, err := h.history.History(c.Request.Context(), s.ID(), limit)
	if err != nil {
		Internal(c, "failed to load history")
		return
	}
	items := make([]historyItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, historyItem{
			Generation:   r.Generation,
			Status:       r.Status,
			Template:     r.Template,
			Size:         r.Size,
			Pages:        r.Pages,
			Attempts:     r.Attempts,
			ErrorCode:    r.FaultCode,
			ErrorMessage: r.FaultMessage,
			UpdatedAt:    r.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, items)
}
