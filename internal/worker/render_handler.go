package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"resumekit/internal/errcode"
	"resumekit/internal/notify"
	"resumekit/internal/storage"
	"resumekit/internal/tasks"
)

// RenderTaskHandler 负责消费简历渲染任务，结果通过 Redis 回传给等待中的 API。
type RenderTaskHandler struct {
	gen       *Generator
	storage   storage.Store
	publisher notify.Publisher
	logger    *slog.Logger
}

// NewRenderTaskHandler 创建任务处理器。
func NewRenderTaskHandler(gen *Generator, store storage.Store, publisher notify.Publisher, logger *slog.Logger) *RenderTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RenderTaskHandler{gen: gen, storage: store, publisher: publisher, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *RenderTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.ParseRenderPayload(t.Payload())
	if err != nil {
		h.logger.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("job_id", payload.JobID),
		slog.String("session_id", payload.SessionID),
		slog.Uint64("generation", payload.Generation),
		slog.String("template", string(payload.Snapshot.Template())),
	)
	if payload.CorrelationID != "" {
		log = log.With(slog.String("correlation_id", payload.CorrelationID))
	}
	log.Info("Worker: render task started", slog.Int("attempt", payload.Attempt))

	result, err := h.render(ctx, payload)
	if err != nil {
		log.Error("Worker: render task failed", slog.Any("error", err))
		result = tasks.RenderResult{
			JobID:        payload.JobID,
			Status:       tasks.StatusError,
			ErrorCode:    failureCode(err),
			ErrorMessage: strings.TrimSpace(err.Error()),
		}
	}

	// 发布使用独立的 context：任务超时后仍要让 API 收到失败结果。
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if pubErr := h.publisher.Publish(pubCtx, tasks.ResultChannel(payload.JobID), result); pubErr != nil {
		log.Error("Worker: publish render result failed", slog.Any("error", pubErr))
		if err == nil {
			h.discard(pubCtx, result.ObjectKey, log)
			return pubErr
		}
	}
	if err != nil {
		return err
	}

	log.Info("Worker: render task completed",
		slog.String("object_key", result.ObjectKey),
		slog.Int64("size", result.Size),
		slog.Int("pages", result.Pages))
	return nil
}

func (h *RenderTaskHandler) render(ctx context.Context, payload tasks.RenderPayload) (tasks.RenderResult, error) {
	doc, err := h.gen.Generate(ctx, payload.Snapshot)
	if err != nil {
		return tasks.RenderResult{}, err
	}

	key := storage.ArtifactKey(payload.SessionID, payload.JobID)
	if err := h.storage.PutObject(ctx, key, doc.PDF, contentTypePDF); err != nil {
		return tasks.RenderResult{}, fmt.Errorf("store artifact: %w", err)
	}

	res := tasks.RenderResult{
		JobID:       payload.JobID,
		Status:      tasks.StatusCompleted,
		ObjectKey:   key,
		Size:        int64(len(doc.PDF)),
		Pages:       doc.Pages,
		Fingerprint: payload.Snapshot.Fingerprint(),
		Template:    doc.Template,
		ErrorCode:   errcode.OK,
		Warnings:    doc.Warnings,
	}
	if doc.FontFallback {
		res.ErrorCode = errcode.FontFallback
	}
	return res, nil
}

// discard removes an upload nobody will hear about.
func (h *RenderTaskHandler) discard(ctx context.Context, key string, log *slog.Logger) {
	if err := h.storage.DeleteObject(ctx, key); err != nil {
		log.Warn("Worker: discard unannounced artifact failed", slog.String("object_key", key), slog.Any("error", err))
	}
}

func failureCode(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return errcode.TimeoutFault
	}
	return errcode.RenderFault
}
