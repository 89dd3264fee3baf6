// Package queue builds documents on remote workers: jobs go out as asynq
// tasks, results come back over redis pub/sub.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"resumekit/internal/pipeline"
	"resumekit/internal/storage"
	"resumekit/internal/tasks"
)

var ErrResultsClosed = errors.New("queue: result stream closed before a result arrived")

// Enqueuer is the producing half of asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Canceler withdraws tasks; asynq.Inspector satisfies it.
type Canceler interface {
	DeleteTask(queue, id string) error
	CancelProcessing(id string) error
}

// RemoteError is a failure reported by a worker.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("worker failed (code %d): %s", e.Code, e.Message)
}

type Options struct {
	Queue string
	// OrphanWait bounds how long an abandoned job is watched so its upload
	// can be removed.
	OrphanWait time.Duration
}

// Builder implements pipeline.Builder on top of the worker queue.
type Builder struct {
	enq      Enqueuer
	results  Results
	store    storage.Store
	canceler Canceler
	opts     Options
	logger   *slog.Logger
}

var _ pipeline.Builder = (*Builder)(nil)

// NewBuilder wires a queue builder. store and canceler may be nil.
func NewBuilder(enq Enqueuer, results Results, store storage.Store, canceler Canceler, opts Options, logger *slog.Logger) *Builder {
	if opts.Queue == "" {
		opts.Queue = "default"
	}
	if opts.OrphanWait <= 0 {
		opts.OrphanWait = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{enq: enq, results: results, store: store, canceler: canceler, opts: opts, logger: logger}
}

func (b *Builder) Build(ctx context.Context, job pipeline.Job) (*pipeline.Artifact, error) {
	log := b.logger.With(slog.String("job_id", job.ID), slog.Int("attempt", job.Attempt))

	sub, err := b.results.Subscribe(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	task, err := tasks.NewRenderTask(tasks.RenderPayload{
		JobID:         job.ID,
		SessionID:     job.SessionID,
		Generation:    job.Generation,
		Attempt:       job.Attempt,
		Snapshot:      job.Snapshot,
		CorrelationID: job.CorrelationID,
	}, asynq.Queue(b.opts.Queue))
	if err != nil {
		_ = sub.Close()
		return nil, err
	}
	var opts []asynq.Option
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, asynq.Deadline(deadline))
	}
	if _, err := b.enq.EnqueueContext(ctx, task, opts...); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("enqueue render task: %w", err)
	}
	log.Debug("Queue: render task enqueued", slog.String("queue", b.opts.Queue))

	select {
	case res, ok := <-sub.Results():
		_ = sub.Close()
		if !ok {
			return nil, ErrResultsClosed
		}
		return b.artifact(ctx, job, res, log)
	case <-ctx.Done():
		go b.abandon(job.ID, sub, log)
		return nil, ctx.Err()
	}
}

func (b *Builder) artifact(ctx context.Context, job pipeline.Job, res tasks.RenderResult, log *slog.Logger) (*pipeline.Artifact, error) {
	if res.Status != tasks.StatusCompleted {
		return nil, &RemoteError{Code: res.ErrorCode, Message: res.ErrorMessage}
	}
	art := &pipeline.Artifact{
		ObjectKey:   res.ObjectKey,
		Size:        res.Size,
		Pages:       res.Pages,
		Fingerprint: job.Fingerprint,
		Template:    res.Template,
		Warnings:    res.Warnings,
		CreatedAt:   time.Now(),
	}
	if b.store != nil && res.ObjectKey != "" {
		data, err := b.store.ReadObject(ctx, res.ObjectKey)
		if err != nil {
			// Delivery refetches through the object key.
			log.Warn("Queue: prefetch artifact failed", slog.String("object_key", res.ObjectKey), slog.Any("error", err))
		} else {
			art.Data = data
		}
	}
	return art, nil
}

// abandon withdraws a job nobody waits for and removes its upload should
// it still complete.
func (b *Builder) abandon(jobID string, sub Subscription, log *slog.Logger) {
	defer sub.Close()
	if b.canceler != nil {
		if err := b.canceler.DeleteTask(b.opts.Queue, jobID); err != nil {
			if err := b.canceler.CancelProcessing(jobID); err != nil {
				log.Debug("Queue: cancel abandoned task failed", slog.Any("error", err))
			}
		}
	}

	timer := time.NewTimer(b.opts.OrphanWait)
	defer timer.Stop()
	select {
	case res, ok := <-sub.Results():
		if !ok || res.ObjectKey == "" || b.store == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.store.DeleteObject(ctx, res.ObjectKey); err != nil {
			log.Warn("Queue: release orphaned artifact failed", slog.String("object_key", res.ObjectKey), slog.Any("error", err))
			return
		}
		log.Info("Queue: orphaned artifact released", slog.String("object_key", res.ObjectKey))
	case <-timer.C:
	}
}
