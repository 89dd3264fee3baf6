package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"resumekit/internal/pipeline"
	"resumekit/internal/storage"
)

const (
	contentTypePDF = "application/pdf"
	publishTimeout = 5 * time.Second
)

// LocalBuilder builds in-process. With a store the bytes are also uploaded
// so downloads can be refetched.
type LocalBuilder struct {
	gen    *Generator
	store  storage.Store
	logger *slog.Logger
}

var _ pipeline.Builder = (*LocalBuilder)(nil)

func NewLocalBuilder(gen *Generator, store storage.Store, logger *slog.Logger) *LocalBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalBuilder{gen: gen, store: store, logger: logger}
}

func (b *LocalBuilder) Build(ctx context.Context, job pipeline.Job) (*pipeline.Artifact, error) {
	doc, err := b.gen.Generate(ctx, job.Snapshot)
	if err != nil {
		return nil, err
	}
	art := &pipeline.Artifact{
		Data:        doc.PDF,
		Size:        int64(len(doc.PDF)),
		Pages:       doc.Pages,
		Fingerprint: job.Fingerprint,
		Template:    doc.Template,
		Warnings:    doc.Warnings,
		CreatedAt:   time.Now(),
	}
	if b.store == nil {
		return art, nil
	}

	key := storage.ArtifactKey(job.SessionID, job.ID)
	if err := b.store.PutObject(ctx, key, doc.PDF, contentTypePDF); err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}
	art.ObjectKey = key
	b.logger.Debug("Worker: artifact stored",
		slog.String("job_id", job.ID),
		slog.String("object_key", key),
		slog.Int64("size", art.Size))
	return art, nil
}
