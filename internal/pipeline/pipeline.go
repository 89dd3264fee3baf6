// Package pipeline turns résumé snapshots into generated documents. It owns
// the IDLE → BUILDING → READY | FAILED state machine, retries, the overall
// timeout, and the release of superseded artifacts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"resumekit/internal/resume"
)

var (
	ErrClosed          = errors.New("pipeline closed")
	ErrNothingToRetry  = errors.New("pipeline has no snapshot to retry")
	ErrNoArtifact      = errors.New("builder returned no artifact")
	ErrArtifactMissing = errors.New("no ready artifact")
)

// Builder produces one artifact per call.
type Builder interface {
	Build(ctx context.Context, job Job) (*Artifact, error)
}

// Releaser frees the storage behind an artifact.
type Releaser interface {
	Release(ctx context.Context, a *Artifact) error
}

// Metrics receives build outcomes.
type Metrics interface {
	ObserveBuild(template string, outcome string, attempts int, elapsed time.Duration)
	ObserveDiscard(template string)
}

type Option func(*Pipeline)

func WithReleaser(r Releaser) Option { return func(p *Pipeline) { p.releaser = r } }

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithSessionID(id string) Option { return func(p *Pipeline) { p.sessionID = id } }

func WithMetrics(m Metrics) Option { return func(p *Pipeline) { p.metrics = m } }

// Pipeline is safe for concurrent use.
type Pipeline struct {
	builder   Builder
	releaser  Releaser
	metrics   Metrics
	opts      Options
	logger    *slog.Logger
	sessionID string

	base       context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu         sync.Mutex
	state      State
	gen        uint64
	attempts   int
	cancel     context.CancelFunc
	inflightFP string
	last       *resume.Snapshot
	artifact   *Artifact
	fault      *Fault
	updatedAt  time.Time
	changed    chan struct{}
	subs       map[uint64]*subscriber
	nextSub    uint64
	closed     bool
}

func New(builder Builder, opts Options, options ...Option) *Pipeline {
	base, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		builder:    builder,
		opts:       opts.withDefaults(),
		logger:     slog.Default(),
		base:       base,
		baseCancel: cancel,
		changed:    make(chan struct{}),
		subs:       map[uint64]*subscriber{},
		updatedAt:  time.Now(),
	}
	for _, o := range options {
		o(p)
	}
	if p.sessionID != "" {
		p.logger = p.logger.With(slog.String("session_id", p.sessionID))
	}
	return p
}

// Request asks for a document of snap and returns the generation that will
// answer it. The snapshot is copied. An in-flight build for older input is
// cancelled and its result discarded.
func (p *Pipeline) Request(snap resume.Snapshot) uint64 {
	return p.RequestCorrelated(snap, "")
}

// RequestCorrelated is Request with a correlation id carried into the jobs.
func (p *Pipeline) RequestCorrelated(snap resume.Snapshot, correlationID string) uint64 {
	snap = snap.Clone()
	fp := snap.Fingerprint()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return p.gen
	}
	p.last = &snap

	if p.state == Building && p.inflightFP == fp {
		return p.gen
	}
	if p.artifact != nil && p.artifact.Fingerprint == fp {
		if p.state != Ready {
			p.cancelLocked()
			p.gen++
			p.state = Ready
			p.fault = nil
			p.attempts = 0
			p.publishLocked()
		}
		p.logger.Debug("Pipeline: input unchanged, reusing artifact", slog.Uint64("generation", p.gen))
		return p.gen
	}
	return p.startLocked(snap, fp, correlationID)
}

// Retry rebuilds the last snapshot after a failure. In any other state it
// returns the current generation.
func (p *Pipeline) Retry() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return p.gen, ErrClosed
	}
	if p.last == nil {
		return p.gen, ErrNothingToRetry
	}
	if p.state != Failed {
		return p.gen, nil
	}
	return p.startLocked(*p.last, p.last.Fingerprint(), ""), nil
}

func (p *Pipeline) startLocked(snap resume.Snapshot, fp, correlationID string) uint64 {
	p.cancelLocked()
	p.gen++
	gen := p.gen

	ctx, cancel := context.WithTimeout(p.base, p.opts.Timeout)
	p.cancel = cancel
	p.inflightFP = fp
	p.state = Building
	p.fault = nil
	p.attempts = 0
	p.publishLocked()

	p.wg.Add(1)
	go p.run(ctx, cancel, gen, snap, fp, correlationID)
	return gen
}

func (p *Pipeline) cancelLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.inflightFP = ""
}

func (p *Pipeline) run(ctx context.Context, cancel context.CancelFunc, gen uint64, snap resume.Snapshot, fp, correlationID string) {
	defer p.wg.Done()
	defer cancel()

	started := time.Now()
	tmpl := string(snap.Template())
	logger := p.logger.With(
		slog.Uint64("generation", gen),
		slog.String("template", tmpl),
	)
	if correlationID != "" {
		logger = logger.With(slog.String("correlation_id", correlationID))
	}
	logger.Info("Pipeline: build started")

	var (
		attempt int
		art     *Artifact
	)
	op := func() error {
		attempt++
		p.setAttempts(gen, attempt)
		job := Job{
			ID:            uuid.NewString(),
			SessionID:     p.sessionID,
			Generation:    gen,
			Attempt:       attempt,
			Snapshot:      snap,
			Fingerprint:   fp,
			CorrelationID: correlationID,
		}
		a, err := p.buildOnce(ctx, job)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		art = a
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("Pipeline: build attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.opts.MaxAttempts),
			slog.Duration("backoff", wait),
			slog.Any("error", err))
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(p.opts.policy(), uint64(p.opts.MaxAttempts-1)), ctx)
	err := backoff.RetryNotify(op, policy, notify)
	p.finish(ctx, gen, tmpl, fp, art, err, attempt, time.Since(started), logger)
}

// buildOnce runs one builder call but gives up as soon as ctx ends. A result
// that arrives after that is released.
func (p *Pipeline) buildOnce(ctx context.Context, job Job) (*Artifact, error) {
	type result struct {
		art *Artifact
		err error
	}
	done := make(chan result, 1)
	go func() {
		a, err := p.builder.Build(ctx, job)
		if err == nil && a == nil {
			err = ErrNoArtifact
		}
		done <- result{a, err}
	}()

	select {
	case r := <-done:
		return r.art, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.art != nil {
				p.release(r.art)
			}
		}()
		return nil, ctx.Err()
	}
}

func (p *Pipeline) finish(ctx context.Context, gen uint64, tmpl, fp string, art *Artifact, err error, attempts int, elapsed time.Duration, logger *slog.Logger) {
	p.mu.Lock()
	if gen != p.gen || p.closed {
		p.mu.Unlock()
		if art != nil {
			p.release(art)
		}
		if p.metrics != nil {
			p.metrics.ObserveDiscard(tmpl)
		}
		logger.Info("Pipeline: superseded build discarded")
		return
	}
	p.cancel = nil
	p.inflightFP = ""
	p.attempts = attempts

	if err == nil {
		if art.Fingerprint == "" {
			art.Fingerprint = fp
		}
		if art.CreatedAt.IsZero() {
			art.CreatedAt = time.Now()
		}
		old := p.artifact
		p.artifact = art
		p.state = Ready
		p.fault = nil
		p.publishLocked()
		p.mu.Unlock()

		if old != nil && old != art && old.ObjectKey != art.ObjectKey {
			p.release(old)
		}
		if p.metrics != nil {
			p.metrics.ObserveBuild(tmpl, "ready", attempts, elapsed)
		}
		logger.Info("Pipeline: build ready",
			slog.Int("attempts", attempts),
			slog.Int64("size", art.Size),
			slog.Int("pages", art.Pages),
			slog.Duration("elapsed", elapsed))
		return
	}

	fault := classify(ctx, err, attempts, p.opts)
	p.state = Failed
	p.fault = fault
	p.publishLocked()
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.ObserveBuild(tmpl, string(fault.Kind), attempts, elapsed)
	}
	logger.Error("Pipeline: build failed",
		slog.String("fault", string(fault.Kind)),
		slog.Int("attempts", attempts),
		slog.Any("error", err))
}

func classify(ctx context.Context, err error, attempts int, opts Options) *Fault {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &Fault{
			Kind:    TimeoutFault,
			Message: fmt.Sprintf("document generation took longer than %s", opts.Timeout),
			Cause:   err,
		}
	}
	return &Fault{
		Kind:    RenderFault,
		Message: fmt.Sprintf("document generation failed after %d attempts", attempts),
		Cause:   err,
	}
}

func (p *Pipeline) setAttempts(gen uint64, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen == p.gen && p.state == Building {
		p.attempts = n
	}
}

func (p *Pipeline) release(a *Artifact) {
	if p.releaser == nil || a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.releaser.Release(ctx, a); err != nil {
		p.logger.Warn("Pipeline: release artifact failed",
			slog.String("object_key", a.ObjectKey),
			slog.Any("error", err))
	}
}

func (p *Pipeline) statusLocked() Status {
	st := Status{
		SessionID:  p.sessionID,
		State:      p.state,
		Generation: p.gen,
		Attempts:   p.attempts,
		UpdatedAt:  p.updatedAt,
	}
	if p.state == Ready {
		st.Artifact = p.artifact.Summary()
	}
	if p.fault != nil {
		st.Fault = p.fault
		st.ErrorCode = p.fault.Code()
		st.ErrorMsg = p.fault.Message
	}
	return st
}

func (p *Pipeline) publishLocked() {
	p.updatedAt = time.Now()
	st := p.statusLocked()
	for _, s := range p.subs {
		s.push(st)
	}
	close(p.changed)
	p.changed = make(chan struct{})
}

// Status returns the current state.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLocked()
}

// Artifact returns the READY artifact.
func (p *Pipeline) Artifact() (*Artifact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Ready || p.artifact == nil {
		return nil, ErrArtifactMissing
	}
	return p.artifact, nil
}

// Snapshot returns a copy of the last requested snapshot.
func (p *Pipeline) Snapshot() (resume.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return resume.Snapshot{}, false
	}
	return p.last.Clone(), true
}

// Subscribe delivers the current status and then every change, in order.
// The channel closes after Close or after cancel is called.
func (p *Pipeline) Subscribe() (<-chan Status, func()) {
	s := newSubscriber()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		s.push(p.Status())
		s.finish()
		return s.out, s.stop
	}
	id := p.nextSub
	p.nextSub++
	p.subs[id] = s
	s.push(p.statusLocked())
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
		s.stop()
	}
	return s.out, cancel
}

// Await blocks until the pipeline is not BUILDING.
func (p *Pipeline) Await(ctx context.Context) (Status, error) {
	for {
		p.mu.Lock()
		st := p.statusLocked()
		changed := p.changed
		p.mu.Unlock()
		if st.State != Building {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-changed:
		}
	}
}

// Close cancels any build, releases the current artifact and closes all
// subscriptions.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.cancelLocked()
	p.state = Idle
	p.fault = nil
	art := p.artifact
	p.artifact = nil
	p.publishLocked()
	p.closed = true
	subs := p.subs
	p.subs = nil
	p.mu.Unlock()

	p.baseCancel()
	p.wg.Wait()
	if art != nil {
		p.release(art)
	}
	for _, s := range subs {
		s.finish()
	}
}
