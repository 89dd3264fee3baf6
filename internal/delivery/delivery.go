// Package delivery hands a generated document to the user. Strategies are
// tried in order; only when every one of them failed, for the whole attempt
// budget, is a delivery fault reported.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"resumekit/internal/pipeline"
	"resumekit/internal/resume"
	"resumekit/internal/storage"
)

var (
	ErrNoArtifact   = errors.New("delivery: no artifact")
	ErrUnusableData = errors.New("delivery: document bytes are unusable")
	ErrNoStore      = errors.New("delivery: no object storage")
	ErrNoObject     = errors.New("delivery: artifact has no stored object")
)

// Strategy names.
const (
	StrategyDirect  = "direct"
	StrategyRefetch = "refetch"
	StrategyViewer  = "viewer"
)

// FileName is the saved name of a document: <stem>-template-<id>.pdf.
func FileName(name string, id resume.TemplateID) string {
	if id == "" {
		id = resume.TemplateClassic
	}
	return fmt.Sprintf("%s-template-%s.pdf", resume.FileStem(name), id)
}

// Offer is what a successful strategy hands to the transport: bytes to
// send as an attachment, or a URL to open in a new viewing context.
type Offer struct {
	Strategy string
	FileName string
	Data     []byte
	URL      string
}

// Request describes one download.
type Request struct {
	SessionID string
	Name      string
	Artifact  *pipeline.Artifact
}

// Attempt is the state shared by the strategies of one download.
type Attempt struct {
	Request  Request
	FileName string

	d      *Deliverer
	handle string
}

// Handle returns the transient object of this download, minting it on
// first use.
func (a *Attempt) Handle(ctx context.Context) (string, error) {
	if a.handle != "" {
		return a.handle, nil
	}
	if a.d.store == nil {
		return "", ErrNoStore
	}
	if a.Request.Artifact.ObjectKey == "" {
		return "", ErrNoObject
	}
	key := storage.DownloadKey(a.Request.SessionID, uuid.NewString(), a.FileName)
	if err := a.d.store.CopyObject(ctx, a.Request.Artifact.ObjectKey, key); err != nil {
		return "", fmt.Errorf("mint download handle: %w", err)
	}
	a.handle = key
	return key, nil
}

// Strategy is one way of delivering a document.
type Strategy interface {
	Name() string
	Offer(ctx context.Context, a *Attempt) (*Offer, error)
}

// Metrics receives delivery outcomes.
type Metrics interface {
	ObserveDelivery(strategy, outcome string)
}

type Options struct {
	// ReleaseDelay is how long a transient handle outlives its download.
	ReleaseDelay time.Duration
	ViewerTTL    time.Duration
	// MaxPasses bounds how often the whole strategy list is tried. It
	// defaults to the build attempt budget.
	MaxPasses int
}

func DefaultOptions() Options {
	return Options{
		ReleaseDelay: time.Second,
		ViewerTTL:    10 * time.Minute,
		MaxPasses:    pipeline.DefaultOptions().MaxAttempts,
	}
}

// Deliverer is safe for concurrent use.
type Deliverer struct {
	store      storage.Store
	opts       Options
	strategies []Strategy
	metrics    Metrics
	logger     *slog.Logger

	pending sync.WaitGroup
}

type Option func(*Deliverer)

func WithStrategies(s ...Strategy) Option { return func(d *Deliverer) { d.strategies = s } }

func WithMetrics(m Metrics) Option { return func(d *Deliverer) { d.metrics = m } }

func WithLogger(l *slog.Logger) Option {
	return func(d *Deliverer) {
		if l != nil {
			d.logger = l
		}
	}
}

// New builds a Deliverer; store may be nil, leaving only Direct usable.
func New(store storage.Store, opts Options, options ...Option) *Deliverer {
	def := DefaultOptions()
	if opts.ReleaseDelay <= 0 {
		opts.ReleaseDelay = def.ReleaseDelay
	}
	if opts.ViewerTTL <= 0 {
		opts.ViewerTTL = def.ViewerTTL
	}
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = def.MaxPasses
	}
	d := &Deliverer{store: store, opts: opts, logger: slog.Default()}
	d.strategies = []Strategy{Direct{}, Refetch{}, Viewer{TTL: opts.ViewerTTL}}
	for _, o := range options {
		o(d)
	}
	return d
}

// Deliver runs the strategy list. The returned error is a *pipeline.Fault
// of kind DeliveryFault.
func (d *Deliverer) Deliver(ctx context.Context, req Request) (*Offer, error) {
	if req.Artifact == nil {
		return nil, pipeline.NewDeliveryFault(ErrNoArtifact)
	}
	a := &Attempt{Request: req, FileName: FileName(req.Name, req.Artifact.Template), d: d}
	defer d.releaseLater(a)

	log := d.logger.With(slog.String("session_id", req.SessionID), slog.String("file_name", a.FileName))
	var errs []error
	for pass := 1; pass <= d.opts.MaxPasses; pass++ {
		for _, s := range d.strategies {
			if err := ctx.Err(); err != nil {
				return nil, pipeline.NewDeliveryFault(errors.Join(append(errs, err)...))
			}
			offer, err := s.Offer(ctx, a)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
				d.observe(s.Name(), "error")
				log.Warn("Delivery: strategy failed", slog.String("strategy", s.Name()), slog.Int("pass", pass), slog.Any("error", err))
				continue
			}
			offer.Strategy = s.Name()
			offer.FileName = a.FileName
			d.observe(s.Name(), "ok")
			log.Info("Delivery: document offered", slog.String("strategy", s.Name()), slog.Int("pass", pass))
			return offer, nil
		}
	}
	log.Error("Delivery: every strategy failed", slog.Int("passes", d.opts.MaxPasses))
	return nil, pipeline.NewDeliveryFault(errors.Join(errs...))
}

func (d *Deliverer) observe(strategy, outcome string) {
	if d.metrics != nil {
		d.metrics.ObserveDelivery(strategy, outcome)
	}
}

// releaseLater removes the transient handle after ReleaseDelay, whether or
// not the client finished saving.
func (d *Deliverer) releaseLater(a *Attempt) {
	if a.handle == "" {
		return
	}
	key := a.handle
	d.pending.Add(1)
	time.AfterFunc(d.opts.ReleaseDelay, func() {
		defer d.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.store.DeleteObject(ctx, key); err != nil {
			d.logger.Warn("Delivery: release download handle failed", slog.String("object_key", key), slog.Any("error", err))
		}
	})
}

// Wait blocks until every scheduled handle release has run.
func (d *Deliverer) Wait() { d.pending.Wait() }

func usable(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// Direct offers the bytes already held in memory.
type Direct struct{}

func (Direct) Name() string { return StrategyDirect }

func (Direct) Offer(_ context.Context, a *Attempt) (*Offer, error) {
	if !usable(a.Request.Artifact.Data) {
		return nil, ErrUnusableData
	}
	return &Offer{Data: a.Request.Artifact.Data}, nil
}

// Refetch re-reads the bytes through the transient handle.
type Refetch struct{}

func (Refetch) Name() string { return StrategyRefetch }

func (Refetch) Offer(ctx context.Context, a *Attempt) (*Offer, error) {
	key, err := a.Handle(ctx)
	if err != nil {
		return nil, err
	}
	data, err := a.d.store.ReadObject(ctx, key)
	if err != nil {
		return nil, err
	}
	if !usable(data) {
		return nil, ErrUnusableData
	}
	return &Offer{Data: data}, nil
}

// Viewer offers a short-lived inline URL of the stored document.
type Viewer struct {
	TTL time.Duration
}

func (Viewer) Name() string { return StrategyViewer }

func (v Viewer) Offer(ctx context.Context, a *Attempt) (*Offer, error) {
	if a.d.store == nil {
		return nil, ErrNoStore
	}
	if a.Request.Artifact.ObjectKey == "" {
		return nil, ErrNoObject
	}
	u, err := a.d.store.PresignDownload(ctx, a.Request.Artifact.ObjectKey, v.TTL, a.FileName, true)
	if err != nil {
		return nil, err
	}
	return &Offer{URL: u}, nil
}
