package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/automaxprocs/maxprocs"

	"resumekit/internal/api"
	"resumekit/internal/config"
	"resumekit/internal/control"
	"resumekit/internal/database"
	"resumekit/internal/delivery"
	"resumekit/internal/metrics"
	"resumekit/internal/notify"
	"resumekit/internal/pdf"
	"resumekit/internal/pipeline"
	"resumekit/internal/queue"
	"resumekit/internal/render"
	"resumekit/internal/storage"
	"resumekit/internal/worker"
)

const (
	evictionInterval = time.Minute
	shutdownTimeout  = 10 * time.Second
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Info(fmt.Sprintf(format, args...))
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storageClient, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	var recorder *database.Recorder
	if cfg.Database.Enabled {
		db, err := database.InitDatabase(cfg.Database)
		if err != nil {
			log.Fatalf("init database: %v", err)
		}
		if err := database.Migrate(db); err != nil {
			log.Fatalf("migrate database: %v", err)
		}
		recorder = database.NewRecorder(db)
		logger.Info("database ready")
	}

	pipelineMetrics := metrics.NewPipeline(prometheus.DefaultRegisterer)

	printer := pdf.NewRodPrinter(pdf.RodOptions{
		ChromeBin:   cfg.Render.ChromeBin,
		PageTimeout: cfg.Render.PrintTimeout,
		FontWait:    cfg.Render.FontWait,
	}, logger)
	defer printer.Close()
	renderer := render.NewRenderer(render.NewFontBook(cfg.Render.FontFamilies), logger)
	generator := worker.NewGenerator(renderer, printer, logger)

	builder, closeBuilder := newBuilder(cfg, generator, storageClient, redisClient, logger)
	defer closeBuilder()

	deps := control.Deps{
		Builder:   builder,
		Releaser:  storage.ArtifactReleaser{Store: storageClient},
		Metrics:   pipelineMetrics,
		Publisher: notify.NewRedisPublisher(redisClient),
		Pipeline: pipeline.Options{
			MaxAttempts: cfg.Pipeline.MaxAttempts,
			Backoff:     cfg.Pipeline.Backoff,
			Timeout:     cfg.Pipeline.Timeout,
		},
		Logger: logger,
	}
	var history api.HistoryReader
	if recorder != nil {
		deps.Recorder = recorder
		history = recorder
	}
	sessions := control.NewManager(deps)
	go sessions.RunEviction(ctx, cfg.API.SessionIdleTTL, evictionInterval)

	deliverer := delivery.New(storageClient, delivery.Options{
		ReleaseDelay: cfg.Delivery.ReleaseDelay,
		ViewerTTL:    cfg.Delivery.PresignTTL,
		MaxPasses:    cfg.Delivery.MaxPasses,
	}, delivery.WithMetrics(pipelineMetrics), delivery.WithLogger(logger))

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Handlers{
		Sessions:  api.NewSessionHandler(sessions, deliverer, generator, history, cfg.Pipeline.Timeout),
		Templates: api.NewTemplateHandler(),
		Ws:        api.NewWsHandler(redisClient, sessions, logger, cfg.API.AllowedOrigins),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("api listening", slog.String("addr", server.Addr), slog.String("render_mode", cfg.Render.Mode))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down api")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown http server failed", slog.Any("error", err))
	}
	sessions.CloseAll(shutdownCtx)
	deliverer.Wait()
}

// newBuilder returns the pipeline builder for the configured render mode and
// a func that releases its resources.
func newBuilder(cfg *config.Config, gen *worker.Generator, store storage.Store, redisClient *redis.Client, logger *slog.Logger) (pipeline.Builder, func()) {
	if cfg.Render.Mode == config.RenderModeLocal {
		logger.Info("rendering in process")
		return worker.NewLocalBuilder(gen, store, logger), func() {}
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	client := asynq.NewClient(redisOpt)
	inspector := asynq.NewInspector(redisOpt)
	b := queue.NewBuilder(client, queue.NewRedisResults(redisClient, logger), store, inspector, queue.Options{
		Queue: cfg.Worker.Queue,
	}, logger)
	logger.Info("rendering on workers", slog.String("queue", cfg.Worker.Queue))
	return b, func() {
		if err := client.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
		if err := inspector.Close(); err != nil {
			logger.Error("close asynq inspector failed", slog.Any("error", err))
		}
	}
}
