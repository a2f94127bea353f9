// cmd/orchestrator/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"query-orchestrator/internal/api"
	awsnotify "query-orchestrator/internal/common/aws"
	"query-orchestrator/internal/common/camunda"
	"query-orchestrator/internal/common/config"
	"query-orchestrator/internal/common/database"
	commonerrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/common/genai"
	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/common/observability"
	"query-orchestrator/internal/common/store"
	"query-orchestrator/internal/common/validation"
	"query-orchestrator/pkg/registry"

	bc "query-orchestrator/internal/workers/ai-conversation/build-chart"
	cr "query-orchestrator/internal/workers/ai-conversation/compose-response"
	dr "query-orchestrator/internal/workers/ai-conversation/direct-reply"
	llm "query-orchestrator/internal/workers/ai-conversation/llm-synthesis"
	rd "query-orchestrator/internal/workers/ai-conversation/retrieve-documents"
	rq "query-orchestrator/internal/workers/ai-conversation/route-query"
)

func main() {
	zapLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting query orchestrator...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	readiness := make(map[string]api.ReadinessCheck)

	// --- Document store ---
	var backend store.Store
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		var pg *database.PostgresClient
		err = database.RetryWithBackoff(ctx, func(ctx context.Context) error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			connectionFailed(zapLog, commonerrors.NewDatabaseConnectionFailedError(err).WithMetadata("backend", "postgres"))
		}
		defer pg.Close()
		backend = store.NewPostgresStore(pg.DB, cfg.Database.Postgres.Table)
		readiness["postgres"] = pg.Ping

	default:
		var es *database.ElasticsearchClient
		err = database.RetryWithBackoff(ctx, func(ctx context.Context) error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			connectionFailed(zapLog, commonerrors.NewElasticsearchConnectionFailedError(err).WithMetadata("url", cfg.Database.Elasticsearch.GetURL()))
		}
		backend = store.NewElasticsearchStore(es.Client, cfg.Database.Elasticsearch.Index)
		readiness["elasticsearch"] = es.Ping
	}
	zapLog.Info("Document store connected", zap.String("backend", cfg.Store.Backend))

	if cfg.Store.CacheEnabled {
		var rdb *database.RedisClient
		err = database.RetryWithBackoff(ctx, func(ctx context.Context) error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, time.Second, log, "Redis connection")
		if err != nil {
			connectionFailed(zapLog, commonerrors.NewDatabaseConnectionFailedError(err).WithMetadata("backend", "redis"))
		}
		defer rdb.Close()
		backend = store.NewCachedStore(backend, rdb.Client, config.GetDuration(cfg.Store.CacheTTL), log)
		readiness["redis"] = rdb.Ping
	}

	// --- Language model ---
	model, err := genai.NewFromConfig(cfg.APIs.GenAI, log)
	if err != nil {
		zapLog.Fatal("language model init failed", zap.Error(err))
	}

	// --- Capabilities ---
	llmHandler := llm.NewHandler(
		&llm.Config{Timeout: workerTimeout(cfg, llm.TaskType)},
		model, &llmSynthesisLoggerAdapter{log},
	)
	retrieveHandler := rd.NewHandler(
		&rd.Config{
			Timeout:       workerTimeout(cfg, rd.TaskType),
			MaxResults:    cfg.Store.SearchLimit,
			DefaultTenant: cfg.Orchestrator.DefaultTenant,
		},
		backend, llmHandler, &retrieveDocumentsLoggerAdapter{log},
	)
	chartHandler := bc.NewHandler(
		&bc.Config{Timeout: workerTimeout(cfg, bc.TaskType)},
		bc.NewPaletteBuilder(), &buildChartLoggerAdapter{log},
	)
	directHandler := dr.NewHandler(dr.LoadConfig(), &directReplyLoggerAdapter{log})
	routeHandler := rq.NewHandler(rq.LoadConfig(), &routeQueryLoggerAdapter{log})

	// --- Orchestrator ---
	opts := []cr.Option{cr.WithRecorder(obs), cr.WithTracer(obs.Tracer())}
	switch {
	case cfg.Notifications.SNS.Enabled:
		client, err := awsnotify.NewSNSClient(ctx, cfg.Notifications.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		opts = append(opts, cr.WithNotifier(awsnotify.NewSNSNotifier(client, cfg.Notifications.SNS.TopicARN)))
		zapLog.Info("Fault alerts enabled", zap.String("channel", "sns"))
	case cfg.Notifications.SES.Enabled:
		client, err := awsnotify.NewSESClient(ctx, cfg.Notifications.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		opts = append(opts, cr.WithNotifier(awsnotify.NewSESNotifier(client, cfg.Notifications.SES.FromEmail, cfg.Notifications.SES.ToEmail)))
		zapLog.Info("Fault alerts enabled", zap.String("channel", "ses"))
	}

	composerConfig := &cr.Config{
		CapabilityTimeout: config.GetDuration(cfg.Orchestrator.CapabilityTimeout),
		JobTimeout:        workerTimeout(cfg, cr.TaskType),
		DefaultTenant:     cfg.Orchestrator.DefaultTenant,
	}
	composer := cr.NewComposer(composerConfig, rq.Decide, retrieveHandler, chartHandler, directHandler, &composeResponseLoggerAdapter{log}, opts...)

	reg, err := registry.Default()
	if err != nil {
		zapLog.Fatal("registry load failed", zap.Error(err))
	}
	validator, err := validation.NewValidator(reg)
	if err != nil {
		zapLog.Fatal("schema compile failed", zap.Error(err))
	}

	// --- Zeebe workers ---
	var workers *camunda.WorkerManager
	if cfg.Camunda.Enabled {
		var zc *camunda.Client
		err = database.RetryWithBackoff(ctx, func(ctx context.Context) error {
			var err error
			zc, err = camunda.NewClient(cfg.Camunda.BrokerAddress, config.GetDuration(cfg.Camunda.RequestTimeout))
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zc.Close()
		zapLog.Info("Zeebe client connected successfully")

		if cfg.Camunda.ProcessFile != "" {
			if err := zc.DeployProcess(ctx, cfg.Camunda.ProcessFile); err != nil {
				zapLog.Warn("process deployment failed", zap.String("file", cfg.Camunda.ProcessFile), zap.Error(err))
			}
		}

		orchestrateHandler := cr.NewHandler(composerConfig, composer, validator, &composeResponseLoggerAdapter{log})

		workers = camunda.NewWorkerManager(zc.GetClient(), cfg, obs, log)
		workers.Start(rq.TaskType, routeHandler.Handle)
		workers.Start(rd.TaskType, retrieveHandler.Handle)
		workers.Start(llm.TaskType, llmHandler.Handle)
		workers.Start(bc.TaskType, chartHandler.Handle)
		workers.Start(dr.TaskType, directHandler.Handle)
		workers.Start(cr.TaskType, orchestrateHandler.Handle)
		zapLog.Info("Workers registered", zap.Strings("taskTypes", workers.TaskTypes()))

		readiness["zeebe"] = zc.HealthCheck
	}

	// --- HTTP API ---
	server := api.NewServer(
		api.Config{
			Address:         cfg.Server.Address,
			DefaultTenant:   cfg.Orchestrator.DefaultTenant,
			ReadTimeout:     config.GetDuration(cfg.Server.ReadTimeout),
			WriteTimeout:    config.GetDuration(cfg.Server.WriteTimeout),
			ShutdownTimeout: config.GetDuration(cfg.Server.ShutdownTimeout),
		},
		composer, chartHandler, backend, validator, reg, log,
	)
	for name, check := range readiness {
		server.AddReadinessCheck(name, check)
	}

	if err := server.Start(ctx); err != nil {
		zapLog.Error("HTTP server failed", zap.Error(err))
	}

	zapLog.Info("Shutdown signal received, stopping workers...")
	if workers != nil {
		workers.Stop()
	}
	zapLog.Info("Query orchestrator stopped gracefully")
}

// connectionFailed exits after a backing service stayed unreachable through
// every retry.
func connectionFailed(log *zap.Logger, stdErr *commonerrors.StandardError) {
	log.Fatal(stdErr.Message,
		zap.String("errorCode", string(stdErr.Code)),
		zap.String("details", stdErr.Details),
		zap.Any("metadata", stdErr.Metadata),
	)
}

func workerTimeout(cfg *config.Config, taskType string) time.Duration {
	return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
}

// Logger adapters for workers that declare their own Logger interfaces
type routeQueryLoggerAdapter struct {
	logger.Logger
}

func (a *routeQueryLoggerAdapter) With(fields map[string]interface{}) rq.Logger {
	return &routeQueryLoggerAdapter{a.Logger.With(fields)}
}

type retrieveDocumentsLoggerAdapter struct {
	logger.Logger
}

func (a *retrieveDocumentsLoggerAdapter) With(fields map[string]interface{}) rd.Logger {
	return &retrieveDocumentsLoggerAdapter{a.Logger.With(fields)}
}

type llmSynthesisLoggerAdapter struct {
	logger.Logger
}

func (a *llmSynthesisLoggerAdapter) With(fields map[string]interface{}) llm.Logger {
	return &llmSynthesisLoggerAdapter{a.Logger.With(fields)}
}

type buildChartLoggerAdapter struct {
	logger.Logger
}

func (a *buildChartLoggerAdapter) With(fields map[string]interface{}) bc.Logger {
	return &buildChartLoggerAdapter{a.Logger.With(fields)}
}

type directReplyLoggerAdapter struct {
	logger.Logger
}

func (a *directReplyLoggerAdapter) With(fields map[string]interface{}) dr.Logger {
	return &directReplyLoggerAdapter{a.Logger.With(fields)}
}

type composeResponseLoggerAdapter struct {
	logger.Logger
}

func (a *composeResponseLoggerAdapter) With(fields map[string]interface{}) cr.Logger {
	return &composeResponseLoggerAdapter{a.Logger.With(fields)}
}
