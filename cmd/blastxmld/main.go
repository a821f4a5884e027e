package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/blastxml/internal/config"
	dbRedis "github.com/kailas-cloud/blastxml/internal/db/redis"
	logpkg "github.com/kailas-cloud/blastxml/internal/logger"
	"github.com/kailas-cloud/blastxml/internal/metrics"
	reportrepo "github.com/kailas-cloud/blastxml/internal/repository/report"
	"github.com/kailas-cloud/blastxml/internal/toolbridge"
	chiTransport "github.com/kailas-cloud/blastxml/internal/transport/chi"
	healthuc "github.com/kailas-cloud/blastxml/internal/usecase/health"
	reportuc "github.com/kailas-cloud/blastxml/internal/usecase/report"
	searchuc "github.com/kailas-cloud/blastxml/internal/usecase/search"
	"github.com/kailas-cloud/blastxml/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting blastxmld",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("blastxmld stopped", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("Connected to database")

	metrics.RegisterBlastMetrics()

	ttl := time.Duration(cfg.Storage.HitTTLSec) * time.Second
	reportSvc := reportuc.New(reportrepo.New(store, cfg.Storage.KeyPrefix, ttl), logger)

	execRunner := toolbridge.NewExecRunner(cfg.Blast.BinDir, logger)
	healthSvc := healthuc.New(store, execRunner, cfg.Blast.Programs...)
	searchSvc := newSearchService(cfg.Blast, execRunner, reportSvc, logger)

	server := chiTransport.NewServer(reportSvc, searchSvc, healthSvc, logger).
		WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      newRouter(server, cfg.Auth.APIKeys, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}
	return serve(ctx, srv, time.Duration(cfg.HTTP.ShutdownSec)*time.Second, logger)
}

// openStore connects to redis or valkey; both speak RESP through the same store.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Addrs,
		Username:   cfg.Username,
		Password:   cfg.Password,
		Standalone: cfg.Standalone,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// newSearchService returns nil, the untyped interface, when no program
// resolves; the transport then answers POST /searches with 503.
func newSearchService(
	cfg config.BlastConfig,
	runner *toolbridge.ExecRunner,
	ingester searchuc.Ingester,
	logger *zap.Logger,
) chiTransport.SearchService {
	if !blastAvailable(runner, cfg.Programs) {
		logger.Warn("BLAST binaries not found, search endpoint disabled",
			zap.Strings("programs", cfg.Programs))
		return nil
	}

	bridge := toolbridge.New(toolbridge.NewInstrumentedRunner(runner, logger), logger).
		WithTempDir(cfg.TmpDir).
		WithDefaults(cfg.Defaults).
		WithBatchSize(cfg.BatchSize).
		WithWorkers(cfg.Workers).
		WithMaxInline(cfg.MaxInlineAccessions)

	logger.Info("BLAST search enabled",
		zap.String("bin_dir", cfg.BinDir),
		zap.String("default_db", cfg.DefaultDB),
		zap.Int("workers", cfg.Workers),
	)
	return searchuc.New(bridge, ingester, logger).
		WithTempDir(cfg.TmpDir).
		WithDefaultDB(cfg.DefaultDB)
}

func newRouter(server *chiTransport.Server, apiKeys []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)
	return r
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, drain time.Duration, logger *zap.Logger) error {
	errc := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// blastAvailable reports whether at least one configured program resolves.
func blastAvailable(tools healthuc.ToolLocator, programs []string) bool {
	for _, p := range programs {
		if _, err := tools.LookPath(p); err == nil {
			return true
		}
	}
	return false
}
