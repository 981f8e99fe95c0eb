package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/File-Sharing-BondBridg/Asset-Service/cmd/middleware"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/api"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/api/handlers/asset"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/api/handlers/project"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/configuration"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/logging"
	assetnats "github.com/File-Sharing-BondBridg/Asset-Service/internal/nats"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/services"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/services/command"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/services/infrastructure"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/services/query"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/storage"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/transfer"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

const serviceName = "asset-service"

func main() {
	cfg := configuration.Load()
	log := logging.Must(cfg.Server.Mode)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *configuration.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		tracer.Start(tracer.WithService(cfg.Tracing.ServiceName))
		defer tracer.Stop()
	}

	shards, err := infrastructure.InitializePostgresShards(ctx, cfg.Database.Connections(), log)
	if err != nil {
		return err
	}
	defer shards.Close()

	store, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}

	bus, err := services.ConnectEventBus(cfg.NATSURL, serviceName, log)
	if err != nil {
		log.Warn("NATS unavailable, events disabled", zap.Error(err))
	}
	defer bus.Close()

	commands := command.New(shards)
	queries := query.New(shards)
	cleanup := services.NewCleanup(commands, store, log)

	registry := pipeline.NewRegistry(pipelineDependencies(cfg, store, commands, bus, log), pipeline.Options{
		Concurrency:     cfg.Upload.Concurrency,
		TransferTimeout: cfg.Upload.TransferTimeout,
	}, log)

	auth, err := authenticator(ctx, cfg, log)
	if err != nil {
		return err
	}

	handlers := api.Handlers{
		Assets:   asset.NewHandler(registry, queries, cfg.Upload.MaxFileSize, log),
		Projects: project.NewHandler(commands, queries, cleanup, publisherFor(bus), log),
		Auth:     auth.RequireAuth(),
		Checks:   healthChecks(shards, store, bus),
		Stats:    queries.Stats,
	}

	if bus != nil {
		subscriber := assetnats.NewClient(bus, serviceName, log)
		if err := subscriber.SubscribeAll(assetnats.Routes(cleanup, log)); err != nil {
			log.Error("NATS subscriptions failed", zap.Error(err))
		}
		defer subscriber.Unsubscribe()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newRouter(cfg, handlers),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(cfg *configuration.Config, h api.Handlers) *gin.Engine {
	if cfg.Server.Mode == "release" || cfg.Server.Mode == logging.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing.Enabled {
		r.Use(gintrace.Middleware(cfg.Tracing.ServiceName))
	}
	api.RegisterRoutes(r, h)
	return r
}

func pipelineDependencies(cfg *configuration.Config, store storage.Store, rec pipeline.Recorder, bus *services.EventBus, log *zap.Logger) pipeline.Dependencies {
	deps := pipeline.Dependencies{
		Store:     store,
		Transport: transfer.NewHTTPUploader(&http.Client{}, log),
		Recorder:  rec,
		Publisher: publisherFor(bus),
	}
	if cfg.CLAMAVURL != "" {
		scanner := services.NewClamScanner(cfg.CLAMAVURL, log)
		if err := scanner.Ping(); err != nil {
			log.Warn("ClamAV not reachable yet", zap.String("url", cfg.CLAMAVURL), zap.Error(err))
		}
		deps.Scanner = scanner
	}
	return deps
}

// publisherFor keeps a missing bus out of the interface so callers see nil.
func publisherFor(bus *services.EventBus) pipeline.Publisher {
	if bus == nil {
		return nil
	}
	return bus
}

func authenticator(ctx context.Context, cfg *configuration.Config, log *zap.Logger) (*middleware.Authenticator, error) {
	if cfg.KeycloakUrl == "" {
		return middleware.NewAuthenticator(nil, "", log), nil
	}
	return middleware.NewOIDCAuthenticator(ctx, cfg.KeycloakUrl, cfg.KeycloakClient, log)
}

func healthChecks(shards *infrastructure.Shards, store storage.Store, bus *services.EventBus) map[string]api.Check {
	return map[string]api.Check{
		"database": shards.Ping,
		"storage":  store.CheckConnection,
		"nats": func(context.Context) error {
			if !bus.Connected() {
				return services.ErrNotConnected
			}
			return nil
		},
	}
}
