package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/events"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpc_logging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"

	"github.com/KirkDiggler/rpg-builder/internal/catalog"
	"github.com/KirkDiggler/rpg-builder/internal/config"
	builderrors "github.com/KirkDiggler/rpg-builder/internal/errors"
	v1 "github.com/KirkDiggler/rpg-builder/internal/handlers/builder/v1"
	builderorch "github.com/KirkDiggler/rpg-builder/internal/orchestrators/builder"
	"github.com/KirkDiggler/rpg-builder/internal/pkg/idgen"
	"github.com/KirkDiggler/rpg-builder/internal/telemetry"
)

// catalogRetryInterval spaces catalog load attempts after a failure
const catalogRetryInterval = 10 * time.Second

var (
	httpAddr string
	grpcAddr string
	envFile  string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the builder server",
	Long:  `Start the HTTP builder API and the gRPC builder service with health checks.`,
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides BUILDER_HTTP_ADDR)")
	serverCmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (overrides BUILDER_GRPC_ADDR)")
	serverCmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment")
}

func runServer(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if grpcAddr != "" {
		cfg.GRPCAddr = grpcAddr
	}

	slog.SetDefault(newLogger(cfg, os.Stdout))

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("trace shutdown failed", "error", err)
		}
	}()

	repo, closeRepo, err := newDraftRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRepo(); err != nil {
			slog.Warn("draft store close failed", "error", err)
		}
	}()

	source, err := newCatalogSource(cfg)
	if err != nil {
		return err
	}
	store, err := catalog.NewStore(&catalog.StoreConfig{Source: source})
	if err != nil {
		return err
	}

	bus := events.NewBus()
	bus.SubscribeFunc(builderorch.EventReadyForFinalize, 0, logReadyForFinalize)

	orchestrator, err := builderorch.New(&builderorch.Config{
		DraftRepo:   repo,
		Catalog:     store,
		IDGenerator: idgen.NewUUID("draft"),
		EventBus:    bus,
	})
	if err != nil {
		return err
	}

	handler, err := v1.NewHandler(&v1.HandlerConfig{BuilderService: orchestrator})
	if err != nil {
		return err
	}
	grpcHandler, err := v1.NewGRPCServer(&v1.HandlerConfig{BuilderService: orchestrator})
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           v1.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc_logging.UnaryServerInterceptor(grpc_logging.LoggerFunc(logFunc)),
			grpc_recovery.UnaryServerInterceptor(),
			builderrors.UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			grpc_logging.StreamServerInterceptor(grpc_logging.LoggerFunc(logFunc)),
			grpc_recovery.StreamServerInterceptor(),
		),
	)
	grpcHandler.Register(grpcSrv)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcSrv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	reflection.Register(grpcSrv)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return builderrors.Wrapf(err, "failed to listen on %s", cfg.GRPCAddr)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		loadCatalog(gctx, store, healthServer)
		return nil
	})

	g.Go(func() error {
		slog.Info("http server starting", "addr", cfg.HTTPAddr, "storage", cfg.Storage)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return builderrors.Wrap(err, "http server failed")
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("grpc server starting", "addr", cfg.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return builderrors.Wrap(err, "grpc server failed")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http shutdown incomplete", "error", err)
		}

		stopped := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(stopped)
		}()

		select {
		case <-shutdownCtx.Done():
			slog.Warn("graceful shutdown timeout exceeded, forcing stop")
			grpcSrv.Stop()
		case <-stopped:
			slog.Info("servers stopped gracefully")
		}
		return nil
	})

	return g.Wait()
}

// loadCatalog retries until the catalog loads or ctx ends, then marks the sidecar serving
func loadCatalog(ctx context.Context, store *catalog.Store, healthServer *health.Server) {
	for {
		err := <-store.Start(ctx)
		if err == nil {
			healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
			return
		}
		slog.Warn("catalog not loaded, retrying", "error", err, "retry_in", catalogRetryInterval)

		select {
		case <-ctx.Done():
			return
		case <-time.After(catalogRetryInterval):
		}
	}
}

func logReadyForFinalize(_ context.Context, e events.Event) error {
	slog.Info("draft ready for finalize", "draft_id", e.Source().GetID())
	return nil
}

func logFunc(ctx context.Context, level grpc_logging.Level, msg string, fields ...any) {
	slog.Log(ctx, slog.Level(level), msg, fields...)
}
