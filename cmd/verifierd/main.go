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

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/income-verifier/internal/app"
	"github.com/joseph-ayodele/income-verifier/internal/server"
)

func main() {
	logger := app.JSONLogger(slog.LevelInfo)
	slog.SetDefault(logger)

	cfg, err := app.LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// gRPC carries health and reflection only; the API is HTTP.
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	httpServer := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: server.New(a.Processor, a.Store, server.Config{
			MaxUploadMB:    cfg.Server.MaxUploadMB,
			RequestTimeout: cfg.Server.WriteTimeout,
		}, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("grpc listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve error", "error", err)
			stop()
		}
	}()
	go func() {
		logger.Info("http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()
	go watchStore(ctx, a, healthServer, logger)

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
}

// watchStore flips the gRPC health status with the store's reachability.
func watchStore(ctx context.Context, a *app.App, hs *health.Server, logger *slog.Logger) {
	check := func() {
		cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		status := grpc_health_v1.HealthCheckResponse_SERVING
		if _, err := a.Store.Count(cctx); err != nil {
			logger.Warn("health.store.down", "error", err)
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
	}
	check()
	t := time.NewTicker(30 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			check()
		}
	}
}
