package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"

	"github.com/oklog/run"
	"go.uber.org/zap"

	"github.com/upb/serverless-todos/app"
	"github.com/upb/serverless-todos/config"
	"github.com/upb/serverless-todos/internal/observability"
	"github.com/upb/serverless-todos/routes"
)

// Local HTTP server running the authorizer and list-todos handler in one process
func main() {
	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	cfg, err := config.New(ctx)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer deps.Close(ctx)

	listener, err := net.Listen("tcp", cfg.Server.Address())
	if err != nil {
		logger.Fatal("failed to listen", zap.String("address", cfg.Server.Address()), zap.Error(err))
	}

	if err := serve(ctx, listener, newServer(deps), cfg.Server, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
	}
}

func initLogger() (*zap.Logger, error) {
	return observability.NewLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

func newServer(deps *app.Dependencies) *http.Server {
	return &http.Server{
		Handler:      routes.SetupRoutes(deps),
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
	}
}

// serve runs the server until ctx is canceled, a termination signal arrives
// or the listener fails. A clean shutdown returns nil.
func serve(ctx context.Context, listener net.Listener, srv *http.Server, cfg config.ServerConfig, logger *zap.Logger) error {
	var g run.Group

	g.Add(func() error {
		logger.Info("starting api server",
			zap.String("address", listener.Addr().String()),
			zap.Bool("tls", cfg.TLS.Enabled))

		var err error
		if cfg.TLS.Enabled {
			err = srv.ServeTLS(listener, cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			err = srv.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server exited", zap.Error(err))
			return err
		}
		return nil
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
		logger.Info("api server stopped")
	})

	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	err := g.Run()

	var signalErr run.SignalError
	if errors.As(err, &signalErr) {
		logger.Info("received signal", zap.String("signal", signalErr.Signal.String()))
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
