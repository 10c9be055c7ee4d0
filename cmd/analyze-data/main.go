package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casedesk/adapters/mcptools"
	"casedesk/internal/config"
	"casedesk/internal/container"
	"casedesk/internal/logging"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	os.Exit(realMain())
}

// realMain returns the process exit code once every deferred cleanup has run
func realMain() int {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	logger, err := logging.New(appConfig.Log)
	if err != nil {
		log.Printf("Failed to create logger: %v", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, appConfig, logger)
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) int {
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("tool server stopped", zap.Error(err))
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	appContainer, err := container.New(cfg, logger)
	if err != nil {
		return err
	}
	defer appContainer.Shutdown(context.Background())

	tools := mcptools.NewServer(cfg.Tools.Name, cfg.Tools.Version, appContainer.Service, logger)

	mux := http.NewServeMux()
	mux.Handle(mcptools.DefaultEndpointPath, tools.Handler())
	srv := &http.Server{
		Addr:              ":" + cfg.Tools.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("tool server listening",
			zap.String("addr", srv.Addr),
			zap.String("endpoint", mcptools.DefaultEndpointPath))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
