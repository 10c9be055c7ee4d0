package main

import (
	"context"
	"embed"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casedesk/internal/config"
	"casedesk/internal/container"
	"casedesk/internal/logging"
	"casedesk/ui"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed ui/static/*
var embeddedFiles embed.FS

// agentRetryInterval spaces out attempts to reach the tool server and model
const agentRetryInterval = 5 * time.Second

func main() {
	os.Exit(realMain())
}

// realMain returns the process exit code once every deferred cleanup has run
func realMain() int {
	// Load environment variables from .env file
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
		logger.Error("chat server stopped", zap.Error(err))
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

	if _, err := appContainer.OpenCheckpoints(ctx); err != nil {
		return err
	}

	server := ui.NewServer(embeddedFiles, cfg.Server, cfg.Agent.ThreadID, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, ":"+cfg.Server.Port, cfg.Server.ShutdownTimeout)
	})
	g.Go(func() error {
		// connections made before the agent is ready are told to retry
		for {
			agent, err := appContainer.BuildAgent(gctx)
			if err == nil {
				server.SetAgent(agent)
				logger.Info("agent ready")
				return nil
			}
			logger.Warn("agent not ready, retrying", zap.Error(err), zap.Duration("in", agentRetryInterval))

			select {
			case <-gctx.Done():
				return nil
			case <-time.After(agentRetryInterval):
			}
		}
	})
	return g.Wait()
}
