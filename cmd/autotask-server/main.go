package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"autotask/internal/common/db"
	commonmw "autotask/internal/common/http/middleware"
	"autotask/internal/task/controller"
	"autotask/internal/task/llmclient"
	"autotask/internal/task/sandbox"
	"autotask/internal/task/sandbox/runner"
	"autotask/internal/task/service"
	"autotask/pkg/httpclient"
	"autotask/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(appCfg); err != nil {
		logger.Error(context.Background(), "autotask server stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(appCfg *AppConfig) error {
	guard, err := sandbox.NewGuard(appCfg.Sandbox.Root)
	if err != nil {
		return fmt.Errorf("init sandbox failed: %w", err)
	}

	llm, err := llmclient.New(appCfg.LLM, nil)
	if err != nil {
		return fmt.Errorf("init llm client failed: %w", err)
	}
	if appCfg.LLM.APIKey == "" {
		logger.Warn(context.Background(), "no llm api key configured", zap.String("env", apiKeyEnv))
	}

	execRunner := runner.NewExecRunner(runner.Config{
		StderrMaxBytes: appCfg.Runner.StderrMaxBytes,
		Timeout:        appCfg.Runner.Timeout,
	})

	taskCatalog, err := service.BuildCatalog(appCfg.CatalogConfig, service.Deps{
		Guard:     guard,
		Runner:    execRunner,
		Completer: llm,
		Embedder:  llm,
		OpenDB:    db.OpenReadOnly,
		Fetcher:   httpclient.New("", appCfg.FetchTimeout),
	})
	if err != nil {
		return fmt.Errorf("build task catalog failed: %w", err)
	}

	httpServer := buildHTTPServer(appCfg.Server, controller.NewTaskController(
		service.NewDispatchService(taskCatalog),
		service.NewFileService(guard),
	))
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("init http listener failed: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "autotask http server started",
			zap.String("addr", appCfg.Server.Addr),
			zap.String("sandbox_root", guard.Root()),
			zap.Int("tasks", taskCatalog.Len()),
		)
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server stopped: %w", err)
		}
		return nil
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), appCfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

func buildHTTPServer(cfg ServerConfig, taskController *controller.TaskController) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.RequestLogger())
	taskController.RegisterRoutes(router)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
