package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ollama-chat/internal/cache"
	"ollama-chat/internal/config"
	"ollama-chat/internal/history"
	"ollama-chat/internal/logging"
	"ollama-chat/internal/ollama"
	"ollama-chat/internal/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, config.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.LoadServer(args)
	if err != nil {
		return err
	}

	logger, closer, err := logging.Open(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer closer.Close()

	repo, err := history.Open(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open history storage: %w", err)
	}
	defer repo.Close()

	var historyCache cache.HistoryCache
	if cfg.Redis.Address != "" {
		rc, err := cache.NewRedisHistoryCache(cfg.Redis, cfg.Cache.Prefix)
		if err != nil {
			return fmt.Errorf("failed to create redis cache: %w", err)
		}
		defer rc.Close()
		historyCache = rc
		logger.Info().Str("address", cfg.Redis.Address).Msg("recent-history cache enabled")
	}

	llm := ollama.NewClient(cfg.Ollama.URL, cfg.Ollama.Timeout)
	checkOllama(llm, cfg.Ollama.URL, logger)

	chatService := server.NewChatService(llm, repo, historyCache, cfg.Ollama, cfg.Cache.TTL)

	if logging.ParseLevel(cfg.Log.Level) > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(server.RequestLogger(logger))
	server.NewHTTPHandler(chatService).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", srv.Addr).
			Str(logging.FieldModel, cfg.Ollama.Model).
			Str("storage", cfg.Storage.Driver).
			Msg("chat server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("server exited")
	return nil
}

// checkOllama warns when Ollama is unreachable; the server still starts so
// it can report the failure per request.
func checkOllama(llm *ollama.Client, url string, logger zerolog.Logger) {
	ctx := context.Background()
	if err := llm.HealthCheck(ctx); err != nil {
		logger.Warn().Err(err).Msg("Ollama health check failed")
		return
	}

	models, err := llm.ListModels(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to list Ollama models")
		return
	}
	logger.Info().Str("url", url).Strs("models", models).Msg("Ollama reachable")
}
