package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kaiyuanwei/chatgate/internal/completion"
	"github.com/kaiyuanwei/chatgate/internal/config"
	"github.com/kaiyuanwei/chatgate/internal/history"
	"github.com/kaiyuanwei/chatgate/internal/observability"
	"github.com/kaiyuanwei/chatgate/internal/ratelimit"
	"github.com/kaiyuanwei/chatgate/internal/repository"
	"github.com/kaiyuanwei/chatgate/internal/service"
	handler "github.com/kaiyuanwei/chatgate/internal/transport/http"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := observability.Logger()

	log.Info("starting chatgate",
		"http_port", cfg.HTTPPort,
		"backend_configured", cfg.BackendConfigured(),
		"use_redis", cfg.UseRedis,
		"archive_file", cfg.ArchiveFile,
	)

	// Fast tier: shared Redis cache when configured, in-process fallback otherwise.
	var rdb redis.UniversalClient
	if cfg.UseRedis {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("invalid REDIS_URL, continuing without shared cache", "error", err.Error())
		} else {
			client := redis.NewClient(opt)
			defer client.Close()
			rdb = client
		}
	}
	fast := history.NewFastTier(rdb)
	archive := history.NewArchive(cfg.ArchiveFile)
	assembler := history.NewAssembler(fast, archive, history.DefaultFastCapacity)

	// Exchange ledger: best effort, the gateway runs without it.
	var ledger *repository.Ledger
	if l, err := repository.NewLedger(cfg.LedgerDSN); err != nil {
		log.Error("ledger unavailable, continuing without it", "error", err.Error())
	} else {
		ledger = l
		defer ledger.Close()
	}

	completer := completion.NewClient(cfg.LLMEndpoint, cfg.LLMDeployment, cfg.LLMAPIKey, cfg.LLMTimeout)
	limiter := ratelimit.New(cfg.RateLimitPerMin)

	svc := service.New(assembler, completer, ledger)
	server := handler.NewServer(svc, limiter, cfg)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	log.Info("chatgate started", "port", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down chatgate")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server gracefully", "error", err.Error())
	}

	log.Info("chatgate stopped")
}
