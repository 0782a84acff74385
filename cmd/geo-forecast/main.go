package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geo-forecast/internal/config"
	httpapi "geo-forecast/internal/http"
	"geo-forecast/internal/logger"
	"geo-forecast/internal/request"
	"geo-forecast/internal/service"
	"geo-forecast/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "geo-forecast")
	if err != nil {
		log, _ = zap.NewProduction()
	}
	defer log.Sync()

	// 会话 token 存储：单实例用内存，多实例共享 redis
	var (
		kv          store.KV = store.NewMemoryKV()
		redisClient *redis.Client
	)
	if cfg.Session.Store == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis not reachable, sessions will fail until it recovers", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		pingCancel()
		kv = store.NewRedisKV(redisClient)
	}

	baseURL := cfg.API.BaseURL()
	httpClient := request.NewHTTPClient(request.TransportConfig{
		BaseURL:    baseURL,
		Timeout:    cfg.API.Timeout,
		RetryCount: cfg.API.RetryCount,
	})
	log.Info("upstream configured", zap.String("base_url", baseURL), zap.Duration("timeout", cfg.API.Timeout))

	sessions := httpapi.NewSessionManager(kv, httpClient, baseURL, cfg.Session.TTL, log)
	dashboard := httpapi.NewDashboardHandler(sessions, cfg.Session.LoginPath, cfg.Session.UserID, cfg.Session.TTL, log)

	router := httpapi.NewRouter(log)
	router.RegisterDashboardRoutes(dashboard)
	router.RegisterHealthRoutes()

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("server stopped unexpectedly", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	sessions.Close()
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
