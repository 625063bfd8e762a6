package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chartrace/internal/marketdata"
	"chartrace/internal/platform/config"
	"chartrace/internal/platform/logger"
	"chartrace/internal/platform/metrics"
	"chartrace/internal/proxy"

	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	providerName := config.GetEnv("MARKETDATA_PROVIDER", "yahoo")
	cacheTTL := config.GetEnvDuration("CHART_CACHE_TTL", proxy.DefaultCacheTTL)
	redisAddr := config.GetEnv("REDIS_ADDR", "")

	log := logger.New(logLevel, logFormat, os.Stdout)
	met := metrics.New()

	provider, err := marketdata.NewProvider(marketdata.ProviderConfig{
		Name:          providerName,
		FinnhubAPIKey: config.GetEnv("FINNHUB_API_KEY", ""),
		PolygonAPIKey: config.GetEnv("POLYGON_API_KEY", ""),
		YahooBaseURL:  config.GetEnv("YAHOO_BASE_URL", ""),
		Timeout:       config.GetEnvDuration("PROVIDER_TIMEOUT", 10*time.Second),
	})
	if err != nil {
		log.Error("provider setup failed", "provider", providerName, "error", err)
		os.Exit(1)
	}
	provider = marketdata.Instrument(provider, met)

	var cache proxy.Cache = proxy.NewInMemoryCache(cacheTTL)
	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: config.GetEnv("REDIS_PASSWORD", ""),
			DB:       config.GetEnvInt("REDIS_DB", 0),
		})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Error("redis unreachable", "addr", redisAddr, "error", err)
			os.Exit(1)
		}
		cache = proxy.NewRedisCache(rdb, cacheTTL)
	}

	svc := proxy.NewService(provider, cache, log)
	h := proxy.NewHandler(svc, log, met)
	r := proxy.NewRouter(h, log, met)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"provider", provider.Name(),
		"cache", cacheKind(redisAddr),
		"cache_ttl", cacheTTL.String(),
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func cacheKind(redisAddr string) string {
	if redisAddr != "" {
		return "redis"
	}
	return "memory"
}
