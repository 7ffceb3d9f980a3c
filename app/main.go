package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sievelab/sieved/config"
	"github.com/sievelab/sieved/domain"
	"github.com/sievelab/sieved/internal/engine"
	"github.com/sievelab/sieved/internal/metrics"
	"github.com/sievelab/sieved/internal/repository"
	redisRepo "github.com/sievelab/sieved/internal/repository/redis"
	"github.com/sievelab/sieved/internal/rest"
	"github.com/sievelab/sieved/internal/rest/middleware"
	"github.com/sievelab/sieved/internal/rest/request"
	"github.com/sievelab/sieved/internal/usecase/sieve"
	"github.com/sievelab/sieved/internal/workers"
)

func init() {
	// .env is optional; the YAML file is the primary configuration source.
	_ = godotenv.Load()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("invalid configuration: ", err)
	}

	// prepare snapshot store
	var snapshots domain.PrefixSnapshotCache
	var client *redis.Client
	if cfg.Redis.Addr != "" {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := client.Close(); err != nil {
				logrus.Error("got error when closing the redis connection: ", err)
			}
		}()

		if _, err = client.Ping(context.Background()).Result(); err != nil {
			logrus.Fatal("failed to open connection to snapshot store: ", err)
		}
		snapshots = redisRepo.NewPrefixCache(client, 2*cfg.CacheTTL())
	}

	// prepare engines
	engines, err := engine.NewRegistry(cfg.Filters)
	if err != nil {
		logrus.Fatal("invalid filter configuration: ", err)
	}

	// Prepare Repository
	sieveRepo := repository.NewSieveRepository(engines, snapshots, repository.Options{
		TTL:        cfg.CacheTTL(),
		MaxEntries: cfg.CacheMaxEntries,
		MaxBytes:   cfg.CacheMaxBytes,
	})

	// Build service layer
	sieveSvc := sieve.NewService(sieveRepo, engines, cfg.MaxBound, cfg.ComputeTimeout())
	sieveHandler := rest.NewSieveHandler(sieveSvc)
	healthHandler := rest.NewHealthHandler()

	// Start worker
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	janitor := workers.NewCacheJanitor(sieveRepo, cfg.JanitorInterval())
	go janitor.Start(ctx)

	// prepare gin
	request.RegisterValidations()
	route := gin.New()
	route.Use(gin.Recovery())
	route.Use(middleware.AccessLog())
	route.Use(middleware.CORS())
	route.Use(metrics.HTTPMiddleware())
	route.Use(middleware.SetRequestContextWithTimeout(cfg.ComputeTimeout()))

	// Register routes
	route.GET("/sieve", sieveHandler.Query)
	route.GET("/domains", sieveHandler.Domains)
	route.GET("/stats", sieveHandler.Stats)
	route.GET("/healthz", healthHandler.Health)
	route.GET("/metrics", metrics.Handler())

	// Start Server
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: route,
	}
	go func() {
		logrus.Infof("server is running on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("listen: %s", err)
		}
	}()

	// shutdown
	<-ctx.Done()
	logrus.Info("shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Fatal("server forced to shutdown: ", err)
	}

	logrus.Info("server exiting")
}
