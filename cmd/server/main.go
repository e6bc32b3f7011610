package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"larpcore/internal/archive"
	"larpcore/internal/audit"
	"larpcore/internal/catalog"
	"larpcore/internal/condition"
	"larpcore/internal/config"
	"larpcore/internal/downtime"
	"larpcore/internal/metrics"
	"larpcore/internal/pack"
	"larpcore/internal/research"
	"larpcore/pkg/database"
	"larpcore/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ====== 1. STORAGE ======
	db, err := database.Connect(cfg.DatabaseURL, cfg.GinMode == gin.DebugMode)
	if err != nil {
		config.Exitf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		config.Exitf("migrate: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			config.Exitf("redis url: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("⚠️ [SERVER] Redis unavailable, running without cache and rate limits: %v", err)
			redisClient = nil
		} else {
			log.Println("✅ [SERVER] Redis connected")
		}
	}

	var archiver downtime.Archiver
	if cfg.ArchiveEnabled() {
		store, err := archive.New(ctx, archive.Options{
			Bucket:          cfg.ArchiveBucket,
			Endpoint:        cfg.ArchiveEndpoint,
			Region:          cfg.ArchiveRegion,
			AccessKeyID:     cfg.ArchiveAccessKeyID,
			SecretAccessKey: cfg.ArchiveSecretAccessKey,
		})
		if err != nil {
			config.Exitf("archive: %v", err)
		}
		archiver = store
		log.Printf("✅ [SERVER] Closed periods archive to bucket %s", cfg.ArchiveBucket)
	}

	// ====== 2. METRICS ======
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewRecorder(registry)

	// ====== 3. SERVICES ======
	catalogService := catalog.NewService(db, redisClient, cfg.CatalogCacheTTL)
	conditionService := condition.NewService(db, rec)
	researchService := research.NewService(db, rec)
	downtimeService := downtime.NewService(db, rec, archiver)
	packService := pack.NewService(db, catalogService, pack.NewAllocator(), rec)

	// ====== 4. ROUTER ======
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORS(cfg.CORSAllowAll))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	if cfg.JWTSecret == "" {
		log.Println("⚠️ [SERVER] JWT_SECRET not set, every request is anonymous in the audit log")
	}
	api := router.Group("/api/v1")
	api.Use(middleware.Actor([]byte(cfg.JWTSecret)))
	api.Use(middleware.NewWriteRateLimiter(redisClient, cfg.WriteRateLimitPerMin).Middleware())

	catalog.NewHandler(catalogService).RegisterRoutes(api)
	condition.NewHandler(conditionService).RegisterRoutes(api)
	research.NewHandler(researchService).RegisterRoutes(api)
	downtime.NewHandler(downtimeService).RegisterRoutes(api)
	pack.NewHandler(packService).RegisterRoutes(api)
	audit.NewHandler(db).RegisterRoutes(api)

	// ====== 5. SERVE ======
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 [SERVER] Listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			config.Exitf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 [SERVER] Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ [SERVER] Shutdown error: %v", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
