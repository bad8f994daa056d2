package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/fanvue/moderation-api/api/swagger"
	"github.com/fanvue/moderation-api/internal/handler"
	"github.com/fanvue/moderation-api/internal/middleware"
	"github.com/fanvue/moderation-api/internal/repository"
	"github.com/fanvue/moderation-api/internal/service"
	"github.com/fanvue/moderation-api/pkg/cache"
	"github.com/fanvue/moderation-api/pkg/config"
	"github.com/fanvue/moderation-api/pkg/database"
	"github.com/fanvue/moderation-api/pkg/logger"
	corsmiddleware "github.com/fanvue/moderation-api/pkg/middleware/cors"
	"github.com/fanvue/moderation-api/pkg/middleware/correlation"
)

// @title App Moderation API
// @version 0.1.0
// @description Internal dashboard API for reviewing app-store submissions
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// The API keeps serving without Redis; listings just skip the cache.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, listing cache disabled", zap.Error(err))
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	subRepo := repository.NewSubmissionRepository(db)
	subSvc := service.NewSubmissionService(subRepo, cacheRepo, metricsSvc, validator.New(), logr,
		cfg.Moderation.PageSize, cfg.Moderation.ListCacheTTL)
	subHandler := handler.NewSubmissionHandler(subSvc, cfg.Moderation.CacheMaxAge, cfg.Moderation.StaleWhileRevalidate)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(correlation.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	api := r.Group(cfg.APIPrefix)
	api.GET("/apps", subHandler.List)
	api.GET("/apps/:id", subHandler.Get)
	api.PATCH("/apps/:id", subHandler.Action)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
