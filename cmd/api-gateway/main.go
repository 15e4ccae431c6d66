package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/jobfair-forms-api/api/swagger"
	"github.com/noah-isme/jobfair-forms-api/internal/handler"
	"github.com/noah-isme/jobfair-forms-api/internal/middleware"
	"github.com/noah-isme/jobfair-forms-api/internal/repository"
	"github.com/noah-isme/jobfair-forms-api/internal/service"
	"github.com/noah-isme/jobfair-forms-api/pkg/cache"
	"github.com/noah-isme/jobfair-forms-api/pkg/config"
	"github.com/noah-isme/jobfair-forms-api/pkg/database"
	"github.com/noah-isme/jobfair-forms-api/pkg/export"
	"github.com/noah-isme/jobfair-forms-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/jobfair-forms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/jobfair-forms-api/pkg/middleware/requestid"
	"github.com/noah-isme/jobfair-forms-api/pkg/storage"
)

// @title Job Fair Forms API
// @version 1.0.0
// @description Dynamic registration forms for job fair organizers and exhibitors
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()

	db, err := database.NewPostgres(startCtx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	if cfg.Migrations.AutoMigrate {
		if err := database.Migrate(db, cfg.Migrations, logr); err != nil {
			logr.Sugar().Fatalw("migrations failed", "error", err)
		}
	}

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}

	var cacheRepo service.CacheRepository
	if cfg.Forms.CacheEnabled {
		client, err := cache.NewRedis(startCtx, cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("redis connection failed", "error", err)
		}
		redisRepo := repository.NewCacheRepository(client, logr)
		defer redisRepo.Close() //nolint:errcheck
		cacheRepo = redisRepo
		checks["redis"] = redisRepo.Ping
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Forms.CacheTTL, logr, cfg.Forms.CacheEnabled)
	if err := cacheSvc.FlushPublicForms(startCtx); err != nil {
		logr.Sugar().Warnw("stale public forms left in cache", "error", err)
	}

	uploader, local, err := newUploader(cfg.Upload)
	if err != nil {
		logr.Sugar().Fatalw("upload driver init failed", "driver", cfg.Upload.Driver, "error", err)
	}

	formRepo := repository.NewFormConfigRepository(db)
	responseRepo := repository.NewFormResponseRepository(db)
	validate := validator.New()

	forms := service.NewFormService(formRepo, cacheSvc, validate, logr, service.FormServiceConfig{
		PublicBaseURL:     cfg.Forms.PublicBaseURL,
		DefaultSubmitText: cfg.Forms.DefaultSubmitText,
	})
	sharing := service.NewFormSharingService(formRepo, cacheSvc, cfg.Forms.PublicBaseURL, logr)
	renderer := service.NewFormRenderer(service.NewFormValidator(validate), uploader, responseRepo, metrics, logr)
	responses := service.NewFormResponseService(formRepo, responseRepo, logr, export.NewCSVExporter(export.WithBOM()), export.NewPDFExporter())
	tokens := service.NewTokenService(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiration,
	})

	r := gin.New()
	r.MaxMultipartMemory = cfg.Forms.MaxUploadBytes
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))

	if local != nil {
		handler.RegisterUploads(r, local.Dir())
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Forms:     handler.NewFormHandler(forms, renderer),
		Sharing:   handler.NewSharingHandler(sharing),
		Responses: handler.NewResponseHandler(responses),
		Public:    handler.NewPublicFormHandler(sharing, renderer, cfg.Forms.MaxUploadBytes, logr),
		Metrics:   handler.NewMetricsHandler(metrics, checks),
	}, tokens)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("upload_driver", cfg.Upload.Driver))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func newUploader(cfg config.UploadConfig) (storage.Uploader, *storage.LocalStorage, error) {
	switch cfg.Driver {
	case config.UploadDriverCloudinary:
		cloud, err := storage.NewCloudinaryStorage(cfg.Cloudinary)
		if err != nil {
			return nil, nil, err
		}
		return cloud, nil, nil
	case config.UploadDriverLocal, "":
		local, err := storage.NewLocalStorage(cfg.LocalDir, cfg.PublicURL)
		if err != nil {
			return nil, nil, err
		}
		return local, local, nil
	default:
		return nil, nil, fmt.Errorf("unknown upload driver %q", cfg.Driver)
	}
}
