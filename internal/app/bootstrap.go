package app

import (
	"context"
	"time"

	"backend/internal/app/board"
	"backend/internal/app/health"
	"backend/internal/app/orphan"
	"backend/internal/config"
	"backend/internal/db"
	"backend/internal/db/seeder"
	"backend/internal/providers/minio"
	"backend/internal/providers/redis"
	"backend/internal/router"
	"backend/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Application struct {
	Router *router.Router
	DB     *gorm.DB
}

func Bootstrap(cfg *config.Config, logger *zap.Logger) (*Application, error) {
	dbConn, err := db.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(dbConn, logger); err != nil {
		return nil, err
	}

	seed := seeder.NewSeeder(dbConn, logger)
	if err := seed.Seed(); err != nil {
		logger.Warn("Failed to run seeders", zap.Error(err))
	}

	redisProvider := redis.NewRedisProvider(cfg.RedisURL, logger, cfg.RedisTTL)
	minioProvider, err := minio.NewMinioProvider(cfg, logger)
	if err != nil {
		logger.Warn("Failed to initialize MinIO provider, file uploads disabled", zap.Error(err))
		minioProvider = nil
	}

	var blobStore board.BlobStore
	if minioProvider != nil {
		blobStore = minioProvider
	}

	boardRepo := board.NewRepository(dbConn)
	orphanRepo := orphan.NewRepository(dbConn)
	boardService := board.NewService(boardRepo, blobStore, redisProvider, orphanRepo, logger, cfg)
	boardHandler := board.NewHandler(boardService, cfg.MaxFileSize, cfg.MaxFilesPerPost)

	if minioProvider != nil {
		reaper := orphan.NewReaper(orphanRepo, minioProvider, logger)
		go func() {
			ticker := time.NewTicker(15 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				reaper.Sweep(ctx)
				cancel()
			}
		}()
	}

	checker := &utils.HealthChecker{
		DB:    dbConn,
		Redis: redisProvider.Client,
	}
	if minioProvider != nil {
		checker.Blob = minioProvider
	}
	healthHandler := health.NewHandler(checker)

	r := router.NewRouter(logger)
	r.RegisterHealthRoutes(healthHandler)
	r.RegisterBoardRoutes(boardHandler)

	return &Application{
		Router: r,
		DB:     dbConn,
	}, nil
}
