package db

import (
	"backend/internal/app/board"
	"backend/internal/app/comment"
	"backend/internal/app/orphan"
	"backend/internal/config"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	dsn := cfg.PostgresDSN()
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", cfg.DBHost),
		zap.String("database", cfg.DBName),
	)

	return db, nil
}

func Migrate(db *gorm.DB, logger *zap.Logger) error {
	err := db.AutoMigrate(
		&board.Board{},
		&board.BoardFile{},
		&board.BoardLike{},
		&board.BoardReport{},
		&comment.BoardComment{},
		&orphan.BlobOrphan{},
	)
	if err != nil {
		return err
	}

	logger.Info("Database migration completed")
	return nil
}
