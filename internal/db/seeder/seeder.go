package seeder

import (
	"backend/internal/app/board"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Seeder struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSeeder(db *gorm.DB, logger *zap.Logger) *Seeder {
	return &Seeder{
		db:     db,
		logger: logger,
	}
}

func (s *Seeder) Seed() error {
	s.logger.Info("Running database seeders...")

	if err := s.seedBoards(); err != nil {
		return err
	}

	s.logger.Info("Database seeders completed successfully")
	return nil
}

func (s *Seeder) seedBoards() error {
	var count int64
	s.db.Model(&board.Board{}).Count(&count)
	if count > 0 {
		s.logger.Info("Boards already exist, skipping seed")
		return nil
	}

	boards := []board.Board{
		{Title: "환영합니다", Content: "커뮤니티 게시판에 오신 것을 환영합니다.", Writer: "관리자", MemberID: 1, BoardType: "공지"},
		{Title: "이용 안내", Content: "게시판 이용 방법을 확인하세요.", Writer: "관리자", MemberID: 1, BoardType: "가이드"},
		{Title: "자유롭게 글을 남겨보세요", Content: "첫 게시물을 작성해 보세요.", Writer: "관리자", MemberID: 1, BoardType: "자유"},
	}

	if err := s.db.Create(&boards).Error; err != nil {
		return err
	}

	s.logger.Info("Seeded boards", zap.Int("count", len(boards)))
	return nil
}
