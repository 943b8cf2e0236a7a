package comment

import "gorm.io/gorm"

type Repository interface {
	DeleteByBoardID(boardID int64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) DeleteByBoardID(boardID int64) error {
	return r.db.Where("board_id = ?", boardID).Delete(&BoardComment{}).Error
}
