package comment

import "time"

// BoardComment is owned by the comment feature; the board subsystem only
// touches it through the delete hook when a board is destroyed.
type BoardComment struct {
	ID       int64     `json:"id" gorm:"primaryKey"`
	BoardID  int64     `json:"boardId" gorm:"not null;index"`
	MemberID int64     `json:"memberId" gorm:"not null"`
	Comment  string    `json:"comment" gorm:"type:text;not null"`
	Inserted time.Time `json:"inserted" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (BoardComment) TableName() string {
	return "board_comments"
}
