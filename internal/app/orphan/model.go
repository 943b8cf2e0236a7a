package orphan

import "time"

// BlobOrphan records an object-store key whose database row is gone, so a
// background sweep can finish the cleanup later.
type BlobOrphan struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Bucket    string    `gorm:"not null" json:"bucket"`
	Key       string    `gorm:"not null" json:"key"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (BlobOrphan) TableName() string {
	return "blob_orphans"
}
