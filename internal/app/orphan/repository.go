package orphan

import "gorm.io/gorm"

type Repository interface {
	Enqueue(bucket, key string) error
	SelectBatch(limit int) ([]BlobOrphan, error)
	Delete(id int64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Enqueue(bucket, key string) error {
	return r.db.Create(&BlobOrphan{Bucket: bucket, Key: key}).Error
}

func (r *repository) SelectBatch(limit int) ([]BlobOrphan, error) {
	var orphans []BlobOrphan
	err := r.db.Order("id ASC").Limit(limit).Find(&orphans).Error
	return orphans, err
}

func (r *repository) Delete(id int64) error {
	return r.db.Delete(&BlobOrphan{}, id).Error
}
