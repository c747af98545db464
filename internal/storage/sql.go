package storage

import (
	"errors"
	"time"

	"ipscope/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL persists keys in the kv_items table. The schema must already be migrated.
type SQL struct {
	db *gorm.DB
}

func NewSQL(db *gorm.DB) *SQL {
	return &SQL{db: db}
}

func (s *SQL) Get(key string) (string, bool, error) {
	var item model.Item
	err := s.db.Where("item_key = ?", key).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return item.Value, true, nil
}

func (s *SQL) Set(key, value string) error {
	item := model.Item{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&item).Error
}

func (s *SQL) Remove(key string) error {
	return s.db.Where("item_key = ?", key).Delete(&model.Item{}).Error
}
