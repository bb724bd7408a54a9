package store

import (
	"context"
	"errors"
	"time"

	"github.com/dixieflatline76/PexWall/util/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository is a key/value store for UI state that outlives a
// process, such as the last browsed category.
type SettingsRepository struct {
	db      *DB
	timeout time.Duration
}

// NewSettingsRepository creates a SettingsRepository.
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db, timeout: 5 * time.Second}
}

// Get returns the value stored under key. Read errors are logged and
// reported as a missing key.
func (r *SettingsRepository) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	var s Setting
	err := r.db.WithContext(ctx).Where(&Setting{Key: key}).First(&s).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to read setting %s: %v", key, err)
		}
		return "", false
	}
	return s.Value, true
}

// Set stores value under key, logging a failed write.
func (r *SettingsRepository) Set(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&Setting{Key: key, Value: value}).Error
	if err != nil {
		log.Printf("Failed to save setting %s: %v", key, err)
	}
}
