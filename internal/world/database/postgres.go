package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/gloamlab/gloam/internal/common/config"
)

// Postgres implements the Database interface using PostgreSQL
type Postgres struct {
	db  *gorm.DB
	cfg *config.DatabaseConfig
}

// NewPostgres creates a new Postgres instance
func NewPostgres(cfg *config.DatabaseConfig) (Database, error) {
	db := &Postgres{
		cfg: cfg,
	}

	gormDB, err := gorm.Open(postgres.Open(db.cfg.GetDSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := gormDB.AutoMigrate(&AreaDeathCount{}, &DreadLevel{}, &PlayerNote{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	db.db = gormDB
	return db, nil
}

// Close closes the database connection
func (db *Postgres) Close() error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AddDeath increments the death count for an area and returns the new count
func (db *Postgres) AddDeath(ctx context.Context, areaID string) (float64, error) {
	var count float64
	err := db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing AreaDeathCount
		err := tx.Where("area_id = ?", areaID).First(&existing).Error
		if err == nil {
			existing.DeathCount++
			existing.LastUpdated = time.Now()
			count = existing.DeathCount
			return tx.Save(&existing).Error
		} else if err == gorm.ErrRecordNotFound {
			count = 1
			return tx.Create(&AreaDeathCount{
				AreaID:      areaID,
				DeathCount:  1,
				LastUpdated: time.Now(),
			}).Error
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListDeathCounts returns every death count row
func (db *Postgres) ListDeathCounts(ctx context.Context) ([]*AreaDeathCount, error) {
	var counts []*AreaDeathCount
	if err := db.db.WithContext(ctx).Find(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

// SaveDeathCount writes back an existing death count row
func (db *Postgres) SaveDeathCount(ctx context.Context, count *AreaDeathCount) error {
	count.LastUpdated = time.Now()
	return db.db.WithContext(ctx).Save(count).Error
}

// DeleteDeathCount removes the death count row for an area
func (db *Postgres) DeleteDeathCount(ctx context.Context, areaID string) error {
	return db.db.WithContext(ctx).Where("area_id = ?", areaID).Delete(&AreaDeathCount{}).Error
}

// GetDreadLevel returns the dread level for an area, 0 when no row exists
func (db *Postgres) GetDreadLevel(ctx context.Context, areaID string) (int, error) {
	var level DreadLevel
	err := db.db.WithContext(ctx).Where("area_id = ?", areaID).First(&level).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return level.Level, nil
}

// ListElevatedDreadLevels returns areas with a level above zero, highest first
func (db *Postgres) ListElevatedDreadLevels(ctx context.Context) ([]*DreadLevel, error) {
	var levels []*DreadLevel
	if err := db.db.WithContext(ctx).
		Where("level > ?", 0).
		Order("level DESC, area_id ASC").
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// SetDreadLevel sets the dread level for an area, creating the row if needed
func (db *Postgres) SetDreadLevel(ctx context.Context, areaID string, level int) error {
	return db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing DreadLevel
		err := tx.Where("area_id = ?", areaID).First(&existing).Error
		if err == nil {
			existing.Level = level
			existing.LastUpdated = time.Now()
			return tx.Save(&existing).Error
		} else if err == gorm.ErrRecordNotFound {
			return tx.Create(&DreadLevel{
				AreaID:      areaID,
				Level:       level,
				LastUpdated: time.Now(),
			}).Error
		}
		return err
	})
}

// ResetDreadLevels sets every dread level back to zero
func (db *Postgres) ResetDreadLevels(ctx context.Context) error {
	return db.db.WithContext(ctx).
		Model(&DreadLevel{}).
		Where("level <> ?", 0).
		Update("level", 0).Error
}

// UpsertNote writes the note word for a (area, location) pair
func (db *Postgres) UpsertNote(ctx context.Context, areaID, noteLocationID, word string) error {
	return db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing PlayerNote
		err := tx.Where("area_id = ? AND note_location_id = ?", areaID, noteLocationID).First(&existing).Error
		if err == nil {
			existing.Word = word
			existing.CreatedAt = time.Now()
			return tx.Save(&existing).Error
		} else if err == gorm.ErrRecordNotFound {
			return tx.Create(&PlayerNote{
				AreaID:         areaID,
				NoteLocationID: noteLocationID,
				Word:           word,
				CreatedAt:      time.Now(),
			}).Error
		}
		return err
	})
}

// ListNotes returns the notes left in an area
func (db *Postgres) ListNotes(ctx context.Context, areaID string) ([]*PlayerNote, error) {
	var notes []*PlayerNote
	if err := db.db.WithContext(ctx).
		Where("area_id = ?", areaID).
		Order("note_location_id ASC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}
