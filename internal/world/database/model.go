package database

import "time"

// AreaDeathCount accumulates deaths per area. The count is stored as a
// float because the decay pass erodes it fractionally between deaths.
type AreaDeathCount struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	AreaID      string    `json:"area_id" gorm:"type:varchar(100);uniqueIndex;not null"`
	DeathCount  float64   `json:"death_count" gorm:"not null;default:0"`
	LastUpdated time.Time `json:"last_updated"`
}

// TableName returns the table name for the AreaDeathCount model
func (AreaDeathCount) TableName() string {
	return "area_death_counts"
}

// DreadLevel is the derived danger rating of an area. Only the
// recalculation pass writes it; reads treat a missing row as level 0.
type DreadLevel struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	AreaID      string    `json:"area_id" gorm:"type:varchar(100);uniqueIndex;not null"`
	Level       int       `json:"level" gorm:"not null;default:0"`
	LastUpdated time.Time `json:"last_updated"`
}

// TableName returns the table name for the DreadLevel model
func (DreadLevel) TableName() string {
	return "dread_levels"
}

// PlayerNote is a single-word marker left at a location. One note per
// (area, location) pair; leaving another replaces the previous word.
type PlayerNote struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	AreaID         string    `json:"area_id" gorm:"type:varchar(100);uniqueIndex:idx_area_note_location,priority:1;not null"`
	NoteLocationID string    `json:"note_location_id" gorm:"type:varchar(100);uniqueIndex:idx_area_note_location,priority:2;not null"`
	Word           string    `json:"word" gorm:"type:varchar(50);not null"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName returns the table name for the PlayerNote model
func (PlayerNote) TableName() string {
	return "player_notes"
}
