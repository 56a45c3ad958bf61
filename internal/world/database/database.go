package database

import (
	"context"
)

// Database defines the interface for world telemetry persistence
type Database interface {
	// Close closes the database connection
	Close() error

	// AddDeath increments the death count for an area by one, creating
	// the row on first death, and returns the count after the increment.
	AddDeath(ctx context.Context, areaID string) (float64, error)
	// ListDeathCounts returns every death count row
	ListDeathCounts(ctx context.Context) ([]*AreaDeathCount, error)
	// SaveDeathCount writes back an existing death count row
	SaveDeathCount(ctx context.Context, count *AreaDeathCount) error
	// DeleteDeathCount removes the death count row for an area
	DeleteDeathCount(ctx context.Context, areaID string) error

	// GetDreadLevel returns the dread level for an area, 0 when no row exists
	GetDreadLevel(ctx context.Context, areaID string) (int, error)
	// ListElevatedDreadLevels returns areas with a level above zero,
	// highest level first.
	ListElevatedDreadLevels(ctx context.Context) ([]*DreadLevel, error)
	// SetDreadLevel sets the dread level for an area, creating the row if needed
	SetDreadLevel(ctx context.Context, areaID string, level int) error
	// ResetDreadLevels sets every dread level back to zero
	ResetDreadLevels(ctx context.Context) error

	// UpsertNote writes the note word for a (area, location) pair,
	// replacing any previous word at that spot.
	UpsertNote(ctx context.Context, areaID, noteLocationID, word string) error
	// ListNotes returns the notes left in an area
	ListNotes(ctx context.Context, areaID string) ([]*PlayerNote, error)
}
