package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/gloamlab/gloam/internal/engine/session"
)

// Store persists session records and the move ledger.
type Store interface {
	// CreateSession persists a new session record. A colliding session
	// ID fails with ErrSessionExists.
	CreateSession(ctx context.Context, s *session.Session) error

	// GetSession returns the record for id, or ErrNotFound.
	GetSession(ctx context.Context, id string) (*session.Session, error)

	// UpdateSession overwrites the record for s.ID.
	UpdateSession(ctx context.Context, s *session.Session) error

	// FindLiveByFingerprint returns the newest live session carrying the
	// participant-set fingerprint, or ErrNotFound.
	FindLiveByFingerprint(ctx context.Context, fingerprint string) (*session.Session, error)

	// ListExpirable returns live sessions whose last activity is older
	// than before.
	ListExpirable(ctx context.Context, before time.Time) ([]*session.Session, error)

	// ListArchivable returns expired sessions whose expiry is older than
	// before.
	ListArchivable(ctx context.Context, before time.Time) ([]*session.Session, error)

	// AppendMove appends one accepted move to the ledger. A second row
	// for the same (session, idempotency key) fails with ErrDuplicateMove.
	AppendMove(ctx context.Context, m *MoveRecord) error

	// GetMoveByKey returns the ledger row for (sessionID, idempotencyKey),
	// or ErrNotFound.
	GetMoveByKey(ctx context.Context, sessionID, idempotencyKey string) (*MoveRecord, error)

	// ListMoves returns ledger rows for a session, newest first. A
	// non-positive limit returns all rows.
	ListMoves(ctx context.Context, sessionID string, limit int) ([]*MoveRecord, error)

	// PruneMoves deletes ledger rows submitted before the given time and
	// returns the number of rows removed.
	PruneMoves(ctx context.Context, before time.Time) (int64, error)

	// Close releases the underlying database handle.
	Close() error
}

var (
	// ErrNotFound is returned when a record is absent
	ErrNotFound = gorm.ErrRecordNotFound
	// ErrInvalidDatabaseType is returned when an invalid database type is provided
	ErrInvalidDatabaseType = gorm.ErrInvalidDB
	// ErrSessionExists is returned when a session record ID collides
	ErrSessionExists = errors.New("session record already exists")
	// ErrDuplicateMove is returned when a (session, idempotency key) ledger row already exists
	ErrDuplicateMove = errors.New("duplicate move ledger row")
)
