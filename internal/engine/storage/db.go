package storage

import (
	"context"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/gloamlab/gloam/internal/common/cnst"
	"github.com/gloamlab/gloam/internal/common/config"
	"github.com/gloamlab/gloam/internal/engine/session"
)

// DBStore implements the Store interface using a database
type DBStore struct {
	logger *zap.Logger
	db     *gorm.DB
}

var _ Store = (*DBStore)(nil)

// DatabaseType represents the supported database types
type DatabaseType string

const (
	PostgreSQL DatabaseType = "postgres"
	MySQL      DatabaseType = "mysql"
	SQLite     DatabaseType = "sqlite"
)

var liveStatuses = []string{
	string(cnst.StatusActive),
	string(cnst.StatusAwaitingTurn),
}

// NewDBStore creates a new database-based store
func NewDBStore(logger *zap.Logger, cfg *config.DatabaseConfig) (*DBStore, error) {
	logger = logger.Named("engine.store.db")

	var dialector gorm.Dialector
	switch DatabaseType(cfg.Type) {
	case PostgreSQL:
		dialector = postgres.Open(cfg.GetDSN())
	case MySQL:
		dialector = mysql.Open(cfg.GetDSN())
	case SQLite:
		dialector = sqlite.Open(cfg.GetDSN())
	default:
		return nil, ErrInvalidDatabaseType
	}

	// TranslateError maps driver unique-violations onto gorm.ErrDuplicatedKey.
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	// Auto migrate the schema
	if err := db.AutoMigrate(&SessionRecord{}, &MoveRecord{}); err != nil {
		return nil, err
	}

	return &DBStore{
		logger: logger,
		db:     db,
	}, nil
}

// CreateSession implements Store.CreateSession
func (s *DBStore) CreateSession(ctx context.Context, sess *session.Session) error {
	model, err := FromSession(sess)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrSessionExists
		}
		return result.Error
	}
	return nil
}

// GetSession implements Store.GetSession
func (s *DBStore) GetSession(ctx context.Context, id string) (*session.Session, error) {
	var model SessionRecord
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&model)
	if result.Error != nil {
		return nil, result.Error
	}
	return model.ToSession()
}

// UpdateSession implements Store.UpdateSession
func (s *DBStore) UpdateSession(ctx context.Context, sess *session.Session) error {
	model, err := FromSession(sess)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// FindLiveByFingerprint implements Store.FindLiveByFingerprint
func (s *DBStore) FindLiveByFingerprint(ctx context.Context, fingerprint string) (*session.Session, error) {
	var model SessionRecord
	result := s.db.WithContext(ctx).
		Where("fingerprint = ? AND status IN ?", fingerprint, liveStatuses).
		Order("created_at DESC").
		First(&model)
	if result.Error != nil {
		return nil, result.Error
	}
	return model.ToSession()
}

// ListExpirable implements Store.ListExpirable
func (s *DBStore) ListExpirable(ctx context.Context, before time.Time) ([]*session.Session, error) {
	var models []SessionRecord
	result := s.db.WithContext(ctx).
		Where("status IN ? AND last_move_at < ?", liveStatuses, before).
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}
	return toSessions(models)
}

// ListArchivable implements Store.ListArchivable
func (s *DBStore) ListArchivable(ctx context.Context, before time.Time) ([]*session.Session, error) {
	var models []SessionRecord
	result := s.db.WithContext(ctx).
		Where("status = ? AND expired_at < ?", string(cnst.StatusExpired), before).
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}
	return toSessions(models)
}

func toSessions(models []SessionRecord) ([]*session.Session, error) {
	sessions := make([]*session.Session, len(models))
	for i := range models {
		sess, err := models[i].ToSession()
		if err != nil {
			return nil, err
		}
		sessions[i] = sess
	}
	return sessions, nil
}

// AppendMove implements Store.AppendMove
func (s *DBStore) AppendMove(ctx context.Context, m *MoveRecord) error {
	result := s.db.WithContext(ctx).Create(m)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateMove
		}
		return result.Error
	}
	return nil
}

// GetMoveByKey implements Store.GetMoveByKey
func (s *DBStore) GetMoveByKey(ctx context.Context, sessionID, idempotencyKey string) (*MoveRecord, error) {
	var model MoveRecord
	result := s.db.WithContext(ctx).
		Where("session_id = ? AND idempotency_key = ?", sessionID, idempotencyKey).
		First(&model)
	if result.Error != nil {
		return nil, result.Error
	}
	return &model, nil
}

// ListMoves implements Store.ListMoves
func (s *DBStore) ListMoves(ctx context.Context, sessionID string, limit int) ([]*MoveRecord, error) {
	query := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []*MoveRecord
	result := query.Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}
	return models, nil
}

// PruneMoves implements Store.PruneMoves
func (s *DBStore) PruneMoves(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("submitted_at < ?", before).
		Delete(&MoveRecord{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Close implements Store.Close
func (s *DBStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
