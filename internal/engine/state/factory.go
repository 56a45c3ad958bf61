package state

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gloamlab/gloam/internal/common/config"
)

// Type represents the type of state store
type Type string

const (
	// TypeMemory represents in-memory state store
	TypeMemory Type = "memory"
	// TypeRedis represents Redis-based state store
	TypeRedis Type = "redis"
)

// NewStore creates a new state store based on configuration
func NewStore(logger *zap.Logger, cfg *config.StateConfig) (Store, error) {
	logger.Info("Initializing session state store", zap.String("type", cfg.Type))
	switch Type(cfg.Type) {
	case TypeMemory:
		return NewMemoryStore(logger), nil
	case TypeRedis:
		return NewRedisStore(logger, cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported state store type: %s", cfg.Type)
	}
}
