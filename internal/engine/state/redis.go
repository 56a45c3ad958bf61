package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gloamlab/gloam/internal/common/cnst"
	"github.com/gloamlab/gloam/internal/common/config"
	"github.com/gloamlab/gloam/pkg/utils"
)

const (
	fieldVersion = "version"
	fieldBlob    = "blob"
)

// RedisStore implements Store using a Redis hash per session, holding the
// blob and its version. CompareAndSwap uses a WATCH/MULTI/EXEC optimistic
// transaction on the session key.
type RedisStore struct {
	logger *zap.Logger
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a new Redis-based state store
func NewRedisStore(logger *zap.Logger, cfg config.StateRedisConfig) (*RedisStore, error) {
	addrs := utils.SplitByMultipleDelimiters(cfg.Addr, ";", ",")
	redisOptions := &redis.UniversalOptions{
		Addrs:    addrs,
		Username: cfg.Username,
		Password: cfg.Password,
	}
	if cfg.ClusterType == cnst.RedisClusterTypeSentinel {
		redisOptions.MasterName = cfg.MasterName
	}
	if cfg.ClusterType != cnst.RedisClusterTypeCluster {
		// can not set db in cluster mode
		redisOptions.DB = cfg.DB
	}
	client := redis.NewUniversalClient(redisOptions)

	// Test connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "gloam:state"
	}

	return &RedisStore{
		logger: logger.Named("state.store.redis"),
		client: client,
		prefix: prefix + ":",
		ttl:    cfg.TTL,
	}, nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Create implements Store.Create
func (s *RedisStore) Create(ctx context.Context, id string, blob []byte) error {
	key := s.key(id)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to check session state: %w", err)
		}
		if exists > 0 {
			return ErrSessionExists
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldVersion, 0, fieldBlob, blob)
			if s.ttl > 0 {
				pipe.Expire(ctx, key, s.ttl)
			}
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// A concurrent create won the race on the watched key.
		return ErrSessionExists
	}
	return err
}

// Read implements Store.Read
func (s *RedisStore) Read(ctx context.Context, id string) (*Versioned, error) {
	key := s.key(id)
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}
	if len(vals) == 0 {
		return nil, ErrSessionNotFound
	}

	version, err := strconv.ParseInt(vals[fieldVersion], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse state version: %w", err)
	}

	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			s.logger.Warn("failed to renew state TTL",
				zap.String("id", id),
				zap.Error(err))
		}
	}

	return &Versioned{Version: version, Blob: []byte(vals[fieldBlob])}, nil
}

// CompareAndSwap implements Store.CompareAndSwap
func (s *RedisStore) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, blob []byte) (int64, error) {
	key := s.key(id)
	next := expectedVersion + 1

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldVersion).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to read state version: %w", err)
		}
		stored, err := strconv.ParseInt(current, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse state version: %w", err)
		}
		if stored != expectedVersion {
			return ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldVersion, next, fieldBlob, blob)
			if s.ttl > 0 {
				pipe.Expire(ctx, key, s.ttl)
			}
			return nil
		})
		return err
	}, key)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		// The watched key changed between read and EXEC.
		return 0, ErrVersionConflict
	case err != nil:
		return 0, err
	}
	return next, nil
}

// Delete implements Store.Delete
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session state: %w", err)
	}
	return nil
}

// Close implements Store.Close
func (s *RedisStore) Close() error {
	return s.client.Close()
}
