package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gloamlab/gloam/internal/common/cnst"
	"github.com/gloamlab/gloam/internal/common/config"
	"github.com/gloamlab/gloam/pkg/utils"
)

const defaultStreamMaxLen = 256

// RedisNotifier implements Notifier using a Redis stream, so every
// engine instance observes events regardless of which instance
// published them.
type RedisNotifier struct {
	logger     *zap.Logger
	client     redis.UniversalClient
	streamName string
	maxLen     int64
	role       config.NotifierRole
}

var _ Notifier = (*RedisNotifier)(nil)

// NewRedisNotifier creates a new Redis-based notifier
func NewRedisNotifier(logger *zap.Logger, cfg config.RedisConfig, role config.NotifierRole) (*RedisNotifier, error) {
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

	streamName := cfg.Topic
	if streamName == "" {
		streamName = "gloam:events"
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}

	return &RedisNotifier{
		logger:     logger.Named("notifier.redis"),
		client:     client,
		streamName: streamName,
		maxLen:     maxLen,
		role:       role,
	}, nil
}

// Watch implements Notifier.Watch
func (r *RedisNotifier) Watch(ctx context.Context) (<-chan *Event, error) {
	if !r.CanReceive() {
		return nil, cnst.ErrNotReceiver
	}

	// Resolve the stream tail before returning so events published after
	// Watch are never skipped by a late first read.
	lastID := "0"
	if info, err := r.client.XInfoStream(ctx, r.streamName).Result(); err == nil && info.LastGeneratedID != "" {
		lastID = info.LastGeneratedID
	}

	ch := make(chan *Event, 16)

	go func() {
		defer close(ch)

		for {
			select {
			case <-ctx.Done():
				return
			default:
				// XREAD instead of XREADGROUP: every instance reads
				// independently from its own position.
				streams, err := r.client.XRead(ctx, &redis.XReadArgs{
					Streams: []string{r.streamName, lastID},
					Count:   16,
					Block:   1 * time.Second,
				}).Result()

				if err != nil {
					if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
						r.logger.Error("failed to read from stream", zap.Error(err))
					}
					continue
				}

				for _, stream := range streams {
					for _, message := range stream.Messages {
						lastID = message.ID

						data, exists := message.Values["event"]
						if !exists {
							continue
						}
						var event Event
						if err := json.Unmarshal([]byte(data.(string)), &event); err != nil {
							r.logger.Error("failed to unmarshal event", zap.Error(err))
							continue
						}
						select {
						case ch <- &event:
						case <-ctx.Done():
							return
						}
					}
				}
			}
		}
	}()

	return ch, nil
}

// Notify implements Notifier.Notify
func (r *RedisNotifier) Notify(ctx context.Context, event *Event) error {
	if !r.CanSend() {
		return cnst.ErrNotSender
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.streamName,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event":     string(data),
			"timestamp": time.Now().Unix(),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to add event to stream: %w", err)
	}

	return nil
}

// Close closes the Redis client
func (r *RedisNotifier) Close() error {
	return r.client.Close()
}

// CanReceive returns true if the notifier can receive events
func (r *RedisNotifier) CanReceive() bool {
	return r.role == config.RoleReceiver || r.role == config.RoleBoth
}

// CanSend returns true if the notifier can send events
func (r *RedisNotifier) CanSend() bool {
	return r.role == config.RoleSender || r.role == config.RoleBoth
}
