package notifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gloamlab/gloam/internal/common/config"
)

// Type represents the type of notifier
type Type string

const (
	// TypeSignal represents signal-based notifier
	TypeSignal Type = "signal"
	// TypeWebhook represents webhook-based notifier
	TypeWebhook Type = "webhook"
	// TypeRedis represents Redis-based notifier
	TypeRedis Type = "redis"
	// TypeComposite represents composite notifier
	TypeComposite Type = "composite"
)

// NewNotifier creates a new notifier based on the configuration
func NewNotifier(ctx context.Context, logger *zap.Logger, cfg *config.NotifierConfig) (Notifier, error) {
	role := config.NotifierRole(cfg.Role)
	if role == "" {
		role = config.RoleBoth
	}

	switch Type(cfg.Type) {
	case TypeSignal:
		return NewSignalNotifier(ctx, logger, cfg.Signal, role), nil
	case TypeWebhook:
		return NewWebhookNotifier(logger, cfg.Webhook, role), nil
	case TypeRedis:
		return NewRedisNotifier(logger, cfg.Redis, role)
	case TypeComposite:
		notifiers := []Notifier{NewSignalNotifier(ctx, logger, cfg.Signal, role)}
		if cfg.Webhook.TargetURL != "" {
			notifiers = append(notifiers, NewWebhookNotifier(logger, cfg.Webhook, role))
		}
		if cfg.Redis.Addr != "" {
			redisNotifier, err := NewRedisNotifier(logger, cfg.Redis, role)
			if err != nil {
				return nil, err
			}
			notifiers = append(notifiers, redisNotifier)
		}
		return NewCompositeNotifier(ctx, logger, notifiers...), nil
	default:
		return nil, fmt.Errorf("unknown notifier type: %s", cfg.Type)
	}
}
