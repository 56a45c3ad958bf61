package config

import "time"

type (
	// NotifierConfig represents the configuration for notifier
	NotifierConfig struct {
		Role    string        `yaml:"role"` // receiver, sender, or both
		Type    string        `yaml:"type"` // signal, webhook, redis, or composite
		Signal  SignalConfig  `yaml:"signal"`
		Webhook WebhookConfig `yaml:"webhook"`
		Redis   RedisConfig   `yaml:"redis"`
	}

	// SignalConfig represents the configuration for signal-based notifier
	SignalConfig struct {
		Signal string `yaml:"signal"`
		PID    string `yaml:"pid"`
	}

	// WebhookConfig represents the configuration for webhook-based notifier
	WebhookConfig struct {
		TargetURL string        `yaml:"target_url"`
		Timeout   time.Duration `yaml:"timeout"`
	}

	// RedisConfig represents the configuration for Redis-based notifier
	RedisConfig struct {
		ClusterType string `yaml:"cluster_type"` // single, sentinel, cluster
		Addr        string `yaml:"addr"`
		MasterName  string `yaml:"master_name"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		DB          int    `yaml:"db"`
		Topic       string `yaml:"topic"`
		MaxLen      int64  `yaml:"max_len"` // stream length cap, approximate
	}
)

// NotifierRole represents the role of a notifier
type NotifierRole string

const (
	// RoleReceiver represents a notifier that can only receive updates
	RoleReceiver NotifierRole = "receiver"
	// RoleSender represents a notifier that can only send updates
	RoleSender NotifierRole = "sender"
	// RoleBoth represents a notifier that can both send and receive updates
	RoleBoth NotifierRole = "both"
)
