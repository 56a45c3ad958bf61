package config

import "time"

type (
	// StateConfig represents the live session state store configuration
	StateConfig struct {
		Type  string           `yaml:"type"`  // "memory" or "redis"
		Redis StateRedisConfig `yaml:"redis"` // Redis configuration
	}

	// StateRedisConfig represents the Redis configuration for session state
	StateRedisConfig struct {
		ClusterType string        `yaml:"cluster_type"` // single, sentinel, cluster
		Addr        string        `yaml:"addr"`
		MasterName  string        `yaml:"master_name"` // sentinel master name
		Username    string        `yaml:"username"`
		Password    string        `yaml:"password"`
		DB          int           `yaml:"db"`
		Prefix      string        `yaml:"prefix"`
		TTL         time.Duration `yaml:"ttl"` // TTL for archived state leftovers
	}
)
