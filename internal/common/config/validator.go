package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gloamlab/gloam/internal/common/cnst"
)

// Location represents a configuration location
type Location struct {
	File string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Message   string
	Locations []Location
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	sb.WriteString("\n\n")
	for _, loc := range e.Locations {
		sb.WriteString("--> ")
		sb.WriteString(loc.File)
		sb.WriteString("\n")
	}
	return sb.String()
}

// ValidateConfig validates a loaded gloamd configuration
func ValidateConfig(cfg *GloamdConfig, cfgPath string) error {
	errs := validateConfig(cfg, cfgPath)
	if len(errs) > 0 {
		var sb strings.Builder
		for i, err := range errs {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(err.Error())
		}
		return fmt.Errorf("%s", sb.String())
	}
	return nil
}

func validateConfig(cfg *GloamdConfig, cfgPath string) []*ValidationError {
	var errs []*ValidationError
	loc := []Location{{File: cfgPath}}

	add := func(format string, args ...any) {
		errs = append(errs, &ValidationError{
			Message:   fmt.Sprintf(format, args...),
			Locations: loc,
		})
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		add("port %d is out of range", cfg.Port)
	}

	if cfg.Engine.RetryBound != nil && *cfg.Engine.RetryBound < 0 {
		add("engine retry_bound must not be negative")
	}

	switch cfg.Engine.DuplicatePolicy {
	case cnst.PolicyAllow, cnst.PolicyReject, cnst.PolicyReturnExisting:
	default:
		add("unknown duplicate_policy %q", cfg.Engine.DuplicatePolicy)
	}

	switch strings.ToLower(cfg.Engine.State.Type) {
	case "memory":
	case "redis":
		if cfg.Engine.State.Redis.Addr == "" {
			add("engine state store of type redis requires an addr")
		}
	default:
		add("unknown state store type %q", cfg.Engine.State.Type)
	}

	switch strings.ToLower(cfg.Engine.Database.Type) {
	case "sqlite", "mysql", "postgres":
	default:
		add("unknown engine database type %q", cfg.Engine.Database.Type)
	}

	switch NotifierRole(strings.ToLower(cfg.Engine.Notifier.Role)) {
	case RoleReceiver, RoleSender, RoleBoth:
	default:
		add("unknown notifier role %q", cfg.Engine.Notifier.Role)
	}

	switch strings.ToLower(cfg.Engine.Notifier.Type) {
	case "signal", "composite":
	case "webhook":
		if cfg.Engine.Notifier.Webhook.TargetURL == "" &&
			NotifierRole(cfg.Engine.Notifier.Role) != RoleReceiver {
			add("webhook notifier requires a target_url to send")
		}
	case "redis":
		if cfg.Engine.Notifier.Redis.Addr == "" {
			add("redis notifier requires an addr")
		}
	default:
		add("unknown notifier type %q", cfg.Engine.Notifier.Type)
	}

	if err := ValidateVariants(cfg.Engine.Variants); err != nil {
		add("invalid variant configuration: %s", err.Error())
	}

	if cfg.API.KeysJSON != "" {
		var keys map[string]string
		if err := json.Unmarshal([]byte(cfg.API.KeysJSON), &keys); err != nil {
			add("api keys_json is not a JSON object of key to client name: %s", err.Error())
		}
	}

	if cfg.World.Enabled {
		switch strings.ToLower(cfg.World.Database.Type) {
		case "sqlite", "mysql", "postgres":
		default:
			add("unknown world database type %q", cfg.World.Database.Type)
		}
	}

	return errs
}
