package config

import (
	"encoding/json"
	"time"

	"github.com/gloamlab/gloam/internal/common/cnst"
)

type (
	// EngineConfig represents the session engine configuration
	EngineConfig struct {
		// RetryBound is the number of commit retries after the first
		// attempt. 0 permits the initial attempt only. Nil means default.
		RetryBound       *int          `yaml:"retry_bound"`
		AttemptTimeout   time.Duration `yaml:"attempt_timeout"`
		EnforceTurnOrder bool          `yaml:"enforce_turn_order"`

		DuplicatePolicy cnst.DuplicateSessionPolicy `yaml:"duplicate_policy"`

		SessionInactivityTimeout time.Duration `yaml:"session_inactivity_timeout"`
		ArchiveGracePeriod       time.Duration `yaml:"archive_grace_period"`
		IdempotencyRetention     time.Duration `yaml:"idempotency_retention"`
		SweepInterval            time.Duration `yaml:"sweep_interval"`

		StorageRetry RetryConfig `yaml:"storage_retry"`

		Variants    []VariantConfig `yaml:"variants"`
		VariantsDir string          `yaml:"variants_dir"`

		State    StateConfig    `yaml:"state"`
		Database DatabaseConfig `yaml:"database"`
		Notifier NotifierConfig `yaml:"notifier"`
	}

	// RetryConfig represents the retry budget and delay schedule for
	// transient storage failures. The same delay schedule paces commit
	// retries after version conflicts.
	RetryConfig struct {
		MaxRetries    int           `yaml:"max_retries"`
		BaseDelay     time.Duration `yaml:"base_delay"`
		MaxDelay      time.Duration `yaml:"max_delay"`
		BackoffFactor float64       `yaml:"backoff_factor"`
	}

	// VariantConfig represents one rule variant eligible for assignment
	VariantConfig struct {
		ID     string `yaml:"id"`
		Weight int    `yaml:"weight"`
		// MinParticipants and MaxParticipants bound eligibility by
		// session size. MaxParticipants 0 means no upper bound.
		MinParticipants int            `yaml:"min_participants"`
		MaxParticipants int            `yaml:"max_participants"`
		Params          map[string]any `yaml:"params"`
	}
)

func (c *EngineConfig) setDefaults() {
	if c.RetryBound == nil {
		bound := 3
		c.RetryBound = &bound
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 5 * time.Second
	}
	if c.DuplicatePolicy == "" {
		c.DuplicatePolicy = cnst.PolicyReject
	}
	if c.SessionInactivityTimeout <= 0 {
		c.SessionInactivityTimeout = 72 * time.Hour
	}
	if c.ArchiveGracePeriod <= 0 {
		c.ArchiveGracePeriod = 24 * time.Hour
	}
	if c.IdempotencyRetention <= 0 {
		c.IdempotencyRetention = 168 * time.Hour
	}
	if c.SweepInterval <= time.Second {
		c.SweepInterval = 5 * time.Minute
	}
	if c.StorageRetry.MaxRetries <= 0 {
		c.StorageRetry.MaxRetries = 3
	}
	if c.StorageRetry.BaseDelay <= 0 {
		c.StorageRetry.BaseDelay = 10 * time.Millisecond
	}
	if c.StorageRetry.MaxDelay <= 0 {
		c.StorageRetry.MaxDelay = 250 * time.Millisecond
	}
	if c.StorageRetry.BackoffFactor <= 1 {
		c.StorageRetry.BackoffFactor = 2.0
	}
	if c.State.Type == "" {
		c.State.Type = "memory"
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
		c.Database.DBName = "./data/gloamd.db"
	}
	// A single-process deployment both raises and consumes events.
	if c.Notifier.Role == "" {
		c.Notifier.Role = string(RoleBoth)
	}
	if c.Notifier.Type == "" {
		c.Notifier.Type = "signal"
	}
}

// ParamsJSON returns the variant rule parameters as a JSON document.
// A variant without params yields an empty object.
func (v *VariantConfig) ParamsJSON() ([]byte, error) {
	if len(v.Params) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(v.Params)
}
