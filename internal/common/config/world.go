package config

import "time"

// WorldConfig represents the world telemetry service configuration
type WorldConfig struct {
	Enabled    bool           `yaml:"enabled"`
	ContentDir string         `yaml:"content_dir"` // directory of world content TOML bundles
	Database   DatabaseConfig `yaml:"database"`

	// DecayInterval controls how often death counts decay by DecayFactor.
	DecayInterval time.Duration `yaml:"decay_interval"`
	DecayFactor   float64       `yaml:"decay_factor"`

	// DreadInterval controls how often dread levels are recalculated.
	DreadInterval     time.Duration `yaml:"dread_interval"`
	MinDeathsForDread int           `yaml:"min_deaths_for_dread"`
}

func (c *WorldConfig) setDefaults() {
	if c.ContentDir == "" {
		c.ContentDir = "./content"
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
		c.Database.DBName = "./data/world.db"
	}
	if c.DecayInterval <= 0 {
		c.DecayInterval = time.Hour
	}
	if c.DecayFactor <= 0 || c.DecayFactor >= 1 {
		c.DecayFactor = 0.95
	}
	if c.DreadInterval <= 0 {
		c.DreadInterval = 10 * time.Second
	}
	if c.MinDeathsForDread <= 0 {
		c.MinDeathsForDread = 1
	}
}
