package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/arnavshah/roster-engine/pkg/database"
	"github.com/arnavshah/roster-engine/pkg/metrics"
	"github.com/arnavshah/roster-engine/pkg/models"
	"github.com/arnavshah/roster-engine/pkg/report"
	"github.com/arnavshah/roster-engine/pkg/scheduler"
)

// Config represents the overall application configuration.
type Config struct {
	Solver   SolverConfig   `yaml:"solver"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// SolverConfig holds organization-wide solver settings.
type SolverConfig struct {
	Mode            string               `yaml:"mode"`
	Relax           []string             `yaml:"relax"`
	FairnessWeight  *float64             `yaml:"fairness_weight"`
	ChangeMinWeight *float64             `yaml:"change_min_weight"`
	SoftSampleLimit int                  `yaml:"soft_sample_limit"`
	Health          metrics.HealthPolicy `yaml:"health"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateBurst       int           `yaml:"rate_burst"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	DSN     string `yaml:"dsn"`
	Path    string `yaml:"path"`
	Verbose bool   `yaml:"verbose"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration from the given path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnv loads .env files the way the server always has, then reads the
// file named by ROSTER_CONFIG and applies environment overrides.
func LoadEnv() (*Config, error) {
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	cfg, err := Load(os.Getenv("ROSTER_CONFIG"))
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides file settings with PORT, DATABASE_URL, DATA_PATH and LOG_LEVEL.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("DATA_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ROSTER_FAIRNESS_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.Solver.FairnessWeight = &f
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Solver.Mode == "" {
		c.Solver.Mode = models.ModeStrict
	}
	if c.Solver.FairnessWeight == nil {
		w := 1.0
		c.Solver.FairnessWeight = &w
	}
	if c.Solver.ChangeMinWeight == nil {
		w := 1.0
		c.Solver.ChangeMinWeight = &w
	}
	if c.Solver.SoftSampleLimit <= 0 {
		c.Solver.SoftSampleLimit = report.DefaultSoftSampleLimit
	}
	c.Solver.Health = c.Solver.Health.Normalized()

	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 5
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = 10
	}
	if c.Server.CacheTTLSeconds <= 0 {
		c.Server.CacheTTLSeconds = 300
	}
	c.Server.CacheTTL = time.Duration(c.Server.CacheTTLSeconds) * time.Second

	if c.Database.Path == "" {
		c.Database.Path = "roster.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate rejects settings the solver would refuse anyway.
func (c *Config) Validate() error {
	switch c.Solver.Mode {
	case models.ModeStrict, models.ModeRelaxed:
	default:
		return fmt.Errorf("solver.mode: unknown mode %q", c.Solver.Mode)
	}
	if *c.Solver.FairnessWeight < 0 {
		return errors.New("solver.fairness_weight must not be negative")
	}
	if *c.Solver.ChangeMinWeight < 0 {
		return errors.New("solver.change_min_weight must not be negative")
	}
	return nil
}

// DatabaseOptions converts the database section for database.Open.
func (c *Config) DatabaseOptions() database.Options {
	return database.Options{DSN: c.Database.DSN, Path: c.Database.Path, Verbose: c.Database.Verbose}
}

// SchedulerConfig builds the immutable per-solve configuration.
func (c *Config) SchedulerConfig() scheduler.Config {
	sc := scheduler.DefaultConfig()
	sc.Mode = c.Solver.Mode
	sc.Relax = append([]string(nil), c.Solver.Relax...)
	sc.FairnessWeight = *c.Solver.FairnessWeight
	sc.ChangeMinWeight = *c.Solver.ChangeMinWeight
	sc.SoftSampleLimit = c.Solver.SoftSampleLimit
	sc.Health = c.Solver.Health
	return sc
}
