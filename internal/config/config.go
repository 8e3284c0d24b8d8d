// Package config provides configuration management for Kintree.
//
// Values are resolved in two layers: an optional YAML config file
// (KINTREE_CONFIG, falling back to ./kintree.yaml) seeds the defaults, and
// environment variables with the KINTREE_ prefix override both.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Kintree application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Journal  JournalConfig  `yaml:"journal"`
	Security SecurityConfig `yaml:"security"`
	Backup   BackupConfig   `yaml:"backup"`
}

// ServerConfig contains HTTP server configuration for the web API.
type ServerConfig struct {
	Host string `yaml:"host"` // default: 127.0.0.1
	Port int    `yaml:"port"` // default: 6565
}

// StorageConfig contains the tree source and persistence paths.
type StorageConfig struct {
	// GedcomPath is the source document parsed when no usable snapshot
	// exists (default: ./data/family.ged).
	GedcomPath string `yaml:"gedcom_path"`

	// SnapshotPath is the durable snapshot file. Empty disables
	// persistence entirely.
	SnapshotPath string `yaml:"snapshot_path"`

	// DataPath is the data directory, also used for the default journal
	// database location (default: ./data).
	DataPath string `yaml:"data_path"`
}

// JournalConfig selects the mutation journal backend.
type JournalConfig struct {
	// Engine is "sqlite" (default) or "postgres".
	Engine string `yaml:"engine"`

	// DSN is the connection string. Empty with the sqlite engine derives
	// <data_path>/journal.db.
	DSN string `yaml:"dsn"`
}

// SecurityConfig contains authentication settings for the web API.
type SecurityConfig struct {
	// Mode is "development" (no auth) or "production" (bearer token).
	Mode string `yaml:"mode"`

	// APIToken is the bearer token required in production mode.
	APIToken string `yaml:"api_token"`
}

// BackupConfig contains snapshot backup configuration.
type BackupConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Interval         string `yaml:"interval"` // duration string, default 24h
	Path             string `yaml:"path"`     // default ./backups
	Verify           bool   `yaml:"verify"`
	RetentionHourly  int    `yaml:"retention_hourly"`
	RetentionDaily   int    `yaml:"retention_daily"`
	RetentionWeekly  int    `yaml:"retention_weekly"`
	RetentionMonthly int    `yaml:"retention_monthly"`
}

// Load resolves the full configuration: defaults, then the optional YAML
// file, then KINTREE_ environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("KINTREE_CONFIG")
	if path == "" {
		if _, err := os.Stat("kintree.yaml"); err == nil {
			path = "kintree.yaml"
		}
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// LoadFile resolves configuration from an explicit YAML file plus
// environment overrides, bypassing the KINTREE_CONFIG search.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 6565,
		},
		Storage: StorageConfig{
			GedcomPath:   "./data/family.ged",
			SnapshotPath: "./data/snapshot.json",
			DataPath:     "./data",
		},
		Journal: JournalConfig{
			Engine: "sqlite",
		},
		Security: SecurityConfig{
			Mode: "development",
		},
		Backup: BackupConfig{
			Interval:         "24h",
			Path:             "./backups",
			Verify:           true,
			RetentionHourly:  24,
			RetentionDaily:   7,
			RetentionWeekly:  4,
			RetentionMonthly: 12,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("KINTREE_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("KINTREE_PORT", cfg.Server.Port)

	cfg.Storage.GedcomPath = getEnv("KINTREE_GEDCOM_PATH", cfg.Storage.GedcomPath)
	cfg.Storage.SnapshotPath = getEnv("KINTREE_SNAPSHOT_PATH", cfg.Storage.SnapshotPath)
	cfg.Storage.DataPath = getEnv("KINTREE_DATA_PATH", cfg.Storage.DataPath)

	cfg.Journal.Engine = getEnv("KINTREE_JOURNAL_ENGINE", cfg.Journal.Engine)
	cfg.Journal.DSN = getEnv("KINTREE_JOURNAL_DSN", cfg.Journal.DSN)

	cfg.Security.Mode = getEnv("KINTREE_SECURITY_MODE", cfg.Security.Mode)
	cfg.Security.APIToken = getEnv("KINTREE_API_TOKEN", cfg.Security.APIToken)

	cfg.Backup.Enabled = getEnvBool("KINTREE_BACKUP_ENABLED", cfg.Backup.Enabled)
	cfg.Backup.Interval = getEnv("KINTREE_BACKUP_INTERVAL", cfg.Backup.Interval)
	cfg.Backup.Path = getEnv("KINTREE_BACKUP_PATH", cfg.Backup.Path)
	cfg.Backup.Verify = getEnvBool("KINTREE_BACKUP_VERIFY", cfg.Backup.Verify)
	cfg.Backup.RetentionHourly = getEnvInt("KINTREE_BACKUP_RETENTION_HOURLY", cfg.Backup.RetentionHourly)
	cfg.Backup.RetentionDaily = getEnvInt("KINTREE_BACKUP_RETENTION_DAILY", cfg.Backup.RetentionDaily)
	cfg.Backup.RetentionWeekly = getEnvInt("KINTREE_BACKUP_RETENTION_WEEKLY", cfg.Backup.RetentionWeekly)
	cfg.Backup.RetentionMonthly = getEnvInt("KINTREE_BACKUP_RETENTION_MONTHLY", cfg.Backup.RetentionMonthly)
}

// JournalDSN returns the effective journal connection string, deriving the
// default SQLite location under the data directory when unset.
func (c *Config) JournalDSN() string {
	if c.Journal.DSN != "" {
		return c.Journal.DSN
	}
	if c.Journal.Engine == "" || c.Journal.Engine == "sqlite" {
		return c.Storage.DataPath + "/journal.db"
	}
	return ""
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default
// value. It recognizes "true", "1", "yes" and "false", "0", "no".
func getEnvBool(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
		return true
	case "false", "0", "no", "False", "FALSE", "No", "NO":
		return false
	}
	return defaultValue
}
