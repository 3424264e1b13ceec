// Package config loads pipeline configuration from the environment. The
// pipeline is a batch job launched by a scheduler or a human, so there is no
// config file surface: everything, secrets included, arrives as environment
// variables. Missing required variables are reported by name before any I/O
// happens.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/nobodyclimb/crag-sync/pkg/apperrors"
)

// Config holds all configuration for crag-sync.
type Config struct {
	// Env tags which deployment the run targets. Recorded in logs and the
	// audit trail actor field.
	Env string `env:"ENVIRONMENT" env-default:"preview"`

	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	Sheets   SheetsConfig
	Database DatabaseConfig
	Snapshot SnapshotConfig
	Sync     SyncConfig
}

// SheetsConfig identifies the source spreadsheet and the service-account
// credentials used to read and write it.
type SheetsConfig struct {
	SpreadsheetID   string `env:"SHEETS_SPREADSHEET_ID"`
	CredentialsFile string `env:"SHEETS_CREDENTIALS_FILE"`
}

// DatabaseConfig holds the target relational store connection settings.
type DatabaseConfig struct {
	URL            string `env:"DATABASE_URL"` // Secret - environment only
	MaxConnections int32  `env:"DATABASE_MAX_CONNECTIONS" env-default:"5"`
	MigrationsDir  string `env:"MIGRATIONS_DIR" env-default:"migrations"`
}

// SnapshotConfig points at the legacy JSON export used by the one-shot
// bootstrap migration.
type SnapshotConfig struct {
	Dir string `env:"SNAPSHOT_DIR" env-default:"data/crags"`
}

// SyncConfig holds run tunables.
type SyncConfig struct {
	// Timeout bounds the whole run; hitting it is a fatal abort.
	Timeout time.Duration `env:"SYNC_TIMEOUT" env-default:"5m"`

	// Store batch write retry knobs.
	MaxRetries   int           `env:"SYNC_MAX_RETRIES" env-default:"3"`
	RetryDelay   time.Duration `env:"SYNC_RETRY_DELAY" env-default:"100ms"`
	RetryMaxWait time.Duration `env:"SYNC_RETRY_MAX_WAIT" env-default:"5s"`
}

// Needs declares which external collaborators a command requires, so each
// command can fail fast on exactly the variables it depends on.
type Needs struct {
	Sheets   bool
	Database bool
	Snapshot bool
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, nil
}

// Validate checks that everything the invoked command needs is present.
// Every missing variable is named in the error, not just the first.
func (c *Config) Validate(needs Needs) error {
	var missing []string

	if needs.Sheets {
		if c.Sheets.SpreadsheetID == "" {
			missing = append(missing, "SHEETS_SPREADSHEET_ID")
		}
		if c.Sheets.CredentialsFile == "" {
			missing = append(missing, "SHEETS_CREDENTIALS_FILE")
		}
	}
	if needs.Database {
		if c.Database.URL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	}
	if needs.Snapshot {
		if c.Snapshot.Dir == "" {
			missing = append(missing, "SNAPSHOT_DIR")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}
