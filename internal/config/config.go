package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL   string
	RemoteBaseURL string
	RemoteToken   string
	Organization  string // default organization slug
	OrgID         string

	PollInterval    int // seconds between pushes
	PullInterval    int // seconds between pulls
	ShutdownTimeout int // seconds
	HTTPTimeout     int // seconds per remote call

	MaxFailedAttempts      int
	FullSyncThresholdHours int
	IncrementalBufferMins  int
	MaxIncrementalRetries  int
	RetryBackoffMillis     int
	MaxCleanupDeletions    int
	SyncParallelism        int

	StatusAddr string

	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	remoteURL := os.Getenv("REMOTE_BASE_URL")
	if remoteURL == "" {
		return nil, fmt.Errorf("REMOTE_BASE_URL is required")
	}

	token := os.Getenv("REMOTE_API_TOKEN")
	if token == "" {
		fmt.Println("Warning: REMOTE_API_TOKEN not set, requests to the server will be anonymous")
	}

	cfg := &Config{
		DatabaseURL:   dbURL,
		RemoteBaseURL: remoteURL,
		RemoteToken:   token,
		Organization:  os.Getenv("SYNC_ORGANIZATION"),
		OrgID:         os.Getenv("SYNC_ORGANIZATION_ID"),
		StatusAddr:    envString("STATUS_ADDR", ":8089"),
		LogFile:       os.Getenv("LOG_FILE"),
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"POLL_INTERVAL", 30, &cfg.PollInterval},
		{"PULL_INTERVAL", 300, &cfg.PullInterval},
		{"SHUTDOWN_TIMEOUT", 30, &cfg.ShutdownTimeout},
		{"HTTP_TIMEOUT", 60, &cfg.HTTPTimeout},
		{"MAX_FAILED_ATTEMPTS", 5, &cfg.MaxFailedAttempts},
		{"FULL_SYNC_THRESHOLD_HOURS", 24, &cfg.FullSyncThresholdHours},
		{"INCREMENTAL_BUFFER_MINUTES", 45, &cfg.IncrementalBufferMins},
		{"MAX_INCREMENTAL_RETRIES", 3, &cfg.MaxIncrementalRetries},
		{"RETRY_BACKOFF_MS", 1000, &cfg.RetryBackoffMillis},
		{"MAX_CLEANUP_DELETIONS", 500, &cfg.MaxCleanupDeletions},
		{"SYNC_PARALLELISM", 4, &cfg.SyncParallelism},
		{"LOG_MAX_SIZE_MB", 10, &cfg.LogMaxSizeMB},
		{"LOG_MAX_BACKUPS", 3, &cfg.LogMaxBackups},
		{"LOG_MAX_AGE_DAYS", 28, &cfg.LogMaxAgeDays},
	}
	for _, v := range ints {
		n, err := envInt(v.key, v.def)
		if err != nil {
			return nil, err
		}
		*v.dst = n
	}

	return cfg, nil
}

func (c *Config) FullSyncThreshold() time.Duration {
	return time.Duration(c.FullSyncThresholdHours) * time.Hour
}

func (c *Config) IncrementalBuffer() time.Duration {
	return time.Duration(c.IncrementalBufferMins) * time.Minute
}

func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMillis) * time.Millisecond
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt reads a non-negative integer; unset means def
func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, raw)
	}
	return n, nil
}
