package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken string `env:"DISCORD_TOKEN"`

	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`

	// Storage behaviour
	StorageTimeout       time.Duration `env:"STORAGE_TIMEOUT, default=5s"`
	StorageRetryAttempts int           `env:"STORAGE_RETRY_ATTEMPTS, default=5"`

	// Permission configuration
	MasterIDs []int64 `env:"MASTER_IDS"`

	// Economy configuration
	StartingBalance   int64         `env:"STARTING_BALANCE, default=1000"`
	MaxTheftAmount    int64         `env:"MAX_THEFT_AMOUNT, default=500"`
	DailySalary       int64         `env:"DAILY_SALARY, default=100"`
	SalaryCooldown    time.Duration `env:"SALARY_COOLDOWN, default=24h"`
	InvestmentMinimum int64         `env:"INVESTMENT_MINIMUM, default=100"`

	// Conversation sessions
	SessionTTL time.Duration `env:"SESSION_TTL, default=15m"`

	// Notification delivery
	NotifyWorkers     int    `env:"NOTIFY_WORKERS, default=4"`
	NotifyQueueSize   int    `env:"NOTIFY_QUEUE_SIZE, default=256"`
	NATSURL           string `env:"NATS_URL"`
	AnnounceChannelID string `env:"ANNOUNCE_CHANNEL_ID"` // broadcasts go here on Discord

	// Metrics endpoint, empty disables it
	MetricsAddr string `env:"METRICS_ADDR, default=:9090"`

	// Environment
	Environment string `env:"ENVIRONMENT, default=development"` // "development", "production" or "test"
	LogLevel    string `env:"LOG_LEVEL, default=info"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load(context.Background(), envconfig.OsLookuper())
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load reads configuration from the given lookuper
func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Environment != "test" {
		if c.DiscordToken == "" {
			return fmt.Errorf("DISCORD_TOKEN is required")
		}
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	}
	if c.MaxTheftAmount <= 0 {
		return fmt.Errorf("MAX_THEFT_AMOUNT must be positive, got %d", c.MaxTheftAmount)
	}
	if c.StartingBalance < 0 {
		return fmt.Errorf("STARTING_BALANCE must not be negative, got %d", c.StartingBalance)
	}
	if c.StorageRetryAttempts < 1 {
		return fmt.Errorf("STORAGE_RETRY_ATTEMPTS must be at least 1, got %d", c.StorageRetryAttempts)
	}
	if c.StorageTimeout <= 0 {
		return fmt.Errorf("STORAGE_TIMEOUT must be positive, got %s", c.StorageTimeout)
	}
	return nil
}

// IsMaster reports whether the actor is part of the deployment master set
func (c *Config) IsMaster(actorID int64) bool {
	for _, id := range c.MasterIDs {
		if id == actorID {
			return true
		}
	}
	return false
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// ConstructDatabaseURL combines a base URL with a database name, preserving query
// parameters and defaulting sslmode to disable.
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	baseURL = strings.TrimRight(baseURL, "/")
	var databaseURL string

	if strings.Contains(baseURL, "?") {
		parts := strings.SplitN(baseURL, "?", 2)
		databaseURL = fmt.Sprintf("%s/%s?%s", parts[0], databaseName, parts[1])
	} else {
		databaseURL = fmt.Sprintf("%s/%s", baseURL, databaseName)
	}

	if !strings.Contains(databaseURL, "sslmode=") {
		separator := "&"
		if !strings.Contains(databaseURL, "?") {
			separator = "?"
		}
		databaseURL = fmt.Sprintf("%s%ssslmode=disable", databaseURL, separator)
	}

	return databaseURL
}

// MigrationDatabaseURL builds the migration URL straight from the environment so
// that migrations do not require a Discord token.
func MigrationDatabaseURL() string {
	return ConstructDatabaseURL(os.Getenv("DATABASE_URL"), os.Getenv("DATABASE_NAME"))
}

// SetTestConfig sets a test configuration instance
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:          "test",
		LogLevel:             "debug",
		MasterIDs:            []int64{999999},
		StartingBalance:      1000,
		MaxTheftAmount:       500,
		DailySalary:          100,
		SalaryCooldown:       24 * time.Hour,
		InvestmentMinimum:    100,
		StorageTimeout:       5 * time.Second,
		StorageRetryAttempts: 3,
		SessionTTL:           15 * time.Minute,
		NotifyWorkers:        1,
		NotifyQueueSize:      16,
	}
}
