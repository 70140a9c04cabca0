package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/feral-file/ff-claims-checker/internal/domain"
	"github.com/feral-file/ff-claims-checker/internal/traits"
)

const SERVICE_NAME = "claims-checker"

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// NATSConfig holds NATS JetStream configuration; an empty URL disables change notifications
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// DatasetConfig holds the location of the scraper output
type DatasetConfig struct {
	Path string `mapstructure:"path"`
}

// ClaimsConfig holds claims persistence configuration
type ClaimsConfig struct {
	Backend string `mapstructure:"backend"` // file or postgres
	Dir     string `mapstructure:"dir"`     // output directory of the file backend
}

// AliasConfig maps a raw trait_type to a canonical category
type AliasConfig struct {
	TraitType string `mapstructure:"trait_type"`
	Category  string `mapstructure:"category"`
}

// CatalogConfig overrides the built-in trait universes
type CatalogConfig struct {
	Songs   []string      `mapstructure:"songs"`
	Frames  []string      `mapstructure:"frames"`
	Aliases []AliasConfig `mapstructure:"aliases"`
}

// RetryConfig holds the write retry policy applied after a failed run
type RetryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

// SchedulerConfig holds configuration of the schedule command
type SchedulerConfig struct {
	Schedule   string        `mapstructure:"schedule"`
	RunTimeout time.Duration `mapstructure:"run_timeout"`
	RunOnStart bool          `mapstructure:"run_on_start"`
}

// ClaimsCheckerConfig holds configuration for claims-checker
type ClaimsCheckerConfig struct {
	BaseConfig     `mapstructure:",squash"`
	Dataset        DatasetConfig   `mapstructure:"dataset"`
	Claims         ClaimsConfig    `mapstructure:"claims"`
	Database       DatabaseConfig  `mapstructure:"database"`
	NATS           NATSConfig      `mapstructure:"nats"`
	Catalog        CatalogConfig   `mapstructure:"catalog"`
	Retry          RetryConfig     `mapstructure:"retry"`
	Scheduler      SchedulerConfig `mapstructure:"scheduler"`
	Contracts      []string        `mapstructure:"contracts"`
	ConditionsPath string          `mapstructure:"conditions_path"`
	Concurrency    int             `mapstructure:"concurrency"`
}

// LoadClaimsCheckerConfig loads configuration for claims-checker
func LoadClaimsCheckerConfig(configFile string, envPath string) (*ClaimsCheckerConfig, error) {
	v := configureViper(SERVICE_NAME, configFile, envPath)

	// Set defaults
	v.SetDefault("dataset.path", "output/addressTokenIds.json")
	v.SetDefault("claims.backend", "file")
	v.SetDefault("claims.dir", "output")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.connection_name", SERVICE_NAME)
	v.SetDefault("retry.initial_interval", "2s")
	v.SetDefault("retry.max_interval", "30s")
	v.SetDefault("retry.max_elapsed_time", "5m")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("scheduler.schedule", "0 */15 * * * *")
	v.SetDefault("scheduler.run_timeout", "10m")
	v.SetDefault("concurrency", 8)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var cfg ClaimsCheckerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required fields
func (c *ClaimsCheckerConfig) Validate() error {
	if c.Dataset.Path == "" {
		return errors.New("dataset.path is required")
	}

	switch c.Claims.Backend {
	case "file":
		if c.Claims.Dir == "" {
			return errors.New("claims.dir is required for the file backend")
		}
	case "postgres":
		if c.Database.Host == "" {
			return errors.New("database.host is required for the postgres backend")
		}
		if c.Database.DBName == "" {
			return errors.New("database.dbname is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown claims.backend %q", c.Claims.Backend)
	}

	if c.Concurrency < 0 {
		return errors.New("concurrency must not be negative")
	}

	for _, alias := range c.Catalog.Aliases {
		if !domain.IsValidCategory(domain.TraitCategory(alias.Category)) {
			return fmt.Errorf("catalog alias %q has unknown category %q", alias.TraitType, alias.Category)
		}
	}

	return nil
}

// CatalogOptions converts the catalog overrides into trait catalog options
func (c *CatalogConfig) CatalogOptions() []traits.Option {
	var opts []traits.Option
	if len(c.Songs) > 0 {
		opts = append(opts, traits.WithValues(domain.CategorySong, c.Songs))
	}
	if len(c.Frames) > 0 {
		opts = append(opts, traits.WithValues(domain.CategoryFrame, c.Frames))
	}
	for _, alias := range c.Aliases {
		opts = append(opts, traits.WithAlias(alias.TraitType, domain.TraitCategory(alias.Category)))
	}
	return opts
}

// conditionsFile is the document shape of a conditions file; a bare list is accepted too
type conditionsFile struct {
	Conditions []domain.Condition `yaml:"conditions"`
}

// LoadConditions reads conditions from a YAML or JSON file.
// An empty path returns the built-in defaults.
func LoadConditions(path string) ([]domain.Condition, error) {
	if path == "" {
		return domain.DefaultConditions(), nil
	}

	data, err := os.ReadFile(path) //nolint:gosec,G304 // This should be a trusted file
	if err != nil {
		return nil, fmt.Errorf("failed to read conditions file: %w", err)
	}

	conditions, err := ParseConditions(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse conditions file %s: %w", path, err)
	}

	return conditions, nil
}

// ParseConditions decodes and validates a conditions document
func ParseConditions(data []byte) ([]domain.Condition, error) {
	var conditions []domain.Condition

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, errors.New("conditions document is empty")
	}

	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		if err := node.Content[0].Decode(&conditions); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var doc conditionsFile
		if err := node.Content[0].Decode(&doc); err != nil {
			return nil, err
		}
		conditions = doc.Conditions
	default:
		return nil, errors.New("conditions document must be a list or an object with a conditions key")
	}

	if len(conditions) == 0 {
		return nil, errors.New("conditions document has no conditions")
	}

	seen := make(map[int]bool, len(conditions))
	for i, c := range conditions {
		c = c.Normalize()
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		if seen[c.ClaimIndex] {
			return nil, fmt.Errorf("condition %d: %w: duplicate claimIndex %d", i, domain.ErrInvalidCondition, c.ClaimIndex)
		}
		seen[c.ClaimIndex] = true
		conditions[i] = c
	}

	return conditions, nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/claims-checker/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("FF_CLAIMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Dataset
		"dataset.path",
		// Claims
		"claims.backend",
		"claims.dir",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// NATS
		"nats.url",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		// Catalog
		"catalog.songs",
		"catalog.frames",
		// Retry
		"retry.enabled",
		"retry.initial_interval",
		"retry.max_interval",
		"retry.max_elapsed_time",
		"retry.multiplier",
		// Scheduler
		"scheduler.schedule",
		"scheduler.run_timeout",
		"scheduler.run_on_start",
		// Run
		"contracts",
		"conditions_path",
		"concurrency",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
