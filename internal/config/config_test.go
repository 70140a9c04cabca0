package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-claims-checker/internal/domain"
	"github.com/feral-file/ff-claims-checker/internal/traits"
)

func TestLoadClaimsCheckerConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		env         map[string]string
		expectError string
		validate    func(*testing.T, *ClaimsCheckerConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
dataset:
  path: "data/addressTokenIds.json"
claims:
  backend: postgres
  dir: "out"
database:
  host: localhost
  port: 5433
  user: testuser
  password: testpass
  dbname: claims
  sslmode: require
nats:
  url: "nats://localhost:4222"
  max_reconnects: 5
  reconnect_wait: "5s"
catalog:
  songs: ["A", "B"]
  frames: ["Red"]
  aliases:
    - trait_type: "Daddy's Colors"
      category: Frame
retry:
  enabled: true
  initial_interval: "1s"
scheduler:
  schedule: "@hourly"
  run_on_start: true
contracts:
  - "0xABC"
  - "0xDEF"
conditions_path: "conditions.yaml"
concurrency: 3
`,
			validate: func(t *testing.T, cfg *ClaimsCheckerConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "data/addressTokenIds.json", cfg.Dataset.Path)
				assert.Equal(t, "postgres", cfg.Claims.Backend)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, "host=localhost port=5433 user=testuser password=testpass dbname=claims sslmode=require", cfg.Database.DSN())
				assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
				assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
				assert.Equal(t, []string{"A", "B"}, cfg.Catalog.Songs)
				assert.Equal(t, []AliasConfig{{TraitType: "Daddy's Colors", Category: "Frame"}}, cfg.Catalog.Aliases)
				assert.True(t, cfg.Retry.Enabled)
				assert.Equal(t, time.Second, cfg.Retry.InitialInterval)
				assert.Equal(t, 30*time.Second, cfg.Retry.MaxInterval)
				assert.Equal(t, "@hourly", cfg.Scheduler.Schedule)
				assert.True(t, cfg.Scheduler.RunOnStart)
				assert.Equal(t, []string{"0xABC", "0xDEF"}, cfg.Contracts)
				assert.Equal(t, "conditions.yaml", cfg.ConditionsPath)
				assert.Equal(t, 3, cfg.Concurrency)
			},
		},
		{
			name:       "defaults without config file",
			configFile: "",
			validate: func(t *testing.T, cfg *ClaimsCheckerConfig) {
				assert.False(t, cfg.Debug)
				assert.Equal(t, "output/addressTokenIds.json", cfg.Dataset.Path)
				assert.Equal(t, "file", cfg.Claims.Backend)
				assert.Equal(t, "output", cfg.Claims.Dir)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 10, cfg.NATS.MaxReconnects)
				assert.Equal(t, "claims-checker", cfg.NATS.ConnectionName)
				assert.Empty(t, cfg.NATS.URL)
				assert.Equal(t, 5*time.Minute, cfg.Retry.MaxElapsedTime)
				assert.Equal(t, 2.0, cfg.Retry.Multiplier)
				assert.Equal(t, "0 */15 * * * *", cfg.Scheduler.Schedule)
				assert.Equal(t, 10*time.Minute, cfg.Scheduler.RunTimeout)
				assert.Equal(t, 8, cfg.Concurrency)
				assert.Empty(t, cfg.Contracts)
			},
		},
		{
			name: "environment overrides file",
			configFile: `
claims:
  dir: "from-file"
`,
			env: map[string]string{
				"FF_CLAIMS_CLAIMS_DIR":  "from-env",
				"FF_CLAIMS_CONCURRENCY": "1",
				"FF_CLAIMS_CONTRACTS":   "0xaaa,0xbbb",
			},
			validate: func(t *testing.T, cfg *ClaimsCheckerConfig) {
				assert.Equal(t, "from-env", cfg.Claims.Dir)
				assert.Equal(t, 1, cfg.Concurrency)
				assert.Equal(t, []string{"0xaaa", "0xbbb"}, cfg.Contracts)
			},
		},
		{
			name: "postgres backend requires database",
			configFile: `
claims:
  backend: postgres
`,
			expectError: "database.host is required",
		},
		{
			name: "unknown backend",
			configFile: `
claims:
  backend: s3
`,
			expectError: "unknown claims.backend",
		},
		{
			name: "alias with unknown category",
			configFile: `
catalog:
  aliases:
    - trait_type: Mood
      category: Feeling
`,
			expectError: "unknown category",
		},
		{
			name: "invalid value",
			configFile: `
concurrency: many
`,
			expectError: "failed to unmarshal config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			configFile := filepath.Join(tmpDir, "nonexistent.yaml")
			if tt.configFile != "" {
				configFile = filepath.Join(tmpDir, "config.yaml")
				require.NoError(t, os.WriteFile(configFile, []byte(tt.configFile), 0600))
			}

			cfg, err := LoadClaimsCheckerConfig(configFile, tmpDir)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.validate(t, cfg)
		})
	}
}

func TestLoadClaimsCheckerConfig_EnvFiles(t *testing.T) {
	tmpDir := t.TempDir()
	// registers cleanup for the variables godotenv sets
	t.Setenv("FF_CLAIMS_DATASET_PATH", "")
	t.Setenv("FF_CLAIMS_CLAIMS_DIR", "")

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".env"),
		[]byte("FF_CLAIMS_DATASET_PATH=base.json\nFF_CLAIMS_CLAIMS_DIR=base-out\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".env.claims-checker.local"),
		[]byte("FF_CLAIMS_CLAIMS_DIR=local-out\n"), 0600))

	cfg, err := LoadClaimsCheckerConfig(filepath.Join(tmpDir, "nonexistent.yaml"), tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "base.json", cfg.Dataset.Path)
	assert.Equal(t, "local-out", cfg.Claims.Dir)
}

func TestCatalogOptions(t *testing.T) {
	cfg := CatalogConfig{
		Frames:  []string{"Red", "Blue"},
		Aliases: []AliasConfig{{TraitType: "Border", Category: "Frame"}},
	}

	catalog := traits.New(cfg.CatalogOptions()...)
	assert.Equal(t, []string{"Red", "Blue"}, catalog.CanonicalValues(domain.CategoryFrame))
	assert.Equal(t, traits.DefaultSongs, catalog.CanonicalValues(domain.CategorySong))
	assert.Equal(t, domain.CategoryFrame, catalog.Canonicalize("Border"))
	assert.Equal(t, domain.CategoryFrame, catalog.Canonicalize("Colors"))
}

func TestParseConditions(t *testing.T) {
	tests := []struct {
		name        string
		document    string
		expectError string
		validate    func(*testing.T, []domain.Condition)
	}{
		{
			name: "yaml list",
			document: `
- requiresOneSongAllColors: true
  claimIndex: 1
  quantity: 1
- ifCategory: Frame
  mustHaveCategory: Song
  allSongsOneColor: true
  requiredTokenIds: [1, 2]
  minTokenQuantity: 3
  claimIndex: 2
  quantity: 2
`,
			validate: func(t *testing.T, conditions []domain.Condition) {
				require.Len(t, conditions, 2)
				assert.Equal(t, domain.CategorySong, conditions[0].IfCategory)
				assert.Equal(t, domain.CategoryFrame, conditions[0].MustHaveCategory)
				assert.Equal(t, []uint64{1, 2}, conditions[1].RequiredTokenIDs)
				require.NotNil(t, conditions[1].MinTokenQuantity)
				assert.Equal(t, 3, *conditions[1].MinTokenQuantity)
				assert.Equal(t, 2, conditions[1].Quantity)
			},
		},
		{
			name:     "json object with conditions key",
			document: `{"conditions": [{"ifCategory": "Song", "mustHaveCategory": "Frame", "requiresOneSongAllColors": true, "claimIndex": 1, "quantity": 1}]}`,
			validate: func(t *testing.T, conditions []domain.Condition) {
				assert.Equal(t, domain.DefaultConditions()[:1], conditions)
			},
		},
		{
			name:     "holding rule",
			document: `[{"minTokenQuantity": 10, "claimIndex": 3, "quantity": 1}]`,
			validate: func(t *testing.T, conditions []domain.Condition) {
				assert.False(t, conditions[0].RequiresCoverage())
			},
		},
		{
			name:        "both coverage flags",
			document:    `[{"requiresOneSongAllColors": true, "allSongsOneColor": true, "claimIndex": 1}]`,
			expectError: "invalid condition",
		},
		{
			name:        "duplicate claim index",
			document:    `[{"requiresOneSongAllColors": true, "claimIndex": 1}, {"allSongsOneColor": true, "claimIndex": 1}]`,
			expectError: "duplicate claimIndex",
		},
		{
			name:        "empty list",
			document:    `[]`,
			expectError: "no conditions",
		},
		{
			name:        "scalar document",
			document:    `42`,
			expectError: "must be a list",
		},
		{
			name:        "empty document",
			document:    ``,
			expectError: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conditions, err := ParseConditions([]byte(tt.document))
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			tt.validate(t, conditions)
		})
	}
}

func TestLoadConditions(t *testing.T) {
	conditions, err := LoadConditions("")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultConditions(), conditions)

	_, err = LoadConditions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "conditions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- allSongsOneColor: true\n  claimIndex: 7\n  quantity: 1\n"), 0600))
	conditions, err = LoadConditions(path)
	require.NoError(t, err)
	require.Len(t, conditions, 1)
	assert.Equal(t, 7, conditions[0].ClaimIndex)
	assert.Equal(t, domain.CategoryFrame, conditions[0].IfCategory)
}
