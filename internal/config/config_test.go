package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/kgbuilder/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Build, cfg.Build)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 1536, cfg.Embedding.Dim)
	assert.Equal(t, "bolt", cfg.Cache.Type)
	assert.Equal(t, 30*24*time.Hour, cfg.Cache.TTL)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
build:
  use_brand: false
  add_node_ids: true
storage:
  type: postgres
  dsn: postgres://kg:secret@db:5432/kg
neo4j:
  enabled: true
  batch_size: large
  tx_timeout: 5m
embedding:
  provider: compatible
  base_url: http://localhost:8080/v1
  model: bge-small
  dim: 384
cache:
  type: redis
  ttl: 2h
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Build.UseBrand)
	assert.True(t, cfg.Build.UseCategory)
	assert.True(t, cfg.Build.AddNodeIDs)
	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, "postgres://kg:secret@db:5432/kg", cfg.Storage.DSN)
	assert.Equal(t, "pgx", cfg.Storage.Driver)
	assert.True(t, cfg.Neo4j.Enabled)
	assert.Equal(t, "large", cfg.Neo4j.BatchSize)
	assert.Equal(t, 5*time.Minute, cfg.Neo4j.TxTimeout)
	assert.Equal(t, "compatible", cfg.Embedding.Provider)
	assert.Equal(t, 384, cfg.Embedding.Dim)
	assert.Equal(t, 64, cfg.Embedding.BatchSize)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KGBUILDER_STORAGE_TYPE", "postgres")
	t.Setenv("KGBUILDER_EMBEDDING_DIM", "256")
	t.Setenv("NEO4J_PASSWORD", "hunter2")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("KGBUILDER_EMBEDDING_PROVIDER", "gemini")

	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, 256, cfg.Embedding.Dim)
	assert.Equal(t, "hunter2", cfg.Neo4j.Password)
	assert.Equal(t, "gem-key", cfg.Embedding.APIKey)
}

func TestLoadMalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "storage: [unterminated\n"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Build.UseCategory = false
	cfg.Embedding.Dim = 64
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, cfg.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.False(t, loaded.Build.UseCategory)
	assert.Equal(t, 64, loaded.Embedding.Dim)
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Neo4j.Password = "hunter2"
	cfg.Embedding.APIKey = "sk-123"
	cfg.Storage.DSN = "postgres://kg:secret@db:5432/kg"

	red := cfg.Redacted()
	assert.Equal(t, "********", red.Neo4j.Password)
	assert.Equal(t, "********", red.Embedding.APIKey)
	assert.Equal(t, "postgres://kg:********@db:5432/kg", red.Storage.DSN)
	assert.Empty(t, red.Cache.RedisPassword)
	assert.Equal(t, "hunter2", cfg.Neo4j.Password)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Embedding.APIKey = "sk-test"
		return cfg
	}

	tests := []struct {
		name    string
		ctx     ValidationContext
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults build", ctx: ValidationContextBuild, mutate: func(*Config) {}},
		{name: "defaults all", ctx: ValidationContextAll, mutate: func(*Config) {}},
		{
			name:    "unknown storage",
			ctx:     ValidationContextMerge,
			mutate:  func(c *Config) { c.Storage.Type = "mongo" },
			wantErr: "storage.type",
		},
		{
			name:    "postgres without dsn",
			ctx:     ValidationContextBuild,
			mutate:  func(c *Config) { c.Storage.Type = "postgres" },
			wantErr: "storage.dsn",
		},
		{
			name: "postgres bad driver",
			ctx:  ValidationContextBuild,
			mutate: func(c *Config) {
				c.Storage.Type = "postgres"
				c.Storage.DSN = "postgres://db/kg"
				c.Storage.Driver = "odbc"
			},
			wantErr: "storage.driver",
		},
		{
			name:    "neo4j enabled without password",
			ctx:     ValidationContextBuild,
			mutate:  func(c *Config) { c.Neo4j.Enabled = true },
			wantErr: "NEO4J_PASSWORD",
		},
		{
			name: "neo4j bad scheme",
			ctx:  ValidationContextBuild,
			mutate: func(c *Config) {
				c.Neo4j.Enabled = true
				c.Neo4j.Password = "s3cret"
				c.Neo4j.URI = "http://localhost:7474"
			},
			wantErr: "unsupported scheme",
		},
		{
			name: "neo4j negative tx timeout",
			ctx:  ValidationContextBuild,
			mutate: func(c *Config) {
				c.Neo4j.Enabled = true
				c.Neo4j.Password = "s3cret"
				c.Neo4j.TxTimeout = -time.Second
			},
			wantErr: "neo4j.tx_timeout",
		},
		{
			name:    "missing api key",
			ctx:     ValidationContextEmbed,
			mutate:  func(c *Config) { c.Embedding.APIKey = "" },
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "unknown provider",
			ctx:     ValidationContextEmbed,
			mutate:  func(c *Config) { c.Embedding.Provider = "cohere" },
			wantErr: "embedding.provider",
		},
		{
			name:    "compatible without base url",
			ctx:     ValidationContextEmbed,
			mutate:  func(c *Config) { c.Embedding.Provider = "compatible" },
			wantErr: "embedding.base_url",
		},
		{
			name:    "zero dim",
			ctx:     ValidationContextEmbed,
			mutate:  func(c *Config) { c.Embedding.Dim = 0 },
			wantErr: "embedding.dim",
		},
		{
			name:    "unknown cache",
			ctx:     ValidationContextEmbed,
			mutate:  func(c *Config) { c.Cache.Type = "memcached" },
			wantErr: "cache.type",
		},
		{
			name:    "unknown context",
			ctx:     "deploy",
			mutate:  func(*Config) {},
			wantErr: "unknown validation context",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			result := cfg.Validate(tt.ctx)

			if tt.wantErr == "" {
				assert.False(t, result.HasErrors(), result.Error())
				assert.NoError(t, result.Err())
				return
			}
			require.True(t, result.HasErrors())
			assert.Contains(t, result.Error(), tt.wantErr)
			assert.Equal(t, errors.ErrorTypeConfig, errors.GetType(result.Err()))
		})
	}
}
