package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rohankatakam/kgbuilder/internal/errors"
)

// ValidationContext specifies what configuration is required
type ValidationContext string

const (
	// ValidationContextBuild - build needs storage, and Neo4j when export is enabled
	ValidationContextBuild ValidationContext = "build"
	// ValidationContextEmbed - embed needs storage, a provider and a cache
	ValidationContextEmbed ValidationContext = "embed"
	// ValidationContextMerge - merge needs storage only
	ValidationContextMerge ValidationContext = "merge"
	// ValidationContextAll - validate all configuration
	ValidationContextAll ValidationContext = "all"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	return sb.String()
}

// Err converts a failed result into a configuration error, or nil
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.ConfigErrorf("%s", vr.Error())
}

// Validate validates configuration for the given context
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch ctx {
	case ValidationContextBuild:
		c.validateStorage(result)
		c.validateNeo4j(result, c.Neo4j.Enabled)
	case ValidationContextEmbed:
		c.validateStorage(result)
		c.validateEmbedding(result)
		c.validateCache(result)
	case ValidationContextMerge:
		c.validateStorage(result)
	case ValidationContextAll:
		c.validateStorage(result)
		c.validateNeo4j(result, c.Neo4j.Enabled)
		c.validateEmbedding(result)
		c.validateCache(result)
	default:
		result.AddError("unknown validation context %q", ctx)
	}

	return result
}

func (c *Config) validateStorage(result *ValidationResult) {
	switch c.Storage.Type {
	case "sqlite":
		if c.Storage.Path == "" {
			result.AddError("storage.path is required for sqlite storage")
		}
	case "postgres":
		if c.Storage.DSN == "" {
			result.AddError("storage.dsn (or DATABASE_URL) is required for postgres storage")
		} else if !strings.HasPrefix(c.Storage.DSN, "postgres://") && !strings.HasPrefix(c.Storage.DSN, "postgresql://") {
			result.AddError("storage.dsn must start with postgres:// or postgresql://")
		} else if strings.Contains(c.Storage.DSN, "sslmode=disable") {
			result.AddWarning("storage.dsn has sslmode=disable")
		}
		switch c.Storage.Driver {
		case "pgx", "postgres":
		default:
			result.AddError("storage.driver must be pgx or postgres, got %q", c.Storage.Driver)
		}
	default:
		result.AddError("storage.type must be sqlite or postgres, got %q", c.Storage.Type)
	}
}

func (c *Config) validateNeo4j(result *ValidationResult, required bool) {
	if !required {
		return
	}
	if c.Neo4j.URI == "" {
		result.AddError("NEO4J_URI is required when neo4j export is enabled")
	} else if u, err := url.Parse(c.Neo4j.URI); err != nil {
		result.AddError("NEO4J_URI is invalid: %v", err)
	} else {
		switch u.Scheme {
		case "bolt", "bolt+s", "bolt+ssc", "neo4j", "neo4j+s", "neo4j+ssc":
		default:
			result.AddError("NEO4J_URI has unsupported scheme %q", u.Scheme)
		}
	}

	if c.Neo4j.User == "" {
		result.AddError("NEO4J_USER is required when neo4j export is enabled")
	}
	if c.Neo4j.Password == "" {
		result.AddError("NEO4J_PASSWORD is required when neo4j export is enabled. Set it via environment variable or .env file.")
	} else if c.Neo4j.Password == "password" || c.Neo4j.Password == "neo4j" {
		result.AddWarning("NEO4J_PASSWORD is set to a very common password (%s)", c.Neo4j.Password)
	}
	if c.Neo4j.Database == "" {
		result.AddWarning("NEO4J_DATABASE is not set, will use 'neo4j' as default")
	}

	switch c.Neo4j.BatchSize {
	case "", "small", "default", "large":
	default:
		result.AddError("neo4j.batch_size must be small, default or large, got %q", c.Neo4j.BatchSize)
	}
	if c.Neo4j.TxTimeout < 0 {
		result.AddError("neo4j.tx_timeout must not be negative, got %s", c.Neo4j.TxTimeout)
	}
}

func (c *Config) validateEmbedding(result *ValidationResult) {
	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.APIKey == "" {
			result.AddError("OPENAI_API_KEY is required for the openai embedding provider")
		}
	case "gemini":
		if c.Embedding.APIKey == "" {
			result.AddError("GEMINI_API_KEY is required for the gemini embedding provider")
		}
	case "compatible":
		if c.Embedding.BaseURL == "" {
			result.AddError("embedding.base_url is required for the compatible embedding provider")
		} else if _, err := url.ParseRequestURI(c.Embedding.BaseURL); err != nil {
			result.AddError("embedding.base_url is invalid: %v", err)
		}
		if c.Embedding.Model == "" {
			result.AddError("embedding.model is required for the compatible embedding provider")
		}
	default:
		result.AddError("embedding.provider must be openai, compatible or gemini, got %q", c.Embedding.Provider)
	}

	if c.Embedding.Dim <= 0 {
		result.AddError("embedding.dim must be positive, got %d", c.Embedding.Dim)
	}
	if c.Embedding.BatchSize <= 0 {
		result.AddWarning("embedding.batch_size is invalid, will use default (64)")
	}
	if c.Embedding.Concurrency <= 0 {
		result.AddWarning("embedding.concurrency is invalid, will use 1")
	}
	if c.Embedding.RequestsPerSecond < 0 {
		result.AddError("embedding.requests_per_second must not be negative")
	}
}

func (c *Config) validateCache(result *ValidationResult) {
	switch c.Cache.Type {
	case "none":
	case "bolt":
		if c.Cache.Path == "" {
			result.AddError("cache.path is required for the bolt cache")
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			result.AddError("cache.redis_addr is required for the redis cache")
		}
		if c.Cache.TTL < 0 {
			result.AddError("cache.ttl must not be negative")
		}
	default:
		result.AddError("cache.type must be bolt, redis or none, got %q", c.Cache.Type)
	}
}
