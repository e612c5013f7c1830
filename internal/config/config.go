// Package config loads auraflow settings from YAML with environment overrides.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "AURAFLOW_"

// DefaultPath is read when no --config flag is given. A missing default file is not an error.
const DefaultPath = "auraflow.yaml"

// Oracle backends.
const (
	BackendGollm = "gollm"
	BackendEino  = "eino"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config is the root of auraflow.yaml.
type Config struct {
	Sandbox  SandboxConfig  `yaml:"sandbox"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
}

// SandboxConfig controls where artifacts are written and how long commands may run.
type SandboxConfig struct {
	Root    string            `yaml:"root"`
	Timeout time.Duration     `yaml:"timeout"`
	Env     map[string]string `yaml:"env"`
}

// OracleConfig selects and configures the language model backend.
type OracleConfig struct {
	Backend     string  `yaml:"backend"`
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// PipelineConfig tunes the generate/verify loop.
type PipelineConfig struct {
	// MaxRepairRounds caps repair rounds after the first generation. Zero means unbounded.
	MaxRepairRounds int    `yaml:"max_repair_rounds"`
	VerifyCommand   string `yaml:"verify_command"`
}

// StoreConfig selects the checkpoint backend.
type StoreConfig struct {
	Backend     string        `yaml:"backend"`
	Path        string        `yaml:"path"`
	RedisURL    string        `yaml:"redis_url"`
	RedisPrefix string        `yaml:"redis_prefix"`
	TTL         time.Duration `yaml:"ttl"`
	// Lock enables the redis distributed lock around session creation.
	Lock    bool          `yaml:"lock"`
	LockTTL time.Duration `yaml:"lock_ttl"`
	// EncryptionKey enables AES-256-GCM checkpoint encryption. Base64 of 32 bytes.
	EncryptionKey string `yaml:"encryption_key"`
	// FallbackKeys are older keys still accepted for decryption.
	FallbackKeys []string `yaml:"fallback_keys"`
	// Redact masks credential-looking text before checkpoints are written.
	Redact         bool     `yaml:"redact"`
	RedactPatterns []string `yaml:"redact_patterns"`
}

// Keys decodes the encryption keys. The active key is nil when encryption is off.
func (s StoreConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		return nil, nil, nil
	}
	if active, err = decodeKey(s.EncryptionKey); err != nil {
		return nil, nil, fmt.Errorf("store.encryption_key: %w", err)
	}
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// ServerConfig configures the HTTP and MCP servers.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	AllowedOrigin string `yaml:"allowed_origin"`
	MCPPort       int    `yaml:"mcp_port"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Sandbox: SandboxConfig{
			Root:    "sandbox",
			Timeout: 30 * time.Second,
		},
		Oracle: OracleConfig{
			Backend:     BackendGollm,
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.1,
			MaxTokens:   4096,
		},
		Pipeline: PipelineConfig{
			VerifyCommand: "python test_script.py",
		},
		Store: StoreConfig{
			Backend: StoreFile,
			Path:    filepath.Join(".auraflow", "sessions"),
			LockTTL: 30 * time.Second,
			Redact:  true,
		},
		Server: ServerConfig{
			Addr:          ":8000",
			AllowedOrigin: "*",
			MCPPort:       8080,
		},
	}
}

// Load reads path over the defaults and then applies environment overrides.
// If path is empty, DefaultPath is tried and silently skipped when absent.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from AURAFLOW_* variables resolved through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("SANDBOX_ROOT", &c.Sandbox.Root)
	dur("SANDBOX_TIMEOUT", &c.Sandbox.Timeout)

	str("ORACLE_BACKEND", &c.Oracle.Backend)
	str("ORACLE_PROVIDER", &c.Oracle.Provider)
	str("ORACLE_MODEL", &c.Oracle.Model)
	str("ORACLE_API_KEY", &c.Oracle.APIKey)
	str("ORACLE_BASE_URL", &c.Oracle.BaseURL)
	if v, ok := lookup(EnvPrefix + "ORACLE_TEMPERATURE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sORACLE_TEMPERATURE: %w", EnvPrefix, err))
		} else {
			c.Oracle.Temperature = f
		}
	}

	num("MAX_REPAIR_ROUNDS", &c.Pipeline.MaxRepairRounds)
	str("VERIFY_COMMAND", &c.Pipeline.VerifyCommand)

	str("STORE_BACKEND", &c.Store.Backend)
	str("STORE_PATH", &c.Store.Path)
	str("REDIS_URL", &c.Store.RedisURL)
	str("REDIS_PREFIX", &c.Store.RedisPrefix)
	dur("STORE_TTL", &c.Store.TTL)
	str("ENCRYPTION_KEY", &c.Store.EncryptionKey)
	if v, ok := lookup(EnvPrefix + "STORE_LOCK"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSTORE_LOCK: %w", EnvPrefix, err))
		} else {
			c.Store.Lock = b
		}
	}

	str("SERVER_ADDR", &c.Server.Addr)
	str("ALLOWED_ORIGIN", &c.Server.AllowedOrigin)
	num("MCP_PORT", &c.Server.MCPPort)

	return errors.Join(errs...)
}

// Validate rejects unknown backends and non-positive durations.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Sandbox.Root) == "" {
		errs = append(errs, errors.New("sandbox.root cannot be empty"))
	}
	if c.Sandbox.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("sandbox.timeout must be positive, got %s", c.Sandbox.Timeout))
	}

	switch c.Oracle.Backend {
	case BackendGollm, BackendEino:
	default:
		errs = append(errs, fmt.Errorf("unknown oracle.backend %q (want %s or %s)", c.Oracle.Backend, BackendGollm, BackendEino))
	}

	if c.Pipeline.MaxRepairRounds < 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_repair_rounds cannot be negative, got %d", c.Pipeline.MaxRepairRounds))
	}

	switch c.Store.Backend {
	case StoreMemory, StoreFile:
	case StoreRedis:
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("store.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}
	if c.Store.TTL < 0 {
		errs = append(errs, fmt.Errorf("store.ttl cannot be negative, got %s", c.Store.TTL))
	}
	if _, _, err := c.Store.Keys(); err != nil {
		errs = append(errs, err)
	}
	if c.Store.Lock && c.Store.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("store.lock_ttl must be positive, got %s", c.Store.LockTTL))
	}

	return errors.Join(errs...)
}
