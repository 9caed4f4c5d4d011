// Package config loads runtime settings from defaults, an optional YAML file
// and AGT_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoAPIKey is returned by RequireAPIKey when no Anthropic key is configured.
var ErrNoAPIKey = errors.New("ANTHROPIC_API_KEY is not set")

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds runtime configuration for fsagent.
type Config struct {
	SafeRoot    string `yaml:"safe_root"`      // AGT_SAFE_ROOT, default "example_dir"
	Model       string `yaml:"model"`          // AGT_MODEL
	MaxSteps    int    `yaml:"max_steps"`      // AGT_MAX_STEPS, default 20
	MaxTokens   int    `yaml:"max_tokens"`     // AGT_MAX_TOKENS, default 1024
	TokenBudget int    `yaml:"token_budget"`   // AGT_TOKEN_BUDGET, default 60000
	Addr        string `yaml:"addr"`           // AGT_ADDR, default "localhost:8000"
	LogLevel    string `yaml:"log_level"`      // AGT_LOG_LEVEL, default "info"
	LogFormat   string `yaml:"log_format"`     // AGT_LOG_FORMAT, default "console"
	StateDir    string `yaml:"state_dir"`      // AGT_STATE_DIR, default ".agent"
	AuditDB     string `yaml:"audit_db"`       // AGT_AUDIT_DB, empty disables the audit trail
	Trace       string `yaml:"trace_exporter"` // AGT_TRACE_EXPORTER: "" or "stdout"
	RateLimit   int    `yaml:"rate_limit"`     // AGT_RATE_LIMIT, /agent requests per second

	// APIKey is never read from the YAML file.
	APIKey string `yaml:"-"` // ANTHROPIC_API_KEY
}

const (
	envSafeRoot    = "AGT_SAFE_ROOT"
	envModel       = "AGT_MODEL"
	envMaxSteps    = "AGT_MAX_STEPS"
	envMaxTokens   = "AGT_MAX_TOKENS"
	envTokenBudget = "AGT_TOKEN_BUDGET"
	envAddr        = "AGT_ADDR"
	envLogLevel    = "AGT_LOG_LEVEL"
	envLogFormat   = "AGT_LOG_FORMAT"
	envStateDir    = "AGT_STATE_DIR"
	envAuditDB     = "AGT_AUDIT_DB"
	envTrace       = "AGT_TRACE_EXPORTER"
	envRateLimit   = "AGT_RATE_LIMIT"
	envAPIKey      = "ANTHROPIC_API_KEY"
)

// Default returns the built-in settings.
func Default() Config {
	return Config{
		SafeRoot:    "example_dir",
		MaxSteps:    20,
		MaxTokens:   1024,
		TokenBudget: 60000,
		Addr:        "localhost:8000",
		LogLevel:    "info",
		LogFormat:   "console",
		StateDir:    ".agent",
		RateLimit:   10,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: config file %s is a directory", ErrInvalid, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(data))))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	setStr := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) error {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, key, v)
		}
		*dst = n
		return nil
	}

	setStr(&c.SafeRoot, envSafeRoot)
	setStr(&c.Model, envModel)
	setStr(&c.Addr, envAddr)
	setStr(&c.LogLevel, envLogLevel)
	setStr(&c.LogFormat, envLogFormat)
	setStr(&c.StateDir, envStateDir)
	setStr(&c.AuditDB, envAuditDB)
	setStr(&c.Trace, envTrace)
	setStr(&c.APIKey, envAPIKey)

	for _, f := range []struct {
		dst *int
		key string
	}{
		{&c.MaxSteps, envMaxSteps},
		{&c.MaxTokens, envMaxTokens},
		{&c.TokenBudget, envTokenBudget},
		{&c.RateLimit, envRateLimit},
	} {
		if err := setInt(f.dst, f.key); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks value ranges. It does not require an API key.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.SafeRoot) == "" {
		problems = append(problems, "safe_root must not be empty")
	}
	if c.MaxSteps < 1 {
		problems = append(problems, "max_steps must be at least 1")
	}
	if c.MaxTokens < 1 {
		problems = append(problems, "max_tokens must be at least 1")
	}
	if c.TokenBudget < c.MaxTokens {
		problems = append(problems, "token_budget must be at least max_tokens")
	}
	if c.RateLimit < 1 {
		problems = append(problems, "rate_limit must be at least 1")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("log_format %q must be json or console", c.LogFormat))
	}
	switch c.Trace {
	case "", "none", "stdout":
	default:
		problems = append(problems, fmt.Sprintf("trace_exporter %q must be empty or stdout", c.Trace))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// RequireAPIKey fails with ErrNoAPIKey for commands that talk to the model.
func (c Config) RequireAPIKey() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrNoAPIKey
	}
	return nil
}
