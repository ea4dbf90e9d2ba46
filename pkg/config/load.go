package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"rxsentinel/arbiter/pkg/evaluator/rules"
)

// LoadConfig reads and validates the configuration file at path.
// Defaults fill any field the file omits. Environment variables are not
// consulted; LoadConfigWithEnvOverrides layers those on top.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// A standalone params file replaces the inline block before defaults
	// fill anything in.
	if cfg.Rules.ParamsFile != "" {
		params, err := LoadParamsFile(cfg.Rules.ParamsFile)
		if err != nil {
			return nil, err
		}
		cfg.Rules.Params = params
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads the configuration file and then
// applies ARBITER_SECTION_FIELD environment overrides on top of it. The
// merged result is validated again, so an override can never install a
// configuration the file alone would have rejected.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// LoadParamsFile loads a rules.Params document from a standalone YAML
// file. The document is validated before it is returned, so a bad file
// can never reach a registry build.
func LoadParamsFile(path string) (rules.Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return rules.Params{}, fmt.Errorf("failed to read params file %q: %w", path, err)
	}

	params := rules.Defaults()
	if err := yaml.Unmarshal(data, &params); err != nil {
		return rules.Params{}, fmt.Errorf("failed to parse params file %q: %w", path, err)
	}
	if err := params.Validate(); err != nil {
		return rules.Params{}, fmt.Errorf("params file %q: %w", path, err)
	}
	return params, nil
}

// applyEnvOverrides copies set ARBITER_* environment variables into
// cfg. Unset variables leave the field alone; values that do not parse
// are skipped rather than zeroing a loaded field.
func applyEnvOverrides(cfg *Config) {
	envString("ARBITER_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("ARBITER_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("ARBITER_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("ARBITER_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	envInt("ARBITER_ORCHESTRATOR_MAX_CONCURRENT", &cfg.Orchestrator.MaxConcurrent)
	envDuration("ARBITER_ORCHESTRATOR_RUN_DEADLINE", &cfg.Orchestrator.RunDeadline)

	envString("ARBITER_RULES_PARAMS_FILE", &cfg.Rules.ParamsFile)
	envBool("ARBITER_RULES_WATCH", &cfg.Rules.Watch)
	envBool("ARBITER_RULES_GIT_ENABLED", &cfg.Rules.Git.Enabled)
	envString("ARBITER_RULES_GIT_REPOSITORY", &cfg.Rules.Git.Repository)
	envString("ARBITER_RULES_GIT_BRANCH", &cfg.Rules.Git.Branch)
	// A token implies token auth; setting only the token would otherwise
	// leave the auth type mismatched.
	if val := os.Getenv("ARBITER_RULES_GIT_TOKEN"); val != "" {
		cfg.Rules.Git.Auth.Type = "token"
		cfg.Rules.Git.Auth.Token = val
	}

	envString("ARBITER_REFDATA_BACKEND", &cfg.Refdata.Backend)
	envString("ARBITER_REFDATA_SQLITE_PATH", &cfg.Refdata.SQLite.Path)

	envString("ARBITER_LEDGER_BACKEND", &cfg.Ledger.Backend)
	envString("ARBITER_LEDGER_SQLITE_PATH", &cfg.Ledger.SQLite.Path)
	envString("ARBITER_LEDGER_VERIFY_SCHEDULE", &cfg.Ledger.VerifySchedule)

	envString("ARBITER_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("ARBITER_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("ARBITER_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("ARBITER_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("ARBITER_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("ARBITER_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envFloat("ARBITER_TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)

	envBool("ARBITER_SECURITY_TLS_ENABLED", &cfg.Security.TLS.Enabled)
	envString("ARBITER_SECURITY_TLS_CERT_FILE", &cfg.Security.TLS.CertFile)
	envString("ARBITER_SECURITY_TLS_KEY_FILE", &cfg.Security.TLS.KeyFile)
	envBool("ARBITER_SECURITY_AUTH_ENABLED", &cfg.Security.Authentication.Enabled)
	// Keys from the environment extend the configured set instead of
	// replacing it.
	if val := os.Getenv("ARBITER_SECURITY_AUTH_API_KEY"); val != "" {
		cfg.Security.Authentication.APIKeys = append(cfg.Security.Authentication.APIKeys, val)
	}
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
