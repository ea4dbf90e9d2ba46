package config

import (
	"time"

	"rxsentinel/arbiter/pkg/evaluator/rules"
)

// Config is the root configuration structure for the arbiter service.
// It is loaded from YAML with environment variable overrides.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Orchestrator contains evaluation run configuration.
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Rules contains evaluator parameter configuration.
	Rules RulesConfig `yaml:"rules"`

	// Refdata contains reference data backend configuration.
	Refdata RefdataConfig `yaml:"refdata"`

	// Ledger contains audit ledger configuration.
	Ledger LedgerConfig `yaml:"ledger"`

	// Telemetry contains logging, metrics, tracing, and health configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Security contains TLS and authentication configuration.
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" or ":port"
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request on a
	// keep-alive connection.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is how long to wait for in-flight requests during
	// graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// OrchestratorConfig contains evaluation run configuration.
type OrchestratorConfig struct {
	// MaxConcurrent bounds the number of evaluators running in parallel
	// within one case evaluation.
	// Default: runtime.GOMAXPROCS(0)
	MaxConcurrent int `yaml:"max_concurrent"`

	// RunDeadline is the shared deadline for one full evaluation run.
	// Default: 30s
	RunDeadline time.Duration `yaml:"run_deadline"`

	// RetryFloor is the minimum sub-deadline granted to a retried
	// evaluator. Default: 1s
	RetryFloor time.Duration `yaml:"retry_floor"`

	// LedgerWrite contains retry configuration for the decision append.
	LedgerWrite LedgerWriteConfig `yaml:"ledger_write"`
}

// LedgerWriteConfig controls the backoff loop around the audit append
// that commits a decision.
type LedgerWriteConfig struct {
	// Attempts is the total number of append attempts.
	// Default: 3
	Attempts int `yaml:"attempts"`

	// BaseDelay is the delay before the first retry; it doubles after
	// each failure.
	// Default: 100ms
	BaseDelay time.Duration `yaml:"base_delay"`

	// MaxDelay caps the backoff delay.
	// Default: 5s
	MaxDelay time.Duration `yaml:"max_delay"`
}

// RulesConfig contains evaluator parameter configuration.
//
// Parameters may come from three places, in order of precedence: a git
// repository (when Git.Enabled), a standalone params file (ParamsFile),
// or the Params block inline in the main config file.
type RulesConfig struct {
	// Params holds evaluator thresholds inline. Ignored when ParamsFile
	// or Git is set.
	Params rules.Params `yaml:"params"`

	// ParamsFile is the path to a standalone YAML file holding a
	// rules.Params document. When set, the file is loaded at startup
	// and replaces the inline block.
	ParamsFile string `yaml:"params_file"`

	// Watch enables reloading parameters when ParamsFile changes.
	// Reloads are applied atomically; a file that fails validation
	// leaves the running registry untouched.
	// Default: false
	Watch bool `yaml:"watch"`

	// WatchDebounce is the quiet period before a file change triggers a
	// reload.
	// Default: 500ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// Git configures a version-controlled parameter source.
	Git GitConfig `yaml:"git"`
}

// GitConfig contains git-backed rule parameter configuration.
type GitConfig struct {
	// Enabled controls whether parameters are pulled from a git
	// repository instead of ParamsFile.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Repository is the git repository URL (https or ssh).
	// Required when Enabled is true.
	Repository string `yaml:"repository"`

	// Branch is the branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path is the path to the params file within the repository.
	// Default: "params.yaml"
	Path string `yaml:"path"`

	// Auth contains authentication configuration for the repository.
	Auth GitAuthConfig `yaml:"auth"`

	// Poll contains polling configuration for detecting new commits.
	Poll GitPollConfig `yaml:"poll"`

	// Clone contains local clone configuration.
	Clone GitCloneConfig `yaml:"clone"`
}

// GitAuthConfig contains git authentication configuration.
type GitAuthConfig struct {
	// Type is the authentication method.
	// Options: "none", "token", "ssh"
	// Default: "none"
	Type string `yaml:"type"`

	// Token is the personal access token (for "token" auth).
	// Prefer the ARBITER_RULES_GIT_TOKEN environment variable over
	// placing the token in the config file.
	Token string `yaml:"token,omitempty"`

	// SSHKeyPath is the path to the SSH private key (for "ssh" auth).
	SSHKeyPath string `yaml:"ssh_key_path,omitempty"`

	// SSHKeyPassphrase is the passphrase for the SSH key, if any.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase,omitempty"`
}

// GitPollConfig contains git polling configuration.
type GitPollConfig struct {
	// Enabled controls whether the repository is polled for new
	// commits.
	// Default: true when Git.Enabled
	Enabled bool `yaml:"enabled"`

	// Interval is the time between polls.
	// Default: 60s
	Interval time.Duration `yaml:"interval"`

	// Timeout bounds a single fetch.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// GitCloneConfig contains local clone configuration.
type GitCloneConfig struct {
	// Depth is the clone depth. Zero means full history.
	// Default: 1
	Depth int `yaml:"depth"`

	// LocalPath is where the repository is cloned.
	// Default: "data/rules-repo"
	LocalPath string `yaml:"local_path"`

	// CleanOnStart removes any existing clone before cloning fresh.
	// Default: false
	CleanOnStart bool `yaml:"clean_on_start"`
}

// RefdataConfig contains reference data backend configuration.
type RefdataConfig struct {
	// Backend selects the lookup source.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains configuration for the sqlite backend.
	SQLite RefdataSQLiteConfig `yaml:"sqlite"`

	// SeedFile is an optional YAML file of licenses, DEA registrations,
	// and state rules loaded into the memory backend at startup.
	SeedFile string `yaml:"seed_file,omitempty"`
}

// RefdataSQLiteConfig contains SQLite settings for the refdata backend.
type RefdataSQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/refdata.db"
	Path string `yaml:"path"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// LedgerConfig contains audit ledger configuration.
type LedgerConfig struct {
	// Backend selects the ledger store.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains configuration for the sqlite store.
	SQLite LedgerSQLiteConfig `yaml:"sqlite"`

	// VerifySchedule is a cron expression for periodic chain
	// verification. Empty disables the monitor.
	// Default: "0 3 * * *" (daily at 3 AM)
	VerifySchedule string `yaml:"verify_schedule"`

	// Query contains pagination settings for audit reads.
	Query QueryConfig `yaml:"query"`

	// Export contains export formatting settings.
	Export ExportConfig `yaml:"export"`
}

// LedgerSQLiteConfig contains SQLite settings for the ledger store.
type LedgerSQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/ledger.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// QueryConfig contains pagination settings for audit reads.
type QueryConfig struct {
	// DefaultLimit is the page size when the caller does not specify
	// one.
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit is the hard ceiling on one page.
	// Default: 500
	MaxLimit int `yaml:"max_limit"`
}

// ExportConfig contains export formatting settings.
type ExportConfig struct {
	// JSONPretty enables indented JSON output.
	// Default: true
	JSONPretty bool `yaml:"json_pretty"`

	// CSVIncludeHeader enables the CSV header row.
	// Default: true
	CSVIncludeHeader bool `yaml:"csv_include_header"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check endpoint configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes the source file and line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPHI enables redaction of patient-identifying values in log
	// output.
	// Default: true
	RedactPHI bool `yaml:"redact_phi"`

	// RedactPatterns is a list of additional redaction patterns applied
	// to log attribute values.
	RedactPatterns []RedactPatternConfig `yaml:"redact_patterns,omitempty"`
}

// RedactPatternConfig defines one log redaction pattern.
type RedactPatternConfig struct {
	// Name identifies the pattern in configuration errors.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the text substituted for each match.
	// Default: "[REDACTED]"
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "arbiter"
	Namespace string `yaml:"namespace"`

	// Subsystem is the optional metric name infix.
	Subsystem string `yaml:"subsystem,omitempty"`

	// DecisionDurationBuckets are histogram buckets for full evaluation
	// runs, in seconds.
	DecisionDurationBuckets []float64 `yaml:"decision_duration_buckets,omitempty"`

	// EvaluatorDurationBuckets are histogram buckets for single
	// evaluator runs, in seconds.
	EvaluatorDurationBuckets []float64 `yaml:"evaluator_duration_buckets,omitempty"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether traces are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ServiceName is the service name reported on spans.
	// Default: "arbiter"
	ServiceName string `yaml:"service_name"`

	// Sampler selects the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of evaluations sampled when Sampler
	// is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// OTLP contains OTLP exporter settings.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter settings.
type OTLPConfig struct {
	// Insecure disables transport security for the exporter connection.
	// Default: true (development default; set false in production)
	Insecure bool `yaml:"insecure"`

	// Timeout bounds a single export batch.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the liveness probe path.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness probe path.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds a single readiness check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// SecurityConfig contains TLS and authentication configuration.
type SecurityConfig struct {
	// TLS contains TLS configuration for the server.
	TLS TLSConfig `yaml:"tls"`

	// Authentication contains API key authentication configuration.
	Authentication AuthenticationConfig `yaml:"authentication"`
}

// TLSConfig contains TLS configuration.
type TLSConfig struct {
	// Enabled controls whether TLS is enabled for the server.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the TLS certificate file.
	// Required when Enabled is true.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the TLS private key file.
	// Required when Enabled is true.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum TLS version to accept.
	// Options: "1.2", "1.3"
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`
}

// AuthenticationConfig contains API key authentication configuration.
type AuthenticationConfig struct {
	// Enabled controls whether requests must carry a valid API key.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// HeaderName is the request header checked for the key.
	// Default: "X-API-Key"
	HeaderName string `yaml:"header_name"`

	// APIKeys is the list of accepted keys. Comparison is
	// constant-time.
	APIKeys []string `yaml:"api_keys"`
}
