package config

import (
	"runtime"
	"time"

	"rxsentinel/arbiter/pkg/evaluator/rules"
)

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Orchestrator defaults
	DefaultRunDeadline          = 30 * time.Second
	DefaultRetryFloor           = time.Second
	DefaultLedgerWriteAttempts  = 3
	DefaultLedgerWriteBaseDelay = 100 * time.Millisecond
	DefaultLedgerWriteMaxDelay  = 5 * time.Second

	// Rules defaults
	DefaultRulesWatchDebounce = 500 * time.Millisecond
	DefaultGitBranch          = "main"
	DefaultGitPath            = "params.yaml"
	DefaultGitAuthType        = "none"
	DefaultGitPollInterval    = 60 * time.Second
	DefaultGitPollTimeout     = 30 * time.Second
	DefaultGitCloneDepth      = 1
	DefaultGitCloneLocalPath  = "data/rules-repo"

	// Refdata defaults
	DefaultRefdataBackend           = "sqlite"
	DefaultRefdataSQLitePath        = "data/refdata.db"
	DefaultRefdataSQLiteBusyTimeout = 5 * time.Second

	// Ledger defaults
	DefaultLedgerBackend            = "sqlite"
	DefaultLedgerSQLitePath         = "data/ledger.db"
	DefaultLedgerSQLiteMaxOpenConns = 10
	DefaultLedgerSQLiteMaxIdleConns = 5
	DefaultLedgerSQLiteWALMode      = true
	DefaultLedgerSQLiteBusyTimeout  = 5 * time.Second
	DefaultLedgerVerifySchedule     = "0 3 * * *"
	DefaultLedgerQueryDefaultLimit  = 100
	DefaultLedgerQueryMaxLimit      = 500
	DefaultLedgerExportJSONPretty   = true
	DefaultLedgerExportCSVHeader    = true

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultLoggingRedactPHI   = true
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "arbiter"
	DefaultTracingEnabled     = false
	DefaultTracingService     = "arbiter"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultOTLPTimeout        = 10 * time.Second
	DefaultHealthEnabled      = true
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultHealthCheckTimeout = 5 * time.Second

	// Security defaults
	DefaultTLSMinVersion = "1.3"
	DefaultAuthHeader    = "X-API-Key"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Orchestrator defaults
	if cfg.Orchestrator.MaxConcurrent == 0 {
		cfg.Orchestrator.MaxConcurrent = runtime.GOMAXPROCS(0)
	}
	if cfg.Orchestrator.RunDeadline == 0 {
		cfg.Orchestrator.RunDeadline = DefaultRunDeadline
	}
	if cfg.Orchestrator.RetryFloor == 0 {
		cfg.Orchestrator.RetryFloor = DefaultRetryFloor
	}
	if cfg.Orchestrator.LedgerWrite.Attempts == 0 {
		cfg.Orchestrator.LedgerWrite.Attempts = DefaultLedgerWriteAttempts
	}
	if cfg.Orchestrator.LedgerWrite.BaseDelay == 0 {
		cfg.Orchestrator.LedgerWrite.BaseDelay = DefaultLedgerWriteBaseDelay
	}
	if cfg.Orchestrator.LedgerWrite.MaxDelay == 0 {
		cfg.Orchestrator.LedgerWrite.MaxDelay = DefaultLedgerWriteMaxDelay
	}

	// Rules defaults. An all-zero inline params block means the caller
	// gave none, so the packaged defaults apply.
	if cfg.Rules.Params.IsZero() {
		cfg.Rules.Params = rules.Defaults()
	}
	if cfg.Rules.WatchDebounce == 0 {
		cfg.Rules.WatchDebounce = DefaultRulesWatchDebounce
	}
	if cfg.Rules.Git.Branch == "" {
		cfg.Rules.Git.Branch = DefaultGitBranch
	}
	if cfg.Rules.Git.Path == "" {
		cfg.Rules.Git.Path = DefaultGitPath
	}
	if cfg.Rules.Git.Auth.Type == "" {
		cfg.Rules.Git.Auth.Type = DefaultGitAuthType
	}
	if cfg.Rules.Git.Enabled && !cfg.Rules.Git.Poll.Enabled {
		cfg.Rules.Git.Poll.Enabled = true
	}
	if cfg.Rules.Git.Poll.Interval == 0 {
		cfg.Rules.Git.Poll.Interval = DefaultGitPollInterval
	}
	if cfg.Rules.Git.Poll.Timeout == 0 {
		cfg.Rules.Git.Poll.Timeout = DefaultGitPollTimeout
	}
	if cfg.Rules.Git.Clone.Depth == 0 {
		cfg.Rules.Git.Clone.Depth = DefaultGitCloneDepth
	}
	if cfg.Rules.Git.Clone.LocalPath == "" {
		cfg.Rules.Git.Clone.LocalPath = DefaultGitCloneLocalPath
	}

	// Refdata defaults
	if cfg.Refdata.Backend == "" {
		cfg.Refdata.Backend = DefaultRefdataBackend
	}
	if cfg.Refdata.SQLite.Path == "" {
		cfg.Refdata.SQLite.Path = DefaultRefdataSQLitePath
	}
	if cfg.Refdata.SQLite.BusyTimeout == 0 {
		cfg.Refdata.SQLite.BusyTimeout = DefaultRefdataSQLiteBusyTimeout
	}

	// Ledger defaults
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = DefaultLedgerBackend
	}
	if cfg.Ledger.SQLite.Path == "" {
		cfg.Ledger.SQLite.Path = DefaultLedgerSQLitePath
	}
	if cfg.Ledger.SQLite.MaxOpenConns == 0 {
		cfg.Ledger.SQLite.MaxOpenConns = DefaultLedgerSQLiteMaxOpenConns
	}
	if cfg.Ledger.SQLite.MaxIdleConns == 0 {
		cfg.Ledger.SQLite.MaxIdleConns = DefaultLedgerSQLiteMaxIdleConns
	}
	if !cfg.Ledger.SQLite.WALMode {
		cfg.Ledger.SQLite.WALMode = DefaultLedgerSQLiteWALMode
	}
	if cfg.Ledger.SQLite.BusyTimeout == 0 {
		cfg.Ledger.SQLite.BusyTimeout = DefaultLedgerSQLiteBusyTimeout
	}
	if cfg.Ledger.VerifySchedule == "" {
		cfg.Ledger.VerifySchedule = DefaultLedgerVerifySchedule
	}
	if cfg.Ledger.Query.DefaultLimit == 0 {
		cfg.Ledger.Query.DefaultLimit = DefaultLedgerQueryDefaultLimit
	}
	if cfg.Ledger.Query.MaxLimit == 0 {
		cfg.Ledger.Query.MaxLimit = DefaultLedgerQueryMaxLimit
	}
	if !cfg.Ledger.Export.JSONPretty {
		cfg.Ledger.Export.JSONPretty = DefaultLedgerExportJSONPretty
	}
	if !cfg.Ledger.Export.CSVIncludeHeader {
		cfg.Ledger.Export.CSVIncludeHeader = DefaultLedgerExportCSVHeader
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if !cfg.Telemetry.Logging.RedactPHI {
		cfg.Telemetry.Logging.RedactPHI = DefaultLoggingRedactPHI
	}
	if !cfg.Telemetry.Metrics.Enabled {
		cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
	if !cfg.Telemetry.Health.Enabled {
		cfg.Telemetry.Health.Enabled = DefaultHealthEnabled
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}

	// Security defaults
	if cfg.Security.TLS.MinVersion == "" {
		cfg.Security.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Security.Authentication.HeaderName == "" {
		cfg.Security.Authentication.HeaderName = DefaultAuthHeader
	}
}
