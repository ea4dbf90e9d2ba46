package config

import (
	"testing"
	"time"

	"rxsentinel/arbiter/pkg/evaluator/rules"
)

func rulesParamsWith(maxRefills int) rules.Params {
	p := rules.Defaults()
	p.Refill.MaxRefills = maxRefills
	return p
}

func TestApplyDefaults_ZeroConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("listen address = %q, want %q", cfg.Server.ListenAddress, DefaultListenAddress)
	}
	if cfg.Orchestrator.MaxConcurrent < 1 {
		t.Errorf("max concurrent = %d, want at least 1", cfg.Orchestrator.MaxConcurrent)
	}
	if cfg.Orchestrator.LedgerWrite.Attempts != DefaultLedgerWriteAttempts {
		t.Errorf("ledger write attempts = %d, want %d", cfg.Orchestrator.LedgerWrite.Attempts, DefaultLedgerWriteAttempts)
	}
	if cfg.Rules.Params.IsZero() {
		t.Error("rules params must default to the packaged set")
	}
	if cfg.Ledger.SQLite.Path != DefaultLedgerSQLitePath {
		t.Errorf("ledger path = %q, want %q", cfg.Ledger.SQLite.Path, DefaultLedgerSQLitePath)
	}
	if !cfg.Ledger.SQLite.WALMode {
		t.Error("WAL mode must default to true")
	}
	if cfg.Ledger.VerifySchedule != DefaultLedgerVerifySchedule {
		t.Errorf("verify schedule = %q, want %q", cfg.Ledger.VerifySchedule, DefaultLedgerVerifySchedule)
	}
	if !cfg.Telemetry.Logging.RedactPHI {
		t.Error("PHI redaction must default to true")
	}
	if cfg.Telemetry.Tracing.Enabled {
		t.Error("tracing must default to disabled")
	}
	if cfg.Security.TLS.MinVersion != DefaultTLSMinVersion {
		t.Errorf("TLS min version = %q, want %q", cfg.Security.TLS.MinVersion, DefaultTLSMinVersion)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.ListenAddress = ":9999"
	cfg.Orchestrator.RunDeadline = 5 * time.Second
	cfg.Ledger.Backend = "memory"
	cfg.Rules.Params = rulesParamsWith(3)

	ApplyDefaults(cfg)

	if cfg.Server.ListenAddress != ":9999" {
		t.Errorf("explicit listen address overwritten: %q", cfg.Server.ListenAddress)
	}
	if cfg.Orchestrator.RunDeadline != 5*time.Second {
		t.Errorf("explicit run deadline overwritten: %v", cfg.Orchestrator.RunDeadline)
	}
	if cfg.Ledger.Backend != "memory" {
		t.Errorf("explicit backend overwritten: %q", cfg.Ledger.Backend)
	}
	if cfg.Rules.Params.Refill.MaxRefills != 3 {
		t.Errorf("explicit params overwritten: %+v", cfg.Rules.Params.Refill)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	first := *cfg
	ApplyDefaults(cfg)

	if cfg.Server != first.Server {
		t.Error("server defaults changed on second application")
	}
	if cfg.Orchestrator != first.Orchestrator {
		t.Error("orchestrator defaults changed on second application")
	}
	if cfg.Ledger.SQLite != first.Ledger.SQLite {
		t.Error("ledger defaults changed on second application")
	}
}

func TestApplyDefaults_GitPollEnabledWithGit(t *testing.T) {
	cfg := &Config{}
	cfg.Rules.Git.Enabled = true
	ApplyDefaults(cfg)

	if !cfg.Rules.Git.Poll.Enabled {
		t.Error("polling must default on when git is enabled")
	}
	if cfg.Rules.Git.Branch != DefaultGitBranch {
		t.Errorf("git branch = %q, want %q", cfg.Rules.Git.Branch, DefaultGitBranch)
	}
	if cfg.Rules.Git.Clone.LocalPath != DefaultGitCloneLocalPath {
		t.Errorf("clone path = %q, want %q", cfg.Rules.Git.Clone.LocalPath, DefaultGitCloneLocalPath)
	}
}
