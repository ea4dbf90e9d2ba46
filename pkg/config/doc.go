// Package config loads, validates, and serves the arbiter's runtime
// configuration.
//
// Configuration is a YAML document layered under environment overrides.
// Defaults fill first, the file overrides them, ARBITER_* environment
// variables override the file, and the merged result is validated
// before anything sees it. A configuration that fails validation is
// never installed.
//
// # Loading
//
//	cfg, err := config.LoadConfig("arbiter.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("arbiter.yaml")
//
// Environment names follow ARBITER_SECTION_FIELD:
//
//   - ARBITER_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - ARBITER_LEDGER_SQLITE_PATH overrides ledger.sqlite.path
//   - ARBITER_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Process-wide access
//
// The service and the one-shot commands share one installed
// configuration:
//
//	if err := config.Initialize(cfgFile); err != nil {
//		return err
//	}
//	cfg := config.GetConfig()
//
// Initialize is first-load-wins and safe to retry after a failed load.
// Tests that need isolation should pass Config values explicitly and
// reset the installed configuration with SetConfig(nil).
//
// # Evaluator parameters
//
// Evaluator thresholds live in a rules.Params block, either inline
// under the rules section or in a standalone file named by
// rules.params_file. The standalone form supports hot reload: a Watcher
// observes the file and hands each validated revision to the caller,
// which rebuilds the evaluator registry and swaps it in atomically
// between runs.
//
// # Example
//
//	server:
//	  listen_address: "127.0.0.1:8080"
//
//	ledger:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/ledger.db"
//
//	refdata:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/refdata.db"
//
//	rules:
//	  params_file: "params.yaml"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
