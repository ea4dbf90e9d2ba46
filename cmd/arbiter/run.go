package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"rxsentinel/arbiter/pkg/cli"
	"rxsentinel/arbiter/pkg/config"
	"rxsentinel/arbiter/pkg/evaluator"
	"rxsentinel/arbiter/pkg/evaluator/rules"
	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/orchestrator"
	"rxsentinel/arbiter/pkg/refdata"
	"rxsentinel/arbiter/pkg/rulesource"
	"rxsentinel/arbiter/pkg/server"
	"rxsentinel/arbiter/pkg/telemetry/health"
	"rxsentinel/arbiter/pkg/telemetry/metrics"
	"rxsentinel/arbiter/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbiter HTTP service",
	Long: `Start the arbiter HTTP service with the specified configuration.

The service accepts dispensing cases on /v1/cases/evaluate, runs the
applicable compliance evaluators, and records every decision to the
audit ledger before responding.

Examples:
  # Start with default config
  arbiter run

  # Start with custom config
  arbiter run --config /etc/arbiter/config.yaml

  # Override listen address
  arbiter run --listen 0.0.0.0:8443

  # Validate config without starting the service
  arbiter run --dry-run`,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the service")
}

func runService(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if err := setupLogging(cfg); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	// runCtx bounds every background worker: parameter watchers, the
	// chain monitor, and git polling all stop when the server does.
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reference data
	src, err := openRefdata(runCtx, cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer src.Close()
	fmt.Printf("✓ Reference data ready (%s backend)\n", cfg.Refdata.Backend)

	// Audit ledger
	store, err := openLedgerStore(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	led := ledger.New(store, ledger.WithLogger(slog.Default()))
	defer led.Close()
	fmt.Printf("✓ Audit ledger open (%s backend)\n", cfg.Ledger.Backend)

	// Telemetry
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()
	if tracer.Enabled() {
		fmt.Println("✓ Tracing enabled")
	}

	// Evaluator registry
	holder, err := installRegistry(runCtx, cfg, src)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	reg := holder.Current()
	fmt.Printf("✓ Evaluator registry built (%d evaluators, version %s)\n", reg.Len(), reg.Version())

	// Scheduled chain verification
	if cfg.Ledger.VerifySchedule != "" {
		monitorOpts := []ledger.MonitorOption{ledger.WithMonitorLogger(slog.Default())}
		if collector != nil {
			monitorOpts = append(monitorOpts, ledger.WithResultHook(func(r *ledger.VerifyResult) {
				collector.UpdateChainStatus(r.Intact, r.Checked)
				if r.Intact {
					collector.RecordVerification("intact")
				} else {
					collector.RecordVerification("broken")
				}
			}))
		}
		monitor := ledger.NewMonitor(led, cfg.Ledger.VerifySchedule, monitorOpts...)
		if err := monitor.Start(runCtx); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer monitor.Stop()
		fmt.Printf("✓ Chain monitor scheduled (%s)\n", cfg.Ledger.VerifySchedule)
	}

	// Health probes
	checker := health.New(&cfg.Telemetry.Health)
	checker.RegisterCheck("ledger", health.LedgerCheck(led))
	checker.RegisterCheck("refdata", health.RefdataCheck(src))
	checker.RegisterCheck("registry", health.RegistryCheck(holder))

	// Orchestrator
	orchOpts := []orchestrator.Option{orchestrator.WithLogger(slog.Default())}
	if collector != nil {
		orchOpts = append(orchOpts, orchestrator.WithMetrics(collector))
	}
	if tracer.Enabled() {
		orchOpts = append(orchOpts, orchestrator.WithTracer(tracer))
	}
	orch, err := orchestrator.New(cfg.Orchestrator, holder, led, orchOpts...)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	// HTTP server
	serverOpts := []server.Option{
		server.WithLogger(slog.Default()),
		server.WithHealth(checker),
		server.WithVersion(health.VersionInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		}),
	}
	if collector != nil {
		serverOpts = append(serverOpts, server.WithMetrics(collector))
	}
	srv, err := server.New(cfg, orch, led, serverOpts...)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	scheme := "http"
	if cfg.Security.TLS.Enabled {
		scheme = "https"
	}
	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Evaluate endpoint: %s://%s/v1/cases/evaluate\n", scheme, cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: %s://%s%s\n", scheme, cfg.Server.ListenAddress, cfg.Telemetry.Health.LivenessPath)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: %s://%s%s\n", scheme, cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Start blocks until a signal, a Stop call, or a listener error.
	if err := srv.Start(runCtx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}

// installRegistry builds the evaluator registry from the configured
// parameter source and returns the holder that carries it. Depending on
// configuration it also starts the git source or the params file
// watcher, both of which swap rebuilt registries into the holder.
func installRegistry(ctx context.Context, cfg *config.Config, src refdata.Source) (*evaluator.Holder, error) {
	if cfg.Rules.Git.Enabled {
		holder := evaluator.NewHolder(nil)
		apply := func(params rules.Params, commit rulesource.CommitInfo) error {
			reg, err := rules.BuildRegistry(params, src)
			if err != nil {
				return err
			}
			holder.Swap(reg)
			slog.Info("evaluator registry installed",
				"version", reg.Version(),
				"commit", commit.SHA,
			)
			return nil
		}

		gitSrc, err := rulesource.New(&cfg.Rules.Git, apply, rulesource.WithLogger(slog.Default()))
		if err != nil {
			return nil, err
		}
		if err := gitSrc.Start(ctx); err != nil {
			return nil, err
		}
		go func() {
			<-ctx.Done()
			if err := gitSrc.Stop(); err != nil {
				slog.Warn("git rule source stop failed", "error", err)
			}
		}()
		return holder, nil
	}

	reg, err := rules.BuildRegistry(cfg.Rules.Params, src)
	if err != nil {
		return nil, err
	}
	holder := evaluator.NewHolder(reg)

	if cfg.Rules.Watch && cfg.Rules.ParamsFile != "" {
		watcher, err := config.NewParamsWatcher(cfg.Rules.ParamsFile, cfg.Rules.WatchDebounce, slog.Default())
		if err != nil {
			return nil, err
		}
		onReload := func(params rules.Params) error {
			next, err := rules.BuildRegistry(params, src)
			if err != nil {
				return err
			}
			holder.Swap(next)
			slog.Info("evaluator registry installed", "version", next.Version())
			return nil
		}
		go func() {
			if err := watcher.Watch(ctx, onReload); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("params watcher stopped", "error", err)
			}
		}()
	}
	return holder, nil
}

func printBanner(cfg *config.Config) {
	fmt.Printf("RxSentinel Arbiter v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	switch {
	case cfg.Rules.Git.Enabled:
		slog.Debug("rule parameters", "source", "git", "repository", cfg.Rules.Git.Repository)
	case cfg.Rules.ParamsFile != "":
		slog.Debug("rule parameters", "source", "file", "path", cfg.Rules.ParamsFile, "watch", cfg.Rules.Watch)
	default:
		slog.Debug("rule parameters", "source", "inline")
	}

	if cfg.Ledger.VerifySchedule != "" {
		slog.Debug("chain verification scheduled", "schedule", cfg.Ledger.VerifySchedule)
	}
}
