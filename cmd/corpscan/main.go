package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/app"
	"github.com/ternarybob/corpscan/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles configPaths // Multiple -config flags supported
	seedsFile   = flag.String("seeds", "", "YAML seed file (overrides config)")
	outputDir   = flag.String("out", "", "Output directory (overrides config)")
	maxRecords  = flag.Int("max", 0, "Maximum records to process (overrides config)")
	resumeRunID = flag.String("resume", "", "Resume a checkpointed run by id; \"latest\" picks the most recent")
	render      = flag.Bool("render", false, "Render pages through a headless browser")
	withInsight = flag.Bool("insights", false, "Generate portfolio insights with the configured text generator")
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	defer common.RecoverWithCrashFile()

	flag.Parse()

	version := common.LoadVersionFromFile()
	if *showVersion {
		fmt.Println(common.GetFullVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		for _, candidate := range []string{"corpscan.toml", "deployments/local/corpscan.toml"} {
			if _, err := os.Stat(candidate); err == nil {
				configFiles = append(configFiles, candidate)
				break
			}
		}
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> .env -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Merge seed file and validate, before any network activity
	// 4. Initialize logger and print banner
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, common.FlagOverrides{
		SeedsFile:  *seedsFile,
		OutputDir:  *outputDir,
		MaxRecords: *maxRecords,
		Resume:     *resumeRunID,
		Render:     *render,
		Insights:   *withInsight,
	})

	logger := common.InitLogger(config)

	if err := config.LoadSeeds(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load seed file")
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	common.PrintBanner(version, config)

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Str("schedule", config.Schedule).
		Str("output_dir", config.Sink.OutputDir).
		Strs("formats", config.Sink.Formats).
		Int("max_records", config.Pipeline.MaxRecords).
		Msg("Application configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	if config.Pipeline.ResumeRunID == "latest" {
		latest, err := application.Checkpoints.Latest(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("No checkpoint to resume")
			os.Exit(1)
		}
		application.SetResume(latest.RunID)
	}

	if config.Schedule != "" {
		runScheduled(ctx, application, config.Schedule, logger)
		return
	}

	// deferred calls do not run on os.Exit
	code := runOnce(ctx, application, logger)
	application.Close()
	stop()
	os.Exit(code)
}

// runOnce processes a single batch and returns the process exit code
func runOnce(ctx context.Context, application *app.App, logger arbor.ILogger) int {
	result, err := application.RunOnce(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		if result != nil {
			logger.Warn().
				Str("run_id", result.RunID).
				Int("records", len(result.Records)).
				Msg("Interrupted; partial results saved. Resume with -resume " + result.RunID)
		}
		return 130
	case err != nil:
		logger.Error().Err(err).Msg("Batch failed")
		return 1
	}

	logger.Info().
		Str("run_id", result.RunID).
		Int("records", len(result.Records)).
		Int("failed", result.Stats.Failed).
		Msg("Batch finished")
	return 0
}

// runScheduled runs batches on the cron schedule until interrupted
func runScheduled(ctx context.Context, application *app.App, schedule string, logger arbor.ILogger) {
	if err := application.Scheduler.Start(ctx, schedule); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
		os.Exit(1)
	}

	logger.Info().Str("schedule", schedule).Msg("Scheduler running - Press Ctrl+C to stop")
	<-ctx.Done()

	logger.Info().Msg("Interrupt signal received, waiting for the running batch to flush")
	if err := application.Scheduler.Stop(); err != nil {
		logger.Error().Err(err).Msg("Scheduler shutdown failed")
	}
	logger.Info().Msg("Stopped")
}
