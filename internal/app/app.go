// -----------------------------------------------------------------------
// App - wires configuration, storage and services into a batch runner
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/common"
	"github.com/ternarybob/corpscan/internal/interfaces"
	"github.com/ternarybob/corpscan/internal/pipeline"
	"github.com/ternarybob/corpscan/internal/services/discovery"
	"github.com/ternarybob/corpscan/internal/services/extractor"
	"github.com/ternarybob/corpscan/internal/services/fetcher"
	"github.com/ternarybob/corpscan/internal/services/insights"
	"github.com/ternarybob/corpscan/internal/services/scheduler"
	"github.com/ternarybob/corpscan/internal/services/sink"
	"github.com/ternarybob/corpscan/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB          *badger.BadgerDB
	Checkpoints interfaces.CheckpointStore

	// Retrieval
	Fetcher   interfaces.PageFetcher
	renderer  *fetcher.Renderer // set when pages are rendered through a browser
	Extractor *extractor.Extractor
	Discovery *discovery.Engine

	// Output
	Sink     *sink.MultiSink
	Insights *insights.Service

	Runner    *pipeline.Runner
	Scheduler *scheduler.Service

	mu       sync.Mutex
	resumeID string // consumed by the first batch only
}

// New initializes the application with all dependencies
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config:   cfg,
		Logger:   logger,
		resumeID: cfg.Pipeline.ResumeRunID,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info().
		Bool("render", cfg.Browser.Enabled).
		Bool("fetch_details", cfg.Pipeline.FetchDetails).
		Int("parallelism", cfg.Pipeline.Parallelism).
		Str("sinks", app.Sink.Name()).
		Bool("insights", app.Insights != nil).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initDatabase() error {
	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db
	a.Checkpoints = badger.NewCheckpointStorage(db, a.Logger)
	return nil
}

func (a *App) initServices(ctx context.Context) error {
	cfg := a.Config

	// 1. Fetcher: plain HTTP, or a scripted browser when rendering is enabled
	if cfg.Browser.Enabled {
		factory := func() (interfaces.Browser, error) {
			return fetcher.NewChromeBrowser(cfg.Browser, cfg.Fetcher.UserAgent, cfg.Fetcher.Headers, a.Logger)
		}
		a.renderer = fetcher.NewRenderer(
			factory,
			fetcher.RenderOptionsFromConfig(cfg.Browser, cfg.Fetcher),
			fetcher.PolicyFromConfig(cfg.Fetcher),
			a.Logger,
		)
		a.Fetcher = a.renderer
		a.Logger.Debug().Msg("Rendered fetcher initialized")
	} else {
		a.Fetcher = fetcher.NewClient(cfg.Fetcher, a.Logger)
		a.Logger.Debug().Msg("HTTP fetcher initialized")
	}

	// 2. Extraction and discovery
	hint := extractor.ShapeHint(cfg.Extractor.ShapeHint)
	a.Extractor = extractor.NewExtractor(extractor.Options{
		MinFields: cfg.Extractor.MinFields,
		Filter:    extractor.ListingFilter{AddressContains: cfg.Extractor.AddressContains},
	}, a.Logger)
	a.Discovery = discovery.NewEngine(a.Fetcher, a.Extractor, cfg.Discovery, hint, a.Logger)

	// 3. Sinks
	multi, err := sink.NewFromConfig(cfg.Sink, a.Logger)
	if err != nil {
		return err
	}
	a.Sink = multi

	// 4. Insights are best-effort: a provider that cannot start disables them
	if cfg.Pipeline.Insights {
		generator, err := insights.NewTextGenerator(ctx, cfg, a.Logger)
		switch {
		case err != nil:
			a.Logger.Warn().Err(err).Msg("Text generator unavailable, insights disabled")
		case generator == nil:
			a.Logger.Info().Msg("No text generation provider configured, insights disabled")
		default:
			a.Insights = insights.NewService(generator, a.Logger)
			a.Logger.Info().Str("provider", generator.Name()).Msg("Insights enabled")
		}
	}

	// 5. Batch driver
	a.Runner = pipeline.NewRunner(
		a.Fetcher,
		a.Extractor,
		a.Checkpoints,
		a.Sink,
		a.Insights,
		pipeline.OptionsFromConfig(cfg.Pipeline),
		a.Logger,
	)
	a.Scheduler = scheduler.NewService(func(ctx context.Context) error {
		_, err := a.RunOnce(ctx)
		return err
	}, a.Logger)

	return nil
}

// SetResume makes the next batch resume the given run
func (a *App) SetResume(runID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resumeID = runID
}

// RunOnce discovers locators from the configured seeds and processes them as
// one batch. The configured resume run id applies to the first batch only.
func (a *App) RunOnce(ctx context.Context) (*pipeline.Result, error) {
	found, err := a.Discovery.Discover(ctx, a.Config.Seeds, a.Config.Discovery.MaxLocators)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	a.mu.Lock()
	runID := a.resumeID
	a.resumeID = ""
	a.mu.Unlock()

	return a.Runner.Run(ctx, pipeline.Input{
		RunID:    runID,
		Locators: found.Locators,
		Listings: found.Listings,
		Sources:  found.Sources,
	})
}

// Close releases the browser and the database
func (a *App) Close() error {
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if a.renderer != nil {
		if err := a.renderer.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close browser")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		a.Logger.Info().Msg("Database closed")
	}
	return nil
}
