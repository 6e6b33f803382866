// -----------------------------------------------------------------------
// Runner - drives one batch: fetch, extract, enrich, aggregate, export
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/common"
	"github.com/ternarybob/corpscan/internal/interfaces"
	"github.com/ternarybob/corpscan/internal/models"
	"github.com/ternarybob/corpscan/internal/services/extractor"
	"github.com/ternarybob/corpscan/internal/services/insights"
	"github.com/ternarybob/corpscan/internal/services/portfolio"
	"golang.org/x/sync/errgroup"
)

// Options controls batch processing
type Options struct {
	MaxRecords      int  // 0 = no limit
	FetchDetails    bool // false: listing rows are enriched without a detail fetch
	CheckpointEvery int  // processed units between checkpoints
	Parallelism     int  // >1 processes units concurrently
	Delay           time.Duration
	Jitter          time.Duration
	Insights        bool
}

// OptionsFromConfig maps pipeline configuration to runner options
func OptionsFromConfig(config common.PipelineConfig) Options {
	return Options{
		MaxRecords:      config.MaxRecords,
		FetchDetails:    config.FetchDetails,
		CheckpointEvery: config.CheckpointEvery,
		Parallelism:     config.Parallelism,
		Delay:           config.Delay,
		Jitter:          config.Jitter,
		Insights:        config.Insights,
	}
}

// Input is the work for one batch
type Input struct {
	RunID    string                           // empty starts a new run; an existing id resumes it
	Locators []string                         // detail locators from discovery
	Listings []models.CompanyRecord           // listing rows from discovery
	Sources  map[string]models.SourceMetadata // discovery provenance by locator
}

// Result is the collection a batch produced
type Result struct {
	RunID    string
	Records  []models.EnrichedRecord
	Metrics  *models.PortfolioMetrics // nil when the batch was cancelled
	Insights models.Insights
	Stats    models.RunStats
}

// Runner processes batches. Checkpoints, sink and insights are optional.
type Runner struct {
	fetcher     interfaces.PageFetcher
	extractor   *extractor.Extractor
	checkpoints interfaces.CheckpointStore
	sink        interfaces.Sink
	insights    *insights.Service
	options     Options
	logger      arbor.ILogger
	now         func() time.Time
}

// NewRunner creates a batch runner
func NewRunner(
	fetcher interfaces.PageFetcher,
	ext *extractor.Extractor,
	checkpoints interfaces.CheckpointStore,
	sink interfaces.Sink,
	insightService *insights.Service,
	options Options,
	logger arbor.ILogger,
) *Runner {
	if options.CheckpointEvery <= 0 {
		options.CheckpointEvery = 10
	}
	if options.Parallelism <= 0 {
		options.Parallelism = 1
	}
	return &Runner{
		fetcher:     fetcher,
		extractor:   ext,
		checkpoints: checkpoints,
		sink:        sink,
		insights:    insightService,
		options:     options,
		logger:      logger,
		now:         time.Now,
	}
}

// batchState is the mutable state of one Run call
type batchState struct {
	runID     string
	completed []string
	done      map[string]bool
	records   []models.EnrichedRecord
	stats     models.RunStats
	createdAt time.Time
}

func (s *batchState) apply(u unit, o outcome) {
	s.completed = append(s.completed, u.locator)
	s.done[u.locator] = true
	s.stats.Attempted++
	if o.record != nil {
		s.records = append(s.records, *o.record)
		s.stats.Succeeded++
		return
	}
	s.stats.Failed++
	if o.failure != nil {
		s.stats.FailuresByKind[o.failure.Kind]++
	}
}

func (s *batchState) checkpoint(final bool) *models.Checkpoint {
	return &models.Checkpoint{
		RunID:     s.runID,
		Completed: append([]string(nil), s.completed...),
		Records:   append([]models.EnrichedRecord(nil), s.records...),
		Stats:     s.stats,
		Final:     final,
		CreatedAt: s.createdAt,
	}
}

// Run processes the input and returns the collected records. On
// cancellation it stops between units, flushes a partial batch to the sink,
// saves a final checkpoint and returns the partial result with ctx.Err().
func (r *Runner) Run(ctx context.Context, input Input) (*Result, error) {
	state, err := r.begin(ctx, input.RunID)
	if err != nil {
		return nil, err
	}

	units := buildUnits(input.Locators, input.Listings)
	pending := make([]unit, 0, len(units))
	for _, u := range units {
		if state.done[u.locator] {
			state.stats.Skipped++
			continue
		}
		pending = append(pending, u)
	}
	if r.options.MaxRecords > 0 {
		remaining := r.options.MaxRecords - state.stats.Attempted
		if remaining < 0 {
			remaining = 0
		}
		if len(pending) > remaining {
			pending = pending[:remaining]
		}
	}

	r.logger.Info().
		Str("run_id", state.runID).
		Int("units", len(units)).
		Int("pending", len(pending)).
		Int("skipped", state.stats.Skipped).
		Int("parallelism", r.options.Parallelism).
		Msg("Batch started")

	if r.options.Parallelism > 1 {
		r.runParallel(ctx, state, pending, input.Sources)
	} else {
		r.runSequential(ctx, state, pending, input.Sources)
	}

	state.stats.FinishedAt = r.now()
	if ctx.Err() != nil {
		return r.interrupt(ctx, state)
	}
	return r.finish(ctx, state)
}

// begin starts a new run or restores a checkpointed one
func (r *Runner) begin(ctx context.Context, runID string) (*batchState, error) {
	state := &batchState{
		runID:     runID,
		done:      make(map[string]bool),
		records:   []models.EnrichedRecord{},
		createdAt: r.now(),
	}
	if state.runID == "" {
		state.runID = common.NewRunID()
	}

	if r.checkpoints != nil && runID != "" {
		checkpoint, err := r.checkpoints.Load(ctx, runID)
		switch {
		case err == nil:
			state.completed = checkpoint.Completed
			state.done = checkpoint.CompletedSet()
			state.records = append(state.records, checkpoint.Records...)
			state.stats = checkpoint.Stats
			state.createdAt = checkpoint.CreatedAt
			r.logger.Info().
				Str("run_id", runID).
				Int("completed", len(checkpoint.Completed)).
				Int("records", len(checkpoint.Records)).
				Msg("Resuming from checkpoint")
		case errors.Is(err, interfaces.ErrCheckpointNotFound):
			r.logger.Warn().Str("run_id", runID).Msg("No checkpoint found, starting fresh")
		default:
			return nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
	}

	state.stats.RunID = state.runID
	state.stats.Cancelled = false
	state.stats.Skipped = 0
	if state.stats.FailuresByKind == nil {
		state.stats.FailuresByKind = make(map[models.FailureKind]int)
	}
	if state.stats.StartedAt.IsZero() {
		state.stats.StartedAt = r.now()
	}
	return state, nil
}

func (r *Runner) runSequential(ctx context.Context, state *batchState, pending []unit, sources map[string]models.SourceMetadata) {
	for i, u := range pending {
		if ctx.Err() != nil {
			return
		}
		if i > 0 {
			if err := pause(ctx, r.options.Delay, r.options.Jitter); err != nil {
				return
			}
		}

		o := r.process(ctx, u, sources[u.locator], r.now())
		if !o.ran {
			return
		}
		state.apply(u, o)
		r.logOutcome(u, o)

		// failed units count too, so a run of failures still checkpoints
		if state.stats.Attempted%r.options.CheckpointEvery == 0 {
			r.saveCheckpoint(ctx, state, false)
		}
	}
}

// runParallel processes isolated units concurrently and merges them in
// input order once all have returned
func (r *Runner) runParallel(ctx context.Context, state *batchState, pending []unit, sources map[string]models.SourceMetadata) {
	outcomes := make([]outcome, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.options.Parallelism)
	for i, u := range pending {
		i, u := i, u
		g.Go(func() error {
			if err := pause(gctx, r.options.Delay, r.options.Jitter); err != nil {
				return nil
			}
			outcomes[i] = r.process(gctx, u, sources[u.locator], r.now())
			return nil
		})
	}
	_ = g.Wait()

	for i, o := range outcomes {
		if !o.ran {
			continue
		}
		state.apply(pending[i], o)
		r.logOutcome(pending[i], o)
	}
}

func (r *Runner) logOutcome(u unit, o outcome) {
	if o.failure != nil {
		r.logger.Warn().
			Str("locator", u.locator).
			Str("kind", string(o.failure.Kind)).
			Err(o.failure.Err).
			Msg("Unit failed, skipping")
		return
	}
	r.logger.Debug().
		Str("locator", u.locator).
		Str("name", o.record.Name).
		Float64("governance", o.record.GovernanceScore).
		Msg("Record enriched")
}

func (r *Runner) saveCheckpoint(ctx context.Context, state *batchState, final bool) {
	if r.checkpoints == nil {
		return
	}
	if err := r.checkpoints.Save(ctx, state.checkpoint(final)); err != nil {
		r.logger.Error().Err(err).Str("run_id", state.runID).Msg("Failed to save checkpoint")
	}
}

// interrupt flushes what was collected before cancellation
func (r *Runner) interrupt(ctx context.Context, state *batchState) (*Result, error) {
	state.stats.Cancelled = true
	flushCtx := context.WithoutCancel(ctx)

	r.logger.Warn().
		Str("run_id", state.runID).
		Int("records", len(state.records)).
		Int("attempted", state.stats.Attempted).
		Msg("Batch interrupted, flushing partial results")

	result := &Result{RunID: state.runID, Records: state.records, Stats: state.stats}
	r.saveCheckpoint(flushCtx, state, true)

	var sinkErr error
	if r.sink != nil {
		sinkErr = r.sink.Write(flushCtx, interfaces.Batch{
			RunID:       state.runID,
			GeneratedAt: r.now(),
			Partial:     true,
			Records:     state.records,
			Stats:       state.stats,
		})
	}
	if sinkErr != nil {
		return result, errors.Join(ctx.Err(), fmt.Errorf("partial flush failed: %w", sinkErr))
	}
	return result, ctx.Err()
}

// finish aggregates the complete batch and hands it to the sink
func (r *Runner) finish(ctx context.Context, state *batchState) (*Result, error) {
	metrics := portfolio.Aggregate(state.records, r.now())

	var in models.Insights
	if r.options.Insights && r.insights != nil {
		in = r.insights.Generate(ctx, metrics)
	}

	r.saveCheckpoint(ctx, state, true)

	result := &Result{
		RunID:    state.runID,
		Records:  state.records,
		Metrics:  metrics,
		Insights: in,
		Stats:    state.stats,
	}

	r.logger.Info().
		Str("run_id", state.runID).
		Int("attempted", state.stats.Attempted).
		Int("succeeded", state.stats.Succeeded).
		Int("failed", state.stats.Failed).
		Int("skipped", state.stats.Skipped).
		Float64("avg_governance", metrics.PortfolioSummary.AverageGovernanceScore).
		Msg("Batch complete")

	if r.sink == nil {
		return result, nil
	}
	if err := r.sink.Write(ctx, interfaces.Batch{
		RunID:       state.runID,
		GeneratedAt: metrics.GeneratedAt,
		Records:     state.records,
		Metrics:     metrics,
		Insights:    in,
		Stats:       state.stats,
	}); err != nil {
		return result, fmt.Errorf("failed to write batch: %w", err)
	}
	return result, nil
}

// pause waits delay plus a random share of jitter, returning early on cancellation
func pause(ctx context.Context, delay, jitter time.Duration) error {
	wait := delay
	if jitter > 0 {
		wait += time.Duration(rand.Int63n(int64(jitter)))
	}
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
