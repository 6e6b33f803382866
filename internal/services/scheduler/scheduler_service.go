package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/common"
)

// BatchFunc runs one scheduled batch
type BatchFunc func(ctx context.Context) error

// Service runs batches on a cron schedule. A tick that fires while the
// previous batch is still running is skipped.
type Service struct {
	cron   *cron.Cron
	logger arbor.ILogger
	batch  BatchFunc

	mu           sync.Mutex // Protects isProcessing, running, ctx and lastError
	isProcessing bool
	running      bool
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	lastRun      *time.Time
	lastError    string
	skipped      int
}

// NewService creates a scheduler for batch
func NewService(batch BatchFunc, logger arbor.ILogger) *Service {
	return &Service{
		cron:   cron.New(),
		logger: logger,
		batch:  batch,
	}
}

// Start registers the batch under cronExpr and starts the cron loop.
// Batches receive a context derived from ctx; Stop cancels it.
func (s *Service) Start(ctx context.Context, cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if err := common.ValidateSchedule(cronExpr); err != nil {
		return err
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	if _, err := s.cron.AddFunc(cronExpr, s.runScheduledBatch); err != nil {
		s.cancel()
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().Str("cron_expr", cronExpr).Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop, cancels a running batch and waits for it to
// flush its partial results
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning returns true if the scheduler is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status reports the last run time, the last error and the number of skipped ticks
func (s *Service) Status() (lastRun *time.Time, lastError string, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastError, s.skipped
}

// TriggerNow runs one batch immediately, subject to the same overlap guard
func (s *Service) TriggerNow() {
	s.logger.Info().Msg("Manual batch trigger requested")
	s.runScheduledBatch()
}

func (s *Service) runScheduledBatch() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("PANIC RECOVERED in scheduled batch")
		}
	}()

	s.mu.Lock()
	if s.isProcessing || s.ctx == nil || s.ctx.Err() != nil {
		if s.isProcessing {
			s.skipped++
			s.logger.Warn().Msg("Previous batch still running, skipping this cycle")
		}
		s.mu.Unlock()
		return
	}
	s.isProcessing = true
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isProcessing = false
		s.mu.Unlock()
		s.wg.Done()
	}()

	started := time.Now()
	s.logger.Info().Msg("Scheduled batch starting")
	err := s.batch(ctx)

	s.mu.Lock()
	s.lastRun = &started
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Dur("duration", time.Since(started)).Msg("Scheduled batch failed")
		return
	}
	s.logger.Info().Dur("duration", time.Since(started)).Msg("Scheduled batch complete")
}
