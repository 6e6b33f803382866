package fetcher

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"
)

// BackoffPolicy computes linear, jittered waits between fetch attempts.
// Blocked responses use a longer unit so repeated bot-detection hits back off harder.
type BackoffPolicy struct {
	Unit        time.Duration
	BlockedUnit time.Duration
	Jitter      time.Duration
}

// Delay returns the wait after the given 1-based failed attempt
func (p BackoffPolicy) Delay(attempt int, blocked bool) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	unit := p.Unit
	if blocked {
		unit = p.BlockedUnit
	}
	backoff := time.Duration(attempt) * unit
	if p.Jitter > 0 {
		backoff += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return backoff
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isTimeoutError reports deadline and net timeout errors
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
