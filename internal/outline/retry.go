package outline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
	"github.com/rioncm/ConfluenceToOutline/internal/logger"
)

// Policy controls how remote calls are retried. Rate limits back off
// exponentially, honouring a server-supplied delay when one is given.
// Transient network failures back off linearly. Any other error stops
// the attempt loop immediately.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Sleep is swappable in tests. Nil means a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy matches the pacing Outline's default rate limiter tolerates.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   3 * time.Second,
		MaxDelay:    2 * time.Minute,
	}
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// rateLimitDelay computes the backoff before retry number attempt (0-based).
// A server hint wins over the computed schedule.
func (p Policy) rateLimitDelay(attempt int, hint time.Duration) time.Duration {
	if hint > 0 {
		return hint
	}
	d := p.BaseDelay << uint(attempt)
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	// Jitter up to 10% keeps parallel migrations from herding.
	return d + time.Duration(rand.Int63n(int64(d)/10+1))
}

func (p Policy) networkDelay(attempt int) time.Duration {
	d := p.BaseDelay * time.Duration(attempt+1)
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs fn under the policy. op names the call for logs and errors.
func (p Policy) Do(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var rl *RateLimitError
		var delay time.Duration
		switch {
		case errors.As(err, &rl):
			delay = p.rateLimitDelay(attempt, rl.RetryAfter)
		case IsNetwork(err):
			delay = p.networkDelay(attempt)
		default:
			return err
		}

		// No retry follows the last attempt, so no point waiting for one.
		if attempt == p.MaxAttempts-1 {
			break
		}
		if rl != nil {
			logger.Warn("%s rate limited, retrying in %s (attempt %d/%d)", op, delay.Round(time.Millisecond), attempt+1, p.MaxAttempts)
		} else {
			logger.Warn("%s network error: %v, retrying in %s (attempt %d/%d)", op, err, delay.Round(time.Millisecond), attempt+1, p.MaxAttempts)
		}
		if serr := p.sleep(ctx, delay); serr != nil {
			return serr
		}
	}

	if IsRateLimited(lastErr) {
		return fmt.Errorf("%s after %d attempts: %w", op, p.MaxAttempts, domain.ErrRateLimitExhausted)
	}
	return fmt.Errorf("%s after %d attempts: %w", op, p.MaxAttempts, lastErr)
}
