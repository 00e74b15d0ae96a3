package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anrbot/internal/logger"
)

// ErrRateLimited is returned by a Poster when the forum asks the caller to
// slow down. The same request may be sent again after a pause.
var ErrRateLimited = errors.New("rate limited")

// DefaultBackoff is the pause between attempts after a rate-limit signal.
const DefaultBackoff = 30 * time.Second

// Poster submits a reply to the item with the given id.
type Poster interface {
	Reply(ctx context.Context, id, text string) error
}

// RetryPolicy bounds the rate-limit retry loop. MaxAttempts of zero retries
// until the reply goes through or the context ends.
type RetryPolicy struct {
	Backoff     time.Duration
	MaxAttempts int
}

// DefaultRetryPolicy retries forever every 30 seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Backoff: DefaultBackoff}
}

// Replier resends a reply for as long as the forum reports rate limiting.
// Any other error is returned at once.
type Replier struct {
	Poster Poster
	Policy RetryPolicy
	// Sleep pauses between attempts; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Reply posts text under item id, retrying per the policy.
func (r *Replier) Reply(ctx context.Context, id, text string) error {
	backoff := r.Policy.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	for attempt := 1; ; attempt++ {
		err := r.Poster.Reply(ctx, id, text)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return err
		}
		if r.Policy.MaxAttempts > 0 && attempt >= r.Policy.MaxAttempts {
			return fmt.Errorf("reply to %s: giving up after %d attempts: %w", id, attempt, err)
		}

		logger.Warn("Rate-limited replying to %s, retrying in %v", id, backoff)
		if err := r.sleep(ctx, backoff); err != nil {
			return err
		}
		logger.Debug("Retrying reply to %s (attempt %d)", id, attempt+1)
	}
}

func (r *Replier) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
