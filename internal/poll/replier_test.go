package poll

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakyPoster struct {
	limited int // rate-limit this many calls before succeeding
	calls   int
	texts   []string
	err     error
}

func (p *flakyPoster) Reply(_ context.Context, id, text string) error {
	p.calls++
	p.texts = append(p.texts, id+":"+text)
	if p.err != nil {
		return p.err
	}
	if p.calls <= p.limited {
		return ErrRateLimited
	}
	return nil
}

type sleepRecorder struct {
	pauses []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.pauses = append(s.pauses, d)
	return nil
}

func TestReplier_RetriesUntilSuccess(t *testing.T) {
	poster := &flakyPoster{limited: 3}
	sleeper := &sleepRecorder{}
	r := &Replier{Poster: poster, Policy: DefaultRetryPolicy(), Sleep: sleeper.sleep}

	if err := r.Reply(context.Background(), "t1_a", "hi"); err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if poster.calls != 4 {
		t.Errorf("calls = %d, want 4", poster.calls)
	}
	for i, text := range poster.texts {
		if text != "t1_a:hi" {
			t.Errorf("attempt %d sent %q, want the identical request", i, text)
		}
	}
	if len(sleeper.pauses) != 3 {
		t.Fatalf("pauses = %d, want 3", len(sleeper.pauses))
	}
	for _, d := range sleeper.pauses {
		if d != 30*time.Second {
			t.Errorf("pause = %v, want fixed 30s", d)
		}
	}
}

func TestReplier_Bounded(t *testing.T) {
	poster := &flakyPoster{limited: 100}
	sleeper := &sleepRecorder{}
	r := &Replier{
		Poster: poster,
		Policy: RetryPolicy{Backoff: time.Second, MaxAttempts: 3},
		Sleep:  sleeper.sleep,
	}

	err := r.Reply(context.Background(), "t1_a", "hi")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if poster.calls != 3 {
		t.Errorf("calls = %d, want 3", poster.calls)
	}
	if len(sleeper.pauses) != 2 {
		t.Errorf("pauses = %d, want 2", len(sleeper.pauses))
	}
}

func TestReplier_OtherErrorsAreNotRetried(t *testing.T) {
	forbidden := errors.New("403 forbidden")
	poster := &flakyPoster{err: forbidden}
	sleeper := &sleepRecorder{}
	r := &Replier{Poster: poster, Sleep: sleeper.sleep}

	if err := r.Reply(context.Background(), "t1_a", "hi"); !errors.Is(err, forbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if poster.calls != 1 || len(sleeper.pauses) != 0 {
		t.Errorf("calls = %d, pauses = %d; want 1, 0", poster.calls, len(sleeper.pauses))
	}
}

func TestReplier_ContextEndsWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	poster := &flakyPoster{limited: 100}
	r := &Replier{Poster: poster, Policy: RetryPolicy{Backoff: time.Hour}}

	if err := r.Reply(ctx, "t1_a", "hi"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if poster.calls != 1 {
		t.Errorf("calls = %d, want 1", poster.calls)
	}
}
