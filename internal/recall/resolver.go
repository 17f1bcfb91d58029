package recall

import (
	"context"
	"errors"
	"log"
	"time"
)

const (
	DefaultPollStart   = 2 * time.Second
	DefaultPollMax     = 15 * time.Second
	DefaultPollMaxWait = 300 * time.Second
	pollGrowth         = 1.5
)

// API is the part of the provider client the resolver needs.
type API interface {
	TranscriptDownloadURL(ctx context.Context, transcriptID string) (string, error)
	GetBot(ctx context.Context, botID string) (*Bot, error)
}

// Resolver finds the download URL of a finished transcript, polling the
// provider with exponential backoff while it is not published yet.
type Resolver struct {
	api API

	start   time.Duration
	max     time.Duration
	maxWait time.Duration
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithPollSchedule overrides the initial delay, per-step cap and total budget.
func WithPollSchedule(start, max, maxWait time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.start, r.max, r.maxWait = start, max, maxWait
	}
}

// WithClock overrides the wall clock used for the polling deadline.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSleeper overrides how the resolver waits between attempts (tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) ResolverOption {
	return func(r *Resolver) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// NewResolver builds a resolver over api.
func NewResolver(api API, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		api:     api,
		start:   DefaultPollStart,
		max:     DefaultPollMax,
		maxWait: DefaultPollMaxWait,
		now:     time.Now,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveURL returns the transcript download URL, or "" if it is not
// available yet. A transcript id is tried first, then the bot's recordings.
func (r *Resolver) ResolveURL(ctx context.Context, botID, transcriptID string) (string, error) {
	var errs []error
	if transcriptID != "" {
		url, err := r.api.TranscriptDownloadURL(ctx, transcriptID)
		if err != nil {
			errs = append(errs, err)
		} else if url != "" {
			return url, nil
		}
	}
	if botID != "" {
		bot, err := r.api.GetBot(ctx, botID)
		if err != nil {
			errs = append(errs, err)
		} else if url := bot.TranscriptDownloadURL(); url != "" {
			return url, nil
		}
	}
	return "", errors.Join(errs...)
}

// Poll retries ResolveURL until a URL shows up or the wait budget runs out.
// Running out is reported as ready=false with a nil error: the transcript is
// simply not ready yet. Provider errors are logged and retried. Only context
// cancellation is returned as an error.
func (r *Resolver) Poll(ctx context.Context, botID, transcriptID string) (string, bool, error) {
	deadline := r.now().Add(r.maxWait)
	delay := r.start
	attempt := 0

	for {
		attempt++
		url, err := r.ResolveURL(ctx, botID, transcriptID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", false, ctxErr
			}
			log.Printf("[Resolver] Attempt %d failed (bot: %s, transcript: %s): %v", attempt, botID, transcriptID, err)
		}
		if url != "" {
			log.Printf("[Resolver] Transcript URL ready after %d attempt(s)", attempt)
			return url, true, nil
		}

		remaining := deadline.Sub(r.now())
		if remaining <= 0 {
			log.Printf("[Resolver] Gave up after %d attempt(s) (bot: %s, transcript: %s)", attempt, botID, transcriptID)
			return "", false, nil
		}
		wait := delay
		if wait > remaining {
			wait = remaining
		}
		if err := r.sleep(ctx, wait); err != nil {
			return "", false, err
		}
		delay = time.Duration(float64(delay) * pollGrowth)
		if delay > r.max {
			delay = r.max
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
