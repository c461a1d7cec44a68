package generation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultMaxTries        = 3
	DefaultInitialInterval = time.Second
)

// Retrying retries failed generations with exponential backoff.
type Retrying struct {
	next     Generator
	maxTries uint
	initial  time.Duration
}

type RetryOption func(*Retrying)

// WithMaxTries sets the total number of attempts. Zero is ignored.
func WithMaxTries(n uint) RetryOption {
	return func(r *Retrying) {
		if n > 0 {
			r.maxTries = n
		}
	}
}

// WithInitialInterval sets the wait before the second attempt. It doubles on every retry.
func WithInitialInterval(d time.Duration) RetryOption {
	return func(r *Retrying) {
		if d > 0 {
			r.initial = d
		}
	}
}

func NewRetrying(next Generator, opts ...RetryOption) *Retrying {
	r := &Retrying{
		next:     next,
		maxTries: DefaultMaxTries,
		initial:  DefaultInitialInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrying) Generate(ctx context.Context, req Request) (string, error) {
	attempt := 0
	op := func() (string, error) {
		attempt++
		out, err := r.next.Generate(ctx, req)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrRejected) {
				slog.Warn("LLM_CLIENT: Generation failed; not retrying", "attempt", attempt, "error", err)
				return "", backoff.Permanent(err)
			}
			slog.Warn("LLM_CLIENT: Generation failed", "attempt", attempt, "max_tries", r.maxTries, "error", err)
			return "", err
		}
		return out, nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initial
	eb.Multiplier = 2
	eb.RandomizationFactor = 0

	out, err := backoff.Retry(ctx, op, backoff.WithBackOff(eb), backoff.WithMaxTries(r.maxTries))
	if err != nil {
		slog.Error("LLM_CLIENT: Generation failed after retries", "attempts", attempt, "error", err)
		return "", err
	}
	return out, nil
}
