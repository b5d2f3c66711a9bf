// Package concurrency provides small shared building blocks for
// bounded, cancellable parallel work: retry with exponential backoff,
// slice chunking, and a concurrency-limited errgroup pool.
package concurrency

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// RetryOptions controls the backoff schedule used by Retry.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryOptions is a general-purpose backoff schedule for
// transient network failures: up to five attempts, starting at one
// second, doubling each attempt, capped at one minute.
var DefaultRetryOptions = RetryOptions{
	MaxAttempts:  5,
	InitialDelay: time.Second,
	MaxDelay:     time.Minute,
}

// Retry calls fn until it succeeds, ctx is cancelled, or MaxAttempts is
// exhausted, doubling the delay between attempts starting at
// InitialDelay and capping at MaxDelay. The last error is returned if
// every attempt fails.
func Retry(ctx context.Context, opts RetryOptions, fn func(attempt int) error) error {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	delay := opts.InitialDelay
	if delay <= 0 {
		delay = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		if attempt == opts.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if opts.MaxDelay > 0 && delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}

	return lastErr
}

// Chunk splits items into consecutive slices of at most size elements
// each. A non-positive size yields a single chunk containing items.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		if len(items) == 0 {
			return nil
		}
		return [][]T{items}
	}

	var chunks [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

// NewPool returns an errgroup bound to ctx with its concurrency capped
// at limit, along with the group's derived context. A non-positive
// limit leaves the group unbounded.
func NewPool(ctx context.Context, limit int) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	return g, gctx
}
