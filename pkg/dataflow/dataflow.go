package dataflow

import (
	"context"
	"sync"
	"time"
)

// From emits the given items on a channel and closes it. Emission stops
// early when ctx is cancelled.
func From(ctx context.Context, items ...interface{}) <-chan interface{} {
	out := make(chan interface{})
	go func() {
		defer close(out)
		for _, item := range items {
			select {
			case out <- item:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Map transforms messages from in with fn, fanning work out across the
// configured workers. A message whose transform still fails after the
// configured retries is dropped; the error handler observes the final error
// and may stop the worker by returning false.
func Map(ctx context.Context, in <-chan interface{}, fn func(interface{}) (interface{}, error), opts ...Option) <-chan interface{} {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	out := make(chan interface{}, cfg.bufferSize)
	var wg sync.WaitGroup
	wg.Add(cfg.workers)
	for i := 0; i < cfg.workers; i++ {
		go func() {
			defer wg.Done()
			for msg := range in {
				res, err := applyWithRetry(ctx, fn, msg, cfg)
				if err != nil {
					if cfg.errorHandler != nil && !cfg.errorHandler(err) {
						return
					}
					continue
				}
				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// applyWithRetry runs fn up to maxRetries+1 times, sleeping the backoff
// between attempts.
func applyWithRetry(ctx context.Context, fn func(interface{}) (interface{}, error), msg interface{}, cfg *config) (interface{}, error) {
	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		if attempt > 0 && cfg.backoff != nil {
			select {
			case <-time.After(cfg.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		out, err := fn(msg)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// ForEach consumes in until it closes, applying fn to every message. The
// first fn error or a cancelled ctx ends consumption early.
func ForEach(ctx context.Context, in <-chan interface{}, fn func(interface{}) error) error {
	for {
		select {
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			if err := fn(msg); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
