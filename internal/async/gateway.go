// Package async hosts blocking venue calls on a bounded worker pool so that
// request handlers can await them without tying up their own goroutine budget.
package async

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/tradedeck/delta-adapter/internal/metrics"
)

// workerMarker tags contexts whose call chain is already executing on a
// gateway worker. Nested dispatches carrying this marker escape the pool so a
// saturated pool can never deadlock on itself.
type workerMarker struct{}

// insideWorker reports whether ctx originates from a gateway worker.
func insideWorker(ctx context.Context) bool {
	v, _ := ctx.Value(workerMarker{}).(bool)
	return v
}

// Future is the awaitable result of a dispatched blocking call.
// The underlying call always runs to completion; Wait may give up early on
// the caller's deadline while the worker finishes in the background.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(val T, err error) {
	f.val = val
	f.err = err
	close(f.done)
}

// Done returns a channel closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx expires. On ctx expiry the
// zero value and ctx.Err() are returned; the dispatched call keeps running.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Gateway is the blocking-call gateway: a bounded pool of slots that host
// synchronous venue calls on behalf of non-blocking callers. It performs no
// cancellation of in-flight calls and no retry — it only bridges.
type Gateway struct {
	slots  chan struct{}
	logger *zap.Logger
}

// NewGateway creates a gateway with the given pool size.
// size <= 0 defaults to 4x the CPU count (the calls are I/O bound).
func NewGateway(size int, logger *zap.Logger) *Gateway {
	if size <= 0 {
		size = 4 * runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		slots:  make(chan struct{}, size),
		logger: logger,
	}
}

// Size returns the pool capacity.
func (g *Gateway) Size() int {
	return cap(g.slots)
}

// Submit dispatches fn onto a worker and returns a Future for its result.
// Submit never blocks the caller: slot acquisition happens on the spawned
// goroutine. A call dispatched from within a worker (re-entrant dispatch)
// bypasses the pool entirely and runs on a dedicated goroutine, so nested
// awaits cannot deadlock a full pool.
func Submit[T any](g *Gateway, ctx context.Context, op string, fn func(context.Context) T) *Future[T] {
	f := newFuture[T]()

	run := func(callCtx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				g.logger.Error("gateway.worker_panic",
					zap.String("op", op),
					zap.Any("panic", r))
				f.complete(zero, fmt.Errorf("gateway: %s panicked: %v", op, r))
			}
		}()
		f.complete(fn(callCtx), nil)
	}

	if insideWorker(ctx) {
		// Already on a worker: escape to an isolated goroutine instead of
		// competing for a slot we may ourselves be holding.
		g.logger.Debug("gateway.reentrant_escape", zap.String("op", op))
		go run(ctx)
		return f
	}

	go func() {
		g.slots <- struct{}{}
		metrics.GatewayInflight.Inc()
		defer func() {
			metrics.GatewayInflight.Dec()
			<-g.slots
		}()
		run(context.WithValue(ctx, workerMarker{}, true))
	}()

	return f
}

// BlockOn drives a future to completion for callers that cannot await.
func BlockOn[T any](ctx context.Context, f *Future[T]) (T, error) {
	return f.Wait(ctx)
}

// RunSync dispatches fn and waits for it — the synchronous-facing entry point.
// Safe to call from inside an already-dispatched worker (see Submit).
func RunSync[T any](g *Gateway, ctx context.Context, op string, fn func(context.Context) T) (T, error) {
	return BlockOn(ctx, Submit(g, ctx, op, fn))
}
