// Package taskpool implements the bounded-concurrency worker pool backing
// UI-initiated background work (bulk operations, long scans), per
// spec.md §4.11. Grounded on
// original_source/server/src/taskpool.rs's semaphore-and-cancellation-token
// pair, ported from tokio::sync::Semaphore/CancellationToken to
// golang.org/x/sync/semaphore and context.CancelFunc — a dependency the
// teacher's own go.mod already requires.
package taskpool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/dawidpereira/quetty-sub002/internal/apperrors"
	"github.com/dawidpereira/quetty-sub002/internal/logging"
)

// Progress is the one-way channel a long-running task reports phase text
// on; ExecuteWithProgress's caller owns draining it.
type Progress chan<- string

// Pool bounds concurrent background work to n_permits in flight, per
// spec.md §4.11, and tracks per-operation cancellation by op_id so the UI
// can cancel one bulk operation without affecting others.
type Pool struct {
	sem *semaphore.Weighted

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

// New builds a Pool admitting at most nPermits concurrent tasks.
func New(nPermits int64) *Pool {
	if nPermits <= 0 {
		nPermits = 1
	}
	return &Pool{
		sem:     semaphore.NewWeighted(nPermits),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Execute acquires a permit then runs fn, blocking the caller's goroutine
// until fn returns (spec.md's execute(future) is fire-and-forget from the
// submitter's perspective in the original; callers here that want
// fire-and-forget should invoke Execute from their own goroutine).
func (p *Pool) Execute(ctx context.Context, fn func(ctx context.Context)) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return apperrors.New(apperrors.KindConnectionLost, "task pool closed", nil)
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return apperrors.New(apperrors.KindOperationTimeout, "failed to acquire task pool permit", err)
	}
	defer p.sem.Release(1)

	p.wg.Add(1)
	defer p.wg.Done()

	fn(ctx)
	return nil
}

// ExecuteWithProgress is Execute plus a progress channel for fn to report
// phase text on, and registration of opID as cancellable via Cancel, per
// spec.md §4.11. The caller drains progress; it is closed when fn returns
// or the permit acquisition fails.
func (p *Pool) ExecuteWithProgress(ctx context.Context, label, opID string, fn func(ctx context.Context, progress Progress)) (<-chan string, error) {
	progress := make(chan string, 16)

	runCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		close(progress)
		return progress, apperrors.New(apperrors.KindConnectionLost, "task pool closed", nil)
	}
	p.cancels[opID] = cancel
	p.mu.Unlock()

	if err := p.sem.Acquire(runCtx, 1); err != nil {
		p.mu.Lock()
		delete(p.cancels, opID)
		p.mu.Unlock()
		cancel()
		close(progress)
		return progress, apperrors.New(apperrors.KindOperationTimeout, "failed to acquire task pool permit", err)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer close(progress)
		defer func() {
			p.mu.Lock()
			delete(p.cancels, opID)
			p.mu.Unlock()
			cancel()
		}()

		logging.L().Debug("taskpool: starting task", "label", label, "op_id", opID)
		fn(runCtx, progress)
	}()

	return progress, nil
}

// Cancel requests cancellation of the task registered under opID. A no-op
// if opID is unknown (already finished, or never registered).
func (p *Pool) Cancel(opID string) {
	p.mu.Lock()
	cancel, ok := p.cancels[opID]
	p.mu.Unlock()
	if ok {
		cancel()
	}
}

// CancelAll cancels every currently tracked task.
func (p *Pool) CancelAll() {
	p.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(p.cancels))
	for _, c := range p.cancels {
		cancels = append(cancels, c)
	}
	p.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

// Close prevents new tasks from acquiring permits. Tasks already running
// are allowed to finish; Close does not wait for them.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}
