package bulk

import (
	"context"
	"sync"
	"time"

	"github.com/dawidpereira/quetty-sub002/internal/apperrors"
	"github.com/dawidpereira/quetty-sub002/internal/servicebus"
)

// SharedConsumer is the mutex-guarded reference to the Bus's active
// Consumer that the Bulk Coordinator locks for the duration of a bulk
// operation, per spec.md §5: "two concurrent bulk operations on the same
// queue are impossible; the second blocks on the Consumer mutex up to
// lock_timeout." Grounded on
// original_source/server/src/bulk_operations/resource_guard.rs's
// acquire_lock_with_timeout.
type SharedConsumer struct {
	mu     sync.Mutex
	Handle servicebus.ConsumerHandle
}

// NewSharedConsumer wraps handle for bulk operation locking.
func NewSharedConsumer(handle servicebus.ConsumerHandle) *SharedConsumer {
	return &SharedConsumer{Handle: handle}
}

// Acquire blocks until the guard's mutex is free, timeout elapses, cancel
// fires, or ctx is done — whichever comes first. On the timeout/cancel
// paths the lock may still be granted later; a background goroutine
// releases it immediately so the mutex is never left held by an acquirer
// nobody is waiting on. Used both internally by Delete/Move and by the
// Command Bus when switching or disposing the active consumer, so a queue
// switch can never dispose a receiver a bulk operation still holds.
func (s *SharedConsumer) Acquire(ctx context.Context, timeout time.Duration, cancel <-chan struct{}) (func(), error) {
	acquired := make(chan struct{})
	go func() {
		s.mu.Lock()
		close(acquired)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-acquired:
		return s.mu.Unlock, nil
	case <-timer.C:
		go func() { <-acquired; s.mu.Unlock() }()
		return nil, apperrors.New(apperrors.KindOperationTimeout, "timed out acquiring consumer lock", nil)
	case <-cancel:
		go func() { <-acquired; s.mu.Unlock() }()
		return nil, apperrors.New(apperrors.KindCancelled, "lock acquisition cancelled", nil)
	case <-ctx.Done():
		go func() { <-acquired; s.mu.Unlock() }()
		return nil, apperrors.New(apperrors.KindCancelled, "lock acquisition cancelled", ctx.Err())
	}
}
