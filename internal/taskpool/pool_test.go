package taskpool_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dawidpereira/quetty-sub002/internal/taskpool"
)

func TestPool_ExecuteBoundsConcurrency(t *testing.T) {
	pool := taskpool.New(2)
	var inFlight, maxObserved int32

	run := func() {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			observed := atomic.LoadInt32(&maxObserved)
			if cur <= observed || atomic.CompareAndSwapInt32(&maxObserved, observed, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
	}

	done := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		go func() {
			_ = pool.Execute(context.Background(), func(context.Context) { run() })
			done <- struct{}{}
		}()
	}
	for i := 0; i < 5; i++ {
		<-done
	}

	require.LessOrEqual(t, int(atomic.LoadInt32(&maxObserved)), 2)
}

func TestPool_ExecuteWithProgressCancelByOpID(t *testing.T) {
	pool := taskpool.New(1)

	started := make(chan struct{})
	var cancelled bool
	progress, err := pool.ExecuteWithProgress(context.Background(), "bulk-delete", "op-1", func(ctx context.Context, progress taskpool.Progress) {
		progress <- "Initializing"
		close(started)
		<-ctx.Done()
		cancelled = true
	})
	require.NoError(t, err)

	<-started
	pool.Cancel("op-1")

	for range progress {
		// drain until the task closes it on exit
	}
	require.True(t, cancelled)
}

func TestPool_CancelUnknownOpIDIsNoOp(t *testing.T) {
	pool := taskpool.New(1)
	pool.Cancel("never-registered")
}

func TestPool_CloseRejectsNewWork(t *testing.T) {
	pool := taskpool.New(1)
	pool.Close()

	_, err := pool.ExecuteWithProgress(context.Background(), "label", "op-2", func(context.Context, taskpool.Progress) {})
	require.Error(t, err)
}

func TestPool_CancelAllStopsEveryTrackedTask(t *testing.T) {
	pool := taskpool.New(3)

	const n = 3
	startedCh := make(chan struct{}, n)
	doneCh := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		opID := string(rune('a' + i))
		_, err := pool.ExecuteWithProgress(context.Background(), "task", opID, func(ctx context.Context, _ taskpool.Progress) {
			startedCh <- struct{}{}
			<-ctx.Done()
			doneCh <- struct{}{}
		})
		require.NoError(t, err)
	}
	for i := 0; i < n; i++ {
		<-startedCh
	}

	pool.CancelAll()
	for i := 0; i < n; i++ {
		<-doneCh
	}
}
