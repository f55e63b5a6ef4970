package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dawidpereira/quetty-sub002/internal/apperrors"
	"github.com/dawidpereira/quetty-sub002/internal/bulk"
	"github.com/dawidpereira/quetty-sub002/internal/logging"
	"github.com/dawidpereira/quetty-sub002/internal/servicebus"
)

// Bus is the single-consumer actor described in spec.md §4.9: it owns the
// producer map and the at-most-one active consumer, processing every
// command through one worker goroutine so no two broker operations race on
// the same client. Bulk operations are the one exception: they run on
// their own goroutine once dispatched, coordinated against the active
// consumer through a shared mutex (bulk.SharedConsumer) rather than by
// blocking the worker, per spec.md §5's "two concurrent bulk operations on
// the same queue are impossible: the second blocks on the Consumer mutex."
type Bus struct {
	log *slog.Logger

	newConsumer ConsumerFactory
	newProducer ProducerFactory
	bulkCfg     bulk.Config

	requests chan func()
	closeCh  chan struct{}
	closeOne sync.Once

	// The following fields are only ever touched from inside the worker
	// goroutine (run), except guard.Handle which bulk goroutines also
	// read under guard's own mutex.
	producers map[string]servicebus.ProducerHandle
	guard     *bulk.SharedConsumer
	received  map[servicebus.MessageIdentifier]servicebus.MessageModel
}

// New builds a Bus with the given consumer/producer factories and bulk
// coordinator configuration, and starts its worker goroutine. A nil log
// falls back to logging.L().
func New(log *slog.Logger, newConsumer ConsumerFactory, newProducer ProducerFactory, bulkCfg bulk.Config) *Bus {
	if log == nil {
		log = logging.L()
	}
	b := &Bus{
		log:         log,
		newConsumer: newConsumer,
		newProducer: newProducer,
		bulkCfg:     bulkCfg.Clamp(),
		requests:    make(chan func(), 32),
		closeCh:     make(chan struct{}),
		producers:   make(map[string]servicebus.ProducerHandle),
		guard:       bulk.NewSharedConsumer(nil),
		received:    make(map[servicebus.MessageIdentifier]servicebus.MessageModel),
	}
	go b.run()
	return b
}

func (b *Bus) run() {
	for {
		select {
		case req, ok := <-b.requests:
			if !ok {
				return
			}
			req()
		case <-b.closeCh:
			return
		}
	}
}

// submit enqueues req for the worker and waits on reply, honoring ctx
// cancellation on both the enqueue and the wait.
func (b *Bus) submit(ctx context.Context, req func(), reply chan Response) (Response, error) {
	select {
	case b.requests <- req:
	case <-ctx.Done():
		return Response{}, apperrors.New(apperrors.KindCancelled, "command submission cancelled", ctx.Err())
	case <-b.closeCh:
		return Response{}, apperrors.New(apperrors.KindConnectionLost, "command bus closed", nil)
	}

	select {
	case resp := <-reply:
		if resp.Kind == RespError {
			return resp, resp.Err
		}
		return resp, nil
	case <-ctx.Done():
		return Response{}, apperrors.New(apperrors.KindCancelled, "command response cancelled", ctx.Err())
	}
}

func errResponse(err error) Response {
	return Response{Kind: RespError, Err: err}
}

// SwitchQueue disposes the active consumer, if any, and opens a new one
// for name/kind, per spec.md §4.9.
func (b *Bus) SwitchQueue(ctx context.Context, name string, kind servicebus.QueueKind) (Response, error) {
	reply := make(chan Response, 1)
	return b.submit(ctx, func() {
		reply <- b.handleSwitchQueue(ctx, name, kind)
	}, reply)
}

func (b *Bus) handleSwitchQueue(ctx context.Context, name string, kind servicebus.QueueKind) Response {
	release, err := b.guard.Acquire(ctx, b.bulkCfg.LockTimeout, nil)
	if err != nil {
		return errResponse(err)
	}
	defer release()

	if b.guard.Handle != nil {
		if err := b.guard.Handle.Dispose(ctx); err != nil {
			b.log.Warn("dispose previous consumer failed", "error", err)
		}
	}
	clear(b.received)

	info := servicebus.QueueInfo{Name: name, Kind: kind}
	handle, err := b.newConsumer(info)
	if err != nil {
		b.guard.Handle = nil
		return errResponse(apperrors.New(apperrors.KindQueueSwitchFailed, "switch queue failed", err))
	}
	b.guard.Handle = handle
	return Response{Kind: RespQueueSwitched, QueueInfo: info}
}

// PeekMessages peeks on the active consumer; error if none is open.
func (b *Bus) PeekMessages(ctx context.Context, maxCount int32, fromSequence *int64) (Response, error) {
	reply := make(chan Response, 1)
	return b.submit(ctx, func() {
		if b.guard.Handle == nil {
			reply <- errResponse(apperrors.New(apperrors.KindConsumerNotFound, "no active consumer", nil))
			return
		}
		msgs, err := b.guard.Handle.PeekMessages(ctx, maxCount, fromSequence)
		if err != nil {
			reply <- errResponse(err)
			return
		}
		reply <- Response{Kind: RespMessagesReceived, Messages: msgs}
	}, reply)
}

// ReceiveMessages locks up to maxCount messages from the active consumer,
// bounded by timeout, and remembers them so a later
// Complete/Abandon/DeadLetter command can find them by composite key.
func (b *Bus) ReceiveMessages(ctx context.Context, maxCount int32, timeout time.Duration) (Response, error) {
	reply := make(chan Response, 1)
	return b.submit(ctx, func() {
		if b.guard.Handle == nil {
			reply <- errResponse(apperrors.New(apperrors.KindConsumerNotFound, "no active consumer", nil))
			return
		}
		msgs, err := b.guard.Handle.ReceiveMessages(ctx, maxCount, timeout)
		if err != nil {
			reply <- errResponse(err)
			return
		}
		for _, m := range msgs {
			b.received[m.Identifier()] = m
		}
		reply <- Response{Kind: RespMessagesReceived, Messages: msgs}
	}, reply)
}

func (b *Bus) dispositionCommand(ctx context.Context, id servicebus.MessageIdentifier, kind ResponseKind, notFoundKind apperrors.Kind, act func(servicebus.ConsumerHandle, servicebus.MessageModel) error) (Response, error) {
	reply := make(chan Response, 1)
	return b.submit(ctx, func() {
		if b.guard.Handle == nil {
			reply <- errResponse(apperrors.New(apperrors.KindConsumerNotFound, "no active consumer", nil))
			return
		}
		msg, ok := b.received[id]
		if !ok {
			reply <- errResponse(apperrors.New(notFoundKind, "message not previously received", nil))
			return
		}
		if err := act(b.guard.Handle, msg); err != nil {
			reply <- errResponse(err)
			return
		}
		delete(b.received, id)
		reply <- Response{Kind: kind}
	}, reply)
}

// CompleteMessage finalizes a previously received message by composite key.
func (b *Bus) CompleteMessage(ctx context.Context, id servicebus.MessageIdentifier) (Response, error) {
	return b.dispositionCommand(ctx, id, RespMessageCompleted, apperrors.KindMessageCompleteFailed, func(h servicebus.ConsumerHandle, m servicebus.MessageModel) error {
		return h.Complete(ctx, m)
	})
}

// AbandonMessage releases the lock on a previously received message.
func (b *Bus) AbandonMessage(ctx context.Context, id servicebus.MessageIdentifier) (Response, error) {
	return b.dispositionCommand(ctx, id, RespMessageAbandoned, apperrors.KindMessageAbandonFailed, func(h servicebus.ConsumerHandle, m servicebus.MessageModel) error {
		return h.Abandon(ctx, m)
	})
}

// DeadLetterMessage moves a previously received message to the DLQ.
func (b *Bus) DeadLetterMessage(ctx context.Context, id servicebus.MessageIdentifier) (Response, error) {
	return b.dispositionCommand(ctx, id, RespMessageDeadLettered, apperrors.KindMessageDeadLetterFailed, func(h servicebus.ConsumerHandle, m servicebus.MessageModel) error {
		return h.DeadLetter(ctx, m)
	})
}

// producerFor returns the producer for queue, lazily creating it.
func (b *Bus) producerFor(queue string) (servicebus.ProducerHandle, error) {
	if p, ok := b.producers[queue]; ok {
		return p, nil
	}
	p, err := b.newProducer(queue)
	if err != nil {
		return nil, apperrors.New(apperrors.KindProducerCreationFailed, "create producer failed", err)
	}
	b.producers[queue] = p
	return p, nil
}

// SendMessage sends a single message body to queue, creating its producer
// on first use.
func (b *Bus) SendMessage(ctx context.Context, queue string, body []byte) (Response, error) {
	reply := make(chan Response, 1)
	return b.submit(ctx, func() {
		p, err := b.producerFor(queue)
		if err != nil {
			reply <- errResponse(err)
			return
		}
		if err := p.Send(ctx, body); err != nil {
			reply <- errResponse(err)
			return
		}
		reply <- Response{Kind: RespMessageSent}
	}, reply)
}

// SendMessages sends every body in bodies to queue.
func (b *Bus) SendMessages(ctx context.Context, queue string, bodies [][]byte) (Response, error) {
	reply := make(chan Response, 1)
	return b.submit(ctx, func() {
		p, err := b.producerFor(queue)
		if err != nil {
			reply <- errResponse(err)
			return
		}
		if err := p.SendBatch(ctx, bodies); err != nil {
			reply <- errResponse(err)
			return
		}
		reply <- Response{Kind: RespMessagesSent}
	}, reply)
}

// BulkDelete delegates to the Bulk Coordinator, running the operation on
// its own goroutine so the worker keeps serving other commands while it's
// in flight, per spec.md §4.9/§5.
func (b *Bus) BulkDelete(ctx context.Context, req BulkDeleteRequest) (Response, error) {
	reply := make(chan Response, 1)
	return b.submit(ctx, func() {
		if b.guard.Handle == nil {
			reply <- errResponse(apperrors.New(apperrors.KindConsumerNotFound, "no active consumer", nil))
			return
		}
		coordinator := bulk.NewCoordinator(b.bulkCfg)
		guard := b.guard
		go func() {
			result, err := coordinator.Delete(ctx, guard, req.MessageIDs, req.MaxPosition, req.Cancel, req.Progress)
			if err != nil && result.Successful == 0 && result.Failed == 0 {
				reply <- errResponse(err)
				return
			}
			reply <- Response{Kind: RespBulkOperationResult, BulkResult: result}
		}()
	}, reply)
}

// BulkSend coordinates receive-from-current, send-to-target, and
// (when ShouldDelete) completing the originals, per spec.md §4.9.
func (b *Bus) BulkSend(ctx context.Context, req BulkSendRequest) (Response, error) {
	reply := make(chan Response, 1)
	return b.submit(ctx, func() {
		if b.guard.Handle == nil {
			reply <- errResponse(apperrors.New(apperrors.KindConsumerNotFound, "no active consumer", nil))
			return
		}
		producer, err := b.producerFor(req.TargetQueue)
		if err != nil {
			reply <- errResponse(err)
			return
		}
		coordinator := bulk.NewCoordinator(b.bulkCfg)
		guard := b.guard
		go func() {
			result, err := coordinator.Move(ctx, guard, req.MessageIDs, req.MaxPosition, producer, req.ShouldDelete, req.Cancel, req.Progress)
			if err != nil && result.Successful == 0 && result.Failed == 0 {
				reply <- errResponse(err)
				return
			}
			reply <- Response{Kind: RespBulkOperationResult, BulkResult: result}
		}()
	}, reply)
}

// StatsFetcher fetches QueueStats for name, e.g. backed by
// internal/management.StatisticsService.
type StatsFetcher func(ctx context.Context, name string) (QueueStats, error)

// GetQueueStats fetches statistics for name via fetch.
func (b *Bus) GetQueueStats(ctx context.Context, name string, fetch StatsFetcher) (Response, error) {
	reply := make(chan Response, 1)
	return b.submit(ctx, func() {
		stats, err := fetch(ctx, name)
		if err != nil {
			reply <- errResponse(err)
			return
		}
		reply <- Response{Kind: RespQueueStats, Stats: stats}
	}, reply)
}

// DisposeConsumer disposes the active consumer, if any.
func (b *Bus) DisposeConsumer(ctx context.Context) (Response, error) {
	reply := make(chan Response, 1)
	return b.submit(ctx, func() {
		release, err := b.guard.Acquire(ctx, b.bulkCfg.LockTimeout, nil)
		if err != nil {
			reply <- errResponse(err)
			return
		}
		defer release()
		if b.guard.Handle != nil {
			if err := b.guard.Handle.Dispose(ctx); err != nil {
				reply <- errResponse(apperrors.New(apperrors.KindConsumerNotFound, "dispose consumer failed", err))
				return
			}
			b.guard.Handle = nil
		}
		clear(b.received)
		reply <- Response{Kind: RespConsumerDisposed}
	}, reply)
}

// DisposeAll disposes the active consumer and every open producer.
func (b *Bus) DisposeAll(ctx context.Context) (Response, error) {
	reply := make(chan Response, 1)
	return b.submit(ctx, func() {
		release, err := b.guard.Acquire(ctx, b.bulkCfg.LockTimeout, nil)
		if err != nil {
			reply <- errResponse(err)
			return
		}
		if b.guard.Handle != nil {
			if err := b.guard.Handle.Dispose(ctx); err != nil {
				b.log.Warn("dispose consumer failed", "error", err)
			}
			b.guard.Handle = nil
		}
		release()
		clear(b.received)

		for name, p := range b.producers {
			if err := p.Dispose(ctx); err != nil {
				b.log.Warn("dispose producer failed", "queue", name, "error", err)
			}
		}
		b.producers = make(map[string]servicebus.ProducerHandle)
		reply <- Response{Kind: RespAllResourcesDisposed}
	}, reply)
}

// ConnectionStatus reports whether a consumer is currently active.
func (b *Bus) ConnectionStatus(ctx context.Context) (Response, error) {
	reply := make(chan Response, 1)
	return b.submit(ctx, func() {
		reply <- Response{Kind: RespConnectionStatus, Connected: b.guard.Handle != nil}
	}, reply)
}

// Close stops the worker goroutine. In-flight commands already accepted
// are allowed to finish; new submissions fail with ConnectionLost.
func (b *Bus) Close() {
	b.closeOne.Do(func() { close(b.closeCh) })
}
