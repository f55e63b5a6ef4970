package servicebus

import (
	"context"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"github.com/dawidpereira/quetty-sub002/internal/apperrors"
)

// Consumer owns one broker receiver, per spec.md §4.8. The receiver is
// held as a nilable pointer behind a mutex so dispose() is idempotent and
// every operation after dispose fails with ConsumerNotFound, rather than
// panicking — the Option<Receiver> form spec.md §9 resolves the source's
// consumer.rs/consumer/mod.rs divergence in favor of.
type Consumer struct {
	mu       sync.Mutex
	receiver *azservicebus.Receiver
	info     QueueInfo
}

// NewConsumer wraps an already-created receiver for info.
func NewConsumer(receiver *azservicebus.Receiver, info QueueInfo) *Consumer {
	return &Consumer{receiver: receiver, info: info}
}

// Info returns the QueueInfo this consumer was opened against.
func (c *Consumer) Info() QueueInfo {
	return c.info
}

// Equal reports identity equality of the underlying receiver, per spec.md
// §4.8.
func (c *Consumer) Equal(other *Consumer) bool {
	if c == nil || other == nil {
		return c == other
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()
	return c.receiver == other.receiver
}

// PeekMessages performs a non-destructive read of up to maxCount messages,
// optionally starting from fromSequence. It never acquires a message lock.
func (c *Consumer) PeekMessages(ctx context.Context, maxCount int32, fromSequence *int64) ([]MessageModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.receiver == nil {
		return nil, apperrors.New(apperrors.KindConsumerNotFound, "consumer already disposed", nil)
	}

	var opts *azservicebus.PeekMessagesOptions
	if fromSequence != nil {
		opts = &azservicebus.PeekMessagesOptions{FromSequenceNumber: fromSequence}
	}

	msgs, err := c.receiver.PeekMessages(ctx, int(maxCount), opts)
	if err != nil {
		return nil, apperrors.New(apperrors.KindMessageReceiveFailed, "peek messages failed", err)
	}

	result := make([]MessageModel, 0, len(msgs))
	for _, m := range msgs {
		result = append(result, fromPeeked(m))
	}
	return result, nil
}

// ReceiveMessages performs a locking receive of up to maxCount messages,
// bounded by timeout.
func (c *Consumer) ReceiveMessages(ctx context.Context, maxCount int32, timeout time.Duration) ([]MessageModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.receiver == nil {
		return nil, apperrors.New(apperrors.KindConsumerNotFound, "consumer already disposed", nil)
	}

	recvCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		recvCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	msgs, err := c.receiver.ReceiveMessages(recvCtx, int(maxCount), nil)
	if err != nil {
		return nil, apperrors.New(apperrors.KindMessageReceiveFailed, "receive messages failed", err)
	}

	result := make([]MessageModel, 0, len(msgs))
	for _, m := range msgs {
		result = append(result, fromReceived(m))
	}
	return result, nil
}

// Complete finalizes msg, removing it from the queue. msg must have been
// obtained via ReceiveMessages.
func (c *Consumer) Complete(ctx context.Context, msg MessageModel) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.receiver == nil {
		return apperrors.New(apperrors.KindConsumerNotFound, "consumer already disposed", nil)
	}
	if msg.raw == nil {
		return apperrors.New(apperrors.KindMessageCompleteFailed, "message was not received under lock", nil)
	}
	if err := c.receiver.CompleteMessage(ctx, msg.raw, nil); err != nil {
		return apperrors.New(apperrors.KindMessageCompleteFailed, "complete message failed", err)
	}
	return nil
}

// Abandon releases the lock on msg, returning it to the queue.
func (c *Consumer) Abandon(ctx context.Context, msg MessageModel) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.receiver == nil {
		return apperrors.New(apperrors.KindConsumerNotFound, "consumer already disposed", nil)
	}
	if msg.raw == nil {
		return apperrors.New(apperrors.KindMessageAbandonFailed, "message was not received under lock", nil)
	}
	if err := c.receiver.AbandonMessage(ctx, msg.raw, nil); err != nil {
		return apperrors.New(apperrors.KindMessageAbandonFailed, "abandon message failed", err)
	}
	return nil
}

// DeadLetter moves msg to the queue's DLQ subqueue.
func (c *Consumer) DeadLetter(ctx context.Context, msg MessageModel) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.receiver == nil {
		return apperrors.New(apperrors.KindConsumerNotFound, "consumer already disposed", nil)
	}
	if msg.raw == nil {
		return apperrors.New(apperrors.KindMessageDeadLetterFailed, "message was not received under lock", nil)
	}
	if err := c.receiver.DeadLetterMessage(ctx, msg.raw, nil); err != nil {
		return apperrors.New(apperrors.KindMessageDeadLetterFailed, "dead letter message failed", err)
	}
	return nil
}

// Dispose closes the underlying receiver. Idempotent: a second call is a
// no-op. After Dispose, every other method returns ConsumerNotFound.
func (c *Consumer) Dispose(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.receiver == nil {
		return nil
	}
	r := c.receiver
	c.receiver = nil
	return r.Close(ctx)
}
