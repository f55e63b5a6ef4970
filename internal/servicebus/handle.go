package servicebus

import (
	"context"
	"time"
)

// ConsumerHandle is the capability the Command Bus and Bulk Coordinator
// need from a Consumer. *Consumer satisfies it; tests substitute a fake
// so bus/bulk logic is exercised without a live namespace.
type ConsumerHandle interface {
	Info() QueueInfo
	PeekMessages(ctx context.Context, maxCount int32, fromSequence *int64) ([]MessageModel, error)
	ReceiveMessages(ctx context.Context, maxCount int32, timeout time.Duration) ([]MessageModel, error)
	Complete(ctx context.Context, msg MessageModel) error
	Abandon(ctx context.Context, msg MessageModel) error
	DeadLetter(ctx context.Context, msg MessageModel) error
	Dispose(ctx context.Context) error
}

// ProducerHandle is the capability the Command Bus and Bulk Coordinator
// need from a Producer. *Producer satisfies it.
type ProducerHandle interface {
	QueueName() string
	Send(ctx context.Context, body []byte) error
	SendBatch(ctx context.Context, bodies [][]byte) error
	Dispose(ctx context.Context) error
}

var (
	_ ConsumerHandle = (*Consumer)(nil)
	_ ProducerHandle = (*Producer)(nil)
)
