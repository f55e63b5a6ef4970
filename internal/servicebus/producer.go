package servicebus

import (
	"context"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"

	"github.com/dawidpereira/quetty-sub002/internal/apperrors"
)

// Producer owns one broker sender for a single queue, per spec.md §4.8.
// Adapted from
// Chris-Alexander-Pop-microservices-library/pkg/messaging/adapters/azservicebus/servicebus.go's
// producer, generalized so SendBatch overflows into a second batch
// instead of erroring.
type Producer struct {
	mu     sync.Mutex
	sender *azservicebus.Sender
	queue  string
}

// NewProducer wraps an already-created sender for queue.
func NewProducer(sender *azservicebus.Sender, queue string) *Producer {
	return &Producer{sender: sender, queue: queue}
}

// QueueName returns the queue this producer sends to.
func (p *Producer) QueueName() string { return p.queue }

// Send transmits a single message body under a freshly generated UUID
// message ID; no ID from a source message is carried over.
func (p *Producer) Send(ctx context.Context, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sender == nil {
		return apperrors.New(apperrors.KindProducerNotFound, "producer already disposed", nil)
	}

	id := uuid.NewString()
	msg := &azservicebus.Message{Body: body, MessageID: &id}
	if err := p.sender.SendMessage(ctx, msg, nil); err != nil {
		return apperrors.New(apperrors.KindMessageSendFailed, "send message failed", err)
	}
	return nil
}

// SendBatch transmits every body in bodies, packing as many as fit into
// each broker batch and starting a new batch on overflow.
func (p *Producer) SendBatch(ctx context.Context, bodies [][]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sender == nil {
		return apperrors.New(apperrors.KindProducerNotFound, "producer already disposed", nil)
	}

	batch, err := p.sender.NewMessageBatch(ctx, nil)
	if err != nil {
		return apperrors.New(apperrors.KindMessageSendFailed, "create message batch failed", err)
	}

	flush := func() error {
		if batch.NumMessages() == 0 {
			return nil
		}
		if err := p.sender.SendMessageBatch(ctx, batch, nil); err != nil {
			return apperrors.New(apperrors.KindMessageSendFailed, "send message batch failed", err)
		}
		return nil
	}

	for _, body := range bodies {
		id := uuid.NewString()
		msg := &azservicebus.Message{Body: body, MessageID: &id}
		if err := batch.AddMessage(msg, nil); err != nil {
			if flushErr := flush(); flushErr != nil {
				return flushErr
			}
			batch, err = p.sender.NewMessageBatch(ctx, nil)
			if err != nil {
				return apperrors.New(apperrors.KindMessageSendFailed, "create message batch failed", err)
			}
			if err := batch.AddMessage(msg, nil); err != nil {
				return apperrors.New(apperrors.KindMessageSendFailed, "message too large for an empty batch", err)
			}
		}
	}

	return flush()
}

// Dispose closes the underlying sender. Idempotent.
func (p *Producer) Dispose(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sender == nil {
		return nil
	}
	s := p.sender
	p.sender = nil
	return s.Close(ctx)
}
