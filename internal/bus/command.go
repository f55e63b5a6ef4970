// Package bus implements the Command Bus: the single-consumer actor that
// owns the broker client, the producer map, and the active consumer, per
// spec.md §4.9. Grounded on
// Chris-Alexander-Pop-microservices-library/pkg/messaging's single-writer
// ownership of its adapter, generalized into an explicit actor loop per
// original_source/server/src/service_bus_manager (directory absent from
// the retrieval pack; reconstructed from spec.md §4.9/§5's command list and
// ordering guarantees).
package bus

import (
	"time"

	"github.com/dawidpereira/quetty-sub002/internal/bulk"
	"github.com/dawidpereira/quetty-sub002/internal/servicebus"
)

// ConsumerFactory creates the broker receiver behind a queue switch. The
// Bus never imports azservicebus directly; production wiring supplies a
// factory closing over the real client, tests supply one returning a fake
// ConsumerHandle.
type ConsumerFactory func(info servicebus.QueueInfo) (servicebus.ConsumerHandle, error)

// ProducerFactory creates the broker sender for a queue name on first use.
type ProducerFactory func(queue string) (servicebus.ProducerHandle, error)

// QueueStats is the Bus-level view of a queue's message counts, filled in
// from the Statistics Service (internal/management) by the caller that
// wires GetQueueStats, or left zero when unavailable.
type QueueStats struct {
	Active     int64
	DeadLetter int64
	FetchedAt  time.Time
}

// BulkDeleteRequest parameterizes a BulkDelete command, per spec.md §4.9.
type BulkDeleteRequest struct {
	MessageIDs  []servicebus.MessageIdentifier
	MaxPosition int
	Cancel      <-chan struct{}
	Progress    chan<- bulk.ProgressEvent
}

// BulkSendRequest parameterizes a BulkSend command, per spec.md §4.9.
type BulkSendRequest struct {
	TargetQueue  string
	ShouldDelete bool
	MessageIDs   []servicebus.MessageIdentifier
	MaxPosition  int
	Cancel       <-chan struct{}
	Progress     chan<- bulk.ProgressEvent
}
