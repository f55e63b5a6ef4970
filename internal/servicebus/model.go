// Package servicebus implements the broker-facing core: the Consumer and
// Producer wrappers around azservicebus and the message/queue model, per
// spec.md §4.8. The Command Bus actor that drives them lives in
// internal/bus.
// Grounded on original_source/server/src/consumer.rs (the Option<Receiver>
// form, per spec.md §9's resolution of the consumer.rs/consumer/mod.rs
// divergence) and
// Chris-Alexander-Pop-microservices-library/pkg/messaging/adapters/azservicebus/servicebus.go.
package servicebus

import (
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
)

// MessageState tags where a MessageModel sits in the peek/receive/dispose
// lifecycle.
type MessageState string

const (
	MessageStatePeeked   MessageState = "peeked"
	MessageStateReceived MessageState = "received"
	MessageStateDeleted  MessageState = "deleted"
)

// MessageIdentifier is the composite broker key, per spec.md §3: both
// fields must match for equality, and Sequence is broker-assigned,
// monotone per queue.
type MessageIdentifier struct {
	ID       string
	Sequence int64
}

// Equal reports whether m and other address the same broker delivery.
func (m MessageIdentifier) Equal(other MessageIdentifier) bool {
	return m.ID == other.ID && m.Sequence == other.Sequence
}

// MessageModel is the peek/receive-agnostic view of a message handed to
// callers, per spec.md §3.
type MessageModel struct {
	Sequence      int64
	ID            string
	EnqueuedAt    time.Time
	DeliveryCount int32
	Body          []byte
	State         MessageState

	// raw is the underlying SDK message, present only for State ==
	// MessageStateReceived, needed to complete/abandon/dead-letter it.
	raw *azservicebus.ReceivedMessage
}

// Identifier returns the composite key for m.
func (m MessageModel) Identifier() MessageIdentifier {
	return MessageIdentifier{ID: m.ID, Sequence: m.Sequence}
}

// fromPeeked converts a peeked SDK message (non-destructive, no lock) into
// a MessageModel.
func fromPeeked(msg *azservicebus.ReceivedMessage) MessageModel {
	id := msg.MessageID
	if id == "" {
		id = uuid.NewString()
	}
	var enqueued time.Time
	if msg.EnqueuedTime != nil {
		enqueued = *msg.EnqueuedTime
	}
	return MessageModel{
		Sequence:      derefInt64(msg.SequenceNumber),
		ID:            id,
		EnqueuedAt:    enqueued,
		DeliveryCount: int32(msg.DeliveryCount),
		Body:          msg.Body,
		State:         MessageStatePeeked,
	}
}

// fromReceived converts a locked SDK message into a MessageModel, keeping
// the raw handle so Complete/Abandon/DeadLetter can be issued against it
// later.
func fromReceived(msg *azservicebus.ReceivedMessage) MessageModel {
	m := fromPeeked(msg)
	m.State = MessageStateReceived
	m.raw = msg
	return m
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// QueueKind distinguishes a queue's main body from its dead-letter
// subqueue, per spec.md §3.
type QueueKind string

const (
	QueueKindMain       QueueKind = "main"
	QueueKindDeadLetter QueueKind = "dead_letter"
)

// DeadLetterSuffix is the subqueue path segment the broker addresses the
// DLQ of queue Q at: "Q/$DeadLetterQueue", per spec.md §3/§6.
const DeadLetterSuffix = "/$DeadLetterQueue"

// QueueInfo identifies a queue (or its DLQ sibling) the bus is switched to.
type QueueInfo struct {
	Name string
	Kind QueueKind
}

// EntityPath returns the broker-addressable path for info: the bare queue
// name for Main, or "<name>/$DeadLetterQueue" for DeadLetter.
func (q QueueInfo) EntityPath() string {
	if q.Kind == QueueKindDeadLetter {
		return q.Name + DeadLetterSuffix
	}
	return q.Name
}
