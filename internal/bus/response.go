package bus

import (
	"github.com/dawidpereira/quetty-sub002/internal/bulk"
	"github.com/dawidpereira/quetty-sub002/internal/servicebus"
)

// ResponseKind tags the variant of a Response, mirroring
// original_source/server/src/service_bus_manager/responses.rs's
// ServiceBusResponse enum (file absent from the retrieval pack;
// reconstructed from spec.md §4.9's command list — one variant per
// command that returns data, plus Success/Error for the rest).
type ResponseKind string

const (
	RespQueueSwitched        ResponseKind = "QueueSwitched"
	RespMessagesReceived     ResponseKind = "MessagesReceived"
	RespMessageCompleted     ResponseKind = "MessageCompleted"
	RespMessageAbandoned     ResponseKind = "MessageAbandoned"
	RespMessageDeadLettered  ResponseKind = "MessageDeadLettered"
	RespBulkOperationResult  ResponseKind = "BulkOperationResult"
	RespMessageSent          ResponseKind = "MessageSent"
	RespMessagesSent         ResponseKind = "MessagesSent"
	RespConnectionStatus     ResponseKind = "ConnectionStatus"
	RespQueueStats           ResponseKind = "QueueStats"
	RespConsumerDisposed     ResponseKind = "ConsumerDisposed"
	RespAllResourcesDisposed ResponseKind = "AllResourcesDisposed"
	RespSuccess              ResponseKind = "Success"
	RespError                ResponseKind = "Error"
)

// Response is the typed result of a Bus command. Only the field(s)
// relevant to Kind are populated; callers typically use the Bus's typed
// wrapper methods rather than inspecting Response directly.
type Response struct {
	Kind ResponseKind

	QueueInfo  servicebus.QueueInfo
	Messages   []servicebus.MessageModel
	BulkResult bulk.BulkOperationResult
	Stats      QueueStats
	Connected  bool

	Err error
}
