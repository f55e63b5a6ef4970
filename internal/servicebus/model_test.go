package servicebus_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dawidpereira/quetty-sub002/internal/servicebus"
)

func TestQueueInfo_EntityPath(t *testing.T) {
	main := servicebus.QueueInfo{Name: "orders", Kind: servicebus.QueueKindMain}
	require.Equal(t, "orders", main.EntityPath())

	dlq := servicebus.QueueInfo{Name: "orders", Kind: servicebus.QueueKindDeadLetter}
	require.Equal(t, "orders/$DeadLetterQueue", dlq.EntityPath())
}

func TestMessageIdentifier_Equal(t *testing.T) {
	a := servicebus.MessageIdentifier{ID: "m1", Sequence: 10}
	b := servicebus.MessageIdentifier{ID: "m1", Sequence: 10}
	c := servicebus.MessageIdentifier{ID: "m1", Sequence: 11}
	d := servicebus.MessageIdentifier{ID: "m2", Sequence: 10}

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c), "sequence must match")
	require.False(t, a.Equal(d), "id must match")
}

func TestMessageModel_Identifier(t *testing.T) {
	msg := servicebus.MessageModel{ID: "m1", Sequence: 42, State: servicebus.MessageStateReceived}
	id := msg.Identifier()
	require.Equal(t, servicebus.MessageIdentifier{ID: "m1", Sequence: 42}, id)
}
