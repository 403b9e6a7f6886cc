package channel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscription_FirstEndReasonWins(t *testing.T) {
	released := 0
	sub := newSubscription(1, func() error {
		released++
		return nil
	})

	cause := &TransportError{Op: "subscribe", Err: ErrConnectionClosed}
	sub.end(cause)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	assert.Equal(t, 1, released)
	assert.True(t, errors.Is(sub.Err(), ErrConnectionClosed))
}

func TestSubscription_DeliverAfterEnd(t *testing.T) {
	sub := newSubscription(0, nil)

	require.NoError(t, sub.Close())
	assert.False(t, sub.deliver(Message{Payload: []byte("late")}))
	assert.NoError(t, sub.Err())
}
