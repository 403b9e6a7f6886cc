package channel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachable points at a port nothing listens on.
func unreachableConfig() Config {
	return Config{
		Driver:        DriverNATS,
		URL:           "nats://127.0.0.1:1",
		Name:          "sensors",
		PublishKey:    "p",
		SubscribeKey:  "s",
		ClientName:    "test",
		Timeout:       200 * time.Millisecond,
		BufferSize:    4,
		MaxReconnects: 1,
	}
}

func TestNATSPublisher_NotConnected(t *testing.T) {
	publisher, err := NewNATSPublisher(unreachableConfig(), &mockLogger{})
	require.NoError(t, err, "an unreachable server is retried in the background")
	defer func() { _ = publisher.Close() }()

	err = publisher.Publish(context.Background(), []byte("{}"))
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "publish", transportErr.Op)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestNATSSubscriber_ConnectFailure(t *testing.T) {
	subscriber := NewNATSSubscriber(unreachableConfig(), &mockLogger{})

	_, err := subscriber.Subscribe(context.Background())
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "subscribe", transportErr.Op)
}
