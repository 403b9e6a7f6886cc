// Package channel provides the broadcast publish/subscribe transport between
// the collector and the receiver. Delivery is at most once and may repeat
// messages; durability belongs to the append logs, not to the channel.
package channel

import (
	"context"
	"time"
)

// Logger defines the logging contract used by the transports.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Message is one payload delivered by a subscription.
type Message struct {
	Payload []byte
	// DeliveryToken identifies the delivery within the transport (sequence, offset), if it has one.
	DeliveryToken string
	ReceivedAt    time.Time
}

// Publisher broadcasts payloads to the configured channel.
type Publisher interface {
	// Publish sends the payload and waits for the transport to accept it,
	// at most until the context deadline.
	Publish(ctx context.Context, payload []byte) error
	Close() error
}

// Subscriber opens subscriptions to the configured channel.
type Subscriber interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription delivers messages in transport order until it ends.
type Subscription interface {
	// Messages is closed when the subscription ends.
	Messages() <-chan Message
	// Err reports why the subscription ended; nil after Close or context cancellation.
	Err() error
	Close() error
}
