package channel

import (
	"context"
	"sync"
)

// Nop is the transport used when no keys are configured. Publishing
// succeeds without doing anything and subscriptions stay idle until
// cancelled.
type Nop struct{}

// Publish discards the payload.
func (Nop) Publish(context.Context, []byte) error {
	return nil
}

// Close does nothing.
func (Nop) Close() error {
	return nil
}

// Subscribe returns a subscription that never delivers a message.
func (Nop) Subscribe(ctx context.Context) (Subscription, error) {
	sub := &nopSubscription{
		messages: make(chan Message),
		done:     make(chan struct{}),
	}
	go func() {
		select {
		case <-ctx.Done():
		case <-sub.done:
		}
		close(sub.messages)
	}()
	return sub, nil
}

type nopSubscription struct {
	once     sync.Once
	messages chan Message
	done     chan struct{}
}

func (s *nopSubscription) Messages() <-chan Message {
	return s.messages
}

func (s *nopSubscription) Err() error {
	return nil
}

func (s *nopSubscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
