package channel

import (
	"sync"
)

// subscription holds the bookkeeping shared by the broker-backed subscriptions.
// The goroutine feeding messages owns the messages channel and closes it
// once done is closed.
type subscription struct {
	messages chan Message
	done     chan struct{}

	endOnce   sync.Once
	closeOnce sync.Once
	mu        sync.Mutex
	err       error
	release   func() error
	closeErr  error
}

func newSubscription(bufferSize int, release func() error) *subscription {
	return &subscription{
		messages: make(chan Message, bufferSize),
		done:     make(chan struct{}),
		release:  release,
	}
}

func (s *subscription) Messages() <-chan Message {
	return s.messages
}

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the subscription without an error and releases the broker resources.
func (s *subscription) Close() error {
	s.end(nil)
	s.closeOnce.Do(func() {
		if s.release != nil {
			s.closeErr = s.release()
		}
	})
	return s.closeErr
}

// end records why the subscription finished; only the first call counts.
func (s *subscription) end(err error) {
	s.endOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}

// deliver hands a message to the consumer unless the subscription has ended.
func (s *subscription) deliver(msg Message) bool {
	select {
	case s.messages <- msg:
		return true
	case <-s.done:
		return false
	}
}
