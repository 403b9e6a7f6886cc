// Package domain contains the receiving side of the telemetry pipeline:
// subscribe to the channel, decode every message and append it to the
// receiver log, reconnecting with backoff when the subscription ends.
package domain

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/samoilenko/sensor_telemetry/pkg/appendlog"
	"github.com/samoilenko/sensor_telemetry/pkg/channel"
	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// State of the receiver loop.
type State int32

// Receiver states.
const (
	StateDisconnected State = iota
	StateSubscribed
	StateReceiving
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateSubscribed:
		return "subscribed"
	case StateReceiving:
		return "receiving"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Receiver persists every message of a subscription. Duplicates and out of
// order messages are written as they arrive.
type Receiver struct {
	subscriber   channel.Subscriber
	log          appendlog.Appender
	interceptors *Interceptors[InboundMessage]
	backoff      Backoff
	clock        clock.Clock
	logger       Logger
	state        atomic.Int32
}

// NewReceiver creates a Receiver.
func NewReceiver(
	subscriber channel.Subscriber,
	log appendlog.Appender,
	interceptors *Interceptors[InboundMessage],
	backoff Backoff,
	clk clock.Clock,
	logger Logger,
) *Receiver {
	if interceptors == nil {
		interceptors = WithInterceptors[InboundMessage]()
	}
	return &Receiver{
		subscriber:   subscriber,
		log:          log,
		interceptors: interceptors,
		backoff:      backoff,
		clock:        clk,
		logger:       logger,
	}
}

// State returns the current state of the loop.
func (r *Receiver) State() State {
	return State(r.state.Load())
}

// Run subscribes and persists messages until the context is cancelled (nil)
// or the log rejects a message because of its schema (error). A message
// being handled when the context is cancelled is still persisted.
func (r *Receiver) Run(ctx context.Context) error {
	defer r.state.Store(int32(StateStopped))

	delay := r.backoff.Min
	for {
		if ctx.Err() != nil {
			r.logger.Info("receiver stopped")
			return nil
		}
		r.state.Store(int32(StateDisconnected))

		sub, err := r.subscriber.Subscribe(ctx)
		if err != nil {
			subscriptionsTotal.WithLabelValues("failed").Inc()
			r.logger.Error("error on subscribing, next attempt in %s: %s", delay, err.Error())
			if !r.wait(ctx, delay) {
				r.logger.Info("receiver stopped")
				return nil
			}
			delay = r.backoff.Next(delay)
			continue
		}

		subscriptionsTotal.WithLabelValues("ok").Inc()
		r.logger.Info("subscribed, waiting for messages")
		r.state.Store(int32(StateSubscribed))

		received, err := r.consume(ctx, sub)
		closeErr := sub.Close()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			r.logger.Info("receiver stopped")
			return nil
		}

		if received > 0 {
			delay = r.backoff.Min
		}
		subscriptionsTotal.WithLabelValues("ended").Inc()
		r.logger.Error("subscription ended after %d messages, resubscribing in %s: %v",
			received, delay, errors.Join(sub.Err(), closeErr))
		if !r.wait(ctx, delay) {
			r.logger.Info("receiver stopped")
			return nil
		}
		delay = r.backoff.Next(delay)
	}
}

// consume handles messages until the subscription ends or the context is
// cancelled. It returns the number of messages seen. The first message moves
// the loop from subscribed to receiving.
func (r *Receiver) consume(ctx context.Context, sub channel.Subscription) (int, error) {
	received := 0
	for {
		select {
		case <-ctx.Done():
			return received, nil
		case msg, ok := <-sub.Messages():
			if !ok {
				return received, nil
			}
			if received == 0 {
				r.state.Store(int32(StateReceiving))
			}
			received++
			if err := r.handle(msg); err != nil {
				return received, err
			}
		}
	}
}

// handle decodes, filters and appends one message. Only a schema violation
// is returned, every other failure is logged and counted.
func (r *Receiver) handle(msg channel.Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while handling message %s: %v", msg.DeliveryToken, rec)
			messagesTotal.WithLabelValues("panic").Inc()
			err = nil
		}
	}()

	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = r.clock.Now()
	}

	rd, meta, err := reading.Decode(msg.Payload, receivedAt)
	if err != nil {
		r.logger.Error("dropping malformed message %s: %s", msg.DeliveryToken, err.Error())
		messagesTotal.WithLabelValues("malformed").Inc()
		return nil
	}

	inbound := &InboundMessage{Payload: msg.Payload, Reading: rd, Meta: meta, Token: msg.DeliveryToken}
	if err := r.interceptors.Apply(inbound); err != nil {
		r.reject(inbound, err)
		return nil
	}

	outcome, err := appendlog.AppendWithRetry(r.log, inbound.Reading)
	appendsTotal.WithLabelValues(string(outcome)).Inc()
	switch outcome {
	case appendlog.Rejected:
		messagesTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("message %s: %w", describe(inbound), err)
	case appendlog.Dropped:
		r.logger.Error("message %s dropped after a failed retry: %s", describe(inbound), err.Error())
		messagesTotal.WithLabelValues("dropped").Inc()
		return nil
	}

	r.logger.Info("message %s persisted", describe(inbound))
	messagesTotal.WithLabelValues("persisted").Inc()
	return nil
}

func (r *Receiver) reject(msg *InboundMessage, err error) {
	var rateLimitErr *RateLimitError
	switch {
	case errors.As(err, &rateLimitErr):
		messagesTotal.WithLabelValues("rate_limited").Inc()
	case errors.Is(err, ErrValidation):
		messagesTotal.WithLabelValues("invalid").Inc()
	default:
		messagesTotal.WithLabelValues("rejected").Inc()
	}
	r.logger.Error("message %s rejected: %s", describe(msg), err.Error())
}

// wait sleeps for delay on the receiver clock. It returns false when the
// context is cancelled first.
func (r *Receiver) wait(ctx context.Context, delay time.Duration) bool {
	timer := r.clock.Timer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func describe(msg *InboundMessage) string {
	switch {
	case msg.Meta.MessageID != "":
		return fmt.Sprintf("%s (seq %d)", msg.Meta.MessageID, msg.Meta.Seq)
	case msg.Token != "":
		return msg.Token
	default:
		return reading.FormatTime(msg.Reading.Timestamp)
	}
}
