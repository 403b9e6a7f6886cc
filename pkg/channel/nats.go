package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// natsOptions builds the connection options shared by publisher and subscriber.
func natsOptions(cfg Config, token, role string, logger Logger) []nats.Option {
	opts := []nats.Option{
		nats.Name(fmt.Sprintf("%s-%s", cfg.ClientName, role)),
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Error("nats %s disconnected: %s", role, err.Error())
				return
			}
			logger.Info("nats %s disconnected", role)
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			logger.Info("nats %s reconnected to %s", role, conn.ConnectedUrl())
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	return opts
}

// NATSPublisher publishes payloads on a NATS subject named after the channel.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
}

// NewNATSPublisher connects to the server. An unreachable server is not an
// error: the client keeps reconnecting in the background and Publish fails
// with ErrNotConnected meanwhile.
func NewNATSPublisher(cfg Config, logger Logger) (*NATSPublisher, error) {
	opts := append(natsOptions(cfg, cfg.PublishKey, "publisher", logger),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, &TransportError{Op: "connect", Err: err}
	}

	return &NATSPublisher{
		conn:    conn,
		subject: cfg.Name,
		timeout: cfg.Timeout,
	}, nil
}

// Publish sends the payload with a unique message id header and flushes it
// to the server so that a dead connection is reported instead of silently
// buffered.
func (p *NATSPublisher) Publish(ctx context.Context, payload []byte) error {
	if !p.conn.IsConnected() {
		return &TransportError{Op: "publish", Err: ErrNotConnected}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    payload,
		Header:  nats.Header{nats.MsgIdHdr: []string{uuid.NewString()}},
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return &TransportError{Op: "publish", Err: err}
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return &TransportError{Op: "publish", Err: err}
	}

	return nil
}

// Close closes the connection.
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber opens a fresh NATS connection per subscription. The client
// reconnects on its own a bounded number of times; after that the
// subscription ends with an error and the caller decides when to retry.
type NATSSubscriber struct {
	cfg    Config
	logger Logger
}

// NewNATSSubscriber creates a subscriber for the configured subject.
func NewNATSSubscriber(cfg Config, logger Logger) *NATSSubscriber {
	return &NATSSubscriber{cfg: cfg, logger: logger}
}

// Subscribe connects and subscribes to the subject.
func (s *NATSSubscriber) Subscribe(ctx context.Context) (Subscription, error) {
	ended := make(chan error, 1)

	opts := append(natsOptions(s.cfg, s.cfg.SubscribeKey, "subscriber", s.logger),
		nats.MaxReconnects(s.cfg.MaxReconnects),
		nats.ClosedHandler(func(_ *nats.Conn) {
			select {
			case ended <- &TransportError{Op: "subscribe", Err: ErrConnectionClosed}:
			default:
			}
		}),
	)

	conn, err := nats.Connect(s.cfg.URL, opts...)
	if err != nil {
		return nil, &TransportError{Op: "subscribe", Err: err}
	}

	in := make(chan *nats.Msg, s.cfg.BufferSize)
	natsSub, err := conn.ChanSubscribe(s.cfg.Name, in)
	if err == nil {
		err = conn.FlushTimeout(s.cfg.Timeout)
	}
	if err != nil {
		conn.Close()
		return nil, &TransportError{Op: "subscribe", Err: err}
	}

	sub := newSubscription(s.cfg.BufferSize, func() error {
		err := natsSub.Unsubscribe()
		conn.Close()
		if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
			return nil
		}
		return err
	})

	go func() {
		defer close(sub.messages)
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case err := <-ended:
				sub.end(err)
				return
			case <-sub.done:
				return
			case msg := <-in:
				delivered := sub.deliver(Message{
					Payload:       msg.Data,
					DeliveryToken: deliveryToken(msg),
					ReceivedAt:    time.Now(),
				})
				if !delivered {
					return
				}
			}
		}
	}()

	return sub, nil
}

func deliveryToken(msg *nats.Msg) string {
	return msg.Header.Get(nats.MsgIdHdr)
}
