package channel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// saslMechanism turns a "user:secret" key into SASL PLAIN credentials.
// A key without a colon only enables its side of the transport.
func saslMechanism(key string) sasl.Mechanism {
	user, secret, ok := strings.Cut(key, ":")
	if !ok {
		return nil
	}
	return plain.Mechanism{Username: user, Password: secret}
}

// kafkaBatchTimeout bounds how long a publish waits for more messages to
// join its batch. Readings are published one at a time.
const kafkaBatchTimeout = 5 * time.Millisecond

// KafkaPublisher writes payloads to a topic named after the channel.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a writer for the configured brokers. Connections
// are opened lazily on the first publish.
func NewKafkaPublisher(cfg Config) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers()...),
			Topic:        cfg.Name,
			RequiredAcks: kafka.RequireOne,
			Balancer:     &kafka.LeastBytes{},
			MaxAttempts:  1,
			BatchSize:    1,
			BatchTimeout: kafkaBatchTimeout,
			WriteTimeout: cfg.Timeout,
			Transport: &kafka.Transport{
				ClientID:    cfg.ClientName,
				DialTimeout: cfg.Timeout,
				SASL:        saslMechanism(cfg.PublishKey),
			},
		},
	}
}

// Publish writes one message and waits for the leader to acknowledge it.
func (k *KafkaPublisher) Publish(ctx context.Context, payload []byte) error {
	err := k.writer.WriteMessages(ctx, kafka.Message{
		Value: payload,
		Time:  time.Now(),
	})
	if err != nil {
		return &TransportError{Op: "publish", Err: err}
	}
	return nil
}

// Close flushes and closes the writer.
func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// KafkaSubscriber reads the first partition of the topic from its current
// end, so every receiver sees every message published while it is attached.
type KafkaSubscriber struct {
	cfg Config
}

// NewKafkaSubscriber creates a subscriber for the configured topic.
func NewKafkaSubscriber(cfg Config) *KafkaSubscriber {
	return &KafkaSubscriber{cfg: cfg}
}

// Subscribe attaches a reader at the latest offset.
func (s *KafkaSubscriber) Subscribe(ctx context.Context) (Subscription, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   s.cfg.Brokers(),
		Topic:     s.cfg.Name,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
		MaxWait:   time.Second,
		Dialer: &kafka.Dialer{
			ClientID:      s.cfg.ClientName,
			Timeout:       s.cfg.Timeout,
			SASLMechanism: saslMechanism(s.cfg.SubscribeKey),
		},
	})
	if err := reader.SetOffset(kafka.LastOffset); err != nil {
		_ = reader.Close()
		return nil, &TransportError{Op: "subscribe", Err: err}
	}

	readCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(s.cfg.BufferSize, func() error {
		cancel()
		return reader.Close()
	})

	go func() {
		defer close(sub.messages)
		for {
			msg, err := reader.ReadMessage(readCtx)
			if err != nil {
				if readCtx.Err() != nil {
					_ = sub.Close()
					return
				}
				sub.end(&TransportError{Op: "subscribe", Err: err})
				return
			}

			delivered := sub.deliver(Message{
				Payload:       msg.Value,
				DeliveryToken: fmt.Sprintf("%d:%d", msg.Partition, msg.Offset),
				ReceivedAt:    time.Now(),
			})
			if !delivered {
				return
			}
		}
	}()

	return sub, nil
}
