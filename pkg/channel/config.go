package channel

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Driver selects the broker behind the channel.
type Driver string

// Supported drivers.
const (
	DriverNATS  Driver = "nats"
	DriverKafka Driver = "kafka"
)

// NewDriver validates the driver name.
func NewDriver(raw string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(raw))); d {
	case DriverNATS, DriverKafka:
		return d, nil
	default:
		return "", fmt.Errorf("unknown channel driver %q, want %q or %q", raw, DriverNATS, DriverKafka)
	}
}

// Config holds the transport settings captured at startup.
type Config struct {
	Driver Driver
	// URL is the NATS server URL or a comma separated list of Kafka brokers.
	URL string
	// Name is the channel: a NATS subject or a Kafka topic.
	Name         string
	PublishKey   string
	SubscribeKey string
	ClientName   string
	Timeout      time.Duration
	BufferSize   int
	// MaxReconnects bounds the reconnect attempts of a NATS subscription before it ends.
	MaxReconnects int
}

// Validate checks the settings needed by an enabled side.
func (c Config) Validate() error {
	if !c.PublishEnabled() && !c.SubscribeEnabled() {
		return nil
	}
	if c.URL == "" {
		return errors.New("channel url cannot be empty")
	}
	if c.Timeout <= 0 {
		return errors.New("channel timeout must be greater than 0")
	}
	if c.BufferSize <= 0 {
		return errors.New("channel buffer size must be greater than 0")
	}
	return nil
}

// PublishEnabled reports whether a channel name and a publish key are set.
func (c Config) PublishEnabled() bool {
	return c.Name != "" && c.PublishKey != ""
}

// SubscribeEnabled reports whether a channel name and a subscribe key are set.
func (c Config) SubscribeEnabled() bool {
	return c.Name != "" && c.SubscribeKey != ""
}

// Brokers splits URL into the Kafka broker list.
func (c Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.URL, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// NewPublisher returns the publisher for the configured driver, or Nop when
// publishing is not configured.
func NewPublisher(cfg Config, logger Logger) (Publisher, error) {
	if !cfg.PublishEnabled() {
		logger.Info("channel publishing is disabled")
		return Nop{}, nil
	}

	switch cfg.Driver {
	case DriverKafka:
		return NewKafkaPublisher(cfg), nil
	case DriverNATS:
		publisher, err := NewNATSPublisher(cfg, logger)
		if err != nil {
			return nil, err
		}
		return publisher, nil
	default:
		return nil, fmt.Errorf("unknown channel driver %q", cfg.Driver)
	}
}

// NewSubscriber returns the subscriber for the configured driver, or Nop
// when subscribing is not configured.
func NewSubscriber(cfg Config, logger Logger) (Subscriber, error) {
	if !cfg.SubscribeEnabled() {
		logger.Info("channel subscription is disabled")
		return Nop{}, nil
	}

	switch cfg.Driver {
	case DriverKafka:
		return NewKafkaSubscriber(cfg), nil
	case DriverNATS:
		return NewNATSSubscriber(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown channel driver %q", cfg.Driver)
	}
}
