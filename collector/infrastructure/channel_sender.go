package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	collectorDomain "github.com/samoilenko/sensor_telemetry/collector/domain"
	"github.com/samoilenko/sensor_telemetry/pkg/channel"
	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// IDGenerator defines the contract for generating sequence numbers.
type IDGenerator interface {
	// Generate returns the next int64 identifier.
	Generate() int64
}

// ChannelSender encodes readings and publishes them on the channel. After a
// failed publish it pauses for the cooldown period, so an unreachable
// broker costs one timeout per period instead of one per tick.
type ChannelSender struct {
	publisher   channel.Publisher
	idGenerator IDGenerator
	retryAfter  *RetryAfterDelay
	cooldown    time.Duration
	logger      collectorDomain.Logger
}

// Send publishes the reading or returns *domain.CooldownError while paused.
func (s *ChannelSender) Send(ctx context.Context, r reading.Reading) error {
	if delay := s.retryAfter.Get(); delay > 0 {
		return &collectorDomain.CooldownError{Delay: delay}
	}

	meta := reading.Meta{MessageID: uuid.NewString(), Seq: s.idGenerator.Generate()}
	payload, err := reading.Encode(r, meta)
	if err != nil {
		return fmt.Errorf("error encoding reading: %w", err)
	}

	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.retryAfter.Set(s.cooldown)
		if s.cooldown > 0 {
			s.logger.Info("publishing paused for %s", s.cooldown)
		}
		return fmt.Errorf("message %s, seq %d: %w", meta.MessageID, meta.Seq, err)
	}

	s.retryAfter.Reset()
	return nil
}

// NewChannelSender creates a ChannelSender. A zero cooldown disables the pause.
func NewChannelSender(
	publisher channel.Publisher,
	retryAfter *RetryAfterDelay,
	cooldown time.Duration,
	logger collectorDomain.Logger,
) *ChannelSender {
	return &ChannelSender{
		publisher:   publisher,
		idGenerator: &AtomicIDGenerator{},
		retryAfter:  retryAfter,
		cooldown:    cooldown,
		logger:      logger,
	}
}
