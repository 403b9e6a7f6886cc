package domain

import (
	"context"
	"errors"
	"time"

	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// ReadingSender defines the contract for publishing readings to the channel.
type ReadingSender interface {
	// Send publishes one reading. It returns *CooldownError when publishing
	// is paused after an earlier failure.
	Send(ctx context.Context, r reading.Reading) error
}

// send publishes the reading with its own timeout, detached from the run
// context so that a publish started before shutdown can still complete.
// Failures are logged and counted, never returned.
func (c *Collector) send(ctx context.Context, r reading.Reading) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.settings.PublishTimeout)
	defer cancel()

	err := c.sender.Send(sendCtx, r)
	if err == nil {
		publishesTotal.WithLabelValues("ok").Inc()
		return
	}

	var cooldownErr *CooldownError
	if errors.As(err, &cooldownErr) {
		c.logger.Info("publish skipped, next attempt in %s", cooldownErr.Delay.Round(time.Millisecond))
		publishesTotal.WithLabelValues("skipped").Inc()
		return
	}

	c.logger.Error("error publishing reading: %s", err.Error())
	publishesTotal.WithLabelValues("error").Inc()
}
