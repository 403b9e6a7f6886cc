package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewKafkaPublisher_WritesEachReadingImmediately(t *testing.T) {
	cfg := Config{
		Driver:     DriverKafka,
		Name:       "sensor",
		PublishKey: "collector:secret",
		URL:        "127.0.0.1:9092, 127.0.0.2:9092",
		Timeout:    time.Second,
		ClientName: "collector-1",
	}
	p := NewKafkaPublisher(cfg)
	t.Cleanup(func() { _ = p.Close() })

	w := p.writer
	assert.Equal(t, "sensor", w.Topic)
	assert.Equal(t, 1, w.BatchSize)
	assert.Positive(t, w.BatchTimeout)
	assert.LessOrEqual(t, w.BatchTimeout, 10*time.Millisecond, "a publish must not wait for a batch to fill")
	assert.Equal(t, 1, w.MaxAttempts)
	assert.Equal(t, time.Second, w.WriteTimeout)
}
