package domain

import (
	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// InboundMessage is a decoded channel message on its way to the log.
type InboundMessage struct {
	Payload []byte
	Reading reading.Reading
	Meta    reading.Meta
	// Token identifies the delivery on the transport, it may be empty.
	Token string
}
