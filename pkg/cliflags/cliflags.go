// Package cliflags holds the command line flags shared by the binaries and
// turns them into validated settings. Every flag can also be set from the
// environment, including values loaded from a .env file.
package cliflags

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samoilenko/sensor_telemetry/pkg/channel"
	"github.com/samoilenko/sensor_telemetry/pkg/httpserver"
	"github.com/samoilenko/sensor_telemetry/pkg/logging"
	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// Flag names shared by several binaries.
const (
	LogLevel       = "log-level"
	LogFormat      = "log-format"
	MetricsAddress = "metrics-address"
	ChannelDriver  = "channel-driver"
	ChannelURL     = "channel-url"
	ChannelName    = "channel-name"
	PublishKey     = "publish-key"
	SubscribeKey   = "subscribe-key"
	ChannelTimeout = "channel-timeout"
	Fields         = "fields"
	FlushInterval  = "flush-interval"
)

// Defaults of the channel flags.
const (
	DefaultChannel = "analog_in_channel"
	DefaultNATSURL = "nats://127.0.0.1:4222"
)

// LoggingFlags configure the zap logger.
func LoggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    LogLevel,
			Usage:   "log level: debug, info, warn or error",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    LogFormat,
			Usage:   "log encoding: console or json",
			Value:   "console",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
	}
}

// MetricsFlag is the bind address of the /metrics and /healthz endpoints.
// Empty disables them.
func MetricsFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    MetricsAddress,
		Usage:   "address to expose /metrics and /healthz on, empty to disable",
		Sources: cli.EnvVars("METRICS_ADDRESS"),
	}
}

// ChannelFlags configure the pub/sub channel. The PUBNUB_* variables are
// accepted for compatibility with existing deployments.
func ChannelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    ChannelDriver,
			Usage:   "broker behind the channel: nats or kafka",
			Value:   string(channel.DriverNATS),
			Sources: cli.EnvVars("CHANNEL_DRIVER"),
		},
		&cli.StringFlag{
			Name:    ChannelURL,
			Usage:   "NATS server url or comma separated Kafka brokers",
			Value:   DefaultNATSURL,
			Sources: cli.EnvVars("CHANNEL_URL"),
		},
		&cli.StringFlag{
			Name:    ChannelName,
			Usage:   "channel name (NATS subject or Kafka topic)",
			Value:   DefaultChannel,
			Sources: cli.EnvVars("PUBNUB_CHANNEL", "CHANNEL_NAME"),
		},
		&cli.StringFlag{
			Name:    PublishKey,
			Usage:   "publish key, empty disables publishing",
			Sources: cli.EnvVars("PUBNUB_PUBLISH_KEY", "CHANNEL_PUBLISH_KEY"),
		},
		&cli.StringFlag{
			Name:    SubscribeKey,
			Usage:   "subscribe key, empty disables subscribing",
			Sources: cli.EnvVars("PUBNUB_SUBSCRIBE_KEY", "CHANNEL_SUBSCRIBE_KEY"),
		},
		&cli.DurationFlag{
			Name:    ChannelTimeout,
			Usage:   "timeout of a single channel operation",
			Value:   5 * time.Second,
			Sources: cli.EnvVars("CHANNEL_TIMEOUT"),
		},
	}
}

// FieldsFlag lists the measurement fields of a reading, comma separated.
func FieldsFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    Fields,
		Usage:   "comma separated measurement field names",
		Value:   value,
		Sources: cli.EnvVars("FIELDS"),
	}
}

// FlushIntervalFlag is how often the append log is synced to disk.
func FlushIntervalFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:    FlushInterval,
		Usage:   "how often the log file is synced to disk",
		Value:   time.Second,
		Sources: cli.EnvVars("FLUSH_INTERVAL"),
	}
}

// Logger builds the logger configured by LoggingFlags.
func Logger(cmd *cli.Command, name string) (*logging.Logger, error) {
	return logging.New(name, cmd.String(LogLevel), cmd.String(LogFormat))
}

// Metrics returns the validated metrics bind address.
func Metrics(cmd *cli.Command) (httpserver.BindAddress, error) {
	return httpserver.NewOptionalBindAddress(cmd.String(MetricsAddress))
}

// Channel builds the channel settings configured by ChannelFlags.
func Channel(cmd *cli.Command, clientName string, bufferSize int) (channel.Config, error) {
	driver, err := channel.NewDriver(cmd.String(ChannelDriver))
	if err != nil {
		return channel.Config{}, err
	}

	cfg := channel.Config{
		Driver:        driver,
		URL:           strings.TrimSpace(cmd.String(ChannelURL)),
		Name:          strings.TrimSpace(cmd.String(ChannelName)),
		PublishKey:    cmd.String(PublishKey),
		SubscribeKey:  cmd.String(SubscribeKey),
		ClientName:    clientName,
		Timeout:       cmd.Duration(ChannelTimeout),
		BufferSize:    bufferSize,
		MaxReconnects: 5,
	}
	if err := cfg.Validate(); err != nil {
		return channel.Config{}, err
	}
	return cfg, nil
}

// Schema parses the fields flag. An empty value yields a nil schema.
func Schema(cmd *cli.Command) (reading.Schema, error) {
	return reading.ParseSchema(cmd.String(Fields))
}

// ParseBool accepts 1, true and yes (any case) as true; everything else is false.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// ParseFloat parses a finite number given through a string flag.
func ParseFloat(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %q", name, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a finite number: %q", name, raw)
	}
	return v, nil
}
