package infrastructure

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samoilenko/sensor_telemetry/pkg/appendlog"
	"github.com/samoilenko/sensor_telemetry/pkg/channel"
	"github.com/samoilenko/sensor_telemetry/pkg/cliflags"
	"github.com/samoilenko/sensor_telemetry/pkg/httpserver"
	"github.com/samoilenko/sensor_telemetry/pkg/reading"
	receiverDomain "github.com/samoilenko/sensor_telemetry/receiver/domain"
)

// AppConfig holds all validated configuration parameters of the receiver.
type AppConfig struct {
	LogPath        appendlog.Path
	FlushInterval  appendlog.FlushInterval
	Fields         reading.Schema
	RateLimit      receiverDomain.RateLimit
	BufferSize     receiverDomain.BufferSize
	Backoff        receiverDomain.Backoff
	Channel        channel.Config
	MetricsAddress httpserver.BindAddress
}

// Flags returns the command line flags of the receiver.
func Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "csv-file",
			Usage:   "path of the receiver log",
			Value:   "sensor_data.csv",
			Sources: cli.EnvVars("CSV_FILE_RECEIVER"),
		},
		&cli.IntFlag{
			Name:    "rate-limit",
			Usage:   "inbound payload limit in bytes per second, 0 disables it",
			Sources: cli.EnvVars("RATE_LIMIT"),
		},
		&cli.IntFlag{
			Name:    "buffer-size",
			Usage:   "number of messages buffered by the subscription",
			Value:   10,
			Sources: cli.EnvVars("BUFFER_SIZE"),
		},
		&cli.DurationFlag{
			Name:    "backoff-min",
			Usage:   "first delay between subscription attempts",
			Value:   time.Second,
			Sources: cli.EnvVars("BACKOFF_MIN"),
		},
		&cli.DurationFlag{
			Name:    "backoff-max",
			Usage:   "maximum delay between subscription attempts",
			Value:   10 * time.Second,
			Sources: cli.EnvVars("BACKOFF_MAX"),
		},
		cliflags.FieldsFlag(""),
		cliflags.FlushIntervalFlag(),
		cliflags.MetricsFlag(),
	}
	flags = append(flags, cliflags.LoggingFlags()...)
	return append(flags, cliflags.ChannelFlags()...)
}

// LoadAppConfig validates the parsed flags.
func LoadAppConfig(cmd *cli.Command) (AppConfig, error) {
	var cfg AppConfig
	var err error

	if cfg.LogPath, err = appendlog.NewPath(cmd.String("csv-file")); err != nil {
		return AppConfig{}, err
	}
	if cfg.FlushInterval, err = appendlog.NewFlushInterval(cmd.Duration(cliflags.FlushInterval)); err != nil {
		return AppConfig{}, err
	}
	if cfg.Fields, err = cliflags.Schema(cmd); err != nil {
		return AppConfig{}, err
	}
	if cfg.RateLimit, err = receiverDomain.NewRateLimit(int(cmd.Int("rate-limit"))); err != nil {
		return AppConfig{}, err
	}
	if cfg.BufferSize, err = receiverDomain.NewBufferSize(int(cmd.Int("buffer-size"))); err != nil {
		return AppConfig{}, err
	}
	if cfg.Backoff, err = receiverDomain.NewBackoff(cmd.Duration("backoff-min"), cmd.Duration("backoff-max")); err != nil {
		return AppConfig{}, err
	}
	if cfg.Channel, err = cliflags.Channel(cmd, "receiver", int(cfg.BufferSize)); err != nil {
		return AppConfig{}, err
	}
	if cfg.MetricsAddress, err = cliflags.Metrics(cmd); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}
