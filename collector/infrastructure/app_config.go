package infrastructure

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	collectorDomain "github.com/samoilenko/sensor_telemetry/collector/domain"
	"github.com/samoilenko/sensor_telemetry/pkg/appendlog"
	"github.com/samoilenko/sensor_telemetry/pkg/channel"
	"github.com/samoilenko/sensor_telemetry/pkg/cliflags"
	"github.com/samoilenko/sensor_telemetry/pkg/httpserver"
	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// DeviceKind selects the device implementation.
type DeviceKind string

// Supported devices.
const (
	DeviceTinkerforge DeviceKind = "tinkerforge"
	DeviceDummy       DeviceKind = "dummy"
)

// NewDeviceKind validates the device name.
func NewDeviceKind(raw string) (DeviceKind, error) {
	switch k := DeviceKind(strings.ToLower(strings.TrimSpace(raw))); k {
	case DeviceTinkerforge, DeviceDummy:
		return k, nil
	default:
		return "", fmt.Errorf("unknown device %q, want %q or %q", raw, DeviceTinkerforge, DeviceDummy)
	}
}

// AppConfig is the collector configuration captured at startup.
type AppConfig struct {
	Device          DeviceKind
	DeviceUID       collectorDomain.DeviceUID
	DeviceAddress   collectorDomain.Address
	DeviceTimeout   time.Duration
	Fields          reading.Schema
	Interval        collectorDomain.Interval
	LogPath         appendlog.Path
	FlushInterval   appendlog.FlushInterval
	Publish         bool
	PublishCooldown time.Duration
	Channel         channel.Config
	MetricsAddress  httpserver.BindAddress
}

// Flags returns the command line flags of the collector.
func Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "uid",
			Usage:   "device uid, the first argument takes precedence",
			Value:   "27eU",
			Sources: cli.EnvVars("TF_UID"),
		},
		&cli.StringFlag{
			Name:    "device",
			Usage:   "device kind: tinkerforge or dummy",
			Value:   string(DeviceTinkerforge),
			Sources: cli.EnvVars("DEVICE"),
		},
		&cli.StringFlag{
			Name:    "host",
			Usage:   "brick daemon host",
			Value:   "localhost",
			Sources: cli.EnvVars("TF_HOST"),
		},
		&cli.IntFlag{
			Name:    "port",
			Usage:   "brick daemon port",
			Value:   4223,
			Sources: cli.EnvVars("TF_PORT"),
		},
		&cli.DurationFlag{
			Name:    "device-timeout",
			Usage:   "timeout of a single device read",
			Value:   2 * time.Second,
			Sources: cli.EnvVars("DEVICE_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:    "publish",
			Usage:   "publish readings to the channel (1, true or yes)",
			Value:   "true",
			Sources: cli.EnvVars("PUBLISH"),
		},
		&cli.StringFlag{
			Name:    "csv-file",
			Usage:   "path of the collector log",
			Value:   "sensor_data.csv",
			Sources: cli.EnvVars("CSV_FILE"),
		},
		&cli.StringFlag{
			Name:    "interval",
			Usage:   "sampling interval in seconds",
			Value:   "5",
			Sources: cli.EnvVars("INTERVAL"),
		},
		&cli.DurationFlag{
			Name:    "publish-cooldown",
			Usage:   "pause after a failed publish",
			Value:   5 * time.Second,
			Sources: cli.EnvVars("PUBLISH_COOLDOWN"),
		},
		cliflags.FieldsFlag("value"),
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

	if cfg.Device, err = NewDeviceKind(cmd.String("device")); err != nil {
		return AppConfig{}, err
	}

	rawUID := cmd.String("uid")
	if arg := cmd.Args().First(); arg != "" {
		rawUID = arg
	}
	if cfg.DeviceUID, err = collectorDomain.NewDeviceUID(rawUID); err != nil {
		return AppConfig{}, err
	}

	if cfg.DeviceAddress, err = collectorDomain.NewAddress(cmd.String("host"), int(cmd.Int("port"))); err != nil {
		return AppConfig{}, err
	}

	if cfg.DeviceTimeout = cmd.Duration("device-timeout"); cfg.DeviceTimeout <= 0 {
		return AppConfig{}, errors.New("device timeout must be greater than 0")
	}

	if cfg.Fields, err = cliflags.Schema(cmd); err != nil {
		return AppConfig{}, err
	}
	if cfg.Device == DeviceTinkerforge {
		cfg.Fields = reading.Schema{analogInV3Field}
	} else if len(cfg.Fields) == 0 {
		return AppConfig{}, errors.New("the dummy device needs at least one field")
	}

	seconds, err := cliflags.ParseFloat("interval", cmd.String("interval"))
	if err != nil {
		return AppConfig{}, err
	}
	if cfg.Interval, err = collectorDomain.NewInterval(seconds); err != nil {
		return AppConfig{}, err
	}

	if cfg.LogPath, err = appendlog.NewPath(cmd.String("csv-file")); err != nil {
		return AppConfig{}, err
	}
	if cfg.FlushInterval, err = appendlog.NewFlushInterval(cmd.Duration(cliflags.FlushInterval)); err != nil {
		return AppConfig{}, err
	}

	cfg.Publish = cliflags.ParseBool(cmd.String("publish"))
	if cfg.PublishCooldown = cmd.Duration("publish-cooldown"); cfg.PublishCooldown < 0 {
		return AppConfig{}, errors.New("publish cooldown cannot be negative")
	}

	if cfg.Channel, err = cliflags.Channel(cmd, "collector-"+string(cfg.DeviceUID), 1); err != nil {
		return AppConfig{}, err
	}
	if !cfg.Publish {
		cfg.Channel.PublishKey = ""
	}

	if cfg.MetricsAddress, err = cliflags.Metrics(cmd); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}
