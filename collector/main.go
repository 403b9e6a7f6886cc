// The collector samples one device on a fixed cadence, appends every reading
// to a local CSV log and publishes it to the telemetry channel.
//
// Usage example: collector --interval 1 27eU
//
// Every flag can be set through the environment or a .env file, e.g.
// TF_UID, TF_HOST, TF_PORT, INTERVAL, CSV_FILE, PUBLISH, PUBNUB_CHANNEL,
// PUBNUB_PUBLISH_KEY. Run with --help for the full list.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	collectorDomain "github.com/samoilenko/sensor_telemetry/collector/domain"
	collectorInfrastructure "github.com/samoilenko/sensor_telemetry/collector/infrastructure"
	"github.com/samoilenko/sensor_telemetry/pkg/appendlog"
	"github.com/samoilenko/sensor_telemetry/pkg/channel"
	"github.com/samoilenko/sensor_telemetry/pkg/cliflags"
	"github.com/samoilenko/sensor_telemetry/pkg/httpserver"
	"github.com/samoilenko/sensor_telemetry/pkg/logging"
)

func endWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func main() {
	_ = godotenv.Load()

	ctx, finish := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer finish()

	cmd := &cli.Command{
		Name:      "collector",
		Usage:     "sample a sensor, log readings to CSV and publish them",
		ArgsUsage: "[device uid]",
		Flags:     collectorInfrastructure.Flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := collectorInfrastructure.LoadAppConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := cliflags.Logger(cmd, "collector")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return run(ctx, cfg, logger)
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		endWithError(err)
	}
}

func run(ctx context.Context, cfg collectorInfrastructure.AppConfig, logger *logging.Logger) error {
	device, closeDevice, err := newDevice(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDevice()

	log, err := appendlog.Open(cfg.LogPath, cfg.Fields, cfg.FlushInterval, logger.Named("log"))
	if err != nil {
		return err
	}
	defer func() {
		if err := log.Close(); err != nil {
			logger.Error("error on closing log: %s", err.Error())
		}
	}()

	publisher, err := channel.NewPublisher(cfg.Channel, logger.Named("channel"))
	if err != nil {
		return err
	}
	defer func() { _ = publisher.Close() }()

	clk := clock.New()
	sender := collectorInfrastructure.NewChannelSender(
		publisher,
		collectorInfrastructure.NewRetryAfterDelay(clk),
		cfg.PublishCooldown,
		logger,
	)
	collector := collectorDomain.NewCollector(device, log, sender, collectorDomain.Settings{
		SourceID:       cfg.DeviceUID,
		Interval:       cfg.Interval,
		DeviceTimeout:  cfg.DeviceTimeout,
		PublishTimeout: cfg.Channel.Timeout,
	}, clk, logger)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Start(gCtx)
		return nil
	})
	g.Go(func() error {
		return httpserver.Run(gCtx, cfg.MetricsAddress, httpserver.NewMux(), logger.Named("http"))
	})
	g.Go(func() error {
		return collector.Run(gCtx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("collector shut down")
	return nil
}

func newDevice(
	ctx context.Context,
	cfg collectorInfrastructure.AppConfig,
	logger *logging.Logger,
) (collectorDomain.Device, func(), error) {
	if cfg.Device == collectorInfrastructure.DeviceDummy {
		logger.Info("using the dummy device with fields %s", cfg.Fields)
		return collectorInfrastructure.NewDummyDevice(cfg.Fields, 20, 0.5, uint64(os.Getpid())), func() {}, nil
	}

	device, err := collectorInfrastructure.NewTinkerforgeDevice(cfg.DeviceAddress, cfg.DeviceUID, logger)
	if err != nil {
		return nil, nil, err
	}
	connectCtx, cancel := context.WithTimeout(ctx, cfg.DeviceTimeout)
	defer cancel()
	if err := device.Connect(connectCtx); err != nil {
		return nil, nil, err
	}
	return device, func() { _ = device.Close() }, nil
}
