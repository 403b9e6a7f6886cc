// The receiver subscribes to the telemetry channel and appends every
// received reading to its own CSV log.
//
// Usage example: receiver --csv-file data/sensor_data.csv
//
// Every flag can be set through the environment or a .env file, e.g.
// CSV_FILE_RECEIVER, PUBNUB_CHANNEL, PUBNUB_SUBSCRIBE_KEY, RATE_LIMIT.
// Run with --help for the full list.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/samoilenko/sensor_telemetry/pkg/appendlog"
	"github.com/samoilenko/sensor_telemetry/pkg/channel"
	"github.com/samoilenko/sensor_telemetry/pkg/cliflags"
	"github.com/samoilenko/sensor_telemetry/pkg/httpserver"
	"github.com/samoilenko/sensor_telemetry/pkg/logging"
	receiverDomain "github.com/samoilenko/sensor_telemetry/receiver/domain"
	receiverInfrastructure "github.com/samoilenko/sensor_telemetry/receiver/infrastructure"
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
		Name:  "receiver",
		Usage: "persist readings received from the telemetry channel",
		Flags: receiverInfrastructure.Flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := receiverInfrastructure.LoadAppConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := cliflags.Logger(cmd, "receiver")
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

func run(ctx context.Context, cfg receiverInfrastructure.AppConfig, logger *logging.Logger) error {
	log, err := appendlog.Open(cfg.LogPath, cfg.Fields, cfg.FlushInterval, logger.Named("log"))
	if err != nil {
		return err
	}
	defer func() {
		if err := log.Close(); err != nil {
			logger.Error("error on closing log: %s", err.Error())
		}
	}()

	subscriber, err := channel.NewSubscriber(cfg.Channel, logger.Named("channel"))
	if err != nil {
		return err
	}

	clk := clock.New()
	interceptors := []receiverDomain.Interceptor[receiverDomain.InboundMessage]{
		receiverInfrastructure.NewReadingValidator(clk, time.Minute),
	}
	if cfg.RateLimit.Enabled() {
		interceptors = append(interceptors, receiverInfrastructure.NewRateLimiter(cfg.RateLimit, time.Second, clk))
	}

	receiver := receiverDomain.NewReceiver(
		subscriber,
		log,
		receiverDomain.WithInterceptors(interceptors...),
		cfg.Backoff,
		clk,
		logger,
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Start(gCtx)
		return nil
	})
	g.Go(func() error {
		return httpserver.Run(gCtx, cfg.MetricsAddress, httpserver.NewMux(), logger.Named("http"))
	})
	g.Go(func() error {
		return receiver.Run(gCtx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("receiver shut down")
	return nil
}
