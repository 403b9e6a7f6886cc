// The dashboard follows one or more CSV logs and serves their charts as
// JSON, pushing fresh views over a websocket after every refresh.
//
// Usage example: dashboard --data-dir data --refresh-interval 2
//
// Every flag can be set through the environment or a .env file, e.g.
// DASHBOARD_TITLE, DATA_DIR, CSV_FILE_RECEIVER, SOURCES_FILE,
// REFRESH_INTERVAL, BIND_ADDRESS. Run with --help for the full list.
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
	"golang.org/x/time/rate"

	dashboardDomain "github.com/samoilenko/sensor_telemetry/dashboard/domain"
	dashboardInfrastructure "github.com/samoilenko/sensor_telemetry/dashboard/infrastructure"
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
		Name:  "dashboard",
		Usage: "serve live charts of the telemetry logs",
		Flags: dashboardInfrastructure.Flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := dashboardInfrastructure.LoadAppConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := cliflags.Logger(cmd, "dashboard")
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

func run(ctx context.Context, cfg dashboardInfrastructure.AppConfig, logger *logging.Logger) error {
	var store *dashboardInfrastructure.SourcesFile
	if cfg.SourcesFile != "" {
		store = dashboardInfrastructure.NewSourcesFile(cfg.SourcesFile)
	}

	initial, err := dashboardInfrastructure.InitialSources(store, cfg.DataDir, string(cfg.DefaultPath))
	if err != nil {
		return err
	}
	var sources *dashboardDomain.Sources
	if store != nil {
		sources = dashboardDomain.NewSources(initial, store)
	} else {
		sources = dashboardDomain.NewSources(initial, nil)
	}
	for _, src := range initial {
		logger.Info("chart %q: %s", src.Title, src.Path)
	}

	var hub *dashboardInfrastructure.Hub
	poller := dashboardDomain.NewPoller(
		sources,
		cfg.RefreshInterval,
		clock.New(),
		dashboardDomain.NotifierFunc(func(ids []dashboardDomain.SourceID) { hub.Notify(ids) }),
		logger.Named("poller"),
	)
	hub = dashboardInfrastructure.NewHub(poller, logger.Named("ws"))
	defer hub.Close()

	api := dashboardInfrastructure.NewAPI(poller, hub, cfg.Title, cfg.RefreshInterval, string(cfg.DefaultPath), logger.Named("api"))
	handler := api.Handler(rate.NewLimiter(cfg.HTTPRateLimit, cfg.HTTPBurst))

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return poller.Run(gCtx)
	})
	g.Go(func() error {
		err := httpserver.Run(gCtx, cfg.BindAddress, handler, logger.Named("http"))
		hub.Close()
		return err
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("dashboard shut down")
	return nil
}
