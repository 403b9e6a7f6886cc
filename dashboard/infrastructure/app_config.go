package infrastructure

import (
	"errors"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	dashboardDomain "github.com/samoilenko/sensor_telemetry/dashboard/domain"
	"github.com/samoilenko/sensor_telemetry/pkg/appendlog"
	"github.com/samoilenko/sensor_telemetry/pkg/cliflags"
	"github.com/samoilenko/sensor_telemetry/pkg/httpserver"
)

// AppConfig holds all validated configuration parameters of the dashboard.
type AppConfig struct {
	Title           string
	DataDir         string
	DefaultPath     appendlog.Path
	SourcesFile     string
	RefreshInterval dashboardDomain.RefreshInterval
	BindAddress     httpserver.BindAddress
	HTTPRateLimit   rate.Limit
	HTTPBurst       int
}

// Flags returns the command line flags of the dashboard.
func Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "title",
			Usage:   "dashboard title",
			Value:   "Live Sensor Data Chart",
			Sources: cli.EnvVars("DASHBOARD_TITLE"),
		},
		&cli.StringFlag{
			Name:    "data-dir",
			Usage:   "directory scanned for *.csv logs at startup",
			Value:   "data",
			Sources: cli.EnvVars("DATA_DIR"),
		},
		&cli.StringFlag{
			Name:    "csv-file",
			Usage:   "log shown when the data directory has none, and the default of added sources",
			Value:   "sensor_data.csv",
			Sources: cli.EnvVars("CSV_FILE_RECEIVER"),
		},
		&cli.StringFlag{
			Name:    "sources-file",
			Usage:   "YAML file keeping the chart sources, replaces the directory scan when it lists any",
			Sources: cli.EnvVars("SOURCES_FILE"),
		},
		&cli.StringFlag{
			Name:    "refresh-interval",
			Usage:   "refresh interval in seconds",
			Value:   "5",
			Sources: cli.EnvVars("REFRESH_INTERVAL"),
		},
		&cli.StringFlag{
			Name:    "bind-address",
			Usage:   "address of the HTTP API, /ws, /metrics and /healthz",
			Value:   ":8080",
			Sources: cli.EnvVars("BIND_ADDRESS"),
		},
		&cli.IntFlag{
			Name:    "http-rate-limit",
			Usage:   "HTTP requests per second",
			Value:   20,
			Sources: cli.EnvVars("HTTP_RATE_LIMIT"),
		},
	}
	return append(flags, cliflags.LoggingFlags()...)
}

// LoadAppConfig validates the parsed flags.
func LoadAppConfig(cmd *cli.Command) (AppConfig, error) {
	var cfg AppConfig
	var err error

	if cfg.Title = strings.TrimSpace(cmd.String("title")); cfg.Title == "" {
		return AppConfig{}, errors.New("title cannot be empty")
	}
	if cfg.DataDir = strings.TrimSpace(cmd.String("data-dir")); cfg.DataDir == "" {
		return AppConfig{}, errors.New("data directory cannot be empty")
	}
	if cfg.DefaultPath, err = appendlog.NewPath(strings.TrimSpace(cmd.String("csv-file"))); err != nil {
		return AppConfig{}, err
	}
	cfg.SourcesFile = strings.TrimSpace(cmd.String("sources-file"))

	seconds, err := cliflags.ParseFloat("refresh interval", cmd.String("refresh-interval"))
	if err != nil {
		return AppConfig{}, err
	}
	if cfg.RefreshInterval, err = dashboardDomain.NewRefreshInterval(seconds); err != nil {
		return AppConfig{}, err
	}

	if cfg.BindAddress, err = httpserver.NewBindAddress(cmd.String("bind-address")); err != nil {
		return AppConfig{}, err
	}

	limit := int(cmd.Int("http-rate-limit"))
	if limit <= 0 {
		return AppConfig{}, errors.New("HTTP rate limit must be greater than 0")
	}
	cfg.HTTPRateLimit = rate.Limit(limit)
	cfg.HTTPBurst = limit

	return cfg, nil
}
