package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	dashboardDomain "github.com/samoilenko/sensor_telemetry/dashboard/domain"
	"github.com/samoilenko/sensor_telemetry/pkg/appendlog"
	"github.com/samoilenko/sensor_telemetry/pkg/httpserver"
)

func loadConfig(t *testing.T, args ...string) (AppConfig, error) {
	t.Helper()
	var cfg AppConfig
	var loadErr error
	testCmd := &cli.Command{
		Name:  "dashboard",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, loadErr = LoadAppConfig(cmd)
			return nil
		},
	}
	require.NoError(t, testCmd.Run(context.Background(), append([]string{"dashboard"}, args...)))
	return cfg, loadErr
}

func TestLoadAppConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := loadConfig(t)
		require.NoError(t, err)

		assert.Equal(t, "Live Sensor Data Chart", cfg.Title)
		assert.Equal(t, "data", cfg.DataDir)
		assert.Equal(t, appendlog.Path("sensor_data.csv"), cfg.DefaultPath)
		assert.Empty(t, cfg.SourcesFile)
		assert.Equal(t, dashboardDomain.RefreshInterval(5*time.Second), cfg.RefreshInterval)
		assert.Equal(t, httpserver.BindAddress(":8080"), cfg.BindAddress)
		assert.Equal(t, rate.Limit(20), cfg.HTTPRateLimit)
		assert.Equal(t, 20, cfg.HTTPBurst)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("DASHBOARD_TITLE", "Greenhouse")
		t.Setenv("DATA_DIR", "/var/lib/telemetry")
		t.Setenv("CSV_FILE_RECEIVER", "received.csv")
		t.Setenv("SOURCES_FILE", "sources.yaml")
		t.Setenv("REFRESH_INTERVAL", "0.5")
		t.Setenv("BIND_ADDRESS", "127.0.0.1:9000")
		t.Setenv("HTTP_RATE_LIMIT", "5")

		cfg, err := loadConfig(t)
		require.NoError(t, err)
		assert.Equal(t, "Greenhouse", cfg.Title)
		assert.Equal(t, "/var/lib/telemetry", cfg.DataDir)
		assert.Equal(t, appendlog.Path("received.csv"), cfg.DefaultPath)
		assert.Equal(t, "sources.yaml", cfg.SourcesFile)
		assert.Equal(t, dashboardDomain.RefreshInterval(500*time.Millisecond), cfg.RefreshInterval)
		assert.Equal(t, httpserver.BindAddress("127.0.0.1:9000"), cfg.BindAddress)
		assert.Equal(t, rate.Limit(5), cfg.HTTPRateLimit)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		cases := map[string][]string{
			"refresh":      {"--refresh-interval", "0"},
			"refresh text": {"--refresh-interval", "often"},
			"bind address": {"--bind-address", "8080"},
			"rate limit":   {"--http-rate-limit", "0"},
			"title":        {"--title", " "},
			"csv file":     {"--csv-file", "bad|name.csv"},
		}
		for name, args := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := loadConfig(t, args...)
				assert.Error(t, err)
			})
		}
	})
}
