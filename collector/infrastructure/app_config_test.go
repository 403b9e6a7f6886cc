package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	collectorDomain "github.com/samoilenko/sensor_telemetry/collector/domain"
	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

func loadConfig(t *testing.T, args ...string) (AppConfig, error) {
	t.Helper()
	var cfg AppConfig
	var loadErr error
	testCmd := &cli.Command{
		Name:  "collector",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, loadErr = LoadAppConfig(cmd)
			return nil
		},
	}
	require.NoError(t, testCmd.Run(context.Background(), append([]string{"collector"}, args...)))
	return cfg, loadErr
}

func TestLoadAppConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := loadConfig(t)
		require.NoError(t, err)

		assert.Equal(t, DeviceTinkerforge, cfg.Device)
		assert.Equal(t, collectorDomain.DeviceUID("27eU"), cfg.DeviceUID)
		assert.Equal(t, collectorDomain.Address("localhost:4223"), cfg.DeviceAddress)
		assert.Equal(t, collectorDomain.Interval(5*time.Second), cfg.Interval)
		assert.Equal(t, reading.Schema{"value"}, cfg.Fields)
		assert.True(t, cfg.Publish)
		assert.False(t, cfg.Channel.PublishEnabled(), "no key configured")
	})

	t.Run("positional uid wins over the environment", func(t *testing.T) {
		t.Setenv("TF_UID", "abc")
		cfg, err := loadConfig(t, "XYZ")
		require.NoError(t, err)
		assert.Equal(t, collectorDomain.DeviceUID("XYZ"), cfg.DeviceUID)
	})

	t.Run("environment configures the dummy device", func(t *testing.T) {
		t.Setenv("DEVICE", "dummy")
		t.Setenv("FIELDS", "temperature,humidity")
		t.Setenv("INTERVAL", "0.5")
		cfg, err := loadConfig(t)
		require.NoError(t, err)
		assert.Equal(t, DeviceDummy, cfg.Device)
		assert.Equal(t, reading.Schema{"temperature", "humidity"}, cfg.Fields)
		assert.Equal(t, collectorDomain.Interval(500*time.Millisecond), cfg.Interval)
	})

	t.Run("publish=no drops the publish key", func(t *testing.T) {
		t.Setenv("PUBLISH", "no")
		t.Setenv("PUBNUB_PUBLISH_KEY", "pub")
		cfg, err := loadConfig(t)
		require.NoError(t, err)
		assert.False(t, cfg.Publish)
		assert.False(t, cfg.Channel.PublishEnabled())
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		cases := map[string][]string{
			"interval":   {"--interval", "0"},
			"not number": {"--interval", "soon"},
			"device":     {"--device", "thermometer"},
			"port":       {"--port", "0"},
			"uid":        {"--uid", "a,b"},
			"csv file":   {"--csv-file", "bad|name.csv"},
		}
		for name, args := range cases {
			_, err := loadConfig(t, args...)
			assert.Error(t, err, name)
		}
	})
}
