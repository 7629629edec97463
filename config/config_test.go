package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/opd-ai/wifip2p/interfaces"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	tc := cfg.TrackerConfig()
	assert.Equal(t, interfaces.DefaultTrackerConfig(), tc)
}

func TestSampleRoundTrip(t *testing.T) {
	var sample bytes.Buffer
	require.NoError(t, Sample(&sample))

	cfg, err := Decode(sample.Bytes())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDecodePartial(t *testing.T) {
	raw := []byte(`
[simulation]
nodes = 200
parallelism = 4

[channels.service]
id = 2
drop_rate = 0.2

[tracker]
invitation_timeout = 30
`)
	cfg, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Simulation.Nodes)
	assert.Equal(t, 4, cfg.Simulation.Parallelism)
	assert.Equal(t, Default().Simulation.Cycles, cfg.Simulation.Cycles)
	assert.Equal(t, 0.2, cfg.Channels.Service.DropRate)
	assert.Equal(t, Default().Channels.Service.MaxDelay, cfg.Channels.Service.MaxDelay)
	assert.Equal(t, int64(30), cfg.TrackerConfig().InvitationTimeout)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode([]byte("[simulation]\nnodez = 3\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no nodes", func(c *Config) { c.Simulation.Nodes = 0 }},
		{"negative cycles", func(c *Config) { c.Simulation.Cycles = -1 }},
		{"more groups than nodes", func(c *Config) { c.Simulation.Groups = c.Simulation.Nodes + 1 }},
		{"zero parallelism", func(c *Config) { c.Simulation.Parallelism = 0 }},
		{"too many services", func(c *Config) { c.Simulation.ServicesPerNode = 100 }},
		{"discovery ratio", func(c *Config) { c.Simulation.DiscoveryRatio = 1.5 }},
		{"field size", func(c *Config) { c.Movement.FieldSize = 0 }},
		{"radio range", func(c *Config) { c.Movement.RadioRange = -1 }},
		{"speeds", func(c *Config) { c.Movement.MaxSpeed = c.Movement.MinSpeed / 2 }},
		{"pause", func(c *Config) { c.Movement.MaxPause = -1 }},
		{"channel delay", func(c *Config) { c.Channels.Primary.MaxDelay = 0 }},
		{"drop rate", func(c *Config) { c.Channels.Service.DropRate = 2 }},
		{"shared channel id", func(c *Config) { c.Channels.Service.ID = c.Channels.Primary.ID }},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"invitation timeout", func(c *Config) { c.Tracker.InvitationTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\nformat = \"json\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoggingApply(t *testing.T) {
	defer logrus.SetLevel(logrus.GetLevel())
	defer logrus.SetFormatter(logrus.StandardLogger().Formatter)

	require.NoError(t, Logging{Level: "warn", Format: "json"}.Apply())
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	_, ok := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)

	assert.Error(t, Logging{Level: "nope"}.Apply())
}
