package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opd-ai/wifip2p/interfaces"
	"github.com/opd-ai/wifip2p/limits"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete simulation configuration.
type Config struct {
	Simulation Simulation `toml:"simulation"`
	Movement   Movement   `toml:"movement"`
	Channels   Channels   `toml:"channels"`
	Tracker    Tracker    `toml:"tracker"`
	Logging    Logging    `toml:"log"`
	Metrics    Metrics    `toml:"metrics"`
}

// Simulation sizes the run.
type Simulation struct {
	// Nodes is the number of simulated devices.
	Nodes int `toml:"nodes"`
	// Cycles is how many cycles Run executes.
	Cycles int64 `toml:"cycles"`
	// Seed drives every random choice of the run.
	Seed int64 `toml:"seed"`
	// Groups is how many groups are formed from initial proximity.
	Groups int `toml:"groups"`
	// Parallelism bounds how many trackers advance concurrently. 1 runs serially.
	Parallelism int `toml:"parallelism"`
	// ServicesPerNode is how many services each node advertises.
	ServicesPerNode int `toml:"services_per_node"`
	// DiscoveryRatio is the fraction of nodes with Wi-Fi P2P enabled and discovery started.
	DiscoveryRatio float64 `toml:"discovery_ratio"`
}

// Movement configures the random-waypoint model.
type Movement struct {
	FieldSize  float64 `toml:"field_size"`
	RadioRange float64 `toml:"radio_range"`
	MinSpeed   float64 `toml:"min_speed"`
	MaxSpeed   float64 `toml:"max_speed"`
	// MaxPause is the longest a node waits at a waypoint, in cycles.
	MaxPause int64 `toml:"max_pause"`
}

// Channel describes the delivery behaviour of one transport channel.
type Channel struct {
	ID       uint8   `toml:"id"`
	MinDelay int64   `toml:"min_delay"`
	MaxDelay int64   `toml:"max_delay"`
	DropRate float64 `toml:"drop_rate"`
}

// Channels groups the three channels the tracker uses.
type Channels struct {
	Primary    Channel `toml:"primary"`
	Service    Channel `toml:"service"`
	Management Channel `toml:"management"`
}

// Tracker configures the proximity trackers.
type Tracker struct {
	InvitationTimeout int64 `toml:"invitation_timeout"`
}

// Logging configures logrus.
type Logging struct {
	// Level is any level accepted by logrus.ParseLevel.
	Level string `toml:"level"`
	// Format is "text" or "json".
	Format string `toml:"format"`
}

// Metrics configures the Prometheus endpoint. An empty Addr disables it.
type Metrics struct {
	Addr string `toml:"addr"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Simulation: Simulation{
			Nodes:           50,
			Cycles:          1000,
			Seed:            1,
			Groups:          5,
			Parallelism:     1,
			ServicesPerNode: 1,
			DiscoveryRatio:  1,
		},
		Movement: Movement{
			FieldSize:  1000,
			RadioRange: 100,
			MinSpeed:   0.5,
			MaxSpeed:   2,
			MaxPause:   20,
		},
		Channels: Channels{
			Primary:    Channel{ID: 1, MinDelay: 1, MaxDelay: 3, DropRate: 0.01},
			Service:    Channel{ID: 2, MinDelay: 1, MaxDelay: 5, DropRate: 0.05},
			Management: Channel{ID: 0},
		},
		Tracker: Tracker{
			InvitationTimeout: limits.DefaultInvitationTimeout,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Decode parses raw TOML on top of the defaults. Unknown keys are rejected.
func Decode(raw []byte) (*Config, error) {
	cfg := Default()
	if err := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and validates the TOML file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "Load",
		"path":     path,
		"nodes":    cfg.Simulation.Nodes,
		"cycles":   cfg.Simulation.Cycles,
	}).Info("Loaded simulation configuration")
	return cfg, nil
}

// Sample writes the default configuration as TOML to dst.
func Sample(dst io.Writer) error {
	if _, err := io.WriteString(dst, "# p2psim simulation configuration\n\n"); err != nil {
		return err
	}
	enc := toml.NewEncoder(dst)
	enc.SetIndentTables(true)
	return enc.Encode(Default())
}

// Validate checks every section.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.Simulation.Validate,
		c.Movement.Validate,
		c.Channels.Validate,
		c.Logging.Validate,
		func() error { return c.TrackerConfig().Validate() },
	} {
		if err := check(); err != nil {
			if errors.Is(err, ErrInvalidConfig) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Validate checks the simulation section.
func (s Simulation) Validate() error {
	switch {
	case s.Nodes < 1:
		return fmt.Errorf("%w: simulation.nodes must be positive, got %d", ErrInvalidConfig, s.Nodes)
	case s.Cycles < 0:
		return fmt.Errorf("%w: simulation.cycles must not be negative, got %d", ErrInvalidConfig, s.Cycles)
	case s.Groups < 0 || s.Groups > s.Nodes:
		return fmt.Errorf("%w: simulation.groups must be in [0, %d], got %d", ErrInvalidConfig, s.Nodes, s.Groups)
	case s.Parallelism < 1:
		return fmt.Errorf("%w: simulation.parallelism must be positive, got %d", ErrInvalidConfig, s.Parallelism)
	case s.ServicesPerNode < 0 || s.ServicesPerNode > limits.MaxServicesPerNode:
		return fmt.Errorf("%w: simulation.services_per_node must be in [0, %d], got %d",
			ErrInvalidConfig, limits.MaxServicesPerNode, s.ServicesPerNode)
	case s.DiscoveryRatio < 0 || s.DiscoveryRatio > 1:
		return fmt.Errorf("%w: simulation.discovery_ratio must be in [0, 1], got %g", ErrInvalidConfig, s.DiscoveryRatio)
	}
	return nil
}

// Validate checks the movement section.
func (m Movement) Validate() error {
	switch {
	case m.FieldSize <= 0:
		return fmt.Errorf("%w: movement.field_size must be positive", ErrInvalidConfig)
	case m.RadioRange <= 0:
		return fmt.Errorf("%w: movement.radio_range must be positive", ErrInvalidConfig)
	case m.MinSpeed < 0 || m.MaxSpeed < m.MinSpeed:
		return fmt.Errorf("%w: movement speeds must satisfy 0 <= min_speed <= max_speed", ErrInvalidConfig)
	case m.MaxPause < 0:
		return fmt.Errorf("%w: movement.max_pause must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Validate checks one channel.
func (c Channel) Validate() error {
	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		return fmt.Errorf("%w: channel %d delays must satisfy 0 <= min_delay <= max_delay", ErrInvalidConfig, c.ID)
	}
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("%w: channel %d drop_rate must be in [0, 1], got %g", ErrInvalidConfig, c.ID, c.DropRate)
	}
	return nil
}

// Validate checks all three channels. Channel IDs must be distinct.
func (c Channels) Validate() error {
	seen := make(map[uint8]bool, 3)
	for _, ch := range []Channel{c.Primary, c.Service, c.Management} {
		if err := ch.Validate(); err != nil {
			return err
		}
		if seen[ch.ID] {
			return fmt.Errorf("%w: channel id %d used twice", ErrInvalidConfig, ch.ID)
		}
		seen[ch.ID] = true
	}
	return nil
}

// Validate checks the logging section.
func (l Logging) Validate() error {
	if _, err := logrus.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, l.Format)
	}
}

// Apply configures the standard logrus logger.
func (l Logging) Apply() error {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	logrus.SetLevel(level)
	if strings.EqualFold(l.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// TrackerConfig derives the tracker configuration from the channel and
// tracker sections.
func (c *Config) TrackerConfig() interfaces.TrackerConfig {
	tc := interfaces.DefaultTrackerConfig()
	tc.PrimaryChannel = interfaces.ChannelID(c.Channels.Primary.ID)
	tc.ServiceChannel = interfaces.ChannelID(c.Channels.Service.ID)
	tc.ManagementChannel = interfaces.ChannelID(c.Channels.Management.ID)
	tc.InvitationTimeout = c.Tracker.InvitationTimeout
	return tc
}
