package factory

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/opd-ai/wifip2p/interfaces"
	"github.com/opd-ai/wifip2p/limits"
	"github.com/opd-ai/wifip2p/proximity"
	"github.com/sirupsen/logrus"
)

// Environment variables read by NewTrackerFactory.
const (
	EnvInvitationTimeout = "WIFIP2P_INVITATION_TIMEOUT"
	EnvPrimaryChannel    = "WIFIP2P_PRIMARY_CHANNEL"
	EnvServiceChannel    = "WIFIP2P_SERVICE_CHANNEL"
	EnvManagementChannel = "WIFIP2P_MANAGEMENT_CHANNEL"
)

// TrackerFactory creates proximity trackers from a shared default configuration.
// Every tracker it returns is a fresh instance with an empty neighbor snapshot.
// It is safe for concurrent use; all methods are protected by an internal mutex.
type TrackerFactory struct {
	mu            sync.RWMutex
	defaultConfig interfaces.TrackerConfig
	created       int
}

// TestConfigOption is a functional option for customizing test tracker configuration.
type TestConfigOption func(*interfaces.TrackerConfig)

// NewTrackerFactory creates a new factory with default configuration
func NewTrackerFactory() *TrackerFactory {
	defaultConfig := interfaces.DefaultTrackerConfig()
	ApplyEnvironmentOverrides(&defaultConfig)
	logConfigurationInfo(defaultConfig)

	return &TrackerFactory{
		defaultConfig: defaultConfig,
	}
}

// NewTrackerFactoryWithConfig creates a factory from an explicit configuration.
// Environment overrides are not applied.
func NewTrackerFactoryWithConfig(config interfaces.TrackerConfig) (*TrackerFactory, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logConfigurationInfo(config)
	return &TrackerFactory{defaultConfig: config}, nil
}

// ApplyEnvironmentOverrides updates configuration based on environment variables.
// It checks for WIFIP2P_* environment variables and overrides defaults if valid values are found.
func ApplyEnvironmentOverrides(config *interfaces.TrackerConfig) {
	parseTimeoutSetting(config)
	parseChannelSetting(EnvPrimaryChannel, &config.PrimaryChannel)
	parseChannelSetting(EnvServiceChannel, &config.ServiceChannel)
	parseChannelSetting(EnvManagementChannel, &config.ManagementChannel)
}

// parseTimeoutSetting updates InvitationTimeout from WIFIP2P_INVITATION_TIMEOUT.
// Values outside [limits.MinInvitationTimeout, limits.MaxInvitationTimeout] are ignored with a warning.
func parseTimeoutSetting(config *interfaces.TrackerConfig) {
	timeoutStr := os.Getenv(EnvInvitationTimeout)
	if timeoutStr == "" {
		return
	}

	timeout, err := strconv.ParseInt(timeoutStr, 10, 64)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseTimeoutSetting",
			"env_var":     EnvInvitationTimeout,
			"value":       timeoutStr,
			"error":       err.Error(),
			"using_value": config.InvitationTimeout,
		}).Warn("Failed to parse WIFIP2P_INVITATION_TIMEOUT environment variable, using default")
		return
	}
	if err := limits.ValidateInvitationTimeout(timeout); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseTimeoutSetting",
			"env_var":     EnvInvitationTimeout,
			"value":       timeout,
			"min":         limits.MinInvitationTimeout,
			"max":         limits.MaxInvitationTimeout,
			"using_value": config.InvitationTimeout,
		}).Warn("WIFIP2P_INVITATION_TIMEOUT value out of bounds, using default")
		return
	}
	config.InvitationTimeout = timeout
}

// parseChannelSetting updates one channel identifier from the named environment variable.
func parseChannelSetting(envVar string, channel *interfaces.ChannelID) {
	valueStr := os.Getenv(envVar)
	if valueStr == "" {
		return
	}

	value, err := strconv.ParseUint(valueStr, 10, 8)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseChannelSetting",
			"env_var":     envVar,
			"value":       valueStr,
			"error":       err.Error(),
			"using_value": *channel,
		}).Warn("Failed to parse channel environment variable, using default")
		return
	}
	*channel = interfaces.ChannelID(value)
}

// logConfigurationInfo logs the final configuration settings for debugging purposes.
func logConfigurationInfo(config interfaces.TrackerConfig) {
	logrus.WithFields(logrus.Fields{
		"function":           "NewTrackerFactory",
		"invitation_timeout": config.InvitationTimeout,
		"primary_channel":    config.PrimaryChannel,
		"service_channel":    config.ServiceChannel,
		"management_channel": config.ManagementChannel,
	}).Info("Created tracker factory with configuration")
}

// NewTracker creates a tracker with the factory's default configuration.
func (f *TrackerFactory) NewTracker(c proximity.Collaborators) (*proximity.Tracker, error) {
	return f.NewTrackerWithConfig(c, nil)
}

// NewTrackerWithConfig creates a tracker with a custom configuration, or the
// default one when config is nil.
func (f *TrackerFactory) NewTrackerWithConfig(c proximity.Collaborators, config *interfaces.TrackerConfig) (*proximity.Tracker, error) {
	f.mu.Lock()
	cfg := f.defaultConfig
	if config != nil {
		cfg = *config
	}
	f.created++
	created := f.created
	f.mu.Unlock()

	tracker, err := proximity.New(cfg, c)
	if err != nil {
		return nil, fmt.Errorf("create tracker: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":           "NewTrackerWithConfig",
		"invitation_timeout": cfg.InvitationTimeout,
		"trackers_created":   created,
	}).Debug("Created proximity tracker")
	return tracker, nil
}

// WithInvitationTimeout sets a custom invitation bound for the test configuration.
func WithInvitationTimeout(cycles int64) TestConfigOption {
	return func(c *interfaces.TrackerConfig) {
		c.InvitationTimeout = cycles
	}
}

// WithChannels sets the primary, service and management channels for the test configuration.
func WithChannels(primary, service, management interfaces.ChannelID) TestConfigOption {
	return func(c *interfaces.TrackerConfig) {
		c.PrimaryChannel = primary
		c.ServiceChannel = service
		c.ManagementChannel = management
	}
}

// CreateTrackerForTesting creates a tracker for tests. It starts from the
// defaults without environment overrides and a short invitation bound of 10
// cycles, then applies opts.
func (f *TrackerFactory) CreateTrackerForTesting(c proximity.Collaborators, opts ...TestConfigOption) (*proximity.Tracker, error) {
	testConfig := interfaces.DefaultTrackerConfig()
	testConfig.InvitationTimeout = 10

	for _, opt := range opts {
		opt(&testConfig)
	}

	logrus.WithFields(logrus.Fields{
		"function":           "CreateTrackerForTesting",
		"invitation_timeout": testConfig.InvitationTimeout,
	}).Debug("Creating tracker for testing")

	return f.NewTrackerWithConfig(c, &testConfig)
}

// GetCurrentConfig returns a copy of the current default configuration
func (f *TrackerFactory) GetCurrentConfig() interfaces.TrackerConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.defaultConfig
}

// TrackersCreated returns how many trackers the factory has built.
func (f *TrackerFactory) TrackersCreated() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.created
}

// UpdateConfig validates and replaces the factory's default configuration.
// Trackers already created keep their configuration.
func (f *TrackerFactory) UpdateConfig(config interfaces.TrackerConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":    "UpdateConfig",
		"old_timeout": f.defaultConfig.InvitationTimeout,
		"new_timeout": config.InvitationTimeout,
	}).Info("Updating factory configuration")

	f.defaultConfig = config
	return nil
}
