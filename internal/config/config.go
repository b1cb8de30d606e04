package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	DefaultScanIntervalSeconds = 30
	MinScanIntervalSeconds     = 1
	MaxScanIntervalSeconds     = 60

	DefaultFanSpeedLevels = 3
	MinFanSpeedLevels     = 1
	MaxFanSpeedLevels     = 5
)

type Config struct {
	LogLevel zapcore.Level
	Bemfa    BemfaConfig   `mapstructure:"bemfa"`
	MQTT     MQTTConfig    `mapstructure:"mqtt"`
	Devices  DevicesConfig `mapstructure:"devices"`

	Port    uint `mapstructure:"port"`
	HttpLog bool `mapstructure:"http_log"`
}

type BemfaConfig struct {
	User                string `mapstructure:"user"`
	BaseURL             string `mapstructure:"base_url"`
	CommandURL          string `mapstructure:"command_url"`
	ScanIntervalSeconds uint   `mapstructure:"scan_interval"`
}

// DevicesConfig carries per-device behavior overrides keyed by topic,
// resolved once at entity construction.
type DevicesConfig struct {
	// FanSpeedLevels maps a fan topic to its discrete level count (1-5).
	FanSpeedLevels map[string]int `mapstructure:"fan_speed_levels"`
	// ACTemperatureSensors maps an air conditioner topic to the topic of
	// the sensor device that reports its room temperature.
	ACTemperatureSensors map[string]string `mapstructure:"ac_temperature_sensors"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func (c DevicesConfig) FanSpeedLevelsFor(topic string) int {
	if levels, ok := c.FanSpeedLevels[topic]; ok && levels >= MinFanSpeedLevels {
		return levels
	}
	return DefaultFanSpeedLevels
}

func (c DevicesConfig) ACTemperatureSensorFor(topic string) string {
	return c.ACTemperatureSensors[topic]
}

// Validate rejects out-of-range values at the configuration boundary so
// nothing has to range-check at runtime.
func (c *Config) Validate() error {
	if c.Bemfa.User == "" {
		return errors.New("config param bemfa.user is required")
	}
	if c.Bemfa.ScanIntervalSeconds < MinScanIntervalSeconds || c.Bemfa.ScanIntervalSeconds > MaxScanIntervalSeconds {
		return fmt.Errorf("config param bemfa.scan_interval must be between %d and %d seconds",
			MinScanIntervalSeconds, MaxScanIntervalSeconds)
	}
	for topic, levels := range c.Devices.FanSpeedLevels {
		if levels < MinFanSpeedLevels || levels > MaxFanSpeedLevels {
			return fmt.Errorf("config param devices.fan_speed_levels[%s] must be between %d and %d",
				topic, MinFanSpeedLevels, MaxFanSpeedLevels)
		}
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
