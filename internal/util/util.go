package util

import (
	"go.uber.org/zap"

	"bemfa2mqtt/internal/config"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Bemfa: config.BemfaConfig{
			User:                "0123456789abcdef0123456789abcdef",
			ScanIntervalSeconds: 30,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "bemfa2mqtt",
		},
		Devices: config.DevicesConfig{
			FanSpeedLevels: map[string]int{
				"fan002": 5,
			},
			ACTemperatureSensors: map[string]string{
				"ac003": "th004",
			},
		},
		Port: 8080,
	}
}
