package mapper

import (
	"bemfa2mqtt/pkg/bemfa"
)

type SensorKind string

const (
	SensorTemperature SensorKind = "t"
	SensorHumidity    SensorKind = "h"
)

// SensorReading extracts the requested measurement, nil when the device
// has never reported it.
func SensorReading(msg bemfa.DeviceMessage, kind SensorKind) *float64 {
	switch kind {
	case SensorTemperature:
		return msg.Temperature
	case SensorHumidity:
		return msg.Humidity
	default:
		return nil
	}
}

func SensorUnit(record bemfa.DeviceRecord, kind SensorKind) string {
	switch kind {
	case SensorTemperature:
		return record.TemperatureUnit()
	case SensorHumidity:
		return record.HumidityUnit()
	default:
		return ""
	}
}
