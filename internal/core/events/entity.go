package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/carlmjohnson/versioninfo"

	. "bemfa2mqtt/internal/core/domain"
	"bemfa2mqtt/internal/mapper"
	"bemfa2mqtt/pkg/bemfa"
)

const (
	ENTITY_ID_BRIDGE_STATE = "bridge"

	ENTITY_SUFFIX_POWER       = "_power"
	ENTITY_SUFFIX_TEMPERATURE = "_t"
	ENTITY_SUFFIX_HUMIDITY    = "_h"

	STATE_CLASS_MEASUREMENT  = "measurement"
	DEVICE_CLASS_TEMPERATURE = "temperature"
	DEVICE_CLASS_HUMIDITY    = "humidity"
	DEVICE_CLASS_CURTAIN     = "curtain"
	DEVICE_CLASS_OUTLET      = "outlet"
	SENSOR_TYPE_SENSOR       = "sensor"
	SENSOR_TYPE_BINARY       = "binary_sensor"
)

// EntityId is the stable identifier derived from a device's cloud topic.
func EntityId(topic string) string {
	return fmt.Sprintf("bemfa_%s", topic)
}

// TopicFromEntityId undoes EntityId. Companion-entity suffixes must be
// stripped by the caller beforehand.
func TopicFromEntityId(entityId string) string {
	return strings.TrimPrefix(entityId, "bemfa_")
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("bemfa_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "Bemfa",
		Model:        "Bemfa2MQTT",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Bemfa2MQTT %s", md5HashShort(baseTopic)),
	}
}

// DeviceFor builds the HA device that groups all entities of one Bemfa
// cloud device.
func DeviceFor(record bemfa.DeviceRecord, bridge Device) Device {
	name := record.Name
	if name == "" {
		name = record.Topic
	}
	return Device{
		Id:           EntityId(record.Topic),
		Name:         name,
		Model:        record.Class,
		Manufacturer: "Bemfa",
		ViaDevice:    bridge.Id,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func LightEntity(device Device, record bemfa.DeviceRecord) GenericLight {
	return GenericLight{
		Device:   device,
		Id:       EntityId(record.Topic),
		Name:     device.Name,
		UniqueId: EntityId(record.Topic),
	}
}

func SwitchEntity(device Device, record bemfa.DeviceRecord) GenericSwitch {
	sw := GenericSwitch{
		Device:   device,
		Id:       EntityId(record.Topic),
		Name:     device.Name,
		UniqueId: EntityId(record.Topic),
	}
	if record.Class == bemfa.ClassOutlet {
		sw.Icon = "mdi:power-socket"
	}
	return sw
}

// ACPowerSwitchEntity is the companion power switch of an air conditioner.
func ACPowerSwitchEntity(device Device, record bemfa.DeviceRecord) GenericSwitch {
	id := EntityId(record.Topic) + ENTITY_SUFFIX_POWER
	return GenericSwitch{
		Device:   device,
		Id:       id,
		Name:     fmt.Sprintf("%s Power", device.Name),
		UniqueId: id,
		Icon:     "mdi:power",
	}
}

func CoverEntity(device Device, record bemfa.DeviceRecord) GenericCover {
	return GenericCover{
		Device:      device,
		Id:          EntityId(record.Topic),
		Name:        device.Name,
		UniqueId:    EntityId(record.Topic),
		DeviceClass: DEVICE_CLASS_CURTAIN,
	}
}

func FanEntity(device Device, record bemfa.DeviceRecord, speedLevels int) GenericFan {
	return GenericFan{
		Device:      device,
		Id:          EntityId(record.Topic),
		Name:        device.Name,
		UniqueId:    EntityId(record.Topic),
		SpeedLevels: speedLevels,
	}
}

func ClimateEntity(device Device, record bemfa.DeviceRecord) GenericClimate {
	return GenericClimate{
		Device:   device,
		Id:       EntityId(record.Topic),
		Name:     device.Name,
		UniqueId: EntityId(record.Topic),
		MinTemp:  mapper.MinTargetTemperature,
		MaxTemp:  mapper.MaxTargetTemperature,
		TempStep: 1,
		Modes: []string{
			string(mapper.HVACOff), string(mapper.HVACAuto), string(mapper.HVACCool),
			string(mapper.HVACHeat), string(mapper.HVACFanOnly), string(mapper.HVACDry),
		},
		FanModes: []string{
			string(mapper.FanModeLow), string(mapper.FanModeMedium), string(mapper.FanModeHigh),
		},
	}
}

func TemperatureSensorEntity(device Device, record bemfa.DeviceRecord) GenericSensor {
	id := EntityId(record.Topic) + ENTITY_SUFFIX_TEMPERATURE
	unit := record.TemperatureUnit()
	if unit == "" {
		unit = "°C"
	}
	return GenericSensor{
		Device:            device,
		Id:                id,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              fmt.Sprintf("%s Temperature", device.Name),
		UniqueId:          id,
		UnitOfMeasurement: unit,
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_TEMPERATURE,
	}
}

func HumiditySensorEntity(device Device, record bemfa.DeviceRecord) GenericSensor {
	id := EntityId(record.Topic) + ENTITY_SUFFIX_HUMIDITY
	unit := record.HumidityUnit()
	if unit == "" {
		unit = "%"
	}
	return GenericSensor{
		Device:            device,
		Id:                id,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              fmt.Sprintf("%s Humidity", device.Name),
		UniqueId:          id,
		UnitOfMeasurement: unit,
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_HUMIDITY,
	}
}

func md5HashShort(s string) string {
	hash := md5.Sum([]byte(s))
	return hex.EncodeToString(hash[:])[:8]
}
