package mqtt

import (
	"fmt"

	"bemfa2mqtt/internal/core/domain"
)

type HADiscoveryConfig struct {
	Device            HADiscoveryDevice         `json:"device"`
	StateTopic        string                    `json:"state_topic,omitempty"`
	CommandTopic      string                    `json:"command_topic,omitempty"`
	StateClass        string                    `json:"state_class,omitempty"`
	DeviceClass       string                    `json:"device_class,omitempty"`
	UnitOfMeasurement string                    `json:"unit_of_measurement,omitempty"`
	AvTopic           string                    `json:"availability_topic,omitempty"`
	Availability      []HADiscoveryAvailability `json:"availability,omitempty"`
	AvailabilityMode  string                    `json:"availability_mode,omitempty"`
	EntityCategory    string                    `json:"entity_category,omitempty"`
	Name              string                    `json:"name"`
	UniqueId          string                    `json:"unique_id"`
	Platform          string                    `json:"platform"`
	EnabledByDefault  *bool                     `json:"enabled_by_default,omitempty"`
	PayloadOn         string                    `json:"payload_on,omitempty"`
	PayloadOff        string                    `json:"payload_off,omitempty"`
	Icon              string                    `json:"icon,omitempty"`

	// cover
	PositionTopic    string `json:"position_topic,omitempty"`
	SetPositionTopic string `json:"set_position_topic,omitempty"`
	PayloadOpen      string `json:"payload_open,omitempty"`
	PayloadClose     string `json:"payload_close,omitempty"`
	PayloadStop      string `json:"payload_stop,omitempty"`
	StateOpen        string `json:"state_open,omitempty"`
	StateClosed      string `json:"state_closed,omitempty"`

	// fan
	PercentageStateTopic    string `json:"percentage_state_topic,omitempty"`
	PercentageCommandTopic  string `json:"percentage_command_topic,omitempty"`
	OscillationStateTopic   string `json:"oscillation_state_topic,omitempty"`
	OscillationCommandTopic string `json:"oscillation_command_topic,omitempty"`
	PayloadOscillationOn    string `json:"payload_oscillation_on,omitempty"`
	PayloadOscillationOff   string `json:"payload_oscillation_off,omitempty"`

	// climate
	ModeStateTopic          string   `json:"mode_state_topic,omitempty"`
	ModeCommandTopic        string   `json:"mode_command_topic,omitempty"`
	TemperatureStateTopic   string   `json:"temperature_state_topic,omitempty"`
	TemperatureCommandTopic string   `json:"temperature_command_topic,omitempty"`
	CurrentTemperatureTopic string   `json:"current_temperature_topic,omitempty"`
	FanModeStateTopic       string   `json:"fan_mode_state_topic,omitempty"`
	FanModeCommandTopic     string   `json:"fan_mode_command_topic,omitempty"`
	Modes                   []string `json:"modes,omitempty"`
	FanModes                []string `json:"fan_modes,omitempty"`
	MinTemp                 float64  `json:"min_temp,omitempty"`
	MaxTemp                 float64  `json:"max_temp,omitempty"`
	TempStep                float64  `json:"temp_step,omitempty"`
}

type HADiscoveryAvailability struct {
	Topic      string `json:"topic"`
	PayloadAv  string `json:"payload_available,omitempty"`
	PayloadNAv string `json:"payload_not_available,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

func HADiscoveryEntityTopic(platform string, device domain.Device, entityId string) string {
	return fmt.Sprintf("homeassistant/%s/%s/%s/config", platform, device.Id, entityId)
}

func HADiscoverySensorTopic(sensor domain.GenericSensor) string {
	return fmt.Sprintf("homeassistant/%s/%s/%s/config", sensor.SensorType, sensor.Device.Id, sensor.Id)
}

func GenericLightToHADiscoveryMessage(client *MQTTClient, light domain.GenericLight) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:           device(light.Device),
		StateTopic:       client.StateTopic(PLATFORM_LIGHT, light.Id),
		CommandTopic:     client.CommandTopic(PLATFORM_LIGHT, light.Id),
		Availability:     entityAvailability(client, light.Id),
		AvailabilityMode: "all",
		Name:             light.Name,
		UniqueId:         light.UniqueId,
		Icon:             light.Icon,
		Platform:         "mqtt",
		PayloadOn:        MQTT_PAYLOAD_ON,
		PayloadOff:       MQTT_PAYLOAD_OFF,
	}
}

func GenericSwitchToHADiscoveryMessage(client *MQTTClient, _switch domain.GenericSwitch) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:           device(_switch.Device),
		StateTopic:       client.StateTopic(PLATFORM_SWITCH, _switch.Id),
		CommandTopic:     client.CommandTopic(PLATFORM_SWITCH, _switch.Id),
		Availability:     entityAvailability(client, _switch.Id),
		AvailabilityMode: "all",
		Name:             _switch.Name,
		UniqueId:         _switch.UniqueId,
		Icon:             _switch.Icon,
		Platform:         "mqtt",
		PayloadOn:        MQTT_PAYLOAD_ON,
		PayloadOff:       MQTT_PAYLOAD_OFF,
	}
}

func GenericCoverToHADiscoveryMessage(client *MQTTClient, cover domain.GenericCover) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:           device(cover.Device),
		StateTopic:       client.StateTopic(PLATFORM_COVER, cover.Id),
		CommandTopic:     client.CommandTopic(PLATFORM_COVER, cover.Id),
		PositionTopic:    client.CoverPositionTopic(cover.Id),
		SetPositionTopic: client.CoverSetPositionTopic(cover.Id),
		Availability:     entityAvailability(client, cover.Id),
		AvailabilityMode: "all",
		DeviceClass:      cover.DeviceClass,
		Name:             cover.Name,
		UniqueId:         cover.UniqueId,
		Icon:             cover.Icon,
		Platform:         "mqtt",
		PayloadOpen:      MQTT_PAYLOAD_OPEN,
		PayloadClose:     MQTT_PAYLOAD_CLOSE,
		PayloadStop:      MQTT_PAYLOAD_STOP,
		StateOpen:        MQTT_PAYLOAD_STATE_OPEN,
		StateClosed:      MQTT_PAYLOAD_STATE_CLOSED,
	}
}

func GenericFanToHADiscoveryMessage(client *MQTTClient, fan domain.GenericFan) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:                  device(fan.Device),
		StateTopic:              client.StateTopic(PLATFORM_FAN, fan.Id),
		CommandTopic:            client.CommandTopic(PLATFORM_FAN, fan.Id),
		PercentageStateTopic:    client.FanPercentageStateTopic(fan.Id),
		PercentageCommandTopic:  client.FanPercentageCommandTopic(fan.Id),
		OscillationStateTopic:   client.FanOscillationStateTopic(fan.Id),
		OscillationCommandTopic: client.FanOscillationCommandTopic(fan.Id),
		PayloadOscillationOn:    MQTT_PAYLOAD_ON,
		PayloadOscillationOff:   MQTT_PAYLOAD_OFF,
		Availability:            entityAvailability(client, fan.Id),
		AvailabilityMode:        "all",
		Name:                    fan.Name,
		UniqueId:                fan.UniqueId,
		Icon:                    fan.Icon,
		Platform:                "mqtt",
		PayloadOn:               MQTT_PAYLOAD_ON,
		PayloadOff:              MQTT_PAYLOAD_OFF,
	}
}

func GenericClimateToHADiscoveryMessage(client *MQTTClient, climate domain.GenericClimate) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:                  device(climate.Device),
		ModeStateTopic:          client.ClimateModeStateTopic(climate.Id),
		ModeCommandTopic:        client.ClimateModeCommandTopic(climate.Id),
		TemperatureStateTopic:   client.ClimateTemperatureStateTopic(climate.Id),
		TemperatureCommandTopic: client.ClimateTemperatureCommandTopic(climate.Id),
		CurrentTemperatureTopic: client.ClimateCurrentTemperatureTopic(climate.Id),
		FanModeStateTopic:       client.ClimateFanModeStateTopic(climate.Id),
		FanModeCommandTopic:     client.ClimateFanModeCommandTopic(climate.Id),
		Modes:                   climate.Modes,
		FanModes:                climate.FanModes,
		MinTemp:                 climate.MinTemp,
		MaxTemp:                 climate.MaxTemp,
		TempStep:                climate.TempStep,
		Availability:            entityAvailability(client, climate.Id),
		AvailabilityMode:        "all",
		Name:                    climate.Name,
		UniqueId:                climate.UniqueId,
		Icon:                    climate.Icon,
		Platform:                "mqtt",
	}
}

func GenericSensorToHADiscoveryMessage(client *MQTTClient, sensor domain.GenericSensor) HADiscoveryConfig {
	var topic string
	if sensor.Id == "bridge" {
		topic = client.BridgeStateTopic()
	} else {
		topic = client.SensorStateTopic(sensor.Id)
	}
	disConfig := HADiscoveryConfig{
		Device:            device(sensor.Device),
		StateTopic:        topic,
		StateClass:        sensor.StateClass,
		DeviceClass:       sensor.DeviceClass,
		UnitOfMeasurement: sensor.UnitOfMeasurement,
		EntityCategory:    sensor.EntityCategory,
		Name:              sensor.Name,
		UniqueId:          sensor.UniqueId,
		Icon:              sensor.Icon,
		EnabledByDefault:  sensor.EnabledByDefault,
		Platform:          "mqtt",
	}
	if sensor.Id == "bridge" {
		disConfig.PayloadOn = MQTT_PAYLOAD_ONLINE
		disConfig.PayloadOff = MQTT_PAYLOAD_OFFLINE
	} else {
		disConfig.Availability = entityAvailability(client, sensor.Id)
		disConfig.AvailabilityMode = "all"
	}
	return disConfig
}

// entityAvailability requires both the bridge and the device itself to be
// reachable for the entity to show as available.
func entityAvailability(client *MQTTClient, entityId string) []HADiscoveryAvailability {
	return []HADiscoveryAvailability{
		{
			Topic:      client.BridgeStateTopic(),
			PayloadAv:  MQTT_PAYLOAD_ONLINE,
			PayloadNAv: MQTT_PAYLOAD_OFFLINE,
		},
		{
			Topic:      client.AvailabilityTopic(entityId),
			PayloadAv:  MQTT_PAYLOAD_ONLINE,
			PayloadNAv: MQTT_PAYLOAD_OFFLINE,
		},
	}
}

func device(d domain.Device) HADiscoveryDevice {
	return HADiscoveryDevice{
		Id:           []string{d.Id},
		Manufacturer: d.Manufacturer,
		Version:      d.Version,
		Model:        d.Model,
		Name:         d.Name,
		ViaDevice:    d.ViaDevice,
	}
}
