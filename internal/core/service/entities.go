package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"bemfa2mqtt/internal/config"
	"bemfa2mqtt/internal/core/domain"
	"bemfa2mqtt/internal/core/events"
	"bemfa2mqtt/internal/mapper"
	"bemfa2mqtt/pkg/bemfa"
)

// StaleAfter is how long a device may go without reporting to the cloud
// before it is considered unavailable even while polling succeeds.
const StaleAfter = 10 * time.Minute

// EntityRegistry tracks every device seen in the latest cloud snapshot and
// the normalized state of its entities. Snapshots replace the device set
// wholesale. Commands are applied optimistically: the expected resulting
// state is emitted immediately and the next poll corrects any divergence.
type EntityRegistry struct {
	Now func() time.Time

	devices    map[string]*deviceEntry
	order      []string
	devicesCfg config.DevicesConfig
	bridge     domain.Device
	logger     *zap.Logger
}

type deviceEntry struct {
	record    bemfa.DeviceRecord
	available bool

	power           mapper.PowerState
	cover           mapper.CoverState
	fanConfig       mapper.FanConfig
	fan             mapper.FanState
	climate         mapper.ClimateState
	tempSensorTopic string
}

type CommandOutcome struct {
	Topic string
	// Message is the wire command, empty when nothing has to reach the
	// cloud (state-only changes).
	Message string
	Events  []domain.EntityUpdateEvent
}

func NewEntityRegistry(devicesCfg config.DevicesConfig, baseTopic string, logger *zap.Logger) *EntityRegistry {
	return &EntityRegistry{
		Now:        time.Now,
		devices:    make(map[string]*deviceEntry),
		devicesCfg: devicesCfg,
		bridge:     events.BridgeDevice(baseTopic),
		logger:     logger,
	}
}

func (r *EntityRegistry) BridgeDevice() domain.Device {
	return r.bridge
}

// ApplySnapshot folds the polled device list into the tracked set and
// returns the update events to publish. Known devices missing from the
// snapshot are kept and only flip unavailable, so their entities survive a
// flaky cloud listing. The returned flag reports whether the entity surface
// grew or a device was reclassified, which requires re-announcing discovery.
func (r *EntityRegistry) ApplySnapshot(snapshot bemfa.Snapshot, pollOK bool) ([]domain.EntityUpdateEvent, bool) {
	if !pollOK {
		return r.markAllUnavailable(), false
	}

	changed := false
	seen := make(map[string]bool, len(snapshot))
	now := r.Now().Unix()

	for _, record := range snapshot {
		if record.Topic == "" {
			continue
		}
		entry, known := r.devices[record.Topic]
		if !known || entry.record.Class != record.Class {
			entry = r.newEntry(record)
			if !known {
				r.order = append(r.order, record.Topic)
			}
			r.devices[record.Topic] = entry
			changed = true
		}
		entry.record = record
		entry.available = now-record.LastUpdated < int64(StaleAfter.Seconds())
		r.decode(entry)
		seen[record.Topic] = true
	}
	for topic, entry := range r.devices {
		if !seen[topic] {
			entry.available = false
		}
	}

	r.resolveLinkedSensors()

	var out []domain.EntityUpdateEvent
	for _, topic := range r.order {
		out = append(out, r.entityEvents(r.devices[topic])...)
	}
	return out, changed
}

func (r *EntityRegistry) markAllUnavailable() []domain.EntityUpdateEvent {
	var out []domain.EntityUpdateEvent
	for _, topic := range r.order {
		entry := r.devices[topic]
		entry.available = false
		for _, id := range r.entityIds(entry) {
			out = append(out, events.AvailabilityToUpdateEvent(id, false))
		}
	}
	return out
}

func (r *EntityRegistry) newEntry(record bemfa.DeviceRecord) *deviceEntry {
	entry := &deviceEntry{}
	switch record.Class {
	case bemfa.ClassFan:
		entry.fanConfig = mapper.NewFanConfig(r.devicesCfg.FanSpeedLevelsFor(record.Topic))
	case bemfa.ClassAirConditioner:
		entry.climate = mapper.NewClimateState()
		entry.tempSensorTopic = r.devicesCfg.ACTemperatureSensorFor(record.Topic)
	}
	return entry
}

func (r *EntityRegistry) decode(entry *deviceEntry) {
	switch entry.record.Class {
	case bemfa.ClassLight, bemfa.ClassSwitch, bemfa.ClassOutlet:
		entry.power = mapper.DecodePower(entry.record.Msg, entry.power)
	case bemfa.ClassCurtain:
		entry.cover = mapper.DecodeCover(entry.record.Msg, entry.cover)
	case bemfa.ClassFan:
		entry.fan = entry.fanConfig.Decode(entry.record.Msg, entry.fan)
	case bemfa.ClassAirConditioner:
		entry.climate = mapper.DecodeClimate(entry.record.Msg, entry.climate)
	}
}

// resolveLinkedSensors feeds each air conditioner its room temperature from
// the configured sensor device of the same snapshot. A powered-off unit
// reports no current temperature.
func (r *EntityRegistry) resolveLinkedSensors() {
	for _, entry := range r.devices {
		if entry.record.Class != bemfa.ClassAirConditioner {
			continue
		}
		entry.climate.CurrentTemperature = nil
		if !entry.climate.Power || entry.tempSensorTopic == "" {
			continue
		}
		sensor, ok := r.devices[entry.tempSensorTopic]
		if !ok || sensor.record.Class != bemfa.ClassSensor {
			continue
		}
		entry.climate.CurrentTemperature = sensor.record.Msg.Temperature
	}
}

func (r *EntityRegistry) entityIds(entry *deviceEntry) []string {
	id := events.EntityId(entry.record.Topic)
	switch entry.record.Class {
	case bemfa.ClassAirConditioner:
		return []string{id, id + events.ENTITY_SUFFIX_POWER}
	case bemfa.ClassSensor:
		var ids []string
		if hasTemperature(entry.record) {
			ids = append(ids, id+events.ENTITY_SUFFIX_TEMPERATURE)
		}
		if hasHumidity(entry.record) {
			ids = append(ids, id+events.ENTITY_SUFFIX_HUMIDITY)
		}
		return ids
	default:
		return []string{id}
	}
}

func (r *EntityRegistry) entityEvents(entry *deviceEntry) []domain.EntityUpdateEvent {
	var out []domain.EntityUpdateEvent
	id := events.EntityId(entry.record.Topic)

	switch entry.record.Class {
	case bemfa.ClassLight:
		out = append(out, events.LightToUpdateEvent(id, entry.power))
	case bemfa.ClassSwitch, bemfa.ClassOutlet:
		out = append(out, events.SwitchToUpdateEvent(id, entry.power.On))
	case bemfa.ClassCurtain:
		out = append(out, events.CoverToUpdateEvent(id, entry.cover))
	case bemfa.ClassFan:
		out = append(out, events.FanToUpdateEvent(id, entry.fanConfig, entry.fan))
	case bemfa.ClassAirConditioner:
		out = append(out, events.ClimateToUpdateEvent(id, entry.climate))
		out = append(out, events.SwitchToUpdateEvent(id+events.ENTITY_SUFFIX_POWER, entry.climate.Power))
	case bemfa.ClassSensor:
		if value := mapper.SensorReading(entry.record.Msg, mapper.SensorTemperature); value != nil {
			out = append(out, events.SensorToUpdateEvent(id+events.ENTITY_SUFFIX_TEMPERATURE, *value))
		}
		if value := mapper.SensorReading(entry.record.Msg, mapper.SensorHumidity); value != nil {
			out = append(out, events.SensorToUpdateEvent(id+events.ENTITY_SUFFIX_HUMIDITY, *value))
		}
	}
	for _, entityId := range r.entityIds(entry) {
		out = append(out, events.AvailabilityToUpdateEvent(entityId, entry.available))
	}
	return out
}

// Descriptors lists every entity derived from the current device set.
func (r *EntityRegistry) Descriptors() domain.EntityDescriptors {
	var d domain.EntityDescriptors
	for _, topic := range r.order {
		entry := r.devices[topic]
		device := events.DeviceFor(entry.record, r.bridge)
		switch entry.record.Class {
		case bemfa.ClassLight:
			d.Lights = append(d.Lights, events.LightEntity(device, entry.record))
		case bemfa.ClassSwitch, bemfa.ClassOutlet:
			d.Switches = append(d.Switches, events.SwitchEntity(device, entry.record))
		case bemfa.ClassCurtain:
			d.Covers = append(d.Covers, events.CoverEntity(device, entry.record))
		case bemfa.ClassFan:
			d.Fans = append(d.Fans, events.FanEntity(device, entry.record, entry.fanConfig.SpeedLevels))
		case bemfa.ClassAirConditioner:
			d.Climates = append(d.Climates, events.ClimateEntity(device, entry.record))
			d.Switches = append(d.Switches, events.ACPowerSwitchEntity(device, entry.record))
		case bemfa.ClassSensor:
			if hasTemperature(entry.record) {
				d.Sensors = append(d.Sensors, events.TemperatureSensorEntity(device, entry.record))
			}
			if hasHumidity(entry.record) {
				d.Sensors = append(d.Sensors, events.HumiditySensorEntity(device, entry.record))
			}
		default:
			r.logger.Debug("ignoring device of unsupported class",
				zap.String("topic", entry.record.Topic), zap.String("class", entry.record.Class))
		}
	}
	return d
}

// ApplyCommand validates a command against the addressed device, applies
// it optimistically and returns the wire message plus the state events to
// publish. Delivery failure does not roll the state back, the next poll
// re-aligns it.
func (r *EntityRegistry) ApplyCommand(cmd domain.EntityCommandRequest) (*CommandOutcome, error) {
	entry, ok := r.devices[cmd.EntityTopic()]
	if !ok {
		return nil, fmt.Errorf("unknown device topic %s", cmd.EntityTopic())
	}
	id := events.EntityId(entry.record.Topic)

	switch c := cmd.(type) {
	case *domain.LightPowerRequest:
		if entry.record.Class != bemfa.ClassLight {
			return nil, classMismatch(entry, cmd)
		}
		entry.power = mapper.PowerState{On: c.On}
		return r.outcome(entry, mapper.EncodePower(c.On),
			events.LightToUpdateEvent(id, entry.power)), nil

	case *domain.SwitchPowerRequest:
		switch entry.record.Class {
		case bemfa.ClassSwitch, bemfa.ClassOutlet:
			entry.power = mapper.PowerState{On: c.On}
			return r.outcome(entry, mapper.EncodePower(c.On),
				events.SwitchToUpdateEvent(id, entry.power.On)), nil
		case bemfa.ClassAirConditioner:
			return r.applyACPowerSwitch(entry, c.On), nil
		default:
			return nil, classMismatch(entry, cmd)
		}

	case *domain.CoverOpenRequest:
		if entry.record.Class != bemfa.ClassCurtain {
			return nil, classMismatch(entry, cmd)
		}
		entry.cover = mapper.CoverState{On: true, Position: 100}
		return r.outcome(entry, mapper.EncodeCoverOpen(),
			events.CoverToUpdateEvent(id, entry.cover)), nil

	case *domain.CoverCloseRequest:
		if entry.record.Class != bemfa.ClassCurtain {
			return nil, classMismatch(entry, cmd)
		}
		entry.cover = mapper.CoverState{On: false, Position: 0}
		return r.outcome(entry, mapper.EncodeCoverClose(),
			events.CoverToUpdateEvent(id, entry.cover)), nil

	case *domain.CoverStopRequest:
		if entry.record.Class != bemfa.ClassCurtain {
			return nil, classMismatch(entry, cmd)
		}
		// position is unknown until the next poll, state is left as is
		return r.outcome(entry, mapper.EncodeCoverStop(),
			events.CoverToUpdateEvent(id, entry.cover)), nil

	case *domain.CoverSetPositionRequest:
		if entry.record.Class != bemfa.ClassCurtain {
			return nil, classMismatch(entry, cmd)
		}
		entry.cover = mapper.ApplyCoverPosition(c.Position)
		return r.outcome(entry, mapper.EncodeCoverPosition(c.Position),
			events.CoverToUpdateEvent(id, entry.cover)), nil

	case *domain.FanPowerRequest:
		if entry.record.Class != bemfa.ClassFan {
			return nil, classMismatch(entry, cmd)
		}
		if c.On {
			// resume the last known speed
			if entry.fan.Level < 1 {
				entry.fan.Level = 1
			}
			entry.fan.On = true
			return r.outcome(entry, mapper.EncodeFan(entry.fan.Level, entry.fan.Oscillating),
				events.FanToUpdateEvent(id, entry.fanConfig, entry.fan)), nil
		}
		entry.fan.On = false
		return r.outcome(entry, mapper.EncodeFan(0, false),
			events.FanToUpdateEvent(id, entry.fanConfig, entry.fan)), nil

	case *domain.FanSetPercentageRequest:
		if entry.record.Class != bemfa.ClassFan {
			return nil, classMismatch(entry, cmd)
		}
		level := entry.fanConfig.PercentageToLevel(c.Percentage)
		if level == 0 {
			entry.fan.On = false
			return r.outcome(entry, mapper.EncodeFan(0, false),
				events.FanToUpdateEvent(id, entry.fanConfig, entry.fan)), nil
		}
		entry.fan.On = true
		entry.fan.Level = level
		return r.outcome(entry, mapper.EncodeFan(level, entry.fan.Oscillating),
			events.FanToUpdateEvent(id, entry.fanConfig, entry.fan)), nil

	case *domain.FanOscillateRequest:
		if entry.record.Class != bemfa.ClassFan {
			return nil, classMismatch(entry, cmd)
		}
		entry.fan.Oscillating = c.Oscillating
		if !entry.fan.On {
			if !c.Oscillating {
				// nothing to move yet, remembered for the next power-on
				return r.outcome(entry, "",
					events.FanToUpdateEvent(id, entry.fanConfig, entry.fan)), nil
			}
			// oscillation needs airflow, power on at the lowest speed
			if entry.fan.Level < 1 {
				entry.fan.Level = 1
			}
			entry.fan.On = true
		}
		return r.outcome(entry, mapper.EncodeFan(entry.fan.Level, entry.fan.Oscillating),
			events.FanToUpdateEvent(id, entry.fanConfig, entry.fan)), nil

	case *domain.ClimateSetModeRequest:
		if entry.record.Class != bemfa.ClassAirConditioner {
			return nil, classMismatch(entry, cmd)
		}
		mode, ok := mapper.ParseHVACMode(c.Mode)
		if !ok {
			return nil, fmt.Errorf("unsupported HVAC mode %q", c.Mode)
		}
		if mode == mapper.HVACOff {
			entry.climate.Power = false
		} else {
			entry.climate.Power = true
			entry.climate.Mode = mode
		}
		return r.climateOutcome(entry, id), nil

	case *domain.ClimateSetTemperatureRequest:
		if entry.record.Class != bemfa.ClassAirConditioner {
			return nil, classMismatch(entry, cmd)
		}
		entry.climate.TargetTemperature = mapper.ClampTargetTemperature(int(c.Temperature))
		return r.climateOutcome(entry, id), nil

	case *domain.ClimateSetFanModeRequest:
		if entry.record.Class != bemfa.ClassAirConditioner {
			return nil, classMismatch(entry, cmd)
		}
		fanMode, ok := mapper.ParseClimateFanMode(c.FanMode)
		if !ok {
			return nil, fmt.Errorf("unsupported climate fan mode %q", c.FanMode)
		}
		entry.climate.FanMode = fanMode
		return r.climateOutcome(entry, id), nil

	default:
		return nil, fmt.Errorf("unsupported command %T", cmd)
	}
}

// applyACPowerSwitch handles the companion power switch of an air
// conditioner. Turning it on starts the unit with safe defaults.
func (r *EntityRegistry) applyACPowerSwitch(entry *deviceEntry, on bool) *CommandOutcome {
	id := events.EntityId(entry.record.Topic)
	var message string
	if on {
		entry.climate = mapper.NewClimateState()
		entry.climate.Power = true
		message = mapper.DefaultPowerOnCommand
	} else {
		entry.climate.Power = false
		message = mapper.EncodeClimate(entry.climate)
	}
	return r.outcome(entry, message,
		events.SwitchToUpdateEvent(id+events.ENTITY_SUFFIX_POWER, entry.climate.Power),
		events.ClimateToUpdateEvent(id, entry.climate))
}

func (r *EntityRegistry) climateOutcome(entry *deviceEntry, id string) *CommandOutcome {
	return r.outcome(entry, mapper.EncodeClimate(entry.climate),
		events.ClimateToUpdateEvent(id, entry.climate),
		events.SwitchToUpdateEvent(id+events.ENTITY_SUFFIX_POWER, entry.climate.Power))
}

func (r *EntityRegistry) outcome(entry *deviceEntry, message string, evts ...domain.EntityUpdateEvent) *CommandOutcome {
	return &CommandOutcome{
		Topic:   entry.record.Topic,
		Message: message,
		Events:  evts,
	}
}

func classMismatch(entry *deviceEntry, cmd domain.EntityCommandRequest) error {
	return fmt.Errorf("command %T not supported by device %s of class %s",
		cmd, entry.record.Topic, entry.record.Class)
}

func hasTemperature(record bemfa.DeviceRecord) bool {
	return record.Msg.Temperature != nil || record.TemperatureUnit() != ""
}

func hasHumidity(record bemfa.DeviceRecord) bool {
	return record.Msg.Humidity != nil || record.HumidityUnit() != ""
}
