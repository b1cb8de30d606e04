package events

import (
	. "bemfa2mqtt/internal/core/domain"
	"bemfa2mqtt/internal/mapper"
)

func LightToUpdateEvent(id string, state mapper.PowerState) LightStateUpdateEvent {
	return LightStateUpdateEvent{
		EntityUpdateEventMixIn: EntityUpdateEventMixIn{
			Id: id,
		},
		On: state.On,
	}
}

func SwitchToUpdateEvent(id string, on bool) SwitchStateUpdateEvent {
	return SwitchStateUpdateEvent{
		EntityUpdateEventMixIn: EntityUpdateEventMixIn{
			Id: id,
		},
		On: on,
	}
}

func CoverToUpdateEvent(id string, state mapper.CoverState) CoverStateUpdateEvent {
	return CoverStateUpdateEvent{
		EntityUpdateEventMixIn: EntityUpdateEventMixIn{
			Id: id,
		},
		Position: state.Position,
		Closed:   state.Closed(),
	}
}

func FanToUpdateEvent(id string, config mapper.FanConfig, state mapper.FanState) FanStateUpdateEvent {
	return FanStateUpdateEvent{
		EntityUpdateEventMixIn: EntityUpdateEventMixIn{
			Id: id,
		},
		On:          state.On,
		Percentage:  config.Percentage(state),
		Oscillating: state.Oscillating,
	}
}

func ClimateToUpdateEvent(id string, state mapper.ClimateState) ClimateStateUpdateEvent {
	// while on, the target temperature stands in for a missing sensor;
	// while off the unit reports no current temperature at all
	var current *float64
	if state.Power {
		c := float64(state.TargetTemperature)
		if state.CurrentTemperature != nil {
			c = *state.CurrentTemperature
		}
		current = &c
	}
	return ClimateStateUpdateEvent{
		EntityUpdateEventMixIn: EntityUpdateEventMixIn{
			Id: id,
		},
		Mode:               string(state.HVAC()),
		TargetTemperature:  float64(state.TargetTemperature),
		CurrentTemperature: current,
		FanMode:            string(state.FanMode),
	}
}

func SensorToUpdateEvent(id string, value float64) FloatSensorUpdateEvent {
	return FloatSensorUpdateEvent{
		EntityUpdateEventMixIn: EntityUpdateEventMixIn{
			Id: id,
		},
		Value:    value,
		Decimals: 1,
	}
}

func AvailabilityToUpdateEvent(id string, available bool) AvailabilityUpdateEvent {
	return AvailabilityUpdateEvent{
		EntityUpdateEventMixIn: EntityUpdateEventMixIn{
			Id: id,
		},
		Available: available,
	}
}

func BridgeStateToUpdateEvent(up bool) BridgeStateUpdateEvent {
	return BridgeStateUpdateEvent{
		EntityUpdateEventMixIn: EntityUpdateEventMixIn{
			Id: ENTITY_ID_BRIDGE_STATE,
		},
		Value: up,
	}
}
