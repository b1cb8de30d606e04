package domain

import "fmt"

type EntityUpdateEventMixIn struct {
	Id string
}

type EntityUpdateEvent interface {
	EntityUpdateEvent() string
	EntityId() string
}

func (e EntityUpdateEventMixIn) EntityUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e EntityUpdateEventMixIn) EntityId() string {
	return e.Id
}

type LightStateUpdateEvent struct {
	EntityUpdateEventMixIn
	On bool
}

type SwitchStateUpdateEvent struct {
	EntityUpdateEventMixIn
	On bool
}

type CoverStateUpdateEvent struct {
	EntityUpdateEventMixIn
	Position int
	Closed   bool
}

type FanStateUpdateEvent struct {
	EntityUpdateEventMixIn
	On          bool
	Percentage  int
	Oscillating bool
}

type ClimateStateUpdateEvent struct {
	EntityUpdateEventMixIn
	Mode               string
	TargetTemperature  float64
	CurrentTemperature *float64
	FanMode            string
}

type FloatSensorUpdateEvent struct {
	EntityUpdateEventMixIn
	Value    float64
	Decimals uint
}

type AvailabilityUpdateEvent struct {
	EntityUpdateEventMixIn
	Available bool
}

type BridgeStateUpdateEvent struct {
	EntityUpdateEventMixIn
	Value bool
}
