package mapper

import (
	"bemfa2mqtt/pkg/bemfa"
)

type HVACMode string

const (
	HVACOff     HVACMode = "off"
	HVACAuto    HVACMode = "auto"
	HVACCool    HVACMode = "cool"
	HVACHeat    HVACMode = "heat"
	HVACFanOnly HVACMode = "fan_only"
	HVACDry     HVACMode = "dry"
)

type ClimateFanMode string

const (
	FanModeLow    ClimateFanMode = "low"
	FanModeMedium ClimateFanMode = "medium"
	FanModeHigh   ClimateFanMode = "high"
)

const (
	MinTargetTemperature     = 16
	MaxTargetTemperature     = 32
	DefaultTargetTemperature = 25
)

// DefaultPowerOnCommand turns an AC on through its companion power switch:
// auto mode, 25 degrees, low fan.
const DefaultPowerOnCommand = "on#1#25#1"

// ClimateState separates power from mode so turning the unit off does not
// forget which mode it was running. Mode is never HVACOff; the reported
// HVAC mode collapses to "off" while Power is false.
type ClimateState struct {
	Power              bool
	Mode               HVACMode
	TargetTemperature  int
	FanMode            ClimateFanMode
	CurrentTemperature *float64
}

func NewClimateState() ClimateState {
	return ClimateState{
		Mode:              HVACAuto,
		TargetTemperature: DefaultTargetTemperature,
		FanMode:           FanModeLow,
	}
}

// HVAC is the mode as reported to the outside.
func (s ClimateState) HVAC() HVACMode {
	if !s.Power {
		return HVACOff
	}
	return s.Mode
}

func DecodeClimate(msg bemfa.DeviceMessage, prev ClimateState) ClimateState {
	next := prev
	if msg.On != nil {
		next.Power = *msg.On
	}
	if !next.Power {
		return next
	}
	if msg.Mode != nil {
		next.Mode = ModeCodeToHVAC(*msg.Mode)
	}
	if msg.Temperature != nil {
		next.TargetTemperature = ClampTargetTemperature(int(*msg.Temperature))
	}
	if msg.Level != nil {
		next.FanMode = FanCodeToMode(*msg.Level)
	}
	return next
}

// EncodeClimate produces "off" or "on#<mode>#<temperature>#<fan>".
func EncodeClimate(s ClimateState) string {
	if !s.Power {
		return bemfa.CommandOff
	}
	mode := s.Mode
	if mode == "" || mode == HVACOff {
		mode = HVACAuto
	}
	temperature := s.TargetTemperature
	if temperature == 0 {
		temperature = DefaultTargetTemperature
	}
	return command(
		bemfa.CommandOn,
		itoa(HVACToModeCode(mode)),
		itoa(ClampTargetTemperature(temperature)),
		itoa(FanModeToCode(s.FanMode)),
	)
}

func ClampTargetTemperature(t int) int {
	if t < MinTargetTemperature {
		return MinTargetTemperature
	}
	if t > MaxTargetTemperature {
		return MaxTargetTemperature
	}
	return t
}

// ModeCodeToHVAC maps Bemfa mode codes to HVAC modes. Codes 6 and 7 are
// vendor aliases for ventilation and auto; anything else falls back to auto.
func ModeCodeToHVAC(code int) HVACMode {
	switch code {
	case 1:
		return HVACAuto
	case 2:
		return HVACCool
	case 3:
		return HVACHeat
	case 4:
		return HVACFanOnly
	case 5:
		return HVACDry
	case 6:
		return HVACFanOnly
	case 7:
		return HVACAuto
	default:
		return HVACAuto
	}
}

func HVACToModeCode(mode HVACMode) int {
	switch mode {
	case HVACAuto:
		return 1
	case HVACCool:
		return 2
	case HVACHeat:
		return 3
	case HVACFanOnly:
		return 4
	case HVACDry:
		return 5
	default:
		return 1
	}
}

func FanCodeToMode(code int) ClimateFanMode {
	switch code {
	case 1:
		return FanModeLow
	case 2:
		return FanModeMedium
	case 3:
		return FanModeHigh
	default:
		return FanModeLow
	}
}

func FanModeToCode(mode ClimateFanMode) int {
	switch mode {
	case FanModeLow:
		return 1
	case FanModeMedium:
		return 2
	case FanModeHigh:
		return 3
	default:
		return 1
	}
}

func ParseHVACMode(s string) (HVACMode, bool) {
	switch HVACMode(s) {
	case HVACOff, HVACAuto, HVACCool, HVACHeat, HVACFanOnly, HVACDry:
		return HVACMode(s), true
	default:
		return "", false
	}
}

func ParseClimateFanMode(s string) (ClimateFanMode, bool) {
	switch ClimateFanMode(s) {
	case FanModeLow, FanModeMedium, FanModeHigh:
		return ClimateFanMode(s), true
	default:
		return "", false
	}
}
