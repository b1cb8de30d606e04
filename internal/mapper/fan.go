package mapper

import (
	"math"

	"bemfa2mqtt/pkg/bemfa"
)

// FanConfig fixes the number of discrete speed levels a fan exposes.
// Bemfa fans only understand integer levels, so percentages from MQTT are
// snapped to the nearest level and reported back as that level's percentage.
type FanConfig struct {
	SpeedLevels int
}

func NewFanConfig(speedLevels int) FanConfig {
	if speedLevels < 1 {
		speedLevels = 1
	} else if speedLevels > 5 {
		speedLevels = 5
	}
	return FanConfig{SpeedLevels: speedLevels}
}

// FanState keeps the last known level even while off so a plain power-on
// can resume the previous speed.
type FanState struct {
	On          bool
	Level       int
	Oscillating bool
}

func (c FanConfig) Decode(msg bemfa.DeviceMessage, prev FanState) FanState {
	next := prev
	if msg.On != nil {
		next.On = *msg.On
	}
	if msg.Level != nil {
		next.Level = *msg.Level
	}
	if msg.Shake != nil {
		next.Oscillating = *msg.Shake == 1
	}
	if next.On {
		if next.Level < 1 {
			next.Level = 1
		} else if next.Level > c.SpeedLevels {
			next.Level = c.SpeedLevels
		}
	}
	return next
}

// Percentage is the externally reported speed, 0 while off.
func (c FanConfig) Percentage(s FanState) int {
	if !s.On {
		return 0
	}
	return c.LevelToPercentage(s.Level)
}

func (c FanConfig) LevelToPercentage(level int) int {
	if level <= 0 {
		return 0
	}
	if level > c.SpeedLevels {
		level = c.SpeedLevels
	}
	p := int(math.Round(float64(level) * 100.0 / float64(c.SpeedLevels)))
	if p > 100 {
		p = 100
	}
	return p
}

// PercentageToLevel snaps to the nearest level; any non-zero percentage
// maps to at least level 1.
func (c FanConfig) PercentageToLevel(percentage int) int {
	if percentage <= 0 {
		return 0
	}
	level := int(math.Round(float64(percentage) * float64(c.SpeedLevels) / 100.0))
	if level < 1 {
		level = 1
	} else if level > c.SpeedLevels {
		level = c.SpeedLevels
	}
	return level
}

// EncodeFan produces "off" for level 0, otherwise "on#<level>#<shake>".
func EncodeFan(level int, oscillating bool) string {
	if level <= 0 {
		return bemfa.CommandOff
	}
	shake := "0"
	if oscillating {
		shake = "1"
	}
	return command(bemfa.CommandOn, itoa(level), shake)
}
