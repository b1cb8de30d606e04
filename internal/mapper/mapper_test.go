package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bemfa2mqtt/pkg/bemfa"
)

func boolPtr(v bool) *bool        { return &v }
func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestDecodePower(t *testing.T) {
	s := DecodePower(bemfa.DeviceMessage{On: boolPtr(true)}, PowerState{})
	assert.True(t, s.On)

	s = DecodePower(bemfa.DeviceMessage{On: boolPtr(false)}, s)
	assert.False(t, s.On)
}

func TestDecodePowerRetainsOnMissingField(t *testing.T) {
	prev := PowerState{On: true}
	s := DecodePower(bemfa.DeviceMessage{}, prev)
	assert.True(t, s.On)
}

func TestEncodePower(t *testing.T) {
	assert.Equal(t, "on", EncodePower(true))
	assert.Equal(t, "off", EncodePower(false))
}

func TestDecodeCover(t *testing.T) {
	s := DecodeCover(bemfa.DeviceMessage{On: boolPtr(true), Position: intPtr(40)}, CoverState{})
	assert.Equal(t, CoverState{On: true, Position: 40}, s)
	assert.False(t, s.Closed())

	// off means fully closed regardless of any reported position
	s = DecodeCover(bemfa.DeviceMessage{On: boolPtr(false), Position: intPtr(40)}, s)
	assert.Equal(t, CoverState{On: false, Position: 0}, s)
	assert.True(t, s.Closed())

	// on without a usable position means fully open
	s = DecodeCover(bemfa.DeviceMessage{On: boolPtr(true)}, s)
	assert.Equal(t, CoverState{On: true, Position: 100}, s)

	s = DecodeCover(bemfa.DeviceMessage{On: boolPtr(true), Position: intPtr(0)}, s)
	assert.Equal(t, 100, s.Position)
}

func TestEncodeCoverCommands(t *testing.T) {
	assert.Equal(t, "on", EncodeCoverOpen())
	assert.Equal(t, "off", EncodeCoverClose())
	assert.Equal(t, "pause", EncodeCoverStop())
	assert.Equal(t, "on#40", EncodeCoverPosition(40))
	assert.Equal(t, "on#100", EncodeCoverPosition(200))
	assert.Equal(t, "on#0", EncodeCoverPosition(-5))
}

func TestApplyCoverPosition(t *testing.T) {
	assert.Equal(t, CoverState{On: true, Position: 40}, ApplyCoverPosition(40))
	assert.Equal(t, CoverState{On: false, Position: 0}, ApplyCoverPosition(0))
}

func TestFanPercentageLevelRoundTrip(t *testing.T) {
	// snapping a level to percentage and back must be the identity for
	// every supported level count
	for speedLevels := 1; speedLevels <= 5; speedLevels++ {
		cfg := NewFanConfig(speedLevels)
		for level := 1; level <= speedLevels; level++ {
			p := cfg.LevelToPercentage(level)
			assert.Equal(t, level, cfg.PercentageToLevel(p),
				"levels=%d level=%d percentage=%d", speedLevels, level, p)
		}
	}

	// snapping any percentage to a level is idempotent: once a percentage
	// has been mapped to a level, re-encoding and re-mapping must not move it
	for speedLevels := 1; speedLevels <= 5; speedLevels++ {
		cfg := NewFanConfig(speedLevels)
		for p := 0; p <= 100; p++ {
			level := cfg.PercentageToLevel(p)
			assert.Equal(t, level, cfg.PercentageToLevel(cfg.LevelToPercentage(level)),
				"levels=%d percentage=%d", speedLevels, p)
		}
	}
}

func TestFanPercentageToLevel(t *testing.T) {
	cfg := NewFanConfig(5)
	assert.Equal(t, 0, cfg.PercentageToLevel(0))
	assert.Equal(t, 3, cfg.PercentageToLevel(60))
	assert.Equal(t, 1, cfg.PercentageToLevel(1))
	assert.Equal(t, 5, cfg.PercentageToLevel(100))

	cfg = NewFanConfig(3)
	assert.Equal(t, 2, cfg.PercentageToLevel(50))
	assert.Equal(t, 3, cfg.PercentageToLevel(100))
}

func TestFanDecode(t *testing.T) {
	cfg := NewFanConfig(3)

	s := cfg.Decode(bemfa.DeviceMessage{On: boolPtr(true), Level: intPtr(2)}, FanState{})
	assert.Equal(t, FanState{On: true, Level: 2}, s)
	assert.Equal(t, 67, cfg.Percentage(s))

	// missing level retains the previous one
	s = cfg.Decode(bemfa.DeviceMessage{On: boolPtr(true)}, s)
	assert.Equal(t, 2, s.Level)

	// on with no known level defaults to the lowest speed
	s = cfg.Decode(bemfa.DeviceMessage{On: boolPtr(true)}, FanState{})
	assert.Equal(t, 1, s.Level)

	// level beyond the configured count is clamped
	s = cfg.Decode(bemfa.DeviceMessage{On: boolPtr(true), Level: intPtr(9)}, FanState{})
	assert.Equal(t, 3, s.Level)

	s = cfg.Decode(bemfa.DeviceMessage{On: boolPtr(false)}, s)
	assert.False(t, s.On)
	assert.Equal(t, 0, cfg.Percentage(s))
	// level survives power-off so a later power-on resumes it
	assert.Equal(t, 3, s.Level)
}

func TestFanOscillation(t *testing.T) {
	cfg := NewFanConfig(3)

	s := cfg.Decode(bemfa.DeviceMessage{On: boolPtr(true), Shake: intPtr(1)}, FanState{})
	assert.True(t, s.Oscillating)

	s = cfg.Decode(bemfa.DeviceMessage{On: boolPtr(true)}, s)
	assert.True(t, s.Oscillating)

	s = cfg.Decode(bemfa.DeviceMessage{Shake: intPtr(0)}, s)
	assert.False(t, s.Oscillating)
}

func TestEncodeFan(t *testing.T) {
	assert.Equal(t, "off", EncodeFan(0, false))
	assert.Equal(t, "on#3#0", EncodeFan(3, false))
	assert.Equal(t, "on#2#1", EncodeFan(2, true))
}

func TestDecodeClimate(t *testing.T) {
	s := DecodeClimate(bemfa.DeviceMessage{
		On:          boolPtr(true),
		Mode:        intPtr(2),
		Temperature: floatPtr(22),
		Level:       intPtr(3),
	}, NewClimateState())
	assert.Equal(t, HVACCool, s.HVAC())
	assert.Equal(t, 22, s.TargetTemperature)
	assert.Equal(t, FanModeHigh, s.FanMode)

	// powering off keeps the last active mode internally
	s = DecodeClimate(bemfa.DeviceMessage{On: boolPtr(false)}, s)
	assert.Equal(t, HVACOff, s.HVAC())
	assert.Equal(t, HVACCool, s.Mode)
	assert.Equal(t, 22, s.TargetTemperature)

	s = DecodeClimate(bemfa.DeviceMessage{On: boolPtr(true)}, s)
	assert.Equal(t, HVACCool, s.HVAC())
}

func TestDecodeClimateModeCodes(t *testing.T) {
	cases := map[int]HVACMode{
		1: HVACAuto, 2: HVACCool, 3: HVACHeat, 4: HVACFanOnly, 5: HVACDry,
		6: HVACFanOnly, 7: HVACAuto, 99: HVACAuto, 0: HVACAuto,
	}
	for code, want := range cases {
		s := DecodeClimate(bemfa.DeviceMessage{On: boolPtr(true), Mode: intPtr(code)}, NewClimateState())
		assert.Equal(t, want, s.Mode, "code=%d", code)
	}
}

func TestDecodeClimateClampsTemperature(t *testing.T) {
	s := DecodeClimate(bemfa.DeviceMessage{On: boolPtr(true), Temperature: floatPtr(10)}, NewClimateState())
	assert.Equal(t, MinTargetTemperature, s.TargetTemperature)

	s = DecodeClimate(bemfa.DeviceMessage{On: boolPtr(true), Temperature: floatPtr(40)}, NewClimateState())
	assert.Equal(t, MaxTargetTemperature, s.TargetTemperature)
}

func TestDecodeClimateUnknownFanCode(t *testing.T) {
	s := DecodeClimate(bemfa.DeviceMessage{On: boolPtr(true), Level: intPtr(9)}, NewClimateState())
	assert.Equal(t, FanModeLow, s.FanMode)
}

func TestEncodeClimate(t *testing.T) {
	s := ClimateState{Power: true, Mode: HVACHeat, TargetTemperature: 26, FanMode: FanModeMedium}
	assert.Equal(t, "on#3#26#2", EncodeClimate(s))

	s.Power = false
	assert.Equal(t, "off", EncodeClimate(s))

	// zero-value state still encodes to something the device accepts
	assert.Equal(t, "on#1#25#1", EncodeClimate(ClimateState{Power: true}))
}

func TestEncodeDecodeClimateStable(t *testing.T) {
	// encoding a decoded state and decoding the resulting message again
	// must not drift
	s := DecodeClimate(bemfa.DeviceMessage{
		On:          boolPtr(true),
		Mode:        intPtr(5),
		Temperature: floatPtr(28),
		Level:       intPtr(2),
	}, NewClimateState())

	wire := EncodeClimate(s)
	assert.Equal(t, "on#5#28#2", wire)

	again := DecodeClimate(bemfa.DeviceMessage{
		On:          boolPtr(true),
		Mode:        intPtr(HVACToModeCode(s.Mode)),
		Temperature: floatPtr(float64(s.TargetTemperature)),
		Level:       intPtr(FanModeToCode(s.FanMode)),
	}, s)
	assert.Equal(t, s, again)
}

func TestParseModes(t *testing.T) {
	m, ok := ParseHVACMode("cool")
	assert.True(t, ok)
	assert.Equal(t, HVACCool, m)

	_, ok = ParseHVACMode("freeze")
	assert.False(t, ok)

	f, ok := ParseClimateFanMode("high")
	assert.True(t, ok)
	assert.Equal(t, FanModeHigh, f)

	_, ok = ParseClimateFanMode("turbo")
	assert.False(t, ok)
}

func TestSensorReading(t *testing.T) {
	msg := bemfa.DeviceMessage{Temperature: floatPtr(21.5), Humidity: floatPtr(40)}

	temp := SensorReading(msg, SensorTemperature)
	assert.NotNil(t, temp)
	assert.Equal(t, 21.5, *temp)

	hum := SensorReading(msg, SensorHumidity)
	assert.NotNil(t, hum)
	assert.Equal(t, 40.0, *hum)

	assert.Nil(t, SensorReading(bemfa.DeviceMessage{}, SensorTemperature))
}

func TestSensorUnit(t *testing.T) {
	record := bemfa.DeviceRecord{Unit: []string{"℃", "%"}}
	assert.Equal(t, "℃", SensorUnit(record, SensorTemperature))
	assert.Equal(t, "%", SensorUnit(record, SensorHumidity))

	assert.Equal(t, "", SensorUnit(bemfa.DeviceRecord{}, SensorTemperature))
}
