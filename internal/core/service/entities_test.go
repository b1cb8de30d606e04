package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bemfa2mqtt/internal/config"
	"bemfa2mqtt/internal/core/domain"
	"bemfa2mqtt/pkg/bemfa"
)

var testNow = time.Unix(1700000000, 0)

func boolPtr(v bool) *bool    { return &v }
func intPtr(v int) *int       { return &v }
func fPtr(v float64) *float64 { return &v }

func testRegistry(devicesCfg config.DevicesConfig) *EntityRegistry {
	r := NewEntityRegistry(devicesCfg, "bemfa2mqtt", zap.NewNop())
	r.Now = func() time.Time { return testNow }
	return r
}

func record(topic, class string, msg bemfa.DeviceMessage) bemfa.DeviceRecord {
	return bemfa.DeviceRecord{
		Topic:       topic,
		Class:       class,
		Name:        topic,
		Msg:         msg,
		LastUpdated: testNow.Unix() - 10,
	}
}

func eventsById(evts []domain.EntityUpdateEvent) map[string][]domain.EntityUpdateEvent {
	out := make(map[string][]domain.EntityUpdateEvent)
	for _, e := range evts {
		out[e.EntityId()] = append(out[e.EntityId()], e)
	}
	return out
}

func TestApplySnapshotEmitsStateAndAvailability(t *testing.T) {
	r := testRegistry(config.DevicesConfig{})

	evts, changed := r.ApplySnapshot(bemfa.Snapshot{
		record("light001", bemfa.ClassLight, bemfa.DeviceMessage{On: boolPtr(true)}),
	}, true)
	assert.True(t, changed)

	byId := eventsById(evts)
	require.Len(t, byId["bemfa_light001"], 2)

	light, ok := byId["bemfa_light001"][0].(domain.LightStateUpdateEvent)
	require.True(t, ok)
	assert.True(t, light.On)

	avail, ok := byId["bemfa_light001"][1].(domain.AvailabilityUpdateEvent)
	require.True(t, ok)
	assert.True(t, avail.Available)
}

func TestApplySnapshotChangeDetection(t *testing.T) {
	r := testRegistry(config.DevicesConfig{})
	snapshot := bemfa.Snapshot{
		record("light001", bemfa.ClassLight, bemfa.DeviceMessage{On: boolPtr(true)}),
	}

	_, changed := r.ApplySnapshot(snapshot, true)
	assert.True(t, changed)

	_, changed = r.ApplySnapshot(snapshot, true)
	assert.False(t, changed)

	// new device
	_, changed = r.ApplySnapshot(append(snapshot,
		record("fan002", bemfa.ClassFan, bemfa.DeviceMessage{})), true)
	assert.True(t, changed)

	// a device missing from the listing keeps its entities, it only
	// flips unavailable
	evts, changed := r.ApplySnapshot(snapshot, true)
	assert.False(t, changed)
	byId := eventsById(evts)
	require.Len(t, byId["bemfa_fan002"], 2)
	avail, ok := byId["bemfa_fan002"][1].(domain.AvailabilityUpdateEvent)
	require.True(t, ok)
	assert.False(t, avail.Available)
}

func TestStaleDeviceIsUnavailable(t *testing.T) {
	r := testRegistry(config.DevicesConfig{})

	stale := record("light001", bemfa.ClassLight, bemfa.DeviceMessage{On: boolPtr(true)})
	stale.LastUpdated = testNow.Unix() - 601

	evts, _ := r.ApplySnapshot(bemfa.Snapshot{stale}, true)
	byId := eventsById(evts)
	avail, ok := byId["bemfa_light001"][1].(domain.AvailabilityUpdateEvent)
	require.True(t, ok)
	assert.False(t, avail.Available)
}

func TestPollFailureMarksAllUnavailable(t *testing.T) {
	r := testRegistry(config.DevicesConfig{})

	_, _ = r.ApplySnapshot(bemfa.Snapshot{
		record("light001", bemfa.ClassLight, bemfa.DeviceMessage{On: boolPtr(true)}),
		record("th003", bemfa.ClassSensor, bemfa.DeviceMessage{Temperature: fPtr(21.5), Humidity: fPtr(40)}),
	}, true)

	evts, changed := r.ApplySnapshot(nil, false)
	assert.False(t, changed)
	// light + sensor t + sensor h
	require.Len(t, evts, 3)
	for _, e := range evts {
		avail, ok := e.(domain.AvailabilityUpdateEvent)
		require.True(t, ok)
		assert.False(t, avail.Available)
	}
}

func TestDescriptors(t *testing.T) {
	r := testRegistry(config.DevicesConfig{FanSpeedLevels: map[string]int{"fan002": 5}})

	_, _ = r.ApplySnapshot(bemfa.Snapshot{
		record("light001", bemfa.ClassLight, bemfa.DeviceMessage{}),
		record("fan002", bemfa.ClassFan, bemfa.DeviceMessage{}),
		record("ac003", bemfa.ClassAirConditioner, bemfa.DeviceMessage{}),
		record("th004", bemfa.ClassSensor, bemfa.DeviceMessage{Temperature: fPtr(20), Humidity: fPtr(50)}),
		record("curtain005", bemfa.ClassCurtain, bemfa.DeviceMessage{}),
		record("outlet006", bemfa.ClassOutlet, bemfa.DeviceMessage{}),
	}, true)

	d := r.Descriptors()
	assert.Len(t, d.Lights, 1)
	assert.Len(t, d.Fans, 1)
	assert.Equal(t, 5, d.Fans[0].SpeedLevels)
	assert.Len(t, d.Climates, 1)
	// outlet switch plus the AC companion power switch
	assert.Len(t, d.Switches, 2)
	assert.Len(t, d.Covers, 1)
	assert.Len(t, d.Sensors, 2)
	assert.Equal(t, 8, d.Count())

	switchIds := []string{d.Switches[0].Id, d.Switches[1].Id}
	assert.Contains(t, switchIds, "bemfa_ac003_power")
	assert.Contains(t, switchIds, "bemfa_outlet006")
	assert.Equal(t, "bemfa_th004_t", d.Sensors[0].Id)
	assert.Equal(t, "bemfa_th004_h", d.Sensors[1].Id)
}

func TestApplyCommandLight(t *testing.T) {
	r := testRegistry(config.DevicesConfig{})
	_, _ = r.ApplySnapshot(bemfa.Snapshot{
		record("light001", bemfa.ClassLight, bemfa.DeviceMessage{On: boolPtr(false)}),
	}, true)

	outcome, err := r.ApplyCommand(&domain.LightPowerRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "light001"},
		On:                        true,
	})
	require.NoError(t, err)
	assert.Equal(t, "light001", outcome.Topic)
	assert.Equal(t, "on", outcome.Message)
	require.Len(t, outcome.Events, 1)
	assert.True(t, outcome.Events[0].(domain.LightStateUpdateEvent).On)
}

func TestApplyCommandUnknownTopic(t *testing.T) {
	r := testRegistry(config.DevicesConfig{})

	_, err := r.ApplyCommand(&domain.LightPowerRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "nope"},
	})
	assert.Error(t, err)
}

func TestApplyCommandClassMismatch(t *testing.T) {
	r := testRegistry(config.DevicesConfig{})
	_, _ = r.ApplySnapshot(bemfa.Snapshot{
		record("fan002", bemfa.ClassFan, bemfa.DeviceMessage{}),
	}, true)

	_, err := r.ApplyCommand(&domain.LightPowerRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "fan002"},
		On:                        true,
	})
	assert.Error(t, err)
}

func TestApplyCommandCoverSetPosition(t *testing.T) {
	r := testRegistry(config.DevicesConfig{})
	_, _ = r.ApplySnapshot(bemfa.Snapshot{
		record("curtain005", bemfa.ClassCurtain, bemfa.DeviceMessage{On: boolPtr(true), Position: intPtr(80)}),
	}, true)

	outcome, err := r.ApplyCommand(&domain.CoverSetPositionRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "curtain005"},
		Position:                  40,
	})
	require.NoError(t, err)
	assert.Equal(t, "on#40", outcome.Message)

	cover := outcome.Events[0].(domain.CoverStateUpdateEvent)
	assert.Equal(t, 40, cover.Position)
	assert.False(t, cover.Closed)
}

func TestApplyCommandCoverStopKeepsState(t *testing.T) {
	r := testRegistry(config.DevicesConfig{})
	_, _ = r.ApplySnapshot(bemfa.Snapshot{
		record("curtain005", bemfa.ClassCurtain, bemfa.DeviceMessage{On: boolPtr(true), Position: intPtr(80)}),
	}, true)

	outcome, err := r.ApplyCommand(&domain.CoverStopRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "curtain005"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pause", outcome.Message)
	assert.Equal(t, 80, outcome.Events[0].(domain.CoverStateUpdateEvent).Position)
}

func TestApplyCommandFanPercentage(t *testing.T) {
	r := testRegistry(config.DevicesConfig{FanSpeedLevels: map[string]int{"fan002": 5}})
	_, _ = r.ApplySnapshot(bemfa.Snapshot{
		record("fan002", bemfa.ClassFan, bemfa.DeviceMessage{}),
	}, true)

	outcome, err := r.ApplyCommand(&domain.FanSetPercentageRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "fan002"},
		Percentage:                60,
	})
	require.NoError(t, err)
	assert.Equal(t, "on#3#0", outcome.Message)

	fan := outcome.Events[0].(domain.FanStateUpdateEvent)
	assert.True(t, fan.On)
	assert.Equal(t, 60, fan.Percentage)

	// percentage 0 powers off
	outcome, err = r.ApplyCommand(&domain.FanSetPercentageRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "fan002"},
	})
	require.NoError(t, err)
	assert.Equal(t, "off", outcome.Message)

	// powering back on resumes level 3
	outcome, err = r.ApplyCommand(&domain.FanPowerRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "fan002"},
		On:                        true,
	})
	require.NoError(t, err)
	assert.Equal(t, "on#3#0", outcome.Message)
}

func TestApplyCommandFanOscillateWhileOff(t *testing.T) {
	r := testRegistry(config.DevicesConfig{})
	_, _ = r.ApplySnapshot(bemfa.Snapshot{
		record("fan002", bemfa.ClassFan, bemfa.DeviceMessage{}),
	}, true)

	// oscillation off while powered off stays local
	outcome, err := r.ApplyCommand(&domain.FanOscillateRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "fan002"},
		Oscillating:               false,
	})
	require.NoError(t, err)
	assert.Empty(t, outcome.Message)

	// oscillation on powers the fan on at the lowest speed
	outcome, err = r.ApplyCommand(&domain.FanOscillateRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "fan002"},
		Oscillating:               true,
	})
	require.NoError(t, err)
	assert.Equal(t, "on#1#1", outcome.Message)
	event := outcome.Events[0].(domain.FanStateUpdateEvent)
	assert.True(t, event.On)
	assert.True(t, event.Oscillating)
}

func TestApplyCommandClimate(t *testing.T) {
	r := testRegistry(config.DevicesConfig{})
	_, _ = r.ApplySnapshot(bemfa.Snapshot{
		record("ac003", bemfa.ClassAirConditioner, bemfa.DeviceMessage{
			On: boolPtr(true), Mode: intPtr(2), Temperature: fPtr(22), Level: intPtr(1),
		}),
	}, true)

	outcome, err := r.ApplyCommand(&domain.ClimateSetTemperatureRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "ac003"},
		Temperature:               26,
	})
	require.NoError(t, err)
	assert.Equal(t, "on#2#26#1", outcome.Message)

	outcome, err = r.ApplyCommand(&domain.ClimateSetFanModeRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "ac003"},
		FanMode:                   "high",
	})
	require.NoError(t, err)
	assert.Equal(t, "on#2#26#3", outcome.Message)

	outcome, err = r.ApplyCommand(&domain.ClimateSetModeRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "ac003"},
		Mode:                      "off",
	})
	require.NoError(t, err)
	assert.Equal(t, "off", outcome.Message)

	climate := outcome.Events[0].(domain.ClimateStateUpdateEvent)
	assert.Equal(t, "off", climate.Mode)
	// the companion power switch follows
	assert.False(t, outcome.Events[1].(domain.SwitchStateUpdateEvent).On)

	_, err = r.ApplyCommand(&domain.ClimateSetModeRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "ac003"},
		Mode:                      "freeze",
	})
	assert.Error(t, err)
}

func TestApplyCommandACPowerSwitch(t *testing.T) {
	r := testRegistry(config.DevicesConfig{})
	_, _ = r.ApplySnapshot(bemfa.Snapshot{
		record("ac003", bemfa.ClassAirConditioner, bemfa.DeviceMessage{On: boolPtr(false)}),
	}, true)

	outcome, err := r.ApplyCommand(&domain.SwitchPowerRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "ac003"},
		On:                        true,
	})
	require.NoError(t, err)
	assert.Equal(t, "on#1#25#1", outcome.Message)
	require.Len(t, outcome.Events, 2)
	assert.True(t, outcome.Events[0].(domain.SwitchStateUpdateEvent).On)
	assert.Equal(t, "auto", outcome.Events[1].(domain.ClimateStateUpdateEvent).Mode)

	outcome, err = r.ApplyCommand(&domain.SwitchPowerRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "ac003"},
		On:                        false,
	})
	require.NoError(t, err)
	assert.Equal(t, "off", outcome.Message)
}

func TestLinkedTemperatureSensor(t *testing.T) {
	r := testRegistry(config.DevicesConfig{
		ACTemperatureSensors: map[string]string{"ac003": "th004"},
	})

	evts, _ := r.ApplySnapshot(bemfa.Snapshot{
		record("ac003", bemfa.ClassAirConditioner, bemfa.DeviceMessage{On: boolPtr(true)}),
		record("th004", bemfa.ClassSensor, bemfa.DeviceMessage{Temperature: fPtr(21.5)}),
	}, true)

	byId := eventsById(evts)
	climate := byId["bemfa_ac003"][0].(domain.ClimateStateUpdateEvent)
	require.NotNil(t, climate.CurrentTemperature)
	assert.Equal(t, 21.5, *climate.CurrentTemperature)
}

func TestClimatePoweredOffReportsNoCurrentTemperature(t *testing.T) {
	r := testRegistry(config.DevicesConfig{
		ACTemperatureSensors: map[string]string{"ac003": "th004"},
	})

	evts, _ := r.ApplySnapshot(bemfa.Snapshot{
		record("ac003", bemfa.ClassAirConditioner, bemfa.DeviceMessage{On: boolPtr(false)}),
		record("th004", bemfa.ClassSensor, bemfa.DeviceMessage{Temperature: fPtr(21.5)}),
	}, true)

	climate := eventsById(evts)["bemfa_ac003"][0].(domain.ClimateStateUpdateEvent)
	assert.Equal(t, "off", climate.Mode)
	assert.Nil(t, climate.CurrentTemperature)

	// the reading comes back once the unit runs again
	evts, _ = r.ApplySnapshot(bemfa.Snapshot{
		record("ac003", bemfa.ClassAirConditioner, bemfa.DeviceMessage{On: boolPtr(true)}),
		record("th004", bemfa.ClassSensor, bemfa.DeviceMessage{Temperature: fPtr(21.5)}),
	}, true)

	climate = eventsById(evts)["bemfa_ac003"][0].(domain.ClimateStateUpdateEvent)
	require.NotNil(t, climate.CurrentTemperature)
	assert.Equal(t, 21.5, *climate.CurrentTemperature)
}
