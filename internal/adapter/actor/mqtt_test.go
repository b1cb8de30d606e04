package actor

import (
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bemfa2mqtt/internal/core/domain"
	"bemfa2mqtt/internal/mqtt"
	"bemfa2mqtt/internal/util"
	"bemfa2mqtt/internal/util/actorutil"
)

func TestMQTTActorHealth(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, &eventstream.EventStream{}, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, resp.Healthy)

	context.Stop(pid)

	as.Shutdown()
}

func testMQTTActorState() *MQTTActor {
	cfg := util.LoadTestConfig()
	logger := zap.NewNop()
	return &MQTTActor{
		config: &cfg,
		client: mqtt.CreateMQTTClient(&cfg, mqtt.OptsFromConfig(&cfg), nil, nil),
		logger: logger,
	}
}

func TestEvent2MQTTMessages(t *testing.T) {

	assert := assert.New(t)

	state := testMQTTActorState()

	msgs := state.event2MQTTMessages(domain.LightStateUpdateEvent{
		EntityUpdateEventMixIn: domain.EntityUpdateEventMixIn{Id: "bemfa_light001"},
		On:                     true,
	})
	require.Len(t, msgs, 1)
	assert.Equal("bemfa2mqtt/light/bemfa_light001/state", msgs[0].topic)
	assert.Equal("on", msgs[0].message)
	assert.True(msgs[0].retain)

	msgs = state.event2MQTTMessages(domain.CoverStateUpdateEvent{
		EntityUpdateEventMixIn: domain.EntityUpdateEventMixIn{Id: "bemfa_curtain005"},
		Position:               40,
	})
	require.Len(t, msgs, 2)
	assert.Equal("bemfa2mqtt/cover/bemfa_curtain005/state", msgs[0].topic)
	assert.Equal("open", msgs[0].message)
	assert.Equal("bemfa2mqtt/cover/bemfa_curtain005/position", msgs[1].topic)
	assert.Equal("40", msgs[1].message)

	msgs = state.event2MQTTMessages(domain.FanStateUpdateEvent{
		EntityUpdateEventMixIn: domain.EntityUpdateEventMixIn{Id: "bemfa_fan002"},
		On:                     true,
		Percentage:             60,
		Oscillating:            true,
	})
	require.Len(t, msgs, 3)
	assert.Equal("bemfa2mqtt/fan/bemfa_fan002/percentage_state", msgs[1].topic)
	assert.Equal("60", msgs[1].message)
	assert.Equal("bemfa2mqtt/fan/bemfa_fan002/oscillation_state", msgs[2].topic)
	assert.Equal("on", msgs[2].message)

	current := 21.5
	msgs = state.event2MQTTMessages(domain.ClimateStateUpdateEvent{
		EntityUpdateEventMixIn: domain.EntityUpdateEventMixIn{Id: "bemfa_ac003"},
		Mode:                   "cool",
		TargetTemperature:      26,
		CurrentTemperature:     &current,
		FanMode:                "low",
	})
	require.Len(t, msgs, 4)
	assert.Equal("bemfa2mqtt/climate/bemfa_ac003/mode", msgs[0].topic)
	assert.Equal("cool", msgs[0].message)
	assert.Equal("26.0", msgs[1].message)
	assert.Equal("low", msgs[2].message)
	assert.Equal("bemfa2mqtt/climate/bemfa_ac003/current_temperature", msgs[3].topic)
	assert.Equal("21.5", msgs[3].message)

	// powered off: the retained current temperature reading is cleared
	msgs = state.event2MQTTMessages(domain.ClimateStateUpdateEvent{
		EntityUpdateEventMixIn: domain.EntityUpdateEventMixIn{Id: "bemfa_ac003"},
		Mode:                   "off",
		TargetTemperature:      26,
		FanMode:                "low",
	})
	require.Len(t, msgs, 4)
	assert.Equal("bemfa2mqtt/climate/bemfa_ac003/current_temperature", msgs[3].topic)
	assert.Equal("", msgs[3].message)

	msgs = state.event2MQTTMessages(domain.FloatSensorUpdateEvent{
		EntityUpdateEventMixIn: domain.EntityUpdateEventMixIn{Id: "bemfa_th004_t"},
		Value:                  21.52,
		Decimals:               1,
	})
	require.Len(t, msgs, 1)
	assert.Equal("bemfa2mqtt/sensor/bemfa_th004_t/state", msgs[0].topic)
	assert.Equal("21.5", msgs[0].message)

	msgs = state.event2MQTTMessages(domain.AvailabilityUpdateEvent{
		EntityUpdateEventMixIn: domain.EntityUpdateEventMixIn{Id: "bemfa_light001"},
		Available:              false,
	})
	require.Len(t, msgs, 1)
	assert.Equal("bemfa2mqtt/bemfa_light001/availability", msgs[0].topic)
	assert.Equal("offline", msgs[0].message)

	msgs = state.event2MQTTMessages(domain.BridgeStateUpdateEvent{Value: true})
	require.Len(t, msgs, 1)
	assert.Equal("bemfa2mqtt/bridge/state", msgs[0].topic)
	assert.Equal("online", msgs[0].message)
}
