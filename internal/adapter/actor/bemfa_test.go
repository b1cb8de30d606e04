package actor

import (
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bemfa2mqtt/internal/core/domain"
	"bemfa2mqtt/internal/util/actorutil"
	"bemfa2mqtt/pkg/bemfa"
)

func boolPtr(v bool) *bool { return &v }

func TestBemfaActorFetchDevices(t *testing.T) {

	assert := assert.New(t)

	api := &bemfa.TestDeviceClient{}
	api.SetDevices(bemfa.Snapshot{
		{Topic: "light001", Class: bemfa.ClassLight, Name: "Desk lamp", Msg: bemfa.DeviceMessage{On: boolPtr(true)}},
	})

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewBemfaActor(api, logger) })
	pid := context.Spawn(props)

	result, err := context.RequestFuture(pid, domain.FetchDevicesRequest{}, 15*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.FetchDevicesResponse)

	assert.False(resp.HasResponseError())
	assert.Len(resp.Snapshot, 1)
	assert.Equal("light001", resp.Snapshot[0].Topic)

	context.Stop(pid)

	as.Shutdown()
}

func TestBemfaActorFetchDevicesError(t *testing.T) {

	api := &bemfa.TestDeviceClient{}
	api.SetFailFetch(true)

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewBemfaActor(api, logger) })
	pid := context.Spawn(props)

	result, err := context.RequestFuture(pid, domain.FetchDevicesRequest{}, 15*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.FetchDevicesResponse)

	assert.True(t, resp.HasResponseError())

	context.Stop(pid)

	as.Shutdown()
}

func TestBemfaActorSendCommand(t *testing.T) {

	assert := assert.New(t)

	api := &bemfa.TestDeviceClient{}

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewBemfaActor(api, logger) })
	pid := context.Spawn(props)

	result, err := context.RequestFuture(pid, domain.SendDeviceCommandRequest{
		Topic:   "fan002",
		Message: "on#2#1",
	}, 15*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.SendDeviceCommandResponse)

	assert.True(resp.Delivered)
	sent := api.SentCommands()
	require.Len(t, sent, 1)
	assert.Equal("fan002", sent[0].Topic)
	assert.Equal("on#2#1", sent[0].Msg)

	// delivery failure is reported, not an error
	api.FailSend = true
	result, err = context.RequestFuture(pid, domain.SendDeviceCommandRequest{
		Topic:   "fan002",
		Message: "off",
	}, 15*time.Second).Result()
	require.NoError(t, err)
	resp = result.(domain.SendDeviceCommandResponse)
	assert.False(resp.Delivered)
	assert.False(resp.HasResponseError())

	context.Stop(pid)

	as.Shutdown()
}

func TestBemfaActorHealth(t *testing.T) {

	api := &bemfa.TestDeviceClient{}

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewBemfaActor(api, logger) })
	pid := context.Spawn(props)

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.ActorHealthResponse)
	assert.True(t, resp.Healthy)
	assert.Equal(t, domain.ACTOR_ID_BEMFA, resp.Id)

	context.Stop(pid)

	as.Shutdown()
}
