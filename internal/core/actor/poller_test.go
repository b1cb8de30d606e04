package actor

import (
	"sync"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	adactor "bemfa2mqtt/internal/adapter/actor"
	"bemfa2mqtt/internal/core/domain"
	"bemfa2mqtt/internal/util"
	"bemfa2mqtt/internal/util/actorutil"
	"bemfa2mqtt/pkg/bemfa"
)

func boolPtr(v bool) *bool { return &v }

type eventCollector struct {
	mu     sync.Mutex
	events []domain.EntityUpdateEvent
}

func (c *eventCollector) subscribe(es *eventstream.EventStream) {
	es.Subscribe(func(value any) {
		if ev, ok := value.(domain.EntityUpdateEvent); ok {
			c.mu.Lock()
			c.events = append(c.events, ev)
			c.mu.Unlock()
		}
	})
}

func (c *eventCollector) collected() []domain.EntityUpdateEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.EntityUpdateEvent, len(c.events))
	copy(out, c.events)
	return out
}

func TestPollerActorFlow(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	api := &bemfa.TestDeviceClient{}
	api.SetDevices(bemfa.Snapshot{
		{Topic: "light001", Class: bemfa.ClassLight, Name: "Desk lamp",
			Msg: bemfa.DeviceMessage{On: boolPtr(true)}, LastUpdated: time.Now().Unix()},
	})

	bemfaProps := actor.PropsFromProducer(func() actor.Actor { return adactor.NewBemfaActor(api, logger) })
	bemfaPID := context.Spawn(bemfaProps)

	es := &eventstream.EventStream{}
	collector := &eventCollector{}
	collector.subscribe(es)

	pollerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&cfg, bemfaPID, es, logger)
	})
	pollerPID := context.Spawn(pollerProps)

	time.Sleep(1 * time.Second)

	// first poll happened on start
	res, err := context.RequestFuture(pollerPID, domain.GetSnapshotRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	snapResp, ok := res.(domain.GetSnapshotResponse)
	require.True(t, ok)
	assert.True(snapResp.LastPollOK)
	require.Len(t, snapResp.Snapshot, 1)
	assert.Equal("light001", snapResp.Snapshot[0].Topic)

	var lightOn, lightAvailable bool
	for _, ev := range collector.collected() {
		switch e := ev.(type) {
		case domain.LightStateUpdateEvent:
			if e.EntityId() == "bemfa_light001" {
				lightOn = e.On
			}
		case domain.AvailabilityUpdateEvent:
			if e.EntityId() == "bemfa_light001" {
				lightAvailable = e.Available
			}
		}
	}
	assert.True(lightOn)
	assert.True(lightAvailable)

	// command routed to the cloud
	context.Send(pollerPID, &domain.LightPowerRequest{
		EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: "light001"},
		On:                        false,
	})
	time.Sleep(500 * time.Millisecond)

	sent := api.SentCommands()
	require.Len(t, sent, 1)
	assert.Equal("light001", sent[0].Topic)
	assert.Equal("off", sent[0].Msg)

	// descriptors reflect the device set
	res, err = context.RequestFuture(pollerPID, domain.GetEntityDescriptorsRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	descResp, ok := res.(domain.GetEntityDescriptorsResponse)
	require.True(t, ok)
	assert.Equal(1, descResp.Descriptors.Count())

	// on-demand refresh
	res, err = context.RequestFuture(pollerPID, domain.RefreshRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	refreshResp, ok := res.(domain.RefreshResponse)
	require.True(t, ok)
	assert.False(refreshResp.HasResponseError())

	context.Stop(pollerPID)
	context.Stop(bemfaPID)

	as.Shutdown()
}

func TestPollerActorPollFailure(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	api := &bemfa.TestDeviceClient{}
	api.SetFailFetch(true)

	bemfaProps := actor.PropsFromProducer(func() actor.Actor { return adactor.NewBemfaActor(api, logger) })
	bemfaPID := context.Spawn(bemfaProps)

	pollerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&cfg, bemfaPID, &eventstream.EventStream{}, logger)
	})
	pollerPID := context.Spawn(pollerProps)

	time.Sleep(1 * time.Second)

	res, err := context.RequestFuture(pollerPID, domain.GetSnapshotRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	snapResp, ok := res.(domain.GetSnapshotResponse)
	require.True(t, ok)
	assert.False(snapResp.LastPollOK)
	assert.Empty(snapResp.Snapshot)

	context.Stop(pollerPID)
	context.Stop(bemfaPID)

	as.Shutdown()
}
