package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"

	"bemfa2mqtt/internal/config"
	"bemfa2mqtt/internal/core/domain"
	"bemfa2mqtt/internal/util/actorutil"
)

// HADiscoveryActor announces every entity to Home Assistant once the poller
// and MQTT actors are healthy, and re-announces whenever the device set
// changes between polls.
type HADiscoveryActor struct {
	actorutil.ActorWithStates
	config             *config.Config
	stash              *actorutil.Stash
	pollerActor        *actor.PID
	mqttActor          *actor.PID
	pollerActorHealthy bool
	mqttActorHealthy   bool
	healthyRecv        int

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, pollerActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:      config,
		pollerActor: pollerActor,
		mqttActor:   mqttActor,
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
		ActorWithStates: actorutil.ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(HADStartingState{
		actor: act,
	})
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

func (state *HADiscoveryActor) requestDescriptors(ctx actor.Context) {
	actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.pollerActor, domain.GetEntityDescriptorsRequest{}, 2*time.Second), func(err error) any {
		return domain.GetEntityDescriptorsResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
}

// Starting state

type HADStartingState struct {
	actorutil.ActorState
	actor *HADiscoveryActor
}

func (state HADStartingState) Name() string {
	return "starting"
}

func (state HADStartingState) Receive(ctx actor.Context) {
	act := state.actor
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		act.logger.Debug("hadiscovery@starting started")

		// Check Poller and MQTT actor healthy
		act.healthyRecv = 0
		act.pollerActorHealthy = false
		act.mqttActorHealthy = false
		// Poller Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(act.pollerActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_POLLER,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(act.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		act.Become(HADWaitingHealthyState{actor: act})
	case *actor.Restarting:
	default:
		act.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		act.stash.Stash(ctx, msg)
	}
}

// Waiting healthy state

type HADWaitingHealthyState struct {
	actorutil.ActorState
	actor *HADiscoveryActor
}

func (state HADWaitingHealthyState) Name() string {
	return "waitingHealthy"
}

func (state HADWaitingHealthyState) Receive(ctx actor.Context) {
	act := state.actor
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		act.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		act.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_POLLER:
				act.pollerActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				act.mqttActorHealthy = true
			}
		}
		if act.healthyRecv == 2 {

			if act.pollerActorHealthy && act.mqttActorHealthy {
				act.requestDescriptors(ctx)
				act.Become(HADWaitingInfoState{actor: act})
				act.stash.UnstashAll(ctx)
			} else {
				panic(errors.New("MQTT Actor or Poller Actor are not healthy"))
			}
		}
	default:
		act.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		act.stash.Stash(ctx, msg)
	}
}

// Waiting info state

type HADWaitingInfoState struct {
	actorutil.ActorState
	actor *HADiscoveryActor
}

func (state HADWaitingInfoState) Name() string {
	return "waitingInfo"
}

func (state HADWaitingInfoState) Receive(ctx actor.Context) {
	act := state.actor
	switch msg := ctx.Message().(type) {
	case domain.GetEntityDescriptorsResponse:
		if msg.HasResponseError() {
			panic(msg.GetResponseError())
		}
		act.logger.Debug("hadiscovery@info: GetEntityDescriptorsResponse",
			zap.Int("entities", msg.Descriptors.Count()))

		ctx.Send(act.mqttActor, domain.PublishDiscoveryRequest{
			Descriptors: msg.Descriptors,
		})
		act.Become(HADDoneState{actor: act})
		act.stash.UnstashAll(ctx)
	case domain.EntitySetChangedEvent:
		// already waiting for fresh descriptors
	default:
		act.logger.Debug("hadiscovery@info: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Done state

type HADDoneState struct {
	actorutil.ActorState
	actor *HADiscoveryActor
}

func (state HADDoneState) Name() string {
	return "done"
}

func (state HADDoneState) Receive(ctx actor.Context) {
	act := state.actor
	switch msg := ctx.Message().(type) {
	case domain.EntitySetChangedEvent:
		act.logger.Debug("hadiscovery@done EntitySetChangedEvent")
		act.requestDescriptors(ctx)
		act.Become(HADWaitingInfoState{actor: act})
	default:
		act.logger.Debug("hadiscovery@done: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}
