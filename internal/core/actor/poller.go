package actor

import (
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"

	"bemfa2mqtt/internal/config"
	"bemfa2mqtt/internal/core/domain"
	"bemfa2mqtt/internal/core/service"
	. "bemfa2mqtt/internal/util/actorutil"
	"bemfa2mqtt/pkg/bemfa"
)

// PollerActor drives the poll loop. Each tick asks the cloud actor for the
// device list, feeds the snapshot into the entity registry and publishes the
// resulting update events. It is also the single writer of entity state, so
// commands are routed here and applied between polls.
type PollerActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	bemfaActor  *actor.PID
	config      *config.Config
	eventStream *eventstream.EventStream
	registry    *service.EntityRegistry
	snapshot    bemfa.Snapshot
	lastPollOK  bool
	refreshers  []*actor.PID

	logger *zap.Logger
}

type pollTick struct {
}

func NewPollerActor(config *config.Config, bemfaActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *PollerActor {
	act := &PollerActor{
		config:      config,
		bemfaActor:  bemfaActor,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		logger:      ActorLogger(domain.ACTOR_ID_POLLER, logger),
		eventStream: eventStream,
		registry:    service.NewEntityRegistry(config.Devices, config.MQTT.BaseTopic, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *PollerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *PollerActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("poller@starting started")

		state.scheduler = scheduler.NewTimerScheduler(ctx)

		state.behavior.Become(state.DefaultReceive)
		ctx.Send(ctx.Self(), pollTick{})
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("poller@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("poller@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_POLLER,
			Healthy: true,
			State:   pollState(state.lastPollOK),
		})
	case pollTick:
		state.logger.Debug("poller@default tick")
		state.requestFetch(ctx)
		// schedule next tick
		state.scheduler.RequestOnce(time.Duration(state.config.Bemfa.ScanIntervalSeconds)*time.Second, ctx.Self(), pollTick{})
		state.behavior.BecomeStacked(state.WaitingPollReceive)
	case domain.RefreshRequest:
		state.logger.Debug("poller@default RefreshRequest")
		if sender := ForRequest(msg).ReplyTo(ctx); sender != nil {
			state.refreshers = append(state.refreshers, sender)
		}
		state.requestFetch(ctx)
		state.behavior.BecomeStacked(state.WaitingPollReceive)
	case domain.GetSnapshotRequest:
		state.logger.Debug("poller@default GetSnapshotRequest")
		ctx.Send(ForRequest(msg).ReplyTo(ctx), domain.GetSnapshotResponse{
			Snapshot:   state.snapshot,
			LastPollOK: state.lastPollOK,
		})
	case domain.GetEntityDescriptorsRequest:
		state.logger.Debug("poller@default GetEntityDescriptorsRequest")
		ctx.Send(ForRequest(msg).ReplyTo(ctx), domain.GetEntityDescriptorsResponse{
			Descriptors: state.registry.Descriptors(),
		})
	case domain.SendDeviceCommandResponse:
		if !msg.Delivered {
			state.logger.Warn("poller@default command not delivered",
				zap.String("topic", msg.Topic), zap.String("message", msg.Message))
		}
	case domain.EntityCommandRequest:
		state.logger.Debug("poller@default command", zap.String("type", fmt.Sprintf("%T", msg)),
			zap.String("topic", msg.EntityTopic()))
		state.handleCommand(ctx, msg)
	default:
		state.logger.Debug("poller@default: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) WaitingPollReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.FetchDevicesResponse:
		if msg.HasResponseError() {
			state.logger.Error("poller@waiting FetchDevicesResponse error", zap.Error(msg.GetResponseError()))
			state.lastPollOK = false
			evs, _ := state.registry.ApplySnapshot(nil, false)
			for _, ev := range evs {
				state.eventStream.Publish(ev)
			}
		} else {
			state.logger.Debug("poller@waiting FetchDevicesResponse", zap.Int("devices", len(msg.Snapshot)))
			state.lastPollOK = true
			state.snapshot = msg.Snapshot
			evs, changed := state.registry.ApplySnapshot(msg.Snapshot, true)
			for _, ev := range evs {
				state.eventStream.Publish(ev)
			}
			if changed && ctx.Parent() != nil {
				ctx.Send(ctx.Parent(), domain.EntitySetChangedEvent{})
			}
		}
		state.answerRefreshers(ctx, msg.GetResponseError())
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("poller@waiting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) requestFetch(ctx actor.Context) {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.bemfaActor, domain.FetchDevicesRequest{}, 15*time.Second), func(err error) any {
		return domain.FetchDevicesResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
}

func (state *PollerActor) handleCommand(ctx actor.Context, cmd domain.EntityCommandRequest) {
	outcome, err := state.registry.ApplyCommand(cmd)
	if err != nil {
		state.logger.Warn("poller@default command rejected", zap.Error(err))
		if sender := ForRequest(cmd).ReplyTo(ctx); sender != nil {
			ctx.Send(sender, domain.EntityCommandResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			})
		}
		return
	}
	for _, ev := range outcome.Events {
		state.eventStream.Publish(ev)
	}
	if outcome.Message != "" {
		ctx.Request(state.bemfaActor, domain.SendDeviceCommandRequest{
			Topic:   outcome.Topic,
			Message: outcome.Message,
		})
	}
	if sender := ForRequest(cmd).ReplyTo(ctx); sender != nil {
		ctx.Send(sender, domain.EntityCommandResponse{Delivered: outcome.Message != ""})
	}
}

func (state *PollerActor) answerRefreshers(ctx actor.Context, err error) {
	for _, pid := range state.refreshers {
		ctx.Send(pid, domain.RefreshResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		})
	}
	state.refreshers = nil
}

func pollState(ok bool) string {
	if ok {
		return "polling"
	}
	return "degraded"
}
