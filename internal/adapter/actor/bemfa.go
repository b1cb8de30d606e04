package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"

	"bemfa2mqtt/internal/core/domain"
	"bemfa2mqtt/internal/core/port"
	"bemfa2mqtt/internal/util/actorutil"
)

const BEMFA_REQUEST_TIMEOUT = 10 * time.Second

// BemfaActor owns all traffic to the Bemfa cloud. Requests run as
// background tasks while the actor sits in a waiting state, so polls and
// commands are serialized and never overlap.
type BemfaActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	api      port.DeviceAPI
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewBemfaActor(api port.DeviceAPI, logger *zap.Logger) *BemfaActor {
	act := &BemfaActor{
		api:      api,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_BEMFA, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *BemfaActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *BemfaActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("bemfa@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_BEMFA,
			Healthy: true,
			State:   "idle",
		})
	case domain.FetchDevicesRequest:
		state.logger.Debug("bemfa@default: FetchDevicesRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.fetchDevices),
			mapTaskResult[domain.FetchDevicesResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.FetchDevicesResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(BEMFA_REQUEST_TIMEOUT).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingCloud)
	case domain.SendDeviceCommandRequest:
		state.logger.Debug("bemfa@default: SendDeviceCommandRequest",
			zap.String("topic", msg.Topic), zap.String("message", msg.Message))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.SendDeviceCommandResponse {
			a := state.sendCommand(msg.Topic, msg.Message)
			return &a
		}),
			mapTaskResult[domain.SendDeviceCommandResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SendDeviceCommandResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
					Topic:   msg.Topic,
					Message: msg.Message,
				},
				replyTo: sender,
			}
		}).WithTimeout(BEMFA_REQUEST_TIMEOUT).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingCloud)
	default:
		state.logger.Debug("bemfa@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *BemfaActor) WaitingCloud(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("bemfa@waitingCloud backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("bemfa@waitingCloud stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *BemfaActor) fetchDevices() (*domain.FetchDevicesResponse, error) {
	reqCtx, cancel := context.WithTimeout(context.Background(), BEMFA_REQUEST_TIMEOUT)
	defer cancel()

	snapshot, err := a.api.FetchDevices(reqCtx)
	if err != nil {
		a.logger.Error("device list fetch failed", zap.Error(err))
		return nil, err
	}
	return &domain.FetchDevicesResponse{
		Snapshot: snapshot,
	}, nil
}

func (a *BemfaActor) sendCommand(topic, message string) domain.SendDeviceCommandResponse {
	reqCtx, cancel := context.WithTimeout(context.Background(), BEMFA_REQUEST_TIMEOUT)
	defer cancel()

	delivered := a.api.SendCommand(reqCtx, topic, message)
	if !delivered {
		a.logger.Warn("command delivery failed",
			zap.String("topic", topic), zap.String("message", message))
	}
	return domain.SendDeviceCommandResponse{
		Topic:     topic,
		Message:   message,
		Delivered: delivered,
	}
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
