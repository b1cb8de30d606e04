package actor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"bemfa2mqtt/internal/config"
	"bemfa2mqtt/internal/core/domain"
	"bemfa2mqtt/internal/mqtt"
	"bemfa2mqtt/internal/util/actorutil"
)

type MQTTActor struct {
	config         *config.Config
	behavior       actor.Behavior
	stash          *actorutil.Stash
	client         *mqtt.MQTTClient
	eventStream    *eventstream.EventStream
	eventStreamSub *eventstream.Subscription
	logger         *zap.Logger

	pendingPublishes int
}

type MQTTConnected struct {
}

type MQTTSubscribed struct {
}

type MQTTConnectionLost struct {
	Error error
}

type publishResult struct {
	ReplyTo *actor.PID
	Error   error
}

type ParsedCommand struct {
	Command *mqtt.ParsedMQTTCommand
}

type rawMessage struct {
	topic   string
	message string
	retain  bool
}

func NewMQTTActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:      config,
		eventStream: eventStream,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MQTTActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("mqtt@starting started")

		// create MQTT client
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), func(_ pahomqtt.Client) {
		}, func(_ pahomqtt.Client, err error) {
			ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
		})

		// connect to MQTT server
		state.client.Connect(func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTConnected{})
			}
		}, 10*time.Second)

	case MQTTConnected:
		state.logger.Debug("mqtt@starting connected")

		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_ONLINE, 0, true, func(error) {}, 500*time.Millisecond)

		// subscribe to eventStream
		if state.eventStream != nil {
			state.eventStreamSub = state.eventStream.Subscribe(func(value any) {
				if event, ok := value.(domain.EntityUpdateEvent); ok {
					ctx.Send(ctx.Self(), domain.PublishEntityUpdateRequest{
						Event: event,
					})
				}
			})
		}

		// subscribe to MQTT command topic
		state.client.SubscribeToCommandTopic(func(c pahomqtt.Client, m pahomqtt.Message) {
			cmd, err := state.client.ParseMQTTCommand(m)
			if err == nil && cmd != nil {
				ctx.Send(ctx.Self(), ParsedCommand{Command: cmd})
			}
		}, func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTSubscribed{})
			}
		}, 1*time.Second)
	case MQTTSubscribed:
		// init completed, transition to default state
		state.logger.Debug("mqtt@starting subscribed")
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("mqtt@starting connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("mqtt@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		// respond health check request
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case ParsedCommand:
		// route command to parent
		state.logger.Debug("mqtt@default parsedCommand", zap.Any("command", msg.Command))
		ctx.Send(ctx.Parent(), msg)
	case domain.PublishMessageRequest:
		state.logger.Debug("mqtt@default PublishMessageRequest", zap.Any("message", msg))
		state.publishMessage(ctx, msg.Topic, msg.Payload, msg.Retain, actorutil.ForRequest(msg).ReplyTo(ctx))
	case domain.PublishEntityUpdateRequest:
		// receive message from event bus and publish to MQTT if needed
		state.logger.Debug("mqtt@default PublishEntityUpdateRequest", zap.String("type", fmt.Sprintf("%T", msg.Event)))
		state.publishEntityUpdate(ctx, msg.Event, msg.Retain)
	case domain.PublishDiscoveryRequest:
		state.logger.Debug("mqtt@default PublishHADiscovery")
		err := state.PublishHomeAssistantDiscovery(ctx, msg.Descriptors)
		if err != nil {
			state.logger.Error("mqtt@default PublishHADiscovery error", zap.Error(err))
		}
		actorutil.ForRequest(msg).Respond(ctx, domain.PublishDiscoveryResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		})
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("mqtt@default connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("mqtt@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// event2MQTTMessages expands one entity update into every topic it feeds.
// A climate update fans out to up to four topics.
func (state *MQTTActor) event2MQTTMessages(event any) []rawMessage {
	switch msg := event.(type) {
	case domain.LightStateUpdateEvent:
		return []rawMessage{{
			topic:   state.client.StateTopic(mqtt.PLATFORM_LIGHT, msg.Id),
			message: bool2MQTTPayload(msg.On),
			retain:  true,
		}}
	case domain.SwitchStateUpdateEvent:
		return []rawMessage{{
			topic:   state.client.StateTopic(mqtt.PLATFORM_SWITCH, msg.Id),
			message: bool2MQTTPayload(msg.On),
			retain:  true,
		}}
	case domain.CoverStateUpdateEvent:
		stateMessage := mqtt.MQTT_PAYLOAD_STATE_OPEN
		if msg.Closed {
			stateMessage = mqtt.MQTT_PAYLOAD_STATE_CLOSED
		}
		return []rawMessage{{
			topic:   state.client.StateTopic(mqtt.PLATFORM_COVER, msg.Id),
			message: stateMessage,
			retain:  true,
		}, {
			topic:   state.client.CoverPositionTopic(msg.Id),
			message: strconv.Itoa(msg.Position),
			retain:  true,
		}}
	case domain.FanStateUpdateEvent:
		return []rawMessage{{
			topic:   state.client.StateTopic(mqtt.PLATFORM_FAN, msg.Id),
			message: bool2MQTTPayload(msg.On),
			retain:  true,
		}, {
			topic:   state.client.FanPercentageStateTopic(msg.Id),
			message: strconv.Itoa(msg.Percentage),
			retain:  true,
		}, {
			topic:   state.client.FanOscillationStateTopic(msg.Id),
			message: bool2MQTTPayload(msg.Oscillating),
			retain:  true,
		}}
	case domain.ClimateStateUpdateEvent:
		messages := []rawMessage{{
			topic:   state.client.ClimateModeStateTopic(msg.Id),
			message: msg.Mode,
			retain:  true,
		}, {
			topic:   state.client.ClimateTemperatureStateTopic(msg.Id),
			message: fmt.Sprintf("%.1f", msg.TargetTemperature),
			retain:  true,
		}, {
			topic:   state.client.ClimateFanModeStateTopic(msg.Id),
			message: msg.FanMode,
			retain:  true,
		}}
		// an empty payload clears the retained reading while the unit is off
		currentTemperature := ""
		if msg.CurrentTemperature != nil {
			currentTemperature = fmt.Sprintf("%.1f", *msg.CurrentTemperature)
		}
		messages = append(messages, rawMessage{
			topic:   state.client.ClimateCurrentTemperatureTopic(msg.Id),
			message: currentTemperature,
			retain:  true,
		})
		return messages
	case domain.FloatSensorUpdateEvent:
		return []rawMessage{{
			topic:   state.client.SensorStateTopic(msg.Id),
			message: fmt.Sprintf(fmt.Sprintf("%%.%df", msg.Decimals), msg.Value),
		}}
	case domain.AvailabilityUpdateEvent:
		message := mqtt.MQTT_PAYLOAD_OFFLINE
		if msg.Available {
			message = mqtt.MQTT_PAYLOAD_ONLINE
		}
		return []rawMessage{{
			topic:   state.client.AvailabilityTopic(msg.Id),
			message: message,
			retain:  true,
		}}
	case domain.BridgeStateUpdateEvent:
		var stringMessage string
		if msg.Value {
			stringMessage = mqtt.MQTT_PAYLOAD_ONLINE
		} else {
			stringMessage = mqtt.MQTT_PAYLOAD_OFFLINE
		}
		return []rawMessage{{
			topic:   state.client.BridgeStateTopic(),
			message: stringMessage,
			retain:  true,
		}}
	default:
		return nil
	}
}

func (state *MQTTActor) publishEntityUpdate(ctx actor.Context, event domain.EntityUpdateEvent, retain bool) {
	messages := state.event2MQTTMessages(event)
	if len(messages) == 0 {
		return
	}
	state.pendingPublishes = len(messages)
	for _, msg := range messages {
		state.logger.Sugar().Debugf("mqtt@publish: entity publish %s => %s", msg.topic, msg.message)
		state.client.Publish(msg.topic, msg.message, 1, msg.retain || retain, func(err error) {
			ctx.Send(ctx.Self(), publishResult{Error: err})
		}, 5*time.Second)
	}
	state.behavior.BecomeStacked(state.EventPublishResultReceive)
}

func (state *MQTTActor) publishMessage(ctx actor.Context, topic, payload string, retain bool, replyTo *actor.PID) {
	state.logger.Sugar().Debugf("mqtt@publish: message publish %s => %s", topic, payload)
	state.client.Publish(topic, payload, 1, retain, func(err error) {
		ctx.Send(ctx.Self(), publishResult{ReplyTo: replyTo, Error: err})
	}, 5*time.Second)
	state.behavior.BecomeStacked(state.MessagePublishResultReceive)
}

func (state *MQTTActor) MessagePublishResultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case publishResult:
		// log error and return to default state
		if msg.Error != nil {
			state.logger.Error("mqtt@publishing could not publish a message", zap.Error(msg.Error))
		}
		if msg.ReplyTo != nil {
			ctx.Send(msg.ReplyTo, domain.PublishMessageResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: msg.Error,
				},
			})
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashOldest(ctx)
	default:
		state.logger.Debug("mqtt@publishing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) EventPublishResultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case publishResult:
		// log error, wait for the rest of the batch
		if msg.Error != nil {
			state.logger.Error("mqtt@publishing could not publish a message", zap.Error(msg.Error))
		}
		state.pendingPublishes--
		if state.pendingPublishes <= 0 {
			state.behavior.UnbecomeStacked()
			state.stash.UnstashOldest(ctx)
		}
	default:
		state.logger.Debug("mqtt@publishing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) PublishHomeAssistantDiscovery(ctx actor.Context, descriptors domain.EntityDescriptors) error {
	publish := func(topic string, message any) error {
		payload, err := json.Marshal(message)
		if err != nil {
			return err
		}
		state.client.Publish(topic, payload, 0, true, func(error) {}, 1*time.Second)
		return nil
	}
	for i := range descriptors.Lights {
		light := descriptors.Lights[i]
		topic := mqtt.HADiscoveryEntityTopic(mqtt.PLATFORM_LIGHT, light.Device, light.Id)
		if err := publish(topic, mqtt.GenericLightToHADiscoveryMessage(state.client, light)); err != nil {
			return err
		}
	}
	for i := range descriptors.Switches {
		_switch := descriptors.Switches[i]
		topic := mqtt.HADiscoveryEntityTopic(mqtt.PLATFORM_SWITCH, _switch.Device, _switch.Id)
		if err := publish(topic, mqtt.GenericSwitchToHADiscoveryMessage(state.client, _switch)); err != nil {
			return err
		}
	}
	for i := range descriptors.Covers {
		cover := descriptors.Covers[i]
		topic := mqtt.HADiscoveryEntityTopic(mqtt.PLATFORM_COVER, cover.Device, cover.Id)
		if err := publish(topic, mqtt.GenericCoverToHADiscoveryMessage(state.client, cover)); err != nil {
			return err
		}
	}
	for i := range descriptors.Fans {
		fan := descriptors.Fans[i]
		topic := mqtt.HADiscoveryEntityTopic(mqtt.PLATFORM_FAN, fan.Device, fan.Id)
		if err := publish(topic, mqtt.GenericFanToHADiscoveryMessage(state.client, fan)); err != nil {
			return err
		}
	}
	for i := range descriptors.Climates {
		climate := descriptors.Climates[i]
		topic := mqtt.HADiscoveryEntityTopic(mqtt.PLATFORM_CLIMATE, climate.Device, climate.Id)
		if err := publish(topic, mqtt.GenericClimateToHADiscoveryMessage(state.client, climate)); err != nil {
			return err
		}
	}
	for i := range descriptors.Sensors {
		sensor := descriptors.Sensors[i]
		topic := mqtt.HADiscoverySensorTopic(sensor)
		if err := publish(topic, mqtt.GenericSensorToHADiscoveryMessage(state.client, sensor)); err != nil {
			return err
		}
	}
	return nil
}

func (state *MQTTActor) stop() {
	state.logger.Debug("mqtt: disconnect")
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
	if state.client != nil {
		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_OFFLINE, 0, true, func(error) {}, 500*time.Millisecond)
		state.client.Disconnect(500 * time.Millisecond)
	}
}

func bool2MQTTPayload(value bool) string {
	if value {
		return mqtt.MQTT_PAYLOAD_ON
	} else {
		return mqtt.MQTT_PAYLOAD_OFF
	}
}

// Dummy actor
func NewTestMQTTActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:      config,
		eventStream: eventStream,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.DummyReceive)
	return act
}

func (state *MQTTActor) DummyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil, nil)
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		// respond health check request
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case domain.PublishEntityUpdateRequest:
		if msg.ReplyToRef != nil {
			ctx.Respond(domain.PublishEntityUpdateResponse{})
		}
	case domain.PublishMessageRequest:
		if msg.ReplyToRef != nil {
			ctx.Respond(domain.PublishMessageResponse{})
		}
	case domain.PublishDiscoveryRequest:
		if msg.ReplyToRef != nil {
			ctx.Respond(domain.PublishDiscoveryResponse{})
		}
	}
}
