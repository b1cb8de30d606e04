package actorutil

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"

	"bemfa2mqtt/internal/core/domain"
	"bemfa2mqtt/internal/core/events"
	"bemfa2mqtt/internal/mqtt"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand translates an MQTT command into the domain
// request for the addressed device. The AC companion power switch shares
// the switch platform, its suffix resolves back to the device topic.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (domain.EntityCommandRequest, error) {
	topic := events.TopicFromEntityId(cmd.EntityId)

	switch cmd.Platform {
	case mqtt.PLATFORM_LIGHT:
		return &domain.LightPowerRequest{
			EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: topic},
			On:                        cmd.Payload == mqtt.MQTT_PAYLOAD_ON,
		}, nil

	case mqtt.PLATFORM_SWITCH:
		topic = strings.TrimSuffix(topic, events.ENTITY_SUFFIX_POWER)
		return &domain.SwitchPowerRequest{
			EntityCommandRequestMixIn: domain.EntityCommandRequestMixIn{Topic: topic},
			On:                        cmd.Payload == mqtt.MQTT_PAYLOAD_ON,
		}, nil

	case mqtt.PLATFORM_COVER:
		mixin := domain.EntityCommandRequestMixIn{Topic: topic}
		switch cmd.Command {
		case mqtt.COMMAND_POWER:
			switch cmd.Payload {
			case mqtt.MQTT_PAYLOAD_OPEN:
				return &domain.CoverOpenRequest{EntityCommandRequestMixIn: mixin}, nil
			case mqtt.MQTT_PAYLOAD_CLOSE:
				return &domain.CoverCloseRequest{EntityCommandRequestMixIn: mixin}, nil
			case mqtt.MQTT_PAYLOAD_STOP:
				return &domain.CoverStopRequest{EntityCommandRequestMixIn: mixin}, nil
			}
			return nil, fmt.Errorf("unsupported cover payload %q", cmd.Payload)
		case mqtt.COMMAND_SET_POSITION:
			position, err := strconv.Atoi(cmd.Payload)
			if err != nil {
				return nil, err
			}
			return &domain.CoverSetPositionRequest{
				EntityCommandRequestMixIn: mixin,
				Position:                  position,
			}, nil
		}

	case mqtt.PLATFORM_FAN:
		mixin := domain.EntityCommandRequestMixIn{Topic: topic}
		switch cmd.Command {
		case mqtt.COMMAND_POWER:
			return &domain.FanPowerRequest{
				EntityCommandRequestMixIn: mixin,
				On:                        cmd.Payload == mqtt.MQTT_PAYLOAD_ON,
			}, nil
		case mqtt.COMMAND_PERCENTAGE:
			percentage, err := strconv.Atoi(cmd.Payload)
			if err != nil {
				return nil, err
			}
			return &domain.FanSetPercentageRequest{
				EntityCommandRequestMixIn: mixin,
				Percentage:                percentage,
			}, nil
		case mqtt.COMMAND_OSCILLATE:
			return &domain.FanOscillateRequest{
				EntityCommandRequestMixIn: mixin,
				Oscillating:               cmd.Payload == mqtt.MQTT_PAYLOAD_ON,
			}, nil
		}

	case mqtt.PLATFORM_CLIMATE:
		mixin := domain.EntityCommandRequestMixIn{Topic: topic}
		switch cmd.Command {
		case mqtt.COMMAND_MODE:
			return &domain.ClimateSetModeRequest{
				EntityCommandRequestMixIn: mixin,
				Mode:                      cmd.Payload,
			}, nil
		case mqtt.COMMAND_TEMPERATURE:
			temperature, err := strconv.ParseFloat(cmd.Payload, 64)
			if err != nil {
				return nil, err
			}
			return &domain.ClimateSetTemperatureRequest{
				EntityCommandRequestMixIn: mixin,
				Temperature:               temperature,
			}, nil
		case mqtt.COMMAND_FAN_MODE:
			return &domain.ClimateSetFanModeRequest{
				EntityCommandRequestMixIn: mixin,
				FanMode:                   cmd.Payload,
			}, nil
		}
	}
	return nil, fmt.Errorf("unsupported command %s/%s", cmd.Platform, cmd.Command)
}
