package mqtt

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"bemfa2mqtt/internal/config"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"
	MQTT_PAYLOAD_ON      = "on"
	MQTT_PAYLOAD_OFF     = "off"

	MQTT_PAYLOAD_OPEN  = "OPEN"
	MQTT_PAYLOAD_CLOSE = "CLOSE"
	MQTT_PAYLOAD_STOP  = "STOP"

	MQTT_PAYLOAD_STATE_OPEN   = "open"
	MQTT_PAYLOAD_STATE_CLOSED = "closed"

	PLATFORM_LIGHT   = "light"
	PLATFORM_SWITCH  = "switch"
	PLATFORM_COVER   = "cover"
	PLATFORM_FAN     = "fan"
	PLATFORM_CLIMATE = "climate"
	PLATFORM_SENSOR  = "sensor"

	COMMAND_POWER        = "command"
	COMMAND_SET_POSITION = "set_position"
	COMMAND_PERCENTAGE   = "percentage"
	COMMAND_OSCILLATE    = "oscillate"
	COMMAND_MODE         = "mode/set"
	COMMAND_TEMPERATURE  = "temperature/set"
	COMMAND_FAN_MODE     = "fan_mode/set"
)

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("bemfa2mqtt_%d", rand.Intn(1000)))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.WillEnabled = true
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.BaseTopic)
	opts.WillQos = 0

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:        mqtt.NewClient(opts),
		cfg:           cfg.MQTT,
		commandRegexp: commandExtractor(cfg.MQTT.BaseTopic),
	}
}

type MQTTClient struct {
	client        mqtt.Client
	cfg           config.MQTTConfig
	commandRegexp *regexp.Regexp
}

type ParsedMQTTCommand struct {
	Platform string
	EntityId string
	Command  string
	Payload  string
}

func (c *MQTTClient) baseTopic() string {
	return c.cfg.BaseTopic
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic())
}

func (c *MQTTClient) AvailabilityTopic(entityId string) string {
	return fmt.Sprintf("%s/%s/availability", c.baseTopic(), entityId)
}

func (c *MQTTClient) StateTopic(platform, entityId string) string {
	return fmt.Sprintf("%s/%s/%s/state", c.baseTopic(), platform, entityId)
}

func (c *MQTTClient) CommandTopic(platform, entityId string) string {
	return fmt.Sprintf("%s/%s/%s/command", c.baseTopic(), platform, entityId)
}

func (c *MQTTClient) CoverPositionTopic(entityId string) string {
	return fmt.Sprintf("%s/cover/%s/position", c.baseTopic(), entityId)
}

func (c *MQTTClient) CoverSetPositionTopic(entityId string) string {
	return fmt.Sprintf("%s/cover/%s/set_position", c.baseTopic(), entityId)
}

func (c *MQTTClient) FanPercentageStateTopic(entityId string) string {
	return fmt.Sprintf("%s/fan/%s/percentage_state", c.baseTopic(), entityId)
}

func (c *MQTTClient) FanPercentageCommandTopic(entityId string) string {
	return fmt.Sprintf("%s/fan/%s/percentage", c.baseTopic(), entityId)
}

func (c *MQTTClient) FanOscillationStateTopic(entityId string) string {
	return fmt.Sprintf("%s/fan/%s/oscillation_state", c.baseTopic(), entityId)
}

func (c *MQTTClient) FanOscillationCommandTopic(entityId string) string {
	return fmt.Sprintf("%s/fan/%s/oscillate", c.baseTopic(), entityId)
}

func (c *MQTTClient) ClimateModeStateTopic(entityId string) string {
	return fmt.Sprintf("%s/climate/%s/mode", c.baseTopic(), entityId)
}

func (c *MQTTClient) ClimateModeCommandTopic(entityId string) string {
	return fmt.Sprintf("%s/climate/%s/mode/set", c.baseTopic(), entityId)
}

func (c *MQTTClient) ClimateTemperatureStateTopic(entityId string) string {
	return fmt.Sprintf("%s/climate/%s/temperature", c.baseTopic(), entityId)
}

func (c *MQTTClient) ClimateTemperatureCommandTopic(entityId string) string {
	return fmt.Sprintf("%s/climate/%s/temperature/set", c.baseTopic(), entityId)
}

func (c *MQTTClient) ClimateCurrentTemperatureTopic(entityId string) string {
	return fmt.Sprintf("%s/climate/%s/current_temperature", c.baseTopic(), entityId)
}

func (c *MQTTClient) ClimateFanModeStateTopic(entityId string) string {
	return fmt.Sprintf("%s/climate/%s/fan_mode", c.baseTopic(), entityId)
}

func (c *MQTTClient) ClimateFanModeCommandTopic(entityId string) string {
	return fmt.Sprintf("%s/climate/%s/fan_mode/set", c.baseTopic(), entityId)
}

func (c *MQTTClient) SensorStateTopic(entityId string) string {
	return fmt.Sprintf("%s/sensor/%s/state", c.baseTopic(), entityId)
}

// ParseMQTTCommand matches an inbound message against the single command
// topic grammar. Numeric commands are validated here so malformed payloads
// never reach an actor.
func (c *MQTTClient) ParseMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	matches := c.commandRegexp.FindAllStringSubmatch(msg.Topic(), 1)
	if len(matches) == 0 || len(matches[0]) != 4 {
		return nil, errors.New("invalid command")
	}
	parsed := &ParsedMQTTCommand{
		Platform: matches[0][1],
		EntityId: matches[0][2],
		Command:  matches[0][3],
		Payload:  string(msg.Payload()),
	}
	switch parsed.Command {
	case COMMAND_SET_POSITION, COMMAND_PERCENTAGE, COMMAND_TEMPERATURE:
		if _, err := strconv.ParseFloat(parsed.Payload, 64); err != nil {
			return nil, err
		}
	}
	return parsed, nil
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT publish timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) SubscribeToCommandTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.commandTopic(), 1, handler, continuation, timeout)
}

func (c *MQTTClient) Unsubscribe(topic string, continuation func(error), timeout time.Duration) {
	token := c.client.Unsubscribe(topic)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT unsubscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func (c *MQTTClient) commandTopic() string {
	return fmt.Sprintf("%s/#", c.baseTopic())
}

func commandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(
		"^%s/(light|switch|cover|fan|climate)/([a-zA-Z0-9_]+)/(command|set_position|percentage|oscillate|mode/set|temperature/set|fan_mode/set)$",
		baseTopic))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
