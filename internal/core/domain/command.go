package domain

import "fmt"

// EntityCommandRequest

// EntityCommandRequest is a command addressed to one Bemfa device,
// identified by its cloud topic.
type EntityCommandRequest interface {
	ActorRequest
	EntityCommand() string
	EntityTopic() string
}

type EntityCommandRequestMixIn struct {
	ActorRequestMixIn
	Topic string
}

func (r EntityCommandRequestMixIn) EntityCommand() string {
	return fmt.Sprintf("%T", r)
}

func (r EntityCommandRequestMixIn) EntityTopic() string {
	return r.Topic
}

type EntityCommandResponse struct {
	ActorResponseMixIn
	Delivered bool
}

// Light / switch / outlet commands

type LightPowerRequest struct {
	EntityCommandRequestMixIn
	On bool
}

type SwitchPowerRequest struct {
	EntityCommandRequestMixIn
	On bool
}

// Cover commands

type CoverOpenRequest struct {
	EntityCommandRequestMixIn
}

type CoverCloseRequest struct {
	EntityCommandRequestMixIn
}

type CoverStopRequest struct {
	EntityCommandRequestMixIn
}

type CoverSetPositionRequest struct {
	EntityCommandRequestMixIn
	Position int
}

// Fan commands

type FanPowerRequest struct {
	EntityCommandRequestMixIn
	On bool
}

type FanSetPercentageRequest struct {
	EntityCommandRequestMixIn
	Percentage int
}

type FanOscillateRequest struct {
	EntityCommandRequestMixIn
	Oscillating bool
}

// Climate commands

type ClimateSetModeRequest struct {
	EntityCommandRequestMixIn
	Mode string
}

type ClimateSetTemperatureRequest struct {
	EntityCommandRequestMixIn
	Temperature float64
}

type ClimateSetFanModeRequest struct {
	EntityCommandRequestMixIn
	FanMode string
}

// ensure interface compliance
var _ EntityCommandRequest = (*LightPowerRequest)(nil)
var _ EntityCommandRequest = (*CoverSetPositionRequest)(nil)
var _ EntityCommandRequest = (*ClimateSetModeRequest)(nil)
