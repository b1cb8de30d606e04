package mapper

import (
	"bemfa2mqtt/pkg/bemfa"
)

// CoverState tracks a curtain as power plus a 0-100 position.
type CoverState struct {
	On       bool
	Position int
}

func (s CoverState) Closed() bool {
	return s.Position == 0
}

// DecodeCover infers position when the cloud omits it: an off curtain is
// fully closed, an on curtain with no usable position is fully open.
func DecodeCover(msg bemfa.DeviceMessage, prev CoverState) CoverState {
	on := prev.On
	if msg.On != nil {
		on = *msg.On
	}
	if !on {
		return CoverState{On: false, Position: 0}
	}
	position := 0
	if msg.Position != nil {
		position = *msg.Position
	}
	if position <= 0 {
		position = 100
	} else if position > 100 {
		position = 100
	}
	return CoverState{On: true, Position: position}
}

func EncodeCoverOpen() string {
	return bemfa.CommandOn
}

func EncodeCoverClose() string {
	return bemfa.CommandOff
}

func EncodeCoverStop() string {
	return bemfa.CommandPause
}

// EncodeCoverPosition produces "on#<position>". Position 0 still goes out
// as "on#0", the device itself closes fully.
func EncodeCoverPosition(position int) string {
	if position < 0 {
		position = 0
	} else if position > 100 {
		position = 100
	}
	return command(bemfa.CommandOn, itoa(position))
}

// ApplyCoverPosition is the optimistic state after a set-position command.
func ApplyCoverPosition(position int) CoverState {
	if position < 0 {
		position = 0
	} else if position > 100 {
		position = 100
	}
	return CoverState{On: position > 0, Position: position}
}
