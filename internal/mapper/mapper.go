// Package mapper translates raw Bemfa device messages into normalized
// entity state and back into "#"-token command strings. Decoders merge
// fields present in the message over previously known state: an absent
// field never resets a value (the cloud omits fields it did not change).
package mapper

import (
	"strconv"
	"strings"

	"bemfa2mqtt/pkg/bemfa"
)

// PowerState is the whole state of lights, switches and outlets.
type PowerState struct {
	On bool
}

func DecodePower(msg bemfa.DeviceMessage, prev PowerState) PowerState {
	if msg.On != nil {
		return PowerState{On: *msg.On}
	}
	return prev
}

func EncodePower(on bool) string {
	if on {
		return bemfa.CommandOn
	}
	return bemfa.CommandOff
}

func command(tokens ...string) string {
	return strings.Join(tokens, bemfa.CommandSeparator)
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
