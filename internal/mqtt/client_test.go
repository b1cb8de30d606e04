package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandParse(t *testing.T) {

	assert := assert.New(t)

	r := commandExtractor("loremTopic")

	matches := r.FindAllStringSubmatch("loremTopic/light/bemfa_light001/command", 1)
	assert.Equal(matches[0][1], "light", "platform extract")
	assert.Equal(matches[0][2], "bemfa_light001", "entity extract")
	assert.Equal(matches[0][3], "command", "command extract")

	matches = r.FindAllStringSubmatch("loremTopic/cover/bemfa_curtain005/set_position", 1)
	assert.Equal(matches[0][3], "set_position", "command extract")

	matches = r.FindAllStringSubmatch("loremTopic/climate/bemfa_ac003/mode/set", 1)
	assert.Equal(matches[0][1], "climate", "platform extract")
	assert.Equal(matches[0][3], "mode/set", "command extract")

	matches = r.FindAllStringSubmatch("loremTopic/fan/bemfa_fan002/percentage", 1)
	assert.Equal(matches[0][3], "percentage", "command extract")
}

func TestCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	r := commandExtractor("loremTopic")

	// state topics are not commands
	matches := r.FindAllStringSubmatch("loremTopic/light/bemfa_light001/state", 1)
	assert.Equal(len(matches), 0, "no matches")

	matches = r.FindAllStringSubmatch("loremTopic/bemfa_light001/availability", 1)
	assert.Equal(len(matches), 0, "no matches")

	matches = r.FindAllStringSubmatch("otherTopic/light/bemfa_light001/command", 1)
	assert.Equal(len(matches), 0, "no matches")

	matches = r.FindAllStringSubmatch("loremTopic/sensor/bemfa_th004/command", 1)
	assert.Equal(len(matches), 0, "no matches")
}

func TestBridgeStateTopic(t *testing.T) {
	assert.Equal(t, "loremTopic/bridge/state", bridgeStateTopic("loremTopic"))
}
