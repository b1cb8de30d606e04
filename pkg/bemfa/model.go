package bemfa

// Device classes as reported by the cloud API in the "id" field.
const (
	ClassLight          = "light"
	ClassAirConditioner = "aircondition"
	ClassFan            = "fan"
	ClassCurtain        = "curtain"
	ClassSensor         = "sensor"
	ClassOutlet         = "outlet"
	ClassSwitch         = "switch"
)

// Command tokens. Multi-token commands are "#"-joined, first token
// always on/off (pause for covers).
const (
	CommandOn    = "on"
	CommandOff   = "off"
	CommandPause = "pause"

	CommandSeparator = "#"
)

// DeviceMessage is the per-device state blob. Every field is optional:
// the cloud only echoes fields it knows about, so absence must be
// distinguishable from a zero value.
type DeviceMessage struct {
	On          *bool    `json:"on,omitempty"`
	Mode        *int     `json:"mode,omitempty"`
	Temperature *float64 `json:"t,omitempty"`
	Humidity    *float64 `json:"h,omitempty"`
	Level       *int     `json:"level,omitempty"`
	Position    *int     `json:"position,omitempty"`
	Shake       *int     `json:"shake,omitempty"`
}

// IsOn returns the on flag, defaulting to off when absent.
func (m DeviceMessage) IsOn() bool {
	return m.On != nil && *m.On
}

// DeviceRecord is one device as returned by the homeRoom endpoint.
// Topic is the only stable key: list order changes between polls.
type DeviceRecord struct {
	Topic       string        `json:"topic"`
	Class       string        `json:"id"`
	Name        string        `json:"name"`
	Msg         DeviceMessage `json:"msg"`
	Unit        []string      `json:"unit,omitempty"`
	LastUpdated int64         `json:"unix"`
}

// TemperatureUnit returns unit[0] if present.
func (r DeviceRecord) TemperatureUnit() string {
	if len(r.Unit) > 0 {
		return r.Unit[0]
	}
	return ""
}

// HumidityUnit returns unit[1] if present.
func (r DeviceRecord) HumidityUnit() string {
	if len(r.Unit) > 1 {
		return r.Unit[1]
	}
	return ""
}

// Snapshot is the full device list of one successful poll. It is
// replaced wholesale, never merged.
type Snapshot []DeviceRecord

// FindByTopic resolves a record by its topic key. Returns nil when the
// snapshot does not contain the device.
func (s Snapshot) FindByTopic(topic string) *DeviceRecord {
	for i := range s {
		if s[i].Topic == topic {
			return &s[i]
		}
	}
	return nil
}
