package domain

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericLight struct {
	Device   Device
	Id       string
	Name     string
	UniqueId string
	Icon     string
}

type GenericSwitch struct {
	Device   Device
	Id       string
	Name     string
	UniqueId string
	Icon     string
}

type GenericCover struct {
	Device      Device
	Id          string
	Name        string
	UniqueId    string
	DeviceClass string // curtain, blind, shade
	Icon        string
}

type GenericFan struct {
	Device      Device
	Id          string
	Name        string
	UniqueId    string
	SpeedLevels int
	Icon        string
}

type GenericClimate struct {
	Device   Device
	Id       string
	Name     string
	UniqueId string
	MinTemp  float64
	MaxTemp  float64
	TempStep float64
	Modes    []string
	FanModes []string
	Icon     string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, duration, total_increasing
	DeviceClass       string // temperature, humidity, connectivity
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
}

// EntityDescriptors groups every entity derived from one device snapshot,
// ready for MQTT discovery.
type EntityDescriptors struct {
	Lights   []GenericLight
	Switches []GenericSwitch
	Covers   []GenericCover
	Fans     []GenericFan
	Climates []GenericClimate
	Sensors  []GenericSensor
}

func (d EntityDescriptors) Count() int {
	return len(d.Lights) + len(d.Switches) + len(d.Covers) +
		len(d.Fans) + len(d.Climates) + len(d.Sensors)
}
