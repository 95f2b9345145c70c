package integration

import (
	"strings"

	concord4 "github.com/caarlos0/concord4-bridge"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type ZoneSensorType string

const (
	SensorMotion      ZoneSensorType = "motion"
	SensorWindow      ZoneSensorType = "window"
	SensorGlassBreak  ZoneSensorType = "glass_break"
	SensorSlidingDoor ZoneSensorType = "sliding_door"
	SensorDoor        ZoneSensorType = "door"
)

const DeviceClassEnum = "enum"

type statusLabel struct {
	status concord4.ZoneStatus
	label  string
}

var baseStates = []statusLabel{
	{concord4.ZoneStatusFaulted, "Faulted"},
	{concord4.ZoneStatusAlarm, "Alarm"},
	{concord4.ZoneStatusTrouble, "Trouble"},
	{concord4.ZoneStatusBypassed, "Bypassed"},
	{concord4.ZoneStatusUnknown, "Unknown"},
}

func zoneStates(normal, tripped string) []statusLabel {
	return append([]statusLabel{
		{concord4.ZoneStatusNormal, normal},
		{concord4.ZoneStatusTripped, tripped},
	}, baseStates...)
}

var sensorStates = map[ZoneSensorType][]statusLabel{
	SensorMotion:      zoneStates("Clear", "Tripped"),
	SensorWindow:      zoneStates("Closed", "Open"),
	SensorGlassBreak:  zoneStates("Normal", "Broken"),
	SensorSlidingDoor: zoneStates("Closed", "Open"),
	SensorDoor:        zoneStates("Closed", "Open"),
}

var baseIcons = map[string]string{
	"Faulted":  "mdi:alert-circle",
	"Alarm":    "mdi:alarm-light",
	"Trouble":  "mdi:alert",
	"Bypassed": "mdi:shield-off",
	"Unknown":  "mdi:help-circle",
}

var sensorIcons = map[ZoneSensorType]map[string]string{
	SensorMotion: {
		"Clear":   "mdi:motion-sensor-off",
		"Tripped": "mdi:motion-sensor",
	},
	SensorWindow: {
		"Closed": "mdi:window-closed",
		"Open":   "mdi:window-open",
	},
	SensorGlassBreak: {
		"Normal": "mdi:window-closed-variant",
		"Broken": "mdi:glass-fragile",
	},
	SensorSlidingDoor: {
		"Closed": "mdi:door-sliding",
		"Open":   "mdi:door-sliding-open",
	},
	SensorDoor: {
		"Closed": "mdi:door",
		"Open":   "mdi:door-open",
	},
}

// InferSensorType guesses what kind of sensor a zone is from its name.
func InferSensorType(name string) ZoneSensorType {
	name = strings.ToLower(name)
	switch {
	case strings.Contains(name, "motion"):
		return SensorMotion
	case strings.Contains(name, "window"):
		return SensorWindow
	case strings.Contains(name, "glass"):
		return SensorGlassBreak
	case strings.Contains(name, "sliding"):
		return SensorSlidingDoor
	default:
		return SensorDoor
	}
}

// StateLabel is the label a sensor of the given type shows for status.
// Statuses the panel should never send show as Unknown.
func StateLabel(typ ZoneSensorType, status concord4.ZoneStatus) string {
	for _, s := range sensorStates[typ] {
		if s.status == status {
			return s.label
		}
	}
	return "Unknown"
}

func StateIcon(typ ZoneSensorType, label string) string {
	if icon, ok := sensorIcons[typ][label]; ok {
		return icon
	}
	return baseIcons[label]
}

// StateOptions lists every label a sensor of the given type can show.
func StateOptions(typ ZoneSensorType) []string {
	options := make([]string, 0, len(sensorStates[typ]))
	for _, s := range sensorStates[typ] {
		options = append(options, s.label)
	}
	return options
}

// SensorPlatform publishes one sensor per zone.
type SensorPlatform struct {
	*entityPlatform
}

func NewSensorPlatform(host Host) *SensorPlatform {
	return &SensorPlatform{
		entityPlatform: newEntityPlatform(PlatformSensor, host, func(rt *Runtime) []Entity {
			var entities []Entity
			for _, zone := range rt.Client.Zones() {
				entities = append(entities, NewZoneSensor(rt, zone.ID))
			}
			return entities
		}),
	}
}

type zoneConfig struct {
	panelName  string
	sensorName string
	sensorType ZoneSensorType
	zoneID     string
	partition  int
}

// ZoneSensor is a zone of the panel, as an enum sensor.
type ZoneSensor struct {
	client Client
	config zoneConfig
	serial string
	remove func()
}

var _ Entity = (*ZoneSensor)(nil)

func NewZoneSensor(rt *Runtime, zoneID string) *ZoneSensor {
	zone, _ := rt.Client.Zone(zoneID)
	name := cases.Title(language.Und).String(zone.Text)
	log.Debug("setting up zone sensor", "name", name, "zone", zoneID)
	return &ZoneSensor{
		client: rt.Client,
		config: zoneConfig{
			panelName:  rt.Name,
			sensorName: name,
			sensorType: InferSensorType(name),
			zoneID:     zoneID,
			partition:  zone.PartitionNumber,
		},
		serial: rt.Client.Panel().SerialNumber,
	}
}

func (s *ZoneSensor) ZoneID() string {
	return s.config.zoneID
}

func (s *ZoneSensor) SensorType() ZoneSensorType {
	return s.config.sensorType
}

func (s *ZoneSensor) Key() string {
	return s.config.zoneID + "_zone_status"
}

func (s *ZoneSensor) UniqueID() string {
	return s.serial + "_" + s.Key()
}

func (s *ZoneSensor) Name() string {
	return s.config.sensorName
}

func (s *ZoneSensor) DeviceClass() string {
	return DeviceClassEnum
}

func (s *ZoneSensor) Options() []string {
	return StateOptions(s.config.sensorType)
}

func (s *ZoneSensor) DeviceInfo() DeviceInfo {
	return DeviceInfo{
		Identifiers: [][2]string{{
			Domain,
			AlarmPanelIdentifier(s.client.Panel().SerialNumber, s.config.partition),
		}},
	}
}

func (s *ZoneSensor) Available() bool {
	return s.client.Connected()
}

func (s *ZoneSensor) status() concord4.ZoneStatus {
	zone, ok := s.client.Zone(s.config.zoneID)
	if !ok {
		return concord4.ZoneStatusUnknown
	}
	return zone.Status
}

func (s *ZoneSensor) State() string {
	return StateLabel(s.config.sensorType, s.status())
}

func (s *ZoneSensor) Icon() string {
	return StateIcon(s.config.sensorType, s.State())
}

// Tripped is whether the zone is open, or has detected something.
func (s *ZoneSensor) Tripped() bool {
	switch s.status() {
	case concord4.ZoneStatusTripped, concord4.ZoneStatusAlarm:
		return true
	default:
		return false
	}
}

func (s *ZoneSensor) Faulted() bool {
	switch s.status() {
	case concord4.ZoneStatusFaulted, concord4.ZoneStatusTrouble:
		return true
	default:
		return false
	}
}

func (s *ZoneSensor) AddedToHost(write func()) {
	id := concord4.Zone{ID: s.config.zoneID}.CallbackID()
	s.remove = s.client.RegisterCallback(id, write)
}

func (s *ZoneSensor) WillRemoveFromHost() {
	if s.remove != nil {
		s.remove()
		s.remove = nil
	}
}
