package concord4

import "fmt"

type ArmingLevel string

const (
	ArmingLevelOff  ArmingLevel = "off"
	ArmingLevelStay ArmingLevel = "stay"
	ArmingLevelAway ArmingLevel = "away"
	ArmingLevelHome ArmingLevel = "home"
)

type ZoneStatus string

const (
	ZoneStatusNormal   ZoneStatus = "normal"
	ZoneStatusTripped  ZoneStatus = "tripped"
	ZoneStatusFaulted  ZoneStatus = "faulted"
	ZoneStatusAlarm    ZoneStatus = "alarm"
	ZoneStatusTrouble  ZoneStatus = "trouble"
	ZoneStatusBypassed ZoneStatus = "bypassed"
	ZoneStatusUnknown  ZoneStatus = "unknown"
)

type ArmMode string

const (
	ArmModeStay ArmMode = "stay"
	ArmModeAway ArmMode = "away"
)

// ArmLevel modifies an arm command. The zero value arms normally, with
// entry and exit delays.
type ArmLevel string

const (
	ArmLevelNormal  ArmLevel = ""
	ArmLevelInstant ArmLevel = "instant"
	ArmLevelSilent  ArmLevel = "silent"
)

// CallbackID routes pushed updates to whoever registered for them.
type CallbackID string

// CallbackAll fires on every update that touches the whole state, like a
// full snapshot or a connection change.
const CallbackAll CallbackID = "all"

type State struct {
	Panel      Panel             `json:"panel"`
	Partitions map[int]Partition `json:"partitions"`
	Zones      map[string]Zone   `json:"zones"`
}

type Panel struct {
	SerialNumber     string `json:"serial_number"`
	HardwareRevision string `json:"hardware_revision"`
	SoftwareRevision string `json:"software_revision"`
	PanelType        string `json:"panel_type"`
}

type Partition struct {
	Number      int         `json:"partition_number"`
	ArmingLevel ArmingLevel `json:"arming_level"`
	Zones       []string    `json:"zones"`
}

func (p Partition) CallbackID() CallbackID {
	return CallbackID(fmt.Sprintf("partition_%d", p.Number))
}

type Zone struct {
	ID              string     `json:"id"`
	Text            string     `json:"zone_text"`
	Status          ZoneStatus `json:"zone_status"`
	PartitionNumber int        `json:"partition_number"`
}

func (z Zone) CallbackID() CallbackID {
	return CallbackID("zone_" + z.ID)
}

func (s State) clone() State {
	out := State{
		Panel:      s.Panel,
		Partitions: make(map[int]Partition, len(s.Partitions)),
		Zones:      make(map[string]Zone, len(s.Zones)),
	}
	for k, v := range s.Partitions {
		v.Zones = append([]string(nil), v.Zones...)
		out.Partitions[k] = v
	}
	for k, v := range s.Zones {
		out.Zones[k] = v
	}
	return out
}
