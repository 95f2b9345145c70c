package mqtt

import (
	"github.com/caarlos0/concord4-bridge/internal/integration"
)

// haDevice is the "device" block in HA discovery.
type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	SerialNumber string   `json:"serial_number,omitempty"`
	HWVersion    string   `json:"hw_version,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

type haAvailability struct {
	Topic string `json:"topic"`
}

// haDiscovery is a generic HA discovery payload.
type haDiscovery struct {
	Name                string           `json:"name"`
	UniqueID            string           `json:"unique_id"`
	StateTopic          string           `json:"state_topic"`
	ValueTemplate       string           `json:"value_template"`
	JSONAttributesTopic string           `json:"json_attributes_topic,omitempty"`
	CommandTopic        string           `json:"command_topic,omitempty"`
	CommandTemplate     string           `json:"command_template,omitempty"`
	Code                string           `json:"code,omitempty"`
	CodeArmRequired     *bool            `json:"code_arm_required,omitempty"`
	CodeDisarmRequired  *bool            `json:"code_disarm_required,omitempty"`
	SupportedFeatures   []string         `json:"supported_features,omitempty"`
	DeviceClass         string           `json:"device_class,omitempty"`
	Options             []string         `json:"options,omitempty"`
	Icon                string           `json:"icon,omitempty"`
	Availability        []haAvailability `json:"availability"`
	AvailabilityMode    string           `json:"availability_mode"`
	Device              haDevice         `json:"device"`
}

// statePayload is published to the entity state topic.
type statePayload struct {
	State string `json:"state"`
	Icon  string `json:"icon,omitempty"`
}

// commandPayload is what the command template renders.
type commandPayload struct {
	Action string `json:"action"`
	Code   any    `json:"code"`
}

const commandTemplate = `{"action":"{{ action }}","code":"{{ code }}"}`

// actions maps alarm panel command payloads to services.
var actions = map[string]string{
	"DISARM":           integration.ServiceDisarm,
	"ARM_HOME":         integration.ServiceArmHome,
	"ARM_AWAY":         integration.ServiceArmAway,
	"ARM_HOME_INSTANT": integration.ServiceArmHomeInstant,
	"ARM_HOME_SILENT":  integration.ServiceArmHomeSilent,
	"ARM_AWAY_INSTANT": integration.ServiceArmAwayInstant,
	"ARM_AWAY_SILENT":  integration.ServiceArmAwaySilent,
}

func component(e integration.Entity) (string, bool) {
	switch e.(type) {
	case *integration.AlarmPanel:
		return integration.PlatformAlarmControlPanel, true
	case *integration.ZoneSensor:
		return integration.PlatformSensor, true
	default:
		return "", false
	}
}

func device(info integration.DeviceInfo) haDevice {
	dev := haDevice{
		Manufacturer: info.Manufacturer,
		Model:        info.Model,
		Name:         info.Name,
		SerialNumber: info.SerialNumber,
		HWVersion:    info.HardwareVersion,
		SWVersion:    info.SoftwareVersion,
	}
	for _, id := range info.Identifiers {
		dev.Identifiers = append(dev.Identifiers, id[0]+"_"+id[1])
	}
	return dev
}

func (h *Host) discovery(e integration.Entity) haDiscovery {
	uid := e.UniqueID()
	d := haDiscovery{
		Name:          e.Name(),
		UniqueID:      uid,
		StateTopic:    h.topic(uid, "state"),
		ValueTemplate: "{{ value_json.state }}",
		Availability: []haAvailability{
			{Topic: h.bridgeTopic()},
			{Topic: h.topic(uid, "availability")},
		},
		AvailabilityMode: "all",
		Device:           device(e.DeviceInfo()),
	}

	switch e := e.(type) {
	case *integration.AlarmPanel:
		required := e.CodeArmRequired()
		d.CommandTopic = h.topic(uid, "set")
		d.CommandTemplate = commandTemplate
		d.Code = "REMOTE_CODE"
		d.CodeArmRequired = &required
		d.CodeDisarmRequired = &required
		if e.SupportedFeatures()&integration.FeatureArmHome != 0 {
			d.SupportedFeatures = append(d.SupportedFeatures, "arm_home")
		}
		if e.SupportedFeatures()&integration.FeatureArmAway != 0 {
			d.SupportedFeatures = append(d.SupportedFeatures, "arm_away")
		}
	case *integration.ZoneSensor:
		d.DeviceClass = e.DeviceClass()
		d.Options = e.Options()
		d.Icon = e.Icon()
		d.JSONAttributesTopic = h.topic(uid, "state")
	}
	return d
}

func state(e integration.Entity) statePayload {
	s := statePayload{State: e.State()}
	if sensor, ok := e.(*integration.ZoneSensor); ok {
		s.Icon = sensor.Icon()
	}
	return s
}
