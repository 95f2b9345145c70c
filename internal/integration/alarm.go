package integration

import (
	"context"
	"fmt"
	"strings"

	concord4 "github.com/caarlos0/concord4-bridge"
	"github.com/caarlos0/concord4-bridge/internal/metrics"
)

type AlarmState string

const (
	AlarmStateDisarmed  AlarmState = "disarmed"
	AlarmStateArmedHome AlarmState = "armed_home"
	AlarmStateArmedAway AlarmState = "armed_away"
	AlarmStateUnknown   AlarmState = "unknown"
)

type AlarmFeature uint8

const (
	FeatureArmHome AlarmFeature = 1 << iota
	FeatureArmAway
)

const CodeFormatNumber = "number"

// AlarmPlatform publishes one alarm panel per partition that has zones.
type AlarmPlatform struct {
	*entityPlatform
}

func NewAlarmPlatform(host Host) *AlarmPlatform {
	return &AlarmPlatform{
		entityPlatform: newEntityPlatform(PlatformAlarmControlPanel, host, func(rt *Runtime) []Entity {
			var entities []Entity
			for _, part := range rt.Client.Partitions() {
				if len(part.Zones) == 0 {
					continue
				}
				entities = append(entities, NewAlarmPanel(rt, part.Number))
			}
			return entities
		}),
	}
}

type panelConfig struct {
	panelName string
	partition int
}

// AlarmPanel is a partition of the panel, as an alarm control panel.
type AlarmPanel struct {
	client Client
	config panelConfig
	serial string
	remove func()
}

var _ Entity = (*AlarmPanel)(nil)

func NewAlarmPanel(rt *Runtime, partition int) *AlarmPanel {
	log.Debug("creating alarm panel", "name", rt.Name, "partition", partition)
	return &AlarmPanel{
		client: rt.Client,
		config: panelConfig{
			panelName: rt.Name,
			partition: partition,
		},
		serial: rt.Client.Panel().SerialNumber,
	}
}

func (a *AlarmPanel) Partition() int {
	return a.config.partition
}

func (a *AlarmPanel) UniqueID() string {
	return AlarmPanelUID(a.serial, a.config.partition)
}

func (a *AlarmPanel) Key() string {
	return AlarmPanelIdentifier(a.serial, a.config.partition)
}

func (a *AlarmPanel) Name() string {
	if a.config.partition == 1 {
		return "Alarm Panel"
	}
	return fmt.Sprintf("Partition %d Alarm Panel", a.config.partition)
}

func (a *AlarmPanel) DeviceInfo() DeviceInfo {
	panel := a.client.Panel()
	model := DefaultModel
	if panel.PanelType != "" {
		model = capitalize(panel.PanelType)
	}
	return DeviceInfo{
		Identifiers:     [][2]string{{Domain, AlarmPanelIdentifier(panel.SerialNumber, a.config.partition)}},
		Manufacturer:    Manufacturer,
		Model:           model,
		Name:            a.config.panelName,
		SerialNumber:    panel.SerialNumber,
		HardwareVersion: panel.HardwareRevision,
		SoftwareVersion: panel.SoftwareRevision,
	}
}

func (a *AlarmPanel) Available() bool {
	return a.client.Connected()
}

func (a *AlarmPanel) State() string {
	return string(a.AlarmState())
}

func (a *AlarmPanel) AlarmState() AlarmState {
	part, ok := a.client.Partition(a.config.partition)
	if !ok {
		return AlarmStateUnknown
	}
	switch part.ArmingLevel {
	case concord4.ArmingLevelOff:
		return AlarmStateDisarmed
	case concord4.ArmingLevelAway:
		return AlarmStateArmedAway
	case concord4.ArmingLevelStay, concord4.ArmingLevelHome:
		return AlarmStateArmedHome
	default:
		return AlarmStateUnknown
	}
}

func (a *AlarmPanel) SupportedFeatures() AlarmFeature {
	return FeatureArmHome | FeatureArmAway
}

func (a *AlarmPanel) CodeArmRequired() bool {
	return true
}

func (a *AlarmPanel) CodeFormat() string {
	return CodeFormatNumber
}

func (a *AlarmPanel) AddedToHost(write func()) {
	id := concord4.Partition{Number: a.config.partition}.CallbackID()
	a.remove = a.client.RegisterCallback(id, write)
}

func (a *AlarmPanel) WillRemoveFromHost() {
	if a.remove != nil {
		a.remove()
		a.remove = nil
	}
}

func (a *AlarmPanel) Disarm(ctx context.Context, code string) error {
	if code == "" {
		return codeRequired("disarm")
	}
	keys, err := concord4.CodeToKeypresses(code)
	if err != nil {
		return &PanelError{Message: err.Error()}
	}
	return track("disarm", a.client.Disarm(ctx, keys, a.config.partition))
}

func (a *AlarmPanel) ArmHome(ctx context.Context, code string) error {
	return a.arm(ctx, "arm home", concord4.ArmModeStay, concord4.ArmLevelNormal, code)
}

func (a *AlarmPanel) ArmHomeInstant(ctx context.Context, code string) error {
	return a.arm(ctx, "arm home", concord4.ArmModeStay, concord4.ArmLevelInstant, code)
}

func (a *AlarmPanel) ArmHomeSilent(ctx context.Context, code string) error {
	return a.arm(ctx, "arm home", concord4.ArmModeStay, concord4.ArmLevelSilent, code)
}

func (a *AlarmPanel) ArmAway(ctx context.Context, code string) error {
	return a.arm(ctx, "arm away", concord4.ArmModeAway, concord4.ArmLevelNormal, code)
}

func (a *AlarmPanel) ArmAwayInstant(ctx context.Context, code string) error {
	return a.arm(ctx, "arm away", concord4.ArmModeAway, concord4.ArmLevelInstant, code)
}

func (a *AlarmPanel) ArmAwaySilent(ctx context.Context, code string) error {
	return a.arm(ctx, "arm away", concord4.ArmModeAway, concord4.ArmLevelSilent, code)
}

func (a *AlarmPanel) arm(ctx context.Context, action string, mode concord4.ArmMode, level concord4.ArmLevel, code string) error {
	if code == "" {
		return codeRequired(action)
	}
	keys, err := concord4.CodeToKeypresses(code)
	if err != nil {
		return &PanelError{Message: err.Error()}
	}
	name := "arm_" + string(mode)
	if level != concord4.ArmLevelNormal {
		name += "_" + string(level)
	}
	return track(name, a.client.Arm(ctx, mode, keys, level, a.config.partition))
}

func track(command string, err error) error {
	metrics.CommandsTotal.WithLabelValues(command).Inc()
	if err != nil {
		metrics.CommandErrorsTotal.WithLabelValues(command).Inc()
		log.Error("command failed", "command", command, "err", err)
	}
	return err
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
