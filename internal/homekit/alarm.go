package homekit

import (
	"context"
	"errors"
	"net/http"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
	"github.com/caarlos0/concord4-bridge/internal/integration"
)

type panelCommand = func(*integration.AlarmPanel, context.Context, string) error

// target states the panel can be asked for. Night has no concord
// equivalent, so it arms stay without entry delay.
var targetCommands = map[int]panelCommand{
	characteristic.SecuritySystemTargetStateStayArm:  (*integration.AlarmPanel).ArmHome,
	characteristic.SecuritySystemTargetStateAwayArm:  (*integration.AlarmPanel).ArmAway,
	characteristic.SecuritySystemTargetStateNightArm: (*integration.AlarmPanel).ArmHomeInstant,
	characteristic.SecuritySystemTargetStateDisarm:   (*integration.AlarmPanel).Disarm,
}

type SecuritySystem struct {
	*accessory.A
	SecuritySystem *service.SecuritySystem
	Fault          *characteristic.StatusFault

	panel *integration.AlarmPanel
	code  string
}

func NewSecuritySystem(panel *integration.AlarmPanel, code string) *SecuritySystem {
	device := panel.DeviceInfo()
	a := &SecuritySystem{
		panel: panel,
		code:  code,
	}
	a.A = accessory.New(accessory.Info{
		Name:         device.Name + " " + panel.Name(),
		SerialNumber: device.SerialNumber,
		Manufacturer: device.Manufacturer,
		Model:        device.Model,
		Firmware:     device.SoftwareVersion,
	}, accessory.TypeSecuritySystem)
	a.Id = accessoryID(panel.UniqueID())

	a.SecuritySystem = service.NewSecuritySystem()
	a.AddS(a.SecuritySystem.S)

	a.Fault = characteristic.NewStatusFault()
	a.SecuritySystem.AddC(a.Fault.C)

	a.SecuritySystem.SecuritySystemTargetState.SetValueRequestFunc = a.updateHandler

	return a
}

func (a *SecuritySystem) Update() {
	if v := boolToInt(!a.panel.Available()); a.Fault.Value() != v {
		_ = a.Fault.SetValue(v)
		log.Info("alarm status", "panel", a.panel.UniqueID(), "available", v == 0)
	}

	current, ok := currentState(a.panel.AlarmState())
	if !ok {
		return
	}
	if a.SecuritySystem.SecuritySystemCurrentState.Value() != current {
		err := a.SecuritySystem.SecuritySystemCurrentState.SetValue(current)
		log.Info("set current state", "panel", a.panel.UniqueID(), "state", current, "err", err)
	}
	if target := a.SecuritySystem.SecuritySystemTargetState.Value(); !matches(target, current) {
		_ = a.SecuritySystem.SecuritySystemTargetState.SetValue(current)
	}
}

func (a *SecuritySystem) updateHandler(
	v interface{},
	_ *http.Request,
) (response interface{}, code int) {
	target, _ := v.(int)
	command, ok := targetCommands[target]
	if !ok {
		return nil, hap.JsonStatusResourceDoesNotExist
	}
	if a.code == "" {
		log.Error("no code configured, cannot change alarm state", "panel", a.panel.UniqueID())
		return nil, hap.JsonStatusInvalidValueInRequest
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	log.Info("set target state", "panel", a.panel.UniqueID(), "state", target)
	if err := command(a.panel, ctx, a.code); err != nil {
		log.Error("could not change alarm state", "panel", a.panel.UniqueID(), "state", target, "err", err)
		var perr *integration.PanelError
		if errors.As(err, &perr) {
			return nil, hap.JsonStatusInvalidValueInRequest
		}
		return nil, hap.JsonStatusResourceBusy
	}
	return nil, hap.JsonStatusSuccess
}

func currentState(state integration.AlarmState) (int, bool) {
	switch state {
	case integration.AlarmStateDisarmed:
		return characteristic.SecuritySystemCurrentStateDisarmed, true
	case integration.AlarmStateArmedHome:
		return characteristic.SecuritySystemCurrentStateStayArm, true
	case integration.AlarmStateArmedAway:
		return characteristic.SecuritySystemCurrentStateAwayArm, true
	default:
		return 0, false
	}
}

// matches is whether target already leads to current. Night arms stay, so
// it is left alone when the panel reports stay.
func matches(target, current int) bool {
	if target == current {
		return true
	}
	return target == characteristic.SecuritySystemTargetStateNightArm &&
		current == characteristic.SecuritySystemCurrentStateStayArm
}
