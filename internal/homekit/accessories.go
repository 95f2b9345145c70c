package homekit

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
	"github.com/caarlos0/concord4-bridge/internal/integration"
)

type zoneKind uint8

const (
	kindContact zoneKind = iota + 1
	kindMotion
)

func (z zoneKind) String() string {
	switch z {
	case kindMotion:
		return "motion"
	default:
		return "contact"
	}
}

func kindOf(typ integration.ZoneSensorType) zoneKind {
	if typ == integration.SensorMotion {
		return kindMotion
	}
	return kindContact
}

type ZoneSensor struct {
	*accessory.A
	Kind    zoneKind
	Motion  *service.MotionSensor
	Contact *service.ContactSensor
	Fault   *characteristic.StatusFault

	sensor *integration.ZoneSensor
}

func NewZoneSensor(sensor *integration.ZoneSensor, manufacturer string) *ZoneSensor {
	a := ZoneSensor{
		Kind:   kindOf(sensor.SensorType()),
		sensor: sensor,
	}
	a.A = accessory.New(accessory.Info{
		Name:         sensor.Name(),
		SerialNumber: sensor.UniqueID(),
		Manufacturer: manufacturer,
	}, accessory.TypeSensor)
	a.Id = accessoryID(sensor.UniqueID())

	a.Fault = characteristic.NewStatusFault()

	switch a.Kind {
	case kindContact:
		a.Contact = service.NewContactSensor()
		a.Contact.AddC(a.Fault.C)
		a.AddS(a.Contact.S)
	case kindMotion:
		a.Motion = service.NewMotionSensor()
		a.Motion.AddC(a.Fault.C)
		a.AddS(a.Motion.S)
	}

	return &a
}

func (a *ZoneSensor) Update() {
	fault := boolToInt(!a.sensor.Available() || a.sensor.Faulted())
	if a.Fault.Value() != fault {
		log.Info("fault", "zone", a.sensor.ZoneID(), "status", fault, "state", a.sensor.State())
		_ = a.Fault.SetValue(fault)
	}

	switch a.Kind {
	case kindContact:
		current := boolToInt(a.sensor.Tripped())
		if v := a.Contact.ContactSensorState.Value(); v == current {
			return
		}
		_ = a.Contact.ContactSensorState.SetValue(current)
		log.Info("contact", "zone", a.sensor.ZoneID(), "status", current, "state", a.sensor.State())
	case kindMotion:
		current := a.sensor.Tripped()
		if v := a.Motion.MotionDetected.Value(); v == current {
			return
		}
		a.Motion.MotionDetected.SetValue(current)
		log.Info("motion", "zone", a.sensor.ZoneID(), "status", current, "state", a.sensor.State())
	}
}
