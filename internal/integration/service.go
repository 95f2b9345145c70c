package integration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const AttrCode = "code"

const (
	ServiceDisarm         = "alarm_disarm"
	ServiceArmHome        = "alarm_arm_home"
	ServiceArmAway        = "alarm_arm_away"
	ServiceArmHomeInstant = "alarm_arm_home_instant"
	ServiceArmHomeSilent  = "alarm_arm_home_silent"
	ServiceArmAwayInstant = "alarm_arm_away_instant"
	ServiceArmAwaySilent  = "alarm_arm_away_silent"
)

var ErrUnknownService = errors.New("unknown service")

// SchemaError is returned when service data does not match the service
// schema.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type serviceHandler func(a *AlarmPanel, ctx context.Context, code string) error

var alarmServices = map[string]serviceHandler{
	ServiceDisarm:         (*AlarmPanel).Disarm,
	ServiceArmHome:        (*AlarmPanel).ArmHome,
	ServiceArmAway:        (*AlarmPanel).ArmAway,
	ServiceArmHomeInstant: (*AlarmPanel).ArmHomeInstant,
	ServiceArmHomeSilent:  (*AlarmPanel).ArmHomeSilent,
	ServiceArmAwayInstant: (*AlarmPanel).ArmAwayInstant,
	ServiceArmAwaySilent:  (*AlarmPanel).ArmAwaySilent,
}

// AlarmServices lists the services alarm panels answer to.
func AlarmServices() []string {
	return []string{
		ServiceDisarm,
		ServiceArmHome,
		ServiceArmAway,
		ServiceArmHomeInstant,
		ServiceArmHomeSilent,
		ServiceArmAwayInstant,
		ServiceArmAwaySilent,
	}
}

// CallService validates data against the user code schema and runs the
// named service against the panel.
func CallService(ctx context.Context, panel *AlarmPanel, service string, data map[string]any) error {
	handler, ok := alarmServices[service]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownService, service)
	}
	code, err := UserCodeSchema(data)
	if err != nil {
		return err
	}
	log.Info("calling service", "service", service, "entity", panel.UniqueID())
	return handler(panel, ctx, code)
}

// UserCodeSchema requires a code that coerces to an integer between 0 and
// 9999, and returns it as four digits.
func UserCodeSchema(data map[string]any) (string, error) {
	raw, ok := data[AttrCode]
	if !ok || raw == nil {
		return "", &SchemaError{Field: AttrCode, Reason: "required"}
	}

	var code int
	switch v := raw.(type) {
	case int:
		code = v
	case int64:
		code = int(v)
	case float64:
		if v != math.Trunc(v) {
			return "", &SchemaError{Field: AttrCode, Reason: "expected int"}
		}
		code = int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return "", &SchemaError{Field: AttrCode, Reason: "expected int"}
		}
		code = n
	default:
		return "", &SchemaError{Field: AttrCode, Reason: "expected int"}
	}

	if code < 0 || code > 9999 {
		return "", &SchemaError{Field: AttrCode, Reason: "must be between 0 and 9999"}
	}
	return fmt.Sprintf("%04d", code), nil
}
