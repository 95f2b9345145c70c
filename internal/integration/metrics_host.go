package integration

import (
	"context"

	"github.com/caarlos0/concord4-bridge/internal/metrics"
)

// MetricsHost mirrors entity state into prometheus gauges.
type MetricsHost struct{}

var _ Host = MetricsHost{}

func (MetricsHost) AddEntities(context.Context, string, ...Entity) error {
	return nil
}

func (MetricsHost) RemoveEntities(_ context.Context, _ string, entities ...Entity) error {
	for _, e := range entities {
		metrics.Available.DeleteLabelValues(e.UniqueID())
		metrics.AlarmState.DeleteLabelValues(e.UniqueID())
		metrics.ZoneTripped.DeleteLabelValues(e.UniqueID())
		metrics.ZoneFaulted.DeleteLabelValues(e.UniqueID())
	}
	return nil
}

func (MetricsHost) WriteState(e Entity) {
	metrics.Available.WithLabelValues(e.UniqueID()).Set(metrics.BoolToFloat(e.Available()))
	switch e := e.(type) {
	case *AlarmPanel:
		metrics.AlarmState.WithLabelValues(e.UniqueID()).Set(alarmStateValue(e.AlarmState()))
	case *ZoneSensor:
		metrics.ZoneTripped.WithLabelValues(e.UniqueID()).Set(metrics.BoolToFloat(e.Tripped()))
		metrics.ZoneFaulted.WithLabelValues(e.UniqueID()).Set(metrics.BoolToFloat(e.Faulted()))
	}
}

func alarmStateValue(s AlarmState) float64 {
	switch s {
	case AlarmStateDisarmed:
		return 0
	case AlarmStateArmedHome:
		return 1
	case AlarmStateArmedAway:
		return 2
	default:
		return -1
	}
}
