package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "concord4"

// AlarmState is -1 when unknown, 0 disarmed, 1 armed home, 2 armed away.
var AlarmState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   namespace,
	Subsystem:   "alarm",
	Name:        "state",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"name"})

var ZoneTripped = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   namespace,
	Subsystem:   "zone",
	Name:        "tripped",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"name"})

var ZoneFaulted = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   namespace,
	Subsystem:   "zone",
	Name:        "faulted",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"name"})

var Available = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   namespace,
	Subsystem:   "entity",
	Name:        "available",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"name"})

var CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace:   namespace,
	Subsystem:   "client",
	Name:        "commands_total",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"command"})

var CommandErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace:   namespace,
	Subsystem:   "client",
	Name:        "command_errors_total",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"command"})

func BoolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
