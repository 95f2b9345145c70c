package integration

import (
	"fmt"
	"os"
	"time"

	logp "github.com/charmbracelet/log"
)

const (
	Domain       = "concord4ws"
	Manufacturer = "GE"
	DefaultModel = "Concord"
	EntryTitle   = "Concord4"
)

const (
	PlatformAlarmControlPanel = "alarm_control_panel"
	PlatformSensor            = "sensor"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "concord4",
})

// SetLogger replaces the package logger.
func SetLogger(l *logp.Logger) {
	log = l
}

// AlarmPanelIdentifier identifies the device a partition and its zones belong
// to.
func AlarmPanelIdentifier(serial string, partition int) string {
	return fmt.Sprintf("%s_p%d", serial, partition)
}

func AlarmPanelUID(serial string, partition int) string {
	return fmt.Sprintf("%s_p%d_alarm_panel", serial, partition)
}
