package web

import (
	"github.com/caarlos0/concord4-bridge/internal/integration"
)

type entryView struct {
	ID        string
	Name      string
	Host      string
	Port      int
	Loaded    bool
	Connected bool
	Serial    string
	Panels    []panelView
	Zones     []zoneView
}

type panelView struct {
	Name  string
	State string
}

type zoneView struct {
	ID    string
	Name  string
	Type  string
	State string
	Icon  string
}

func newEntryView(entry integration.ConfigEntry, rt *integration.Runtime) entryView {
	view := entryView{
		ID:   entry.ID,
		Name: entry.Data.Name,
		Host: entry.Data.Host,
		Port: entry.Data.Port,
	}
	if rt == nil {
		return view
	}
	view.Loaded = true
	view.Connected = rt.Client.Connected()
	view.Serial = rt.Client.Panel().SerialNumber
	for _, part := range rt.Client.Partitions() {
		if len(part.Zones) == 0 {
			continue
		}
		panel := integration.NewAlarmPanel(rt, part.Number)
		view.Panels = append(view.Panels, panelView{
			Name:  panel.Name(),
			State: panel.State(),
		})
	}
	for _, zone := range rt.Client.Zones() {
		sensor := integration.NewZoneSensor(rt, zone.ID)
		view.Zones = append(view.Zones, zoneView{
			ID:    zone.ID,
			Name:  sensor.Name(),
			Type:  string(sensor.SensorType()),
			State: sensor.State(),
			Icon:  sensor.Icon(),
		})
	}
	return view
}
