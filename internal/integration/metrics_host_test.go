package integration

import (
	"context"
	"testing"

	concord4 "github.com/caarlos0/concord4-bridge"
	"github.com/caarlos0/concord4-bridge/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsHost(t *testing.T) {
	cli := newFakeClient()
	cli.connected = true
	rt := testRuntime(cli)
	host := MetricsHost{}

	panel := NewAlarmPanel(rt, 2)
	zone := NewZoneSensor(rt, "2")
	require.NoError(t, host.AddEntities(context.Background(), rt.EntryID, panel, zone))

	host.WriteState(panel)
	host.WriteState(zone)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Available.WithLabelValues(panel.UniqueID())))
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.AlarmState.WithLabelValues(panel.UniqueID())))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ZoneTripped.WithLabelValues(zone.UniqueID())))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.ZoneFaulted.WithLabelValues(zone.UniqueID())))

	cli.partitions[2] = concord4.Partition{Number: 2, ArmingLevel: "night"}
	host.WriteState(panel)
	require.Equal(t, -1.0, testutil.ToFloat64(metrics.AlarmState.WithLabelValues(panel.UniqueID())))

	require.NoError(t, host.RemoveEntities(context.Background(), rt.EntryID, panel, zone))
	require.False(t, metrics.AlarmState.DeleteLabelValues(panel.UniqueID()))
	require.False(t, metrics.ZoneTripped.DeleteLabelValues(zone.UniqueID()))
}
