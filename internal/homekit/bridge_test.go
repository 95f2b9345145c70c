package homekit

import (
	"context"
	"testing"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	concord4 "github.com/caarlos0/concord4-bridge"
	"github.com/caarlos0/concord4-bridge/internal/integration"
	"github.com/caarlos0/concord4-bridge/internal/integration/integrationtest"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, code string) (*Bridge, *integrationtest.Client) {
	t.Helper()
	cli := integrationtest.New()
	bridge := NewBridge(accessory.Info{Name: "Concord4 Bridge"}, code)
	rt := cli.Runtime("1", "Home")
	for _, p := range integration.Platforms(bridge) {
		require.NoError(t, p.SetupEntry(context.Background(), rt))
	}
	return bridge, cli
}

func panel(t *testing.T, b *Bridge, partition int) *SecuritySystem {
	t.Helper()
	u, ok := b.accessory(integration.AlarmPanelUID("ABC123", partition))
	require.True(t, ok)
	return u.(*SecuritySystem)
}

func zone(t *testing.T, b *Bridge, id string) *ZoneSensor {
	t.Helper()
	u, ok := b.accessory("ABC123_" + id + "_zone_status")
	require.True(t, ok)
	return u.(*ZoneSensor)
}

func TestAccessories(t *testing.T) {
	bridge, _ := setup(t, "1234")
	accs := bridge.Accessories()
	require.Len(t, accs, 5, "2 panels and 3 zones")
	for i := 1; i < len(accs); i++ {
		require.Less(t, accs[i-1].Id, accs[i].Id)
	}

	alarm := panel(t, bridge, 1)
	require.Equal(t, "Home Alarm Panel", alarm.Name())
	require.Equal(t, accessoryID("ABC123_p1_alarm_panel"), alarm.Id)

	require.Equal(t, kindContact, zone(t, bridge, "1").Kind)
	require.Equal(t, kindMotion, zone(t, bridge, "2").Kind)
	require.Equal(t, kindContact, zone(t, bridge, "3").Kind)
}

func TestAccessoryID(t *testing.T) {
	require.Equal(t, accessoryID("ABC123_p1_alarm_panel"), accessoryID("ABC123_p1_alarm_panel"))
	require.NotEqual(t, accessoryID("ABC123_p1_alarm_panel"), accessoryID("ABC123_p2_alarm_panel"))
	require.Greater(t, accessoryID(""), uint64(1))
}

func TestSecuritySystemUpdate(t *testing.T) {
	bridge, cli := setup(t, "1234")
	alarm := panel(t, bridge, 1)
	current := alarm.SecuritySystem.SecuritySystemCurrentState
	target := alarm.SecuritySystem.SecuritySystemTargetState

	require.Equal(t, characteristic.SecuritySystemCurrentStateDisarmed, current.Value())
	require.Equal(t, characteristic.SecuritySystemTargetStateDisarm, target.Value())
	require.Equal(t, 0, alarm.Fault.Value())

	cli.SetArmingLevel(1, concord4.ArmingLevelAway)
	require.Equal(t, characteristic.SecuritySystemCurrentStateAwayArm, current.Value())
	require.Equal(t, characteristic.SecuritySystemTargetStateAwayArm, target.Value())

	_ = target.SetValue(characteristic.SecuritySystemTargetStateNightArm)
	cli.SetArmingLevel(1, concord4.ArmingLevelStay)
	require.Equal(t, characteristic.SecuritySystemCurrentStateStayArm, current.Value())
	require.Equal(t, characteristic.SecuritySystemTargetStateNightArm, target.Value())

	cli.SetArmingLevel(1, "weird")
	require.Equal(t, characteristic.SecuritySystemCurrentStateStayArm, current.Value(), "unknown keeps last state")

	cli.SetConnected(false)
	require.Equal(t, 1, alarm.Fault.Value())
}

func TestSecuritySystemTargetState(t *testing.T) {
	for target, expected := range map[int]integrationtest.Command{
		characteristic.SecuritySystemTargetStateStayArm: {
			Mode: concord4.ArmModeStay, Level: concord4.ArmLevelNormal,
		},
		characteristic.SecuritySystemTargetStateAwayArm: {
			Mode: concord4.ArmModeAway, Level: concord4.ArmLevelNormal,
		},
		characteristic.SecuritySystemTargetStateNightArm: {
			Mode: concord4.ArmModeStay, Level: concord4.ArmLevelInstant,
		},
		characteristic.SecuritySystemTargetStateDisarm: {
			Disarm: true,
		},
	} {
		bridge, cli := setup(t, "1234")
		alarm := panel(t, bridge, 2)
		_, status := alarm.updateHandler(target, nil)
		require.Equal(t, hap.JsonStatusSuccess, status)

		expected.Code = []concord4.Keypress{1, 2, 3, 4}
		expected.Partition = 2
		require.Equal(t, []integrationtest.Command{expected}, cli.Commands())
	}
}

func TestSecuritySystemTargetStateErrors(t *testing.T) {
	t.Run("no code", func(t *testing.T) {
		bridge, cli := setup(t, "")
		_, status := panel(t, bridge, 1).updateHandler(characteristic.SecuritySystemTargetStateAwayArm, nil)
		require.Equal(t, hap.JsonStatusInvalidValueInRequest, status)
		require.Empty(t, cli.Commands())
	})

	t.Run("bad code", func(t *testing.T) {
		bridge, cli := setup(t, "12a4")
		_, status := panel(t, bridge, 1).updateHandler(characteristic.SecuritySystemTargetStateAwayArm, nil)
		require.Equal(t, hap.JsonStatusInvalidValueInRequest, status)
		require.Empty(t, cli.Commands())
	})

	t.Run("unknown target", func(t *testing.T) {
		bridge, cli := setup(t, "1234")
		_, status := panel(t, bridge, 1).updateHandler(42, nil)
		require.Equal(t, hap.JsonStatusResourceDoesNotExist, status)
		require.Empty(t, cli.Commands())
	})
}

func TestZoneSensorUpdate(t *testing.T) {
	bridge, cli := setup(t, "1234")

	door := zone(t, bridge, "1")
	require.Equal(t, 0, door.Contact.ContactSensorState.Value())
	cli.SetZoneStatus("1", concord4.ZoneStatusTripped)
	require.Equal(t, 1, door.Contact.ContactSensorState.Value())
	cli.SetZoneStatus("1", concord4.ZoneStatusTrouble)
	require.Equal(t, 0, door.Contact.ContactSensorState.Value())
	require.Equal(t, 1, door.Fault.Value())

	motion := zone(t, bridge, "2")
	require.False(t, motion.Motion.MotionDetected.Value())
	cli.SetZoneStatus("2", concord4.ZoneStatusAlarm)
	require.True(t, motion.Motion.MotionDetected.Value())
	require.Equal(t, 0, motion.Fault.Value())

	cli.SetConnected(false)
	require.Equal(t, 1, motion.Fault.Value())
}

func TestRemoveEntities(t *testing.T) {
	cli := integrationtest.New()
	bridge := NewBridge(accessory.Info{Name: "Concord4 Bridge"}, "1234")
	rt := cli.Runtime("1", "Home")
	platform := integration.NewSensorPlatform(bridge)
	require.NoError(t, platform.SetupEntry(context.Background(), rt))
	require.Len(t, bridge.Accessories(), 3)

	ok, err := platform.UnloadEntry(context.Background(), rt.EntryID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, bridge.Accessories())
	require.Zero(t, cli.Callbacks())
}
