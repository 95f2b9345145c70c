package integration

import (
	"context"

	concord4 "github.com/caarlos0/concord4-bridge"
)

// Client is what the integration needs from a concord4ws connection.
type Client interface {
	Connect(ctx context.Context) error
	TestConnect(ctx context.Context) error
	Close() error

	Arm(ctx context.Context, mode concord4.ArmMode, code []concord4.Keypress, level concord4.ArmLevel, partition int) error
	Disarm(ctx context.Context, code []concord4.Keypress, partition int) error

	Connected() bool
	Panel() concord4.Panel
	Partitions() []concord4.Partition
	Partition(number int) (concord4.Partition, bool)
	Zones() []concord4.Zone
	Zone(id string) (concord4.Zone, bool)

	RegisterCallback(id concord4.CallbackID, fn func()) (remove func())
}

// Dialer builds a client for the given server. It must not do any I/O.
type Dialer func(host string, port int) Client

// DefaultDialer builds websocket clients.
func DefaultDialer(host string, port int) Client {
	return concord4.New(host, port)
}

var _ Client = (*concord4.Client)(nil)
