// Package integrationtest provides an in-memory integration.Client for
// tests of the packages hosting integration entities.
package integrationtest

import (
	"context"
	"sort"
	"sync"

	concord4 "github.com/caarlos0/concord4-bridge"
	"github.com/caarlos0/concord4-bridge/internal/integration"
)

// Command is an arm or disarm call received by the client.
type Command struct {
	Disarm    bool
	Mode      concord4.ArmMode
	Level     concord4.ArmLevel
	Code      []concord4.Keypress
	Partition int
}

type Client struct {
	mu sync.Mutex

	Err        error
	connected  bool
	closed     int
	panel      concord4.Panel
	partitions map[int]concord4.Partition
	zones      map[string]concord4.Zone
	commands   []Command
	callbacks  map[concord4.CallbackID]map[int]func()
	next       int
}

var _ integration.Client = (*Client)(nil)

// New returns a connected client with a two partition panel: partition 1
// has a door and a motion zone, partition 2 a window.
func New() *Client {
	return &Client{
		connected: true,
		panel: concord4.Panel{
			SerialNumber:     "ABC123",
			HardwareRevision: "hw1",
			SoftwareRevision: "sw2",
			PanelType:        "concord",
		},
		partitions: map[int]concord4.Partition{
			1: {Number: 1, ArmingLevel: concord4.ArmingLevelOff, Zones: []string{"1", "2"}},
			2: {Number: 2, ArmingLevel: concord4.ArmingLevelOff, Zones: []string{"3"}},
		},
		zones: map[string]concord4.Zone{
			"1": {ID: "1", Text: "FRONT DOOR", Status: concord4.ZoneStatusNormal, PartitionNumber: 1},
			"2": {ID: "2", Text: "HALL MOTION", Status: concord4.ZoneStatusNormal, PartitionNumber: 1},
			"3": {ID: "3", Text: "DEN WINDOW", Status: concord4.ZoneStatusNormal, PartitionNumber: 2},
		},
		callbacks: map[concord4.CallbackID]map[int]func(){},
	}
}

// Runtime wraps the client in a loaded entry runtime.
func (c *Client) Runtime(entryID, name string) *integration.Runtime {
	return &integration.Runtime{EntryID: entryID, Name: name, Client: c}
}

func (c *Client) Dialer() integration.Dialer {
	return func(string, int) integration.Client { return c }
}

func (c *Client) Connect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.connected = true
	return nil
}

func (c *Client) TestConnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Err
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	c.connected = false
	return nil
}

func (c *Client) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) Arm(_ context.Context, mode concord4.ArmMode, code []concord4.Keypress, level concord4.ArmLevel, partition int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, Command{Mode: mode, Level: level, Code: code, Partition: partition})
	return nil
}

func (c *Client) Disarm(_ context.Context, code []concord4.Keypress, partition int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, Command{Disarm: true, Code: code, Partition: partition})
	return nil
}

// Commands returns the arm and disarm calls received so far.
func (c *Client) Commands() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Command(nil), c.commands...)
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) Panel() concord4.Panel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.panel
}

func (c *Client) Partitions() []concord4.Partition {
	c.mu.Lock()
	defer c.mu.Unlock()
	parts := make([]concord4.Partition, 0, len(c.partitions))
	for _, p := range c.partitions {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].Number < parts[j].Number })
	return parts
}

func (c *Client) Partition(number int) (concord4.Partition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.partitions[number]
	return p, ok
}

func (c *Client) Zones() []concord4.Zone {
	c.mu.Lock()
	defer c.mu.Unlock()
	zones := make([]concord4.Zone, 0, len(c.zones))
	for _, z := range c.zones {
		zones = append(zones, z)
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].ID < zones[j].ID })
	return zones
}

func (c *Client) Zone(id string) (concord4.Zone, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	z, ok := c.zones[id]
	return z, ok
}

func (c *Client) RegisterCallback(id concord4.CallbackID, fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	n := c.next
	if c.callbacks[id] == nil {
		c.callbacks[id] = map[int]func(){}
	}
	c.callbacks[id][n] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.callbacks[id], n)
		if len(c.callbacks[id]) == 0 {
			delete(c.callbacks, id)
		}
	}
}

// Callbacks is how many callbacks are registered.
func (c *Client) Callbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for _, cbs := range c.callbacks {
		n += len(cbs)
	}
	return n
}

// SetConnected flips availability and fires every callback, like a
// reconnect would.
func (c *Client) SetConnected(connected bool) {
	c.mu.Lock()
	c.connected = connected
	c.mu.Unlock()
	c.fireAll()
}

// SetArmingLevel updates a partition and fires its callback.
func (c *Client) SetArmingLevel(partition int, level concord4.ArmingLevel) {
	c.mu.Lock()
	p := c.partitions[partition]
	p.ArmingLevel = level
	c.partitions[partition] = p
	c.mu.Unlock()
	c.fire(p.CallbackID())
}

// SetZoneStatus updates a zone and fires its callback.
func (c *Client) SetZoneStatus(id string, status concord4.ZoneStatus) {
	c.mu.Lock()
	z := c.zones[id]
	z.Status = status
	c.zones[id] = z
	c.mu.Unlock()
	c.fire(z.CallbackID())
}

func (c *Client) fire(id concord4.CallbackID) {
	c.mu.Lock()
	var fns []func()
	for _, fn := range c.callbacks[id] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (c *Client) fireAll() {
	c.mu.Lock()
	var fns []func()
	for _, cbs := range c.callbacks {
		for _, fn := range cbs {
			fns = append(fns, fn)
		}
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
