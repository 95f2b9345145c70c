package integration

import (
	"context"
	"sort"
	"sync"

	concord4 "github.com/caarlos0/concord4-bridge"
)

type armCall struct {
	mode      concord4.ArmMode
	level     concord4.ArmLevel
	code      []concord4.Keypress
	partition int
}

type fakeClient struct {
	mu sync.Mutex

	host string
	port int

	testErr    error
	connectErr error
	connected  bool
	closed     int

	panel      concord4.Panel
	partitions map[int]concord4.Partition
	zones      map[string]concord4.Zone

	arms    []armCall
	disarms []armCall

	callbacks map[concord4.CallbackID][]*func()
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		panel: concord4.Panel{
			SerialNumber:     "ABC123",
			HardwareRevision: "hw1",
			SoftwareRevision: "sw2",
			PanelType:        "concord",
		},
		partitions: map[int]concord4.Partition{
			1: {Number: 1, ArmingLevel: concord4.ArmingLevelOff, Zones: []string{"1", "2"}},
			2: {Number: 2, ArmingLevel: concord4.ArmingLevelAway, Zones: []string{"3"}},
			3: {Number: 3, ArmingLevel: concord4.ArmingLevelOff},
		},
		zones: map[string]concord4.Zone{
			"1": {ID: "1", Text: "FRONT DOOR", Status: concord4.ZoneStatusNormal, PartitionNumber: 1},
			"2": {ID: "2", Text: "hall motion", Status: concord4.ZoneStatusTripped, PartitionNumber: 1},
			"3": {ID: "3", Text: "Garage Window", Status: concord4.ZoneStatusFaulted, PartitionNumber: 2},
		},
		callbacks: map[concord4.CallbackID][]*func(){},
	}
}

func (f *fakeClient) dialer() Dialer {
	return func(host string, port int) Client {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.host, f.port = host, port
		return f
	}
}

func (f *fakeClient) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeClient) TestConnect(context.Context) error {
	return f.testErr
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	f.connected = false
	return nil
}

func (f *fakeClient) Arm(_ context.Context, mode concord4.ArmMode, code []concord4.Keypress, level concord4.ArmLevel, partition int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.arms = append(f.arms, armCall{mode: mode, level: level, code: code, partition: partition})
	return nil
}

func (f *fakeClient) Disarm(_ context.Context, code []concord4.Keypress, partition int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disarms = append(f.disarms, armCall{code: code, partition: partition})
	return nil
}

func (f *fakeClient) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) Panel() concord4.Panel {
	return f.panel
}

func (f *fakeClient) Partitions() []concord4.Partition {
	var parts []concord4.Partition
	for _, p := range f.partitions {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].Number < parts[j].Number })
	return parts
}

func (f *fakeClient) Partition(number int) (concord4.Partition, bool) {
	p, ok := f.partitions[number]
	return p, ok
}

func (f *fakeClient) Zones() []concord4.Zone {
	var zones []concord4.Zone
	for _, z := range f.zones {
		zones = append(zones, z)
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].ID < zones[j].ID })
	return zones
}

func (f *fakeClient) Zone(id string) (concord4.Zone, bool) {
	z, ok := f.zones[id]
	return z, ok
}

func (f *fakeClient) RegisterCallback(id concord4.CallbackID, fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	ptr := &fn
	f.callbacks[id] = append(f.callbacks[id], ptr)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		cbs := f.callbacks[id]
		for i, cb := range cbs {
			if cb == ptr {
				f.callbacks[id] = append(cbs[:i], cbs[i+1:]...)
				break
			}
		}
		if len(f.callbacks[id]) == 0 {
			delete(f.callbacks, id)
		}
	}
}

func (f *fakeClient) fire(id concord4.CallbackID) {
	f.mu.Lock()
	cbs := append([]*func(){}, f.callbacks[id]...)
	f.mu.Unlock()
	for _, cb := range cbs {
		(*cb)()
	}
}

func (f *fakeClient) callbackCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, cbs := range f.callbacks {
		n += len(cbs)
	}
	return n
}

type fakeHost struct {
	mu       sync.Mutex
	added    map[string][]Entity
	writes   map[string]int
	addErr   error
	removeOK bool
	removed  int
	onRemove func()
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		added:    map[string][]Entity{},
		writes:   map[string]int{},
		removeOK: true,
	}
}

func (h *fakeHost) AddEntities(_ context.Context, entryID string, entities ...Entity) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.addErr != nil {
		return h.addErr
	}
	h.added[entryID] = append(h.added[entryID], entities...)
	return nil
}

func (h *fakeHost) RemoveEntities(_ context.Context, entryID string, _ ...Entity) error {
	if h.onRemove != nil {
		h.onRemove()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.removeOK {
		return errRemove
	}
	h.removed++
	delete(h.added, entryID)
	return nil
}

func (h *fakeHost) WriteState(e Entity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writes[e.UniqueID()]++
}

func (h *fakeHost) writesFor(uid string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.writes[uid]
}

type testError string

func (e testError) Error() string { return string(e) }

const errRemove = testError("remove failed")

func testRuntime(cli *fakeClient) *Runtime {
	return &Runtime{EntryID: "entry1", Name: "Home", Client: cli}
}
