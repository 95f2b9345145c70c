// Package homekit publishes integration entities as HomeKit accessories.
package homekit

import (
	"context"
	"hash/fnv"
	"os"
	"sync"
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/caarlos0/concord4-bridge/internal/integration"
	logp "github.com/charmbracelet/log"
	"golang.org/x/exp/slices"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "homekit",
})

// SetLogger replaces the package logger.
func SetLogger(l *logp.Logger) {
	log = l
}

const commandTimeout = 10 * time.Second

type updater interface {
	Update()
}

// Bridge is an integration.Host keeping one accessory per entity.
type Bridge struct {
	*accessory.Bridge
	code string

	mu          sync.Mutex
	accessories map[string]updater
	byID        map[uint64]*accessory.A
	served      bool
}

var _ integration.Host = (*Bridge)(nil)

// NewBridge creates the bridge accessory. code is what gets typed on the
// panel when HomeKit changes the alarm state.
func NewBridge(info accessory.Info, code string) *Bridge {
	return &Bridge{
		Bridge:      accessory.NewBridge(info),
		code:        code,
		accessories: map[string]updater{},
		byID:        map[uint64]*accessory.A{},
	}
}

func (b *Bridge) AddEntities(_ context.Context, entryID string, entities ...integration.Entity) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.served {
		log.Warn("homekit server already running, new accessories show after a restart", "entry", entryID)
	}
	for _, e := range entities {
		var (
			u updater
			a *accessory.A
		)
		switch e := e.(type) {
		case *integration.AlarmPanel:
			s := NewSecuritySystem(e, b.code)
			u, a = s, s.A
		case *integration.ZoneSensor:
			s := NewZoneSensor(e, integration.Manufacturer)
			u, a = s, s.A
		default:
			continue
		}
		b.accessories[e.UniqueID()] = u
		b.byID[a.Id] = a
		log.Debug("added accessory", "entry", entryID, "entity", e.UniqueID(), "id", a.Id)
	}
	return nil
}

func (b *Bridge) RemoveEntities(_ context.Context, _ string, entities ...integration.Entity) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range entities {
		delete(b.accessories, e.UniqueID())
		delete(b.byID, accessoryID(e.UniqueID()))
	}
	return nil
}

func (b *Bridge) WriteState(e integration.Entity) {
	b.mu.Lock()
	u, ok := b.accessories[e.UniqueID()]
	b.mu.Unlock()
	if ok {
		u.Update()
	}
}

// Accessories returns the entity accessories, ordered by id, for
// hap.NewServer.
func (b *Bridge) Accessories() []*accessory.A {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.served = true
	result := make([]*accessory.A, 0, len(b.byID))
	for _, a := range b.byID {
		result = append(result, a)
	}
	slices.SortFunc(result, func(x, y *accessory.A) int {
		switch {
		case x.Id < y.Id:
			return -1
		case x.Id > y.Id:
			return 1
		default:
			return 0
		}
	})
	return result
}

func (b *Bridge) accessory(uid string) (updater, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.accessories[uid]
	return u, ok
}

// accessoryID derives a stable id from the entity unique id, so HomeKit
// keeps rooms and names across restarts. 1 is the bridge.
func accessoryID(uid string) uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(uid))
	id := uint64(h.Sum32())
	if id <= 1 {
		id += 2
	}
	return id
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
