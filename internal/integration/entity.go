package integration

import (
	"context"
	"errors"
)

// DeviceInfo links entities to a device in the host's registry.
type DeviceInfo struct {
	Identifiers     [][2]string
	Manufacturer    string
	Model           string
	Name            string
	SerialNumber    string
	HardwareVersion string
	SoftwareVersion string
}

// Entity is the host-facing view of a panel partition or zone. Every read
// goes to the client's current state; entities keep nothing but their
// configuration.
type Entity interface {
	UniqueID() string
	Key() string
	Name() string
	DeviceInfo() DeviceInfo
	Available() bool
	State() string

	// AddedToHost subscribes the entity to its client updates, calling write
	// whenever the host should refresh it.
	AddedToHost(write func())
	WillRemoveFromHost()
}

// Host is an automation system entities are published to.
type Host interface {
	AddEntities(ctx context.Context, entryID string, entities ...Entity) error
	RemoveEntities(ctx context.Context, entryID string, entities ...Entity) error
	WriteState(e Entity)
}

// Hosts publishes entities to all of its hosts.
type Hosts []Host

func (hosts Hosts) AddEntities(ctx context.Context, entryID string, entities ...Entity) error {
	var errs []error
	for _, h := range hosts {
		errs = append(errs, h.AddEntities(ctx, entryID, entities...))
	}
	return errors.Join(errs...)
}

func (hosts Hosts) RemoveEntities(ctx context.Context, entryID string, entities ...Entity) error {
	var errs []error
	for _, h := range hosts {
		errs = append(errs, h.RemoveEntities(ctx, entryID, entities...))
	}
	return errors.Join(errs...)
}

func (hosts Hosts) WriteState(e Entity) {
	for _, h := range hosts {
		h.WriteState(e)
	}
}
