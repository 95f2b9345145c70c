package integration

import (
	"context"
	"fmt"
	"sync"
)

// entityPlatform keeps track of the entities a platform published for each
// entry, and drives their lifecycle hooks.
type entityPlatform struct {
	domain string
	host   Host
	build  func(rt *Runtime) []Entity

	mu       sync.Mutex
	entities map[string][]Entity
}

func newEntityPlatform(domain string, host Host, build func(rt *Runtime) []Entity) *entityPlatform {
	return &entityPlatform{
		domain:   domain,
		host:     host,
		build:    build,
		entities: map[string][]Entity{},
	}
}

func (p *entityPlatform) Domain() string {
	return p.domain
}

func (p *entityPlatform) SetupEntry(ctx context.Context, rt *Runtime) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entities[rt.EntryID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, rt.EntryID)
	}

	entities := p.build(rt)
	if err := p.host.AddEntities(ctx, rt.EntryID, entities...); err != nil {
		return fmt.Errorf("could not add %s entities: %w", p.domain, err)
	}
	for _, e := range entities {
		p.attach(e)
		p.host.WriteState(e)
	}
	p.entities[rt.EntryID] = entities
	log.Debug("platform loaded", "platform", p.domain, "entry", rt.EntryID, "entities", len(entities))
	return nil
}

func (p *entityPlatform) UnloadEntry(ctx context.Context, entryID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entities, ok := p.entities[entryID]
	if !ok {
		return true, nil
	}
	// updates stop before the host forgets the entities, so none is written
	// after its removal.
	for _, e := range entities {
		e.WillRemoveFromHost()
	}
	if err := p.host.RemoveEntities(ctx, entryID, entities...); err != nil {
		for _, e := range entities {
			p.attach(e)
		}
		return false, fmt.Errorf("could not remove %s entities: %w", p.domain, err)
	}
	delete(p.entities, entryID)
	return true, nil
}

func (p *entityPlatform) attach(e Entity) {
	e.AddedToHost(func() { p.host.WriteState(e) })
}

// Entities returns what the platform published for the entry.
func (p *entityPlatform) Entities(entryID string) []Entity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Entity(nil), p.entities[entryID]...)
}
