package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

// Runtime is what a loaded config entry carries around: its client and the
// name the user gave it. Platforms and entities get it at construction.
type Runtime struct {
	EntryID string
	Name    string
	Client  Client
}

// Platform turns a loaded entry into entities of one kind.
type Platform interface {
	Domain() string
	SetupEntry(ctx context.Context, rt *Runtime) error
	UnloadEntry(ctx context.Context, entryID string) (bool, error)
}

// Platforms returns the alarm panel and sensor platforms, publishing to host.
func Platforms(host Host) []Platform {
	return []Platform{
		NewAlarmPlatform(host),
		NewSensorPlatform(host),
	}
}

// Integration owns one client per loaded config entry.
type Integration struct {
	dial      Dialer
	platforms []Platform

	mu      sync.Mutex
	entries map[string]*Runtime
	loading map[string]struct{}
}

func New(dial Dialer, platforms ...Platform) *Integration {
	return &Integration{
		dial:      dial,
		platforms: platforms,
		entries:   map[string]*Runtime{},
		loading:   map[string]struct{}{},
	}
}

// SetupEntry connects to the entry's server and forwards it to every
// platform. Connection failures are returned wrapping ErrNotReady.
func (i *Integration) SetupEntry(ctx context.Context, entry ConfigEntry) error {
	if err := i.reserve(entry.ID); err != nil {
		return err
	}
	defer i.release(entry.ID)

	cli := i.dial(entry.Data.Host, entry.Data.Port)
	if err := cli.TestConnect(ctx); err != nil {
		_ = cli.Close()
		return fmt.Errorf("%w: %s: %w", ErrNotReady, entry.ID, err)
	}
	if err := cli.Connect(ctx); err != nil {
		_ = cli.Close()
		return fmt.Errorf("%w: %s: %w", ErrNotReady, entry.ID, err)
	}

	rt := &Runtime{
		EntryID: entry.ID,
		Name:    entry.Data.Name,
		Client:  cli,
	}
	i.mu.Lock()
	i.entries[entry.ID] = rt
	i.mu.Unlock()

	for n, p := range i.platforms {
		if err := p.SetupEntry(ctx, rt); err != nil {
			log.Error("could not set up platform", "entry", entry.ID, "platform", p.Domain(), "err", err)
			for _, done := range i.platforms[:n] {
				if _, uerr := done.UnloadEntry(ctx, entry.ID); uerr != nil {
					log.Error("could not unload platform", "entry", entry.ID, "platform", done.Domain(), "err", uerr)
				}
			}
			i.mu.Lock()
			delete(i.entries, entry.ID)
			i.mu.Unlock()
			_ = cli.Close()
			return fmt.Errorf("could not set up %s for %s: %w", p.Domain(), entry.ID, err)
		}
	}

	log.Info("entry loaded", "entry", entry.ID, "name", entry.Data.Name, "host", entry.Data.Host, "port", entry.Data.Port)
	return nil
}

// UnloadEntry unloads every platform of the entry. The entry's client is
// dropped only if all of them succeeded.
func (i *Integration) UnloadEntry(ctx context.Context, entryID string) (bool, error) {
	i.mu.Lock()
	rt, ok := i.entries[entryID]
	i.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotLoaded, entryID)
	}

	unloaded := true
	var errs []error
	for _, p := range i.platforms {
		ok, err := p.UnloadEntry(ctx, entryID)
		if err != nil {
			errs = append(errs, fmt.Errorf("could not unload %s: %w", p.Domain(), err))
		}
		unloaded = unloaded && ok
	}
	if !unloaded {
		return false, errors.Join(errs...)
	}

	i.mu.Lock()
	if i.entries[entryID] != rt {
		i.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrNotLoaded, entryID)
	}
	delete(i.entries, entryID)
	i.mu.Unlock()

	if err := rt.Client.Close(); err != nil {
		log.Debug("could not close client", "entry", entryID, "err", err)
	}
	log.Info("entry unloaded", "entry", entryID)
	return true, errors.Join(errs...)
}

// UnloadAll unloads every loaded entry.
func (i *Integration) UnloadAll(ctx context.Context) error {
	var errs []error
	for _, rt := range i.Runtimes() {
		if _, err := i.UnloadEntry(ctx, rt.EntryID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (i *Integration) Runtime(entryID string) (*Runtime, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	rt, ok := i.entries[entryID]
	return rt, ok
}

// Runtimes returns the loaded entries, ordered by id.
func (i *Integration) Runtimes() []*Runtime {
	i.mu.Lock()
	defer i.mu.Unlock()
	result := make([]*Runtime, 0, len(i.entries))
	for _, rt := range i.entries {
		result = append(result, rt)
	}
	slices.SortFunc(result, func(a, b *Runtime) int {
		return strings.Compare(a.EntryID, b.EntryID)
	})
	return result
}

func (i *Integration) reserve(entryID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.entries[entryID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, entryID)
	}
	if _, ok := i.loading[entryID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, entryID)
	}
	i.loading[entryID] = struct{}{}
	return nil
}

func (i *Integration) release(entryID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.loading, entryID)
}
