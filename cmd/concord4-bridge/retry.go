package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/caarlos0/concord4-bridge/internal/integration"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

// retries sets entries up in the background until their panel is
// reachable. Each entry can be cancelled on its own, like when it is removed
// while still retrying.
type retries struct {
	ctx   context.Context
	g     *errgroup.Group
	integ *integration.Integration

	mu      sync.Mutex
	pending map[string]*pendingSetup
}

type pendingSetup struct {
	cancel context.CancelFunc
}

func newRetries(ctx context.Context, g *errgroup.Group, integ *integration.Integration) *retries {
	return &retries{
		ctx:     ctx,
		g:       g,
		integ:   integ,
		pending: map[string]*pendingSetup{},
	}
}

// Load starts setting entry up in the background. A pending setup of the
// same entry is cancelled first.
func (r *retries) Load(_ context.Context, entry integration.ConfigEntry) {
	ctx, cancel := context.WithCancel(r.ctx)
	p := &pendingSetup{cancel: cancel}

	r.mu.Lock()
	if old, ok := r.pending[entry.ID]; ok {
		old.cancel()
	}
	r.pending[entry.ID] = p
	r.mu.Unlock()

	r.g.Go(func() error {
		defer r.done(entry.ID, p)
		r.run(ctx, entry)
		return nil
	})
}

// Cancel stops a pending setup of the entry, if any.
func (r *retries) Cancel(entryID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pending[entryID]; ok {
		p.cancel()
		delete(r.pending, entryID)
	}
}

// run sets entry up, unloading it again if it was cancelled while the last
// attempt was still running.
func (r *retries) run(ctx context.Context, entry integration.ConfigEntry) {
	err := setupWithRetry(ctx, r.integ, entry)
	switch {
	case err == nil && ctx.Err() != nil:
		unloadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, uerr := r.integ.UnloadEntry(unloadCtx, entry.ID); uerr != nil && !errors.Is(uerr, integration.ErrNotLoaded) {
			log.Error("could not unload cancelled entry", "entry", entry.ID, "err", uerr)
		}
	case err != nil && !errors.Is(err, context.Canceled):
		log.Error("could not set up entry", "entry", entry.ID, "err", err)
	}
}

func (r *retries) done(entryID string, p *pendingSetup) {
	p.cancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending[entryID] == p {
		delete(r.pending, entryID)
	}
}

// setupWithRetry keeps setting up entry until it loads, ctx is done, or
// it fails for a reason other than the panel not being reachable.
func setupWithRetry(ctx context.Context, integ *integration.Integration, entry integration.ConfigEntry) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = time.Minute
	bo.MaxElapsedTime = 0

	return backoff.RetryNotify(func() error {
		err := integ.SetupEntry(ctx, entry)
		if err == nil || errors.Is(err, integration.ErrNotReady) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx), func(err error, d time.Duration) {
		log.Warn("entry not ready", "entry", entry.ID, "retry-in", d, "err", err)
	})
}
