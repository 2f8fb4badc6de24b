package market

import (
	"context"

	"go.opencensus.io/tag"
	"golang.org/x/xerrors"

	"github.com/blockmarket/blockmarket/api"
	"github.com/blockmarket/blockmarket/build"
	"github.com/blockmarket/blockmarket/chain/types"
	"github.com/blockmarket/blockmarket/metrics"
)

func storeKey(s types.Store) uint64 { return s.ID }

// newestStoreFirst orders the global listing by id descending, newest first.
func newestStoreFirst(a, b types.Store) bool { return a.ID > b.ID }

// oldestStoreFirst orders owner-scoped listings by creation time ascending.
func oldestStoreFirst(a, b types.Store) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.ID < b.ID
}

// WatchStores starts a live list of every store, newest first. The
// subscription is opened before the counter is read, so a store created
// mid-load is never missed; it may arrive through both paths and is
// deduplicated.
func (e *Engine) WatchStores(ctx context.Context) (*Watch[uint64, types.Store], error) {
	reg, err := e.bindings.Stores()
	if err != nil {
		return nil, err
	}

	w := newWatch(storeKey, newestStoreFirst)
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.EntityKind, "store"))
	ctx, w.cancel = context.WithCancel(ctx)

	events, err := reg.SubscribeStoreAdded(ctx)
	if err != nil {
		w.Stop()
		return nil, xerrors.Errorf("subscribing to store events: %w", err)
	}

	go e.loadAllStores(ctx, w, reg)
	go e.storeEvents(ctx, w, reg, events, nil)
	return w, nil
}

// WatchOwnerStores starts a live list of one owner's stores, oldest first.
func (e *Engine) WatchOwnerStores(ctx context.Context, owner types.Address) (*Watch[uint64, types.Store], error) {
	reg, err := e.bindings.Stores()
	if err != nil {
		return nil, err
	}

	w := newWatch(storeKey, oldestStoreFirst)
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.EntityKind, "store"))
	ctx, w.cancel = context.WithCancel(ctx)

	events, err := reg.SubscribeStoreAdded(ctx)
	if err != nil {
		w.Stop()
		return nil, xerrors.Errorf("subscribing to store events: %w", err)
	}

	go e.loadOwnerStores(ctx, w, reg, owner)
	go e.storeEvents(ctx, w, reg, events, func(ev api.StoreAdded) bool {
		return ev.Owner == owner
	})
	return w, nil
}

// loadAllStores walks the id counter down to the minimum id. Ids of removed
// stores are skipped; ids that fail to expand degrade the listing to
// partial instead of aborting it.
func (e *Engine) loadAllStores(ctx context.Context, w *Watch[uint64, types.Store], reg api.StoreRegistry) {
	counter, err := reg.StoreCounter(ctx)
	if err != nil {
		e.expandFailed(ctx, xerrors.Errorf("reading store counter: %w", err))
		w.setStatus(types.StatusPartial)
		return
	}

	degraded := false
	for id := counter; id >= build.MinEntityID; id-- {
		if ctx.Err() != nil {
			return
		}
		info, err := reg.GetStore(ctx, id)
		if err != nil {
			e.expandFailed(ctx, xerrors.Errorf("fetching store %d: %w", id, err))
			degraded = true
			continue
		}
		if !info.Exists {
			continue
		}

		st, err := e.expandStore(ctx, info)
		if err != nil {
			e.expandFailed(ctx, err)
			degraded = true
			continue
		}
		w.add(st)
	}

	finishLoad(ctx, w, degraded)
}

// loadOwnerStores walks the owner's store index, 0 through count-1.
func (e *Engine) loadOwnerStores(ctx context.Context, w *Watch[uint64, types.Store], reg api.StoreRegistry, owner types.Address) {
	count, err := reg.OwnerStoreCount(ctx, owner)
	if err != nil {
		e.expandFailed(ctx, xerrors.Errorf("reading store count for %s: %w", owner, err))
		w.setStatus(types.StatusPartial)
		return
	}

	degraded := false
	for idx := uint64(0); idx < count; idx++ {
		if ctx.Err() != nil {
			return
		}
		id, err := reg.OwnerStoreAt(ctx, owner, idx)
		if err != nil {
			e.expandFailed(ctx, xerrors.Errorf("reading store index %d for %s: %w", idx, owner, err))
			degraded = true
			continue
		}

		info, err := reg.GetStore(ctx, id)
		if err != nil {
			e.expandFailed(ctx, xerrors.Errorf("fetching store %d: %w", id, err))
			degraded = true
			continue
		}
		if !info.Exists {
			continue
		}

		st, err := e.expandStore(ctx, info)
		if err != nil {
			e.expandFailed(ctx, err)
			degraded = true
			continue
		}
		w.add(st)
	}

	finishLoad(ctx, w, degraded)
}

// storeEvents merges stores arriving on the event stream into the watch.
func (e *Engine) storeEvents(ctx context.Context, w *Watch[uint64, types.Store], reg api.StoreRegistry, events <-chan api.StoreAdded, keep func(api.StoreAdded) bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if keep != nil && !keep(ev) {
				continue
			}

			info, err := reg.GetStore(ctx, ev.StoreID)
			if err != nil {
				e.expandFailed(ctx, xerrors.Errorf("fetching store %d: %w", ev.StoreID, err))
				continue
			}
			if !info.Exists {
				continue
			}

			st, err := e.expandStore(ctx, info)
			if err != nil {
				e.expandFailed(ctx, err)
				continue
			}
			w.add(st)
		}
	}
}

// GetStore expands a single store. Returns ErrNotFound for removed or
// never-created ids.
func (e *Engine) GetStore(ctx context.Context, id uint64) (types.Store, error) {
	reg, err := e.bindings.Stores()
	if err != nil {
		return types.Store{}, err
	}

	info, err := reg.GetStore(ctx, id)
	if err != nil {
		return types.Store{}, xerrors.Errorf("fetching store %d: %w", id, err)
	}
	if !info.Exists {
		return types.Store{}, api.ErrNotFound
	}
	return e.expandStore(ctx, info)
}
