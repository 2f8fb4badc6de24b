package market

import (
	"context"

	"go.opencensus.io/tag"
	"golang.org/x/xerrors"

	"github.com/blockmarket/blockmarket/api"
	"github.com/blockmarket/blockmarket/chain/types"
	"github.com/blockmarket/blockmarket/metrics"
)

func ownerKey(p types.OwnerProfile) types.Address { return p.Address }

func ownerOrder(a, b types.OwnerProfile) bool {
	return a.Address.String() < b.Address.String()
}

// WatchOwners starts a live list of storeowner profiles. Profiles are
// derived aggregates, recomputed by traversal on every load rather than
// read from a counter the registries do not keep.
func (e *Engine) WatchOwners(ctx context.Context) (*Watch[types.Address, types.OwnerProfile], error) {
	access, err := e.bindings.Access()
	if err != nil {
		return nil, err
	}

	w := newWatch(ownerKey, ownerOrder)
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.EntityKind, "owner"))
	ctx, w.cancel = context.WithCancel(ctx)

	events, err := access.SubscribeStoreownerAdded(ctx)
	if err != nil {
		w.Stop()
		return nil, xerrors.Errorf("subscribing to storeowner events: %w", err)
	}

	go e.loadOwners(ctx, w, access)
	go e.ownerEvents(ctx, w, events)
	return w, nil
}

func (e *Engine) loadOwners(ctx context.Context, w *Watch[types.Address, types.OwnerProfile], access api.AccessRegistry) {
	count, err := access.StoreownerCount(ctx)
	if err != nil {
		e.expandFailed(ctx, xerrors.Errorf("reading storeowner count: %w", err))
		w.setStatus(types.StatusPartial)
		return
	}

	degraded := false
	for idx := uint64(0); idx < count; idx++ {
		if ctx.Err() != nil {
			return
		}
		addr, err := access.StoreownerAt(ctx, idx)
		if err != nil {
			e.expandFailed(ctx, xerrors.Errorf("reading storeowner index %d: %w", idx, err))
			degraded = true
			continue
		}

		profile, err := e.ownerProfile(ctx, addr)
		if err != nil {
			e.expandFailed(ctx, err)
			degraded = true
			continue
		}
		w.add(profile)
	}

	finishLoad(ctx, w, degraded)
}

func (e *Engine) ownerEvents(ctx context.Context, w *Watch[types.Address, types.OwnerProfile], events <-chan api.StoreownerAdded) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}

			profile, err := e.ownerProfile(ctx, ev.Owner)
			if err != nil {
				e.expandFailed(ctx, err)
				continue
			}
			w.add(profile)
		}
	}
}

// ownerProfile aggregates one owner's store and product counts by walking
// their store index.
func (e *Engine) ownerProfile(ctx context.Context, addr types.Address) (types.OwnerProfile, error) {
	stores, err := e.bindings.Stores()
	if err != nil {
		return types.OwnerProfile{}, err
	}
	products, err := e.bindings.Products()
	if err != nil {
		return types.OwnerProfile{}, err
	}

	storeCount, err := stores.OwnerStoreCount(ctx, addr)
	if err != nil {
		return types.OwnerProfile{}, xerrors.Errorf("owner %s store count: %w", addr, err)
	}

	var productCount uint64
	var liveStores uint64
	for idx := uint64(0); idx < storeCount; idx++ {
		id, err := stores.OwnerStoreAt(ctx, addr, idx)
		if err != nil {
			return types.OwnerProfile{}, xerrors.Errorf("owner %s store index %d: %w", addr, idx, err)
		}

		exists, err := stores.StoreExists(ctx, id)
		if err != nil {
			return types.OwnerProfile{}, xerrors.Errorf("owner %s store %d: %w", addr, id, err)
		}
		if !exists {
			continue
		}
		liveStores++

		n, err := products.StoreProductCount(ctx, id)
		if err != nil {
			return types.OwnerProfile{}, xerrors.Errorf("owner %s store %d products: %w", addr, id, err)
		}
		productCount += n
	}

	return types.OwnerProfile{
		Address:      addr,
		StoreCount:   liveStores,
		ProductCount: productCount,
	}, nil
}
