package market

import (
	"context"
	"sync"

	"go.opencensus.io/tag"
	"golang.org/x/xerrors"

	"github.com/blockmarket/blockmarket/api"
	"github.com/blockmarket/blockmarket/build"
	"github.com/blockmarket/blockmarket/chain/types"
	"github.com/blockmarket/blockmarket/metrics"
)

func productKey(p types.Product) uint64 { return p.ID }

func newestProductFirst(a, b types.Product) bool { return a.ID > b.ID }

func oldestProductFirst(a, b types.Product) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.ID < b.ID
}

// WatchProducts starts a live list of every product across all stores,
// newest first.
func (e *Engine) WatchProducts(ctx context.Context) (*Watch[uint64, types.Product], error) {
	reg, err := e.bindings.Products()
	if err != nil {
		return nil, err
	}

	w := newWatch(productKey, newestProductFirst)
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.EntityKind, "product"))
	ctx, w.cancel = context.WithCancel(ctx)

	events, err := reg.SubscribeProductAdded(ctx, 0)
	if err != nil {
		w.Stop()
		return nil, xerrors.Errorf("subscribing to product events: %w", err)
	}
	purchases, err := reg.SubscribeProductPurchased(ctx, 0)
	if err != nil {
		w.Stop()
		return nil, xerrors.Errorf("subscribing to purchase events: %w", err)
	}

	go e.loadAllProducts(ctx, w, reg)
	go e.productEvents(ctx, w, reg, events)
	go purchaseEvents(ctx, w, purchases)
	return w, nil
}

// WatchStoreProducts starts a live list of one store's products, oldest
// first.
func (e *Engine) WatchStoreProducts(ctx context.Context, storeID uint64) (*Watch[uint64, types.Product], error) {
	reg, err := e.bindings.Products()
	if err != nil {
		return nil, err
	}

	w := newWatch(productKey, oldestProductFirst)
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.EntityKind, "product"))
	ctx, w.cancel = context.WithCancel(ctx)

	events, err := reg.SubscribeProductAdded(ctx, storeID)
	if err != nil {
		w.Stop()
		return nil, xerrors.Errorf("subscribing to product events: %w", err)
	}
	purchases, err := reg.SubscribeProductPurchased(ctx, 0)
	if err != nil {
		w.Stop()
		return nil, xerrors.Errorf("subscribing to purchase events: %w", err)
	}

	go e.loadStoreProducts(ctx, w, reg, storeID)
	go e.productEvents(ctx, w, reg, events)
	go purchaseEvents(ctx, w, purchases)
	return w, nil
}

func (e *Engine) loadAllProducts(ctx context.Context, w *Watch[uint64, types.Product], reg api.ProductRegistry) {
	counter, err := reg.ProductCounter(ctx)
	if err != nil {
		e.expandFailed(ctx, xerrors.Errorf("reading product counter: %w", err))
		w.setStatus(types.StatusPartial)
		return
	}

	degraded := false
	for id := counter; id >= build.MinEntityID; id-- {
		if ctx.Err() != nil {
			return
		}
		info, err := reg.GetProduct(ctx, id)
		if err != nil {
			e.expandFailed(ctx, xerrors.Errorf("fetching product %d: %w", id, err))
			degraded = true
			continue
		}
		if !info.Exists {
			continue
		}

		p, err := e.expandProduct(ctx, info)
		if err != nil {
			e.expandFailed(ctx, err)
			degraded = true
			continue
		}
		w.add(p)
	}

	finishLoad(ctx, w, degraded)
}

func (e *Engine) loadStoreProducts(ctx context.Context, w *Watch[uint64, types.Product], reg api.ProductRegistry, storeID uint64) {
	count, err := reg.StoreProductCount(ctx, storeID)
	if err != nil {
		e.expandFailed(ctx, xerrors.Errorf("reading product count for store %d: %w", storeID, err))
		w.setStatus(types.StatusPartial)
		return
	}

	degraded := false
	for idx := uint64(0); idx < count; idx++ {
		if ctx.Err() != nil {
			return
		}
		id, err := reg.StoreProductAt(ctx, storeID, idx)
		if err != nil {
			e.expandFailed(ctx, xerrors.Errorf("reading product index %d for store %d: %w", idx, storeID, err))
			degraded = true
			continue
		}

		info, err := reg.GetProduct(ctx, id)
		if err != nil {
			e.expandFailed(ctx, xerrors.Errorf("fetching product %d: %w", id, err))
			degraded = true
			continue
		}
		if !info.Exists {
			continue
		}

		p, err := e.expandProduct(ctx, info)
		if err != nil {
			e.expandFailed(ctx, err)
			degraded = true
			continue
		}
		w.add(p)
	}

	finishLoad(ctx, w, degraded)
}

func (e *Engine) productEvents(ctx context.Context, w *Watch[uint64, types.Product], reg api.ProductRegistry, events <-chan api.ProductAdded) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}

			info, err := reg.GetProduct(ctx, ev.ProductID)
			if err != nil {
				e.expandFailed(ctx, xerrors.Errorf("fetching product %d: %w", ev.ProductID, err))
				continue
			}
			if !info.Exists {
				continue
			}

			p, err := e.expandProduct(ctx, info)
			if err != nil {
				e.expandFailed(ctx, err)
				continue
			}
			w.add(p)
		}
	}
}

// purchaseEvents patches quantities of loaded products in place. Purchases
// of products not in the list are ignored; sort position never changes.
func purchaseEvents(ctx context.Context, w *Watch[uint64, types.Product], events <-chan api.ProductPurchased) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.patch(ev.ProductID, func(p *types.Product) {
				p.Quantity = ev.NewQuantity
			})
		}
	}
}

// GetProduct expands a single product. Returns ErrNotFound for removed or
// never-created ids.
func (e *Engine) GetProduct(ctx context.Context, id uint64) (types.Product, error) {
	reg, err := e.bindings.Products()
	if err != nil {
		return types.Product{}, err
	}

	info, err := reg.GetProduct(ctx, id)
	if err != nil {
		return types.Product{}, xerrors.Errorf("fetching product %d: %w", id, err)
	}
	if !info.Exists {
		return types.Product{}, api.ErrNotFound
	}
	return e.expandProduct(ctx, info)
}

// ProductWatch is a live view of one product. Purchases update its quantity
// in place.
type ProductWatch struct {
	lk      sync.Mutex
	product types.Product
	status  types.Status

	updates chan struct{}
	cancel  context.CancelFunc
	once    sync.Once
}

// Snapshot returns the current product state.
func (pw *ProductWatch) Snapshot() (types.Product, types.Status) {
	pw.lk.Lock()
	defer pw.lk.Unlock()
	return pw.product, pw.status
}

// Updates signals quantity or status changes, coalesced.
func (pw *ProductWatch) Updates() <-chan struct{} {
	return pw.updates
}

// Stop tears the view down. Idempotent.
func (pw *ProductWatch) Stop() {
	pw.once.Do(pw.cancel)
}

func (pw *ProductWatch) notify() {
	select {
	case pw.updates <- struct{}{}:
	default:
	}
}

// WatchProduct expands one product and keeps its quantity current through
// the purchase event stream.
func (e *Engine) WatchProduct(ctx context.Context, id uint64) (*ProductWatch, error) {
	reg, err := e.bindings.Products()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	events, err := reg.SubscribeProductPurchased(ctx, id)
	if err != nil {
		cancel()
		return nil, xerrors.Errorf("subscribing to purchase events: %w", err)
	}

	p, err := e.GetProduct(ctx, id)
	if err != nil {
		cancel()
		return nil, err
	}

	pw := &ProductWatch{
		product: p,
		status:  types.StatusSuccess,
		updates: make(chan struct{}, 1),
		cancel:  cancel,
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				pw.lk.Lock()
				pw.product.Quantity = ev.NewQuantity
				pw.lk.Unlock()
				pw.notify()
			}
		}
	}()

	return pw, nil
}
