// Package mock provides in-memory implementations of the registry and wallet
// interfaces for tests. The ledger enforces the same visible rules a deployed
// registry would: role checks, payment sufficiency, monotonic ids, soft
// deletes.
package mock

import (
	"context"
	"sync"

	"github.com/filecoin-project/pubsub"
	"golang.org/x/xerrors"

	"github.com/blockmarket/blockmarket/api"
	"github.com/blockmarket/blockmarket/chain/types"
	"github.com/blockmarket/blockmarket/lib/chash"
)

const (
	topicStoreAdded       = "store-added"
	topicProductAdded     = "product-added"
	topicProductPurchased = "product-purchased"
	topicOwnerAdded       = "owner-added"
)

// Ledger is an in-memory chain implementing all four registry interfaces.
type Ledger struct {
	mu  sync.Mutex
	bus *pubsub.PubSub

	now int64

	storeCounter uint64
	stores       map[uint64]api.StoreInfo
	ownerStores  map[types.Address][]uint64

	productCounter uint64
	products       map[uint64]api.ProductInfo
	storeProducts  map[uint64][]uint64

	admins   map[types.Address]bool
	ownerSet map[types.Address]bool
	owners   []types.Address

	balances map[types.Address]types.Amount
}

var (
	_ api.StoreRegistry   = (*Ledger)(nil)
	_ api.ProductRegistry = (*Ledger)(nil)
	_ api.AccessRegistry  = (*Ledger)(nil)
	_ api.FundsRegistry   = (*Ledger)(nil)
)

func NewLedger(admin types.Address) *Ledger {
	return &Ledger{
		bus:           pubsub.New(64),
		stores:        make(map[uint64]api.StoreInfo),
		ownerStores:   make(map[types.Address][]uint64),
		products:      make(map[uint64]api.ProductInfo),
		storeProducts: make(map[uint64][]uint64),
		admins:        map[types.Address]bool{admin: true},
		ownerSet:      make(map[types.Address]bool),
		balances:      make(map[types.Address]types.Amount),
	}
}

// tick advances the logical clock used for created/updated timestamps.
func (l *Ledger) tick() int64 {
	l.now++
	return l.now
}

//
// StoreRegistry
//

func (l *Ledger) StoreCounter(ctx context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.storeCounter, nil
}

func (l *Ledger) GetStore(ctx context.Context, id uint64) (api.StoreInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.stores[id]
	if !ok {
		return api.StoreInfo{ID: id, Exists: false}, nil
	}
	return info, nil
}

func (l *Ledger) StoreExists(ctx context.Context, id uint64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.stores[id]
	return ok && info.Exists, nil
}

func (l *Ledger) OwnerStoreCount(ctx context.Context, owner types.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.ownerStores[owner])), nil
}

func (l *Ledger) OwnerStoreAt(ctx context.Context, owner types.Address, idx uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := l.ownerStores[owner]
	if idx >= uint64(len(ids)) {
		return 0, xerrors.Errorf("owner store index %d out of range", idx)
	}
	return ids[idx], nil
}

func (l *Ledger) AddStore(ctx context.Context, content chash.ContentHash, from types.Address) error {
	l.mu.Lock()

	if !l.ownerSet[from] {
		l.mu.Unlock()
		return xerrors.Errorf("%s is not a storeowner", from)
	}

	l.storeCounter++
	id := l.storeCounter
	ts := l.tick()
	l.stores[id] = api.StoreInfo{
		ID:        id,
		Owner:     from,
		Content:   content,
		CreatedAt: ts,
		UpdatedAt: ts,
		Exists:    true,
	}
	l.ownerStores[from] = append(l.ownerStores[from], id)
	l.mu.Unlock()

	l.bus.Pub(api.StoreAdded{StoreID: id, Owner: from}, topicStoreAdded)
	return nil
}

func (l *Ledger) UpdateStore(ctx context.Context, id uint64, content chash.ContentHash, from types.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.stores[id]
	if !ok || !info.Exists {
		return xerrors.Errorf("store %d does not exist", id)
	}
	if info.Owner != from {
		return xerrors.Errorf("%s does not own store %d", from, id)
	}
	info.Content = content
	info.UpdatedAt = l.tick()
	l.stores[id] = info
	return nil
}

func (l *Ledger) RemoveStore(ctx context.Context, id uint64, from types.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.stores[id]
	if !ok || !info.Exists {
		return xerrors.Errorf("store %d does not exist", id)
	}
	if info.Owner != from && !l.admins[from] {
		return xerrors.Errorf("%s may not remove store %d", from, id)
	}
	info.Exists = false
	l.stores[id] = info
	return nil
}

func (l *Ledger) SubscribeStoreAdded(ctx context.Context) (<-chan api.StoreAdded, error) {
	return forward[api.StoreAdded](ctx, l.bus, topicStoreAdded, nil)
}

//
// ProductRegistry
//

func (l *Ledger) ProductCounter(ctx context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.productCounter, nil
}

func (l *Ledger) GetProduct(ctx context.Context, id uint64) (api.ProductInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.products[id]
	if !ok {
		return api.ProductInfo{ID: id, Exists: false}, nil
	}
	return info, nil
}

func (l *Ledger) ProductExists(ctx context.Context, id uint64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.products[id]
	return ok && info.Exists, nil
}

func (l *Ledger) StoreProductCount(ctx context.Context, storeID uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.storeProducts[storeID])), nil
}

func (l *Ledger) StoreProductAt(ctx context.Context, storeID uint64, idx uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := l.storeProducts[storeID]
	if idx >= uint64(len(ids)) {
		return 0, xerrors.Errorf("store product index %d out of range", idx)
	}
	return ids[idx], nil
}

func (l *Ledger) AddProduct(ctx context.Context, storeID uint64, content chash.ContentHash, price types.Amount, quantity uint64, from types.Address) error {
	l.mu.Lock()

	store, ok := l.stores[storeID]
	if !ok || !store.Exists {
		l.mu.Unlock()
		return xerrors.Errorf("store %d does not exist", storeID)
	}
	if store.Owner != from {
		l.mu.Unlock()
		return xerrors.Errorf("%s does not own store %d", from, storeID)
	}

	l.productCounter++
	id := l.productCounter
	ts := l.tick()
	l.products[id] = api.ProductInfo{
		ID:        id,
		StoreID:   storeID,
		Content:   content,
		Price:     price,
		Quantity:  quantity,
		CreatedAt: ts,
		UpdatedAt: ts,
		Exists:    true,
	}
	l.storeProducts[storeID] = append(l.storeProducts[storeID], id)
	l.mu.Unlock()

	l.bus.Pub(api.ProductAdded{ProductID: id, StoreID: storeID}, topicProductAdded)
	return nil
}

func (l *Ledger) mutateProduct(id uint64, from types.Address, fn func(*api.ProductInfo)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.products[id]
	if !ok || !info.Exists {
		return xerrors.Errorf("product %d does not exist", id)
	}
	store := l.stores[info.StoreID]
	if store.Owner != from {
		return xerrors.Errorf("%s does not own product %d", from, id)
	}
	fn(&info)
	info.UpdatedAt = l.tick()
	l.products[id] = info
	return nil
}

func (l *Ledger) UpdatePrice(ctx context.Context, id uint64, price types.Amount, from types.Address) error {
	return l.mutateProduct(id, from, func(p *api.ProductInfo) { p.Price = price })
}

func (l *Ledger) UpdateQuantity(ctx context.Context, id uint64, quantity uint64, from types.Address) error {
	return l.mutateProduct(id, from, func(p *api.ProductInfo) { p.Quantity = quantity })
}

func (l *Ledger) UpdatePriceAndQuantity(ctx context.Context, id uint64, price types.Amount, quantity uint64, from types.Address) error {
	return l.mutateProduct(id, from, func(p *api.ProductInfo) {
		p.Price = price
		p.Quantity = quantity
	})
}

func (l *Ledger) RemoveProduct(ctx context.Context, id uint64, from types.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.products[id]
	if !ok || !info.Exists {
		return xerrors.Errorf("product %d does not exist", id)
	}
	store := l.stores[info.StoreID]
	if store.Owner != from && !l.admins[from] {
		return xerrors.Errorf("%s may not remove product %d", from, id)
	}
	info.Exists = false
	l.products[id] = info
	return nil
}

func (l *Ledger) PurchaseProduct(ctx context.Context, id uint64, quantity uint64, payment types.Amount, from types.Address) error {
	l.mu.Lock()

	info, ok := l.products[id]
	if !ok || !info.Exists {
		l.mu.Unlock()
		return xerrors.Errorf("product %d does not exist", id)
	}
	if quantity == 0 || quantity > info.Quantity {
		l.mu.Unlock()
		return xerrors.Errorf("product %d: insufficient stock for quantity %d", id, quantity)
	}

	required := types.TotalPayment(info.Price, quantity)
	if payment.LessThan(required) {
		l.mu.Unlock()
		return xerrors.Errorf("product %d: payment %s below required %s", id, payment, required)
	}

	info.Quantity -= quantity
	info.UpdatedAt = l.tick()
	l.products[id] = info

	owner := l.stores[info.StoreID].Owner
	bal, ok := l.balances[owner]
	if !ok {
		bal = types.ZeroAmount()
	}
	l.balances[owner] = types.BigAdd(bal, required)

	ev := api.ProductPurchased{ProductID: id, NewQuantity: info.Quantity}
	l.mu.Unlock()

	l.bus.Pub(ev, topicProductPurchased)
	return nil
}

func (l *Ledger) SubscribeProductAdded(ctx context.Context, storeID uint64) (<-chan api.ProductAdded, error) {
	return forward[api.ProductAdded](ctx, l.bus, topicProductAdded, func(ev api.ProductAdded) bool {
		return storeID == 0 || ev.StoreID == storeID
	})
}

func (l *Ledger) SubscribeProductPurchased(ctx context.Context, productID uint64) (<-chan api.ProductPurchased, error) {
	return forward[api.ProductPurchased](ctx, l.bus, topicProductPurchased, func(ev api.ProductPurchased) bool {
		return productID == 0 || ev.ProductID == productID
	})
}

//
// AccessRegistry
//

func (l *Ledger) IsAdmin(ctx context.Context, addr types.Address) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.admins[addr], nil
}

func (l *Ledger) IsStoreowner(ctx context.Context, addr types.Address) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ownerSet[addr], nil
}

func (l *Ledger) StoreownerCount(ctx context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.owners)), nil
}

func (l *Ledger) StoreownerAt(ctx context.Context, idx uint64) (types.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if idx >= uint64(len(l.owners)) {
		return types.UndefAddress, xerrors.Errorf("storeowner index %d out of range", idx)
	}
	return l.owners[idx], nil
}

func (l *Ledger) AddStoreowner(ctx context.Context, addr types.Address, from types.Address) error {
	l.mu.Lock()

	if !l.admins[from] {
		l.mu.Unlock()
		return xerrors.Errorf("%s is not an admin", from)
	}
	if l.ownerSet[addr] {
		l.mu.Unlock()
		return xerrors.Errorf("%s is already a storeowner", addr)
	}
	l.ownerSet[addr] = true
	l.owners = append(l.owners, addr)
	l.mu.Unlock()

	l.bus.Pub(api.StoreownerAdded{Owner: addr}, topicOwnerAdded)
	return nil
}

func (l *Ledger) RemoveStoreowner(ctx context.Context, addr types.Address, from types.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.admins[from] {
		return xerrors.Errorf("%s is not an admin", from)
	}
	if !l.ownerSet[addr] {
		return xerrors.Errorf("%s is not a storeowner", addr)
	}
	delete(l.ownerSet, addr)
	for i, o := range l.owners {
		if o == addr {
			l.owners = append(l.owners[:i], l.owners[i+1:]...)
			break
		}
	}
	return nil
}

func (l *Ledger) SubscribeStoreownerAdded(ctx context.Context) (<-chan api.StoreownerAdded, error) {
	return forward[api.StoreownerAdded](ctx, l.bus, topicOwnerAdded, nil)
}

//
// FundsRegistry
//

func (l *Ledger) Balance(ctx context.Context, addr types.Address) (types.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[addr]
	if !ok {
		return types.ZeroAmount(), nil
	}
	return bal, nil
}

func (l *Ledger) Withdraw(ctx context.Context, from types.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[from]
	if !ok || bal.IsZero() {
		return xerrors.Errorf("%s has no withdrawable balance", from)
	}
	l.balances[from] = types.ZeroAmount()
	return nil
}

// forward bridges a pubsub subscription to a typed channel, honoring ctx
// cancellation.
func forward[E any](ctx context.Context, bus *pubsub.PubSub, topic string, keep func(E) bool) (<-chan E, error) {
	sub := bus.Sub(topic)
	out := make(chan E, 16)

	go func() {
		defer close(out)
		defer bus.Unsub(sub, topic)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-sub:
				if !ok {
					return
				}
				ev := v.(E)
				if keep != nil && !keep(ev) {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
