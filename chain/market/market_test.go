package market_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockmarket/blockmarket/alerting"
	"github.com/blockmarket/blockmarket/api"
	"github.com/blockmarket/blockmarket/blobstore"
	"github.com/blockmarket/blockmarket/chain/bindings"
	"github.com/blockmarket/blockmarket/chain/market"
	"github.com/blockmarket/blockmarket/chain/mock"
	"github.com/blockmarket/blockmarket/chain/types"
	"github.com/blockmarket/blockmarket/lib/chash"
)

type ledgerResolver struct {
	ledger *mock.Ledger
}

func (r *ledgerResolver) Stores(ctx context.Context) (api.StoreRegistry, func() error, error) {
	return r.ledger, nil, nil
}

func (r *ledgerResolver) Products(ctx context.Context) (api.ProductRegistry, func() error, error) {
	return r.ledger, nil, nil
}

func (r *ledgerResolver) Access(ctx context.Context) (api.AccessRegistry, func() error, error) {
	return r.ledger, nil, nil
}

func (r *ledgerResolver) Funds(ctx context.Context) (api.FundsRegistry, func() error, error) {
	return r.ledger, nil, nil
}

type fixture struct {
	ctx      context.Context
	ledger   *mock.Ledger
	blobs    *blobstore.MemBlobstore
	notifier *alerting.Notifier
	engine   *market.Engine

	admin types.Address
	owner types.Address
}

func addr(t *testing.T, s string) types.Address {
	t.Helper()
	a, err := types.ParseAddress(s)
	require.NoError(t, err)
	return a
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	admin := addr(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	owner := addr(t, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	ledger := mock.NewLedger(admin)
	require.NoError(t, ledger.AddStoreowner(ctx, owner, admin))

	notifier := alerting.NewNotifier()
	cache := bindings.NewCache(&ledgerResolver{ledger: ledger}, notifier)
	cache.LoadAll(ctx)

	blobs := blobstore.NewMemBlobstore()
	engine, err := market.New(cache, blobs, notifier)
	require.NoError(t, err)

	return &fixture{
		ctx:      ctx,
		ledger:   ledger,
		blobs:    blobs,
		notifier: notifier,
		engine:   engine,
		admin:    admin,
		owner:    owner,
	}
}

// describe publishes a descriptor blob and returns its content hash.
func (f *fixture) describe(t *testing.T, name string) chash.ContentHash {
	t.Helper()
	c, err := blobstore.PutDescriptor(f.ctx, f.blobs, blobstore.Descriptor{
		Name:        name,
		Description: name + " description",
	})
	require.NoError(t, err)
	h, err := chash.FromCid(c)
	require.NoError(t, err)
	return h
}

func (f *fixture) addStore(t *testing.T, owner types.Address, name string) uint64 {
	t.Helper()
	require.NoError(t, f.ledger.AddStore(f.ctx, f.describe(t, name), owner))
	id, err := f.ledger.StoreCounter(f.ctx)
	require.NoError(t, err)
	return id
}

func (f *fixture) addProduct(t *testing.T, storeID uint64, name string, price types.Amount, qty uint64) uint64 {
	t.Helper()
	require.NoError(t, f.ledger.AddProduct(f.ctx, storeID, f.describe(t, name), price, qty, f.owner))
	id, err := f.ledger.ProductCounter(f.ctx)
	require.NoError(t, err)
	return id
}

func waitSettled[K comparable, T any](t *testing.T, w *market.Watch[K, T]) ([]T, types.Status) {
	t.Helper()
	var items []T
	var status types.Status
	require.Eventually(t, func() bool {
		items, status = w.Snapshot()
		return status != types.StatusLoading
	}, 5*time.Second, 10*time.Millisecond)
	return items, status
}

func waitLen[K comparable, T any](t *testing.T, w *market.Watch[K, T], n int) []T {
	t.Helper()
	var items []T
	require.Eventually(t, func() bool {
		items, _ = w.Snapshot()
		return len(items) == n
	}, 5*time.Second, 10*time.Millisecond)
	return items
}

func TestWatchStoresBulkWalk(t *testing.T) {
	f := newFixture(t)

	f.addStore(t, f.owner, "alpha")
	removed := f.addStore(t, f.owner, "beta")
	f.addStore(t, f.owner, "gamma")
	require.NoError(t, f.ledger.RemoveStore(f.ctx, removed, f.owner))

	w, err := f.engine.WatchStores(f.ctx)
	require.NoError(t, err)
	defer w.Stop()

	stores, status := waitSettled(t, w)
	require.Equal(t, types.StatusSuccess, status)
	require.Len(t, stores, 2)

	// newest first, removed id skipped
	require.Equal(t, uint64(3), stores[0].ID)
	require.Equal(t, "gamma", stores[0].Name)
	require.Equal(t, uint64(1), stores[1].ID)
	require.Equal(t, "alpha", stores[1].Name)
	require.Equal(t, f.owner, stores[0].Owner)
}

func TestWatchStoresEmptyThenEvent(t *testing.T) {
	f := newFixture(t)

	w, err := f.engine.WatchStores(f.ctx)
	require.NoError(t, err)
	defer w.Stop()

	stores, status := waitSettled(t, w)
	require.Equal(t, types.StatusSuccess, status)
	require.Empty(t, stores)

	f.addStore(t, f.owner, "first")

	stores = waitLen(t, w, 1)
	require.Equal(t, uint64(1), stores[0].ID)
	require.Equal(t, "first", stores[0].Name)
}

func TestWatchStoresMergesEventDuringLoad(t *testing.T) {
	f := newFixture(t)
	f.addStore(t, f.owner, "alpha")

	w, err := f.engine.WatchStores(f.ctx)
	require.NoError(t, err)
	defer w.Stop()

	// lands while the bulk walk may still be running; either path may
	// deliver it, never both
	f.addStore(t, f.owner, "beta")

	waitSettled(t, w)
	stores := waitLen(t, w, 2)

	seen := map[uint64]bool{}
	for _, s := range stores {
		require.False(t, seen[s.ID], "store %d listed twice", s.ID)
		seen[s.ID] = true
	}
	require.True(t, seen[1])
	require.True(t, seen[2])
}

func TestWatchStoresPartialOnExpandFailure(t *testing.T) {
	f := newFixture(t)
	f.addStore(t, f.owner, "good")

	// descriptor blob never published
	orphan := chash.Sum([]byte("unpublished descriptor"))
	require.NoError(t, f.ledger.AddStore(f.ctx, orphan, f.owner))

	w, err := f.engine.WatchStores(f.ctx)
	require.NoError(t, err)
	defer w.Stop()

	stores, status := waitSettled(t, w)
	require.Equal(t, types.StatusPartial, status)
	require.Len(t, stores, 1)
	require.Equal(t, "good", stores[0].Name)
	require.NotEmpty(t, f.notifier.History())
}

func TestWatchOwnerStores(t *testing.T) {
	f := newFixture(t)
	other := addr(t, "0xcccccccccccccccccccccccccccccccccccccccc")
	require.NoError(t, f.ledger.AddStoreowner(f.ctx, other, f.admin))

	first := f.addStore(t, f.owner, "mine-1")
	f.addStore(t, other, "theirs")
	second := f.addStore(t, f.owner, "mine-2")

	w, err := f.engine.WatchOwnerStores(f.ctx, f.owner)
	require.NoError(t, err)
	defer w.Stop()

	stores, status := waitSettled(t, w)
	require.Equal(t, types.StatusSuccess, status)
	require.Len(t, stores, 2)

	// oldest first, scoped to the owner
	require.Equal(t, first, stores[0].ID)
	require.Equal(t, second, stores[1].ID)

	// another owner's store does not show up through events either
	f.addStore(t, other, "theirs-2")
	third := f.addStore(t, f.owner, "mine-3")

	stores = waitLen(t, w, 3)
	require.Equal(t, third, stores[2].ID)
}

func TestWatchStoreProductsScopedAndJoined(t *testing.T) {
	f := newFixture(t)
	mine := f.addStore(t, f.owner, "groceries")
	other := f.addStore(t, f.owner, "hardware")

	price, err := types.ParseUnits("1.5")
	require.NoError(t, err)

	a := f.addProduct(t, mine, "apples", price, 10)
	f.addProduct(t, other, "hammer", price, 3)
	b := f.addProduct(t, mine, "bread", price, 5)

	w, err := f.engine.WatchStoreProducts(f.ctx, mine)
	require.NoError(t, err)
	defer w.Stop()

	products, status := waitSettled(t, w)
	require.Equal(t, types.StatusSuccess, status)
	require.Len(t, products, 2)

	require.Equal(t, a, products[0].ID)
	require.Equal(t, b, products[1].ID)
	require.Equal(t, "groceries", products[0].StoreName)
	require.Equal(t, f.owner, products[0].StoreOwner)
	require.Equal(t, "1.5", products[0].PriceUnits())

	// scoped event stream ignores the other store
	f.addProduct(t, other, "nails", price, 100)
	c := f.addProduct(t, mine, "cheese", price, 2)

	products = waitLen(t, w, 3)
	require.Equal(t, c, products[2].ID)
}

func TestWatchProductsNewestFirst(t *testing.T) {
	f := newFixture(t)
	store := f.addStore(t, f.owner, "everything")

	price := types.NewAmount(100)
	f.addProduct(t, store, "one", price, 1)
	f.addProduct(t, store, "two", price, 1)
	f.addProduct(t, store, "three", price, 1)

	w, err := f.engine.WatchProducts(f.ctx)
	require.NoError(t, err)
	defer w.Stop()

	products, status := waitSettled(t, w)
	require.Equal(t, types.StatusSuccess, status)
	require.Len(t, products, 3)
	require.Equal(t, uint64(3), products[0].ID)
	require.Equal(t, uint64(1), products[2].ID)
}

func TestProductWithoutParentStoreDegradesListing(t *testing.T) {
	f := newFixture(t)
	store := f.addStore(t, f.owner, "doomed")
	f.addProduct(t, store, "orphan", types.NewAmount(1), 1)

	keep := f.addStore(t, f.owner, "kept")
	f.addProduct(t, keep, "survivor", types.NewAmount(1), 1)

	require.NoError(t, f.ledger.RemoveStore(f.ctx, store, f.owner))

	w, err := f.engine.WatchProducts(f.ctx)
	require.NoError(t, err)
	defer w.Stop()

	products, status := waitSettled(t, w)
	require.Equal(t, types.StatusPartial, status)
	require.Len(t, products, 1)
	require.Equal(t, "survivor", products[0].Name)
}

func TestWatchProductTracksPurchases(t *testing.T) {
	f := newFixture(t)
	store := f.addStore(t, f.owner, "shop")

	price, err := types.ParseUnits("2")
	require.NoError(t, err)
	id := f.addProduct(t, store, "widget", price, 10)

	pw, err := f.engine.WatchProduct(f.ctx, id)
	require.NoError(t, err)
	defer pw.Stop()

	p, status := pw.Snapshot()
	require.Equal(t, types.StatusSuccess, status)
	require.Equal(t, uint64(10), p.Quantity)

	shopper := addr(t, "0xdddddddddddddddddddddddddddddddddddddddd")
	payment := types.TotalPayment(price, 3)
	require.NoError(t, f.ledger.PurchaseProduct(f.ctx, id, 3, payment, shopper))

	require.Eventually(t, func() bool {
		p, _ = pw.Snapshot()
		return p.Quantity == 7
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatchProductsPatchesQuantityOnPurchase(t *testing.T) {
	f := newFixture(t)
	store := f.addStore(t, f.owner, "shop")

	price, err := types.ParseUnits("1")
	require.NoError(t, err)
	id := f.addProduct(t, store, "widget", price, 10)

	w, err := f.engine.WatchStoreProducts(f.ctx, store)
	require.NoError(t, err)
	defer w.Stop()
	waitSettled(t, w)

	shopper := addr(t, "0xdddddddddddddddddddddddddddddddddddddddd")
	require.NoError(t, f.ledger.PurchaseProduct(f.ctx, id, 4, types.TotalPayment(price, 4), shopper))

	require.Eventually(t, func() bool {
		products, _ := w.Snapshot()
		return len(products) == 1 && products[0].Quantity == 6
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatchOwnersAggregates(t *testing.T) {
	f := newFixture(t)
	other := addr(t, "0xcccccccccccccccccccccccccccccccccccccccc")
	require.NoError(t, f.ledger.AddStoreowner(f.ctx, other, f.admin))

	s1 := f.addStore(t, f.owner, "one")
	s2 := f.addStore(t, f.owner, "two")
	f.addProduct(t, s1, "a", types.NewAmount(1), 1)
	f.addProduct(t, s2, "b", types.NewAmount(1), 1)
	f.addProduct(t, s2, "c", types.NewAmount(1), 1)

	w, err := f.engine.WatchOwners(f.ctx)
	require.NoError(t, err)
	defer w.Stop()

	owners, status := waitSettled(t, w)
	require.Equal(t, types.StatusSuccess, status)
	require.Len(t, owners, 2)

	byAddr := map[types.Address]types.OwnerProfile{}
	for _, o := range owners {
		byAddr[o.Address] = o
	}
	require.Equal(t, uint64(2), byAddr[f.owner].StoreCount)
	require.Equal(t, uint64(3), byAddr[f.owner].ProductCount)
	require.Equal(t, uint64(0), byAddr[other].StoreCount)

	// a newly appointed storeowner arrives through the event stream
	third := addr(t, "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	require.NoError(t, f.ledger.AddStoreowner(f.ctx, third, f.admin))
	waitLen(t, w, 3)
}

func TestGetStoreNotFound(t *testing.T) {
	f := newFixture(t)
	id := f.addStore(t, f.owner, "gone")
	require.NoError(t, f.ledger.RemoveStore(f.ctx, id, f.owner))

	_, err := f.engine.GetStore(f.ctx, id)
	require.ErrorIs(t, err, api.ErrNotFound)

	_, err = f.engine.GetStore(f.ctx, 999)
	require.ErrorIs(t, err, api.ErrNotFound)
}

func TestRoleResolution(t *testing.T) {
	f := newFixture(t)

	role, err := f.engine.Role(f.ctx, f.admin)
	require.NoError(t, err)
	require.Equal(t, types.RoleAdmin, role)

	role, err = f.engine.Role(f.ctx, f.owner)
	require.NoError(t, err)
	require.Equal(t, types.RoleOwner, role)

	role, err = f.engine.Role(f.ctx, addr(t, "0xdddddddddddddddddddddddddddddddddddddddd"))
	require.NoError(t, err)
	require.Equal(t, types.RoleShopper, role)
}

// stallingStores holds GetStore open until its context is canceled, keeping
// a bulk walk mid-iteration so teardown can land inside it.
type stallingStores struct {
	api.StoreRegistry
	entered chan struct{}
	once    sync.Once
}

func (s *stallingStores) GetStore(ctx context.Context, id uint64) (api.StoreInfo, error) {
	s.once.Do(func() { close(s.entered) })
	<-ctx.Done()
	return api.StoreInfo{}, ctx.Err()
}

type stallingResolver struct {
	ledgerResolver
	stores *stallingStores
}

func (r *stallingResolver) Stores(ctx context.Context) (api.StoreRegistry, func() error, error) {
	return r.stores, nil, nil
}

func TestStoppedWatchEndsWalkQuietly(t *testing.T) {
	ctx := context.Background()
	admin := addr(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	owner := addr(t, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	ledger := mock.NewLedger(admin)
	require.NoError(t, ledger.AddStoreowner(ctx, owner, admin))
	for i := 0; i < 3; i++ {
		require.NoError(t, ledger.AddStore(ctx, chash.Sum([]byte{byte(i)}), owner))
	}

	notifier := alerting.NewNotifier()
	stalled := &stallingStores{StoreRegistry: ledger, entered: make(chan struct{})}
	cache := bindings.NewCache(&stallingResolver{ledgerResolver{ledger: ledger}, stalled}, notifier)
	cache.LoadAll(ctx)

	engine, err := market.New(cache, blobstore.NewMemBlobstore(), notifier)
	require.NoError(t, err)

	w, err := engine.WatchStores(ctx)
	require.NoError(t, err)

	// the walk is inside its first fetch when the watch is stopped
	<-stalled.entered
	w.Stop()

	// the remaining iterations are abandoned, not reported as failures
	require.Never(t, func() bool {
		return len(notifier.History()) > 0
	}, 200*time.Millisecond, 10*time.Millisecond)

	// a dead watch never settles to a misleading status
	_, status := w.Snapshot()
	require.Equal(t, types.StatusLoading, status)
}

func TestBalanceAfterPurchase(t *testing.T) {
	f := newFixture(t)
	store := f.addStore(t, f.owner, "shop")

	price, err := types.ParseUnits("0.5")
	require.NoError(t, err)
	id := f.addProduct(t, store, "thing", price, 4)

	bal, err := f.engine.Balance(f.ctx, f.owner)
	require.NoError(t, err)
	require.True(t, bal.IsZero())

	shopper := addr(t, "0xdddddddddddddddddddddddddddddddddddddddd")
	require.NoError(t, f.ledger.PurchaseProduct(f.ctx, id, 2, types.TotalPayment(price, 2), shopper))

	bal, err = f.engine.Balance(f.ctx, f.owner)
	require.NoError(t, err)
	require.Equal(t, "1", types.FormatUnits(bal))
}
