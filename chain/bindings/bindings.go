// Package bindings caches resolved registry bindings for the current
// provider. A binding is a live client handle against one deployed registry;
// exactly one per kind may be loaded at a time, and every confirmed account
// change forces a reload because "loaded" stands in for "ready to query with
// the current account's context".
package bindings

import (
	"context"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/stats"
	"go.uber.org/multierr"

	"github.com/blockmarket/blockmarket/alerting"
	"github.com/blockmarket/blockmarket/api"
	"github.com/blockmarket/blockmarket/metrics"
)

var log = logging.Logger("bindings")

// Resolver resolves a deployed registry against the current provider. The
// returned closer tears the binding down; it may be nil.
type Resolver interface {
	Stores(ctx context.Context) (api.StoreRegistry, func() error, error)
	Products(ctx context.Context) (api.ProductRegistry, func() error, error)
	Access(ctx context.Context) (api.AccessRegistry, func() error, error)
	Funds(ctx context.Context) (api.FundsRegistry, func() error, error)
}

// Cache holds at most one loaded binding per registry kind.
type Cache struct {
	resolver Resolver
	notifier *alerting.Notifier

	lk sync.Mutex

	stores        api.StoreRegistry
	storesClose   func() error
	products      api.ProductRegistry
	productsClose func() error
	access        api.AccessRegistry
	accessClose   func() error
	funds         api.FundsRegistry
	fundsClose    func() error
}

func NewCache(resolver Resolver, notifier *alerting.Notifier) *Cache {
	return &Cache{
		resolver: resolver,
		notifier: notifier,
	}
}

// LoadAll (re)resolves every binding. Resolution is fail-soft: a kind that
// cannot be resolved is reported to the notifier and left unloaded; the
// others still load. Loading over an existing binding closes it first, so
// calling LoadAll after an account change always yields fresh bindings.
func (c *Cache) LoadAll(ctx context.Context) {
	c.lk.Lock()
	defer c.lk.Unlock()

	if reg, closer, err := c.resolver.Stores(ctx); err != nil {
		c.loadFailed(ctx, "stores", err)
	} else {
		closeQuiet(c.storesClose)
		c.stores, c.storesClose = reg, closer
	}

	if reg, closer, err := c.resolver.Products(ctx); err != nil {
		c.loadFailed(ctx, "products", err)
	} else {
		closeQuiet(c.productsClose)
		c.products, c.productsClose = reg, closer
	}

	if reg, closer, err := c.resolver.Access(ctx); err != nil {
		c.loadFailed(ctx, "access", err)
	} else {
		closeQuiet(c.accessClose)
		c.access, c.accessClose = reg, closer
	}

	if reg, closer, err := c.resolver.Funds(ctx); err != nil {
		c.loadFailed(ctx, "funds", err)
	} else {
		closeQuiet(c.fundsClose)
		c.funds, c.fundsClose = reg, closer
	}

	log.Infow("bindings loaded",
		"stores", c.stores != nil,
		"products", c.products != nil,
		"access", c.access != nil,
		"funds", c.funds != nil)
}

func (c *Cache) loadFailed(ctx context.Context, kind string, err error) {
	stats.Record(ctx, metrics.BindingLoadFailures.M(1))
	c.notifier.Errorf("bindings", "resolving %s registry: %s", kind, err)
}

// UnloadAll discards every binding. Idempotent: unloading an already
// unloaded cache is a no-op.
func (c *Cache) UnloadAll() error {
	c.lk.Lock()
	defer c.lk.Unlock()

	var err error
	err = multierr.Append(err, closeBinding(&c.stores, &c.storesClose))
	err = multierr.Append(err, closeBinding(&c.products, &c.productsClose))
	err = multierr.Append(err, closeBinding(&c.access, &c.accessClose))
	err = multierr.Append(err, closeBinding(&c.funds, &c.fundsClose))
	return err
}

func closeBinding[T any](reg *T, closer *func() error) error {
	var zero T
	var err error
	if *closer != nil {
		err = (*closer)()
	}
	*reg = zero
	*closer = nil
	return err
}

func closeQuiet(closer func() error) {
	if closer != nil {
		if err := closer(); err != nil {
			log.Warnw("closing stale binding", "error", err)
		}
	}
}

// Stores returns the store registry binding, or ErrNotReady if unloaded.
func (c *Cache) Stores() (api.StoreRegistry, error) {
	c.lk.Lock()
	defer c.lk.Unlock()
	if c.stores == nil {
		return nil, api.ErrNotReady
	}
	return c.stores, nil
}

// Products returns the product registry binding, or ErrNotReady if unloaded.
func (c *Cache) Products() (api.ProductRegistry, error) {
	c.lk.Lock()
	defer c.lk.Unlock()
	if c.products == nil {
		return nil, api.ErrNotReady
	}
	return c.products, nil
}

// Access returns the access registry binding, or ErrNotReady if unloaded.
func (c *Cache) Access() (api.AccessRegistry, error) {
	c.lk.Lock()
	defer c.lk.Unlock()
	if c.access == nil {
		return nil, api.ErrNotReady
	}
	return c.access, nil
}

// Funds returns the funds registry binding, or ErrNotReady if unloaded.
func (c *Cache) Funds() (api.FundsRegistry, error) {
	c.lk.Lock()
	defer c.lk.Unlock()
	if c.funds == nil {
		return nil, api.ErrNotReady
	}
	return c.funds, nil
}
