package bindings

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/blockmarket/blockmarket/alerting"
	"github.com/blockmarket/blockmarket/api"
	"github.com/blockmarket/blockmarket/chain/mock"
	"github.com/blockmarket/blockmarket/chain/types"
)

type countingResolver struct {
	ledger *mock.Ledger

	failStores bool
	failFunds  bool

	closes atomic.Int64
}

func (r *countingResolver) closer() func() error {
	return func() error {
		r.closes.Add(1)
		return nil
	}
}

func (r *countingResolver) Stores(ctx context.Context) (api.StoreRegistry, func() error, error) {
	if r.failStores {
		return nil, nil, xerrors.New("stores registry unreachable")
	}
	return r.ledger, r.closer(), nil
}

func (r *countingResolver) Products(ctx context.Context) (api.ProductRegistry, func() error, error) {
	return r.ledger, r.closer(), nil
}

func (r *countingResolver) Access(ctx context.Context) (api.AccessRegistry, func() error, error) {
	return r.ledger, r.closer(), nil
}

func (r *countingResolver) Funds(ctx context.Context) (api.FundsRegistry, func() error, error) {
	if r.failFunds {
		return nil, nil, xerrors.New("funds registry unreachable")
	}
	return r.ledger, r.closer(), nil
}

func testAddr(t *testing.T, s string) types.Address {
	t.Helper()
	a, err := types.ParseAddress(s)
	require.NoError(t, err)
	return a
}

func TestLoadAllFailSoft(t *testing.T) {
	admin := testAddr(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	r := &countingResolver{ledger: mock.NewLedger(admin), failStores: true}
	n := alerting.NewNotifier()
	c := NewCache(r, n)

	c.LoadAll(context.Background())

	_, err := c.Stores()
	require.ErrorIs(t, err, api.ErrNotReady)

	// the other kinds still loaded
	prods, err := c.Products()
	require.NoError(t, err)
	require.NotNil(t, prods)
	_, err = c.Access()
	require.NoError(t, err)
	_, err = c.Funds()
	require.NoError(t, err)

	hist := n.History()
	require.Len(t, hist, 1)
	require.Equal(t, "bindings", hist[0].System)
	require.Contains(t, hist[0].Message, "stores")
}

func TestUnloadAllIdempotent(t *testing.T) {
	admin := testAddr(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	r := &countingResolver{ledger: mock.NewLedger(admin)}
	c := NewCache(r, alerting.NewNotifier())

	c.LoadAll(context.Background())
	require.NoError(t, c.UnloadAll())
	require.Equal(t, int64(4), r.closes.Load())

	// second unload closes nothing further
	require.NoError(t, c.UnloadAll())
	require.Equal(t, int64(4), r.closes.Load())

	_, err := c.Stores()
	require.ErrorIs(t, err, api.ErrNotReady)
	_, err = c.Products()
	require.ErrorIs(t, err, api.ErrNotReady)
	_, err = c.Access()
	require.ErrorIs(t, err, api.ErrNotReady)
	_, err = c.Funds()
	require.ErrorIs(t, err, api.ErrNotReady)
}

func TestReloadClosesStaleBindings(t *testing.T) {
	admin := testAddr(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	r := &countingResolver{ledger: mock.NewLedger(admin)}
	c := NewCache(r, alerting.NewNotifier())

	ctx := context.Background()
	c.LoadAll(ctx)
	require.Equal(t, int64(0), r.closes.Load())

	c.LoadAll(ctx)
	require.Equal(t, int64(4), r.closes.Load())

	// fresh bindings remain usable after the reload
	stores, err := c.Stores()
	require.NoError(t, err)
	counter, err := stores.StoreCounter(ctx)
	require.NoError(t, err)
	require.Zero(t, counter)
}

func TestEmptyCacheNotReady(t *testing.T) {
	admin := testAddr(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	c := NewCache(&countingResolver{ledger: mock.NewLedger(admin)}, alerting.NewNotifier())

	_, err := c.Stores()
	require.ErrorIs(t, err, api.ErrNotReady)
	require.NoError(t, c.UnloadAll())
}
