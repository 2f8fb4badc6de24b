package conn

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/require"

	"github.com/blockmarket/blockmarket/alerting"
	"github.com/blockmarket/blockmarket/api"
	"github.com/blockmarket/blockmarket/chain/bindings"
	"github.com/blockmarket/blockmarket/chain/mock"
	"github.com/blockmarket/blockmarket/chain/types"
)

type fakeResolver struct {
	ledger *mock.Ledger
	closes atomic.Int64
}

func (r *fakeResolver) closer() func() error {
	return func() error {
		r.closes.Add(1)
		return nil
	}
}

func (r *fakeResolver) Stores(ctx context.Context) (api.StoreRegistry, func() error, error) {
	return r.ledger, r.closer(), nil
}

func (r *fakeResolver) Products(ctx context.Context) (api.ProductRegistry, func() error, error) {
	return r.ledger, r.closer(), nil
}

func (r *fakeResolver) Access(ctx context.Context) (api.AccessRegistry, func() error, error) {
	return r.ledger, r.closer(), nil
}

func (r *fakeResolver) Funds(ctx context.Context) (api.FundsRegistry, func() error, error) {
	return r.ledger, r.closer(), nil
}

func testAddr(t *testing.T, s string) types.Address {
	t.Helper()
	a, err := types.ParseAddress(s)
	require.NoError(t, err)
	return a
}

type harness struct {
	wallet  *mock.Wallet
	cache   *bindings.Cache
	monitor *Monitor
	mclock  *clock.Mock
	changes <-chan AccountChange
	cancel  func()
}

func newHarness(t *testing.T) *harness {
	admin := testAddr(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	wallet := mock.NewWallet()
	cache := bindings.NewCache(&fakeResolver{ledger: mock.NewLedger(admin)}, alerting.NewNotifier())

	m := NewMonitor(wallet, cache, alerting.NewNotifier(), Config{})
	mc := clock.NewMock()
	m.clock = mc

	changes, cancel := m.SubAccountChanges()

	m.Start(context.Background())
	t.Cleanup(func() {
		cancel()
		require.NoError(t, m.Stop())
	})

	return &harness{wallet: wallet, cache: cache, monitor: m, mclock: mc, changes: changes, cancel: cancel}
}

// advanceUntil steps the mock clock until cond holds, failing the test if it
// never does.
func (h *harness) advanceUntil(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 200; i++ {
		h.mclock.Add(time.Second)
		time.Sleep(2 * time.Millisecond)
		if cond() {
			return
		}
	}
	t.Fatal("condition never reached")
}

func (h *harness) nextChange(t *testing.T) AccountChange {
	t.Helper()
	select {
	case ev := <-h.changes:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no account change event")
		return AccountChange{}
	}
}

func TestStopIdempotent(t *testing.T) {
	h := newHarness(t)

	h.mclock.Add(time.Second)
	require.NoError(t, h.monitor.Stop())

	// repeated teardown is a no-op, like the rest of the teardown paths
	require.NotPanics(t, func() {
		require.NoError(t, h.monitor.Stop())
	})
}

func TestStopWithoutStart(t *testing.T) {
	admin := testAddr(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	cache := bindings.NewCache(&fakeResolver{ledger: mock.NewLedger(admin)}, alerting.NewNotifier())
	m := NewMonitor(mock.NewWallet(), cache, alerting.NewNotifier(), Config{})

	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())
}

func TestProviderAbsent(t *testing.T) {
	h := newHarness(t)

	h.mclock.Add(5 * time.Second)
	require.False(t, h.monitor.ProviderPresent())

	_, err := h.monitor.CurrentAccount()
	require.ErrorIs(t, err, api.ErrNoAccount)

	_, err = h.cache.Stores()
	require.ErrorIs(t, err, api.ErrNotReady)
}

func TestProviderFoundAndAccountDetected(t *testing.T) {
	h := newHarness(t)
	acct := testAddr(t, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	h.wallet.SetReachable(true)
	h.wallet.SetAccounts(acct)

	h.advanceUntil(t, func() bool {
		got, err := h.monitor.CurrentAccount()
		return err == nil && got == acct
	})
	require.True(t, h.monitor.ProviderPresent())

	ev := h.nextChange(t)
	require.True(t, ev.Previous.Empty())
	require.Equal(t, acct, ev.Current)

	// bindings loaded on the confirmed account
	_, err := h.cache.Stores()
	require.NoError(t, err)
}

func TestAccountSwitchReloadsBindings(t *testing.T) {
	h := newHarness(t)
	first := testAddr(t, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	second := testAddr(t, "0xcccccccccccccccccccccccccccccccccccccccc")

	h.wallet.SetReachable(true)
	h.wallet.SetAccounts(first)
	h.advanceUntil(t, func() bool {
		got, err := h.monitor.CurrentAccount()
		return err == nil && got == first
	})
	h.nextChange(t)

	h.wallet.SetAccounts(second)
	h.advanceUntil(t, func() bool {
		got, err := h.monitor.CurrentAccount()
		return err == nil && got == second
	})

	ev := h.nextChange(t)
	require.Equal(t, first, ev.Previous)
	require.Equal(t, second, ev.Current)

	_, err := h.cache.Stores()
	require.NoError(t, err)
}

func TestAccountsLockedClearsAccount(t *testing.T) {
	h := newHarness(t)
	acct := testAddr(t, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	h.wallet.SetReachable(true)
	h.wallet.SetAccounts(acct)
	h.advanceUntil(t, func() bool {
		_, err := h.monitor.CurrentAccount()
		return err == nil
	})
	h.nextChange(t)

	h.wallet.SetAccounts()
	h.advanceUntil(t, func() bool {
		_, err := h.monitor.CurrentAccount()
		return err != nil
	})

	ev := h.nextChange(t)
	require.Equal(t, acct, ev.Previous)
	require.True(t, ev.Current.Empty())

	// still present, but bindings are gone until an account comes back
	require.True(t, h.monitor.ProviderPresent())
	_, err := h.cache.Stores()
	require.ErrorIs(t, err, api.ErrNotReady)
}

func TestProviderLossUnloadsAndRecovers(t *testing.T) {
	h := newHarness(t)
	acct := testAddr(t, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	h.wallet.SetReachable(true)
	h.wallet.SetAccounts(acct)
	h.advanceUntil(t, func() bool {
		_, err := h.monitor.CurrentAccount()
		return err == nil
	})
	h.nextChange(t)

	h.wallet.SetReachable(false)
	h.advanceUntil(t, func() bool {
		return !h.monitor.ProviderPresent()
	})

	ev := h.nextChange(t)
	require.Equal(t, acct, ev.Previous)
	require.True(t, ev.Current.Empty())

	_, err := h.monitor.CurrentAccount()
	require.ErrorIs(t, err, api.ErrNoAccount)
	_, err = h.cache.Stores()
	require.ErrorIs(t, err, api.ErrNotReady)

	// provider comes back with the same account
	h.wallet.SetReachable(true)
	h.advanceUntil(t, func() bool {
		got, err := h.monitor.CurrentAccount()
		return err == nil && got == acct
	})

	ev = h.nextChange(t)
	require.True(t, ev.Previous.Empty())
	require.Equal(t, acct, ev.Current)

	_, err = h.cache.Stores()
	require.NoError(t, err)
}
