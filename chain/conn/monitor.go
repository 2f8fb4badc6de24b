// Package conn tracks wallet provider presence and the active account.
//
// The monitor runs a single goroutine that alternates between two polling
// modes: a presence probe while no provider is reachable, and an account
// poll once one is. Provider loss drops the monitor back to presence
// probing and unloads every registry binding; a confirmed account change
// reloads them and fans out an AccountChange event.
package conn

import (
	"context"
	"sync"
	"time"

	"github.com/filecoin-project/pubsub"
	logging "github.com/ipfs/go-log/v2"
	"github.com/raulk/clock"
	"go.opencensus.io/stats"

	"github.com/blockmarket/blockmarket/alerting"
	"github.com/blockmarket/blockmarket/api"
	"github.com/blockmarket/blockmarket/build"
	"github.com/blockmarket/blockmarket/chain/bindings"
	"github.com/blockmarket/blockmarket/chain/types"
	"github.com/blockmarket/blockmarket/metrics"
)

var log = logging.Logger("conn")

const accountChangeTopic = "account-change"

// AccountChange is published whenever the active account transitions,
// including to and from the empty (locked) state.
type AccountChange struct {
	Previous types.Address
	Current  types.Address
}

type Config struct {
	// PresenceInterval is how often to probe for a provider while none is
	// reachable. Zero means build.ProviderPollInterval.
	PresenceInterval time.Duration
	// AccountInterval is how often to poll accounts while a provider is
	// reachable. Zero means build.AccountPollInterval.
	AccountInterval time.Duration
}

// Monitor owns provider presence and the active account. All reads are
// snapshots; the polling goroutine is the only writer.
type Monitor struct {
	wallet   api.Wallet
	bindings *bindings.Cache
	notifier *alerting.Notifier
	bus      *pubsub.PubSub
	clock    clock.Clock

	presenceInterval time.Duration
	accountInterval  time.Duration

	lk      sync.Mutex
	present bool
	account types.Address
	started bool
	stopped bool

	closing chan struct{}
	closed  chan struct{}
}

func NewMonitor(wallet api.Wallet, cache *bindings.Cache, notifier *alerting.Notifier, cfg Config) *Monitor {
	if cfg.PresenceInterval == 0 {
		cfg.PresenceInterval = build.ProviderPollInterval
	}
	if cfg.AccountInterval == 0 {
		cfg.AccountInterval = build.AccountPollInterval
	}

	return &Monitor{
		wallet:           wallet,
		bindings:         cache,
		notifier:         notifier,
		bus:              pubsub.New(16),
		clock:            build.Clock,
		presenceInterval: cfg.PresenceInterval,
		accountInterval:  cfg.AccountInterval,
		closing:          make(chan struct{}),
		closed:           make(chan struct{}),
	}
}

// Start launches the polling loop. It may be called once.
func (m *Monitor) Start(ctx context.Context) {
	m.lk.Lock()
	if m.started {
		m.lk.Unlock()
		log.Warnf("monitor already started")
		return
	}
	m.started = true
	m.lk.Unlock()

	go m.run(ctx)
}

// Stop terminates the polling loop and unloads all bindings. Idempotent,
// and safe to call whether or not Start ran.
func (m *Monitor) Stop() error {
	m.lk.Lock()
	stop := m.started && !m.stopped
	m.stopped = true
	m.lk.Unlock()

	if stop {
		close(m.closing)
		<-m.closed
	}
	m.setAccount(types.UndefAddress)
	m.setPresent(false)
	return m.bindings.UnloadAll()
}

// CurrentAccount returns the active account, or ErrNoAccount when the
// provider is absent or locked.
func (m *Monitor) CurrentAccount() (types.Address, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	if m.account.Empty() {
		return types.UndefAddress, api.ErrNoAccount
	}
	return m.account, nil
}

// ProviderPresent reports whether a wallet provider answered the most
// recent probe.
func (m *Monitor) ProviderPresent() bool {
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.present
}

// SubAccountChanges subscribes to account transitions. The cancel func is
// idempotent.
func (m *Monitor) SubAccountChanges() (<-chan AccountChange, func()) {
	in := m.bus.Sub(accountChangeTopic)
	out := make(chan AccountChange, 16)

	go func() {
		defer close(out)
		for v := range in {
			out <- v.(AccountChange)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.bus.Unsub(in, accountChangeTopic)
		})
	}
	return out, cancel
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.closed)

	ticker := m.clock.Ticker(m.presenceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.closing:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := m.wallet.Version(ctx); err != nil {
			if m.ProviderPresent() {
				log.Warnw("wallet provider lost", "error", err)
				m.providerLost(ctx)
			}
			continue
		}

		if !m.ProviderPresent() {
			log.Infow("wallet provider found")
			stats.Record(ctx, metrics.ProviderFound.M(1))
			m.setPresent(true)
		}

		// provider reachable; hold here polling accounts until it is lost
		if !m.watchAccounts(ctx) {
			return
		}
	}
}

// watchAccounts polls the account list until the provider is lost or the
// monitor shuts down. Returns false on shutdown.
func (m *Monitor) watchAccounts(ctx context.Context) bool {
	ticker := m.clock.Ticker(m.accountInterval)
	defer ticker.Stop()

	if !m.pollAccounts(ctx) {
		m.providerLost(ctx)
		return true
	}

	for {
		select {
		case <-m.closing:
			return false
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}

		if !m.pollAccounts(ctx) {
			m.providerLost(ctx)
			return true
		}
	}
}

// pollAccounts reads the account list once. Returns false if the provider
// did not answer.
//
// An empty account list (a locked wallet) is not provider loss: the
// provider answered, so the monitor stays in the account loop with the
// account cleared and bindings unloaded. A restarted presence probe would
// land back here on its next success with the same observable state, so
// the two converge; staying avoids tearing down a provider we know is up.
func (m *Monitor) pollAccounts(ctx context.Context) bool {
	accts, err := m.wallet.Accounts(ctx)
	if err != nil {
		log.Warnw("reading accounts", "error", err)
		return false
	}

	var next types.Address
	if len(accts) > 0 {
		next = accts[0]
	}

	m.lk.Lock()
	prev := m.account
	m.lk.Unlock()

	// Address bytes are canonical regardless of the hex casing the provider
	// reported, so equality is the case-insensitive comparison.
	if prev != next {
		m.accountChanged(ctx, prev, next)
	}
	return true
}

func (m *Monitor) accountChanged(ctx context.Context, prev, next types.Address) {
	log.Infow("account changed", "previous", prev, "current", next)
	stats.Record(ctx, metrics.AccountChanges.M(1))

	m.setAccount(next)

	if next.Empty() {
		if err := m.bindings.UnloadAll(); err != nil {
			m.notifier.Errorf("conn", "unloading bindings: %s", err)
		}
	} else {
		m.bindings.LoadAll(ctx)
	}

	m.bus.Pub(AccountChange{Previous: prev, Current: next}, accountChangeTopic)
}

func (m *Monitor) providerLost(ctx context.Context) {
	m.setPresent(false)

	m.lk.Lock()
	prev := m.account
	m.lk.Unlock()

	if !prev.Empty() {
		m.accountChanged(ctx, prev, types.UndefAddress)
	}
}

func (m *Monitor) setPresent(v bool) {
	m.lk.Lock()
	m.present = v
	m.lk.Unlock()
}

func (m *Monitor) setAccount(a types.Address) {
	m.lk.Lock()
	m.account = a
	m.lk.Unlock()
}
