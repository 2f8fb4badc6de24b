package mock

import (
	"context"
	"sync"

	"golang.org/x/xerrors"

	"github.com/blockmarket/blockmarket/api"
	"github.com/blockmarket/blockmarket/chain/types"
)

// Wallet is a controllable wallet provider. Tests flip reachability and swap
// accounts to drive the connection monitor through its states.
type Wallet struct {
	mu        sync.Mutex
	reachable bool
	accounts  []types.Address
}

var _ api.Wallet = (*Wallet)(nil)

func NewWallet() *Wallet {
	return &Wallet{}
}

func (w *Wallet) SetReachable(ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reachable = ok
}

func (w *Wallet) SetAccounts(accts ...types.Address) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accounts = append([]types.Address(nil), accts...)
}

func (w *Wallet) Version(ctx context.Context) (api.Version, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.reachable {
		return api.Version{}, xerrors.New("wallet provider unreachable")
	}
	return api.Version{Version: "mock-wallet/1.0"}, nil
}

func (w *Wallet) Accounts(ctx context.Context) ([]types.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.reachable {
		return nil, xerrors.New("wallet provider unreachable")
	}
	return append([]types.Address(nil), w.accounts...), nil
}
