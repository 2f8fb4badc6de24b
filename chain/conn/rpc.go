package conn

import (
	"context"
	"net/http"
	"sync"

	"github.com/filecoin-project/go-jsonrpc"

	"github.com/blockmarket/blockmarket/api"
	"github.com/blockmarket/blockmarket/api/client"
	"github.com/blockmarket/blockmarket/chain/types"
)

// RPCWallet is a wallet binding that dials lazily and redials after
// failures. The monitor's presence probe works against this: while the
// provider endpoint is down, every call fails and the cached client is
// dropped, so the next probe attempts a fresh dial.
type RPCWallet struct {
	addr   string
	header http.Header

	lk     sync.Mutex
	wallet api.Wallet
	closer jsonrpc.ClientCloser
}

var _ api.Wallet = (*RPCWallet)(nil)

func NewRPCWallet(addr string, header http.Header) *RPCWallet {
	return &RPCWallet{addr: addr, header: header}
}

func (r *RPCWallet) get(ctx context.Context) (api.Wallet, error) {
	r.lk.Lock()
	defer r.lk.Unlock()

	if r.wallet != nil {
		return r.wallet, nil
	}

	w, closer, err := client.NewWalletRPC(ctx, r.addr, r.header)
	if err != nil {
		return nil, err
	}
	r.wallet, r.closer = w, closer
	return w, nil
}

func (r *RPCWallet) drop() {
	r.lk.Lock()
	defer r.lk.Unlock()

	if r.closer != nil {
		r.closer()
	}
	r.wallet, r.closer = nil, nil
}

func (r *RPCWallet) Version(ctx context.Context) (api.Version, error) {
	w, err := r.get(ctx)
	if err != nil {
		return api.Version{}, err
	}
	v, err := w.Version(ctx)
	if err != nil {
		r.drop()
		return api.Version{}, err
	}
	return v, nil
}

func (r *RPCWallet) Accounts(ctx context.Context) ([]types.Address, error) {
	w, err := r.get(ctx)
	if err != nil {
		return nil, err
	}
	accts, err := w.Accounts(ctx)
	if err != nil {
		r.drop()
		return nil, err
	}
	return accts, nil
}

// Close releases the underlying client, if any.
func (r *RPCWallet) Close() error {
	r.drop()
	return nil
}
