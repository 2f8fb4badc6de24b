package bindings

import (
	"context"
	"net/http"

	"github.com/filecoin-project/go-jsonrpc"

	"github.com/blockmarket/blockmarket/api"
	"github.com/blockmarket/blockmarket/api/client"
)

// RPCResolver resolves registry bindings by dialing the registry RPC
// endpoint.
type RPCResolver struct {
	Addr   string
	Header http.Header
}

var _ Resolver = (*RPCResolver)(nil)

func NewRPCResolver(addr string, header http.Header) *RPCResolver {
	return &RPCResolver{Addr: addr, Header: header}
}

func wrapCloser(c jsonrpc.ClientCloser) func() error {
	return func() error {
		c()
		return nil
	}
}

func (r *RPCResolver) Stores(ctx context.Context) (api.StoreRegistry, func() error, error) {
	reg, closer, err := client.NewStoreRegistryRPC(ctx, r.Addr, r.Header)
	if err != nil {
		return nil, nil, err
	}
	return reg, wrapCloser(closer), nil
}

func (r *RPCResolver) Products(ctx context.Context) (api.ProductRegistry, func() error, error) {
	reg, closer, err := client.NewProductRegistryRPC(ctx, r.Addr, r.Header)
	if err != nil {
		return nil, nil, err
	}
	return reg, wrapCloser(closer), nil
}

func (r *RPCResolver) Access(ctx context.Context) (api.AccessRegistry, func() error, error) {
	reg, closer, err := client.NewAccessRegistryRPC(ctx, r.Addr, r.Header)
	if err != nil {
		return nil, nil, err
	}
	return reg, wrapCloser(closer), nil
}

func (r *RPCResolver) Funds(ctx context.Context) (api.FundsRegistry, func() error, error) {
	reg, closer, err := client.NewFundsRegistryRPC(ctx, r.Addr, r.Header)
	if err != nil {
		return nil, nil, err
	}
	return reg, wrapCloser(closer), nil
}
