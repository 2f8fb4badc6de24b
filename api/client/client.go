package client

import (
	"context"
	"net/http"

	"github.com/filecoin-project/go-jsonrpc"

	"github.com/blockmarket/blockmarket/api"
	"github.com/blockmarket/blockmarket/api/apistruct"
)

// NewWalletRPC creates a new http jsonrpc client for the wallet provider.
func NewWalletRPC(ctx context.Context, addr string, requestHeader http.Header) (api.Wallet, jsonrpc.ClientCloser, error) {
	var res apistruct.WalletStruct
	closer, err := jsonrpc.NewMergeClient(ctx, addr, "Wallet",
		[]interface{}{
			&res.Internal,
		},
		requestHeader,
	)

	return &res, closer, err
}

// NewStoreRegistryRPC creates a new http jsonrpc client for the store
// registry.
func NewStoreRegistryRPC(ctx context.Context, addr string, requestHeader http.Header) (api.StoreRegistry, jsonrpc.ClientCloser, error) {
	var res apistruct.StoreRegistryStruct
	closer, err := jsonrpc.NewMergeClient(ctx, addr, "Market",
		[]interface{}{
			&res.Internal,
		},
		requestHeader,
	)

	return &res, closer, err
}

// NewProductRegistryRPC creates a new http jsonrpc client for the product
// registry.
func NewProductRegistryRPC(ctx context.Context, addr string, requestHeader http.Header) (api.ProductRegistry, jsonrpc.ClientCloser, error) {
	var res apistruct.ProductRegistryStruct
	closer, err := jsonrpc.NewMergeClient(ctx, addr, "Market",
		[]interface{}{
			&res.Internal,
		},
		requestHeader,
	)

	return &res, closer, err
}

// NewAccessRegistryRPC creates a new http jsonrpc client for the access
// registry.
func NewAccessRegistryRPC(ctx context.Context, addr string, requestHeader http.Header) (api.AccessRegistry, jsonrpc.ClientCloser, error) {
	var res apistruct.AccessRegistryStruct
	closer, err := jsonrpc.NewMergeClient(ctx, addr, "Market",
		[]interface{}{
			&res.Internal,
		},
		requestHeader,
	)

	return &res, closer, err
}

// NewFundsRegistryRPC creates a new http jsonrpc client for the funds
// registry.
func NewFundsRegistryRPC(ctx context.Context, addr string, requestHeader http.Header) (api.FundsRegistry, jsonrpc.ClientCloser, error) {
	var res apistruct.FundsRegistryStruct
	closer, err := jsonrpc.NewMergeClient(ctx, addr, "Market",
		[]interface{}{
			&res.Internal,
		},
		requestHeader,
	)

	return &res, closer, err
}
