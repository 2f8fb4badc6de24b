// Package node assembles the client: blob store, registry bindings,
// connection monitor, reconciliation engine and action submitter, all wired
// from one config.
package node

import (
	"context"
	"net/http"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/multiformats/go-multiaddr"
	"go.opencensus.io/stats/view"
	"go.uber.org/multierr"
	"golang.org/x/xerrors"

	"github.com/blockmarket/blockmarket/alerting"
	"github.com/blockmarket/blockmarket/blobstore"
	"github.com/blockmarket/blockmarket/chain/actions"
	"github.com/blockmarket/blockmarket/chain/bindings"
	"github.com/blockmarket/blockmarket/chain/conn"
	"github.com/blockmarket/blockmarket/chain/market"
	"github.com/blockmarket/blockmarket/metrics"
	"github.com/blockmarket/blockmarket/node/config"
)

var log = logging.Logger("node")

// Node is a running client instance.
type Node struct {
	Config   *config.Node
	Notifier *alerting.Notifier
	Bindings *bindings.Cache
	Monitor  *conn.Monitor
	Market   *market.Engine
	Actions  *actions.Submitter
	Blobs    blobstore.Blobstore

	wallet *conn.RPCWallet
}

// New wires a node from config. The IPFS endpoint must be reachable; chain
// and wallet endpoints may come up later, the monitor keeps probing them.
func New(ctx context.Context, cfg *config.Node) (*Node, error) {
	if err := view.Register(metrics.DefaultViews...); err != nil {
		return nil, xerrors.Errorf("registering metric views: %w", err)
	}

	maddr, err := multiaddr.NewMultiaddr(cfg.Ipfs.ApiAddress)
	if err != nil {
		return nil, xerrors.Errorf("parsing ipfs api address: %w", err)
	}
	blobs, err := blobstore.NewIpfsBlobstore(ctx, maddr)
	if err != nil {
		return nil, xerrors.Errorf("connecting to ipfs: %w", err)
	}

	notifier := alerting.NewNotifier()

	cache := bindings.NewCache(&bindings.RPCResolver{
		Addr:   cfg.Registry.Endpoint,
		Header: http.Header{},
	}, notifier)

	wallet := conn.NewRPCWallet(cfg.Wallet.Endpoint, http.Header{})
	monitor := conn.NewMonitor(wallet, cache, notifier, conn.Config{
		PresenceInterval: time.Duration(cfg.Polling.ProviderInterval),
		AccountInterval:  time.Duration(cfg.Polling.AccountInterval),
	})

	engine, err := market.New(cache, blobs, notifier)
	if err != nil {
		return nil, err
	}

	return &Node{
		Config:   cfg,
		Notifier: notifier,
		Bindings: cache,
		Monitor:  monitor,
		Market:   engine,
		Actions:  actions.NewSubmitter(cache, blobs, monitor, notifier),
		Blobs:    blobs,
		wallet:   wallet,
	}, nil
}

// Start launches the connection monitor.
func (n *Node) Start(ctx context.Context) {
	log.Infow("starting node",
		"wallet", n.Config.Wallet.Endpoint,
		"registry", n.Config.Registry.Endpoint)
	n.Monitor.Start(ctx)
}

// Stop shuts the monitor down and releases all bindings.
func (n *Node) Stop() error {
	return multierr.Append(n.Monitor.Stop(), n.wallet.Close())
}
