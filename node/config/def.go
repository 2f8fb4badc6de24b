package config

import (
	"encoding"
	"time"

	"github.com/blockmarket/blockmarket/build"
)

// Node is the full client config
type Node struct {
	Wallet   Wallet
	Registry Registry
	Ipfs     Ipfs
	Polling  Polling
}

// Wallet configures the wallet provider endpoint
type Wallet struct {
	// Endpoint is the JSON-RPC address of the wallet provider
	Endpoint string
}

// Registry configures the chain node the registries are queried through
type Registry struct {
	// Endpoint is the JSON-RPC address of the chain node
	Endpoint string
}

// Ipfs configures the blob store
type Ipfs struct {
	// ApiAddress is the multiaddr of the IPFS node's API
	ApiAddress string
}

// Polling configures the connection monitor
type Polling struct {
	// ProviderInterval is how often to probe for a wallet provider while
	// none is reachable
	ProviderInterval Duration
	// AccountInterval is how often to poll the account list while a
	// provider is reachable
	AccountInterval Duration
}

// DefaultNode returns the default config
func DefaultNode() *Node {
	return &Node{
		Wallet: Wallet{
			Endpoint: "ws://127.0.0.1:8546",
		},
		Registry: Registry{
			Endpoint: "ws://127.0.0.1:8545",
		},
		Ipfs: Ipfs{
			ApiAddress: "/ip4/127.0.0.1/tcp/5001",
		},
		Polling: Polling{
			ProviderInterval: Duration(build.ProviderPollInterval),
			AccountInterval:  Duration(build.AccountPollInterval),
		},
	}
}

var _ encoding.TextMarshaler = (*Duration)(nil)
var _ encoding.TextUnmarshaler = (*Duration)(nil)

// Duration is a wrapper type for time.Duration
// for decoding and encoding from/to TOML
type Duration time.Duration

// UnmarshalText implements interface for TOML decoding
func (dur *Duration) UnmarshalText(text []byte) error {
	d, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*dur = Duration(d)
	return err
}

func (dur Duration) MarshalText() ([]byte, error) {
	d := time.Duration(dur)
	return []byte(d.String()), nil
}
