package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultNode()
	require.Equal(t, time.Second, time.Duration(cfg.Polling.ProviderInterval))
	require.Equal(t, 3*time.Second, time.Duration(cfg.Polling.AccountInterval))
	require.NotEmpty(t, cfg.Wallet.Endpoint)
}

func TestFromReaderLayersOverDefaults(t *testing.T) {
	cfg, err := FromReader(strings.NewReader(`
[Wallet]
Endpoint = "ws://10.0.0.1:8546"

[Polling]
AccountInterval = "5s"
`))
	require.NoError(t, err)

	require.Equal(t, "ws://10.0.0.1:8546", cfg.Wallet.Endpoint)
	require.Equal(t, 5*time.Second, time.Duration(cfg.Polling.AccountInterval))
	// untouched sections keep their defaults
	require.Equal(t, time.Second, time.Duration(cfg.Polling.ProviderInterval))
	require.Equal(t, "/ip4/127.0.0.1/tcp/5001", cfg.Ipfs.ApiAddress)
}

func TestFromFileMissingIsDefaults(t *testing.T) {
	cfg, err := FromFile("/nonexistent/config.toml")
	require.NoError(t, err)
	require.Equal(t, DefaultNode(), cfg)
}

func TestRoundTrip(t *testing.T) {
	cfg := DefaultNode()
	cfg.Registry.Endpoint = "ws://chain.example:8545"

	raw, err := Encode(cfg)
	require.NoError(t, err)

	back, err := FromReader(strings.NewReader(string(raw)))
	require.NoError(t, err)
	require.Equal(t, cfg, back)
}

func TestBadDuration(t *testing.T) {
	_, err := FromReader(strings.NewReader(`
[Polling]
AccountInterval = "soon"
`))
	require.Error(t, err)
}
