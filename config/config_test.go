package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridge-swap/pkg/client"
	"bridge-swap/pkg/lifecycle"
	"bridge-swap/pkg/widget"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge-swap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "provider: api\n"))
	require.NoError(t, err)

	assert.Equal(t, client.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, int64(1), cfg.DefaultFrom)
	assert.Equal(t, "https://base-rpc.publicnode.com", cfg.RPCURLs()[8453])

	tr := cfg.TrackerSettings()
	assert.Equal(t, lifecycle.DefaultWatchdog, tr.Watchdog)
	assert.Equal(t, lifecycle.DefaultOrderMaxAttempts, tr.OrderMaxAttempts)
	assert.Equal(t, common.Hash{}, tr.OrderOpenedTopic)

	assert.Error(t, cfg.RequireWallet())
	assert.Equal(t, widget.ModeBridgeAndSwap, cfg.WidgetSettings().Mode)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
base_url: http://localhost:9000
private_key: "0x01"
chains:
  "10":
    rpc_url: http://op.local
quote:
  refetch_interval: 30s
tracker:
  watchdog: 1m
  order_max_attempts: 50
  order_opened_topic: "0x1111111111111111111111111111111111111111111111111111111111111111"
widget:
  mode: swap
  networks:
    from: [1, 8453]
    to: "8453"
  default_tokens:
    to:
      chain_id: 8453
      address: "0x833589FCD6EDB6E08F4C7C32D4F71B54BDA02913"
      symbol: USDC
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.BaseURL)
	assert.NoError(t, cfg.RequireWallet())
	assert.Equal(t, "http://op.local", cfg.RPCURLs()[10])
	assert.Equal(t, 30*time.Second, cfg.QuoteSettings().RefetchInterval)

	tr := cfg.TrackerSettings()
	assert.Equal(t, time.Minute, tr.Watchdog)
	assert.Equal(t, 50, tr.OrderMaxAttempts)
	assert.Equal(t, common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111"), tr.OrderOpenedTopic)

	w := cfg.WidgetSettings()
	assert.Equal(t, widget.ModeSwapOnly, w.Mode)
	assert.Equal(t, []int64{8453}, w.AllowedChainIDs(widget.SideFrom))
	require.NotNil(t, w.DefaultTo)
	assert.Equal(t, "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", w.DefaultTo.Address)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BRIDGE_SWAP_BASE_URL", "http://env.local")
	t.Setenv("BRIDGE_SWAP_TRACKER_ORDER_MAX_ATTEMPTS", "7")
	cfg, err := Load(writeConfig(t, "base_url: http://file.local\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://env.local", cfg.BaseURL)
	assert.Equal(t, 7, cfg.Tracker.OrderMaxAttempts)
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(writeConfig(t, "provider: carrier-pigeon\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "provider: oneclick\n"))
	assert.Error(t, err, "1click needs a token")

	_, err = Load(writeConfig(t, "provider: oneclick\noneclick:\n  jwt_token: abc\n"))
	assert.NoError(t, err)

	_, err = Load(writeConfig(t, "tracker:\n  order_opened_topic: \"0x12\"\n"))
	assert.Error(t, err)
}
