package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bridge-swap/pkg/types"
)

func TestNormalizeChainFilters(t *testing.T) {
	var raw RawConfig
	raw.Networks.From = "all"
	raw.Networks.To = []interface{}{8453, 8453.0, "10", "x", 1.5}
	cfg := Normalize(raw)

	assert.Equal(t, ModeBridgeAndSwap, cfg.Mode)
	assert.Nil(t, cfg.AllowedChainIDs(SideFrom))
	assert.Equal(t, []int64{8453, 10}, cfg.AllowedChainIDs(SideTo))

	raw.Networks.From = 42161
	raw.Networks.To = "1, 10"
	cfg = Normalize(raw)
	assert.Equal(t, []int64{42161}, cfg.AllowedChainIDs(SideFrom))
	assert.Equal(t, []int64{1, 10}, cfg.AllowedChainIDs(SideTo))

	raw.Networks.To = []interface{}{"bogus"}
	assert.Nil(t, Normalize(raw).AllowedChainIDs(SideTo), "nothing valid means unrestricted")
}

func TestSwapOnlyIntersectsChains(t *testing.T) {
	var raw RawConfig
	raw.Mode = "swap"
	raw.Networks.From = []int{1, 10, 8453}
	raw.Networks.To = []int{8453, 10}
	cfg := Normalize(raw)
	assert.Equal(t, []int64{10, 8453}, cfg.AllowedChainIDs(SideFrom))
	assert.Equal(t, []int64{10, 8453}, cfg.AllowedChainIDs(SideTo))

	raw.Networks.To = []int{42161}
	cfg = Normalize(raw)
	assert.Equal(t, []int64{1, 10, 8453}, cfg.AllowedChainIDs(SideFrom), "empty intersection falls back to from")
	assert.Equal(t, []int64{1, 10, 8453}, cfg.AllowedChainIDs(SideTo))
}

func TestNormalizeAllowedTokens(t *testing.T) {
	var raw RawConfig
	raw.AllowedTokens.From = []AllowedTokenGroup{
		{ChainID: 1, Tokens: []string{"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "  ", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"}},
		{ChainID: 0, Tokens: []string{"0xdead"}},
		{ChainID: 8453, Tokens: []string{types.ZeroAddress}},
	}
	cfg := Normalize(raw)

	assert.Equal(t, []TokenKey{
		{ChainID: 1, Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"},
		{ChainID: 8453, Address: types.ZeroAddress},
	}, cfg.AllowedTokens(SideFrom))
	assert.Nil(t, cfg.AllowedTokens(SideTo))
}

func TestIsTokenAllowed(t *testing.T) {
	var raw RawConfig
	raw.AllowedTokens.From = []AllowedTokenGroup{{ChainID: 1, Tokens: []string{"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"}}}
	cfg := Normalize(raw)

	// chain without rules stays open
	assert.True(t, cfg.IsTokenAllowed(SideFrom, 8453, "0x1234"))
	assert.True(t, cfg.IsTokenAllowed(SideFrom, 8453, ""))

	// chain with rules needs an exact, case-insensitive match
	assert.True(t, cfg.IsTokenAllowed(SideFrom, 1, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"))
	assert.True(t, cfg.IsTokenAllowed(SideFrom, 1, "0xA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48"))
	assert.False(t, cfg.IsTokenAllowed(SideFrom, 1, types.ZeroAddress))
	assert.False(t, cfg.IsTokenAllowed(SideFrom, 1, ""))

	// other side has no rules at all
	assert.True(t, cfg.IsTokenAllowed(SideTo, 1, types.ZeroAddress))
	assert.False(t, cfg.IsTokenAllowed(SideTo, 0, types.ZeroAddress))
}

func TestIsChainAllowed(t *testing.T) {
	var raw RawConfig
	raw.Networks.From = []int{1}
	cfg := Normalize(raw)
	assert.True(t, cfg.IsChainAllowed(SideFrom, 1))
	assert.False(t, cfg.IsChainAllowed(SideFrom, 10))
	assert.True(t, cfg.IsChainAllowed(SideTo, 10))
	assert.False(t, cfg.IsChainAllowed(SideTo, 0))

	var zero Config
	assert.True(t, zero.IsChainAllowed(SideFrom, 8453))
	assert.True(t, zero.IsTokenAllowed(SideTo, 8453, "0xabc"))
}

func TestResolveDefaultsSwapOnly(t *testing.T) {
	var raw RawConfig
	raw.Mode = "swap"
	raw.DefaultTokens.To = &DefaultToken{ChainID: 8453, Address: "0x833589FCD6EDB6E08F4C7C32D4F71B54BDA02913", Symbol: "USDC"}
	cfg := Normalize(raw)

	eth := types.NewTokenRef(1, types.ZeroAddress, "ETH", 18)
	usdt := types.NewTokenRef(1, "0xdac17f958d2ee523a2206206994597c13d831ec7", "USDT", 6)

	from, to, changed := cfg.ResolveDefaults(eth, usdt)
	assert.True(t, changed)
	assert.Equal(t, int64(8453), from.ChainID)
	assert.Equal(t, types.ZeroAddress, from.Address)
	assert.Equal(t, "ETH", from.Symbol)
	assert.Equal(t, "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", to.Address)
	assert.Equal(t, "USDC", to.Symbol)

	_, _, changed = cfg.ResolveDefaults(from, to)
	assert.False(t, changed, "resolution is stable")
}

func TestResolveDefaultsBridge(t *testing.T) {
	var raw RawConfig
	raw.Networks.From = []int{10}
	cfg := Normalize(raw)

	eth := types.NewTokenRef(1, types.ZeroAddress, "ETH", 18)
	ethBase := types.NewTokenRef(8453, types.ZeroAddress, "ETH", 18)

	from, to, changed := cfg.ResolveDefaults(eth, ethBase)
	assert.True(t, changed)
	assert.Equal(t, int64(10), from.ChainID)
	assert.Equal(t, ethBase, to, "unrestricted side is kept")
}
