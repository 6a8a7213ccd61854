package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridge-swap/pkg/address"
	"bridge-swap/pkg/types"
)

func TestParseSwapCommand(t *testing.T) {
	tests := []struct {
		in   string
		want SwapCommand
	}{
		{"swap 1 ETH to USDC", SwapCommand{Amount: "1", FromToken: "ETH", ToToken: "USDC"}},
		{"1.5 eth@base to eth@arbitrum", SwapCommand{Amount: "1.5", FromToken: "ETH", FromChain: 8453, ToToken: "ETH", ToChain: 42161}},
		{"  100   usdc@1 TO usdc@8453 ", SwapCommand{Amount: "100", FromToken: "USDC", FromChain: 1, ToToken: "USDC", ToChain: 8453}},
		{".5 ETH to SOL@solana", SwapCommand{Amount: ".5", FromToken: "ETH", ToToken: "SOL", ToChain: address.SolanaChainID}},
		{
			"10 0xA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48@1 to ETH@10",
			SwapCommand{Amount: "10", FromToken: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", FromChain: 1, ToToken: "ETH", ToChain: 10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSwapCommand(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseSwapCommandErrors(t *testing.T) {
	for _, in := range []string{"", "swap ETH to USDC", "1 ETH USDC", "1 ETH@nowhere to USDC", "1 ETH to USDC@0"} {
		_, err := ParseSwapCommand(in)
		assert.Error(t, err, in)
	}
}

func TestResolveToken(t *testing.T) {
	balances := []types.TokenBalance{{
		Balance: "5", ChainID: 8453, PlatformID: 2,
		Token: types.BalanceToken{Symbol: "DEGEN", Address: "0x4ed4e862860bed51a9570b96d89af5e1b0efefed", Decimals: 18},
	}}

	ref, err := ResolveToken(8453, "degen", balances)
	require.NoError(t, err)
	assert.Equal(t, "0x4ed4e862860bed51a9570b96d89af5e1b0efefed", ref.Address)
	assert.Equal(t, 2, ref.PlatformID)

	ref, err = ResolveToken(42161, "USDC", nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), ref.Decimals)

	ref, err = ResolveToken(1, "0xA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48", nil)
	require.NoError(t, err)
	assert.Equal(t, "USDC", ref.Symbol)

	_, err = ResolveToken(8453, "DEGEN", nil)
	assert.Error(t, err)
}
