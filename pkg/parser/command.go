package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"bridge-swap/pkg/address"
	"bridge-swap/pkg/types"
)

// SwapCommand is a parsed "<amount> <token>[@chain] to <token>[@chain]" line.
// A zero chain means the caller's default chain.
type SwapCommand struct {
	Amount    string
	FromToken string
	FromChain int64
	ToToken   string
	ToChain   int64
}

var commandPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)\s+([A-Z0-9]+|0X[0-9A-F]{40})(?:@([A-Z0-9]+))?\s+TO\s+([A-Z0-9]+|0X[0-9A-F]{40})(?:@([A-Z0-9]+))?$`)

// chainAliases maps chain names to chain ids
var chainAliases = map[string]int64{
	"ETHEREUM": 1,
	"MAINNET":  1,
	"ETH":      1,
	"OPTIMISM": 10,
	"OP":       10,
	"BSC":      56,
	"POLYGON":  137,
	"UNICHAIN": 130,
	"HEMI":     43111,
	"BASE":     8453,
	"ARBITRUM": 42161,
	"ARB":      42161,
	"SOLANA":   address.SolanaChainID,
	"SOL":      address.SolanaChainID,
}

// ParseSwapCommand parses a swap command
// Examples:
//   - "swap 1 ETH to USDC"
//   - "1.5 ETH@base to ETH@arbitrum"
//   - "100 USDC@1 to USDC@8453"
func ParseSwapCommand(command string) (*SwapCommand, error) {
	command = strings.TrimSpace(strings.ToUpper(command))
	command = strings.TrimPrefix(command, "SWAP ")
	command = strings.Join(strings.Fields(command), " ")

	matches := commandPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount> <token>[@chain] to <token>[@chain]' (e.g., 'swap 1 ETH@base to USDC@arbitrum')")
	}

	fromChain, err := parseChain(matches[3])
	if err != nil {
		return nil, err
	}
	toChain, err := parseChain(matches[5])
	if err != nil {
		return nil, err
	}

	return &SwapCommand{
		Amount:    matches[1],
		FromToken: normalizeToken(matches[2]),
		FromChain: fromChain,
		ToToken:   normalizeToken(matches[4]),
		ToChain:   toChain,
	}, nil
}

// ParseChain resolves a chain name or numeric id
func ParseChain(s string) (int64, error) {
	return parseChain(strings.ToUpper(strings.TrimSpace(s)))
}

func parseChain(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if id, ok := chainAliases[s]; ok {
		return id, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("unknown chain %q", strings.ToLower(s))
	}
	return id, nil
}

// addresses are kept lowercase, symbols uppercase
func normalizeToken(tok string) string {
	if strings.HasPrefix(tok, "0X") {
		return "0x" + strings.ToLower(tok[2:])
	}
	return tok
}

// knownTokens holds the tokens a command may name by symbol
var knownTokens = map[int64]map[string]types.TokenRef{
	1: {
		"ETH":  types.NewTokenRef(1, types.ZeroAddress, "ETH", 18, types.TagNative),
		"WETH": types.NewTokenRef(1, "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", "WETH", 18),
		"USDC": types.NewTokenRef(1, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "USDC", 6),
		"USDT": types.NewTokenRef(1, "0xdac17f958d2ee523a2206206994597c13d831ec7", "USDT", 6),
	},
	10: {
		"ETH":  types.NewTokenRef(10, types.ZeroAddress, "ETH", 18, types.TagNative),
		"WETH": types.NewTokenRef(10, "0x4200000000000000000000000000000000000006", "WETH", 18),
		"USDC": types.NewTokenRef(10, "0x0b2c639c533813f4aa9d7837caf62653d097ff85", "USDC", 6),
	},
	8453: {
		"ETH":  types.NewTokenRef(8453, types.ZeroAddress, "ETH", 18, types.TagNative),
		"WETH": types.NewTokenRef(8453, "0x4200000000000000000000000000000000000006", "WETH", 18),
		"USDC": types.NewTokenRef(8453, "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", "USDC", 6),
	},
	42161: {
		"ETH":  types.NewTokenRef(42161, types.ZeroAddress, "ETH", 18, types.TagNative),
		"WETH": types.NewTokenRef(42161, "0x82af49447d8a07e3bd95bd0d56f35241523fbab1", "WETH", 18),
		"USDC": types.NewTokenRef(42161, "0xaf88d065e77c8cc2239327c5edb3a432268e5831", "USDC", 6),
		"USDT": types.NewTokenRef(42161, "0xfd086bc7cd5c481dcc9c85ebe478a1c0b69fcbb9", "USDT", 6),
	},
}

// ResolveToken finds a token by symbol or address on chainID, first in the
// wallet's balances and then among the well known tokens.
func ResolveToken(chainID int64, token string, balances []types.TokenBalance) (types.TokenRef, error) {
	isAddr := strings.HasPrefix(strings.ToLower(token), "0x")
	for _, b := range balances {
		if b.ChainID != chainID {
			continue
		}
		if (isAddr && strings.EqualFold(b.Token.Address, token)) || (!isAddr && strings.EqualFold(b.Token.Symbol, token)) {
			return b.Ref(), nil
		}
	}
	for sym, ref := range knownTokens[chainID] {
		if (isAddr && strings.EqualFold(ref.Address, token)) || (!isAddr && strings.EqualFold(sym, token)) {
			return ref, nil
		}
	}
	return types.TokenRef{}, fmt.Errorf("token %s not found on chain %d", token, chainID)
}
