package widget

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"bridge-swap/pkg/types"
)

// Mode selects which trades the widget offers
type Mode string

const (
	ModeBridgeAndSwap Mode = "bridge-and-swap"
	ModeSwapOnly      Mode = "swap"
)

// Side is the source or destination leg
type Side string

const (
	SideFrom Side = "from"
	SideTo   Side = "to"
)

// DefaultToken is a preset token for one side
type DefaultToken struct {
	ChainID int64  `mapstructure:"chain_id" json:"chain_id"`
	Address string `mapstructure:"address" json:"address"`
	Symbol  string `mapstructure:"symbol" json:"symbol,omitempty"`
}

// AllowedTokenGroup lists allowed token addresses on one chain
type AllowedTokenGroup struct {
	ChainID int64    `mapstructure:"chain_id" json:"chain_id"`
	Tokens  []string `mapstructure:"tokens" json:"tokens"`
}

// RawConfig is the embedder's configuration as given. Network filters may
// be "all", a chain id, a list of chain ids or a comma separated string.
type RawConfig struct {
	Mode     string `mapstructure:"mode"`
	Networks struct {
		From interface{} `mapstructure:"from"`
		To   interface{} `mapstructure:"to"`
	} `mapstructure:"networks"`
	DefaultTokens struct {
		From *DefaultToken `mapstructure:"from"`
		To   *DefaultToken `mapstructure:"to"`
	} `mapstructure:"default_tokens"`
	AllowedTokens struct {
		From []AllowedTokenGroup `mapstructure:"from"`
		To   []AllowedTokenGroup `mapstructure:"to"`
	} `mapstructure:"allowed_tokens"`
}

// TokenKey identifies an allowed token
type TokenKey struct {
	ChainID int64
	Address string
}

// Config is a normalized widget configuration. Nil chain or token lists
// mean unrestricted. The zero value allows everything.
type Config struct {
	Mode Mode

	fromChains []int64
	toChains   []int64
	fromTokens []TokenKey
	toTokens   []TokenKey

	DefaultFrom *DefaultToken
	DefaultTo   *DefaultToken
}

// Normalize turns a raw configuration into a Config. Malformed entries are
// dropped rather than rejected.
func Normalize(raw RawConfig) Config {
	cfg := Config{Mode: ModeBridgeAndSwap}
	if Mode(strings.ToLower(strings.TrimSpace(raw.Mode))) == ModeSwapOnly {
		cfg.Mode = ModeSwapOnly
	}

	from := normalizeChainFilter(raw.Networks.From)
	to := normalizeChainFilter(raw.Networks.To)
	if cfg.Mode == ModeSwapOnly && from != nil && to != nil {
		shared := make([]int64, 0, len(from))
		for _, id := range from {
			if containsChain(to, id) {
				shared = append(shared, id)
			}
		}
		if len(shared) == 0 {
			shared = from
		}
		from = shared
		to = append([]int64(nil), shared...)
	}
	cfg.fromChains = from
	cfg.toChains = to

	cfg.fromTokens = normalizeAllowedTokens(raw.AllowedTokens.From)
	cfg.toTokens = normalizeAllowedTokens(raw.AllowedTokens.To)

	cfg.DefaultFrom = normalizeDefault(raw.DefaultTokens.From)
	cfg.DefaultTo = normalizeDefault(raw.DefaultTokens.To)
	return cfg
}

// IsChainAllowed reports whether chainID may be picked on side
func (c Config) IsChainAllowed(side Side, chainID int64) bool {
	if chainID == 0 {
		return false
	}
	allowed := c.AllowedChainIDs(side)
	if allowed == nil {
		return true
	}
	return containsChain(allowed, chainID)
}

// AllowedChainIDs returns the chain whitelist of side, nil when unrestricted
func (c Config) AllowedChainIDs(side Side) []int64 {
	if side == SideTo {
		return c.toChains
	}
	return c.fromChains
}

// AllowedTokens returns the token whitelist of side, nil when unrestricted
func (c Config) AllowedTokens(side Side) []TokenKey {
	if side == SideTo {
		return c.toTokens
	}
	return c.fromTokens
}

// IsTokenAllowed reports whether a token may be picked on side. Only chains
// that have rules are restricted; on those the address must match one.
func (c Config) IsTokenAllowed(side Side, chainID int64, address string) bool {
	if chainID == 0 {
		return false
	}
	rules := c.AllowedTokens(side)
	if rules == nil {
		return true
	}
	scoped := false
	addr := strings.ToLower(strings.TrimSpace(address))
	for _, r := range rules {
		if r.ChainID != chainID {
			continue
		}
		scoped = true
		if addr != "" && r.Address == addr {
			return true
		}
	}
	return !scoped
}

// Default returns the preset token of side, if any
func (c Config) Default(side Side) *DefaultToken {
	if side == SideTo {
		return c.DefaultTo
	}
	return c.DefaultFrom
}

// ResolveDefaults moves the current pair onto the chains the configuration
// asks for. Swap-only mode puts both sides on one shared chain; otherwise
// each side goes to its first allowed chain or its preset's chain.
func (c Config) ResolveDefaults(from, to types.TokenRef) (types.TokenRef, types.TokenRef, bool) {
	nextFrom, nextTo := from, to

	if c.Mode == ModeSwapOnly {
		chainID := from.ChainID
		switch {
		case c.DefaultFrom != nil:
			chainID = c.DefaultFrom.ChainID
		case c.DefaultTo != nil:
			chainID = c.DefaultTo.ChainID
		case len(c.fromChains) > 0:
			chainID = c.fromChains[0]
		case len(c.toChains) > 0:
			chainID = c.toChains[0]
		}
		nextFrom = c.resolvePreview(SideFrom, chainID, from)
		nextTo = c.resolvePreview(SideTo, chainID, to)
	} else {
		if len(c.fromChains) > 0 {
			nextFrom = c.resolvePreview(SideFrom, c.fromChains[0], from)
		} else if c.DefaultFrom != nil {
			nextFrom = c.resolvePreview(SideFrom, c.DefaultFrom.ChainID, from)
		}
		if len(c.toChains) > 0 {
			nextTo = c.resolvePreview(SideTo, c.toChains[0], to)
		} else if c.DefaultTo != nil {
			nextTo = c.resolvePreview(SideTo, c.DefaultTo.ChainID, to)
		}
	}

	changed := !sameSelection(nextFrom, from) || !sameSelection(nextTo, to)
	return nextFrom, nextTo, changed
}

func (c Config) resolvePreview(side Side, chainID int64, current types.TokenRef) types.TokenRef {
	if preset := c.Default(side); preset != nil && preset.ChainID == chainID {
		symbol := preset.Symbol
		if symbol == "" {
			symbol = current.Symbol
		}
		return previewToken(chainID, preset.Address, symbol)
	}
	if current.ChainID == chainID {
		return current
	}
	return previewToken(chainID, types.ZeroAddress, current.Symbol)
}

func previewToken(chainID int64, address, symbol string) types.TokenRef {
	if address == "" {
		address = types.ZeroAddress
	}
	if symbol == "" {
		symbol = "ETH"
	}
	return types.NewTokenRef(chainID, address, symbol, 18, types.TagPin)
}

func sameSelection(a, b types.TokenRef) bool {
	return a.Equal(b) && a.Symbol == b.Symbol
}

func normalizeChainFilter(filter interface{}) []int64 {
	var candidates []interface{}
	switch v := filter.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" || strings.EqualFold(s, "all") {
			return nil
		}
		for _, part := range strings.Split(s, ",") {
			candidates = append(candidates, part)
		}
	case []interface{}:
		candidates = v
	case []int:
		for _, n := range v {
			candidates = append(candidates, n)
		}
	case []int64:
		for _, n := range v {
			candidates = append(candidates, n)
		}
	case []string:
		for _, s := range v {
			candidates = append(candidates, s)
		}
	default:
		candidates = []interface{}{v}
	}

	var out []int64
	for _, c := range candidates {
		id, ok := toChainID(c)
		if !ok || containsChain(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func toChainID(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

func normalizeAllowedTokens(groups []AllowedTokenGroup) []TokenKey {
	if len(groups) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var out []TokenKey
	for _, g := range groups {
		if g.ChainID == 0 {
			continue
		}
		for _, addr := range g.Tokens {
			addr = strings.ToLower(strings.TrimSpace(addr))
			if addr == "" {
				continue
			}
			key := fmt.Sprintf("%d:%s", g.ChainID, addr)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, TokenKey{ChainID: g.ChainID, Address: addr})
		}
	}
	return out
}

func normalizeDefault(d *DefaultToken) *DefaultToken {
	if d == nil || d.ChainID == 0 {
		return nil
	}
	return &DefaultToken{
		ChainID: d.ChainID,
		Address: strings.ToLower(strings.TrimSpace(d.Address)),
		Symbol:  d.Symbol,
	}
}

func containsChain(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
