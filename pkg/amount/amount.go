package amount

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"bridge-swap/pkg/types"
)

var (
	amountPattern   = regexp.MustCompile(`^\d*\.?\d*$`)
	slippagePattern = regexp.MustCompile(`^\d*(\.\d{0,2})?$`)
)

// ValidateAmountInput checks a user-typed amount. It returns the accepted
// value and true, or false when the input must be ignored.
// A bare "." is accepted as "0.".
func ValidateAmountInput(raw string) (string, bool) {
	if raw == "" {
		return raw, true
	}
	if !amountPattern.MatchString(raw) {
		return "", false
	}
	if raw == "." {
		return "0.", true
	}
	return raw, true
}

// ToRaw shifts a display amount into the token's smallest unit. Digits
// beyond the token's precision are truncated.
func ToRaw(display string, decimals uint8) (string, error) {
	d, err := parseDisplay(display)
	if err != nil {
		return "", err
	}
	return d.Shift(int32(decimals)).Truncate(0).String(), nil
}

// FromRaw shifts a raw integer amount back into a display string without
// group separators or trailing zeros.
func FromRaw(raw string, decimals uint8) (string, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "", fmt.Errorf("invalid raw amount %q: %w", raw, err)
	}
	if !d.Equal(d.Truncate(0)) {
		return "", fmt.Errorf("raw amount %q is not an integer", raw)
	}
	return d.Shift(-int32(decimals)).String(), nil
}

// IsZeroOrInvalid reports whether a raw amount should not be quoted
func IsZeroOrInvalid(raw string) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return true
	}
	return !d.IsPositive()
}

func parseDisplay(display string) (decimal.Decimal, error) {
	s := strings.TrimSpace(display)
	if s == "" || s == "." || !amountPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("invalid amount %q", display)
	}
	s = strings.TrimSuffix(s, ".")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", display, err)
	}
	return d, nil
}

// SlippageBpsFromPercent converts a percent string such as "0.5" into basis
// points. A nil result means automatic slippage.
//
// A literal zero is also reported as automatic, so an explicit 0% slippage
// cannot be requested through this path.
func SlippageBpsFromPercent(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if !slippagePattern.MatchString(s) || s == "." {
		return nil, fmt.Errorf("invalid slippage %q", s)
	}
	d, err := parseDisplay(s)
	if err != nil {
		return nil, fmt.Errorf("invalid slippage %q: %w", s, err)
	}
	if d.IsZero() {
		return nil, nil
	}
	bps := int(d.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	return &bps, nil
}

// FormatSlippage renders basis points as a percent with two decimals
func FormatSlippage(bps int) string {
	return decimal.New(int64(bps), -2).StringFixed(2)
}

// TradeClass is how a token pair is routed
type TradeClass int

const (
	SameChainSwap TradeClass = iota
	NativeBridge
	CrossChainSwap
)

func (c TradeClass) String() string {
	switch c {
	case SameChainSwap:
		return "same-chain swap"
	case NativeBridge:
		return "native bridge"
	default:
		return "cross-chain swap"
	}
}

// Auto slippage tiers in basis points
const (
	SwapAutoSlippageBps           = 50
	BridgeAutoSlippageBps         = 0
	CrossChainSwapAutoSlippageBps = 200
)

// wrappedNative lists the wrapped gas token per chain
var wrappedNative = map[int64]string{
	1:     "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
	10:    "0x4200000000000000000000000000000000000006",
	1868:  "0x4200000000000000000000000000000000000006",
	8453:  "0x4200000000000000000000000000000000000006",
	42161: "0x82af49447d8a07e3bd95bd0d56f35241523fbab1",
}

// IsNativeOrWrapped reports whether t is its chain's native asset or the
// wrapped form of it
func IsNativeOrWrapped(t types.TokenRef) bool {
	if t.IsNative() {
		return true
	}
	w, ok := wrappedNative[t.ChainID]
	return ok && strings.EqualFold(w, t.Address)
}

// ClassifyTrade decides the route class of a token pair
func ClassifyTrade(from, to types.TokenRef) TradeClass {
	if from.ChainID == to.ChainID {
		return SameChainSwap
	}
	if IsNativeOrWrapped(from) && IsNativeOrWrapped(to) {
		return NativeBridge
	}
	return CrossChainSwap
}

// AutoSlippageBps returns the automatic slippage tier for a trade class
func AutoSlippageBps(c TradeClass) int {
	switch c {
	case SameChainSwap:
		return SwapAutoSlippageBps
	case NativeBridge:
		return BridgeAutoSlippageBps
	default:
		return CrossChainSwapAutoSlippageBps
	}
}

// AutoSlippage remembers the active automatic slippage so callers only react
// when the tier actually changes.
type AutoSlippage struct {
	bps int
	set bool
}

// Update recomputes the tier for a pair and reports whether it changed
func (a *AutoSlippage) Update(from, to types.TokenRef) (int, bool) {
	next := AutoSlippageBps(ClassifyTrade(from, to))
	if a.set && a.bps == next {
		return a.bps, false
	}
	a.bps = next
	a.set = true
	return next, true
}

// Bps returns the active tier
func (a *AutoSlippage) Bps() int {
	return a.bps
}
