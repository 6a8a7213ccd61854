package types

import (
	"fmt"
	"math/big"
	"strings"
)

// ZeroAddress is how the quote API names a chain's native asset
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Tag marks a token in the catalog
type Tag string

const (
	TagPin    Tag = "pin"
	TagTop    Tag = "top"
	TagCert   Tag = "cert"
	TagNative Tag = "native"
)

// TokenRef identifies a token on a chain. Two refs are equal when chain and
// address match; symbol, decimals and tags are descriptive only.
type TokenRef struct {
	ChainID    int64  `json:"chain_id"`
	Address    string `json:"address"`
	Symbol     string `json:"symbol"`
	Decimals   uint8  `json:"decimals"`
	Tags       []Tag  `json:"tags,omitempty"`
	PlatformID int    `json:"platform_id,omitempty"`
}

// NewTokenRef builds a TokenRef with a lowercased address
func NewTokenRef(chainID int64, address, symbol string, decimals uint8, tags ...Tag) TokenRef {
	return TokenRef{
		ChainID:  chainID,
		Address:  strings.ToLower(address),
		Symbol:   symbol,
		Decimals: decimals,
		Tags:     tags,
	}
}

// Equal reports whether both refs point at the same token
func (t TokenRef) Equal(other TokenRef) bool {
	return t.ChainID == other.ChainID && strings.EqualFold(t.Address, other.Address)
}

// HasTag reports whether the token carries tag
func (t TokenRef) HasTag(tag Tag) bool {
	for _, tg := range t.Tags {
		if tg == tag {
			return true
		}
	}
	return false
}

// IsNative reports whether the token is the chain's native asset
func (t TokenRef) IsNative() bool {
	return strings.EqualFold(t.Address, ZeroAddress) || t.HasTag(TagNative)
}

// IsZero reports whether the ref was never set
func (t TokenRef) IsZero() bool {
	return t.ChainID == 0 && t.Address == ""
}

func (t TokenRef) String() string {
	if t.Symbol != "" {
		return fmt.Sprintf("%s@%d", t.Symbol, t.ChainID)
	}
	return fmt.Sprintf("%s@%d", t.Address, t.ChainID)
}

// RouterType is the kind of route the provider picked for a quote
type RouterType string

const (
	RouterSwap   RouterType = "swap"
	RouterBridge RouterType = "bridge"
	RouterWrap   RouterType = "wrap"
	RouterUnwrap RouterType = "unwrap"
)

// QuoteRequest is the body sent to the quote endpoint. Amount is a raw
// integer string in the source token's smallest unit.
type QuoteRequest struct {
	FromChain    int64  `json:"from_chain"`
	ToChain      int64  `json:"to_chain"`
	FromToken    string `json:"from_token"`
	ToToken      string `json:"to_token"`
	FromAddress  string `json:"from_address"`
	ToAddress    string `json:"to_address"`
	Amount       string `json:"amount"`
	Slippage     *int   `json:"slippage,omitempty"`
	Affiliation  string `json:"affiliation,omitempty"`
	ToPlatformID int    `json:"to_platform_id"`
}

// PriceImpact holds the fee breakdown of a quote
type PriceImpact struct {
	BridgeFee         string `json:"bridge_fee"`
	DstGasFee         string `json:"dst_gas_fee"`
	SwapFee           string `json:"swap_fee"`
	BeforeDiscountFee string `json:"before_discount_fee"`
	DiscountPct       string `json:"discount_percentage,omitempty"`
}

// Route is one hop of the quoted path
type Route struct {
	Name string `json:"name"`
	Logo string `json:"logo"`
}

// QuoteResult is the internal shape of a successful quote. Amounts are raw
// integer strings; gas overrides are zero or nil when the provider left them out.
type QuoteResult struct {
	RequestID            string      `json:"request_id"`
	ToAmount             string      `json:"to_amount"`
	TxTo                 string      `json:"tx_to"`
	TxData               []byte      `json:"tx_data"`
	TxValue              string      `json:"tx_value"`
	TxChainID            int64       `json:"tx_chain_id"`
	Gas                  uint64      `json:"gas,omitempty"`
	MaxFeePerGas         *big.Int    `json:"max_fee_per_gas,omitempty"`
	MaxPriorityFeePerGas *big.Int    `json:"max_priority_fee_per_gas,omitempty"`
	RouterType           RouterType  `json:"router_type"`
	PriceImpact          PriceImpact `json:"price_impact"`
	MinReceive           string      `json:"min_receive"`
	EstimatedTimeSec     int         `json:"estimated_time_sec"`
	RequiresApproval     bool        `json:"requires_approval"`
	ApproveSpender       string      `json:"approve_spender,omitempty"`
	Routes               []Route     `json:"routes,omitempty"`
	Slippage             int         `json:"slippage"`
	Fee                  string      `json:"fee,omitempty"`
	Recipient            string      `json:"recipient,omitempty"`
	Router               string      `json:"router,omitempty"`
	QuoteMessage         string      `json:"quote_message,omitempty"`
}

// OrderStatus is the state of a cross-chain order on the API
type OrderStatus string

const (
	OrderOpen   OrderStatus = "Open"
	OrderFilled OrderStatus = "Filled"
	OrderRefund OrderStatus = "Refund"
	OrderFailed OrderStatus = "Failed"
)

// Terminal reports whether the order can no longer change
func (s OrderStatus) Terminal() bool {
	return s == OrderFilled || s == OrderRefund || s == OrderFailed
}

// OrderDetail is the order-status record of a bridge or cross-chain swap
type OrderDetail struct {
	OrderID       string      `json:"order_id"`
	Status        OrderStatus `json:"status"`
	FillTxHash    string      `json:"fill_tx_hash,omitempty"`
	FillTimestamp string      `json:"fill_timestamp,omitempty"`
	OpenTxHash    string      `json:"open_tx_hash"`
	OpenTimestamp string      `json:"open_timestamp"`
	FromChain     int64       `json:"from_chain"`
	ToChain       int64       `json:"to_chain"`
	FromToken     string      `json:"from_token"`
	ToToken       string      `json:"to_token"`
	FromAmount    string      `json:"from_amount"`
	ToAmount      string      `json:"to_amount"`
	ToAddress     string      `json:"to_address"`
	ToPlatformID  int         `json:"to_platform_id"`
}

// BalanceToken is the token metadata attached to a balance entry
type BalanceToken struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	ChainID  int64  `json:"chain_id"`
	Decimals uint8  `json:"decimals"`
}

// TokenBalance is one row of the token-balances endpoint
type TokenBalance struct {
	Balance    string       `json:"balance"`
	ChainID    int64        `json:"chain_id"`
	PlatformID int          `json:"platform_id,omitempty"`
	Price      string       `json:"price"`
	Token      BalanceToken `json:"token"`
}

// Ref converts the balance's token metadata into a TokenRef
func (b TokenBalance) Ref() TokenRef {
	ref := NewTokenRef(b.ChainID, b.Token.Address, b.Token.Symbol, b.Token.Decimals)
	ref.PlatformID = b.PlatformID
	return ref
}
