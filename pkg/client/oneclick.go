package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"bridge-swap/pkg/types"
	"bridge-swap/pkg/wallet"
)

const (
	oneClickDefaultSlippageBps = 100
	oneClickDeadline           = 24 * time.Hour
	oneClickTokensTTL          = 10 * time.Minute
	// same sender the quote coordinator uses for previews
	previewSender = "0x0000000000000000000000000000000000000001"
)

// oneClickChains maps chain ids to 1Click blockchain names
var oneClickChains = map[int64]string{
	1:         "eth",
	10:        "op",
	56:        "bsc",
	137:       "pol",
	8453:      "base",
	42161:     "arb",
	792703809: "sol",
}

// OneClickClient is a quote provider and order source backed by NEAR
// Intents 1Click. The deposit address of a quote doubles as its order id.
type OneClickClient struct {
	client   *oneclick.APIClient
	jwtToken string
	log      zerolog.Logger

	mu        sync.Mutex
	tokens    []oneClickToken
	fetchedAt time.Time
}

// OneClickOption configures a OneClickClient
type OneClickOption func(*oneclick.Configuration, *OneClickClient)

// WithOneClickBaseURL points the SDK at another server
func WithOneClickBaseURL(url string) OneClickOption {
	return func(cfg *oneclick.Configuration, _ *OneClickClient) {
		if url != "" {
			cfg.Servers = oneclick.ServerConfigurations{{URL: strings.TrimRight(url, "/")}}
		}
	}
}

// WithOneClickLogger sets the request logger
func WithOneClickLogger(log zerolog.Logger) OneClickOption {
	return func(_ *oneclick.Configuration, c *OneClickClient) { c.log = log }
}

// NewOneClickClient creates a new 1Click API client
func NewOneClickClient(jwtToken string, opts ...OneClickOption) *OneClickClient {
	cfg := oneclick.NewConfiguration()
	c := &OneClickClient{jwtToken: jwtToken, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(cfg, c)
	}
	c.client = oneclick.NewAPIClient(cfg)
	return c
}

func (c *OneClickClient) authed(ctx context.Context) context.Context {
	return context.WithValue(ctx, oneclick.ContextAccessToken, c.jwtToken)
}

type oneClickToken struct {
	AssetID    string
	Blockchain string
	Symbol     string
	Contract   string
	Decimals   uint8
}

func (c *OneClickClient) supportedTokens(ctx context.Context) ([]oneClickToken, error) {
	c.mu.Lock()
	if c.tokens != nil && time.Since(c.fetchedAt) < oneClickTokensTTL {
		tokens := c.tokens
		c.mu.Unlock()
		return tokens, nil
	}
	c.mu.Unlock()

	resp, httpResp, err := c.client.OneClickAPI.GetTokens(c.authed(ctx)).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Message: http.StatusText(httpResp.StatusCode)}
	}

	tokens := make([]oneClickToken, 0, len(resp))
	for _, t := range resp {
		tokens = append(tokens, oneClickToken{
			AssetID:    t.GetAssetId(),
			Blockchain: strings.ToLower(t.GetBlockchain()),
			Symbol:     t.GetSymbol(),
			Contract:   strings.ToLower(t.GetContractAddress()),
			Decimals:   uint8(t.GetDecimals()),
		})
	}

	c.mu.Lock()
	c.tokens, c.fetchedAt = tokens, time.Now()
	c.mu.Unlock()
	return tokens, nil
}

// findOneClickToken matches a chain and token address; the zero address
// matches the chain's token without a contract
func findOneClickToken(tokens []oneClickToken, chainID int64, address string) (oneClickToken, error) {
	chain, ok := oneClickChains[chainID]
	if !ok {
		return oneClickToken{}, fmt.Errorf("chain %d is not supported by 1Click", chainID)
	}
	address = strings.ToLower(address)
	native := address == "" || address == types.ZeroAddress
	for _, t := range tokens {
		if t.Blockchain != chain {
			continue
		}
		if (native && t.Contract == "") || (!native && t.Contract == address) {
			return t, nil
		}
	}
	return oneClickToken{}, fmt.Errorf("token %s not found on chain '%s'", address, chain)
}

// Quote asks 1Click for a deposit address and turns it into a transaction
// that pays the deposit
func (c *OneClickClient) Quote(ctx context.Context, req types.QuoteRequest) (*types.QuoteResult, error) {
	tokens, err := c.supportedTokens(ctx)
	if err != nil {
		return nil, err
	}
	src, err := findOneClickToken(tokens, req.FromChain, req.FromToken)
	if err != nil {
		return nil, fmt.Errorf("source token error: %w", err)
	}
	dst, err := findOneClickToken(tokens, req.ToChain, req.ToToken)
	if err != nil {
		return nil, fmt.Errorf("destination token error: %w", err)
	}

	recipient := req.ToAddress
	if recipient == "" {
		recipient = req.FromAddress
	}
	slippage := oneClickDefaultSlippageBps
	if req.Slippage != nil {
		slippage = *req.Slippage
	}
	// previews need no deposit address
	dry := strings.EqualFold(req.FromAddress, previewSender)

	quoteReq := oneclick.NewQuoteRequest(
		dry,
		"EXACT_INPUT",
		float32(slippage),
		src.AssetID,
		"ORIGIN_CHAIN",
		dst.AssetID,
		req.Amount,
		req.FromAddress,
		"ORIGIN_CHAIN",
		recipient,
		"DESTINATION_CHAIN",
		time.Now().Add(oneClickDeadline),
	)

	resp, httpResp, err := c.client.OneClickAPI.GetQuote(c.authed(ctx)).QuoteRequest(*quoteReq).Execute()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if httpResp != nil {
			defer httpResp.Body.Close()
			body, _ := io.ReadAll(httpResp.Body)
			return nil, &APIError{StatusCode: httpResp.StatusCode, Message: oneClickErrorMessage(httpResp.StatusCode, body)}
		}
		return nil, fmt.Errorf("failed to get quote from API: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Message: http.StatusText(httpResp.StatusCode)}
	}
	if resp == nil {
		return nil, fmt.Errorf("empty quote response")
	}

	q := resp.GetQuote()
	c.log.Debug().
		Str("deposit_address", q.GetDepositAddress()).
		Str("amount_out", q.GetAmountOut()).
		Msg("1click quote")

	return depositQuote(req, q.GetDepositAddress(), q.GetAmountOut(), q.GetMinAmountOut(), int(q.GetTimeEstimate()), slippage)
}

// depositQuote builds the transfer of req.Amount to depositAddress: a plain
// value transfer for native tokens, ERC-20 transfer calldata otherwise
func depositQuote(req types.QuoteRequest, depositAddress, amountOut, minOut string, estimate, slippage int) (*types.QuoteResult, error) {
	res := &types.QuoteResult{
		RequestID:        depositAddress,
		ToAmount:         amountOut,
		MinReceive:       minOut,
		TxChainID:        req.FromChain,
		TxValue:          "0",
		EstimatedTimeSec: estimate,
		Slippage:         slippage,
		Recipient:        req.ToAddress,
		Router:           "1click",
		RouterType:       types.RouterSwap,
		Routes:           []types.Route{{Name: "NEAR Intents"}},
	}
	if req.FromChain != req.ToChain {
		res.RouterType = types.RouterBridge
	}
	if depositAddress == "" {
		// dry quote
		return res, nil
	}
	if !common.IsHexAddress(depositAddress) {
		return nil, fmt.Errorf("deposit address %q is not an EVM address", depositAddress)
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", req.Amount)
	}

	if strings.EqualFold(req.FromToken, types.ZeroAddress) {
		res.TxTo = strings.ToLower(depositAddress)
		res.TxValue = amount.String()
		return res, nil
	}

	data, err := wallet.PackTransfer(common.HexToAddress(depositAddress), amount)
	if err != nil {
		return nil, err
	}
	res.TxTo = strings.ToLower(req.FromToken)
	res.TxData = data
	return res, nil
}

// Order reports the execution status of a deposit address
func (c *OneClickClient) Order(ctx context.Context, depositAddress string) (*types.OrderDetail, error) {
	if depositAddress == "" {
		return nil, fmt.Errorf("deposit address is required")
	}
	resp, httpResp, err := c.client.OneClickAPI.GetExecutionStatus(c.authed(ctx)).DepositAddress(depositAddress).Execute()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Message: http.StatusText(httpResp.StatusCode)}
	}

	detail := &types.OrderDetail{
		OrderID: depositAddress,
		Status:  oneClickOrderStatus(resp.GetStatus()),
	}
	details := resp.GetSwapDetails()
	if txs := details.GetOriginChainTxHashes(); len(txs) > 0 {
		detail.OpenTxHash = txs[0].GetHash()
	}
	if txs := details.GetDestinationChainTxHashes(); len(txs) > 0 {
		detail.FillTxHash = txs[0].GetHash()
	}
	if details.HasAmountOutFormatted() {
		detail.ToAmount = details.GetAmountOutFormatted()
	}
	detail.OpenTimestamp = resp.GetUpdatedAt().Format(time.RFC3339)
	return detail, nil
}

func oneClickOrderStatus(status string) types.OrderStatus {
	switch strings.ToUpper(status) {
	case "SUCCESS":
		return types.OrderFilled
	case "REFUNDED":
		return types.OrderRefund
	case "FAILED":
		return types.OrderFailed
	default:
		return types.OrderOpen
	}
}

// SubmitDepositTx reports the deposit transaction hash so the swap starts
// without waiting for 1Click to notice the transfer
func (c *OneClickClient) SubmitDepositTx(ctx context.Context, depositAddress, txHash string) error {
	req := oneclick.NewSubmitDepositTxRequest(txHash, depositAddress)

	_, httpResp, err := c.client.OneClickAPI.SubmitDepositTx(c.authed(ctx)).SubmitDepositTxRequest(*req).Execute()
	if err != nil {
		return fmt.Errorf("failed to submit deposit: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusCreated {
		return &APIError{StatusCode: httpResp.StatusCode, Message: http.StatusText(httpResp.StatusCode)}
	}
	return nil
}

func oneClickErrorMessage(status int, body []byte) string {
	var resp struct {
		Message string      `json:"message"`
		Errors  interface{} `json:"errors"`
	}
	if err := json.Unmarshal(body, &resp); err == nil {
		if resp.Message != "" {
			return resp.Message
		}
		if resp.Errors != nil {
			return fmt.Sprint(resp.Errors)
		}
	}
	if len(body) > 0 {
		return string(body)
	}
	return http.StatusText(status)
}
