package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"bridge-swap/pkg/types"
)

const DefaultBaseURL = "https://api.wheelx.fi"

// APIError is a non-2xx answer from the quote API. Message carries the
// provider's own text when the body had one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// Client talks to the quote, order and balance endpoints
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates an API client for baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type quoteBody struct {
	types.QuoteRequest
	QuoteOnly bool `json:"quote_only"`
}

type approveInfo struct {
	Spender *string         `json:"spender"`
	Amount  json.RawMessage `json:"amount"`
	Token   *string         `json:"token"`
}

func (a *approveInfo) valid() bool {
	if a == nil || a.Spender == nil || a.Token == nil {
		return false
	}
	amount := strings.TrimSpace(string(a.Amount))
	return amount != "" && amount != "null"
}

type quoteTx struct {
	ChainID              int64     `json:"chainId"`
	Data                 string    `json:"data"`
	To                   string    `json:"to"`
	Value                bigNumber `json:"value"`
	Gas                  bigNumber `json:"gas"`
	MaxFeePerGas         bigNumber `json:"maxFeePerGas"`
	MaxPriorityFeePerGas bigNumber `json:"maxPriorityFeePerGas"`
}

type quoteResponse struct {
	RequestID     string            `json:"request_id"`
	AmountOut     string            `json:"amount_out"`
	Approve       *approveInfo      `json:"approve"`
	RouterType    string            `json:"router_type"`
	EstimatedTime float64           `json:"estimated_time"`
	Fee           json.RawMessage   `json:"fee"`
	MinReceive    string            `json:"min_receive"`
	PriceImpact   types.PriceImpact `json:"price_impact"`
	Recipient     string            `json:"recipient"`
	Router        string            `json:"router"`
	Slippage      float64           `json:"slippage"`
	QuoteMessage  *string           `json:"quote_message"`
	Tx            *quoteTx          `json:"tx"`
	Routes        []types.Route     `json:"routes"`
}

// Quote asks the API for a price quote. The request is always sent with
// quote_only set.
func (c *Client) Quote(ctx context.Context, req types.QuoteRequest) (*types.QuoteResult, error) {
	var resp quoteResponse
	if err := c.do(ctx, http.MethodPost, "/v1/quote", nil, quoteBody{QuoteRequest: req, QuoteOnly: true}, &resp); err != nil {
		return nil, err
	}
	return resp.toResult()
}

func (r *quoteResponse) toResult() (*types.QuoteResult, error) {
	res := &types.QuoteResult{
		RequestID:        r.RequestID,
		ToAmount:         r.AmountOut,
		RouterType:       types.RouterType(r.RouterType),
		PriceImpact:      r.PriceImpact,
		MinReceive:       r.MinReceive,
		EstimatedTimeSec: int(r.EstimatedTime),
		RequiresApproval: r.Approve.valid(),
		Routes:           r.Routes,
		Slippage:         int(r.Slippage),
		Fee:              strings.Trim(string(r.Fee), `"`),
		Recipient:        r.Recipient,
		Router:           r.Router,
	}
	if res.RequiresApproval {
		res.ApproveSpender = strings.ToLower(*r.Approve.Spender)
	}
	if r.QuoteMessage != nil {
		res.QuoteMessage = *r.QuoteMessage
	}
	if r.Tx != nil {
		res.TxTo = strings.ToLower(r.Tx.To)
		res.TxChainID = r.Tx.ChainID
		if r.Tx.Data != "" {
			data, err := hexutil.Decode(r.Tx.Data)
			if err != nil {
				return nil, fmt.Errorf("invalid tx data: %w", err)
			}
			res.TxData = data
		}
		res.TxValue = "0"
		if r.Tx.Value.Int != nil {
			res.TxValue = r.Tx.Value.String()
		}
		if r.Tx.Gas.Int != nil && r.Tx.Gas.IsUint64() {
			res.Gas = r.Tx.Gas.Uint64()
		}
		res.MaxFeePerGas = r.Tx.MaxFeePerGas.Int
		res.MaxPriorityFeePerGas = r.Tx.MaxPriorityFeePerGas.Int
	}
	return res, nil
}

type orderResponse struct {
	OrderID       string            `json:"order_id"`
	Status        types.OrderStatus `json:"status"`
	FillTxHash    *string           `json:"fill_tx_hash"`
	FillTimestamp *string           `json:"fill_timestamp"`
	OpenTxHash    string            `json:"open_tx_hash"`
	OpenTimestamp string            `json:"open_timestamp"`
	FromChain     int64             `json:"from_chain"`
	ToChain       int64             `json:"to_chain"`
	FromToken     string            `json:"from_token"`
	ToToken       string            `json:"to_token"`
	FromAmount    string            `json:"from_amount"`
	ToAmount      string            `json:"to_amount"`
	ToAddress     string            `json:"to_address"`
	ToPlatformID  int               `json:"to_platform_id"`
}

// Order fetches the status of a cross-chain order
func (c *Client) Order(ctx context.Context, orderID string) (*types.OrderDetail, error) {
	if orderID == "" {
		return nil, errors.New("order id is required")
	}
	var resp orderResponse
	if err := c.do(ctx, http.MethodGet, "/v1/order/"+url.PathEscape(orderID), nil, nil, &resp); err != nil {
		return nil, err
	}
	detail := &types.OrderDetail{
		OrderID:       resp.OrderID,
		Status:        resp.Status,
		OpenTxHash:    resp.OpenTxHash,
		OpenTimestamp: resp.OpenTimestamp,
		FromChain:     resp.FromChain,
		ToChain:       resp.ToChain,
		FromToken:     resp.FromToken,
		ToToken:       resp.ToToken,
		FromAmount:    resp.FromAmount,
		ToAmount:      resp.ToAmount,
		ToAddress:     resp.ToAddress,
		ToPlatformID:  resp.ToPlatformID,
	}
	if resp.FillTxHash != nil {
		detail.FillTxHash = *resp.FillTxHash
	}
	if resp.FillTimestamp != nil {
		detail.FillTimestamp = *resp.FillTimestamp
	}
	return detail, nil
}

// TokenBalances lists the balances of address joined with token metadata
func (c *Client) TokenBalances(ctx context.Context, address string) ([]types.TokenBalance, error) {
	var resp []types.TokenBalance
	q := url.Values{}
	q.Set("address", address)
	if err := c.do(ctx, http.MethodGet, "/v1/token-balances", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("api request")
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return &APIError{StatusCode: httpResp.StatusCode, Message: errorMessage(httpResp.StatusCode, data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// errorMessage pulls the provider's message out of an error body. 400 bodies
// carry a plain detail string, 422 bodies a list of validation errors.
func errorMessage(status int, body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(envelope.Detail, &detail); err == nil {
			return detail
		}
		var list []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(envelope.Detail, &list); err == nil && len(list) > 0 {
			return list[0].Msg
		}
	}
	if len(bytes.TrimSpace(body)) > 0 {
		return string(bytes.TrimSpace(body))
	}
	return http.StatusText(status)
}

// bigNumber decodes integers sent either as JSON numbers or strings
type bigNumber struct {
	*big.Int
}

func (b *bigNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		b.Int = nil
		return nil
	}
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return fmt.Errorf("invalid integer %q", s)
	}
	b.Int = n
	return nil
}
