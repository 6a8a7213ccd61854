package quote

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bridge-swap/pkg/amount"
	"bridge-swap/pkg/client"
	"bridge-swap/pkg/metrics"
	"bridge-swap/pkg/schedule"
	"bridge-swap/pkg/types"
)

// NullAddress stands in for the sender when no wallet is connected. Quotes
// fetched with it are previews and never auto-refetch.
const NullAddress = "0x0000000000000000000000000000000000000001"

const (
	DefaultRefetchInterval = 15 * time.Second
	DefaultDebounce        = 500 * time.Millisecond
)

// Provider fetches quotes from a routing backend
type Provider interface {
	Quote(ctx context.Context, req types.QuoteRequest) (*types.QuoteResult, error)
}

// State of the current quote
type State int

const (
	StateIdle State = iota
	StateFetching
	StateReady
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateReady:
		return "ready"
	case StateErrored:
		return "errored"
	default:
		return "idle"
	}
}

// QuoteError is a failed quote. Status is the HTTP status when the provider
// answered, 0 otherwise.
type QuoteError struct {
	Status  int
	Message string
}

func (e *QuoteError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("quote failed (status %d): %s", e.Status, e.Message)
}

// Params is one quote request plus what is needed to display its result
type Params struct {
	Request    types.QuoteRequest
	ToDecimals uint8
}

// Options modify a single RequestQuote call
type Options struct {
	AutoRefetch bool
}

// Snapshot is a consistent view of the coordinator's state
type Snapshot struct {
	State      State
	Result     *types.QuoteResult
	Err        error
	ToAmount   string
	RouterType types.RouterType
}

// Config tunes the coordinator's timers
type Config struct {
	RefetchInterval time.Duration
	Debounce        time.Duration
}

// Option configures a Coordinator
type Option func(*Coordinator)

func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// Coordinator owns the single current quote of a swap session. A manual
// request cancels whatever is in flight, and only the most recently issued
// call may commit its result.
type Coordinator struct {
	provider Provider
	cfg      Config
	log      zerolog.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	seq        uint64
	cancel     context.CancelFunc
	state      State
	result     *types.QuoteResult
	err        error
	toAmount   string
	routerType types.RouterType
	subs       map[chan Snapshot]struct{}

	refetch   schedule.Task
	debouncer *schedule.Debouncer[Params]
}

// NewCoordinator creates a Coordinator backed by provider
func NewCoordinator(provider Provider, cfg Config, opts ...Option) *Coordinator {
	if cfg.RefetchInterval <= 0 {
		cfg.RefetchInterval = DefaultRefetchInterval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	c := &Coordinator{
		provider: provider,
		cfg:      cfg,
		log:      zerolog.Nop(),
		subs:     make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.debouncer = schedule.NewDebouncer(cfg.Debounce, func(p Params) {
		if _, err := c.RequestQuote(context.Background(), p, Options{}); err != nil {
			c.log.Debug().Err(err).Msg("debounced quote failed")
		}
	})
	return c
}

// RequestQuote fetches a quote for p and commits it as the current one.
// Zero or unparseable amounts return immediately without touching state.
// A request that is cancelled or superseded resolves to (nil, nil).
func (c *Coordinator) RequestQuote(ctx context.Context, p Params, opts Options) (*types.QuoteResult, error) {
	if amount.IsZeroOrInvalid(p.Request.Amount) {
		return nil, nil
	}
	if p.Request.ToAddress == "" {
		p.Request.ToAddress = p.Request.FromAddress
	}

	c.mu.Lock()
	if opts.AutoRefetch && c.state == StateFetching {
		// a manual request is already in flight and will schedule its own follow-up
		c.mu.Unlock()
		return nil, nil
	}
	if !opts.AutoRefetch {
		if c.cancel != nil {
			c.cancel()
		}
		c.refetch.Cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	c.seq++
	seq := c.seq
	c.cancel = cancel
	c.state = StateFetching
	c.publishLocked()
	c.mu.Unlock()

	log := c.log.With().Uint64("seq", seq).Int64("from_chain", p.Request.FromChain).Int64("to_chain", p.Request.ToChain).Logger()
	log.Debug().Bool("auto", opts.AutoRefetch).Msg("requesting quote")

	res, err := c.provider.Quote(reqCtx, p.Request)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer cancel()

	if seq != c.seq {
		log.Debug().Msg("quote superseded")
		c.metrics.QuoteOutcome(metrics.OutcomeSuperseded)
		return nil, nil
	}
	c.cancel = nil
	if reqCtx.Err() != nil || errors.Is(err, context.Canceled) {
		log.Debug().Msg("quote cancelled")
		c.metrics.QuoteOutcome(metrics.OutcomeCancelled)
		c.settleLocked()
		c.publishLocked()
		return nil, nil
	}
	if err != nil {
		qerr := toQuoteError(err)
		log.Warn().Err(qerr).Msg("quote failed")
		c.metrics.QuoteOutcome(metrics.OutcomeError)
		c.state = StateErrored
		c.err = qerr
		c.result = nil
		c.toAmount = ""
		c.publishLocked()
		return nil, qerr
	}
	if res == nil {
		qerr := &QuoteError{Message: "empty quote response"}
		c.metrics.QuoteOutcome(metrics.OutcomeError)
		c.state = StateErrored
		c.err = qerr
		c.result = nil
		c.toAmount = ""
		c.publishLocked()
		return nil, qerr
	}

	display, derr := amount.FromRaw(res.ToAmount, p.ToDecimals)
	if derr != nil {
		log.Warn().Err(derr).Str("amount_out", res.ToAmount).Msg("cannot shift quoted amount")
		display = ""
	}
	c.state = StateReady
	c.result = res
	c.err = nil
	c.toAmount = display
	c.routerType = res.RouterType
	c.metrics.QuoteOutcome(metrics.OutcomeSuccess)
	log.Debug().Str("to_amount", display).Str("router_type", string(res.RouterType)).Msg("quote ready")

	if !strings.EqualFold(p.Request.FromAddress, NullAddress) {
		c.refetch.Schedule(c.cfg.RefetchInterval, func() {
			if _, err := c.RequestQuote(context.Background(), p, Options{AutoRefetch: true}); err != nil {
				c.log.Debug().Err(err).Msg("auto refetch failed")
			}
		})
	}
	c.publishLocked()
	return res, nil
}

// DebouncedRequest issues a manual request for p once no newer params arrived
// within the debounce delay
func (c *Coordinator) DebouncedRequest(p Params) {
	c.debouncer.Call(p)
}

// CancelPendingQuote aborts the in-flight call and drops the scheduled
// auto-refetch. Safe to call repeatedly.
func (c *Coordinator) CancelPendingQuote() {
	c.debouncer.Cancel()
	c.refetch.Cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
		c.seq++
	}
	if c.state == StateFetching {
		c.settleLocked()
		c.publishLocked()
	}
}

// Reset cancels pending work and discards the current quote
func (c *Coordinator) Reset() {
	c.CancelPendingQuote()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	c.result = nil
	c.err = nil
	c.toAmount = ""
	c.publishLocked()
}

// RefetchPending reports whether an auto-refetch is scheduled
func (c *Coordinator) RefetchPending() bool {
	return c.refetch.Pending()
}

// Snapshot returns the current state
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe streams snapshots on every state change. Slow readers miss
// intermediate snapshots. The returned func unsubscribes.
func (c *Coordinator) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 16)
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ch)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Coordinator) snapshotLocked() Snapshot {
	return Snapshot{
		State:      c.state,
		Result:     c.result,
		Err:        c.err,
		ToAmount:   c.toAmount,
		RouterType: c.routerType,
	}
}

func (c *Coordinator) publishLocked() {
	snap := c.snapshotLocked()
	for ch := range c.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// settleLocked leaves the fetching state after a cancellation
func (c *Coordinator) settleLocked() {
	switch {
	case c.err != nil:
		c.state = StateErrored
	case c.result != nil:
		c.state = StateReady
	default:
		c.state = StateIdle
	}
}

func toQuoteError(err error) *QuoteError {
	var qerr *QuoteError
	if errors.As(err, &qerr) {
		return qerr
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return &QuoteError{Status: apiErr.StatusCode, Message: apiErr.Message}
	}
	return &QuoteError{Message: err.Error()}
}

var affiliatePath = regexp.MustCompile(`^/v/([^/]+)(?:/|$)`)

// AffiliateCode extracts the referral code from a /v/<code> page path
func AffiliateCode(path string) string {
	m := affiliatePath.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}
