package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bridge-swap/pkg/metrics"
	"bridge-swap/pkg/schedule"
	"bridge-swap/pkg/types"
)

const (
	DefaultReceiptPollInterval = 2 * time.Second
	DefaultReceiptBaseDelay    = time.Second
	DefaultReceiptMaxRetries   = 6
	DefaultWatchdog            = 5 * time.Minute
	DefaultOrderPollInterval   = time.Second
	DefaultOrderMaxAttempts    = 200
)

const (
	blockedMessage   = "This transaction is stuck on the source network. Open your wallet's activity to speed up or cancel it."
	cancelledMessage = "Transaction cancelled in wallet"
)

// ReceiptSource fetches receipts. A transaction that is not mined yet must
// yield ethereum.NotFound.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, chainID int64, hash common.Hash) (*gethtypes.Receipt, error)
}

// Config tunes polling. Zero values take the defaults.
type Config struct {
	ReceiptPollInterval time.Duration
	ReceiptBaseDelay    time.Duration
	ReceiptMaxRetries   int
	Watchdog            time.Duration
	OrderPollInterval   time.Duration
	OrderMaxAttempts    int
	// OrderOpenedTopic is the event signature whose first indexed argument
	// is the order id. Used only when the quote carried no request id.
	OrderOpenedTopic common.Hash
}

func (c Config) withDefaults() Config {
	if c.ReceiptPollInterval <= 0 {
		c.ReceiptPollInterval = DefaultReceiptPollInterval
	}
	if c.ReceiptBaseDelay <= 0 {
		c.ReceiptBaseDelay = DefaultReceiptBaseDelay
	}
	if c.ReceiptMaxRetries <= 0 {
		c.ReceiptMaxRetries = DefaultReceiptMaxRetries
	}
	if c.Watchdog <= 0 {
		c.Watchdog = DefaultWatchdog
	}
	if c.OrderPollInterval <= 0 {
		c.OrderPollInterval = DefaultOrderPollInterval
	}
	if c.OrderMaxAttempts <= 0 {
		c.OrderMaxAttempts = DefaultOrderMaxAttempts
	}
	return c
}

// Params starts tracking a submitted transaction
type Params struct {
	// ID resumes a stored lifecycle; empty creates a new one
	ID          string
	FromChainID int64
	ToChainID   int64
	FromTxHash  string
	// RequestID is the quote's request id, preferred as order id
	RequestID string
}

// Option configures a Tracker
type Option func(*Tracker)

func WithLogger(log zerolog.Logger) Option {
	return func(t *Tracker) { t.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

func WithNotifier(n types.Notifier) Option {
	return func(t *Tracker) { t.notifier = n }
}

// WithRetryHook observes every receipt retry and its delay
func WithRetryHook(fn func(attempt int, delay time.Duration)) Option {
	return func(t *Tracker) { t.onRetry = fn }
}

type run struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Tracker follows one transaction at a time from source confirmation to the
// destination fill. Starting a new one, Stop and Reset end all polling of
// the previous one.
type Tracker struct {
	receipts ReceiptSource
	orders   OrderSource
	cfg      Config
	log      zerolog.Logger
	metrics  *metrics.Metrics
	notifier types.Notifier
	onRetry  func(attempt int, delay time.Duration)

	mu       sync.Mutex
	lc       types.TxLifecycle
	cur      *run
	watchdog schedule.Task
	subs     map[chan types.TxLifecycle]struct{}
}

// NewTracker creates a tracker
func NewTracker(receipts ReceiptSource, orders OrderSource, cfg Config, opts ...Option) *Tracker {
	t := &Tracker{
		receipts: receipts,
		orders:   orders,
		cfg:      cfg.withDefaults(),
		log:      zerolog.Nop(),
		notifier: types.NopNotifier,
		lc:       types.TxLifecycle{Status: types.StatusIdle},
		subs:     make(map[chan types.TxLifecycle]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track starts following p.FromTxHash and returns the new lifecycle
func (t *Tracker) Track(p Params) (types.TxLifecycle, error) {
	if p.FromTxHash == "" {
		return types.TxLifecycle{}, errors.New("source transaction hash is required")
	}
	t.Stop()

	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	ctx, cancel := context.WithCancel(context.Background())
	r := &run{ctx: ctx, cancel: cancel, done: make(chan struct{})}

	t.mu.Lock()
	t.cur = r
	t.lc = types.TxLifecycle{
		ID:          id,
		FromChainID: p.FromChainID,
		ToChainID:   p.ToChainID,
		FromTxHash:  strings.ToLower(p.FromTxHash),
		Status:      types.StatusSubmitted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	lc := t.lc
	t.publishLocked()
	t.watchdog.Schedule(t.cfg.Watchdog, func() { t.onWatchdog(r) })
	t.mu.Unlock()

	go t.run(r, p)
	return lc, nil
}

// MarkUserCancelled records that the wallet prompt was declined. No
// transaction exists, so nothing is polled.
func (t *Tracker) MarkUserCancelled(fromChainID, toChainID int64) types.TxLifecycle {
	t.Stop()

	now := time.Now().UTC()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lc = types.TxLifecycle{
		ID:            uuid.NewString(),
		FromChainID:   fromChainID,
		ToChainID:     toChainID,
		Status:        types.StatusUserCancelled,
		UserCancelled: true,
		Message:       cancelledMessage,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	t.publishLocked()
	t.notifier.Notify(types.SeverityInfo, cancelledMessage)
	return t.lc
}

// Stop ends all polling of the current lifecycle and waits for it to
// return. The lifecycle keeps its last status.
func (t *Tracker) Stop() {
	t.mu.Lock()
	r := t.cur
	t.cur = nil
	t.watchdog.Cancel()
	t.mu.Unlock()

	if r != nil {
		r.cancel()
		<-r.done
	}
}

// Reset stops polling and returns to idle
func (t *Tracker) Reset() {
	t.Stop()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lc = types.TxLifecycle{Status: types.StatusIdle}
	t.publishLocked()
}

// Snapshot returns the current lifecycle
func (t *Tracker) Snapshot() types.TxLifecycle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lc
}

// Wait blocks until the current lifecycle stops polling or ctx ends
func (t *Tracker) Wait(ctx context.Context) (types.TxLifecycle, error) {
	t.mu.Lock()
	r := t.cur
	t.mu.Unlock()
	if r != nil {
		select {
		case <-r.done:
		case <-ctx.Done():
			return t.Snapshot(), ctx.Err()
		}
	}
	return t.Snapshot(), nil
}

// Subscribe streams lifecycle snapshots. Slow readers miss intermediate
// ones. The returned func unsubscribes.
func (t *Tracker) Subscribe() (<-chan types.TxLifecycle, func()) {
	ch := make(chan types.TxLifecycle, 16)
	t.mu.Lock()
	t.subs[ch] = struct{}{}
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, ch)
			t.mu.Unlock()
			close(ch)
		})
	}
}

func (t *Tracker) run(r *run, p Params) {
	defer close(r.done)
	defer r.cancel()

	log := t.log.With().Int64("chain_id", p.FromChainID).Str("tx_hash", p.FromTxHash).Logger()
	if !t.update(r, func(lc *types.TxLifecycle) { lc.Status = types.StatusConfirmingSource }) {
		return
	}

	receipt, err := t.pollReceipt(r.ctx, p.FromChainID, common.HexToHash(p.FromTxHash))
	switch {
	case r.ctx.Err() != nil:
		return
	case errors.Is(err, ErrMaxRetriesExceeded):
		t.finish(r, types.StatusMaxRetries, "Could not confirm the transaction: the RPC kept failing. Check it in a block explorer.", nil)
		return
	case err != nil:
		t.finish(r, types.StatusFailed, err.Error(), nil)
		return
	}

	t.mu.Lock()
	if t.cur == r {
		t.watchdog.Cancel()
	}
	t.mu.Unlock()

	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		log.Warn().Msg("source transaction reverted")
		t.finish(r, types.StatusFailed, "Transaction reverted on the source chain", nil)
		return
	}

	if p.FromChainID == p.ToChainID {
		t.finish(r, types.StatusFilled, "", func(lc *types.TxLifecycle) { lc.ToTxHash = lc.FromTxHash })
		return
	}

	orderID := p.RequestID
	if orderID == "" {
		orderID = OrderIDFromLogs(receipt.Logs, t.cfg.OrderOpenedTopic)
	}
	if orderID == "" {
		t.finish(r, types.StatusFailed, "order id not found in quote or receipt", nil)
		return
	}

	if !t.update(r, func(lc *types.TxLifecycle) {
		lc.OrderID = orderID
		lc.Status = types.StatusAwaitingFill
	}) {
		return
	}
	log.Info().Str("order_id", orderID).Msg("source confirmed, waiting for fill")

	poller := t.pollOrder(r.ctx, orderID)
	switch poller.reason {
	case stoppedFilled:
		t.finish(r, types.StatusFilled, "", func(lc *types.TxLifecycle) { lc.ToTxHash = poller.last.FillTxHash })
	case stoppedFailed:
		t.finish(r, types.StatusFailed, fmt.Sprintf("Order %s ended as %s", orderID, poller.last.Status), nil)
	case stoppedTimeout:
		t.finish(r, types.StatusFillTimeout, fmt.Sprintf("Order not filled after %d status checks; check order %s with `status`", poller.attempt, orderID), nil)
	}
}

// update applies fn if r is still the active run
func (t *Tracker) update(r *run, fn func(lc *types.TxLifecycle)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur != r || t.lc.Status.Terminal() {
		return false
	}
	fn(&t.lc)
	t.lc.UpdatedAt = time.Now().UTC()
	t.publishLocked()
	return true
}

// finish moves the lifecycle of r into a terminal status once
func (t *Tracker) finish(r *run, status types.LifecycleStatus, msg string, fn func(lc *types.TxLifecycle)) {
	t.mu.Lock()
	if t.cur != r || t.lc.Status.Terminal() {
		t.mu.Unlock()
		return
	}
	if fn != nil {
		fn(&t.lc)
	}
	t.lc.Status = status
	t.lc.Message = msg
	t.lc.UpdatedAt = time.Now().UTC()
	t.watchdog.Cancel()
	t.publishLocked()
	t.mu.Unlock()

	r.cancel()
	t.metrics.Terminal(status)
	t.log.Info().Str("status", string(status)).Str("message", msg).Msg("lifecycle finished")

	switch status {
	case types.StatusFilled:
		t.notifier.Notify(types.SeverityInfo, "Transaction completed")
	case types.StatusBlocked, types.StatusFillTimeout:
		t.notifier.Notify(types.SeverityWarning, msg)
	default:
		t.notifier.Notify(types.SeverityError, msg)
	}
}

// onWatchdog blocks a transaction still waiting for its source receipt
func (t *Tracker) onWatchdog(r *run) {
	t.mu.Lock()
	pending := t.cur == r && (t.lc.Status == types.StatusSubmitted || t.lc.Status == types.StatusConfirmingSource)
	t.mu.Unlock()
	if !pending {
		return
	}
	t.finish(r, types.StatusBlocked, blockedMessage, nil)
}

func (t *Tracker) publishLocked() {
	for ch := range t.subs {
		select {
		case ch <- t.lc:
		default:
		}
	}
}

// OrderIDFromLogs returns topic[1] of the first log whose topic[0] is
// topic. A zero topic disables the lookup.
func OrderIDFromLogs(logs []*gethtypes.Log, topic common.Hash) string {
	if topic == (common.Hash{}) {
		return ""
	}
	for _, l := range logs {
		if l == nil || len(l.Topics) < 2 {
			continue
		}
		if l.Topics[0] == topic {
			return l.Topics[1].Hex()
		}
	}
	return ""
}
