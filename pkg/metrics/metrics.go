package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"bridge-swap/pkg/types"
)

const namespace = "bridge_swap"

// Metrics holds the collectors shared by the quote coordinator and the
// lifecycle tracker. A nil *Metrics records nothing.
type Metrics struct {
	quotes         *prometheus.CounterVec
	receiptRetries prometheus.Counter
	terminal       *prometheus.CounterVec
	orderPolls     prometheus.Counter
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Quote requests by outcome.",
		}, []string{"outcome"}),
		receiptRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_retries_total",
			Help:      "Receipt fetches retried after a retryable RPC error.",
		}),
		terminal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_terminal_total",
			Help:      "Transaction lifecycles that reached a terminal status.",
		}, []string{"status"}),
		orderPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_polls_total",
			Help:      "Order status checks issued.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.quotes, m.receiptRetries, m.terminal, m.orderPolls)
	}
	return m
}

// Quote outcomes
const (
	OutcomeSuccess    = "success"
	OutcomeError      = "error"
	OutcomeCancelled  = "cancelled"
	OutcomeSuperseded = "superseded"
)

func (m *Metrics) QuoteOutcome(outcome string) {
	if m == nil {
		return
	}
	m.quotes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ReceiptRetry() {
	if m == nil {
		return
	}
	m.receiptRetries.Inc()
}

func (m *Metrics) Terminal(status types.LifecycleStatus) {
	if m == nil {
		return
	}
	m.terminal.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) OrderPoll() {
	if m == nil {
		return
	}
	m.orderPolls.Inc()
}
