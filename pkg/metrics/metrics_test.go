package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridge-swap/pkg/types"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "/" + lp.GetValue()
			}
			out[key] = m.GetCounter().GetValue()
		}
	}
	return out
}

func TestCountersRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.QuoteOutcome(OutcomeSuccess)
	m.QuoteOutcome(OutcomeSuccess)
	m.QuoteOutcome(OutcomeError)
	m.ReceiptRetry()
	m.Terminal(types.StatusFilled)
	m.OrderPoll()
	m.OrderPoll()

	got := gather(t, reg)
	assert.Equal(t, 2.0, got["bridge_swap_quotes_total/success"])
	assert.Equal(t, 1.0, got["bridge_swap_quotes_total/error"])
	assert.Equal(t, 1.0, got["bridge_swap_receipt_retries_total"])
	assert.Equal(t, 1.0, got["bridge_swap_lifecycle_terminal_total/filled"])
	assert.Equal(t, 2.0, got["bridge_swap_order_polls_total"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.QuoteOutcome(OutcomeSuccess)
		m.ReceiptRetry()
		m.Terminal(types.StatusFailed)
		m.OrderPoll()
	})
}
