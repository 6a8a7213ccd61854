package lifecycle

import (
	"context"
	"time"

	"bridge-swap/pkg/types"
)

// OrderSource looks up a cross-chain order by id
type OrderSource interface {
	Order(ctx context.Context, orderID string) (*types.OrderDetail, error)
}

type stopReason int

const (
	notStopped stopReason = iota
	stoppedFilled
	stoppedFailed
	stoppedTimeout
	stoppedCancelled
)

// orderPoller is either polling(attempt) or stopped(reason). next is its
// only transition and shouldContinue is checked once per tick.
type orderPoller struct {
	attempt int
	reason  stopReason
	last    *types.OrderDetail
	lastErr error
}

func (p orderPoller) shouldContinue(maxAttempts int) bool {
	return p.reason == notStopped && p.attempt < maxAttempts
}

func (p orderPoller) next(order *types.OrderDetail, err error, maxAttempts int) orderPoller {
	p.attempt++
	p.lastErr = err
	if err == nil && order != nil {
		p.last = order
		switch order.Status {
		case types.OrderFilled:
			p.reason = stoppedFilled
			return p
		case types.OrderFailed, types.OrderRefund:
			p.reason = stoppedFailed
			return p
		}
	}
	if p.attempt >= maxAttempts {
		p.reason = stoppedTimeout
	}
	return p
}

func (p orderPoller) cancel() orderPoller {
	p.reason = stoppedCancelled
	return p
}

// pollOrder checks the order right away and then every OrderPollInterval
// until it is terminal, the attempts run out or ctx ends. Fetch errors count
// as attempts.
func (t *Tracker) pollOrder(ctx context.Context, orderID string) orderPoller {
	var p orderPoller
	for p.shouldContinue(t.cfg.OrderMaxAttempts) {
		order, err := t.orders.Order(ctx, orderID)
		if ctx.Err() != nil {
			return p.cancel()
		}
		t.metrics.OrderPoll()
		if err != nil {
			t.log.Debug().Err(err).Str("order_id", orderID).Int("attempt", p.attempt+1).Msg("order status check failed")
		}
		p = p.next(order, err, t.cfg.OrderMaxAttempts)
		if !p.shouldContinue(t.cfg.OrderMaxAttempts) {
			break
		}

		timer := time.NewTimer(t.cfg.OrderPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return p.cancel()
		case <-timer.C:
		}
	}
	return p
}
