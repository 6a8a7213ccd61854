package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"bridge-swap/pkg/lifecycle"
	"bridge-swap/pkg/types"
)

func (a *app) newTracker(receipts lifecycle.ReceiptSource, orders lifecycle.OrderSource) *lifecycle.Tracker {
	return lifecycle.NewTracker(receipts, orders, a.cfg.TrackerSettings(),
		lifecycle.WithLogger(a.log),
		lifecycle.WithMetrics(a.metrics),
		lifecycle.WithNotifier(a.notifier()),
		lifecycle.WithRetryHook(func(attempt int, delay time.Duration) {
			a.log.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("receipt fetch retrying")
		}))
}

// follow shows tracker progress and stores every change in the history
// until the lifecycle is terminal or ctx ends
func (a *app) follow(ctx context.Context, tracker *lifecycle.Tracker) types.TxLifecycle {
	updates, unsubscribe := tracker.Subscribe()
	defer unsubscribe()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !a.json {
		s.Suffix = statusSuffix(tracker.Snapshot().Status)
		s.Start()
		defer s.Stop()
	}

	lc := tracker.Snapshot()
	for !lc.Status.Terminal() {
		select {
		case <-ctx.Done():
			tracker.Stop()
			lc = tracker.Snapshot()
			a.saveLifecycle(lc)
			if !a.json {
				s.Stop()
				fmt.Println("\nStopped watching. Resume with:")
				color.Cyan("  bridge-swap status %s\n", lc.ID)
			}
			return lc
		case lc = <-updates:
			a.saveLifecycle(lc)
			if !a.json {
				s.Suffix = statusSuffix(lc.Status)
			}
			a.log.Debug().Str("status", string(lc.Status)).Str("order_id", lc.OrderID).Msg("lifecycle update")
		}
	}
	return lc
}

func (a *app) saveLifecycle(lc types.TxLifecycle) {
	if lc.ID == "" || lc.FromTxHash == "" {
		return
	}
	if err := a.history.UpdateLifecycle(lc); err != nil {
		a.log.Warn().Err(err).Str("id", lc.ID).Msg("failed to store lifecycle")
	}
}
