package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v3"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"bridge-swap/pkg/wallet"
)

// ErrMaxRetriesExceeded is returned once receipt fetching used up its retries
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

var retryableMessages = []string{
	"rpc endpoint",
	"http client error",
	"network",
	"timeout",
	"timed out",
	"connection refused",
	"connection reset",
	"too many requests",
	"unknownrpcerror",
	"eof",
}

// IsRetryable reports whether a receipt fetch error is transient. User
// rejections and unknown errors are not.
func IsRetryable(err error) bool {
	if err == nil || wallet.IsUserRejection(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range retryableMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// pollReceipt waits for hash to be mined. Not-found answers are polled at
// the regular interval; retryable errors back off exponentially until the
// retry budget is spent.
func (t *Tracker) pollReceipt(ctx context.Context, chainID int64, hash common.Hash) (*gethtypes.Receipt, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = t.cfg.ReceiptBaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = time.Hour
	exp.MaxElapsedTime = 0
	exp.Reset()
	retry := backoff.WithMaxRetries(exp, uint64(t.cfg.ReceiptMaxRetries))

	attempt := 0
	for {
		receipt, err := t.receipts.TransactionReceipt(ctx, chainID, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var delay time.Duration
		switch {
		case err == nil || errors.Is(err, ethereum.NotFound):
			delay = t.cfg.ReceiptPollInterval
		case !IsRetryable(err):
			return nil, fmt.Errorf("failed to get receipt for %s: %w", hash.Hex(), err)
		default:
			delay = retry.NextBackOff()
			if delay == backoff.Stop {
				return nil, fmt.Errorf("%w after %d attempts: %v", ErrMaxRetriesExceeded, attempt, err)
			}
			attempt++
			t.metrics.ReceiptRetry()
			t.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Str("tx_hash", hash.Hex()).Msg("retrying receipt fetch")
			if t.onRetry != nil {
				t.onRetry(attempt, delay)
			}
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
