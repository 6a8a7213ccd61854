package submit

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"bridge-swap/pkg/lifecycle"
	"bridge-swap/pkg/types"
	"bridge-swap/pkg/wallet"
)

var (
	// ErrNoQuote is returned when there is nothing to execute
	ErrNoQuote = errors.New("no quote to execute")
	// ErrUserCancelled is returned when the user declined the wallet prompt
	ErrUserCancelled = errors.New("transaction cancelled by user")
)

// Approver grants the router an allowance when needed
type Approver interface {
	Ensure(ctx context.Context, token types.TokenRef, owner, spender common.Address, amount *big.Int) error
}

// Lifecycle receives the outcome of a submission
type Lifecycle interface {
	Track(p lifecycle.Params) (types.TxLifecycle, error)
	MarkUserCancelled(fromChainID, toChainID int64) types.TxLifecycle
}

// SubmittedHook runs after the source transaction was broadcast
type SubmittedHook func(ctx context.Context, quote *types.QuoteResult, lc types.TxLifecycle)

// Request is a quote ready to execute
type Request struct {
	Quote  *types.QuoteResult
	From   types.TokenRef
	To     types.TokenRef
	Amount *big.Int
}

// Option configures a Submitter
type Option func(*Submitter)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Submitter) { s.log = log }
}

func WithNotifier(n types.Notifier) Option {
	return func(s *Submitter) { s.notifier = n }
}

func WithSubmittedHook(fn SubmittedHook) Option {
	return func(s *Submitter) { s.hooks = append(s.hooks, fn) }
}

// Submitter turns a quote into a signed source transaction
type Submitter struct {
	wallet    wallet.Wallet
	approver  Approver
	lifecycle Lifecycle
	notifier  types.Notifier
	log       zerolog.Logger
	hooks     []SubmittedHook

	mu            sync.Mutex
	userCancelled bool
}

// NewSubmitter creates a Submitter
func NewSubmitter(w wallet.Wallet, approver Approver, lc Lifecycle, opts ...Option) *Submitter {
	s := &Submitter{
		wallet:    w,
		approver:  approver,
		lifecycle: lc,
		notifier:  types.NopNotifier,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UserCancelled reports whether the last attempt was declined by the user
func (s *Submitter) UserCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userCancelled
}

// Execute switches to the quote's chain, approves when the quote asks for
// it and sends the transaction. On success tracking starts right away.
func (s *Submitter) Execute(ctx context.Context, req Request) (types.TxLifecycle, error) {
	q := req.Quote
	if q == nil {
		return types.TxLifecycle{}, ErrNoQuote
	}
	if q.TxTo == "" {
		return types.TxLifecycle{}, fmt.Errorf("%w: quote has no transaction target", ErrNoQuote)
	}
	chainID := q.TxChainID
	if chainID == 0 {
		chainID = req.From.ChainID
	}

	value, err := parseValue(q.TxValue)
	if err != nil {
		return types.TxLifecycle{}, err
	}

	var hash common.Hash
	err = wallet.SendWithChainGuard(ctx, s.wallet, chainID, func(ctx context.Context) error {
		if q.RequiresApproval {
			spender := q.ApproveSpender
			if spender == "" {
				spender = q.TxTo
			}
			if err := s.approver.Ensure(ctx, req.From, s.wallet.Address(), common.HexToAddress(spender), req.Amount); err != nil {
				return fmt.Errorf("approval failed: %w", err)
			}
		}

		tx := wallet.TxRequest{
			ChainID: chainID,
			To:      common.HexToAddress(q.TxTo),
			Data:    q.TxData,
			Value:   value,
		}
		if q.Gas > 0 {
			tx.Gas = q.Gas
		}
		if q.MaxFeePerGas != nil && q.MaxFeePerGas.Sign() > 0 {
			tx.MaxFeePerGas = q.MaxFeePerGas
		}
		if q.MaxPriorityFeePerGas != nil && q.MaxPriorityFeePerGas.Sign() > 0 {
			tx.MaxPriorityFeePerGas = q.MaxPriorityFeePerGas
		}

		h, err := s.wallet.SendTransaction(ctx, tx)
		if err != nil {
			return err
		}
		hash = h
		return nil
	})

	if err != nil {
		if wallet.IsUserRejection(err) {
			s.mu.Lock()
			s.userCancelled = true
			s.mu.Unlock()
			s.log.Info().Msg("user declined the transaction")
			lc := s.lifecycle.MarkUserCancelled(chainID, req.To.ChainID)
			return lc, ErrUserCancelled
		}
		s.log.Error().Err(err).Int64("chain_id", chainID).Msg("submission failed")
		s.notifier.Notify(types.SeverityError, err.Error())
		return types.TxLifecycle{}, err
	}

	s.mu.Lock()
	s.userCancelled = false
	s.mu.Unlock()

	lc, err := s.lifecycle.Track(lifecycle.Params{
		FromChainID: chainID,
		ToChainID:   req.To.ChainID,
		FromTxHash:  hash.Hex(),
		RequestID:   q.RequestID,
	})
	if err != nil {
		return lc, fmt.Errorf("failed to start tracking %s: %w", hash.Hex(), err)
	}
	s.log.Info().Str("tx_hash", hash.Hex()).Str("lifecycle_id", lc.ID).Msg("transaction submitted")

	for _, hook := range s.hooks {
		hook(ctx, q, lc)
	}
	return lc, nil
}

func parseValue(v string) (*big.Int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(v, 0)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid transaction value %q", v)
	}
	return n, nil
}
