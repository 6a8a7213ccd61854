package approval

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"bridge-swap/pkg/types"
	"bridge-swap/pkg/wallet"
)

// legacyResetToken is mainnet USDT, which rejects changing a nonzero
// allowance to another nonzero value
const (
	legacyResetChainID = 1
	legacyResetAddress = "0xdac17f958d2ee523a2206206994597c13d831ec7"
)

// ErrApprovalReverted is returned when an approve transaction was mined but failed
var ErrApprovalReverted = errors.New("approval transaction reverted")

// ChainReader runs read-only contract calls on a chain
type ChainReader interface {
	CallContract(ctx context.Context, chainID int64, msg ethereum.CallMsg) ([]byte, error)
}

// ReceiptWaiter blocks until a transaction is mined
type ReceiptWaiter interface {
	WaitReceipt(ctx context.Context, chainID int64, hash common.Hash) (*gethtypes.Receipt, error)
}

// Gate makes sure a spender may move the owner's tokens before a swap.
// Approvals are sent one at a time and each receipt is awaited before the
// next step.
type Gate struct {
	reader   ChainReader
	wallet   wallet.Wallet
	receipts ReceiptWaiter
	log      zerolog.Logger
}

// NewGate creates an approval gate
func NewGate(reader ChainReader, w wallet.Wallet, receipts ReceiptWaiter, log zerolog.Logger) *Gate {
	return &Gate{
		reader:   reader,
		wallet:   w,
		receipts: receipts,
		log:      log,
	}
}

// IsLegacyResetToken reports whether token needs its allowance zeroed before
// a new approval
func IsLegacyResetToken(token types.TokenRef) bool {
	return token.ChainID == legacyResetChainID && strings.EqualFold(token.Address, legacyResetAddress)
}

// Allowance reads allowance(owner, spender) on token
func (g *Gate) Allowance(ctx context.Context, token types.TokenRef, owner, spender common.Address) (*big.Int, error) {
	data, err := wallet.PackAllowance(owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to pack allowance call: %w", err)
	}
	contract := common.HexToAddress(token.Address)
	out, err := g.reader.CallContract(ctx, token.ChainID, ethereum.CallMsg{To: &contract, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to read allowance of %s: %w", token, err)
	}
	return wallet.UnpackAllowance(out)
}

// NeedsApproval reports whether the current allowance is below amount.
// Native assets never need approval.
func (g *Gate) NeedsApproval(ctx context.Context, token types.TokenRef, owner, spender common.Address, amount *big.Int) (bool, error) {
	if token.IsNative() {
		return false, nil
	}
	allowance, err := g.Allowance(ctx, token, owner, spender)
	if err != nil {
		return false, err
	}
	return allowance.Cmp(amount) < 0, nil
}

// Approve sends approve(spender, amount) and waits for it to be mined
func (g *Gate) Approve(ctx context.Context, token types.TokenRef, spender common.Address, amount *big.Int) error {
	data, err := wallet.PackApprove(spender, amount)
	if err != nil {
		return fmt.Errorf("failed to pack approve call: %w", err)
	}

	hash, err := g.wallet.SendTransaction(ctx, wallet.TxRequest{
		ChainID: token.ChainID,
		To:      common.HexToAddress(token.Address),
		Data:    data,
	})
	if err != nil {
		return fmt.Errorf("failed to send approval: %w", err)
	}
	g.log.Info().Str("token", token.String()).Str("amount", amount.String()).Str("tx_hash", hash.Hex()).Msg("approval sent")

	receipt, err := g.receipts.WaitReceipt(ctx, token.ChainID, hash)
	if err != nil {
		return fmt.Errorf("failed waiting for approval %s: %w", hash.Hex(), err)
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s", ErrApprovalReverted, hash.Hex())
	}
	return nil
}

// ApproveWithReset approves amount for tokens that require the allowance to
// be zero first. A sufficient allowance is left alone. A smaller nonzero one
// is reset to zero, and that reset is mined before the real approval is sent.
func (g *Gate) ApproveWithReset(ctx context.Context, token types.TokenRef, owner, spender common.Address, amount *big.Int) error {
	allowance, err := g.Allowance(ctx, token, owner, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}
	if allowance.Sign() > 0 {
		g.log.Info().Str("token", token.String()).Str("allowance", allowance.String()).Msg("resetting allowance")
		if err := g.Approve(ctx, token, spender, new(big.Int)); err != nil {
			return fmt.Errorf("failed to reset allowance: %w", err)
		}
	}
	return g.Approve(ctx, token, spender, amount)
}

// Ensure leaves owner with at least amount approved for spender, picking
// the reset path for legacy tokens
func (g *Gate) Ensure(ctx context.Context, token types.TokenRef, owner, spender common.Address, amount *big.Int) error {
	if token.IsNative() {
		return nil
	}
	if IsLegacyResetToken(token) {
		return g.ApproveWithReset(ctx, token, owner, spender, amount)
	}
	needs, err := g.NeedsApproval(ctx, token, owner, spender, amount)
	if err != nil {
		return err
	}
	if !needs {
		return nil
	}
	return g.Approve(ctx, token, spender, amount)
}
