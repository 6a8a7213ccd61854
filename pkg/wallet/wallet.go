package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrUserRejected is returned when the signer declines a prompt
	ErrUserRejected = errors.New("user rejected the request")
	// ErrWrongChain is returned when a transaction targets a chain other than the active one
	ErrWrongChain = errors.New("wallet is on a different chain")
)

// userRejectedCode is the EIP-1193 code for a rejected request
const userRejectedCode = 4001

// TxRequest describes a transaction to sign and send. Zero or nil gas
// fields are estimated by the wallet.
type TxRequest struct {
	ChainID              int64
	To                   common.Address
	Data                 []byte
	Value                *big.Int
	Gas                  uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// Wallet is a connected account able to switch chains and send transactions
type Wallet interface {
	Address() common.Address
	ChainID(ctx context.Context) (int64, error)
	SwitchChain(ctx context.Context, chainID int64) error
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
}

// IsUserRejection reports whether err means the user declined the prompt
// rather than the request failing
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserRejected) {
		return true
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "user rejected") ||
		strings.Contains(msg, "rejected the transaction") ||
		strings.Contains(msg, "user denied")
}

// SendWithChainGuard runs execute once the wallet is on requiredChainID,
// switching first when needed. A failed switch is returned and execute is
// not called.
func SendWithChainGuard(ctx context.Context, w Wallet, requiredChainID int64, execute func(ctx context.Context) error) error {
	current, err := w.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read active chain: %w", err)
	}
	if current != requiredChainID {
		if err := w.SwitchChain(ctx, requiredChainID); err != nil {
			return fmt.Errorf("failed to switch to chain %d: %w", requiredChainID, err)
		}
	}
	return execute(ctx)
}
