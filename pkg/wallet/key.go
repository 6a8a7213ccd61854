package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

// Backend is the part of an RPC client the key wallet needs on one chain.
// *ethclient.Client satisfies it.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// ConfirmFunc is shown every transaction before signing. Returning false
// rejects it.
type ConfirmFunc func(req TxRequest) bool

const defaultReceiptInterval = 2 * time.Second

// KeyWallet signs with a local private key and talks to one RPC backend
// per configured chain
type KeyWallet struct {
	key      *ecdsa.PrivateKey
	address  common.Address
	backends map[int64]Backend
	closers  []func()
	confirm  ConfirmFunc
	log      zerolog.Logger

	receiptInterval time.Duration

	mu     sync.Mutex
	active int64
}

// KeyOption configures a KeyWallet
type KeyOption func(*KeyWallet)

func WithConfirm(fn ConfirmFunc) KeyOption {
	return func(w *KeyWallet) { w.confirm = fn }
}

func WithLogger(log zerolog.Logger) KeyOption {
	return func(w *KeyWallet) { w.log = log }
}

// WithReceiptInterval sets how often WaitReceipt polls
func WithReceiptInterval(d time.Duration) KeyOption {
	return func(w *KeyWallet) { w.receiptInterval = d }
}

// ParsePrivateKey parses a hex key with or without 0x prefix
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// NewKeyWallet creates a wallet over already connected backends. The active
// chain starts at activeChain.
func NewKeyWallet(key *ecdsa.PrivateKey, backends map[int64]Backend, activeChain int64, opts ...KeyOption) (*KeyWallet, error) {
	if key == nil {
		return nil, errors.New("private key is required")
	}
	if len(backends) == 0 {
		return nil, errors.New("no chains configured")
	}
	if _, ok := backends[activeChain]; !ok {
		return nil, fmt.Errorf("chain %d not configured", activeChain)
	}
	w := &KeyWallet{
		key:             key,
		address:         crypto.PubkeyToAddress(key.PublicKey),
		backends:        backends,
		log:             zerolog.Nop(),
		receiptInterval: defaultReceiptInterval,
		active:          activeChain,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// DialKeyWallet connects to every RPC URL and builds a KeyWallet
func DialKeyWallet(ctx context.Context, hexKey string, rpcURLs map[int64]string, activeChain int64, opts ...KeyOption) (*KeyWallet, error) {
	key, err := ParsePrivateKey(hexKey)
	if err != nil {
		return nil, err
	}

	backends := make(map[int64]Backend, len(rpcURLs))
	var closers []func()
	for chainID, url := range rpcURLs {
		if url == "" {
			return nil, fmt.Errorf("RPC URL not configured for chain %d", chainID)
		}
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, fmt.Errorf("failed to connect to RPC endpoint for chain %d: %w", chainID, err)
		}
		backends[chainID] = client
		closers = append(closers, client.Close)
	}

	w, err := NewKeyWallet(key, backends, activeChain, opts...)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}
	w.closers = closers
	return w, nil
}

func (w *KeyWallet) Address() common.Address {
	return w.address
}

func (w *KeyWallet) ChainID(ctx context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active, nil
}

// SwitchChain makes chainID the active chain. Only configured chains can
// be selected.
func (w *KeyWallet) SwitchChain(ctx context.Context, chainID int64) error {
	if _, ok := w.backends[chainID]; !ok {
		return fmt.Errorf("chain %d not configured", chainID)
	}
	w.mu.Lock()
	w.active = chainID
	w.mu.Unlock()
	w.log.Debug().Int64("chain_id", chainID).Msg("switched chain")
	return nil
}

// SendTransaction signs req as an EIP-1559 transaction and broadcasts it
func (w *KeyWallet) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	active, _ := w.ChainID(ctx)
	if req.ChainID == 0 {
		req.ChainID = active
	}
	if req.ChainID != active {
		return common.Hash{}, fmt.Errorf("%w: want %d, active %d", ErrWrongChain, req.ChainID, active)
	}
	backend := w.backends[active]

	if w.confirm != nil && !w.confirm(req) {
		return common.Hash{}, ErrUserRejected
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	tip := req.MaxPriorityFeePerGas
	if !positive(tip) {
		tip, err = backend.SuggestGasTipCap(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to get gas tip: %w", err)
		}
	}

	feeCap := req.MaxFeePerGas
	if !positive(feeCap) {
		head, err := backend.HeaderByNumber(ctx, nil)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to get latest header: %w", err)
		}
		feeCap = new(big.Int).Set(tip)
		if head.BaseFee != nil {
			feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		}
	}
	if feeCap.Cmp(tip) < 0 {
		tip = feeCap
	}

	gas := req.Gas
	if gas == 0 {
		to := req.To
		estimated, err := backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  w.address,
			To:    &to,
			Value: value,
			Data:  req.Data,
		})
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
		}
		gas = estimated * 120 / 100 // 20% buffer
	}

	to := req.To
	tx := gethtypes.NewTx(&gethtypes.DynamicFeeTx{
		ChainID:   big.NewInt(active),
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	})
	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(big.NewInt(active)), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	w.log.Info().Int64("chain_id", active).Str("tx_hash", signed.Hash().Hex()).Uint64("nonce", nonce).Msg("transaction sent")
	return signed.Hash(), nil
}

// CallContract runs a read-only call on chainID
func (w *KeyWallet) CallContract(ctx context.Context, chainID int64, msg ethereum.CallMsg) ([]byte, error) {
	backend, err := w.backend(chainID)
	if err != nil {
		return nil, err
	}
	return backend.CallContract(ctx, msg, nil)
}

// TransactionReceipt fetches a receipt on chainID. A transaction that is
// not mined yet yields ethereum.NotFound.
func (w *KeyWallet) TransactionReceipt(ctx context.Context, chainID int64, hash common.Hash) (*gethtypes.Receipt, error) {
	backend, err := w.backend(chainID)
	if err != nil {
		return nil, err
	}
	return backend.TransactionReceipt(ctx, hash)
}

// WaitReceipt polls until hash is mined on chainID. Any error other than
// not-found is returned as is.
func (w *KeyWallet) WaitReceipt(ctx context.Context, chainID int64, hash common.Hash) (*gethtypes.Receipt, error) {
	ticker := time.NewTicker(w.receiptInterval)
	defer ticker.Stop()
	for {
		receipt, err := w.TransactionReceipt(ctx, chainID, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get receipt for %s: %w", hash.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close releases dialed connections
func (w *KeyWallet) Close() {
	for _, c := range w.closers {
		c()
	}
	w.closers = nil
}

func (w *KeyWallet) backend(chainID int64) (Backend, error) {
	b, ok := w.backends[chainID]
	if !ok {
		return nil, fmt.Errorf("chain %d not configured", chainID)
	}
	return b, nil
}

func positive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}
