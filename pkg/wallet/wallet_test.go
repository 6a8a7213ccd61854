package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu          sync.Mutex
	sent        []*gethtypes.Transaction
	estimates   int
	receiptHits int
	receiptAt   int
	receipt     *gethtypes.Receipt
	receiptErr  error
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(2), nil
}

func (f *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error) {
	return &gethtypes.Header{BaseFee: big.NewInt(10)}, nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.estimates++
	return 100000, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptHits++
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	if f.receiptHits < f.receiptAt {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func newTestWallet(t *testing.T, opts ...KeyOption) (*KeyWallet, map[int64]*fakeBackend) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	fakes := map[int64]*fakeBackend{1: {}, 8453: {}}
	backends := map[int64]Backend{1: fakes[1], 8453: fakes[8453]}
	w, err := NewKeyWallet(key, backends, 1, opts...)
	require.NoError(t, err)
	return w, fakes
}

func TestSendTransactionUsesPositiveOverrides(t *testing.T) {
	w, fakes := newTestWallet(t)
	to := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	_, err := w.SendTransaction(context.Background(), TxRequest{
		ChainID:              1,
		To:                   to,
		Data:                 []byte{0x01},
		Value:                big.NewInt(5),
		Gas:                  50000,
		MaxFeePerGas:         big.NewInt(100),
		MaxPriorityFeePerGas: big.NewInt(3),
	})
	require.NoError(t, err)

	require.Len(t, fakes[1].sent, 1)
	tx := fakes[1].sent[0]
	assert.Equal(t, uint64(50000), tx.Gas())
	assert.Equal(t, int64(100), tx.GasFeeCap().Int64())
	assert.Equal(t, int64(3), tx.GasTipCap().Int64())
	assert.Equal(t, int64(5), tx.Value().Int64())
	assert.Equal(t, to, *tx.To())
	assert.Equal(t, 0, fakes[1].estimates)

	sender, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(big.NewInt(1)), tx)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), sender)
}

func TestSendTransactionEstimatesMissingOverrides(t *testing.T) {
	w, fakes := newTestWallet(t)

	_, err := w.SendTransaction(context.Background(), TxRequest{
		To:           common.HexToAddress("0x00000000000000000000000000000000000000bb"),
		MaxFeePerGas: big.NewInt(0),
	})
	require.NoError(t, err)

	tx := fakes[1].sent[0]
	assert.Equal(t, 1, fakes[1].estimates)
	assert.Equal(t, uint64(120000), tx.Gas())
	assert.Equal(t, int64(2), tx.GasTipCap().Int64())
	assert.Equal(t, int64(22), tx.GasFeeCap().Int64(), "tip plus twice the base fee")
}

func TestSendTransactionRejectedByUser(t *testing.T) {
	w, fakes := newTestWallet(t, WithConfirm(func(TxRequest) bool { return false }))

	_, err := w.SendTransaction(context.Background(), TxRequest{To: common.Address{1}})
	assert.ErrorIs(t, err, ErrUserRejected)
	assert.True(t, IsUserRejection(err))
	assert.Empty(t, fakes[1].sent)
}

func TestSendTransactionWrongChain(t *testing.T) {
	w, _ := newTestWallet(t)
	_, err := w.SendTransaction(context.Background(), TxRequest{ChainID: 8453, To: common.Address{1}})
	assert.ErrorIs(t, err, ErrWrongChain)
}

type codedError struct{ code int }

func (e codedError) Error() string  { return fmt.Sprintf("rpc error %d", e.code) }
func (e codedError) ErrorCode() int { return e.code }

func TestIsUserRejection(t *testing.T) {
	assert.True(t, IsUserRejection(fmt.Errorf("send: %w", ErrUserRejected)))
	assert.True(t, IsUserRejection(codedError{code: 4001}))
	assert.True(t, IsUserRejection(errors.New("MetaMask Tx Signature: User rejected the request.")))
	assert.True(t, IsUserRejection(errors.New("the user rejected the transaction")))
	assert.False(t, IsUserRejection(codedError{code: -32000}))
	assert.False(t, IsUserRejection(errors.New("insufficient funds")))
	assert.False(t, IsUserRejection(nil))
}

type guardWallet struct {
	Wallet
	chain     int64
	switchErr error
	switched  []int64
}

func (g *guardWallet) ChainID(ctx context.Context) (int64, error) { return g.chain, nil }

func (g *guardWallet) SwitchChain(ctx context.Context, id int64) error {
	g.switched = append(g.switched, id)
	if g.switchErr != nil {
		return g.switchErr
	}
	g.chain = id
	return nil
}

func TestSendWithChainGuard(t *testing.T) {
	ran := 0
	execute := func(ctx context.Context) error { ran++; return nil }

	g := &guardWallet{chain: 1}
	require.NoError(t, SendWithChainGuard(context.Background(), g, 1, execute))
	assert.Empty(t, g.switched)
	assert.Equal(t, 1, ran)

	require.NoError(t, SendWithChainGuard(context.Background(), g, 8453, execute))
	assert.Equal(t, []int64{8453}, g.switched)
	assert.Equal(t, 2, ran)

	g = &guardWallet{chain: 1, switchErr: errors.New("unsupported chain")}
	err := SendWithChainGuard(context.Background(), g, 10, execute)
	assert.Error(t, err)
	assert.Equal(t, 2, ran, "execute must not run after a failed switch")
}

func TestKeyWalletSwitchChain(t *testing.T) {
	w, _ := newTestWallet(t)
	require.NoError(t, w.SwitchChain(context.Background(), 8453))
	id, _ := w.ChainID(context.Background())
	assert.Equal(t, int64(8453), id)
	assert.Error(t, w.SwitchChain(context.Background(), 999))
}

func TestWaitReceiptPollsUntilMined(t *testing.T) {
	w, fakes := newTestWallet(t, WithReceiptInterval(5*time.Millisecond))
	fakes[1].receiptAt = 3
	fakes[1].receipt = &gethtypes.Receipt{Status: gethtypes.ReceiptStatusSuccessful}

	r, err := w.WaitReceipt(context.Background(), 1, common.Hash{1})
	require.NoError(t, err)
	assert.Equal(t, gethtypes.ReceiptStatusSuccessful, r.Status)
	assert.Equal(t, 3, fakes[1].receiptHits)

	fakes[8453].receiptErr = errors.New("boom")
	_, err = w.WaitReceipt(context.Background(), 8453, common.Hash{1})
	assert.Error(t, err)
}

func TestApproveCalldata(t *testing.T) {
	spender := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	data, err := PackApprove(spender, big.NewInt(10))
	require.NoError(t, err)

	gotSpender, gotAmount, err := UnpackApprove(data)
	require.NoError(t, err)
	assert.Equal(t, spender, gotSpender)
	assert.Equal(t, int64(10), gotAmount.Int64())

	transfer, err := PackTransfer(spender, big.NewInt(1))
	require.NoError(t, err)
	_, _, err = UnpackApprove(transfer)
	assert.Error(t, err)
}
