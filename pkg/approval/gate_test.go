package approval

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridge-swap/pkg/types"
	"bridge-swap/pkg/wallet"
)

// fakeChain plays wallet, reader and receipt source. An approval only
// changes the allowance once its receipt is awaited.
type fakeChain struct {
	allowance *big.Int
	revert    bool
	reads     int
	events    []string
	pending   map[common.Hash]*big.Int
	nonce     byte
}

func newFakeChain(allowance int64) *fakeChain {
	return &fakeChain{allowance: big.NewInt(allowance), pending: make(map[common.Hash]*big.Int)}
}

func (f *fakeChain) Address() common.Address                    { return common.Address{0xaa} }
func (f *fakeChain) ChainID(ctx context.Context) (int64, error) { return 1, nil }
func (f *fakeChain) SwitchChain(ctx context.Context, id int64) error {
	return nil
}

func (f *fakeChain) SendTransaction(ctx context.Context, req wallet.TxRequest) (common.Hash, error) {
	_, amount, err := wallet.UnpackApprove(req.Data)
	if err != nil {
		return common.Hash{}, err
	}
	f.nonce++
	hash := common.Hash{f.nonce}
	f.pending[hash] = amount
	f.events = append(f.events, fmt.Sprintf("send approve(%s)", amount))
	return hash, nil
}

func (f *fakeChain) WaitReceipt(ctx context.Context, chainID int64, hash common.Hash) (*gethtypes.Receipt, error) {
	amount := f.pending[hash]
	delete(f.pending, hash)
	f.events = append(f.events, fmt.Sprintf("mined approve(%s)", amount))
	if f.revert {
		return &gethtypes.Receipt{Status: gethtypes.ReceiptStatusFailed}, nil
	}
	f.allowance = amount
	return &gethtypes.Receipt{Status: gethtypes.ReceiptStatusSuccessful}, nil
}

func (f *fakeChain) CallContract(ctx context.Context, chainID int64, msg ethereum.CallMsg) ([]byte, error) {
	f.reads++
	return common.LeftPadBytes(f.allowance.Bytes(), 32), nil
}

func newGate(f *fakeChain) *Gate {
	return NewGate(f, f, f, zerolog.Nop())
}

var (
	owner   = common.Address{0xaa}
	spender = common.Address{0xbb}
	usdc    = types.NewTokenRef(8453, "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", "USDC", 6)
	usdt    = types.NewTokenRef(1, "0xdAC17F958D2ee523a2206206994597C13D831ec7", "USDT", 6)
	eth     = types.NewTokenRef(1, types.ZeroAddress, "ETH", 18)
)

func TestNeedsApprovalNativeNeverReads(t *testing.T) {
	f := newFakeChain(0)
	g := newGate(f)

	for _, amt := range []int64{0, 1, 1 << 60} {
		needs, err := g.NeedsApproval(context.Background(), eth, owner, spender, big.NewInt(amt))
		require.NoError(t, err)
		assert.False(t, needs)
	}
	tagged := types.NewTokenRef(10, "0x1111111111111111111111111111111111111111", "ETH", 18, types.TagNative)
	needs, err := g.NeedsApproval(context.Background(), tagged, owner, spender, big.NewInt(5))
	require.NoError(t, err)
	assert.False(t, needs)
	assert.Equal(t, 0, f.reads)
}

func TestNeedsApprovalComparesAllowance(t *testing.T) {
	f := newFakeChain(0)
	g := newGate(f)

	needs, err := g.NeedsApproval(context.Background(), usdc, owner, spender, big.NewInt(100))
	require.NoError(t, err)
	assert.True(t, needs)

	f.allowance = big.NewInt(100)
	needs, err = g.NeedsApproval(context.Background(), usdc, owner, spender, big.NewInt(100))
	require.NoError(t, err)
	assert.False(t, needs)
}

func TestApproveWithResetSequence(t *testing.T) {
	f := newFakeChain(5)
	g := newGate(f)

	require.NoError(t, g.ApproveWithReset(context.Background(), usdt, owner, spender, big.NewInt(10)))
	assert.Equal(t, []string{
		"send approve(0)",
		"mined approve(0)",
		"send approve(10)",
		"mined approve(10)",
	}, f.events)
	assert.Equal(t, int64(10), f.allowance.Int64())
}

func TestApproveWithResetSkipsWhenSufficient(t *testing.T) {
	f := newFakeChain(10)
	require.NoError(t, newGate(f).ApproveWithReset(context.Background(), usdt, owner, spender, big.NewInt(10)))
	assert.Empty(t, f.events)
}

func TestApproveWithResetFromZeroSendsOne(t *testing.T) {
	f := newFakeChain(0)
	require.NoError(t, newGate(f).ApproveWithReset(context.Background(), usdt, owner, spender, big.NewInt(10)))
	assert.Equal(t, []string{"send approve(10)", "mined approve(10)"}, f.events)
}

func TestApproveRevertAbortsReset(t *testing.T) {
	f := newFakeChain(5)
	f.revert = true

	err := newGate(f).ApproveWithReset(context.Background(), usdt, owner, spender, big.NewInt(10))
	assert.ErrorIs(t, err, ErrApprovalReverted)
	assert.Equal(t, []string{"send approve(0)", "mined approve(0)"}, f.events, "no second approval after a failed reset")
}

func TestEnsurePicksPath(t *testing.T) {
	assert.True(t, IsLegacyResetToken(usdt))
	assert.False(t, IsLegacyResetToken(usdc))

	f := newFakeChain(5)
	require.NoError(t, newGate(f).Ensure(context.Background(), usdc, owner, spender, big.NewInt(100)))
	assert.Equal(t, []string{"send approve(100)", "mined approve(100)"}, f.events, "ordinary tokens approve directly")

	f = newFakeChain(5)
	require.NoError(t, newGate(f).Ensure(context.Background(), usdt, owner, spender, big.NewInt(100)))
	assert.Len(t, f.events, 4)

	f = newFakeChain(0)
	require.NoError(t, newGate(f).Ensure(context.Background(), eth, owner, spender, big.NewInt(100)))
	assert.Empty(t, f.events)
}
