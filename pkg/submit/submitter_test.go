package submit

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridge-swap/pkg/lifecycle"
	"bridge-swap/pkg/types"
	"bridge-swap/pkg/wallet"
)

type fakeWallet struct {
	chain     int64
	switchErr error
	sendErr   error
	sent      []wallet.TxRequest
	events    *[]string
}

func (f *fakeWallet) Address() common.Address                    { return common.Address{0xaa} }
func (f *fakeWallet) ChainID(ctx context.Context) (int64, error) { return f.chain, nil }

func (f *fakeWallet) SwitchChain(ctx context.Context, id int64) error {
	if f.switchErr != nil {
		return f.switchErr
	}
	*f.events = append(*f.events, "switch")
	f.chain = id
	return nil
}

func (f *fakeWallet) SendTransaction(ctx context.Context, req wallet.TxRequest) (common.Hash, error) {
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	*f.events = append(*f.events, "send swap")
	f.sent = append(f.sent, req)
	return common.Hash{0x01}, nil
}

type fakeApprover struct {
	err     error
	spender common.Address
	events  *[]string
}

func (f *fakeApprover) Ensure(ctx context.Context, token types.TokenRef, owner, spender common.Address, amount *big.Int) error {
	f.spender = spender
	*f.events = append(*f.events, "approve")
	return f.err
}

type fakeLifecycle struct {
	tracked   []lifecycle.Params
	cancelled int
}

func (f *fakeLifecycle) Track(p lifecycle.Params) (types.TxLifecycle, error) {
	f.tracked = append(f.tracked, p)
	return types.TxLifecycle{ID: "lc", FromTxHash: p.FromTxHash, Status: types.StatusSubmitted}, nil
}

func (f *fakeLifecycle) MarkUserCancelled(from, to int64) types.TxLifecycle {
	f.cancelled++
	return types.TxLifecycle{Status: types.StatusUserCancelled, UserCancelled: true}
}

type setup struct {
	events   []string
	wallet   *fakeWallet
	approver *fakeApprover
	lc       *fakeLifecycle
	notes    []string
	sub      *Submitter
}

func newSetup(chain int64) *setup {
	s := &setup{}
	s.wallet = &fakeWallet{chain: chain, events: &s.events}
	s.approver = &fakeApprover{events: &s.events}
	s.lc = &fakeLifecycle{}
	s.sub = NewSubmitter(s.wallet, s.approver, s.lc, WithNotifier(types.NotifierFunc(func(sev types.Severity, msg string) {
		s.notes = append(s.notes, msg)
	})))
	return s
}

var (
	usdc = types.NewTokenRef(1, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "USDC", 6)
	eth  = types.NewTokenRef(8453, types.ZeroAddress, "ETH", 18)
)

func crossChainQuote() *types.QuoteResult {
	return &types.QuoteResult{
		RequestID:        "0xorder",
		TxTo:             "0x00000000000000000000000000000000000000cc",
		TxData:           []byte{0x12},
		TxValue:          "0",
		TxChainID:        1,
		Gas:              0,
		MaxFeePerGas:     big.NewInt(0),
		RequiresApproval: true,
		ApproveSpender:   "0x00000000000000000000000000000000000000dd",
	}
}

func TestExecuteApprovesBeforeSwap(t *testing.T) {
	s := newSetup(8453)

	lc, err := s.sub.Execute(context.Background(), Request{Quote: crossChainQuote(), From: usdc, To: eth, Amount: big.NewInt(100)})
	require.NoError(t, err)
	assert.Equal(t, "lc", lc.ID)

	assert.Equal(t, []string{"switch", "approve", "send swap"}, s.events)
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000dd"), s.approver.spender)

	require.Len(t, s.wallet.sent, 1)
	tx := s.wallet.sent[0]
	assert.Equal(t, uint64(0), tx.Gas)
	assert.Nil(t, tx.MaxFeePerGas, "zero overrides are left to the wallet")
	assert.Equal(t, int64(0), tx.Value.Int64())

	require.Len(t, s.lc.tracked, 1)
	assert.Equal(t, "0xorder", s.lc.tracked[0].RequestID)
	assert.Equal(t, int64(8453), s.lc.tracked[0].ToChainID)
	assert.False(t, s.sub.UserCancelled())
}

func TestExecuteKeepsPositiveOverrides(t *testing.T) {
	s := newSetup(1)
	q := crossChainQuote()
	q.RequiresApproval = false
	q.Gas = 300000
	q.MaxFeePerGas = big.NewInt(40)
	q.MaxPriorityFeePerGas = big.NewInt(2)
	q.TxValue = "1000"

	_, err := s.sub.Execute(context.Background(), Request{Quote: q, From: usdc, To: eth, Amount: big.NewInt(100)})
	require.NoError(t, err)

	assert.Equal(t, []string{"send swap"}, s.events)
	tx := s.wallet.sent[0]
	assert.Equal(t, uint64(300000), tx.Gas)
	assert.Equal(t, int64(40), tx.MaxFeePerGas.Int64())
	assert.Equal(t, int64(2), tx.MaxPriorityFeePerGas.Int64())
	assert.Equal(t, int64(1000), tx.Value.Int64())
}

func TestExecuteUserRejection(t *testing.T) {
	s := newSetup(1)
	s.wallet.sendErr = wallet.ErrUserRejected

	lc, err := s.sub.Execute(context.Background(), Request{Quote: crossChainQuote(), From: usdc, To: eth, Amount: big.NewInt(100)})
	assert.ErrorIs(t, err, ErrUserCancelled)
	assert.True(t, s.sub.UserCancelled())
	assert.True(t, lc.UserCancelled)
	assert.Empty(t, lc.FromTxHash)
	assert.Empty(t, s.lc.tracked)
	assert.Equal(t, 1, s.lc.cancelled)
	assert.Empty(t, s.notes, "a declined prompt is not reported as a failure")
}

func TestExecuteApprovalFailureAborts(t *testing.T) {
	s := newSetup(1)
	s.approver.err = errors.New("rpc down")

	_, err := s.sub.Execute(context.Background(), Request{Quote: crossChainQuote(), From: usdc, To: eth, Amount: big.NewInt(100)})
	assert.Error(t, err)
	assert.Equal(t, []string{"approve"}, s.events)
	assert.Empty(t, s.wallet.sent)
	assert.Len(t, s.notes, 1)
	assert.False(t, s.sub.UserCancelled())
}

func TestExecuteSwitchFailureDoesNotSend(t *testing.T) {
	s := newSetup(10)
	s.wallet.switchErr = errors.New("chain not added")

	_, err := s.sub.Execute(context.Background(), Request{Quote: crossChainQuote(), From: usdc, To: eth, Amount: big.NewInt(100)})
	assert.Error(t, err)
	assert.Empty(t, s.events)
}

func TestExecuteWithoutQuote(t *testing.T) {
	s := newSetup(1)
	_, err := s.sub.Execute(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoQuote)
}

func TestExecuteRunsSubmittedHooks(t *testing.T) {
	s := newSetup(1)
	var got string
	s.sub = NewSubmitter(s.wallet, s.approver, s.lc, WithSubmittedHook(func(ctx context.Context, q *types.QuoteResult, lc types.TxLifecycle) {
		got = q.RequestID + " " + lc.FromTxHash
	}))

	q := crossChainQuote()
	q.RequiresApproval = false
	_, err := s.sub.Execute(context.Background(), Request{Quote: q, From: usdc, To: eth, Amount: big.NewInt(1)})
	require.NoError(t, err)
	assert.Equal(t, "0xorder "+common.Hash{0x01}.Hex(), got)
}
