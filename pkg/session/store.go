package session

import (
	"fmt"
	"sync"

	"bridge-swap/pkg/amount"
	"bridge-swap/pkg/quote"
	"bridge-swap/pkg/types"
	"bridge-swap/pkg/widget"
)

// SwapState is the user's current selection. SlippageBps is nil while
// slippage is automatic.
type SwapState struct {
	From            types.TokenRef
	To              types.TokenRef
	FromAmount      string
	ToAmount        string
	SlippageBps     *int
	AutoSlippageBps int
	ShortLink       bool
}

// Store holds the SwapState of one swap session. Every mutation is a single
// read-modify-write under the lock.
type Store struct {
	mu    sync.Mutex
	state SwapState
	auto  amount.AutoSlippage
}

// NewStore starts a session with the given pair
func NewStore(from, to types.TokenRef) *Store {
	s := &Store{state: SwapState{From: from, To: to}}
	s.state.AutoSlippageBps, _ = s.auto.Update(from, to)
	return s
}

// State returns a copy of the current state
func (s *Store) State() SwapState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.SlippageBps != nil {
		v := *st.SlippageBps
		st.SlippageBps = &v
	}
	return st
}

// SetShortLink marks the session as opened from a short link, which allows
// the same token on both sides
func (s *Store) SetShortLink(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ShortLink = on
}

// SelectToken puts t on side. Picking the token already held by the other
// side swaps the two, unless a short link allows a self-swap. Amounts are
// cleared whenever a token changes. The second result reports whether the
// automatic slippage tier changed.
func (s *Store) SelectToken(side widget.Side, t types.TokenRef) (changed, slippageChanged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, to := s.state.From, s.state.To
	if side == widget.SideTo {
		if t.Equal(from) && !s.state.ShortLink {
			from, to = to, t
		} else {
			to = t
		}
	} else {
		if t.Equal(to) && !s.state.ShortLink {
			from, to = t, from
		} else {
			from = t
		}
	}

	if from.Equal(s.state.From) && to.Equal(s.state.To) {
		return false, false
	}
	s.state.From, s.state.To = from, to
	s.state.FromAmount, s.state.ToAmount = "", ""

	bps, slippageChanged := s.auto.Update(from, to)
	s.state.AutoSlippageBps = bps
	return true, slippageChanged
}

// Switch swaps both tokens and both amounts
func (s *Store) Switch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.From, s.state.To = s.state.To, s.state.From
	s.state.FromAmount, s.state.ToAmount = s.state.ToAmount, s.state.FromAmount
	s.state.AutoSlippageBps, _ = s.auto.Update(s.state.From, s.state.To)
}

// SetFromAmount stores a typed amount. Malformed input is ignored and
// false is returned.
func (s *Store) SetFromAmount(raw string) bool {
	v, ok := amount.ValidateAmountInput(raw)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.FromAmount = v
	if v == "" {
		s.state.ToAmount = ""
	}
	return true
}

// SetToAmount stores the quoted output amount
func (s *Store) SetToAmount(display string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ToAmount = display
}

// SetSlippage sets a custom slippage in percent. Empty or zero switches
// back to automatic.
func (s *Store) SetSlippage(percent string) error {
	bps, err := amount.SlippageBpsFromPercent(percent)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SlippageBps = bps
	return nil
}

// EffectiveSlippageBps is the custom slippage if set, else the automatic tier
func (s *Store) EffectiveSlippageBps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.SlippageBps != nil {
		return *s.state.SlippageBps
	}
	return s.state.AutoSlippageBps
}

// QuoteParams builds a quote request from the current state. sender may be
// quote.NullAddress for previews; an empty recipient means the sender.
func (s *Store) QuoteParams(sender, recipient, affiliation string) (quote.Params, error) {
	st := s.State()
	if st.FromAmount == "" {
		return quote.Params{}, fmt.Errorf("amount is required")
	}
	raw, err := amount.ToRaw(st.FromAmount, st.From.Decimals)
	if err != nil {
		return quote.Params{}, err
	}
	if recipient == "" {
		recipient = sender
	}
	return quote.Params{
		Request: types.QuoteRequest{
			FromChain:    st.From.ChainID,
			ToChain:      st.To.ChainID,
			FromToken:    st.From.Address,
			ToToken:      st.To.Address,
			FromAddress:  sender,
			ToAddress:    recipient,
			Amount:       raw,
			Slippage:     st.SlippageBps,
			Affiliation:  affiliation,
			ToPlatformID: st.To.PlatformID,
		},
		ToDecimals: st.To.Decimals,
	}, nil
}
