package cmd

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"bridge-swap/pkg/address"
	"bridge-swap/pkg/parser"
	"bridge-swap/pkg/quote"
	"bridge-swap/pkg/session"
	"bridge-swap/pkg/types"
	"bridge-swap/pkg/widget"
)

// tradeFlags are shared by quote and swap
type tradeFlags struct {
	recipient string
	slippage  string
	affiliate string
}

// buildSession parses a swap command into a session store. Chains left out
// of the command come from the widget defaults; holder's balances help
// resolve symbols.
func (a *app) buildSession(ctx context.Context, command, holder string, f tradeFlags) (*session.Store, error) {
	sc, err := parser.ParseSwapCommand(command)
	if err != nil {
		return nil, err
	}

	wcfg := a.cfg.WidgetSettings()
	base := types.NewTokenRef(a.cfg.DefaultFrom, types.ZeroAddress, "ETH", 18)
	defFrom, defTo, _ := wcfg.ResolveDefaults(base, base)

	fromChain, toChain := sc.FromChain, sc.ToChain
	if fromChain == 0 {
		fromChain = defFrom.ChainID
	}
	if toChain == 0 {
		toChain = fromChain
		if sc.FromChain == 0 && wcfg.Mode != widget.ModeSwapOnly {
			toChain = defTo.ChainID
		}
	}
	if wcfg.Mode == widget.ModeSwapOnly && fromChain != toChain {
		return nil, fmt.Errorf("only same-chain swaps are enabled")
	}

	var balances []types.TokenBalance
	if holder != "" && holder != quote.NullAddress {
		balances, err = a.api.TokenBalances(ctx, holder)
		if err != nil {
			a.log.Debug().Err(err).Msg("balances unavailable, using known tokens")
		}
	}

	from, err := parser.ResolveToken(fromChain, sc.FromToken, balances)
	if err != nil {
		return nil, err
	}
	to, err := parser.ResolveToken(toChain, sc.ToToken, balances)
	if err != nil {
		return nil, err
	}
	if err := checkAllowed(wcfg, widget.SideFrom, from); err != nil {
		return nil, err
	}
	if err := checkAllowed(wcfg, widget.SideTo, to); err != nil {
		return nil, err
	}
	if from.Equal(to) {
		return nil, fmt.Errorf("source and destination token are the same")
	}

	store := session.NewStore(from, to)
	if !store.SetFromAmount(sc.Amount) {
		return nil, fmt.Errorf("invalid amount %q", sc.Amount)
	}
	if err := store.SetSlippage(f.slippage); err != nil {
		return nil, err
	}
	return store, nil
}

func checkAllowed(cfg widget.Config, side widget.Side, t types.TokenRef) error {
	if !cfg.IsChainAllowed(side, t.ChainID) {
		return fmt.Errorf("chain %d is not enabled for %s", t.ChainID, side)
	}
	if !cfg.IsTokenAllowed(side, t.ChainID, t.Address) {
		return fmt.Errorf("%s is not enabled for %s", t, side)
	}
	return nil
}

// quoteParams validates the recipient and builds the request
func quoteParams(store *session.Store, sender string, f tradeFlags) (quote.Params, error) {
	recipient := ""
	if f.recipient != "" {
		var err error
		recipient, err = address.Validate(store.State().To.ChainID, f.recipient)
		if err != nil {
			return quote.Params{}, fmt.Errorf("recipient: %w", err)
		}
	}
	return store.QuoteParams(sender, recipient, affiliateCode(f.affiliate))
}

// affiliateCode accepts a bare code or a referral link ending in /v/<code>
func affiliateCode(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "/") {
		return s
	}
	path := s
	if u, err := url.Parse(s); err == nil && u.Path != "" {
		path = u.Path
	}
	return quote.AffiliateCode(path)
}
