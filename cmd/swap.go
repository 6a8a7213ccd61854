package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bridge-swap/pkg/amount"
	"bridge-swap/pkg/approval"
	"bridge-swap/pkg/history"
	"bridge-swap/pkg/quote"
	"bridge-swap/pkg/session"
	"bridge-swap/pkg/submit"
	"bridge-swap/pkg/types"
	"bridge-swap/pkg/wallet"
)

var (
	swapFlags tradeFlags
	noConfirm bool
	noWait    bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <token>[@chain] to <token>[@chain]",
	Short: "Quote, approve, send and track a swap or bridge",
	Long: `Swap tokens on one chain or bridge them to another with the configured wallet.

The wallet switches to the source chain when needed, approves the router if the
quote asks for it and sends the transaction. Tracking continues until the
destination side is filled; interrupting leaves it resumable with 'status'.

Examples:
  bridge-swap swap 0.5 ETH@base to USDC@base
  bridge-swap swap 100 USDC@1 to USDC@8453 --recipient 0x123... --slippage 0.5
  bridge-swap swap 1 ETH@1 to ETH@42161 --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&swapFlags.recipient, "recipient", "", "Recipient address (default: your wallet)")
	swapCmd.Flags().StringVar(&swapFlags.slippage, "slippage", "", "Slippage in percent, e.g. 0.5 (default: auto)")
	swapCmd.Flags().StringVar(&swapFlags.affiliate, "affiliate", "", "Affiliate code or referral link")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
	swapCmd.Flags().BoolVar(&noWait, "no-wait", false, "Return after sending instead of tracking to completion")
}

func runSwap(cmd *cobra.Command, args []string) {
	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.close()

	if err := a.cfg.RequireWallet(); err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx, stop := signalContext()
	defer stop()

	w, err := a.dialWallet(ctx)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer w.Close()
	sender := strings.ToLower(w.Address().Hex())

	store, err := a.buildSession(ctx, strings.Join(args, " "), sender, swapFlags)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	params, err := quoteParams(store, sender, swapFlags)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	coord := a.newCoordinator()
	defer coord.CancelPendingQuote()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !a.json {
		s.Suffix = " Fetching quote..."
		s.Start()
	}
	res, err := coord.RequestQuote(ctx, params, quote.Options{})
	if !a.json {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if res == nil {
		fmt.Println("\nSwap cancelled.")
		return
	}

	snap := coord.Snapshot()
	store.SetToAmount(snap.ToAmount)
	if !a.json {
		displayQuote(store.State(), res, snap.ToAmount)
	}

	if !noConfirm && !a.json {
		if !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			return
		}
		// the quote may have been refreshed while waiting for the answer
		if latest := coord.Snapshot(); latest.Result != nil {
			res = latest.Result
		}
	}
	coord.CancelPendingQuote()

	if err := a.executeSwap(ctx, w, store.State(), res, params.Request.Amount); err != nil {
		if errors.Is(err, submit.ErrUserCancelled) {
			color.Yellow("\nTransaction cancelled in wallet.\n")
			return
		}
		printError(err)
		os.Exit(1)
	}
}

func (a *app) dialWallet(ctx context.Context) (*wallet.KeyWallet, error) {
	rpcs := a.cfg.RPCURLs()
	active := a.cfg.DefaultFrom
	if _, ok := rpcs[active]; !ok {
		for id := range rpcs {
			active = id
			break
		}
	}
	return wallet.DialKeyWallet(ctx, a.cfg.PrivateKey, rpcs, active, wallet.WithLogger(a.log))
}

func (a *app) executeSwap(ctx context.Context, w *wallet.KeyWallet, st session.SwapState, res *types.QuoteResult, rawAmount string) error {
	amt, ok := new(big.Int).SetString(rawAmount, 10)
	if !ok {
		return fmt.Errorf("invalid amount %q", rawAmount)
	}

	tracker := a.newTracker(w, a.orderSource(a.providerName()))
	defer tracker.Stop()
	gate := approval.NewGate(w, w, w, a.log)

	opts := []submit.Option{
		submit.WithLogger(a.log),
		submit.WithNotifier(a.notifier()),
		submit.WithSubmittedHook(func(ctx context.Context, q *types.QuoteResult, lc types.TxLifecycle) {
			rec := history.Record{
				TxLifecycle: lc,
				RequestID:   q.RequestID,
				Provider:    a.providerName(),
				FromToken:   st.From.String(),
				ToToken:     st.To.String(),
				Amount:      st.FromAmount,
			}
			if err := a.history.Put(rec); err != nil {
				a.log.Warn().Err(err).Msg("failed to store transaction")
			}
		}),
	}
	if a.oneClick != nil {
		opts = append(opts, submit.WithSubmittedHook(func(ctx context.Context, q *types.QuoteResult, lc types.TxLifecycle) {
			if err := a.oneClick.SubmitDepositTx(ctx, q.RequestID, lc.FromTxHash); err != nil {
				a.log.Warn().Err(err).Str("deposit_address", q.RequestID).Msg("failed to report deposit")
			}
		}))
	}
	sub := submit.NewSubmitter(w, gate, tracker, opts...)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !a.json {
		s.Suffix = " Sending transaction..."
		s.Start()
	}
	lc, err := sub.Execute(ctx, submit.Request{Quote: res, From: st.From, To: st.To, Amount: amt})
	if !a.json {
		s.Stop()
	}
	if err != nil {
		return err
	}

	if !a.json {
		color.Green("\n✓ Transaction sent: %s\n", lc.FromTxHash)
	}
	if noWait {
		if a.json {
			printJSON(lc)
		} else {
			fmt.Println("\nYou can monitor the swap status using:")
			color.Cyan("  bridge-swap status %s\n", lc.ID)
		}
		return nil
	}

	final := a.follow(ctx, tracker)
	if a.json {
		printJSON(final)
		return nil
	}
	displayLifecycle(final)
	if final.Status == types.StatusFilled {
		if out, err := amount.FromRaw(res.ToAmount, st.To.Decimals); err == nil {
			printSuccess(fmt.Sprintf("Received ~%s %s", out, st.To.Symbol))
		}
	}
	return nil
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
