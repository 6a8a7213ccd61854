package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bridge-swap/pkg/quote"
	"bridge-swap/pkg/session"
	"bridge-swap/pkg/wallet"
)

var (
	quoteFlags  tradeFlags
	quoteSender string
	quoteWatch  bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <token>[@chain] to <token>[@chain]",
	Short: "Get a swap or bridge quote",
	Long: `Get a quote without sending anything. Without a configured private key or
--from, the quote is a preview for a placeholder sender.

Examples:
  bridge-swap quote 1 ETH@base to USDC@base
  bridge-swap quote 0.5 ETH@1 to ETH@42161 --slippage 0.3
  bridge-swap quote 100 USDC@1 to USDC@8453 --watch`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().StringVar(&quoteSender, "from", "", "Sender address (default: configured wallet)")
	quoteCmd.Flags().StringVar(&quoteFlags.recipient, "recipient", "", "Recipient address (default: sender)")
	quoteCmd.Flags().StringVar(&quoteFlags.slippage, "slippage", "", "Slippage in percent, e.g. 0.5 (default: auto)")
	quoteCmd.Flags().StringVar(&quoteFlags.affiliate, "affiliate", "", "Affiliate code or referral link")
	quoteCmd.Flags().BoolVarP(&quoteWatch, "watch", "w", false, "Keep the quote fresh until interrupted")
}

func runQuote(cmd *cobra.Command, args []string) {
	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.close()

	ctx, stop := signalContext()
	defer stop()

	sender := quoteSender
	if sender == "" {
		sender = a.walletAddress()
	}

	store, err := a.buildSession(ctx, strings.Join(args, " "), sender, quoteFlags)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	params, err := quoteParams(store, sender, quoteFlags)
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
		fmt.Println("\nQuote cancelled.")
		return
	}

	snap := coord.Snapshot()
	store.SetToAmount(snap.ToAmount)
	showQuote(a, store, snap)

	if !quoteWatch {
		return
	}
	if sender == quote.NullAddress {
		color.Yellow("Preview quotes are not refreshed. Configure a wallet or pass --from to watch.\n")
		return
	}
	watchQuote(ctx, a, coord, store)
}

func showQuote(a *app, store *session.Store, snap quote.Snapshot) {
	st := store.State()
	if a.json {
		printJSON(map[string]interface{}{
			"from":        st.From,
			"to":          st.To,
			"from_amount": st.FromAmount,
			"to_amount":   snap.ToAmount,
			"router_type": snap.RouterType,
			"quote":       snap.Result,
		})
		return
	}
	displayQuote(st, snap.Result, snap.ToAmount)
}

// watchQuote prints every refreshed quote until ctx ends
func watchQuote(ctx context.Context, a *app, coord *quote.Coordinator, store *session.Store) {
	updates, unsubscribe := coord.Subscribe()
	defer unsubscribe()

	fmt.Printf("Refreshing every %s. Press Ctrl+C to stop.\n", a.cfg.Quote.RefetchInterval)
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case snap := <-updates:
			switch snap.State {
			case quote.StateReady:
				store.SetToAmount(snap.ToAmount)
				showQuote(a, store, snap)
			case quote.StateErrored:
				color.Red("Quote refresh failed: %v", snap.Err)
			}
		}
	}
}

// walletAddress is the configured key's address, or the preview sender
func (a *app) walletAddress() string {
	if a.cfg.PrivateKey == "" {
		return quote.NullAddress
	}
	key, err := wallet.ParsePrivateKey(a.cfg.PrivateKey)
	if err != nil {
		a.log.Warn().Err(err).Msg("ignoring configured private key")
		return quote.NullAddress
	}
	return strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
}
