package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bridge-swap/pkg/history"
	"bridge-swap/pkg/lifecycle"
	"bridge-swap/pkg/types"
	"bridge-swap/pkg/wallet"
)

var (
	watchStatus bool
	orderLookup bool
)

var statusCmd = &cobra.Command{
	Use:   "status <id-or-tx-hash>",
	Short: "Check the status of a swap",
	Long: `Check a transaction sent with 'swap', by lifecycle id or source transaction
hash. With --watch, tracking resumes until the swap is filled or fails.
With --order, the argument is an order id looked up directly.

Examples:
  bridge-swap status 6f1c...
  bridge-swap status 0x1234...abcd --watch
  bridge-swap status 0xorder... --order`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Resume tracking until the swap completes")
	statusCmd.Flags().BoolVar(&orderLookup, "order", false, "Treat the argument as an order id")
}

func runStatus(cmd *cobra.Command, args []string) {
	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.close()

	ctx, stop := signalContext()
	defer stop()

	if orderLookup {
		if err := a.checkOrder(ctx, args[0]); err != nil {
			printError(err)
			os.Exit(1)
		}
		return
	}

	rec, err := a.history.Get(strings.TrimSpace(args[0]))
	if err != nil {
		printError(fmt.Errorf("%w (see 'bridge-swap history')", err))
		os.Exit(1)
	}

	if !watchStatus || rec.Status.Terminal() {
		if a.json {
			printJSON(rec)
		} else {
			displayLifecycle(rec.TxLifecycle)
		}
		return
	}

	final, err := a.resume(ctx, rec)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if a.json {
		printJSON(final)
	} else {
		displayLifecycle(final)
	}
}

// resume tracks a stored transaction again from its source hash
func (a *app) resume(ctx context.Context, rec *history.Record) (types.TxLifecycle, error) {
	reader, err := wallet.DialReceiptReader(ctx, a.cfg.RPCURLs())
	if err != nil {
		return types.TxLifecycle{}, err
	}
	defer reader.Close()

	tracker := a.newTracker(reader, a.orderSource(rec.Provider))
	defer tracker.Stop()

	if !a.json {
		fmt.Printf("\nResuming %s (%s → %s)\n", color.CyanString(rec.ID), rec.FromToken, rec.ToToken)
	}
	if _, err := tracker.Track(lifecycle.Params{
		ID:          rec.ID,
		FromChainID: rec.FromChainID,
		ToChainID:   rec.ToChainID,
		FromTxHash:  rec.FromTxHash,
		RequestID:   rec.RequestID,
	}); err != nil {
		return types.TxLifecycle{}, err
	}
	return a.follow(ctx, tracker), nil
}

func (a *app) checkOrder(ctx context.Context, orderID string) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !a.json {
		s.Suffix = " Checking order status..."
		s.Start()
	}
	order, err := a.orderSource(a.providerName()).Order(ctx, orderID)
	if !a.json {
		s.Stop()
	}
	if err != nil {
		return err
	}

	if a.json {
		printJSON(order)
		return nil
	}
	displayOrder(order)
	return nil
}

func displayOrder(o *types.OrderDetail) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     ORDER STATUS")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Order:             %s\n", o.OrderID)
	fmt.Printf("  Status:            %s\n", coloredOrderStatus(o.Status))
	if o.FromChain != 0 {
		fmt.Printf("  Route:             %d → %d\n", o.FromChain, o.ToChain)
	}
	if o.OpenTxHash != "" {
		fmt.Printf("  Source Tx:         %s\n", color.HiBlackString(o.OpenTxHash))
	}
	if o.FillTxHash != "" {
		fmt.Printf("  Fill Tx:           %s\n", color.HiBlackString(o.FillTxHash))
	}
	if o.FromAmount != "" {
		fmt.Printf("  Amount In:         %s\n", o.FromAmount)
	}
	if o.ToAmount != "" {
		fmt.Printf("  Amount Out:        %s\n", o.ToAmount)
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func coloredOrderStatus(s types.OrderStatus) string {
	switch s {
	case types.OrderFilled:
		return color.GreenString(string(s))
	case types.OrderOpen:
		return color.YellowString(string(s))
	default:
		return color.RedString(string(s))
	}
}
