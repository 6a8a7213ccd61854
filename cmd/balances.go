package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"bridge-swap/pkg/address"
	"bridge-swap/pkg/parser"
	"bridge-swap/pkg/quote"
	"bridge-swap/pkg/types"
	"bridge-swap/pkg/widget"
)

var (
	filterChain  string
	filterSymbol string
	showAll      bool
)

var balancesCmd = &cobra.Command{
	Use:     "balances [address]",
	Aliases: []string{"tokens", "ls"},
	Short:   "List token balances that can be swapped",
	Long: `List the token balances of an address, grouped by chain and sorted by value.
Tokens the widget configuration does not allow as a source are hidden unless --all is set.

Examples:
  bridge-swap balances
  bridge-swap balances 0x1234... --chain base
  bridge-swap balances --symbol USDC`,
	Args: cobra.MaximumNArgs(1),
	Run:  runBalances,
}

func init() {
	rootCmd.AddCommand(balancesCmd)

	balancesCmd.Flags().StringVar(&filterChain, "chain", "", "Filter by chain name or id")
	balancesCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
	balancesCmd.Flags().BoolVar(&showAll, "all", false, "Include tokens the widget configuration hides")
}

func runBalances(cmd *cobra.Command, args []string) {
	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.close()

	holder := a.walletAddress()
	if len(args) == 1 {
		holder, err = address.Validate(1, args[0])
		if err != nil {
			printError(err)
			os.Exit(1)
		}
	}
	if holder == quote.NullAddress {
		printError(fmt.Errorf("no address given and no wallet configured"))
		os.Exit(1)
	}

	var chainID int64
	if filterChain != "" {
		if chainID, err = parser.ParseChain(filterChain); err != nil {
			printError(err)
			os.Exit(1)
		}
	}

	ctx, stop := signalContext()
	defer stop()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !a.json {
		s.Suffix = " Fetching balances..."
		s.Start()
	}
	balances, err := a.api.TokenBalances(ctx, holder)
	if !a.json {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	wcfg := a.cfg.WidgetSettings()
	filtered := balances[:0]
	for _, b := range balances {
		if chainID != 0 && b.ChainID != chainID {
			continue
		}
		if filterSymbol != "" && !strings.EqualFold(b.Token.Symbol, filterSymbol) {
			continue
		}
		if !showAll && (!wcfg.IsChainAllowed(widget.SideFrom, b.ChainID) || !wcfg.IsTokenAllowed(widget.SideFrom, b.ChainID, b.Token.Address)) {
			continue
		}
		filtered = append(filtered, b)
	}

	if a.json {
		printJSON(filtered)
		return
	}
	displayBalances(holder, filtered)
}

func usdValue(b types.TokenBalance) decimal.Decimal {
	bal, err := decimal.NewFromString(b.Balance)
	if err != nil {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(b.Price)
	if err != nil {
		return decimal.Zero
	}
	return bal.Mul(price)
}

func displayBalances(holder string, balances []types.TokenBalance) {
	if len(balances) == 0 {
		fmt.Println("\nNo balances found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            BALANCES OF %s", holder)
	fmt.Println(strings.Repeat("=", 90))

	byChain := make(map[int64][]types.TokenBalance)
	for _, b := range balances {
		byChain[b.ChainID] = append(byChain[b.ChainID], b)
	}

	chains := make([]int64, 0, len(byChain))
	for id := range byChain {
		chains = append(chains, id)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })

	total := decimal.Zero
	for _, id := range chains {
		color.Cyan("\nCHAIN %d", id)
		fmt.Println(strings.Repeat("-", 90))

		rows := byChain[id]
		sort.SliceStable(rows, func(i, j int) bool {
			return usdValue(rows[i]).GreaterThan(usdValue(rows[j]))
		})
		for _, b := range rows {
			value := usdValue(b)
			total = total.Add(value)
			fmt.Printf("  %-10s  %24s  $%12s  %s\n",
				color.YellowString(b.Token.Symbol),
				b.Balance,
				value.StringFixed(2),
				color.HiBlackString(b.Token.Address))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: $%s across %d chains\n\n", total.StringFixed(2), len(chains))
}
