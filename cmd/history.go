package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var pendingOnly bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List swaps sent from this machine",
	Run:   runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only show swaps that are still in progress")
}

func runHistory(cmd *cobra.Command, args []string) {
	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.close()

	records := a.history.List()
	if pendingOnly {
		records = a.history.ListPending()
	}

	if a.json {
		printJSON(records)
		return
	}
	if len(records) == 0 {
		fmt.Println("\nNo swaps recorded yet.")
		return
	}

	fmt.Printf("\n%s (%d)\n\n", color.GreenString("Swaps"), len(records))
	for _, rec := range records {
		fmt.Printf("  %s  %-20s %s %s → %s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			coloredStatus(rec.Status),
			rec.Amount,
			color.YellowString(rec.FromToken),
			color.YellowString(rec.ToToken))
		fmt.Printf("    %s\n", color.HiBlackString("id %s  tx %s", rec.ID, shortHash(rec.FromTxHash)))
	}
	fmt.Printf("\nStored in %s\n", a.history.FilePath())
	fmt.Println(strings.Repeat("-", 60))
}

func shortHash(h string) string {
	if len(h) <= 14 {
		return h
	}
	return h[:8] + "…" + h[len(h)-6:]
}
