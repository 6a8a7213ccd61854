package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"bridge-swap/pkg/amount"
	"bridge-swap/pkg/session"
	"bridge-swap/pkg/types"
)

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func displayQuote(st session.SwapState, q *types.QuoteResult, toAmount string) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:              %s %s\n", st.FromAmount, color.YellowString(st.From.String()))
	fmt.Printf("  To:                ~%s %s\n", toAmount, color.YellowString(st.To.String()))
	if q.MinReceive != "" {
		if minOut, err := amount.FromRaw(q.MinReceive, st.To.Decimals); err == nil {
			fmt.Printf("  Minimum Received:  %s\n", minOut)
		}
	}
	fmt.Printf("  Route:             %s\n", routeName(q))
	if q.EstimatedTimeSec > 0 {
		fmt.Printf("  Estimated Time:    %d seconds\n", q.EstimatedTimeSec)
	}

	slippage := amount.FormatSlippage(st.AutoSlippageBps) + "% (auto)"
	if st.SlippageBps != nil {
		slippage = amount.FormatSlippage(*st.SlippageBps) + "%"
	}
	fmt.Printf("  Slippage:          %s\n", slippage)

	if fee := q.PriceImpact; fee.BridgeFee != "" || fee.SwapFee != "" {
		fmt.Printf("  Fees:              bridge %s, swap %s, gas %s\n", orDash(fee.BridgeFee), orDash(fee.SwapFee), orDash(fee.DstGasFee))
	}
	if q.Recipient != "" {
		fmt.Printf("  Recipient:         %s\n", q.Recipient)
	}
	if q.RequiresApproval {
		fmt.Printf("  Approval:          %s\n", color.YellowString("required before sending"))
	}
	if q.QuoteMessage != "" {
		fmt.Printf("\n  %s\n", color.HiBlackString(q.QuoteMessage))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func routeName(q *types.QuoteResult) string {
	var names []string
	for _, r := range q.Routes {
		names = append(names, r.Name)
	}
	kind := string(q.RouterType)
	if kind == "" {
		kind = "swap"
	}
	if len(names) == 0 {
		return kind
	}
	return fmt.Sprintf("%s via %s", kind, strings.Join(names, " → "))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func displayLifecycle(lc types.TxLifecycle) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                   TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  ID:                %s\n", lc.ID)
	fmt.Printf("  Status:            %s\n", coloredStatus(lc.Status))
	fmt.Printf("  Route:             %d → %d\n", lc.FromChainID, lc.ToChainID)
	if lc.FromTxHash != "" {
		fmt.Printf("  Source Tx:         %s\n", color.HiBlackString(lc.FromTxHash))
	}
	if lc.OrderID != "" {
		fmt.Printf("  Order:             %s\n", color.HiBlackString(lc.OrderID))
	}
	if lc.ToTxHash != "" && !lc.SameChain() {
		fmt.Printf("  Destination Tx:    %s\n", color.HiBlackString(lc.ToTxHash))
	}
	if lc.Message != "" {
		fmt.Printf("  Note:              %s\n", lc.Message)
	}
	if !lc.UpdatedAt.IsZero() {
		fmt.Printf("  Last Updated:      %s\n", lc.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func coloredStatus(s types.LifecycleStatus) string {
	switch s {
	case types.StatusFilled:
		return color.GreenString(string(s))
	case types.StatusSubmitted, types.StatusConfirmingSource, types.StatusAwaitingFill:
		return color.YellowString(string(s))
	case types.StatusFailed, types.StatusMaxRetries, types.StatusFillTimeout, types.StatusBlocked:
		return color.RedString(string(s))
	default:
		return string(s)
	}
}

func statusSuffix(s types.LifecycleStatus) string {
	switch s {
	case types.StatusSubmitted:
		return " Transaction submitted..."
	case types.StatusConfirmingSource:
		return " Waiting for source confirmation..."
	case types.StatusAwaitingFill:
		return " Waiting for the destination fill..."
	default:
		return " " + string(s)
	}
}
