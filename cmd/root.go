package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bridge-swap",
	Short: "A CLI for same-chain swaps and cross-chain bridges",
	Long: `bridge-swap quotes, approves, sends and tracks swaps and bridges between
EVM chains. Quotes refresh on their own until you send, and every submitted
transaction is followed until the destination side is filled.

Examples:
  bridge-swap quote 1 ETH@base to USDC@base
  bridge-swap quote 0.5 ETH@ethereum to ETH@arbitrum --watch
  bridge-swap swap 100 USDC@1 to USDC@8453 --recipient 0x123...
  bridge-swap status <id-or-tx-hash>
  bridge-swap balances
  bridge-swap history`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $HOME/.bridge-swap.yaml)")
}

// newLogger writes structured debug logs to stderr when verbose, and only
// warnings otherwise
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "\n%s %v\n\n", color.RedString("Error:"), err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", color.GreenString(message))
}
