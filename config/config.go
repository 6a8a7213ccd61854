package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"bridge-swap/pkg/client"
	"bridge-swap/pkg/lifecycle"
	"bridge-swap/pkg/quote"
	"bridge-swap/pkg/widget"
)

const (
	ProviderAPI      = "api"
	ProviderOneClick = "oneclick"
)

// ChainConfig holds the RPC endpoint of one chain
type ChainConfig struct {
	RPCURL string `mapstructure:"rpc_url"`
}

// QuoteConfig tunes the quote coordinator
type QuoteConfig struct {
	RefetchInterval time.Duration `mapstructure:"refetch_interval"`
	Debounce        time.Duration `mapstructure:"debounce"`
}

// TrackerConfig tunes transaction tracking
type TrackerConfig struct {
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
	ReceiptMaxRetries   int           `mapstructure:"receipt_max_retries"`
	Watchdog            time.Duration `mapstructure:"watchdog"`
	OrderPollInterval   time.Duration `mapstructure:"order_poll_interval"`
	OrderMaxAttempts    int           `mapstructure:"order_max_attempts"`
	OrderOpenedTopic    string        `mapstructure:"order_opened_topic"`
}

// OneClickConfig holds the NEAR Intents 1Click credentials
type OneClickConfig struct {
	JWTToken string `mapstructure:"jwt_token"`
	BaseURL  string `mapstructure:"base_url"`
}

// Config holds the application configuration
type Config struct {
	BaseURL     string                 `mapstructure:"base_url"`
	Provider    string                 `mapstructure:"provider"`
	PrivateKey  string                 `mapstructure:"private_key"`
	DefaultFrom int64                  `mapstructure:"default_chain"`
	Chains      map[string]ChainConfig `mapstructure:"chains"`
	Quote       QuoteConfig            `mapstructure:"quote"`
	Tracker     TrackerConfig          `mapstructure:"tracker"`
	HistoryFile string                 `mapstructure:"history_file"`
	OneClick    OneClickConfig         `mapstructure:"oneclick"`
	Widget      widget.RawConfig       `mapstructure:"widget"`
	MetricsAddr string                 `mapstructure:"metrics_addr"`
}

var globalConfig *Config

var defaultRPCs = map[string]string{
	"1":     "https://ethereum-rpc.publicnode.com",
	"10":    "https://optimism-rpc.publicnode.com",
	"8453":  "https://base-rpc.publicnode.com",
	"42161": "https://arbitrum-one-rpc.publicnode.com",
}

// Load reads configuration from environment variables and config file. An
// explicit path replaces the search in $HOME and the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".bridge-swap")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
	}

	v.SetDefault("base_url", client.DefaultBaseURL)
	v.SetDefault("provider", ProviderAPI)
	v.SetDefault("default_chain", 1)
	v.SetDefault("private_key", "")
	v.SetDefault("history_file", "")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("oneclick.jwt_token", "")
	v.SetDefault("oneclick.base_url", "")
	v.SetDefault("quote.refetch_interval", quote.DefaultRefetchInterval)
	v.SetDefault("quote.debounce", quote.DefaultDebounce)
	v.SetDefault("tracker.receipt_poll_interval", lifecycle.DefaultReceiptPollInterval)
	v.SetDefault("tracker.receipt_max_retries", lifecycle.DefaultReceiptMaxRetries)
	v.SetDefault("tracker.watchdog", lifecycle.DefaultWatchdog)
	v.SetDefault("tracker.order_poll_interval", lifecycle.DefaultOrderPollInterval)
	v.SetDefault("tracker.order_max_attempts", lifecycle.DefaultOrderMaxAttempts)
	v.SetDefault("tracker.order_opened_topic", "")
	v.SetDefault("widget.mode", string(widget.ModeBridgeAndSwap))
	for id, url := range defaultRPCs {
		v.SetDefault("chains."+id+".rpc_url", url)
	}

	v.SetEnvPrefix("BRIDGE_SWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderAPI:
	case ProviderOneClick:
		if c.OneClick.JWTToken == "" {
			return fmt.Errorf("JWT token not found. Please set BRIDGE_SWAP_ONECLICK_JWT_TOKEN or oneclick.jwt_token in .bridge-swap.yaml")
		}
	default:
		return fmt.Errorf("unknown provider %q (want %q or %q)", c.Provider, ProviderAPI, ProviderOneClick)
	}
	if c.Tracker.OrderOpenedTopic != "" && !isHash(c.Tracker.OrderOpenedTopic) {
		return fmt.Errorf("tracker.order_opened_topic must be a 32 byte hex hash")
	}
	for id := range c.Chains {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return fmt.Errorf("chains: %q is not a chain id", id)
		}
	}
	return nil
}

func isHash(s string) bool {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(s) != 2*common.HashLength {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}

// RequireWallet checks that a signing key is configured
func (c *Config) RequireWallet() error {
	if c.PrivateKey == "" {
		return fmt.Errorf("private key not found. Please set BRIDGE_SWAP_PRIVATE_KEY environment variable or private_key in .bridge-swap.yaml")
	}
	return nil
}

// RPCURLs returns the configured RPC endpoint per chain id
func (c *Config) RPCURLs() map[int64]string {
	out := make(map[int64]string, len(c.Chains))
	for id, ch := range c.Chains {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || ch.RPCURL == "" {
			continue
		}
		out[n] = ch.RPCURL
	}
	return out
}

// QuoteSettings converts the quote section
func (c *Config) QuoteSettings() quote.Config {
	return quote.Config{
		RefetchInterval: c.Quote.RefetchInterval,
		Debounce:        c.Quote.Debounce,
	}
}

// TrackerSettings converts the tracker section
func (c *Config) TrackerSettings() lifecycle.Config {
	cfg := lifecycle.Config{
		ReceiptPollInterval: c.Tracker.ReceiptPollInterval,
		ReceiptMaxRetries:   c.Tracker.ReceiptMaxRetries,
		Watchdog:            c.Tracker.Watchdog,
		OrderPollInterval:   c.Tracker.OrderPollInterval,
		OrderMaxAttempts:    c.Tracker.OrderMaxAttempts,
	}
	if c.Tracker.OrderOpenedTopic != "" {
		cfg.OrderOpenedTopic = common.HexToHash(c.Tracker.OrderOpenedTopic)
	}
	return cfg
}

// WidgetSettings normalizes the widget section
func (c *Config) WidgetSettings() widget.Config {
	return widget.Normalize(c.Widget)
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
