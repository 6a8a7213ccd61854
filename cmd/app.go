package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"bridge-swap/config"
	"bridge-swap/pkg/client"
	"bridge-swap/pkg/history"
	"bridge-swap/pkg/lifecycle"
	"bridge-swap/pkg/metrics"
	"bridge-swap/pkg/quote"
	"bridge-swap/pkg/types"
)

// app holds what every command builds from the configuration
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	metrics  *metrics.Metrics
	api      *client.Client
	oneClick *client.OneClickClient
	history  *history.Storage
	json     bool
	verbose  bool

	metricsSrv *http.Server
}

func newApp(cmd *cobra.Command) (*app, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := newLogger(verbose)
	reg := prometheus.NewRegistry()
	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(reg),
		api:     client.NewClient(cfg.BaseURL, client.WithLogger(log)),
		json:    jsonOutput,
		verbose: verbose,
	}
	if cfg.Provider == config.ProviderOneClick {
		a.oneClick = client.NewOneClickClient(cfg.OneClick.JWTToken,
			client.WithOneClickBaseURL(cfg.OneClick.BaseURL),
			client.WithOneClickLogger(log))
	}

	a.history, err = history.NewStorage(cfg.HistoryFile)
	if err != nil {
		return nil, err
	}

	if cfg.MetricsAddr != "" {
		a.serveMetrics(reg)
	}
	return a, nil
}

func (a *app) serveMetrics(reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.metricsSrv = &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn().Err(err).Str("addr", a.cfg.MetricsAddr).Msg("metrics server stopped")
		}
	}()
	a.log.Debug().Str("addr", a.cfg.MetricsAddr).Msg("serving metrics")
}

func (a *app) close() {
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.metricsSrv.Shutdown(ctx)
	}
}

func (a *app) providerName() string {
	if a.oneClick != nil {
		return config.ProviderOneClick
	}
	return config.ProviderAPI
}

func (a *app) quoteProvider() quote.Provider {
	if a.oneClick != nil {
		return a.oneClick
	}
	return a.api
}

// orderSource picks the order backend a record was created with
func (a *app) orderSource(provider string) lifecycle.OrderSource {
	if provider == config.ProviderOneClick && a.oneClick != nil {
		return a.oneClick
	}
	return a.api
}

func (a *app) newCoordinator() *quote.Coordinator {
	return quote.NewCoordinator(a.quoteProvider(), a.cfg.QuoteSettings(),
		quote.WithLogger(a.log),
		quote.WithMetrics(a.metrics))
}

// notifier prints wallet and tracker notices the way a toast would show them
func (a *app) notifier() types.Notifier {
	return types.NotifierFunc(func(sev types.Severity, msg string) {
		if a.json {
			a.log.Info().Str("severity", string(sev)).Msg(msg)
			return
		}
		switch sev {
		case types.SeverityError:
			fmt.Fprintln(os.Stderr, color.RedString("\n✗ %s", msg))
		case types.SeverityWarning:
			fmt.Fprintln(os.Stderr, color.YellowString("\n! %s", msg))
		default:
			fmt.Fprintln(os.Stderr, color.CyanString("\n• %s", msg))
		}
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
